// Package testing provides standardised test suites for the components of dSync that
// come in more than one implementation.
//
// The package contains:
//   - counters: a suite checking that an ICounter reaches exactly N*K for a grid of
//     worker and increment counts, and a suite checking that a lossy counter stays
//     below N*K and loses updates reproducibly
//   - policies: a suite checking safety (no two neighbours eat at once) and liveness
//     (every philosopher eats within a bounded window) of a deadlock free
//     ring.AcquisitionPolicy, and that cancellation frees every fork
//
// Example usage:
//
//	// Running the counter suite
//	testing.RunCounterTests(t, "AtomicCounter", func() counter.ICounter {
//		return counter.NewAtomicCounter()
//	})
//
//	// Running the policy suite
//	testing.RunPolicyTests(t, "Ordered", func(n int) ring.AcquisitionPolicy {
//		return ring.NewOrderedPolicy(n)
//	})
package testing
