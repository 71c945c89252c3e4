/*
Package ring implements the dining philosophers workload on top of lib/cell.

A ResourceRing holds N forks, each a cell.SharedCell counting how often it was used.
Philosopher i sits between fork i (left) and fork (i+1) mod N (right). A philosopher
loops through thinking, getting hungry, taking two forks, eating and putting the forks
down, until its context is cancelled.

In which order the two forks are taken is decided by an AcquisitionPolicy:

  - NaivePolicy: left fork first. With all philosophers hungry at once every one of
    them may hold its left fork and wait for its right one forever. Deadlock prone.
  - OrderedPolicy: lower fork index first. The last philosopher reaches for fork 0
    before fork N-1, which breaks the cyclic wait.
  - Arbitrator: left fork first, but at most floor(N/2) philosophers are admitted to
    the table at the same time, so the cycle can never close.

The Monitor observes every philosopher: its current State, the number of meals, the
time spent hungry and whether two neighbours were ever eating at once. It detects a
deadlock from the outside with AwaitDeadlock. State transitions are passed to an
optional event sink, the Table prints them through a util.EventQueue so a single
goroutine owns the output.

Usage:

	r, _ := ring.New(5)
	policy := ring.NewOrderedPolicy(5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	monitor, err := ring.Run(ctx, r, policy, ring.Config{Events: os.Stdout})
	fmt.Println(monitor.Fairness())

Forcing the deadlock of the naive policy deterministically:

	cfg := ring.Config{Hooks: ring.Hooks{BeforeSecond: ring.Barrier(5)}}
	table := ring.NewTable(r, ring.NewNaivePolicy(5), cfg)
	go table.Run(ctx)
	deadlocked := table.Monitor().AwaitDeadlock(ctx, time.Second)
*/
package ring
