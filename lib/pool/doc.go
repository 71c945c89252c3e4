// Package pool implements the WorkerPool used by every dSync workload: it spawns a
// fixed number of goroutines running the same worker function and joins all of them
// before returning.
//
// Core Functionality:
//   - Spawn: Run starts Config.Workers goroutines, each receiving its worker id
//   - Join: Run blocks until every worker has returned, no matter how many failed
//   - Collection: errors returned by workers and panics (as *PanicError) are
//     collected and reported together after the join as a *multierror.Error
//   - Cancellation: the context passed to Run is handed to every worker; long running
//     workers are expected to return once it is done
//   - Observability: started/succeeded/failed/panicked counters are kept in a
//     VictoriaMetrics metrics.Set per pool and can be exported with WritePrometheus
//
// A failing or panicking worker never stops the other workers mid-run. The pool
// itself keeps no state that is shared with the workers.
//
// Usage Example:
//
//	p := pool.New(pool.Config{Name: "counter", Workers: 100})
//	err := p.Run(ctx, func(ctx context.Context, id int) error {
//	    return counter.Increment(ctx)
//	})
//	if err != nil {
//	    // one or more workers failed, err lists all of them
//	}
package pool
