package pool

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("pool")

// Worker is the unit of work executed by every goroutine of the pool.
// The id is in the range [0, Workers).
type Worker func(ctx context.Context, id int) error

// Config holds pool construction parameters.
type Config struct {
	// Name is used as the pool label of all metrics and in log lines.
	Name string
	// Workers is the number of goroutines started by Run.
	Workers int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Name == "" {
		c.Name = "default"
	}
	return c
}

// Metrics is a snapshot of the pool counters.
type Metrics struct {
	Started   uint64 // workers that began executing
	Succeeded uint64 // workers that returned nil
	Failed    uint64 // workers that returned an error
	Panicked  uint64 // workers that panicked
}

// Pool runs a fixed number of workers and joins them.
type Pool struct {
	cfg Config

	set       *metrics.Set
	started   *metrics.Counter
	succeeded *metrics.Counter
	failed    *metrics.Counter
	panicked  *metrics.Counter
}

// New creates a pool. No goroutine is started before Run is called.
func New(cfg Config) *Pool {
	cfg = cfg.withDefaults()
	set := metrics.NewSet()

	return &Pool{
		cfg:       cfg,
		set:       set,
		started:   set.GetOrCreateCounter(metricName("started", cfg.Name)),
		succeeded: set.GetOrCreateCounter(metricName("succeeded", cfg.Name)),
		failed:    set.GetOrCreateCounter(metricName("failed", cfg.Name)),
		panicked:  set.GetOrCreateCounter(metricName("panicked", cfg.Name)),
	}
}

// Run is a shortcut for New(Config{Workers: workers}).Run(ctx, fn).
func Run(ctx context.Context, workers int, fn Worker) error {
	return New(Config{Workers: workers}).Run(ctx, fn)
}

// Run starts all workers and blocks until every one of them has returned.
// The returned error is nil if all workers succeeded, otherwise a *multierror.Error
// holding one entry per failed worker in worker id order.
//
// Thread-safety: Run may be called repeatedly and concurrently, the metrics of all runs add up.
func (p *Pool) Run(ctx context.Context, fn Worker) error {
	var wg sync.WaitGroup
	errs := make([]error, p.cfg.Workers) // each worker only writes its own slot

	log.Debugf("starting %d workers (pool=%s)", p.cfg.Workers, p.cfg.Name)

	wg.Add(p.cfg.Workers)
	for id := 0; id < p.cfg.Workers; id++ {
		go func(id int) {
			defer wg.Done()
			errs[id] = p.runWorker(ctx, id, fn)
		}(id)
	}
	wg.Wait()

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	if merr != nil {
		log.Warningf("%d of %d workers failed (pool=%s)", len(merr.Errors), p.cfg.Workers, p.cfg.Name)
	} else {
		log.Debugf("all %d workers finished (pool=%s)", p.cfg.Workers, p.cfg.Name)
	}

	return merr.ErrorOrNil()
}

// runWorker executes fn for one worker and converts a panic into a *PanicError.
func (p *Pool) runWorker(ctx context.Context, id int, fn Worker) (err error) {
	p.started.Inc()

	defer func() {
		if r := recover(); r != nil {
			p.panicked.Inc()
			err = &PanicError{Worker: id, Value: r, Stack: debug.Stack()}
			log.Errorf("worker %d panicked (pool=%s): %v", id, p.cfg.Name, r)
		}
	}()

	if err = fn(ctx, id); err != nil {
		p.failed.Inc()
		return fmt.Errorf("worker %d: %w", id, err)
	}

	p.succeeded.Inc()
	return nil
}

// Workers returns the number of goroutines started per Run.
func (p *Pool) Workers() int {
	return p.cfg.Workers
}

// Metrics returns a snapshot of the pool counters.
func (p *Pool) Metrics() Metrics {
	return Metrics{
		Started:   p.started.Get(),
		Succeeded: p.succeeded.Get(),
		Failed:    p.failed.Get(),
		Panicked:  p.panicked.Get(),
	}
}

// WritePrometheus writes the pool counters in Prometheus text format to w.
func (p *Pool) WritePrometheus(w io.Writer) {
	p.set.WritePrometheus(w)
}

func metricName(event, pool string) string {
	return fmt.Sprintf(`dsync_pool_workers_%s_total{pool=%q}`, event, pool)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// PanicError is collected for a worker that panicked.
type PanicError struct {
	Worker int    // id of the worker
	Value  any    // the value passed to panic
	Stack  []byte // stack trace captured while recovering
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("worker %d panicked: %v", e.Worker, e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
