package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
	"golang.org/x/sync/errgroup"
)

// Mode is how a workload is driven.
type Mode string

const (
	// ModeSequential calls the workload Repeat times on one goroutine.
	ModeSequential Mode = "sequential"
	// ModeThreaded starts Threads goroutines that each call the workload
	// once, waits for all of them, and does that RepeatThreaded times.
	ModeThreaded Mode = "threaded"
)

// Config selects what a Runner measures.
type Config struct {
	Locks          []string
	Workloads      []string
	Repeat         int
	RepeatThreaded int
	Threads        int
	Rounds         int
}

// DefaultConfig returns the full-length benchmark settings.
func DefaultConfig() Config {
	return Config{
		Locks:          LockNames(),
		Repeat:         100000,
		RepeatThreaded: 1000,
		Threads:        10,
		Rounds:         4,
	}
}

// Quick shortens the run n times over.
func (c Config) Quick(n int) Config {
	for range n {
		c.Repeat = max(10, c.Repeat/100)
		c.RepeatThreaded = max(5, c.RepeatThreaded/10)
	}
	return c
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case len(c.Locks) == 0:
		return errors.New("bench: no locks selected")
	case c.Repeat <= 0 || c.RepeatThreaded <= 0:
		return errors.New("bench: repeat counts must be positive")
	case c.Threads <= 0:
		return errors.New("bench: threads must be positive")
	case c.Rounds <= 0:
		return errors.New("bench: rounds must be positive")
	}
	for _, name := range c.Locks {
		if _, err := NewLock(name); err != nil {
			return err
		}
	}
	_, err := SelectWorkloads(c.Workloads)
	return err
}

// Result is the timing of one (lock, mode, workload) cell.
type Result struct {
	Lock     string
	Mode     Mode
	Workload string
	// Repeat is the per-round iteration count for Mode.
	Repeat  int
	Threads int
	// Max is the slowest round, the figure that gets reported.
	Max  time.Duration
	Mean time.Duration
	// Calls counts workload invocations over all rounds.
	Calls int64
}

// Runner measures every configured cell.
type Runner struct {
	cfg    Config
	log    *Logger
	timers gometrics.Registry
	set    *metrics.Set
}

// NewRunner validates cfg and returns a Runner for it.
func NewRunner(cfg Config, log *Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		cfg:    cfg,
		log:    log,
		timers: gometrics.NewRegistry(),
		set:    metrics.NewSet(),
	}, nil
}

// Run measures every lock in both modes. It stops early when ctx is done.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	workloads, err := SelectWorkloads(r.cfg.Workloads)
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, name := range r.cfg.Locks {
		l, err := NewLock(name)
		if err != nil {
			return nil, err
		}
		r.log.Infof("Testing %s", name)
		for _, mode := range []Mode{ModeSequential, ModeThreaded} {
			r.log.Infof("%s (x%d):", mode, r.repeat(mode))
			for _, w := range workloads {
				res, err := r.measure(ctx, name, l, mode, w)
				if err != nil {
					return results, err
				}
				r.log.Infof("%-25s: %9.2f msec", w.Name, Millis(res.Max))
				results = append(results, res)
			}
		}
	}
	return results, nil
}

// WriteMetrics writes the round-duration histograms in Prometheus text format.
func (r *Runner) WriteMetrics(w io.Writer) {
	r.set.WritePrometheus(w)
}

// WriteSummary writes the per-cell round timers.
func (r *Runner) WriteSummary(w io.Writer) {
	gometrics.WriteOnce(r.timers, w)
}

func (r *Runner) repeat(mode Mode) int {
	if mode == ModeThreaded {
		return r.cfg.RepeatThreaded
	}
	return r.cfg.Repeat
}

func (r *Runner) measure(ctx context.Context, lockName string, l RLocker, mode Mode, w Workload) (Result, error) {
	timer := gometrics.NewTimer()
	defer timer.Stop()
	if err := r.timers.Register(fmt.Sprintf("%s.%s.%s", lockName, mode, w.Name), timer); err != nil {
		r.log.Debugf("timer registration: %v", err)
	}
	hist := r.set.GetOrCreateHistogram(fmt.Sprintf(
		"lockbench_round_duration_seconds{lock=%q,mode=%q,workload=%q}", lockName, mode, w.Name))

	calls := xsync.NewCounter()
	for round := range r.cfg.Rounds {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		start := time.Now()
		var err error
		if mode == ModeThreaded {
			err = runThreaded(l, w, r.cfg.RepeatThreaded, r.cfg.Threads, calls)
		} else {
			err = runSequential(l, w, r.cfg.Repeat, calls)
		}
		d := time.Since(start)
		if err != nil {
			return Result{}, fmt.Errorf("%s/%s/%s: %w", lockName, mode, w.Name, err)
		}
		r.log.Debugf("%s/%s/%s round %d: %v", lockName, mode, w.Name, round, d)
		timer.Update(d)
		hist.Update(d.Seconds())
	}

	return Result{
		Lock:     lockName,
		Mode:     mode,
		Workload: w.Name,
		Repeat:   r.repeat(mode),
		Threads:  r.threads(mode),
		Max:      time.Duration(timer.Max()),
		Mean:     time.Duration(timer.Mean()),
		Calls:    calls.Value(),
	}, nil
}

func (r *Runner) threads(mode Mode) int {
	if mode == ModeThreaded {
		return r.cfg.Threads
	}
	return 1
}

func runSequential(l RLocker, w Workload, repeat int, calls *xsync.Counter) error {
	for range repeat {
		if err := w.Run(l); err != nil {
			return err
		}
	}
	calls.Add(int64(repeat))
	return nil
}

func runThreaded(l RLocker, w Workload, repeat, threads int, calls *xsync.Counter) error {
	for range repeat {
		var g errgroup.Group
		for range threads {
			g.Go(func() error {
				calls.Inc()
				return w.Run(l)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// Millis converts d to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
