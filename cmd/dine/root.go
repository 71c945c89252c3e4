package dine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	cmdUtil "github.com/ValentinKolb/dSync/cmd/util"
	"github.com/ValentinKolb/dSync/lib/common"
	"github.com/ValentinKolb/dSync/lib/ring"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	log = logger.GetLogger("cmd")

	// DineCmd represents the dine command
	DineCmd = &cobra.Command{
		Use:   "dine",
		Short: "Run the dining philosophers",
		Long: `Seat a number of philosophers around a table with one fork between each pair of neighbours.
Every philosopher thinks, gets hungry, takes two forks and eats, until interrupted (SIGINT, SIGTERM) or --duration elapsed.
The policy decides the order in which forks are taken: naive (left first, may deadlock), ordered (lower fork first) or arbitrator (at most half of the philosophers at the table).
With --force-deadlock every naive philosopher takes its left fork before anyone reaches for a right one. A deadlock is reported once no meal completed for --stall-ms.
The format of the environment variables is DSYNC_<flag> (e.g. DSYNC_PHILOSOPHERS=7)`,
		Args: cobra.NoArgs,
		RunE: run,
	}
)

func init() {
	defaults := common.DefaultDineConfig()

	key := "philosophers"
	DineCmd.Flags().Int(key, defaults.Philosophers, cmdUtil.WrapString("The number of philosophers and forks, at least 2"))

	key = "policy"
	DineCmd.Flags().String(key, defaults.Policy, cmdUtil.WrapString("The fork acquisition policy (naive, ordered, arbitrator)"))

	key = "think-ms"
	DineCmd.Flags().Int(key, int(defaults.Think/time.Millisecond), cmdUtil.WrapString("Time spent thinking in milliseconds"))

	key = "reach-ms"
	DineCmd.Flags().Int(key, int(defaults.Reach/time.Millisecond), cmdUtil.WrapString("Time between taking the first and the second fork in milliseconds"))

	key = "eat-ms"
	DineCmd.Flags().Int(key, int(defaults.Eat/time.Millisecond), cmdUtil.WrapString("Time spent eating in milliseconds"))

	key = "duration"
	DineCmd.Flags().Duration(key, defaults.Duration, cmdUtil.WrapString("Stop after the given duration (e.g. 30s), 0 runs until interrupted"))

	key = "force-deadlock"
	DineCmd.Flags().Bool(key, false, cmdUtil.WrapString("Make every philosopher hold its first fork before anyone reaches for the second (requires --policy naive)"))

	key = "stall-ms"
	DineCmd.Flags().Int(key, int(defaults.Stall/time.Millisecond), cmdUtil.WrapString("How long all philosophers must be stuck holding one fork to report a deadlock, in milliseconds"))
}

func readConfig() (common.DineConfig, error) {
	ms := func(key string) time.Duration {
		return time.Duration(viper.GetInt(key)) * time.Millisecond
	}

	conf := common.DineConfig{
		Philosophers:  viper.GetInt("philosophers"),
		Policy:        strings.ToLower(strings.TrimSpace(viper.GetString("policy"))),
		Think:         ms("think-ms"),
		Reach:         ms("reach-ms"),
		Eat:           ms("eat-ms"),
		Duration:      viper.GetDuration("duration"),
		ForceDeadlock: viper.GetBool("force-deadlock"),
		Stall:         ms("stall-ms"),
	}

	if conf.Think < 0 || conf.Reach < 0 || conf.Eat < 0 || conf.Duration < 0 {
		return conf, fmt.Errorf("durations must not be negative")
	}
	if conf.Stall <= 0 {
		return conf, fmt.Errorf("stall-ms must be positive, got %s", conf.Stall)
	}
	if conf.ForceDeadlock && conf.Policy != ring.PolicyNaive {
		return conf, fmt.Errorf("--force-deadlock requires --policy %s, got %q", ring.PolicyNaive, conf.Policy)
	}
	return conf, nil
}

func run(cmd *cobra.Command, _ []string) error {
	conf, err := readConfig()
	if err != nil {
		return err
	}
	log.Infof("starting workload:\n%s", conf.String())

	r, err := ring.New(conf.Philosophers)
	if err != nil {
		return err
	}
	policy, err := ring.ParsePolicy(conf.Policy, conf.Philosophers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cfg := ring.Config{
		Timing: ring.Timing{Think: conf.Think, Reach: conf.Reach, Eat: conf.Eat},
		Events: out,
	}
	if conf.ForceDeadlock {
		cfg.Hooks.BeforeSecond = ring.Barrier(conf.Philosophers)
	}

	ctx, stop := cmdUtil.SignalContext(cmd.Context())
	defer stop()
	if conf.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.Duration)
		defer cancel()
	}

	table := ring.NewTable(r, policy, cfg)
	monitor := table.Monitor()
	defer monitor.Close()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopTable := context.WithCancel(gctx)
	defer stopTable()

	var deadlocked atomic.Bool
	var violations atomic.Int64

	// the table
	g.Go(func() error {
		defer stopTable()
		return table.Run(runCtx)
	})

	// deadlock watcher, stops the table once it is stuck
	g.Go(func() error {
		if monitor.AwaitDeadlock(runCtx, conf.Stall) {
			deadlocked.Store(true)
			stopTable()
		}
		return nil
	})

	// safety sampler
	g.Go(func() error {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return nil
			case <-ticker.C:
				if monitor.AdjacentEating() {
					violations.Add(1)
				}
			}
		}
	})

	runErr := g.Wait()

	fmt.Fprintln(out)
	if deadlocked.Load() {
		fmt.Fprintf(out, "Deadlock detected: all %d philosophers held one fork and no meal completed for %s\n",
			conf.Philosophers, conf.Stall)
	}
	if v := violations.Load(); v > 0 {
		fmt.Fprintf(out, "Safety violated: neighbours seen eating at once %d times\n", v)
	}
	monitor.WriteReport(out)
	cmdUtil.WriteMetrics(out, table.Pool())

	return runErr
}
