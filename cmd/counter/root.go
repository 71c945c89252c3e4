package counter

import (
	"fmt"

	cmdUtil "github.com/ValentinKolb/dSync/cmd/util"
	"github.com/ValentinKolb/dSync/lib/cell"
	"github.com/ValentinKolb/dSync/lib/common"
	"github.com/ValentinKolb/dSync/lib/counter"
	"github.com/ValentinKolb/dSync/lib/pool"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log = logger.GetLogger("cmd")

	// CounterCmd represents the counter command
	CounterCmd = &cobra.Command{
		Use:   "counter",
		Short: "Increment a shared counter from many workers",
		Long: `Start a number of workers that all increment one shared counter and print the final value.
With --unsafe the increments are not synchronized and updates get lost. The format of the environment variables is DSYNC_<flag> (e.g. DSYNC_WORKERS=10)`,
		Args: cobra.NoArgs,
		RunE: run,
	}
)

func init() {
	defaults := common.DefaultCounterConfig()

	key := "workers"
	CounterCmd.Flags().Int(key, defaults.Workers, cmdUtil.WrapString("The number of concurrent workers"))

	key = "increments"
	CounterCmd.Flags().Int(key, defaults.Increments, cmdUtil.WrapString("The number of increments performed by each worker"))

	key = "unsafe"
	CounterCmd.Flags().Bool(key, false, cmdUtil.WrapString("Use the unsynchronized counter, which loses updates under contention"))
}

func readConfig() (common.CounterConfig, error) {
	conf := common.CounterConfig{
		Workers:    viper.GetInt("workers"),
		Increments: viper.GetInt("increments"),
		Unsafe:     viper.GetBool("unsafe"),
	}
	if conf.Workers < 1 {
		return conf, fmt.Errorf("workers must be at least 1, got %d", conf.Workers)
	}
	if conf.Increments < 0 {
		return conf, fmt.Errorf("increments must not be negative, got %d", conf.Increments)
	}
	return conf, nil
}

func run(cmd *cobra.Command, _ []string) error {
	conf, err := readConfig()
	if err != nil {
		return err
	}
	log.Infof("starting workload:\n%s", conf.String())

	ctx, stop := cmdUtil.SignalContext(cmd.Context())
	defer stop()

	var c counter.ICounter
	if conf.Unsafe {
		c = counter.NewRacyCounter(cell.AcceptRaces{})
	} else {
		c = counter.NewAtomicCounter()
	}

	p := pool.New(pool.Config{Name: "counter", Workers: conf.Workers})
	value, runErr := counter.Run(ctx, p, c, conf.Increments)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Final counter: %d\n", value)
	cmdUtil.WriteMetrics(out, p)

	if runErr == nil && value != conf.Expected() {
		log.Warningf("expected %d, %d updates were lost", conf.Expected(), conf.Expected()-value)
	}
	return runErr
}
