package ledger

import (
	"fmt"
	"time"

	cmdUtil "github.com/ValentinKolb/dSync/cmd/util"
	"github.com/ValentinKolb/dSync/lib/cell"
	"github.com/ValentinKolb/dSync/lib/common"
	"github.com/ValentinKolb/dSync/lib/ledger"
	"github.com/ValentinKolb/dSync/lib/pool"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log = logger.GetLogger("cmd")

	// LedgerCmd represents the ledger command
	LedgerCmd = &cobra.Command{
		Use:   "ledger",
		Short: "Transfer units between two accounts concurrently",
		Long: `Run a number of concurrent one-unit transfers from account A to account B and print the final balances.
A transfer from an empty account is a no-op, so A never goes negative and the total is preserved.
With --unsafe the balances are updated without synchronization. The format of the environment variables is DSYNC_<flag> (e.g. DSYNC_TRANSFERS=10)`,
		Args: cobra.NoArgs,
		RunE: run,
	}
)

func init() {
	defaults := common.DefaultLedgerConfig()

	key := "transfers"
	LedgerCmd.Flags().Int(key, defaults.Transfers, cmdUtil.WrapString("The number of concurrent transfers, each run by its own worker"))

	key = "initial-a"
	LedgerCmd.Flags().Int64(key, defaults.InitialA, cmdUtil.WrapString("The starting balance of account A"))

	key = "initial-b"
	LedgerCmd.Flags().Int64(key, defaults.InitialB, cmdUtil.WrapString("The starting balance of account B"))

	key = "delay-us"
	LedgerCmd.Flags().Int(key, int(defaults.Delay/time.Microsecond), cmdUtil.WrapString("The simulated processing time in microseconds spent while holding the debited account"))

	key = "unsafe"
	LedgerCmd.Flags().Bool(key, false, cmdUtil.WrapString("Use the unsynchronized ledger, which corrupts the balances under contention"))

	key = "lock-order"
	LedgerCmd.Flags().String(key, defaults.LockOrder, cmdUtil.WrapString("The order in which accounts are locked (from-first, by-account)"))
}

func readConfig() (common.LedgerConfig, error) {
	conf := common.LedgerConfig{
		Transfers: viper.GetInt("transfers"),
		InitialA:  viper.GetInt64("initial-a"),
		InitialB:  viper.GetInt64("initial-b"),
		Delay:     time.Duration(viper.GetInt("delay-us")) * time.Microsecond,
		Unsafe:    viper.GetBool("unsafe"),
		LockOrder: viper.GetString("lock-order"),
	}
	if conf.Transfers < 1 {
		return conf, fmt.Errorf("transfers must be at least 1, got %d", conf.Transfers)
	}
	if conf.InitialA < 0 || conf.InitialB < 0 {
		return conf, fmt.Errorf("initial balances must not be negative")
	}
	if conf.Delay < 0 {
		return conf, fmt.Errorf("delay must not be negative")
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

	p := pool.New(pool.Config{Name: "ledger", Workers: conf.Transfers})
	sources := []cmdUtil.PrometheusWriter{p}

	var l ledger.ILedger
	if conf.Unsafe {
		l = ledger.NewRacy(cell.AcceptRaces{}, conf.InitialA, conf.InitialB, conf.Delay)
	} else {
		order, err := ledger.ParseLockOrder(conf.LockOrder)
		if err != nil {
			return err
		}
		tl := ledger.New(conf.InitialA, conf.InitialB, ledger.WithDelay(conf.Delay), ledger.WithLockOrder(order))
		sources = append(sources, tl)
		l = tl
	}

	balances, runErr := ledger.Run(ctx, p, l, ledger.A, ledger.B)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Final Balance A: %d\n", balances.A)
	fmt.Fprintf(out, "Final Balance B: %d\n", balances.B)
	fmt.Fprintf(out, "Total: %d\n", balances.Total())
	cmdUtil.WriteMetrics(out, sources...)

	if want := conf.InitialA + conf.InitialB; runErr == nil && balances.Total() != want {
		log.Warningf("total changed from %d to %d", want, balances.Total())
	}
	return runErr
}
