package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dSync/cmd/counter"
	"github.com/ValentinKolb/dSync/cmd/dine"
	"github.com/ValentinKolb/dSync/cmd/ledger"
	"github.com/ValentinKolb/dSync/cmd/util"
	"github.com/ValentinKolb/dSync/lib/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dsync",
		Short: "concurrency test-bed for shared mutable state",
		Long: fmt.Sprintf(`dSync (v%s)

A test-bed for shared mutable state in Go: a contended counter, a two-account
transfer ledger and the dining philosophers, each with a correct and a broken
variant to compare.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dSync",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dSync v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(counter.CounterCmd)
	RootCmd.AddCommand(ledger.LedgerCmd)
	RootCmd.AddCommand(dine.DineCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("LogLevel is the level at which logs will be written to stderr (debug, info, warn, error)"))
	key = "metrics"
	RootCmd.PersistentFlags().Bool(key, false, util.WrapString("Print the collected metrics in Prometheus text format after the workload finished"))
}

// setup binds the flags of the invoked command to viper and initializes the loggers
func setup(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
