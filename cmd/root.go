package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seatkit/paracousti/cmd/metrics"
	"github.com/seatkit/paracousti/cmd/run"
	"github.com/seatkit/paracousti/cmd/version"
	"github.com/seatkit/paracousti/internal/buildinfo"
	"github.com/seatkit/paracousti/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(build buildinfo.BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "paracousti",
		Short:        "Acoustic stressor aggregation for ParAcousti model runs",
		SilenceUsage: true,
	}

	if err := setupFlags(rootCmd); err != nil {
		// Binding only fails for nil flags, which cannot happen here.
		panic(err)
	}

	rootCmd.AddCommand(
		run.Command(build),
		metrics.Command(),
		version.Command(build),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().String("config", "", "Path to a configuration file (default ./paracousti.yaml)")
	rootCmd.PersistentFlags().String("log-level", conf.DefaultLogLevel, "Log level: debug, info, warn, error")

	if err := viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
