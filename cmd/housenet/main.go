// Command housenet trains and evaluates the housing-price regression model.
//
// Run without arguments it trains with the compiled-in configuration.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "housenet",
		Short:         "Housing price regression",
		Long:          `Trains a feed-forward network on tabular housing data, evaluates it and saves the model, history, plots and report.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML file overriding the compiled-in configuration")

	rootCmd.AddCommand(newPredictCmd(&configPath))
	return rootCmd
}
