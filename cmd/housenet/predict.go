package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FlavioCFOliveira/housenet/internal/dataset"
	"github.com/FlavioCFOliveira/housenet/internal/pipeline"
)

func newPredictCmd(configPath *string) *cobra.Command {
	var (
		modelPath string
		inputPath string
		hasHeader bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score feature rows with a saved model",
		Long:  `Reloads a model snapshot and prints one prediction per row of a CSV file holding only raw feature columns.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if modelPath == "" {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					logErrorCmd(*cmd, err)
					return err
				}
				modelPath = cfg.Output.ModelPath
			}
			if inputPath == "" {
				logUsageCmd(*cmd, cmd.Use+" --input <features.csv> [--model <path>]")
				return fmt.Errorf("missing --input")
			}

			p, err := pipeline.LoadPredictor(modelPath)
			if err != nil {
				logErrorCmd(*cmd, err)
				return err
			}

			file, err := os.Open(inputPath)
			if err != nil {
				logErrorCmd(*cmd, err)
				return err
			}
			defer file.Close()

			x, err := dataset.ReadFeatures(file, hasHeader)
			if err != nil {
				logErrorCmd(*cmd, err)
				return err
			}

			preds, err := p.Predict(x)
			if err != nil {
				logErrorCmd(*cmd, err)
				return err
			}
			for _, v := range preds {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model snapshot (defaults to output.model_path)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "CSV file of raw feature rows")
	cmd.Flags().BoolVar(&hasHeader, "header", true, "first CSV row is a header")
	return cmd
}
