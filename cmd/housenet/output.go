package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/FlavioCFOliveira/housenet/internal/pipeline"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	okColor      = color.New(color.FgGreen, color.Bold)
	labelColor   = color.New(color.FgCyan)
)

func logErrorCmd(cmd cobra.Command, err error) {
	errorColor.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
}

func logUsageCmd(cmd cobra.Command, u string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.YellowString("usage:"), u)
}

func logReportCmd(cmd cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	okColor.Fprintf(out, "run %s finished\n", res.RunID)
	fmt.Fprintf(out, "%s %d (best %d, early stopped: %t)\n", labelColor.Sprint("epochs:"), res.History.Len(), res.BestEpoch+1, res.Stopped)
	fmt.Fprintf(out, "%s %.6g\n", labelColor.Sprint("MAE: "), res.Report.MAE)
	fmt.Fprintf(out, "%s %.2f%%\n", labelColor.Sprint("MAPE:"), res.Report.MAPE*100)
	fmt.Fprintf(out, "%s %.6g\n", labelColor.Sprint("RMSE:"), res.Report.RMSE)
	fmt.Fprintf(out, "%s %.4f\n", labelColor.Sprint("R^2: "), res.Report.R2)
}
