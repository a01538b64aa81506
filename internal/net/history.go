package net

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// EpochLogs are the metrics recorded at the end of one epoch.
type EpochLogs struct {
	Epoch         int
	Loss          float64
	MAE           float64
	ValLoss       float64
	ValMAE        float64
	HasValidation bool
}

// Value returns the metric stored under a history column name.
// Unknown names, and validation names without validation data, yield NaN.
func (l EpochLogs) Value(name string) float64 {
	switch name {
	case "loss":
		return l.Loss
	case "mae":
		return l.MAE
	case "val_loss":
		if l.HasValidation {
			return l.ValLoss
		}
	case "val_mae":
		if l.HasValidation {
			return l.ValMAE
		}
	}
	return math.NaN()
}

// History is the ordered per-epoch record of a Fit call.
type History struct {
	Epochs []EpochLogs
}

// Len returns the number of completed epochs.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Epochs)
}

// Append adds one epoch record.
func (h *History) Append(logs EpochLogs) {
	h.Epochs = append(h.Epochs, logs)
}

// Columns lists the tracked metric names in write order.
func (h *History) Columns() []string {
	for _, e := range h.Epochs {
		if e.HasValidation {
			return []string{"loss", "mae", "val_loss", "val_mae"}
		}
	}
	return []string{"loss", "mae"}
}

// Series returns the values of one column, one per epoch.
func (h *History) Series(name string) []float64 {
	out := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		out[i] = e.Value(name)
	}
	return out
}

// WriteCSV writes a header row of column names and one row per epoch.
func (h *History) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	cols := h.Columns()
	if err := writer.Write(cols); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(cols))
	for _, e := range h.Epochs {
		for i, c := range cols {
			record[i] = strconv.FormatFloat(e.Value(c), 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write epoch %d: %w", e.Epoch, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveCSV writes the history to filename, truncating any existing file.
func (h *History) SaveCSV(filename string) error {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	if err := h.WriteCSV(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
