package net

import (
	"bytes"
	"encoding/csv"
	"math"
	"path/filepath"
	"slices"
	"testing"
)

// TestHistoryWriteCSV tests the header order and one row per epoch.
func TestHistoryWriteCSV(t *testing.T) {
	h := &History{}
	h.Append(EpochLogs{Epoch: 0, Loss: 0.5, MAE: 0.4, ValLoss: 0.6, ValMAE: 0.45, HasValidation: true})
	h.Append(EpochLogs{Epoch: 1, Loss: 0.25, MAE: 0.3, ValLoss: 0.55, ValMAE: 0.4, HasValidation: true})

	var buf bytes.Buffer
	if err := h.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 { // Header + 2 epochs
		t.Fatalf("records = %d, want 3", len(records))
	}
	if want := []string{"loss", "mae", "val_loss", "val_mae"}; !slices.Equal(records[0], want) {
		t.Errorf("header = %v, want %v", records[0], want)
	}
	if want := []string{"0.5", "0.4", "0.6", "0.45"}; !slices.Equal(records[1], want) {
		t.Errorf("row 1 = %v, want %v", records[1], want)
	}
}

func TestHistoryWithoutValidation(t *testing.T) {
	h := &History{}
	h.Append(EpochLogs{Loss: 1, MAE: 1})

	if cols := h.Columns(); !slices.Equal(cols, []string{"loss", "mae"}) {
		t.Errorf("Columns = %v, want [loss mae]", cols)
	}
	if v := h.Epochs[0].Value("val_loss"); !math.IsNaN(v) {
		t.Errorf("val_loss = %v, want NaN", v)
	}
	if v := h.Epochs[0].Value("unknown"); !math.IsNaN(v) {
		t.Errorf("unknown = %v, want NaN", v)
	}
}

func TestHistorySaveCSV(t *testing.T) {
	h := &History{}
	h.Append(EpochLogs{Loss: 2, MAE: 1})
	path := filepath.Join(t.TempDir(), "history.csv")

	if err := h.SaveCSV(path); err != nil {
		t.Fatalf("SaveCSV failed: %v", err)
	}
	if s := h.Series("loss"); !slices.Equal(s, []float64{2}) {
		t.Errorf("Series(loss) = %v, want [2]", s)
	}

	var nilHistory *History
	if n := nilHistory.Len(); n != 0 {
		t.Errorf("nil Len = %d, want 0", n)
	}
}
