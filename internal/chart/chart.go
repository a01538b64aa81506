// Package chart renders line charts to PNG files.
package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrNoData is returned when a panel has nothing to draw.
var ErrNoData = errors.New("chart has no data")

// Series is a named line. Points are plotted at x = 0, 1, 2, ...
type Series struct {
	Name   string
	Values []float64
}

// Panel is one chart with a title, axis labels and a legend.
type Panel struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series
}

func (p Panel) plot() (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = p.XLabel
	pl.Y.Label.Text = p.YLabel
	pl.Legend.Top = true
	pl.Add(plotter.NewGrid())

	var lines []any
	for _, s := range p.Series {
		if len(s.Values) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.Values))
		for i, v := range s.Values {
			xys[i].X = float64(i)
			xys[i].Y = v
		}
		lines = append(lines, s.Name, xys)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoData, p.Title)
	}
	if err := plotutil.AddLines(pl, lines...); err != nil {
		return nil, fmt.Errorf("panel %q: %w", p.Title, err)
	}
	return pl, nil
}

// Save draws the panels side by side in a single row and writes a PNG.
// The parent directory of path is created if needed.
func Save(path string, width, height vg.Length, panels ...Panel) error {
	if len(panels) == 0 {
		return ErrNoData
	}
	row := make([]*plot.Plot, len(panels))
	for i, p := range panels {
		pl, err := p.plot()
		if err != nil {
			return err
		}
		row[i] = pl
	}

	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(row),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 2,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{row}, tiles, dc)
	for i, pl := range row {
		pl.Draw(canvases[0][i])
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create plot directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return file.Close()
}
