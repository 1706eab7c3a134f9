package main

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// LossHistory records the loss of every training step for plotting.
type LossHistory struct {
	points plotter.XYs
}

// Add records the loss reached at step.
func (h *LossHistory) Add(step int64, loss float64) {
	h.points = append(h.points, plotter.XY{X: float64(step), Y: loss})
}

// Len returns the number of recorded steps.
func (h *LossHistory) Len() int {
	return len(h.points)
}

// Save writes a "steps vs loss" scatter plot to path. The image format
// follows the file extension (.png, .svg, .pdf).
func (h *LossHistory) Save(path string) error {
	if len(h.points) == 0 {
		return fmt.Errorf("plot: no losses recorded")
	}

	p := plot.New()
	p.Title.Text = "steps vs loss"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "loss"

	scatter, err := plotter.NewScatter(h.points)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Length(1)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: failed to save %s: %w", path, err)
	}
	return nil
}

// SaveThoughtPlot writes a scatter plot of 2D points (an n x 2 matrix, e.g.
// from ProjectPCA) to path, labelling each point with its input index.
func SaveThoughtPlot(points *mat.Dense, path string) error {
	n, c := points.Dims()
	if c != 2 {
		return fmt.Errorf("plot: expected 2D points, got %d columns", c)
	}

	xys := make(plotter.XYs, n)
	labels := make([]string, n)
	for i := range xys {
		xys[i].X = points.At(i, 0)
		xys[i].Y = points.At(i, 1)
		labels[i] = strconv.Itoa(i)
	}

	p := plot.New()
	p.Title.Text = "thought vectors (PCA)"
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}

	names, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	p.Add(scatter, names)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: failed to save %s: %w", path, err)
	}
	return nil
}
