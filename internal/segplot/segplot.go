// Package segplot draws a segmented recording for visual inspection.
package segplot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/chrissnell/swimstroke/internal/stroke"
)

var (
	signalColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	entryColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	peakColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	exitColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	airColor    = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// Plot builds the segmentation plot: AX over time with a marker for every
// entry, peak, exit and air point of the aligned cycles.
func Plot(title string, samples []stroke.Sample, cycles []stroke.StrokeCycle) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Acceleration X (m/s²)"
	p.Add(plotter.NewGrid())

	signal := make(plotter.XYs, len(samples))
	for i, s := range samples {
		signal[i] = plotter.XY{X: s.Time, Y: s.AX}
	}
	line, err := plotter.NewLine(signal)
	if err != nil {
		return nil, fmt.Errorf("failed to create signal line: %w", err)
	}
	line.Color = signalColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("ax", line)

	markers := []struct {
		label string
		event func(stroke.StrokeCycle) stroke.Event
		shape draw.GlyphDrawer
		color color.Color
	}{
		{"entry", func(c stroke.StrokeCycle) stroke.Event { return c.Entry }, draw.TriangleGlyph{}, entryColor},
		{"peak", func(c stroke.StrokeCycle) stroke.Event { return c.Peak }, draw.CircleGlyph{}, peakColor},
		{"exit", func(c stroke.StrokeCycle) stroke.Event { return c.Exit }, draw.SquareGlyph{}, exitColor},
		{"air", func(c stroke.StrokeCycle) stroke.Event { return c.Air }, draw.CrossGlyph{}, airColor},
	}

	if len(cycles) > 0 {
		for _, m := range markers {
			pts := make(plotter.XYs, len(cycles))
			for i, c := range cycles {
				e := m.event(c)
				pts[i] = plotter.XY{X: e.Time(), Y: e.Sample.AX}
			}
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, fmt.Errorf("failed to create %s markers: %w", m.label, err)
			}
			sc.GlyphStyle.Shape = m.shape
			sc.GlyphStyle.Color = m.color
			sc.GlyphStyle.Radius = vg.Points(4)
			p.Add(sc)
			p.Legend.Add(m.label, sc)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

// SaveSegmentation renders the plot to path. The image format follows the
// file extension (png, svg, pdf, ...).
func SaveSegmentation(path string, samples []stroke.Sample, cycles []stroke.StrokeCycle) error {
	if len(samples) == 0 {
		return stroke.ErrEmptySignal
	}

	p, err := Plot(fmt.Sprintf("Stroke segmentation (%d cycles)", len(cycles)), samples, cycles)
	if err != nil {
		return err
	}

	width := vg.Length(max(14, samples[len(samples)-1].Time/2)) * vg.Inch
	if width > 60*vg.Inch {
		width = 60 * vg.Inch
	}
	if err := p.Save(width, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
