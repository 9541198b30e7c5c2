// Package report renders diagnostics from a completed (or in-progress)
// alignment job: a canvas-based convergence chart and a GeoJSON footprint
// export, generalizing the teacher's composite-map rendering
// (mesh/renderer.go, mesh/vector_renderer.go) and polygon/linestring export
// (mesh/geojson.go, mesh/geojson_merge.go) from vacuum maps to point-cloud
// alignment jobs.
package report

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/draw"
)

// IterationSample is one point on the convergence chart: an iteration's RMS
// residual and the matcher thresholds that produced it.
type IterationSample struct {
	Iteration        int
	RMS              float64
	MaxDistance      float64
	NormDotThreshold float64
}

// ConvergenceChart renders a per-iteration line chart of RMS error against
// iteration number. Only the RMS series is drawn; the threshold fields of
// IterationSample are carried along but not plotted.
type ConvergenceChart struct {
	Samples    []IterationSample
	Width      float64
	Height     float64
	Padding    float64
	Resolution canvas.Resolution
}

// NewConvergenceChart builds a chart with the teacher's default sizing
// conventions (mesh/vector_renderer.go's Padding/Resolution defaults),
// scaled down from map dimensions to chart dimensions.
func NewConvergenceChart(samples []IterationSample) *ConvergenceChart {
	return &ConvergenceChart{
		Samples:    samples,
		Width:      800,
		Height:     400,
		Padding:    40,
		Resolution: canvas.DPI(150),
	}
}

// canvasRenderer is the common interface satisfied by both the SVG and
// rasterizer renderers, mirroring mesh/vector_renderer.go's canvasRenderer.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the chart as SVG to w.
func (c *ConvergenceChart) RenderToSVG(w io.Writer) error {
	svgRenderer := svg.New(w, c.Width, c.Height, nil)
	c.renderToCanvas(svgRenderer)
	return svgRenderer.Close()
}

// RenderToPNG writes the chart as PNG to w.
func (c *ConvergenceChart) RenderToPNG(w io.Writer) error {
	rast := rasterizer.New(c.Width, c.Height, c.Resolution, canvas.DefaultColorSpace)
	c.renderToCanvas(rast)
	drawLegendSwatch(rast)
	return png.Encode(w, rast)
}

// drawLegendSwatch composites a small solid-color legend block in the top
// right corner of the rasterized image, filled from a uniform color with
// x/image/draw rather than vector-rendered, since it only ever needs to be
// an opaque block.
func drawLegendSwatch(dst draw.Image) {
	swatch := image.NewUniform(color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff})
	right := dst.Bounds().Max.X
	r := image.Rect(right-30, 10, right-10, 20)
	draw.Draw(dst, r, swatch, image.Point{}, draw.Over)
}

func (c *ConvergenceChart) renderToCanvas(renderer canvasRenderer) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(c.Width, c.Height), bgStyle, canvas.Identity)

	if len(c.Samples) == 0 {
		return
	}

	plotW := c.Width - 2*c.Padding
	plotH := c.Height - 2*c.Padding

	maxIter := c.Samples[len(c.Samples)-1].Iteration
	if maxIter == 0 {
		maxIter = 1
	}
	maxRMS := 0.0
	for _, s := range c.Samples {
		if s.RMS > maxRMS {
			maxRMS = s.RMS
		}
	}
	if maxRMS <= 0 {
		maxRMS = 1
	}

	axisStyle := canvas.DefaultStyle
	axisStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	axisStyle.Stroke = canvas.Paint{Color: canvas.Gray}
	axes := &canvas.Path{}
	axes.MoveTo(c.Padding, c.Padding)
	axes.LineTo(c.Padding, c.Height-c.Padding)
	axes.LineTo(c.Width-c.Padding, c.Height-c.Padding)
	renderer.RenderPath(axes, axisStyle, canvas.Identity)

	toXY := func(s IterationSample) (float64, float64) {
		x := c.Padding + plotW*float64(s.Iteration)/float64(maxIter)
		y := c.Height - c.Padding - plotH*s.RMS/maxRMS
		return x, y
	}

	lineStyle := canvas.DefaultStyle
	lineStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	lineStyle.Stroke = canvas.Paint{Color: color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}}
	lineStyle.StrokeWidth = 1.5

	rmsPath := &canvas.Path{}
	for i, s := range c.Samples {
		x, y := toXY(s)
		if i == 0 {
			rmsPath.MoveTo(x, y)
		} else {
			rmsPath.LineTo(x, y)
		}
	}
	renderer.RenderPath(rmsPath, lineStyle, canvas.Identity)

	for _, s := range c.Samples {
		x, y := toXY(s)
		dot := canvas.Circle(1.5)
		dot = dot.Translate(x, y)
		dotStyle := canvas.DefaultStyle
		dotStyle.Fill = canvas.Paint{Color: color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}}
		dotStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
		renderer.RenderPath(dot, dotStyle, canvas.Identity)
	}
}

// FormatSummary renders a one-line human-readable convergence summary of
// samples, for printing progress without a chart file.
func FormatSummary(samples []IterationSample) string {
	if len(samples) == 0 {
		return "no iterations recorded"
	}
	first, last := samples[0], samples[len(samples)-1]
	improvement := 0.0
	if first.RMS > 0 {
		improvement = 100 * (first.RMS - last.RMS) / first.RMS
	}
	return fmt.Sprintf("iterations %d-%d: rms %.6g -> %.6g (%.1f%% improvement)",
		first.Iteration, last.Iteration, first.RMS, last.RMS, improvement)
}
