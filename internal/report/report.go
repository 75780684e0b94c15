// Package report renders per-frame judging results of one analysis job as
// charts and summary statistics.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoSamples is returned when a chart is requested for a job without frames.
var ErrNoSamples = errors.New("no samples to report")

// Chart dimensions for the PNG timeline.
const (
	Width  = 12 * vg.Inch
	Height = 5 * vg.Inch
)

var (
	phaseColor     = color.RGBA{R: 30, G: 110, B: 200, A: 255}
	deductionColor = color.RGBA{R: 210, G: 50, B: 40, A: 255}
)

// Sample is one frame of a job.
type Sample struct {
	Frame     int     `json:"frame"`
	Phase     int     `json:"phase"`
	Deduction float64 `json:"deduction"`
	Detected  bool    `json:"detected"`
}

// Stats summarizes the total deduction over the frames where a pose was found.
type Stats struct {
	Frames         int     `json:"frames"`
	DetectedFrames int     `json:"detectedFrames"`
	MeanDeduction  float64 `json:"meanDeduction"`
	StdDeduction   float64 `json:"stdDeduction"`
	PeakDeduction  float64 `json:"peakDeduction"`
	PeakFrame      int     `json:"peakFrame"`
}

// Summarize computes Stats. Frames without a detected pose count towards
// Frames only.
func Summarize(samples []Sample) Stats {
	s := Stats{Frames: len(samples), PeakFrame: -1}
	var values []float64
	var frames []int
	for _, sm := range samples {
		if !sm.Detected {
			continue
		}
		values = append(values, sm.Deduction)
		frames = append(frames, sm.Frame)
	}
	s.DetectedFrames = len(values)
	if len(values) == 0 {
		return s
	}
	s.MeanDeduction = stat.Mean(values, nil)
	if len(values) > 1 {
		s.StdDeduction = stat.StdDev(values, nil)
	}
	i := floats.MaxIdx(values)
	s.PeakDeduction = values[i]
	s.PeakFrame = frames[i]
	return s
}

func series(samples []Sample) (phases, deductions plotter.XYs) {
	phases = make(plotter.XYs, len(samples))
	deductions = make(plotter.XYs, len(samples))
	for i, s := range samples {
		phases[i] = plotter.XY{X: float64(s.Frame), Y: float64(s.Phase)}
		deductions[i] = plotter.XY{X: float64(s.Frame), Y: s.Deduction}
	}
	return phases, deductions
}

// Timeline draws the phase index and total deduction of every frame and
// returns the chart encoded as PNG.
func Timeline(samples []Sample) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = "Vault timeline"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Phase / deduction"
	p.Y.Min = 0

	phases, deductions := series(samples)

	phaseLine, err := plotter.NewLine(phases)
	if err != nil {
		return nil, fmt.Errorf("phase line: %w", err)
	}
	phaseLine.Color = phaseColor
	phaseLine.Width = vg.Points(1.5)

	dedLine, err := plotter.NewLine(deductions)
	if err != nil {
		return nil, fmt.Errorf("deduction line: %w", err)
	}
	dedLine.Color = deductionColor
	dedLine.Width = vg.Points(1)

	p.Add(plotter.NewGrid(), phaseLine, dedLine)
	p.Legend.Add("phase", phaseLine)
	p.Legend.Add("deduction", dedLine)
	p.Legend.Top = true

	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// TimelineHTML renders the same series as Timeline into an interactive HTML page.
func TimelineHTML(title string, samples []Sample) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	x := make([]int, len(samples))
	phases := make([]opts.LineData, len(samples))
	deductions := make([]opts.LineData, len(samples))
	for i, s := range samples {
		x[i] = s.Frame
		phases[i] = opts.LineData{Value: s.Phase}
		deductions[i] = opts.LineData{Value: s.Deduction}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "540px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d frames", len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)
	line.SetXAxis(x).
		AddSeries("phase", phases).
		AddSeries("deduction", deductions)

	page := components.NewPage()
	page.AddCharts(line)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render timeline: %w", err)
	}
	return buf.Bytes(), nil
}
