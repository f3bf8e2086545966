package progress

import (
	"fmt"
	"math"
	"strings"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Polygon []Point

// Path renders the polygon as a closed SVG path.
func (p Polygon) Path() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, pt := range p {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&b, "%s%.2f %.2f ", cmd, pt.X, pt.Y)
	}
	b.WriteString("Z")
	return b.String()
}

// Radar places one point per value around (cx, cy), evenly spaced and starting
// at the top. Values are fractions in [0,1]; the distance from the center is
// value*radius.
func Radar(values []float64, radius, cx, cy float64) Polygon {
	n := len(values)
	poly := make(Polygon, n)
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		poly[i] = Point{
			X: round(cx + v*radius*math.Cos(angle)),
			Y: round(cy + v*radius*math.Sin(angle)),
		}
	}
	return poly
}

func round(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

type RadarAxis struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Tip   Point  `json:"tip"`
}

type RadarChart struct {
	Size         float64     `json:"size"`
	Axes         []RadarAxis `json:"axes"`
	Previous     Polygon     `json:"previous"`
	Current      Polygon     `json:"current"`
	PreviousPath string      `json:"previousPath"`
	CurrentPath  string      `json:"currentPath"`
}

// NewRadarChart lays out previous and current values of dims in a size×size box.
func NewRadarChart(dims []DimensionProgress, size float64) RadarChart {
	radius := size / 2 * 0.8
	c := size / 2

	prev := make([]float64, len(dims))
	cur := make([]float64, len(dims))
	full := make([]float64, len(dims))
	for i, d := range dims {
		prev[i] = d.Previous / MaxValue
		cur[i] = d.Current / MaxValue
		full[i] = 1
	}

	tips := Radar(full, radius, c, c)
	axes := make([]RadarAxis, len(dims))
	for i, d := range dims {
		axes[i] = RadarAxis{Name: d.Name, Color: d.Color, Tip: tips[i]}
	}

	chart := RadarChart{
		Size:     size,
		Axes:     axes,
		Previous: Radar(prev, radius, c, c),
		Current:  Radar(cur, radius, c, c),
	}
	chart.PreviousPath = chart.Previous.Path()
	chart.CurrentPath = chart.Current.Path()
	return chart
}
