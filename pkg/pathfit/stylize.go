package pathfit

import (
	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/pkg/rng"
)

// StylizeOptions carries the hand-drawn effect magnitudes, already resolved
// from a preset baseline plus any custom overrides by pkg/config.
type StylizeOptions struct {
	Tremor          float64 // [0, 0.5]
	VariableWeights float64 // [0, 1]
	Tapering        float64 // [0, 1]
	BaseStrokeWidth float64
	Seed            uint64
}

const (
	minStrokeWidth = 0.05
	maxStrokeWidth = 20.0
)

// Stylize applies coordinate jitter, variable per-vertex stroke width, and
// endpoint tapering to a path built from points, all seeded deterministically
// from opt.Seed so repeat calls with the same seed are byte-identical.
func Stylize(points []raster.Point, opt StylizeOptions) ([]raster.Point, []float64) {
	if opt.Tremor == 0 && opt.VariableWeights == 0 && opt.Tapering == 0 {
		return points, nil
	}

	gen := rng.New(opt.Seed, "stylize", nil)
	jittered := jitterPoints(points, opt.Tremor, gen)
	widths := variableWidths(points, opt.BaseStrokeWidth, opt.VariableWeights, opt.Tapering, gen)
	return jittered, widths
}

func jitterPoints(points []raster.Point, tremor float64, gen *rng.RNG) []raster.Point {
	if tremor == 0 {
		return points
	}
	out := make([]raster.Point, len(points))
	for i, p := range points {
		dx := tremor * 50 * gen.Signed()
		dy := tremor * 50 * gen.Signed()
		out[i] = raster.Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

// variableWidths derives a per-vertex stroke width: the base width jittered
// by variableWeights, tapered toward both path endpoints by tapering, then
// clamped to the documented [0.05, 20]px bounds. The path's length does not
// affect the width.
func variableWidths(points []raster.Point, base, variableWeights, tapering float64, gen *rng.RNG) []float64 {
	if len(points) == 0 {
		return nil
	}
	if base <= 0 {
		base = 1.5
	}
	widths := make([]float64, len(points))
	taperSpan := tapering * float64(len(points)) / 2
	for i := range points {
		w := base
		if variableWeights > 0 {
			w += base * variableWeights * gen.Signed()
		}
		if tapering > 0 && taperSpan > 0 {
			distFromEnd := float64(minInt(i, len(points)-1-i))
			if distFromEnd < taperSpan {
				w *= 0.2 + 0.8*(distFromEnd/taperSpan)
			}
		}
		widths[i] = clampWidth(w)
	}
	return widths
}

func clampWidth(w float64) float64 {
	if w < minStrokeWidth {
		return minStrokeWidth
	}
	if w > maxStrokeWidth {
		return maxStrokeWidth
	}
	return w
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
