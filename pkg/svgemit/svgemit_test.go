package svgemit

import (
	"strings"
	"testing"

	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_EmptyPathsProducesValidSVG(t *testing.T) {
	out := Emit(nil, 100, 50, 2)
	assert.True(t, strings.HasPrefix(out, "<?xml") || strings.Contains(out, "<svg"))
	assert.Contains(t, out, `viewBox="0 0 100 50"`)
	assert.Contains(t, out, "</svg>")
}

func TestEmit_StrokePathIncludesColorAndWidth(t *testing.T) {
	poly := &raster.Polyline{Points: []raster.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}}
	color := &raster.Color{R: 0x10, G: 0x20, B: 0x30}
	paths := []raster.SvgPath{{
		Kind:        raster.PathStroke,
		Polyline:    poly,
		StrokeColor: color,
		StrokeWidth: 2.5,
		Opacity:     1,
	}}
	out := Emit(paths, 10, 10, 2)
	assert.Contains(t, out, "#102030")
	assert.Contains(t, out, "M 1.00 2.00")
}

func TestEmit_FillPathClosesPath(t *testing.T) {
	poly := &raster.Polyline{Points: []raster.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}}}
	color := &raster.Color{R: 0xff, G: 0, B: 0}
	paths := []raster.SvgPath{{
		Kind:      raster.PathFill,
		Polyline:  poly,
		FillColor: color,
		Opacity:   1,
	}}
	out := Emit(paths, 10, 10, 0)
	assert.Contains(t, out, " Z")
	assert.Contains(t, out, "#ff0000")
}

func TestEmit_CurvePathUsesCCommand(t *testing.T) {
	curves := []raster.CubicBezier{{
		P0: raster.Point{X: 0, Y: 0},
		P1: raster.Point{X: 1, Y: 1},
		P2: raster.Point{X: 2, Y: 1},
		P3: raster.Point{X: 3, Y: 0},
	}}
	color := &raster.Color{R: 1, G: 2, B: 3}
	paths := []raster.SvgPath{{
		Kind:        raster.PathCurves,
		Curves:      curves,
		StrokeColor: color,
		StrokeWidth: 1,
		Opacity:     1,
	}}
	out := Emit(paths, 10, 10, 1)
	assert.Contains(t, out, " C ")
}

func TestEmit_CurvePathUsesPerSegmentWidth(t *testing.T) {
	curves := []raster.CubicBezier{
		{P0: raster.Point{X: 0, Y: 0}, P1: raster.Point{X: 1, Y: 1}, P2: raster.Point{X: 2, Y: 1}, P3: raster.Point{X: 3, Y: 0}},
		{P0: raster.Point{X: 3, Y: 0}, P1: raster.Point{X: 4, Y: 1}, P2: raster.Point{X: 5, Y: 1}, P3: raster.Point{X: 6, Y: 0}},
	}
	color := &raster.Color{R: 1, G: 2, B: 3}
	paths := []raster.SvgPath{{
		Kind:            raster.PathCurves,
		Curves:          curves,
		StrokeColor:     color,
		StrokeWidth:     1,
		Opacity:         1,
		PerSegmentWidth: []float64{0.5, 3.0, 6.0},
	}}
	out := Emit(paths, 10, 10, 1)
	// Each curve segment gets its own averaged width: 1.75 then 4.50.
	assert.Contains(t, out, "stroke-width:1.75")
	assert.Contains(t, out, "stroke-width:4.50")
	assert.Equal(t, 2, strings.Count(out, "<path"))
}

func TestEmit_DotsGroupedByColor(t *testing.T) {
	redDot := &raster.Dot{X: 1, Y: 1, Radius: 2, Opacity: 1, Color: raster.Color{R: 255}}
	blueDot := &raster.Dot{X: 5, Y: 5, Radius: 2, Opacity: 1, Color: raster.Color{B: 255}}
	paths := []raster.SvgPath{
		{Kind: raster.PathDot, Dot: redDot},
		{Kind: raster.PathDot, Dot: blueDot},
	}
	out := Emit(paths, 20, 20, 0)
	require.Contains(t, out, `id="dots-ff0000"`)
	require.Contains(t, out, `id="dots-0000ff"`)
	assert.Contains(t, out, "<circle")
}

func TestEmit_PrecisionClamped(t *testing.T) {
	poly := &raster.Polyline{Points: []raster.Point{{X: 1.23456, Y: 0}, {X: 2, Y: 0}}}
	paths := []raster.SvgPath{{Kind: raster.PathStroke, Polyline: poly, StrokeColor: &raster.Color{}, StrokeWidth: 1}}
	out := Emit(paths, 10, 10, 10)
	assert.Contains(t, out, "1.2346")
}

func TestEmit_OpacityOmittedWhenFullyOpaque(t *testing.T) {
	poly := &raster.Polyline{Points: []raster.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}
	paths := []raster.SvgPath{{Kind: raster.PathStroke, Polyline: poly, StrokeColor: &raster.Color{}, StrokeWidth: 1, Opacity: 1}}
	out := Emit(paths, 10, 10, 2)
	assert.NotContains(t, out, "opacity")
}
