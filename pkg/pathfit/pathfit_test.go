package pathfit

import (
	"math"
	"testing"

	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func noisyLine(n int, noise float64) []raster.Point {
	pts := make([]raster.Point, n)
	for i := range pts {
		t := float64(i) / float64(n-1)
		jitter := noise
		if i%2 == 0 {
			jitter = -noise
		}
		pts[i] = raster.Point{X: t * 100, Y: jitter}
	}
	return pts
}

func TestDouglasPeucker_MonotoneInEpsilon(t *testing.T) {
	poly, _ := raster.NewPolyline(noisyLine(50, 0.4))
	small := Simplify(poly, SimplifyDouglasPeucker, 0.1, 1.0)
	large := Simplify(poly, SimplifyDouglasPeucker, 5.0, 1.0)
	assert.GreaterOrEqual(t, len(small), len(large))
}

func TestDouglasPeucker_FidelityWithinEpsilon(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(3, 40).Draw(t, "n")
		eps := rapid.Float64Range(0.1, 10).Draw(t, "eps")
		pts := noisyLine(n, 2.0)
		poly, err := raster.NewPolyline(pts)
		if err != nil {
			return
		}
		out := Simplify(poly, SimplifyDouglasPeucker, eps, 1.0)

		outIdx := 0
		for i, p := range pts {
			if outIdx < len(out) && p == out[outIdx] {
				outIdx++
				continue
			}
			if outIdx == 0 || outIdx >= len(out) {
				continue
			}
			d := perpDistance(p, out[outIdx-1], out[outIdx])
			if d > eps+1e-9 {
				t.Fatalf("point %d (%v) deviates %f beyond epsilon %f", i, p, d, eps)
			}
		}
	})
}

func TestDouglasPeucker_IdempotentOnItsOwnOutput(t *testing.T) {
	pts := noisyLine(30, 1.5)
	poly, _ := raster.NewPolyline(pts)
	once := Simplify(poly, SimplifyDouglasPeucker, 1.0, 1.0)
	oncePoly, err := raster.NewPolyline(once)
	require.NoError(t, err)
	twice := Simplify(oncePoly, SimplifyDouglasPeucker, 1.0, 1.0)
	assert.Equal(t, len(once), len(twice))
}

func TestVisvalingamWhyatt_ReducesStraightLine(t *testing.T) {
	pts := make([]raster.Point, 20)
	for i := range pts {
		pts[i] = raster.Point{X: float64(i), Y: 0}
	}
	poly, _ := raster.NewPolyline(pts)
	out := Simplify(poly, SimplifyVisvalingamWhyatt, 0.5, 1.0)
	assert.Len(t, out, 2)
}

func TestFitCurves_EndpointsMatch(t *testing.T) {
	pts := make([]raster.Point, 20)
	for i := range pts {
		t := float64(i) / 19
		pts[i] = raster.Point{X: t * 50, Y: 10 * math.Sin(t*math.Pi)}
	}
	curves := FitCurves(pts, 0.5, FitOptions{RefinementIterations: 4})
	require.NotEmpty(t, curves)
	assert.InDelta(t, pts[0].X, curves[0].P0.X, 1e-6)
	last := curves[len(curves)-1]
	assert.InDelta(t, pts[len(pts)-1].X, last.P3.X, 1e-6)
}

func TestFitCurves_ShortRunFallsBackToLinear(t *testing.T) {
	pts := []raster.Point{{0, 0}, {1, 1}, {2, 2}}
	curves := FitCurves(pts, 0.01, FitOptions{})
	require.Len(t, curves, 1)
}

// turnAngle measures deflection from the incoming direction (0 = straight,
// pi = a full reversal). A near hairpin fold deflects well past the default
// ~135 degree (2.35 rad) threshold and must split into at least two curves
// rather than being smoothed across by a single cubic.
func TestFitCurves_SplitsAtSharpCorner(t *testing.T) {
	var pts []raster.Point
	for i := 0; i <= 10; i++ {
		pts = append(pts, raster.Point{X: float64(i), Y: 0})
	}
	for i := 1; i <= 10; i++ {
		pts = append(pts, raster.Point{X: 10 - float64(i), Y: 0.1 * float64(i)})
	}
	curves := FitCurves(pts, 0.5, FitOptions{RefinementIterations: 4})
	require.Greater(t, len(curves), 1, "a near-hairpin fold should not be fit as a single smooth curve")
}

func TestFitCurvesWithWidths_BoundaryCountMatchesCurvesPlusOne(t *testing.T) {
	pts := make([]raster.Point, 20)
	widths := make([]float64, 20)
	for i := range pts {
		t := float64(i) / 19
		pts[i] = raster.Point{X: t * 50, Y: 10 * math.Sin(t*math.Pi)}
		widths[i] = 1 + t
	}
	curves, segWidths := FitCurvesWithWidths(pts, 0.5, FitOptions{RefinementIterations: 4}, widths)
	require.NotEmpty(t, curves)
	assert.Len(t, segWidths, len(curves)+1)
	assert.InDelta(t, widths[0], segWidths[0], 1e-9)
	assert.InDelta(t, widths[len(widths)-1], segWidths[len(segWidths)-1], 1e-9)
}

func TestStylize_DeterministicForSameSeed(t *testing.T) {
	pts := noisyLine(10, 0)
	p1, w1 := Stylize(pts, StylizeOptions{Tremor: 0.3, VariableWeights: 0.4, Tapering: 0.2, BaseStrokeWidth: 1.5, Seed: 42})
	p2, w2 := Stylize(pts, StylizeOptions{Tremor: 0.3, VariableWeights: 0.4, Tapering: 0.2, BaseStrokeWidth: 1.5, Seed: 42})
	assert.Equal(t, p1, p2)
	assert.Equal(t, w1, w2)
}

func TestStylize_DifferentSeedsDiffer(t *testing.T) {
	pts := noisyLine(10, 0)
	p1, _ := Stylize(pts, StylizeOptions{Tremor: 0.3, BaseStrokeWidth: 1.5, Seed: 1})
	p2, _ := Stylize(pts, StylizeOptions{Tremor: 0.3, BaseStrokeWidth: 1.5, Seed: 2})
	assert.NotEqual(t, p1, p2)
}

func TestStylize_WidthsWithinBounds(t *testing.T) {
	pts := noisyLine(30, 0)
	_, widths := Stylize(pts, StylizeOptions{VariableWeights: 1.0, BaseStrokeWidth: 15, Seed: 7})
	for _, w := range widths {
		assert.GreaterOrEqual(t, w, minStrokeWidth)
		assert.LessOrEqual(t, w, maxStrokeWidth)
	}
}

func TestStylize_NoEffectsReturnsInputUnchanged(t *testing.T) {
	pts := noisyLine(5, 0)
	out, widths := Stylize(pts, StylizeOptions{})
	assert.Equal(t, pts, out)
	assert.Nil(t, widths)
}
