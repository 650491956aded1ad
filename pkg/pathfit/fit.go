package pathfit

import (
	"math"

	"github.com/go-vectorize/vectorize/pkg/raster"
)

// FitOptions configures the two-stage curve fit.
type FitOptions struct {
	CornerAngleThreshold float64 // radians; a turn sharper than this starts a new segment
	RefinementIterations int     // 1-10
	CurvatureLimit       float64 // 0 disables curvature limiting
}

// FitCurves reduces a polyline to a DP anchor set, then fits one cubic
// Bézier per anchor-to-anchor run (falling back to a linear Bézier for runs
// shorter than 4 samples), splitting at corner anchors.
func FitCurves(points []raster.Point, anchorEpsilon float64, opt FitOptions) []raster.CubicBezier {
	curves, _ := fitCurvesAndBoundaries(points, anchorEpsilon, opt, nil)
	return curves
}

// FitCurvesWithWidths fits curves exactly like FitCurves, additionally
// resampling perPointWidth (one entry per point, e.g. from Stylize) at each
// curve-segment boundary. The returned width slice has len(curves)+1
// entries, one per anchor shared between consecutive curves, matching the
// SvgPath.PerSegmentWidth convention. perPointWidth == nil yields a nil
// width slice.
func FitCurvesWithWidths(points []raster.Point, anchorEpsilon float64, opt FitOptions, perPointWidth []float64) ([]raster.CubicBezier, []float64) {
	return fitCurvesAndBoundaries(points, anchorEpsilon, opt, perPointWidth)
}

func fitCurvesAndBoundaries(points []raster.Point, anchorEpsilon float64, opt FitOptions, perPointWidth []float64) ([]raster.CubicBezier, []float64) {
	if len(points) < 2 {
		return nil, nil
	}
	anchors := douglasPeucker(points, anchorEpsilon)
	if len(anchors) < 2 {
		anchors = []raster.Point{points[0], points[len(points)-1]}
	}

	anchorIdx := mapAnchorsToIndices(points, anchors)
	threshold := opt.CornerAngleThreshold
	if threshold <= 0 {
		threshold = 2.35 // ~135 degrees
	}
	iterations := opt.RefinementIterations
	if iterations <= 0 {
		iterations = 4
	}
	if iterations > 10 {
		iterations = 10
	}

	var curves []raster.CubicBezier
	var boundaries []int
	if perPointWidth != nil {
		boundaries = append(boundaries, anchorIdx[0])
	}
	segStart := 0
	for i := 1; i < len(anchorIdx); i++ {
		isCorner := i < len(anchorIdx)-1 && turnAngle(points, anchorIdx, i) > threshold
		if !isCorner && i != len(anchorIdx)-1 {
			continue
		}
		run := points[anchorIdx[segStart] : anchorIdx[i]+1]
		curves = append(curves, fitSegment(run, iterations, opt.CurvatureLimit)...)
		if perPointWidth != nil {
			boundaries = append(boundaries, anchorIdx[i])
		}
		segStart = i
	}
	if perPointWidth == nil {
		return curves, nil
	}
	widths := make([]float64, len(boundaries))
	for i, idx := range boundaries {
		widths[i] = perPointWidth[idx]
	}
	return curves, widths
}

func mapAnchorsToIndices(points, anchors []raster.Point) []int {
	idx := make([]int, 0, len(anchors))
	cursor := 0
	for _, a := range anchors {
		for cursor < len(points)-1 && !points[cursor].ApproxEqual(a, 1e-9) {
			cursor++
		}
		idx = append(idx, cursor)
	}
	if idx[len(idx)-1] != len(points)-1 {
		idx[len(idx)-1] = len(points) - 1
	}
	return idx
}

func turnAngle(points []raster.Point, anchorIdx []int, i int) float64 {
	prev := points[anchorIdx[i-1]]
	cur := points[anchorIdx[i]]
	var next raster.Point
	if i+1 < len(anchorIdx) {
		next = points[anchorIdx[i+1]]
	} else {
		return math.Pi
	}
	v1 := cur.Sub(prev)
	v2 := next.Sub(cur)
	n1, n2 := math.Hypot(v1.X, v1.Y), math.Hypot(v2.X, v2.Y)
	if n1 == 0 || n2 == 0 {
		return math.Pi
	}
	cosT := (v1.X*v2.X + v1.Y*v2.Y) / (n1 * n2)
	cosT = math.Max(-1, math.Min(1, cosT))
	return math.Acos(cosT)
}

// fitSegment fits a single cubic Bézier to run by chord-length
// parameterization and iterative least-squares refinement of the control
// points, falling back to a linear Bézier for runs with fewer than four
// samples.
func fitSegment(run []raster.Point, iterations int, curvatureLimit float64) []raster.CubicBezier {
	if len(run) < 4 {
		return []raster.CubicBezier{linearBezier(run[0], run[len(run)-1])}
	}

	params := chordLengthParams(run)
	p0, p3 := run[0], run[len(run)-1]
	p1, p2 := initialControlPoints(run, params, p0, p3)

	for iter := 0; iter < iterations; iter++ {
		params = reparameterize(run, params, p0, p1, p2, p3)
		p1, p2 = leastSquaresControlPoints(run, params, p0, p3)
	}

	curve := raster.CubicBezier{P0: p0, P1: p1, P2: p2, P3: p3}
	if curvatureLimit > 0 {
		curve = limitCurvature(curve, curvatureLimit)
	}
	return []raster.CubicBezier{curve}
}

func linearBezier(a, b raster.Point) raster.CubicBezier {
	return raster.CubicBezier{
		P0: a,
		P1: raster.Point{X: a.X + (b.X-a.X)/3, Y: a.Y + (b.Y-a.Y)/3},
		P2: raster.Point{X: a.X + 2*(b.X-a.X)/3, Y: a.Y + 2*(b.Y-a.Y)/3},
		P3: b,
	}
}

func chordLengthParams(pts []raster.Point) []float64 {
	params := make([]float64, len(pts))
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].Dist(pts[i])
	}
	if total == 0 {
		for i := range params {
			params[i] = float64(i) / float64(len(pts)-1)
		}
		return params
	}
	acc := 0.0
	for i := range pts {
		if i > 0 {
			acc += pts[i-1].Dist(pts[i])
		}
		params[i] = acc / total
	}
	return params
}

func initialControlPoints(run []raster.Point, params []float64, p0, p3 raster.Point) (raster.Point, raster.Point) {
	return leastSquaresControlPoints(run, params, p0, p3)
}

// leastSquaresControlPoints solves the standard cubic-Bézier least-squares
// system for P1, P2 given fixed endpoints, using Bernstein basis
// coefficients B1(t), B2(t) evaluated at each sample's parameter.
func leastSquaresControlPoints(run []raster.Point, params []float64, p0, p3 raster.Point) (raster.Point, raster.Point) {
	var c00, c01, c11 float64
	var x0, x1, y0v, y1v float64

	for i, t := range params {
		b0 := (1 - t) * (1 - t) * (1 - t)
		b1 := 3 * t * (1 - t) * (1 - t)
		b2 := 3 * t * t * (1 - t)
		b3 := t * t * t

		c00 += b1 * b1
		c01 += b1 * b2
		c11 += b2 * b2

		rx := run[i].X - (b0*p0.X + b3*p3.X)
		ry := run[i].Y - (b0*p0.Y + b3*p3.Y)
		x0 += b1 * rx
		x1 += b2 * rx
		y0v += b1 * ry
		y1v += b2 * ry
	}

	det := c00*c11 - c01*c01
	if math.Abs(det) < 1e-9 {
		// Degenerate (near-collinear) samples: fall back to thirds along
		// the chord, matching the linear-Bézier convention.
		return raster.Point{X: p0.X + (p3.X-p0.X)/3, Y: p0.Y + (p3.Y-p0.Y)/3},
			raster.Point{X: p0.X + 2*(p3.X-p0.X)/3, Y: p0.Y + 2*(p3.Y-p0.Y)/3}
	}

	p1x := (c11*x0 - c01*x1) / det
	p2x := (c00*x1 - c01*x0) / det
	p1y := (c11*y0v - c01*y1v) / det
	p2y := (c00*y1v - c01*y0v) / det

	return raster.Point{X: p1x, Y: p1y}, raster.Point{X: p2x, Y: p2y}
}

// reparameterize nudges each sample's parameter toward the true closest
// point on the current curve estimate via one Newton step, improving fit
// quality across refinement iterations.
func reparameterize(run []raster.Point, params []float64, p0, p1, p2, p3 raster.Point) []float64 {
	curve := raster.CubicBezier{P0: p0, P1: p1, P2: p2, P3: p3}
	out := make([]float64, len(params))
	for i, t := range params {
		out[i] = newtonRefine(curve, run[i], t)
	}
	return out
}

func newtonRefine(curve raster.CubicBezier, point raster.Point, t float64) float64 {
	const h = 1e-4
	q := curve.Eval(t)
	qp := curve.Eval(math.Min(1, t+h))
	qm := curve.Eval(math.Max(0, t-h))

	d := q.Sub(point)
	deriv := raster.Point{X: (qp.X - qm.X) / (2 * h), Y: (qp.Y - qm.Y) / (2 * h)}

	num := d.X*deriv.X + d.Y*deriv.Y
	den := deriv.X*deriv.X + deriv.Y*deriv.Y
	if den == 0 {
		return t
	}
	nt := t - num/den
	if nt < 0 {
		nt = 0
	}
	if nt > 1 {
		nt = 1
	}
	return nt
}

// limitCurvature scales control points toward the chord midpoint until the
// curve's maximum sampled curvature is below limit, or a small fixed number
// of shrink steps is exhausted.
func limitCurvature(c raster.CubicBezier, limit float64) raster.CubicBezier {
	mid := raster.Point{X: (c.P0.X + c.P3.X) / 2, Y: (c.P0.Y + c.P3.Y) / 2}
	for i := 0; i < 8; i++ {
		if maxCurvature(c) <= limit {
			break
		}
		c.P1 = lerpPoint(c.P1, mid, 0.15)
		c.P2 = lerpPoint(c.P2, mid, 0.15)
	}
	return c
}

func lerpPoint(a, b raster.Point, t float64) raster.Point {
	return raster.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func maxCurvature(c raster.CubicBezier) float64 {
	maxK := 0.0
	const samples = 10
	for i := 0; i <= samples; i++ {
		t := float64(i) / samples
		k := curvatureAt(c, t)
		if k > maxK {
			maxK = k
		}
	}
	return maxK
}

func curvatureAt(c raster.CubicBezier, t float64) float64 {
	const h = 1e-3
	tm, tp := math.Max(0, t-h), math.Min(1, t+h)
	p0, p1, p2 := c.Eval(tm), c.Eval(t), c.Eval(tp)
	d1 := raster.Point{X: (p2.X - p0.X) / (tp - tm), Y: (p2.Y - p0.Y) / (tp - tm)}
	d2 := raster.Point{X: (p2.X - 2*p1.X + p0.X) / ((tp - tm) * (tp - tm) / 4), Y: (p2.Y - 2*p1.Y + p0.Y) / ((tp - tm) * (tp - tm) / 4)}
	num := math.Abs(d1.X*d2.Y - d1.Y*d2.X)
	den := math.Pow(d1.X*d1.X+d1.Y*d1.Y, 1.5)
	if den == 0 {
		return 0
	}
	return num / den
}

// MaxDeviation returns the largest distance from any sample in run to the
// nearest sampled point on the fitted curve set, a measure of fit accuracy.
func MaxDeviation(run []raster.Point, curves []raster.CubicBezier) float64 {
	maxDev := 0.0
	for _, p := range run {
		best := math.MaxFloat64
		for _, c := range curves {
			for i := 0; i <= 50; i++ {
				t := float64(i) / 50
				d := c.Eval(t).Dist(p)
				if d < best {
					best = d
				}
			}
		}
		if best > maxDev {
			maxDev = best
		}
	}
	return maxDev
}
