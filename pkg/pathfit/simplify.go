// Package pathfit implements the post-processing stage shared by every
// tracer backend: polyline simplification, two-stage cubic Bézier fitting,
// and deterministic hand-drawn stylization.
package pathfit

import (
	"math"

	"github.com/go-vectorize/vectorize/pkg/raster"
)

// SimplifyAlgorithm selects between the two supported simplification
// strategies.
type SimplifyAlgorithm int

const (
	SimplifyDouglasPeucker SimplifyAlgorithm = iota
	SimplifyVisvalingamWhyatt
)

// Simplify reduces a polyline's point count under epsilon (in pixels),
// scaled by scaleFactor when the image was resized during preprocessing so
// the same perceptual tolerance applies at the original resolution.
func Simplify(p *raster.Polyline, algo SimplifyAlgorithm, epsilon, scaleFactor float64) []raster.Point {
	eps := epsilon * scaleFactor
	if eps <= 0 {
		eps = 1e-9
	}
	switch algo {
	case SimplifyVisvalingamWhyatt:
		return visvalingamWhyatt(p.Points, eps)
	default:
		return douglasPeucker(p.Points, eps)
	}
}

func douglasPeucker(pts []raster.Point, eps float64) []raster.Point {
	if len(pts) <= 2 {
		return append([]raster.Point(nil), pts...)
	}
	keep := make([]bool, len(pts))
	keep[0] = true
	keep[len(pts)-1] = true
	dpRange(pts, eps, 0, len(pts)-1, keep)
	var out []raster.Point
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

func dpRange(pts []raster.Point, eps float64, start, end int, keep []bool) {
	if end <= start+1 {
		return
	}
	a, b := pts[start], pts[end]
	maxDist, maxIdx := -1.0, -1
	for i := start + 1; i < end; i++ {
		d := perpDistance(pts[i], a, b)
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist > eps {
		keep[maxIdx] = true
		dpRange(pts, eps, start, maxIdx, keep)
		dpRange(pts, eps, maxIdx, end, keep)
	}
}

func perpDistance(p, a, b raster.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return p.Dist(a)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}

// visvalingamWhyatt iteratively removes the point whose incident triangle
// has the smallest area, until the smallest remaining area exceeds a
// threshold derived from epsilon (area threshold = eps * eps).
func visvalingamWhyatt(pts []raster.Point, eps float64) []raster.Point {
	if len(pts) <= 2 {
		return append([]raster.Point(nil), pts...)
	}
	work := append([]raster.Point(nil), pts...)
	threshold := eps * eps // area scale comparable to a perpendicular-distance epsilon

	for len(work) > 2 {
		minArea := math.MaxFloat64
		minIdx := -1
		for i := 1; i < len(work)-1; i++ {
			area := triangleArea(work[i-1], work[i], work[i+1])
			if area < minArea {
				minArea = area
				minIdx = i
			}
		}
		if minIdx < 0 || minArea > threshold {
			break
		}
		work = append(work[:minIdx], work[minIdx+1:]...)
	}
	return work
}

func triangleArea(a, b, c raster.Point) float64 {
	return math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}
