// Package raster defines the core raster/path data model (Raster, Point,
// Polyline, CubicBezier, SvgPath, Dot, ImageAnalysis) and the preprocessing
// front-end (C2: resize, denoise, background removal, quantization) shared
// by every tracing backend.
package raster

import (
	"math"

	"github.com/go-vectorize/vectorize/pkg/verror"
)

// Raster is an immutable width x height grid of 8-bit straight-alpha RGBA
// pixels in row-major order.
type Raster struct {
	Width, Height int
	Pix           []uint8 // len == 4*Width*Height
}

// NewRaster validates dimensions and pixel length and returns a Raster.
func NewRaster(width, height int, pix []uint8) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, verror.NewInvalidDimensions(width, height, "width and height must be positive")
	}
	if width > 16384 || height > 16384 {
		return nil, verror.NewInvalidDimensions(width, height, "exceeds hard limit of 16384px")
	}
	ratio := float64(width) / float64(height)
	if ratio > 1000 || ratio < 1.0/1000 {
		return nil, verror.NewInvalidDimensions(width, height, "aspect ratio exceeds 1000:1")
	}
	if int64(width)*int64(height) > 1<<28 {
		return nil, verror.NewInvalidDimensions(width, height, "exceeds 2^28 total pixels")
	}
	want := 4 * width * height
	if len(pix) != want {
		return nil, verror.NewInsufficientData(want, len(pix))
	}
	return &Raster{Width: width, Height: height, Pix: pix}, nil
}

// At returns the RGBA quadruplet at (x, y).
func (r *Raster) At(x, y int) (rr, gg, bb, aa uint8) {
	i := 4 * (y*r.Width + x)
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2], r.Pix[i+3]
}

// Set writes the RGBA quadruplet at (x, y).
func (r *Raster) Set(x, y int, rr, gg, bb, aa uint8) {
	i := 4 * (y*r.Width + x)
	r.Pix[i], r.Pix[i+1], r.Pix[i+2], r.Pix[i+3] = rr, gg, bb, aa
}

// Clone returns a deep copy, used wherever a preprocessing step must not
// mutate its input in place.
func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// Point is a floating-point pixel coordinate. Used uniformly across
// polylines and curves; integer pixel coordinates are always converted to
// Points rather than stored as integers in path data.
type Point struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ApproxEqual reports whether p and q are within epsilon of each other.
func (p Point) ApproxEqual(q Point, epsilon float64) bool {
	return math.Abs(p.X-q.X) <= epsilon && math.Abs(p.Y-q.Y) <= epsilon
}

// Polyline is an ordered sequence of Points with length >= 2.
type Polyline struct {
	Points []Point
}

// NewPolyline validates length >= 2.
func NewPolyline(points []Point) (*Polyline, error) {
	if len(points) < 2 {
		return nil, verror.NewDegenerateGeometry("polyline needs at least 2 points")
	}
	return &Polyline{Points: points}, nil
}

// Closed reports whether the first and last points coincide within epsilon.
func (p *Polyline) Closed(epsilon float64) bool {
	if len(p.Points) < 2 {
		return false
	}
	return p.Points[0].ApproxEqual(p.Points[len(p.Points)-1], epsilon)
}

// Length returns the total arc length of the polyline.
func (p *Polyline) Length() float64 {
	total := 0.0
	for i := 1; i < len(p.Points); i++ {
		total += p.Points[i-1].Dist(p.Points[i])
	}
	return total
}

// CubicBezier is a cubic Bézier curve in standard SVG control-point order
// (p0, p1, p2, p3): evaluating at t=0 yields p0, at t=1 yields p3.
type CubicBezier struct {
	P0, P1, P2, P3 Point
}

// Eval evaluates the curve at parameter t in [0,1].
func (c CubicBezier) Eval(t float64) Point {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	cc := 3 * mt * t * t
	d := t * t * t
	return Point{
		X: a*c.P0.X + b*c.P1.X + cc*c.P2.X + d*c.P3.X,
		Y: a*c.P0.Y + b*c.P1.Y + cc*c.P2.Y + d*c.P3.Y,
	}
}

// Split performs De Casteljau subdivision at parameter t, returning two
// curves that exactly reproduce the original.
func (c CubicBezier) Split(t float64) (left, right CubicBezier) {
	p01 := lerp(c.P0, c.P1, t)
	p12 := lerp(c.P1, c.P2, t)
	p23 := lerp(c.P2, c.P3, t)
	p012 := lerp(p01, p12, t)
	p123 := lerp(p12, p23, t)
	p0123 := lerp(p012, p123, t)

	left = CubicBezier{c.P0, p01, p012, p0123}
	right = CubicBezier{p0123, p123, p23, c.P3}
	return
}

func lerp(a, b Point, t float64) Point {
	return Point{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}

// Color is an sRGB triple with straight alpha in [0,1].
type Color struct {
	R, G, B uint8
	A       float64
}

// PathKind tags which SvgPath variant is populated.
type PathKind int

const (
	PathStroke PathKind = iota
	PathFill
	PathCurves
	PathDot
)

// SvgPath is a tagged union representing one contiguous drawable entity:
// either a stroked polyline, a filled closed polyline, a sequence of cubic
// Béziers, or a dot.
type SvgPath struct {
	Kind PathKind

	Polyline *Polyline
	Curves   []CubicBezier
	Dot      *Dot

	StrokeColor *Color
	FillColor   *Color
	StrokeWidth float64
	Opacity     float64

	// PerSegmentWidth optionally overrides StrokeWidth per polyline vertex,
	// produced by hand-drawn variable-width stylization. len must equal
	// len(Polyline.Points) or len(Curves)+1 when non-nil.
	PerSegmentWidth []float64
}

// Dot is a stippling mark: a colored, variably-opaque disc.
type Dot struct {
	X, Y, Radius float64
	Opacity      float64
	Color        Color
}

// ImageAnalysis is a derived summary of a Raster used to pick defaults and a
// recommended backend.
type ImageAnalysis struct {
	DominantColorCount int
	Bilevel            bool
	EdgeDensity        float64
	Photographic       bool
}

// RecommendedBackend applies a plain heuristic over the analysis; the
// pipeline never invokes this automatically (backend selection remains an
// explicit Config decision), but callers may use it to pick one.
func (a ImageAnalysis) RecommendedBackend() (kind string) {
	switch {
	case a.Bilevel && a.EdgeDensity < 0.08:
		return "centerline"
	case a.Bilevel:
		return "edge"
	case a.Photographic && a.DominantColorCount > 64:
		return "dots"
	default:
		return "superpixel"
	}
}
