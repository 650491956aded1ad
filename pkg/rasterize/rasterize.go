// Package rasterize implements the deterministic SVG-to-bitmap step the
// refinement loop needs to measure how closely a path set reproduces the
// source image.
package rasterize

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/pkg/verror"
	"golang.org/x/image/vector"
)

const (
	minDimension = 1
	maxDimension = 4096
	curveSamples = 16
	joinSides    = 12
)

// Rasterize renders an SVG document string produced by pkg/svgemit into a
// Raster, filling the background opaque white before painting. width and
// height are clamped to [1, 4096]. The parser only understands the
// constrained path/circle grammar pkg/svgemit actually emits, not arbitrary
// SVG: elements outside that grammar are skipped, and a document without an
// <svg> root fails with SvgParsing.
func Rasterize(svgDocument string, width, height int) (*raster.Raster, error) {
	width = clampDim(width)
	height = clampDim(height)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	shapes, err := parseShapes(svgDocument)
	if err != nil {
		return nil, verror.NewRasterError("svg_parsing", err)
	}

	z := vector.NewRasterizer(width, height)
	for _, s := range shapes {
		if err := paintShape(z, img, s); err != nil {
			return nil, verror.NewRasterError("pixmap_creation", err)
		}
	}

	return raster.FromNRGBA(toNRGBA(img))
}

func clampDim(v int) int {
	if v < minDimension {
		return minDimension
	}
	if v > maxDimension {
		return maxDimension
	}
	return v
}

func toNRGBA(img *image.RGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, image.Point{}, draw.Src)
	return out
}

type pathCmd struct {
	op   byte // 'M', 'L', or 'C'
	pts  []raster.Point
}

type shape struct {
	cmds        []pathCmd
	closed      bool
	filled      bool
	color       color.NRGBA
	strokeWidth float64
}

var (
	pathRe   = regexp.MustCompile(`<path\s+d="([^"]*)"\s+style="([^"]*)"\s*/>`)
	circleRe = regexp.MustCompile(`<circle\s+cx="(-?[0-9.]+)"\s+cy="(-?[0-9.]+)"\s+r="(-?[0-9.]+)"\s+style="([^"]*)"\s*/>`)
)

func parseShapes(doc string) ([]shape, error) {
	if !strings.Contains(doc, "<svg") || !strings.Contains(doc, "</svg>") {
		return nil, verror.NewDegenerateGeometry("missing <svg> root element")
	}
	var shapes []shape

	for _, m := range pathRe.FindAllStringSubmatch(doc, -1) {
		cmds, closed := parsePathData(m[1])
		if len(cmds) == 0 {
			continue
		}
		s := shapeFromStyle(m[2])
		s.cmds = cmds
		s.closed = closed
		shapes = append(shapes, s)
	}

	for _, m := range circleRe.FindAllStringSubmatch(doc, -1) {
		cx, _ := strconv.ParseFloat(m[1], 64)
		cy, _ := strconv.ParseFloat(m[2], 64)
		r, _ := strconv.ParseFloat(m[3], 64)
		s := shapeFromStyle(m[4])
		s.filled = true
		s.cmds = circlePolygon(cx, cy, r)
		s.closed = true
		shapes = append(shapes, s)
	}

	return shapes, nil
}

func shapeFromStyle(style string) shape {
	s := shape{color: color.NRGBA{A: 255}}
	opacity := 1.0
	fillNone := false
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		kv := strings.SplitN(decl, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := kv[0], kv[1]
		switch key {
		case "fill":
			if val == "none" {
				fillNone = true
			} else {
				s.color = hexColor(val)
				s.filled = true
			}
		case "stroke":
			if val != "none" {
				s.color = hexColor(val)
			}
		case "stroke-width":
			s.strokeWidth, _ = strconv.ParseFloat(val, 64)
		case "opacity":
			opacity, _ = strconv.ParseFloat(val, 64)
		}
	}
	if fillNone {
		s.filled = false
	}
	s.color.A = uint8(math.Round(opacity * 255))
	return s
}

func hexColor(v string) color.NRGBA {
	v = strings.TrimPrefix(v, "#")
	if len(v) != 6 {
		return color.NRGBA{A: 255}
	}
	r, _ := strconv.ParseUint(v[0:2], 16, 8)
	g, _ := strconv.ParseUint(v[2:4], 16, 8)
	b, _ := strconv.ParseUint(v[4:6], 16, 8)
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}

// parsePathData tokenizes the constrained "M x y (L x y)* (C x1 y1 x2 y2 x y)* Z?"
// grammar pkg/svgemit emits.
func parsePathData(d string) ([]pathCmd, bool) {
	fields := strings.Fields(d)
	var cmds []pathCmd
	closed := false
	i := 0
	for i < len(fields) {
		switch fields[i] {
		case "M":
			x, y := num(fields[i+1]), num(fields[i+2])
			cmds = append(cmds, pathCmd{op: 'M', pts: []raster.Point{{X: x, Y: y}}})
			i += 3
		case "L":
			x, y := num(fields[i+1]), num(fields[i+2])
			cmds = append(cmds, pathCmd{op: 'L', pts: []raster.Point{{X: x, Y: y}}})
			i += 3
		case "C":
			pts := []raster.Point{
				{X: num(fields[i+1]), Y: num(fields[i+2])},
				{X: num(fields[i+3]), Y: num(fields[i+4])},
				{X: num(fields[i+5]), Y: num(fields[i+6])},
			}
			cmds = append(cmds, pathCmd{op: 'C', pts: pts})
			i += 7
		case "Z":
			closed = true
			i++
		default:
			i++
		}
	}
	return cmds, closed
}

func num(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func circlePolygon(cx, cy, r float64) []pathCmd {
	cmds := make([]pathCmd, 0, joinSides+1)
	for i := 0; i <= joinSides; i++ {
		theta := 2 * math.Pi * float64(i) / joinSides
		p := raster.Point{X: cx + r*math.Cos(theta), Y: cy + r*math.Sin(theta)}
		if i == 0 {
			cmds = append(cmds, pathCmd{op: 'M', pts: []raster.Point{p}})
		} else {
			cmds = append(cmds, pathCmd{op: 'L', pts: []raster.Point{p}})
		}
	}
	return cmds
}

func paintShape(z *vector.Rasterizer, dst *image.RGBA, s shape) error {
	if s.color.A == 0 {
		return nil
	}
	if s.filled {
		return fillPath(z, dst, s)
	}
	return strokePath(z, dst, s)
}

func fillPath(z *vector.Rasterizer, dst *image.RGBA, s shape) error {
	z.Reset(dst.Bounds().Dx(), dst.Bounds().Dy())
	for _, c := range s.cmds {
		switch c.op {
		case 'M':
			z.MoveTo(f32(c.pts[0].X), f32(c.pts[0].Y))
		case 'L':
			z.LineTo(f32(c.pts[0].X), f32(c.pts[0].Y))
		case 'C':
			z.CubeTo(f32(c.pts[0].X), f32(c.pts[0].Y), f32(c.pts[1].X), f32(c.pts[1].Y), f32(c.pts[2].X), f32(c.pts[2].Y))
		}
	}
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(s.color), image.Point{})
	return nil
}

// strokePath approximates a stroked path as a union of per-segment ribbon
// quads plus round joins, since the rasterizer backend only fills paths.
func strokePath(z *vector.Rasterizer, dst *image.RGBA, s shape) error {
	pts := flattenToPolyline(s.cmds)
	if len(pts) < 2 {
		return nil
	}
	half := s.strokeWidth / 2
	if half <= 0 {
		half = 0.5
	}
	for i := 1; i < len(pts); i++ {
		quad := ribbonQuad(pts[i-1], pts[i], half)
		drawPolygon(z, dst, quad, s.color)
	}
	for _, p := range pts {
		drawPolygon(z, dst, regularPolygon(p, half, joinSides), s.color)
	}
	return nil
}

// flattenToPolyline samples C segments into curveSamples straight segments so
// stroke expansion only ever has to reason about straight ribbons.
func flattenToPolyline(cmds []pathCmd) []raster.Point {
	var pts []raster.Point
	var cur raster.Point
	for _, c := range cmds {
		switch c.op {
		case 'M':
			cur = c.pts[0]
			pts = append(pts, cur)
		case 'L':
			cur = c.pts[0]
			pts = append(pts, cur)
		case 'C':
			bez := raster.CubicBezier{P0: cur, P1: c.pts[0], P2: c.pts[1], P3: c.pts[2]}
			for i := 1; i <= curveSamples; i++ {
				t := float64(i) / curveSamples
				pts = append(pts, bez.Eval(t))
			}
			cur = c.pts[2]
		}
	}
	return pts
}

func ribbonQuad(a, b raster.Point, half float64) []raster.Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return regularPolygon(a, half, joinSides)
	}
	nx, ny := -dy/length*half, dx/length*half
	return []raster.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
}

func regularPolygon(center raster.Point, radius float64, sides int) []raster.Point {
	pts := make([]raster.Point, sides)
	for i := 0; i < sides; i++ {
		theta := 2 * math.Pi * float64(i) / float64(sides)
		pts[i] = raster.Point{X: center.X + radius*math.Cos(theta), Y: center.Y + radius*math.Sin(theta)}
	}
	return pts
}

func drawPolygon(z *vector.Rasterizer, dst *image.RGBA, pts []raster.Point, c color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	z.Reset(dst.Bounds().Dx(), dst.Bounds().Dy())
	z.MoveTo(f32(pts[0].X), f32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(f32(p.X), f32(p.Y))
	}
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func f32(v float64) float32 { return float32(v) }
