// Package svgemit implements the default SvgEmitter: given a set of
// raster.SvgPath entries and a target viewBox, produces a well-formed SVG
// document string.
package svgemit

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/go-vectorize/vectorize/pkg/raster"
)

// Emit renders paths into a single <svg> document sized width x height,
// with path coordinates rounded to precision fractional digits (0-4); dot
// centers and radii are rounded to whole units.
// Dots are grouped under a single <g> per distinct fill color, matching the
// "color grouping of dots" convention named by the external interface.
func Emit(paths []raster.SvgPath, width, height int, precision int) string {
	if precision < 0 {
		precision = 0
	}
	if precision > 4 {
		precision = 4
	}

	buf := new(bytes.Buffer)
	canvas := svg.New(buf)
	canvas.Startview(width, height, 0, 0, width, height)

	dotGroups := groupDotsByColor(paths)
	for _, p := range paths {
		switch p.Kind {
		case raster.PathStroke:
			emitStrokePath(canvas, p, precision)
		case raster.PathFill:
			emitFillPath(canvas, p, precision)
		case raster.PathCurves:
			emitCurvePath(canvas, p, precision)
		case raster.PathDot:
			// handled below via dotGroups to satisfy the <g> grouping
			// guarantee; skip here to avoid double emission.
		}
	}
	emitDotGroups(canvas, dotGroups, precision)

	canvas.End()
	return buf.String()
}

func round(v float64, precision int) float64 {
	scale := 1.0
	for i := 0; i < precision; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+sign(v)*0.5)) / scale
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func fmtNum(v float64, precision int) string {
	return strconv.FormatFloat(round(v, precision), 'f', precision, 64)
}

func pointsPath(pts []raster.Point, precision int, closed bool) string {
	if len(pts) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "M %s %s", fmtNum(pts[0].X, precision), fmtNum(pts[0].Y, precision))
	for _, p := range pts[1:] {
		fmt.Fprintf(&b, " L %s %s", fmtNum(p.X, precision), fmtNum(p.Y, precision))
	}
	if closed {
		b.WriteString(" Z")
	}
	return b.String()
}

func curvesPath(curves []raster.CubicBezier, precision int) string {
	if len(curves) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "M %s %s", fmtNum(curves[0].P0.X, precision), fmtNum(curves[0].P0.Y, precision))
	for _, c := range curves {
		fmt.Fprintf(&b, " C %s %s %s %s %s %s",
			fmtNum(c.P1.X, precision), fmtNum(c.P1.Y, precision),
			fmtNum(c.P2.X, precision), fmtNum(c.P2.Y, precision),
			fmtNum(c.P3.X, precision), fmtNum(c.P3.Y, precision))
	}
	return b.String()
}

func colorAttr(c *raster.Color) string {
	if c == nil {
		return "none"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func opacityStyle(opacity float64) string {
	if opacity <= 0 || opacity >= 1 {
		return ""
	}
	return fmt.Sprintf(";opacity:%s", strconv.FormatFloat(opacity, 'f', 2, 64))
}

func emitStrokePath(canvas *svg.SVG, p raster.SvgPath, precision int) {
	d := pointsPath(p.Polyline.Points, precision, false)
	width := p.StrokeWidth
	if width <= 0 {
		width = 1
	}
	style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%s%s",
		colorAttr(p.StrokeColor), fmtNum(width, 2), opacityStyle(p.Opacity))
	canvas.Path(d, style)
}

func emitFillPath(canvas *svg.SVG, p raster.SvgPath, precision int) {
	d := pointsPath(p.Polyline.Points, precision, true)
	style := fmt.Sprintf("fill:%s;stroke:none%s", colorAttr(p.FillColor), opacityStyle(p.Opacity))
	canvas.Path(d, style)
}

func emitCurvePath(canvas *svg.SVG, p raster.SvgPath, precision int) {
	if p.FillColor != nil {
		d := curvesPath(p.Curves, precision)
		style := fmt.Sprintf("fill:%s;stroke:none%s", colorAttr(p.FillColor), opacityStyle(p.Opacity))
		canvas.Path(d, style)
		return
	}
	if len(p.PerSegmentWidth) == len(p.Curves)+1 {
		emitVariableWidthCurves(canvas, p, precision)
		return
	}
	d := curvesPath(p.Curves, precision)
	width := p.StrokeWidth
	if width <= 0 {
		width = 1
	}
	style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%s%s",
		colorAttr(p.StrokeColor), fmtNum(width, 2), opacityStyle(p.Opacity))
	canvas.Path(d, style)
}

// emitVariableWidthCurves renders each curve segment as its own sub-path so
// stroke-width can vary along the stroke, per PerSegmentWidth's
// one-width-per-anchor convention: each curve's width is the average of the
// widths at its two boundary anchors.
func emitVariableWidthCurves(canvas *svg.SVG, p raster.SvgPath, precision int) {
	for i, c := range p.Curves {
		width := (p.PerSegmentWidth[i] + p.PerSegmentWidth[i+1]) / 2
		if width <= 0 {
			width = 1
		}
		d := curvesPath([]raster.CubicBezier{c}, precision)
		style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%s%s",
			colorAttr(p.StrokeColor), fmtNum(width, 2), opacityStyle(p.Opacity))
		canvas.Path(d, style)
	}
}

// groupDotsByColor buckets dot paths by their exact color so each group can
// be wrapped in its own <g>, matching the external interface's "color
// grouping of dots" guarantee.
func groupDotsByColor(paths []raster.SvgPath) map[string][]raster.SvgPath {
	groups := make(map[string][]raster.SvgPath)
	for _, p := range paths {
		if p.Kind != raster.PathDot || p.Dot == nil {
			continue
		}
		key := fmt.Sprintf("%02x%02x%02x", p.Dot.Color.R, p.Dot.Color.G, p.Dot.Color.B)
		groups[key] = append(groups[key], p)
	}
	return groups
}

func emitDotGroups(canvas *svg.SVG, groups map[string][]raster.SvgPath, precision int) {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// Deterministic group order regardless of map iteration.
	sortStrings(keys)

	for _, key := range keys {
		dots := groups[key]
		canvas.Gid("dots-" + key)
		for _, p := range dots {
			d := p.Dot
			style := fmt.Sprintf("fill:#%s%s", key, opacityStyle(d.Opacity))
			canvas.Circle(int(round(d.X, 0)), int(round(d.Y, 0)), int(round(d.Radius, 0)), style)
		}
		canvas.Gend()
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		j := i
		for j > 0 && s[j-1] > s[j] {
			s[j-1], s[j] = s[j], s[j-1]
			j--
		}
	}
}
