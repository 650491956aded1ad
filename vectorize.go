// Package vectorize converts raster images into SVG vector graphics using
// one of four algorithmic backends (edge, centerline, superpixel, dots),
// sharing a common preprocessing front-end and an optional error-driven
// refinement pass.
package vectorize

import (
	"github.com/go-vectorize/vectorize/pkg/config"
	"github.com/go-vectorize/vectorize/pkg/pathfit"
	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/pkg/refine"
	"github.com/go-vectorize/vectorize/pkg/svgemit"
	"github.com/go-vectorize/vectorize/pkg/trace"
	"github.com/go-vectorize/vectorize/pkg/verror"
	"github.com/go-vectorize/vectorize/utils"
)

// Result is the output of Vectorize: the emitted SVG document plus the
// refinement record, which is zero-valued when refinement is disabled.
type Result struct {
	SVG         string
	Refine      refine.Result
	ScaleFactor float64
}

// Vectorize runs the full pipeline: preprocess, trace with the configured
// backend, post-process into stroke/fill/curve/dot paths, emit SVG, and
// optionally refine. The same Raster and Config (with the same MasterSeed)
// always produce a byte-identical SVG string.
func Vectorize(r *raster.Raster, cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pre, err := raster.Preprocess(r, toPreprocessOptions(cfg))
	if err != nil {
		return nil, err
	}

	paths, err := traceAndFit(pre, cfg, r.Height)
	if err != nil {
		return nil, err
	}

	svg := svgemit.Emit(paths, r.Width, r.Height, cfg.SvgPrecision)

	result := &Result{SVG: svg, ScaleFactor: pre.ScaleFactor}
	if cfg.Refine.Enabled {
		refined := refine.Run(r, paths, r.Width, r.Height, cfg.Refine)
		result.Refine = refined
		result.SVG = svgemit.Emit(refined.Paths, r.Width, r.Height, cfg.SvgPrecision)
	}
	return result, nil
}

func toPreprocessOptions(cfg *config.Config) raster.PreprocessOptions {
	return raster.PreprocessOptions{
		MaxImageSize:              cfg.MaxImageSize,
		Denoise:                   cfg.NoiseFiltering,
		BackgroundRemoval:         raster.BackgroundMode(cfg.BackgroundRemoval),
		BackgroundRemovalStrength: cfg.BackgroundRemovalStrength,
		TargetColors:              cfg.TargetColors,
		MasterSeed:                cfg.MasterSeed,
	}
}

// traceAndFit dispatches to the configured backend. Stroke polylines go
// through simplification, optional hand-drawn stylization and curve fitting;
// superpixel polygons are simplified only; dots are emitted as traced.
func traceAndFit(pre *raster.Result, cfg *config.Config, originalHeight int) ([]raster.SvgPath, error) {
	switch cfg.Backend {
	case config.BackendEdge:
		polylines, err := trace.TraceEdges(pre.Raster, toEdgeConfig(cfg))
		if err != nil {
			return nil, err
		}
		return fitStrokePaths(polylines, cfg, strokeColor(pre), originalHeight)
	case config.BackendCenterline:
		polylines, err := trace.TraceCenterlines(pre.Raster, toCenterlineConfig(cfg))
		if err != nil {
			return nil, err
		}
		return fitStrokePaths(polylines, cfg, strokeColor(pre), originalHeight)
	case config.BackendSuperpixel:
		polygons, err := trace.SegmentSuperpixels(pre.Raster, toSuperpixelConfig(cfg))
		if err != nil {
			return nil, err
		}
		return fitFillPaths(polygons, cfg, pre)
	case config.BackendDots:
		dots, err := trace.MapDots(pre.Raster, toDotConfig(cfg))
		if err != nil {
			return nil, err
		}
		return dotPaths(dots), nil
	default:
		return nil, verror.NewInvalidParameter("backend", "unknown backend")
	}
}

func strokeColor(pre *raster.Result) *raster.Color {
	if len(pre.Palette) == 0 {
		return &raster.Color{A: 1}
	}
	return &raster.Color{R: pre.Palette[0].R, G: pre.Palette[0].G, B: pre.Palette[0].B, A: 1}
}

func strokeWidthFor(cfg *config.Config, originalHeight int) float64 {
	scale := float64(originalHeight) / 1080.0
	if scale <= 0 {
		scale = 1
	}
	return cfg.StrokePxAt1080p * scale
}

func fitStrokePaths(polylines []*raster.Polyline, cfg *config.Config, color *raster.Color, originalHeight int) ([]raster.SvgPath, error) {
	var out []raster.SvgPath
	for _, p := range polylines {
		simplified := pathfit.Simplify(p, pathfit.SimplifyDouglasPeucker, 1.0, 1.0)
		if len(simplified) < 2 {
			continue
		}
		jittered, widths := pathfit.Stylize(simplified, toStylizeOptions(cfg, originalHeight))
		curves, segWidths := pathfit.FitCurvesWithWidths(jittered, 1.0, pathfit.FitOptions{RefinementIterations: 4}, widths)

		svgPath := raster.SvgPath{
			Kind:        raster.PathCurves,
			Curves:      curves,
			StrokeColor: color,
			StrokeWidth: strokeWidthFor(cfg, originalHeight),
			Opacity:     1,
		}
		if len(segWidths) == len(curves)+1 {
			svgPath.PerSegmentWidth = segWidths
		}
		out = append(out, svgPath)
	}
	return out, nil
}

func fitFillPaths(polygons []*raster.Polyline, cfg *config.Config, pre *raster.Result) ([]raster.SvgPath, error) {
	var out []raster.SvgPath
	for _, p := range polygons {
		simplified := pathfit.Simplify(p, pathfit.SimplifyVisvalingamWhyatt, 0.5, 1.0)
		if len(simplified) < 3 {
			continue
		}
		out = append(out, raster.SvgPath{
			Kind:      raster.PathFill,
			Polyline:  &raster.Polyline{Points: simplified},
			FillColor: regionColor(pre.Raster, p),
			Opacity:   1,
		})
	}
	return out, nil
}

// regionColor samples the mean color of the source raster over the
// polygon's bounding box, a cheap stand-in for a true point-in-polygon scan
// that is accurate enough for roughly-convex superpixel boundaries.
func regionColor(r *raster.Raster, p *raster.Polyline) *raster.Color {
	minX, minY := p.Points[0].X, p.Points[0].Y
	maxX, maxY := minX, minY
	for _, pt := range p.Points {
		minX, maxX = utils.Min(minX, pt.X), utils.Max(maxX, pt.X)
		minY, maxY = utils.Min(minY, pt.Y), utils.Max(maxY, pt.Y)
	}
	x0, y0 := clampInt(int(minX), 0, r.Width-1), clampInt(int(minY), 0, r.Height-1)
	x1, y1 := clampInt(int(maxX), 0, r.Width-1), clampInt(int(maxY), 0, r.Height-1)

	var sumR, sumG, sumB, n float64
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			rr, gg, bb, _ := r.At(x, y)
			sumR += float64(rr)
			sumG += float64(gg)
			sumB += float64(bb)
			n++
		}
	}
	if n == 0 {
		return &raster.Color{A: 1}
	}
	return &raster.Color{R: uint8(sumR / n), G: uint8(sumG / n), B: uint8(sumB / n), A: 1}
}

func clampInt(v, lo, hi int) int {
	return utils.Max(lo, utils.Min(hi, v))
}

func dotPaths(dots []raster.Dot) []raster.SvgPath {
	out := make([]raster.SvgPath, len(dots))
	for i := range dots {
		d := dots[i]
		out[i] = raster.SvgPath{Kind: raster.PathDot, Dot: &d, Opacity: d.Opacity}
	}
	return out
}

func toEdgeConfig(cfg *config.Config) trace.EdgeConfig {
	return trace.EdgeConfig{
		Detail:                       cfg.Detail,
		ConservativeDetail:           derefOr(cfg.ConservativeDetail, cfg.Detail*0.6),
		AggressiveDetail:             derefOr(cfg.AggressiveDetail, cfg.Detail*1.4),
		DirectionalStrengthThreshold: cfg.Edge.DirectionalStrengthThreshold,
		Multipass:                    cfg.Multipass,
		DirectionalPasses:            cfg.Edge.ReversedPass || cfg.Edge.DiagonalPass,
	}
}

func derefOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func toCenterlineConfig(cfg *config.Config) trace.CenterlineConfig {
	return trace.CenterlineConfig{
		WindowSize:           cfg.Centerline.WindowSize,
		Sensitivity:          cfg.Centerline.Sensitivity,
		NoiseFiltering:       cfg.NoiseFiltering,
		Thinning:             trace.ThinningAlgorithm(cfg.Centerline.Thinning),
		CurvatureSensitivity: cfg.Centerline.CurvatureSensitivity,
		BaseEpsilon:          1.0,
	}
}

func toSuperpixelConfig(cfg *config.Config) trace.SuperpixelConfig {
	return trace.SuperpixelConfig{
		NumSuperpixels: cfg.Superpixel.NumSuperpixels,
		Compactness:    cfg.Superpixel.Compactness,
		Iterations:     cfg.Superpixel.Iterations,
		RAGMerge:       cfg.Superpixel.EnforceRAGMerge,
		MergeK:         cfg.Superpixel.RAGGranularityK,
	}
}

func toDotConfig(cfg *config.Config) trace.DotConfig {
	return trace.DotConfig{
		DensityThreshold: cfg.Dots.DensityThreshold,
		MinRadius:        cfg.Dots.MinRadius,
		MaxRadius:        cfg.Dots.MaxRadius,
		MinSpacing:       cfg.Dots.MinSpacing,
		Sizing:           trace.DotSizing(cfg.Dots.Sizing),
		GridSnap:         cfg.Dots.GridMode,
	}
}

func toStylizeOptions(cfg *config.Config, originalHeight int) pathfit.StylizeOptions {
	return pathfit.StylizeOptions{
		Tremor:          cfg.HandDrawn.Tremor,
		VariableWeights: cfg.HandDrawn.VariableWeights,
		Tapering:        cfg.HandDrawn.Tapering,
		BaseStrokeWidth: strokeWidthFor(cfg, originalHeight),
		Seed:            cfg.HandDrawn.Seed,
	}
}

