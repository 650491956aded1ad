package refine

import (
	"fmt"
	"math"
	"time"

	"github.com/go-vectorize/vectorize/pkg/config"
	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/pkg/rasterize"
	"github.com/go-vectorize/vectorize/pkg/svgemit"
)

// State names one position in the RefinementLoop state machine.
type State int

const (
	StateIdle State = iota
	StateRasterizing
	StateAnalyzing
	StateSelecting
	StateRepairing
	StateConverged
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRasterizing:
		return "Rasterizing"
	case StateAnalyzing:
		return "Analyzing"
	case StateSelecting:
		return "Selecting"
	case StateRepairing:
		return "Repairing"
	case StateConverged:
		return "Converged"
	default:
		return "Unknown"
	}
}

// RepairAction names one of the three local repair strategies.
type RepairAction int

const (
	AddControlPoint RepairAction = iota
	SplitRegion
	UpgradeFill
)

// IterationRecord captures one pass of the loop for diagnostics; Result.History
// holds one record per pass.
type IterationRecord struct {
	Iteration     int
	State         State
	TilesSelected int
	TilesRepaired int
	AvgDeltaE     float64
	AvgSSIM       float64
	ElapsedMs     float64
}

// Result is the refined path set plus the convergence record.
type Result struct {
	Paths      []raster.SvgPath
	Iterations int
	Converged  bool
	Reason     string
	History    []IterationRecord
}

// Run orchestrates rasterize -> analyze -> select -> repair until a
// convergence criterion fires, in the documented precedence order: wall
// clock budget, iteration cap, quality target met, error plateau, no kept
// tiles.
func Run(original *raster.Raster, paths []raster.SvgPath, width, height int, cfg config.RefineConfig) Result {
	if !cfg.Enabled {
		return Result{Paths: paths, Converged: true, Reason: "refinement disabled"}
	}

	start := time.Now()
	current := paths
	prevAvg := math.Inf(1)
	var history []IterationRecord

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 2
	}

	for iteration := 0; ; iteration++ {
		elapsed := time.Since(start)
		if elapsed > time.Duration(cfg.MaxTimeMs)*time.Millisecond {
			return finish(current, iteration, false, fmt.Sprintf("time budget of %dms exceeded", cfg.MaxTimeMs), history)
		}
		if iteration >= maxIterations {
			return finish(current, iteration, false, fmt.Sprintf("max iterations (%d) reached", maxIterations), history)
		}

		doc := svgemit.Emit(current, width, height, 2)
		rasterized, err := rasterize.Rasterize(doc, width, height)
		if err != nil {
			return finish(current, iteration, false, fmt.Sprintf("rasterize failed: %v", err), history)
		}

		globalAvgDeltaE, globalAvgSSIM := summarize(AllTiles(original, rasterized, cfg))

		kept := Analyze(original, rasterized, cfg)

		record := IterationRecord{
			Iteration: iteration, State: StateAnalyzing, TilesSelected: len(kept),
			AvgDeltaE: globalAvgDeltaE, AvgSSIM: globalAvgSSIM, ElapsedMs: float64(elapsed.Milliseconds()),
		}

		if globalAvgDeltaE <= cfg.TargetDeltaE && globalAvgSSIM >= cfg.TargetSSIM {
			history = append(history, record)
			return finish(current, iteration+1, true, "Quality target achieved", history)
		}
		if iteration >= 1 && (prevAvg-globalAvgDeltaE) < cfg.ErrorPlateauThreshold {
			history = append(history, record)
			return finish(current, iteration+1, true, "error improvement plateaued", history)
		}
		if len(kept) == 0 {
			history = append(history, record)
			return finish(current, iteration+1, true, "no tiles require refinement", history)
		}
		prevAvg = globalAvgDeltaE

		repaired := repairTiles(current, original, kept)
		record.TilesRepaired = len(kept)
		record.State = StateRepairing
		history = append(history, record)
		current = repaired
	}
}

func finish(paths []raster.SvgPath, iterations int, converged bool, reason string, history []IterationRecord) Result {
	return Result{Paths: paths, Iterations: iterations, Converged: converged, Reason: reason, History: history}
}

func summarize(tiles []TileError) (avgDeltaE, avgSSIM float64) {
	if len(tiles) == 0 {
		return 0, 1
	}
	var sumDeltaE, sumSSIM float64
	for _, t := range tiles {
		sumDeltaE += t.DeltaEAvg
		sumSSIM += t.SSIM
	}
	n := float64(len(tiles))
	return sumDeltaE / n, sumSSIM / n
}

// repairTiles applies one repair action per selected tile, serialized
// (never concurrently, since an action may invalidate a neighbor tile's
// path references).
func repairTiles(paths []raster.SvgPath, original *raster.Raster, tiles []TileError) []raster.SvgPath {
	out := append([]raster.SvgPath(nil), paths...)
	for _, t := range tiles {
		action := chooseAction(t)
		out = applyRepair(out, original, t, action)
	}
	return out
}

func chooseAction(t TileError) RepairAction {
	switch {
	case t.SSIM < 0.85:
		return SplitRegion
	case t.SSIM > 0.90 && t.DeltaEAvg > 8:
		return UpgradeFill
	default:
		return AddControlPoint
	}
}

func tileBounds(t TileError) (minX, minY, maxX, maxY float64) {
	return float64(t.X), float64(t.Y), float64(t.X + t.Width), float64(t.Y + t.Height)
}

func pathOverlapsTile(p raster.SvgPath, minX, minY, maxX, maxY float64) bool {
	bx0, by0, bx1, by1 := pathBounds(p)
	return bx0 <= maxX && bx1 >= minX && by0 <= maxY && by1 >= minY
}

func pathBounds(p raster.SvgPath) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	consider := func(x, y float64) {
		minX, minY = math.Min(minX, x), math.Min(minY, y)
		maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
	}
	if p.Polyline != nil {
		for _, pt := range p.Polyline.Points {
			consider(pt.X, pt.Y)
		}
	}
	for _, c := range p.Curves {
		consider(c.P0.X, c.P0.Y)
		consider(c.P3.X, c.P3.Y)
	}
	if p.Dot != nil {
		consider(p.Dot.X-p.Dot.Radius, p.Dot.Y-p.Dot.Radius)
		consider(p.Dot.X+p.Dot.Radius, p.Dot.Y+p.Dot.Radius)
	}
	return
}

// applyRepair mutates a copy of the first overlapping eligible path per the
// chosen action. AddControlPoint subdivides the first curve of that path at
// its midpoint parameter; it does not search for the curve nearest the
// tile's error (the midpoint is a proxy for the true peak-error parameter, which
// would require a per-sample error map this pass doesn't carry) and refits
// nothing further, since Split already reproduces the original curve
// exactly. SplitRegion bisects a fill polygon's bounding box with a
// vertical or horizontal cut, whichever axis is longer, approximating "a
// new boundary along the strongest intra-tile gradient" without a full
// region-adjacency rebuild. UpgradeFill's SvgPath model has no gradient
// fill type, so it resamples the tile's average color directly from the
// source raster instead of fitting a multi-stop gradient.
func applyRepair(paths []raster.SvgPath, original *raster.Raster, t TileError, action RepairAction) []raster.SvgPath {
	minX, minY, maxX, maxY := tileBounds(t)

	switch action {
	case AddControlPoint:
		for i, p := range paths {
			if p.Kind != raster.PathCurves || len(p.Curves) == 0 {
				continue
			}
			if !pathOverlapsTile(p, minX, minY, maxX, maxY) {
				continue
			}
			left, right := p.Curves[0].Split(0.5)
			newCurves := append([]raster.CubicBezier{left, right}, p.Curves[1:]...)
			paths[i].Curves = newCurves
			return paths
		}
	case SplitRegion:
		for i, p := range paths {
			if p.Kind != raster.PathFill || p.Polyline == nil {
				continue
			}
			if !pathOverlapsTile(p, minX, minY, maxX, maxY) {
				continue
			}
			a, b := splitPolygon(p.Polyline.Points)
			if a == nil || b == nil {
				continue
			}
			replacement := []raster.SvgPath{p, p}
			replacement[0].Polyline = &raster.Polyline{Points: a}
			replacement[1].Polyline = &raster.Polyline{Points: b}
			out := append([]raster.SvgPath(nil), paths[:i]...)
			out = append(out, replacement...)
			out = append(out, paths[i+1:]...)
			return out
		}
	case UpgradeFill:
		for i, p := range paths {
			if p.Kind != raster.PathFill || p.FillColor == nil {
				continue
			}
			if !pathOverlapsTile(p, minX, minY, maxX, maxY) {
				continue
			}
			avg := averageTileColor(original, t)
			paths[i].FillColor = &avg
			return paths
		}
	}
	return paths
}

// splitPolygon bisects a polygon's bounding box along its longer axis via
// Sutherland-Hodgman clipping against the midline, producing two closed
// polygons that together cover the original area.
func splitPolygon(pts []raster.Point) ([]raster.Point, []raster.Point) {
	if len(pts) < 3 {
		return nil, nil
	}
	minX, minY, maxX, maxY := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	vertical := (maxX - minX) >= (maxY - minY)

	var left, right []raster.Point
	if vertical {
		cut := (minX + maxX) / 2
		left = clipHalfPlane(pts, func(p raster.Point) bool { return p.X <= cut },
			func(a, b raster.Point) raster.Point { return lerpAtX(a, b, cut) })
		right = clipHalfPlane(pts, func(p raster.Point) bool { return p.X >= cut },
			func(a, b raster.Point) raster.Point { return lerpAtX(a, b, cut) })
	} else {
		cut := (minY + maxY) / 2
		left = clipHalfPlane(pts, func(p raster.Point) bool { return p.Y <= cut },
			func(a, b raster.Point) raster.Point { return lerpAtY(a, b, cut) })
		right = clipHalfPlane(pts, func(p raster.Point) bool { return p.Y >= cut },
			func(a, b raster.Point) raster.Point { return lerpAtY(a, b, cut) })
	}
	if len(left) < 3 || len(right) < 3 {
		return nil, nil
	}
	return left, right
}

func clipHalfPlane(pts []raster.Point, inside func(raster.Point) bool, intersect func(a, b raster.Point) raster.Point) []raster.Point {
	n := len(pts)
	var out []raster.Point
	for i := 0; i < n; i++ {
		cur := pts[i]
		prev := pts[(i-1+n)%n]
		curIn, prevIn := inside(cur), inside(prev)
		if curIn {
			if !prevIn {
				out = append(out, intersect(prev, cur))
			}
			out = append(out, cur)
		} else if prevIn {
			out = append(out, intersect(prev, cur))
		}
	}
	return out
}

func lerpAtX(a, b raster.Point, x float64) raster.Point {
	if b.X == a.X {
		return raster.Point{X: x, Y: a.Y}
	}
	t := (x - a.X) / (b.X - a.X)
	return raster.Point{X: x, Y: a.Y + t*(b.Y-a.Y)}
}

func lerpAtY(a, b raster.Point, y float64) raster.Point {
	if b.Y == a.Y {
		return raster.Point{X: a.X, Y: y}
	}
	t := (y - a.Y) / (b.Y - a.Y)
	return raster.Point{X: a.X + t*(b.X-a.X), Y: y}
}

func averageTileColor(original *raster.Raster, t TileError) raster.Color {
	var sumR, sumG, sumB, n float64
	for dy := 0; dy < t.Height; dy++ {
		for dx := 0; dx < t.Width; dx++ {
			r, g, b, _ := original.At(t.X+dx, t.Y+dy)
			sumR += float64(r)
			sumG += float64(g)
			sumB += float64(b)
			n++
		}
	}
	if n == 0 {
		return raster.Color{A: 1}
	}
	return raster.Color{R: uint8(sumR / n), G: uint8(sumG / n), B: uint8(sumB / n), A: 1}
}
