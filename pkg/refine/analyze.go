// Package refine implements the error-driven repair loop: rasterize the
// candidate path set, measure per-tile perceptual error against the
// source, and repair the worst tiles until a time or quality budget is
// exhausted.
package refine

import (
	"math"
	"sort"

	"github.com/go-vectorize/vectorize/pkg/config"
	"github.com/go-vectorize/vectorize/pkg/raster"
)

// TileError reports the perceptual error of one tile of the rasterized
// candidate against the source, plus its selection priority.
type TileError struct {
	X, Y, Width, Height int
	DeltaEAvg           float64
	DeltaEMax           float64
	SSIM                float64
	Priority            float64
}

// Analyze partitions original/rasterized into config.TileSize tiles, scores
// each by ΔE (CIE76) and a luminance-SSIM-like similarity, and returns the
// tiles that fail either target, sorted descending by priority and cut to
// the first MaxTilesPerIteration (5 when unset).
func Analyze(original, rasterized *raster.Raster, cfg config.RefineConfig) []TileError {
	all := allTiles(original, rasterized, cfg)

	var kept []TileError
	for _, t := range all {
		if t.DeltaEAvg > cfg.TargetDeltaE || t.SSIM < cfg.TargetSSIM {
			kept = append(kept, t)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Priority > kept[j].Priority })

	limit := cfg.MaxTilesPerIteration
	if limit <= 0 {
		limit = 5
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// allTiles computes per-tile metrics for every tile in the grid,
// unconditionally, used both by Analyze's filtering and by the
// refinement loop's global quality-target check.
func allTiles(original, rasterized *raster.Raster, cfg config.RefineConfig) []TileError {
	side := cfg.TileSize
	if side <= 0 {
		side = 32
	}

	var tiles []TileError
	for y := 0; y < original.Height; y += side {
		h := side
		if y+h > original.Height {
			h = original.Height - y
		}
		if h < 4 {
			continue
		}
		for x := 0; x < original.Width; x += side {
			w := side
			if x+w > original.Width {
				w = original.Width - x
			}
			if w < 4 {
				continue
			}

			avg, max := tileDeltaE(original, rasterized, x, y, w, h)
			ssim := tileSSIM(original, rasterized, x, y, w, h)
			priority := math.Max(0, avg/cfg.TargetDeltaE) + math.Max(0, (cfg.TargetSSIM-ssim)/(1-cfg.TargetSSIM))

			tiles = append(tiles, TileError{
				X: x, Y: y, Width: w, Height: h,
				DeltaEAvg: avg, DeltaEMax: max, SSIM: ssim, Priority: priority,
			})
		}
	}
	return tiles
}

// AllTiles exposes every tile's metrics regardless of pass/fail, used by
// callers (such as the refinement loop) that need a global quality summary
// rather than just the tiles selected for repair.
func AllTiles(original, rasterized *raster.Raster, cfg config.RefineConfig) []TileError {
	return allTiles(original, rasterized, cfg)
}

func tileDeltaE(original, rasterized *raster.Raster, x, y, w, h int) (avg, max float64) {
	var sum float64
	n := 0
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			r1, g1, b1, _ := original.At(x+dx, y+dy)
			r2, g2, b2, _ := rasterized.At(x+dx, y+dy)
			d := deltaE76(r1, g1, b1, r2, g2, b2)
			sum += d
			if d > max {
				max = d
			}
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), max
}

// tileSSIM is a luminance mean-absolute-difference similarity over the tile
// (1 - mean|ΔY|/255), an acceptable
// fallback to full 11x11-window SSIM per the analyzer's own tolerance for a
// simplified luminance similarity measure.
func tileSSIM(original, rasterized *raster.Raster, x, y, w, h int) float64 {
	var sumDiff, n float64
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			r1, g1, b1, _ := original.At(x+dx, y+dy)
			r2, g2, b2, _ := rasterized.At(x+dx, y+dy)
			y1 := luma(r1, g1, b1)
			y2 := luma(r2, g2, b2)
			sumDiff += math.Abs(y1 - y2)
			n++
		}
	}
	if n == 0 {
		return 1
	}
	meanAbsDiff := sumDiff / n
	return math.Max(0, 1-meanAbsDiff/255)
}

func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// deltaE76 is the CIE76 Euclidean distance in Lab space, an acceptable
// fallback to CIEDE2000 per the analyzer's own documented tolerance.
func deltaE76(r1, g1, b1, r2, g2, b2 uint8) float64 {
	l1, a1, bb1 := rgbToLab(r1, g1, b1)
	l2, a2, bb2 := rgbToLab(r2, g2, b2)
	dl, da, db := l1-l2, a1-a2, bb1-bb2
	return math.Sqrt(dl*dl + da*da + db*db)
}
