package trace

import (
	"math"
	"sort"

	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/pkg/verror"
)

// DotSizing selects how a dot's radius is derived.
type DotSizing int

const (
	DotSizingFixed DotSizing = iota
	DotSizingAdaptive
	DotSizingGradient
)

// DotConfig mirrors the subset of config.DotConfig needed here.
type DotConfig struct {
	DensityThreshold float64
	MinRadius        float64
	MaxRadius        float64
	MinSpacing       float64
	Sizing           DotSizing
	GridSnap         bool
}

// MapDots computes gradient magnitude, calibrates a density threshold by
// quantile over foreground pixels, then greedily places dots in descending
// salience order, rejecting any candidate within MinSpacing of an existing
// dot via a uniform-grid spatial index.
func MapDots(r *raster.Raster, cfg DotConfig) ([]raster.Dot, error) {
	if r.Width == 0 || r.Height == 0 {
		return nil, verror.NewTracingFailed("zero-sized raster")
	}
	gray := luminance(r.Pix, r.Width, r.Height)
	grad := sobelGradient(gray, r.Width, r.Height)

	type candidate struct {
		x, y      int
		magnitude float64
	}
	var candidates []candidate
	var mags []float64
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			_, _, _, a := r.At(x, y)
			if a == 0 {
				continue
			}
			m := grad.at(x, y)
			mags = append(mags, m)
			candidates = append(candidates, candidate{x, y, m})
		}
	}
	if len(candidates) == 0 {
		return nil, verror.NewNoRegionsFound("no foreground pixels to stipple")
	}

	threshold := quantileThreshold(mags, 1-clampDensity(cfg.DensityThreshold))
	var filtered []candidate
	for _, c := range candidates {
		if c.magnitude >= threshold {
			filtered = append(filtered, c)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].magnitude > filtered[j].magnitude
	})

	minR, maxR := cfg.MinRadius, cfg.MaxRadius
	if maxR <= 0 {
		maxR = 3
	}
	if minR <= 0 {
		minR = 0.5
	}
	spacing := cfg.MinSpacing
	if spacing <= 0 {
		spacing = 2.0
	}

	maxDiameter := maxR * 2
	idx := newSpatialGrid(maxDiameter)

	var dots []raster.Dot
	maxMag := maxOf(mags)
	localVar := localVariance(gray, r.Width, r.Height)

	for _, c := range filtered {
		px, py := float64(c.x), float64(c.y)
		if cfg.GridSnap {
			px = math.Round(px/spacing) * spacing
			py = math.Round(py/spacing) * spacing
		}
		if idx.tooClose(px, py, spacing) {
			continue
		}

		radius := dotRadius(cfg.Sizing, c.magnitude, maxMag, localVar[c.y*r.Width+c.x], minR, maxR)
		rr, gg, bb, aa := r.At(c.x, c.y)
		dots = append(dots, raster.Dot{
			X: px, Y: py, Radius: radius,
			Opacity: float64(aa) / 255,
			Color:   raster.Color{R: rr, G: gg, B: bb, A: float64(aa) / 255},
		})
		idx.insert(px, py)
	}
	return dots, nil
}

func clampDensity(v float64) float64 {
	if v <= 0 {
		return 0.3
	}
	if v > 1 {
		return 1
	}
	return v
}

// quantileThreshold returns the value at quantile q (0..1) of v, such that
// a fraction (1-q) of the population lies above it.
func quantileThreshold(v []float64, q float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	idx := int(q * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func maxOf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

func localVariance(gray []uint8, w, h int) []float64 {
	out := make([]float64, w*h)
	const half = 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, sumSq, count float64
			for dy := -half; dy <= half; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -half; dx <= half; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					v := float64(gray[ny*w+nx])
					sum += v
					sumSq += v * v
					count++
				}
			}
			mean := sum / count
			out[y*w+x] = sumSq/count - mean*mean
		}
	}
	return out
}

func dotRadius(sizing DotSizing, mag, maxMag, variance, minR, maxR float64) float64 {
	switch sizing {
	case DotSizingAdaptive:
		norm := math.Sqrt(variance) / 128
		if norm > 1 {
			norm = 1
		}
		return minR + norm*(maxR-minR)
	case DotSizingGradient:
		norm := 0.0
		if maxMag > 0 {
			norm = mag / maxMag
		}
		return minR + norm*(maxR-minR)
	default:
		return (minR + maxR) / 2
	}
}

// spatialGrid is a uniform-grid spatial index with cell side equal to the
// maximum dot diameter, used for O(1)-expected proximity rejection.
type spatialGrid struct {
	cellSize float64
	cells    map[[2]int][]raster.Point
}

func newSpatialGrid(cellSize float64) *spatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &spatialGrid{cellSize: cellSize, cells: make(map[[2]int][]raster.Point)}
}

func (g *spatialGrid) cellOf(x, y float64) [2]int {
	return [2]int{int(math.Floor(x / g.cellSize)), int(math.Floor(y / g.cellSize))}
}

func (g *spatialGrid) insert(x, y float64) {
	c := g.cellOf(x, y)
	g.cells[c] = append(g.cells[c], raster.Point{X: x, Y: y})
}

func (g *spatialGrid) tooClose(x, y, spacing float64) bool {
	cx, cy := g.cellOf(x, y)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, p := range g.cells[[2]int{cx + dx, cy + dy}] {
				if p.Dist(raster.Point{X: x, Y: y}) < spacing {
					return true
				}
			}
		}
	}
	return false
}
