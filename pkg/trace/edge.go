package trace

import (
	"math"

	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/pkg/verror"
)

// EdgeConfig mirrors the subset of config.EdgeConfig needed here, decoupled
// to avoid pkg/trace depending on pkg/config.
type EdgeConfig struct {
	Detail                         float64
	Multipass                      bool
	ConservativeDetail             float64
	AggressiveDetail               float64
	DirectionalPasses              bool
	DirectionalStrengthThreshold   float64
	MinPolylineLengthOverride      int // not read; minimum length is always derived from detail
}

// TraceEdges extracts open polylines along gradient discontinuities: Sobel
// magnitude, non-maximum suppression along the gradient direction,
// hysteresis thresholding, then 8-connected edge following.
func TraceEdges(r *raster.Raster, cfg EdgeConfig) ([]*raster.Polyline, error) {
	if r.Width == 0 || r.Height == 0 {
		return nil, verror.NewTracingFailed("zero-sized raster")
	}

	base, err := tracePass(r, cfg.Detail)
	if err != nil {
		return nil, err
	}

	if !cfg.Multipass {
		return base, nil
	}

	conservative, err := tracePass(r, cfg.ConservativeDetail)
	if err != nil {
		return nil, err
	}
	aggressive, err := tracePass(r, cfg.AggressiveDetail)
	if err != nil {
		return nil, err
	}
	merged := dedupPolylines(append(conservative, aggressive...))

	if cfg.DirectionalPasses {
		extra := directionalPasses(r, cfg)
		merged = dedupPolylines(append(merged, extra...))
	}
	return merged, nil
}

func tracePass(r *raster.Raster, detail float64) ([]*raster.Polyline, error) {
	gray := luminance(r.Pix, r.Width, r.Height)
	grad := sobelGradient(gray, r.Width, r.Height)

	low := detail * 100
	high := detail * 300

	suppressed := nonMaxSuppress(grad)
	strong, weak := hysteresisClassify(suppressed, grad.width, grad.height, low, high)
	edges := hysteresisLink(strong, weak, grad.width, grad.height)

	minLen := int(math.Round(10*(1-detail) + 3))
	return followEdges(edges, grad.width, grad.height, minLen)
}

// nonMaxSuppress zeroes gradient magnitude at pixels that are not a local
// maximum along their own gradient direction, producing thin candidate
// edges before thresholding.
func nonMaxSuppress(g gradientField) []float64 {
	out := make([]float64, len(g.magnitude))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			i := y*g.width + x
			m := g.magnitude[i]
			if m == 0 {
				continue
			}
			angle := g.direction[i]
			dx, dy := directionOffsets(angle)
			if m >= g.at(x+dx, y+dy) && m >= g.at(x-dx, y-dy) {
				out[i] = m
			}
		}
	}
	return out
}

// directionOffsets quantizes a gradient direction to one of the four
// compass octant pairs used to sample the two neighbors for NMS.
func directionOffsets(angle float64) (int, int) {
	deg := angle * 180 / math.Pi
	if deg < 0 {
		deg += 180
	}
	switch {
	case deg < 22.5 || deg >= 157.5:
		return 1, 0
	case deg < 67.5:
		return 1, 1
	case deg < 112.5:
		return 0, 1
	default:
		return -1, 1
	}
}

func hysteresisClassify(mag []float64, w, h int, low, high float64) (strong, weak []bool) {
	strong = make([]bool, w*h)
	weak = make([]bool, w*h)
	for i, m := range mag {
		if m >= high {
			strong[i] = true
		} else if m >= low {
			weak[i] = true
		}
	}
	return
}

// hysteresisLink promotes weak pixels connected (8-neighborhood) to a
// strong pixel, transitively, via a stack-based flood fill from every
// strong seed.
func hysteresisLink(strong, weak []bool, w, h int) []bool {
	kept := make([]bool, w*h)
	var stack []int
	for i, s := range strong {
		if s {
			kept[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if weak[ni] && !kept[ni] {
					kept[ni] = true
					stack = append(stack, ni)
				}
			}
		}
	}
	return kept
}

// followEdges walks 8-connected runs of kept edge pixels into open
// polylines, discarding visited pixels as it goes so each pixel belongs to
// at most one polyline.
func followEdges(kept []bool, w, h, minLen int) ([]*raster.Polyline, error) {
	visited := make([]bool, w*h)
	var out []*raster.Polyline

	for start := 0; start < w*h; start++ {
		if !kept[start] || visited[start] {
			continue
		}
		var pts []raster.Point
		cur := start
		for {
			visited[cur] = true
			x, y := cur%w, cur/w
			pts = append(pts, raster.Point{X: float64(x), Y: float64(y)})

			next := -1
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					ni := ny*w + nx
					if kept[ni] && !visited[ni] {
						next = ni
						break
					}
				}
				if next >= 0 {
					break
				}
			}
			if next < 0 {
				break
			}
			cur = next
		}
		if len(pts) >= minLen && len(pts) >= 2 {
			p, err := raster.NewPolyline(pts)
			if err == nil {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// dedupPolylines merges polylines whose Hausdorff distance is below 1px,
// keeping the longer of each pair; used to combine conservative/aggressive
// multipass output and directional-pass output without doubling edges.
func dedupPolylines(in []*raster.Polyline) []*raster.Polyline {
	keep := make([]bool, len(in))
	for i := range keep {
		keep[i] = true
	}
	for i := 0; i < len(in); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(in); j++ {
			if !keep[j] {
				continue
			}
			if hausdorff(in[i], in[j]) < 1.0 {
				if in[j].Length() > in[i].Length() {
					keep[i] = false
				} else {
					keep[j] = false
				}
			}
		}
	}
	var out []*raster.Polyline
	for i, k := range keep {
		if k {
			out = append(out, in[i])
		}
	}
	return out
}

func hausdorff(a, b *raster.Polyline) float64 {
	return math.Max(directedHausdorff(a, b), directedHausdorff(b, a))
}

func directedHausdorff(a, b *raster.Polyline) float64 {
	worst := 0.0
	for _, pa := range a.Points {
		best := math.MaxFloat64
		for _, pb := range b.Points {
			if d := pa.Dist(pb); d < best {
				best = d
			}
		}
		if best > worst {
			worst = best
		}
	}
	return worst
}

// directionalPasses reprojects gradients onto reversed and diagonal axes
// and reruns NMS/hysteresis; a pass contributing less than
// DirectionalStrengthThreshold of the base-pass edge pixel mass is dropped.
func directionalPasses(r *raster.Raster, cfg EdgeConfig) []*raster.Polyline {
	gray := luminance(r.Pix, r.Width, r.Height)
	base := sobelGradient(gray, r.Width, r.Height)
	baseMass := countNonZero(base.magnitude)

	reversed := reprojectGradient(base, math.Pi)
	diagonal := reprojectGradient(base, math.Pi/4)

	var out []*raster.Polyline
	threshold := cfg.DirectionalStrengthThreshold
	if threshold <= 0 {
		threshold = 0.3
	}

	for _, g := range []gradientField{reversed, diagonal} {
		suppressed := nonMaxSuppress(g)
		mass := countNonZero(suppressed)
		if baseMass == 0 || float64(mass)/float64(baseMass) < threshold {
			continue
		}
		strong, weak := hysteresisClassify(suppressed, g.width, g.height, cfg.Detail*100, cfg.Detail*300)
		edges := hysteresisLink(strong, weak, g.width, g.height)
		minLen := int(math.Round(10*(1-cfg.Detail) + 3))
		polys, _ := followEdges(edges, g.width, g.height, minLen)
		out = append(out, polys...)
	}
	return out
}

func reprojectGradient(g gradientField, rotate float64) gradientField {
	out := gradientField{width: g.width, height: g.height, magnitude: make([]float64, len(g.magnitude)), direction: make([]float64, len(g.direction))}
	for i := range g.magnitude {
		out.magnitude[i] = g.magnitude[i]
		out.direction[i] = wrapAngle(g.direction[i] + rotate)
	}
	return out
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func countNonZero(v []float64) int {
	n := 0
	for _, x := range v {
		if x != 0 {
			n++
		}
	}
	return n
}
