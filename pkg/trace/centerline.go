package trace

import (
	"math"

	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/pkg/verror"
)

// ThinningAlgorithm selects the skeletonization operator.
type ThinningAlgorithm int

const (
	ThinningGuoHall ThinningAlgorithm = iota
	ThinningZhangSuen
)

// CenterlineConfig mirrors the subset of config.CenterlineConfig needed
// here.
type CenterlineConfig struct {
	WindowSize          int
	Sensitivity         float64
	NoiseFiltering      bool
	Thinning            ThinningAlgorithm
	CurvatureSensitivity float64
	BaseEpsilon         float64
}

// TraceCenterlines binarizes, thins to a 1px skeleton, classifies skeleton
// pixels, traces polylines from endpoints (then any remaining closed
// loops), and simplifies each with curvature-aware Douglas-Peucker.
func TraceCenterlines(r *raster.Raster, cfg CenterlineConfig) ([]*raster.Polyline, error) {
	if r.Width == 0 || r.Height == 0 {
		return nil, verror.NewTracingFailed("zero-sized raster")
	}

	bin := binarize(r, cfg.WindowSize, cfg.Sensitivity)
	if cfg.NoiseFiltering {
		bin = morphOpenClose(bin, r.Width, r.Height)
	}

	var skeleton []bool
	switch cfg.Thinning {
	case ThinningZhangSuen:
		skeleton = zhangSuenThin(bin, r.Width, r.Height)
	default:
		skeleton = guoHallThin(bin, r.Width, r.Height)
	}

	polylines := traceSkeleton(skeleton, r.Width, r.Height)
	if len(polylines) == 0 {
		return nil, nil
	}

	eps := cfg.BaseEpsilon
	if eps <= 0 {
		eps = 1.0
	}
	out := make([]*raster.Polyline, 0, len(polylines))
	for _, p := range polylines {
		simplified := curvatureAwareDP(p, eps, cfg.CurvatureSensitivity)
		if poly, err := raster.NewPolyline(simplified); err == nil {
			out = append(out, poly)
		}
	}
	return out, nil
}

// binarize uses an adaptive local-mean threshold: foreground iff intensity
// <= local_mean * (1 - sensitivity), matching a dark-foreground-on-light-
// background convention consistent with background removal's alpha-zeroing.
func binarize(r *raster.Raster, window int, sensitivity float64) []bool {
	gray := luminance(r.Pix, r.Width, r.Height)
	if window <= 0 {
		window = 15
	}
	if window%2 == 0 {
		window++
	}
	half := window / 2

	out := make([]bool, r.Width*r.Height)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			_, _, _, a := r.At(x, y)
			if a == 0 {
				continue
			}
			localMean := windowMeanU8(gray, r.Width, r.Height, x, y, half)
			v := float64(gray[y*r.Width+x])
			out[y*r.Width+x] = v <= localMean*(1-sensitivity)
		}
	}
	return out
}

func windowMeanU8(gray []uint8, w, h, cx, cy, half int) float64 {
	var sum, count float64
	for dy := -half; dy <= half; dy++ {
		ny := cy + dy
		if ny < 0 || ny >= h {
			continue
		}
		for dx := -half; dx <= half; dx++ {
			nx := cx + dx
			if nx < 0 || nx >= w {
				continue
			}
			sum += float64(gray[ny*w+nx])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / count
}

// morphOpenClose applies a 3x3 morphological opening followed by closing,
// suppressing salt-and-pepper noise before thinning.
func morphOpenClose(bin []bool, w, h int) []bool {
	opened := dilate(erode(bin, w, h), w, h)
	return erode(dilate(opened, w, h), w, h)
}

func erode(bin []bool, w, h int) []bool {
	out := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !bin[y*w+x] {
				continue
			}
			all := true
			for dy := -1; dy <= 1 && all; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h || !bin[ny*w+nx] {
						all = false
						break
					}
				}
			}
			out[y*w+x] = all
		}
	}
	return out
}

func dilate(bin []bool, w, h int) []bool {
	out := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			any := false
			for dy := -1; dy <= 1 && !any; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					if bin[ny*w+nx] {
						any = true
						break
					}
				}
			}
			out[y*w+x] = any
		}
	}
	return out
}

// guoHallThin iteratively peels boundary pixels from bin in two
// sub-iterations per pass (as Guo-Hall prescribes) until no pixel changes,
// preserving topology.
func guoHallThin(bin []bool, w, h int) []bool {
	img := make([]bool, len(bin))
	copy(img, bin)

	changed := true
	for changed {
		changed = false
		for _, sub := range [2]int{0, 1} {
			toClear := guoHallPass(img, w, h, sub)
			if len(toClear) > 0 {
				changed = true
				for _, i := range toClear {
					img[i] = false
				}
			}
		}
	}
	return img
}

func guoHallPass(img []bool, w, h, sub int) []int {
	var toClear []int
	nb := func(x, y int) bool {
		if x < 0 || x >= w || y < 0 || y >= h {
			return false
		}
		return img[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !img[y*w+x] {
				continue
			}
			p2 := nb(x, y-1)
			p3 := nb(x+1, y-1)
			p4 := nb(x+1, y)
			p5 := nb(x+1, y+1)
			p6 := nb(x, y+1)
			p7 := nb(x-1, y+1)
			p8 := nb(x-1, y)
			p9 := nb(x-1, y-1)

			c := boolToInt(!p2&&(p3||p4)) + boolToInt(!p4&&(p5||p6)) +
				boolToInt(!p6&&(p7||p8)) + boolToInt(!p8&&(p9||p2))
			n1 := boolToInt(p9 || p2) + boolToInt(p3 || p4) + boolToInt(p5 || p6) + boolToInt(p7 || p8)
			n2 := boolToInt(p2 || p3) + boolToInt(p4 || p5) + boolToInt(p6 || p7) + boolToInt(p8 || p9)
			n := n1
			if n2 < n1 {
				n = n2
			}
			var m int
			if sub == 0 {
				m = boolToInt((p6 || p7 || !p9) && p8)
			} else {
				m = boolToInt((p2 || p3 || !p5) && p4)
			}
			if c == 1 && n >= 2 && n <= 3 && m == 0 {
				toClear = append(toClear, y*w+x)
			}
		}
	}
	return toClear
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// zhangSuenThin is the legacy two-subiteration thinning operator, kept as
// the alternative algorithm named by config.ThinningAlgorithm.
func zhangSuenThin(bin []bool, w, h int) []bool {
	img := make([]bool, len(bin))
	copy(img, bin)

	nb := func(x, y int) bool {
		if x < 0 || x >= w || y < 0 || y >= h {
			return false
		}
		return img[y*w+x]
	}

	changed := true
	for changed {
		changed = false
		for _, step := range [2]int{0, 1} {
			var toClear []int
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					if !img[y*w+x] {
						continue
					}
					p := [9]bool{}
					p[1] = nb(x, y-1)
					p[2] = nb(x+1, y-1)
					p[3] = nb(x+1, y)
					p[4] = nb(x+1, y+1)
					p[5] = nb(x, y+1)
					p[6] = nb(x-1, y+1)
					p[7] = nb(x-1, y)
					p[8] = nb(x-1, y-1)

					bCount := 0
					for i := 1; i <= 8; i++ {
						if p[i] {
							bCount++
						}
					}
					if bCount < 2 || bCount > 6 {
						continue
					}
					aCount := 0
					for i := 1; i <= 8; i++ {
						next := i + 1
						if next > 8 {
							next = 1
						}
						if !p[i] && p[next] {
							aCount++
						}
					}
					if aCount != 1 {
						continue
					}
					if step == 0 {
						if p[1] && p[3] && p[5] {
							continue
						}
						if p[3] && p[5] && p[7] {
							continue
						}
					} else {
						if p[1] && p[3] && p[7] {
							continue
						}
						if p[1] && p[5] && p[7] {
							continue
						}
					}
					toClear = append(toClear, y*w+x)
				}
			}
			if len(toClear) > 0 {
				changed = true
				for _, i := range toClear {
					img[i] = false
				}
			}
		}
	}
	return img
}

type skelClass int

const (
	skelNone skelClass = iota
	skelEndpoint
	skelRegular
	skelJunction
)

func classifySkeleton(skeleton []bool, w, h int) []skelClass {
	class := make([]skelClass, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !skeleton[y*w+x] {
				continue
			}
			n := countNeighbors(skeleton, w, h, x, y)
			switch {
			case n <= 1:
				class[y*w+x] = skelEndpoint
			case n == 2:
				class[y*w+x] = skelRegular
			default:
				class[y*w+x] = skelJunction
			}
		}
	}
	return class
}

func countNeighbors(skeleton []bool, w, h, x, y int) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			if skeleton[ny*w+nx] {
				n++
			}
		}
	}
	return n
}

// traceSkeleton walks polylines starting from endpoints (preferring
// regular, then endpoint, then junction neighbors, forbidding diagonal hops
// without orthogonal support), then walks any remaining pixels (closed
// loops) the same way, starting from the first unvisited pixel in scan
// order; no BFS is used.
func traceSkeleton(skeleton []bool, w, h int) []*raster.Polyline {
	class := classifySkeleton(skeleton, w, h)
	visited := make([]bool, w*h)
	var out []*raster.Polyline

	for i := 0; i < w*h; i++ {
		if skeleton[i] && class[i] == skelEndpoint && !visited[i] {
			if poly := walkFrom(skeleton, class, visited, w, h, i); poly != nil {
				out = append(out, poly)
			}
		}
	}
	for i := 0; i < w*h; i++ {
		if skeleton[i] && !visited[i] {
			if poly := walkFrom(skeleton, class, visited, w, h, i); poly != nil {
				out = append(out, poly)
			}
		}
	}
	return out
}

func walkFrom(skeleton []bool, class []skelClass, visited []bool, w, h, start int) *raster.Polyline {
	var pts []raster.Point
	cur := start
	for {
		visited[cur] = true
		x, y := cur%w, cur/w
		pts = append(pts, raster.Point{X: float64(x), Y: float64(y)})

		next := pickNextNeighbor(skeleton, class, visited, w, h, x, y)
		if next < 0 {
			break
		}
		cur = next
	}
	if len(pts) < 2 {
		return nil
	}
	poly, err := raster.NewPolyline(pts)
	if err != nil {
		return nil
	}
	return poly
}

// pickNextNeighbor prefers regular neighbors, then endpoints, then
// junctions; diagonal hops require orthogonal support (at least one of the
// two adjacent orthogonal cells is also foreground) to avoid 8-connectivity
// artifacts creating spurious shortcuts.
func pickNextNeighbor(skeleton []bool, class []skelClass, visited []bool, w, h, x, y int) int {
	type cand struct {
		idx  int
		rank int
	}
	var candidates []cand
	offsets := [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	for _, o := range offsets {
		dx, dy := o[0], o[1]
		nx, ny := x+dx, y+dy
		if nx < 0 || nx >= w || ny < 0 || ny >= h {
			continue
		}
		ni := ny*w + nx
		if !skeleton[ni] || visited[ni] {
			continue
		}
		if dx != 0 && dy != 0 {
			orth1 := skeleton[y*w+nx]
			orth2 := skeleton[ny*w+x]
			if !orth1 && !orth2 {
				continue
			}
		}
		rank := 2
		switch class[ni] {
		case skelRegular:
			rank = 0
		case skelEndpoint:
			rank = 1
		case skelJunction:
			rank = 2
		}
		candidates = append(candidates, cand{ni, rank})
	}
	if len(candidates) == 0 {
		return -1
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.rank < best.rank {
			best = c
		}
	}
	return best.idx
}

// curvatureAwareDP simplifies a polyline with a per-point epsilon scaled by
// local turn-angle curvature: effective_eps = base_eps * clamp(1 -
// sensitivity * kappa/kappa_max, 0.2, 1.0).
func curvatureAwareDP(p *raster.Polyline, baseEps, sensitivity float64) []raster.Point {
	pts := p.Points
	if len(pts) <= 2 {
		return pts
	}
	curv := pointCurvatures(pts)
	maxCurv := 0.0
	for _, k := range curv {
		if k > maxCurv {
			maxCurv = k
		}
	}
	keep := make([]bool, len(pts))
	keep[0] = true
	keep[len(pts)-1] = true
	dpRecurse(pts, curv, maxCurv, baseEps, sensitivity, 0, len(pts)-1, keep)

	var out []raster.Point
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

func pointCurvatures(pts []raster.Point) []float64 {
	curv := make([]float64, len(pts))
	const window = 2
	for i := range pts {
		a := pts[max0(i-window, 0)]
		b := pts[i]
		c := pts[min0(i+window, len(pts)-1)]
		v1 := b.Sub(a)
		v2 := c.Sub(b)
		n1 := math.Hypot(v1.X, v1.Y)
		n2 := math.Hypot(v2.X, v2.Y)
		if n1 == 0 || n2 == 0 {
			continue
		}
		cosT := (v1.X*v2.X + v1.Y*v2.Y) / (n1 * n2)
		cosT = math.Max(-1, math.Min(1, cosT))
		curv[i] = math.Acos(cosT)
	}
	return curv
}

func max0(a, b int) int {
	if a > b {
		return a
	}
	return b
}
func min0(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func dpRecurse(pts []raster.Point, curv []float64, maxCurv, baseEps, sensitivity float64, start, end int, keep []bool) {
	if end <= start+1 {
		return
	}
	a, b := pts[start], pts[end]
	maxDist := -1.0
	maxIdx := -1
	for i := start + 1; i < end; i++ {
		d := perpendicularDistance(pts[i], a, b)
		eps := baseEps
		if maxCurv > 0 {
			factor := 1 - sensitivity*curv[i]/maxCurv
			factor = math.Max(0.2, math.Min(1.0, factor))
			eps = baseEps * factor
		}
		if d > eps && d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxIdx >= 0 {
		keep[maxIdx] = true
		dpRecurse(pts, curv, maxCurv, baseEps, sensitivity, start, maxIdx, keep)
		dpRecurse(pts, curv, maxCurv, baseEps, sensitivity, maxIdx, end, keep)
	}
}

func perpendicularDistance(p, a, b raster.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return p.Dist(a)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}
