package trace

import (
	"math"
	"sort"

	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/pkg/verror"
)

// SuperpixelConfig mirrors the subset of config.SuperpixelConfig needed
// here.
type SuperpixelConfig struct {
	NumSuperpixels int
	Compactness    float64
	Iterations     int
	RAGMerge       bool
	MergeK         float64
}

type labPixel struct{ L, a, b float64 }

// SegmentSuperpixels runs SLIC clustering (grid init, bounded-window
// assignment, iterate, enforce connectivity), optionally followed by RAG
// Felzenszwalb-style merging, and emits one closed boundary polyline per
// surviving region.
func SegmentSuperpixels(r *raster.Raster, cfg SuperpixelConfig) ([]*raster.Polyline, error) {
	w, h := r.Width, r.Height
	if w == 0 || h == 0 {
		return nil, verror.NewTracingFailed("zero-sized raster")
	}
	n := cfg.NumSuperpixels
	if n <= 0 {
		n = 400
	}
	if n > w*h {
		n = w * h
	}

	labs := rasterToLab(r)
	step := math.Sqrt(float64(w*h) / float64(n))
	if step < 1 {
		step = 1
	}

	centers := initGridCenters(labs, w, h, step)
	if len(centers) == 0 {
		return nil, verror.NewNoRegionsFound("no grid centers could be seeded")
	}

	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}

	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 10
	}
	m := cfg.Compactness
	if m <= 0 {
		m = 10
	}

	for iter := 0; iter < iterations; iter++ {
		slicAssign(labs, w, h, centers, labels, step, m)
		recomputeSLICCenters(labs, w, h, labels, centers)
	}

	enforceConnectivity(labels, w, h, int(step*step/4))

	if cfg.RAGMerge {
		k := cfg.MergeK
		if k <= 0 {
			k = 300
		}
		labels = ragMerge(labs, w, h, labels, k)
	}

	regions := boundaryWalk(labels, w, h)
	if len(regions) == 0 {
		return nil, verror.NewNoRegionsFound("segmentation produced zero regions")
	}
	return regions, nil
}

func rasterToLab(r *raster.Raster) []labPixel {
	out := make([]labPixel, r.Width*r.Height)
	for i := 0; i < r.Width*r.Height; i++ {
		rr, gg, bb := r.Pix[4*i], r.Pix[4*i+1], r.Pix[4*i+2]
		out[i] = rgbToLabPixel(rr, gg, bb)
	}
	return out
}

func rgbToLabPixel(r, g, b uint8) labPixel {
	lr, lg, lb := srgbLin(r), srgbLin(g), srgbLin(b)
	x := lr*0.4124564 + lg*0.3575761 + lb*0.1804375
	y := lr*0.2126729 + lg*0.7151522 + lb*0.0721750
	z := lr*0.0193339 + lg*0.1191920 + lb*0.9503041
	const xn, yn, zn = 0.95047, 1.0, 1.08883
	fx, fy, fz := labFn(x/xn), labFn(y/yn), labFn(z/zn)
	return labPixel{L: 116*fy - 16, a: 500 * (fx - fy), b: 200 * (fy - fz)}.norm()
}

func (l labPixel) norm() labPixel { return l }

func srgbLin(v uint8) float64 {
	c := float64(v) / 255
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func labFn(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}

type slicCenter struct {
	lab  labPixel
	x, y float64
}

func initGridCenters(labs []labPixel, w, h int, step float64) []slicCenter {
	var centers []slicCenter
	for y := step / 2; y < float64(h); y += step {
		for x := step / 2; x < float64(w); x += step {
			ix, iy := int(x), int(y)
			if ix >= w {
				ix = w - 1
			}
			if iy >= h {
				iy = h - 1
			}
			centers = append(centers, slicCenter{lab: labs[iy*w+ix], x: x, y: y})
		}
	}
	return centers
}

func slicAssign(labs []labPixel, w, h int, centers []slicCenter, labels []int, step, m float64) {
	best := make([]float64, w*h)
	for i := range best {
		best[i] = math.MaxFloat64
	}
	for ci, c := range centers {
		x0, x1 := int(c.x-2*step), int(c.x+2*step)
		y0, y1 := int(c.y-2*step), int(c.y+2*step)
		if x0 < 0 {
			x0 = 0
		}
		if y0 < 0 {
			y0 = 0
		}
		if x1 >= w {
			x1 = w - 1
		}
		if y1 >= h {
			y1 = h - 1
		}
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				i := y*w + x
				p := labs[i]
				dl := p.L - c.lab.L
				da := p.a - c.lab.a
				db := p.b - c.lab.b
				dlab := math.Sqrt(dl*dl + da*da + db*db)
				dx := float64(x) - c.x
				dy := float64(y) - c.y
				dxy := math.Sqrt(dx*dx + dy*dy)
				d := math.Sqrt(dlab*dlab + (m/step)*(m/step)*dxy*dxy)
				if d < best[i] {
					best[i] = d
					labels[i] = ci
				}
			}
		}
	}
}

func recomputeSLICCenters(labs []labPixel, w, h int, labels []int, centers []slicCenter) {
	sums := make([]slicCenter, len(centers))
	counts := make([]int, len(centers))
	for i, lbl := range labels {
		if lbl < 0 {
			continue
		}
		x, y := i%w, i/w
		sums[lbl].lab.L += labs[i].L
		sums[lbl].lab.a += labs[i].a
		sums[lbl].lab.b += labs[i].b
		sums[lbl].x += float64(x)
		sums[lbl].y += float64(y)
		counts[lbl]++
	}
	for i := range centers {
		if counts[i] == 0 {
			continue
		}
		c := counts[i]
		centers[i] = slicCenter{
			lab: labPixel{sums[i].lab.L / float64(c), sums[i].lab.a / float64(c), sums[i].lab.b / float64(c)},
			x:   sums[i].x / float64(c),
			y:   sums[i].y / float64(c),
		}
	}
}

// enforceConnectivity relabels 4-connected components smaller than minSize
// to the adjacent label that shares the most boundary pixels with them (ties
// go to the lowest label); Lab distance is not consulted. Components of at
// least minSize are left as they are, so one label can still cover several
// separate components.
func enforceConnectivity(labels []int, w, h, minSize int) {
	visited := make([]bool, w*h)
	for i := 0; i < w*h; i++ {
		if visited[i] || labels[i] < 0 {
			continue
		}
		lbl := labels[i]
		comp := floodFill4(labels, visited, w, h, i, lbl)
		if len(comp) >= minSize || minSize <= 0 {
			continue
		}
		adjacent := adjacentLabel(labels, w, h, comp, lbl)
		if adjacent >= 0 {
			for _, idx := range comp {
				labels[idx] = adjacent
			}
		}
	}
}

func floodFill4(labels []int, visited []bool, w, h, start, lbl int) []int {
	var comp []int
	stack := []int{start}
	visited[start] = true
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		comp = append(comp, i)
		x, y := i%w, i/w
		for _, o := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+o[0], y+o[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := ny*w + nx
			if !visited[ni] && labels[ni] == lbl {
				visited[ni] = true
				stack = append(stack, ni)
			}
		}
	}
	return comp
}

func adjacentLabel(labels []int, w, h int, comp []int, own int) int {
	counts := map[int]int{}
	for _, i := range comp {
		x, y := i%w, i/w
		for _, o := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+o[0], y+o[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			nl := labels[ny*w+nx]
			if nl != own && nl >= 0 {
				counts[nl]++
			}
		}
	}
	best, bestCount := -1, 0
	for l, c := range counts {
		if c > bestCount || (c == bestCount && l < best) {
			best, bestCount = l, c
		}
	}
	return best
}

// ragMerge builds a region adjacency graph keyed by canonical (low, high)
// label pairs and merges regions via union-find whenever the boundary-max
// gradient is below the Felzenszwalb internal-variation threshold.
func ragMerge(labs []labPixel, w, h int, labels []int, k float64) []int {
	maxLabel := -1
	for _, l := range labels {
		if l > maxLabel {
			maxLabel = l
		}
	}
	if maxLabel < 0 {
		return labels
	}
	uf := newUnionFind(maxLabel + 1)
	sizes := make([]int, maxLabel+1)
	internal := make([]float64, maxLabel+1)
	for _, l := range labels {
		if l >= 0 {
			sizes[l]++
		}
	}

	type edgeKey struct{ a, b int }
	boundaryMax := map[edgeKey]float64{}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			li := labels[i]
			if li < 0 {
				continue
			}
			for _, o := range [2][2]int{{1, 0}, {0, 1}} {
				nx, ny := x+o[0], y+o[1]
				if nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				lj := labels[ni]
				if lj < 0 || lj == li {
					continue
				}
				a, b := li, lj
				if a > b {
					a, b = b, a
				}
				d := labDist(labs[i], labs[ni])
				if d > boundaryMax[edgeKey{a, b}] {
					boundaryMax[edgeKey{a, b}] = d
				}
			}
		}
	}

	// Visit edges in label order so the merge result does not depend on map
	// iteration order.
	keys := make([]edgeKey, 0, len(boundaryMax))
	for key := range boundaryMax {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	for _, key := range keys {
		omega := boundaryMax[key]
		ra, rb := uf.find(key.a), uf.find(key.b)
		if ra == rb {
			continue
		}
		ia := internal[ra] + k/float64(maxInt(sizes[ra], 1))
		ib := internal[rb] + k/float64(maxInt(sizes[rb], 1))
		if omega <= math.Min(ia, ib) {
			uf.union(ra, rb)
			newRoot := uf.find(ra)
			internal[newRoot] = math.Max(omega, math.Max(internal[ra], internal[rb]))
			sizes[newRoot] = sizes[ra] + sizes[rb]
		}
	}

	out := make([]int, len(labels))
	for i, l := range labels {
		if l < 0 {
			out[i] = -1
			continue
		}
		out[i] = uf.find(l)
	}
	return out
}

func labDist(a, b labPixel) float64 {
	dl := a.L - b.L
	da := a.a - b.a
	db := a.b - b.b
	return math.Sqrt(dl*dl + da*da + db*db)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type unionFind struct{ parent []int }

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

// boundaryWalk traces one closed polygon per surviving label by walking
// each region's boundary pixels in 4-connected neighbor order.
func boundaryWalk(labels []int, w, h int) []*raster.Polyline {
	seen := map[int]bool{}
	var out []*raster.Polyline
	for i, l := range labels {
		if l < 0 || seen[l] {
			continue
		}
		seen[l] = true
		pts := regionBoundaryPoints(labels, w, h, l, i)
		if len(pts) < 2 {
			continue
		}
		pts = append(pts, pts[0])
		if poly, err := raster.NewPolyline(pts); err == nil {
			out = append(out, poly)
		}
	}
	return out
}

// regionBoundaryPoints collects the boundary pixels of the connected
// component containing seed (a region may have been split into several
// components by merging; this walks just the seed's component), ordered by
// a simple angular sort around the centroid — sufficient for an emitted
// closed polygon without self-intersection on typical SLIC regions.
func regionBoundaryPoints(labels []int, w, h, lbl, seed int) []raster.Point {
	visited := make([]bool, w*h)
	comp := floodFill4(labels, visited, w, h, seed, lbl)

	var boundary []raster.Point
	var cx, cy float64
	for _, i := range comp {
		x, y := i%w, i/w
		cx += float64(x)
		cy += float64(y)
		isBoundary := false
		for _, o := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+o[0], y+o[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h || labels[ny*w+nx] != lbl {
				isBoundary = true
				break
			}
		}
		if isBoundary {
			boundary = append(boundary, raster.Point{X: float64(x), Y: float64(y)})
		}
	}
	if len(comp) > 0 {
		cx /= float64(len(comp))
		cy /= float64(len(comp))
	}
	center := raster.Point{X: cx, Y: cy}
	sortByAngle(boundary, center)
	return boundary
}

func sortByAngle(pts []raster.Point, center raster.Point) {
	angle := func(p raster.Point) float64 {
		return math.Atan2(p.Y-center.Y, p.X-center.X)
	}
	// Simple insertion sort: boundary sets are small relative to image size
	// and this keeps the dependency surface to pkg/raster only.
	for i := 1; i < len(pts); i++ {
		j := i
		for j > 0 && angle(pts[j-1]) > angle(pts[j]) {
			pts[j-1], pts[j] = pts[j], pts[j-1]
			j--
		}
	}
}
