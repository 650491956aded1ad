// Package quantize implements Lab-space color quantization: k-means++
// seeding followed by a ΔE-based post-merge down to a target palette size.
package quantize

import (
	"math"

	"github.com/go-vectorize/vectorize/pkg/rng"
	"github.com/go-vectorize/vectorize/pkg/verror"
)

// RGB is a plain 8-bit color, kept independent of pkg/raster to avoid an
// import cycle (pkg/raster depends on this package, not the reverse).
type RGB struct {
	R, G, B uint8
}

const maxIterations = 30
const mergeThreshold = 2.3 // CIE76 ΔE units; "just perceptible" boundary

// Quantize clusters the RGBA buffer (straight alpha, row-major, 4 bytes/px)
// into at most targetColors colors in Lab space, ignoring fully-transparent
// pixels in both seeding and statistics, and returns the palette plus a new
// pixel buffer with RGB channels snapped to their assigned centroid (alpha
// preserved exactly).
func Quantize(pix []uint8, width, height, targetColors int, masterSeed uint64) ([]RGB, []uint8, error) {
	if targetColors <= 0 {
		return nil, nil, verror.NewInvalidParameter("target_colors", "must be positive")
	}
	n := width * height

	labs := make([]lab, 0, n)
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if pix[4*i+3] == 0 {
			continue
		}
		labs = append(labs, rgbToLab(pix[4*i], pix[4*i+1], pix[4*i+2]))
		idx = append(idx, i)
	}
	if len(labs) == 0 {
		return nil, nil, verror.NewInsufficientData(1, 0)
	}

	k := targetColors
	if k > len(labs) {
		k = len(labs)
	}

	gen := rng.New(masterSeed, "quantize", nil)
	centers := kmeansPlusPlus(labs, k, gen)
	assign := make([]int, len(labs))

	for iter := 0; iter < maxIterations; iter++ {
		moved := assignStep(labs, centers, assign)
		newCenters := recomputeCenters(labs, assign, len(centers))
		maxShift := 0.0
		for i := range centers {
			d := deltaE(centers[i], newCenters[i])
			if d > maxShift {
				maxShift = d
			}
		}
		centers = newCenters
		if !moved || maxShift < 0.5 {
			break
		}
	}

	centers, assign = mergeClusters(centers, assign, mergeThreshold)

	palette := make([]RGB, len(centers))
	for i, c := range centers {
		r, g, b := labToRGB(c)
		palette[i] = RGB{r, g, b}
	}

	out := make([]uint8, len(pix))
	copy(out, pix)
	for li, pi := range idx {
		c := palette[assign[li]]
		out[4*pi], out[4*pi+1], out[4*pi+2] = c.R, c.G, c.B
	}
	return palette, out, nil
}

func assignStep(labs []lab, centers []lab, assign []int) (moved bool) {
	for i, p := range labs {
		best, bestD := 0, math.MaxFloat64
		for ci, c := range centers {
			d := deltaE(p, c)
			if d < bestD {
				bestD = d
				best = ci
			}
		}
		if assign[i] != best {
			moved = true
		}
		assign[i] = best
	}
	return
}

func recomputeCenters(labs []lab, assign []int, k int) []lab {
	sums := make([]lab, k)
	counts := make([]int, k)
	for i, p := range labs {
		c := assign[i]
		sums[c].L += p.L
		sums[c].A += p.A
		sums[c].B += p.B
		counts[c]++
	}
	for i := range sums {
		if counts[i] == 0 {
			continue
		}
		sums[i].L /= float64(counts[i])
		sums[i].A /= float64(counts[i])
		sums[i].B /= float64(counts[i])
	}
	return sums
}

// mergeClusters merges centroid pairs with ΔE below threshold, largest
// (by member count) first, until no pair is within threshold.
func mergeClusters(centers []lab, assign []int, threshold float64) ([]lab, []int) {
	counts := make([]int, len(centers))
	for _, c := range assign {
		counts[c]++
	}

	remap := make([]int, len(centers))
	for i := range remap {
		remap[i] = i
	}

	for {
		bestI, bestJ, bestCount := -1, -1, -1
		for i := 0; i < len(centers); i++ {
			if remap[i] != i {
				continue
			}
			for j := i + 1; j < len(centers); j++ {
				if remap[j] != j {
					continue
				}
				if deltaE(centers[i], centers[j]) < threshold {
					weight := counts[i] + counts[j]
					if weight > bestCount {
						bestCount, bestI, bestJ = weight, i, j
					}
				}
			}
		}
		if bestI < 0 {
			break
		}
		// Fold j into i, weighted by member count.
		wi, wj := float64(counts[bestI]), float64(counts[bestJ])
		total := wi + wj
		centers[bestI] = lab{
			L: (centers[bestI].L*wi + centers[bestJ].L*wj) / total,
			A: (centers[bestI].A*wi + centers[bestJ].A*wj) / total,
			B: (centers[bestI].B*wi + centers[bestJ].B*wj) / total,
		}
		counts[bestI] += counts[bestJ]
		remap[bestJ] = bestI
	}

	finalIdx := make(map[int]int)
	var out []lab
	for i := range centers {
		// Clusters left without members (e.g. duplicate seeds on a
		// single-color image) contribute no palette entry.
		if remap[i] != i || counts[i] == 0 {
			continue
		}
		finalIdx[i] = len(out)
		out = append(out, centers[i])
	}
	newAssign := make([]int, len(assign))
	for i, c := range assign {
		root := c
		for remap[root] != root {
			root = remap[root]
		}
		newAssign[i] = finalIdx[root]
	}
	return out, newAssign
}

func kmeansPlusPlus(labs []lab, k int, gen *rng.RNG) []lab {
	centers := make([]lab, 0, k)
	first := labs[gen.Intn(len(labs))]
	centers = append(centers, first)

	dist := make([]float64, len(labs))
	for len(centers) < k {
		var total float64
		for i, p := range labs {
			d := deltaE(p, centers[len(centers)-1])
			if len(centers) == 1 || d < dist[i] {
				dist[i] = d
			}
			total += dist[i] * dist[i]
		}
		if total == 0 {
			centers = append(centers, labs[gen.Intn(len(labs))])
			continue
		}
		target := gen.Float64() * total
		var acc float64
		chosen := len(labs) - 1
		for i, d := range dist {
			acc += d * d
			if acc >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, labs[chosen])
	}
	return centers
}

type lab struct{ L, A, B float64 }

// deltaE is CIE76 ΔE (Euclidean distance in Lab space): sufficient for
// clustering and merge decisions without CIEDE2000's angular correction
// terms, which matter more for perceptual-quality measurement than for
// choosing representative centroids.
func deltaE(a, b lab) float64 {
	dl := a.L - b.L
	da := a.A - b.A
	db := a.B - b.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

func rgbToLab(r, g, b uint8) lab {
	lr, lg, lb := srgbToLinear(r), srgbToLinear(g), srgbToLinear(b)

	x := lr*0.4124564 + lg*0.3575761 + lb*0.1804375
	y := lr*0.2126729 + lg*0.7151522 + lb*0.0721750
	z := lr*0.0193339 + lg*0.1191920 + lb*0.9503041

	const xn, yn, zn = 0.95047, 1.0, 1.08883
	fx := labF(x / xn)
	fy := labF(y / yn)
	fz := labF(z / zn)

	return lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

func labToRGB(c lab) (uint8, uint8, uint8) {
	fy := (c.L + 16) / 116
	fx := fy + c.A/500
	fz := fy - c.B/200

	const xn, yn, zn = 0.95047, 1.0, 1.08883
	x := xn * labFInv(fx)
	y := yn * labFInv(fy)
	z := zn * labFInv(fz)

	r := x*3.2404542 + y*-1.5371385 + z*-0.4985314
	g := x*-0.9692660 + y*1.8760108 + z*0.0415560
	b := x*0.0556434 + y*-0.2040259 + z*1.0572252

	return linearToSRGB(r), linearToSRGB(g), linearToSRGB(b)
}

func srgbToLinear(v uint8) float64 {
	c := float64(v) / 255
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func linearToSRGB(c float64) uint8 {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	var s float64
	if c <= 0.0031308 {
		s = c * 12.92
	} else {
		s = 1.055*math.Pow(c, 1/2.4) - 0.055
	}
	return uint8(math.Round(s * 255))
}

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}

func labFInv(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta {
		return t * t * t
	}
	return 3 * delta * delta * (t - 4.0/29.0)
}
