package raster

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/go-vectorize/vectorize/pkg/quantize"
	"github.com/go-vectorize/vectorize/pkg/verror"
)

// PreprocessOptions mirrors the subset of config needed by Preprocess,
// decoupled from pkg/config to avoid a dependency cycle (pkg/config never
// needs to know about rasters).
type PreprocessOptions struct {
	MaxImageSize int

	Denoise bool

	BackgroundRemoval       BackgroundMode
	BackgroundRemovalStrength float64

	TargetColors int
	MasterSeed   uint64
}

// BackgroundMode mirrors config.BackgroundRemovalMode without importing it.
type BackgroundMode int

const (
	BackgroundOff BackgroundMode = iota
	BackgroundOtsu
	BackgroundAdaptive
	BackgroundAuto
)

// Result is the output of Preprocess: the transformed raster plus the scale
// factor that must be applied to invert downstream coordinates back to the
// original image's pixel space.
type Result struct {
	Raster     *Raster
	ScaleFactor float64 // output_px * ScaleFactor == original_px
	Palette    []Color
}

// Preprocess runs resize, denoise, background removal, and color
// quantization in the fixed order the algorithm requires.
func Preprocess(r *Raster, opt PreprocessOptions) (*Result, error) {
	cur := r
	scale := 1.0

	if m := max(cur.Width, cur.Height); opt.MaxImageSize > 0 && m > opt.MaxImageSize {
		factor := float64(opt.MaxImageSize) / float64(m)
		newW := int(math.Round(float64(cur.Width) * factor))
		newH := int(math.Round(float64(cur.Height) * factor))
		if newW < 1 || newH < 1 {
			return nil, verror.NewTracingFailed("resize collapsed image to zero size")
		}
		resized := imaging.Resize(cur.ToNRGBA(), newW, newH, imaging.Lanczos)
		next, err := FromNRGBA(resized)
		if err != nil {
			return nil, err
		}
		cur = next
		// scale maps output pixels back to the original: original = output / factor.
		scale = 1.0 / factor
	}

	if opt.Denoise {
		cur = denoise(cur)
	}

	if opt.BackgroundRemoval != BackgroundOff {
		cur = removeBackground(cur, opt.BackgroundRemoval, opt.BackgroundRemovalStrength)
	}

	var palette []Color
	if opt.TargetColors > 0 {
		p, quantized, err := quantize.Quantize(cur.Pix, cur.Width, cur.Height, opt.TargetColors, opt.MasterSeed)
		if err != nil {
			return nil, err
		}
		cur = &Raster{Width: cur.Width, Height: cur.Height, Pix: quantized}
		palette = make([]Color, len(p))
		for i, c := range p {
			palette[i] = Color{R: c.R, G: c.G, B: c.B, A: 1.0}
		}
	}

	return &Result{Raster: cur, ScaleFactor: scale, Palette: palette}, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// denoise applies a bilateral filter over a full 7x7 window to RGB channels
// only; alpha passes through unmodified. Spatial sigma (2.0 px) and range
// sigma (14) are fixed values inside their documented ranges.
func denoise(r *Raster) *Raster {
	const (
		radius       = 3
		spatialSigma = 2.0
		rangeSigma   = 14.0
	)
	out := r.Clone()
	spatialWeights := make([]float64, 2*radius+1)
	for i := -radius; i <= radius; i++ {
		spatialWeights[i+radius] = math.Exp(-float64(i*i) / (2 * spatialSigma * spatialSigma))
	}

	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			_, _, _, a0 := r.At(x, y)
			if a0 == 0 {
				continue
			}
			cr, cg, cb, _ := r.At(x, y)
			var sumR, sumG, sumB, sumW float64
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= r.Height {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= r.Width {
						continue
					}
					nr, ng, nb, na := r.At(nx, ny)
					if na == 0 {
						continue
					}
					rangeDist := colorDist(cr, cg, cb, nr, ng, nb)
					w := spatialWeights[dx+radius] * spatialWeights[dy+radius] *
						math.Exp(-rangeDist*rangeDist/(2*rangeSigma*rangeSigma))
					sumR += w * float64(nr)
					sumG += w * float64(ng)
					sumB += w * float64(nb)
					sumW += w
				}
			}
			if sumW <= 0 {
				continue
			}
			out.Set(x, y, uint8(sumR/sumW), uint8(sumG/sumW), uint8(sumB/sumW), a0)
		}
	}
	return out
}

func colorDist(r1, g1, b1, r2, g2, b2 uint8) float64 {
	dr := float64(r1) - float64(r2)
	dg := float64(g1) - float64(g2)
	db := float64(b1) - float64(b2)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// removeBackground classifies background pixels by Otsu or adaptive local
// mean thresholding on luminance and zeroes them (RGBA 255,255,255,0).
func removeBackground(r *Raster, mode BackgroundMode, strength float64) *Raster {
	lum := luminanceGrid(r)

	if mode == BackgroundAuto {
		if stdDev(lum) > 45 {
			mode = BackgroundAdaptive
		} else {
			mode = BackgroundOtsu
		}
	}

	out := r.Clone()
	strength = clamp01(strength)

	switch mode {
	case BackgroundOtsu:
		threshold := otsuThreshold(lum)
		threshold -= strength * 40 // biases the cut downward as strength -> 1
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				if float64(lum[y*r.Width+x]) > threshold {
					out.Set(x, y, 255, 255, 255, 0)
				}
			}
		}
	case BackgroundAdaptive:
		window := clampOdd(min(r.Width, r.Height)/20, 15, 51)
		half := window / 2
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				localMean := windowMean(lum, r.Width, r.Height, x, y, half)
				k := 0.15 + strength*0.35
				cut := localMean * (1 - k)
				if float64(lum[y*r.Width+x]) >= cut {
					out.Set(x, y, 255, 255, 255, 0)
				}
			}
		}
	}
	return out
}

func luminanceGrid(r *Raster) []uint8 {
	g := make([]uint8, r.Width*r.Height)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			rr, gg, bb, a := r.At(x, y)
			if a == 0 {
				g[y*r.Width+x] = 255
				continue
			}
			lum := 0.299*float64(rr) + 0.587*float64(gg) + 0.114*float64(bb)
			g[y*r.Width+x] = uint8(lum)
		}
	}
	return g
}

func otsuThreshold(gray []uint8) float64 {
	var hist [256]int
	for _, v := range gray {
		hist[v]++
	}
	total := len(gray)
	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}
	var sumB, wB float64
	var maxVar float64
	threshold := 0.0
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = float64(t)
		}
	}
	return threshold
}

func windowMean(gray []uint8, w, h, cx, cy, half int) float64 {
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

func stdDev(gray []uint8) float64 {
	var sum float64
	for _, v := range gray {
		sum += float64(v)
	}
	mean := sum / float64(len(gray))
	var sq float64
	for _, v := range gray {
		d := float64(v) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(gray)))
}

func clampOdd(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	if v%2 == 0 {
		v++
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Analyze derives a cheap ImageAnalysis summary used by RecommendedBackend.
func Analyze(r *Raster) ImageAnalysis {
	lum := luminanceGrid(r)
	seen := make(map[[3]uint8]struct{}, 256)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			rr, gg, bb, a := r.At(x, y)
			if a == 0 {
				continue
			}
			seen[[3]uint8{rr, gg, bb}] = struct{}{}
			if len(seen) > 4096 {
				break
			}
		}
	}

	edgePixels := sobelEdgeCount(lum, r.Width, r.Height)
	density := float64(edgePixels) / float64(r.Width*r.Height)

	var black, white int
	for _, v := range lum {
		if v < 32 {
			black++
		} else if v > 223 {
			white++
		}
	}
	bilevel := float64(black+white)/float64(len(lum)) > 0.9

	return ImageAnalysis{
		DominantColorCount: len(seen),
		Bilevel:            bilevel,
		EdgeDensity:        density,
		Photographic:       len(seen) > 256 && !bilevel,
	}
}

func sobelEdgeCount(gray []uint8, w, h int) int {
	count := 0
	get := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return float64(gray[y*w+x])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -get(x-1, y-1) - 2*get(x-1, y) - get(x-1, y+1) +
				get(x+1, y-1) + 2*get(x+1, y) + get(x+1, y+1)
			gy := -get(x-1, y-1) - 2*get(x, y-1) - get(x+1, y-1) +
				get(x-1, y+1) + 2*get(x, y+1) + get(x+1, y+1)
			mag := math.Sqrt(gx*gx + gy*gy)
			if mag > 100 {
				count++
			}
		}
	}
	return count
}
