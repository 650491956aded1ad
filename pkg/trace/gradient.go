// Package trace implements the four raster-to-path backends: EdgeTracer,
// CenterlineTracer, SuperpixelSegmenter, and DotMapper. All four consume a
// *raster.Raster produced by pkg/raster's preprocessing front-end and emit
// raster.Polyline/raster.Dot geometry for pkg/pathfit to post-process.
package trace

import "math"

var kernelX = [3][3]float64{
	{-1, 0, 1},
	{-2, 0, 2},
	{-1, 0, 1},
}

var kernelY = [3][3]float64{
	{-1, -2, -1},
	{0, 0, 0},
	{1, 2, 1},
}

// gradientField holds per-pixel gradient magnitude and direction (radians,
// [-pi, pi]) over a width x height grayscale grid.
type gradientField struct {
	width, height int
	magnitude     []float64
	direction     []float64
}

// sobelGradient computes gradient magnitude/direction from a grayscale grid
// using the standard 3x3 Sobel kernels, replicating border pixels.
func sobelGradient(gray []uint8, w, h int) gradientField {
	mag := make([]float64, w*h)
	dir := make([]float64, w*h)

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
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := get(x+kx, y+ky)
					gx += v * kernelX[ky+1][kx+1]
					gy += v * kernelY[ky+1][kx+1]
				}
			}
			i := y*w + x
			mag[i] = math.Sqrt(gx*gx + gy*gy)
			dir[i] = math.Atan2(gy, gx)
		}
	}
	return gradientField{width: w, height: h, magnitude: mag, direction: dir}
}

func (g gradientField) at(x, y int) float64 {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return 0
	}
	return g.magnitude[y*g.width+x]
}

// luminance converts straight-alpha RGBA (alpha ignored) to an 8-bit
// luminance grid using the BT.601 weights, matching the rest of the
// pipeline's grayscale conversion.
func luminance(pix []uint8, w, h int) []uint8 {
	out := make([]uint8, w*h)
	for i := 0; i < w*h; i++ {
		r, g, b := pix[4*i], pix[4*i+1], pix[4*i+2]
		lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
		out[i] = uint8(lum)
	}
	return out
}
