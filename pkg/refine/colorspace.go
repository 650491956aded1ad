package refine

import "math"

// rgbToLab converts sRGB (D65) to CIE Lab. Duplicated from pkg/quantize and
// pkg/trace rather than shared; see DESIGN.md for why.
func rgbToLab(r, g, b uint8) (l, a, bb float64) {
	rl := srgbToLinear(float64(r) / 255)
	gl := srgbToLinear(float64(g) / 255)
	bl := srgbToLinear(float64(b) / 255)

	x := rl*0.4124564 + gl*0.3575761 + bl*0.1804375
	y := rl*0.2126729 + gl*0.7151522 + bl*0.0721750
	z := rl*0.0193339 + gl*0.1191920 + bl*0.9503041

	const xn, yn, zn = 0.95047, 1.0, 1.08883
	fx, fy, fz := labF(x/xn), labF(y/yn), labF(z/zn)

	l = 116*fy - 16
	a = 500 * (fx - fy)
	bb = 200 * (fy - fz)
	return
}

func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}
