package raster

import "image"

// ToNRGBA converts a Raster to a standard library *image.NRGBA with
// min-point at (0, 0), for handoff to resize/rasterize libraries.
func (r *Raster) ToNRGBA() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	copy(dst.Pix, r.Pix)
	return dst
}

// FromNRGBA converts a standard library NRGBA image back to a Raster,
// re-packing rows if the source has non-trivial stride or offset.
func FromNRGBA(img *image.NRGBA) (*Raster, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, 4*w*h)
	for y := 0; y < h; y++ {
		srcOff := (y)*img.Stride
		dstOff := y * 4 * w
		copy(pix[dstOff:dstOff+4*w], img.Pix[srcOff:srcOff+4*w])
	}
	return NewRaster(w, h, pix)
}
