package trace

import (
	"testing"

	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkerboard(w, h, cell int) *raster.Raster {
	pix := make([]uint8, 4*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			black := ((x/cell)+(y/cell))%2 == 0
			v := uint8(255)
			if black {
				v = 0
			}
			pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = v, v, v, 255
		}
	}
	r, _ := raster.NewRaster(w, h, pix)
	return r
}

func solidDisk(w, h, radius int) *raster.Raster {
	pix := make([]uint8, 4*w*h)
	cx, cy := w/2, h/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			dx, dy := x-cx, y-cy
			v := uint8(255)
			if dx*dx+dy*dy <= radius*radius {
				v = 0
			}
			pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = v, v, v, 255
		}
	}
	r, _ := raster.NewRaster(w, h, pix)
	return r
}

func TestTraceEdges_ChessboardProducesPolylines(t *testing.T) {
	r := checkerboard(80, 80, 20)
	polys, err := TraceEdges(r, EdgeConfig{Detail: 0.4})
	require.NoError(t, err)
	assert.NotEmpty(t, polys)
	for _, p := range polys {
		for _, pt := range p.Points {
			assert.GreaterOrEqual(t, pt.X, -1.0)
			assert.LessOrEqual(t, pt.X, float64(r.Width)+1)
		}
	}
}

func TestTraceEdges_ZeroSizedFails(t *testing.T) {
	r := &raster.Raster{Width: 0, Height: 0}
	_, err := TraceEdges(r, EdgeConfig{Detail: 0.5})
	require.Error(t, err)
}

func TestTraceCenterlines_DiskProducesSkeleton(t *testing.T) {
	r := solidDisk(120, 120, 40)
	polys, err := TraceCenterlines(r, CenterlineConfig{
		WindowSize: 15, Sensitivity: 0.15, NoiseFiltering: true,
		Thinning: ThinningGuoHall, CurvatureSensitivity: 0.5, BaseEpsilon: 1.0,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, polys)
}

func TestSegmentSuperpixels_EmitsClosedRegions(t *testing.T) {
	r := checkerboard(60, 60, 10)
	polys, err := SegmentSuperpixels(r, SuperpixelConfig{NumSuperpixels: 36, Compactness: 10, Iterations: 4})
	require.NoError(t, err)
	assert.NotEmpty(t, polys)
	for _, p := range polys {
		assert.True(t, p.Closed(1e-6) || len(p.Points) > 2)
	}
}

func TestMapDots_RespectsMinSpacing(t *testing.T) {
	w, h := 60, 60
	pix := make([]uint8, 4*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			v := uint8(x * 255 / w)
			pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = v, v, v, 255
		}
	}
	r, err := raster.NewRaster(w, h, pix)
	require.NoError(t, err)

	dots, err := MapDots(r, DotConfig{DensityThreshold: 0.3, MinRadius: 0.5, MaxRadius: 3.0, MinSpacing: 2.0, Sizing: DotSizingAdaptive})
	require.NoError(t, err)
	for i := range dots {
		for j := i + 1; j < len(dots); j++ {
			dx := dots[i].X - dots[j].X
			dy := dots[i].Y - dots[j].Y
			dist := dx*dx + dy*dy
			assert.GreaterOrEqual(t, dist, 2.0*2.0-1e-6)
		}
	}
}

func TestDedupPolylines_MergesNearDuplicates(t *testing.T) {
	a, _ := raster.NewPolyline([]raster.Point{{0, 0}, {10, 0}})
	b, _ := raster.NewPolyline([]raster.Point{{0, 0.5}, {10, 0.5}})
	out := dedupPolylines([]*raster.Polyline{a, b})
	assert.Len(t, out, 1)
}
