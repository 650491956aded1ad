package vectorize

import (
	"testing"

	"github.com/go-vectorize/vectorize/pkg/config"
	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkerboard(w, h int) *raster.Raster {
	pix := make([]uint8, 4*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			v := uint8(0)
			if (x/8+y/8)%2 == 0 {
				v = 255
			}
			pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = v, v, v, 255
		}
	}
	rr, err := raster.NewRaster(w, h, pix)
	if err != nil {
		panic(err)
	}
	return rr
}

func TestVectorize_EdgeBackendProducesSVG(t *testing.T) {
	img := checkerboard(64, 64)
	cfg, err := config.NewBuilder(config.BackendEdge).Detail(0.5).StrokeWidth(1.5).Build()
	require.NoError(t, err)

	result, err := Vectorize(img, cfg)
	require.NoError(t, err)
	assert.Contains(t, result.SVG, "<svg")
	assert.Contains(t, result.SVG, "viewBox=\"0 0 64 64\"")
}

func TestVectorize_DeterministicAcrossRuns(t *testing.T) {
	img := checkerboard(48, 48)
	cfg, err := config.NewBuilder(config.BackendCenterline).MasterSeed(42).Build()
	require.NoError(t, err)

	r1, err := Vectorize(img, cfg)
	require.NoError(t, err)
	r2, err := Vectorize(img, cfg)
	require.NoError(t, err)
	assert.Equal(t, r1.SVG, r2.SVG)
}

func TestVectorize_SuperpixelBackendProducesFillPaths(t *testing.T) {
	img := checkerboard(40, 40)
	cfg, err := config.NewBuilder(config.BackendSuperpixel).Build()
	require.NoError(t, err)

	result, err := Vectorize(img, cfg)
	require.NoError(t, err)
	assert.Contains(t, result.SVG, "fill:")
}

func TestVectorize_DotsBackendProducesCircles(t *testing.T) {
	img := checkerboard(40, 40)
	cfg, err := config.NewBuilder(config.BackendDots).Build()
	require.NoError(t, err)

	result, err := Vectorize(img, cfg)
	require.NoError(t, err)
	assert.Contains(t, result.SVG, "<circle")
}

func TestVectorize_InvalidConfigFails(t *testing.T) {
	img := checkerboard(10, 10)
	cfg, err := config.NewBuilder(config.BackendEdge).Detail(1.5).Build()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	_ = img
}

func TestVectorize_RefinementRunsWhenEnabled(t *testing.T) {
	img := checkerboard(40, 40)
	refineCfg := config.DefaultRefineConfig()
	refineCfg.Enabled = true
	refineCfg.MaxIterations = 1
	refineCfg.MaxTimeMs = 500
	cfg, err := config.NewBuilder(config.BackendSuperpixel).Build()
	require.NoError(t, err)
	cfg.Refine = refineCfg

	result, err := Vectorize(img, cfg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Refine.Iterations, 0)
}

func TestVectorize_HandDrawnSeedChangesSVG(t *testing.T) {
	img := checkerboard(48, 48)
	build := func(seed uint64) *config.Config {
		cfg, err := config.NewBuilder(config.BackendEdge).
			HandDrawnPresetOption(config.HandDrawnMedium, nil, nil, nil, seed).
			Build()
		require.NoError(t, err)
		return cfg
	}

	r43, err := Vectorize(img, build(43))
	require.NoError(t, err)
	r44, err := Vectorize(img, build(44))
	require.NoError(t, err)

	assert.NotEqual(t, r43.SVG, r44.SVG, "a different hand-drawn seed must change the jittered/variable-width output")
}

func TestVectorize_HandDrawnStylizationAltersUnstylizedOutput(t *testing.T) {
	img := checkerboard(48, 48)
	plain, err := config.NewBuilder(config.BackendEdge).Build()
	require.NoError(t, err)
	stylized, err := config.NewBuilder(config.BackendEdge).
		HandDrawnPresetOption(config.HandDrawnMedium, nil, nil, nil, 7).
		Build()
	require.NoError(t, err)

	plainResult, err := Vectorize(img, plain)
	require.NoError(t, err)
	stylizedResult, err := Vectorize(img, stylized)
	require.NoError(t, err)

	assert.NotEqual(t, plainResult.SVG, stylizedResult.SVG, "hand-drawn stylization must have a visible effect on the emitted SVG")
}

func TestVectorize_PresetsProduceValidSVG(t *testing.T) {
	img := checkerboard(32, 32)
	for _, name := range []string{"line_art", "sketch", "technical", "stippling", "pointillism"} {
		cfg, err := config.Preset(name)
		require.NoError(t, err, name)
		result, err := Vectorize(img, cfg)
		require.NoError(t, err, name)
		assert.Contains(t, result.SVG, "</svg>", name)
	}
}
