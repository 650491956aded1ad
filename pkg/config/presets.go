package config

import "github.com/go-vectorize/vectorize/pkg/verror"

// Preset builds a validated Config from a named factory. Unknown names fail
// with verror.InvalidPreset.
func Preset(name string) (*Config, error) {
	switch name {
	case "line_art":
		return LineArt()
	case "sketch":
		return Sketch()
	case "technical":
		return Technical()
	case "stippling":
		return Stippling()
	case "pointillism":
		return Pointillism()
	default:
		return nil, verror.NewInvalidPreset(name)
	}
}

// LineArt favors clean, high-detail edges with no stylization: comics,
// logos, line drawings.
func LineArt() (*Config, error) {
	return NewBuilder(BackendEdge).
		Detail(0.6).
		StrokeWidth(1.2).
		NoiseFiltering(false).
		Build()
}

// Sketch produces a loose, hand-drawn rendering suited to concept art.
func Sketch() (*Config, error) {
	b := NewBuilder(BackendCenterline).
		Detail(0.45).
		StrokeWidth(1.8).
		NoiseFiltering(true)
	b = b.HandDrawnPresetOption(HandDrawnMedium, nil, nil, nil, 1)
	return b.Build()
}

// Technical produces crisp, precise centerlines for schematics/blueprints.
func Technical() (*Config, error) {
	return NewBuilder(BackendCenterline).
		Detail(0.7).
		StrokeWidth(1.0).
		NoiseFiltering(true).
		Build()
}

// Stippling renders the image as coarse, salience-weighted dots.
func Stippling() (*Config, error) {
	cfg := DefaultDotConfig()
	cfg.DensityThreshold = 0.25
	cfg.MinRadius = 0.8
	cfg.MaxRadius = 4.0
	return NewBuilder(BackendDots).
		Detail(0.5).
		Dots(cfg).
		Build()
}

// Pointillism renders the image as fine, dense, adaptively-sized dots.
func Pointillism() (*Config, error) {
	cfg := DefaultDotConfig()
	cfg.DensityThreshold = 0.45
	cfg.MinRadius = 0.3
	cfg.MaxRadius = 1.5
	cfg.Sizing = DotSizingAdaptive
	return NewBuilder(BackendDots).
		Detail(0.6).
		Dots(cfg).
		Build()
}
