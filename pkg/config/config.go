// Package config implements the immutable, validated parameter bundle (C1)
// that every other pipeline stage consumes by shared reference.
//
// A Config is never mutated after Build returns; every field that would
// otherwise need a setter goes through the Builder instead, which validates
// on each call and again at Build, the same contract the algorithms in
// pkg/trace and pkg/pathfit rely on to skip their own range checks.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-vectorize/vectorize/pkg/verror"
	"gopkg.in/yaml.v3"
)

// EdgeConfig holds EdgeTracer-specific parameters (C3).
type EdgeConfig struct {
	DirectionalStrengthThreshold float64 `yaml:"directionalStrengthThreshold" json:"directionalStrengthThreshold"`
	MaxProcessingTimeMs          int     `yaml:"maxProcessingTimeMs" json:"maxProcessingTimeMs"`
	ReversedPass                 bool    `yaml:"reversedPass" json:"reversedPass"`
	DiagonalPass                 bool    `yaml:"diagonalPass" json:"diagonalPass"`
}

// DefaultEdgeConfig returns the spec's suggested defaults for the edge backend.
func DefaultEdgeConfig() EdgeConfig {
	return EdgeConfig{
		DirectionalStrengthThreshold: 0.3,
		MaxProcessingTimeMs:          1500,
	}
}

// CenterlineConfig holds CenterlineTracer-specific parameters (C4).
type CenterlineConfig struct {
	WindowSize           int               `yaml:"windowSize" json:"windowSize"`
	Sensitivity          float64           `yaml:"sensitivity" json:"sensitivity"`
	Thinning             ThinningAlgorithm `yaml:"-" json:"-"`
	CurvatureSensitivity float64           `yaml:"curvatureSensitivity" json:"curvatureSensitivity"`
}

// DefaultCenterlineConfig returns sane defaults for the centerline backend.
func DefaultCenterlineConfig() CenterlineConfig {
	return CenterlineConfig{
		WindowSize:           15,
		Sensitivity:          0.15,
		Thinning:             ThinningGuoHall,
		CurvatureSensitivity: 0.5,
	}
}

// SuperpixelConfig holds SuperpixelSegmenter-specific parameters (C5).
type SuperpixelConfig struct {
	NumSuperpixels    int     `yaml:"numSuperpixels" json:"numSuperpixels"`
	Compactness       float64 `yaml:"compactness" json:"compactness"`
	Iterations        int     `yaml:"iterations" json:"iterations"`
	EnforceRAGMerge   bool    `yaml:"enforceRagMerge" json:"enforceRagMerge"`
	RAGGranularityK   float64 `yaml:"ragGranularityK" json:"ragGranularityK"`
	DeltaEMergeThresh float64 `yaml:"deltaEMergeThreshold" json:"deltaEMergeThreshold"`
}

// DefaultSuperpixelConfig returns sane defaults for the superpixel backend.
func DefaultSuperpixelConfig() SuperpixelConfig {
	return SuperpixelConfig{
		NumSuperpixels:    400,
		Compactness:       10,
		Iterations:        10,
		EnforceRAGMerge:   false,
		RAGGranularityK:   300,
		DeltaEMergeThresh: 4,
	}
}

// DotConfig holds DotMapper-specific parameters (C6).
type DotConfig struct {
	DensityThreshold float64   `yaml:"densityThreshold" json:"densityThreshold"`
	MinRadius        float64   `yaml:"minRadius" json:"minRadius"`
	MaxRadius        float64   `yaml:"maxRadius" json:"maxRadius"`
	MinSpacing       float64   `yaml:"minSpacing" json:"minSpacing"`
	Sizing           DotSizing `yaml:"-" json:"-"`
	GridMode         bool      `yaml:"gridMode" json:"gridMode"`
}

// DefaultDotConfig returns sane defaults for the dots backend.
func DefaultDotConfig() DotConfig {
	return DotConfig{
		DensityThreshold: 0.3,
		MinRadius:        0.5,
		MaxRadius:        3.0,
		MinSpacing:       2.0,
		Sizing:           DotSizingAdaptive,
	}
}

// HandDrawnConfig holds hand-drawn stylization parameters (C7 stylize stage).
type HandDrawnConfig struct {
	Preset            HandDrawnPreset `yaml:"-" json:"-"`
	Tremor            float64         `yaml:"tremor" json:"tremor"`
	VariableWeights   float64         `yaml:"variableWeights" json:"variableWeights"`
	Tapering          float64         `yaml:"tapering" json:"tapering"`
	Seed              uint64          `yaml:"seed" json:"seed"`
}

// handDrawnBaseline returns the fixed (tremor, variableWeights, tapering)
// triple for a named preset. Ok is false for HandDrawnOff/HandDrawnCustom.
func handDrawnBaseline(p HandDrawnPreset) (tremor, weights, tapering float64, ok bool) {
	switch p {
	case HandDrawnSubtle:
		return 0.05, 0.15, 0.10, true
	case HandDrawnMedium:
		return 0.10, 0.30, 0.20, true
	case HandDrawnStrong:
		return 0.35, 0.80, 0.60, true
	case HandDrawnSketchy:
		return 0.50, 1.00, 0.70, true
	default:
		return 0, 0, 0, false
	}
}

// RefineConfig holds RefinementLoop and TileErrorAnalyzer parameters (C10/C11).
type RefineConfig struct {
	Enabled               bool    `yaml:"enabled" json:"enabled"`
	TileSize              int     `yaml:"tileSize" json:"tileSize"`
	TargetDeltaE          float64 `yaml:"targetDeltaE" json:"targetDeltaE"`
	TargetSSIM            float64 `yaml:"targetSsim" json:"targetSsim"`
	MaxTilesPerIteration  int     `yaml:"maxTilesPerIteration" json:"maxTilesPerIteration"`
	MaxIterations         int     `yaml:"maxIterations" json:"maxIterations"`
	MaxTimeMs             int     `yaml:"maxTimeMs" json:"maxTimeMs"`
	ErrorPlateauThreshold float64 `yaml:"errorPlateauThreshold" json:"errorPlateauThreshold"`
}

// DefaultRefineConfig returns the spec's suggested refinement defaults.
func DefaultRefineConfig() RefineConfig {
	return RefineConfig{
		Enabled:               false,
		TileSize:              32,
		TargetDeltaE:          4,
		TargetSSIM:            0.92,
		MaxTilesPerIteration:  5,
		MaxIterations:         2,
		MaxTimeMs:             600,
		ErrorPlateauThreshold: 0.5,
	}
}

// Config is the immutable, validated parameter bundle shared by every
// pipeline stage. Construct one with NewBuilder or one of the Preset
// factories; it is never mutated after Build.
type Config struct {
	Backend Backend `yaml:"-" json:"-"`

	Detail          float64 `yaml:"detail" json:"detail"`
	StrokePxAt1080p float64 `yaml:"strokePxAt1080p" json:"strokePxAt1080p"`
	MaxImageSize    int     `yaml:"maxImageSize" json:"maxImageSize"`
	SvgPrecision    int     `yaml:"svgPrecision" json:"svgPrecision"`

	Multipass          bool     `yaml:"multipass" json:"multipass"`
	ConservativeDetail *float64 `yaml:"conservativeDetail,omitempty" json:"conservativeDetail,omitempty"`
	AggressiveDetail   *float64 `yaml:"aggressiveDetail,omitempty" json:"aggressiveDetail,omitempty"`
	PassCount          int      `yaml:"passCount" json:"passCount"`

	NoiseFiltering bool `yaml:"noiseFiltering" json:"noiseFiltering"`

	BackgroundRemoval         BackgroundRemovalMode `yaml:"-" json:"-"`
	BackgroundRemovalStrength float64               `yaml:"backgroundRemovalStrength" json:"backgroundRemovalStrength"`

	HandDrawn HandDrawnConfig `yaml:"handDrawn" json:"handDrawn"`

	Edge       EdgeConfig       `yaml:"edge" json:"edge"`
	Centerline CenterlineConfig `yaml:"centerline" json:"centerline"`
	Superpixel SuperpixelConfig `yaml:"superpixel" json:"superpixel"`
	Dots       DotConfig        `yaml:"dots" json:"dots"`

	Refine RefineConfig `yaml:"refine" json:"refine"`

	TargetColors int `yaml:"targetColors" json:"targetColors"`

	// MasterSeed seeds every deterministic sub-RNG (k-means++, SLIC ties)
	// other than the hand-drawn stylizer, which uses HandDrawn.Seed.
	MasterSeed uint64 `yaml:"masterSeed" json:"masterSeed"`
}

// Builder constructs a Config through validated, incremental mutation.
type Builder struct {
	cfg Config
	err error
}

// NewBuilder returns a Builder pre-populated with sane defaults for backend.
func NewBuilder(backend Backend) *Builder {
	return &Builder{cfg: Config{
		Backend:         backend,
		Detail:          0.5,
		StrokePxAt1080p: 1.5,
		MaxImageSize:    4096,
		SvgPrecision:    2,
		PassCount:       1,
		Edge:            DefaultEdgeConfig(),
		Centerline:      DefaultCenterlineConfig(),
		Superpixel:      DefaultSuperpixelConfig(),
		Dots:            DefaultDotConfig(),
		Refine:          DefaultRefineConfig(),
		TargetColors:    32,
	}}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Detail sets the global detail level in [0,1].
func (b *Builder) Detail(v float64) *Builder {
	if v < 0 || v > 1 {
		return b.fail(verror.NewInvalidParameter("detail", "must be in [0.0, 1.0]"))
	}
	b.cfg.Detail = v
	return b
}

// StrokeWidth sets the reference stroke width at 1080p, in [0.1, 50] px.
func (b *Builder) StrokeWidth(px float64) *Builder {
	if px < 0.1 || px > 50.0 {
		return b.fail(verror.NewInvalidParameter("stroke_px_at_1080p", "must be in [0.1, 50.0]"))
	}
	b.cfg.StrokePxAt1080p = px
	return b
}

// MaxImageSize sets the resize ceiling, in [512, 8192] px.
func (b *Builder) MaxImageSize(v int) *Builder {
	if v < 512 || v > 8192 {
		return b.fail(verror.NewInvalidParameter("max_image_size", "must be in [512, 8192]"))
	}
	b.cfg.MaxImageSize = v
	return b
}

// SvgPrecision sets the number of fractional digits emitted, in [0,4].
func (b *Builder) SvgPrecision(v int) *Builder {
	if v < 0 || v > 4 {
		return b.fail(verror.NewInvalidParameter("svg_precision", "must be in [0, 4]"))
	}
	b.cfg.SvgPrecision = v
	return b
}

// MultipassOption configures the two-pass conservative/aggressive edge run.
func (b *Builder) MultipassOption(enabled bool, conservative, aggressive *float64, passCount int) *Builder {
	if passCount < 1 || passCount > 10 {
		return b.fail(verror.NewInvalidParameter("pass_count", "must be in [1, 10]"))
	}
	for _, d := range []*float64{conservative, aggressive} {
		if d != nil && (*d < 0 || *d > 1) {
			return b.fail(verror.NewInvalidParameter("conservative/aggressive detail", "must be in [0.0, 1.0]"))
		}
	}
	b.cfg.Multipass = enabled
	b.cfg.ConservativeDetail = conservative
	b.cfg.AggressiveDetail = aggressive
	b.cfg.PassCount = passCount
	return b
}

// NoiseFiltering toggles the denoise preprocessing step.
func (b *Builder) NoiseFiltering(enabled bool) *Builder {
	b.cfg.NoiseFiltering = enabled
	return b
}

// BackgroundRemoval configures background classification and its strength.
func (b *Builder) BackgroundRemoval(mode BackgroundRemovalMode, strength float64) *Builder {
	if strength < 0 || strength > 1 {
		return b.fail(verror.NewInvalidParameter("background_removal_strength", "must be in [0.0, 1.0]"))
	}
	b.cfg.BackgroundRemoval = mode
	b.cfg.BackgroundRemovalStrength = strength
	return b
}

// HandDrawnPresetOption selects a named hand-drawn bundle, optionally
// overriding tremor/variableWeights/tapering on top of its baseline.
// Supplying overrides with preset == HandDrawnOff is a ConflictingOptions
// error: the spec requires an explicit preset before custom values apply.
func (b *Builder) HandDrawnPresetOption(preset HandDrawnPreset, tremor, weights, tapering *float64, seed uint64) *Builder {
	if tremor == nil && weights == nil && tapering == nil {
		if preset == HandDrawnOff {
			b.cfg.HandDrawn = HandDrawnConfig{Preset: HandDrawnOff, Seed: seed}
			return b
		}
		baseT, baseW, baseTap, ok := handDrawnBaseline(preset)
		if !ok {
			return b.fail(verror.NewInvalidPreset(preset.String()))
		}
		b.cfg.HandDrawn = HandDrawnConfig{Preset: preset, Tremor: baseT, VariableWeights: baseW, Tapering: baseTap, Seed: seed}
		return b
	}
	if preset == HandDrawnOff {
		return b.fail(verror.NewConflictingOptions("custom hand-drawn values require a preset other than off"))
	}
	baseT, baseW, baseTap, ok := handDrawnBaseline(preset)
	if !ok {
		return b.fail(verror.NewInvalidPreset(preset.String()))
	}
	if tremor != nil {
		baseT = *tremor
	}
	if weights != nil {
		baseW = *weights
	}
	if tapering != nil {
		baseTap = *tapering
	}
	if baseT < 0 || baseT > 0.5 {
		return b.fail(verror.NewInvalidParameter("tremor", "must be in [0.0, 0.5]"))
	}
	if baseW < 0 || baseW > 1 {
		return b.fail(verror.NewInvalidParameter("variable_weights", "must be in [0.0, 1.0]"))
	}
	if baseTap < 0 || baseTap > 1 {
		return b.fail(verror.NewInvalidParameter("tapering", "must be in [0.0, 1.0]"))
	}
	b.cfg.HandDrawn = HandDrawnConfig{Preset: HandDrawnCustom, Tremor: baseT, VariableWeights: baseW, Tapering: baseTap, Seed: seed}
	return b
}

// MasterSeed sets the deterministic seed for k-means/SLIC tie-breaking.
func (b *Builder) MasterSeed(seed uint64) *Builder {
	b.cfg.MasterSeed = seed
	return b
}

// TargetColors sets the post-merge color quantization target.
func (b *Builder) TargetColors(n int) *Builder {
	if n < 1 {
		return b.fail(verror.NewInvalidParameter("target_colors", "must be >= 1"))
	}
	b.cfg.TargetColors = n
	return b
}

// Edge overrides the edge backend sub-config.
func (b *Builder) Edge(e EdgeConfig) *Builder {
	if e.DirectionalStrengthThreshold < 0 || e.DirectionalStrengthThreshold > 1 {
		return b.fail(verror.NewInvalidParameter("edge.directional_strength_threshold", "must be in [0.0, 1.0]"))
	}
	if e.MaxProcessingTimeMs <= 0 {
		return b.fail(verror.NewInvalidParameter("edge.max_processing_time_ms", "must be > 0"))
	}
	b.cfg.Edge = e
	return b
}

// Centerline overrides the centerline backend sub-config.
func (b *Builder) Centerline(c CenterlineConfig) *Builder {
	if c.WindowSize < 3 || c.WindowSize > 101 || c.WindowSize%2 == 0 {
		return b.fail(verror.NewInvalidParameter("centerline.window_size", "must be an odd integer in [3, 101]"))
	}
	b.cfg.Centerline = c
	return b
}

// Superpixel overrides the superpixel backend sub-config.
func (b *Builder) Superpixel(s SuperpixelConfig) *Builder {
	if s.NumSuperpixels < 4 || s.NumSuperpixels > 10000 {
		return b.fail(verror.NewInvalidParameter("superpixel.num_superpixels", "must be in [4, 10000]"))
	}
	if s.Compactness < 1.0 || s.Compactness > 50.0 {
		return b.fail(verror.NewInvalidParameter("superpixel.compactness", "must be in [1.0, 50.0]"))
	}
	b.cfg.Superpixel = s
	return b
}

// Dots overrides the dots backend sub-config.
func (b *Builder) Dots(d DotConfig) *Builder {
	if d.MinRadius <= 0 || d.MinRadius > d.MaxRadius || d.MaxRadius > 50 {
		return b.fail(verror.NewInvalidParameter("dots.radii", "must satisfy 0 < min <= max <= 50"))
	}
	b.cfg.Dots = d
	return b
}

// Refine overrides the refinement loop sub-config.
func (b *Builder) Refine(r RefineConfig) *Builder {
	if r.TargetSSIM <= 0 || r.TargetSSIM >= 1 {
		return b.fail(verror.NewInvalidParameter("refine.target_ssim", "must be in (0.0, 1.0)"))
	}
	b.cfg.Refine = r
	return b
}

// Build validates the accumulated configuration and returns it, or returns
// the first validation error encountered during construction.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	cfg := b.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate re-checks every field-level invariant; Build always calls it, but
// it is exported so a Config round-tripped through YAML/JSON can be checked
// independently.
func (c *Config) Validate() error {
	if c.Detail < 0 || c.Detail > 1 {
		return verror.NewInvalidParameter("detail", "must be in [0.0, 1.0]")
	}
	if c.StrokePxAt1080p < 0.1 || c.StrokePxAt1080p > 50.0 {
		return verror.NewInvalidParameter("stroke_px_at_1080p", "must be in [0.1, 50.0]")
	}
	if c.MaxImageSize < 512 || c.MaxImageSize > 8192 {
		return verror.NewInvalidParameter("max_image_size", "must be in [512, 8192]")
	}
	if c.SvgPrecision < 0 || c.SvgPrecision > 4 {
		return verror.NewInvalidParameter("svg_precision", "must be in [0, 4]")
	}
	if c.PassCount < 1 || c.PassCount > 10 {
		return verror.NewInvalidParameter("pass_count", "must be in [1, 10]")
	}
	if c.BackgroundRemovalStrength < 0 || c.BackgroundRemovalStrength > 1 {
		return verror.NewInvalidParameter("background_removal_strength", "must be in [0.0, 1.0]")
	}
	if c.HandDrawn.Tremor < 0 || c.HandDrawn.Tremor > 0.5 {
		return verror.NewInvalidParameter("tremor", "must be in [0.0, 0.5]")
	}
	if c.HandDrawn.VariableWeights < 0 || c.HandDrawn.VariableWeights > 1 {
		return verror.NewInvalidParameter("variable_weights", "must be in [0.0, 1.0]")
	}
	if c.HandDrawn.Tapering < 0 || c.HandDrawn.Tapering > 1 {
		return verror.NewInvalidParameter("tapering", "must be in [0.0, 1.0]")
	}
	if c.Dots.MinRadius <= 0 || c.Dots.MinRadius > c.Dots.MaxRadius || c.Dots.MaxRadius > 50 {
		return verror.NewInvalidParameter("dots radii", "must satisfy 0 < min <= max <= 50")
	}
	if c.Superpixel.NumSuperpixels < 4 || c.Superpixel.NumSuperpixels > 10000 {
		return verror.NewInvalidParameter("superpixel count", "must be in [4, 10000]")
	}
	if c.Superpixel.Compactness < 1.0 || c.Superpixel.Compactness > 50.0 {
		return verror.NewInvalidParameter("compactness", "must be in [1.0, 50.0]")
	}
	if c.Centerline.WindowSize < 3 || c.Centerline.WindowSize > 101 || c.Centerline.WindowSize%2 == 0 {
		return verror.NewInvalidParameter("centerline window_size", "must be an odd integer in [3, 101]")
	}
	for _, d := range []*float64{c.ConservativeDetail, c.AggressiveDetail} {
		if d != nil && (*d < 0 || *d > 1) {
			return verror.NewInvalidParameter("conservative/aggressive detail", "must be in [0.0, 1.0]")
		}
	}
	if c.TargetColors < 1 {
		return verror.NewInvalidParameter("target_colors", "must be >= 1")
	}
	if c.Edge.DirectionalStrengthThreshold < 0 || c.Edge.DirectionalStrengthThreshold > 1 || c.Edge.MaxProcessingTimeMs <= 0 {
		return verror.NewInvalidParameter("edge", "directional_strength_threshold must be in [0.0, 1.0] and max_processing_time_ms > 0")
	}
	if c.Refine.TargetSSIM <= 0 || c.Refine.TargetSSIM >= 1 {
		return verror.NewInvalidParameter("refine.target_ssim", "must be in (0.0, 1.0)")
	}
	return nil
}

// ConfigHash returns a stable fingerprint of every field, suitable as the
// configHash input of rng.New. The pipeline's own stages (quantize, stylize)
// pass a nil hash, so their randomness depends only on their seed.
func (c *Config) ConfigHash() []byte {
	buf, _ := json.Marshal(c)
	// The enum fields are tagged json:"-", so they are appended explicitly.
	buf = append(buf, fmt.Sprintf("|%d|%d|%d|%d|%d", int(c.Backend), int(c.BackgroundRemoval),
		int(c.HandDrawn.Preset), int(c.Centerline.Thinning), int(c.Dots.Sizing))...)
	sum := sha256.Sum256(buf)
	return sum[:]
}

// jsonAlias avoids infinite recursion from UnmarshalJSON on Config while
// still rejecting unknown fields.
type jsonAlias Config

// UnmarshalJSON rejects unknown fields, matching the spec's "unknown JSON
// fields are rejected" configuration-surface contract.
func (c *Config) UnmarshalJSON(data []byte) error {
	var alias jsonAlias
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&alias); err != nil {
		return fmt.Errorf("config: decoding json: %w", err)
	}
	*c = Config(alias)
	return nil
}

// LoadYAML reads and validates a Config from a YAML file.
func LoadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := NewBuilder(BackendEdge).cfg
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveYAML writes cfg to path as YAML.
func SaveYAML(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling yaml: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
