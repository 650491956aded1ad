package config

// Backend selects which of the four tracing algorithms produces paths.
type Backend int

const (
	// BackendEdge traces gradient edges into open, stroked polylines.
	BackendEdge Backend = iota
	// BackendCenterline skeletonizes filled shapes into 1px centerlines.
	BackendCenterline
	// BackendSuperpixel partitions the image into SLIC superpixels and
	// traces their boundaries.
	BackendSuperpixel
	// BackendDots places gradient-weighted dots (stippling).
	BackendDots
)

// String implements fmt.Stringer.
func (b Backend) String() string {
	switch b {
	case BackendEdge:
		return "edge"
	case BackendCenterline:
		return "centerline"
	case BackendSuperpixel:
		return "superpixel"
	case BackendDots:
		return "dots"
	default:
		return "unknown"
	}
}

// MarshalYAML implements yaml.Marshaler.
func (b Backend) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// MarshalJSON implements json.Marshaler.
func (b Backend) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func backendFromString(s string) (Backend, bool) {
	switch s {
	case "edge":
		return BackendEdge, true
	case "centerline":
		return BackendCenterline, true
	case "superpixel":
		return BackendSuperpixel, true
	case "dots":
		return BackendDots, true
	default:
		return 0, false
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Backend) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, ok := backendFromString(s)
	if !ok {
		return &unknownEnumError{field: "backend", value: s}
	}
	*b = v
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Backend) UnmarshalJSON(data []byte) error {
	s, err := unquote(data)
	if err != nil {
		return err
	}
	v, ok := backendFromString(s)
	if !ok {
		return &unknownEnumError{field: "backend", value: s}
	}
	*b = v
	return nil
}

// BackgroundRemovalMode selects the background classification algorithm.
type BackgroundRemovalMode int

const (
	BackgroundOff BackgroundRemovalMode = iota
	BackgroundOtsu
	BackgroundAdaptive
	BackgroundAuto
)

func (m BackgroundRemovalMode) String() string {
	switch m {
	case BackgroundOff:
		return "off"
	case BackgroundOtsu:
		return "otsu"
	case BackgroundAdaptive:
		return "adaptive"
	case BackgroundAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// HandDrawnPreset names a bundle of tremor/variable-weight/tapering values.
type HandDrawnPreset int

const (
	HandDrawnOff HandDrawnPreset = iota
	HandDrawnSubtle
	HandDrawnMedium
	HandDrawnStrong
	HandDrawnSketchy
	// HandDrawnCustom marks that the caller supplied raw overrides rather
	// than selecting a named bundle.
	HandDrawnCustom
)

func (p HandDrawnPreset) String() string {
	switch p {
	case HandDrawnOff:
		return "off"
	case HandDrawnSubtle:
		return "subtle"
	case HandDrawnMedium:
		return "medium"
	case HandDrawnStrong:
		return "strong"
	case HandDrawnSketchy:
		return "sketchy"
	case HandDrawnCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// ThinningAlgorithm selects the skeletonization operator used by the
// centerline backend.
type ThinningAlgorithm int

const (
	ThinningGuoHall ThinningAlgorithm = iota
	ThinningZhangSuen
)

// DotSizing selects how dot radius is derived.
type DotSizing int

const (
	DotSizingFixed DotSizing = iota
	DotSizingAdaptive
	DotSizingGradient
)

type unknownEnumError struct {
	field string
	value string
}

func (e *unknownEnumError) Error() string {
	return "config: unknown " + e.field + " value " + quote(e.value)
}

func quote(s string) string { return `"` + s + `"` }

func unquote(data []byte) (string, error) {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		return string(data[1 : len(data)-1]), nil
	}
	return string(data), nil
}
