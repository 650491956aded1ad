// Package verror defines the single error taxonomy shared by every pipeline
// stage, so callers can switch on one Kind instead of chasing per-package
// sentinel errors.
package verror

import "fmt"

// Kind enumerates the error taxonomy from the vectorization specification.
type Kind int

const (
	// InvalidParameter marks a configuration validation failure.
	InvalidParameter Kind = iota
	// InvalidPreset marks an unknown preset name.
	InvalidPreset
	// ConflictingOptions marks mutually exclusive option combinations.
	ConflictingOptions
	// InvalidDimensions marks a raster whose dimensions are zero, too
	// large, or disproportionate.
	InvalidDimensions
	// InsufficientData marks a buffer shorter than its declared length.
	InsufficientData
	// ClusteringFailed marks a k-means run that could not seed k centers.
	ClusteringFailed
	// NoRegionsFound marks a segmentation that produced zero regions.
	NoRegionsFound
	// DegenerateGeometry marks inputs a fit/simplify routine cannot handle,
	// e.g. collinear samples.
	DegenerateGeometry
	// NumericalOverflow marks an arithmetic overflow guard tripping.
	NumericalOverflow
	// MemoryLimitExceeded marks an allocator refusal.
	MemoryLimitExceeded
	// Timeout marks an external hard wall-clock cap being exceeded.
	Timeout
	// UnsupportedFormat is reserved for callers extending format support.
	UnsupportedFormat
	// RasterError marks a failure surfaced by the Rasterizer interface.
	RasterError
	// TracingFailed marks a numerically degenerate tracer input.
	TracingFailed
)

func (k Kind) String() string {
	switch k {
	case InvalidParameter:
		return "InvalidParameter"
	case InvalidPreset:
		return "InvalidPreset"
	case ConflictingOptions:
		return "ConflictingOptions"
	case InvalidDimensions:
		return "InvalidDimensions"
	case InsufficientData:
		return "InsufficientData"
	case ClusteringFailed:
		return "ClusteringFailed"
	case NoRegionsFound:
		return "NoRegionsFound"
	case DegenerateGeometry:
		return "DegenerateGeometry"
	case NumericalOverflow:
		return "NumericalOverflow"
	case MemoryLimitExceeded:
		return "MemoryLimitExceeded"
	case Timeout:
		return "Timeout"
	case UnsupportedFormat:
		return "UnsupportedFormat"
	case RasterError:
		return "RasterError"
	case TracingFailed:
		return "TracingFailed"
	default:
		return "Unknown"
	}
}

// Error is the sum type propagated by every pipeline stage.
type Error struct {
	Kind    Kind
	Details map[string]string
	// Cause optionally wraps an underlying error (e.g. from the Rasterizer
	// interface or an io failure during config loading).
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.detailString(), e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.detailString())
}

func (e *Error) detailString() string {
	if len(e.Details) == 0 {
		return ""
	}
	// Deterministic ordering matters for golden-output tests; field is the
	// conventional primary key.
	if field, ok := e.Details["field"]; ok {
		if reason, ok := e.Details["reason"]; ok {
			return fmt.Sprintf("field=%s reason=%s", field, reason)
		}
	}
	out := ""
	for _, k := range []string{"field", "name", "details", "reason", "expected", "actual", "operation", "seconds", "format"} {
		if v, ok := e.Details[k]; ok {
			if out != "" {
				out += " "
			}
			out += k + "=" + v
		}
	}
	return out
}

// Unwrap supports errors.Is/errors.As against the wrapped Cause.
func (e *Error) Unwrap() error { return e.Cause }

// Recoverable reports whether the caller may retry with different
// parameters rather than aborting the whole call.
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case ClusteringFailed, NoRegionsFound, DegenerateGeometry, ConflictingOptions, InvalidParameter, InvalidPreset, TracingFailed:
		return true
	default:
		return false
	}
}

func newErr(k Kind, details map[string]string) *Error {
	return &Error{Kind: k, Details: details}
}

// NewInvalidParameter builds an InvalidParameter error.
func NewInvalidParameter(field, reason string) *Error {
	return newErr(InvalidParameter, map[string]string{"field": field, "reason": reason})
}

// NewInvalidPreset builds an InvalidPreset error.
func NewInvalidPreset(name string) *Error {
	return newErr(InvalidPreset, map[string]string{"name": name})
}

// NewConflictingOptions builds a ConflictingOptions error.
func NewConflictingOptions(details string) *Error {
	return newErr(ConflictingOptions, map[string]string{"details": details})
}

// NewInvalidDimensions builds an InvalidDimensions error.
func NewInvalidDimensions(w, h int, reason string) *Error {
	return newErr(InvalidDimensions, map[string]string{
		"w": fmt.Sprint(w), "h": fmt.Sprint(h), "reason": reason,
	})
}

// NewInsufficientData builds an InsufficientData error.
func NewInsufficientData(expected, actual int) *Error {
	return newErr(InsufficientData, map[string]string{
		"expected": fmt.Sprint(expected), "actual": fmt.Sprint(actual),
	})
}

// NewClusteringFailed builds a ClusteringFailed error.
func NewClusteringFailed(details string) *Error {
	return newErr(ClusteringFailed, map[string]string{"details": details})
}

// NewNoRegionsFound builds a NoRegionsFound error.
func NewNoRegionsFound(details string) *Error {
	return newErr(NoRegionsFound, map[string]string{"details": details})
}

// NewDegenerateGeometry builds a DegenerateGeometry error.
func NewDegenerateGeometry(details string) *Error {
	return newErr(DegenerateGeometry, map[string]string{"details": details})
}

// NewNumericalOverflow builds a NumericalOverflow error.
func NewNumericalOverflow(operation string) *Error {
	return newErr(NumericalOverflow, map[string]string{"operation": operation})
}

// NewMemoryLimitExceeded builds a MemoryLimitExceeded error.
func NewMemoryLimitExceeded(details string) *Error {
	return newErr(MemoryLimitExceeded, map[string]string{"details": details})
}

// NewTimeout builds a Timeout error.
func NewTimeout(seconds float64) *Error {
	return newErr(Timeout, map[string]string{"seconds": fmt.Sprintf("%.3f", seconds)})
}

// NewUnsupportedFormat builds an UnsupportedFormat error.
func NewUnsupportedFormat(name string) *Error {
	return newErr(UnsupportedFormat, map[string]string{"name": name})
}

// NewRasterError builds a RasterError wrapping cause.
func NewRasterError(reason string, cause error) *Error {
	e := newErr(RasterError, map[string]string{"reason": reason})
	e.Cause = cause
	return e
}

// NewTracingFailed builds a TracingFailed error.
func NewTracingFailed(details string) *Error {
	return newErr(TracingFailed, map[string]string{"details": details})
}
