package vectorize

import "github.com/go-vectorize/vectorize/pkg/verror"

// Error is the public error type returned by Vectorize and every exported
// helper: a type alias so callers can type-assert against it without
// importing pkg/verror directly.
type Error = verror.Error

// Kind is the public error taxonomy, aliased from pkg/verror.
type Kind = verror.Kind

const (
	InvalidParameter   = verror.InvalidParameter
	InvalidPreset      = verror.InvalidPreset
	ConflictingOptions = verror.ConflictingOptions
	InvalidDimensions  = verror.InvalidDimensions
	InsufficientData   = verror.InsufficientData
	ClusteringFailed   = verror.ClusteringFailed
	NoRegionsFound     = verror.NoRegionsFound
	DegenerateGeometry = verror.DegenerateGeometry
	NumericalOverflow  = verror.NumericalOverflow
	MemoryLimitExceeded = verror.MemoryLimitExceeded
	Timeout            = verror.Timeout
	UnsupportedFormat  = verror.UnsupportedFormat
	RasterError        = verror.RasterError
	TracingFailed      = verror.TracingFailed
)
