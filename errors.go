package gryffin

import "errors"

//////
// Error values surfaced by the package.
//////

var (
	// ErrUnknownFeatureType is returned when a parameter space or optimizer is
	// constructed with a feature whose type is not continuous, discrete or
	// categorical. This is always reported at construction time, never
	// deferred into a silent no-op.
	ErrUnknownFeatureType = errors.New("unknown feature type")

	// ErrInvalidFeature is returned for malformed feature descriptors
	// (missing name, inverted bounds, bad category count).
	ErrInvalidFeature = errors.New("invalid feature")

	// ErrSamplingExhausted is returned by constrained Draw/Perturb when a
	// retry cap is configured and the feasibility predicate rejected that many
	// consecutive candidates. With the default unbounded configuration this
	// error is never returned.
	ErrSamplingExhausted = errors.New("rejection sampling exhausted")

	// ErrShapeMismatch is returned when the dimensions of samples, masks or
	// proposal ensembles do not match the parameter space.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidConfig is returned for malformed component configurations.
	ErrInvalidConfig = errors.New("invalid configuration")
)
