package gryffin

import (
	"log/slog"
)

//////
// Core types shared by the sampler, optimizer and selector.
//////

// FeatureType identifies how a single dimension of the parameter space is
// encoded and which update/sampling rules apply to it.
type FeatureType string

const (
	// Continuous features take real values within [Lower, Upper] and are
	// refined with gradient steps.
	Continuous FeatureType = "continuous"

	// Discrete features take integer bucket indices within [0, Upper-Lower)
	// and are refined with a local neighborhood scan.
	Discrete FeatureType = "discrete"

	// Categorical features take option indices within [0, Size) and are
	// refined with a local neighborhood scan over all options.
	Categorical FeatureType = "categorical"
)

// Feature describes one dimension of the parameter space.
//
// Fields:
// - Name: Unique identifier, used as the key in the named-field representation
//   handed to feasibility predicates
// - Type: One of Continuous, Discrete or Categorical
// - Lower, Upper: Bounds for continuous and discrete features
// - Size: Number of options for categorical features; derived for the other
//   types by NewParameterSpace
//
// Validation:
// - Type must be a known FeatureType; anything else is a configuration error
//   reported by NewParameterSpace, never silently ignored
// - Continuous and discrete features require Upper > Lower
// - Categorical features require Size >= 2; their bounds are derived as
//   [0, Size)
//
// Usage:
//
//	features := []gryffin.Feature{
//	    {Name: "temperature", Type: gryffin.Continuous, Lower: 0, Upper: 10},
//	    {Name: "solvent", Type: gryffin.Categorical, Size: 3},
//	}
type Feature struct {
	// Name is the unique identifier of this feature.
	Name string `validate:"required"`

	// Type selects the sampling and refinement rules for this feature.
	Type FeatureType `validate:"required,oneof=continuous discrete categorical"`

	// Lower is the inclusive lower bound (continuous/discrete).
	Lower float64

	// Upper is the upper bound (continuous/discrete).
	Upper float64

	// Size is the number of categories (categorical only).
	Size int
}

// Sample is one full parameter vector, ordered by feature index. Continuous
// entries are real values within their bounds; discrete and categorical
// entries are integer-valued indices stored as float64.
type Sample []float64

// Kernel evaluates the acquisition surface at a single point. Lower values are
// better (minimization convention). The gradient optimizer probes it with
// finite differences for continuous features and with integer neighborhood
// scans for discrete/categorical ones, so it must tolerate both kinds of
// probe points.
type Kernel func(sample Sample) float64

// EvalAcquisition evaluates the acquisition value of a candidate under one
// sampling strategy. Lower values indicate more desirable candidates.
//
// Parameters:
// - sample: The candidate parameter vector
// - strategyIndex: Index into the sampling-parameter values, identifying which
//   exploration/exploitation strategy is being scored
//
// Implementation notes:
// - Must be safe to invoke concurrently from isolated scoring workers with no
//   shared mutable state
// - No differentiability is assumed at this boundary; gradient access, if the
//   continuous optimizer needs it, is bound separately through
//   GradientOptimizer.Bind.
type EvalAcquisition func(sample Sample, strategyIndex int) float64

// Constraint is a caller-supplied feasibility predicate over the named-field
// representation of one full sample, e.g. {"temperature": 3.2, "solvent": 1}.
// It must be pure and side-effect free: it is invoked repeatedly under
// rejection sampling and may be invoked from parallel workers.
type Constraint func(params map[string]float64) bool

// RoundUpdate reports the progress of one recommendation round. Updates are
// delivered best-effort on RecommenderConfig.ProgressChan: if the channel is
// full the update is dropped rather than blocking the round.
type RoundUpdate struct {
	// Phase is the current stage of the round ("Proposing", "Refining",
	// "Selecting").
	Phase string

	// Strategy is the index of the sampling strategy being processed.
	Strategy int

	// TotalStrategies is the number of strategies in this round.
	TotalStrategies int

	// Candidates is the number of candidates handled so far in this phase.
	Candidates int
}

// loggerOrDefault keeps nil-logger configs usable.
func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}

	return l
}
