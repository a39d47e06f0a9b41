// Package gryffin provides the adaptive-sampling core of a mixed-variable
// (continuous / discrete / categorical) experimental-design optimizer: it
// proposes candidate parameter vectors, locally refines each candidate toward
// an acquisition optimum under per-type update rules, and selects a diverse,
// non-redundant batch of recommendations across several exploration/
// exploitation strategies, optionally scored in parallel.
//
// # Features
//
// The package includes the following key features:
//
//   - Mixed-Type Refinement: Continuous features follow an Adam-style
//     adaptive-rate gradient step, discrete and categorical features follow a
//     local neighborhood search, all against a caller-supplied acquisition
//     surface
//   - Constrained Sampling: Uniform draws and incumbent perturbations with
//     optional rejection sampling against an arbitrary feasibility predicate
//   - Diversity-Aware Selection: Greedy batch selection that rewards low
//     acquisition values while penalizing proximity to prior observations and
//     to samples already selected in the same batch
//   - Parallel Scoring: The acquisition-evaluation hot path fans out over
//     worker goroutines; the sequential path produces bit-for-bit identical
//     results, so parallelism never changes behavior
//   - Categorical Backfill: Fully categorical spaces carry an exhaustive
//     option pool used to repair duplicate selections
//   - Progress Monitoring: Best-effort round updates via channels
//
// # Components
//
// ParameterSpace describes each feature's type, bounds and size and supplies
// the aggregate arrays the other components index. RandomSampler produces raw
// candidates. GradientOptimizer refines one candidate at a time.
// SampleSelector scores, deduplicates and diversifies the final batch.
// Recommender composes all of them into one round:
//
//	ParameterSpace -> RandomSampler -> GradientOptimizer -> SampleSelector
//
// # Scope
//
// Training of the probabilistic surrogate that produces the acquisition
// surface is outside this package: the surface arrives as an opaque Kernel
// for refinement and an EvalAcquisition function for scoring, both using a
// minimization convention (lower acquisition = better).
//
// # Thread Safety
//
//   - ParameterSpace is immutable and safe for concurrent use
//   - RandomSampler, GradientOptimizer and SampleSelector each own private
//     mutable state (RNGs, adaptive-rate accumulators, the option pool) and
//     must not be shared across goroutines; build one instance per goroutine
//   - The feasibility predicate and the acquisition evaluator must be safe to
//     invoke from parallel workers
//
// # Liveness
//
// Constrained sampling rejects candidates until enough feasible ones are
// found. By default the loop is unbounded: an overly restrictive predicate
// makes Draw and Perturb loop forever. Set SamplerConfig.MaxRejections to
// trade that liveness risk for an explicit ErrSamplingExhausted.
package gryffin
