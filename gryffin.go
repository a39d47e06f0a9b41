package gryffin

import (
	"fmt"
	"log/slog"
)

//////
// Recommender: ties the sampler, optimizer and selector into one round.
//////

// RecommenderConfig controls one recommendation round.
//
// Usage:
//
//	config := gryffin.DefaultRecommenderConfig()
//	config.NumCandidates = 200
//
//	rec, err := gryffin.NewRecommender(space, nil, config)
type RecommenderConfig struct {
	// NumCandidates is the number of random proposals drawn per strategy.
	// Recommended range: 50-500.
	NumCandidates int

	// NumPerturbed is the number of perturbations of the incumbent best
	// sample added per strategy. Ignored when no incumbent is supplied.
	NumPerturbed int

	// PerturbScale is the relative width of incumbent perturbations, as a
	// fraction of each feature's range.
	PerturbScale float64

	// MaxRefineIterations bounds the local refinement of each candidate.
	MaxRefineIterations int

	// ProgressChan receives best-effort progress updates during the round.
	// Updates that would block are dropped. Nil disables updates.
	ProgressChan chan<- RoundUpdate

	// Sampler, Optimizer and Selector configure the underlying components.
	Sampler   SamplerConfig
	Optimizer OptimizerConfig
	Selector  SelectorConfig

	// Logger receives round statistics; nil falls back to slog.Default().
	Logger *slog.Logger
}

// DefaultRecommenderConfig returns a balanced round configuration.
func DefaultRecommenderConfig() RecommenderConfig {
	return RecommenderConfig{
		NumCandidates:       100,
		NumPerturbed:        20,
		PerturbScale:        0.05,
		MaxRefineIterations: 10,
		Sampler:             DefaultSamplerConfig(),
		Optimizer:           DefaultOptimizerConfig(),
		Selector:            DefaultSelectorConfig(),
	}
}

// Recommender composes the sampler, per-strategy optimizers and the selector
// into one adaptive-sampling round: draw raw candidates, perturb the incumbent
// best, refine every candidate against the strategy's acquisition surface,
// then select a diverse batch.
//
// The surrogate model stays outside this boundary: the caller supplies one
// acquisition kernel per strategy for refinement and an acquisition evaluator
// for scoring.
type Recommender struct {
	space    *ParameterSpace
	config   RecommenderConfig
	sampler  *RandomSampler
	selector *SampleSelector
	logger   *slog.Logger
}

// NewRecommender builds a recommender for one optimization round over space.
// constraint may be nil. The selector's option pool is initialized here, once
// per round.
func NewRecommender(space *ParameterSpace, constraint Constraint, config RecommenderConfig) (*Recommender, error) {
	if config.NumCandidates < 1 {
		return nil, fmt.Errorf("%w: NumCandidates must be at least 1, got %d",
			ErrInvalidConfig, config.NumCandidates)
	}

	return &Recommender{
		space:    space,
		config:   config,
		sampler:  NewRandomSampler(space, constraint, config.Sampler),
		selector: NewSampleSelector(space, config.Selector),
		logger:   loggerOrDefault(config.Logger),
	}, nil
}

// RemainingOptions exposes the selector's option pool size (fully categorical
// spaces only).
func (r *Recommender) RemainingOptions() int { return r.selector.RemainingOptions() }

// Recommend runs one full round and returns the selected batch of
// numBatches × numStrategies samples.
//
// Parameters:
// - numBatches: Batch slots per strategy
// - kernels: One acquisition surface per strategy, used for local refinement
// - eval: Acquisition evaluator used for batch scoring
// - samplingParamValues: One exploration/exploitation parameter per strategy
// - observations: Previously evaluated samples (read-only)
// - incumbent: Best sample so far, perturbed for exploitation proposals; nil
//   skips the perturbation phase
//
// Each strategy refines with its own optimizer instance so the adaptive-rate
// state of concurrent or successive strategies never mixes.
func (r *Recommender) Recommend(
	numBatches int,
	kernels []Kernel,
	eval EvalAcquisition,
	samplingParamValues []float64,
	observations []Sample,
	incumbent Sample,
) ([]Sample, error) {
	numStrategies := len(samplingParamValues)
	if len(kernels) != numStrategies {
		return nil, fmt.Errorf("%w: %d kernels for %d sampling-parameter values",
			ErrShapeMismatch, len(kernels), numStrategies)
	}

	proposals := make([][]Sample, numStrategies)

	for s := 0; s < numStrategies; s++ {
		r.sendProgress("Proposing", s, numStrategies, 0)

		candidates, err := r.sampler.Draw(r.config.NumCandidates)
		if err != nil {
			return nil, fmt.Errorf("draw proposals for strategy %d: %w", s, err)
		}

		if incumbent != nil && r.config.NumPerturbed > 0 {
			perturbed, err := r.sampler.Perturb(incumbent, r.config.NumPerturbed, r.config.PerturbScale)
			if err != nil {
				return nil, fmt.Errorf("perturb incumbent for strategy %d: %w", s, err)
			}

			candidates = append(candidates, perturbed...)
		}

		optimizer, err := NewGradientOptimizer(r.space, r.config.Optimizer)
		if err != nil {
			return nil, err
		}

		if err := optimizer.Bind(kernels[s], nil); err != nil {
			return nil, err
		}

		refined := make([]Sample, len(candidates))
		for i, candidate := range candidates {
			refined[i], err = optimizer.Refine(candidate, r.config.MaxRefineIterations)
			if err != nil {
				return nil, fmt.Errorf("refine candidate %d of strategy %d: %w", i, s, err)
			}

			r.sendProgress("Refining", s, numStrategies, i+1)
		}

		proposals[s] = refined
	}

	r.sendProgress("Selecting", numStrategies-1, numStrategies, 0)

	batch, err := r.selector.Select(numBatches, proposals, eval, samplingParamValues, observations)
	if err != nil {
		return nil, err
	}

	r.logger.Info("recommendation round complete",
		"strategies", numStrategies,
		"batch_size", len(batch))

	return batch, nil
}

// sendProgress delivers a round update without ever blocking the round.
func (r *Recommender) sendProgress(phase string, strategy, total, candidates int) {
	if r.config.ProgressChan == nil {
		return
	}

	update := RoundUpdate{
		Phase:           phase,
		Strategy:        strategy,
		TotalStrategies: total,
		Candidates:      candidates,
	}

	select {
	case r.config.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}
