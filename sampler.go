package gryffin

import (
	"fmt"
	"log/slog"
	"time"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

//////
// RandomSampler: constrained random/perturbation sampling.
//////

// SamplerConfig controls a RandomSampler.
//
// Fields:
// - Seed: Seed for the sampler's private random number generator
// - MaxRejections: Optional cap on consecutive rejections under a feasibility
//   predicate; 0 (the default) means unbounded
// - Logger: Structured logger; nil falls back to slog.Default()
type SamplerConfig struct {
	// Seed initializes the sampler's random number generator. Two samplers
	// built with the same seed over the same space produce the same draws.
	Seed uint64

	// MaxRejections caps how many consecutive candidates the rejection loop
	// may discard before giving up with ErrSamplingExhausted. Zero keeps the
	// loop unbounded, which preserves the documented liveness risk: an overly
	// restrictive predicate makes Draw and Perturb loop forever.
	MaxRejections int

	// Logger receives debug output about generated samples.
	Logger *slog.Logger
}

// DefaultSamplerConfig returns a sampler configuration with a time-based seed
// and an unbounded rejection loop.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Seed:          uint64(time.Now().UnixNano()),
		MaxRejections: 0,
		Logger:        nil,
	}
}

// RandomSampler draws independent candidate vectors from a parameter space, or
// perturbs a reference vector, optionally rejecting infeasible draws against a
// caller-supplied predicate.
//
// Thread safety:
// - A RandomSampler owns a private random number generator and is NOT safe for
//   concurrent use; give each goroutine its own instance.
type RandomSampler struct {
	space      *ParameterSpace
	constraint Constraint
	maxReject  int
	rng        *exprand.Rand
	logger     *slog.Logger
}

// NewRandomSampler builds a sampler over space. constraint may be nil, in
// which case every draw is feasible and no rejection sampling happens.
func NewRandomSampler(space *ParameterSpace, constraint Constraint, config SamplerConfig) *RandomSampler {
	return &RandomSampler{
		space:      space,
		constraint: constraint,
		maxReject:  config.MaxRejections,
		rng:        exprand.New(exprand.NewSource(config.Seed)),
		logger:     loggerOrDefault(config.Logger),
	}
}

// Draw returns num independent samples from the parameter space.
//
// Per feature, values are drawn with the type-appropriate distribution:
// continuous uniform over [lower, upper]; categorical uniform over
// {0, ..., size-1}; discrete uniform integer over [0, upper-lower).
//
// With a feasibility predicate configured, candidates are drawn one at a time
// and kept only if the predicate accepts them. Without a MaxRejections cap
// this loop is unbounded: a predicate that rejects everything makes Draw spin
// forever. With a cap, ErrSamplingExhausted is returned instead of silently
// truncating the result.
func (rs *RandomSampler) Draw(num int) ([]Sample, error) {
	if rs.constraint == nil {
		samples := rs.fastDraw(num)
		rs.logger.Debug("generated uniform samples", "count", len(samples))

		return samples, nil
	}

	return rs.slowDraw(num)
}

// Perturb takes a reference sample and perturbs it num times.
//
// Continuous entries receive uniform noise in [-scale, scale] scaled by the
// feature's range, then are clamped to bounds. Discrete and categorical
// entries are never perturbed; the reference value is copied unchanged. The
// constrained variant applies the same per-candidate rejection loop as Draw.
func (rs *RandomSampler) Perturb(ref Sample, num int, scale float64) ([]Sample, error) {
	if len(ref) != rs.space.NumFeatures() {
		return nil, fmt.Errorf("%w: reference sample has %d entries, space has %d features",
			ErrShapeMismatch, len(ref), rs.space.NumFeatures())
	}

	if rs.constraint == nil {
		samples := make([]Sample, num)
		for i := range samples {
			samples[i] = rs.perturbOne(ref, scale)
		}

		return samples, nil
	}

	return rs.rejectionLoop(num, func() Sample { return rs.perturbOne(ref, scale) })
}

// fastDraw assembles num samples from independent per-feature draws. No
// rejection is involved, so every feature column can be produced in one pass.
func (rs *RandomSampler) fastDraw(num int) []Sample {
	samples := make([]Sample, num)
	for i := range samples {
		samples[i] = make(Sample, rs.space.NumFeatures())
	}

	for j := 0; j < rs.space.NumFeatures(); j++ {
		for i := 0; i < num; i++ {
			samples[i][j] = rs.drawFeature(j)
		}
	}

	return samples
}

// slowDraw collects num feasible samples one candidate at a time.
func (rs *RandomSampler) slowDraw(num int) ([]Sample, error) {
	return rs.rejectionLoop(num, func() Sample {
		sample := make(Sample, rs.space.NumFeatures())
		for j := range sample {
			sample[j] = rs.drawFeature(j)
		}

		return sample
	})
}

// rejectionLoop keeps invoking propose until num candidates have passed the
// feasibility predicate. With maxReject == 0 the loop is unbounded.
func (rs *RandomSampler) rejectionLoop(num int, propose func() Sample) ([]Sample, error) {
	samples := make([]Sample, 0, num)
	rejected := 0

	for len(samples) < num {
		candidate := propose()

		if rs.constraint(rs.space.Named(candidate)) {
			samples = append(samples, candidate)
			rejected = 0

			continue
		}

		rejected++
		if rs.maxReject > 0 && rejected >= rs.maxReject {
			return nil, fmt.Errorf("%w: %d consecutive rejections (collected %d of %d)",
				ErrSamplingExhausted, rejected, len(samples), num)
		}
	}

	rs.logger.Debug("generated feasible samples", "count", len(samples))

	return samples, nil
}

// drawFeature draws one value for feature j with the type-appropriate
// distribution.
func (rs *RandomSampler) drawFeature(j int) float64 {
	f := rs.space.Feature(j)

	switch f.Type {
	case Continuous:
		u := distuv.Uniform{Min: f.Lower, Max: f.Upper, Src: rs.rng}

		return u.Rand()

	case Categorical:
		return float64(rs.rng.Intn(f.Size))

	default: // Discrete; unknown types cannot reach here (validated at construction).
		return float64(rs.rng.Intn(int(f.Upper - f.Lower)))
	}
}

// perturbOne produces one perturbed copy of ref.
func (rs *RandomSampler) perturbOne(ref Sample, scale float64) Sample {
	out := make(Sample, len(ref))

	for j := range ref {
		f := rs.space.Feature(j)

		if f.Type != Continuous {
			// Discrete and categorical entries are copied unchanged.
			out[j] = ref[j]

			continue
		}

		noise := distuv.Uniform{Min: -scale, Max: scale, Src: rs.rng}.Rand()
		perturbed := ref[j] + noise*(f.Upper-f.Lower)
		out[j] = clamp(perturbed, f.Lower, f.Upper)
	}

	return out
}
