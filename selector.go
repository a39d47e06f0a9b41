package gryffin

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"
	exprand "golang.org/x/exp/rand"
)

//////
// SampleSelector: diversity-aware batch selection with parallel scoring.
//////

// suppressionTol is the squared normalized distance below which a candidate is
// treated as a repeat of an already observed point and excluded from greedy
// selection.
const suppressionTol = 1e-8

// SelectorConfig controls a SampleSelector.
type SelectorConfig struct {
	// NumWorkers is the number of parallel scoring workers used in the
	// acquisition-evaluation hot path. 1 forces the sequential path, which
	// produces bit-for-bit the same reward ordering: parallelism here is a
	// throughput optimization, never an observable behavior change.
	NumWorkers int

	// Seed initializes the selector's random number generator, used only for
	// the duplicate-backfill draw from the option pool.
	Seed uint64

	// Logger receives selection statistics; nil falls back to slog.Default().
	Logger *slog.Logger
}

// DefaultSelectorConfig uses all available CPUs for scoring and a time-based
// seed.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		NumWorkers: runtime.NumCPU(),
		Seed:       uint64(time.Now().UnixNano()),
	}
}

// SampleSelector greedily selects a batch of recommendations that maximizes
// acquisition reward while penalizing proximity to prior observations and to
// candidates already selected in the same batch.
//
// For fully categorical spaces the selector owns an option pool: the
// exhaustive enumeration of valid category tuples, initialized once at
// construction (one selector per optimization round), shrunk as selections and
// back-fills are made, and never replenished within the round.
//
// Thread safety:
// - Select mutates the option pool and the selector's RNG; one SampleSelector
//   must not be used from multiple goroutines. The parallel scoring inside
//   Select is internal and safe as long as the acquisition evaluator is safe
//   to call concurrently.
type SampleSelector struct {
	space      *ParameterSpace
	numWorkers int
	options    []Sample
	rng        *exprand.Rand
	logger     *slog.Logger
}

// NewSampleSelector builds a selector over space. When the space is fully
// categorical the option pool is seeded with the exhaustive enumeration of
// category tuples; otherwise no finite pool exists and duplicate backfill is
// structurally unavailable.
func NewSampleSelector(space *ParameterSpace, config SelectorConfig) *SampleSelector {
	workers := config.NumWorkers
	if workers < 1 {
		workers = 1
	}

	return &SampleSelector{
		space:      space,
		numWorkers: workers,
		options:    space.EnumerateOptions(),
		rng:        exprand.New(exprand.NewSource(config.Seed)),
		logger:     loggerOrDefault(config.Logger),
	}
}

// RemainingOptions reports how many category tuples are left in the option
// pool, or 0 for spaces without a finite pool.
func (ss *SampleSelector) RemainingOptions() int { return len(ss.options) }

// Select picks numBatches samples per sampling strategy out of the proposal
// ensemble and returns them as one flat batch of numBatches × numStrategies
// vectors.
//
// Parameters:
// - numBatches: Batch slots to fill per strategy
// - proposals: Proposal ensemble indexed by (strategy, candidate); all
//   strategies must hold the same number of candidates
// - eval: Acquisition evaluator; must be safe to call from parallel workers
// - samplingParamValues: One exploration/exploitation parameter per strategy;
//   its length fixes the number of strategies
// - observations: Previously evaluated samples, used only to penalize
//   proximity; never mutated
//
// How it works:
//  1. Every candidate is scored as exp(-acquisition), in parallel across
//     NumWorkers contiguous chunks of the candidate axis; chunk results are
//     reassembled in chunk order, so the global candidate order is preserved
//     regardless of worker completion order.
//  2. Candidates within squared normalized distance 1e-8 of an observation
//     have their reward zeroed.
//  3. Greedy selection runs numBatches × numStrategies picks, reweighting each
//     strategy's rewards by a diversity factor that decays near observations
//     and near already-picked samples; picked candidates are zeroed so a
//     strategy cannot pick them twice.
//  4. If the batch contains duplicates and the option pool still holds at
//     least numStrategies tuples, the distinct picks are removed from the pool
//     and the shortfall is drawn uniformly without replacement from what
//     remains. A pool smaller than numStrategies accepts duplicates as-is
//     (degraded mode).
//
// Worker failure: a panic inside the acquisition evaluator is repropagated
// from the worker join, failing the whole Select call; a partition is never
// silently dropped.
func (ss *SampleSelector) Select(
	numBatches int,
	proposals [][]Sample,
	eval EvalAcquisition,
	samplingParamValues []float64,
	observations []Sample,
) ([]Sample, error) {
	start := time.Now()

	numStrategies := len(samplingParamValues)
	if len(proposals) != numStrategies {
		return nil, fmt.Errorf("%w: %d proposal strategies for %d sampling-parameter values",
			ErrShapeMismatch, len(proposals), numStrategies)
	}

	if numStrategies == 0 {
		return nil, fmt.Errorf("%w: no sampling-parameter values", ErrShapeMismatch)
	}

	numCandidates := len(proposals[0])
	if numCandidates == 0 {
		return nil, fmt.Errorf("%w: proposal ensemble holds no candidates", ErrShapeMismatch)
	}

	for s, strategyProposals := range proposals {
		if len(strategyProposals) != numCandidates {
			return nil, fmt.Errorf("%w: strategy %d holds %d candidates, strategy 0 holds %d",
				ErrShapeMismatch, s, len(strategyProposals), numCandidates)
		}

		for _, candidate := range strategyProposals {
			if len(candidate) != ss.space.NumFeatures() {
				return nil, fmt.Errorf("%w: candidate has %d entries, space has %d features",
					ErrShapeMismatch, len(candidate), ss.space.NumFeatures())
			}
		}
	}

	rewards := make([][]float64, numStrategies)
	for s := range proposals {
		rewards[s] = ss.scoreStrategy(proposals[s], eval, s)
	}

	ss.suppressObserved(rewards, proposals, observations)

	selected := ss.greedySelect(numBatches, proposals, rewards, observations)
	batch := ss.repairDuplicates(selected, numStrategies)

	ss.logger.Info("samples selected",
		"count", len(batch),
		"elapsed", time.Since(start))

	return batch, nil
}

// scoreStrategy computes exp(-acquisition) for every candidate of one
// strategy. The candidate axis is split into numWorkers near-equal contiguous
// chunks in index order; each worker writes its partial result keyed by chunk
// index, the coordinator joins all workers, then concatenates by increasing
// chunk index to recover global candidate order.
func (ss *SampleSelector) scoreStrategy(candidates []Sample, eval EvalAcquisition, strategyIdx int) []float64 {
	workers := ss.numWorkers
	if workers > len(candidates) {
		workers = len(candidates)
	}

	if workers <= 1 {
		return scoreChunk(candidates, eval, strategyIdx)
	}

	chunks := make([][]float64, workers)
	base := len(candidates) / workers
	extra := len(candidates) % workers

	p := pool.New().WithMaxGoroutines(workers)

	lo := 0
	for ci := 0; ci < workers; ci++ {
		hi := lo + base
		if ci < extra {
			hi++
		}

		ci, chunkLo, chunkHi := ci, lo, hi
		p.Go(func() {
			chunks[ci] = scoreChunk(candidates[chunkLo:chunkHi], eval, strategyIdx)
		})

		lo = hi
	}

	// Wait joins every worker and repropagates worker panics, so a failing
	// evaluator aborts the whole selection instead of dropping a chunk.
	p.Wait()

	rewards := make([]float64, 0, len(candidates))
	for _, chunk := range chunks {
		rewards = append(rewards, chunk...)
	}

	return rewards
}

// scoreChunk is the sequential scoring kernel shared by the parallel and
// single-worker paths, keeping both element-for-element identical.
func scoreChunk(candidates []Sample, eval EvalAcquisition, strategyIdx int) []float64 {
	rewards := make([]float64, len(candidates))
	for i, candidate := range candidates {
		rewards[i] = math.Exp(-eval(candidate, strategyIdx))
	}

	return rewards
}

// suppressObserved zeroes the reward of any candidate whose minimum squared
// distance to an observed sample, in unit-normalized coordinates, falls below
// the suppression tolerance. Such a candidate is effectively a repeat of a
// known point and must not win the greedy pass.
func (ss *SampleSelector) suppressObserved(rewards [][]float64, proposals [][]Sample, observations []Sample) {
	if len(observations) == 0 {
		return
	}

	lowers := ss.space.Lowers()
	ranges := ss.space.Ranges()

	obsNorm := make([]Sample, len(observations))
	for i, obs := range observations {
		norm := make(Sample, len(obs))
		for j := range obs {
			norm[j] = (obs[j] - lowers[j]) / ranges[j]
		}

		obsNorm[i] = norm
	}

	for s := range proposals {
		for c, candidate := range proposals[s] {
			minSq := math.Inf(1)

			for _, obs := range obsNorm {
				var sq float64

				for j := range candidate {
					diff := (candidate[j]-lowers[j])/ranges[j] - obs[j]
					sq += diff * diff
				}

				if sq < minSq {
					minSq = sq
				}
			}

			if minSq < suppressionTol {
				rewards[s][c] = 0
			}
		}
	}
}

// greedySelect fills numBatches × numStrategies batch slots. Each pick takes
// the stable argmax of the strategy's rewards reweighted by a diversity
// factor, then zeroes the winner's reward for that strategy.
func (ss *SampleSelector) greedySelect(
	numBatches int,
	proposals [][]Sample,
	rewards [][]float64,
	observations []Sample,
) []Sample {
	ranges := ss.space.Ranges()

	// Characteristic distance per feature shrinks as observations accumulate.
	// With an empty history the distance has no scale, so the diversity
	// penalty is disabled for the round (every factor is 1).
	numObs := len(observations)

	charDists := make([]float64, len(ranges))
	for j, r := range ranges {
		if numObs > 0 {
			charDists[j] = r / math.Sqrt(float64(numObs))
		}
	}

	selected := make([]Sample, 0, numBatches*len(proposals))

	for batch := 0; batch < numBatches; batch++ {
		for s := range proposals {
			bestIdx := 0
			bestReward := math.Inf(-1)

			for c, candidate := range proposals[s] {
				div := 1.0
				if numObs > 0 {
					div = ss.diversityFactor(candidate, observations, selected, charDists, ranges)
				}

				// Stable argmax: strictly-greater keeps the first index on
				// ties.
				if reweighted := rewards[s][c] * div; reweighted > bestReward {
					bestReward = reweighted
					bestIdx = c
				}
			}

			selected = append(selected, cloneSample(proposals[s][bestIdx]))
			rewards[s][bestIdx] = 0
		}
	}

	return selected
}

// diversityFactor computes the per-candidate penalty in [0, 1]: the mean over
// features of min(1, exp(2·(minDist − charDist)/range)), where minDist is the
// per-feature minimum absolute distance to the nearest of the observations and
// the samples already selected this round. Callers guarantee a non-empty
// observation history.
func (ss *SampleSelector) diversityFactor(
	candidate Sample,
	observations, selected []Sample,
	charDists, ranges []float64,
) float64 {
	var sum float64

	for j := range candidate {
		minDist := math.Inf(1)

		for _, obs := range observations {
			if d := math.Abs(candidate[j] - obs[j]); d < minDist {
				minDist = d
			}
		}

		for _, sel := range selected {
			if d := math.Abs(candidate[j] - sel[j]); d < minDist {
				minDist = d
			}
		}

		sum += math.Min(1, math.Exp(2*(minDist-charDists[j])/ranges[j]))
	}

	return sum / float64(len(candidate))
}

// repairDuplicates applies the duplicate/backfill repair to an assembled
// batch. Only fully categorical spaces have a finite option pool to draw
// from; elsewhere the distinctness check still runs but duplicates can only
// arise if the greedy pass revisited a zeroed candidate, which the zeroing
// prevents.
func (ss *SampleSelector) repairDuplicates(selected []Sample, numStrategies int) []Sample {
	// Degraded mode is decided against the pool as it stood when selection
	// started: fewer remaining options than strategies means duplicates are
	// unavoidable and the batch is accepted as-is.
	degraded := ss.options != nil && len(ss.options) < numStrategies

	unique := uniqueSamples(selected)

	// The pool always sheds the distinct selections, degraded or not, so a
	// later round can never backfill an already-recommended tuple.
	if ss.space.CategoricalOnly() && ss.options != nil {
		ss.removeFromPool(unique)
	}

	if degraded || len(unique) == len(selected) || ss.options == nil {
		return selected
	}

	// Back-fill the shortfall uniformly at random, without replacement, from
	// the remaining pool.
	shortfall := len(selected) - len(unique)
	if shortfall > len(ss.options) {
		shortfall = len(ss.options)
	}

	missing := make([]Sample, 0, shortfall)
	for _, idx := range ss.rng.Perm(len(ss.options))[:shortfall] {
		missing = append(missing, cloneSample(ss.options[idx]))
	}

	ss.removeFromPool(missing)

	ss.logger.Debug("backfilled duplicate selections", "count", len(missing))

	batch := append(unique, missing...)

	// The pool ran dry before the batch was whole: pad the remainder with
	// duplicates rather than shrinking the output. Duplicates are only
	// permitted once the pool is exhausted.
	distinct := len(batch)
	for i := 0; len(batch) < len(selected); i++ {
		batch = append(batch, cloneSample(batch[i%distinct]))
	}

	return batch
}

// removeFromPool drops every pool entry equal to one of the given samples.
func (ss *SampleSelector) removeFromPool(samples []Sample) {
	kept := ss.options[:0]

	for _, option := range ss.options {
		remove := false

		for _, s := range samples {
			if sampleEqual(option, s) {
				remove = true

				break
			}
		}

		if !remove {
			kept = append(kept, option)
		}
	}

	ss.options = kept
}
