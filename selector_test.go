package gryffin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSelectorConfig(workers int, seed uint64) SelectorConfig {
	cfg := DefaultSelectorConfig()
	cfg.NumWorkers = workers
	cfg.Seed = seed

	return cfg
}

// rewardEval builds an acquisition evaluator that yields the given reward for
// each (strategy, first-feature value) pair, using reward = exp(-acq).
func rewardEval(rewards []map[float64]float64) EvalAcquisition {
	return func(sample Sample, strategyIdx int) float64 {
		return -math.Log(rewards[strategyIdx][sample[0]])
	}
}

func TestSelectPicksMaxRewardPerStrategy(t *testing.T) {
	// Two strategies, three candidates each, no prior observations: with all
	// diversity factors at 1 the greedy pass picks the max-reward candidate
	// of every strategy.
	space, err := NewParameterSpace([]Feature{
		{Name: "x", Type: Continuous, Lower: 0, Upper: 100},
	})
	require.NoError(t, err)

	selector := NewSampleSelector(space, testSelectorConfig(1, 42))

	candidates := []Sample{{10}, {50}, {90}}
	proposals := [][]Sample{candidates, candidates}

	eval := rewardEval([]map[float64]float64{
		{10: 0.9, 50: 0.1, 90: 0.5},
		{10: 0.2, 50: 0.8, 90: 0.4},
	})

	batch, err := selector.Select(1, proposals, eval, []float64{0.5, 1.5}, nil)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	assert.Equal(t, Sample{10}, batch[0])
	assert.Equal(t, Sample{50}, batch[1])
}

func TestSelectBatchSize(t *testing.T) {
	space, err := NewParameterSpace([]Feature{
		{Name: "x", Type: Continuous, Lower: 0, Upper: 1},
	})
	require.NoError(t, err)

	selector := NewSampleSelector(space, testSelectorConfig(2, 7))

	proposals := [][]Sample{
		{{0.1}, {0.4}, {0.7}},
		{{0.2}, {0.5}, {0.8}},
		{{0.3}, {0.6}, {0.9}},
	}

	eval := func(sample Sample, _ int) float64 { return sample[0] }

	batch, err := selector.Select(2, proposals, eval, []float64{0.1, 1.0, 2.0}, []Sample{{0.95}})
	require.NoError(t, err)

	// numBatches x numStrategies vectors.
	assert.Len(t, batch, 6)
}

func TestSuppressionOfObservedCandidates(t *testing.T) {
	// The highest-reward candidate coincides with a prior observation and
	// must not be selected.
	space, err := NewParameterSpace([]Feature{
		{Name: "x", Type: Continuous, Lower: 0, Upper: 1},
	})
	require.NoError(t, err)

	selector := NewSampleSelector(space, testSelectorConfig(1, 3))

	proposals := [][]Sample{{{0.5}, {0.9}}}

	// Acquisition strongly prefers 0.5.
	eval := func(sample Sample, _ int) float64 {
		if sample[0] == 0.5 {
			return 0
		}

		return 1
	}

	batch, err := selector.Select(1, proposals, eval, []float64{1.0}, []Sample{{0.5}})
	require.NoError(t, err)
	require.Len(t, batch, 1)

	assert.Equal(t, Sample{0.9}, batch[0])
}

func TestParallelAndSequentialScoringMatch(t *testing.T) {
	space, err := NewParameterSpace([]Feature{
		{Name: "x", Type: Continuous, Lower: 0, Upper: 1},
		{Name: "y", Type: Continuous, Lower: -5, Upper: 5},
	})
	require.NoError(t, err)

	sampler := NewRandomSampler(space, nil, testSamplerConfig(21))

	candidates, err := sampler.Draw(103) // deliberately not divisible by workers
	require.NoError(t, err)

	eval := func(sample Sample, strategyIdx int) float64 {
		return sample[0]*sample[1] + float64(strategyIdx)
	}

	sequential := NewSampleSelector(space, testSelectorConfig(1, 1))
	parallel := NewSampleSelector(space, testSelectorConfig(8, 1))

	seqRewards := sequential.scoreStrategy(candidates, eval, 2)
	parRewards := parallel.scoreStrategy(candidates, eval, 2)

	// Element-for-element identical: parallelism is purely a throughput
	// optimization.
	assert.Equal(t, seqRewards, parRewards)
}

func TestSelectParallelMatchesSequential(t *testing.T) {
	space, err := NewParameterSpace([]Feature{
		{Name: "x", Type: Continuous, Lower: 0, Upper: 1},
	})
	require.NoError(t, err)

	sampler := NewRandomSampler(space, nil, testSamplerConfig(31))

	strategyA, err := sampler.Draw(40)
	require.NoError(t, err)

	strategyB, err := sampler.Draw(40)
	require.NoError(t, err)

	proposals := [][]Sample{strategyA, strategyB}
	observations := []Sample{{0.25}, {0.75}}

	eval := func(sample Sample, strategyIdx int) float64 {
		return math.Abs(sample[0]-0.5) * float64(strategyIdx+1)
	}

	sequential := NewSampleSelector(space, testSelectorConfig(1, 1))
	parallel := NewSampleSelector(space, testSelectorConfig(4, 1))

	seqBatch, err := sequential.Select(1, proposals, eval, []float64{0.5, 1.5}, observations)
	require.NoError(t, err)

	parBatch, err := parallel.Select(1, proposals, eval, []float64{0.5, 1.5}, observations)
	require.NoError(t, err)

	assert.Equal(t, seqBatch, parBatch)
}

func TestDuplicateBackfillFromOptionPool(t *testing.T) {
	// Fully categorical 1-feature space with 3 options; both strategies'
	// greedy picks collide on option 1. The repair removes the distinct pick
	// from the pool and backfills one sample from {0, 2}.
	space, err := NewParameterSpace([]Feature{
		{Name: "c", Type: Categorical, Size: 3},
	})
	require.NoError(t, err)

	selector := NewSampleSelector(space, testSelectorConfig(1, 5))
	require.Equal(t, 3, selector.RemainingOptions())

	candidates := []Sample{{0}, {1}, {2}}
	proposals := [][]Sample{candidates, candidates}

	// Option 1 dominates for every strategy.
	eval := func(sample Sample, _ int) float64 {
		if sample[0] == 1 {
			return 0
		}

		return 10
	}

	batch, err := selector.Select(1, proposals, eval, []float64{0.5, 1.5}, nil)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	// Two distinct final selections: the colliding pick plus one backfill.
	assert.Equal(t, Sample{1}, batch[0])
	assert.Contains(t, []Sample{{0}, {2}}, batch[1])
	assert.Len(t, uniqueSamples(batch), 2)

	// Pool shrank by the distinct pick and the backfill.
	assert.Equal(t, 1, selector.RemainingOptions())
}

func TestDegradedModeAcceptsDuplicates(t *testing.T) {
	// With fewer remaining options than strategies there is no way to avoid
	// duplicates; the batch is accepted as-is.
	space, err := NewParameterSpace([]Feature{
		{Name: "c", Type: Categorical, Size: 2},
	})
	require.NoError(t, err)

	selector := NewSampleSelector(space, testSelectorConfig(1, 9))
	require.Equal(t, 2, selector.RemainingOptions())

	candidates := []Sample{{0}, {1}}
	proposals := [][]Sample{candidates, candidates, candidates}

	eval := func(sample Sample, _ int) float64 { return sample[0] }

	batch, err := selector.Select(1, proposals, eval, []float64{0.1, 1.0, 2.0}, nil)
	require.NoError(t, err)

	assert.Len(t, batch, 3)
	assert.Less(t, len(uniqueSamples(batch)), 3)

	// Every strategy picked option 0; the pool still sheds that distinct
	// selection so later rounds cannot backfill an already-recommended tuple.
	assert.Equal(t, 1, selector.RemainingOptions())
}

func TestBackfillPadsWithDuplicatesOncePoolExhausted(t *testing.T) {
	// Requesting more batch slots than the space has options: the backfill
	// drains the pool and must then pad with duplicates rather than return a
	// short batch.
	space, err := NewParameterSpace([]Feature{
		{Name: "c", Type: Categorical, Size: 3},
	})
	require.NoError(t, err)

	selector := NewSampleSelector(space, testSelectorConfig(1, 23))
	require.Equal(t, 3, selector.RemainingOptions())

	candidates := []Sample{{0}, {1}, {2}}
	proposals := [][]Sample{candidates, candidates}

	// Option 1 dominates for every strategy, so both batch rounds collide.
	eval := func(sample Sample, _ int) float64 {
		if sample[0] == 1 {
			return 0
		}

		return 10
	}

	batch, err := selector.Select(2, proposals, eval, []float64{0.5, 1.5}, nil)
	require.NoError(t, err)

	// numBatches x numStrategies vectors, unconditionally.
	require.Len(t, batch, 4)

	// All three options appear; the fourth slot is a duplicate, permitted
	// only because the pool was exhausted.
	assert.Len(t, uniqueSamples(batch), 3)
	assert.Equal(t, 0, selector.RemainingOptions())
}

func TestSelectShapeMismatches(t *testing.T) {
	space, err := NewParameterSpace([]Feature{
		{Name: "x", Type: Continuous, Lower: 0, Upper: 1},
	})
	require.NoError(t, err)

	selector := NewSampleSelector(space, testSelectorConfig(1, 1))

	eval := func(Sample, int) float64 { return 0 }

	// Strategy count does not match the sampling-parameter values.
	_, err = selector.Select(1, [][]Sample{{{0.5}}}, eval, []float64{0.5, 1.5}, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	// Ragged candidate counts across strategies.
	_, err = selector.Select(1, [][]Sample{{{0.1}, {0.2}}, {{0.3}}}, eval, []float64{0.5, 1.5}, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	// Candidate dimensionality does not match the space.
	_, err = selector.Select(1, [][]Sample{{{0.1, 0.2}}}, eval, []float64{0.5}, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	// Strategies with no candidates at all leave nothing to pick from.
	_, err = selector.Select(1, [][]Sample{{}}, eval, []float64{0.5}, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestWorkerPanicPropagates(t *testing.T) {
	// A failing evaluator must abort the whole Select call rather than
	// silently dropping a partition.
	space, err := NewParameterSpace([]Feature{
		{Name: "x", Type: Continuous, Lower: 0, Upper: 1},
	})
	require.NoError(t, err)

	sampler := NewRandomSampler(space, nil, testSamplerConfig(17))

	candidates, err := sampler.Draw(64)
	require.NoError(t, err)

	selector := NewSampleSelector(space, testSelectorConfig(4, 17))

	eval := func(sample Sample, _ int) float64 {
		if sample[0] > 0.5 {
			panic("surrogate backend unavailable")
		}

		return sample[0]
	}

	assert.Panics(t, func() {
		_, _ = selector.Select(1, [][]Sample{candidates}, eval, []float64{1.0}, nil)
	})
}
