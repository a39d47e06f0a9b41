package gryffin

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"
)

//////
// GradientOptimizer: mixed-type local refinement of candidate vectors.
//////

// convergenceTol is the Euclidean displacement below which an iteration of
// Refine declares convergence (continuous features only).
const convergenceTol = 1e-7

// OptimizerConfig controls the per-type update rules of a GradientOptimizer.
//
// The continuous rule is an Adam-style adaptive-rate gradient step; Eta,
// Beta1, Beta2 and Epsilon are its usual parameters and GradientStep is the
// finite-difference probe width used to estimate gradients of the acquisition
// surface.
type OptimizerConfig struct {
	// Eta is the continuous learning rate.
	Eta float64

	// Beta1 is the first-moment decay rate.
	Beta1 float64

	// Beta2 is the second-moment decay rate.
	Beta2 float64

	// Epsilon guards the adaptive-rate denominator.
	Epsilon float64

	// GradientStep is the central-difference probe width.
	GradientStep float64

	// Logger receives debug output; nil falls back to slog.Default().
	Logger *slog.Logger
}

// DefaultOptimizerConfig returns the standard Adam parameters.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		Eta:          0.1,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		GradientStep: 1e-6,
	}
}

// GradientOptimizer iteratively refines one candidate vector toward an
// acquisition optimum by applying a per-type update rule: continuous features
// get an adaptive-rate gradient step, discrete and categorical features get a
// local neighborhood scan.
//
// Thread safety:
// - The continuous rule keeps adaptive-rate state between calls, owned
//   exclusively by this instance. Do NOT share one GradientOptimizer across
//   concurrent refinement calls; build one instance per goroutine.
type GradientOptimizer struct {
	space  *ParameterSpace
	logger *slog.Logger

	posContinuous  []bool
	posDiscrete    []bool
	posCategorical []bool

	// One update rule per feature type, held behind the stepper capability;
	// Refine only invokes the variants whose feature mask is non-empty.
	con stepper
	dis stepper
	cat stepper

	// Active flags reflect the most recent Bind: a type participates in
	// Refine only if it owns at least one non-ignored position.
	hasContinuous  bool
	hasDiscrete    bool
	hasCategorical bool

	bound bool
}

// NewGradientOptimizer partitions the space's feature positions by type and
// instantiates the per-type update rules. A feature whose type is not
// recognized is a configuration error reported here, never silently skipped.
func NewGradientOptimizer(space *ParameterSpace, config OptimizerConfig) (*GradientOptimizer, error) {
	n := space.NumFeatures()

	opt := &GradientOptimizer{
		space:          space,
		logger:         loggerOrDefault(config.Logger),
		posContinuous:  make([]bool, n),
		posDiscrete:    make([]bool, n),
		posCategorical: make([]bool, n),
		con:            newAdamStepper(config.Eta, config.Beta1, config.Beta2, config.Epsilon, config.GradientStep),
		dis:            &naiveDiscreteStepper{},
		cat:            &naiveCategoricalStepper{},
	}

	for i := 0; i < n; i++ {
		f := space.Feature(i)

		switch f.Type {
		case Continuous:
			opt.posContinuous[i] = true
		case Discrete:
			opt.posDiscrete[i] = true
		case Categorical:
			opt.posCategorical[i] = true
		default:
			return nil, fmt.Errorf("%w: feature %q has type %q", ErrUnknownFeatureType, f.Name, f.Type)
		}
	}

	return opt, nil
}

// Bind configures the optimizer against an acquisition surface.
//
// Parameters:
// - kernel: The acquisition surface to refine against (lower is better)
// - ignore: Optional mask excluding specific positions from all three
//   sub-rules (fixed or inactive features); nil means no position is ignored
//
// Bind resets the continuous rule's adaptive-rate state, so a fresh surface
// always starts from clean momentum.
func (o *GradientOptimizer) Bind(kernel Kernel, ignore []bool) error {
	n := o.space.NumFeatures()

	if ignore != nil && len(ignore) != n {
		return fmt.Errorf("%w: ignore mask has %d entries, space has %d features",
			ErrShapeMismatch, len(ignore), n)
	}

	conPos := make([]int, 0, n)
	disPos := make([]int, 0, n)
	disCard := make([]int, 0, n)
	catPos := make([]int, 0, n)
	catCard := make([]int, 0, n)

	for i := 0; i < n; i++ {
		if ignore != nil && ignore[i] {
			continue
		}

		switch {
		case o.posContinuous[i]:
			conPos = append(conPos, i)
		case o.posDiscrete[i]:
			disPos = append(disPos, i)
			disCard = append(disCard, o.space.Sizes()[i])
		case o.posCategorical[i]:
			catPos = append(catPos, i)
			catCard = append(catCard, o.space.Sizes()[i])
		}
	}

	o.con.bind(kernel, conPos, nil)
	o.dis.bind(kernel, disPos, disCard)
	o.cat.bind(kernel, catPos, catCard)

	o.hasContinuous = len(conPos) > 0
	o.hasDiscrete = len(disPos) > 0
	o.hasCategorical = len(catPos) > 0
	o.bound = true

	return nil
}

// Refine applies up to maxIterations rounds of per-type updates to sample and
// returns the refined vector (same dimensionality as the input; the input is
// not mutated).
//
// Each iteration applies, in fixed order: one continuous step (rejected
// outright if the proposal leaves the bounded region), one categorical step,
// one discrete step — each only when that type owns active positions.
// Convergence is declared when the Euclidean displacement of an iteration
// falls below 1e-7; this signal only exists when continuous features are
// active, so pure discrete/categorical refinement always runs the full
// budget.
func (o *GradientOptimizer) Refine(sample Sample, maxIterations int) (Sample, error) {
	if !o.bound {
		return nil, errors.New("refine: optimizer is not bound to an acquisition surface")
	}

	if len(sample) != o.space.NumFeatures() {
		return nil, fmt.Errorf("%w: sample has %d entries, space has %d features",
			ErrShapeMismatch, len(sample), o.space.NumFeatures())
	}

	current := cloneSample(sample)

	// Clamp continuous entries into bounds; discrete and categorical entries
	// are valid by construction.
	for i, active := range o.posContinuous {
		if active {
			current[i] = clamp(current[i], o.space.Lowers()[i], o.space.Uppers()[i])
		}
	}

	for iter := 0; iter < maxIterations; iter++ {
		previous := cloneSample(current)

		if o.hasContinuous {
			proposal := o.con.step(current)
			// A step that leaves the bounded region is rejected outright: the
			// previous value is kept, with no partial projection.
			if o.space.withinBounds(proposal) {
				current = proposal
			}
		}

		if o.hasCategorical {
			current = o.cat.step(current)
		}

		if o.hasDiscrete {
			current = o.dis.step(current)
		}

		if o.hasContinuous && floats.Distance(previous, current, 2) < convergenceTol {
			o.logger.Debug("refinement converged", "iteration", iter+1)

			break
		}
	}

	return current, nil
}
