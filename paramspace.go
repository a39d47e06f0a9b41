package gryffin

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/stat/combin"
)

//////
// ParameterSpace: read-only description of the search space.
//////

// validate checks feature descriptor struct tags at construction time.
var validate = validator.New()

// ParameterSpace is the read-only description of the mixed-variable search
// space consumed by the sampler, optimizer and selector. It exposes per-feature
// type/bounds/size information plus the aggregate arrays (lowers, uppers,
// ranges) indexable in feature order.
//
// A ParameterSpace is immutable after construction and safe for concurrent use
// by any number of components.
type ParameterSpace struct {
	features []Feature

	lowers []float64
	uppers []float64
	ranges []float64
	sizes  []int
}

// NewParameterSpace builds a ParameterSpace from the given feature
// descriptors.
//
// Derivations applied per feature:
// - Categorical: bounds are forced to [0, Size)
// - Discrete: Size is derived as Upper - Lower, then bounds are normalized to
//   the bucket-index encoding [0, Size)
// - Continuous: Size is forced to 1
//
// Returns:
// - *ParameterSpace: The validated space
// - error: ErrUnknownFeatureType or ErrInvalidFeature (wrapped with the
//   offending feature's name) on malformed input; configuration errors are
//   reported here immediately, never deferred.
func NewParameterSpace(features []Feature) (*ParameterSpace, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrInvalidFeature)
	}

	ps := &ParameterSpace{
		features: make([]Feature, len(features)),
		lowers:   make([]float64, len(features)),
		uppers:   make([]float64, len(features)),
		ranges:   make([]float64, len(features)),
		sizes:    make([]int, len(features)),
	}

	for i, f := range features {
		if err := validate.Struct(f); err != nil {
			// Distinguish the unknown-type case: it has its own sentinel so
			// callers can tell a typo'd type apart from bad bounds.
			switch f.Type {
			case Continuous, Discrete, Categorical:
				return nil, fmt.Errorf("%w: feature %q: %v", ErrInvalidFeature, f.Name, err)
			default:
				return nil, fmt.Errorf("%w: feature %q has type %q", ErrUnknownFeatureType, f.Name, f.Type)
			}
		}

		switch f.Type {
		case Continuous:
			if f.Upper <= f.Lower {
				return nil, fmt.Errorf("%w: feature %q: upper %v <= lower %v", ErrInvalidFeature, f.Name, f.Upper, f.Lower)
			}

			f.Size = 1

		case Discrete:
			if f.Upper <= f.Lower {
				return nil, fmt.Errorf("%w: feature %q: upper %v <= lower %v", ErrInvalidFeature, f.Name, f.Upper, f.Lower)
			}

			// Discrete entries are bucket indices, so bounds are normalized
			// to the index encoding [0, Size).
			f.Size = int(f.Upper - f.Lower)
			f.Lower = 0
			f.Upper = float64(f.Size)

		case Categorical:
			if f.Size < 2 {
				return nil, fmt.Errorf("%w: feature %q: categorical size %d < 2", ErrInvalidFeature, f.Name, f.Size)
			}

			f.Lower = 0
			f.Upper = float64(f.Size)
		}

		ps.features[i] = f
		ps.lowers[i] = f.Lower
		ps.uppers[i] = f.Upper
		ps.ranges[i] = f.Upper - f.Lower
		ps.sizes[i] = f.Size
	}

	return ps, nil
}

// NumFeatures returns the dimensionality of the space.
func (ps *ParameterSpace) NumFeatures() int { return len(ps.features) }

// Feature returns the descriptor at index i.
func (ps *ParameterSpace) Feature(i int) Feature { return ps.features[i] }

// Lowers returns the per-feature lower bounds in feature order. The returned
// slice is shared; callers must not mutate it.
func (ps *ParameterSpace) Lowers() []float64 { return ps.lowers }

// Uppers returns the per-feature upper bounds in feature order. The returned
// slice is shared; callers must not mutate it.
func (ps *ParameterSpace) Uppers() []float64 { return ps.uppers }

// Ranges returns the per-feature bound widths in feature order. The returned
// slice is shared; callers must not mutate it.
func (ps *ParameterSpace) Ranges() []float64 { return ps.ranges }

// Sizes returns the per-feature cardinalities in feature order.
func (ps *ParameterSpace) Sizes() []int { return ps.sizes }

// Named converts a sample into its named-field representation, the shape
// consumed by feasibility predicates.
func (ps *ParameterSpace) Named(sample Sample) map[string]float64 {
	named := make(map[string]float64, len(ps.features))
	for i, f := range ps.features {
		named[f.Name] = sample[i]
	}

	return named
}

// CategoricalOnly reports whether every feature of the space is categorical.
// Only in that case is the option pool finite and enumerable.
func (ps *ParameterSpace) CategoricalOnly() bool {
	for _, f := range ps.features {
		if f.Type != Categorical {
			return false
		}
	}

	return true
}

// EnumerateOptions returns the exhaustive enumeration of all valid category
// tuples for a fully categorical space, used to seed the selector's option
// pool. It returns nil when the space has continuous or discrete dimensions.
func (ps *ParameterSpace) EnumerateOptions() []Sample {
	if !ps.CategoricalOnly() {
		return nil
	}

	rows := combin.Cartesian(ps.sizes)

	options := make([]Sample, len(rows))
	for i, row := range rows {
		option := make(Sample, len(row))
		for j, v := range row {
			option[j] = float64(v)
		}

		options[i] = option
	}

	return options
}

// withinBounds reports whether every entry of sample respects its feature's
// bounds.
func (ps *ParameterSpace) withinBounds(sample Sample) bool {
	for i := range ps.features {
		if sample[i] < ps.lowers[i] || sample[i] > ps.uppers[i] {
			return false
		}
	}

	return true
}
