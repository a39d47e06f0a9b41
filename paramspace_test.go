package gryffin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParameterSpaceDerivations(t *testing.T) {
	// Mixed space covering all three feature types.
	space, err := NewParameterSpace([]Feature{
		{Name: "temperature", Type: Continuous, Lower: 0, Upper: 10},
		{Name: "bucket", Type: Discrete, Lower: 0, Upper: 4},
		{Name: "solvent", Type: Categorical, Size: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, space.NumFeatures())

	// Aggregate arrays are indexable in feature order.
	assert.Equal(t, []float64{0, 0, 0}, space.Lowers())
	assert.Equal(t, []float64{10, 4, 3}, space.Uppers())
	assert.Equal(t, []float64{10, 4, 3}, space.Ranges())

	// Sizes are derived: 1 for continuous, upper-lower for discrete.
	assert.Equal(t, []int{1, 4, 3}, space.Sizes())

	// Categorical bounds are derived as [0, Size).
	assert.Equal(t, 0.0, space.Feature(2).Lower)
	assert.Equal(t, 3.0, space.Feature(2).Upper)
}

func TestNewParameterSpaceUnknownType(t *testing.T) {
	// An unrecognized feature type must be reported at construction time.
	_, err := NewParameterSpace([]Feature{
		{Name: "x", Type: FeatureType("fancy"), Lower: 0, Upper: 1},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFeatureType)
}

func TestNewParameterSpaceInvalidFeatures(t *testing.T) {
	cases := []struct {
		name    string
		feature Feature
	}{
		{"inverted bounds", Feature{Name: "x", Type: Continuous, Lower: 5, Upper: 1}},
		{"zero-width discrete", Feature{Name: "x", Type: Discrete, Lower: 2, Upper: 2}},
		{"single-option categorical", Feature{Name: "x", Type: Categorical, Size: 1}},
		{"missing name", Feature{Type: Continuous, Lower: 0, Upper: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewParameterSpace([]Feature{tc.feature})
			assert.ErrorIs(t, err, ErrInvalidFeature)
		})
	}
}

func TestNamedRepresentation(t *testing.T) {
	space, err := NewParameterSpace([]Feature{
		{Name: "temperature", Type: Continuous, Lower: 0, Upper: 10},
		{Name: "solvent", Type: Categorical, Size: 3},
	})
	require.NoError(t, err)

	named := space.Named(Sample{3.2, 1})

	assert.Equal(t, map[string]float64{"temperature": 3.2, "solvent": 1}, named)
}

func TestEnumerateOptions(t *testing.T) {
	// Fully categorical 2x3 space enumerates every tuple.
	space, err := NewParameterSpace([]Feature{
		{Name: "a", Type: Categorical, Size: 2},
		{Name: "b", Type: Categorical, Size: 3},
	})
	require.NoError(t, err)

	assert.True(t, space.CategoricalOnly())

	options := space.EnumerateOptions()
	require.Len(t, options, 6)

	// Every tuple is distinct and within cardinality.
	assert.Len(t, uniqueSamples(options), 6)

	for _, option := range options {
		assert.GreaterOrEqual(t, option[0], 0.0)
		assert.Less(t, option[0], 2.0)
		assert.GreaterOrEqual(t, option[1], 0.0)
		assert.Less(t, option[1], 3.0)
	}
}

func TestEnumerateOptionsMixedSpace(t *testing.T) {
	// Spaces with continuous dimensions have no finite option pool.
	space, err := NewParameterSpace([]Feature{
		{Name: "x", Type: Continuous, Lower: 0, Upper: 1},
		{Name: "c", Type: Categorical, Size: 2},
	})
	require.NoError(t, err)

	assert.False(t, space.CategoricalOnly())
	assert.Nil(t, space.EnumerateOptions())
}
