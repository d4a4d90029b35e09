package recognize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzyFallback(t *testing.T) {
	r := newRecognizer(t, homeYAML)
	ctx := context.Background()

	all, err := r.RecognizeAll(ctx, "turn on the kitchn light", Options{})
	require.NoError(t, err)
	assert.Empty(t, all, "exact pass finds nothing")

	all, err = r.RecognizeAll(ctx, "turn on the kitchn light", Options{Fuzzy: true})
	require.NoError(t, err)
	require.NotEmpty(t, all)

	first := all[0]
	assert.Equal(t, "TurnOn", first.Intent.Name)
	assert.True(t, first.Fuzzy)
	assert.Equal(t, 1, first.Distance)
	assert.Equal(t, "kitchen", first.Entities["area"].Value)

	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Distance, all[i].Distance)
		assert.True(t, all[i].Fuzzy)
	}
}

func TestFuzzyOnlyWhenNothingMatches(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	all, err := r.RecognizeAll(context.Background(), "turn on the kitchen light", Options{Fuzzy: true})
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for _, res := range all {
		assert.False(t, res.Fuzzy)
	}
}

func TestFuzzyLimit(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	all, err := r.RecognizeAll(context.Background(), "turn of the kitchen light", Options{Fuzzy: true, FuzzyLimit: 1})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "TurnOn", all[0].Intent.Name)
	assert.Equal(t, 1, all[0].Distance)
}

func TestFuzzyRecognize(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	res, err := r.Recognize(context.Background(), "plai music", Options{Fuzzy: true})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "PlayMusic", res.Intent.Name)
	assert.True(t, res.Fuzzy)
}

func TestFuzzyRespectsContext(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	all, err := r.RecognizeAll(context.Background(), "turn it onn", Options{
		Fuzzy:   true,
		Context: map[string]any{"area": "kitchen", "domain": "cover"},
	})
	require.NoError(t, err)
	for _, res := range all {
		assert.NotEqual(t, "TurnOnContext", res.Intent.Name)
	}
}
