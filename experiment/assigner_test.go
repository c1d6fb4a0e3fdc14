package experiment

import (
	"fmt"
	"testing"

	"github.com/asim800/chatLangGraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptExperiment() Experiment {
	return Experiment{
		Name: "greeting-style",
		Variants: []Variant{
			{Name: "control", Weight: 0.5},
			{Name: "friendly", Weight: 0.25, Prompt: "You are a warm, friendly assistant."},
			{Name: "professional", Weight: 0.25, Prompt: "You are a concise, professional assistant."},
		},
	}
}

func TestAssign_Idempotent(t *testing.T) {
	a := NewAssigner(promptExperiment())

	first, err := a.Assign("u1", "greeting-style")
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := a.Assign("u1", "greeting-style")
		require.NoError(t, err)
		assert.Equal(t, first.Name, again.Name)
	}
}

func TestAssign_UnknownExperiment(t *testing.T) {
	a := NewAssigner(promptExperiment())

	_, err := a.Assign("u1", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAssign_TrafficSplitValidation(t *testing.T) {
	under := Experiment{Name: "e", Variants: []Variant{{Name: "a", Weight: 0.5}, {Name: "b", Weight: 0.4}}}
	over := Experiment{Name: "e", Variants: []Variant{{Name: "a", Weight: 0.6}, {Name: "b", Weight: 0.5}}}
	negative := Experiment{Name: "e", Variants: []Variant{{Name: "a", Weight: 1.2}, {Name: "b", Weight: -0.2}}}
	tolerable := Experiment{Name: "e", Variants: []Variant{{Name: "a", Weight: 0.333}, {Name: "b", Weight: 0.333}, {Name: "c", Weight: 0.334}}}

	for _, exp := range []Experiment{under, over, negative} {
		_, err := NewAssigner(exp).Assign("u1", "e")
		assert.ErrorIs(t, err, core.ErrConfig)
	}

	_, err := NewAssigner(tolerable).Assign("u1", "e")
	assert.NoError(t, err)
}

func TestAssign_DistributionTracksWeights(t *testing.T) {
	a := NewAssigner(promptExperiment())

	counts := map[string]int{}
	const users = 5000
	for i := 0; i < users; i++ {
		v, err := a.Assign(fmt.Sprintf("user-%d", i), "greeting-style")
		require.NoError(t, err)
		counts[v.Name]++
	}

	assert.InDelta(t, 0.5, float64(counts["control"])/users, 0.05)
	assert.InDelta(t, 0.25, float64(counts["friendly"])/users, 0.05)
	assert.InDelta(t, 0.25, float64(counts["professional"])/users, 0.05)
}

func TestAssign_IndependentAcrossExperiments(t *testing.T) {
	// Hashing the experiment name alongside the user id decorrelates
	// assignments: with a 50/50 split, a meaningful share of users should
	// land in different buckets for different experiments.
	split := []Variant{{Name: "a", Weight: 0.5}, {Name: "b", Weight: 0.5}}
	a := NewAssigner(
		Experiment{Name: "exp-one", Variants: split},
		Experiment{Name: "exp-two", Variants: split},
	)

	differs := 0
	const users = 1000
	for i := 0; i < users; i++ {
		id := fmt.Sprintf("user-%d", i)
		one, err := a.Assign(id, "exp-one")
		require.NoError(t, err)
		two, err := a.Assign(id, "exp-two")
		require.NoError(t, err)
		if one.Name != two.Name {
			differs++
		}
	}
	assert.Greater(t, differs, users/4)
}

func TestBucket_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		b := Bucket(fmt.Sprintf("user-%d", i), "exp")
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 1.0)
	}
}
