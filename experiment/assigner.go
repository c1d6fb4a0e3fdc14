// Package experiment deterministically buckets users into variants of named
// experiments. Assignment hashes the user id together with the experiment
// name, so the same user can land in different buckets across experiments,
// and repeated calls with an identical configuration always return the same
// variant. No assignment state is stored; the mapping is recomputed on
// demand.
package experiment

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/asim800/chatLangGraph/core"
)

// weightTolerance bounds the acceptable drift of a traffic split from 1.0.
const weightTolerance = 0.01

// Variant is one alternative configuration within an experiment. Prompt is
// the system instruction used when the variant is assigned; an empty prompt
// means "keep the default instruction".
type Variant struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
	Prompt string  `yaml:"prompt,omitempty" json:"prompt,omitempty"`
}

// Experiment is a named traffic split. The declared variant order is the
// bucketing order, so reordering variants changes assignments while weight
// tweaks only shift users at bucket boundaries.
type Experiment struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Variants    []Variant `yaml:"variants" json:"variants"`
}

// Validate checks the traffic split: weights must be non-negative and sum to
// 1.0 within tolerance.
func (e Experiment) Validate() error {
	if len(e.Variants) == 0 {
		return fmt.Errorf("%w: experiment %s has no variants", core.ErrConfig, e.Name)
	}
	var sum float64
	for _, v := range e.Variants {
		if v.Weight < 0 {
			return fmt.Errorf("%w: experiment %s: negative weight for variant %s", core.ErrConfig, e.Name, v.Name)
		}
		sum += v.Weight
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: experiment %s: traffic split sums to %.3f, want 1.0", core.ErrConfig, e.Name, sum)
	}
	return nil
}

// Assigner maps (user, experiment) pairs to variants. It holds an immutable
// snapshot of the experiment configuration taken at construction; it is
// stateless beyond that and safe for concurrent use.
type Assigner struct {
	experiments map[string]Experiment
}

// NewAssigner builds an assigner over the given experiments.
func NewAssigner(experiments ...Experiment) *Assigner {
	byName := make(map[string]Experiment, len(experiments))
	for _, e := range experiments {
		byName[e.Name] = e
	}
	return &Assigner{experiments: byName}
}

// Assign returns the variant for userID in the named experiment. It fails
// with ErrNotFound for an unknown experiment and ErrConfig for an invalid
// traffic split; both are surfaced at assignment time so callers can fall
// back to no-experiment behavior.
func (a *Assigner) Assign(userID, experimentName string) (Variant, error) {
	exp, ok := a.experiments[experimentName]
	if !ok {
		return Variant{}, fmt.Errorf("%w: experiment %s", core.ErrNotFound, experimentName)
	}
	if err := exp.Validate(); err != nil {
		return Variant{}, err
	}

	b := Bucket(userID, experimentName)
	var cumulative float64
	for _, v := range exp.Variants {
		cumulative += v.Weight
		if b < cumulative {
			return v, nil
		}
	}
	// Floating point dust can leave the hashed value just past the final
	// cumulative weight; the last variant absorbs it.
	return exp.Variants[len(exp.Variants)-1], nil
}

// Experiments returns the names of all configured experiments.
func (a *Assigner) Experiments() []string {
	names := make([]string, 0, len(a.experiments))
	for name := range a.experiments {
		names = append(names, name)
	}
	return names
}

// Bucket hashes userID and experimentName into a value uniformly distributed
// in [0,1). FNV-1a is stable across processes and platforms, so assignments
// never depend on process lifetime or a random seed. Changing this hash
// reshuffles every existing assignment and requires a migration note.
func Bucket(userID, experimentName string) float64 {
	h := fnv.New64a()
	h.Write([]byte(userID))
	h.Write([]byte{':'})
	h.Write([]byte(experimentName))
	// Keep the top 53 bits so the quotient is exact in a float64.
	return float64(h.Sum64()>>11) / float64(uint64(1)<<53)
}
