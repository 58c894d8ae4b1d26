// internal/enhance/creativity.go
package enhance

import (
	"math/rand"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CreativityEnhancer - decaying creativity score in [0, 1] driven by the
// spread of decoded region probabilities, plus stochastic target selection.
type CreativityEnhancer struct {
	emulator   Emulator
	creativity *core.DecayingScalar
	regions    int
	rng        *rand.Rand
	closed     bool
}

// NewCreativityEnhancer takes ownership of emulator. rng must not be shared
// with another goroutine.
func NewCreativityEnhancer(emulator Emulator, regions int, factor float64, rng *rand.Rand) (*CreativityEnhancer, error) {
	creativity, err := core.NewDecayingScalar(factor, 0, 1)
	if err != nil {
		return nil, err
	}
	return &CreativityEnhancer{
		emulator:   emulator,
		creativity: creativity,
		regions:    regions,
		rng:        rng,
	}, nil
}

// Enhance decodes the frame into region probabilities, updates the
// creativity score with their standard deviation, draws a target region
// from them and emulates it. The decoded probabilities are returned.
func (c *CreativityEnhancer) Enhance(raw core.Frame) (core.Frame, error) {
	out, commit, err := c.stage(raw)
	if err != nil {
		return core.Frame{}, err
	}
	commit()
	return out, nil
}

func (c *CreativityEnhancer) stage(raw core.Frame) (core.Frame, func(), error) {
	if c.closed {
		return core.Frame{}, nil, core.Closed("enhance.CreativityEnhancer.Enhance")
	}
	probs, err := c.emulator.Decode(raw)
	if err != nil {
		return core.Frame{}, nil, core.Collaborator("enhance.CreativityEnhancer.Enhance", err)
	}
	if probs.Len() != c.regions {
		return core.Frame{}, nil, core.ShapeMismatch("enhance.CreativityEnhancer.Enhance", c.regions, probs.Len())
	}

	p := probs.Values()
	next := c.creativity.Next(stat.PopStdDev(p, nil))
	target, err := core.Draw(c.rng, p)
	if err != nil {
		return core.Frame{}, nil, err
	}
	if err := c.emulator.Emulate(target); err != nil {
		return core.Frame{}, nil, core.Collaborator("enhance.CreativityEnhancer.Enhance", err)
	}
	return probs, func() { c.creativity.Set(next) }, nil
}

// Generate samples one random region vector, scales it by the creativity
// score, renormalizes it and scores it against the preprocessed query. With
// a single generated candidate the arg-max always lands on index 0 and the
// returned value is that component of the normalized vector.
func (c *CreativityEnhancer) Generate(query core.Frame) (float64, error) {
	if c.closed {
		return 0, core.Closed("enhance.CreativityEnhancer.Generate")
	}
	q, err := c.emulator.Preprocess(query)
	if err != nil {
		return 0, core.Collaborator("enhance.CreativityEnhancer.Generate", err)
	}
	if q.Len() != c.regions {
		return 0, core.ShapeMismatch("enhance.CreativityEnhancer.Generate", c.regions, q.Len())
	}

	data := make([]float64, c.regions)
	for i := range data {
		data[i] = c.rng.Float64()
	}
	floats.Scale(c.creativity.Value(), data)
	sum := floats.Sum(data)
	if sum <= 0 {
		return 0, core.Distribution("enhance.CreativityEnhancer.Generate", "creativity score is zero")
	}
	floats.Scale(1/sum, data)

	candidates := [][]float64{data}
	scores := make([]float64, len(candidates))
	for i, cand := range candidates {
		scores[i] = floats.Dot(cand, q.Values())
	}
	return data[floats.MaxIdx(scores)], nil
}

// Score is the current creativity value.
func (c *CreativityEnhancer) Score() float64 { return c.creativity.Value() }

func (c *CreativityEnhancer) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.emulator.Close()
}
