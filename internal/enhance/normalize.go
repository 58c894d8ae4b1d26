// internal/enhance/normalize.go
package enhance

import (
	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"gonum.org/v1/gonum/stat"
)

// Normalizer - centers enhanced EEG frames by a running normalization score in [-1, 1].
type Normalizer struct {
	enhancer      *MemoryEnhancer
	normalization *core.DecayingScalar
}

func NewNormalizer(enhancer *MemoryEnhancer, factor float64) (*Normalizer, error) {
	score, err := core.NewDecayingScalar(factor, -1, 1)
	if err != nil {
		return nil, err
	}
	return &Normalizer{enhancer: enhancer, normalization: score}, nil
}

// Normalize enhances the frame, folds its mean into the score and returns
// clip(frame - score, -1, 1).
func (n *Normalizer) Normalize(raw core.Frame) (core.Frame, error) {
	out, commit, err := n.stage(raw)
	if err != nil {
		return core.Frame{}, err
	}
	commit()
	return out, nil
}

func (n *Normalizer) stage(raw core.Frame) (core.Frame, func(), error) {
	data, commitMemory, err := n.enhancer.stage(raw)
	if err != nil {
		return core.Frame{}, nil, err
	}
	score := n.normalization.Next(stat.Mean(data.Values(), nil))
	out := data.Map(func(v float64) float64 { return core.Clamp(v-score, -1, 1) })
	return out, func() {
		commitMemory()
		n.normalization.Set(score)
	}, nil
}

func (n *Normalizer) Score() float64 { return n.normalization.Value() }

func (n *Normalizer) Memory() *MemoryEnhancer { return n.enhancer }

func (n *Normalizer) Close() error { return n.enhancer.Close() }

// Validator - gates focused fMRI output by a running validation score in [0, 1].
type Validator struct {
	enhancer   *AttentionEnhancer
	validation *core.DecayingScalar
}

func NewValidator(enhancer *AttentionEnhancer, factor float64) (*Validator, error) {
	score, err := core.NewDecayingScalar(factor, 0, 1)
	if err != nil {
		return nil, err
	}
	return &Validator{enhancer: enhancer, validation: score}, nil
}

// Validate enhances the frame, folds its standard deviation into the score
// and returns clip(frame * score, 0, 1).
func (v *Validator) Validate(raw core.Frame) (core.Frame, error) {
	out, commit, err := v.stage(raw)
	if err != nil {
		return core.Frame{}, err
	}
	commit()
	return out, nil
}

func (v *Validator) stage(raw core.Frame) (core.Frame, func(), error) {
	data, commitAttention, err := v.enhancer.stage(raw)
	if err != nil {
		return core.Frame{}, nil, err
	}
	score := v.validation.Next(stat.PopStdDev(data.Values(), nil))
	out := data.Map(func(x float64) float64 { return core.Clamp(x*score, 0, 1) })
	return out, func() {
		commitAttention()
		v.validation.Set(score)
	}, nil
}

func (v *Validator) Score() float64 { return v.validation.Value() }

func (v *Validator) Attention() *AttentionEnhancer { return v.enhancer }

func (v *Validator) Close() error { return v.enhancer.Close() }
