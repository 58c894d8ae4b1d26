// internal/enhance/ethicist.go
package enhance

import (
	"errors"
	"io"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// Scorer turns a region distribution into the probability of the positive class.
type Scorer interface {
	Score(core.Frame) (float64, error)
}

// Ethicist - runs optogenetic output through its own CreativityEnhancer and
// scores the decoded distribution with a two-class scorer.
type Ethicist struct {
	enhancer *CreativityEnhancer
	scorer   Scorer
	last     float64
}

// NewEthicist takes ownership of enhancer (and scorer, if closable).
func NewEthicist(enhancer *CreativityEnhancer, scorer Scorer) *Ethicist {
	return &Ethicist{enhancer: enhancer, scorer: scorer}
}

// Ethicize enhances the frame and returns the positive-class probability.
func (e *Ethicist) Ethicize(raw core.Frame) (float64, error) {
	score, commit, err := e.stage(raw)
	if err != nil {
		return 0, err
	}
	commit()
	return score, nil
}

func (e *Ethicist) stage(raw core.Frame) (float64, func(), error) {
	probs, commitCreativity, err := e.enhancer.stage(raw)
	if err != nil {
		return 0, nil, err
	}
	score, err := e.scorer.Score(probs)
	if err != nil {
		return 0, nil, core.Collaborator("enhance.Ethicist.Ethicize", err)
	}
	if score < 0 || score > 1 {
		return 0, nil, core.Distribution("enhance.Ethicist.Ethicize", "score is not a probability")
	}
	return score, func() {
		commitCreativity()
		e.last = score
	}, nil
}

// Score is the most recent committed ethics score.
func (e *Ethicist) Score() float64 { return e.last }

func (e *Ethicist) Creativity() *CreativityEnhancer { return e.enhancer }

func (e *Ethicist) Close() error {
	var errs []error
	if err := e.enhancer.Close(); err != nil {
		errs = append(errs, err)
	}
	if cl, ok := e.scorer.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
