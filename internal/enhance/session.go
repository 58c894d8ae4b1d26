// internal/enhance/session.go
package enhance

import (
	"fmt"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// Result - outputs of one Session step.
type Result struct {
	Normalized core.Frame
	Enhanced   core.Frame
	Validated  core.Frame
	Ethics     float64
}

// Session - one local processing step over a raw EEG frame:
// Normalizer -> IntelligenceEnhancer -> Validator, with the enhanced output
// scored by the Ethicist. Windows and scores of every stage are committed
// only after all of them have succeeded.
//
// Not safe for concurrent use.
type Session struct {
	normalizer *Normalizer
	engine     *IntelligenceEnhancer
	validator  *Validator
	ethicist   *Ethicist
}

func NewSession(normalizer *Normalizer, engine *IntelligenceEnhancer, validator *Validator, ethicist *Ethicist) *Session {
	return &Session{
		normalizer: normalizer,
		engine:     engine,
		validator:  validator,
		ethicist:   ethicist,
	}
}

func (s *Session) Process(raw core.Frame) (Result, error) {
	normalized, commitNormalizer, err := s.normalizer.stage(raw)
	if err != nil {
		return Result{}, fmt.Errorf("normalize: %w", err)
	}
	enhanced, commitEngine, err := s.engine.stage(normalized)
	if err != nil {
		return Result{}, err
	}
	validated, commitValidator, err := s.validator.stage(normalized)
	if err != nil {
		return Result{}, fmt.Errorf("validate: %w", err)
	}
	ethics, commitEthicist, err := s.ethicist.stage(enhanced)
	if err != nil {
		return Result{}, fmt.Errorf("ethicize: %w", err)
	}

	commitNormalizer()
	commitEngine()
	commitValidator()
	commitEthicist()
	return Result{
		Normalized: normalized,
		Enhanced:   enhanced,
		Validated:  validated,
		Ethics:     ethics,
	}, nil
}
