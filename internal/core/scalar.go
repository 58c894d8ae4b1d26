// internal/core/scalar.go
package core

import (
	"fmt"
	"math"
)

// DecayingScalar - bounded running score.
// Every update computes score = clip(score + factor*stat, lo, hi).
type DecayingScalar struct {
	value  float64
	factor float64
	lo, hi float64
}

// NewDecayingScalar starts at zero clipped into [lo, hi].
func NewDecayingScalar(factor, lo, hi float64) (*DecayingScalar, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return nil, fmt.Errorf("core: invalid scalar bounds [%v, %v]", lo, hi)
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("core: invalid scalar factor %v", factor)
	}
	return &DecayingScalar{
		value:  Clamp(0, lo, hi),
		factor: factor,
		lo:     lo,
		hi:     hi,
	}, nil
}

func (s *DecayingScalar) Value() float64 { return s.value }

func (s *DecayingScalar) Bounds() (lo, hi float64) { return s.lo, s.hi }

// Next returns the value an Update with stat would produce, without applying it.
// An update that would yield NaN leaves the value unchanged.
func (s *DecayingScalar) Next(stat float64) float64 {
	next := s.value + s.factor*stat
	if math.IsNaN(next) {
		return s.value
	}
	return Clamp(next, s.lo, s.hi)
}

// Update folds stat into the score and returns the new value.
func (s *DecayingScalar) Update(stat float64) float64 {
	s.value = s.Next(stat)
	return s.value
}

// Set overwrites the value, clipped into bounds.
func (s *DecayingScalar) Set(v float64) {
	if math.IsNaN(v) {
		return
	}
	s.value = Clamp(v, s.lo, s.hi)
}
