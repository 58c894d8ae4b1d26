package core

import (
	"math"
	"testing"
)

func TestDecayingScalarStaysInBounds(t *testing.T) {
	tests := []struct {
		name   string
		factor float64
		lo, hi float64
		stats  []float64
	}{
		{"creativity", 0.5, 0, 1, []float64{0.1, 0.4, 3, 10, 0.2}},
		{"normalization", 0.1, -1, 1, []float64{-50, 50, -1e9, 1e9}},
		{"adversarial", 1e6, 0, 1, []float64{math.MaxFloat64, -math.MaxFloat64, math.Inf(1), math.Inf(-1), math.NaN()}},
		{"negative factor", -2, 0, 1, []float64{1, -1, 5, -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewDecayingScalar(tt.factor, tt.lo, tt.hi)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 100; i++ {
				for _, stat := range tt.stats {
					v := s.Update(stat)
					if math.IsNaN(v) || v < tt.lo || v > tt.hi {
						t.Fatalf("Update(%v) = %v, outside [%v, %v]", stat, v, tt.lo, tt.hi)
					}
				}
			}
		})
	}
}

func TestDecayingScalarAccumulates(t *testing.T) {
	s, _ := NewDecayingScalar(0.5, 0, 1)
	if got := s.Update(0.4); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("first update = %v, want 0.2", got)
	}
	if got := s.Update(0.4); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("second update = %v, want 0.4", got)
	}
	if got := s.Update(4); got != 1 {
		t.Errorf("saturating update = %v, want 1", got)
	}
}

func TestDecayingScalarNextIsPure(t *testing.T) {
	s, _ := NewDecayingScalar(1, -1, 1)
	if got := s.Next(0.5); got != 0.5 {
		t.Errorf("Next(0.5) = %v, want 0.5", got)
	}
	if s.Value() != 0 {
		t.Errorf("Next mutated value to %v", s.Value())
	}
}

func TestNewDecayingScalarRejectsBadBounds(t *testing.T) {
	if _, err := NewDecayingScalar(1, 1, 0); err == nil {
		t.Error("expected error for inverted bounds")
	}
	if _, err := NewDecayingScalar(math.NaN(), 0, 1); err == nil {
		t.Error("expected error for NaN factor")
	}
}
