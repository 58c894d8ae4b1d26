package enhance

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

type session struct {
	engine     *pipeline
	normalizer *Normalizer
	validator  *Validator
	validStim  *fakeStimulator
	ethicist   *Ethicist
	scorer     *fakeScorer
	s          *Session
}

func newSession(t *testing.T) *session {
	t.Helper()
	shape := []int{4}
	ss := &session{
		engine:    newPipeline(t, []float64{0, 1, 0, 0}),
		validStim: &fakeStimulator{shape: shape},
		scorer:    &fakeScorer{score: 0.6},
	}

	m, err := NewMemoryEnhancer(&fakeAugmentor{shape: shape}, 3, shape)
	if err != nil {
		t.Fatal(err)
	}
	if ss.normalizer, err = NewNormalizer(m, 0.1); err != nil {
		t.Fatal(err)
	}
	a, err := NewAttentionEnhancer(ss.validStim, 2, shape)
	if err != nil {
		t.Fatal(err)
	}
	if ss.validator, err = NewValidator(a, 0.9); err != nil {
		t.Fatal(err)
	}
	c, err := NewCreativityEnhancer(&fakeEmulator{regions: 4}, 4, 0.5, newRng())
	if err != nil {
		t.Fatal(err)
	}
	ss.ethicist = NewEthicist(c, ss.scorer)
	ss.s = NewSession(ss.normalizer, ss.engine.ie, ss.validator, ss.ethicist)
	return ss
}

func allZero(frames []core.Frame) bool {
	for _, f := range frames {
		for _, v := range f.Values() {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

func TestSessionProcess(t *testing.T) {
	ss := newSession(t)

	res, err := ss.s.Process(eeg(t, []int{4}, 0.2, 0.4, 0.6, 0.8))
	if err != nil {
		t.Fatal(err)
	}
	if res.Ethics != 0.6 || ss.ethicist.Score() != 0.6 {
		t.Errorf("Ethics = %v, Score() = %v, want 0.6", res.Ethics, ss.ethicist.Score())
	}
	// mean of the input is 0.5, so the normalization score becomes 0.05
	if d := ss.normalizer.Score() - 0.05; math.Abs(d) > 1e-12 {
		t.Errorf("normalization score = %v, want 0.05", ss.normalizer.Score())
	}
	if d := res.Normalized.At(3) - 0.75; math.Abs(d) > 1e-12 {
		t.Errorf("Normalized = %v, want input centered by 0.05", res.Normalized.Values())
	}
	if got := ss.engine.ie.Memory().Window().At(2).At(3); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("engine memory newest slot = %v, want the normalized frame", got)
	}
	if res.Enhanced.At(1) != 1 {
		t.Errorf("Enhanced = %v, want decoded probabilities", res.Enhanced.Values())
	}
	if allZero(ss.validator.Attention().Window().Frames()) || ss.validator.Score() == 0 {
		t.Error("validator not committed")
	}
}

func TestSessionValidateFailureCommitsNothing(t *testing.T) {
	ss := newSession(t)
	ss.validStim.stimulateErr = errors.New("sink offline")

	_, err := ss.s.Process(eeg(t, []int{4}, 0.2, 0.4, 0.6, 0.8))
	if !errors.Is(err, ss.validStim.stimulateErr) {
		t.Fatalf("Process() error = %v, want the sink failure", err)
	}
	if !strings.HasPrefix(err.Error(), "validate:") {
		t.Errorf("error %q does not name the failing stage", err)
	}

	if ss.normalizer.Score() != 0 || !allZero(ss.normalizer.Memory().Window().Frames()) {
		t.Error("normalizer committed despite a later failure")
	}
	if !allZero(ss.engine.ie.Memory().Window().Frames()) || !allZero(ss.engine.ie.Attention().Window().Frames()) {
		t.Error("engine windows pushed despite a later failure")
	}
	if ss.engine.ie.Creativity().Score() != 0 {
		t.Error("engine creativity score moved despite a later failure")
	}
	if ss.ethicist.Score() != 0 {
		t.Error("ethics score moved despite a failure")
	}
}

func TestSessionEthicizeFailureCommitsNothing(t *testing.T) {
	ss := newSession(t)
	ss.scorer.err = errors.New("scorer offline")

	_, err := ss.s.Process(eeg(t, []int{4}, 0.2, 0.4, 0.6, 0.8))
	if !errors.Is(err, core.ErrCollaborator) || !strings.HasPrefix(err.Error(), "ethicize:") {
		t.Fatalf("Process() error = %v, want ethicize collaborator failure", err)
	}
	if ss.validator.Score() != 0 || !allZero(ss.validator.Attention().Window().Frames()) {
		t.Error("validator committed despite a later failure")
	}
	if ss.normalizer.Score() != 0 || !allZero(ss.engine.ie.Memory().Window().Frames()) {
		t.Error("earlier stages committed despite a later failure")
	}
}
