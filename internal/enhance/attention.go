// internal/enhance/attention.go
package enhance

import (
	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// AttentionEnhancer - rolling window of fMRI frames whose running mean is the
// focused output. Every slot counts equally, so until the window has seen
// `span` real frames the mean is pulled toward the zero pre-fill.
type AttentionEnhancer struct {
	stimulator Stimulator
	attention  *core.RollingWindow
	closed     bool
}

// NewAttentionEnhancer takes ownership of stimulator.
func NewAttentionEnhancer(stimulator Stimulator, span int, shape []int) (*AttentionEnhancer, error) {
	attention, err := core.NewRollingWindow(span, core.ModalityFMRI, shape)
	if err != nil {
		return nil, err
	}
	return &AttentionEnhancer{stimulator: stimulator, attention: attention}, nil
}

// Enhance loads the frame, folds it into the window and returns the window
// mean after forwarding it to the stimulator.
func (a *AttentionEnhancer) Enhance(raw core.Frame) (core.Frame, error) {
	out, commit, err := a.stage(raw)
	if err != nil {
		return core.Frame{}, err
	}
	commit()
	return out, nil
}

func (a *AttentionEnhancer) stage(raw core.Frame) (core.Frame, func(), error) {
	if a.closed {
		return core.Frame{}, nil, core.Closed("enhance.AttentionEnhancer.Enhance")
	}
	data, err := a.stimulator.Load(raw)
	if err != nil {
		return core.Frame{}, nil, core.Collaborator("enhance.AttentionEnhancer.Enhance", err)
	}
	mean, err := a.attention.MeanWith(data)
	if err != nil {
		return core.Frame{}, nil, err
	}
	if err := a.stimulator.Stimulate(mean); err != nil {
		return core.Frame{}, nil, core.Collaborator("enhance.AttentionEnhancer.Enhance", err)
	}
	return mean, func() { a.attention.Push(data) }, nil
}

// Focus returns the stored frame (not the mean) that best matches the preprocessed query.
func (a *AttentionEnhancer) Focus(query core.Frame) (core.Frame, error) {
	if a.closed {
		return core.Frame{}, core.Closed("enhance.AttentionEnhancer.Focus")
	}
	q, err := a.stimulator.Preprocess(query)
	if err != nil {
		return core.Frame{}, core.Collaborator("enhance.AttentionEnhancer.Focus", err)
	}
	best, _, err := a.attention.Recall(q)
	return best, err
}

// Mean is the current focused output without pushing anything.
func (a *AttentionEnhancer) Mean() core.Frame { return a.attention.Mean() }

func (a *AttentionEnhancer) Window() *core.RollingWindow { return a.attention }

func (a *AttentionEnhancer) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	return a.stimulator.Close()
}
