// internal/enhance/memory.go
package enhance

import (
	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// MemoryEnhancer - rolling window of augmented EEG frames with similarity recall.
type MemoryEnhancer struct {
	augmentor Augmentor
	memory    *core.RollingWindow
	closed    bool
}

// NewMemoryEnhancer takes ownership of augmentor.
func NewMemoryEnhancer(augmentor Augmentor, size int, shape []int) (*MemoryEnhancer, error) {
	memory, err := core.NewRollingWindow(size, core.ModalityEEG, shape)
	if err != nil {
		return nil, err
	}
	return &MemoryEnhancer{augmentor: augmentor, memory: memory}, nil
}

// Enhance augments the frame, stores it as the newest memory and returns it.
func (m *MemoryEnhancer) Enhance(raw core.Frame) (core.Frame, error) {
	out, commit, err := m.stage(raw)
	if err != nil {
		return core.Frame{}, err
	}
	commit()
	return out, nil
}

func (m *MemoryEnhancer) stage(raw core.Frame) (core.Frame, func(), error) {
	if m.closed {
		return core.Frame{}, nil, core.Closed("enhance.MemoryEnhancer.Enhance")
	}
	data, err := m.augmentor.Augment(raw)
	if err != nil {
		return core.Frame{}, nil, core.Collaborator("enhance.MemoryEnhancer.Enhance", err)
	}
	if err := m.memory.Check(data); err != nil {
		return core.Frame{}, nil, err
	}
	return data, func() { m.memory.Push(data) }, nil
}

// Recall returns the stored frame with the highest dot-product score against the preprocessed query.
func (m *MemoryEnhancer) Recall(query core.Frame) (core.Frame, error) {
	if m.closed {
		return core.Frame{}, core.Closed("enhance.MemoryEnhancer.Recall")
	}
	q, err := m.augmentor.Preprocess(query)
	if err != nil {
		return core.Frame{}, core.Collaborator("enhance.MemoryEnhancer.Recall", err)
	}
	best, _, err := m.memory.Recall(q)
	return best, err
}

// Window exposes the memory buffer for inspection.
func (m *MemoryEnhancer) Window() *core.RollingWindow { return m.memory }

func (m *MemoryEnhancer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.augmentor.Close()
}
