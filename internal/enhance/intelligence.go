// internal/enhance/intelligence.go
package enhance

import (
	"errors"
	"fmt"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// IntelligenceEnhancer - Memory -> Attention -> Creativity pipeline.
// Each stage's output feeds the next; the collaborators' Preprocess/Load
// adapters are responsible for the modality hand-offs.
//
// Not safe for concurrent use: callers sharing one instance must serialize.
type IntelligenceEnhancer struct {
	memory     *MemoryEnhancer
	attention  *AttentionEnhancer
	creativity *CreativityEnhancer
}

func NewIntelligenceEnhancer(memory *MemoryEnhancer, attention *AttentionEnhancer, creativity *CreativityEnhancer) *IntelligenceEnhancer {
	return &IntelligenceEnhancer{
		memory:     memory,
		attention:  attention,
		creativity: creativity,
	}
}

// Enhance runs the frame through all three stages. Buffers and scores are
// only mutated once every stage has succeeded.
func (ie *IntelligenceEnhancer) Enhance(raw core.Frame) (core.Frame, error) {
	out, commit, err := ie.stage(raw)
	if err != nil {
		return core.Frame{}, err
	}
	commit()
	return out, nil
}

func (ie *IntelligenceEnhancer) stage(raw core.Frame) (core.Frame, func(), error) {
	mem, commitMemory, err := ie.memory.stage(raw)
	if err != nil {
		return core.Frame{}, nil, fmt.Errorf("memory stage: %w", err)
	}
	att, commitAttention, err := ie.attention.stage(mem)
	if err != nil {
		return core.Frame{}, nil, fmt.Errorf("attention stage: %w", err)
	}
	out, commitCreativity, err := ie.creativity.stage(att)
	if err != nil {
		return core.Frame{}, nil, fmt.Errorf("creativity stage: %w", err)
	}
	return out, func() {
		commitMemory()
		commitAttention()
		commitCreativity()
	}, nil
}

// Solve pipes a query through recall, focus and generate.
func (ie *IntelligenceEnhancer) Solve(query core.Frame) (float64, error) {
	recalled, err := ie.memory.Recall(query)
	if err != nil {
		return 0, fmt.Errorf("recall: %w", err)
	}
	focused, err := ie.attention.Focus(recalled)
	if err != nil {
		return 0, fmt.Errorf("focus: %w", err)
	}
	v, err := ie.creativity.Generate(focused)
	if err != nil {
		return 0, fmt.Errorf("generate: %w", err)
	}
	return v, nil
}

func (ie *IntelligenceEnhancer) Memory() *MemoryEnhancer { return ie.memory }

func (ie *IntelligenceEnhancer) Attention() *AttentionEnhancer { return ie.attention }

func (ie *IntelligenceEnhancer) Creativity() *CreativityEnhancer { return ie.creativity }

// Close closes every stage even if an earlier one fails and reports all failures.
func (ie *IntelligenceEnhancer) Close() error {
	var errs []error
	if err := ie.memory.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close memory: %w", err))
	}
	if err := ie.attention.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close attention: %w", err))
	}
	if err := ie.creativity.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close creativity: %w", err))
	}
	return errors.Join(errs...)
}
