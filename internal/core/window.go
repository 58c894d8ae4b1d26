// internal/core/window.go
package core

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// RollingWindow - fixed-capacity FIFO of same-shaped frames.
// It always holds exactly Cap() frames; the pre-fill slots are zero frames.
// Logical index 0 is the oldest entry, Cap()-1 the most recent.
//
// RollingWindow is not safe for concurrent use.
type RollingWindow struct {
	modality Modality
	shape    []int
	slots    []Frame
	head     int // physical index of logical slot 0
}

// NewRollingWindow allocates a zero-filled window.
func NewRollingWindow(capacity int, modality Modality, shape []int) (*RollingWindow, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("core: window capacity must be at least 1, got %d", capacity)
	}
	zero, err := Zeros(modality, shape)
	if err != nil {
		return nil, err
	}

	slots := make([]Frame, capacity)
	for i := range slots {
		slots[i] = zero
	}
	return &RollingWindow{
		modality: modality,
		shape:    cloneShape(shape),
		slots:    slots,
	}, nil
}

func (w *RollingWindow) Cap() int { return len(w.slots) }

// Len is always equal to Cap.
func (w *RollingWindow) Len() int { return len(w.slots) }

func (w *RollingWindow) Modality() Modality { return w.modality }

func (w *RollingWindow) Shape() []int { return cloneShape(w.shape) }

// At returns the frame at logical index i.
func (w *RollingWindow) At(i int) Frame {
	return w.slots[(w.head+i)%len(w.slots)]
}

// Frames returns the window contents oldest first.
func (w *RollingWindow) Frames() []Frame {
	out := make([]Frame, len(w.slots))
	for i := range out {
		out[i] = w.At(i)
	}
	return out
}

// Check validates that frame can be pushed without mutating the window.
func (w *RollingWindow) Check(frame Frame) error {
	if frame.modality != w.modality {
		return &Error{
			Kind:    KindShapeMismatch,
			Op:      "core.RollingWindow.Push",
			Message: "modality " + string(frame.modality) + " does not match window modality " + string(w.modality),
		}
	}
	if !frame.SameShape(w.slots[0]) {
		return &Error{
			Kind:    KindShapeMismatch,
			Op:      "core.RollingWindow.Push",
			Message: "frame " + frame.String() + " does not match window shape " + w.slots[0].String(),
		}
	}
	return nil
}

// Push drops the oldest frame and stores frame as the most recent one.
// Returns the evicted frame.
func (w *RollingWindow) Push(frame Frame) (Frame, error) {
	if err := w.Check(frame); err != nil {
		return Frame{}, err
	}
	evicted := w.slots[w.head]
	w.slots[w.head] = frame
	w.head = (w.head + 1) % len(w.slots)
	return evicted, nil
}

// Mean returns the elementwise mean across every slot, pre-fill zeros included.
func (w *RollingWindow) Mean() Frame {
	sum := make([]float64, len(w.slots[0].data))
	for _, f := range w.slots {
		floats.Add(sum, f.data)
	}
	floats.Scale(1/float64(len(w.slots)), sum)
	return Frame{modality: w.modality, shape: cloneShape(w.shape), data: sum}
}

// MeanWith returns the mean the window would have after pushing frame,
// without mutating the window.
func (w *RollingWindow) MeanWith(frame Frame) (Frame, error) {
	if err := w.Check(frame); err != nil {
		return Frame{}, err
	}
	sum := make([]float64, len(frame.data))
	// logical slot 0 is evicted by the push
	for i := 1; i < len(w.slots); i++ {
		floats.Add(sum, w.At(i).data)
	}
	floats.Add(sum, frame.data)
	floats.Scale(1/float64(len(w.slots)), sum)
	return Frame{modality: w.modality, shape: cloneShape(w.shape), data: sum}, nil
}

// Recall - SimilarityRecall over the window.
// Every stored frame and the query are flattened and scored with a raw dot
// product; the frame with the highest score wins, ties go to the lowest
// logical index. The returned int is that logical index.
func (w *RollingWindow) Recall(query Frame) (Frame, int, error) {
	return Recall(w.Frames(), query)
}

// Recall runs SimilarityRecall over an ordered set of candidates.
func Recall(candidates []Frame, query Frame) (Frame, int, error) {
	if len(candidates) == 0 {
		return Frame{}, -1, &Error{Kind: KindShapeMismatch, Op: "core.Recall", Message: "no candidates"}
	}
	q := query.raw()
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		if c.Len() != len(q) {
			return Frame{}, -1, ShapeMismatch("core.Recall", c.Len(), len(q))
		}
		score := floats.Dot(c.raw(), q)
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	return candidates[best], best, nil
}

// Scores returns the dot product of every window entry with the query, oldest first.
func (w *RollingWindow) Scores(query Frame) ([]float64, error) {
	scores := make([]float64, len(w.slots))
	for i := range scores {
		f := w.At(i)
		if f.Len() != query.Len() {
			return nil, ShapeMismatch("core.RollingWindow.Scores", f.Len(), query.Len())
		}
		scores[i] = floats.Dot(f.raw(), query.raw())
	}
	return scores, nil
}
