// internal/device/replay.go
package device

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"github.com/tidwall/gjson"
)

// Recording - frames captured from one modality, stored as JSON:
//
//	{"modality": "eeg", "shape": [16, 64], "frames": [[...], [...]]}
type Recording struct {
	Modality core.Modality
	Shape    []int
	Frames   []core.Frame
}

// ParseRecording decodes a JSON recording and validates every frame against its shape.
func ParseRecording(data []byte) (*Recording, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("device: recording is not valid JSON")
	}
	doc := gjson.ParseBytes(data)

	modality := core.Modality(doc.Get("modality").String())
	if !modality.Valid() {
		return nil, fmt.Errorf("device: unknown recording modality %q", modality)
	}

	var shape []int
	for _, d := range doc.Get("shape").Array() {
		shape = append(shape, int(d.Int()))
	}
	if _, err := core.ShapeSize(shape); err != nil {
		return nil, fmt.Errorf("device: recording shape: %w", err)
	}

	rec := &Recording{Modality: modality, Shape: shape}
	for i, frame := range doc.Get("frames").Array() {
		values := frame.Array()
		data := make([]float64, len(values))
		for j, v := range values {
			data[j] = v.Float()
		}
		f, err := core.NewFrame(modality, shape, data)
		if err != nil {
			return nil, fmt.Errorf("device: recording frame %d: %w", i, err)
		}
		rec.Frames = append(rec.Frames, f)
	}
	return rec, nil
}

// LoadRecording reads and parses a recording file.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return ParseRecording(data)
}

type recordingJSON struct {
	Modality core.Modality `json:"modality"`
	Shape    []int         `json:"shape"`
	Frames   [][]float64   `json:"frames"`
}

// WriteRecording serializes frames in the format ParseRecording reads.
func WriteRecording(w io.Writer, modality core.Modality, shape []int, frames []core.Frame) error {
	out := recordingJSON{Modality: modality, Shape: shape, Frames: make([][]float64, len(frames))}
	for i, f := range frames {
		out.Frames[i] = f.Values()
	}
	return json.NewEncoder(w).Encode(out)
}

// ReplaySource plays a recording back frame by frame and returns io.EOF at the end.
type ReplaySource struct {
	mu     sync.Mutex
	rec    *Recording
	next   int
	loop   bool
	closed bool
}

// NewReplaySource wraps rec; with loop set it restarts from the first frame instead of returning io.EOF.
func NewReplaySource(rec *Recording, loop bool) *ReplaySource {
	return &ReplaySource{rec: rec, loop: loop}
}

func (r *ReplaySource) Read() (core.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return core.Frame{}, core.Closed("device.ReplaySource.Read")
	}
	if r.next >= len(r.rec.Frames) {
		if !r.loop || len(r.rec.Frames) == 0 {
			return core.Frame{}, io.EOF
		}
		r.next = 0
	}
	f := r.rec.Frames[r.next]
	r.next++
	return f, nil
}

// Remaining reports how many frames are left before io.EOF.
func (r *ReplaySource) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rec.Frames) - r.next
}

func (r *ReplaySource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
