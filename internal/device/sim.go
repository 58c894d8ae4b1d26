// internal/device/sim.go
package device

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"github.com/rs/zerolog/log"
)

// SimSource produces band-limited noise frames from a seeded generator.
type SimSource struct {
	modality core.Modality
	shape    []int
	size     int
	rng      *rand.Rand
	phase    float64
	closed   bool
	mu       sync.Mutex
}

func NewSimSource(modality core.Modality, shape []int, seed int64) (*SimSource, error) {
	size, err := core.ShapeSize(shape)
	if err != nil {
		return nil, err
	}
	return &SimSource{
		modality: modality,
		shape:    shape,
		size:     size,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Read returns one frame: a slow sinusoid per channel plus gaussian noise, clipped to [-1, 1].
func (s *SimSource) Read() (core.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.Frame{}, core.Closed("device.SimSource.Read")
	}
	data := make([]float64, s.size)
	for i := range data {
		v := 0.5*math.Sin(s.phase+float64(i)*0.05) + 0.1*s.rng.NormFloat64()
		data[i] = core.Clamp(v, -1, 1)
	}
	s.phase += 0.1
	return core.NewFrame(s.modality, s.shape, data)
}

func (s *SimSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SimSink records written frames in memory.
type SimSink struct {
	mu     sync.Mutex
	last   core.Frame
	writes int
	closed bool
}

func NewSimSink() *SimSink { return &SimSink{} }

func (s *SimSink) Write(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.Closed("device.SimSink.Write")
	}
	s.last = f
	s.writes++
	log.Debug().Str("device", "sink").Str("frame", f.String()).Int("writes", s.writes).Msg("Frame written")
	return nil
}

// Last returns the most recently written frame and the total write count.
func (s *SimSink) Last() (core.Frame, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.writes
}

func (s *SimSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SimActuator counts stimulations per target.
type SimActuator struct {
	mu      sync.Mutex
	regions int
	hits    []int
	targets []int
	closed  bool
}

func NewSimActuator(regions int) *SimActuator {
	return &SimActuator{regions: regions, hits: make([]int, regions)}
}

func (a *SimActuator) Stimulate(target int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return core.Closed("device.SimActuator.Stimulate")
	}
	if target < 0 || target >= a.regions {
		return fmt.Errorf("device: target %d out of range [0, %d)", target, a.regions)
	}
	a.hits[target]++
	a.targets = append(a.targets, target)
	log.Debug().Str("device", "actuator").Int("target", target).Msg("Region stimulated")
	return nil
}

// Targets returns every stimulated target in order.
func (a *SimActuator) Targets() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int, len(a.targets))
	copy(out, a.targets)
	return out
}

// Hits returns the per-region stimulation count.
func (a *SimActuator) Hits() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int, len(a.hits))
	copy(out, a.hits)
	return out
}

func (a *SimActuator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}
