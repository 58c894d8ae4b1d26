// internal/link/duplex_test.go
package link

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// scriptedReceiver yields its payloads in order, then behaves as closed.
// With block set it waits for Close instead of returning ErrReceiverClosed.
type scriptedReceiver struct {
	mu       sync.Mutex
	payloads [][]byte
	block    bool
	closed   chan struct{}
	once     sync.Once
	closeErr error
}

func newScriptedReceiver(block bool, payloads ...[]byte) *scriptedReceiver {
	return &scriptedReceiver{payloads: payloads, block: block, closed: make(chan struct{})}
}

func (r *scriptedReceiver) Receive(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	if len(r.payloads) > 0 {
		p := r.payloads[0]
		r.payloads = r.payloads[1:]
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	if !r.block {
		return nil, ErrReceiverClosed
	}
	<-r.closed
	return nil, ErrReceiverClosed
}

func (r *scriptedReceiver) Close() error {
	r.once.Do(func() { close(r.closed) })
	return r.closeErr
}

// endlessReceiver returns the same payload forever.
type endlessReceiver struct{ payload []byte }

func (r endlessReceiver) Receive(ctx context.Context) ([]byte, error) { return r.payload, nil }
func (r endlessReceiver) Close() error                                 { return nil }

// stuckReceiver ignores Close until release is closed.
type stuckReceiver struct{ release chan struct{} }

func (r stuckReceiver) Receive(ctx context.Context) ([]byte, error) {
	<-r.release
	return nil, ErrReceiverClosed
}
func (r stuckReceiver) Close() error { return nil }

type recordingSender struct {
	mu       sync.Mutex
	sent     [][]byte
	closed   bool
	notify   chan struct{}
	sendErr  error
	closeErr error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{notify: make(chan struct{}, 64)}
}

func (s *recordingSender) Send(ctx context.Context, payload []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.mu.Lock()
	s.sent = append(s.sent, append([]byte(nil), payload...))
	s.mu.Unlock()
	s.notify <- struct{}{}
	return nil
}

func (s *recordingSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func (s *recordingSender) payloads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

// doubler multiplies every value by two.
type doubler struct {
	mu       sync.Mutex
	err      error
	closed   bool
	closeErr error
}

func (d *doubler) Enhance(raw core.Frame) (core.Frame, error) {
	if d.err != nil {
		return core.Frame{}, d.err
	}
	return raw.Map(func(v float64) float64 { return 2 * v }), nil
}

func (d *doubler) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return d.closeErr
}

func (d *doubler) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type pairRecorder struct {
	mu    sync.Mutex
	pairs [][2]core.Frame
}

func (p *pairRecorder) Observe(in, out core.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pairs = append(p.pairs, [2]core.Frame{in, out})
}

func encode(t *testing.T, values ...float64) []byte {
	t.Helper()
	codec, err := core.NewCodec("little")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec.Encode(core.Vector(core.ModalityEEG, values))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Send = "unused"
	cfg.StopTimeout = 2 * time.Second
	return cfg
}

func waitDone(t *testing.T, l *DuplexLink) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit")
	}
}

func TestDuplexLinkRelaysThreeFramesInOrder(t *testing.T) {
	in := newScriptedReceiver(false,
		encode(t, 1, 2),
		encode(t, 3, 4),
		encode(t, 5, 6),
	)
	out := newRecordingSender()
	pipe := &doubler{}
	obs := &pairRecorder{}

	l, err := NewDuplexLink(testConfig(), in, out, pipe, WithObserver(obs))
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}
	waitDone(t, l)

	got := out.payloads()
	want := [][]byte{encode(t, 2, 4), encode(t, 6, 8), encode(t, 10, 12)}
	if len(got) != len(want) {
		t.Fatalf("sent %d payloads, want %d", len(got), len(want))
	}
	for i := range want {
		if string(got[i]) != string(want[i]) {
			t.Errorf("payload %d = %v, want %v", i, got[i], want[i])
		}
	}
	if l.State() != StateStopped {
		t.Errorf("State() = %v, want stopped", l.State())
	}
	if l.Err() != nil {
		t.Errorf("Err() = %v, want nil after clean receiver close", l.Err())
	}

	start := time.Now()
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Close took %s", elapsed)
	}
	if !out.closed || !pipe.isClosed() {
		t.Error("Close did not release sender and pipeline")
	}

	stats := l.Stats()
	if stats.Received != 3 || stats.Sent != 3 || stats.Failures != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
	if len(obs.pairs) != 3 {
		t.Fatalf("observer saw %d pairs, want 3", len(obs.pairs))
	}
	if obs.pairs[2][0].At(0) != 5 || obs.pairs[2][1].At(0) != 10 {
		t.Errorf("last observed pair = %v -> %v", obs.pairs[2][0], obs.pairs[2][1])
	}
}

func TestDuplexLinkCloseUnblocksPendingReceive(t *testing.T) {
	in := newScriptedReceiver(true, encode(t, 1))
	out := newRecordingSender()
	pipe := &doubler{}

	l, err := NewDuplexLink(testConfig(), in, out, pipe)
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}

	select {
	case <-out.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("first frame was never sent")
	}
	if l.State() != StateRunning {
		t.Fatalf("State() = %v, want running while receive is pending", l.State())
	}

	start := time.Now()
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Close took %s", elapsed)
	}
	waitDone(t, l)

	if err := l.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestDuplexLinkStopsAfterConsecutiveFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	cfg := testConfig()
	cfg.MaxConsecutiveFailures = 3
	pipe := &doubler{err: errors.New("model offline")}

	l, err := NewDuplexLink(cfg, endlessReceiver{payload: encode(t, 1)}, newRecordingSender(), pipe, WithMetrics(m))
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}
	waitDone(t, l)
	defer l.Close()

	if l.State() != StateStopped {
		t.Errorf("State() = %v, want stopped", l.State())
	}
	if err := l.Err(); err == nil || !strings.HasPrefix(err.Error(), "process:") {
		t.Errorf("Err() = %v, want process failure", err)
	}
	if got := l.Stats().Failures; got != 3 {
		t.Errorf("Failures = %d, want 3", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("process")); got != 3 {
		t.Errorf("failures{stage=process} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.running); got != 0 {
		t.Errorf("running gauge = %v, want 0", got)
	}
}

func TestDuplexLinkDecodeFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Shape = []int{2, 2}

	in := newScriptedReceiver(true, encode(t, 1, 2, 3))
	out := newRecordingSender()
	l, err := NewDuplexLink(cfg, in, out, &doubler{})
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}
	waitDone(t, l)
	defer l.Close()

	if !errors.Is(l.Err(), core.ErrShapeMismatch) {
		t.Errorf("Err() = %v, want shape mismatch", l.Err())
	}
	if n := len(out.payloads()); n != 0 {
		t.Errorf("sent %d payloads after decode failure", n)
	}
}

func TestDuplexLinkEmptyPayloadIsShapeMismatch(t *testing.T) {
	out := newRecordingSender()
	l, err := NewDuplexLink(testConfig(), newScriptedReceiver(true, []byte{}), out, &doubler{})
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}
	waitDone(t, l)
	defer l.Close()

	if !errors.Is(l.Err(), core.ErrShapeMismatch) {
		t.Errorf("Err() = %v, want shape mismatch", l.Err())
	}
	if !strings.HasPrefix(l.Err().Error(), "decode:") {
		t.Errorf("Err() = %v, want decode failure", l.Err())
	}
	if n := len(out.payloads()); n != 0 {
		t.Errorf("sent %d payloads for an empty frame", n)
	}
}

func TestDuplexLinkCountsReceivesThatFailLater(t *testing.T) {
	payload := encode(t, 1, 2)
	pipe := &doubler{err: errors.New("model offline")}

	l, err := NewDuplexLink(testConfig(), newScriptedReceiver(true, payload), newRecordingSender(), pipe)
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}
	waitDone(t, l)
	defer l.Close()

	stats := l.Stats()
	if stats.Received != 1 || stats.BytesIn != uint64(len(payload)) {
		t.Errorf("Received = %d, BytesIn = %d, want 1 and %d", stats.Received, stats.BytesIn, len(payload))
	}
	if stats.Sent != 0 || stats.BytesOut != 0 {
		t.Errorf("Sent = %d, BytesOut = %d, want nothing sent", stats.Sent, stats.BytesOut)
	}
	if stats.Failures != 1 {
		t.Errorf("Failures = %d, want 1", stats.Failures)
	}
}

func TestDuplexLinkSendFailureIsCollaboratorError(t *testing.T) {
	out := newRecordingSender()
	out.sendErr = errors.New("connection refused")

	l, err := NewDuplexLink(testConfig(), newScriptedReceiver(true, encode(t, 1)), out, &doubler{})
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}
	waitDone(t, l)
	defer l.Close()

	if !errors.Is(l.Err(), core.ErrCollaborator) {
		t.Errorf("Err() = %v, want collaborator error", l.Err())
	}
	if !errors.Is(l.Err(), out.sendErr) {
		t.Errorf("Err() = %v does not wrap the send error", l.Err())
	}
}

func TestDuplexLinkCloseAttemptsEveryRelease(t *testing.T) {
	in := newScriptedReceiver(false)
	in.closeErr = errors.New("listener busy")
	out := newRecordingSender()
	out.closeErr = errors.New("socket reset")
	pipe := &doubler{closeErr: errors.New("device stuck")}

	l, err := NewDuplexLink(testConfig(), in, out, pipe)
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}
	err = l.Close()
	for _, want := range []error{in.closeErr, out.closeErr, pipe.closeErr} {
		if !errors.Is(err, want) {
			t.Errorf("Close() = %v, missing %v", err, want)
		}
	}
	if !pipe.isClosed() {
		t.Error("pipeline not closed after earlier close failures")
	}
}

func TestDuplexLinkCloseTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.StopTimeout = 50 * time.Millisecond
	in := stuckReceiver{release: make(chan struct{})}
	defer close(in.release)

	pipe := &doubler{}
	l, err := NewDuplexLink(cfg, in, newRecordingSender(), pipe)
	if err != nil {
		t.Fatalf("NewDuplexLink: %v", err)
	}

	err = l.Close()
	if !errors.Is(err, core.ErrClosed) {
		t.Errorf("Close() = %v, want state error for timed-out wait", err)
	}
	if pipe.isClosed() {
		t.Error("pipeline closed while the loop may still be using it")
	}
}

func TestNewDuplexLinkValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		in   Receiver
	}{
		{name: "nil receiver", cfg: testConfig()},
		{name: "bad byte order", cfg: Config{ByteOrder: "middle"}, in: newScriptedReceiver(false)},
		{name: "bad modality", cfg: Config{Modality: "ecg"}, in: newScriptedReceiver(false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDuplexLink(tt.cfg, tt.in, newRecordingSender(), &doubler{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{Send: "127.0.0.1:9000"}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.StopTimeout != 5*time.Second || cfg.MaxFrameBytes != 64<<20 || cfg.ByteOrder != "little" {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no destination", func(c *Config) { c.Send = "" }},
		{"tiny frames", func(c *Config) { c.MaxFrameBytes = 4 }},
		{"bad shape", func(c *Config) { c.Shape = []int{0, 3} }},
		{"bad order", func(c *Config) { c.ByteOrder = "network" }},
		{"bad modality", func(c *Config) { c.Modality = "ecg" }},
		{"no failures allowed", func(c *Config) { c.MaxConsecutiveFailures = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
