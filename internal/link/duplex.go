// internal/link/duplex.go
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// Processor is the enhancement pipeline driven by the link.
type Processor interface {
	Enhance(raw core.Frame) (core.Frame, error)
	Close() error
}

// Observer is told about every completed iteration.
type Observer interface {
	Observe(in, out core.Frame)
}

// State of the duplex loop.
type State int32

const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Stats - counters for one link's lifetime.
type Stats struct {
	Received  uint64
	Sent      uint64
	Failures  uint64
	BytesIn   uint64
	BytesOut  uint64
	StartedAt time.Time
}

type Option func(*DuplexLink)

// WithMetrics records loop activity on m.
func WithMetrics(m *Metrics) Option {
	return func(l *DuplexLink) { l.metrics = m }
}

// WithObserver registers o to see every input and output frame pair.
func WithObserver(o Observer) Option {
	return func(l *DuplexLink) { l.observers = append(l.observers, o) }
}

// DuplexLink - receive -> decode -> enhance -> encode -> send, one iteration
// at a time, on a goroutine started by NewDuplexLink.
type DuplexLink struct {
	cfg       Config
	codec     core.Codec
	in        Receiver
	out       Sender
	pipeline  Processor
	metrics   *Metrics
	observers []Observer

	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32
	done   chan struct{}

	mu      sync.Mutex
	lastErr error
	stats   Stats

	closeOnce sync.Once
	closeErr  error
}

// NewDuplexLink takes ownership of in, out and pipeline and starts the loop.
func NewDuplexLink(cfg Config, in Receiver, out Sender, pipeline Processor, opts ...Option) (*DuplexLink, error) {
	if in == nil || out == nil || pipeline == nil {
		return nil, errors.New("link: receiver, sender and pipeline are required")
	}
	cfg = cfg.WithDefaults()
	codec, err := core.NewCodec(cfg.ByteOrder)
	if err != nil {
		return nil, err
	}
	if !core.Modality(cfg.Modality).Valid() {
		return nil, fmt.Errorf("link: unknown modality %q", cfg.Modality)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &DuplexLink{
		cfg:      cfg,
		codec:    codec,
		in:       in,
		out:      out,
		pipeline: pipeline,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.stats.StartedAt = time.Now()
	l.state.Store(int32(StateRunning))
	l.metrics.setRunning(true)

	go l.run()
	return l, nil
}

func (l *DuplexLink) State() State { return State(l.state.Load()) }

// Done is closed when the loop goroutine has exited.
func (l *DuplexLink) Done() <-chan struct{} { return l.done }

// Err returns the most recent iteration failure, or nil.
func (l *DuplexLink) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *DuplexLink) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *DuplexLink) run() {
	defer close(l.done)
	defer l.metrics.setRunning(false)
	defer l.state.Store(int32(StateStopped))

	log.Info().Str("component", "link").Str("modality", l.cfg.Modality).Msg("Duplex loop started")

	consecutive := 0
	for l.State() == StateRunning {
		stage, err := l.iterate()
		if err == nil {
			consecutive = 0
			continue
		}
		// a closed receiver is a clean stop, not a failure
		if stage == "receive" && l.receiverGone(err) {
			log.Info().Str("component", "link").Msg("Receiver closed, stopping duplex loop")
			return
		}

		// only an unbroken run of failures stops the loop
		consecutive++
		l.fail(stage, err)
		if consecutive >= l.cfg.MaxConsecutiveFailures {
			log.Info().Str("component", "link").Int("failures", consecutive).Msg("Failure limit reached, stopping duplex loop")
			return
		}
	}
	log.Info().Str("component", "link").Msg("Duplex loop stopped")
}

// iterate runs one receive-process-send cycle and names the stage that failed.
func (l *DuplexLink) iterate() (string, error) {
	payload, err := l.in.Receive(l.ctx)
	if err != nil {
		return "receive", err
	}
	// count the payload before anything downstream can reject it
	l.metrics.received(len(payload))
	l.mu.Lock()
	l.stats.Received++
	l.stats.BytesIn += uint64(len(payload))
	l.mu.Unlock()

	frame, err := l.decode(payload)
	if err != nil {
		return "decode", err
	}

	// process and encode are timed together as the relay latency
	start := time.Now()
	out, err := l.pipeline.Enhance(frame)
	if err != nil {
		return "process", err
	}
	encoded := l.codec.Encode(out)
	elapsed := time.Since(start)

	// relay back to the sender
	if err := l.out.Send(l.ctx, encoded); err != nil {
		return "send", core.Collaborator("link.send", err)
	}
	l.metrics.sent(len(encoded), elapsed.Seconds())

	l.mu.Lock()
	l.stats.Sent++
	l.stats.BytesOut += uint64(len(encoded))
	l.mu.Unlock()

	// observers see only frames that were relayed
	for _, o := range l.observers {
		o.Observe(frame, out)
	}

	log.Debug().
		Str("component", "link").
		Int("bytes_in", len(payload)).
		Int("bytes_out", len(encoded)).
		Dur("latency", elapsed).
		Msg("Frame relayed")
	return "", nil
}

func (l *DuplexLink) decode(payload []byte) (core.Frame, error) {
	if len(payload) == 0 {
		want := 1
		if len(l.cfg.Shape) > 0 {
			want, _ = core.ShapeSize(l.cfg.Shape)
		}
		return core.Frame{}, core.ShapeMismatch("link.decode", want, 0)
	}
	shape := l.cfg.Shape
	if len(shape) == 0 {
		shape = []int{len(payload) / 8}
	}
	return l.codec.Decode(payload, core.Modality(l.cfg.Modality), shape)
}

// receiverGone reports whether err means no more input will ever arrive.
func (l *DuplexLink) receiverGone(err error) bool {
	return errors.Is(err, ErrReceiverClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) ||
		l.State() != StateRunning
}

func (l *DuplexLink) fail(stage string, err error) {
	l.metrics.failed(stage)
	l.mu.Lock()
	l.lastErr = fmt.Errorf("%s: %w", stage, err)
	l.stats.Failures++
	l.mu.Unlock()
	log.Error().Err(err).Str("component", "link").Str("stage", stage).Msg("Duplex iteration failed")
}

// Close stops the loop and releases the receiver, the sender and the
// pipeline. The receiver is closed first so a pending receive returns, then
// the loop is given StopTimeout to finish its iteration. If it does not
// finish in time the pipeline is left open, since the loop may still be
// inside Enhance; the caller must not reuse it. All failures are returned
// together.
func (l *DuplexLink) Close() error {
	l.closeOnce.Do(func() {
		l.state.Store(int32(StateStopped))
		l.cancel()

		var errs []error
		if err := l.in.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close receiver: %w", err))
		}

		// wait for the in-flight iteration
		stopped := true
		timer := time.NewTimer(l.cfg.StopTimeout)
		select {
		case <-l.done:
			timer.Stop()
		case <-timer.C:
			stopped = false
			errs = append(errs, &core.Error{
				Kind:    core.KindState,
				Op:      "link.Close",
				Message: fmt.Sprintf("loop did not stop within %s, pipeline left open", l.cfg.StopTimeout),
			})
		}

		if err := l.out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sender: %w", err))
		}
		if stopped {
			if err := l.pipeline.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close pipeline: %w", err))
			}
		}
		l.closeErr = errors.Join(errs...)

		log.Info().Str("component", "link").Err(l.closeErr).Msg("Duplex link closed")
	})
	return l.closeErr
}
