// internal/store/archive.go
package store

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// Archiver saves every frame pair the duplex link relays.
type Archiver struct {
	store   *Store
	timeout time.Duration

	saved  atomic.Uint64
	failed atomic.Uint64
}

func NewArchiver(s *Store, timeout time.Duration) *Archiver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Archiver{store: s, timeout: timeout}
}

// Observe archives the inbound frame and the derived frame. Failures are
// logged and counted; they never interrupt the caller.
func (a *Archiver) Observe(in, out core.Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	for _, f := range []core.Frame{in, out} {
		if _, err := a.store.SaveFrame(ctx, f); err != nil {
			a.failed.Add(1)
			log.Warn().Err(err).Str("component", "archive").Str("modality", string(f.Modality())).Msg("Failed to archive frame")
			continue
		}
		a.saved.Add(1)
	}
}

// SaveAnswer stores a solved query and its answer and returns the query row id.
func (a *Archiver) SaveAnswer(ctx context.Context, query core.Frame, answer float64) (int64, error) {
	id, err := a.store.Save(ctx, TableQuery, a.store.codec.Encode(query))
	if err != nil {
		a.failed.Add(1)
		return 0, err
	}
	if _, err := a.store.Save(ctx, TableAnswer, []byte(strconv.FormatFloat(answer, 'g', -1, 64))); err != nil {
		a.failed.Add(1)
		return 0, err
	}
	a.saved.Add(2)
	return id, nil
}

// Counts returns how many saves succeeded and failed.
func (a *Archiver) Counts() (saved, failed uint64) {
	return a.saved.Load(), a.failed.Load()
}
