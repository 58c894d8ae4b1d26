// cmd/lumix/run.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
	"github.com/Parhamfakhar1/lumix-bci/internal/device"
	"github.com/Parhamfakhar1/lumix-bci/internal/link"
	"github.com/Parhamfakhar1/lumix-bci/internal/monitoring"
)

// runStats summarizes one run for the shutdown report.
type runStats struct {
	Mode      string
	Processed uint64
	Failed    uint64
	BytesIn   uint64
	BytesOut  uint64
	Elapsed   time.Duration
	Answer    float64
	Solved    bool
	LastError error
}

// runLocal feeds frames from the configured source through the engine.
// limit caps the number of frames; zero runs until the source is exhausted.
func runLocal(ctx context.Context, config *Config, c *Components, limit int) (*runStats, error) {
	total := limit
	if r, ok := c.Source.(*device.ReplaySource); ok && (total <= 0 || r.Remaining() < total) {
		total = r.Remaining()
	}
	if total <= 0 {
		return nil, errors.New("nothing to run: the source is empty and no frame limit was given")
	}

	stats := &runStats{Mode: config.Devices.Mode}
	bar := progressbar.Default(int64(total), "enhancing "+config.Devices.Mode+" frames")
	start := time.Now()

	var last core.Frame
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			log.Warn().Int("done", i).Int("total", total).Msg("Local run interrupted")
			break
		}

		// a replay source ends with io.EOF
		frame, err := c.Source.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read frame %d: %w", i, err)
		}

		if err := processFrame(c, frame); err != nil {
			stats.Failed++
			stats.LastError = err
			log.Error().Err(err).Int("frame", i).Msg("Frame failed")
		} else {
			stats.Processed++
			last = frame
		}
		bar.Add(1)
	}
	bar.Finish()
	stats.Elapsed = time.Since(start)

	// solve against the last frame that made it through
	if last.IsZero() {
		return stats, nil
	}
	answer, err := c.Engine.Solve(last)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to solve the last frame")
		return stats, nil
	}
	stats.Answer, stats.Solved = answer, true
	if c.Archiver != nil {
		if _, err := c.Archiver.SaveAnswer(ctx, last, answer); err != nil {
			log.Warn().Err(err).Msg("Failed to archive answer")
		}
	}
	return stats, nil
}

// processFrame runs one raw frame through the session and archives the
// engine output. A failure in any stage leaves every window untouched.
func processFrame(c *Components, frame core.Frame) error {
	res, err := c.Session.Process(frame)
	if err != nil {
		return err
	}
	if c.Archiver != nil {
		c.Archiver.Observe(frame, res.Enhanced)
	}
	return nil
}

var errLinkStopped = errors.New("duplex link stopped")

// serve runs the duplex link and the monitoring server until ctx is
// cancelled or the link stops by itself.
func serve(ctx context.Context, config *Config, c *Components) (*runStats, error) {
	// transport: TCP in, TCP or websocket out
	in, err := link.Listen(config.Link.Listen, config.Link.MaxFrameBytes)
	if err != nil {
		return nil, err
	}
	var out link.Sender
	if config.Link.SendURL != "" {
		out = link.NewWSSender(config.Link.SendURL, config.Link.DialTimeout, config.Link.WriteTimeout)
	} else {
		out = link.NewTCPSender(config.Link.Send, config.Link.DialTimeout, config.Link.WriteTimeout)
	}

	opts := []link.Option{link.WithMetrics(link.NewMetrics(c.Registry))}
	if c.Archiver != nil {
		opts = append(opts, link.WithObserver(c.Archiver))
	}
	l, err := link.NewDuplexLink(config.Link, in, out, c.Engine, opts...)
	if err != nil {
		in.Close()
		out.Close()
		return nil, err
	}
	log.Info().Str("listen", in.Addr().String()).Msg("Duplex link is ready")

	// whichever goroutine returns first ends the group
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-l.Done():
			if err := l.Err(); err != nil {
				return fmt.Errorf("%w: %v", errLinkStopped, err)
			}
			return errLinkStopped
		}
	})
	if config.Monitoring.Enabled {
		mon := monitoring.NewServer(config.Monitoring, c.Registry, healthProbe(l))
		g.Go(func() error { return mon.Run(gctx) })
	}

	err = g.Wait()
	closeErr := l.Close()

	// stats are read after Close so the loop is no longer writing them

	s := l.Stats()
	stats := &runStats{
		Mode:      "link",
		Processed: s.Sent,
		Failed:    s.Failures,
		BytesIn:   s.BytesIn,
		BytesOut:  s.BytesOut,
		Elapsed:   time.Since(s.StartedAt),
		LastError: l.Err(),
	}
	if errors.Is(err, errLinkStopped) && l.Err() == nil {
		err = nil
	}
	return stats, errors.Join(err, closeErr)
}

func healthProbe(l *link.DuplexLink) monitoring.Probe {
	return func() (string, map[string]any) {
		s := l.Stats()
		details := map[string]any{
			"link":     l.State().String(),
			"received": s.Received,
			"sent":     s.Sent,
			"failures": s.Failures,
		}
		if err := l.Err(); err != nil {
			details["last_error"] = err.Error()
		}

		switch {
		case l.State() == link.StateStopped:
			return monitoring.StatusStopped, details
		case l.Err() != nil:
			return monitoring.StatusDegraded, details
		}
		return monitoring.StatusOK, details
	}
}

func shutdown(c *Components) {
	log.Info().Msg("Starting graceful shutdown...")
	if err := c.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close components cleanly")
	}
	log.Info().Msg("Shutdown sequence completed")
}
