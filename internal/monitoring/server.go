// internal/monitoring/server.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

type Config struct {
	Enabled   bool          `yaml:"enabled"`
	Listen    string        `yaml:"listen"`
	HealthTTL time.Duration `yaml:"health_ttl"`
	// SampleInterval bounds how often runtime statistics are read.
	SampleInterval time.Duration `yaml:"sample_interval"`
}

func DefaultConfig() Config {
	return Config{
		Listen:         "127.0.0.1:9090",
		HealthTTL:      2 * time.Second,
		SampleInterval: 5 * time.Second,
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.HealthTTL == 0 {
		c.HealthTTL = d.HealthTTL
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = d.SampleInterval
	}
	return c
}

// Health statuses.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusStopped  = "stopped"
)

// Probe reports the status of the running process and any details worth
// showing on /health.
type Probe func() (status string, details map[string]any)

// Health - the /health document.
type Health struct {
	Status     string         `json:"status"`
	Uptime     string         `json:"uptime"`
	HeapBytes  uint64         `json:"heap_bytes"`
	Goroutines int            `json:"goroutines"`
	Details    map[string]any `json:"details,omitempty"`
}

const healthKey = "health"

// Server - fasthttp endpoint for /metrics and /health.
type Server struct {
	cfg     Config
	probe   Probe
	started time.Time
	runtime *runtimeSampler
	health  *cache.Cache
	metrics fasthttp.RequestHandler
	srv     *fasthttp.Server
}

// NewServer registers runtime gauges on reg and serves everything reg gathers.
func NewServer(cfg Config, reg *prometheus.Registry, probe Probe) *Server {
	cfg = cfg.WithDefaults()
	s := &Server{
		cfg:     cfg,
		probe:   probe,
		started: time.Now(),
		runtime: newRuntimeSampler(cfg.SampleInterval),
		health:  cache.New(cfg.HealthTTL, 2*cfg.HealthTTL),
		metrics: fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	}
	registerRuntime(reg, s.runtime)

	s.srv = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "lumix",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/metrics":
			s.metrics(ctx)
		case "/health":
			s.serveHealth(ctx)
		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}
	}
}

func (s *Server) serveHealth(ctx *fasthttp.RequestCtx) {
	h := s.Health()
	body, err := json.Marshal(h)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	if h.Status != StatusOK {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	}
	ctx.SetBody(body)
}

// Health returns the cached snapshot, rebuilding it once the TTL expires.
func (s *Server) Health() Health {
	if v, ok := s.health.Get(healthKey); ok {
		return v.(Health)
	}

	heap, _, routines := s.runtime.sample()
	h := Health{
		Status:     StatusOK,
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		HeapBytes:  heap,
		Goroutines: routines,
	}
	if s.probe != nil {
		h.Status, h.Details = s.probe()
	}
	s.health.Set(healthKey, h, cache.DefaultExpiration)
	return h
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	log.Info().Str("component", "monitoring").Str("addr", ln.Addr().String()).Msg("Monitoring server started")

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		if err := s.srv.Shutdown(); err != nil {
			return fmt.Errorf("monitoring shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
