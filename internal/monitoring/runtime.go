// internal/monitoring/runtime.go
package monitoring

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// runtimeSampler reads process statistics at most once per interval.
type runtimeSampler struct {
	interval time.Duration

	mu       sync.Mutex
	sampled  time.Time
	heap     uint64
	numGC    uint32
	routines int
}

func newRuntimeSampler(interval time.Duration) *runtimeSampler {
	return &runtimeSampler{interval: interval}
}

func (r *runtimeSampler) sample() (heap uint64, numGC uint32, routines int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.sampled) >= r.interval {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		r.heap = m.HeapAlloc
		r.numGC = m.NumGC
		r.routines = runtime.NumGoroutine()
		r.sampled = time.Now()
	}
	return r.heap, r.numGC, r.routines
}

// registerRuntime exposes the sampler on reg.
func registerRuntime(reg prometheus.Registerer, r *runtimeSampler) {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "lumix",
		Name:      "heap_bytes",
		Help:      "Heap bytes in use.",
	}, func() float64 {
		heap, _, _ := r.sample()
		return float64(heap)
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "lumix",
		Name:      "goroutines",
		Help:      "Number of goroutines.",
	}, func() float64 {
		_, _, n := r.sample()
		return float64(n)
	})
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "lumix",
		Name:      "gc_cycles_total",
		Help:      "Completed GC cycles.",
	}, func() float64 {
		_, n, _ := r.sample()
		return float64(n)
	})
}
