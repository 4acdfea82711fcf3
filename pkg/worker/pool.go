// Package worker provides a named multi-pool worker manager for concurrent
// request processing with blocking backpressure.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aleksip/RecordManager/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// Request is a unit of work submitted to a named pool.
type Request struct {
	ID      string
	Payload any
}

// Result is what a Handler produces for a Request.
type Result struct {
	ID      string
	Value   any
	Err     error
}

// Handler processes one Request and produces one Result.
type Handler func(context.Context, Request) Result

// pool is one named worker pool inside a Manager.
type pool struct {
	name        string
	concurrency int
	handler     Handler

	requests chan Request
	results  chan Result

	pending int64 // atomic: requests accepted but not yet resulted
	wg      sync.WaitGroup

	metrics *poolMetrics
}

type poolMetrics struct {
	queueDepth prometheus.Gauge
	processed  prometheus.Counter
	failed     prometheus.Counter
	duration   prometheus.Histogram
}

// Manager owns a set of named worker pools. A concurrency of 0 means the
// pool runs its handler inline on the calling goroutine (synchronous
// execution, used by the Indexing Coordinator for the single-threaded CLI
// mode and by tests).
type Manager struct {
	mu        sync.RWMutex
	pools     map[string]*pool
	destroyed bool

	registry *metric.MetricsRegistry
}

// NewManager creates a worker pool manager. registry may be nil to disable
// Prometheus metrics.
func NewManager(registry *metric.MetricsRegistry) *Manager {
	return &Manager{
		pools:    make(map[string]*pool),
		registry: registry,
	}
}

// CreatePool registers a new named pool with the given concurrency (0 =
// inline/synchronous) and queue size for pending requests.
func (m *Manager) CreatePool(name string, concurrency, queueSize int, handler Handler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return ErrManagerDestroyed
	}
	if _, exists := m.pools[name]; exists {
		return ErrPoolExists
	}

	p := &pool{
		name:        name,
		concurrency: concurrency,
		handler:     handler,
		requests:    make(chan Request, queueSize),
		results:     make(chan Result, queueSize),
	}
	if m.registry != nil {
		p.metrics = m.registerMetrics(name)
	}

	if concurrency > 0 {
		for i := 0; i < concurrency; i++ {
			p.wg.Add(1)
			go p.run()
		}
	}

	m.pools[name] = p
	return nil
}

func (m *Manager) registerMetrics(name string) *poolMetrics {
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recordmanager_pool_" + name + "_queue_depth",
		Help: "Pending requests for worker pool " + name,
	})
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recordmanager_pool_" + name + "_processed_total",
		Help: "Requests processed by worker pool " + name,
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recordmanager_pool_" + name + "_failed_total",
		Help: "Requests that failed in worker pool " + name,
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recordmanager_pool_" + name + "_duration_seconds",
		Help:    "Handler duration for worker pool " + name,
		Buckets: prometheus.DefBuckets,
	})

	_ = m.registry.RegisterGauge("worker_pool", name+"_queue_depth", queueDepth)
	_ = m.registry.RegisterCounter("worker_pool", name+"_processed_total", processed)
	_ = m.registry.RegisterCounter("worker_pool", name+"_failed_total", failed)
	_ = m.registry.RegisterHistogram("worker_pool", name+"_duration_seconds", duration)

	return &poolMetrics{queueDepth: queueDepth, processed: processed, failed: failed, duration: duration}
}

// run is a pool worker's main loop (concurrency > 0 only).
func (p *pool) run() {
	defer p.wg.Done()
	for req := range p.requests {
		p.process(context.Background(), req)
	}
}

func (p *pool) process(ctx context.Context, req Request) {
	start := time.Now()
	res := p.handler(ctx, req)
	res.ID = req.ID
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.processed.Inc()
		if res.Err != nil {
			p.metrics.failed.Inc()
		}
		p.metrics.duration.Observe(duration.Seconds())
		p.metrics.queueDepth.Set(float64(len(p.requests)))
	}

	p.results <- res
	atomic.AddInt64(&p.pending, -1)
}

func (m *Manager) getPool(name string) (*pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.destroyed {
		return nil, ErrManagerDestroyed
	}
	p, ok := m.pools[name]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

// AddRequest submits a request to the named pool. Unlike a typical
// drop-on-full submit, this blocks until the pool has queue space (or ctx is
// cancelled): the spec's backpressure contract requires producers to slow
// down rather than lose work when a pool falls behind.
func (m *Manager) AddRequest(ctx context.Context, poolName string, req Request) error {
	p, err := m.getPool(poolName)
	if err != nil {
		return err
	}

	atomic.AddInt64(&p.pending, 1)

	if p.concurrency == 0 {
		p.process(ctx, req)
		return nil
	}

	select {
	case p.requests <- req:
		if p.metrics != nil {
			p.metrics.queueDepth.Set(float64(len(p.requests)))
		}
		return nil
	case <-ctx.Done():
		atomic.AddInt64(&p.pending, -1)
		return ctx.Err()
	}
}

// CheckForResults drains currently available results from the named pool
// without blocking. It returns an empty slice (not an error) when nothing is
// ready yet.
func (m *Manager) CheckForResults(poolName string) ([]Result, error) {
	p, err := m.getPool(poolName)
	if err != nil {
		return nil, err
	}

	var out []Result
	for {
		select {
		case res := <-p.results:
			out = append(out, res)
		default:
			return out, nil
		}
	}
}

// GetResult blocks until a result is available from the named pool or the
// context is cancelled; it does not return early when the pool has no
// pending work. ok is false if the context was cancelled before a result
// arrived.
func (m *Manager) GetResult(ctx context.Context, poolName string) (res Result, ok bool, err error) {
	p, err := m.getPool(poolName)
	if err != nil {
		return Result{}, false, err
	}

	select {
	case res = <-p.results:
		return res, true, nil
	case <-ctx.Done():
		return Result{}, false, ctx.Err()
	}
}

// RequestsPending reports the number of requests accepted by the named pool
// that have not yet produced a result.
func (m *Manager) RequestsPending(poolName string) (int, error) {
	p, err := m.getPool(poolName)
	if err != nil {
		return 0, err
	}
	return int(atomic.LoadInt64(&p.pending)), nil
}

// WaitUntilDone blocks until the named pool's pending count reaches zero or
// the context is cancelled.
func (m *Manager) WaitUntilDone(ctx context.Context, poolName string) error {
	p, err := m.getPool(poolName)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if atomic.LoadInt64(&p.pending) == 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DestroyWorkerPools stops accepting new requests on every pool, closes each
// pool's request channel so its workers exit once drained, and waits up to
// timeout for all workers to finish.
func (m *Manager) DestroyWorkerPools(timeout time.Duration) error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return nil
	}
	m.destroyed = true
	pools := make([]*pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.Unlock()

	for _, p := range pools {
		if p.concurrency > 0 {
			close(p.requests)
		}
	}

	done := make(chan struct{})
	// Results are unreachable once the manager is destroyed; discard them so
	// workers blocked on a full result queue can exit.
	for _, p := range pools {
		go func(p *pool) {
			for {
				select {
				case <-p.results:
				case <-done:
					return
				}
			}
		}(p)
	}
	go func() {
		for _, p := range pools {
			p.wg.Wait()
		}
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}
