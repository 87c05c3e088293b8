// Package feed implements the pagination controller behind the infinite list.
//
// The controller owns the item collection and the loading guard. A visible
// sentinel produces at most one outstanding Request; the request runs off the
// UI loop and its Result is handed back through Settle, which appends the
// batch and clears the guard whether the fetch succeeded or not.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/infiniscroll/internal/domain"
)

// DefaultBatchSize is used when the controller is created with a non-positive size
const DefaultBatchSize = 50

// State is the loading state of the controller
type State int

const (
	StateIdle State = iota
	StateLoading
)

func (s State) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "idle"
}

// Request is a single outstanding batch fetch
type Request struct {
	Offset     int
	Count      int
	Generation uint64

	ctx     context.Context
	source  domain.ItemSource
	timeout time.Duration
}

// Result is the settled outcome of a Request
type Result struct {
	Request  Request
	Items    []domain.Item
	Err      error
	Duration time.Duration
}

// Run performs the fetch. It touches no controller state, so it may run on any goroutine.
func (r Request) Run() Result {
	return r.run(r.ctx)
}

func (r Request) run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	items, err := r.source.FetchBatch(ctx, r.Offset, r.Count)
	return Result{Request: r, Items: items, Err: err, Duration: time.Since(start)}
}

// Snapshot is a read-only view of the controller for rendering
type Snapshot struct {
	Items     []domain.Item
	Loading   bool
	LastErr   error
	Exhausted bool
	Batches   int
}

// Controller mediates between visibility events and the growing collection
type Controller struct {
	mu sync.Mutex

	source    domain.ItemSource
	batchSize int
	timeout   time.Duration
	label     string
	logger    *slog.Logger

	items     []domain.Item
	loading   bool
	lastErr   error
	exhausted bool
	batches   int

	// generation invalidates results issued before Close
	generation uint64
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
	inflight   context.CancelFunc
}

// Option configures a Controller
type Option func(*Controller)

// WithInitialItems pre-populates the collection
func WithInitialItems(items []domain.Item) Option {
	return func(c *Controller) {
		c.items = append([]domain.Item(nil), items...)
	}
}

// WithLogger sets the logger used for fetch failures
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds each fetch
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithLabel names the source in metrics
func WithLabel(label string) Option {
	return func(c *Controller) { c.label = label }
}

// NewController creates a controller pulling batches of batchSize from source
func NewController(source domain.ItemSource, batchSize int, opts ...Option) *Controller {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source:    source,
		batchSize: batchSize,
		label:     "default",
		logger:    slog.Default(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BatchSize returns the number of items requested per fetch
func (c *Controller) BatchSize() int {
	return c.batchSize
}

// State returns the current loading state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return StateLoading
	}
	return StateIdle
}

// OnSentinelVisible handles a visibility event. It returns the request to run,
// or false when a batch is already loading (or the controller is closed).
func (c *Controller) OnSentinelVisible() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Request{}, false
	}
	if c.loading {
		TriggersIgnored.WithLabelValues(c.label).Inc()
		c.logger.Debug("sentinel visible while loading, ignored", "offset", len(c.items))
		return Request{}, false
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.loading = true
	c.inflight = cancel

	req := Request{
		Offset:     len(c.items),
		Count:      c.batchSize,
		Generation: c.generation,
		ctx:        ctx,
		source:     c.source,
		timeout:    c.timeout,
	}
	c.logger.Debug("batch requested", "offset", req.Offset, "count", req.Count)
	return req, true
}

// Settle merges a fetch result and clears the loading guard.
// It returns false when the result was stale and dropped.
func (c *Controller) Settle(res Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Request.Generation != c.generation || !c.loading {
		c.logger.Debug("stale batch dropped", "offset", res.Request.Offset, "generation", res.Request.Generation)
		return false
	}

	c.loading = false
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
	c.batches++
	FetchDuration.WithLabelValues(c.label).Observe(res.Duration.Seconds())

	if res.Err != nil {
		c.lastErr = res.Err
		BatchesTotal.WithLabelValues(c.label, "error").Inc()
		c.logger.Error("batch fetch failed",
			"offset", res.Request.Offset,
			"count", res.Request.Count,
			"error", res.Err,
		)
		return true
	}

	c.lastErr = nil
	c.items = append(c.items, res.Items...)
	c.exhausted = len(res.Items) < res.Request.Count

	outcome := "ok"
	if len(res.Items) == 0 {
		outcome = "empty"
	}
	BatchesTotal.WithLabelValues(c.label, outcome).Inc()
	ItemsAppended.WithLabelValues(c.label).Add(float64(len(res.Items)))

	c.logger.Info("batch appended",
		"offset", res.Request.Offset,
		"received", len(res.Items),
		"total", len(c.items),
		"duration", res.Duration,
	)
	return true
}

// Load runs one full trigger, fetch and settle cycle on the calling goroutine.
// It returns ErrBusy when a batch is already outstanding.
func (c *Controller) Load(ctx context.Context) error {
	req, ok := c.OnSentinelVisible()
	if !ok {
		if c.isClosed() {
			return ErrClosed
		}
		return ErrBusy
	}

	runCtx, cancel := context.WithCancel(req.ctx)
	stop := context.AfterFunc(ctx, cancel)
	res := req.run(runCtx)
	stop()
	cancel()

	c.Settle(res)
	return res.Err
}

// Snapshot returns the collection and flags for rendering
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		// Capacity clipped so callers cannot append into our backing array
		Items:     c.items[:len(c.items):len(c.items)],
		Loading:   c.loading,
		LastErr:   c.lastErr,
		Exhausted: c.exhausted,
		Batches:   c.batches,
	}
}

// Len returns the number of items in the collection
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close tears the controller down. The in-flight fetch is canceled and its
// result will be dropped by Settle.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.loading = false
	c.inflight = nil
	c.cancel()
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Errors returned by Load
var (
	ErrBusy   = errors.New("a batch is already loading")
	ErrClosed = errors.New("controller is closed")
)
