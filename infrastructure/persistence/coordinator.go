// Package persistence implements the debounced, batched write path
// between the in-memory graph and the durable record store.
package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"canvas2/application/ports"
	"canvas2/domain/core/entities"
	"canvas2/domain/core/valueobjects"
	pkgerrors "canvas2/pkg/errors"
	"canvas2/pkg/observability"
)

// StateSource resolves the current state of an entity at schedule time.
// Calls happen synchronously on the interaction context, ordered with the
// mutation that triggered them, so the captured state is never torn.
type StateSource interface {
	NodeState(id valueobjects.NodeID) (entities.NodeState, bool)
	EdgeState(id valueobjects.EdgeID) (entities.EdgeState, bool)
}

// pendingRecord is the latest captured state for one entity. deleted
// means the entity is absent from the graph and its row must go away.
type pendingRecord struct {
	node    *entities.NodeState
	edge    *entities.EdgeState
	deleted bool
	seq     uint64
}

// Coordinator owns the pending set and the debounce timer. Writes are
// never performed synchronously per mutation; entity refs accumulate and
// one batched transactional flush runs after the quiet period. Failed
// batches stay pending and surface a user-visible error through the
// error callback.
type Coordinator struct {
	store    ports.RecordStore
	source   StateSource
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	breaker  *gobreaker.CircuitBreaker
	onError  func(error)

	mu      sync.Mutex
	pending map[ports.EntityRef]pendingRecord
	timer   *time.Timer
	seq     uint64
	closed  bool

	// flushMu serializes flush batches so per-entity write order holds
	flushMu sync.Mutex
}

// Verify interface compliance at compile time
var _ ports.WriteScheduler = (*Coordinator)(nil)

// Options configures a Coordinator
type Options struct {
	// DebounceInterval is the quiet period before a scheduled batch
	// flushes. Defaults to 300ms.
	DebounceInterval time.Duration

	// OnError receives flush failures for user-visible reporting. May be
	// nil. Never invoked on the interaction context.
	OnError func(error)

	Metrics *observability.Metrics
}

// NewCoordinator creates a coordinator over the given store and state
// source
func NewCoordinator(store ports.RecordStore, source StateSource, logger *zap.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DebounceInterval <= 0 {
		opts.DebounceInterval = 300 * time.Millisecond
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewNopMetrics()
	}

	c := &Coordinator{
		store:    store,
		source:   source,
		interval: opts.DebounceInterval,
		logger:   logger,
		metrics:  opts.Metrics,
		onError:  opts.OnError,
		pending:  make(map[ports.EntityRef]pendingRecord),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "workspace-flush",
		Timeout: 5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("flush circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// ScheduleWrite captures the entity's current state into the pending set
// and re-arms the debounce timer. Every mutation path routes through
// here, including undo/redo replays; an unscheduled write that fails
// invisibly is how persisted edges used to disappear.
func (c *Coordinator) ScheduleWrite(ref ports.EntityRef) {
	record := c.capture(ref)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Warn("write scheduled after close, dropping", zap.Stringer("entity", ref))
		return
	}

	c.seq++
	record.seq = c.seq
	c.pending[ref] = record
	c.metrics.PendingWrites.Set(float64(len(c.pending)))

	if c.timer == nil {
		c.timer = time.AfterFunc(c.interval, c.onTimer)
	} else {
		c.timer.Reset(c.interval)
	}
}

// capture resolves the latest state for a ref. An entity missing from
// the source has been deleted and flushes as a row delete.
func (c *Coordinator) capture(ref ports.EntityRef) pendingRecord {
	if ref.IsNode() {
		if state, ok := c.source.NodeState(ref.Node); ok {
			return pendingRecord{node: &state}
		}
		return pendingRecord{deleted: true}
	}
	if state, ok := c.source.EdgeState(ref.Edge); ok {
		return pendingRecord{edge: &state}
	}
	return pendingRecord{deleted: true}
}

// onTimer runs on the timer goroutine, off the interaction context
func (c *Coordinator) onTimer() {
	if err := c.flushOnce(context.Background()); err != nil {
		c.reportFailure(err)
	}
}

// Flush writes all pending entities eagerly in one batch. Manual save
// invokes this in addition to the timer.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	if err := c.flushOnce(ctx); err != nil {
		c.reportFailure(err)
		return err
	}
	return nil
}

// FlushAndWait drains the pending set synchronously, retrying failures
// until everything is durable. Called only at the deliberate shutdown
// boundary, never on the interaction path.
func (c *Coordinator) FlushAndWait(ctx context.Context) error {
	const retryDelay = 250 * time.Millisecond

	for {
		err := c.flushOnce(ctx)
		if err == nil {
			c.mu.Lock()
			drained := len(c.pending) == 0
			c.mu.Unlock()
			if drained {
				return nil
			}
		} else {
			c.reportFailure(err)
		}

		select {
		case <-ctx.Done():
			return pkgerrors.NewIOError("flush and wait", ctx.Err())
		case <-time.After(retryDelay):
		}
	}
}

// Close stops the debounce timer. Pending entities are not flushed;
// callers drain with FlushAndWait first.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// PendingCount returns the current size of the pending set
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// flushOnce writes one batch covering the current pending set. Entities
// leave the set only after their captured state committed; a re-schedule
// during the flush survives for the next batch.
func (c *Coordinator) flushOnce(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := ports.WriteBatch{}
	flushed := make(map[ports.EntityRef]uint64, len(c.pending))
	for ref, record := range c.pending {
		flushed[ref] = record.seq
		switch {
		case record.deleted && ref.IsNode():
			batch.DeleteNodes = append(batch.DeleteNodes, ref.Node)
		case record.deleted:
			batch.DeleteEdges = append(batch.DeleteEdges, ref.Edge)
		case record.node != nil:
			batch.UpsertNodes = append(batch.UpsertNodes, *record.node)
		case record.edge != nil:
			batch.UpsertEdges = append(batch.UpsertEdges, *record.edge)
		}
	}
	c.mu.Unlock()

	if _, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.store.WriteBatch(ctx, batch)
	}); err != nil {
		c.metrics.FlushFailures.Inc()
		if pkgerrors.IsAppError(err) {
			return err
		}
		return pkgerrors.NewIOError("flush batch", err)
	}

	c.mu.Lock()
	for ref, seq := range flushed {
		if record, ok := c.pending[ref]; ok && record.seq == seq {
			delete(c.pending, ref)
		}
	}
	c.metrics.PendingWrites.Set(float64(len(c.pending)))
	c.mu.Unlock()

	c.metrics.FlushTotal.Inc()
	c.logger.Debug("write batch durable", zap.Int("records", batch.Size()))
	return nil
}

// reportFailure logs and surfaces a flush failure. The entities stay
// pending, so the next flush retries them.
func (c *Coordinator) reportFailure(err error) {
	c.logger.Error("flush failed, entities retained for retry", zap.Error(err))
	if c.onError != nil {
		c.onError(err)
	}
}
