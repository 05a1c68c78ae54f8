package input

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"canvas2/application/selection"
	"canvas2/domain/core/valueobjects"
	"canvas2/pkg/observability"
)

// routerMode is the gesture-hold state machine. Transitions only
// originate from idle; a lock never re-targets mid-gesture.
type routerMode int

const (
	modeIdle routerMode = iota
	modeCanvasLocked
	modeNodeLocked
)

// Router decides, per event, which consumer receives it. Evaluation is
// fresh for every event except the gesture-hold window: the target
// resolved for the first event of a gesture keeps receiving subsequent
// events even when the pointer crosses other surfaces, until the
// inactivity gap elapses. Without the hold, a pan that crosses a node
// mid-gesture would get caught by it.
type Router struct {
	selection *selection.State
	surfaces  *SurfaceTree

	// gapMu guards the gap tunables, which config hot reload updates
	// from the watcher goroutine
	gapMu      sync.RWMutex
	holdGap    time.Duration
	releaseGap time.Duration

	mode       routerMode
	lockedNode valueobjects.NodeID
	lastEvent  time.Time

	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRouter creates a router over the given selection state and surface
// tree. holdGap is the inactivity gap that still extends a gesture;
// releaseGap is the longer gap after which the lock releases and the
// next event re-resolves from scratch.
func NewRouter(sel *selection.State, surfaces *SurfaceTree, holdGap, releaseGap time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &Router{
		selection:  sel,
		surfaces:   surfaces,
		holdGap:    holdGap,
		releaseGap: releaseGap,
		logger:     logger,
		metrics:    metrics,
	}
}

// SetGaps adjusts the gesture-hold tunables, used by config hot reload
func (r *Router) SetGaps(holdGap, releaseGap time.Duration) {
	r.gapMu.Lock()
	defer r.gapMu.Unlock()
	r.holdGap = holdGap
	r.releaseGap = releaseGap
}

// gaps reads the current tunables
func (r *Router) gaps() (time.Duration, time.Duration) {
	r.gapMu.RLock()
	defer r.gapMu.RUnlock()
	return r.holdGap, r.releaseGap
}

// Route decides the consumer for one event
func (r *Router) Route(ev PointerEvent) Decision {
	decision := r.route(ev)
	r.metrics.EventsRouted.WithLabelValues(decision.Target.String()).Inc()
	return decision
}

func (r *Router) route(ev PointerEvent) Decision {
	// An open modal is the exclusive recipient. Canvas hit-testing is
	// skipped entirely and any in-flight gesture lock drops.
	if r.selection.IsModalActive() {
		r.reset()
		return Decision{Target: TargetModal}
	}

	if r.mode != modeIdle {
		holdGap, releaseGap := r.gaps()
		gap := ev.Time.Sub(r.lastEvent)
		switch {
		case gap >= releaseGap:
			// Lock expired; fall through to a fresh resolution
			r.reset()
		case gap <= holdGap:
			// Still inside the gesture: extend it and keep the target
			r.lastEvent = ev.Time
			return r.locked()
		default:
			// Between the gaps: the gesture has likely ended but the
			// lock has not released yet. Keep the target without
			// extending the hold, so the lock expires releaseGap after
			// the last in-gesture event.
			return r.locked()
		}
	}

	decision := r.resolve(ev)
	r.lastEvent = ev.Time
	return decision
}

// resolve hit-tests the event and locks the resulting target. Only
// called from idle.
func (r *Router) resolve(ev PointerEvent) Decision {
	surface, hit := r.surfaces.HitTest(ev.Position)
	if hit && surface.ScrollRegion.Contains(ev.Position) {
		selected, ok := r.selection.Selection()
		if ok && selected.Equals(surface.NodeID) && surface.CanScroll(ev.DeltaX, ev.DeltaY) {
			r.mode = modeNodeLocked
			r.lockedNode = surface.NodeID
			return Decision{Target: TargetNode, NodeID: surface.NodeID}
		}
	}

	// Everything else pans the canvas. An incorrectly captured event is
	// more disruptive than one incorrectly passed through.
	r.mode = modeCanvasLocked
	return Decision{Target: TargetCanvas}
}

// locked returns the decision for the currently held target
func (r *Router) locked() Decision {
	if r.mode == modeNodeLocked {
		return Decision{Target: TargetNode, NodeID: r.lockedNode}
	}
	return Decision{Target: TargetCanvas}
}

// reset returns the state machine to idle
func (r *Router) reset() {
	r.mode = modeIdle
	r.lockedNode = valueobjects.NodeID{}
}
