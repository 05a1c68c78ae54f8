package input

import (
	"sort"

	"canvas2/domain/core/valueobjects"
)

// Rect is an axis-aligned rectangle in canvas coordinates
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains reports whether the point falls inside the rectangle
func (r Rect) Contains(p valueobjects.Position) bool {
	return p.X() >= r.X && p.X() < r.X+r.Width &&
		p.Y() >= r.Y && p.Y() < r.Y+r.Height
}

// NodeSurface describes one node's on-canvas geometry as registered by
// the rendering collaborator. The core never computes layout itself.
type NodeSurface struct {
	NodeID valueobjects.NodeID

	// Bounds is the node's full rectangle
	Bounds Rect

	// ScrollRegion is the embedded scrollable content viewport
	ScrollRegion Rect

	// Content extent and current scroll offsets, used to decide whether
	// the region has overflow in a requested direction
	ContentWidth  float64
	ContentHeight float64
	ScrollX       float64
	ScrollY       float64

	// ZIndex orders overlapping nodes; higher is on top
	ZIndex int
}

// CanScroll reports whether the region has scrollable overflow in the
// direction of the given deltas. A region with no overflow lets the
// event fall through to the canvas.
func (s NodeSurface) CanScroll(dx, dy float64) bool {
	if dy > 0 && s.ScrollY+s.ScrollRegion.Height < s.ContentHeight {
		return true
	}
	if dy < 0 && s.ScrollY > 0 {
		return true
	}
	if dx > 0 && s.ScrollX+s.ScrollRegion.Width < s.ContentWidth {
		return true
	}
	if dx < 0 && s.ScrollX > 0 {
		return true
	}
	return false
}

// SurfaceTree is the hit-testable set of registered node surfaces
type SurfaceTree struct {
	surfaces map[valueobjects.NodeID]NodeSurface
}

// NewSurfaceTree creates an empty surface tree
func NewSurfaceTree() *SurfaceTree {
	return &SurfaceTree{
		surfaces: make(map[valueobjects.NodeID]NodeSurface),
	}
}

// Register adds or replaces a node's surface. Renderers call this when a
// node's geometry or scroll metrics change.
func (t *SurfaceTree) Register(surface NodeSurface) {
	t.surfaces[surface.NodeID] = surface
}

// Remove drops a node's surface, typically on node deletion
func (t *SurfaceTree) Remove(id valueobjects.NodeID) {
	delete(t.surfaces, id)
}

// Surface returns the registered surface for a node
func (t *SurfaceTree) Surface(id valueobjects.NodeID) (NodeSurface, bool) {
	s, ok := t.surfaces[id]
	return s, ok
}

// HitTest returns the top-most surface whose bounds contain the point
func (t *SurfaceTree) HitTest(p valueobjects.Position) (NodeSurface, bool) {
	var hits []NodeSurface
	for _, s := range t.surfaces {
		if s.Bounds.Contains(p) {
			hits = append(hits, s)
		}
	}
	if len(hits) == 0 {
		return NodeSurface{}, false
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].ZIndex != hits[j].ZIndex {
			return hits[i].ZIndex > hits[j].ZIndex
		}
		return hits[i].NodeID.String() < hits[j].NodeID.String()
	})
	return hits[0], true
}
