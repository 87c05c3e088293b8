// Package viewport detects when a sentinel region scrolls into view.
//
// Regions are measured in rows of list content: a list scrolled by N rows
// shows the region {Top: N, Height: visibleRows}. The watcher reports
// not-intersecting to intersecting transitions only, so a sentinel that
// stays on screen produces a single event.
package viewport

import (
	"fmt"
	"sync"
)

// Region is a vertical span of rows
type Region struct {
	Top    int
	Height int
}

// Bottom returns the first row after the region
func (r Region) Bottom() int {
	return r.Top + r.Height
}

// Empty reports whether the region covers no rows
func (r Region) Empty() bool {
	return r.Height <= 0
}

// Expand grows the region by margin rows on both edges (negative shrinks it)
func (r Region) Expand(margin int) Region {
	out := Region{Top: r.Top - margin, Height: r.Height + 2*margin}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// Intersect returns the overlap of two regions
func (r Region) Intersect(o Region) Region {
	top := max(r.Top, o.Top)
	bottom := min(r.Bottom(), o.Bottom())
	if bottom <= top {
		return Region{Top: top}
	}
	return Region{Top: top, Height: bottom - top}
}

// TargetFunc looks up the sentinel region. ok is false while the sentinel is not laid out.
type TargetFunc func() (region Region, ok bool)

// RootFunc returns the region of the scrolling container
type RootFunc func() Region

// Entry describes the state of the target at the time of a check
type Entry struct {
	Target       Region
	Root         Region
	Ratio        float64
	Intersecting bool
}

// Callback receives an entry each time the target starts intersecting
type Callback func(Entry)

// Options configure visibility detection
type Options struct {
	// Root is the scrolling container; nil uses the top-level viewport set with SetViewport
	Root RootFunc
	// Margin expands (or, when negative, contracts) the root before testing
	Margin int
	// Threshold is the fraction of the target that must be visible, in [0, 1]
	Threshold float64
}

// DefaultThreshold matches "half the sentinel is on screen"
const DefaultThreshold = 0.5

// Watcher reports sentinel visibility transitions
type Watcher struct {
	mu       sync.Mutex
	opts     Options
	callback Callback

	target       TargetFunc
	viewport     Region
	intersecting bool
}

// New creates a watcher. The callback is required.
func New(opts Options, callback Callback) (*Watcher, error) {
	if callback == nil {
		return nil, fmt.Errorf("watcher callback is nil")
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be within [0, 1], got %v", opts.Threshold)
	}
	return &Watcher{opts: opts, callback: callback}, nil
}

// Observe starts watching target. Any previous target is released first.
func (w *Watcher) Observe(target TargetFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.target = target
	w.intersecting = false
}

// Unobserve stops watching and drops the target reference. Safe to call repeatedly.
func (w *Watcher) Unobserve() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.target = nil
	w.intersecting = false
}

// Observing reports whether a target is attached
func (w *Watcher) Observing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target != nil
}

// SetViewport records the top-level viewport region
func (w *Watcher) SetViewport(r Region) {
	w.mu.Lock()
	w.viewport = r
	w.mu.Unlock()
}

// Rearm forgets that the target is intersecting, so the next Check reports it again
func (w *Watcher) Rearm() {
	w.mu.Lock()
	w.intersecting = false
	w.mu.Unlock()
}

// Intersecting reports the state seen by the last Check
func (w *Watcher) Intersecting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.intersecting
}

// Check evaluates the target and invokes the callback on a transition into view.
// It returns true when the callback ran.
func (w *Watcher) Check() bool {
	w.mu.Lock()
	if w.target == nil {
		w.mu.Unlock()
		return false
	}

	entry, ok := w.evaluate()
	if !ok {
		// Not laid out: counts as out of view
		w.intersecting = false
		w.mu.Unlock()
		return false
	}

	entered := entry.Intersecting && !w.intersecting
	w.intersecting = entry.Intersecting
	cb := w.callback
	w.mu.Unlock()

	// Called without the lock so the callback may use the watcher
	if entered {
		cb(entry)
	}
	return entered
}

func (w *Watcher) evaluate() (Entry, bool) {
	target, ok := w.target()
	if !ok {
		return Entry{}, false
	}

	root := w.viewport
	if w.opts.Root != nil {
		root = w.opts.Root()
	}
	root = root.Expand(w.opts.Margin)

	visible := target.Intersect(root)
	entry := Entry{Target: target, Root: root}
	if visible.Empty() || target.Empty() {
		return entry, true
	}

	entry.Ratio = float64(visible.Height) / float64(target.Height)
	entry.Intersecting = entry.Ratio >= w.opts.Threshold
	return entry, true
}
