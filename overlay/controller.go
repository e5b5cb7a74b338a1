// Package overlay renders and live-updates highlight outlines around the
// bounding boxes of elements in a vector graphics document. A Controller
// owns a pool of reusable Markers and reconciles them against a LiveSet of
// targets whenever either the set membership or the host document changes.
//
// The pool only grows: markers are created lazily, attached once, and
// hidden rather than destroyed when the target set shrinks. That trades a
// small amount of retained state (proportional to the historical maximum
// target count) for zero node churn and no flicker on sets that oscillate
// around the same size.
package overlay

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/domhighlight/svgdom"
)

// DefaultVisualThickness is the on-screen stroke width target in visual
// pixels. The applied stroke width is this value divided by the document's
// current horizontal scale, so outlines look the same at every zoom level.
const DefaultVisualThickness = 2.0

// RefreshInfo describes one completed refresh pass.
type RefreshInfo struct {
	Targets   int           // materialised target count
	Failures  int           // targets whose box query failed this pass
	Hidden    int           // pool slots beyond the target count
	Thickness float64       // stroke thickness applied this pass
	Duration  time.Duration
}

// Stats are cumulative counters, safe to read concurrently.
type Stats struct {
	Refreshes int64 `json:"refreshes"`
	Failures  int64 `json:"failures"`
	PoolSize  int   `json:"pool_size"`
}

// Controller keeps overlay geometry synchronised with a live target set and
// with arbitrary mutations of the host document. Construction subscribes to
// both channels and runs one initial refresh, so a freshly appended
// controller is never stale. Close releases both subscriptions.
type Controller struct {
	mu   sync.Mutex
	set  LiveSet
	doc  Document
	root *svgdom.Element
	pool []*Marker

	style           Style
	visualThickness float64
	lastThickness   float64

	logger      *slog.Logger
	afterFn     func(RefreshInfo)
	cancelSet   func()
	cancelWatch func()
	closed      bool

	refreshes atomic.Int64
	failures  atomic.Int64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStyle sets the marker style applied to every marker the pool creates.
func WithStyle(s Style) Option {
	return func(c *Controller) { c.style = s }
}

// WithVisualThickness sets the on-screen stroke width target in visual
// pixels. Values <= 0 keep the default.
func WithVisualThickness(px float64) Option {
	return func(c *Controller) {
		if px > 0 {
			c.visualThickness = px
		}
	}
}

// WithRefreshHook registers fn to run after every refresh pass, outside the
// controller lock. Adapters use this to push updated markup to a rendering
// surface; observability layers use it to record refresh outcomes.
func WithRefreshHook(fn func(RefreshInfo)) Option {
	return func(c *Controller) { c.afterFn = fn }
}

// New creates a Controller over set and doc, subscribes to both change
// channels, and performs one synchronous initial refresh. The returned
// controller's root group is detached; call AppendTo to place it.
func New(set LiveSet, doc Document, opts ...Option) (*Controller, error) {
	root := svgdom.NewElement("g")
	root.SetAttr("class", "domhighlight")

	c := &Controller{
		set:             set,
		doc:             doc,
		root:            root,
		style:           DefaultStyle(),
		visualThickness: DefaultVisualThickness,
		logger:          slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.lastThickness = c.visualThickness

	c.cancelSet = set.OnChange(c.Refresh)
	cancelWatch, err := doc.WatchMutations(c.Refresh)
	if err != nil {
		c.cancelSet()
		return nil, fmt.Errorf("overlay: watch mutations: %w", err)
	}
	c.cancelWatch = cancelWatch

	c.Refresh()
	return c, nil
}

// AppendTo attaches the controller's root visual group to container.
// Repeated AppendTo/Remove cycles preserve the marker pool and its
// geometry.
func (c *Controller) AppendTo(container *svgdom.Element) {
	container.Append(c.root)
}

// Remove detaches the root visual group from its container. No-op when not
// attached. Subscriptions stay live; use Close to release them.
func (c *Controller) Remove() {
	c.root.Detach()
}

// Root returns the controller's root visual group.
func (c *Controller) Root() *svgdom.Element { return c.root }

// Stats returns cumulative refresh counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	n := len(c.pool)
	c.mu.Unlock()
	return Stats{
		Refreshes: c.refreshes.Load(),
		Failures:  c.failures.Load(),
		PoolSize:  n,
	}
}

// Refresh reconciles the marker pool against the live set's current
// membership and each member's current box. It is the handler for both
// notification channels and may also be called directly. Refresh runs as a
// critical section: concurrent calls serialise.
//
// Per-target failure is non-fatal: a failed box query is logged, that
// marker keeps its last-known-good geometry and opacity for this pass, and
// processing continues with the remaining targets.
func (c *Controller) Refresh() {
	start := time.Now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	targets := c.set.Targets()

	// Grow the pool to match; never shrink, never reorder.
	for len(c.pool) < len(targets) {
		m := NewMarker(c.style)
		m.Attach(c.root)
		c.pool = append(c.pool, m)
	}

	thickness := c.currentThickness()

	failures := 0
	for i, t := range targets {
		box, err := t.Box()
		if err != nil {
			failures++
			c.failures.Add(1)
			c.logger.Debug("overlay: box query failed, keeping prior geometry",
				"slot", i, "error", err)
			continue
		}
		m := c.pool[i]
		m.SetBox(box)
		m.SetThickness(thickness)
		m.SetOpacity(1)
	}

	// Leftover slots from a previously larger set: hidden, not destroyed.
	hidden := 0
	for i := len(targets); i < len(c.pool); i++ {
		c.pool[i].SetOpacity(0)
		hidden++
	}

	c.refreshes.Add(1)
	info := RefreshInfo{
		Targets:   len(targets),
		Failures:  failures,
		Hidden:    hidden,
		Thickness: thickness,
		Duration:  time.Since(start),
	}
	after := c.afterFn
	c.mu.Unlock()

	if after != nil {
		after(info)
	}
}

// currentThickness reads the document scale fresh and derives the stroke
// width. A failed scale read keeps the previous thickness for this pass.
// Called with c.mu held.
func (c *Controller) currentThickness() float64 {
	scale, err := c.doc.HorizontalScale()
	if err != nil {
		c.logger.Warn("overlay: scale read failed, keeping prior thickness", "error", err)
		return c.lastThickness
	}
	if scale <= 0 {
		c.logger.Warn("overlay: non-positive scale, keeping prior thickness", "scale", scale)
		return c.lastThickness
	}
	c.lastThickness = c.visualThickness / scale
	return c.lastThickness
}

// Close releases both subscriptions and detaches the root group. Idempotent.
// Markers stay owned by the controller; a closed controller never refreshes
// again.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cs, cw := c.cancelSet, c.cancelWatch
	c.mu.Unlock()

	if cs != nil {
		cs()
	}
	if cw != nil {
		cw()
	}
	c.root.Detach()
}
