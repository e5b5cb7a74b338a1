package overlay

import (
	"github.com/hazyhaar/domhighlight/svgdom"
)

// Style configures a marker's appearance. Two overlapping dashed strokes of
// contrasting colors trace the same path with offset dash phases, so the
// outline stays visible against both light and dark backgrounds. Handles
// adds four small corner squares sized relative to the stroke thickness.
type Style struct {
	Primary     string // stroke color of the base dashed stroke
	Secondary   string // stroke color of the phase-offset counter stroke
	DashPattern string // SVG stroke-dasharray shared by both strokes
	DashOffset  string // stroke-dashoffset of the counter stroke
	Handles     bool   // draw corner handle squares
}

// DefaultStyle is the stock appearance: black and white interleaved dashes,
// no corner handles.
func DefaultStyle() Style {
	return Style{
		Primary:     "#000000",
		Secondary:   "#ffffff",
		DashPattern: "5 5",
		DashOffset:  "5",
	}
}

func (s *Style) defaults() {
	if s.Primary == "" {
		s.Primary = "#000000"
	}
	if s.Secondary == "" {
		s.Secondary = "#ffffff"
	}
	if s.DashPattern == "" {
		s.DashPattern = "5 5"
	}
	if s.DashOffset == "" {
		s.DashOffset = "5"
	}
}

// handleScale is the edge length of a corner handle in stroke-thickness
// units, so handles grow with stroke weight.
const handleScale = 4.0

// Marker is a single reusable highlight primitive: a <g> holding two dashed
// perimeter strokes and, when Style.Handles is set, four corner squares.
// Thickness and opacity are independent of tracing — a marker can sit in
// the document at zero opacity with stale geometry and be revived later.
//
// Markers are mutated only by their owning controller; they are not safe
// for concurrent use on their own.
type Marker struct {
	group     *svgdom.Element
	primary   *svgdom.Element
	secondary *svgdom.Element
	handles   []*svgdom.Element
	box       *Box // last traced box, nil until first SetBox
	thickness float64
}

// NewMarker builds a detached marker with the given style. Call Attach to
// place it in a container.
func NewMarker(style Style) *Marker {
	style.defaults()

	g := svgdom.NewElement("g")
	g.SetAttr("pointer-events", "none")
	g.SetAttr("fill", "none")

	m := &Marker{group: g, thickness: 1}

	m.primary = newStroke(style.Primary, style.DashPattern, "")
	m.secondary = newStroke(style.Secondary, style.DashPattern, style.DashOffset)
	g.Append(m.primary)
	g.Append(m.secondary)

	if style.Handles {
		m.handles = make([]*svgdom.Element, 4)
		for i := range m.handles {
			r := svgdom.NewElement("rect")
			r.SetAttr("fill", style.Secondary)
			r.SetAttr("stroke", style.Primary)
			r.SetAttr("stroke-width", "1")
			m.handles[i] = r
			g.Append(r)
		}
	}
	return m
}

func newStroke(color, dash, offset string) *svgdom.Element {
	p := svgdom.NewElement("path")
	p.SetAttr("stroke", color)
	p.SetAttr("stroke-width", "1")
	p.SetAttr("stroke-dasharray", dash)
	if offset != "" {
		p.SetAttr("stroke-dashoffset", offset)
	}
	return p
}

// Attach adds the marker's root node as a child of container. The owning
// controller calls this once per marker lifetime; attaching an already
// attached marker moves it.
func (m *Marker) Attach(container *svgdom.Element) {
	container.Append(m.group)
}

// Detach removes the marker's root node from its parent. No-op when the
// marker has no parent.
func (m *Marker) Detach() {
	m.group.Detach()
}

// SetBox repositions the strokes to trace b's perimeter and re-centers the
// corner handles on b's corners. Geometry is a pure function of box and
// thickness: the same inputs always produce identical attributes.
func (m *Marker) SetBox(b Box) {
	m.box = &b
	d := b.Path()
	m.primary.SetAttr("d", d)
	m.secondary.SetAttr("d", d)
	m.layoutHandles()
}

// SetThickness sets the stroke width of every stroke sub-element and
// re-derives handle geometry from the last-set box, since handle size
// depends on thickness. With no box traced yet this changes no geometry.
func (m *Marker) SetThickness(px float64) {
	m.thickness = px
	w := fnum(px)
	m.primary.SetAttr("stroke-width", w)
	m.secondary.SetAttr("stroke-width", w)
	for _, h := range m.handles {
		h.SetAttr("stroke-width", w)
	}
	m.layoutHandles()
}

// SetOpacity sets the opacity of the whole visual group: 0 hides, 1 shows.
// Attachment state is unaffected — a hidden marker remains in the document.
func (m *Marker) SetOpacity(v float64) {
	m.group.SetAttr("opacity", fnum(v))
}

// Root returns the marker's root visual node.
func (m *Marker) Root() *svgdom.Element { return m.group }

// Thickness returns the current stroke thickness.
func (m *Marker) Thickness() float64 { return m.thickness }

func (m *Marker) layoutHandles() {
	if m.box == nil || len(m.handles) == 0 {
		return
	}
	side := m.thickness * handleScale
	size := fnum(side)
	for i, c := range m.box.Corners() {
		h := m.handles[i]
		h.SetAttr("x", fnum(c[0]-side/2))
		h.SetAttr("y", fnum(c[1]-side/2))
		h.SetAttr("width", size)
		h.SetAttr("height", size)
	}
}
