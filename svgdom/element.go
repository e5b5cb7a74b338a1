// Package svgdom provides a minimal owned SVG element tree. It is the
// rendering substrate for overlay markers: markers mutate Elements, tests
// read geometry back from attributes, and adapters serialise a subtree to
// markup for injection into a live page.
//
// Ownership is single-parent: appending an element to a new parent detaches
// it from its previous one. There is no global node registry.
package svgdom

import (
	"strings"
)

// Element is a mutable SVG element node: a tag, ordered attributes, and an
// ordered child list. Not safe for concurrent use; callers serialise access.
type Element struct {
	tag      string
	attrs    map[string]string
	order    []string
	parent   *Element
	children []*Element
}

// NewElement creates a detached element with the given tag.
func NewElement(tag string) *Element {
	return &Element{tag: tag, attrs: make(map[string]string)}
}

// Tag returns the element's tag name.
func (e *Element) Tag() string { return e.tag }

// SetAttr sets an attribute. First-set order is preserved for serialisation
// so that the same mutation sequence always yields the same markup.
func (e *Element) SetAttr(name, value string) {
	if _, ok := e.attrs[name]; !ok {
		e.order = append(e.order, name)
	}
	e.attrs[name] = value
}

// Attr returns the attribute value, or "" if unset.
func (e *Element) Attr(name string) string { return e.attrs[name] }

// HasAttr reports whether the attribute has been set.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.attrs[name]
	return ok
}

// Append adds child as the last child of e, detaching it from any previous
// parent first (appendChild semantics).
func (e *Element) Append(child *Element) {
	if child.parent != nil {
		child.Detach()
	}
	child.parent = e
	e.children = append(e.children, child)
}

// Detach removes e from its parent's child list. No-op if e has no parent.
func (e *Element) Detach() {
	p := e.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	e.parent = nil
}

// Parent returns the current parent, or nil if detached.
func (e *Element) Parent() *Element { return e.parent }

// Children returns a copy of the child list.
func (e *Element) Children() []*Element {
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// ChildCount returns the number of direct children.
func (e *Element) ChildCount() int { return len(e.children) }

// Markup serialises the subtree rooted at e to SVG markup. Attributes appear
// in first-set order, children in document order. Elements without children
// self-close.
func (e *Element) Markup() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Element) write(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(e.tag)
	for _, name := range e.order {
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(e.attrs[name]))
		b.WriteByte('"')
	}
	if len(e.children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range e.children {
		c.write(b)
	}
	b.WriteString("</")
	b.WriteString(e.tag)
	b.WriteByte('>')
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escapeAttr(s string) string {
	if !strings.ContainsAny(s, `&<>"`) {
		return s
	}
	return attrEscaper.Replace(s)
}
