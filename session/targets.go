package session

import (
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domhighlight/overlay"
)

// elementTarget wraps a live page element as an overlay.Target. The handle
// can go stale when the element leaves the document; the box query then
// fails and the controller falls back to the marker's last-known-good
// state until the next resolution replaces the handle.
type elementTarget struct {
	el *rod.Element
}

func (t *elementTarget) Box() (overlay.Box, error) {
	res, err := t.el.Eval(`() => {
		const b = this.getBBox ? this.getBBox() : this.getBoundingClientRect();
		return {x: b.x, y: b.y, width: b.width, height: b.height};
	}`)
	if err != nil {
		return overlay.Box{}, fmt.Errorf("session: box query: %w", err)
	}
	return overlay.Box{
		X:      res.Value.Get("x").Num(),
		Y:      res.Value.Get("y").Num(),
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

// selectorMatchJS collects the elements matching a CSS selector, excluding
// anything inside the injected overlay host so the session never highlights
// its own markers.
const selectorMatchJS = `(sel) => Array.from(document.querySelectorAll(sel))
	.filter(el => !el.closest('#` + overlayHostID + `'))`

// matchSelector resolves one CSS selector against the page.
func matchSelector(page *rod.Page, css string) (rod.Elements, error) {
	els, err := page.ElementsByJS(rod.Eval(selectorMatchJS, css))
	if err != nil {
		return nil, fmt.Errorf("session: resolve selector %q: %w", css, err)
	}
	return els, nil
}

// nodeKey derives a stable identity for a matched element. CDP remote
// object IDs change on every evaluation, so the backend node ID is used
// instead — it sticks to the node for its document lifetime.
func nodeKey(el *rod.Element) (string, error) {
	node, err := el.Describe(0, false)
	if err != nil {
		return "", fmt.Errorf("session: describe node: %w", err)
	}
	return fmt.Sprintf("n%d", node.BackendNodeID), nil
}
