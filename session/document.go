package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// pageDocument adapts a live Rod page to the overlay.Document contract:
// CDP DOM events (insert, remove, attribute, text, document reset) are
// debounced into change notifications, and the horizontal scale is read
// from the page's root SVG screen CTM.
type pageDocument struct {
	page   *rod.Page
	notif  *notifier
	cancel context.CancelFunc

	// onReset fires synchronously on a full document swap, before the
	// debounced notification. Set before start; nil is allowed.
	onReset func()

	mu      sync.Mutex
	subs    map[int]func()
	nextKey int
}

func newPageDocument(page *rod.Page, window time.Duration, maxBuffer int) *pageDocument {
	d := &pageDocument{
		page: page,
		subs: make(map[int]func()),
	}
	d.notif = newNotifier(window, maxBuffer, d.broadcast)
	return d
}

// start enables the CDP DOM domain and begins listening. The listener and
// the debounce loop run until stop is called or ctx ends.
func (d *pageDocument) start(ctx context.Context) error {
	if err := (proto.DOMEnable{}).Call(d.page); err != nil {
		return fmt.Errorf("session: enable DOM domain: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.notif.run(ctx)
	go d.listen(ctx)
	return nil
}

// listen subscribes to all DOM mutation events in a single goroutine. The
// payloads are not consumed: any of these events can move a target's box,
// so each one is just a tick toward the next notification.
func (d *pageDocument) listen(ctx context.Context) {
	wait := d.page.Context(ctx).EachEvent(
		func(e *proto.DOMChildNodeInserted) { d.notif.tick() },
		func(e *proto.DOMChildNodeRemoved) { d.notif.tick() },
		func(e *proto.DOMAttributeModified) { d.notif.tick() },
		func(e *proto.DOMAttributeRemoved) { d.notif.tick() },
		func(e *proto.DOMCharacterDataModified) { d.notif.tick() },
		func(e *proto.DOMDocumentUpdated) { d.documentReset() },
	)
	wait()
}

// documentReset handles a full document swap (navigation, reload). State
// tied to the old document — like an injected overlay — is gone, so the
// reset hook runs before the change notification that triggers re-injection.
func (d *pageDocument) documentReset() {
	if d.onReset != nil {
		d.onReset()
	}
	d.notif.tick()
}

// WatchMutations implements overlay.Document.
func (d *pageDocument) WatchMutations(fn func()) (func(), error) {
	d.mu.Lock()
	key := d.nextKey
	d.nextKey++
	d.subs[key] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.subs, key)
		d.mu.Unlock()
	}, nil
}

// HorizontalScale implements overlay.Document. It reads the `a` component
// of the root SVG element's screen CTM, falling back to 1 for documents
// without an SVG root. Queried fresh per refresh, never cached.
func (d *pageDocument) HorizontalScale() (float64, error) {
	res, err := d.page.Eval(`() => {
		const svg = document.querySelector('svg');
		if (!svg || !svg.getScreenCTM) return 1;
		const m = svg.getScreenCTM();
		return m ? m.a : 1;
	}`)
	if err != nil {
		return 0, fmt.Errorf("session: read scale: %w", err)
	}
	return res.Value.Num(), nil
}

// broadcast fans one debounced notification out to subscribers in
// registration order, so membership resolution runs before the controller's
// refresh.
func (d *pageDocument) broadcast() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.subs))
	for key := 0; key < d.nextKey; key++ {
		if fn, ok := d.subs[key]; ok {
			fns = append(fns, fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (d *pageDocument) stop() {
	if d.cancel != nil {
		d.cancel()
	}
}
