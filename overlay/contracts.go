package overlay

// Target is an opaque handle to a document element being highlighted. The
// only required capability is producing the element's current axis-aligned
// bounding box. The query may fail, e.g. when the element was detached from
// the document between set enumeration and refresh; failure must be an
// error, never a silently-zero box. Targets are owned by external code.
type Target interface {
	Box() (Box, error)
}

// LiveSet is an observable collection of highlight targets.
//
// Targets returns a fresh ordered snapshot of the current members; the
// returned slice is owned by the caller. Iteration order defines marker
// slot assignment for one refresh and need not be stable across calls.
//
// OnChange registers a listener fired (with no payload) whenever membership
// changes; the caller re-enumerates to learn the new membership. The
// returned cancel function releases the registration and is safe to call
// more than once.
type LiveSet interface {
	Targets() []Target
	OnChange(fn func()) (cancel func())
}

// Document is the controller's view of the host document: a mutation feed
// and the current coordinate scale.
//
// WatchMutations subscribes fn to subtree change notifications covering
// attribute, child-list, and text mutations at any depth — any of these can
// move a target's bounding box. The returned cancel function releases the
// subscription.
//
// HorizontalScale reports the current horizontal scale factor of the
// document's coordinate system. It is queried fresh on every refresh so
// stroke width stays visually constant under zoom.
type Document interface {
	WatchMutations(fn func()) (cancel func(), err error)
	HorizontalScale() (float64, error)
}
