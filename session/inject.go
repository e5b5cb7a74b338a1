package session

// upsertJS replaces the overlay host in place when present, otherwise
// appends it to the document's root SVG element (or body for mixed
// documents). Injection itself mutates the DOM and re-enters the refresh
// path once; the markup memo below makes that second pass a no-op, so the
// loop always terminates.
const upsertJS = `(markup) => {
	const prev = document.getElementById('` + overlayHostID + `');
	if (prev) { prev.outerHTML = markup; return true; }
	const root = document.querySelector('svg') || document.body;
	if (!root) return false;
	root.insertAdjacentHTML('beforeend', markup);
	return true;
}`

// inject serialises the controller's root group and upserts it into the
// page. Skipped when the markup has not changed since the last successful
// injection.
func (s *Session) inject() {
	s.mu.Lock()
	tab := s.tab
	ctrl := s.ctrl
	s.mu.Unlock()
	if tab == nil || ctrl == nil {
		return
	}

	markup := ctrl.Root().Markup()
	if !s.needsInjection(markup) {
		return
	}

	res, err := tab.Page.Eval(upsertJS, markup)
	if err != nil {
		s.logger.Warn("session: overlay injection failed", "error", err)
		return
	}
	if !res.Value.Bool() {
		s.logger.Warn("session: no injection root found", "url", tab.PageURL)
		return
	}
	s.markInjected(markup)
}

// needsInjection reports whether markup differs from what the page last
// accepted. The memo only advances in markInjected, after a successful
// upsert, so a failed injection is retried on the next refresh.
func (s *Session) needsInjection(markup string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markup != s.lastMarkup
}

func (s *Session) markInjected(markup string) {
	s.mu.Lock()
	s.lastMarkup = markup
	s.mu.Unlock()
}

// forgetInjectedMarkup drops the memo. Called when the page swaps its
// document (navigation, reload): the overlay host died with the old
// document, so even byte-identical markup must be injected again.
func (s *Session) forgetInjectedMarkup() {
	s.mu.Lock()
	s.lastMarkup = ""
	s.mu.Unlock()
}
