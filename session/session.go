// Package session binds the overlay core to a live browser page via
// go-rod/CDP. A Session opens a tab, watches its DOM for mutations,
// resolves configured CSS selectors into highlight targets, and injects
// the controller's overlay markup back into the page after every refresh.
//
// The session observes and decorates, it does not interpret: what the
// selectors mean is the caller's business.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/domhighlight/idgen"
	"github.com/hazyhaar/domhighlight/liveset"
	"github.com/hazyhaar/domhighlight/observability"
	"github.com/hazyhaar/domhighlight/overlay"
	"github.com/hazyhaar/domhighlight/session/internal/browser"
)

// overlayHostID is the DOM id of the injected overlay group. Selector
// resolution excludes everything under it.
const overlayHostID = "domhighlight-overlay"

// Selector is one tracked CSS selector.
type Selector struct {
	ID  string `json:"id"`
	CSS string `json:"css"`
}

// Status is a point-in-time session summary.
type Status struct {
	ID        string        `json:"id"`
	PageURL   string        `json:"page_url"`
	Started   bool          `json:"started"`
	Selectors []Selector    `json:"selectors"`
	Overlay   overlay.Stats `json:"overlay"`
}

// Session drives highlighting for one page.
type Session struct {
	id     string
	cfg    *Config
	logger *slog.Logger

	mgr *browser.Manager
	tab *browser.Tab
	doc *pageDocument

	set  *liveset.Set
	ctrl *overlay.Controller

	events *observability.RefreshLog
	newSel idgen.Generator

	mu            sync.Mutex
	selectors     []Selector
	lastMarkup    string
	cancelResolve func()
	started       bool
}

// Option configures a Session.
type Option func(*Session)

// WithRefreshLog records every refresh pass to the given event log.
func WithRefreshLog(l *observability.RefreshLog) Option {
	return func(s *Session) { s.events = l }
}

// New creates a Session from configuration. The browser is not touched
// until Start.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Session, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		id:     idgen.Prefixed("ses_", idgen.Default)(),
		cfg:    cfg,
		logger: logger,
		set:    liveset.New(),
		newSel: idgen.Prefixed("sel_", idgen.NanoID(8)),
	}
	for _, o := range opts {
		o(s)
	}

	for _, sel := range cfg.Page.Selectors {
		id := sel.ID
		if id == "" {
			id = s.newSel()
		}
		s.selectors = append(s.selectors, Selector{ID: id, CSS: sel.CSS})
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start launches (or connects to) Chrome, opens the page, wires the
// mutation feed, and builds the highlight controller. The controller's
// construction runs the first refresh, so the overlay is live when Start
// returns.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session: already started")
	}
	s.mu.Unlock()

	s.mgr = browser.NewManager(browser.Config{
		RemoteURL: s.cfg.Browser.Remote,
		Headless:  *s.cfg.Browser.Headless,
		Logger:    s.logger,
	})
	if _, err := s.mgr.Start(); err != nil {
		return fmt.Errorf("session: start browser: %w", err)
	}

	tab, err := browser.OpenTab(ctx, s.mgr, s.cfg.Page.URL, s.cfg.Browser.Stealth, s.cfg.Browser.NavigateTimeout)
	if err != nil {
		s.mgr.Close()
		return fmt.Errorf("session: open tab: %w", err)
	}

	doc := newPageDocument(tab.Page, s.cfg.Debounce.Window, s.cfg.Debounce.MaxBuffer)
	doc.onReset = s.forgetInjectedMarkup
	if err := doc.start(ctx); err != nil {
		tab.Close()
		s.mgr.Close()
		return err
	}

	s.mu.Lock()
	s.tab = tab
	s.doc = doc
	s.mu.Unlock()

	// Membership resolution subscribes first so it runs ahead of the
	// controller's own refresh on every notification.
	s.cancelResolve, _ = doc.WatchMutations(s.resolveTargets)
	s.resolveTargets()

	ctrl, err := overlay.New(s.set, doc,
		overlay.WithLogger(s.logger),
		overlay.WithStyle(styleFrom(s.cfg.Style)),
		overlay.WithVisualThickness(s.cfg.Style.VisualThickness),
		overlay.WithRefreshHook(s.afterRefresh),
	)
	if err != nil {
		s.Stop()
		return fmt.Errorf("session: build controller: %w", err)
	}
	ctrl.Root().SetAttr("id", overlayHostID)

	s.mu.Lock()
	s.ctrl = ctrl
	s.started = true
	s.mu.Unlock()

	// Push the initial overlay; construction refreshed before s.ctrl was
	// visible to the hook.
	s.inject()

	s.logger.Info("session: highlighting started",
		"session", s.id, "url", s.cfg.Page.URL, "selectors", len(s.selectors))
	return nil
}

// Stop tears the session down: controller subscriptions, mutation feed,
// tab, browser. Safe to call after a partial Start.
func (s *Session) Stop() {
	s.mu.Lock()
	ctrl := s.ctrl
	cancelResolve := s.cancelResolve
	doc := s.doc
	tab := s.tab
	s.ctrl = nil
	s.cancelResolve = nil
	s.doc = nil
	s.tab = nil
	s.started = false
	s.mu.Unlock()

	if ctrl != nil {
		ctrl.Close()
	}
	if cancelResolve != nil {
		cancelResolve()
	}
	if doc != nil {
		doc.stop()
	}
	if tab != nil {
		tab.Close()
	}
	if s.mgr != nil {
		s.mgr.Close()
	}
	s.logger.Info("session: stopped", "session", s.id)
}

// AddSelector starts tracking a CSS selector and returns its id. An empty
// id is minted; re-using an existing id replaces that selector's pattern.
func (s *Session) AddSelector(id, css string) (string, error) {
	if css == "" {
		return "", fmt.Errorf("session: empty selector")
	}
	s.mu.Lock()
	if id == "" {
		id = s.newSel()
	}
	replaced := false
	for i := range s.selectors {
		if s.selectors[i].ID == id {
			s.selectors[i].CSS = css
			replaced = true
			break
		}
	}
	if !replaced {
		s.selectors = append(s.selectors, Selector{ID: id, CSS: css})
	}
	s.mu.Unlock()

	s.resolveTargets()
	return id, nil
}

// RemoveSelector stops tracking a selector. Returns false for unknown ids.
func (s *Session) RemoveSelector(id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.selectors {
		if s.selectors[i].ID == id {
			s.selectors = append(s.selectors[:i], s.selectors[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.resolveTargets()
	}
	return found
}

// Selectors returns the tracked selectors in order.
func (s *Session) Selectors() []Selector {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Selector, len(s.selectors))
	copy(out, s.selectors)
	return out
}

// Status returns a point-in-time summary.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		ID:        s.id,
		PageURL:   s.cfg.Page.URL,
		Started:   s.started,
		Selectors: make([]Selector, len(s.selectors)),
	}
	copy(st.Selectors, s.selectors)
	ctrl := s.ctrl
	s.mu.Unlock()

	if ctrl != nil {
		st.Overlay = ctrl.Stats()
	}
	return st
}

// Events returns recent refresh events when an event log is attached.
func (s *Session) Events(ctx context.Context, limit int) ([]observability.RefreshEvent, error) {
	if s.events == nil {
		return nil, nil
	}
	return s.events.Recent(ctx, s.id, limit)
}

// resolveTargets re-evaluates every tracked selector against the page and
// syncs the matched elements into the live set. Membership changes notify
// the controller through the set's own channel.
func (s *Session) resolveTargets() {
	s.mu.Lock()
	sels := make([]Selector, len(s.selectors))
	copy(sels, s.selectors)
	tab := s.tab
	s.mu.Unlock()

	if tab == nil {
		return
	}

	var keys []string
	found := make(map[string]overlay.Target)
	for _, sel := range sels {
		els, err := matchSelector(tab.Page, sel.CSS)
		if err != nil {
			s.logger.Warn("session: selector resolution failed",
				"selector", sel.CSS, "error", err)
			continue
		}
		for _, el := range els {
			key, err := nodeKey(el)
			if err != nil {
				s.logger.Debug("session: node key failed", "error", err)
				continue
			}
			if _, dup := found[key]; dup {
				continue
			}
			keys = append(keys, key)
			found[key] = &elementTarget{el: el}
		}
	}

	s.set.Sync(keys, func(id string) overlay.Target { return found[id] })
}

// afterRefresh runs on every controller refresh, outside the controller
// lock: it pushes updated markup into the page and records the pass.
func (s *Session) afterRefresh(info overlay.RefreshInfo) {
	s.inject()

	if s.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.events.Record(ctx, observability.RefreshEvent{
			SessionID: s.id,
			PageURL:   s.cfg.Page.URL,
			Targets:   info.Targets,
			Failures:  info.Failures,
			Hidden:    info.Hidden,
			Thickness: info.Thickness,
			Duration:  info.Duration,
		})
	}
}

func styleFrom(sc StyleConfig) overlay.Style {
	st := overlay.DefaultStyle()
	if sc.Primary != "" {
		st.Primary = sc.Primary
	}
	if sc.Secondary != "" {
		st.Secondary = sc.Secondary
	}
	if sc.DashPattern != "" {
		st.DashPattern = sc.DashPattern
	}
	if sc.DashOffset != "" {
		st.DashOffset = sc.DashOffset
	}
	st.Handles = sc.Handles
	return st
}
