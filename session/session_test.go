package session

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	cfg := &Config{}
	cfg.Page.URL = "https://example.com/drawing.svg"
	cfg.Page.Selectors = []SelectorConfig{{ID: "initial", CSS: "rect"}}

	s, err := New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewMintsSessionID(t *testing.T) {
	s := testSession(t)
	if !strings.HasPrefix(s.ID(), "ses_") {
		t.Errorf("session id: got %q", s.ID())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(&Config{}, nil); err == nil {
		t.Error("expected error for missing page.url")
	}
}

func TestSelectorManagement(t *testing.T) {
	s := testSession(t)

	sels := s.Selectors()
	if len(sels) != 1 || sels[0].ID != "initial" {
		t.Fatalf("initial selectors: got %+v", sels)
	}

	id, err := s.AddSelector("", "circle.selected")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "sel_") {
		t.Errorf("minted id: got %q", id)
	}

	// Re-using an id replaces the pattern, keeping position.
	if _, err := s.AddSelector("initial", "rect.active"); err != nil {
		t.Fatal(err)
	}
	sels = s.Selectors()
	if len(sels) != 2 {
		t.Fatalf("selectors: got %d, want 2", len(sels))
	}
	if sels[0].ID != "initial" || sels[0].CSS != "rect.active" {
		t.Errorf("replaced selector: got %+v", sels[0])
	}

	if _, err := s.AddSelector("x", ""); err == nil {
		t.Error("empty css must be rejected")
	}

	if !s.RemoveSelector(id) {
		t.Error("remove should report true")
	}
	if s.RemoveSelector(id) {
		t.Error("second remove should report false")
	}
}

func TestStatusBeforeStart(t *testing.T) {
	s := testSession(t)
	st := s.Status()
	if st.Started {
		t.Error("session should not report started")
	}
	if st.PageURL != "https://example.com/drawing.svg" {
		t.Errorf("page url: got %q", st.PageURL)
	}
	if len(st.Selectors) != 1 {
		t.Errorf("selectors: got %d, want 1", len(st.Selectors))
	}
}

func TestEventsWithoutLogIsNil(t *testing.T) {
	s := testSession(t)
	events, err := s.Events(t.Context(), 10)
	if err != nil || events != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", events, err)
	}
}

func controlRouter(s *Session) *chi.Mux {
	r := chi.NewRouter()
	s.RegisterHTTP(r)
	return r
}

func TestHTTPStatus(t *testing.T) {
	r := controlRouter(testSession(t))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d", rec.Code)
	}

	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.PageURL != "https://example.com/drawing.svg" {
		t.Errorf("page url: got %q", st.PageURL)
	}
}

func TestHTTPSelectorLifecycle(t *testing.T) {
	s := testSession(t)
	r := controlRouter(s)

	body, _ := json.Marshal(map[string]string{"css": "ellipse"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/selectors", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("add: got %d: %s", rec.Code, rec.Body.String())
	}
	var added map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/selectors", nil))
	var sels []Selector
	if err := json.Unmarshal(rec.Body.Bytes(), &sels); err != nil {
		t.Fatal(err)
	}
	if len(sels) != 2 {
		t.Fatalf("selectors: got %d, want 2", len(sels))
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/v1/selectors/"+added["id"], nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/v1/selectors/"+added["id"], nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing: got %d, want 404", rec.Code)
	}
}

func TestHTTPAddSelectorRejectsBadBody(t *testing.T) {
	r := controlRouter(testSession(t))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/selectors", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body: got %d, want 400", rec.Code)
	}

	body, _ := json.Marshal(map[string]string{"css": ""})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/selectors", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty css: got %d, want 400", rec.Code)
	}
}
