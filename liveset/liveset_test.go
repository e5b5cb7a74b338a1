package liveset

import (
	"testing"

	"github.com/hazyhaar/domhighlight/overlay"
)

type boxTarget struct{ box overlay.Box }

func (t boxTarget) Box() (overlay.Box, error) { return t.box, nil }

func target(x float64) overlay.Target {
	return boxTarget{box: overlay.Box{X: x, Width: 1, Height: 1}}
}

func TestAddPreservesOrder(t *testing.T) {
	s := New()
	s.Add("a", target(1))
	s.Add("b", target(2))
	s.Add("c", target(3))

	ids := s.IDs()
	want := []string{"a", "b", "c"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d]: got %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestAddExistingReplacesInPlace(t *testing.T) {
	s := New()
	s.Add("a", target(1))
	s.Add("b", target(2))
	s.Add("a", target(9))

	if s.Len() != 2 {
		t.Fatalf("len: got %d, want 2", s.Len())
	}
	if ids := s.IDs(); ids[0] != "a" {
		t.Fatalf("position lost: got %v", ids)
	}
	box, _ := s.Targets()[0].Box()
	if box.X != 9 {
		t.Fatalf("target not replaced: X=%v", box.X)
	}
}

func TestRemove(t *testing.T) {
	s := New()
	s.Add("a", target(1))

	if !s.Remove("a") {
		t.Fatal("Remove(a) should report true")
	}
	if s.Remove("a") {
		t.Fatal("second Remove(a) should report false")
	}
	if s.Len() != 0 {
		t.Fatalf("len: got %d, want 0", s.Len())
	}
}

func TestOnChangeFiresAndCancels(t *testing.T) {
	s := New()
	calls := 0
	cancel := s.OnChange(func() { calls++ })

	s.Add("a", target(1))
	s.Remove("a")
	if calls != 2 {
		t.Fatalf("calls: got %d, want 2", calls)
	}

	// Removing a missing id must not notify.
	s.Remove("a")
	if calls != 2 {
		t.Fatalf("calls after no-op remove: got %d, want 2", calls)
	}

	cancel()
	cancel() // safe to call twice
	s.Add("b", target(2))
	if calls != 2 {
		t.Fatalf("calls after cancel: got %d, want 2", calls)
	}
}

func TestListenerMayReenter(t *testing.T) {
	s := New()
	var seen int
	s.OnChange(func() {
		seen = s.Len() // must not deadlock
	})
	s.Add("a", target(1))
	if seen != 1 {
		t.Fatalf("listener saw len %d, want 1", seen)
	}
}

func TestSync(t *testing.T) {
	s := New()
	s.Add("a", target(1))
	s.Add("b", target(2))
	s.Add("c", target(3))

	calls := 0
	s.OnChange(func() { calls++ })

	// Drop b, keep a and c, append d.
	s.Sync([]string{"a", "c", "d"}, func(id string) overlay.Target { return target(4) })

	ids := s.IDs()
	want := []string{"a", "c", "d"}
	if len(ids) != len(want) {
		t.Fatalf("ids: got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d]: got %q, want %q", i, ids[i], want[i])
		}
	}
	if calls != 1 {
		t.Fatalf("calls: got %d, want 1", calls)
	}

	// Identical membership: no notification.
	s.Sync([]string{"a", "c", "d"}, func(id string) overlay.Target { return target(5) })
	if calls != 1 {
		t.Fatalf("calls after no-op sync: got %d, want 1", calls)
	}
}
