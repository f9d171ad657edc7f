package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	c := newClient(nil, hub, "127.0.0.1:12345")
	if err := hub.registry.Register(c); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	return c
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newTestClient(t, hub)

	if err := hub.registry.Register(c); err != ErrAlreadyRegistered {
		t.Errorf("Expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestSetNameStoresAndReturnsName(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newTestClient(t, hub)

	got := hub.registry.SetName(c, "alice")
	if got != "alice" {
		t.Errorf("SetName() = %q, want %q", got, "alice")
	}

	name, ok := hub.registry.Name(c)
	if !ok || name != "alice" {
		t.Errorf("Name() = %q, %v; want %q, true", name, ok, "alice")
	}
}

func TestSetNameEmptyUsesDeterministicFallback(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newTestClient(t, hub)

	got := hub.registry.SetName(c, "")
	if got == "" {
		t.Fatal("SetName with empty name returned empty name")
	}
	if got != c.FallbackName() {
		t.Errorf("SetName() = %q, want fallback %q", got, c.FallbackName())
	}
	if c.FallbackName() != c.FallbackName() {
		t.Error("FallbackName() is not stable for the same connection")
	}
}

func TestSetNameDoesNotRename(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newTestClient(t, hub)

	hub.registry.SetName(c, "alice")
	got := hub.registry.SetName(c, "mallory")
	if got != "alice" {
		t.Errorf("second SetName() = %q, want existing name %q", got, "alice")
	}
}

func TestSetNameUnregisteredConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newClient(nil, hub, "127.0.0.1:12345")

	if got := hub.registry.SetName(c, "ghost"); got != "" {
		t.Errorf("SetName on unregistered connection = %q, want empty", got)
	}
}

func TestUnregisterReturnsNameAndIsIdempotent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newTestClient(t, hub)
	hub.registry.SetName(c, "alice")

	name, named := hub.registry.Unregister(c)
	if !named || name != "alice" {
		t.Errorf("Unregister() = %q, %v; want %q, true", name, named, "alice")
	}

	name, named = hub.registry.Unregister(c)
	if named || name != "" {
		t.Errorf("second Unregister() = %q, %v; want empty, false", name, named)
	}
}

func TestUnregisterAnonymousReportsUnnamed(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newTestClient(t, hub)

	name, named := hub.registry.Unregister(c)
	if named || name != "" {
		t.Errorf("Unregister() of anonymous connection = %q, %v; want empty, false", name, named)
	}
}

func TestNamesPreservesRegistrationOrder(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	want := []string{"alice", "bob", "carol"}
	for _, name := range want {
		c := newTestClient(t, hub)
		hub.registry.SetName(c, name)
	}
	// An anonymous connection must not appear in the list.
	newTestClient(t, hub)

	got := hub.registry.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() returned %d names, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindByNameFirstMatchInRegistrationOrder(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	first := newTestClient(t, hub)
	second := newTestClient(t, hub)
	hub.registry.SetName(first, "dave")
	hub.registry.SetName(second, "dave")

	found, ok := hub.registry.FindByName("dave")
	if !ok || found != first {
		t.Error("FindByName did not return the first registered connection")
	}
}

func TestFindByNameAfterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	old := newTestClient(t, hub)
	hub.registry.SetName(old, "dave")
	hub.registry.Unregister(old)

	if _, ok := hub.registry.FindByName("dave"); ok {
		t.Error("FindByName resolved an unregistered connection")
	}

	// A later connection taking the same name must resolve to itself.
	replacement := newTestClient(t, hub)
	hub.registry.SetName(replacement, "dave")

	found, ok := hub.registry.FindByName("dave")
	if !ok || found != replacement {
		t.Error("FindByName did not resolve the replacement connection")
	}
}

func TestFindByNameEmptyNameNeverMatchesAnonymous(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	newTestClient(t, hub)

	if _, ok := hub.registry.FindByName(""); ok {
		t.Error("FindByName(\"\") matched an anonymous connection")
	}
}

func TestSnapshotIsolatedFromMutation(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := newTestClient(t, hub)
	b := newTestClient(t, hub)
	hub.registry.SetName(a, "alice")

	snapshot := hub.registry.Snapshot()
	hub.registry.Unregister(a)
	hub.registry.Unregister(b)

	if len(snapshot) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snapshot))
	}
	if snapshot[0].Client != a || snapshot[0].Name != "alice" {
		t.Error("snapshot entry 0 does not match registration state")
	}
	if snapshot[1].Client != b || snapshot[1].Name != "" {
		t.Error("snapshot entry 1 does not match registration state")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := newClient(nil, hub, "127.0.0.1:1")
			if err := hub.registry.Register(c); err != nil {
				t.Errorf("Register() failed: %v", err)
				return
			}
			hub.registry.SetName(c, fmt.Sprintf("user-%d", n))
			hub.registry.Snapshot()
			hub.registry.Names()
			hub.registry.FindByName(fmt.Sprintf("user-%d", n))
			hub.registry.Unregister(c)
		}(i)
	}
	wg.Wait()

	if got := hub.registry.Len(); got != 0 {
		t.Errorf("registry length after concurrent churn = %d, want 0", got)
	}
}
