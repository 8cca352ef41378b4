package inject

import (
	"fmt"
	"sync"
	"testing"
)

func testClient() *ClientInfo {
	return &ClientInfo{IP: "203.0.113.9", UserAgent: "test", Platform: "desktop", OS: "linux"}
}

func TestRegisterCreatesAggregate(t *testing.T) {
	r := NewRegistry()

	agg := r.Register(1, "tok1", testClient(), &SessionEntry{ID: 10})
	if agg == nil {
		t.Fatal("Register returned nil aggregate")
	}
	if len(agg.Sessions) != 1 || agg.Sessions[0].ID != 10 {
		t.Errorf("aggregate sessions = %+v, want single entry 10", agg.Sessions)
	}
	if agg.Client.IP != "203.0.113.9" {
		t.Errorf("aggregate client ip = %q", agg.Client.IP)
	}
}

func TestRegisterSameTokenAppendsInOrder(t *testing.T) {
	r := NewRegistry()

	const n = 5
	for i := 0; i < n; i++ {
		r.Register(1, "tok1", testClient(), &SessionEntry{ID: int64(i)})
	}

	agg := r.Lookup(1, "tok1")
	if agg == nil {
		t.Fatal("Lookup returned nil")
	}
	if len(agg.Sessions) != n {
		t.Fatalf("aggregate has %d sessions, want %d", len(agg.Sessions), n)
	}
	for i, s := range agg.Sessions {
		if s.ID != int64(i) {
			t.Errorf("sessions[%d].ID = %d, want %d (registration order)", i, s.ID, i)
		}
	}
}

func TestDeregisterTeardown(t *testing.T) {
	r := NewRegistry()
	r.Register(1, "tok1", testClient(), &SessionEntry{ID: 10})
	r.Register(1, "tok1", testClient(), &SessionEntry{ID: 11})

	r.Deregister(1, "tok1", 10)
	agg := r.Lookup(1, "tok1")
	if agg == nil {
		t.Fatal("aggregate removed while a session remains")
	}
	if len(agg.Sessions) != 1 || agg.Sessions[0].ID != 11 {
		t.Errorf("remaining sessions = %+v, want single entry 11", agg.Sessions)
	}

	r.Deregister(1, "tok1", 11)
	if r.Lookup(1, "tok1") != nil {
		t.Error("empty aggregate not deleted")
	}
	if p, c, s := r.Counts(); p != 0 || c != 0 || s != 0 {
		t.Errorf("Counts() = (%d, %d, %d) after full teardown, want zeros", p, c, s)
	}
}

func TestDeregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Register(1, "tok1", testClient(), &SessionEntry{ID: 10})

	r.Deregister(1, "tok1", 999)
	r.Deregister(1, "other", 10)
	r.Deregister(2, "tok1", 10)

	agg := r.Lookup(1, "tok1")
	if agg == nil || len(agg.Sessions) != 1 {
		t.Errorf("no-op deregisters disturbed the aggregate: %+v", agg)
	}
}

func TestLookupReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register(1, "tok1", testClient(), &SessionEntry{ID: 10})

	agg := r.Lookup(1, "tok1")
	agg.Client.IP = "mutated"
	agg.Sessions = nil

	again := r.Lookup(1, "tok1")
	if again.Client.IP != "203.0.113.9" {
		t.Error("Lookup did not return a copy; client mutation leaked into registry")
	}
	if len(again.Sessions) != 1 {
		t.Error("Lookup did not return a copy; session slice mutation leaked")
	}
}

func TestUpdateClient(t *testing.T) {
	r := NewRegistry()
	r.Register(1, "tok1", testClient(), &SessionEntry{ID: 10})

	r.UpdateClient(1, "tok1", func(c *ClientInfo) { c.Platform = "mobile" })
	if got := r.Lookup(1, "tok1").Client.Platform; got != "mobile" {
		t.Errorf("platform after UpdateClient = %q, want %q", got, "mobile")
	}

	// Unknown keys are a no-op, not a panic.
	r.UpdateClient(1, "other", func(c *ClientInfo) { c.Platform = "x" })
	r.UpdateClient(9, "tok1", func(c *ClientInfo) { c.Platform = "x" })
}

func TestConcurrentRegistrationsSameToken(t *testing.T) {
	r := NewRegistry()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			r.Register(1, "tok1", testClient(), &SessionEntry{ID: id})
		}(int64(i))
	}
	wg.Wait()

	if _, clients, sessions := r.Counts(); clients != 1 || sessions != n {
		t.Errorf("Counts() = (_, %d, %d), want one aggregate with %d sessions", clients, sessions, n)
	}
}

func TestCountsAcrossProjects(t *testing.T) {
	r := NewRegistry()
	for p := int64(1); p <= 3; p++ {
		for c := 0; c < 2; c++ {
			token := fmt.Sprintf("tok%d", c)
			r.Register(p, token, testClient(), &SessionEntry{ID: p*10 + int64(c)})
		}
	}

	projects, clients, sessions := r.Counts()
	if projects != 3 || clients != 6 || sessions != 6 {
		t.Errorf("Counts() = (%d, %d, %d), want (3, 6, 6)", projects, clients, sessions)
	}
}
