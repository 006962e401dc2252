package hub

import (
	"testing"
)

// testClient returns a client with no socket behind it; Queue and the
// registry only touch the send channel.
func testClient(name string) *Client {
	return NewClient(nil, name)
}

// received drains one payload from a client's send buffer, if any.
func received(c *Client) (string, bool) {
	select {
	case data, ok := <-c.send:
		if !ok {
			return "", false
		}
		return string(data), true
	default:
		return "", false
	}
}

func TestRegistryMembership(t *testing.T) {
	t.Run("join and count", func(t *testing.T) {
		r := NewRegistry()
		a, b := testClient("a"), testClient("b")

		r.Join(a, "r1")
		r.Join(b, "r1")

		if got := r.Count("r1"); got != 2 {
			t.Errorf("Expected 2 members, got %d", got)
		}
		if a.Room() != "r1" {
			t.Errorf("Expected client room r1, got %q", a.Room())
		}
	})

	t.Run("at most one room per connection", func(t *testing.T) {
		r := NewRegistry()
		a := testClient("a")

		r.Join(a, "r1")
		r.Join(a, "r2")

		if got := r.Count("r1"); got != 0 {
			t.Errorf("Expected old room emptied, got %d members", got)
		}
		if got := r.Count("r2"); got != 1 {
			t.Errorf("Expected 1 member in new room, got %d", got)
		}
		if a.Room() != "r2" {
			t.Errorf("Expected room r2, got %q", a.Room())
		}
	})

	t.Run("rejoining the same room is stable", func(t *testing.T) {
		r := NewRegistry()
		a := testClient("a")

		r.Join(a, "r1")
		r.Join(a, "r1")

		if got := r.Count("r1"); got != 1 {
			t.Errorf("Expected 1 member after rejoin, got %d", got)
		}
	})

	t.Run("leave reports remaining members", func(t *testing.T) {
		r := NewRegistry()
		a, b := testClient("a"), testClient("b")
		r.Join(a, "r1")
		r.Join(b, "r1")

		remaining, wasMember := r.Leave(a)
		if !wasMember {
			t.Error("Expected wasMember=true")
		}
		if remaining != 1 {
			t.Errorf("Expected 1 remaining, got %d", remaining)
		}

		remaining, _ = r.Leave(b)
		if remaining != 0 {
			t.Errorf("Expected 0 remaining, got %d", remaining)
		}
		if got := r.Count("r1"); got != 0 {
			t.Errorf("Expected empty room, got %d members", got)
		}
	})

	t.Run("leave is idempotent", func(t *testing.T) {
		r := NewRegistry()
		a := testClient("a")
		r.Join(a, "r1")
		r.Leave(a)

		if _, wasMember := r.Leave(a); wasMember {
			t.Error("Second leave reported membership")
		}
	})

	t.Run("fresh join after room emptied", func(t *testing.T) {
		r := NewRegistry()
		a := testClient("a")
		r.Join(a, "r1")
		r.Leave(a)

		b := testClient("b")
		r.Join(b, "r1")
		if got := r.Count("r1"); got != 1 {
			t.Errorf("Expected 1 member after re-open, got %d", got)
		}
	})
}

func TestRegistryBroadcast(t *testing.T) {
	t.Run("delivers to everyone but the sender", func(t *testing.T) {
		r := NewRegistry()
		a, b, c := testClient("a"), testClient("b"), testClient("c")
		r.Join(a, "r1")
		r.Join(b, "r1")
		r.Join(c, "r1")

		r.Broadcast("r1", []byte("payload"), a.ID)

		if msg, ok := received(b); !ok || msg != "payload" {
			t.Errorf("b expected payload, got %q ok=%v", msg, ok)
		}
		if msg, ok := received(c); !ok || msg != "payload" {
			t.Errorf("c expected payload, got %q ok=%v", msg, ok)
		}
		if msg, ok := received(a); ok {
			t.Errorf("Sender received its own broadcast: %q", msg)
		}
	})

	t.Run("does not cross rooms", func(t *testing.T) {
		r := NewRegistry()
		a, b := testClient("a"), testClient("b")
		r.Join(a, "r1")
		r.Join(b, "r2")

		r.Broadcast("r1", []byte("payload"), "")

		if _, ok := received(b); ok {
			t.Error("Broadcast for r1 delivered to member of r2")
		}
		if _, ok := received(a); !ok {
			t.Error("Member of r1 missed the broadcast")
		}
	})

	t.Run("broadcast to unknown room is a no-op", func(t *testing.T) {
		r := NewRegistry()
		r.Broadcast("ghost", []byte("payload"), "")
	})

	t.Run("full buffer drops only the stuck member", func(t *testing.T) {
		r := NewRegistry()
		stuck, healthy := testClient("stuck"), testClient("healthy")
		r.Join(stuck, "r1")
		r.Join(healthy, "r1")

		// Fill the stuck client's buffer to force delivery failure.
		for stuck.Queue([]byte("fill")) {
		}

		r.Broadcast("r1", []byte("payload"), "")

		if got := r.Count("r1"); got != 1 {
			t.Errorf("Expected stuck member removed, got %d members", got)
		}
		if stuck.Room() != "" {
			t.Errorf("Stuck member still bound to %q", stuck.Room())
		}

		// The healthy member got the payload regardless.
		if msg, ok := received(healthy); !ok || msg != "payload" {
			t.Errorf("Healthy member expected payload, got %q ok=%v", msg, ok)
		}
	})
}
