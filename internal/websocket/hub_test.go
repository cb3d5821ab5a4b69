package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestListenAndClose(t *testing.T) {
	hub := NewHub(slog.Default())

	l1 := hub.Listen("alice", "")
	l2 := hub.Listen("bob", "")

	if got := hub.ListenerCount(); got != 2 {
		t.Fatalf("expected 2 listeners, got %d", got)
	}

	l1.Close()

	if got := hub.ListenerCount(); got != 1 {
		t.Fatalf("expected 1 listener after close, got %d", got)
	}

	l2.Close()

	if got := hub.ListenerCount(); got != 0 {
		t.Fatalf("expected 0 listeners, got %d", got)
	}
}

func TestDoubleClose(t *testing.T) {
	hub := NewHub(slog.Default())
	l := hub.Listen("alice", "")
	l.Close()
	// Should not panic
	l.Close()

	if _, ok := <-l.C(); ok {
		t.Error("expected closed channel")
	}
}

func TestBroadcastOnlyReachesUser(t *testing.T) {
	hub := NewHub(slog.Default())

	alice := hub.Listen("alice", "")
	alice2 := hub.Listen("alice", "")
	bob := hub.Listen("bob", "")
	defer alice.Close()
	defer alice2.Close()
	defer bob.Close()

	hub.Broadcast(NewMessage("todo", "created", "alice", "42"))

	for _, l := range []*Listener{alice, alice2} {
		select {
		case got := <-l.C():
			if got.Type != "todo_created" {
				t.Errorf("expected type todo_created, got %s", got.Type)
			}
			if got.ID != "42" {
				t.Errorf("expected id 42, got %s", got.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case msg := <-bob.C():
		t.Errorf("bob received %v", msg)
	default:
	}
}

func TestListenerEntityFilter(t *testing.T) {
	hub := NewHub(slog.Default())

	todos := hub.Listen("alice", "todo")
	journal := hub.Listen("alice", "journal")
	defer todos.Close()
	defer journal.Close()

	hub.Broadcast(NewMessage("journal", "created", "alice", "1"))
	hub.Broadcast(NewMessage("todo", "created", "alice", "2"))

	select {
	case got := <-todos.C():
		if got.ID != "2" {
			t.Errorf("todo listener got id %s, want 2", got.ID)
		}
	default:
		t.Fatal("todo listener missed its message")
	}
	select {
	case got := <-journal.C():
		if got.ID != "1" {
			t.Errorf("journal listener got id %s, want 1", got.ID)
		}
	default:
		t.Fatal("journal listener missed its message")
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast(NewMessage("todo", "deleted", "nobody", "1"))
}

func TestBroadcastCoalesces(t *testing.T) {
	hub := NewHub(slog.Default())
	l := hub.Listen("alice", "")
	defer l.Close()

	for i := 0; i < 10; i++ {
		hub.Broadcast(NewMessage("todo", "updated", "alice", "1"))
	}

	count := 0
	for {
		select {
		case <-l.C():
			count++
			continue
		default:
		}
		break
	}
	if count != listenerBufferSize {
		t.Errorf("expected %d pending messages, got %d", listenerBufferSize, count)
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("journal", "updated", "u1", "5")
	if msg.Type != "journal_updated" {
		t.Errorf("expected type journal_updated, got %s", msg.Type)
	}
	if msg.Entity != "journal" {
		t.Errorf("expected entity journal, got %s", msg.Entity)
	}
	if msg.Action != "updated" {
		t.Errorf("expected action updated, got %s", msg.Action)
	}
	if msg.UserID != "u1" {
		t.Errorf("expected user u1, got %s", msg.UserID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := hub.Listen("alice", "")
			hub.Broadcast(NewMessage("todo", "concurrent", "alice", ""))
			l.Close()
		}()
	}

	wg.Wait()

	if got := hub.ListenerCount(); got != 0 {
		t.Errorf("expected 0 listeners after concurrent test, got %d", got)
	}
}

func TestDecodeRelayed(t *testing.T) {
	msg, ok := decodeRelayed(channelName("alice"), `{"type":"todo_created","entity":"todo","action":"created","user_id":"mallory","id":"9"}`)
	if !ok {
		t.Fatal("expected message to decode")
	}
	if msg.UserID != "alice" {
		t.Errorf("user = %q, want channel user %q", msg.UserID, "alice")
	}
	if msg.ID != "9" {
		t.Errorf("id = %q, want %q", msg.ID, "9")
	}

	if _, ok := decodeRelayed("other:alice", `{}`); ok {
		t.Error("expected foreign channel to be rejected")
	}
	if _, ok := decodeRelayed(channelName("alice"), `not json`); ok {
		t.Error("expected malformed payload to be rejected")
	}
}

func TestSnapshotFrameSkipsMalformedItems(t *testing.T) {
	type row struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}

	f, err := NewSnapshotFrame("todo", []row{{ID: "a", Count: 1}, {ID: "b", Count: 2}})
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	if f.Type != FrameSnapshot || f.Entity != "todo" {
		t.Fatalf("frame = %+v", f)
	}
	f.Items = append(f.Items, []byte(`{"id":"c","count":"three"}`))

	var skipped []int
	got := DecodeItems[row](f, func(i int, _ error) { skipped = append(skipped, i) })
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("decoded = %+v, want a and b", got)
	}
	if len(skipped) != 1 || skipped[0] != 2 {
		t.Errorf("skipped = %v, want [2]", skipped)
	}
}

func TestErrorFrame(t *testing.T) {
	f := NewErrorFrame("journal", errors.New("db locked"))
	if f.Type != FrameError || f.Error != "db locked" {
		t.Errorf("frame = %+v", f)
	}
	if got := DecodeItems[map[string]any](f, nil); len(got) != 0 {
		t.Errorf("error frame decoded %d items", len(got))
	}
}
