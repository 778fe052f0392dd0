package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBroadcastBoardReachesSubscribers(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.SubscribeBoard("board-1", "user-a")
	defer cancel()

	hub.BroadcastBoard("board-1", Message{EventType: "card_moved", UserID: "user-b"}, "user-b")

	select {
	case data := <-ch:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		if msg.EventType != "card_moved" {
			t.Errorf("expected card_moved, got %s", msg.EventType)
		}
		if msg.BoardID != "board-1" {
			t.Errorf("expected board-1, got %s", msg.BoardID)
		}
		if msg.Timestamp.IsZero() {
			t.Error("expected timestamp to be set")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestBroadcastExcludesOriginatingUser(t *testing.T) {
	hub := NewHub()
	origin, cancelOrigin := hub.SubscribeBoard("board-1", "user-b")
	defer cancelOrigin()
	other, cancelOther := hub.SubscribeBoard("board-1", "user-a")
	defer cancelOther()

	hub.BroadcastBoard("board-1", Message{EventType: "card_created", UserID: "user-b"}, "user-b")

	select {
	case <-other:
	case <-time.After(time.Second):
		t.Fatal("other subscriber never got the event")
	}

	select {
	case <-origin:
		t.Fatal("originating user should not receive its own event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastScopedToBoard(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.SubscribeBoard("board-2", "user-a")
	defer cancel()

	hub.BroadcastBoard("board-1", Message{EventType: "card_deleted"}, "")

	select {
	case <-ch:
		t.Fatal("subscriber of another board received the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.SubscribeBoard("board-1", "user-a")
	if got := hub.BoardSubscriberCount("board-1"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}
	cancel()
	if got := hub.BoardSubscriberCount("board-1"); got != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", got)
	}

	// Broadcasting to an empty board is a no-op.
	hub.BroadcastBoard("board-1", Message{EventType: "card_moved"}, "")
}

func TestSlowSubscriberDropsMessages(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.SubscribeBoard("board-1", "user-a")
	defer cancel()

	// Overfill the buffered channel; extra messages must be dropped, not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.BroadcastBoard("board-1", Message{EventType: "card_moved"}, "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on slow subscriber")
	}

	if len(ch) == 0 {
		t.Error("expected buffered messages")
	}
}

func TestWorkspaceBroadcast(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.SubscribeWorkspace("ws-1", "user-a")
	defer cancel()

	hub.BroadcastWorkspace("ws-1", Message{EventType: "notification", UserID: "user-b"}, "user-b")

	select {
	case data := <-ch:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		if msg.EventType != "notification" {
			t.Errorf("expected notification, got %s", msg.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for workspace broadcast")
	}
}
