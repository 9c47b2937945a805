package stream

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	client := hub.Register("search-1")
	defer hub.Unregister(client)

	hub.Broadcast("search-1", []byte("hello"))

	select {
	case msg := <-client.Send:
		if string(msg) != "hello" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestHubBroadcastIsScopedToSearch(t *testing.T) {
	hub := NewHub()
	mine := hub.Register("search-1")
	other := hub.Register("search-2")
	defer hub.Unregister(mine)
	defer hub.Unregister(other)

	hub.Broadcast("search-1", []byte("only mine"))

	select {
	case <-mine.Send:
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
	select {
	case msg := <-other.Send:
		t.Fatalf("message leaked across searches: %s", msg)
	default:
	}
}

func TestHubPublishMarshalsEvent(t *testing.T) {
	hub := NewHub()
	client := hub.Register("search-1")
	defer hub.Unregister(client)

	hub.Publish("search-1", Event{
		Type:    EventZoneExplored,
		Zone:    "ring1-3",
		Found:   7,
		Scanned: 4,
		Total:   8,
	})

	select {
	case msg := <-client.Send:
		var got Event
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if got.Type != EventZoneExplored || got.Zone != "ring1-3" || got.Found != 7 {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for event")
	}
}

func TestHubSkipsSlowClients(t *testing.T) {
	hub := NewHub()
	client := hub.Register("search-1")
	defer hub.Unregister(client)

	// Fill the buffer; further broadcasts must not block.
	for i := 0; i < cap(client.Send)+10; i++ {
		hub.Broadcast("search-1", []byte("tick"))
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub()
	client := hub.Register("search-2")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
}
