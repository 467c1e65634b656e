package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client without a real WebSocket connection.
func mockClient(hub *Hub, venueID uuid.UUID) *Client {
	return &Client{
		hub:     hub,
		venueID: venueID,
		send:    make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)

	venueID := uuid.New()
	client := mockClient(hub, venueID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[venueID] == nil {
		t.Fatal("venue room not created")
	}
	if !hub.rooms[venueID][client] {
		t.Fatal("client not registered in venue room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := startHub(t)

	venueID := uuid.New()
	client := mockClient(hub, venueID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[venueID] != nil {
		t.Fatal("venue room not cleaned up after last client unregistered")
	}
}

func TestBroadcastScopedToVenue(t *testing.T) {
	hub := startHub(t)

	venue1 := uuid.New()
	venue2 := uuid.New()

	client1 := mockClient(hub, venue1)
	client2 := mockClient(hub, venue2)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"order_id":"test-123"}`)
	hub.BroadcastToVenue(venue1, Event{Type: EventPaymentCompleted, Payload: testPayload})

	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != EventPaymentCompleted {
			t.Errorf("expected type %q, got %q", EventPaymentCompleted, received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload %s, got %s", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not receive events for another venue")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	venueID := uuid.New()
	client := mockClient(hub, venueID)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	cancel()
	time.Sleep(10 * time.Millisecond)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected send channel to be closed, got a message")
		}
	default:
		t.Fatal("send channel still open after hub shutdown")
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if len(hub.rooms) != 0 {
		t.Fatal("rooms not emptied on shutdown")
	}
}

func TestHubShutdownReleasesDetachingClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	venueID := uuid.New()
	client := mockClient(hub, venueID)
	if !hub.add(client) {
		t.Fatal("register rejected before shutdown")
	}

	cancel()
	<-hub.done

	// A read pump detaching after shutdown must return instead of parking
	// on the unregister channel forever.
	released := make(chan struct{})
	go func() {
		hub.remove(client)
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after hub shutdown")
	}

	if hub.add(mockClient(hub, venueID)) {
		t.Fatal("register accepted after hub shutdown")
	}
}
