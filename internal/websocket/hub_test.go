package eventws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/saeid-a/CounselBack/internal/services"
	"go.uber.org/zap"
)

func newTestClient(hub *Hub, userID int64) *Client {
	return &Client{hub: hub, userID: userID, send: make(chan []byte, clientBufferSize)}
}

func receive(t *testing.T, client *Client) services.Event {
	t.Helper()

	select {
	case payload, ok := <-client.send:
		if !ok {
			t.Fatalf("client %d channel closed", client.userID)
		}
		var event services.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatalf("client %d received nothing", client.userID)
	}
	return services.Event{}
}

func TestHubDeliversToRecipientsOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	client := newTestClient(hub, 1)
	counselor := newTestClient(hub, 2)
	stranger := newTestClient(hub, 3)
	for _, c := range []*Client{client, counselor, stranger} {
		if !hub.Register(c) {
			t.Fatalf("register failed")
		}
	}

	hub.Publish(services.Event{
		Type:          services.EventAppointmentBooked,
		AppointmentID: 7,
		Status:        "scheduled",
		ActorID:       1,
		Recipients:    []int64{1, 2, 2},
	})

	for _, c := range []*Client{client, counselor} {
		event := receive(t, c)
		if event.Type != services.EventAppointmentBooked || event.AppointmentID != 7 {
			t.Fatalf("unexpected event %+v", event)
		}
	}

	select {
	case payload := <-stranger.send:
		t.Fatalf("stranger received %s", payload)
	case payload := <-counselor.send:
		t.Fatalf("duplicate recipient received a second copy: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	client := newTestClient(hub, 5)
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("send channel was not closed")
	}
}

func TestHubStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("hub did not stop")
	}
	if hub.Register(newTestClient(hub, 1)) {
		t.Fatalf("register should fail after stop")
	}
	hub.Unregister(newTestClient(hub, 1))
}
