package events

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/amolsr/authmatrix-client/internal/client/session"
	"github.com/amolsr/authmatrix-client/internal/models"
)

func TestPublish_DeliversJSONPayload(t *testing.T) {
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := bus.Subscribe(ctx, "test.topic")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	p := NewWatermillPublisher(bus)
	if err := p.Publish("test.topic", map[string]string{"email": "a@b.com"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-msgs:
		var payload map[string]string
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["email"] != "a@b.com" {
			t.Errorf("payload = %+v", payload)
		}
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestStorePublishesLifecycleEvents(t *testing.T) {
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	authenticated, err := bus.Subscribe(ctx, session.TopicAuthenticated)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	cleared, err := bus.Subscribe(ctx, session.TopicCleared)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	store := session.New(nil, session.NewTokenFile(filepath.Join(t.TempDir(), "token.json")), zap.NewNop())
	store.SetEventPublisher(NewWatermillPublisher(bus))

	store.SetAuthenticated(models.UserProfile{Email: "a@b.com"}, "")

	select {
	case msg := <-authenticated:
		var ev session.AuthenticatedEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Email != "a@b.com" {
			t.Errorf("email = %q; want %q", ev.Email, "a@b.com")
		}
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no authenticated event received")
	}

	store.Clear()

	select {
	case msg := <-cleared:
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no cleared event received")
	}
}
