// Package events adapts the session store's lifecycle notifications onto a
// watermill pub/sub, so any surface in the process can react to logins and
// session deaths without holding a reference to the store.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// WatermillPublisher implements session.Publisher on top of a watermill
// message publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps pub. Pass a gochannel pub/sub for in-process
// delivery.
func NewWatermillPublisher(pub message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: pub}
}

// Publish JSON-encodes payload and publishes it to topic.
func (p *WatermillPublisher) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
