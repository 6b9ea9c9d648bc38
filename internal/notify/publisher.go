// Package notify announces finished descriptions on NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/visionvoice/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NatsPublisher publishes a core.DescriptionCreatedEvent for every description.
type NatsPublisher struct {
	natsConnection *nats.Conn
	subject        string
}

// NewNatsPublisher creates a publisher on subject.
func NewNatsPublisher(natsConnection *nats.Conn, subject string) *NatsPublisher {
	return &NatsPublisher{natsConnection: natsConnection, subject: subject}
}

// PublishDescription implements core.Publisher.
func (p *NatsPublisher) PublishDescription(_ context.Context, desc *core.Description) error {
	data, err := json.Marshal(NewDescriptionCreatedEvent(desc))
	if err != nil {
		return fmt.Errorf("failed to marshal description event: %w", err)
	}

	err = p.natsConnection.Publish(p.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish description event on %s: %w", p.subject, err)
	}

	return nil
}

// NewDescriptionCreatedEvent builds the event announcing desc.
func NewDescriptionCreatedEvent(desc *core.Description) *core.DescriptionCreatedEvent {
	return &core.DescriptionCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now().UTC(),
			WorkflowID: desc.ID,
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		AudioKey:    desc.AudioKey,
		AudioURL:    desc.AudioURL,
		Caption:     desc.Caption,
		Description: desc.Description,
		Hazard:      desc.Hazard,
	}
}

// NopPublisher drops every description. It is used when NATS is disabled.
type NopPublisher struct{}

// PublishDescription implements core.Publisher.
func (NopPublisher) PublishDescription(context.Context, *core.Description) error {
	return nil
}
