package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type natsPublisher struct {
	conn *nats.Conn
}

// NewNATS connects to a NATS server and returns a Publisher on it.
func NewNATS(url string) (Publisher, *nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("events: connect to nats: %w", err)
	}
	return &natsPublisher{conn: conn}, conn, nil
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, event OrderEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}
	return nil
}
