// Package events publishes job lifecycle transitions to NATS so other
// services (notifications, reporting) can react without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/fieldops/jobcard/internal/jobs"
)

const TransitionsSubject = "jobs.transitions"

// Publisher pushes transition events onto a NATS subject. It satisfies
// jobs.TransitionPublisher.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials the NATS server. An empty url falls back to the default.
func Connect(url string) (*Publisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{conn: conn}, nil
}

// PublishTransition emits one transition event.
func (p *Publisher) PublishTransition(_ context.Context, ev jobs.TransitionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal transition event: %w", err)
	}

	if err := p.conn.Publish(TransitionsSubject, data); err != nil {
		return fmt.Errorf("failed to publish transition event: %w", err)
	}

	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
