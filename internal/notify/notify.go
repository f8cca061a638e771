// Package notify publishes build events for other services to react to,
// such as cache purgers or deploy hooks.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// BuildCompleted is published once per build, successful or not.
type BuildCompleted struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Entries    int       `json:"entries"`
	Pages      int       `json:"pages"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// NewBuildCompleted describes a build that started at start and ended now.
func NewBuildCompleted(start time.Time, entries, pages int, err error) BuildCompleted {
	ev := BuildCompleted{
		ID:         uuid.NewString(),
		StartedAt:  start.UTC(),
		DurationMS: time.Since(start).Milliseconds(),
		Entries:    entries,
		Pages:      pages,
		Success:    err == nil,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// Publisher delivers build events.
type Publisher interface {
	Publish(ctx context.Context, ev BuildCompleted) error
	Close() error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, BuildCompleted) error { return nil }
func (Noop) Close() error                                  { return nil }

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// New connects to url, or returns Noop when url is empty.
func New(url, subject string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}

	conn, err := nats.Connect(url,
		nats.Name("sitebuilder"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher initialized", logfields.URL(url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish sends ev and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, ev BuildCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	slog.Debug("Published build event", logfields.BuildID(ev.ID), logfields.Event("build_completed"))
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
