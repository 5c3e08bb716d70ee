// Package notify publishes build events so other services can react to new
// site output.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

// Event describes one finished build.
type Event struct {
	BuildID    string    `json:"build_id"`
	Outcome    string    `json:"outcome"`
	DurationMS int64     `json:"duration_ms"`
	Pages      int       `json:"pages"`
	Statics    int       `json:"statics"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers build events.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Event) error { return nil }
func (NoopPublisher) Close() error                          { return nil }

// NATSPublisher publishes JSON events on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		return nil, foundationerrors.ConfigError("notify subject is required").Build()
	}
	conn, err := nats.Connect(url, nats.Name("sitepress"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).
			Retryable().
			Build()
	}
	slog.Info("NATS publisher connected", logfields.URL(url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, ev *Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published build event", logfields.BuildID(ev.BuildID), logfields.Outcome(ev.Outcome))
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
