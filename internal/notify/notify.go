// Package notify publishes build and deploy events to NATS.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Event kinds.
const (
	KindBuild   = "build"
	KindDeploy  = "deploy"
	KindPublish = "publish"
)

// Event is one notification. It is published as JSON on <subject>.<kind>.
type Event struct {
	Kind    string            `json:"kind"`
	Site    string            `json:"site,omitempty"`
	BuildID string            `json:"build_id,omitempty"`
	Outcome string            `json:"outcome"`
	Summary string            `json:"summary,omitempty"`
	Time    time.Time         `json:"time"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards events. Used when no NATS URL is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

const publishTimeout = 5 * time.Second

// NATSPublisher publishes events on a NATS connection.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// New returns a NATS publisher for cfg, or Noop when cfg has no URL.
func New(cfg config.NotifyConfig, logger *slog.Logger) (Publisher, error) {
	if cfg.URL == "" {
		return Noop{}, nil
	}
	return NewNATSPublisher(cfg.URL, cfg.Subject, logger)
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("sitebuilder"),
		nats.Timeout(2*time.Second),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotify, "connect to NATS").
			Warning().WithContext("url", url).Build()
	}
	logger.Debug("NATS publisher connected", logfields.URL(url), "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}, nil
}

// Subject returns the subject e is published on.
func (p *NATSPublisher) Subject(e Event) string {
	return p.subject + "." + e.Kind
}

// Publish sends e and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNotify, "marshal event").Warning().Build()
	}
	subject := p.Subject(e)
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryNotify, "publish event").
			Warning().Retryable().WithContext("subject", subject).Build()
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryNotify, "flush event").
			Warning().Retryable().WithContext("subject", subject).Build()
	}
	p.logger.Debug("Published event", "subject", subject, logfields.Outcome(e.Outcome))
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
