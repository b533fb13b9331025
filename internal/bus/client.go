// Package bus wraps the NATS connection the voice platform and downstream
// consumers share with this service.
package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects produced and consumed by the service.
const (
	SubjectUtterance     = "tami.session.utterance"
	SubjectClosing       = "tami.session.closing"
	SubjectPushBack      = "tami.session.pushback"
	SubjectLeadFinalized = "tami.lead.finalized"
	SubjectTelemetry     = "tami.telemetry.event"
)

// UtteranceEvent is one transcribed user utterance delivered by the voice
// platform, one per conversational turn.
type UtteranceEvent struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Strategy  string `json:"strategy,omitempty"`
	Persona   string `json:"persona,omitempty"`
}

// ClosingSignal tells the host application to steer the call toward ending.
type ClosingSignal struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// PushBackSuggestion carries a selected re-engagement line for the host to
// speak.
type PushBackSuggestion struct {
	SessionID string `json:"session_id"`
	VariantID string `json:"variant_id"`
	Response  string `json:"response"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
