package notifications

import (
	"context"
	"strings"
	"time"

	"vidredact/internal/config"
)

const userAgent = "vidredact/0.1.0"

// Recipient is the person to email once an order completes.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Client defines the callback surface used by the workflow.
type Client interface {
	// Preflight reports whether the order should still be processed.
	Preflight(ctx context.Context, workID string) (bool, error)
	// Complete tells the upstream the order is done. A nil recipient means
	// nobody asked to be notified.
	Complete(ctx context.Context, workID string) (*Recipient, error)
	SendEmail(ctx context.Context, recipient Recipient) error
}

// NewClient builds an HTTP callback client when a base URL is configured and a
// no-op client otherwise.
func NewClient(cfg *config.Config) Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.Callbacks.BaseURL), "/")
	if base == "" {
		return Noop{}
	}
	timeout := cfg.CallbackTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewHTTPClient(base, timeout)
}

// Noop proceeds with every order and never reports a recipient.
type Noop struct{}

func (Noop) Preflight(context.Context, string) (bool, error)      { return true, nil }
func (Noop) Complete(context.Context, string) (*Recipient, error) { return nil, nil }
func (Noop) SendEmail(context.Context, Recipient) error           { return nil }
