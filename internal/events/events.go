package events

import (
	"context"
	"log/slog"
	"time"
)

// Type identifies the kind of ledger occurrence being reported.
type Type string

const (
	// TypeTokenInitialized is emitted when a new token universe is created.
	TypeTokenInitialized Type = "token.initialized"
	// TypeTransfer is emitted for direct transfers between accounts.
	TypeTransfer Type = "token.transfer"
	// TypeApproval is emitted when an owner sets a spender allowance.
	TypeApproval Type = "token.approval"
	// TypeMint is emitted when supply is created into an account.
	TypeMint Type = "token.mint"
	// TypeBurn is emitted when supply is destroyed from an account.
	TypeBurn Type = "token.burn"
)

// Event describes one successful mutating ledger operation.
type Event struct {
	Type    Type      `json:"type"`
	Token   uint32    `json:"token"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	Spender string    `json:"spender,omitempty"`
	Amount  int64     `json:"amount"`
	At      time.Time `json:"at"`
}

// Sink receives ledger events after the mutation has been committed. The
// ledger publishes exactly once per successful operation and never on a
// failed one; delivery beyond that point is the sink's concern.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// LoggerSink writes events to the structured logger.
type LoggerSink struct {
	logger *slog.Logger
}

// NewLoggerSink constructs a logging sink.
func NewLoggerSink(logger *slog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// Publish writes the event to the structured logger.
func (s *LoggerSink) Publish(_ context.Context, event Event) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("ledger event",
		"type", string(event.Type),
		"token", event.Token,
		"from", event.From,
		"to", event.To,
		"spender", event.Spender,
		"amount", event.Amount,
	)
	return nil
}
