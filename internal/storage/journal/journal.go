// Package journal records the events emitted by applied operations. It is
// the audit trail of records that no longer exist in the ledger.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by a sink used after Close
var ErrClosed = errors.New("journal: sink closed")

// Event is one fact emitted by an operation
type Event struct {
	ID         uuid.UUID      `json:"id"`
	TxHash     string         `json:"tx_hash"`
	Type       string         `json:"type"`
	Record     string         `json:"record"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Time       time.Time      `json:"time"`
}

// NewEvent creates an event with a fresh id.
func NewEvent(txHash, eventType, record string, attrs map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		TxHash:     txHash,
		Type:       eventType,
		Record:     record,
		Attributes: attrs,
		Time:       time.Now().UTC(),
	}
}

//go:generate mockgen -source=journal.go -destination=mock_journal/mock_sink.go

// Sink stores events
type Sink interface {
	// Publish stores events in order
	Publish(ctx context.Context, events []Event) error

	// List returns the events of a record in publish order
	List(ctx context.Context, record string) ([]Event, error)

	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, []Event) error { return nil }

func (Nop) List(context.Context, string) ([]Event, error) { return nil, nil }

func (Nop) Close() error { return nil }
