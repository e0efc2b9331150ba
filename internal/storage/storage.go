package storage

import (
	"context"

	"useropindexer/internal/model"
)

// Outcome reports what a Persist call did. A duplicate is a normal outcome,
// not an error: redelivery of an already-stored event is expected.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// EventSink durably records one event per (userOpHash, nonce). A returned
// error means the caller must not assume the write happened.
type EventSink interface {
	Persist(ctx context.Context, event model.UserOperationEvent) (Outcome, error)
}

// FailureLog records logs that failed to decode.
type FailureLog interface {
	Append(failure model.DecodeFailure) error
}
