package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one editor event as kept in the audit trail.
type Record struct {
	ID         uuid.UUID `json:"id"`
	EventType  string    `json:"event_type"`
	SessionID  string    `json:"session_id"`
	FullName   string    `json:"full_name"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Repository interface {
	Append(ctx context.Context, r *Record) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*Record, error)
}
