package editor

import (
	"context"
	"time"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
)

// Draft is what survives a process restart for one editor session: the
// baseline profile used by reset and the in-progress form.
type Draft struct {
	SessionID string           `json:"session_id"`
	Loaded    *profile.Profile `json:"loaded"`
	Form      Snapshot         `json:"form"`
	SavedAt   time.Time        `json:"saved_at"`
}

// DraftRepository returns an apperror not-found error from Load when no
// draft exists for the session.
type DraftRepository interface {
	Save(ctx context.Context, d *Draft, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (*Draft, error)
	Delete(ctx context.Context, sessionID string) error
}
