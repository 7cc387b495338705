package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/khoahotran/profile-editor/internal/domain/editor"
	"github.com/khoahotran/profile-editor/pkg/apperror"
)

type memoryDraft struct {
	data      []byte
	expiresAt time.Time
}

// MemoryDraftRepo keeps drafts in process. Drafts are stored encoded so a
// loaded draft never aliases the saved one.
type MemoryDraftRepo struct {
	mu     sync.Mutex
	now    func() time.Time
	drafts map[string]memoryDraft
}

func NewMemoryDraftRepo() *MemoryDraftRepo {
	return &MemoryDraftRepo{now: time.Now, drafts: make(map[string]memoryDraft)}
}

func (r *MemoryDraftRepo) Save(_ context.Context, d *editor.Draft, ttl time.Duration) error {
	b, err := json.Marshal(d)
	if err != nil {
		return apperror.NewInternal("failed to marshal draft", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[d.SessionID] = memoryDraft{data: b, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *MemoryDraftRepo) Load(_ context.Context, sessionID string) (*editor.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.drafts[sessionID]
	if !ok || !r.now().Before(m.expiresAt) {
		delete(r.drafts, sessionID)
		return nil, apperror.NewNotFound("draft", sessionID)
	}
	var d editor.Draft
	if err := json.Unmarshal(m.data, &d); err != nil {
		return nil, apperror.NewInternal("failed to unmarshal draft", err)
	}
	return &d, nil
}

func (r *MemoryDraftRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, sessionID)
	return nil
}
