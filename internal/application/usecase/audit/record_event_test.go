package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-editor/adapters/event"
	"github.com/khoahotran/profile-editor/internal/domain/audit"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

type memoryAuditRepo struct {
	records []*audit.Record
	err     error

	// transient fails the next failures appends.
	transient error
	failures  int
	calls     int
}

func (r *memoryAuditRepo) Append(_ context.Context, rec *audit.Record) error {
	r.calls++
	if r.failures > 0 {
		r.failures--
		return r.transient
	}
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *memoryAuditRepo) ListBySession(context.Context, string, int) ([]*audit.Record, error) {
	return r.records, nil
}

func TestRecordEvent(t *testing.T) {
	repo := &memoryAuditRepo{}
	uc := NewRecordEventUseCase(repo, logger.NewNopLogger())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	input := RecordEventInput{
		DeliveryKey: "profile.editor.events/0/42",
		Payload: event.EditorEventPayload{
			EventType:  event.EditorEventSaveFailed,
			SessionID:  "s-1",
			FullName:   "A B",
			Error:      "conflict",
			OccurredAt: at,
		},
	}
	first, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	again, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID, "same delivery gives same id")
	assert.Equal(t, "profile.save_failed", first.EventType)
	assert.Equal(t, at, first.OccurredAt)
	assert.Len(t, repo.records, 2)

	input.DeliveryKey = "profile.editor.events/0/43"
	other, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestRecordEvent_Invalid(t *testing.T) {
	uc := NewRecordEventUseCase(&memoryAuditRepo{}, logger.NewNopLogger())

	_, err := uc.Execute(context.Background(), RecordEventInput{Payload: event.EditorEventPayload{SessionID: "s"}})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestRecordEvent_RepoError(t *testing.T) {
	boom := apperror.NewInternal("db down", errors.New("boom"))
	uc := NewRecordEventUseCase(&memoryAuditRepo{err: boom}, logger.NewNopLogger())

	_, err := uc.Execute(context.Background(), RecordEventInput{Payload: event.EditorEventPayload{EventType: event.EditorEventSaved, SessionID: "s"}})
	assert.ErrorIs(t, err, apperror.ErrInternal)
}

func TestRecordEvent_RetryRecoversTransientFailure(t *testing.T) {
	repo := &memoryAuditRepo{transient: apperror.NewInternal("db down", errors.New("boom")), failures: 2}
	uc := NewRecordEventUseCase(repo, logger.NewNopLogger())

	input := RecordEventInput{DeliveryKey: "t/0/1", Payload: event.EditorEventPayload{EventType: event.EditorEventSaved, SessionID: "s"}}
	rec, err := uc.ExecuteWithRetry(context.Background(), input, RetryPolicy{Attempts: 3, Backoff: time.Millisecond})
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.Equal(t, 3, repo.calls)
	assert.Len(t, repo.records, 1)
}

func TestRecordEvent_RetryGivesUp(t *testing.T) {
	repo := &memoryAuditRepo{err: apperror.NewInternal("db down", errors.New("boom"))}
	uc := NewRecordEventUseCase(repo, logger.NewNopLogger())

	input := RecordEventInput{DeliveryKey: "t/0/2", Payload: event.EditorEventPayload{EventType: event.EditorEventSaved, SessionID: "s"}}
	_, err := uc.ExecuteWithRetry(context.Background(), input, RetryPolicy{Attempts: 3, Backoff: time.Millisecond})
	assert.ErrorIs(t, err, apperror.ErrInternal)
	assert.Equal(t, 3, repo.calls)
}

func TestRecordEvent_RetrySkipsInvalidInput(t *testing.T) {
	repo := &memoryAuditRepo{}
	uc := NewRecordEventUseCase(repo, logger.NewNopLogger())

	_, err := uc.ExecuteWithRetry(context.Background(), RecordEventInput{}, RetryPolicy{Attempts: 5, Backoff: time.Hour})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, 0, repo.calls)
}
