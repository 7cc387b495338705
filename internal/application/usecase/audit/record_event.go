package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/adapters/event"
	"github.com/khoahotran/profile-editor/internal/domain/audit"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

var tracer = otel.Tracer("audit_usecase")

type RecordEventUseCase struct {
	repo   audit.Repository
	logger logger.Logger
}

func NewRecordEventUseCase(r audit.Repository, log logger.Logger) *RecordEventUseCase {
	return &RecordEventUseCase{repo: r, logger: log}
}

type RecordEventInput struct {
	// DeliveryKey identifies the message on the broker; the same key always
	// yields the same record id, so redelivery does not duplicate rows.
	DeliveryKey string
	Payload     event.EditorEventPayload
}

func (uc *RecordEventUseCase) Execute(ctx context.Context, input RecordEventInput) (*audit.Record, error) {
	ctx, span := tracer.Start(ctx, "Execute")
	defer span.End()

	p := input.Payload
	if p.EventType == "" || p.SessionID == "" {
		err := apperror.NewInvalidInput("editor event without type or session", nil)
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("event_type", string(p.EventType)),
		attribute.String("session_id", p.SessionID),
	)

	occurred := p.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	rec := &audit.Record{
		ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte("editor-event:"+input.DeliveryKey)),
		EventType:  string(p.EventType),
		SessionID:  p.SessionID,
		FullName:   p.FullName,
		Error:      p.Error,
		OccurredAt: occurred,
	}
	if err := uc.repo.Append(ctx, rec); err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info("Editor event recorded",
		zap.String("event_type", rec.EventType),
		zap.String("session_id", rec.SessionID),
		zap.String("record_id", rec.ID.String()),
	)
	return rec, nil
}

// RetryPolicy bounds how often a failed append is retried.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// ExecuteWithRetry runs Execute until it succeeds, fails with invalid input,
// or the attempts are used up. The wait doubles after each failure.
func (uc *RecordEventUseCase) ExecuteWithRetry(ctx context.Context, input RecordEventInput, policy RetryPolicy) (*audit.Record, error) {
	attempts := max(policy.Attempts, 1)
	wait := policy.Backoff
	for i := 1; ; i++ {
		rec, err := uc.Execute(ctx, input)
		if err == nil || errors.Is(err, apperror.ErrInvalidInput) || i >= attempts {
			return rec, err
		}
		uc.logger.Warn("Recording editor event failed, retrying",
			zap.Int("attempt", i),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}
