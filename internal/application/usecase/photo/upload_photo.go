package photo

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/application/service"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const folder = "profile-editor/photos"

var tracer = otel.Tracer("photo_usecase")

// PhotoTarget receives the URL of an uploaded photo.
type PhotoTarget interface {
	SessionID() string
	SetPhotoURL(url string) error
}

type UploadPhotoUseCase struct {
	uploader service.Uploader
	logger   logger.Logger
	newID    func() string
}

func NewUploadPhotoUseCase(u service.Uploader, log logger.Logger) *UploadPhotoUseCase {
	return &UploadPhotoUseCase{
		uploader: u,
		logger:   log,
		newID:    func() string { return uuid.NewString() },
	}
}

// Execute uploads file and writes the resulting URL into the photo field of
// target. The asset is removed again if the field cannot take it.
func (uc *UploadPhotoUseCase) Execute(ctx context.Context, target PhotoTarget, file io.Reader) (string, error) {
	if uc.uploader == nil {
		return "", apperror.NewInvalidInput("photo upload is not configured", nil)
	}
	ctx, span := tracer.Start(ctx, "Execute")
	defer span.End()

	publicID := fmt.Sprintf("%s-%s", target.SessionID(), uc.newID())
	span.SetAttributes(attribute.String("public_id", publicID))

	url, err := uc.uploader.Upload(ctx, file, folder, publicID)
	if err != nil {
		err = apperror.NewUpstream("failed to upload photo", err)
		span.RecordError(err)
		return "", err
	}

	if err := target.SetPhotoURL(url); err != nil {
		span.RecordError(err)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if derr := uc.uploader.Delete(ctx, folder+"/"+publicID); derr != nil {
				uc.logger.Warn("Failed to delete orphaned photo", zap.String("public_id", publicID), zap.Error(derr))
			}
		}()
		return "", err
	}

	uc.logger.Info("Photo uploaded", zap.String("session_id", target.SessionID()), zap.String("url", url))
	return url, nil
}
