package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/domain/editor"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

type PostgresDraftRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresDraftRepo(db *pgxpool.Pool, logger logger.Logger) *PostgresDraftRepo {
	return &PostgresDraftRepo{db: db, logger: logger}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *PostgresDraftRepo) Save(ctx context.Context, d *editor.Draft, ttl time.Duration) error {
	draftBytes, err := json.Marshal(d)
	if err != nil {
		return apperror.NewInternal("failed to marshal draft", err)
	}

	sql, args, err := psql.Insert("editor_drafts").
		Columns("session_id", "draft", "saved_at", "expires_at").
		Values(d.SessionID, draftBytes, d.SavedAt, d.SavedAt.Add(ttl)).
		Suffix(`ON CONFLICT (session_id) DO UPDATE SET
			draft = EXCLUDED.draft,
			saved_at = EXCLUDED.saved_at,
			expires_at = EXCLUDED.expires_at`).
		ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build upsert draft query", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return apperror.NewInternal("failed to upsert draft", err)
	}
	return nil
}

func (r *PostgresDraftRepo) Load(ctx context.Context, sessionID string) (*editor.Draft, error) {
	sql, args, err := psql.Select("draft").
		From("editor_drafts").
		Where(sq.Eq{"session_id": sessionID}).
		Where(sq.Expr("expires_at > NOW()")).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build load draft query", err)
	}

	var draftBytes []byte
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&draftBytes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("draft", sessionID)
		}
		return nil, apperror.NewInternal("failed to query draft", err)
	}

	var d editor.Draft
	if err := json.Unmarshal(draftBytes, &d); err != nil {
		r.logger.Warn("Failed to unmarshal draft, discarding", zap.String("session_id", sessionID), zap.Error(err))
		return nil, apperror.NewNotFound("draft", sessionID)
	}
	return &d, nil
}

func (r *PostgresDraftRepo) Delete(ctx context.Context, sessionID string) error {
	sql, args, err := psql.Delete("editor_drafts").Where(sq.Eq{"session_id": sessionID}).ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build delete draft query", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return apperror.NewInternal("failed to delete draft", err)
	}
	return nil
}

// PurgeExpired removes drafts past their expiry and reports how many.
func (r *PostgresDraftRepo) PurgeExpired(ctx context.Context) (int64, error) {
	sql, args, err := psql.Delete("editor_drafts").Where(sq.Expr("expires_at <= NOW()")).ToSql()
	if err != nil {
		return 0, apperror.NewInternal("failed to build purge drafts query", err)
	}
	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, apperror.NewInternal("failed to purge drafts", err)
	}
	return cmdTag.RowsAffected(), nil
}
