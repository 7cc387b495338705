package persistence

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/profile-editor/internal/domain/audit"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

type postgresAuditRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresAuditRepo(db *pgxpool.Pool, logger logger.Logger) audit.Repository {
	return &postgresAuditRepo{db: db, logger: logger}
}

func (r *postgresAuditRepo) Append(ctx context.Context, rec *audit.Record) error {
	query := `
		INSERT INTO editor_audit (id, event_type, session_id, full_name, error, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.EventType, rec.SessionID, rec.FullName, rec.Error, rec.OccurredAt,
	)
	if err != nil {
		return apperror.NewInternal("failed to append audit record", err)
	}
	return nil
}

func scanAuditRecords(rows pgx.Rows) ([]*audit.Record, error) {
	defer rows.Close()
	records := make([]*audit.Record, 0)
	for rows.Next() {
		rec := &audit.Record{}
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.SessionID, &rec.FullName, &rec.Error, &rec.OccurredAt); err != nil {
			return nil, apperror.NewInternal("failed to scan audit row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating audit rows", err)
	}
	return records, nil
}

func (r *postgresAuditRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*audit.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	sql, args, err := psql.Select("id, event_type, session_id, full_name, error, occurred_at").
		From("editor_audit").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("occurred_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list audit query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query audit records", err)
	}
	return scanAuditRecords(rows)
}
