package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/profile-editor/internal/domain/editor"
	"github.com/khoahotran/profile-editor/pkg/apperror"
)

type redisDraftRepo struct {
	rdb redis.Cmdable
}

func NewRedisDraftRepo(rdb redis.Cmdable) editor.DraftRepository {
	return &redisDraftRepo{rdb: rdb}
}

func draftKey(sessionID string) string { return "editor:draft:" + sessionID }

func (r *redisDraftRepo) Save(ctx context.Context, d *editor.Draft, ttl time.Duration) error {
	b, err := json.Marshal(d)
	if err != nil {
		return apperror.NewInternal("failed to marshal draft", err)
	}
	if err := r.rdb.Set(ctx, draftKey(d.SessionID), b, ttl).Err(); err != nil {
		return apperror.NewInternal("failed to store draft in redis", err)
	}
	return nil
}

func (r *redisDraftRepo) Load(ctx context.Context, sessionID string) (*editor.Draft, error) {
	b, err := r.rdb.Get(ctx, draftKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperror.NewNotFound("draft", sessionID)
		}
		return nil, apperror.NewInternal("failed to read draft from redis", err)
	}
	var d editor.Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, apperror.NewInternal("failed to unmarshal draft", err)
	}
	return &d, nil
}

func (r *redisDraftRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, draftKey(sessionID)).Err(); err != nil {
		return apperror.NewInternal("failed to delete draft from redis", err)
	}
	return nil
}
