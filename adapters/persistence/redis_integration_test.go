package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/khoahotran/profile-editor/internal/domain/editor"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
)

type RedisIntegrationTestSuite struct {
	suite.Suite
	rdb            *redis.Client
	redisContainer *tcredis.RedisContainer
	repo           editor.DraftRepository
}

func (s *RedisIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		s.T().Fatalf("Failed to start redis container: %s", err)
	}
	s.redisContainer = redisContainer

	uri, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		s.T().Fatalf("Failed to get connection string: %s", err)
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		s.T().Fatalf("Failed to parse redis url: %s", err)
	}
	s.rdb = redis.NewClient(opts)
	s.repo = NewRedisDraftRepo(s.rdb)
}

func (s *RedisIntegrationTestSuite) TearDownSuite() {
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.redisContainer != nil {
		if err := s.redisContainer.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate redis container: %s", err)
		}
	}
}

func TestRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	suite.Run(t, new(RedisIntegrationTestSuite))
}

func (s *RedisIntegrationTestSuite) Test_Draft_SaveLoadDelete() {
	ctx := context.Background()
	id := uuid.NewString()

	_, err := s.repo.Load(ctx, id)
	s.ErrorIs(err, apperror.ErrNotFound, "a missing key maps to not found")

	entryID := uuid.New()
	d := &editor.Draft{
		SessionID: id,
		Loaded:    &profile.Profile{FullName: "A B", Skills: []string{"x"}},
		Form: editor.Snapshot{
			Fields:   map[string]string{editor.FieldFullName: "A B edited"},
			Projects: []editor.EntrySnapshot{{ID: entryID, Project: profile.Project{Title: "t"}}},
		},
		SavedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.repo.Save(ctx, d, time.Hour))

	got, err := s.repo.Load(ctx, id)
	s.Require().NoError(err)
	s.Equal("A B", got.Loaded.FullName)
	s.Equal("A B edited", got.Form.Fields[editor.FieldFullName])
	s.Require().Len(got.Form.Projects, 1)
	s.Equal(entryID, got.Form.Projects[0].ID)

	ttl, err := s.rdb.TTL(ctx, draftKey(id)).Result()
	s.NoError(err)
	s.Greater(ttl, 59*time.Minute)

	s.NoError(s.repo.Delete(ctx, id))
	_, err = s.repo.Load(ctx, id)
	s.ErrorIs(err, apperror.ErrNotFound)
}

func (s *RedisIntegrationTestSuite) Test_Draft_ExpiresWithTTL() {
	ctx := context.Background()
	id := uuid.NewString()

	d := &editor.Draft{SessionID: id, Loaded: &profile.Profile{}, SavedAt: time.Now().UTC()}
	s.Require().NoError(s.repo.Save(ctx, d, 300*time.Millisecond))

	_, err := s.repo.Load(ctx, id)
	s.NoError(err)

	s.Eventually(func() bool {
		_, err := s.repo.Load(ctx, id)
		return err != nil
	}, 5*time.Second, 100*time.Millisecond)

	_, err = s.repo.Load(ctx, id)
	s.ErrorIs(err, apperror.ErrNotFound)
}

func (s *RedisIntegrationTestSuite) Test_Draft_CorruptValue() {
	ctx := context.Background()
	id := uuid.NewString()

	s.Require().NoError(s.rdb.Set(ctx, draftKey(id), "not json", time.Minute).Err())
	_, err := s.repo.Load(ctx, id)
	s.ErrorIs(err, apperror.ErrInternal)
}
