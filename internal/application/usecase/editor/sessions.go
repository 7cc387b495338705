package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/adapters/event"
	"github.com/khoahotran/profile-editor/internal/domain/editor"
	"github.com/khoahotran/profile-editor/internal/domain/notification"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
	"github.com/khoahotran/profile-editor/pkg/metrics"
)

type SessionsConfig struct {
	DraftTTL        time.Duration
	NotificationTTL time.Duration
	UpstreamTimeout time.Duration
}

// Sessions holds one live Controller per browser session and mirrors their
// drafts into a DraftRepository.
type Sessions struct {
	mu   sync.Mutex
	live map[string]*Controller

	drafts    editor.DraftRepository
	gateway   profile.Gateway
	publisher event.Publisher
	cfg       SessionsConfig
	logger    logger.Logger
}

func NewSessions(drafts editor.DraftRepository, gw profile.Gateway, pub event.Publisher, cfg SessionsConfig, log logger.Logger) *Sessions {
	return &Sessions{
		live:      make(map[string]*Controller),
		drafts:    drafts,
		gateway:   gw,
		publisher: pub,
		cfg:       cfg,
		logger:    log,
	}
}

// Get returns the controller for id, restoring a stored draft when the
// session is not held in memory. The draft is read without holding the
// registry lock; if another request registered the session meanwhile, its
// controller wins.
func (s *Sessions) Get(ctx context.Context, id string) (*Controller, error) {
	s.mu.Lock()
	c, ok := s.live[id]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	c = NewController(id, s.gateway, s.publisher, notification.NewNotifier(s.cfg.NotificationTTL), s.cfg.UpstreamTimeout, s.logger)

	d, err := s.drafts.Load(ctx, id)
	restored := false
	switch {
	case err == nil:
		c.Restore(d)
		restored = true
	case errors.Is(err, apperror.ErrNotFound):
	default:
		s.logger.Warn("Failed to load editor draft, starting fresh", zap.String("session_id", id), zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.live[id]; ok {
		return existing, nil
	}
	s.live[id] = c
	metrics.LiveSessions.Set(float64(len(s.live)))
	if restored {
		s.logger.Info("Restored editor draft", zap.String("session_id", id))
	}
	return c, nil
}

// Save persists the current draft of a live session. Sessions that were never
// loaded have nothing to save.
func (s *Sessions) Save(ctx context.Context, id string) error {
	s.mu.Lock()
	c, ok := s.live[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	d := c.Draft()
	if d == nil {
		return nil
	}
	if err := s.drafts.Save(ctx, d, s.cfg.DraftTTL); err != nil {
		return apperror.NewInternal("failed to save editor draft", err)
	}
	return nil
}

func (s *Sessions) Drop(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.live, id)
	metrics.LiveSessions.Set(float64(len(s.live)))
	s.mu.Unlock()
	return s.drafts.Delete(ctx, id)
}

// Sweep evicts controllers idle for longer than the draft TTL. Their drafts
// stay in the repository until it expires them.
func (s *Sessions) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, c := range s.live {
		if now.Sub(c.LastSeen()) > s.cfg.DraftTTL {
			delete(s.live, id)
			evicted++
		}
	}
	metrics.LiveSessions.Set(float64(len(s.live)))
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				s.logger.Info("Evicted idle editor sessions", zap.Int("count", n))
			}
		}
	}
}
