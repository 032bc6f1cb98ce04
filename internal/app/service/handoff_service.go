package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/repository"
	"github.com/stylhelpr/stylhelpr-backend/pkg/logger"
)

var ErrHandoffEmpty = errors.New("no pending handoff")

// HandoffService passes a one-shot prompt between screens of the same user.
type HandoffService interface {
	Put(ctx context.Context, userID string, req *model.PutHandoffRequest) (*model.Handoff, error)
	Take(ctx context.Context, userID string) (*model.Handoff, error)
}

type handoffService struct {
	store repository.HandoffStore
	ttl   time.Duration
	now   func() time.Time
}

func NewHandoffService(store repository.HandoffStore, ttl time.Duration) HandoffService {
	return &handoffService{store: store, ttl: ttl, now: time.Now}
}

func (s *handoffService) Put(ctx context.Context, userID string, req *model.PutHandoffRequest) (*model.Handoff, error) {
	now := s.now().UTC()
	handoff := &model.Handoff{
		UserID:    userID,
		Prompt:    strings.TrimSpace(req.Prompt),
		Source:    req.Source,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Put(ctx, handoff, s.ttl); err != nil {
		return nil, err
	}

	logger.Info("Handoff stored", map[string]interface{}{
		"user_id": userID,
		"source":  req.Source,
	})
	return handoff, nil
}

func (s *handoffService) Take(ctx context.Context, userID string) (*model.Handoff, error) {
	handoff, err := s.store.Take(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrHandoffNotFound) {
			return nil, ErrHandoffEmpty
		}
		return nil, err
	}

	logger.Info("Handoff taken", map[string]interface{}{
		"user_id": userID,
		"age_ms":  s.now().Sub(handoff.CreatedAt).Milliseconds(),
	})
	return handoff, nil
}
