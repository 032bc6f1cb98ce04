package service

import (
	"context"
	"errors"

	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/repository"
	"github.com/stylhelpr/stylhelpr-backend/internal/websocket"
	"github.com/stylhelpr/stylhelpr-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCustomOutfitNotFound = errors.New("custom outfit not found")
	ErrEmptyPatch           = repository.ErrEmptyPatch
	ErrForbiddenOutfit      = errors.New("custom outfit belongs to another user")
)

// OutfitEventPublisher receives outfit lifecycle events. *websocket.Hub
// implements it.
type OutfitEventPublisher interface {
	PublishOutfitEvent(userID, eventType string, outfit *model.CustomOutfit)
}

type noopPublisher struct{}

func (noopPublisher) PublishOutfitEvent(string, string, *model.CustomOutfit) {}

// CustomOutfitService manages saved outfits. actorID is the authenticated
// caller; an empty actorID skips ownership checks.
type CustomOutfitService interface {
	Create(ctx context.Context, req *model.CreateCustomOutfitRequest) (*model.CustomOutfit, error)
	Get(ctx context.Context, id string) (*model.CustomOutfit, error)
	GetByUser(ctx context.Context, userID string) ([]model.CustomOutfit, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, actorID, id string, req *model.UpdateCustomOutfitRequest) (*model.CustomOutfit, error)
	Delete(ctx context.Context, actorID, id string) error
}

type customOutfitService struct {
	repo      repository.CustomOutfitRepository
	publisher OutfitEventPublisher
}

func NewCustomOutfitService(repo repository.CustomOutfitRepository, publisher ...OutfitEventPublisher) CustomOutfitService {
	var p OutfitEventPublisher = noopPublisher{}
	if len(publisher) > 0 && publisher[0] != nil {
		p = publisher[0]
	}
	return &customOutfitService{repo: repo, publisher: p}
}

func (s *customOutfitService) Create(ctx context.Context, req *model.CreateCustomOutfitRequest) (*model.CustomOutfit, error) {
	outfit := req.ToModel()

	logger.Info("Creating custom outfit", map[string]interface{}{
		"user_id": outfit.UserID,
	})

	if err := s.repo.Create(ctx, outfit); err != nil {
		return nil, err
	}

	s.publisher.PublishOutfitEvent(outfit.UserID, websocket.EventOutfitCreated, outfit)

	logger.Info("Custom outfit created", map[string]interface{}{
		"outfit_id": outfit.ID,
		"user_id":   outfit.UserID,
	})
	return outfit, nil
}

func (s *customOutfitService) Get(ctx context.Context, id string) (*model.CustomOutfit, error) {
	outfit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomOutfitNotFound
		}
		logger.Error("Failed to fetch custom outfit", err, map[string]interface{}{
			"outfit_id": id,
		})
		return nil, err
	}
	return outfit, nil
}

func (s *customOutfitService) GetByUser(ctx context.Context, userID string) ([]model.CustomOutfit, error) {
	outfits, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	logger.Info("Custom outfits fetched", map[string]interface{}{
		"user_id": userID,
		"count":   len(outfits),
	})
	return outfits, nil
}

func (s *customOutfitService) CountByUser(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountByUserID(ctx, userID)
}

func (s *customOutfitService) Update(ctx context.Context, actorID, id string, req *model.UpdateCustomOutfitRequest) (*model.CustomOutfit, error) {
	patch := repository.BuildOutfitPatch(req)
	if len(patch) == 0 {
		logger.Warn("Rejected custom outfit update without fields", map[string]interface{}{
			"outfit_id": id,
		})
		return nil, ErrEmptyPatch
	}

	if actorID != "" {
		if _, err := s.authorize(ctx, actorID, id); err != nil {
			return nil, err
		}
	}

	logger.Info("Updating custom outfit", map[string]interface{}{
		"outfit_id": id,
		"fields":    len(patch),
	})

	outfit, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Custom outfit to update not found", map[string]interface{}{
				"outfit_id": id,
			})
			return nil, ErrCustomOutfitNotFound
		}
		return nil, err
	}

	s.publisher.PublishOutfitEvent(outfit.UserID, websocket.EventOutfitUpdated, outfit)

	logger.Info("Custom outfit updated", map[string]interface{}{
		"outfit_id": outfit.ID,
	})
	return outfit, nil
}

// Delete succeeds whether or not the outfit exists.
func (s *customOutfitService) Delete(ctx context.Context, actorID, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to fetch custom outfit before delete", err, map[string]interface{}{
			"outfit_id": id,
		})
		return err
	}
	if existing != nil && actorID != "" && existing.UserID != actorID {
		logger.Warn("Custom outfit delete by non-owner", map[string]interface{}{
			"outfit_id": id,
			"actor_id":  actorID,
		})
		return ErrForbiddenOutfit
	}

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	logger.Info("Custom outfit deleted", map[string]interface{}{
		"outfit_id":     id,
		"rows_affected": affected,
	})

	if affected > 0 && existing != nil {
		s.publisher.PublishOutfitEvent(existing.UserID, websocket.EventOutfitDeleted, existing)
	}
	return nil
}

func (s *customOutfitService) authorize(ctx context.Context, actorID, id string) (*model.CustomOutfit, error) {
	outfit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if outfit.UserID != actorID {
		logger.Warn("Custom outfit access by non-owner", map[string]interface{}{
			"outfit_id": id,
			"actor_id":  actorID,
		})
		return nil, ErrForbiddenOutfit
	}
	return outfit, nil
}
