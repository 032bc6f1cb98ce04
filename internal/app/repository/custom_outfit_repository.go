package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stylhelpr/stylhelpr-backend/pkg/logger"
	"gorm.io/gorm"
)

type CustomOutfitRepository interface {
	Create(ctx context.Context, outfit *model.CustomOutfit) error
	CreateBatch(ctx context.Context, outfits []model.CustomOutfit, batchSize int) error
	FindByID(ctx context.Context, id string) (*model.CustomOutfit, error)
	FindByUserID(ctx context.Context, userID string) ([]model.CustomOutfit, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, id string, patch []Assignment) (*model.CustomOutfit, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type customOutfitRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCustomOutfitRepository(db *gorm.DB) CustomOutfitRepository {
	return &customOutfitRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *customOutfitRepository) Create(ctx context.Context, outfit *model.CustomOutfit) error {
	logger.Debug("Creating custom outfit in database", map[string]interface{}{
		"user_id": outfit.UserID,
	})

	if err := r.db.WithContext(ctx).Create(outfit).Error; err != nil {
		logger.Error("Failed to create custom outfit in database", err, map[string]interface{}{
			"user_id": outfit.UserID,
		})
		return fmt.Errorf("insert custom outfit: %w", err)
	}

	logger.Debug("Custom outfit created in database", map[string]interface{}{
		"outfit_id": outfit.ID,
		"user_id":   outfit.UserID,
	})
	return nil
}

// CreateBatch inserts outfits in chunks of batchSize rows.
func (r *customOutfitRepository) CreateBatch(ctx context.Context, outfits []model.CustomOutfit, batchSize int) error {
	if len(outfits) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(outfits, batchSize).Error; err != nil {
		logger.Error("Failed to bulk insert custom outfits", err, map[string]interface{}{
			"count": len(outfits),
		})
		return fmt.Errorf("bulk insert custom outfits: %w", err)
	}
	return nil
}

func (r *customOutfitRepository) FindByID(ctx context.Context, id string) (*model.CustomOutfit, error) {
	var outfit model.CustomOutfit
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&outfit).Error; err != nil {
		return nil, err
	}
	return &outfit, nil
}

func (r *customOutfitRepository) FindByUserID(ctx context.Context, userID string) ([]model.CustomOutfit, error) {
	logger.Debug("Finding custom outfits by user", map[string]interface{}{
		"user_id": userID,
	})

	outfits := []model.CustomOutfit{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&outfits).Error
	if err != nil {
		logger.Error("Failed to find custom outfits by user", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("select custom outfits: %w", err)
	}

	logger.Debug("Custom outfits found", map[string]interface{}{
		"user_id": userID,
		"count":   len(outfits),
	})
	return outfits, nil
}

func (r *customOutfitRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CustomOutfit{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count custom outfits", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, fmt.Errorf("count custom outfits: %w", err)
	}
	return count, nil
}

// Update applies patch and returns the row as stored. gorm.ErrRecordNotFound
// is returned when no row has the given id.
func (r *customOutfitRepository) Update(ctx context.Context, id string, patch []Assignment) (*model.CustomOutfit, error) {
	ph := Placeholder(PostgresPlaceholder)
	if r.db.Dialector.Name() == "sqlite" {
		ph = SQLitePlaceholder
	}

	query, args, err := UpdateStatement(id, patch, r.now(), ph)
	if err != nil {
		return nil, err
	}

	logger.Debug("Updating custom outfit in database", map[string]interface{}{
		"outfit_id": id,
		"fields":    len(patch),
	})

	sqlDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	result, err := sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to update custom outfit in database", err, map[string]interface{}{
			"outfit_id": id,
		})
		return nil, fmt.Errorf("update custom outfit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update custom outfit: %w", err)
	}
	if affected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	outfit, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload custom outfit: %w", err)
	}

	logger.Debug("Custom outfit updated in database", map[string]interface{}{
		"outfit_id": outfit.ID,
	})
	return outfit, nil
}

// Delete removes the row and reports how many rows were affected.
func (r *customOutfitRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.CustomOutfit{})
	if result.Error != nil {
		logger.Error("Failed to delete custom outfit", result.Error, map[string]interface{}{
			"outfit_id": id,
		})
		return 0, fmt.Errorf("delete custom outfit: %w", result.Error)
	}

	logger.Debug("Custom outfit delete executed", map[string]interface{}{
		"outfit_id":     id,
		"rows_affected": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
