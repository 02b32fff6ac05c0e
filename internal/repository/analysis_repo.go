package repository

import (
	"context"
	"errors"

	"github.com/nutriscan-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrAnalysisNotFound  = errors.New("analysis not found")
	ErrFoodImageNotFound = errors.New("food image not found")
)

// ListOptions carries validated sorting and paging parameters.
// SortColumn must come from the handler-level whitelist; it is
// interpolated into the ORDER BY clause.
type ListOptions struct {
	SortColumn string
	SortOrder  string
	Offset     int
	Limit      int
}

// AnalysisRepository handles analysis and food image data access
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new AnalysisRepository
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// CreateWithImage inserts the food image and its analysis in one
// transaction. The analysis gets its FoodImageID from the freshly
// inserted image; either both rows exist afterwards or neither does.
func (r *AnalysisRepository) CreateWithImage(ctx context.Context, img *models.FoodImage, analysis *models.Analysis) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(img).Error; err != nil {
			return err
		}
		analysis.FoodImageID = img.ID
		return tx.Create(analysis).Error
	})
}

// DeleteWithImage removes an analysis and its linked food image in one
// transaction, scoped to the owning user. It returns the deleted food
// image so the caller can remove the backing blob after commit.
func (r *AnalysisRepository) DeleteWithImage(ctx context.Context, analysisID, userID uint) (*models.FoodImage, error) {
	var img models.FoodImage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var analysis models.Analysis
		if err := tx.Where("id = ? AND user_id = ?", analysisID, userID).First(&analysis).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAnalysisNotFound
			}
			return err
		}
		if err := tx.Delete(&models.Analysis{}, analysis.ID).Error; err != nil {
			return err
		}
		if err := tx.First(&img, analysis.FoodImageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFoodImageNotFound
			}
			return err
		}
		return tx.Delete(&models.FoodImage{}, img.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// CountByUser counts all analyses owned by a user
func (r *AnalysisRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Analysis{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

// ListByUser retrieves a sorted page of analyses with their food images
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID uint, opts ListOptions) ([]models.Analysis, error) {
	var analyses []models.Analysis
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(opts.SortColumn + " " + opts.SortOrder).
		Offset(opts.Offset).
		Limit(opts.Limit).
		Preload("FoodImage").
		Find(&analyses)
	return analyses, result.Error
}

// GetFoodImageByFileID retrieves a food image by its public file id,
// scoped to the owning user.
func (r *AnalysisRepository) GetFoodImageByFileID(ctx context.Context, fileID string, userID uint) (*models.FoodImage, error) {
	var img models.FoodImage
	result := r.db.WithContext(ctx).Where("file_id = ? AND user_id = ?", fileID, userID).First(&img)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFoodImageNotFound
		}
		return nil, result.Error
	}
	return &img, nil
}
