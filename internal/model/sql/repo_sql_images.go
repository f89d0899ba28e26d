package sql

import (
	"atelier/internal/entity"
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// CreateImages inserts gallery records in a single batch. The insert is
// all-or-nothing: either every row gets an id or the whole batch fails.
func (r *GormRepository) CreateImages(ctx context.Context, images []*entity.DbImage) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if len(images) == 0 {
		return fmt.Errorf("no images provided")
	}
	return r.db.WithContext(ctx).Create(images).Error
}

// ListImages retrieves paginated gallery records for one user.
func (r *GormRepository) ListImages(ctx context.Context, params *entity.ImageQuery) ([]entity.DbImage, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbImage{})
	if params != nil {
		if params.UserID > 0 {
			query = query.Where("user_id = ?", params.UserID)
		}
		if trimmed := strings.TrimSpace(params.Model); trimmed != "" {
			query = query.Where("model = ?", trimmed)
		}
		if params.FavoriteOnly {
			query = query.Where("is_favorite = ?", true)
		}
		if params.FolderID != nil {
			query = query.Where("folder_id = ?", *params.FolderID)
		}
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, nil, err
	}

	page := 1
	pageSize := 20
	if params != nil {
		if params.Page > 0 {
			page = int(params.Page)
		}
		if params.PageSize > 0 {
			pageSize = int(params.PageSize)
		}
	}

	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	var images []entity.DbImage
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&images).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(totalCount, page, pageSize)
	return images, meta, nil
}

// GetImage retrieves a single gallery record by ID.
func (r *GormRepository) GetImage(ctx context.Context, id uint) (*entity.DbImage, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid image id")
	}

	var image entity.DbImage
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return &image, nil
}

// UpdateImage updates a gallery record with the provided fields.
func (r *GormRepository) UpdateImage(ctx context.Context, id uint, updates entity.ImageUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid image id")
	}
	if updates.IsEmpty() {
		return fmt.Errorf("no updates provided")
	}
	return r.db.WithContext(ctx).Model(&entity.DbImage{}).Where("id = ?", id).Updates(updates.ToMap()).Error
}

// DeleteImage removes a gallery record by ID.
func (r *GormRepository) DeleteImage(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid image id")
	}

	result := r.db.WithContext(ctx).Delete(&entity.DbImage{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AttachImagesToPrompt links persisted images to an aggregated prompt row.
func (r *GormRepository) AttachImagesToPrompt(ctx context.Context, promptID uint, imageIDs []uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if promptID == 0 {
		return fmt.Errorf("invalid prompt id")
	}
	if len(imageIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&entity.DbImage{}).
		Where("id IN ?", imageIDs).
		Update("prompt_id", promptID).Error
}
