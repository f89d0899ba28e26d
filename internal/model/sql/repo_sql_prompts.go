package sql

import (
	"atelier/internal/entity"
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// CreatePrompt inserts a new aggregated prompt row.
func (r *GormRepository) CreatePrompt(ctx context.Context, prompt *entity.DbPrompt) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if prompt == nil {
		return fmt.Errorf("prompt is nil")
	}
	return r.db.WithContext(ctx).Create(prompt).Error
}

// ListPrompts retrieves paginated prompt rows for one user.
func (r *GormRepository) ListPrompts(ctx context.Context, params *entity.PromptQuery) ([]entity.DbPrompt, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbPrompt{})
	if params != nil {
		if params.UserID > 0 {
			query = query.Where("user_id = ?", params.UserID)
		}
		if trimmed := strings.TrimSpace(params.Keyword); trimmed != "" {
			query = query.Where("content LIKE ?", "%"+trimmed+"%")
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

	var prompts []entity.DbPrompt
	if err := query.Order("usage_count DESC, id DESC").Offset(offset).Limit(pageSize).Find(&prompts).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(totalCount, page, pageSize)
	return prompts, meta, nil
}

// ListPromptsByUser loads every prompt row belonging to a user. Used by
// the analytics recorder for similarity matching.
func (r *GormRepository) ListPromptsByUser(ctx context.Context, userID uint) ([]entity.DbPrompt, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	var prompts []entity.DbPrompt
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_used_at DESC, id DESC").
		Find(&prompts).Error; err != nil {
		return nil, err
	}
	return prompts, nil
}

// GetPrompt retrieves a single prompt row by ID.
func (r *GormRepository) GetPrompt(ctx context.Context, id uint) (*entity.DbPrompt, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid prompt id")
	}

	var prompt entity.DbPrompt
	if err := r.db.WithContext(ctx).First(&prompt, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load prompt: %w", err)
	}
	return &prompt, nil
}

// IncrementPromptUsage bumps the usage counter atomically.
func (r *GormRepository) IncrementPromptUsage(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid prompt id")
	}

	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&entity.DbPrompt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": now,
		}).Error
}

// RecordPromptAttempt folds one generation attempt into the aggregates.
// Averages only track successful attempts; the running average is updated
// against the pre-update success_count, so the statement orders the avg
// columns before the counter.
func (r *GormRepository) RecordPromptAttempt(ctx context.Context, id uint, attempt entity.PromptAttempt) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid prompt id")
	}

	now := time.Now().UTC()
	if !attempt.Succeeded {
		return r.db.WithContext(ctx).
			Model(&entity.DbPrompt{}).
			Where("id = ?", id).
			Update("updated_at", now).Error
	}

	return r.db.WithContext(ctx).Exec(
		`UPDATE prompts
		 SET avg_cost = (avg_cost * success_count + ?) / (success_count + 1),
		     avg_generation_time = (avg_generation_time * success_count + ?) / (success_count + 1),
		     success_count = success_count + 1,
		     updated_at = ?
		 WHERE id = ?`,
		attempt.Cost, attempt.GenerationTime, now, id,
	).Error
}
