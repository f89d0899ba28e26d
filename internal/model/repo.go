package model

import (
	"atelier/internal/entity"
	"context"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.DbUser) error
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error)
	CountUsers(ctx context.Context) (int64, error)

	// 图库记录
	CreateImages(ctx context.Context, images []*entity.DbImage) error
	ListImages(ctx context.Context, params *entity.ImageQuery) ([]entity.DbImage, *entity.Meta, error)
	GetImage(ctx context.Context, id uint) (*entity.DbImage, error)
	UpdateImage(ctx context.Context, id uint, updates entity.ImageUpdates) error
	DeleteImage(ctx context.Context, id uint) error
	AttachImagesToPrompt(ctx context.Context, promptID uint, imageIDs []uint) error

	// 提示词分析
	CreatePrompt(ctx context.Context, prompt *entity.DbPrompt) error
	ListPrompts(ctx context.Context, params *entity.PromptQuery) ([]entity.DbPrompt, *entity.Meta, error)
	ListPromptsByUser(ctx context.Context, userID uint) ([]entity.DbPrompt, error)
	GetPrompt(ctx context.Context, id uint) (*entity.DbPrompt, error)
	IncrementPromptUsage(ctx context.Context, id uint) error
	RecordPromptAttempt(ctx context.Context, id uint, attempt entity.PromptAttempt) error
}
