package db

import (
	"atelier/internal/entity/common"
	"time"
)

// Image 表示持久化的生成图片记录。
//
// FilePath 永远是本系统对象存储返回的持久 URL，绝不会是供应商的临时 URL。
type Image struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"column:user_id;index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	OriginalPrompt string `gorm:"column:original_prompt;type:text" json:"original_prompt"`
	Model          string `gorm:"column:model;type:varchar(255);index" json:"model"`

	Parameters common.JSONMap `gorm:"column:parameters;type:json" json:"parameters"`

	FilePath    string `gorm:"column:file_path;type:text;not null" json:"file_path"`
	Width       int    `gorm:"column:width" json:"width"`
	Height      int    `gorm:"column:height" json:"height"`
	FileSize    int64  `gorm:"column:file_size" json:"file_size"`
	ContentType string `gorm:"column:content_type;type:varchar(128)" json:"content_type"`

	Cost           *float64 `gorm:"column:cost" json:"cost"`
	GenerationTime float64  `gorm:"column:generation_time" json:"generation_time"`

	Tags       common.StringArray `gorm:"column:tags;type:json" json:"tags"`
	IsFavorite bool               `gorm:"column:is_favorite;not null;default:false" json:"is_favorite"`
	FolderID   *uint              `gorm:"column:folder_id;index" json:"folder_id"`

	PromptID *uint `gorm:"column:prompt_id;index" json:"prompt_id"`
}

// TableName 指定表名。
func (Image) TableName() string {
	return "images"
}
