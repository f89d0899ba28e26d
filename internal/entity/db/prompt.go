package db

import "time"

// Prompt 表示提示词分析侧信道的聚合记录。
//
// 同一用户内容相似度超过阈值的提示词会合并到一条记录，
// 只增加使用计数而不新增行。
type Prompt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"column:user_id;index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	Content string `gorm:"column:content;type:text;not null" json:"content"`
	Model   string `gorm:"column:model;type:varchar(255)" json:"model"`

	UsageCount   int64 `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	SuccessCount int64 `gorm:"column:success_count;not null;default:0" json:"success_count"`

	// 聚合平均值，不保存逐次明细
	AvgCost           float64 `gorm:"column:avg_cost" json:"avg_cost"`
	AvgGenerationTime float64 `gorm:"column:avg_generation_time" json:"avg_generation_time"`

	LastUsedAt *time.Time `gorm:"column:last_used_at" json:"last_used_at"`
}

// TableName 指定表名。
func (Prompt) TableName() string {
	return "prompts"
}
