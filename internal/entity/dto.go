package entity

import "time"

// IngestGenerationRequest 提交一次供应商生成响应进行持久化处理。
type IngestGenerationRequest struct {
	ClientID string `json:"client_id,omitempty"` // 客户端ID，处理进度 SSE 推送使用

	Result GenerationResult `json:"result" binding:"required"`

	Prompt     string  `json:"prompt" binding:"required"`
	Parameters JSONMap `json:"parameters,omitempty"`
	Cost       float64 `json:"cost,omitempty"`
	FolderID   *uint   `json:"folder_id,omitempty"`

	// SkipDatabase 为 true 时只持久化文件，不写图库记录
	SkipDatabase bool `json:"skip_database,omitempty"`
}

// ImageEntry is one asset entry in an ingest response. Temporary entries
// point at the original provider URL and are not part of the persisted
// gallery; the UI should warn that they will expire.
type ImageEntry struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Temporary bool   `json:"temporary"`
	Error     string `json:"error,omitempty"`
}

// IngestGenerationResponse is the caller-facing outcome of processing one
// provider response. Success mirrors the provider outcome: persistence
// failures degrade the entries but never fail the request.
type IngestGenerationResponse struct {
	Success bool         `json:"success"`
	Stored  bool         `json:"stored"`
	Partial bool         `json:"partial"`
	Images  []ImageEntry `json:"images"`
	Errors  []string     `json:"errors,omitempty"`
}

// ImageQuery 图库查询参数。
type ImageQuery struct {
	BaseParams
	Model        string `json:"model" form:"model" query:"model"`
	FavoriteOnly bool   `json:"favorite_only" form:"favorite_only" query:"favorite_only"`
	FolderID     *uint  `json:"folder_id" form:"folder_id" query:"folder_id"`
	UserID       uint   `json:"-" form:"-" query:"-"`
}

// ImageItem 图库列表项。
type ImageItem struct {
	ID             uint      `json:"id"`
	OriginalPrompt string    `json:"original_prompt"`
	Model          string    `json:"model"`
	FilePath       string    `json:"file_path"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	FileSize       int64     `json:"file_size"`
	Cost           *float64  `json:"cost"`
	GenerationTime float64   `json:"generation_time"`
	Tags           []string  `json:"tags"`
	IsFavorite     bool      `json:"is_favorite"`
	FolderID       *uint     `json:"folder_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// ImageListResponse 图库分页响应。
type ImageListResponse struct {
	Images []ImageItem `json:"images"`
	Meta   *Meta       `json:"meta"`
}

// ImageUpdates 图片更新字段。
type ImageUpdates struct {
	IsFavorite *bool
	Tags       *StringArray
	FolderID   *uint
}

// ToMap 转换为 GORM 更新 map（内部使用）。
func (u ImageUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.IsFavorite != nil {
		updates["is_favorite"] = *u.IsFavorite
	}
	if u.Tags != nil {
		updates["tags"] = *u.Tags
	}
	if u.FolderID != nil {
		updates["folder_id"] = *u.FolderID
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段。
func (u ImageUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// PromptQuery 提示词查询参数。
type PromptQuery struct {
	BaseParams
	Keyword string `json:"keyword" form:"keyword" query:"keyword"`
	UserID  uint   `json:"-" form:"-" query:"-"`
}

// PromptItem 提示词列表项。
type PromptItem struct {
	ID                uint       `json:"id"`
	Content           string     `json:"content"`
	Model             string     `json:"model"`
	UsageCount        int64      `json:"usage_count"`
	SuccessCount      int64      `json:"success_count"`
	AvgCost           float64    `json:"avg_cost"`
	AvgGenerationTime float64    `json:"avg_generation_time"`
	LastUsedAt        *time.Time `json:"last_used_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

// PromptListResponse 提示词分页响应。
type PromptListResponse struct {
	Prompts []PromptItem `json:"prompts"`
	Meta    *Meta        `json:"meta"`
}

// PromptAttempt 记录一次生成尝试的聚合输入。
type PromptAttempt struct {
	Succeeded      bool
	Cost           float64
	GenerationTime float64
}
