package api

import (
	"atelier/internal/entity"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ListPrompts 分页查询当前用户的提示词统计，按使用次数排序。
func (h *HTTPHandler) ListPrompts(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var query entity.PromptQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		InvalidPayload(c)
		return
	}
	query.UserID = requestUser.ID

	prompts, meta, err := h.repo.ListPrompts(c.Request.Context(), &query)
	if err != nil {
		logrus.WithError(err).Error("failed to list prompts")
		InternalError(c, "failed to load prompts")
		return
	}

	items := make([]entity.PromptItem, 0, len(prompts))
	for i := range prompts {
		items = append(items, makePromptItem(&prompts[i]))
	}

	c.JSON(http.StatusOK, entity.PromptListResponse{Prompts: items, Meta: meta})
}

// GetPrompt 查询单条提示词统计详情。
func (h *HTTPHandler) GetPrompt(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	prompt, err := h.repo.GetPrompt(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRecordNotFound, "prompt not found")
			return
		}
		logrus.WithError(err).WithField("prompt_id", id).Error("failed to load prompt")
		InternalError(c, "failed to load prompt")
		return
	}
	if prompt.UserID != requestUser.ID && !requestUser.IsAdmin() {
		Forbidden(c, "prompt belongs to another user")
		return
	}

	c.JSON(http.StatusOK, makePromptItem(prompt))
}

func makePromptItem(prompt *entity.DbPrompt) entity.PromptItem {
	return entity.PromptItem{
		ID:                prompt.ID,
		Content:           prompt.Content,
		Model:             prompt.Model,
		UsageCount:        prompt.UsageCount,
		SuccessCount:      prompt.SuccessCount,
		AvgCost:           prompt.AvgCost,
		AvgGenerationTime: prompt.AvgGenerationTime,
		LastUsedAt:        prompt.LastUsedAt,
		CreatedAt:         prompt.CreatedAt,
	}
}
