package api

import (
	"atelier/internal/entity"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ListImages 分页查询当前用户的图库。
func (h *HTTPHandler) ListImages(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var query entity.ImageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		InvalidPayload(c)
		return
	}
	query.UserID = requestUser.ID

	images, meta, err := h.repo.ListImages(c.Request.Context(), &query)
	if err != nil {
		logrus.WithError(err).Error("failed to list images")
		InternalError(c, "failed to load images")
		return
	}

	items := make([]entity.ImageItem, 0, len(images))
	for i := range images {
		items = append(items, h.makeImageItem(&images[i]))
	}

	c.JSON(http.StatusOK, entity.ImageListResponse{Images: items, Meta: meta})
}

// GetImage 查询单张图片详情。
func (h *HTTPHandler) GetImage(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	image, err := h.repo.GetImage(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRecordNotFound, "image not found")
			return
		}
		logrus.WithError(err).WithField("image_id", id).Error("failed to load image")
		InternalError(c, "failed to load image")
		return
	}
	if image.UserID != requestUser.ID && !requestUser.IsAdmin() {
		Forbidden(c, "image belongs to another user")
		return
	}

	c.JSON(http.StatusOK, h.makeImageItem(image))
}

// UpdateImage 更新图片的收藏、标签或目录归属。
func (h *HTTPHandler) UpdateImage(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var payload struct {
		IsFavorite *bool               `json:"is_favorite"`
		Tags       *entity.StringArray `json:"tags"`
		FolderID   *uint               `json:"folder_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		InvalidPayload(c)
		return
	}

	updates := entity.ImageUpdates{
		IsFavorite: payload.IsFavorite,
		Tags:       payload.Tags,
		FolderID:   payload.FolderID,
	}
	if updates.IsEmpty() {
		BadRequest(c, ErrCodeInvalidRequest, "no updatable fields in payload")
		return
	}

	ctx := c.Request.Context()
	image, err := h.repo.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRecordNotFound, "image not found")
			return
		}
		logrus.WithError(err).WithField("image_id", id).Error("failed to load image")
		InternalError(c, "failed to update image")
		return
	}
	if image.UserID != requestUser.ID && !requestUser.IsAdmin() {
		Forbidden(c, "image belongs to another user")
		return
	}

	if err := h.repo.UpdateImage(ctx, id, updates); err != nil {
		logrus.WithError(err).WithField("image_id", id).Error("failed to update image")
		InternalError(c, "failed to update image")
		return
	}

	updated, err := h.repo.GetImage(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("image_id", id).Error("failed to reload image")
		InternalError(c, "failed to load updated image")
		return
	}
	c.JSON(http.StatusOK, h.makeImageItem(updated))
}

// DeleteImage 删除图库记录（不回收已落盘的对象）。
func (h *HTTPHandler) DeleteImage(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	image, err := h.repo.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRecordNotFound, "image not found")
			return
		}
		logrus.WithError(err).WithField("image_id", id).Error("failed to load image")
		InternalError(c, "failed to delete image")
		return
	}
	if image.UserID != requestUser.ID && !requestUser.IsAdmin() {
		Forbidden(c, "image belongs to another user")
		return
	}

	if err := h.repo.DeleteImage(ctx, id); err != nil {
		logrus.WithError(err).WithField("image_id", id).Error("failed to delete image")
		InternalError(c, "failed to delete image")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *HTTPHandler) makeImageItem(image *entity.DbImage) entity.ImageItem {
	return entity.ImageItem{
		ID:             image.ID,
		OriginalPrompt: image.OriginalPrompt,
		Model:          image.Model,
		FilePath:       h.publicURL(image.FilePath),
		Width:          image.Width,
		Height:         image.Height,
		FileSize:       image.FileSize,
		Cost:           image.Cost,
		GenerationTime: image.GenerationTime,
		Tags:           image.Tags,
		IsFavorite:     image.IsFavorite,
		FolderID:       image.FolderID,
		CreatedAt:      image.CreatedAt,
	}
}

func parseIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "invalid id")
		return 0, false
	}
	return uint(value), true
}
