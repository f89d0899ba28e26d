package api

import (
	"atelier/internal/analytics"
	"atelier/internal/entity"
	"atelier/internal/pipeline"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IngestGeneration 接收一次供应商生成响应并持久化其输出。
//
// 持久化失败只降级不报错：对象存储不可用时返回临时的供应商 URL
// （temporary=true），数据库不可用时图片仍然落盘、记录 ID 为临时值。
func (h *HTTPHandler) IngestGeneration(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.IngestGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		MissingField(c, "prompt")
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)

	opts := pipeline.Options{
		UserID:          requestUser.ID,
		Prompt:          req.Prompt,
		Model:           req.Result.Model,
		Parameters:      req.Parameters,
		Cost:            req.Cost,
		FolderID:        req.FolderID,
		StoreInDatabase: !req.SkipDatabase,
	}
	if req.ClientID != "" {
		clientID := req.ClientID
		opts.Progress = func(update pipeline.ProgressUpdate) {
			h.publishSSEMessage(clientID, sseMessage{
				event: "generation_progress",
				data:  update,
			})
		}
	}

	result := h.processor.Process(c.Request.Context(), req.Result, opts)
	response := buildIngestResponse(result)

	// 失败与部分失败的尝试同样计入提示词统计
	if h.recorder != nil && !req.SkipDatabase {
		h.recorder.RecordGenerationAsync(buildGenerationRecord(requestUser.ID, req, result))
	}

	if req.ClientID != "" {
		h.publishSSEMessage(req.ClientID, sseMessage{
			event: "generation_completed",
			data: gin.H{
				"success": response.Success,
				"stored":  response.Stored,
				"partial": response.Partial,
			},
		})
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    requestUser.ID,
		"generation": req.Result.ID,
		"persisted":  len(result.Files),
		"failed":     len(result.Errors),
		"stored":     result.Stored,
	}).Info("generation response processed")

	c.JSON(http.StatusOK, response)
}

// buildGenerationRecord 组装分析侧信息。
// 只有全部文件都持久化成功才算一次成功的生成。
func buildGenerationRecord(userID uint, req entity.IngestGenerationRequest, result *pipeline.ProcessingResult) analytics.GenerationRecord {
	return analytics.GenerationRecord{
		UserID:         userID,
		Prompt:         req.Prompt,
		Model:          req.Result.Model,
		Cost:           req.Cost,
		GenerationTime: req.Result.PredictTime(),
		Succeeded:      result.Success && len(result.Errors) == 0,
		ImageIDs:       result.ImageIDs,
	}
}

// buildIngestResponse 把管线结果转为客户端响应，包含降级条目。
func buildIngestResponse(result *pipeline.ProcessingResult) entity.IngestGenerationResponse {
	response := entity.IngestGenerationResponse{
		Success: result.Success,
		Stored:  result.Stored,
		Partial: result.Partial(),
	}

	for i, file := range result.Files {
		entry := entity.ImageEntry{
			URL:    file.StoredURL,
			Width:  file.Width,
			Height: file.Height,
		}
		if result.Stored && i < len(result.ImageIDs) {
			entry.ID = fmt.Sprintf("%d", result.ImageIDs[i])
		} else {
			// 数据库不可用或未启用：文件已持久化，记录 ID 为临时值
			entry.ID = fmt.Sprintf("temp-%d", i+1)
		}
		response.Images = append(response.Images, entry)
	}

	if result.RecordError != nil {
		response.Errors = append(response.Errors, result.RecordError.Error())
	}

	for _, fileErr := range result.Errors {
		response.Errors = append(response.Errors, fileErr.Error())
		if fileErr.Index < 0 {
			continue
		}
		// 下载成功但持久化失败：退回供应商临时 URL，客户端可提示其会过期
		if fileErr.Stage != pipeline.StageDownloading && strings.HasPrefix(fileErr.URL, "http") {
			response.Images = append(response.Images, entity.ImageEntry{
				ID:        fmt.Sprintf("temp-%d", len(response.Images)+1),
				URL:       fileErr.URL,
				Temporary: true,
				Error:     fileErr.Err.Error(),
			})
		}
	}

	return response
}
