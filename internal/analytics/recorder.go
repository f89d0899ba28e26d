package analytics

import (
	"atelier/internal/entity"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// PromptStore 是分析记录器需要的最小持久化接口
type PromptStore interface {
	CreatePrompt(ctx context.Context, prompt *entity.DbPrompt) error
	ListPromptsByUser(ctx context.Context, userID uint) ([]entity.DbPrompt, error)
	IncrementPromptUsage(ctx context.Context, id uint) error
	RecordPromptAttempt(ctx context.Context, id uint, attempt entity.PromptAttempt) error
	AttachImagesToPrompt(ctx context.Context, promptID uint, imageIDs []uint) error
}

// GenerationRecord 描述一次生成的分析侧信息
type GenerationRecord struct {
	UserID         uint
	Prompt         string
	Model          string
	Cost           float64
	GenerationTime float64
	Succeeded      bool
	ImageIDs       []uint
}

const defaultSimilarityThreshold = 0.85

// Recorder aggregates prompt usage and cost statistics. All recording is
// best-effort: failures are logged and never propagated to the caller's
// request path.
type Recorder struct {
	prompts   PromptStore
	threshold float64
	timeout   time.Duration
}

// NewRecorder creates a Recorder. A non-positive threshold falls back to
// the default similarity threshold.
func NewRecorder(prompts PromptStore, threshold float64) *Recorder {
	if threshold <= 0 || threshold > 1 {
		threshold = defaultSimilarityThreshold
	}
	return &Recorder{
		prompts:   prompts,
		threshold: threshold,
		timeout:   time.Second * 30,
	}
}

// SavePrompt 保存提示词，相似度超过阈值时合并到已有记录。
// 返回命中的或新建的提示词 ID。
func (r *Recorder) SavePrompt(ctx context.Context, userID uint, content, model string) (uint, error) {
	if r == nil || r.prompts == nil {
		return 0, fmt.Errorf("recorder not initialised")
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0, fmt.Errorf("prompt content is empty")
	}

	existing, err := r.prompts.ListPromptsByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list prompts: %w", err)
	}

	var (
		bestID    uint
		bestScore float64
	)
	for i := range existing {
		score := Similarity(trimmed, existing[i].Content)
		if score > bestScore {
			bestScore = score
			bestID = existing[i].ID
		}
	}

	if bestID != 0 && bestScore >= r.threshold {
		if err := r.prompts.IncrementPromptUsage(ctx, bestID); err != nil {
			return 0, fmt.Errorf("failed to increment prompt usage: %w", err)
		}
		return bestID, nil
	}

	now := time.Now()
	prompt := &entity.DbPrompt{
		UserID:     userID,
		Content:    trimmed,
		Model:      model,
		UsageCount: 1,
		LastUsedAt: &now,
	}
	if err := r.prompts.CreatePrompt(ctx, prompt); err != nil {
		return 0, fmt.Errorf("failed to create prompt: %w", err)
	}
	return prompt.ID, nil
}

// RecordGeneration 记录一次生成：保存/合并提示词、更新成本统计并关联图片。
func (r *Recorder) RecordGeneration(ctx context.Context, rec GenerationRecord) error {
	promptID, err := r.SavePrompt(ctx, rec.UserID, rec.Prompt, rec.Model)
	if err != nil {
		return err
	}

	attempt := entity.PromptAttempt{
		Succeeded:      rec.Succeeded,
		Cost:           rec.Cost,
		GenerationTime: rec.GenerationTime,
	}
	if err := r.prompts.RecordPromptAttempt(ctx, promptID, attempt); err != nil {
		return fmt.Errorf("failed to record prompt attempt: %w", err)
	}

	if len(rec.ImageIDs) > 0 {
		if err := r.prompts.AttachImagesToPrompt(ctx, promptID, rec.ImageIDs); err != nil {
			return fmt.Errorf("failed to attach images to prompt: %w", err)
		}
	}
	return nil
}

// RecordGenerationAsync 在独立 goroutine 中记录分析数据，不阻塞请求路径。
// 任何失败只打日志。
func (r *Recorder) RecordGenerationAsync(rec GenerationRecord) {
	if r == nil || r.prompts == nil {
		return
	}
	go func() {
		defer func() {
			if p := recover(); p != nil {
				logrus.WithField("panic", p).Error("analytics recorder panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.RecordGeneration(ctx, rec); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"user_id": rec.UserID,
				"model":   rec.Model,
			}).Warn("failed to record generation analytics")
		}
	}()
}
