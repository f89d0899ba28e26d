package pipeline

import (
	"atelier/internal/entity"
	"atelier/internal/fetcher"
	"atelier/internal/imaging"
	"atelier/internal/storage"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBatchTimeout = 5 * time.Minute

	objectCategory = "generations"
)

// ImageWriter 是处理器需要的最小图库写入接口
type ImageWriter interface {
	CreateImages(ctx context.Context, images []*entity.DbImage) error
}

// Processor 将一次供应商生成响应转为持久化资产与图库记录。
//
// 文件按顺序逐个处理，单个文件失败不会中止整批；
// 数据库写入失败会降级为"仅文件持久化"而不是报错。
type Processor struct {
	fetcher      *fetcher.Fetcher
	storage      storage.Storage
	images       ImageWriter
	batchTimeout time.Duration
}

// NewProcessor creates a Processor. A nil ImageWriter disables database
// records entirely; a non-positive batch timeout falls back to the default.
func NewProcessor(fetch *fetcher.Fetcher, store storage.Storage, images ImageWriter, batchTimeout time.Duration) *Processor {
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}
	return &Processor{
		fetcher:      fetch,
		storage:      store,
		images:       images,
		batchTimeout: batchTimeout,
	}
}

// Process 处理一次生成响应：下载每个输出资源、写入对象存储，
// 并在需要时批量写入图库记录。
func (p *Processor) Process(ctx context.Context, result entity.GenerationResult, opts Options) *ProcessingResult {
	out := &ProcessingResult{}

	if !result.Succeeded() {
		out.Errors = append(out.Errors, FileError{
			Index: -1,
			Stage: StageError,
			Err:   fmt.Errorf("generation did not succeed: status=%s", result.Status),
		})
		opts.notify(ProgressUpdate{Stage: StageError, Error: "generation did not succeed"})
		return out
	}
	if len(result.Output) == 0 {
		out.Errors = append(out.Errors, FileError{
			Index: -1,
			Stage: StageError,
			Err:   fmt.Errorf("generation succeeded but produced no output"),
		})
		opts.notify(ProgressUpdate{Stage: StageError, Error: "no output files"})
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, p.batchTimeout)
	defer cancel()

	// 存储桶不存在时尽力创建；创建失败不中止，由逐文件写入自行报错
	if provisioner, ok := p.storage.(storage.Provisioner); ok {
		if err := provisioner.EnsureBucket(ctx); err != nil {
			logrus.WithError(err).Warn("failed to ensure storage bucket, continuing")
		}
	}

	total := len(result.Output)
	for i, source := range result.Output {
		file, err := p.processOne(ctx, result.ID, i, total, source, opts)
		if err != nil {
			out.Errors = append(out.Errors, FileError{Index: i, Stage: stageOf(err), URL: source, Err: err})
			opts.notify(ProgressUpdate{
				Stage:      StageError,
				FileIndex:  i,
				TotalFiles: total,
				Progress:   (i + 1) * 100 / total,
				Error:      err.Error(),
			})
			logrus.WithError(err).WithFields(logrus.Fields{
				"file_index": i,
				"generation": result.ID,
			}).Error("failed to persist generated asset")
			continue
		}
		out.Files = append(out.Files, *file)
	}

	out.Success = len(out.Files) > 0

	if out.Success && opts.StoreInDatabase && p.images != nil {
		records := buildImageRecords(result, opts, out.Files)
		if err := p.images.CreateImages(ctx, records); err != nil {
			// 数据库失败降级：文件已持久化，记录丢失但请求照常成功
			out.RecordError = fmt.Errorf("failed to save image records: %w", err)
			logrus.WithError(err).Warn("image records not saved, assets remain in storage")
		} else {
			out.Stored = true
			out.Records = records
			for _, record := range records {
				out.ImageIDs = append(out.ImageIDs, record.ID)
			}
		}
	}

	opts.notify(ProgressUpdate{
		Stage:      StageComplete,
		FileIndex:  total - 1,
		TotalFiles: total,
		Progress:   100,
		Message:    fmt.Sprintf("persisted %d/%d files", len(out.Files), total),
	})
	return out
}

// processOne 下载并持久化单个输出资源。
func (p *Processor) processOne(ctx context.Context, generationID string, index, total int, source string, opts Options) (*ProcessedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch deadline exceeded: %w", err)
	}

	opts.notify(ProgressUpdate{
		Stage:      StageDownloading,
		FileIndex:  index,
		TotalFiles: total,
		Progress:   index * 100 / total,
		Message:    fmt.Sprintf("downloading file %d/%d", index+1, total),
	})

	data, contentType, err := p.obtain(ctx, source)
	if err != nil {
		return nil, err
	}

	opts.notify(ProgressUpdate{
		Stage:      StageUploading,
		FileIndex:  index,
		TotalFiles: total,
		Progress:   (index*100 + 50) / total,
		Message:    fmt.Sprintf("uploading file %d/%d", index+1, total),
	})

	baseName := ""
	if trimmed := strings.TrimSpace(generationID); trimmed != "" {
		baseName = fmt.Sprintf("%s-%d", trimmed, index+1)
	}

	stored, err := p.storage.Store(ctx, data, storage.SaveOptions{
		Category:  objectCategory,
		Extension: imaging.DetectExtension(contentType, data),
		BaseName:  baseName,
	})
	if err != nil {
		return nil, fmt.Errorf("store asset: %w", err)
	}

	return &ProcessedFile{
		SourceURL:   source,
		StoredURL:   stored.URL,
		Key:         stored.Key,
		Width:       stored.Width,
		Height:      stored.Height,
		Size:        stored.Size,
		ContentType: stored.ContentType,
	}, nil
}

// obtain 获取资源字节：支持远程 URL 与内联 base64/data URL。
func (p *Processor) obtain(ctx context.Context, source string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(source)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		asset, err := p.fetcher.Fetch(ctx, trimmed)
		if err != nil {
			return nil, "", err
		}
		return asset.Data, asset.ContentType, nil
	}

	data, mimeType, err := imaging.DecodeDataPayload(trimmed)
	if err != nil {
		return nil, "", fmt.Errorf("decode inline asset: %w", err)
	}
	return data, mimeType, nil
}

// stageOf 将错误映射回失败阶段。
func stageOf(err error) string {
	var fetchErr *fetcher.Error
	if errors.As(err, &fetchErr) {
		return StageDownloading
	}
	return StageUploading
}
