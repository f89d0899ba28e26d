package pipeline

import (
	"atelier/internal/entity"
	"fmt"
)

// 处理阶段，用于向客户端推送进度。
const (
	StageDownloading = "downloading"
	StageUploading   = "uploading"
	StageStoring     = "storing"
	StageComplete    = "complete"
	StageError       = "error"
)

// ProgressUpdate 是处理过程中的一次进度通知。Progress 为 0-100 的百分比。
type ProgressUpdate struct {
	Stage      string `json:"stage"`
	FileIndex  int    `json:"file_index"`
	TotalFiles int    `json:"total_files"`
	Progress   int    `json:"progress"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ProgressFunc receives progress updates during processing. Implementations
// must not block; the pipeline calls it inline.
type ProgressFunc func(update ProgressUpdate)

// ProcessedFile 是一个成功持久化的资源。
type ProcessedFile struct {
	SourceURL   string
	StoredURL   string
	Key         string
	Width       int
	Height      int
	Size        int64
	ContentType string
}

// FileError records a single asset that failed, without aborting the batch.
type FileError struct {
	Index int
	Stage string
	URL   string
	Err   error
}

func (e FileError) Error() string {
	return fmt.Sprintf("file %d (%s): %v", e.Index, e.Stage, e.Err)
}

// ProcessingResult 汇总一次生成响应的处理结果。
//
// Success 表示至少有一个文件持久化成功；Stored 表示图库记录已写入数据库。
// Errors 只记录逐文件的失败：每个输出要么进 Files 要么进 Errors，
// 两者数量之和等于输出总数。数据库写入失败单独放在 RecordError。
type ProcessingResult struct {
	Files    []ProcessedFile
	Errors   []FileError
	Success  bool
	Stored   bool
	ImageIDs []uint
	Records  []*entity.DbImage

	// RecordError 是图库记录写入失败的原因；文件本身已持久化
	RecordError error
}

// Partial reports whether some but not all assets were persisted.
func (r *ProcessingResult) Partial() bool {
	return len(r.Files) > 0 && len(r.Errors) > 0
}

// Options 控制响应处理器的行为。
type Options struct {
	UserID     uint
	Prompt     string
	Model      string
	Parameters entity.JSONMap
	Cost       float64
	FolderID   *uint

	// StoreInDatabase 为 false 时只持久化文件，不写图库记录
	StoreInDatabase bool

	Progress ProgressFunc
}

func (o Options) notify(update ProgressUpdate) {
	if o.Progress != nil {
		o.Progress(update)
	}
}
