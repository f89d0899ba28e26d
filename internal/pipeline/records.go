package pipeline

import (
	"atelier/internal/entity"
)

// buildImageRecords 把持久化成功的文件转为图库记录。
// 总成本按成功文件数均摊到每条记录。
func buildImageRecords(result entity.GenerationResult, opts Options, files []ProcessedFile) []*entity.DbImage {
	var perFileCost *float64
	if opts.Cost > 0 && len(files) > 0 {
		cost := opts.Cost / float64(len(files))
		perFileCost = &cost
	}

	model := opts.Model
	if model == "" {
		model = result.Model
	}

	records := make([]*entity.DbImage, 0, len(files))
	for _, file := range files {
		records = append(records, &entity.DbImage{
			UserID:         opts.UserID,
			OriginalPrompt: opts.Prompt,
			Model:          model,
			Parameters:     opts.Parameters,
			FilePath:       file.StoredURL,
			Width:          file.Width,
			Height:         file.Height,
			FileSize:       file.Size,
			ContentType:    file.ContentType,
			Cost:           perFileCost,
			GenerationTime: result.PredictTime(),
			FolderID:       opts.FolderID,
		})
	}
	return records
}
