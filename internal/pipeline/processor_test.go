package pipeline

import (
	"atelier/internal/entity"
	"atelier/internal/fetcher"
	"atelier/internal/storage"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// 1x1 PNG，用于返回可解码的图片数据
var tinyPNG = mustDecodeBase64("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==")

func mustDecodeBase64(s string) []byte {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return data
}

type fakeStorage struct {
	stored      []storage.SaveOptions
	ensured     int
	ensureErr   error
	storeErr    error
	storeErrFor map[int]error
}

func (f *fakeStorage) Store(_ context.Context, data []byte, opts storage.SaveOptions) (*storage.StoredObject, error) {
	index := len(f.stored)
	f.stored = append(f.stored, opts)
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	if err, ok := f.storeErrFor[index]; ok {
		return nil, err
	}
	key := fmt.Sprintf("%s/2026/08/29/object-%d.%s", opts.Category, index, opts.Extension)
	return &storage.StoredObject{
		Key:         key,
		URL:         "https://cdn.example.com/" + key,
		Size:        int64(len(data)),
		ContentType: "image/png",
		Width:       1,
		Height:      1,
	}, nil
}

func (f *fakeStorage) EnsureBucket(_ context.Context) error {
	f.ensured++
	return f.ensureErr
}

type fakeImageWriter struct {
	batches   [][]*entity.DbImage
	nextID    uint
	createErr error
}

func (f *fakeImageWriter) CreateImages(_ context.Context, images []*entity.DbImage) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.nextID == 0 {
		f.nextID = 1
	}
	for _, image := range images {
		image.ID = f.nextID
		f.nextID++
	}
	f.batches = append(f.batches, images)
	return nil
}

func newAssetServer(t *testing.T, failPaths map[string]int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code, ok := failPaths[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(tinyPNG)
	}))
	t.Cleanup(server.Close)
	return server
}

func succeededResult(urls ...string) entity.GenerationResult {
	return entity.GenerationResult{
		ID:      "gen-123",
		Status:  entity.GenerationStatusSucceeded,
		Output:  urls,
		Model:   "test-model",
		Metrics: &entity.GenerationMetrics{PredictTime: 2.5},
	}
}

func TestProcessHappyPath(t *testing.T) {
	server := newAssetServer(t, nil)
	store := &fakeStorage{}
	writer := &fakeImageWriter{}
	proc := NewProcessor(fetcher.New(), store, writer, time.Minute)

	var updates []ProgressUpdate
	result := proc.Process(context.Background(), succeededResult(server.URL+"/a.png", server.URL+"/b.png"), Options{
		UserID:          1,
		Prompt:          "a cat on a mat",
		Cost:            0.08,
		StoreInDatabase: true,
		Progress:        func(u ProgressUpdate) { updates = append(updates, u) },
	})

	if !result.Success {
		t.Fatalf("expected success, errors: %v", result.Errors)
	}
	if !result.Stored {
		t.Fatal("expected database records to be stored")
	}
	if result.Partial() {
		t.Fatal("expected full success, not partial")
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected 2 persisted files, got %d", len(result.Files))
	}
	if len(result.ImageIDs) != 2 {
		t.Fatalf("expected 2 image ids, got %v", result.ImageIDs)
	}
	if store.ensured != 1 {
		t.Fatalf("expected one bucket check, got %d", store.ensured)
	}

	// 图库记录永远指向持久 URL，不是供应商地址
	for _, file := range result.Files {
		if !strings.HasPrefix(file.StoredURL, "https://cdn.example.com/") {
			t.Fatalf("unexpected stored url: %s", file.StoredURL)
		}
	}
	records := writer.batches[0]
	for _, record := range records {
		if strings.Contains(record.FilePath, server.URL) {
			t.Fatalf("record points at provider url: %s", record.FilePath)
		}
		if record.Cost == nil || *record.Cost != 0.04 {
			t.Fatalf("expected apportioned cost 0.04, got %v", record.Cost)
		}
		if record.GenerationTime != 2.5 {
			t.Fatalf("expected generation time from metrics, got %v", record.GenerationTime)
		}
		if record.Model != "test-model" {
			t.Fatalf("expected model from provider result, got %q", record.Model)
		}
	}

	if len(updates) == 0 || updates[len(updates)-1].Stage != StageComplete {
		t.Fatalf("expected final complete update, got %+v", updates)
	}
	seen := map[string]bool{}
	previous := 0
	for _, u := range updates {
		seen[u.Stage] = true
		if u.Progress < 0 || u.Progress > 100 {
			t.Fatalf("progress out of percent range: %+v", u)
		}
		if u.Progress < previous {
			t.Fatalf("progress went backwards: %+v", updates)
		}
		previous = u.Progress
	}
	if !seen[StageDownloading] || !seen[StageUploading] {
		t.Fatalf("expected download and upload progress stages, got %+v", updates)
	}
	if updates[len(updates)-1].Progress != 100 {
		t.Fatalf("expected final progress 100, got %d", updates[len(updates)-1].Progress)
	}
}

func TestProcessPartialFailure(t *testing.T) {
	server := newAssetServer(t, map[string]int{"/bad.png": http.StatusNotFound})
	store := &fakeStorage{}
	writer := &fakeImageWriter{}
	proc := NewProcessor(fetcher.New(), store, writer, time.Minute)

	result := proc.Process(context.Background(), succeededResult(server.URL+"/ok.png", server.URL+"/bad.png"), Options{
		UserID:          1,
		Prompt:          "test",
		StoreInDatabase: true,
	})

	if !result.Success {
		t.Fatal("expected success with one surviving file")
	}
	if !result.Partial() {
		t.Fatal("expected partial result")
	}
	if len(result.Files) != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected 1 file and 1 error, got %d files %d errors", len(result.Files), len(result.Errors))
	}
	if result.Errors[0].Index != 1 {
		t.Fatalf("expected failure at index 1, got %d", result.Errors[0].Index)
	}
	if result.Errors[0].Stage != StageDownloading {
		t.Fatalf("expected download stage failure, got %s", result.Errors[0].Stage)
	}
	if len(writer.batches) != 1 || len(writer.batches[0]) != 1 {
		t.Fatalf("expected one stored record, got %+v", writer.batches)
	}
}

func TestProcessAllFilesFail(t *testing.T) {
	server := newAssetServer(t, map[string]int{"/a.png": http.StatusNotFound, "/b.png": http.StatusNotFound})
	store := &fakeStorage{}
	writer := &fakeImageWriter{}
	proc := NewProcessor(fetcher.New(), store, writer, time.Minute)

	result := proc.Process(context.Background(), succeededResult(server.URL+"/a.png", server.URL+"/b.png"), Options{
		UserID:          1,
		StoreInDatabase: true,
	})

	if result.Success {
		t.Fatal("expected failure when no file persisted")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(result.Errors))
	}
	if len(writer.batches) != 0 {
		t.Fatal("expected no database writes")
	}
}

func TestProcessDatabaseFailureDegrades(t *testing.T) {
	server := newAssetServer(t, nil)
	store := &fakeStorage{}
	writer := &fakeImageWriter{createErr: errors.New("db down")}
	proc := NewProcessor(fetcher.New(), store, writer, time.Minute)

	result := proc.Process(context.Background(), succeededResult(server.URL+"/a.png"), Options{
		UserID:          1,
		StoreInDatabase: true,
	})

	if !result.Success {
		t.Fatal("expected success even when records are not saved")
	}
	if result.Stored {
		t.Fatal("expected stored=false on database failure")
	}
	if len(result.Files) != 1 {
		t.Fatalf("expected 1 persisted file, got %d", len(result.Files))
	}
	if result.RecordError == nil {
		t.Fatal("expected record error to be reported")
	}
	// 数据库失败不计入逐文件错误：所有文件都已持久化
	if len(result.Errors) != 0 {
		t.Fatalf("expected no per-file errors, got %v", result.Errors)
	}
	if result.Partial() {
		t.Fatal("fully persisted batch must not be partial")
	}
}

func TestProcessErrorAccounting(t *testing.T) {
	server := newAssetServer(t, map[string]int{"/bad.png": http.StatusNotFound})

	tests := []struct {
		name      string
		urls      []string
		createErr error
	}{
		{name: "全部成功", urls: []string{"/a.png", "/b.png"}},
		{name: "部分失败", urls: []string{"/a.png", "/bad.png"}},
		{name: "全部失败", urls: []string{"/bad.png", "/bad.png"}},
		{name: "数据库写入失败", urls: []string{"/a.png", "/b.png"}, createErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urls := make([]string, len(tt.urls))
			for i, p := range tt.urls {
				urls[i] = server.URL + p
			}
			writer := &fakeImageWriter{createErr: tt.createErr}
			proc := NewProcessor(fetcher.New(fetcher.WithMaxAttempts(1)), &fakeStorage{}, writer, time.Minute)

			result := proc.Process(context.Background(), succeededResult(urls...), Options{
				UserID:          1,
				StoreInDatabase: true,
			})

			// 每个输出要么成功要么失败，数量守恒
			if got := len(result.Files) + len(result.Errors); got != len(urls) {
				t.Fatalf("files(%d)+errors(%d) = %d, want %d", len(result.Files), len(result.Errors), got, len(urls))
			}
			if result.Partial() != (len(result.Files) > 0 && len(result.Errors) > 0) {
				t.Fatalf("Partial() inconsistent with files=%d errors=%d", len(result.Files), len(result.Errors))
			}
		})
	}
}

func TestProcessSkipDatabase(t *testing.T) {
	server := newAssetServer(t, nil)
	store := &fakeStorage{}
	writer := &fakeImageWriter{}
	proc := NewProcessor(fetcher.New(), store, writer, time.Minute)

	result := proc.Process(context.Background(), succeededResult(server.URL+"/a.png"), Options{
		UserID:          1,
		StoreInDatabase: false,
	})

	if !result.Success {
		t.Fatal("expected success")
	}
	if result.Stored || len(writer.batches) != 0 {
		t.Fatal("expected no database writes when disabled")
	}
}

func TestProcessRejectsFailedGeneration(t *testing.T) {
	store := &fakeStorage{}
	proc := NewProcessor(fetcher.New(), store, nil, time.Minute)

	result := proc.Process(context.Background(), entity.GenerationResult{
		ID:     "gen-err",
		Status: entity.GenerationStatusFailed,
		Output: []string{"https://example.com/a.png"},
	}, Options{})

	if result.Success {
		t.Fatal("expected failure for non-succeeded generation")
	}
	if len(store.stored) != 0 {
		t.Fatal("expected no storage writes")
	}
}

func TestProcessRejectsEmptyOutput(t *testing.T) {
	proc := NewProcessor(fetcher.New(), &fakeStorage{}, nil, time.Minute)

	result := proc.Process(context.Background(), entity.GenerationResult{
		ID:     "gen-empty",
		Status: entity.GenerationStatusSucceeded,
	}, Options{})

	if result.Success {
		t.Fatal("expected failure for empty output")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected one error, got %v", result.Errors)
	}
}

func TestProcessInlineDataURL(t *testing.T) {
	store := &fakeStorage{}
	proc := NewProcessor(fetcher.New(), store, nil, time.Minute)

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)
	result := proc.Process(context.Background(), succeededResult(payload), Options{})

	if !result.Success {
		t.Fatalf("expected success, errors: %v", result.Errors)
	}
	if len(store.stored) != 1 {
		t.Fatalf("expected one stored object, got %d", len(store.stored))
	}
	if store.stored[0].Extension != "png" {
		t.Fatalf("expected png extension, got %q", store.stored[0].Extension)
	}
}

func TestProcessContinuesWhenProvisioningFails(t *testing.T) {
	server := newAssetServer(t, nil)
	store := &fakeStorage{ensureErr: errors.New("no permission")}
	proc := NewProcessor(fetcher.New(), store, nil, time.Minute)

	result := proc.Process(context.Background(), succeededResult(server.URL+"/a.png"), Options{})
	if !result.Success {
		t.Fatalf("expected success despite provisioning failure, errors: %v", result.Errors)
	}
}

func TestProcessBatchDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write(tinyPNG)
	}))
	defer server.Close()

	store := &fakeStorage{}
	proc := NewProcessor(fetcher.New(fetcher.WithMaxAttempts(1)), store, nil, 50*time.Millisecond)

	result := proc.Process(context.Background(), succeededResult(server.URL+"/a.png", server.URL+"/b.png"), Options{})
	if result.Success {
		t.Fatal("expected failure under batch deadline")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected errors for both files, got %v", result.Errors)
	}
}

func TestBuildImageRecordsFallbacks(t *testing.T) {
	files := []ProcessedFile{{StoredURL: "https://cdn.example.com/x.png", Size: 10}}
	records := buildImageRecords(entity.GenerationResult{Model: "provider-model"}, Options{UserID: 3}, files)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Model != "provider-model" {
		t.Fatalf("expected model fallback to provider result, got %q", records[0].Model)
	}
	if records[0].Cost != nil {
		t.Fatal("expected nil cost when no cost was reported")
	}
}
