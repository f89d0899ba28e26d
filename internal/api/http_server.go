package api

import (
	"atelier/internal/analytics"
	"atelier/internal/auth"
	"atelier/internal/config"
	"atelier/internal/fetcher"
	"atelier/internal/model"
	"atelier/internal/pipeline"
	"atelier/internal/storage"
	"strings"
	"sync"
	"time"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg               config.Config
	repo              model.Repository
	storage           storage.Storage
	storagePublicBase string
	authManager       *auth.Manager

	// 响应处理管线与分析记录器
	processor *pipeline.Processor
	recorder  *analytics.Recorder

	// SSE 客户端管理
	sseClients map[string][]chan sseMessage
	sseMu      sync.Mutex
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	fetch := fetcher.New(
		fetcher.WithTimeout(time.Duration(cfg.FetchTimeoutSeconds)*time.Second),
		fetcher.WithMaxAttempts(cfg.FetchMaxAttempts),
	)

	var imageWriter pipeline.ImageWriter
	var recorder *analytics.Recorder
	if repo != nil {
		imageWriter = repo
		recorder = analytics.NewRecorder(repo, cfg.PromptSimilarityThreshold)
	}

	batchTimeout := time.Duration(cfg.BatchTimeoutSeconds) * time.Second
	processor := pipeline.NewProcessor(fetch, store, imageWriter, batchTimeout)

	return &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		storage:           store,
		storagePublicBase: normalisePublicBase(cfg.StoragePublicBaseURL),
		authManager:       authManager,
		processor:         processor,
		recorder:          recorder,
		sseClients:        make(map[string][]chan sseMessage),
	}, nil
}

// normalisePublicBase 规范化公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}
