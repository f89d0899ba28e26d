package storage

import (
	"atelier/internal/config"
	"atelier/internal/imaging"
	"context"
	"fmt"
	"strings"
)

const (
	// TypeLocal 表示本地文件系统存储。
	TypeLocal = "local"
	// TypeS3 表示 Amazon S3 或兼容的存储后端。
	TypeS3 = "s3"
	// TypeOSS 表示阿里云 OSS 存储。
	TypeOSS = "oss"
	// TypeCOS 表示腾讯云 COS 存储。
	TypeCOS = "cos"
	// TypeR2 表示 Cloudflare R2 存储。
	TypeR2 = "r2"
	// TypeGCS 表示 Google Cloud Storage 存储。
	TypeGCS = "gcs"
)

// SaveOptions 控制存储后端如何持久化文件。
//
// Category 用于在对象键空间中组织文件，Extension 提示首选的文件扩展名
// （不含前导点）。当 Extension 为空时，存储实现应尝试猜测合适的扩展名。
type SaveOptions struct {
	Category     string
	Extension    string
	BaseName     string
	SkipIfExists bool
}

// StoredObject 描述一次成功持久化的结果：对象键、公开可解析的 URL，
// 以及入库所需的派生元数据。
type StoredObject struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
	Width       int
	Height      int
}

// Storage 持久化二进制数据并返回稳定的公开 URL 及派生元数据。
// 调用方只依赖这个接口，不关心具体后端。
type Storage interface {
	Store(ctx context.Context, data []byte, opts SaveOptions) (*StoredObject, error)
}

// Provisioner 由能够创建自身容器的存储驱动实现。
// EnsureBucket 必须是幂等的：容器已存在时不报错。
type Provisioner interface {
	EnsureBucket(ctx context.Context) error
}

// LocalBaseDirProvider 由暴露可通过 HTTP 直接提供服务的本地目录的存储驱动实现。
type LocalBaseDirProvider interface {
	LocalBaseDir() string
}

// NewStorage 根据配置实例化存储后端。
func NewStorage(cfg config.Config) (Storage, error) {
	typeName := strings.ToLower(strings.TrimSpace(cfg.StorageType))
	switch typeName {
	case "", TypeLocal:
		return NewLocalStorage(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
	case TypeS3:
		return NewS3Storage(cfg)
	case TypeOSS:
		return NewOSSStorage(cfg)
	case TypeCOS:
		return NewCOSStorage(cfg)
	case TypeR2:
		return NewR2Storage(cfg)
	case TypeGCS:
		return NewGCSStorage(cfg)
	default:
		return nil, &Error{
			Kind: KindConfig,
			Op:   "init",
			Err:  fmt.Errorf("unsupported storage type: %s", cfg.StorageType),
		}
	}
}

// newStoredObject 从落盘数据构造返回值，填充尺寸、字节数和内容类型。
func newStoredObject(key, url string, data []byte, ext string) *StoredObject {
	width, height := imaging.Dimensions(data)
	return &StoredObject{
		Key:         key,
		URL:         url,
		Size:        int64(len(data)),
		ContentType: detectContentType(ext),
		Width:       width,
		Height:      height,
	}
}

// publicURL joins a public base with an object key. The base may be an
// absolute URL or a server-relative path prefix.
func publicURL(base, key string) string {
	cleanKey := strings.TrimLeft(key, "/")
	trimmedBase := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmedBase == "" {
		return "/" + cleanKey
	}
	return trimmedBase + "/" + cleanKey
}
