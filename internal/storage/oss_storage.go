package storage

import (
	"atelier/internal/config"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type ossStorage struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	prefix     string
	publicBase string
}

func NewOSSStorage(cfg config.Config) (Storage, error) {
	endpoint := strings.TrimSpace(cfg.StorageOSSEndpoint)
	if endpoint == "" {
		return nil, configError("init oss", errors.New("missing OSS endpoint"))
	}
	bucketName := strings.TrimSpace(cfg.StorageOSSBucket)
	if bucketName == "" {
		return nil, configError("init oss", errors.New("missing OSS bucket"))
	}
	accessKey := strings.TrimSpace(cfg.StorageOSSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageOSSAccessKeySecret)
	if accessKey == "" || secretKey == "" {
		return nil, configError("init oss", errors.New("missing OSS credentials"))
	}

	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, configError("init oss", fmt.Errorf("create OSS client: %w", err))
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, configError("init oss", fmt.Errorf("open OSS bucket: %w", err))
	}

	publicBase := strings.TrimSpace(cfg.StoragePublicBaseURL)
	if !strings.HasPrefix(publicBase, "http://") && !strings.HasPrefix(publicBase, "https://") {
		host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
		publicBase = fmt.Sprintf("https://%s.%s", bucketName, host)
	}

	return &ossStorage{
		client:     client,
		bucket:     bucket,
		bucketName: bucketName,
		prefix:     trimPrefix(cfg.StorageOSSPrefix),
		publicBase: publicBase,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *ossStorage) EnsureBucket(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	exists, err := s.client.IsBucketExist(s.bucketName)
	if err != nil {
		return classifyError("check bucket", err)
	}
	if exists {
		return nil
	}
	if err := s.client.CreateBucket(s.bucketName); err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == 409 {
			return nil
		}
		return classifyError("create bucket", err)
	}
	return nil
}

func (s *ossStorage) Store(ctx context.Context, data []byte, opts SaveOptions) (*StoredObject, error) {
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	key := buildObjectPath(opts.Category, opts.BaseName, opts.Extension)
	if s.prefix != "" {
		key = joinPrefix(s.prefix, key)
	}

	if opts.SkipIfExists {
		exists, err := s.bucket.IsObjectExist(key)
		if err != nil {
			return nil, classifyError("check object", err)
		}
		if exists {
			return newStoredObject(key, publicURL(s.publicBase, key), data, opts.Extension), nil
		}
	}

	options := []oss.Option{oss.WithContext(ctx)}
	if ct := detectContentType(opts.Extension); ct != "" {
		options = append(options, oss.ContentType(ct))
	}

	if err := s.bucket.PutObject(key, bytes.NewReader(data), options...); err != nil {
		return nil, classifyError("put object", err)
	}

	return newStoredObject(key, publicURL(s.publicBase, key), data, opts.Extension), nil
}

var _ Storage = (*ossStorage)(nil)
var _ Provisioner = (*ossStorage)(nil)
