package storage

import (
	"atelier/internal/config"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type gcsStorage struct {
	client     *gcs.Client
	bucketName string
	projectID  string
	prefix     string
	publicBase string
}

func NewGCSStorage(cfg config.Config) (Storage, error) {
	bucketName := strings.TrimSpace(cfg.StorageGCSBucket)
	if bucketName == "" {
		return nil, configError("init gcs", errors.New("missing GCS bucket"))
	}

	var opts []option.ClientOption
	if credFile := strings.TrimSpace(cfg.StorageGCSCredentialsFile); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := gcs.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, configError("init gcs", fmt.Errorf("create GCS client: %w", err))
	}

	publicBase := strings.TrimSpace(cfg.StoragePublicBaseURL)
	if !strings.HasPrefix(publicBase, "http://") && !strings.HasPrefix(publicBase, "https://") {
		publicBase = fmt.Sprintf("https://storage.googleapis.com/%s", bucketName)
	}

	return &gcsStorage{
		client:     client,
		bucketName: bucketName,
		projectID:  strings.TrimSpace(cfg.StorageGCSProjectID),
		prefix:     trimPrefix(cfg.StorageGCSPrefix),
		publicBase: publicBase,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist. Creation needs
// a project id; without one a missing bucket is a configuration error.
func (s *gcsStorage) EnsureBucket(ctx context.Context) error {
	bucket := s.client.Bucket(s.bucketName)
	_, err := bucket.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		return classifyError("head bucket", err)
	}
	if s.projectID == "" {
		return configError("create bucket", errors.New("missing GCS project id"))
	}
	if err := bucket.Create(ctx, s.projectID, nil); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			return nil
		}
		return classifyError("create bucket", err)
	}
	return nil
}

func (s *gcsStorage) Store(ctx context.Context, data []byte, opts SaveOptions) (*StoredObject, error) {
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

	obj := s.client.Bucket(s.bucketName).Object(key)

	if opts.SkipIfExists {
		_, err := obj.Attrs(ctx)
		if err == nil {
			return newStoredObject(key, publicURL(s.publicBase, key), data, opts.Extension), nil
		}
		if !errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, classifyError("head object", err)
		}
	}

	writer := obj.NewWriter(ctx)
	if ct := detectContentType(opts.Extension); ct != "" {
		writer.ContentType = ct
	}

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		writer.Close()
		return nil, classifyError("put object", err)
	}
	if err := writer.Close(); err != nil {
		return nil, classifyError("put object", err)
	}

	return newStoredObject(key, publicURL(s.publicBase, key), data, opts.Extension), nil
}

var _ Storage = (*gcsStorage)(nil)
var _ Provisioner = (*gcsStorage)(nil)
