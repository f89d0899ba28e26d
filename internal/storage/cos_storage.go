package storage

import (
	"atelier/internal/config"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

type cosStorage struct {
	client     *cos.Client
	prefix     string
	publicBase string
}

func NewCOSStorage(cfg config.Config) (Storage, error) {
	baseURL := strings.TrimSpace(cfg.StorageCOSBucketURL)
	if baseURL == "" {
		return nil, configError("init cos", errors.New("missing COS bucket URL"))
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, configError("init cos", fmt.Errorf("parse COS bucket URL: %w", err))
	}

	secretID := strings.TrimSpace(cfg.StorageCOSSecretID)
	secretKey := strings.TrimSpace(cfg.StorageCOSSecretKey)
	if secretID == "" || secretKey == "" {
		return nil, configError("init cos", errors.New("missing COS credentials"))
	}

	transport := &cos.AuthorizationTransport{
		SecretID:  secretID,
		SecretKey: secretKey,
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: parsedURL}, &http.Client{Transport: transport})

	publicBase := strings.TrimSpace(cfg.StoragePublicBaseURL)
	if !strings.HasPrefix(publicBase, "http://") && !strings.HasPrefix(publicBase, "https://") {
		publicBase = strings.TrimRight(baseURL, "/")
	}

	return &cosStorage{
		client:     client,
		prefix:     trimPrefix(cfg.StorageCOSPrefix),
		publicBase: publicBase,
	}, nil
}

// EnsureBucket creates the bucket behind the configured bucket URL when
// it does not exist yet.
func (s *cosStorage) EnsureBucket(ctx context.Context) error {
	resp, err := s.client.Bucket.Head(ctx)
	closeCOSResponse(resp)
	if err == nil {
		return nil
	}
	if !cos.IsNotFoundError(err) {
		return classifyError("head bucket", err)
	}

	resp, err = s.client.Bucket.Put(ctx, nil)
	closeCOSResponse(resp)
	if err != nil {
		var cosErr *cos.ErrorResponse
		if errors.As(err, &cosErr) && cosErr.Response != nil && cosErr.Response.StatusCode == http.StatusConflict {
			return nil
		}
		return classifyError("create bucket", err)
	}
	return nil
}

func (s *cosStorage) Store(ctx context.Context, data []byte, opts SaveOptions) (*StoredObject, error) {
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
		resp, err := s.client.Object.Head(ctx, key, nil)
		closeCOSResponse(resp)
		if err == nil {
			return newStoredObject(key, publicURL(s.publicBase, key), data, opts.Extension), nil
		}
		if !cos.IsNotFoundError(err) {
			return nil, classifyError("head object", err)
		}
	}

	options := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{},
	}
	if ct := detectContentType(opts.Extension); ct != "" {
		options.ObjectPutHeaderOptions.ContentType = ct
	}

	resp, err := s.client.Object.Put(
		ctx,
		key,
		bytes.NewReader(data),
		options,
	)
	closeCOSResponse(resp)
	if err != nil {
		return nil, classifyError("put object", err)
	}

	return newStoredObject(key, publicURL(s.publicBase, key), data, opts.Extension), nil
}

func closeCOSResponse(resp *cos.Response) {
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
}

var _ Storage = (*cosStorage)(nil)
var _ Provisioner = (*cosStorage)(nil)
