package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists files to the local filesystem. Public URLs are
// built from the configured base path and served statically by the
// HTTP server.
type LocalStorage struct {
	baseDir    string
	publicBase string
}

// NewLocalStorage creates a LocalStorage instance. The directory is created
// if it does not exist.
func NewLocalStorage(baseDir, publicBase string) (*LocalStorage, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "datas/images"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, configError("create storage dir", err)
	}
	publicBase = strings.TrimSpace(publicBase)
	if publicBase == "" {
		publicBase = "/files"
	}
	return &LocalStorage{baseDir: baseDir, publicBase: publicBase}, nil
}

// LocalBaseDir returns the root directory used for storing files.
func (s *LocalStorage) LocalBaseDir() string {
	return s.baseDir
}

// EnsureBucket re-creates the base directory if it has gone missing.
func (s *LocalStorage) EnsureBucket(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return classifyError("ensure dir", err)
	}
	return nil
}

// Store writes the provided bytes to disk and returns the durable object
// description.
func (s *LocalStorage) Store(ctx context.Context, data []byte, opts SaveOptions) (*StoredObject, error) {
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	relativePath := buildObjectPath(opts.Category, opts.BaseName, opts.Extension)

	absPath := filepath.Join(s.baseDir, filepath.FromSlash(relativePath))
	if opts.SkipIfExists {
		if _, err := os.Stat(absPath); err == nil {
			return newStoredObject(relativePath, publicURL(s.publicBase, relativePath), data, opts.Extension), nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, classifyError("create dir", fmt.Errorf("create dir: %w", err))
	}

	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return nil, classifyError("write file", fmt.Errorf("write file: %w", err))
	}

	return newStoredObject(relativePath, publicURL(s.publicBase, relativePath), data, opts.Extension), nil
}

var _ Storage = (*LocalStorage)(nil)
var _ Provisioner = (*LocalStorage)(nil)
var _ LocalBaseDirProvider = (*LocalStorage)(nil)
