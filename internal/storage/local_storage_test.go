package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorageStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/files")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := []byte("image-bytes")
	obj, err := store.Store(context.Background(), data, SaveOptions{
		Category:  "generations",
		Extension: "png",
		BaseName:  "gen-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(obj.URL, "/files/generations/") {
		t.Fatalf("unexpected public url: %q", obj.URL)
	}
	if obj.Size != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), obj.Size)
	}
	if obj.ContentType != "image/png" {
		t.Fatalf("unexpected content type: %q", obj.ContentType)
	}

	written, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(obj.Key)))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(written) != string(data) {
		t.Fatal("stored bytes differ from input")
	}
}

func TestLocalStorageRejectsEmptyPayload(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Store(context.Background(), nil, SaveOptions{Category: "generations"}); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestLocalStorageEnsureBucket(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "images")
	store, err := NewLocalStorage(dir, "/files")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 目录被移除后应能重建
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}

	// 幂等：再次调用不报错
	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("expected idempotent provisioning, got %v", err)
	}
}

func TestLocalStorageSkipIfExists(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	opts := SaveOptions{Category: "generations", Extension: "png", BaseName: "dup", SkipIfExists: true}

	first, err := store.Store(ctx, []byte("v1"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.Store(ctx, []byte("v2"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Key != second.Key {
		t.Fatalf("expected same key, got %q and %q", first.Key, second.Key)
	}

	written, err := os.ReadFile(filepath.Join(store.LocalBaseDir(), filepath.FromSlash(first.Key)))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(written) != "v1" {
		t.Fatalf("expected original content preserved, got %q", written)
	}
}

func TestLocalStorageCancelledContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Store(ctx, []byte("data"), SaveOptions{Category: "generations"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
