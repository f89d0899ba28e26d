package storage

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestBuildObjectPath(t *testing.T) {
	now := time.Now().UTC()
	datedir := fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day())

	tests := []struct {
		name     string
		category string
		baseName string
		ext      string
		want     string
	}{
		{name: "常规路径", category: "generations", baseName: "gen-1", ext: "png", want: "generations/" + datedir + "/gen-1.png"},
		{name: "扩展名带点", category: "generations", baseName: "a", ext: ".jpg", want: "generations/" + datedir + "/a.jpg"},
		{name: "类别为空回退", category: "", baseName: "a", ext: "png", want: "misc/" + datedir + "/a.png"},
		{name: "类别含非法字符", category: "Gen/era!tions", baseName: "a", ext: "png", want: "generations/" + datedir + "/a.png"},
		{name: "空扩展名回退", category: "generations", baseName: "a", ext: "", want: "generations/" + datedir + "/a.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildObjectPath(tt.category, tt.baseName, tt.ext)
			if got != tt.want {
				t.Fatalf("buildObjectPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildObjectPathGeneratesBase(t *testing.T) {
	got := buildObjectPath("generations", "", "png")
	if !strings.HasSuffix(got, ".png") {
		t.Fatalf("expected png suffix, got %q", got)
	}
	parts := strings.Split(got, "/")
	if len(parts) != 5 {
		t.Fatalf("expected category/yyyy/mm/dd/file layout, got %q", got)
	}
	if parts[len(parts)-1] == ".png" {
		t.Fatalf("expected generated base name, got %q", got)
	}
}

func TestSanitizeFileBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "gen-123-1", want: "gen-123-1"},
		{in: "My File Name", want: "my-file-name"},
		{in: "../../etc/passwd", want: "etcpasswd"},
		{in: "___", want: ""},
		{in: "  ", want: ""},
	}
	for _, tt := range tests {
		if got := sanitizeFileBase(tt.in); got != tt.want {
			t.Errorf("sanitizeFileBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{prefix: "", key: "a/b.png", want: "a/b.png"},
		{prefix: "media", key: "a/b.png", want: "media/a/b.png"},
		{prefix: "/media/", key: "/a/b.png", want: "media/a/b.png"},
	}
	for _, tt := range tests {
		if got := joinPrefix(tt.prefix, tt.key); got != tt.want {
			t.Errorf("joinPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestDetectContentType(t *testing.T) {
	if got := detectContentType("png"); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}
	if got := detectContentType("unknownext"); got != "application/octet-stream" {
		t.Fatalf("expected fallback content type, got %q", got)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{base: "https://cdn.example.com", key: "a/b.png", want: "https://cdn.example.com/a/b.png"},
		{base: "https://cdn.example.com/", key: "/a/b.png", want: "https://cdn.example.com/a/b.png"},
		{base: "/files", key: "a/b.png", want: "/files/a/b.png"},
		{base: "", key: "a/b.png", want: "/a/b.png"},
	}
	for _, tt := range tests {
		if got := publicURL(tt.base, tt.key); got != tt.want {
			t.Errorf("publicURL(%q, %q) = %q, want %q", tt.base, tt.key, got, tt.want)
		}
	}
}
