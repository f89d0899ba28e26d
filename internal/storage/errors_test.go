package storage

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "凭证错误", err: errors.New("InvalidAccessKeyId: access denied by server"), want: KindConfig},
		{name: "配额错误", err: errors.New("upload rejected: quota exceeded"), want: KindQuota},
		{name: "文件过大", err: errors.New("request entity too large"), want: KindQuota},
		{name: "默认暂时性", err: errors.New("connection reset by peer"), want: KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyError("store", tt.err)
			if classified.Kind != tt.want {
				t.Fatalf("classifyError() kind = %q, want %q", classified.Kind, tt.want)
			}
		})
	}
}

func TestClassifyErrorPreservesExisting(t *testing.T) {
	original := configError("init", errors.New("missing bucket name"))
	classified := classifyError("store", fmt.Errorf("wrapped: %w", original))
	if classified.Kind != KindConfig {
		t.Fatalf("expected config kind preserved, got %q", classified.Kind)
	}
}

func TestClassifyErrorNil(t *testing.T) {
	if classifyError("store", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestErrorPredicates(t *testing.T) {
	cfg := configError("init", errors.New("bad credentials"))
	if !IsConfigError(cfg) {
		t.Fatal("expected config error")
	}
	if IsConfigError(errors.New("plain")) {
		t.Fatal("plain error must not be a config error")
	}

	quota := &Error{Kind: KindQuota, Op: "store", Err: errors.New("too large")}
	if !IsQuotaError(quota) {
		t.Fatal("expected quota error")
	}

	transient := &Error{Kind: KindTransient, Op: "store", Err: errors.New("timeout")}
	if !IsTransient(transient) {
		t.Fatal("expected transient error")
	}
	if IsTransient(cfg) {
		t.Fatal("config error must not be transient")
	}

	// 包装后仍可识别
	wrapped := fmt.Errorf("outer: %w", quota)
	if !IsQuotaError(wrapped) {
		t.Fatal("expected quota error through wrapping")
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := &Error{Kind: KindTransient, Op: "store", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("expected unwrap to reach the root cause")
	}
}
