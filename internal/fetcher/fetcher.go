package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 2
	retryBackoff       = 500 * time.Millisecond
)

// Asset 是从供应商 URL 拉取到的单个资源。
type Asset struct {
	Data        []byte
	ContentType string
}

// Error 表示一次最终失败的资源拉取。
type Error struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: http %d after %d attempts", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempts", e.URL, e.Err, e.Attempts)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetcher 下载供应商提供的远程资源，带超时与有限重试。
type Fetcher struct {
	client      *http.Client
	maxAttempts int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithMaxAttempts overrides the retry budget. Attempts below one are
// clamped to one.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n >= 1 {
			f.maxAttempts = n
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client (tests).
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// New creates a Fetcher with the default timeout and retry budget.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: defaultTimeout},
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the asset at the given URL. Network failures and 5xx
// responses are retried up to the attempt budget with a short backoff;
// 4xx responses fail immediately. The returned error is always a *Error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Asset, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, &Error{URL: url, Attempts: 0, Err: errors.New("empty url")}
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return nil, &Error{URL: trimmed, Attempts: 0, Err: errors.New("unsupported url scheme")}
	}

	var lastErr error
	lastStatus := 0
	attempts := 0

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, &Error{URL: trimmed, Attempts: attempts, Err: ctx.Err()}
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
			logrus.WithFields(logrus.Fields{
				"url":     truncateForLog(trimmed),
				"attempt": attempt,
			}).Debug("retrying asset fetch")
		}

		asset, status, err := f.fetchOnce(ctx, trimmed)
		attempts = attempt
		if err == nil {
			return asset, nil
		}

		lastErr = err
		lastStatus = status

		// 4xx 不重试：资源本身不可得
		if status >= 400 && status < 500 {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, &Error{URL: trimmed, StatusCode: lastStatus, Attempts: attempts, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*Asset, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, fmt.Errorf("download asset http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read asset body: %w", err)
	}
	if len(data) == 0 {
		return nil, resp.StatusCode, errors.New("empty asset body")
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &Asset{Data: data, ContentType: contentType}, resp.StatusCode, nil
}

func truncateForLog(s string) string {
	if len(s) <= 128 {
		return s
	}
	return s[:128] + "..."
}
