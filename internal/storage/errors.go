package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Kind 区分存储失败的处置方式。
type Kind string

const (
	// KindConfig 表示凭证或配置错误：致命且不可重试，应在处理任何文件前暴露。
	KindConfig Kind = "config"
	// KindTransient 表示暂时性上传失败，可以重试。
	KindTransient Kind = "transient"
	// KindQuota 表示配额或大小限制：对该文件致命，但不影响批次中其他文件。
	KindQuota Kind = "quota"
)

// Error 是存储层的统一错误类型。
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigError 判断是否为配置/凭证错误。
func IsConfigError(err error) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Kind == KindConfig
}

// IsQuotaError 判断是否为配额/大小限制错误。
func IsQuotaError(err error) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Kind == KindQuota
}

// IsTransient 判断错误是否可以重试。
func IsTransient(err error) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Kind == KindTransient
}

func configError(op string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

// classifyError 根据后端返回的错误码划分错误类别。
// 各 SDK 的错误码不尽相同，这里按凭证、配额、其余暂时性三类归并。
func classifyError(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var serr *Error
	if errors.As(err, &serr) {
		return serr
	}

	code := ""
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
	}

	return &Error{Kind: kindFromCode(code, err), Op: op, Err: err}
}

func kindFromCode(code string, err error) Kind {
	switch strings.ToLower(code) {
	case "invalidaccesskeyid", "signaturedoesnotmatch", "accessdenied",
		"expiredtoken", "invalidtoken", "authenticationfailed":
		return KindConfig
	case "entitytoolarge", "quotaexceeded", "maxmessagelengthexceeded",
		"filesizeexceed", "requestentitytoolarge":
		return KindQuota
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"), strings.Contains(msg, "credential"):
		return KindConfig
	case strings.Contains(msg, "quota"), strings.Contains(msg, "too large"),
		strings.Contains(msg, "entity too large"):
		return KindQuota
	default:
		return KindTransient
	}
}
