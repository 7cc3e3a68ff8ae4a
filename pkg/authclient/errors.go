package authclient

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired 刷新失败，本地令牌已清除，需要重新登录
	ErrSessionExpired = errors.New("authclient: session expired")
	// ErrNotFound 预期可能为空的接口返回 401/404
	ErrNotFound = errors.New("authclient: not found")
)

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authclient: http %d: %s", e.StatusCode, e.Message)
}

// StatusCode 从错误中取出 HTTP 状态码，不是 APIError 时返回 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
