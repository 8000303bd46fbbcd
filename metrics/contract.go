package metrics

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	// 常见的标签
	LabelService     = "service"
	LabelVersion     = "version"
	LabelOperation   = "operation"
	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"
	LabelState       = "state"
)

const (
	// UnmatchedRoute 未命中任何路由时使用的路由标签，避免把原始 URL Path 作为标签
	UnmatchedRoute = "unmatched"

	// StatusClassCancelled 客户端在响应完成前断开或取消
	StatusClassCancelled = "cancelled"

	// StatusClassUnknown 无法识别的状态码
	StatusClassUnknown = "unknown"

	// MethodOther 非标准 HTTP 方法统一归入该值
	MethodOther = "OTHER"
)

// HTTPStatusClass 返回 HTTP 状态类标签值：1xx/2xx/3xx/4xx/5xx/unknown
func HTTPStatusClass(status int) string {
	if status < 100 || status > 599 {
		return StatusClassUnknown
	}
	return strconv.Itoa(status/100) + "xx"
}

// HTTPMethod 规范化请求方法，非标准方法收敛为 OTHER
func HTTPMethod(method string) string {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return m
	case "":
		return http.MethodGet
	default:
		return MethodOther
	}
}
