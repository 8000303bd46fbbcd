package trace

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// GinMiddleware 返回 Gin 跟踪中间件
// skipPaths 中的路径（如 /metrics、/health）不产生 Span
func GinMiddleware(serviceName string, skipPaths []string, opts ...otelgin.Option) gin.HandlerFunc {
	if len(skipPaths) > 0 {
		skip := make(map[string]struct{}, len(skipPaths))
		for _, p := range skipPaths {
			skip[p] = struct{}{}
		}
		opts = append(opts, otelgin.WithFilter(func(r *http.Request) bool {
			_, ok := skip[r.URL.Path]
			return !ok
		}))
	}
	return otelgin.Middleware(serviceName, opts...)
}
