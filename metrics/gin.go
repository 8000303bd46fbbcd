package metrics

import (
	"github.com/gin-gonic/gin"

	"github.com/ceyewan/itemscope/xerrors"
)

// ErrHandlerPanicked 处理链发生 panic 时用于判定状态类
var ErrHandlerPanicked = xerrors.New("metrics: handler panicked")

// GinHTTPMiddleware 返回记录 HTTP 请求指标的 Gin 中间件
//
// 无论处理链正常返回、返回错误还是 panic，都会在 defer 中完成记录并将进行中请求数减一。
// 中间件不 recover：panic 原样向外传播，交给外层的 Recovery 处理。
func GinHTTPMiddleware(httpMetrics *HTTPServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpMetrics == nil {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			// 未命中路由时统一收敛，避免将原始 URL Path 作为标签导致高基数
			route = UnmatchedRoute
		}

		ctx := c.Request.Context()
		obs := httpMetrics.Start(ctx, c.Request.Method, route)

		completed := false
		defer func() {
			var err error
			switch {
			case !completed:
				err = ErrHandlerPanicked
			case len(c.Errors) > 0 && !c.Writer.Written():
				err = c.Errors.Last().Err
			}
			obs.Finish(ctx, c.Writer.Status(), err)
		}()

		c.Next()
		completed = true
	}
}
