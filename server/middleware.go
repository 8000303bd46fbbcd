package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/xerrors"
)

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

// Recovery 捕获处理链中的 panic，记录日志并返回 500
func Recovery(logger clog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic recovered",
			clog.Any("panic", recovered),
			clog.String("method", c.Request.Method),
			clog.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal Server Error"})
	})
}

// RequestID 透传或生成请求 ID，写回响应头并放入请求上下文
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(clog.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// codeInternal 处理器未标注错误码时使用
const codeInternal = "INTERNAL"

// AccessLog 以 debug 级别记录每个请求
// 处理器挂到 c.Errors 上的错误按错误码以 error 级别逐条记录
func AccessLog(logger clog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		for _, e := range c.Errors {
			code := xerrors.GetCode(e.Err)
			if code == "" {
				code = codeInternal
			}
			logger.ErrorContext(c.Request.Context(), "request failed",
				clog.String("method", c.Request.Method),
				clog.String("path", c.Request.URL.Path),
				clog.ErrorWithCode(e.Err, code))
		}
		logger.DebugContext(c.Request.Context(), "request",
			clog.String("method", c.Request.Method),
			clog.String("path", c.Request.URL.Path),
			clog.Int("status", c.Writer.Status()),
			clog.Duration("duration", time.Since(start)))
	}
}
