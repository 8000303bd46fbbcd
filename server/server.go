// Package server 组装 itemscope 的 HTTP 服务：中间件链、根路由、健康检查与指标暴露端点。
//
// 中间件顺序：Recovery → RequestID → Trace（可选）→ 请求指标 → AccessLog。
// 请求指标中间件不 recover，处理器 panic 时先记录 5xx 再由 Recovery 返回 500。
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/metrics"
	"github.com/ceyewan/itemscope/trace"
	"github.com/ceyewan/itemscope/xerrors"
)

// Pinger 健康检查依赖，通常为 db.DB
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouteRegistrar 业务路由注册函数
type RouteRegistrar func(r gin.IRouter)

// Option Server 选项
type Option func(*Server)

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithNamespace("server")
		}
	}
}

// WithRegistry 注入指标注册表
func WithRegistry(reg *metrics.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithHealthCheck 注入健康检查依赖
func WithHealthCheck(p Pinger) Option {
	return func(s *Server) {
		s.pinger = p
	}
}

// WithRoutes 注册业务路由
func WithRoutes(fns ...RouteRegistrar) Option {
	return func(s *Server) {
		s.routes = append(s.routes, fns...)
	}
}

// Server HTTP 服务
type Server struct {
	cfg      Config
	logger   clog.Logger
	registry *metrics.Registry
	pinger   Pinger
	routes   []RouteRegistrar

	engine     *gin.Engine
	httpSrv    *http.Server
	metricsSrv *http.Server
}

// New 创建 HTTP 服务并组装路由
func New(cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	s := &Server{cfg: c, logger: clog.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	if c.Metrics.Enabled && s.registry == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "metrics enabled but no registry given")
	}

	if err := s.buildEngine(); err != nil {
		return nil, err
	}

	s.httpSrv = &http.Server{
		Addr:              c.Addr,
		Handler:           s.engine,
		ReadTimeout:       c.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      c.WriteTimeout,
	}
	if c.Metrics.Enabled && c.Metrics.Port > 0 {
		mux := http.NewServeMux()
		mux.Handle(c.Metrics.Path, s.registry.Handler())
		s.metricsSrv = &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(c.Metrics.Port)),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s, nil
}

func (s *Server) buildEngine() error {
	engine := gin.New()
	engine.Use(Recovery(s.logger), RequestID())

	if s.cfg.ServiceName != "" {
		engine.Use(trace.GinMiddleware(s.cfg.ServiceName, []string{s.cfg.Metrics.Path, "/health"}))
	}

	if s.cfg.Metrics.Enabled {
		httpCfg := metrics.DefaultHTTPServerMetricsConfig()
		if len(s.cfg.Metrics.RequestBuckets) > 0 {
			httpCfg.DurationBuckets = s.cfg.Metrics.RequestBuckets
		}
		httpMetrics, err := metrics.NewHTTPServerMetrics(s.registry, httpCfg)
		if err != nil {
			return xerrors.Wrap(err, "create http metrics")
		}
		engine.Use(metrics.GinHTTPMiddleware(httpMetrics))
	}
	engine.Use(AccessLog(s.logger))

	engine.GET("/", s.root)
	engine.GET("/health", s.health)
	if s.cfg.Metrics.Enabled && s.cfg.Metrics.Port == 0 {
		engine.GET(s.cfg.Metrics.Path, gin.WrapH(s.registry.Handler()))
	}
	for _, fn := range s.routes {
		fn(engine)
	}

	s.engine = engine
	return nil
}

// Handler 返回业务 HTTP 处理器，用于测试或嵌入其他服务
func (s *Server) Handler() http.Handler {
	return s.engine
}

// MetricsHandler 返回独立端口上的暴露端点处理器，未配置独立端口时返回 nil
func (s *Server) MetricsHandler() http.Handler {
	if s.metricsSrv == nil {
		return nil
	}
	return s.metricsSrv.Handler
}

// Run 启动服务并阻塞，ctx 结束后在 ShutdownTimeout 内优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		s.logger.InfoContext(ctx, name+" listening", clog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !xerrors.Is(err, http.ErrServerClosed) {
			errCh <- xerrors.Wrapf(err, "%s serve", name)
		}
	}

	go serve("http", s.httpSrv)
	if s.metricsSrv != nil {
		go serve("metrics", s.metricsSrv)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	s.logger.Info("shutting down", clog.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	errs := []error{runErr, s.httpSrv.Shutdown(shutdownCtx)}
	if s.metricsSrv != nil {
		errs = append(errs, s.metricsSrv.Shutdown(shutdownCtx))
	}
	return xerrors.Combine(errs...)
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Items CRUD API"})
}

func (s *Server) health(c *gin.Context) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "health check failed", clog.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
