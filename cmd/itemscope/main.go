// itemscope 条目 CRUD 服务：HTTP 请求指标、业务计数器与数据库连接池指标通过 /metrics 暴露。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/config"
	"github.com/ceyewan/itemscope/connector"
	"github.com/ceyewan/itemscope/db"
	"github.com/ceyewan/itemscope/events"
	"github.com/ceyewan/itemscope/item"
	"github.com/ceyewan/itemscope/metrics"
	"github.com/ceyewan/itemscope/server"
	"github.com/ceyewan/itemscope/trace"
	"github.com/ceyewan/itemscope/xerrors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "itemscope:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	loader, err := config.New(&config.Config{
		Defaults:    config.AppDefaults(),
		EnvBindings: config.AppEnvBindings(),
	})
	if err != nil {
		return err
	}
	if err := loader.Load(ctx); err != nil {
		return err
	}
	var cfg config.AppConfig
	if err := loader.Unmarshal(&cfg); err != nil {
		return err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := clog.New(&cfg.Log,
		clog.WithNamespace(cfg.App.Name),
		clog.WithStandardContext(),
		clog.WithTraceContext(),
	)
	if err != nil {
		return xerrors.Wrap(err, "init logger")
	}
	defer logger.Flush()
	go followLogLevel(ctx, loader, logger)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	traceShutdown, err := trace.Init(&cfg.Trace)
	if err != nil {
		return xerrors.Wrap(err, "init trace")
	}
	defer func() { _ = traceShutdown(context.Background()) }()

	// 注册冲突属于启动期错误，直接退出
	registry := metrics.NewRegistry(metrics.WithLogger(logger))
	if err := events.RegisterAppInfo(ctx, registry, cfg.App.Name, cfg.App.Version); err != nil {
		return err
	}
	recorder, err := events.NewRecorder(registry)
	if err != nil {
		return err
	}

	conn, err := connector.NewSQL(&cfg.Database, connector.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	if err := conn.Connect(ctx); err != nil {
		return err
	}

	dbOpts := []db.Option{db.WithLogger(logger), db.WithRegistry(registry)}
	if cfg.Trace.Enabled {
		dbOpts = append(dbOpts, db.WithTracer(otel.GetTracerProvider()))
	}
	database, err := db.New(conn, &cfg.DB, dbOpts...)
	if err != nil {
		return err
	}

	reporter, err := db.NewPoolReporter(registry, database.Stats, cfg.DB.PoolInterval, logger)
	if err != nil {
		return err
	}
	go reporter.Run(ctx)

	svc, err := item.NewService(database, item.WithHooks(recorder), item.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := svc.Migrate(ctx); err != nil {
		return err
	}

	srvCfg := &server.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Metrics:         cfg.Metrics,
	}
	if cfg.Trace.Enabled {
		srvCfg.ServiceName = cfg.Trace.ServiceName
	}
	srv, err := server.New(srvCfg,
		server.WithLogger(logger),
		server.WithRegistry(registry),
		server.WithHealthCheck(database),
		server.WithRoutes(item.NewHandler(svc).Register),
	)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "itemscope starting",
		clog.String("version", cfg.App.Version),
		clog.String("env", cfg.App.Env),
		clog.String("database", connector.MaskDSN(cfg.Database.DSN)))
	return srv.Run(ctx)
}

// followLogLevel 配置文件中的 log.level 变化时调整日志级别
func followLogLevel(ctx context.Context, loader config.Loader, logger clog.Logger) {
	ch, err := loader.Watch(ctx, "log.level")
	if err != nil {
		logger.Warn("watch log.level failed", clog.Error(err))
		return
	}
	for ev := range ch {
		raw, ok := ev.Value.(string)
		if !ok {
			continue
		}
		level, err := clog.ParseLevel(raw)
		if err != nil {
			logger.Warn("ignore invalid log level", clog.String("level", raw))
			continue
		}
		if err := logger.SetLevel(level); err != nil {
			logger.Warn("set log level failed", clog.Error(err))
			continue
		}
		logger.Info("log level changed", clog.String("level", level.String()))
	}
}
