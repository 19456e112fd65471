package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	auth "github.com/goliatone/go-contacts-auth"
	"github.com/goliatone/go-contacts-auth/activitymap"
	"github.com/goliatone/go-contacts-auth/internal/config"
	"github.com/goliatone/go-contacts-auth/mailer"
)

type App struct {
	config   *config.Config
	zap      *zap.Logger
	logger   auth.Logger
	bunDB    *bun.DB
	repo     auth.RepositoryManager
	auther   *auth.Auther
	registry   *prometheus.Registry
	controller *auth.AuthController
	srv        router.Server[*fiber.App]
}

func main() {
	configPath := flag.String("config", os.Getenv("APP_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := cfg.Log.NewLogger(cfg.App)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	if cfg.App.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(cfg.Redacted()))
		fmt.Println("============")
	}

	app := &App{
		config: cfg,
		zap:    zl,
		logger: auth.NewZapLogger(zl),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := WithPersistence(ctx, app); err != nil {
		zl.Fatal("persistence", zap.Error(err))
	}
	defer app.bunDB.Close()

	if err := WithMetrics(ctx, app); err != nil {
		zl.Fatal("metrics", zap.Error(err))
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		zl.Fatal("http auth", zap.Error(err))
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		zl.Fatal("http server", zap.Error(err))
	}

	errc := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", cfg.Server.HTTPAddr))
		errc <- app.srv.Serve(cfg.Server.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			zl.Error("server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.config.DB

	var db *bun.DB
	switch cfg.Driver {
	case config.DriverPostgres:
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return err
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return err
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	app.bunDB = db
	app.repo = auth.NewRepositoryManager(db, auth.WithManagerLogger(app.logger))
	app.repo.MustValidate()

	if err := app.repo.Ping(ctx); err != nil {
		return err
	}

	return app.repo.Migrate(ctx)
}

func WithMetrics(_ context.Context, app *App) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.registry = reg
	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	cfg := app.config.Server

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		fapp := router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:      app.config.App.Name,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			ErrorHandler: auth.NewErrorHandler(app.logger),
		}))

		fapp.Use(recover.New())
		fapp.Get(cfg.MetricsPath, adaptor.HTTPHandler(
			promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}),
		))
		app.controller.UseRateLimits(fapp, "/api")

		return fapp
	})

	auth.RegisterAuthRoutes(srv.Router().Group("/api"), app.controller)

	app.srv = srv
	return nil
}

func WithHTTPAuth(_ context.Context, app *App) error {
	cfg := app.config

	tokens, err := auth.NewTokenService(cfg.Auth,
		auth.WithLeeway(cfg.Auth.ClockLeeway),
		auth.WithTokenLogger(app.logger),
	)
	if err != nil {
		return err
	}

	hasher, err := auth.NewPasswordHasher(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	metricsSink, err := auth.NewPrometheusActivitySink(app.registry)
	if err != nil {
		return err
	}

	app.auther = auth.NewAuthenticator(app.repo.Users(), tokens).
		WithLogger(app.logger).
		WithPasswordHasher(hasher).
		WithActivitySink(auth.MultiActivitySink{
			activitymap.NewZapSink(app.zap),
			metricsSink,
		})

	var mail auth.VerificationMailer
	if cfg.SMTP.Enabled {
		m, err := mailer.New(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, mailer.WithLogger(app.logger))
		if err != nil {
			return err
		}
		mail = m
	} else {
		app.logger.Warn("smtp disabled, verification emails will not be sent")
	}

	registrar := auth.NewRegistrar(app.repo.Users(), app.auther, mail).
		WithLogger(app.logger).
		WithHashid(cfg.Auth.UseHashid)

	app.controller = auth.NewAuthController(
		app.auther,
		registrar,
		cfg.Auth,
		app.repo.Users(),
		app.repo,
		auth.WithControllerLogger(app.logger),
		auth.WithRateLimit(cfg.RateLimit.Max, cfg.RateLimit.Window),
		auth.WithPublicURL(cfg.Server.PublicURL),
		auth.WithDebug(cfg.App.Debug),
	)

	return nil
}
