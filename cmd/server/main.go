package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/admissions-portal/portal/internal/config"
	"github.com/admissions-portal/portal/internal/handler"
	"github.com/admissions-portal/portal/internal/logger"
	"github.com/admissions-portal/portal/internal/middleware"
	"github.com/admissions-portal/portal/internal/queue"
	"github.com/admissions-portal/portal/internal/repository"
	"github.com/admissions-portal/portal/internal/router"
	"github.com/admissions-portal/portal/internal/service"
	"github.com/admissions-portal/portal/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Redis is optional; nil disables rate limiting and the catalog cache.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and catalog cache disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer rdb.Close()
	}

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewAMQPPublisher(cfg.RabbitURL, log)
		go queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogPath, log).Run(ctx)
	}

	cacheRDB := rdb
	if !cfg.CatalogCache.Enabled {
		cacheRDB = nil
	}
	accounts := service.NewAccounts(store, utils.NewPasswords(cfg.PasswordScheme, cfg.BcryptCost),
		service.AdminCredentials{Email: cfg.AdminEmail, Password: cfg.AdminPassword, UserID: cfg.AdminUserID}, log)
	admissions := service.NewAdmissions(store, events, log)
	catalog := service.NewCatalog(store, cacheRDB, service.CacheOptions{TTL: cfg.CatalogCache.TTL, Prefix: cfg.CatalogCache.Prefix}, log)
	master := service.NewMasterList(store, log)

	e := echo.New()
	e.HideBanner = true
	e.Renderer = handler.MustRenderer()
	e.Use(echomw.Recover())
	e.Use(middleware.Session(cfg.SessionSecret))
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(accounts, cfg.SessionSecret, cfg.SessionTTL, log),
		middleware.NewTokenBucket(cfg.RateLimit, rdb, log))
	router.RegisterApplicant(e, handler.NewApplicantHandler(admissions, catalog, master))
	router.RegisterAdmin(e, handler.NewAdminHandler(master, catalog, admissions, cfg.DashboardLimit, cfg.EmbedURL))

	addr := ":" + cfg.Port
	log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("backend", store.Backend()))

	errc := make(chan error, 1)
	go func() { errc <- e.Start(addr) }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
