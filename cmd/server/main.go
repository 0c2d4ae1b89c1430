package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/bookshelf/internal/config"
	"github.com/Skotchmaster/bookshelf/internal/events"
	"github.com/Skotchmaster/bookshelf/internal/gate"
	"github.com/Skotchmaster/bookshelf/internal/httpserver"
	"github.com/Skotchmaster/bookshelf/internal/logging"
	mw "github.com/Skotchmaster/bookshelf/internal/middleware"
	"github.com/Skotchmaster/bookshelf/internal/middleware/csrf"
	"github.com/Skotchmaster/bookshelf/internal/openlibrary"
	"github.com/Skotchmaster/bookshelf/internal/password"
	"github.com/Skotchmaster/bookshelf/internal/repo"
	"github.com/Skotchmaster/bookshelf/internal/search"
	"github.com/Skotchmaster/bookshelf/internal/service"
	"github.com/Skotchmaster/bookshelf/internal/session"
	"github.com/Skotchmaster/bookshelf/internal/token"
	"github.com/Skotchmaster/bookshelf/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.Build(os.Stdout, logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.ServiceName,
	})
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_init_failed", "error", err)
		os.Exit(1)
	}
	store := repo.New(gdb)
	if err := store.Migrate(); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	sessionStore, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		logger.Error("session_store_failed", "error", err)
		os.Exit(1)
	}
	sessions := session.NewManager(sessionStore, []byte(cfg.SessionSecret), session.WithTimeout(cfg.SessionTimeout))
	tokens := token.NewManager(store, nil)

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers)
		if err != nil {
			logger.Error("kafka_init_failed", "error", err)
			os.Exit(1)
		}
		publisher = kp
	}

	books := &service.BookService{
		Repo:     store,
		External: openlibrary.NewClient(cfg.OpenLibraryURL),
		Events:   publisher,
	}
	if cfg.ESURL != "" {
		idx, err := search.NewIndex(ctx, search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword, Index: cfg.ESIndex})
		if err != nil {
			logger.Warn("es_unavailable", "reason", "catalog search uses the database", "error", err)
		} else {
			books.Index = idx
		}
	}

	users := &service.UserService{
		Repo:     store,
		Sessions: sessions,
		Policy:   password.Policy{MinLength: cfg.PasswordMin, MaxLength: cfg.PasswordMax},
		Hasher:   password.NewHasher(cfg.BcryptCost),
		Events:   publisher,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(mw.Common(logger)...)
	if cfg.CSRFEnabled {
		e.Use(csrf.Middleware(csrf.Config{
			Secure:    cfg.CookieSecure,
			SkipPaths: []string{"/health/live", "/health/ready"},
		}))
	}

	httpserver.Register(e, &httpserver.Deps{
		DB:          gdb,
		ContextPath: cfg.ContextPath,
		Gate:        gate.New(sessions, tokens, cfg.ContextPath),
		Users:       &httpserver.UserHTTP{Svc: users, Sessions: sessions, SecureCookies: cfg.CookieSecure},
		Books:       &httpserver.BookHTTP{Svc: books},
		Tokens:      &httpserver.TokenHTTP{Tokens: tokens, ValidDays: cfg.TokenValidDays, SecureCookies: cfg.CookieSecure},
		System: &httpserver.SystemHTTP{
			ServiceName: cfg.ServiceName,
			Port:        cfg.ServerPort,
			ContextPath: cfg.ContextPath,
			Started:     time.Now(),
			DB:          gdb,
		},
		Pages: &httpserver.PagesHTTP{ContextPath: cfg.ContextPath},
	})

	sweeper := &token.Sweeper{Tokens: tokens, Interval: cfg.TokenSweepInterval}
	go sweeper.Run(logging.IntoContext(ctx, logger))

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr, "context_path", cfg.ContextPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			stop()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	go func() {
		<-quit
		logger.Warn("force_exit")
		os.Exit(1)
	}()

	logger.Info("shutting_down")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}
	if err := closeSessions(); err != nil {
		logger.Error("session_store_close_error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func() error, error) {
	if cfg.SessionStore != "redis" {
		return session.NewMemoryStore(), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opts)
	rs := session.NewRedisStore(rdb, "session")
	if err := rs.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return rs, rdb.Close, nil
}
