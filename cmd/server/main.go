package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"login-portal/internal/config"
	"login-portal/internal/domain"
	apphttp "login-portal/internal/http"
	"login-portal/internal/repository"
	"login-portal/internal/repository/memory"
	"login-portal/internal/repository/redisstore"
	"login-portal/internal/repository/sqlite"
	"login-portal/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := configureLogger(logger, cfg); err != nil {
		logger.Fatalf("configure logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildSessionStore(cfg)
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}
	defer closeStore()

	if err := store.Init(ctx); err != nil {
		logger.Fatalf("init session store: %v", err)
	}
	logger.Infof("using %s session store", cfg.Session.Driver)

	secret := strings.TrimSpace(cfg.Session.Secret)
	if secret == "" {
		secret = randomKey()
		logger.Warn("session.secret not set, using a random key; sessions will not survive a restart")
	}

	verifier := service.NewStaticVerifier(domain.Credentials{
		Username: cfg.Auth.Username,
		Password: cfg.Auth.Password,
	})
	login := service.NewLoginController(verifier, store, service.LoginOptions{Logger: logger})
	tools := service.NewToolService(service.ToolOptions{UploadDir: cfg.Upload.Dir, Logger: logger})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.Upload.MaxBytes
	handler := apphttp.NewHandler(apphttp.Config{
		Cookies:        apphttp.NewSessionCookies(cfg.Session.CookieName, secret, cfg.Session.Secure),
		Logger:         logger,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, login, tools)
	handler.RegisterRoutes(router)

	var root http.Handler = router
	if cfg.CSRF.Enabled {
		key := strings.TrimSpace(cfg.CSRF.Key)
		if key == "" {
			key = randomKey()
		}
		root = apphttp.CSRFProtection(key, cfg.Session.Secure)(router)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Log.Format) {
	case "", "text":
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}
	return nil
}

func buildSessionStore(cfg config.Config) (repository.SessionStore, func(), error) {
	switch strings.ToLower(cfg.Session.Driver) {
	case "", repository.DriverMemory:
		store := memory.NewSessionStore()
		return store, func() { _ = store.Close() }, nil

	case repository.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		store := sqlite.NewSessionStore(db)
		return store, func() {
			_ = store.Close()
			_ = db.Close()
		}, nil

	case repository.DriverRedis:
		store, err := redisstore.NewSessionStore(redisstore.Config{
			Addr:      cfg.Redis.Addr,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Prefix:    cfg.Redis.Prefix,
			Retention: cfg.Session.Retention,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
}

func randomKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random key: %v", err))
	}
	return hex.EncodeToString(buf)
}
