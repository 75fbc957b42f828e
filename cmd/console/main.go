package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quartermaster-am/quartermaster/internal/api"
	"github.com/quartermaster-am/quartermaster/internal/app"
	"github.com/quartermaster-am/quartermaster/internal/audit"
	"github.com/quartermaster-am/quartermaster/internal/auth"
	"github.com/quartermaster-am/quartermaster/internal/console"
	"github.com/quartermaster-am/quartermaster/internal/identity"
	"github.com/quartermaster-am/quartermaster/internal/observability"
	"github.com/quartermaster-am/quartermaster/internal/platform/cache"
	"github.com/quartermaster-am/quartermaster/internal/platform/db"
	"github.com/quartermaster-am/quartermaster/internal/shared"
	"github.com/quartermaster-am/quartermaster/internal/view"
	"github.com/quartermaster-am/quartermaster/jobs"
)

// sessionTokens resolves the API bearer token for the signed-in session
// on every outbound request.
type sessionTokens struct {
	acquirer *identity.Acquirer
}

func (t sessionTokens) Token(ctx context.Context) (string, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return "", nil
	}
	res, err := t.acquirer.Acquire(ctx, sess.Account(), false)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	return res.AccessToken, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "quartermaster_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	tokenCache := identity.NewTokenCache(redisClient, cfg.SessionTTL)
	provider := identity.NewClient(identity.ClientConfig{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		Authority:    cfg.OIDCAuthority,
		RedirectURI:  cfg.OIDCRedirectURI,
	}, tokenCache, logger)
	scopes := identity.BuildScopes(cfg.APIAppID, cfg.APIScopeNames())
	acquirer := identity.NewAcquirer(provider, scopes, logger)
	directory := identity.NewDirectory(cfg.DirectoryBaseURL, provider, logger)
	dirCache := identity.NewDirectoryCache(redisClient, cfg.SessionTTL)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(provider, acquirer, directory, dirCache, jobClient, cfg.RequiredRoleNames(), logger)
	authHandler := auth.NewHandler(authService, templates, csrfManager, cfg.OIDCPostLogoutRedirectURI, logger)
	guard := auth.NewGuard(authService, templates, logger)

	apiClient := api.NewClient(cfg.APIBaseURL, sessionTokens{acquirer: acquirer}, logger)
	services := api.NewServices(apiClient)
	auditLogger := audit.NewLogger(dbpool, logger)

	descriptors := console.BuildDescriptors(apiClient, services)
	consoleHandler := console.NewHandler(descriptors, templates, csrfManager, authService, auditLogger, services, dirCache, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		Guard:          guard,
		ConsoleHandler: consoleHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
