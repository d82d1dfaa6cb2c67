package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/delordemm1/lms-api/internal/cache"
	"github.com/delordemm1/lms-api/internal/config"
	"github.com/delordemm1/lms-api/internal/database"
	"github.com/delordemm1/lms-api/internal/modules/course"
	"github.com/delordemm1/lms-api/internal/modules/user"
	"github.com/delordemm1/lms-api/internal/notification"
	"github.com/delordemm1/lms-api/internal/notification/templates"
	"github.com/delordemm1/lms-api/internal/server"
	"github.com/delordemm1/lms-api/internal/session"
)

// Options for the CLI.
type Options struct {
	Port int `help:"Port to listen on (overrides SERVER_PORT)" short:"p"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		cfg := config.Load()

		level := slog.LevelDebug
		if cfg.IsProduction() {
			level = slog.LevelInfo
		}
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		logger.Info("configuration loaded successfully", "env", cfg.Server.Env)

		// --- Database & Cache ---
		dbPool := database.NewPostgresPool(cfg.Database.URL)
		logger.Info("successfully connected to postgres database")
		redisClient := cache.NewRedisClient(cfg.Redis.URL)
		logger.Info("successfully connected to redis")

		// --- Shared infrastructure ---
		sessions := session.NewJWTMinter(session.Config{
			Secret:     cfg.JWT.Secret,
			Issuer:     cfg.JWT.Issuer,
			AccessTTL:  cfg.JWT.AccessTTL,
			RefreshTTL: cfg.JWT.RefreshTTL,
			PendingTTL: cfg.JWT.PendingTTL,
		}, session.NewRedisRevocationStore(redisClient))

		notifications := notification.NewService(logger,
			notification.NewSMTPEmailSender(notification.SMTPConfig{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			}, logger),
			notification.NewDummySMSSender(logger),
		)
		notifier := notification.NewNotifier(notifications,
			templates.NewEngine(templates.Config{Dir: cfg.Templates.Dir, Reload: cfg.Templates.Reload}, logger),
			notification.NotifierConfig{
				AppName:       cfg.App.Name,
				FrontendURL:   cfg.FrontendURL,
				EmailTokenTTL: cfg.Verification.EmailTokenTTL,
				CodeTTL:       cfg.Verification.CodeTTL,
			},
		)

		// --- Module Initialization (Bottom-Up) ---

		// User Module
		userRepo := user.NewRepository(dbPool)
		userService := user.NewService(&user.Config{
			Repo:         userRepo,
			Verifier:     user.NewVerifier(userRepo, cfg.Verification.EmailTokenTTL, cfg.Verification.CodeTTL),
			Sessions:     sessions,
			Mailer:       notifier,
			SMS:          notifier,
			SMSLimiter:   cache.NewRateLimiter(redisClient, "verify:rl:", cfg.Verification.ResendWindow, cfg.Verification.ResendMax),
			EmailLimiter: cache.NewRateLimiter(redisClient, "mail:rl:", cfg.Verification.ResendWindow, cfg.Verification.ResendMax),
			Logger:       logger,
			Config:       cfg,
		})
		sweeper := user.NewSweeper(userRepo, cfg.Verification.SweepInterval, logger)

		// Course Module
		courseService := course.NewService(course.NewRepository(dbPool), logger)

		router := server.New(cfg, logger, server.Deps{
			Users:    userService,
			Courses:  courseService,
			Sessions: sessions,
			Checks: map[string]func(context.Context) error{
				"postgres": dbPool.Ping,
				"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			},
		})

		port := options.Port
		if port == 0 {
			port, _ = strconv.Atoi(cfg.Server.Port)
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		sweepCtx, stopSweep := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			go sweeper.Run(sweepCtx)

			logger.Info("starting server", "port", port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed to start", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			stopSweep()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown failed", "error", err)
			}
			_ = redisClient.Close()
			dbPool.Close()
			logger.Info("server stopped")
		})
	})
	cli.Run()
}
