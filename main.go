package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/handlers"
	"github.com/CrowderSoup/project-tracker/logging"
	"github.com/CrowderSoup/project-tracker/services"
)

func main() {
	// Load environment variables from .env file
	cfg, err := LoadConfig(".env")
	if err != nil {
		logging.Logger.WithError(err).Fatal("Failed to load configuration")
	}

	logging.Init(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		System: "project-tracker",
	})

	// Initialize store
	store, err := openStore(cfg)
	if err != nil {
		logging.Logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Initialize notifications
	var mailer services.Mailer = services.LogMailer{}
	if cfg.EmailEnabled {
		mailer = services.NewSMTPMailer(services.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
	}
	notifier := services.NewEmailNotifier(mailer)
	dispatcher := services.NewDispatcher(notifier, 2, 100)
	dispatcher.Start()

	scheduler := services.NewDeadlineScheduler(store, notifier, cfg.DeadlineSchedule, cfg.DeadlineTimezone)
	if err := scheduler.Start(); err != nil {
		logging.Logger.WithError(err).Fatal("Failed to start deadline scheduler")
	}

	// Initialize services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTTTL)

	var limiter *handlers.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = handlers.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, cfg.TrustProxy)
		limiter.Start(time.Minute)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Store:          store,
		Hub:            hub,
		Auth:           authService,
		Users:          services.NewUserService(store, hub, authService, cfg.AdminEmail),
		Projects:       services.NewProjectService(store, hub),
		Tasks:          services.NewTaskService(store, hub, dispatcher),
		Deadlines:      scheduler,
		Development:    cfg.IsDevelopment(),
		AllowedOrigins: cfg.CORSOrigins,
		RateLimiter:    limiter,
	})

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Logger.WithFields(logrus.Fields{
			"port": cfg.Port,
			"env":  cfg.Env,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Logger.WithError(err).Error("Server shutdown failed")
	}

	if limiter != nil {
		limiter.Stop()
	}
	scheduler.Stop()
	dispatcher.Stop()
	hub.Stop()
}

func openStore(cfg Config) (database.Store, error) {
	if cfg.UseMemoryStore {
		logging.Logger.Warn("Using in-memory store, data will not persist")
		return database.NewMemoryStore(), nil
	}
	return database.OpenSQLStore(cfg.DatabasePath)
}
