package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/eglise-connect/platform/internal/adapters/legacy"
	"github.com/eglise-connect/platform/internal/audit"
	"github.com/eglise-connect/platform/internal/city"
	"github.com/eglise-connect/platform/internal/dashboard"
	"github.com/eglise-connect/platform/internal/export"
	"github.com/eglise-connect/platform/internal/group"
	"github.com/eglise-connect/platform/internal/identity"
	"github.com/eglise-connect/platform/internal/member"
	"github.com/eglise-connect/platform/internal/notification"
	"github.com/eglise-connect/platform/internal/scope"
	"github.com/eglise-connect/platform/internal/shared/auth"
	"github.com/eglise-connect/platform/internal/shared/config"
	"github.com/eglise-connect/platform/internal/shared/database"
	"github.com/eglise-connect/platform/internal/shared/events"
	"github.com/eglise-connect/platform/internal/shared/metrics"
	secmiddleware "github.com/eglise-connect/platform/internal/shared/middleware"
)

// App holds all application dependencies
type App struct {
	Config   *config.Config
	DB       *database.DB
	Bus      *events.Bus
	Legacy   *legacy.Client
	Notifier *notification.Service
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	app.DB = db
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	// EventStoreDB is optional; the platform runs without the event
	// stream and the audit trail when it is down.
	bus, err := events.NewBus(ctx, cfg.EventStore)
	if err != nil {
		fmt.Printf("Warning: EventStoreDB not available: %v\n", err)
		fmt.Println("Running without event streaming and audit trail...")
	} else {
		app.Bus = bus
		defer bus.Close()
	}

	if cfg.Legacy.Enabled {
		legacyClient, err := legacy.New(cfg.Legacy)
		if err != nil {
			fmt.Printf("Warning: legacy database not available: %v\n", err)
		} else {
			app.Legacy = legacyClient
			defer legacyClient.Close()
			fmt.Println("Legacy import adapter enabled")
		}
	}

	// Repositories
	identityRepo := identity.NewRepository(db.Pool)
	cityRepo := city.NewRepository(db.Pool)
	memberRepo := member.NewRepository(db.Pool)
	groupRepo := group.NewRepository(db.Pool)
	notificationRepo := notification.NewRepository(db.Pool)

	// Session store and scope resolver, shared by every scoped handler
	sessions := scope.NewStore(cfg.Auth.ImpersonationTTL)
	resolver := scope.NewResolver(sessions, identityRepo, cityRepo)

	// Notification worker pool
	providers := map[notification.Channel]notification.Provider{
		notification.ChannelPush:  notification.NewConsoleProvider("push"),
		notification.ChannelEmail: notification.NewConsoleProvider("email"),
		notification.ChannelSMS:   notification.NewConsoleProvider("sms"),
	}
	notifier := notification.NewService(notificationRepo, providers, cfg.Notifications)
	if err := notifier.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start notification service: %v\n", err)
		os.Exit(1)
	}
	app.Notifier = notifier
	defer notifier.Stop()

	// Handlers
	identityHandler := identity.NewHandler(identityRepo, cfg.Auth, sessions, app.Bus)
	cityHandler := city.NewHandler(cityRepo)
	scopeHandler := scope.NewHandler(resolver, app.Bus)
	memberHandler := member.NewHandler(memberRepo, resolver, app.Bus)
	groupHandler := group.NewHandler(groupRepo, resolver, app.Bus)
	dashboardHandler := dashboard.NewHandler(dashboard.NewService(memberRepo, groupRepo), resolver)
	notificationHandler := notification.NewHandler(notifier, notificationRepo, resolver)
	exportHandler := export.NewHandler(memberRepo, resolver, app.Legacy, app.Bus)

	rateLimiter := secmiddleware.NewIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	corsCfg := secmiddleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.InputSanitizer)
	r.Use(rateLimiter.Middleware)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(corsCfg))

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Login is the only unauthenticated endpoint
		r.Mount("/auth", identityHandler.PublicRoutes())

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth))

			r.Mount("/", identityHandler.Routes())
			r.Mount("/cities", cityHandler.Routes())
			r.Mount("/scope", scopeHandler.Routes())
			r.Mount("/members", memberHandler.Routes())
			r.Mount("/groups", groupHandler.Routes())
			r.Mount("/dashboard", dashboardHandler.Routes())
			r.Mount("/notifications", notificationHandler.Routes())
			r.Mount("/exports", exportHandler.Routes())

			// Audit trail lives in EventStoreDB, so it is only mounted
			// when the event bus is up
			if app.Bus != nil {
				auditRepo := audit.NewRepository(app.Bus.Client())
				if err := auditRepo.Initialize(ctx); err != nil {
					fmt.Printf("Warning: audit initialization failed: %v\n", err)
				}
				r.Mount("/audit", audit.NewHandler(auditRepo).Routes())

				auditSubscriber := audit.NewSubscriber(auditRepo, app.Bus)
				if err := auditSubscriber.Start(ctx); err != nil {
					fmt.Printf("Warning: audit subscriber failed to start: %v\n", err)
				} else {
					fmt.Println("Audit subscriber started")
				}
			}
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("Eglise Connect Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment:    %s\n", cfg.Server.Env)
	fmt.Printf("Server:         http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:            http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:         http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("EventStoreDB:   %s:%d\n", cfg.EventStore.Host, cfg.EventStore.Port)
	fmt.Printf("Legacy import:  %v\n", cfg.Legacy.Enabled)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Eglise Connect Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if err := app.DB.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["eventstore"] = "not ready: " + err.Error()
			} else {
				checks["eventstore"] = "ready"
			}
		} else {
			checks["eventstore"] = "not configured"
		}

		if app.Legacy != nil {
			if err := app.Legacy.Health(r.Context()); err != nil {
				checks["legacy"] = "not ready: " + err.Error()
			} else {
				checks["legacy"] = "ready"
			}
		} else {
			checks["legacy"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
