package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/housetab/housetab/docs"
	"github.com/housetab/housetab/internal/config"
	"github.com/housetab/housetab/internal/database"
	"github.com/housetab/housetab/internal/house"
	"github.com/housetab/housetab/internal/item"
	"github.com/housetab/housetab/internal/ledger"
	"github.com/housetab/housetab/internal/negotiation"
	"github.com/housetab/housetab/internal/realtime"
	"github.com/housetab/housetab/pkg/logging"
	mw "github.com/housetab/housetab/pkg/middleware"
)

// houseCodeResolver adapts the house service so the event stream can place
// each subscriber on their house channel.
type houseCodeResolver struct {
	houses *house.Service
}

func (r houseCodeResolver) HouseCode(req *http.Request, userID int64) (string, error) {
	u, err := r.houses.GetUser(req.Context(), userID)
	if err != nil {
		return "", err
	}
	return u.HouseCode, nil
}

// @title           HouseTab API
// @version         1.0
// @description     Household shared-expense tracking with settlement negotiation.
// @BasePath        /api/v1
func main() {
	logging.Setup()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Realtime hub, shared by every feature that publishes events
	hub := realtime.NewHub()

	// House feature
	houseRepo := house.NewRepository(db)
	houseService := house.NewService(houseRepo)
	houseHandler := house.NewHandler(houseService)

	// Item feature
	itemRepo := item.NewRepository(db)
	itemService := item.NewService(itemRepo, houseService, hub)
	itemHandler := item.NewHandler(itemService)

	// Ledger feature
	ledgerRepo := ledger.NewRepository(db)
	ledgerHandler := ledger.NewHandler(ledgerRepo, houseService)

	// Negotiation engine, mounted once per kind
	negotiationRepo := negotiation.NewRepository(db)
	negotiationService := negotiation.NewService(
		negotiationRepo, itemRepo, ledgerRepo, houseService,
		database.NewRunner(db), hub, cfg.NegotiationTTL,
	)
	negotiationHandler := negotiation.NewHandler(negotiationService)

	// Event stream
	realtimeHandler := realtime.NewHandler(hub, houseCodeResolver{houses: houseService})

	// Authoritative expiry sweep
	reaper := negotiation.NewReaper(negotiationService, cfg.ReaperInterval)
	go reaper.Run(ctx)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.DevAuth {
			slog.Warn("dev auth enabled, requests authenticate via X-Test-User-ID")
			r.Use(mw.TestUserMiddleware)
		} else {
			r.Use(mw.Auth(cfg.JWTSecret))
		}

		r.Mount("/houses", houseHandler.Routes())
		r.Mount("/items", itemHandler.Routes())
		r.Mount("/payments", ledgerHandler.Routes())
		r.Mount("/payment-approvals", negotiationHandler.Routes(negotiation.KindPaymentApproval))
		r.Mount("/settlements", negotiationHandler.Routes(negotiation.KindSettlement))
		r.Mount("/events", realtimeHandler.Routes())
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
