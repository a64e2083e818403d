package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/admitiq/internal/adapter/fsm"
	"github.com/neomorfeo/admitiq/internal/adapter/otel"
	"github.com/neomorfeo/admitiq/internal/adapter/river"
	"github.com/neomorfeo/admitiq/internal/adapter/sqlite"
	"github.com/neomorfeo/admitiq/internal/app"
	"github.com/neomorfeo/admitiq/internal/clock"
	"github.com/neomorfeo/admitiq/internal/config"
	"github.com/neomorfeo/admitiq/internal/domain"

	handler "github.com/neomorfeo/admitiq/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("admitiq: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.Config{
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.OTel.ServiceVersion,
		Environment:    cfg.OTel.Environment,
		Exporter:       cfg.OTel.Exporter,
	})
	if err != nil {
		return fmt.Errorf("setting up otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("preparing store: %w", err)
	}

	riverClient, err := river.Setup(ctx, db)
	if err != nil {
		return fmt.Errorf("setting up river: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			log.Printf("river stop: %v", err)
		}
	}()

	ledger := otel.NewTracingLedger(store.Ledger)
	notifier := otel.NewTracingNotifier(river.NewNotifier(riverClient))
	clk := clock.NewSystem()

	// --- Application ---
	eventSvc := app.NewEventService(store.Events, clk)
	regSvc := app.NewRegistrationService(
		store.Events, store.Registrations, ledger, fsm.New(),
		notifier, &linkPaymentProvider{baseURL: cfg.PaymentBaseURL}, &openEligibility{}, clk,
	)
	statsSvc := app.NewStatisticsService(store.Registrations, cfg.StatsTTL)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware(cfg.OTel.ServiceName, otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("admitiq", "0.1.0"))
	handler.Register(api, eventSvc, regSvc, statsSvc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("admitiq listening on :%s", cfg.Port)
		log.Printf("API docs: http://localhost:%s/docs", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	log.Println("stopped")
	return nil
}

// linkPaymentProvider builds payment links from a base URL. A real
// deployment would swap this for a gateway integration.
type linkPaymentProvider struct {
	baseURL string
}

func (p *linkPaymentProvider) CreatePaymentLink(_ context.Context, registrationID string, amount float64, currency, _ string) (string, error) {
	return fmt.Sprintf("%s/%s?amount=%.2f&currency=%s", p.baseURL, registrationID, amount, currency), nil
}

// openEligibility admits everyone. Deployments with membership or
// ticketing rules plug their own checker in here.
type openEligibility struct{}

func (*openEligibility) CheckEligibility(_ context.Context, _ domain.Event, _ string) error {
	return nil
}
