// Package app wires configuration, storage, domain services, clients, and the
// HTTP server into a runnable checkout engine.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kukusoko/checkout-engine/internal/client/logistics"
	"github.com/kukusoko/checkout-engine/internal/client/mpesa"
	"github.com/kukusoko/checkout-engine/internal/domain/cart"
	"github.com/kukusoko/checkout-engine/internal/domain/checkout"
	"github.com/kukusoko/checkout-engine/internal/domain/voucher"
	"github.com/kukusoko/checkout-engine/internal/handler"
	"github.com/kukusoko/checkout-engine/internal/repository"
	"github.com/kukusoko/checkout-engine/pkg/health"
	"github.com/kukusoko/checkout-engine/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("logistics", 5*time.Second,
		health.HTTPReachableCheck(&http.Client{Timeout: 5 * time.Second}, cfg.LogisticsURL+"/livez"))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	voucherRepo := repository.NewVoucherRepository(pool)
	deliveryVoucherRepo := repository.NewDeliveryVoucherRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Boundary clients.
	quoter := logistics.NewClient(cfg.LogisticsURL, 10*time.Second)
	payments := mpesa.NewClient(cfg.Mpesa.GatewayURL, cfg.Mpesa.Shortcode, 30*time.Second)

	// Domain services.
	checkoutSvc := checkout.NewService(checkout.Deps{
		Products:         productRepo,
		CartValidator:    cart.NewValidator(productRepo),
		Quoter:           quoter,
		ProductVouchers:  voucher.NewProductValidator(voucherRepo),
		DeliveryVouchers: voucher.NewDeliveryValidator(deliveryVoucherRepo),
		ProductRepo:      voucherRepo,
		DeliveryRepo:     deliveryVoucherRepo,
		Orders:           orderRepo,
		Sessions:         sessionRepo,
		Payments:         payments,
		ManualPayment: checkout.ManualPaymentConfig{
			Paybill:       cfg.Mpesa.Paybill,
			AccountPrefix: cfg.Mpesa.AccountPrefix,
		},
	})

	// HTTP handlers.
	h := handler.NewHandler(productRepo, checkoutSvc, voucherRepo, deliveryVoucherRepo, sessionRepo)
	authMW := handler.APIKeyAuth(apikeyRepo, []byte(cfg.APIKeyPepper))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes(authMW)))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-API-Key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("checkout-api"),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
