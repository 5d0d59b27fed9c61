package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Mexidense/ppd/docs"
	"github.com/Mexidense/ppd/internal/config"
	"github.com/Mexidense/ppd/internal/database"
	"github.com/Mexidense/ppd/internal/database/migration"
	handlers "github.com/Mexidense/ppd/internal/http/handler"
	"github.com/Mexidense/ppd/internal/http/middleware"
	"github.com/Mexidense/ppd/internal/logging"
	"github.com/Mexidense/ppd/internal/otel"
	"github.com/Mexidense/ppd/internal/payment"
	"github.com/Mexidense/ppd/internal/repository/postgres"
	"github.com/Mexidense/ppd/internal/service"
	"github.com/Mexidense/ppd/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// @title Pay-Per-Document API
// @version 1.0
// @description Publish documents and sell access to them with BSV payments.
// @BasePath /
func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Location(), logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exit", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The identity key gates everything else: no key, no payments.
	identity, err := payment.NewIdentity(cfg.Payment.ServerPrivateKey, cfg.Payment.Network)
	if err != nil {
		return err
	}
	logger.Info("identity_loaded", "identity_key", identity.PublicKeyHex(), "network", cfg.Payment.Network)

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		return err
	}

	objStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := database.RegisterPoolMetrics(reg, db); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}
	paymentMetrics, err := payment.NewMetrics(reg)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	prefixes, err := payment.NewPrefixIssuer(identity)
	if err != nil {
		return err
	}
	verifier := payment.NewVerifier(identity, prefixes, logger, paymentMetrics)

	docRepo := postgres.NewDocumentPostgres(db)
	purchaseRepo := postgres.NewPurchasePostgres(db)
	docSvc := service.NewDocumentService(objStore, docRepo, logger)
	purchaseSvc := service.NewPurchaseService(docRepo, purchaseRepo, prefixes, verifier, paymentMetrics, logger)
	accessSvc := service.NewAccessService(docSvc, purchaseRepo, objStore, cfg.Payment.ContentURLTTL, logger)

	app := handlers.NewApp(handlers.Limits{
		BodyBytes:          cfg.UploadMaxBytes,
		PaymentHeaderBytes: cfg.PaymentHeaderMaxBytes,
	})

	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(httpMetrics.Handler())
	app.Use(middleware.Logger(logger))

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:            db,
		Documents:     docSvc,
		Purchases:     purchaseSvc,
		Access:        accessSvc,
		IdentityKey:   identity.PublicKeyHex(),
		Network:       cfg.Payment.Network,
		PublicBaseURL: cfg.PublicBaseURL,
		Gatherer:      reg,
		PurchaseLimit: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Handler(),
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", ":"+cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
