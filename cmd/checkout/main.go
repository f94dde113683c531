package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/vhoangnguyen/checkoutflow/internal/api"
	"github.com/vhoangnguyen/checkoutflow/internal/backend"
	"github.com/vhoangnguyen/checkoutflow/internal/boundary"
	"github.com/vhoangnguyen/checkoutflow/internal/cart"
	"github.com/vhoangnguyen/checkoutflow/internal/checkoutform"
	"github.com/vhoangnguyen/checkoutflow/internal/messaging"
	"github.com/vhoangnguyen/checkoutflow/internal/payment"
	"github.com/vhoangnguyen/checkoutflow/internal/pricing"
	"github.com/vhoangnguyen/checkoutflow/internal/shipping"
	"github.com/vhoangnguyen/checkoutflow/internal/telemetry"
	"github.com/vhoangnguyen/checkoutflow/internal/voucher"
)

const defaultProvincesAPIURL = "https://provinces.open-api.vn/api"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "checkout", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("checkout", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		logger.Error("BACKEND_URL environment variable is required")
		os.Exit(1)
	}

	provincesAPIURL := os.Getenv("PROVINCES_API_URL")
	if provincesAPIURL == "" {
		provincesAPIURL = defaultProvincesAPIURL
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var publisher payment.Publisher
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer := messaging.NewProducer(brokers, messaging.TopicOrderPlaced)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	httpClient := telemetry.NewHTTPClient(10 * time.Second)

	storefront := backend.NewClient(backendURL, httpClient, logger)
	provinces := boundary.NewClient(provincesAPIURL, httpClient, logger)
	resolver := shipping.NewResolver()

	carts := cart.NewStore(storefront, logger)
	repricer := pricing.NewRepricer(carts, storefront, resolver, logger)
	vouchers := voucher.NewApplier(repricer, logger)
	forms := checkoutform.NewService(checkoutform.NewRepository(db), storefront, provinces, resolver, logger)

	submitter, err := payment.NewSubmitter(repricer, forms, vouchers, carts, storefront, publisher, logger)
	if err != nil {
		logger.Error("failed to create submitter", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(carts, vouchers, forms, resolver, submitter, logger)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "checkout",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting checkout service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
