package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/dashboard"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/events"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/upsell"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

type stores struct {
	products product.Repository
	orders   order.Repository
	close    func()
}

// openStores connects the configured document store and registers its
// readiness check.
func openStores(ctx context.Context, cfg *Config, hc *health.Health) (*stores, error) {
	if cfg.Store == StoreMemory {
		zctx.From(ctx).Warn("Using in-memory store, data is lost on restart")
		return &stores{
			products: memory.NewProductRepository(),
			orders:   memory.NewOrderRepository(),
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	hc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	return &stores{
		products: postgres.NewProductRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		close:    pool.Close,
	}, nil
}

// openPublisher dials the broker when one is configured.
func openPublisher(ctx context.Context, cfg AMQPConfig, hc *health.Health) (events.Publisher, func(), error) {
	if cfg.URL == "" {
		return events.Nop{}, func() {}, nil
	}
	pub, err := events.DialAMQP(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect broker")
	}
	hc.AddReadinessCheck("amqp", time.Second, health.PingCheck(pub), health.FailureThreshold(2))
	zctx.From(ctx).Info("Publishing change notifications", zap.String("exchange", cfg.Exchange))
	return events.WithTimeout(pub, cfg.PublishTimeout), func() {
		if err := pub.Close(); err != nil {
			zctx.From(ctx).Warn("Close broker connection", zap.Error(err))
		}
	}, nil
}

// Server is the fully wired HTTP stack.
type Server struct {
	Handler http.Handler
	Health  *health.Health

	closers []func()
}

// Close releases the store, broker and model connections in reverse order.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// NewServer connects every dependency and builds the routed, instrumented
// handler. The checkout rate limiter is swept until ctx is done.
func NewServer(ctx context.Context, cfg *Config, tp trace.TracerProvider, mp metric.MeterProvider) (_ *Server, rerr error) {
	lg := zctx.From(ctx)
	s := &Server{Health: health.New()}
	defer func() {
		if rerr != nil {
			s.Close()
		}
	}()
	s.Health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	st, err := openStores(ctx, cfg, s.Health)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, st.close)

	publisher, closePublisher, err := openPublisher(ctx, cfg.AMQP, s.Health)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closePublisher)

	generator, err := upsell.New(ctx, cfg.Upsell, tp)
	if err != nil {
		return nil, errors.Wrap(err, "create upsell generator")
	}
	s.closers = append(s.closers, func() { _ = generator.Close() })
	if !generator.Configured() {
		lg.Warn("Upsell generator disabled: no API key configured")
	}

	// Domain services.
	engine := order.NewEngine(st.products,
		coupon.NewTable(coupon.DefaultRules...),
		decimal.NewFromInt(cfg.ShippingFee),
	)
	orderService, err := order.NewService(engine, st.orders, order.ServiceConfig{
		StrictTransitions: cfg.StrictTransitions,
		Publisher:         publisher,
		Meter:             mp.Meter("storefront"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})
	go limiter.Run(ctx)

	h := handler.New(
		handler.Config{
			ImageBaseURL: cfg.ImageBaseURL,
			Checkout:     limiter.Middleware(),
		},
		handler.Services{
			Orders:    orderService,
			Products:  product.NewService(st.products, publisher),
			Customers: customer.NewService(st.orders),
			Dashboard: dashboard.NewService(st.orders, st.products),
			Upsell:    generator,
		},
	)

	mux := http.NewServeMux()
	s.Health.Register(mux)
	h.Register(mux)

	// The logger goes first so that the request id and every later
	// middleware log through it.
	s.Handler = httpmiddleware.Wrap(mux,
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Retry-After"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.Instrument("storefront-api", tp, mp),
		httpmiddleware.LogRequests(),
	)
	return s, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store),
		zap.Bool("strict_transitions", cfg.StrictTransitions),
	)

	srv, err := NewServer(ctx, cfg, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}
	defer srv.Close()

	healthSvc := srv.Health
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Upsell calls wait on the model.
		WriteTimeout:   cfg.Upsell.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler:        srv.Handler,
	}

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
