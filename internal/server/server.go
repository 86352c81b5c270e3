package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farellandr/storefront/config"
	"github.com/farellandr/storefront/internal/checkout"
	"github.com/farellandr/storefront/internal/clients"
	"github.com/farellandr/storefront/internal/clock"
	"github.com/farellandr/storefront/internal/credentials"
	"github.com/farellandr/storefront/internal/handlers"
	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/logger"
	"github.com/farellandr/storefront/internal/middleware"
	"github.com/farellandr/storefront/internal/transient"
)

const shutdownTimeout = 10 * time.Second

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	clk := clock.NewSystem()
	deps := middleware.Dependencies{
		API:           clients.NewAPIClient(cfg.APIBaseURL, cfg.APITimeout),
		Indicators:    transient.NewIndicators(),
		Clock:         clk,
		Logger:        log,
		PublicBaseURL: cfg.PublicBaseURL,
	}
	defer deps.Indicators.Close()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}
	if db != nil {
		deps.Credentials = credentials.NewGormStore(db, helpers.NewSealer(cfg.CredentialsSecret), clk, log)
	} else {
		log.Warn("DB_HOST not set, credentials are kept in memory")
		deps.Credentials = credentials.NewMemoryStore(clk)
	}

	rdb, err := config.InitRedis(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		deps.Checkouts = checkout.NewRedisStore(rdb, cfg.CheckoutTTL)
	} else {
		log.Warn("REDIS_URL not set, checkouts are kept in memory")
		deps.Checkouts = checkout.NewMemoryStore(cfg.CheckoutTTL, clk)
	}

	r := NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("storefront listening", zap.String("addr", srv.Addr), zap.String("api", cfg.APIBaseURL))
		srvErr <- srv.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %v", err)
		}
		return nil
	case <-stopCtx.Done():
		log.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}

func NewRouter(cfg *config.Config, deps middleware.Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if deps.Logger != nil {
		r.Use(middleware.RequestLogger(deps.Logger))
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))

	setupRoutes(r, cfg, deps)
	return r
}

func setupRoutes(r *gin.Engine, cfg *config.Config, deps middleware.Dependencies) {
	r.GET("/health", handlers.Health)

	r.Use(middleware.DependenciesMiddleware(deps))
	r.Use(middleware.StorefrontSession(cfg.JWTSecret, cfg.Production()))
	r.Use(middleware.LoadAuthSession())

	public := r.Group("/v1")
	{
		public.GET("/categories", handlers.ListCategories)

		auth := public.Group("/auth")
		{
			auth.POST("/login", handlers.Login)
			auth.POST("/register", handlers.Register)
			auth.POST("/logout", handlers.Logout)
			auth.GET("/session", handlers.GetSession)
		}

		events := public.Group("/events")
		{
			events.GET("", handlers.ListEvents)
			events.GET("/:id", handlers.GetEvent)
			events.GET("/:id/share", handlers.GetEventShare)
			events.POST("/:id/share/copy", handlers.CopyEventShare)
			events.GET("/:id/countdown", handlers.EventCountdown)
		}

		checkouts := public.Group("/checkout")
		{
			checkouts.POST("", handlers.StartCheckout)
			checkouts.GET("/:id", handlers.GetCheckout)
			checkouts.PATCH("/:id/quantity", handlers.AdjustCheckoutQuantity)
			checkouts.PUT("/:id/batch", handlers.SelectCheckoutBatch)
			checkouts.POST("/:id/submit", handlers.SubmitCheckout)
			checkouts.POST("/:id/copy", handlers.CopyPaymentCode)
			checkouts.GET("/:id/qr.png", handlers.PaymentQRCode)
			checkouts.DELETE("/:id", handlers.DiscardCheckout)
		}
	}

	protected := r.Group("/v1/me")
	protected.Use(middleware.RequireLogin())
	{
		protected.GET("", handlers.GetProfile)
		protected.GET("/tickets", handlers.ListMyTickets)
		protected.POST("/tickets/:ticketId/copy", handlers.CopyTicketLink)
	}
}
