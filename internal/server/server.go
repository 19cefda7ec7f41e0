package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pixelfolio/apiserver/config"
	"github.com/pixelfolio/apiserver/internal/auth"
	"github.com/pixelfolio/apiserver/internal/db"
	"github.com/pixelfolio/apiserver/internal/handlers"
	"github.com/pixelfolio/apiserver/internal/mailer"
	"github.com/pixelfolio/apiserver/internal/mq"
	"github.com/pixelfolio/apiserver/internal/notify"
	"github.com/pixelfolio/apiserver/internal/services"
	"github.com/pixelfolio/apiserver/internal/storage"
	"github.com/pixelfolio/apiserver/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, router and the shared resources behind it.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *mq.Bus
	logger     *zap.SugaredLogger
	cancel     context.CancelFunc
}

// New constructs a Server with its full dependency graph: database,
// object storage, notification bus and the HTTP routing on top.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := newLogger(cfg.Env)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objectStore, err := newObjectStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	uploads := storage.NewStorage(objectStore)
	if err := uploads.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	bus, err := newBus(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	otpRepo := store.NewOTPRepository(dbConn)
	galleryRepo := store.NewGalleryRepository(dbConn)

	smtp := mailer.NewSMTP(cfg.SMTP, logger)
	dispatcher := notify.NewDispatcher(smtp, bus, logger)

	otpService := services.NewOTPService(otpRepo, dispatcher, cfg.OTP.TTL, logger)
	tokenIssuer := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	passwordHasher := auth.NewPasswordHasher()
	authService := services.NewAuthService(userRepo, otpService, tokenIssuer, passwordHasher)
	galleryService := services.NewGalleryService(galleryRepo, uploads, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, logger)
	})
	router.Route("/gallery", func(r chi.Router) {
		handlers.GalleryRouter(r, galleryService, handlers.RequireAuth(tokenIssuer), logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	go purgeLoop(bgCtx, otpService, cfg.OTP.PurgeInterval, logger)
	if bus != nil {
		go func() {
			if err := dispatcher.Run(bgCtx); err != nil {
				logger.Errorw("notification consumer stopped", "error", err)
			}
		}()
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		logger:     logger,
		cancel:     cancel,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Infow("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	s.cancel()
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newLogger(env string) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "dev" || env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func newObjectStorage(ctx context.Context, cfg config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		return storage.NewGCSClient(ctx, cfg.GCS)
	default:
		return storage.NewMinioClient(cfg.Minio)
	}
}

// newBus returns nil when no broker is configured, which makes the
// dispatcher deliver mail directly.
func newBus(ctx context.Context, cfg config.Config) (*mq.Bus, error) {
	switch cfg.MQ.Backend {
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, nil
	}
}

func purgeLoop(ctx context.Context, otpService *services.OTPService, interval time.Duration, logger *zap.SugaredLogger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := otpService.PurgeExpired(ctx); err != nil {
				logger.Warnw("otp purge failed", "error", err)
			}
		}
	}
}
