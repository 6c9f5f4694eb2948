package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harentsoaR/wellness-api/internal/cache"
	"github.com/harentsoaR/wellness-api/internal/config"
	"github.com/harentsoaR/wellness-api/internal/handlers"
	"github.com/harentsoaR/wellness-api/internal/logger"
	"github.com/harentsoaR/wellness-api/internal/middleware"
	"github.com/harentsoaR/wellness-api/internal/models"
	"github.com/harentsoaR/wellness-api/internal/scheduling"
	"github.com/harentsoaR/wellness-api/internal/services"
	"github.com/harentsoaR/wellness-api/internal/store"
	"github.com/harentsoaR/wellness-api/internal/utils"
)

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, db, err := store.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()
	log.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")

	if cfg.AutoMigrate {
		if err := store.EnsureSchema(connectCtx, db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	userCache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	users := store.NewUserRepo(db, userCache, cfg.CacheTTL, log)
	doctors := store.NewDoctorRepo(db, users.Invalidate)
	labs := store.NewLabRepo(db, users.Invalidate)
	hospitals := store.NewHospitalRepo(db, users.Invalidate)

	notifier := services.NewNotificationService(cfg.TextbeltAPIKey, cfg.TextbeltURL, log)
	booking := scheduling.NewService(
		scheduling.Resolvers{
			models.KindDoctor:   doctors,
			models.KindLab:      labs,
			models.KindHospital: hospitals,
		},
		store.NewAppointmentRepo(db),
		users,
		notifier,
		log,
	)

	tokens, err := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	h, err := handlers.NewHandler(handlers.Deps{
		Appointments: booking,
		Users:        users,
		Doctors:      doctors,
		Labs:         labs,
		Hospitals:    hospitals,
		Tokens:       tokens,
		Phones:       utils.NewPhoneNormalizer(cfg.PhoneRegion),
		BcryptCost:   cfg.BcryptCost,
		Health: func(ctx context.Context) error {
			return store.Ping(ctx, db)
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(log), middleware.Recovery(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	notifier.Wait()
	return nil
}

// openCache returns the Redis cache when REDIS_URL is set and the in-process
// LRU otherwise.
func openCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (cache.Store, func(), error) {
	if cfg.RedisURL == "" {
		log.Info().Int("size", cfg.CacheSize).Msg("using in-process user cache")
		return cache.NewLRUStore(cfg.CacheSize, cfg.CacheTTL), func() {}, nil
	}
	rs, err := cache.NewRedisStore(ctx, cfg.RedisURL, "wellness:")
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	log.Info().Msg("using redis user cache")
	return rs, func() {
		if err := rs.Close(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}, nil
}
