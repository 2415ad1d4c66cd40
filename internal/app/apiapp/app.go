package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/glimmerapp/backend/internal/config"
	"github.com/glimmerapp/backend/internal/infra/report"
	s3infra "github.com/glimmerapp/backend/internal/infra/s3"
	"github.com/glimmerapp/backend/internal/jobs/reconcile"
	pgrepo "github.com/glimmerapp/backend/internal/repo/postgres"
	redrepo "github.com/glimmerapp/backend/internal/repo/redis"
	authsvc "github.com/glimmerapp/backend/internal/services/auth"
	chatsvc "github.com/glimmerapp/backend/internal/services/chat"
	matchessvc "github.com/glimmerapp/backend/internal/services/matches"
	mediasvc "github.com/glimmerapp/backend/internal/services/media"
	profilesvc "github.com/glimmerapp/backend/internal/services/profiles"
	ratesvc "github.com/glimmerapp/backend/internal/services/rate"
	swipesvc "github.com/glimmerapp/backend/internal/services/swipes"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	reporter   report.Reporter
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	reconcile  *reconcile.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	reporter := report.Nop()
	if cfg.Sentry.DSN != "" {
		if rep, err := report.NewSentry(cfg.Sentry.DSN, cfg.Env); err != nil {
			log.Warn("sentry init failed, error reporting disabled", zap.Error(err))
		} else {
			reporter = rep
		}
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, 24*time.Hour)

	swipeBudget := ratesvc.NewLimiter(rateRepo, "swipes", cfg.Limits.SwipesPerMinute, time.Minute)
	messageBudget := ratesvc.NewLimiter(rateRepo, "messages", cfg.Limits.MessagesPerMinute, time.Minute)

	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Pool:       pool,
		SwipeStore: swipeRepo,
		MatchStore: matchRepo,
		Budget:     swipeBudget,
		Reporter:   reporter,
		Logger:     log,
	})

	chatFeed := chatsvc.NewRedisFeed(redisClient, log)
	chatService := chatsvc.NewService(chatsvc.Dependencies{
		MatchStore:   matchRepo,
		MessageStore: messageRepo,
		Feed:         chatFeed,
		Budget:       messageBudget,
		Reporter:     reporter,
		Logger:       log,
	})

	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		MatchStore:   matchRepo,
		MessageStore: messageRepo,
	})

	profileService := profilesvc.NewService(profileRepo)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaProcessor := mediasvc.NewProcessor(cfg.Media.MaxBoxPX, cfg.Media.JPEGQuality)
	mediaService := mediasvc.NewService(profileRepo, mediaStorage, mediaProcessor)

	reconcileJob := reconcile.New(pool, matchRepo, 100, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		JWTManager:     jwtManager,
		ChatService:    chatService,
		MatchService:   matchesService,
		MediaService:   mediaService,
		ProfileService: profileService,
		SwipeService:   swipeService,
		Logger:         log,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		reporter:   reporter,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		reconcile:  reconcileJob,
		httpRouter: r,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.cfg.Jobs.ReconcileInterval > 0 {
		go a.reconcile.RunPeriodic(ctx, a.cfg.Jobs.ReconcileInterval)
	}

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	a.reporter.Flush(2 * time.Second)

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
