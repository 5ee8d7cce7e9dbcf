package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/reinacchi/eris-giveaways/internal/common/config"
	apperrors "github.com/reinacchi/eris-giveaways/internal/common/errors"
	"github.com/reinacchi/eris-giveaways/internal/common/logger"
	"github.com/reinacchi/eris-giveaways/internal/common/middleware"
	deliveryhttp "github.com/reinacchi/eris-giveaways/internal/features/giveaway/delivery/http"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/manager"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/policy"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/repository"
	databaserepo "github.com/reinacchi/eris-giveaways/internal/features/giveaway/repository/database"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/repository/jsonfile"
	redisrepo "github.com/reinacchi/eris-giveaways/internal/features/giveaway/repository/redis"
	"github.com/reinacchi/eris-giveaways/internal/platform/chatmem"
	redisplatform "github.com/reinacchi/eris-giveaways/internal/platform/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("eris-giveaways", cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open giveaway store")
	}

	// The in-memory chat binding backs local development; a bot process
	// embedding this server plugs a real platform client instead.
	platform := chatmem.New()

	mgr := manager.New(repo, platform, platform, policy.NewRegistry(), manager.Options{
		SweepInterval:    cfg.Giveaway.SweepInterval,
		EndedRetention:   cfg.Giveaway.EndedRetention,
		ReactionPageSize: cfg.Giveaway.ReactionPageSize,
		BotUserID:        cfg.Giveaway.BotUserID,
		DefaultReaction:  cfg.Giveaway.DefaultReaction,
	})

	// Mirror live entry signals into the in-memory platform so roll-time
	// reactor fetches see them.
	mgr.Subscribe(manager.EventEntrySignalAdded, func(_ manager.Event, p manager.Payload) {
		platform.UpsertMember(*p.Member)
		platform.AddReactor(p.Giveaway.MessageID, p.Giveaway.Reaction, p.Member.ID)
	})
	mgr.Subscribe(manager.EventEntrySignalRemoved, func(_ manager.Event, p manager.Payload) {
		platform.RemoveReactor(p.Giveaway.MessageID, p.Giveaway.Reaction, p.Member.ID)
	})
	mgr.Subscribe(manager.EventEnded, func(_ manager.Event, p manager.Payload) {
		logger.Info().
			Str("message_id", p.Giveaway.MessageID).
			Strs("winners", p.Winners).
			Msg("Giveaway ended")
	})

	if err := mgr.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load giveaways")
	}
	go mgr.Run(ctx)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		cors.New(cors.Config{
			AllowOrigins:     []string{cfg.Server.Origin},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	api := router.Group("/api/v1")
	deliveryhttp.NewGiveawayHandler(mgr).RegisterRoutes(api)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}

func openRepository(ctx context.Context, cfg *config.Config) (repository.GiveawayRepository, error) {
	switch cfg.Storage.Backend {
	case "file":
		return jsonfile.NewFileGiveawayRepository(cfg.Storage.FilePath), nil
	case "redis":
		client, err := redisplatform.Open(ctx,
			fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, apperrors.NewStorageError("redis connect", err)
		}
		return redisrepo.NewRedisGiveawayRepository(client), nil
	case "database":
		db, err := databaserepo.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, apperrors.NewStorageError("database open", err)
		}
		return databaserepo.NewDatabaseGiveawayRepository(db)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
