package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/api"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/auth"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/config"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/kafka"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/metrics"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/middleware"
	redisstore "github.com/TMB2003/Mini-Freelance-Marketplace/internal/redis"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository/memory"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/service"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/utils"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/ws"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl := utils.NewLogger(cfg.App.Env)
	defer zl.Sync()
	logger := zl.Sugar()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		repos       *repository.Repositories
		mongoClient *mongo.Client
	)
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		repos = memory.NewStore().Repositories()
	default:
		db, client, err := repository.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, logger)
		if err != nil {
			logger.Fatalw("mongo init failed", "error", err)
		}
		mongoClient = client
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			logger.Fatalw("mongo indexes failed", "error", err)
		}
		repos = repository.NewMongoRepositories(client, db, repository.TxOptions{
			MaxAttempts: cfg.Hire.MaxAttempts,
			MaxElapsed:  cfg.Hire.MaxElapsed,
		}, logger)
	}

	var (
		rdb         *redis.Client
		relay       ws.Relay
		presenceW   ws.Presence
		presenceR   api.PresenceReader
		authLimiter = middleware.LocalRateLimit(cfg.RateLimit.Limit, cfg.RateLimit.Window, middleware.ByIP)
	)
	if cfg.Redis.Enabled {
		rdb, err = redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalw("redis init failed", "addr", cfg.Redis.Addr, "error", err)
		}
		store := redisstore.NewStore(rdb, cfg.Redis.Prefix, cfg.Redis.PresenceTTL)
		presenceW, presenceR = store, store
		relay = redisstore.NewRelay(rdb, cfg.Redis.Prefix)
		authLimiter = middleware.NewRateLimiter(rdb, cfg.Redis.Prefix, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger).
			MiddlewareByKey(middleware.ByIP)
	}

	var (
		publisher service.EventPublisher
		producer  *kafka.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, kafka.BreakerConfig{
			MaxFailures: cfg.Kafka.BreakerFailures,
			Timeout:     cfg.Kafka.BreakerTimeout,
		}, logger)
		publisher = producer
	}

	hub := ws.NewHub(relay, logger)
	if presenceR == nil {
		presenceR = hub
	}
	go runHub(ctx, hub, logger)

	tokens := auth.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)
	bg := service.NewBackground(logger)

	chat := service.NewChatService(repos, hub, publisher, bg, service.ChatOptions{
		EventsTimeout: cfg.Hire.NotifyTimeout,
	}, logger)
	wsServer := ws.NewServer(hub, chat, presenceW, tokens, ws.Options{
		PingInterval:    cfg.WS.PingInterval,
		PongWait:        cfg.WS.PongWait,
		WriteWait:       cfg.WS.WriteWait,
		MaxMessageSize:  cfg.WS.MaxMessageSize,
		SendBuffer:      cfg.WS.SendBuffer,
		RatePerSecond:   cfg.WS.RatePerSecond,
		PresenceRefresh: cfg.Redis.PresenceTTL / 2,
	}, logger)

	app := api.New(api.Deps{
		Auth:        service.NewAuthService(repos.Users, tokens, logger),
		Gigs:        service.NewGigService(repos, logger),
		Bids:        service.NewBidService(repos, logger),
		Hire:        service.NewHireCoordinator(repos, hub, publisher, bg, service.HireOptions{NotifyTimeout: cfg.Hire.NotifyTimeout}, logger),
		Chat:        chat,
		Presence:    presenceR,
		Tokens:      tokens,
		WS:          wsServer,
		AuthLimiter: authLimiter,
	}, api.Options{
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  cfg.App.IdleTimeout,
		CORSOrigins:  cfg.App.CORSOrigins,
	}, logger)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infow("server listening", "addr", addr, "store", cfg.Store.Driver, "redis", cfg.Redis.Enabled, "kafka", producer != nil)
		if err := app.Listen(addr); err != nil {
			logger.Errorw("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warnw("http shutdown", "error", err)
	}
	bg.Wait()
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warnw("kafka close", "error", err)
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			logger.Warnw("mongo disconnect", "error", err)
		}
	}
	logger.Info("server stopped")
}

// runHub keeps the cross-instance subscription alive, reconnecting with
// backoff until ctx is cancelled.
func runHub(ctx context.Context, hub *ws.Hub, logger *zap.SugaredLogger) {
	b := backoff.WithContext(backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(0)), ctx)
	_ = backoff.RetryNotify(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errors.New("relay subscription ended")
		}
		return err
	}, b, func(err error, next time.Duration) {
		logger.Warnw("relay subscription lost", "error", err, "retry_in", next)
	})
}
