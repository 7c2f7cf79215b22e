package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/ridegate/adapters/accounts"
	"github.com/layer-3/ridegate/adapters/events"
	"github.com/layer-3/ridegate/adapters/store"
	"github.com/layer-3/ridegate/adapters/tokenizer"
	"github.com/layer-3/ridegate/internal/config"
	"github.com/layer-3/ridegate/ports"
	"github.com/layer-3/ridegate/service"
	transport "github.com/layer-3/ridegate/transport/http"
)

func main() {
	log := logrus.New()
	if level, err := logrus.ParseLevel(strings.ToLower(envOr("LOG_LEVEL", "info"))); err == nil {
		log.SetLevel(level)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	repo, err := accounts.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open accounts database: %v", err)
	}
	defer repo.Close()

	revocationStore, eventPub := buildStore(cfg, log)

	tok := tokenizer.NewJWTTokenizer(
		[]byte(cfg.AccessSecret),
		[]byte(cfg.RefreshSecret),
		cfg.AccessTTL,
		cfg.RefreshTTL,
	)

	authService := service.NewAuthService(repo, revocationStore, tok, eventPub, log, cfg.AccessTTL, cfg.RefreshTTL)

	router := transport.SetupRouter(transport.RouterConfig{
		Auth:         authService,
		Services:     cfg.Services,
		Log:          log,
		ProxyTimeout: cfg.ProxyTimeout,
		ProbeTimeout: cfg.ProbeTimeout,
		CORSOrigins:  []string{cfg.CORSOrigin},

		GeneralLimiter:    transport.NewRateLimiter(cfg.GeneralLimit.Window, cfg.GeneralLimit.Max),
		CredentialLimiter: transport.NewRateLimiter(cfg.CredentialLimit.Window, cfg.CredentialLimit.Max).SkipSuccessful(),
		MoneyLimiter:      transport.NewRateLimiter(cfg.MoneyLimit.Window, cfg.MoneyLimit.Max),
		RideLimiter:       transport.NewRateLimiter(cfg.RideLimit.Window, cfg.RideLimit.Max),
	})

	log.WithField("port", cfg.Port).Info("starting gateway")
	for _, desc := range cfg.Services {
		log.WithFields(logrus.Fields{"service": desc.Name, "url": desc.BaseURL}).Info("registered backend")
	}

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildStore connects the revocation store and event publisher. Redis is
// the production path; when it is unreachable and the operator has opted
// in, the gateway runs in an explicit in-memory degraded mode with no
// cross-instance revocation.
func buildStore(cfg *config.Config, log *logrus.Logger) (ports.Store, ports.EventPublisher) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if !cfg.AllowMemoryStore {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.WithError(err).Warn("Redis unreachable, running DEGRADED with in-memory revocation store; revocations are not shared across instances")
		return store.NewMemoryStore(time.Minute), events.NopPublisher{}
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: client},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	return store.NewRedisStore(client), events.NewWatermillPublisher(publisher)
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
