package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/brokerpad/modules/account"
	"github.com/dmitrymomot/brokerpad/modules/billing"
	"github.com/dmitrymomot/brokerpad/pkg/config"
	"github.com/dmitrymomot/brokerpad/pkg/httpserver"
	"github.com/dmitrymomot/brokerpad/pkg/jwt"
	"github.com/dmitrymomot/brokerpad/pkg/logger"
	mongopkg "github.com/dmitrymomot/brokerpad/pkg/mongo"
	"github.com/dmitrymomot/brokerpad/pkg/ratelimiter"
	redispkg "github.com/dmitrymomot/brokerpad/pkg/redis"
	"github.com/dmitrymomot/brokerpad/pkg/requestid"
	"github.com/dmitrymomot/brokerpad/pkg/subscription"
	"github.com/dmitrymomot/brokerpad/svc/user"
)

type appConfig struct {
	Logger   logger.Config
	Server   httpserver.Config
	Mongo    mongopkg.Config
	Redis    redispkg.Config
	JWT      jwt.Config
	Razorpay subscription.RazorpayConfig

	RateLimitCapacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"30"`
	RateLimitRefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"30"`
	RateLimitRefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1m"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(cfg.Logger, logger.WithService("brokerpad"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := mongopkg.ConnectDatabase(ctx, cfg.Mongo)
	if err != nil {
		log.Error("mongo connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	redisClient, err := redispkg.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	users := user.NewStore(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Error("index creation failed", logger.Error(err))
		os.Exit(1)
	}

	catalog, err := subscription.NewCatalog(ctx, subscription.NewMongoSource(db))
	if err != nil {
		log.Error("plan catalog load failed", logger.Error(err))
		os.Exit(1)
	}

	gateway, err := subscription.NewRazorpayGateway(cfg.Razorpay)
	if err != nil {
		log.Error("razorpay client setup failed", logger.Error(err))
		os.Exit(1)
	}

	tokens, err := jwt.New(cfg.JWT)
	if err != nil {
		log.Error("jwt service setup failed", logger.Error(err))
		os.Exit(1)
	}

	svc := subscription.NewService(users, users, catalog, gateway, log)
	reconciler := subscription.NewReconciler(users, catalog, log)

	bucket, err := ratelimiter.NewBucket(ratelimiter.NewRedisStore(redisClient), ratelimiter.Config{
		Capacity:       cfg.RateLimitCapacity,
		RefillRate:     cfg.RateLimitRefillRate,
		RefillInterval: cfg.RateLimitRefillInterval,
	})
	if err != nil {
		log.Error("rate limiter setup failed", logger.Error(err))
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler(log,
		mongopkg.Healthcheck(db.Client()),
		redispkg.Healthcheck(redisClient),
	))

	r.Group(func(r chi.Router) {
		r.Use(ratelimiter.Middleware(bucket, ratelimiter.ByRealIP))

		r.Mount("/account", account.Router(account.Deps{
			Users:   users,
			Records: users,
			Tokens:  tokens,
			Log:     log,
		}))
		r.Mount("/billing", billing.Router(billing.Deps{
			Service:  svc,
			Store:    users,
			Catalog:  catalog,
			Identity: account.Identity,
			Auth:     jwt.Middleware(tokens),
			Log:      log,
		}))
	})

	// The gateway signs its own deliveries; the webhook stays outside
	// the per-IP limiter so retries are never throttled away.
	r.Post("/webhooks/razorpay", billing.WebhookHandler(cfg.Razorpay.WebhookSecret, reconciler, log))

	srv := httpserver.New(cfg.Server, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func healthHandler(log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "healthcheck failed", "error", err)
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
