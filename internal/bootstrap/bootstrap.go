package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/scholarstream/api/internal/app/controllers"
	appMigrations "github.com/scholarstream/api/internal/app/migrations"
	appRepos "github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/app/repositories/memory"
	appRoutes "github.com/scholarstream/api/internal/app/routes"
	appServices "github.com/scholarstream/api/internal/app/services"
	"github.com/scholarstream/api/internal/config"
	"github.com/scholarstream/api/internal/db"
	appMiddleware "github.com/scholarstream/api/internal/middleware"
	"github.com/scholarstream/api/internal/pkg/cache"
	"github.com/scholarstream/api/internal/pkg/events"
	"github.com/scholarstream/api/internal/pkg/helpers"
	"github.com/scholarstream/api/internal/pkg/identity"
	"github.com/scholarstream/api/internal/pkg/logger"
	"github.com/scholarstream/api/internal/pkg/metrics"
	"github.com/scholarstream/api/internal/pkg/payment"
	"github.com/scholarstream/api/internal/seed"
)

const rateLimiterCleanupInterval = time.Minute

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	Services       *appServices.Services
	Controllers    *appControllers.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	RateLimiter    *appMiddleware.RateLimiter
	Verifier       identity.Verifier
	Gateway        payment.Gateway
	Cache          cache.Store
	Publisher      events.Publisher
	Logger         zerolog.Logger

	closers []func() error
	stop    chan struct{}
}

// Close releases every resource opened by BuildDependencies, newest first
func (d *Dependencies) Close() error {
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	var errs error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = errors.Join(errs, d.closers[i]())
	}
	d.closers = nil
	return errs
}

func (d *Dependencies) onClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(filepath.Join("configs", "config.yaml"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.EqualFold(cfg.Logging.Format, "text"),
		Service: "scholarstream-api",
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase selects the store. Postgres is migrated on start; the memory
// driver keeps everything in process.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*appRepos.Repositories, func() error, error) {
	if cfg.Database.Driver == "memory" {
		lgr.Warn().Msg("Using in-memory store, data is lost on restart")
		return memory.NewRepositories(), func() error { return nil }, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(database.Pool).Migrate(ctx, appMigrations.Files()); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	closer := func() error {
		database.Close()
		return nil
	}
	return appRepos.NewRepositories(database.Pool), closer, nil
}

// SetupCache connects to Redis when configured, otherwise returns an in-process store
func SetupCache(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (cache.Store, func() error, error) {
	if cfg.Redis.Addr == "" {
		lgr.Info().Msg("Redis not configured, using in-process cache")
		return cache.NewMemoryStore(), func() error { return nil }, nil
	}

	client, err := cache.Connect(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connected")
	return cache.NewRedisStore(client, "scholarstream:"), client.Close, nil
}

// SetupPublisher returns a Kafka publisher, or a no-op one without brokers
func SetupPublisher(cfg *config.Config, lgr zerolog.Logger) (events.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		lgr.Info().Msg("Kafka not configured, lifecycle events are not published")
		return events.NoopPublisher{}, nil
	}

	publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		PublishTimeout: helpers.ParseDuration(cfg.Kafka.PublishTimeout, events.DefaultPublishTimeout),
	})
	if err != nil {
		return nil, err
	}
	lgr.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher ready")
	return publisher, nil
}

// BuildDependencies initializes stores, external clients, services and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (_ *Dependencies, err error) {
	deps := &Dependencies{Logger: lgr, stop: make(chan struct{})}
	defer func() {
		if err != nil {
			_ = deps.Close()
		}
	}()

	repos, closeDB, err := SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		return nil, err
	}
	deps.onClose(closeDB)
	deps.Repos = repos

	if err := seed.EnsureAdmin(ctx, repos.UserRepository, cfg.Seed.AdminEmail, cfg.Seed.AdminName, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to seed admin user, proceeding anyway...")
	}

	store, closeCache, err := SetupCache(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup cache: %w", err)
	}
	deps.onClose(closeCache)
	deps.Cache = store

	publisher, err := SetupPublisher(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup event publisher: %w", err)
	}
	deps.onClose(publisher.Close)
	deps.Publisher = publisher

	verifier, err := identity.NewFirebaseVerifier(identity.FirebaseConfig{
		ProjectID: cfg.Firebase.ProjectID,
		CertsURL:  cfg.Firebase.CertsURL,
		Timeout:   helpers.ParseDuration(cfg.Firebase.Timeout, 5*time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup identity verifier: %w", err)
	}
	deps.Verifier = verifier

	if cfg.Stripe.SecretKey == "" {
		lgr.Warn().Msg("Stripe secret key not set, checkout requests will fail")
	}
	if cfg.Stripe.WebhookSecret == "" {
		lgr.Warn().Msg("Stripe webhook secret not set, webhook events will be rejected")
	}
	deps.Gateway = payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
		ProductName:   cfg.Stripe.ProductName,
		FrontendURL:   cfg.Stripe.FrontendURL,
		Timeout:       helpers.ParseDuration(cfg.Stripe.Timeout, 10*time.Second),
	})

	deps.Services = appServices.NewServices(appServices.Dependencies{
		Repositories: repos,
		Gateway:      deps.Gateway,
		Cache:        deps.Cache,
		Publisher:    deps.Publisher,
		Payment: appServices.PaymentConfig{
			CheckoutTTL: helpers.ParseDuration(cfg.Redis.CheckoutTTL, 30*time.Minute),
			EventTTL:    helpers.ParseDuration(cfg.Redis.EventTTL, 72*time.Hour),
		},
		Logger: lgr,
	})

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.Verifier, deps.Services.Authorization)
	if cfg.RateLimit.RequestsPerSecond > 0 {
		deps.RateLimiter = appMiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		deps.RateLimiter.StartCleanup(rateLimiterCleanupInterval, deps.stop)
	}

	deps.Controllers = NewControllers(deps.Services, repos.Pinger)
	return deps, nil
}

// NewControllers builds the HTTP handlers over the services
func NewControllers(svc *appServices.Services, pinger appRepos.Pinger) *appControllers.Controllers {
	return &appControllers.Controllers{
		User:        appControllers.NewUserController(svc.UserService),
		Scholarship: appControllers.NewScholarshipController(svc.ScholarshipService),
		Review:      appControllers.NewReviewController(svc.ReviewService),
		Application: appControllers.NewApplicationController(svc.ApplicationService),
		Payment:     appControllers.NewPaymentController(svc.PaymentService),
		Health:      appControllers.NewHealthController(pinger),
	}
}

// NewEngine creates the gin engine with the shared middleware stack and routes.
// limiter may be nil.
func NewEngine(
	ctrl *appControllers.Controllers,
	authMiddleware *appMiddleware.AuthMiddleware,
	limiter *appMiddleware.RateLimiter,
	allowedOrigins []string,
	lgr zerolog.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(
		appMiddleware.Recovery(lgr),
		appMiddleware.RequestLogger(lgr),
		appMiddleware.CORS(allowedOrigins),
		metrics.GinMiddleware(),
	)
	if limiter != nil {
		router.Use(limiter.Handler())
	}

	appRoutes.SetupRouter(router, ctrl, authMiddleware)
	return router
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.EqualFold(cfg.Server.Mode, "production") {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	return NewEngine(deps.Controllers, deps.AuthMiddleware, deps.RateLimiter, cfg.CORS.AllowedOrigins, lgr)
}
