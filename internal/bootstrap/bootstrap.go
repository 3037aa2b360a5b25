package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/coursehub/internal/app/controllers"
	appMigrations "github.com/yigit/coursehub/internal/app/migrations"
	appRepos "github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/app/repositories/memory"
	mongoRepos "github.com/yigit/coursehub/internal/app/repositories/mongo"
	appRoutes "github.com/yigit/coursehub/internal/app/routes"
	appServices "github.com/yigit/coursehub/internal/app/services"
	"github.com/yigit/coursehub/internal/config"
	"github.com/yigit/coursehub/internal/db"
	appMiddleware "github.com/yigit/coursehub/internal/middleware"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	pkgAuth "github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"github.com/yigit/coursehub/internal/pkg/helpers"
	"github.com/yigit/coursehub/internal/pkg/logger"
	"github.com/yigit/coursehub/internal/pkg/mediaserver"
	"github.com/yigit/coursehub/internal/pkg/ratelimit"
	"github.com/yigit/coursehub/internal/seed"
)

const (
	startupTimeout      = 10 * time.Second
	rateLimitMemoryKeys = 10000
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	Services       *appServices.Services
	JWTService     *pkgAuth.JWTService
	FileStorage    *filestorage.LocalStorage
	AuthMiddleware *appMiddleware.AuthMiddleware
	RateLimiter    *appMiddleware.RateLimiter // nil when rate limiting is disabled
	Controllers    appRoutes.Controllers
	Logger         zerolog.Logger

	closers []func()
}

// Close releases every connection opened while building the dependencies
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase connects the configured driver and returns its repositories with a close func.
// Postgres runs pending migrations and mongo ensures its unique indexes.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*appRepos.Repositories, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		lgr.Info().Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(cfg, lgr)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, nil, err
		}
		lgr.Info().Msg("Database connection successfully established.")

		migrationsDir := cfg.Database.MigrationsDir
		if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
			database.Close()
			lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
			return nil, nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
		}

		lgr.Info().Msg("Running database migrations...")
		if err := appMigrations.NewMigrator(database.Pool, lgr).MigrateFromDirectory(ctx, migrationsDir); err != nil {
			database.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		return appRepos.NewRepositories(database, lgr), database.Close, nil

	case config.DriverMongo:
		lgr.Info().Msg("Establishing MongoDB connection...")
		database, err := db.NewMongoDB(cfg, lgr)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to MongoDB")
			return nil, nil, err
		}
		if err := mongoRepos.EnsureIndexes(ctx, database.Database); err != nil {
			database.Close()
			lgr.Error().Err(err).Msg("Failed to create MongoDB indexes")
			return nil, nil, fmt.Errorf("mongo index setup failed: %w", err)
		}

		return mongoRepos.NewRepositories(database, lgr), database.Close, nil

	case config.DriverMemory:
		lgr.Warn().Msg("Using in-memory storage, data is lost on restart")
		return memory.NewRepositories(memory.NewDB()), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// setupRateLimitStore prefers redis so every instance shares one window.
// An unreachable redis falls back to process memory.
func setupRateLimitStore(cfg *config.Config, lgr zerolog.Logger) (ratelimit.Store, func()) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryStore(rateLimitMemoryKeys), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := ratelimit.NewRedisStore(client)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, using in-memory rate limit counters")
		_ = client.Close()
		return ratelimit.NewMemoryStore(rateLimitMemoryKeys), func() {}
	}

	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Rate limit counters stored in redis")
	return store, func() {
		if err := client.Close(); err != nil {
			lgr.Error().Err(err).Msg("Failed to close redis client")
		}
	}
}

func rateLimitRule(name string, rule config.RateLimitRule) ratelimit.Rule {
	return ratelimit.Rule{
		Name:   name,
		Limit:  rule.Limit,
		Window: helpers.ParseDuration(rule.Window, time.Minute),
	}
}

// BuildDependencies initializes application services, middleware, and controllers.
func BuildDependencies(cfg *config.Config, repos *appRepos.Repositories, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Repos: repos, Logger: lgr}

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, filestorage.NewPolicy(filestorage.Limits{
		MaxVideoSize:    cfg.Upload.MaxVideoSize,
		MaxDocumentSize: cfg.Upload.MaxDocumentSize,
		MaxImageSize:    cfg.Upload.MaxImageSize,
	}), lgr.With().Str("component", "filestorage").Logger())
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
		RefreshMaxAge:  helpers.ParseDuration(cfg.JWT.RefreshMaxAge, 7*24*time.Hour),
	})
	hasher := pkgAuth.NewPasswordHasher(pkgAuth.BcryptCost)

	deps.Services = appServices.NewServices(repos, deps.JWTService, hasher, deps.FileStorage, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.Services.Auth, lgr.With().Str("component", "auth_middleware").Logger())

	if cfg.RateLimit.Enabled {
		store, closeStore := setupRateLimitStore(cfg, lgr)
		deps.closers = append(deps.closers, closeStore)
		deps.RateLimiter = appMiddleware.NewRateLimiter(ratelimit.NewLimiter(store), lgr.With().Str("component", "ratelimit").Logger())
	}

	deps.Controllers = appRoutes.Controllers{
		Auth:   appControllers.NewAuthController(deps.Services.Auth, lgr.With().Str("component", "auth_controller").Logger()),
		Course: appControllers.NewCourseController(deps.Services.Course, lgr.With().Str("component", "course_controller").Logger()),
		Media: appControllers.NewMediaController(
			deps.Services.Media,
			mediaserver.NewServer(lgr.With().Str("component", "mediaserver").Logger()),
			lgr.With().Str("component", "media_controller").Logger(),
		),
		Health: appControllers.NewHealthController(repos.Store, lgr.With().Str("component", "health").Logger()),
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	admin := seed.AdminAccount{Email: cfg.Seed.AdminEmail, Password: cfg.Seed.AdminPassword}
	if err := seed.CreateDefaultData(ctx, repos.UserRepository, hasher, admin, lgr); err != nil {
		// Log the error but don't fail the startup
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	} else if admin.Email != "" {
		if err := seed.VerifyAdmin(ctx, repos.UserRepository, admin.Email); err != nil {
			lgr.Warn().Err(err).Str("email", admin.Email).Msg("Configured admin email does not belong to an admin")
		}
	}

	return deps, nil
}

// ginMode maps server.mode onto the gin modes
func ginMode(mode string) string {
	switch strings.ToLower(mode) {
	case "release", "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	}
	return gin.DebugMode
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	mode := ginMode(cfg.Server.Mode)
	gin.SetMode(mode)
	lgr.Info().Str("mode", mode).Msg("Gin mode set")

	appMiddleware.ConfigureErrors(cfg.IsDevelopment())

	router := gin.New()
	router.Use(
		appMiddleware.Recovery(lgr),
		appMiddleware.RequestLogger(lgr.With().Str("component", "http").Logger()),
		appMiddleware.CORS(cfg.Server.FrontendURL),
	)

	appRoutes.SetupSwagger(router)

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, appRoutes.Options{
		RateLimiter: deps.RateLimiter,
		Rules: appRoutes.RateLimitRules{
			Global: rateLimitRule("global", cfg.RateLimit.Global),
			Auth:   rateLimitRule("auth", cfg.RateLimit.Auth),
			API:    rateLimitRule("api", cfg.RateLimit.API),
			PDF:    rateLimitRule("pdf", cfg.RateLimit.PDF),
		},
		RequestTimeout: helpers.ParseDuration(cfg.Server.RequestTimeout, 30*time.Second),
		UploadTimeout:  helpers.ParseDuration(cfg.Server.UploadTimeout, 10*time.Minute),
		MaxFileSize:    deps.FileStorage.Policy().MaxRequestSize(),
	})

	router.NoRoute(func(c *gin.Context) {
		appMiddleware.HandleAPIError(c, apperrors.NewCustomError(apperrors.ErrResourceNotFound, "Route not found"))
	})
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
