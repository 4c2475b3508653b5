package app

import (
	"errors"
	"fmt"

	"github.com/hkbharti77/AI-Counsellor/api"
	"github.com/hkbharti77/AI-Counsellor/config"
	"github.com/hkbharti77/AI-Counsellor/database"
	"github.com/hkbharti77/AI-Counsellor/router"
	"github.com/hkbharti77/AI-Counsellor/services"
	"github.com/hkbharti77/AI-Counsellor/services/cron"
	"github.com/hkbharti77/AI-Counsellor/utils/auth"
	"github.com/hkbharti77/AI-Counsellor/utils/cache"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
)

// Components is the wired service graph shared by the API server and the commands
type Components struct {
	Store      *database.GORMStore
	Redis      *cache.RedisCache
	Locker     services.StudentLocker
	Catalog    *services.CatalogService
	Dispatcher *services.EventDispatcher
	Selection  *services.SelectionService
	Tasks      *services.TaskService
	Cron       *cron.CronManager
}

// Close releases the connections held by the components
func (c *Components) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// Build connects to Postgres (and Redis when reachable), migrates and wires every service
func Build(env *config.EnviornmentVariable, log *logger.Logger) (*Components, error) {
	store, err := database.StartGORM()
	if err != nil {
		log.Error("check whether Postgres is running", "host", env.DB_HOST, "port", env.DB_PORT)
		return nil, err
	}

	if err := store.Init(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	c := &Components{Store: store}
	db := store.GetDB()

	redisCache, err := cache.NewRedisCache(env.REDIS_URL)
	if err != nil {
		log.Warn("redis unavailable, catalog cache disabled", "error", err)
	} else {
		c.Redis = redisCache
	}

	switch env.LOCK_BACKEND {
	case config.LockBackendRedis:
		if c.Redis == nil {
			c.Close()
			return nil, errors.New("LOCK_BACKEND=redis requires a reachable REDIS_URL")
		}
		c.Locker = services.NewRedisStudentLocker(c.Redis, services.StudentLockTTL(env.SELECTION_HOOK_TIMEOUT))
	default:
		c.Locker = services.NewLocalStudentLocker()
	}

	// A nil *RedisCache must not become a non-nil interface
	var catalogCache services.CatalogCache
	if c.Redis != nil {
		catalogCache = c.Redis
	}

	c.Catalog = services.NewCatalogService(db, catalogCache, log)
	generator := services.NewTemplateTaskGenerator(db, c.Catalog, log)
	c.Dispatcher = services.NewEventDispatcher(db, generator, env.OUTBOX_MAX_ATTEMPTS, log).
		WithSweepTimeout(env.SELECTION_HOOK_TIMEOUT)
	c.Selection = services.NewSelectionService(
		database.NewShortlistStore(db),
		c.Catalog,
		c.Locker,
		c.Dispatcher,
		services.SelectionConfig{HookTimeout: env.SELECTION_HOOK_TIMEOUT},
		log,
	)
	c.Tasks = services.NewTaskService(db, log)
	c.Cron = cron.NewCronManager(db, c.Dispatcher, c.Locker, log)

	log.Info("services wired",
		"lock_backend", env.LOCK_BACKEND,
		"catalog_cache", c.Redis != nil,
	)
	return c, nil
}

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(getEnv.LOG_MODE)
	if err != nil {
		return err
	}
	defer log.Sync()

	if getEnv.JWT_SECRET == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}

	components, err := Build(getEnv, log)
	if err != nil {
		return err
	}

	// Cron jobs are optional; a failure to start them must not stop the API
	cronStarted := false
	if getEnv.CRON_ENABLED {
		if err := components.Cron.Start(); err != nil {
			log.Warn("failed to start cron jobs", "error", err)
		} else {
			cronStarted = true
		}
	}

	// Defer closing connections and stopping cron jobs
	defer func() {
		if cronStarted {
			components.Cron.Stop()
		}
		components.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), log)

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: getEnv.JWT_SECRET,
		Issuer: getEnv.JWT_ISSUER,
	})

	deps := router.Dependencies{
		Store:             components.Store,
		JWTManager:        jwtManager,
		Catalog:           components.Catalog,
		Selection:         components.Selection,
		Tasks:             components.Tasks,
		AllowedOrigins:    getEnv.ALLOWED_ORIGINS,
		RateLimitRequests: 100,
	}
	if components.Redis != nil {
		deps.Cache = components.Redis
	}

	// Setup Routes
	router.SetupRoutes(server.GetEngine(), deps)

	return server.Run()
}
