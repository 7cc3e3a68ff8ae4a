package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"readsy_backend/internal/config"
	"readsy_backend/internal/controller"
	"readsy_backend/internal/job"
	"readsy_backend/internal/repository"
	"readsy_backend/internal/service"
	"readsy_backend/internal/util"
	"readsy_backend/pkg/configwatcher"
	"readsy_backend/pkg/database"
	"readsy_backend/pkg/logger"
	"readsy_backend/pkg/monitoring"
	"readsy_backend/pkg/mq"
	"readsy_backend/pkg/security"
	"readsy_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigDir 配置文件目录，热更新监听其中的 config.yaml
const ConfigDir = "configs"

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	scheduler       *job.Scheduler
	publisher       mq.EventPublisher
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	refreshToken *repository.RefreshTokenRepository
	checkin      *repository.CheckinRepository
	book         *repository.BookRepository
	xp           *repository.XPRepository
	leaderboard  *repository.LeaderboardRepository
	shop         *repository.ShopRepository
}

type services struct {
	auth         *service.AuthService
	storage      *service.StorageService
	audio        *service.AudioService
	gamification *service.GamificationService
	checkin      *service.CheckinService
	user         *service.UserService
	leaderboard  *service.LeaderboardService
	shop         *service.ShopService
	snapshot     *job.SeasonSnapshotJob
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	gamification *controller.GamificationController
	checkin      *controller.CheckinController
	leaderboard  *controller.LeaderboardController
	shop         *controller.ShopController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		refreshToken: repository.NewRefreshTokenRepository(db),
		checkin:      repository.NewCheckinRepository(db),
		book:         repository.NewBookRepository(db),
		xp:           repository.NewXPRepository(db),
		leaderboard:  repository.NewLeaderboardRepository(db, rdb),
		shop:         repository.NewShopRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	s := &services{}
	var err error

	s.storage = service.NewStorageService(&cfg.Storage)
	s.audio = service.NewAudioService(s.storage)
	s.auth = service.NewAuthService(repos.user, repos.refreshToken, cfg)

	s.gamification, err = service.NewGamificationService(cfg.Gamification, repos.xp, repos.leaderboard, repos.user, a.publisher)
	if err != nil {
		return nil, err
	}

	s.checkin = service.NewCheckinService(repos.checkin, repos.book, s.gamification, cfg.Gamification)
	s.user = service.NewUserService(repos.user, s.checkin, s.gamification)
	s.leaderboard = service.NewLeaderboardService(repos.leaderboard, repos.user, cfg.Leaderboard.DefaultLimit)

	s.shop, err = service.NewShopService(repos.shop)
	if err != nil {
		return nil, err
	}

	s.snapshot = job.NewSeasonSnapshotJob(s.leaderboard, a.scheduler.Locker())
	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		user:         controller.NewUserController(s.user),
		gamification: controller.NewGamificationController(s.gamification),
		checkin:      controller.NewCheckinController(s.checkin, s.audio),
		leaderboard:  controller.NewLeaderboardController(s.leaderboard, s.snapshot),
		shop:         controller.NewShopController(s.shop),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window, security.ClientIPKey))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerConfigCallbacks 配置文件变更时更新经验规则
func (a *App) registerConfigCallbacks(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		applyConfig(s, cfg)
	})
}

// applyConfig 商品目录只在库里维护，重载配置时一并丢弃商品缓存
func applyConfig(s *services, cfg *config.Config) {
	s.shop.InvalidateItems()

	if err := s.gamification.UpdateConfig(cfg.Gamification); err != nil {
		logger.Log.Error("reject gamification config", zap.Error(err))
		return
	}
	s.checkin.UpdateRules(cfg.Gamification)
	logger.Log.Info("gamification config reloaded",
		zap.Int("maxLevel", cfg.Gamification.MaxLevel),
		zap.Int64("maxXP", cfg.Gamification.MaxXP),
		zap.String("curve", cfg.Gamification.Curve),
	)
}

func (a *App) startBackgroundTasks(ctx context.Context, s *services, cfg *config.Config) {
	if err := a.scheduler.Add(cfg.Leaderboard.SnapshotCron, s.snapshot); err != nil {
		logger.Log.Error("invalid leaderboard snapshot schedule",
			zap.String("spec", cfg.Leaderboard.SnapshotCron),
			zap.Error(err),
		)
	}
	if err := a.scheduler.Add("@daily", job.NewTokenCleanupJob(s.auth)); err != nil {
		logger.Log.Error("schedule token cleanup failed", zap.Error(err))
	}
	a.scheduler.Start()

	configFile := filepath.Join(ConfigDir, "config.yaml")
	if _, err := os.Stat(configFile); err != nil {
		logger.Log.Info("config file not found, hot reload disabled", zap.String("file", configFile))
		return
	}
	go func() {
		err := configwatcher.Watch(ctx, configFile, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("config watcher stopped", zap.Error(err))
		}
	}()
}

func newPublisher(cfg *config.EventsConfig) mq.EventPublisher {
	if !cfg.Enabled {
		return mq.NopPublisher{}
	}
	p, err := mq.NewPublisher(cfg.AMQPURL, cfg.Exchange)
	if err != nil {
		logger.Log.Warn("rabbitmq unavailable, level-up events disabled", zap.Error(err))
		return mq.NopPublisher{}
	}
	return p
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(context.Background(), &cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		scheduler: job.NewScheduler(rdb),
		publisher: newPublisher(&cfg.Events),
	}

	repos := app.initRepositories(db, rdb)
	services, err := app.initServices(repos, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	tp, err := tracing.Init(&cfg.Tracing)
	if err != nil {
		logger.Log.Error("Failed to initialize tracing", zap.Error(err))
	}
	app.tracer = tp

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.registerConfigCallbacks(services)
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.startBackgroundTasks(ctx, a.services, a.Config)

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(shutdownCtx)
	logger.Log.Info("Server exiting")
}

// Close 释放后台任务与外部连接
func (a *App) Close(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}
	if a.services != nil && a.services.shop != nil {
		a.services.shop.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.Log.Warn("close event publisher failed", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = logger.Log.Sync()
}
