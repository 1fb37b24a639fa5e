package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacy-backend/config"
	deliveryHttp "pharmacy-backend/internal/delivery/http"
	"pharmacy-backend/internal/delivery/http/handler"
	"pharmacy-backend/internal/delivery/http/middleware"
	"pharmacy-backend/internal/infrastructure/cache"
	"pharmacy-backend/internal/infrastructure/database"
	"pharmacy-backend/internal/realtime"
	"pharmacy-backend/internal/repository"
	"pharmacy-backend/internal/service"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/jwt"
	"pharmacy-backend/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	shutdownTimeout    = 10 * time.Second
	readHeaderTimeout  = 10 * time.Second
	startupSyncTimeout = 30 * time.Second
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	bus            realtime.Bus
	stopForwarder  context.CancelFunc
	sweeper        *service.ExpirySweeper
	notifier       *service.PushNotifier
	capacityMirror *service.CapacityMirror
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	if level, err := logrus.ParseLevel(cfg.App.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("Unknown log level %q, keeping %s", cfg.App.LogLevel, logrus.GetLevel())
	}
	logrus.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	if err := database.Migrate(db); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logrus.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	if err := app.initialize(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

// initialize wires repositories, services, usecases and the HTTP server
func (app *App) initialize() error {
	cfg := app.Config
	db := app.DB
	log := logrus.StandardLogger()

	// Event bus
	hub := realtime.NewHub(log, cfg.Consultation.SubscriberBuffer)
	app.bus = hub
	if cfg.Bus.Driver == "redis" {
		redisBus, err := realtime.NewRedisBus(app.RedisClient, cfg.Bus.ChannelPrefix, hub, log)
		if err != nil {
			return fmt.Errorf("failed to create redis bus: %w", err)
		}
		forwardCtx, cancel := context.WithCancel(context.Background())
		if err := redisBus.StartForwarder(forwardCtx); err != nil {
			cancel()
			return fmt.Errorf("failed to start redis bus forwarder: %w", err)
		}
		app.bus = redisBus
		app.stopForwarder = cancel
	}
	logrus.Infof("Event bus ready: driver=%s", cfg.Bus.Driver)

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	userRepo := repository.NewUserRepository()
	roleRepo := repository.NewRoleRepository()
	doctorProfileRepo := repository.NewDoctorProfileRepository()
	consultationRepo := repository.NewConsultationRepository()
	queueRepo := repository.NewConsultationQueueRepository()
	messageRepo := repository.NewConsultationMessageRepository()
	scheduleRepo := repository.NewMedicationScheduleRepository()
	deviceTokenRepo := repository.NewDeviceTokenRepository()
	auditLogRepo := repository.NewAuditLogRepository()
	itemRepo := repository.NewItemRepository()

	// Push notifications
	var pushClient service.PushClient = service.NoopClient{}
	if cfg.Push.ServerKey != "" {
		fcm, err := service.NewFCMClient(cfg.Push)
		if err != nil {
			return fmt.Errorf("failed to create push client: %w", err)
		}
		pushClient = fcm
	} else {
		logrus.Warn("PUSH_SERVER_KEY not set, push notifications are disabled")
	}
	app.notifier = service.NewPushNotifier(db, log, deviceTokenRepo, pushClient, cfg.Push)

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)
	capacity := service.NewCapacityController(doctorProfileRepo, log)
	queue := service.NewQueueManager(queueRepo, log)
	ratings := service.NewRatingAggregator(doctorProfileRepo, log)
	app.capacityMirror = service.NewCapacityMirror(db, app.RedisClient, doctorProfileRepo, log)

	syncCtx, cancel := context.WithTimeout(context.Background(), startupSyncTimeout)
	if err := app.capacityMirror.SyncOnStartup(syncCtx); err != nil {
		// The mirror is a read copy; reads fall back to the database.
		logrus.Warnf("Capacity mirror sync failed: %v", err)
	}
	cancel()

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(db, log, userRepo, roleRepo, auditService, jwtService, app.RedisClient)
	expiryWindow := time.Duration(cfg.Consultation.ExpiryMinutes) * time.Minute
	consultationUsecase := usecase.NewConsultationUsecase(
		db, log, consultationRepo, itemRepo, capacity, queue, ratings, auditService,
		app.bus, app.notifier, app.capacityMirror, expiryWindow,
	)
	messageUsecase := usecase.NewConsultationMessageUsecase(
		db, log, consultationRepo, messageRepo, consultationUsecase, app.bus, app.notifier,
	)
	doctorProfileUsecase := usecase.NewDoctorProfileUsecase(db, log, userRepo, doctorProfileRepo, capacity, auditService, app.capacityMirror)
	scheduleUsecase := usecase.NewMedicationScheduleUsecase(db, log, consultationRepo, scheduleRepo, messageUsecase, auditService)
	deviceUsecase := usecase.NewDeviceUsecase(db, log, deviceTokenRepo)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)
	itemUsecase := usecase.NewItemUsecase(db, log, itemRepo)

	app.sweeper = service.NewExpirySweeper(consultationUsecase, cfg.Consultation.SweepInterval, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	consultationHandler := handler.NewConsultationHandler(consultationUsecase, customValidator)
	messageHandler := handler.NewMessageHandler(messageUsecase, customValidator)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins)
	streamHandler := handler.NewStreamHandler(consultationUsecase, messageUsecase, app.bus, log, cfg.Consultation, corsMiddleware.CheckOrigin)
	doctorHandler := handler.NewDoctorHandler(doctorProfileUsecase, customValidator)
	medicationHandler := handler.NewMedicationHandler(scheduleUsecase, customValidator)
	deviceHandler := handler.NewDeviceHandler(deviceUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase, customValidator)
	itemHandler := handler.NewItemHandler(itemUsecase, customValidator)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, app.RedisClient)
	loggerMiddleware := middleware.NewLoggerMiddleware(log)

	// Initialize router
	router := deliveryHttp.NewRouter(
		authHandler, consultationHandler, messageHandler, streamHandler, doctorHandler,
		medicationHandler, deviceHandler, auditLogHandler, itemHandler,
		authMiddleware, corsMiddleware, loggerMiddleware,
	)

	// No WriteTimeout: streams stay open for the life of a consultation.
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	// Closing the bus ends every open stream, so Shutdown is not held up by them.
	app.Server.RegisterOnShutdown(func() {
		if err := app.bus.Close(); err != nil {
			logrus.Warnf("Failed to close event bus: %v", err)
		}
	})

	return nil
}

// Run serves HTTP and runs the expiry sweeper until SIGINT or SIGTERM
// Run serves until SIGINT or SIGTERM, then drains and closes every dependency
func (app *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.sweeper.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.shutdown()
	})

	err := g.Wait()

	// Close connections
	app.Close()

	if err != nil {
		return err
	}
	logrus.Info("Server shutdown complete")
	return nil
}

// shutdown stops intake first, then drains background work
func (app *App) shutdown() error {
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	if shutdownErr := app.Server.Shutdown(ctx); shutdownErr != nil {
		err = fmt.Errorf("server forced to shutdown: %w", shutdownErr)
	}

	app.sweeper.Stop()
	app.notifier.Wait()
	return err
}

// Close releases background services and connections. Safe after a partial New.
func (app *App) Close() {
	if app.capacityMirror != nil {
		app.capacityMirror.Stop()
	}
	if app.bus != nil {
		_ = app.bus.Close()
	}
	if app.stopForwarder != nil {
		app.stopForwarder()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
