// Package app wires together all dependencies and runs the platform API.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/REVIVAL-MIMI/psychology/internal/auth"
	"github.com/REVIVAL-MIMI/psychology/internal/config"
	"github.com/REVIVAL-MIMI/psychology/internal/event"
	handler "github.com/REVIVAL-MIMI/psychology/internal/handler/http"
	"github.com/REVIVAL-MIMI/psychology/internal/repository/postgres"
	redisrepo "github.com/REVIVAL-MIMI/psychology/internal/repository/redis"
	"github.com/REVIVAL-MIMI/psychology/internal/scheduler"
	"github.com/REVIVAL-MIMI/psychology/internal/service"
	"github.com/REVIVAL-MIMI/psychology/internal/sms"
	"github.com/REVIVAL-MIMI/psychology/internal/storage/local"
	"github.com/REVIVAL-MIMI/psychology/internal/ws"
	"github.com/REVIVAL-MIMI/psychology/migrations"
	"github.com/REVIVAL-MIMI/psychology/pkg/database"
	"github.com/REVIVAL-MIMI/psychology/pkg/health"
	pkgkafka "github.com/REVIVAL-MIMI/psychology/pkg/kafka"
	"github.com/REVIVAL-MIMI/psychology/pkg/tracing"
)

// App holds the running components of the platform API.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	consumer   *pkgkafka.Consumer
	scheduler  *scheduler.Scheduler
	httpServer *http.Server

	tracerShutdown func(context.Context) error
}

// NewApp creates the application, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "psychology-api",
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL pool and schema migrations.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "psychology-api")

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Redis for OTP codes, token registry and rate limiting.
	redisHost, redisPort, err := splitRedisAddr(cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, err
	}
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     redisHost,
		Port:     redisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	// Kafka producer for domain events.
	kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Local disk storage for verification documents.
	store, err := local.New(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init upload storage: %w", err)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)

	// Repositories.
	users := postgres.NewUserRepository(pool)
	psychologists := postgres.NewPsychologistProfileRepository(pool)
	clients := postgres.NewClientProfileRepository(pool)
	invites := postgres.NewInviteRepository(pool)
	sessions := postgres.NewSessionRepository(pool)
	recommendations := postgres.NewRecommendationRepository(pool)
	journal := postgres.NewJournalRepository(pool)
	messages := postgres.NewMessageRepository(pool)
	inbox := postgres.NewNotificationRepository(pool)
	otpStore := redisrepo.NewOTPStore(redisClient)
	registry := redisrepo.NewTokenRegistry(redisClient)

	var smsSender sms.Sender
	if cfg.SMSGatewayURL != "" {
		smsSender = sms.NewGatewaySender(sms.GatewayConfig{
			URL:    cfg.SMSGatewayURL,
			APIKey: cfg.SMSGatewayAPIKey,
		}, logger)
	} else {
		smsSender = sms.NewLogSender(logger)
	}

	// Services. The WebSocket hub and the chat service reference each other,
	// so the hub is built first and the chat service attached to it after.
	eventProducer := event.NewProducer(kafkaProducer, logger)
	hub := ws.NewHub(jwtManager, registry, logger)

	notifications := service.NewNotificationService(inbox, eventProducer, logger)
	authService := service.NewAuthService(users, psychologists, clients, invites,
		otpStore, registry, jwtManager, smsSender, cfg.IsDevelopment(), logger)
	profileService := service.NewProfileService(psychologists, clients, store, logger)
	inviteService := service.NewInviteService(invites, psychologists, logger)
	sessionService := service.NewSessionService(sessions, clients, notifications, eventProducer, logger)
	recommendationService := service.NewRecommendationService(recommendations, clients, notifications, logger)
	journalService := service.NewJournalService(journal, logger)
	chatService := service.NewChatService(messages, clients, notifications, hub, logger)
	rosterService := service.NewClientRosterService(clients, sessions, messages, logger)
	dashboardService := service.NewDashboardService(sessions, clients, recommendations, messages, journal, logger)
	adminService := service.NewAdminService(users, psychologists, otpStore, registry,
		jwtManager, notifications, store, service.AdminConfig{
			Login:        cfg.AdminLogin,
			PasswordHash: cfg.AdminPasswordHash,
			Phone:        cfg.AdminPhone,
		}, cfg.IsDevelopment(), logger)

	hub.BindChat(chatService)

	// Notification dispatcher consuming notification.created events.
	dispatcher := event.NewDispatcher(inbox, hub, logger)
	idempotency := pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)
	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:   cfg.KafkaBrokers,
		GroupID:   "psychology-platform",
		Topic:     event.TopicNotificationCreated,
		EnableDLQ: true,
	}, dispatcher.Handler(idempotency), logger)

	// Background jobs.
	jobs := scheduler.New(sessions, journal, inbox, invites,
		recommendationService, notifications, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	gate := handler.NewGate(jwtManager, registry, users, psychologists, clients, logger)

	router := handler.NewRouter(handler.RouterDeps{
		Config: cfg,
		Logger: logger,
		Redis:  redisClient,
		Gate:   gate,
		Health: healthHandler,
		Hub:    hub,

		Auth:           handler.NewAuthHandler(authService, jwtManager, registry, users, logger),
		Admin:          handler.NewAdminHandler(adminService, cfg.JWTRefreshExpiry, logger),
		Profile:        handler.NewProfileHandler(profileService, logger),
		Invite:         handler.NewInviteHandler(inviteService, logger),
		Session:        handler.NewSessionHandler(sessionService, logger),
		Recommendation: handler.NewRecommendationHandler(recommendationService, logger),
		Journal:        handler.NewJournalHandler(journalService, logger),
		Chat:           handler.NewChatHandler(chatService, logger),
		Notification:   handler.NewNotificationHandler(notifications, logger),
		Clients:        handler.NewClientsHandler(rosterService, dashboardService, logger),
		Debug:          handler.NewDebugHandler(adminService, logger),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       kafkaProducer,
		consumer:       consumer,
		scheduler:      jobs,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server, the event consumer and the scheduler, blocking
// until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		if err := a.consumer.Start(runCtx); err != nil && runCtx.Err() == nil {
			a.logger.Error("notification consumer stopped",
				slog.String("error", err.Error()))
		}
	}()

	go a.scheduler.Run(runCtx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		cancel()
		_ = a.Shutdown()
		return err
	}

	cancel()
	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.consumer.Close(); err != nil {
		a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}
	a.pool.Close()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

// splitRedisAddr breaks a host:port address into its parts.
func splitRedisAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid redis address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid redis port %q: %w", portStr, err)
	}
	return host, port, nil
}
