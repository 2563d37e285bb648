package bootstrap

import (
	"context"
	"fmt"

	"recall-be/internal/config"
	"recall-be/internal/controller"
	"recall-be/internal/handler"
	"recall-be/internal/pkg/logger"
	"recall-be/internal/pkg/serverutils"
	"recall-be/internal/repository/memory"
	"recall-be/internal/repository/unitofwork"
	"recall-be/internal/service"
	"recall-be/internal/websocket"
	"recall-be/pkg/events"
	"recall-be/pkg/llm"
	"recall-be/pkg/llm/factory"
	pktNats "recall-be/pkg/nats"
	"recall-be/pkg/recall/engine"
	"recall-be/pkg/recall/judge"
	"recall-be/pkg/recall/scheduler"
	"recall-be/pkg/recall/tangent"
	"recall-be/pkg/recall/tutor"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// sessionFinishedTopic carries finished sessions to the metrics consumer.
const sessionFinishedTopic = "session.finished"

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	SessionHandler    *handler.SessionHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Engine     *engine.Engine
	UowFactory unitofwork.RepositoryFactory
	Logger     logger.ILogger

	closers []func()
}

// NewContainer wires every dependency. A nil db selects the in-memory store.
// ctx bounds the live sessions started through the container.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		uowFactory = memory.NewRepositoryFactory(memory.NewDatabase())
	}
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	sessionLogger := logger.NewIsolatedLogger(cfg.App.SessionLogFilePath)

	c := &Container{UowFactory: uowFactory, Logger: sysLogger}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var external events.Publisher = events.NopPublisher{}
	if cfg.App.NatsURL != "" {
		natsPublisher, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "NATS unavailable, session events stay local", map[string]interface{}{"error": err.Error()})
		} else {
			external = natsPublisher
			c.closers = append(c.closers, natsPublisher.Close)
		}
	}
	finishedPublisher := service.NewPublisherService(sessionFinishedTopic, pubSub)
	eventBus := service.NewEventBus(external, finishedPublisher, sysLogger)

	// 3. Redis (optional, cross-instance connection control)
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 4. Session collaborators
	oracle := scheduler.NewScheduler(uowFactory, scheduler.WithLookahead(cfg.Session.SchedulerLookahead))

	provider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
	if err != nil {
		return nil, err
	}
	j, detector, t := sessionCollaborators(provider)
	sysLogger.Info("Bootstrap", "Session collaborators ready", map[string]interface{}{
		"llm_provider": cfg.Ai.LLMProvider,
		"llm_enabled":  provider != nil,
	})

	engineCfg := engine.DefaultConfig()
	engineCfg.HeartbeatInterval = cfg.Session.HeartbeatInterval
	engineCfg.PongTimeout = cfg.Session.PongTimeout
	engineCfg.MaxConsecutiveErrors = cfg.Session.MaxConsecutiveErrors
	engineCfg.IdleTimeout = cfg.Session.IdleTimeout
	engineCfg.IdleCheckInterval = cfg.Session.IdleCheckInterval
	engineCfg.MaxRabbitholeDepth = cfg.Session.MaxRabbitholeDepth
	engineCfg.EvaluationTimeout = cfg.Session.EvaluationTimeout

	eng, err := engine.NewEngine(engineCfg, engine.Dependencies{
		UowFactory: uowFactory,
		Oracle:     oracle,
		Judge:      j,
		Detector:   detector,
		Tutor:      t,
		Snapshots:  memory.NewSnapshotRepository(cfg.Session.IdleTimeout),
		Events:     eventBus,
		Logger:     sessionLogger,
	})
	if err != nil {
		return nil, err
	}
	c.Engine = eng

	// 5. Services
	c.WebSocketHub = websocket.NewHub(rdb, sysLogger)
	sessionService := service.NewSessionService(uowFactory, oracle, eventBus, c.WebSocketHub, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, sessionFinishedTopic, uowFactory, sysLogger)

	// 6. Controllers
	var auth fiber.Handler
	if cfg.Auth.Enabled {
		auth = serverutils.NewJwtMiddleware(cfg.Auth.JwtSecret)
	}
	c.SessionController = controller.NewSessionController(sessionService, auth)
	c.SessionHandler = handler.NewSessionHandler(ctx, eng, c.WebSocketHub, auth, sessionLogger)

	return c, nil
}

// sessionCollaborators falls back to the deterministic judge and tutor without an LLM.
func sessionCollaborators(provider llm.StreamingProvider) (judge.Judge, tangent.Detector, tutor.Tutor) {
	if provider == nil {
		return judge.NewOverlapJudge(), tangent.Disabled{}, tutor.NewScripted()
	}
	return judge.NewLLMJudge(provider), tangent.NewLLMDetector(provider), tutor.NewLLMTutor(provider)
}

// Close releases the event bus, NATS and Redis connections, then flushes logs.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
