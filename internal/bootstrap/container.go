package bootstrap

import (
	"context"
	"log"
	"time"

	"welding-recommender-be/internal/config"
	"welding-recommender-be/internal/constant"
	"welding-recommender-be/internal/controller"
	"welding-recommender-be/internal/pkg/logger"
	"welding-recommender-be/internal/repository/contract"
	"welding-recommender-be/internal/repository/implementation"
	"welding-recommender-be/internal/repository/memory"
	redisrepo "welding-recommender-be/internal/repository/redis"
	"welding-recommender-be/internal/service"
	neo4jcat "welding-recommender-be/pkg/catalog/neo4j"
	"welding-recommender-be/pkg/database"
	"welding-recommender-be/pkg/extract"
	"welding-recommender-be/pkg/guide"
	"welding-recommender-be/pkg/guide/applicability"
	"welding-recommender-be/pkg/guide/compound"
	"welding-recommender-be/pkg/guide/dependency"
	"welding-recommender-be/pkg/guide/sequence"
	"welding-recommender-be/pkg/guide/skip"
	"welding-recommender-be/pkg/llm/factory"

	pktNats "welding-recommender-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	AdvisorController controller.IAdvisorController

	// Background services, exposed for main.go to run.
	RendererService service.IRendererService

	CatalogGateway *neo4jcat.Gateway
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 1. Category rules and navigation
	rulebook := guide.DefaultRulebook()
	if cfg.App.RulebookPath != "" {
		loaded, err := guide.LoadRulebook(cfg.App.RulebookPath)
		if err != nil {
			log.Fatalf("[FATAL] Failed to load rulebook: %v", err)
		}
		rulebook = loaded
		log.Printf("[INFO] Using rulebook: %s", cfg.App.RulebookPath)
	}

	machine := sequence.NewMachine(rulebook)
	deps := dependency.NewChecker(rulebook, sysLogger)

	applicabilityCfg, err := applicability.LoadConfig(cfg.App.ApplicabilityPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load applicability config: %v", err)
	}
	resolver := applicability.NewResolver(applicabilityCfg, sysLogger)

	// 2. Product catalog
	gateway, err := neo4jcat.NewGateway(context.Background(), neo4jcat.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to connect to product catalog: %v", err)
	}

	engine := skip.NewEngine(rulebook, machine, deps, gateway, sysLogger)
	compoundHandler := compound.NewHandler(rulebook, machine, deps, resolver, gateway, sysLogger)

	// 3. Specification extraction
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	extractor := extract.NewLLMExtractor(llmProvider, rulebook, sysLogger)

	// 4. Session storage
	ttl := time.Duration(cfg.App.SessionTTLMinutes) * time.Minute
	var sessions contract.SessionStore
	if cfg.App.SessionStore == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		sessions = redisrepo.NewSessionStore(rdb, ttl)
		log.Printf("[INFO] Using session store: REDIS")
	} else {
		sessions = memory.NewSessionStore(ttl)
		log.Printf("[INFO] Using session store: MEMORY")
	}

	// 5. Archival, optional
	var archiveRepo contract.SessionArchiveRepository
	var recordRepo contract.TransitionRecordRepository
	if cfg.Archive.Connection != "" {
		gormDB, err := database.NewGormDBFromDSN(cfg.Archive.Connection)
		if err != nil {
			log.Fatalf("[FATAL] Unable to connect to archive DB: %v", err)
		}
		archiveRepo = implementation.NewSessionArchiveRepository(gormDB)
		recordRepo = implementation.NewTransitionRecordRepository(gormDB)
	} else {
		log.Printf("[INFO] Session archival disabled (no archive DB configured)")
	}

	// 6. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// 7. Services
	rendererService := service.NewRendererService(
		pubSub,
		constant.TransitionTopic,
		recordRepo,
		sysLogger,
	)

	advisorService := service.NewAdvisorService(
		rulebook,
		machine,
		engine,
		compoundHandler,
		resolver,
		extractor,
		sessions,
		archiveRepo,
		recordRepo,
		pubSub,
		natsPub,
		sysLogger,
	)

	return &Container{
		AdvisorController: controller.NewAdvisorController(advisorService),
		RendererService:   rendererService,
		CatalogGateway:    gateway,
	}
}
