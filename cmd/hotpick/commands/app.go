package commands

import (
	"fmt"
	"time"

	"github.com/fenghou-lab/hotpick/internal/boards"
	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/internal/external/deepseek"
	"github.com/fenghou-lab/hotpick/internal/external/eastmoney"
	"github.com/fenghou-lab/hotpick/internal/external/wechat"
	"github.com/fenghou-lab/hotpick/internal/intel"
	"github.com/fenghou-lab/hotpick/internal/pipeline"
	"github.com/fenghou-lab/hotpick/internal/rules"
	"github.com/fenghou-lab/hotpick/internal/selection"
	"github.com/fenghou-lab/hotpick/internal/sourcing"
	"github.com/fenghou-lab/hotpick/internal/topics"
	"github.com/fenghou-lab/hotpick/pkg/config"
	"github.com/fenghou-lab/hotpick/pkg/database"
	"github.com/fenghou-lab/hotpick/pkg/logger"
	"github.com/fenghou-lab/hotpick/pkg/redis"
)

const cacheKeyPrefix = "hotpick"

// app bundles everything a command needs: config, connections, repositories
// and the wired pipeline. Commands that only touch a slice of it still share
// the one wiring path so behavior never drifts between entry points.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
	rdb *redis.Client

	cache  *redis.Cache
	market *eastmoney.Client

	reports     *pipeline.Repository
	articles    *intel.Repository
	topics      *topics.Repository
	candidates  *sourcing.Repository
	selections  *selection.Repository
	ruleConfigs *rules.Repository

	registry *rules.Registry
	catalog  *boards.Catalog
	orch     *pipeline.Orchestrator
}

// newApp loads config and wires the full pipeline. notifier may be nil;
// the API command passes its websocket hub here.
func newApp(notifier contracts.Notifier) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(rdb, cacheKeyPrefix)

	// External clients
	market := eastmoney.New(cfg, log)
	extractor := deepseek.New(cfg, log)
	source := wechat.New(cfg, log).WithRateLimiter(
		redis.NewRateLimiter(rdb, cacheKeyPrefix),
		redis.RateLimitConfig{Key: "wechat", Limit: 30, Window: time.Minute},
	)

	// Repositories
	reportRepo := pipeline.NewRepository(db.Pool)
	articleRepo := intel.NewRepository(db.Pool)
	topicRepo := topics.NewRepository(db.Pool)
	candidateRepo := sourcing.NewRepository(db.Pool)
	selectionRepo := selection.NewRepository(db.Pool)
	ruleRepo := rules.NewRepository(db.Pool)

	// Board catalog and resolver
	catalog := boards.NewCatalog(market, cache, cfg.Pipeline.BoardCacheTTL, log)
	resolver := boards.NewResolver(catalog, log)

	// Pipeline stages
	collector := intel.NewCollector(source, articleRepo,
		cfg.WeChat.Accounts, cfg.WeChat.ArticlesPerAccount, log)
	builder := topics.NewBuilder(articleRepo, topicRepo, extractor, resolver,
		cfg.Pipeline.MaxArticlesForLLM, cfg.Pipeline.ArticleBodyLimit, log)
	sourcer := sourcing.NewSourcer(topicRepo, candidateRepo, resolver, market,
		cfg.Pipeline.SourcingConcurrency, log)

	registry := rules.DefaultRegistry()
	engine := rules.NewEngine(registry, log)
	selector := selection.NewSelector(candidateRepo, selectionRepo, ruleRepo, engine, log)

	orch := pipeline.NewOrchestrator(
		reportRepo, topicRepo, candidateRepo, selectionRepo,
		collector, builder, sourcer, selector,
		notifier, cfg.Pipeline.StageTimeout, log,
	)

	return &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		rdb:         rdb,
		cache:       cache,
		market:      market,
		reports:     reportRepo,
		articles:    articleRepo,
		topics:      topicRepo,
		candidates:  candidateRepo,
		selections:  selectionRepo,
		ruleConfigs: ruleRepo,
		registry:    registry,
		catalog:     catalog,
		orch:        orch,
	}, nil
}

// Close releases connections in reverse dependency order.
func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
