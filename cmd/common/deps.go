// Package common wires the shared dependency graph used by every command:
// config, logger, database, repositories, collaborators, and the processor.
package common

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/formreach/formreach/internal/collab"
	"github.com/formreach/formreach/internal/config"
	"github.com/formreach/formreach/internal/database"
	"github.com/formreach/formreach/internal/dedup"
	"github.com/formreach/formreach/internal/logger"
	"github.com/formreach/formreach/internal/message"
	"github.com/formreach/formreach/internal/processor"
	"github.com/formreach/formreach/internal/ratelimit"
	"github.com/formreach/formreach/internal/scoring"
)

const defaultHTTPTimeout = 45 * time.Second

// errConfigRequired is returned when dependencies are built without a config.
var errConfigRequired = errors.New("config is required")

// Deps holds the shared dependency graph for commands.
type Deps struct {
	Config *config.Config
	Logger logger.Logger

	DB          *sqlx.DB
	Redis       *redis.Client
	Tasks       *database.TaskRepository
	Domains     *database.DomainRepository
	Pages       *database.PageRepository
	Submissions *database.SubmissionRepository

	Guard     *dedup.Guard
	Limiter   *ratelimit.Limiter
	Tracker   *scoring.Tracker
	Scorer    *scoring.Scorer
	Engine    *message.Engine
	Processor *processor.Processor
}

// NewDeps builds the full dependency graph. The caller owns Close.
func NewDeps() (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewDepsWithConfig(cfg)
}

// NewDepsWithConfig builds the dependency graph from an existing config.
func NewDepsWithConfig(cfg *config.Config) (*Deps, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	deps := &Deps{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		Tasks:       database.NewTaskRepository(db),
		Domains:     database.NewDomainRepository(db),
		Pages:       database.NewPageRepository(db),
		Submissions: database.NewSubmissionRepository(db),
	}

	deps.Guard = dedup.NewGuard(deps.Submissions, log)
	deps.Limiter = ratelimit.NewLimiter(newRateLimitStore(cfg, deps), ratelimit.Config{
		MinDelay: cfg.RateLimit.MinDelay,
		MaxDelay: cfg.RateLimit.MaxDelay,
	}, log)
	deps.Tracker = scoring.NewTracker()
	deps.Scorer = scoring.NewScorer(deps.Tracker)
	deps.Engine = message.NewEngine()

	httpClient := &http.Client{Timeout: defaultHTTPTimeout}
	userAgent := cfg.Crawler.UserAgent

	proc, err := processor.New(processorConfig(cfg), processor.Deps{
		Tasks:       deps.Tasks,
		Domains:     deps.Domains,
		Pages:       deps.Pages,
		Submissions: deps.Submissions,
		Guard:       deps.Guard,
		Limiter:     deps.Limiter,
		Scorer:      deps.Scorer,
		Tracker:     deps.Tracker,
		Engine:      deps.Engine,
		Analyzer:    collab.NewSitemapAnalyzer(httpClient, userAgent, log),
		Crawler:     collab.NewCollyCrawler(userAgent, log),
		Executor:    collab.NewHTTPExecutor(httpClient, userAgent, log),
		Logger:      log,
	})
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}
	deps.Processor = proc

	return deps, nil
}

// newRateLimitStore picks the Redis-backed store when Redis is configured,
// falling back to process-local state otherwise. The fallback weakens
// throttling to per-process, which is acceptable for single-worker setups.
func newRateLimitStore(cfg *config.Config, deps *Deps) ratelimit.Store {
	if !cfg.Redis.Enabled {
		return ratelimit.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	deps.Redis = client

	return ratelimit.NewRedisStore(client)
}

// processorConfig maps the loaded config onto the processor's own config.
func processorConfig(cfg *config.Config) processor.Config {
	return processor.Config{
		MaxTasks:                cfg.Processor.MaxTasks,
		MaxTime:                 cfg.Processor.MaxTime,
		MaxPagesPerDomain:       cfg.Processor.MaxPagesPerDomain,
		MaxSubmissionsPerDomain: cfg.Processor.MaxSubmissionsPerDomain,
		MinSubmitScore:          cfg.Processor.MinSubmitScore,
		DedupPolicy:             cfg.Processor.DedupPolicy,
		DedupWindowDays:         cfg.Processor.DedupWindowDays,
		SenderName:              cfg.Processor.SenderName,
		SenderEmail:             cfg.Processor.SenderEmail,
		SenderPhone:             cfg.Processor.SenderPhone,
		SenderCompany:           cfg.Processor.SenderCompany,
		MessageTemplate:         cfg.Processor.MessageTemplate,
	}
}

// Close releases held connections. Safe to call on a partially built graph.
func (d *Deps) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn("failed to close redis client", logger.Error(err))
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Warn("failed to close database", logger.Error(err))
		}
	}
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
}
