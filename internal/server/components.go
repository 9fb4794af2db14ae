package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/mbd888/riskops/internal/access"
	"github.com/mbd888/riskops/internal/audit"
	"github.com/mbd888/riskops/internal/chat"
	"github.com/mbd888/riskops/internal/circuitbreaker"
	"github.com/mbd888/riskops/internal/config"
	"github.com/mbd888/riskops/internal/confirm"
	"github.com/mbd888/riskops/internal/guardrail"
	"github.com/mbd888/riskops/internal/health"
	"github.com/mbd888/riskops/internal/llm"
	"github.com/mbd888/riskops/internal/oms"
	"github.com/mbd888/riskops/internal/retry"
	"github.com/mbd888/riskops/internal/risk"
	"github.com/mbd888/riskops/internal/riskapi"
	"github.com/mbd888/riskops/internal/signals"
	"github.com/mbd888/riskops/internal/upstream"
)

// Components is the dependency graph shared by the HTTP server and the MCP
// binary. Storage falls back to memory when DATABASE_URL or REDIS_URL is
// unset.
type Components struct {
	DB        *sql.DB       // nil if using in-memory
	Redis     *redis.Client // nil if using in-memory
	Directory *access.Directory
	Policy    *guardrail.Policy
	Audit     *audit.Recorder
	Risk      riskapi.Client
	OMS       oms.Client
	Signals   *signals.Collector
	Scores    *risk.Service
	Broker    *confirm.Broker
	Sweeper   *confirm.Sweeper
	Chat      *chat.Service
	Health    *health.Registry

	closers []func() error
	logger  *slog.Logger
}

// NewComponents opens storage and wires every service from cfg.
func NewComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{
		Directory: access.NewSeededDirectory(),
		Health:    health.NewRegistry(5 * time.Second),
		logger:    logger,
	}
	c.Policy = guardrail.NewPolicy(c.Directory)

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		c.DB = db
		c.closers = append(c.closers, db.Close)
		c.Health.Register("postgres", health.Ping("postgres", db.PingContext))
		logger.Info("using PostgreSQL storage", "dsn", maskDSN(cfg.DatabaseURL))
	} else {
		logger.Info("using in-memory storage (data will not persist)")
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			c.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.Redis = client
		c.closers = append(c.closers, client.Close)
		c.Health.Register("redis", health.Ping("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
		logger.Info("using Redis confirmation store", "addr", opts.Addr)
	}

	// Audit: Postgres, then JSONL file, then memory
	var sink audit.Sink
	switch {
	case c.DB != nil:
		sink = audit.NewPostgresSink(c.DB)
	case cfg.AuditLogPath != "":
		fs, err := audit.OpenFileSink(cfg.AuditLogPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		c.closers = append(c.closers, fs.Close)
		sink = fs
		logger.Info("audit log file enabled", "path", cfg.AuditLogPath)
	default:
		sink = audit.NewMemorySink()
	}
	c.Audit = audit.NewRecorder(sink, logger)

	var scoreStore risk.Store = risk.NewMemoryStore()
	if c.DB != nil {
		scoreStore = risk.NewPostgresStore(c.DB)
	}
	c.Scores = risk.NewService(scoreStore, logger)

	breaker := circuitbreaker.New(5, 30*time.Second)
	breaker.OnTransition(func(key string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker transition", "provider", key, "from", from.String(), "to", to.String())
	})

	if cfg.RiskAPILive {
		c.Risk = riskapi.NewHTTP(upstream.New(upstream.Config{
			Name:    "risk_api",
			BaseURL: cfg.RiskAPIBase,
			Timeout: cfg.AdapterTimeout,
			Breaker: breaker,
			Retry:   retry.DefaultPolicy,
		}))
	} else {
		c.Risk = riskapi.NewSimulated(cfg.RiskAPIBase)
		logger.Info("risk API simulated", "chart_base", cfg.RiskAPIBase)
	}

	if cfg.OMSLive {
		// Halts carry an idempotency key, so retries cannot double-halt.
		c.OMS = oms.NewHTTP(upstream.New(upstream.Config{
			Name:    "oms",
			BaseURL: cfg.OMSBase,
			Timeout: cfg.AdapterTimeout,
			Breaker: breaker,
			Retry:   retry.DefaultPolicy,
		}))
	} else {
		c.OMS = oms.NewSimulated()
		logger.Info("order management simulated")
	}

	c.Signals = signals.NewDefaultCollector(signals.Keys{
		AlphaVantage: cfg.AlphaVantageKey,
		Finnhub:      cfg.FinnhubKey,
		NYT:          cfg.NYTKey,
	}, cfg.AdapterTimeout, breaker, logger)

	dispatch := chat.NewDispatcher(c.Risk, c.OMS, c.Signals, c.Scores)

	var store confirm.Store = confirm.NewMemoryStore()
	if c.Redis != nil {
		store = confirm.NewRedisStore(c.Redis)
	}
	c.Broker = confirm.NewBroker(store, c.Policy, guardrail.Validate, dispatch, c.Audit, logger).
		WithTTL(cfg.ConfirmTTL)
	c.Sweeper = confirm.NewSweeper(c.Broker, cfg.SweepInterval, logger)

	var model llm.Collaborator = llm.NewOffline()
	if cfg.LLMAPIKey != "" {
		model = llm.NewOpenAI(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, logger)
		logger.Info("language model enabled", "model", cfg.LLMModel)
	} else {
		logger.Info("LLM_API_KEY not set, using offline assistant")
	}
	c.Chat = chat.NewService(model, c.Directory, c.Broker, dispatch, c.Risk, c.Audit, logger)

	return c, nil
}

// Close waits for background writes and releases storage in reverse order.
func (c *Components) Close() {
	if c.Scores != nil {
		c.Scores.Wait()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Error("close error", "error", err)
		}
	}
	c.closers = nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
