package di

import (
	"context"
	"fmt"

	"github.com/LeJamon/goCustody/internal/config"
	"github.com/LeJamon/goCustody/internal/core/ledger"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/logging"
	"github.com/LeJamon/goCustody/internal/storage/database"
	"github.com/LeJamon/goCustody/internal/storage/database/compression"
	"github.com/LeJamon/goCustody/internal/storage/journal"
	"github.com/LeJamon/goCustody/internal/storage/journal/memory"
	"github.com/LeJamon/goCustody/internal/storage/journal/sqldb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	// Registers every operation type with the engine
	_ "github.com/LeJamon/goCustody/internal/core/tx/all"
)

// Provider configures and registers services in the container.
type Provider struct {
	container *Container
	config    *config.Config
}

// NewProvider creates a new service provider.
func NewProvider(container *Container, cfg *config.Config) *Provider {
	return &Provider{
		container: container,
		config:    cfg,
	}
}

// RegisterAll registers all services.
func (p *Provider) RegisterAll() error {
	if p.config == nil {
		return fmt.Errorf("di: no config")
	}
	p.container.Register(ServiceConfig, p.config)

	// Register builders for lazy instantiation
	p.registerLoggingBuilders()
	p.registerStorageBuilders()
	p.registerJournalBuilders()
	p.registerEngineBuilders()

	return nil
}

func (p *Provider) registerLoggingBuilders() {
	p.container.RegisterBuilder(ServiceLogger, func(c *Container) (interface{}, error) {
		logger, err := logging.New(p.config.Log.Level, p.config.Log.Encoding)
		if err != nil {
			return nil, err
		}
		c.OnClose(func() error {
			// Sync fails on non-file stdout; nothing to report
			_ = logger.Sync()
			return nil
		})
		return logger, nil
	})
}

// registerStorageBuilders registers the state store and the ledger over it.
func (p *Provider) registerStorageBuilders() {
	p.container.RegisterBuilder(ServiceStore, func(c *Container) (interface{}, error) {
		db, manager, err := ledger.OpenStore(p.config.Ledger.Backend, p.config.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", p.config.Ledger.Backend, err)
		}
		c.OnClose(manager.Close)

		codec, err := compression.Get(p.config.Ledger.Compression)
		if err != nil {
			return nil, err
		}
		if _, raw := codec.(compression.NoCompressor); raw {
			return db, nil
		}
		return compression.Wrap(db, codec), nil
	})

	p.container.RegisterBuilder(ServiceLedger, func(c *Container) (interface{}, error) {
		store, err := c.Get(ServiceStore)
		if err != nil {
			return nil, err
		}
		logger, err := p.GetLogger()
		if err != nil {
			return nil, err
		}

		opts := []ledger.Option{ledger.WithLogger(logger.Named("ledger"))}
		if p.config.Ledger.CacheSize > 0 {
			opts = append(opts, ledger.WithCacheSize(p.config.Ledger.CacheSize))
		}
		return ledger.New(store.(database.DB), opts...)
	})
}

// registerJournalBuilders registers the live event feed and the journal.
// Every driver but none publishes to the feed so subscribers see events
// whatever the durable store is.
func (p *Provider) registerJournalBuilders() {
	p.container.RegisterBuilder(ServiceFeed, func(c *Container) (interface{}, error) {
		if p.config.Journal.Driver == config.JournalNone {
			return nil, fmt.Errorf("journal disabled")
		}
		feed := memory.NewSink()
		c.OnClose(feed.Close)
		return feed, nil
	})

	p.container.RegisterBuilder(ServiceJournal, func(c *Container) (interface{}, error) {
		switch p.config.Journal.Driver {
		case config.JournalNone:
			return journal.Sink(journal.Nop{}), nil
		case config.JournalMemory, "":
			return p.GetFeed()
		}

		feed, err := p.GetFeed()
		if err != nil {
			return nil, err
		}
		durable, err := sqldb.Open(context.Background(), p.config.Journal.Driver, p.config.Journal.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s journal: %w", p.config.Journal.Driver, err)
		}
		c.OnClose(durable.Close)
		return journal.Multi(durable, feed), nil
	})
}

func (p *Provider) registerEngineBuilders() {
	p.container.RegisterBuilder(ServiceRegistry, func(c *Container) (interface{}, error) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg, nil
	})

	p.container.RegisterBuilder(ServiceMetrics, func(c *Container) (interface{}, error) {
		reg, err := p.GetRegistry()
		if err != nil {
			return nil, err
		}
		return tx.NewMetrics(reg), nil
	})

	p.container.RegisterBuilder(ServiceTxEngine, func(c *Container) (interface{}, error) {
		l, err := p.GetLedger()
		if err != nil {
			return nil, err
		}
		sink, err := c.Get(ServiceJournal)
		if err != nil {
			return nil, err
		}
		metrics, err := c.Get(ServiceMetrics)
		if err != nil {
			return nil, err
		}
		logger, err := p.GetLogger()
		if err != nil {
			return nil, err
		}

		return tx.NewEngine(
			l,
			sink.(journal.Sink),
			p.config.EngineSettings(),
			logger.Named("engine"),
			metrics.(*tx.Metrics),
		), nil
	})
}

// GetConfig returns the configuration from the container.
func (p *Provider) GetConfig() *config.Config {
	return p.config
}

// GetLogger returns the root logger.
func (p *Provider) GetLogger() (*zap.Logger, error) {
	svc, err := p.container.Get(ServiceLogger)
	if err != nil {
		return nil, err
	}
	return svc.(*zap.Logger), nil
}

// GetLedger returns the ledger.
func (p *Provider) GetLedger() (*ledger.Ledger, error) {
	svc, err := p.container.Get(ServiceLedger)
	if err != nil {
		return nil, err
	}
	return svc.(*ledger.Ledger), nil
}

// GetFeed returns the live event feed. It fails when the journal is
// disabled.
func (p *Provider) GetFeed() (*memory.Sink, error) {
	svc, err := p.container.Get(ServiceFeed)
	if err != nil {
		return nil, err
	}
	return svc.(*memory.Sink), nil
}

// GetJournal returns the journal the engine publishes to.
func (p *Provider) GetJournal() (journal.Sink, error) {
	svc, err := p.container.Get(ServiceJournal)
	if err != nil {
		return nil, err
	}
	return svc.(journal.Sink), nil
}

// GetRegistry returns the Prometheus registry served on /metrics.
func (p *Provider) GetRegistry() (*prometheus.Registry, error) {
	svc, err := p.container.Get(ServiceRegistry)
	if err != nil {
		return nil, err
	}
	return svc.(*prometheus.Registry), nil
}

// GetEngine returns the operation engine.
func (p *Provider) GetEngine() (*tx.Engine, error) {
	svc, err := p.container.Get(ServiceTxEngine)
	if err != nil {
		return nil, err
	}
	return svc.(*tx.Engine), nil
}
