// Package di wires the editor core's components together. Wiring is
// explicit constructor calls: the core is an embedded library and a
// single composition root covers it without code generation.
package di

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"canvas2/application/selection"
	"canvas2/application/services"
	domaincfg "canvas2/domain/config"
	"canvas2/domain/core/aggregates"
	"canvas2/domain/core/valueobjects"
	"canvas2/domain/history"
	"canvas2/infrastructure/config"
	"canvas2/infrastructure/persistence"
	"canvas2/infrastructure/persistence/sqlite"
	"canvas2/interfaces/input"
	"canvas2/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Registry    *prometheus.Registry
	Store       *sqlite.Store
	Graph       *aggregates.Graph
	History     *history.Log
	Coordinator *persistence.Coordinator
	Selection   *selection.State
	Surfaces    *input.SurfaceTree
	Router      *input.Router
	Editor      *services.EditorService
	Watcher     *config.Watcher
}

// InitializeContainer opens the workspace and wires a ready editor
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	store, err := sqlite.Open(cfg.WorkspacePath, logger)
	if err != nil {
		return nil, err
	}

	graph, err := loadGraph(ctx, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	domainCfg := domaincfg.DefaultDomainConfig()
	domainCfg.HistoryCapacity = cfg.History.Capacity
	domainCfg.CoalesceWindow = cfg.CoalesceWindow()
	if err := domainCfg.Validate(); err != nil {
		store.Close()
		return nil, err
	}

	log := history.NewLog(domainCfg.HistoryCapacity, domainCfg.CoalesceWindow)

	coordinator := persistence.NewCoordinator(store, graph, logger, persistence.Options{
		DebounceInterval: cfg.DebounceInterval(),
		Metrics:          metrics,
	})

	sel := selection.NewState()
	surfaces := input.NewSurfaceTree()
	router := input.NewRouter(sel, surfaces, cfg.HoldGap(), cfg.ReleaseGap(), logger, metrics)

	editor := services.NewEditorService(graph, log, coordinator, sel, domainCfg, logger,
		services.WithMetrics(metrics))

	c := &Container{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		Registry:    registry,
		Store:       store,
		Graph:       graph,
		History:     log,
		Coordinator: coordinator,
		Selection:   sel,
		Surfaces:    surfaces,
		Router:      router,
		Editor:      editor,
	}

	if err := c.startConfigWatcher(); err != nil {
		logger.Warn("config hot reload unavailable", zap.Error(err))
	}

	return c, nil
}

// Shutdown drains pending writes and releases every resource. This is
// the single place the process blocks on persistence.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}

	flushErr := c.Editor.Shutdown(ctx)
	c.Coordinator.Close()

	if err := c.Store.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	return flushErr
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// loadGraph reads the workspace and reconstructs the graph, pruning and
// deleting edges whose endpoints are missing
func loadGraph(ctx context.Context, store *sqlite.Store, logger *zap.Logger) (*aggregates.Graph, error) {
	nodes, edges, err := store.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}

	graph, pruned, err := aggregates.NewGraphFromStates(nodes, edges)
	if err != nil {
		return nil, err
	}

	if len(pruned) > 0 {
		ids := make([]valueobjects.EdgeID, len(pruned))
		for i, state := range pruned {
			ids[i] = state.ID
		}
		logger.Warn("pruned edges with missing endpoints",
			zap.Int("count", len(pruned)),
		)
		if err := store.DeleteEdges(ctx, ids); err != nil {
			// The graph is already consistent in memory; dropping the
			// rows again next load is harmless.
			logger.Warn("failed to delete pruned edge records", zap.Error(err))
		}
	}

	return graph, nil
}

// startConfigWatcher hot reloads the tunable gaps in development
func (c *Container) startConfigWatcher() error {
	path := os.Getenv("CANVAS_CONFIG")
	if path == "" {
		path = "canvas.yaml"
	}
	if _, err := os.Stat(path); err != nil {
		return nil // no config file, nothing to watch
	}

	watcher, err := config.NewWatcher(path, c.Config, c.Logger)
	if err != nil {
		return err
	}

	watcher.OnReload(func(cfg *config.Config) {
		c.Router.SetGaps(cfg.HoldGap(), cfg.ReleaseGap())
	})

	c.Watcher = watcher
	return nil
}
