// Package app provides application-level wiring and dependency injection
// for the query compiler service following hexagonal architecture.
package app

import (
	"context"
	"log/slog"
	"time"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/config"
	"cpg-insights/internal/engine"
	"cpg-insights/internal/service/diagnostic"
	"cpg-insights/internal/service/query"
	"cpg-insights/internal/warehouse"
)

// Deps holds the external dependencies that main() must provide: config, the
// opened warehouse, and the logger.
type Deps struct {
	Cfg    *config.Config
	Engine *engine.DuckDB
	Logger *slog.Logger
}

// Services groups the service pointers the API handler needs.
type Services struct {
	Query      *query.Service
	Diagnostic *diagnostic.Service
}

// App holds the fully-wired application.
type App struct {
	Services Services
	Catalog  *catalog.Store
}

// New wires the catalog, warehouse, and services from the provided deps.
// Demo seeding runs here when enabled so both binaries share the behavior.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	store, err := catalog.NewStore(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	deps.Logger.Info("catalog loaded",
		"path", cfg.CatalogPath,
		"catalog_version", store.Current().Version())

	if cfg.SeedDemoData {
		if err := warehouse.EnsureSchema(ctx, deps.Engine.DB()); err != nil {
			return nil, err
		}
		if err := warehouse.Seed(ctx, deps.Engine.DB(), time.Now(), deps.Logger); err != nil {
			return nil, err
		}
	}

	querySvc := query.NewService(store, deps.Engine, deps.Logger.With("component", "query"),
		query.WithMinConfidence(cfg.MinConfidence))
	diagnosticSvc := diagnostic.NewService(store, deps.Engine, cfg.DiagnosticPoolSize,
		deps.Logger.With("component", "diagnostic"),
		diagnostic.WithMinConfidence(cfg.MinConfidence))

	return &App{
		Services: Services{
			Query:      querySvc,
			Diagnostic: diagnosticSvc,
		},
		Catalog: store,
	}, nil
}
