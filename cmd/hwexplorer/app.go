package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jask/hwexplorer/internal/config"
	"github.com/jask/hwexplorer/internal/database"
	"github.com/jask/hwexplorer/internal/database/repository"
	"github.com/jask/hwexplorer/internal/logging"
	"github.com/jask/hwexplorer/internal/provider"
	"github.com/jask/hwexplorer/internal/runner"
	"github.com/jask/hwexplorer/internal/session"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	logOut io.Closer
	db     *sql.DB
	lister provider.Lister
	runner *runner.Runner
	ctrl   *session.Controller
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if mock, _ := cmd.Flags().GetBool("mock"); mock {
		cfg.Provider.Mode = config.ProviderMock
	}
	if dir, _ := cmd.Flags().GetString("bin-dir"); dir != "" {
		cfg.Runner.BinDir = dir
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, logOut, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		File:    cfg.Log.File,
		Journal: cfg.Log.Journal,
	})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	a := &app{cfg: cfg, log: logger, logOut: logOut}

	catalog, err := loadCatalog(cfg.Runner.Catalog)
	if err != nil {
		a.Close()
		return nil, err
	}

	var source session.Provider
	switch cfg.Provider.Mode {
	case config.ProviderMock:
		ids := make([]string, 0)
		for _, e := range catalog.Entries() {
			ids = append(ids, e.Lang)
		}
		source = provider.Mock{IDs: ids}
	default:
		repo, err := a.openDatabase(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		source = provider.NewRepo(repo)
	}

	cached, err := provider.NewCached(source, cfg.Provider.CacheSize)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.lister = cached

	a.runner = runner.New(catalog, cfg.Runner.BinDir,
		runner.WithTimeout(cfg.Runner.Timeout),
		runner.WithLogger(logger),
	)
	a.ctrl = session.NewController(cached, a.runner,
		session.WithLogger(logger),
		session.WithBinaryDir(cfg.Runner.BinDir),
	)
	logger.Info("hwexplorer ready", "provider", cfg.Provider.Mode, "bin_dir", cfg.Runner.BinDir)
	return a, nil
}

func loadCatalog(path string) (*runner.Catalog, error) {
	if path == "" {
		return runner.DefaultCatalog()
	}
	return runner.LoadCatalog(path)
}

func (a *app) openDatabase(ctx context.Context) (*repository.LanguageRepo, error) {
	path := a.cfg.Database.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db
	if err := database.SeedDefaults(ctx, db); err != nil {
		return nil, fmt.Errorf("seed defaults: %w", err)
	}
	return repository.NewLanguageRepo(db), nil
}

func (a *app) Close() {
	if a.runner != nil {
		_ = a.runner.Close(context.Background())
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logOut != nil {
		_ = a.logOut.Close()
	}
}
