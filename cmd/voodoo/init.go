package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shivavenkatesh/voodoo/internal/cache"
	"github.com/shivavenkatesh/voodoo/internal/classify"
	"github.com/shivavenkatesh/voodoo/internal/config"
	"github.com/shivavenkatesh/voodoo/internal/knowledge"
	"github.com/shivavenkatesh/voodoo/internal/learning"
	"github.com/shivavenkatesh/voodoo/internal/patterns"
	"github.com/shivavenkatesh/voodoo/internal/probe"
	"github.com/shivavenkatesh/voodoo/internal/research"
	"github.com/shivavenkatesh/voodoo/internal/store"
	"github.com/shivavenkatesh/voodoo/internal/store/jsonfile"
	"github.com/shivavenkatesh/voodoo/internal/store/sqlite"

	"go.uber.org/zap"
)

// initService wires the prober, classifier and pattern store into a learning service
func initService(ctx context.Context) (learning.Service, error) {
	persister, err := openPersister(cfg)
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		persister.Close()
		return nil, err
	}

	var rd *research.Data
	proberCfg := probe.Config{Logger: logger, Ladder: cfg.Probe.Ladder}
	if cfg.ResearchFile != "" {
		rd, err = research.Load(cfg.ResearchFile)
		if err != nil {
			persister.Close()
			return nil, err
		}
		proberCfg.Research = rd
	}

	classifier, err := classify.New(classify.Config{
		Logger:    logger,
		Catalog:   catalog,
		Threshold: cfg.Classify.Threshold,
	})
	if err != nil {
		persister.Close()
		return nil, err
	}

	ps, err := patterns.Open(ctx, patterns.Config{
		Logger:    logger,
		Persister: persister,
		Detector:  classifier,
		Cache:     cache.NewPatternCache(256),
	})
	if err != nil {
		persister.Close()
		return nil, err
	}

	logger.Debug("service ready",
		zap.String("data_dir", cfg.DataDir),
		zap.String("backend", cfg.Store.Backend),
		zap.String("store", cfg.StorePath()))

	return learning.NewService(probe.New(proberCfg), classifier, ps, learning.Config{
		Logger:   logger,
		Research: rd,
	}), nil
}

// openPersister opens the configured backend. An unreadable SQLite file is
// moved aside and replaced with an empty store.
func openPersister(cfg *config.Config) (store.Persister, error) {
	path := cfg.StorePath()

	if cfg.Store.Backend == config.BackendJSON {
		return jsonfile.New(path)
	}

	st, err := sqlite.New(sqlite.Config{Path: path})
	if errors.Is(err, store.ErrCorrupt) {
		dest, merr := sqlite.MoveAside(path, time.Now())
		if merr != nil {
			return nil, fmt.Errorf("failed to recover pattern store: %w", merr)
		}
		logger.Error("pattern store corrupt, starting empty",
			zap.String("path", path),
			zap.String("moved_to", dest),
			zap.Error(err))
		st, err = sqlite.New(sqlite.Config{Path: path})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

func loadCatalog(cfg *config.Config) (*knowledge.Catalog, error) {
	if cfg.CatalogFile == "" {
		return knowledge.Default()
	}
	return knowledge.LoadFile(cfg.CatalogFile)
}
