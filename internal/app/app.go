// Package app wires config, stores, engines and the HTTP server together.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"devforge/internal/agents"
	"devforge/internal/artifact"
	"devforge/internal/config"
	"devforge/internal/learning"
	"devforge/internal/memory"
	"devforge/internal/orchestrator"
	"devforge/internal/sandbox"
	"devforge/internal/server"
)

type App struct {
	server *server.Server
	store  *memory.Store
	log    *logrus.Logger
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "debug") {
		logger.SetLevel(logrus.DebugLevel)
	}

	store := memory.NewFromEnv(cfg.MemoryPath)
	engine := learning.New(ctx, store, logger)
	registry := agents.New(ctx, logger)
	validator := sandbox.NewFromEnv(logger)
	artifacts := newArtifactStore(cfg.Artifact, logger)

	orch := orchestrator.New(orchestrator.Options{
		Learning:  engine,
		Memory:    store,
		Agents:    registry,
		Sandbox:   validator,
		Artifacts: artifacts,
		Logger:    logger,
	})

	router := server.NewRouter(server.NewHandler(orch, engine, store, logger))
	srv := server.New(cfg.Port, router, logger)

	return &App{
		server: srv,
		store:  store,
		log:    logger,
	}, nil
}

// newArtifactStore prefers S3/MinIO when configured and degrades to the
// in-memory store so generation keeps working without object storage.
func newArtifactStore(cfg config.ArtifactConfig, logger *logrus.Logger) artifact.Store {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return artifact.NewMemoryStore()
	}
	s3, err := artifact.NewS3Store(artifact.S3Config{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		logger.WithError(err).Warn("artifact store unavailable, using in-memory store")
		return artifact.NewMemoryStore()
	}
	return s3
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	return err
}
