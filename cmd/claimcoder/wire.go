package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/claimcoder/internal/config"
	"github.com/ehr/claimcoder/internal/domain/billing"
	"github.com/ehr/claimcoder/internal/domain/coding"
	"github.com/ehr/claimcoder/internal/domain/encounter"
	"github.com/ehr/claimcoder/internal/domain/sdoh"
	"github.com/ehr/claimcoder/internal/domain/terminology"
	"github.com/ehr/claimcoder/internal/platform/archive"
	"github.com/ehr/claimcoder/internal/platform/db"
	"github.com/ehr/claimcoder/internal/platform/logging"
)

// services holds every domain service the commands use.
type services struct {
	terminology *terminology.Service
	billing     *billing.Service
	encounters  *encounter.Service
	engine      *coding.Engine
	coding      *coding.Service
}

// bootstrap loads and validates config and builds the process logger.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := logging.Setup(cfg.Env, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: every request is treated as admin; do not expose this server")
	}
	return cfg, logger, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
}

func engineConfig(cfg *config.Config) coding.Config {
	return coding.Config{
		ConversionFactor:     cfg.ConversionFactor,
		GeographicModifier:   cfg.GeographicModifier,
		ChargemasterBaseRate: cfg.ChargemasterBaseRate,
	}
}

// newServices wires repositories and services over pool. The SDOH enricher
// and the S3 archive are attached only when configured.
func newServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*services, error) {
	termSvc := terminology.NewService(terminology.NewICD10RepoPG(pool), terminology.NewCPTRepoPG(pool))
	billSvc := billing.NewService(
		billing.NewCoverageRepoPG(pool),
		billing.NewPayerRepoPG(pool),
		billing.NewFeeScheduleRepoPG(pool),
		billing.NewRVURepoPG(pool),
		billing.NewCodingRuleRepoPG(pool),
	)
	encSvc := encounter.NewService(encounter.NewRepo(pool))

	engine := coding.NewEngine(coding.NewServiceReferenceData(termSvc, billSvc, encSvc), engineConfig(cfg), logger)
	if cfg.SDOHBaseURL != "" {
		client := sdoh.NewClient(cfg.SDOHBaseURL, cfg.SDOHTimeout, nil)
		engine.SetEnricher(coding.NewEnricher(client, logger))
		logger.Info().Str("url", cfg.SDOHBaseURL).Msg("social risk enrichment enabled")
	}

	codingSvc := coding.NewService(engine, coding.NewDecisionRepoPG(pool), encSvc, logger)
	codingSvc.SetBatchWorkers(cfg.BatchWorkers)
	if cfg.ArchiveEnabled() {
		store, err := archive.NewS3Store(ctx, cfg.ArchiveBucket, cfg.ArchivePrefix, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		codingSvc.SetArchiver(store)
		logger.Info().Str("bucket", cfg.ArchiveBucket).Msg("decision archive enabled")
	}

	return &services{
		terminology: termSvc,
		billing:     billSvc,
		encounters:  encSvc,
		engine:      engine,
		coding:      codingSvc,
	}, nil
}
