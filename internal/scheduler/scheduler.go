// Package scheduler runs the marketplace's periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// MarketMaintainer is the slice of the marketplace the jobs need.
type MarketMaintainer interface {
	ReindexAll(ctx context.Context) error
	CloseRevoked(ctx context.Context) (int, error)
}

// Config holds the cron expressions for each job.
type Config struct {
	ReindexSpec      string // default: hourly
	CloseRevokedSpec string // default: every 15 minutes
	JobTimeout       time.Duration
}

func (c *Config) defaults() {
	if c.ReindexSpec == "" {
		c.ReindexSpec = "0 * * * *"
	}
	if c.CloseRevokedSpec == "" {
		c.CloseRevokedSpec = "*/15 * * * *"
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = 5 * time.Minute
	}
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	market MarketMaintainer
	cfg    Config
	logger *zap.Logger
}

func New(market MarketMaintainer, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	cfg.defaults()
	s := &Scheduler{
		cron:   cron.New(),
		market: market,
		cfg:    cfg,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(cfg.ReindexSpec, s.reindex); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(cfg.CloseRevokedSpec, s.closeRevoked); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started",
		zap.String("reindex", s.cfg.ReindexSpec),
		zap.String("close_revoked", s.cfg.CloseRevokedSpec))
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) reindex() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	if err := s.market.ReindexAll(ctx); err != nil {
		s.logger.Error("listing reindex failed", zap.Error(err))
		return
	}
	s.logger.Debug("listing reindex complete")
}

func (s *Scheduler) closeRevoked() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	closed, err := s.market.CloseRevoked(ctx)
	if err != nil {
		s.logger.Error("closing listings for revoked claims failed", zap.Error(err))
		return
	}
	if closed > 0 {
		s.logger.Info("closed listings for revoked claims", zap.Int("count", closed))
	}
}
