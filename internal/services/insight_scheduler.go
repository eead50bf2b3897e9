package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"github.com/securelab/backend/internal/logger"
)

// InsightRefresher regenerates and caches insights.
type InsightRefresher interface {
	RefreshInsights(ctx context.Context) InsightResult
}

// InsightScheduler refreshes insights every interval while running.
type InsightScheduler struct {
	refresher InsightRefresher
	interval  time.Duration

	mu         sync.Mutex
	cron       *rcron.Cron
	cancel     context.CancelFunc
	runCtx     context.Context
	lastRun    time.Time
	lastSource string
	runs       int
}

type SchedulerStatus struct {
	Running    bool      `json:"running"`
	Interval   string    `json:"interval"`
	LastRun    time.Time `json:"lastRun,omitempty"`
	LastSource string    `json:"lastSource,omitempty"`
	Runs       int       `json:"runs"`
}

func NewInsightScheduler(refresher InsightRefresher, interval time.Duration) *InsightScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &InsightScheduler{refresher: refresher, interval: interval}
}

// Start registers the refresh job and runs one refresh immediately in the background.
func (s *InsightScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("insight scheduler already started")
	}

	c := rcron.New(rcron.WithChain(rcron.SkipIfStillRunning(rcron.DefaultLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.tick); err != nil {
		return fmt.Errorf("failed to schedule insight refresh: %w", err)
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.cron = c
	c.Start()

	logger.WithAssistant(string(ModeInsights)).WithField("interval", s.interval.String()).Info("Insight scheduler started")

	go s.tick()
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *InsightScheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	logger.WithAssistant(string(ModeInsights)).Info("Insight scheduler stopped")
}

func (s *InsightScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStatus{
		Running:    s.cron != nil,
		Interval:   s.interval.String(),
		LastRun:    s.lastRun,
		LastSource: s.lastSource,
		Runs:       s.runs,
	}
}

func (s *InsightScheduler) tick() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	result := s.refresher.RefreshInsights(ctx)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastSource = result.Source
	s.runs++
	s.mu.Unlock()

	logger.WithAssistant(string(ModeInsights)).WithFields(map[string]interface{}{
		"source":   result.Source,
		"insights": len(result.Insights),
	}).Info("Scheduled insight refresh finished")
}
