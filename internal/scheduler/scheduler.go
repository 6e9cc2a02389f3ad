package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"support-mail-ingest-go/internal/config"
	"support-mail-ingest-go/internal/pipeline"
)

// Scheduler drives periodic ingestion batches. Batches never overlap: an
// interval tick that fires while a batch is still running is skipped, which
// keeps the pipeline's sequential-processing guarantee intact.
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	config  *config.SchedulerConfig
	runner  *pipeline.BatchRunner
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	isRunning bool
	inBatch   bool
	lastRun   time.Time
	lastBatch pipeline.BatchSummary
	mu        sync.RWMutex
}

// New creates a scheduler over the given batch runner.
func New(cfg *config.SchedulerConfig, runner *pipeline.BatchRunner) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		config: cfg,
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.runBatch)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	ctx := s.cron.Stop()
	s.mu.Unlock()

	// Wait without holding the lock: an in-flight batch needs it to record
	// its summary before its cron job returns.
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.mu.Lock()
	s.cron = cron.New(cron.WithSeconds())
	s.isRunning = false
	s.mu.Unlock()
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// runBatch runs one ingestion batch, skipping the tick if the previous
// batch is still going.
func (s *Scheduler) runBatch() {
	s.mu.Lock()
	if !s.isRunning || s.inBatch {
		busy := s.inBatch
		s.mu.Unlock()
		if busy {
			logrus.Warn("Previous ingestion batch still running, skipping this tick")
		}
		return
	}
	s.inBatch = true
	s.lastRun = time.Now()
	s.mu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.inBatch = false
		s.mu.Unlock()
	}()

	logrus.Info("Starting ingestion batch")
	summary, err := s.runner.Run(s.ctx)
	if err != nil {
		logrus.Errorf("Ingestion batch failed: %v", err)
		return
	}

	s.mu.Lock()
	s.lastBatch = summary
	s.mu.Unlock()
}

// RunOnce runs one batch immediately (for manual triggering) and returns
// its summary.
func (s *Scheduler) RunOnce(ctx context.Context) (pipeline.BatchSummary, error) {
	s.mu.Lock()
	if s.inBatch {
		s.mu.Unlock()
		return pipeline.BatchSummary{}, fmt.Errorf("a batch is already running")
	}
	s.inBatch = true
	s.lastRun = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inBatch = false
		s.mu.Unlock()
	}()

	logrus.Info("Running ingestion batch once")
	summary, err := s.runner.Run(ctx)
	if err != nil {
		return summary, err
	}

	s.mu.Lock()
	s.lastBatch = summary
	s.mu.Unlock()
	return summary, nil
}

// LastBatch returns the summary of the most recent completed batch.
func (s *Scheduler) LastBatch() pipeline.BatchSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBatch
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// Wait waits for any in-flight batch to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
