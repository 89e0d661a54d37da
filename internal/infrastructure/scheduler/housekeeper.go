// Package scheduler runs the periodic document housekeeping sweeps:
// expiring quotes past their validity window and marking orders with
// overdue payments. Both transitions are also derived on access, so the
// sweeps only bound how stale a stored status can get.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one housekeeping sweep. Run reports how many documents it
// touched.
type Task struct {
	Name string
	Run  func(ctx context.Context, asOf time.Time) (int, error)
}

// Config holds housekeeper configuration
type Config struct {
	Enabled     bool
	Interval    time.Duration
	TaskTimeout time.Duration
}

// DefaultConfig returns default housekeeper configuration
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Interval:    15 * time.Minute,
		TaskTimeout: 5 * time.Minute,
	}
}

// Housekeeper runs the registered tasks on a fixed interval.
type Housekeeper struct {
	config Config
	tasks  []Task
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewHousekeeper creates a new housekeeper instance
func NewHousekeeper(config Config, logger *zap.Logger, tasks ...Task) *Housekeeper {
	return &Housekeeper{
		config: config,
		tasks:  tasks,
		logger: logger,
	}
}

// Start starts the housekeeping loop
func (h *Housekeeper) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		return nil
	}
	h.isRunning = true
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	h.wg.Add(1)
	go h.runLoop(ctx)

	h.logger.Info("Housekeeper started",
		zap.Duration("interval", h.config.Interval),
		zap.Int("tasks", len(h.tasks)),
	)

	return nil
}

// Stop gracefully stops the housekeeping loop
func (h *Housekeeper) Stop(ctx context.Context) error {
	h.mu.Lock()
	if !h.isRunning {
		h.mu.Unlock()
		return nil
	}
	h.isRunning = false
	h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Housekeeper stopped")
		return nil
	case <-ctx.Done():
		h.logger.Warn("Housekeeper stop timed out")
		return ctx.Err()
	}
}

// runLoop runs the sweeps until the context is cancelled
func (h *Housekeeper) runLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.RunOnce(ctx, time.Now())
		}
	}
}

// RunOnce executes every task once against the given reference time. A
// failing task is logged and does not stop the remaining tasks.
func (h *Housekeeper) RunOnce(ctx context.Context, asOf time.Time) {
	for _, task := range h.tasks {
		taskCtx, cancel := context.WithTimeout(ctx, h.config.TaskTimeout)
		affected, err := task.Run(taskCtx, asOf)
		cancel()

		if err != nil {
			h.logger.Error("Housekeeping task failed",
				zap.String("task", task.Name),
				zap.Error(err),
			)
			continue
		}
		if affected > 0 {
			h.logger.Info("Housekeeping task completed",
				zap.String("task", task.Name),
				zap.Int("affected", affected),
			)
		} else {
			h.logger.Debug("Housekeeping task completed",
				zap.String("task", task.Name),
				zap.Int("affected", 0),
			)
		}
	}
}
