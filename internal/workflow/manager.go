package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"recap/internal/config"
	"recap/internal/logging"
	"recap/internal/notifications"
	"recap/internal/queue"
	"recap/internal/stage"
)

// PipelineStage binds a stage handler to its queue status transitions. A job
// whose status equals Trigger is claimed by moving it to Processing, and a
// successful Execute leaves it at the handler-assigned status (normally
// Done).
type PipelineStage struct {
	Name       string
	Trigger    queue.Status
	Processing queue.Status
	Done       queue.Status
	Handler    stage.Handler
}

// Manager coordinates queue processing using registered pipeline stages.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	artifacts    ArtifactChecker
	logger       *slog.Logger
	notifier     notifications.Service
	stages       []PipelineStage
	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager over caller-constructed stage
// handlers. The artifact checker backs failure classification; passing nil
// degrades classification for the provider stages but is safe.
func NewManager(cfg *config.Config, store *queue.Store, artifacts ArtifactChecker, notifier notifications.Service, logger *slog.Logger, stages ...PipelineStage) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		artifacts:    artifacts,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		notifier:     notifier,
		stages:       stages,
		pollInterval: pollInterval,
	}
}

// Start rolls back jobs stranded in processing statuses by a previous run,
// then begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		return errors.New("workflow stages not configured")
	}

	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		m.logger.Info("reset stuck jobs", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the worker to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Health reports per-stage readiness.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.stages))
	for _, ps := range m.stages {
		checks = append(checks, ps.Handler.HealthCheck(ctx))
	}
	return checks
}

func (m *Manager) stageForStatus(status queue.Status) (PipelineStage, bool) {
	for _, ps := range m.stages {
		if ps.Trigger == status {
			return ps, true
		}
	}
	return PipelineStage{}, false
}

func (m *Manager) triggerStatuses() []queue.Status {
	statuses := make([]queue.Status, 0, len(m.stages))
	for _, ps := range m.stages {
		statuses = append(statuses, ps.Trigger)
	}
	return statuses
}
