package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recap/internal/logging"
	"recap/internal/queue"
)

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	triggers := m.triggerStatuses()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextForStatuses(ctx, triggers...)
		if err != nil {
			m.logger.Error("failed to fetch next job", logging.Error(err))
			m.waitOrShutdown(ctx)
			continue
		}
		if job == nil {
			m.waitOrShutdown(ctx)
			continue
		}

		if err := m.processJob(ctx, job); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	ps, ok := m.stageForStatus(job.Status)
	if !ok {
		m.logger.Warn("no stage configured for status", logging.String("status", string(job.Status)))
		m.waitOrShutdown(ctx)
		return nil
	}

	stageCtx := logging.WithRequestID(logging.WithStage(logging.WithJobID(ctx, job.JobID), ps.Name), uuid.NewString())
	logger := logging.WithContext(stageCtx, m.logger)

	job.Status = ps.Processing
	if err := m.store.Update(stageCtx, job); err != nil {
		logger.Error("failed to claim job", logging.Error(err))
		return fmt.Errorf("claim job: %w", err)
	}

	return m.executeStage(stageCtx, ps, job)
}

func (m *Manager) executeStage(ctx context.Context, ps PipelineStage, job *queue.Job) error {
	logger := logging.WithContext(ctx, m.logger)
	started := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("file_name", job.FileName))

	if err := ps.Handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, ps, job, err)
		return err
	}
	if err := ps.Handler.Execute(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("stage interrupted by shutdown")
			return err
		}
		m.handleStageFailure(ctx, ps, job, err)
		return err
	}

	if job.Status == ps.Processing {
		job.Status = ps.Done
	}
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist stage result", logging.Error(err))
		return fmt.Errorf("persist stage result: %w", err)
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(job.Status)),
		logging.Duration("stage_duration", time.Since(started)))

	if job.Status == queue.StatusCompleted {
		m.announceCompletion(ctx, job)
	}
	return nil
}
