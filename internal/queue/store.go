package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"recap/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "recap.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// NewJob inserts a submitted video and returns the stored record.
func (s *Store) NewJob(ctx context.Context, fileName, sourcePath string) (*Job, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	jobID := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            job_id, file_name, source_path, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		jobID,
		fileName,
		nullableString(sourcePath),
		StatusInitiated,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, jobID)
}

// GetByID fetches a job by identifier. Returns nil when no job matches.
func (s *Store) GetByID(ctx context.Context, jobID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job. Once a job is stored as
// completed or failed no further writes are accepted except the identical
// terminal status, so the first terminal outcome wins under concurrent
// failure reports.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET file_name = ?, source_path = ?, status = ?, duration_seconds = ?,
             video_ref = ?, audio_ref = ?, chunk_count = ?, error_stage = ?,
             error_message = ?, final_summary = ?, action_items_json = ?,
             total_cost = ?, cost_breakdown_json = ?, usage_metrics_json = ?,
             performance_metrics_json = ?, final_result_ref = ?, updated_at = ?,
             completed_at = ?
         WHERE job_id = ? AND (status NOT IN (?, ?) OR status = ?)`,
		job.FileName,
		nullableString(job.SourcePath),
		job.Status,
		job.DurationSeconds,
		nullableString(job.VideoRef),
		nullableString(job.AudioRef),
		job.ChunkCount,
		nullableString(string(job.ErrorStage)),
		nullableString(job.ErrorMessage),
		nullableString(job.FinalSummary),
		nullableString(job.ActionItemsJSON),
		job.TotalCost,
		nullableString(job.CostBreakdownJSON),
		nullableString(job.UsageMetricsJSON),
		nullableString(job.PerformanceMetricsJSON),
		nullableString(job.FinalResultRef),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.CompletedAt),
		job.JobID,
		StatusCompleted,
		StatusFailed,
		job.Status,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		existing, getErr := s.GetByID(ctx, job.JobID)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return ErrNotFound
		}
		return fmt.Errorf("job %s already %s: %w", job.JobID, existing.Status, ErrTerminalState)
	}
	return nil
}

// MarkFailed records a terminal failure with its stage tag. The write is a
// no-op when the job already reached a terminal state.
func (s *Store) MarkFailed(ctx context.Context, jobID string, stage ErrorStage, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, error_stage = ?, error_message = ?, updated_at = ?, completed_at = ?
         WHERE job_id = ? AND status NOT IN (?, ?)`,
		StatusFailed,
		string(stage),
		truncateError(message),
		now,
		now,
		jobID,
		StatusCompleted,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextForStatuses returns the oldest job matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ResetStuckProcessing rolls jobs stranded in an in-flight status back to the
// start of their stage so a restarted daemon can pick them up again.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	var total int64
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for from, to := range processingRollback {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?`,
			to,
			now,
			from,
		)
		if err != nil {
			return total, fmt.Errorf("reset stuck jobs: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// RetryFailed moves failed jobs back to initiated for reprocessing.
// With no identifiers, every failed job is retried.
func (s *Store) RetryFailed(ctx context.Context, jobIDs ...string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(jobIDs) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE jobs
            SET status = ?, error_stage = NULL, error_message = NULL,
                completed_at = NULL, updated_at = ?
            WHERE status = ?`,
			StatusInitiated,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(jobIDs))
	args := make([]any, 0, len(jobIDs)+2)
	args = append(args, StatusInitiated, timestamp)
	for _, id := range jobIDs {
		args = append(args, id)
	}
	query := `UPDATE jobs
        SET status = ?, error_stage = NULL, error_message = NULL,
            completed_at = NULL, updated_at = ?
        WHERE job_id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch {
		case status == StatusFailed:
			health.Failed += count
		case status == StatusCompleted:
			health.Completed += count
		case status.IsProcessing():
			health.Processing += count
		default:
			health.Pending += count
		}
	}
	return health, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, jobID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = ?`, jobID)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all jobs from the store.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

const jobColumns = "job_id, file_name, source_path, status, duration_seconds, video_ref, audio_ref, chunk_count, error_stage, error_message, final_summary, action_items_json, total_cost, cost_breakdown_json, usage_metrics_json, performance_metrics_json, final_result_ref, created_at, updated_at, completed_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		jobID           string
		fileName        string
		sourcePath      sql.NullString
		statusStr       string
		durationSeconds float64
		videoRef        sql.NullString
		audioRef        sql.NullString
		chunkCount      int
		errorStage      sql.NullString
		errorMessage    sql.NullString
		finalSummary    sql.NullString
		actionItems     sql.NullString
		totalCost       float64
		costBreakdown   sql.NullString
		usageMetrics    sql.NullString
		perfMetrics     sql.NullString
		finalResultRef  sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		completedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&jobID,
		&fileName,
		&sourcePath,
		&statusStr,
		&durationSeconds,
		&videoRef,
		&audioRef,
		&chunkCount,
		&errorStage,
		&errorMessage,
		&finalSummary,
		&actionItems,
		&totalCost,
		&costBreakdown,
		&usageMetrics,
		&perfMetrics,
		&finalResultRef,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		JobID:                  jobID,
		FileName:               fileName,
		SourcePath:             sourcePath.String,
		Status:                 Status(statusStr),
		DurationSeconds:        durationSeconds,
		VideoRef:               videoRef.String,
		AudioRef:               audioRef.String,
		ChunkCount:             chunkCount,
		ErrorStage:             ErrorStage(errorStage.String),
		ErrorMessage:           errorMessage.String,
		FinalSummary:           finalSummary.String,
		ActionItemsJSON:        actionItems.String,
		TotalCost:              totalCost,
		CostBreakdownJSON:      costBreakdown.String,
		UsageMetricsJSON:       usageMetrics.String,
		PerformanceMetricsJSON: perfMetrics.String,
		FinalResultRef:         finalResultRef.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
