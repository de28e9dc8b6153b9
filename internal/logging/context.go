package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	jobIDKey     contextKey = "job_id"
	stageKey     contextKey = "stage"
	chunkIDKey   contextKey = "chunk_id"
	requestIDKey contextKey = "request_id"
)

// WithJobID annotates the context with the job identifier.
func WithJobID(ctx context.Context, jobID string) context.Context {
	if jobID == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, jobID)
}

// WithStage annotates the context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// WithChunkID annotates the context with a chunk index.
func WithChunkID(ctx context.Context, chunkID int) context.Context {
	return context.WithValue(ctx, chunkIDKey, chunkID)
}

// WithRequestID annotates the context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// JobIDFromContext returns the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(jobIDKey).(string)
	return v, ok && v != ""
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(stageKey).(string)
	return v, ok && v != ""
}

// ChunkIDFromContext returns the chunk index if present.
func ChunkIDFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(chunkIDKey).(int)
	return v, ok
}

// RequestIDFromContext returns the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	return v, ok && v != ""
}

// WithContext returns a logger enriched with every correlation field stored
// in ctx. A nil logger falls back to the no-op logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}

	var attrs []Attr
	if jobID, ok := JobIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldJobID, jobID))
	}
	if stage, ok := StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if chunkID, ok := ChunkIDFromContext(ctx); ok {
		attrs = append(attrs, Int(FieldChunkID, chunkID))
	}
	if requestID, ok := RequestIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldRequestID, requestID))
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
