package services

import "context"

// Scope identifies the job, stage and correlation ID a piece of work runs
// under. Zero fields are unset.
type Scope struct {
	JobID         int64
	Stage         string
	CorrelationID string
}

type scopeKey struct{}

// ScopeFromContext returns the scope carried by ctx, or the zero Scope.
func ScopeFromContext(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	scope, _ := ctx.Value(scopeKey{}).(Scope)
	return scope
}

func withScope(ctx context.Context, update func(*Scope)) context.Context {
	scope := ScopeFromContext(ctx)
	update(&scope)
	return context.WithValue(ctx, scopeKey{}, scope)
}

// WithJobID annotates ctx with a render job ID.
func WithJobID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.JobID = id })
}

// JobIDFromContext extracts the job ID if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	id := ScopeFromContext(ctx).JobID
	return id, id > 0
}

// WithStage annotates ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.Stage = stage })
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	stage := ScopeFromContext(ctx).Stage
	return stage, stage != ""
}

// WithCorrelationID annotates ctx with the ID quoted back to clients, either
// an HTTP request ID or a job's correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.CorrelationID = id })
}

// CorrelationIDFromContext extracts the correlation ID if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id := ScopeFromContext(ctx).CorrelationID
	return id, id != ""
}
