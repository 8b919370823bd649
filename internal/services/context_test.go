package services_test

import (
	"context"
	"testing"

	"montage/internal/services"
)

func TestScopeAccumulates(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 42)
	ctx = services.WithStage(ctx, "muxing")
	ctx = services.WithCorrelationID(ctx, "req-123")

	want := services.Scope{JobID: 42, Stage: "muxing", CorrelationID: "req-123"}
	if got := services.ScopeFromContext(ctx); got != want {
		t.Fatalf("scope = %+v, want %+v", got, want)
	}
	if id, ok := services.JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if rid, ok := services.CorrelationIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected correlation id: %v %v", rid, ok)
	}
}

func TestStageOverrideLeavesParentUntouched(t *testing.T) {
	parent := services.WithStage(services.WithJobID(context.Background(), 7), "probing")
	child := services.WithStage(parent, "burning")

	if stage, _ := services.StageFromContext(parent); stage != "probing" {
		t.Fatalf("parent stage changed to %q", stage)
	}
	if stage, _ := services.StageFromContext(child); stage != "burning" {
		t.Fatalf("child stage = %q", stage)
	}
	if id, _ := services.JobIDFromContext(child); id != 7 {
		t.Fatalf("child lost job id: %d", id)
	}
}

func TestBlankValuesAreIgnored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	ctx = services.WithJobID(ctx, 0)
	ctx = services.WithCorrelationID(ctx, "")
	if scope := services.ScopeFromContext(ctx); scope != (services.Scope{}) {
		t.Fatalf("expected empty scope, got %+v", scope)
	}
	if _, ok := services.JobIDFromContext(context.Background()); ok {
		t.Fatal("expected no job id on empty context")
	}
}
