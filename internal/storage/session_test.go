package storage

import (
	"testing"
	"time"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{"", StatusPending, true},
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusPending, false},
		{StatusRunning, StatusRunning, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCancelled, StatusRunning, false},
		{StatusPending, Status("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Fatalf("CanTransition(%q -> %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestApplyModelRunKeepsStartAndUsage(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	meta := newSessionMeta("abc-123456", SessionRequest{SessionOptions: SessionOptions{
		Prompt: "p", Model: "gpt-5.1", Models: []string{"gpt-5.1", "claude-4.5-sonnet"},
	}}, "/tmp", now)

	if len(meta.Models) != 2 || meta.Models[1].Status != StatusPending {
		t.Fatalf("expected two pending model runs, got %+v", meta.Models)
	}

	started := now.Add(time.Second)
	if !meta.applyModelRun(ModelRun{Model: "gpt-5.1", Status: StatusRunning, StartedAt: &started}, now) {
		t.Fatal("running transition refused")
	}
	if !meta.applyModelRun(ModelRun{Model: "gpt-5.1", Status: StatusCompleted}, now) {
		t.Fatal("completed transition refused")
	}
	run, ok := meta.ModelRun("gpt-5.1")
	if !ok || run.StartedAt == nil || !run.StartedAt.Equal(started) {
		t.Fatalf("start time not preserved: %+v", run)
	}
	if meta.applyModelRun(ModelRun{Model: "gpt-5.1", Status: StatusFailed}, now) {
		t.Fatal("terminal model run was overwritten")
	}
}
