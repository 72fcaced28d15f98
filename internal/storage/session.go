package storage

import (
	"time"

	"github.com/spachava753/oracle/internal/usage"
)

// Status is the lifecycle state of a session or of one model within it.
// Transitions only move forward: pending, running, then one terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions are accepted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.rank() >= 0
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	case StatusCompleted, StatusFailed, StatusCancelled:
		return 2
	}
	return -1
}

// CanTransition reports whether moving from s to next is a forward step.
// Any move out of a terminal state, and any backward or same-rank move, is refused.
func (s Status) CanTransition(next Status) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if s == "" {
		return true
	}
	return next.rank() > s.rank()
}

// Mode is the engine used to reach the models.
type Mode string

const (
	ModeAPI     Mode = "api"
	ModeBrowser Mode = "browser"
)

// SessionOptions is the subset of the run request recorded in metadata.
type SessionOptions struct {
	Prompt            string        `json:"prompt"`
	Model             string        `json:"model"`
	Models            []string      `json:"models,omitempty"`
	Mode              Mode          `json:"mode"`
	Files             []string      `json:"files,omitempty"`
	Search            bool          `json:"search"`
	HeartbeatInterval time.Duration `json:"heartbeatInterval,omitempty"`
}

// SessionRequest is persisted verbatim to request.json.
type SessionRequest struct {
	SessionOptions
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// ModelRun tracks one model's execution inside a session.
type ModelRun struct {
	Model       string          `json:"model"`
	Status      Status          `json:"status"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Usage       *usage.Estimate `json:"usage,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// SessionMeta is the content of meta.json.
type SessionMeta struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Status      Status         `json:"status"`
	Model       string         `json:"model"`
	Mode        Mode           `json:"mode"`
	Cwd         string         `json:"cwd,omitempty"`
	Options     SessionOptions `json:"options"`
	Models      []ModelRun     `json:"models,omitempty"`
	Error       string         `json:"error,omitempty"`
	PID         int            `json:"pid,omitempty"`
}

// ModelRun returns the record for model, if any.
func (m *SessionMeta) ModelRun(model string) (ModelRun, bool) {
	for _, r := range m.Models {
		if r.Model == model {
			return r, true
		}
	}
	return ModelRun{}, false
}

// applyStatus performs a monotonic status change and reports whether it happened.
func (m *SessionMeta) applyStatus(next Status, reason string, now time.Time) bool {
	if !m.Status.CanTransition(next) {
		return false
	}
	m.Status = next
	m.UpdatedAt = now
	if next.IsTerminal() {
		m.CompletedAt = &now
	}
	if reason != "" {
		m.Error = reason
	}
	return true
}

// applyModelRun upserts run with the same forward-only rule per model.
func (m *SessionMeta) applyModelRun(run ModelRun, now time.Time) bool {
	for i := range m.Models {
		if m.Models[i].Model != run.Model {
			continue
		}
		if !m.Models[i].Status.CanTransition(run.Status) {
			return false
		}
		m.Models[i] = mergeModelRun(m.Models[i], run)
		m.UpdatedAt = now
		return true
	}
	m.Models = append(m.Models, run)
	m.UpdatedAt = now
	return true
}

func mergeModelRun(prev, next ModelRun) ModelRun {
	if next.StartedAt == nil {
		next.StartedAt = prev.StartedAt
	}
	if next.Usage == nil {
		next.Usage = prev.Usage
	}
	return next
}

func newSessionMeta(id string, req SessionRequest, cwd string, now time.Time) *SessionMeta {
	models := req.Models
	if len(models) == 0 && req.Model != "" {
		models = []string{req.Model}
	}
	meta := &SessionMeta{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusPending,
		Model:     req.Model,
		Mode:      req.Mode,
		Cwd:       cwd,
		Options:   req.SessionOptions,
	}
	for _, name := range models {
		meta.Models = append(meta.Models, ModelRun{Model: name, Status: StatusPending})
	}
	return meta
}
