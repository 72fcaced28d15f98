package storage

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when no session exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// SessionCreator allocates new sessions.
type SessionCreator interface {
	// CreateSession allocates a fresh id, persists req verbatim and writes
	// metadata with status pending.
	CreateSession(ctx context.Context, req SessionRequest, cwd string) (*SessionMeta, error)
}

// SessionWriter mutates an existing session. Status changes are monotonic:
// a terminal status is final and later updates are silently ignored.
type SessionWriter interface {
	UpdateStatus(ctx context.Context, id string, status Status, reason string) error
	UpdateModel(ctx context.Context, id string, run ModelRun) error
	// AppendOutput appends chunk to the session log without touching prior content.
	AppendOutput(ctx context.Context, id string, chunk string) error
	WriteAnswer(ctx context.Context, id, model, text string) error
}

// SessionReader reads back what a (possibly different) process wrote.
type SessionReader interface {
	ReadMeta(ctx context.Context, id string) (*SessionMeta, error)
	ReadRequest(ctx context.Context, id string) (*SessionRequest, error)
	ReadOutput(ctx context.Context, id string) (string, error)
	ReadAnswer(ctx context.Context, id, model string) (string, error)
}

// SessionLister enumerates and prunes sessions.
type SessionLister interface {
	// ListSessions returns all readable sessions, newest first.
	ListSessions(ctx context.Context) ([]SessionMeta, error)
	DeleteSessions(ctx context.Context, filter Filter) (int, error)
}

// SessionCanceller carries cancel requests from other processes to the
// process that owns a run. Only the owner writes the cancelled status; until
// it does, readers see a session with a pending request as cancelled.
type SessionCanceller interface {
	// RequestCancel leaves a cancel request for id. It reports false when
	// one was already pending.
	RequestCancel(ctx context.Context, id, reason string) (bool, error)
	// CancelRequested returns the reason of a pending cancel request.
	CancelRequested(ctx context.Context, id string) (string, bool, error)
}

// SessionStore is the full session persistence contract.
type SessionStore interface {
	SessionCreator
	SessionWriter
	SessionReader
	SessionLister
	SessionCanceller
}
