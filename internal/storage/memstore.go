package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type memSession struct {
	meta    SessionMeta
	req     SessionRequest
	output  strings.Builder
	answers map[string]string

	cancelReason string
	cancelAt     *time.Time
}

// view is the metadata readers see, with a pending cancel request applied.
func (s *memSession) view() SessionMeta {
	meta := s.meta
	meta.Models = append([]ModelRun(nil), s.meta.Models...)
	if s.cancelAt != nil {
		meta.applyStatus(StatusCancelled, s.cancelReason, *s.cancelAt)
	}
	return meta
}

// MemStore is an in-memory SessionStore for tests. It applies the same
// monotonic status rules as FSStore.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]*memSession
	nextID   int
	now      func() time.Time

	// FailWrites makes every mutating call after creation return this error.
	FailWrites error
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string]*memSession), now: time.Now}
}

func (m *MemStore) get(id string) (*memSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *MemStore) CreateSession(ctx context.Context, req SessionRequest, cwd string) (*SessionMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("mem-%d", m.nextID)
	meta := newSessionMeta(id, req, cwd, m.now())
	m.sessions[id] = &memSession{meta: *meta, req: req, answers: make(map[string]string)}
	out := *meta
	return &out, nil
}

func (m *MemStore) UpdateStatus(ctx context.Context, id string, status Status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.meta.applyStatus(status, reason, m.now())
	return nil
}

func (m *MemStore) UpdateModel(ctx context.Context, id string, run ModelRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.meta.applyModelRun(run, m.now())
	return nil
}

func (m *MemStore) AppendOutput(ctx context.Context, id string, chunk string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.output.WriteString(chunk)
	return nil
}

func (m *MemStore) WriteAnswer(ctx context.Context, id, model, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.answers[model] = text
	return nil
}

func (m *MemStore) ReadMeta(ctx context.Context, id string) (*SessionMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	meta := s.view()
	return &meta, nil
}

func (m *MemStore) ReadRequest(ctx context.Context, id string) (*SessionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	req := s.req
	return &req, nil
}

func (m *MemStore) ReadOutput(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		return "", err
	}
	return s.output.String(), nil
}

func (m *MemStore) ReadAnswer(ctx context.Context, id, model string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		return "", err
	}
	text, ok := s.answers[model]
	if !ok {
		return "", fmt.Errorf("%w: no answer for %s in %s", ErrSessionNotFound, model, id)
	}
	return text, nil
}

func (m *MemStore) ListSessions(ctx context.Context) ([]SessionMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionMeta, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.view())
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemStore) DeleteSessions(ctx context.Context, filter Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		meta := s.view()
		if !filter.IncludeAll && (filter.matches(meta, now) || !meta.Status.IsTerminal()) {
			continue
		}
		delete(m.sessions, id)
		removed++
	}
	return removed, nil
}

func (m *MemStore) RequestCancel(ctx context.Context, id, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		return false, err
	}
	if s.cancelAt != nil {
		return false, nil
	}
	if reason == "" {
		reason = DefaultCancelReason
	}
	now := m.now()
	s.cancelReason, s.cancelAt = reason, &now
	return true, nil
}

func (m *MemStore) CancelRequested(ctx context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(id)
	if err != nil {
		return "", false, err
	}
	return s.cancelReason, s.cancelAt != nil, nil
}

var (
	_ SessionStore = (*MemStore)(nil)
	_ SessionStore = (*FSStore)(nil)
)
