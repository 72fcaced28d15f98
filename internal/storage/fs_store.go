package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	metaFile    = "meta.json"
	requestFile = "request.json"
	outputFile  = "output.log"
	answersDir  = "answers"
	cancelFile  = "cancel.requested"

	// DefaultCancelReason is reported for a cancel request without a reason.
	DefaultCancelReason = "cancel requested"

	maxIDAttempts = 10
	readParallel  = 8
)

// FSStore keeps one directory per session under root:
// meta.json (rewritten atomically), request.json (written once),
// output.log (append only), answers/<model>.md and cancel.requested.
//
// meta.json has a single writer, the process running the session. Other
// processes cancel through the cancel.requested marker.
type FSStore struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
	newID  func(prompt string) string
	index  *Index

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// FSStoreOption configures an FSStore.
type FSStoreOption func(*FSStore)

// WithLogger sets the logger used for non-fatal problems.
func WithLogger(l *slog.Logger) FSStoreOption {
	return func(s *FSStore) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) FSStoreOption {
	return func(s *FSStore) { s.now = now }
}

// WithIDGenerator overrides NewSessionID.
func WithIDGenerator(gen func(prompt string) string) FSStoreOption {
	return func(s *FSStore) { s.newID = gen }
}

// WithIndex mirrors session metadata into a sqlite index used for listing.
func WithIndex(idx *Index) FSStoreOption {
	return func(s *FSStore) { s.index = idx }
}

// NewFSStore returns a store rooted at the sessions directory root.
func NewFSStore(root string, opts ...FSStoreOption) *FSStore {
	s := &FSStore{
		root:   root,
		logger: slog.Default(),
		now:    time.Now,
		newID:  NewSessionID,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the sessions directory.
func (s *FSStore) Root() string { return s.root }

// EnsureStorage creates the sessions directory.
func (s *FSStore) EnsureStorage() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create sessions dir %s: %w", s.root, err)
	}
	return nil
}

// SessionDir returns the directory of session id.
func (s *FSStore) SessionDir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *FSStore) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *FSStore) CreateSession(ctx context.Context, req SessionRequest, cwd string) (*SessionMeta, error) {
	if err := s.EnsureStorage(); err != nil {
		return nil, err
	}

	var (
		id  string
		dir string
	)
	for attempt := 0; ; attempt++ {
		if attempt == maxIDAttempts {
			return nil, fmt.Errorf("could not allocate a unique session id after %d attempts", maxIDAttempts)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id = s.newID(req.Prompt)
		if err := ValidateSessionID(id); err != nil {
			return nil, err
		}
		dir = s.SessionDir(id)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	meta := newSessionMeta(id, req, cwd, s.now())
	if err := writeJSONAtomic(filepath.Join(dir, requestFile), req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, outputFile), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create output log: %w", err)
	}
	_ = f.Close()
	if err := writeJSONAtomic(filepath.Join(dir, metaFile), meta); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	s.indexUpsert(ctx, meta)
	return meta, nil
}

// mutateMeta applies fn to the current metadata under the session lock and
// rewrites meta.json when fn reports a change.
func (s *FSStore) mutateMeta(ctx context.Context, id string, fn func(*SessionMeta) bool) (*SessionMeta, bool, error) {
	if err := ValidateSessionID(id); err != nil {
		return nil, false, err
	}
	unlock := s.lock(id)
	defer unlock()

	meta, err := s.readMetaFile(id)
	if err != nil {
		return nil, false, err
	}
	if !fn(meta) {
		return meta, false, nil
	}
	if err := writeJSONAtomic(filepath.Join(s.SessionDir(id), metaFile), meta); err != nil {
		return nil, false, fmt.Errorf("write metadata: %w", err)
	}
	return meta, true, nil
}

func (s *FSStore) UpdateStatus(ctx context.Context, id string, status Status, reason string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	meta, changed, err := s.mutateMeta(ctx, id, func(m *SessionMeta) bool {
		return m.applyStatus(status, reason, s.now())
	})
	if err != nil {
		return err
	}
	if !changed {
		s.logger.Debug("ignored session status transition",
			slog.String("session", id),
			slog.String("from", string(meta.Status)),
			slog.String("to", string(status)))
		return nil
	}
	s.indexUpsert(ctx, meta)
	return nil
}

func (s *FSStore) UpdateModel(ctx context.Context, id string, run ModelRun) error {
	if run.Model == "" {
		return errors.New("model run without model name")
	}
	_, _, err := s.mutateMeta(ctx, id, func(m *SessionMeta) bool {
		return m.applyModelRun(run, s.now())
	})
	return err
}

func (s *FSStore) AppendOutput(ctx context.Context, id string, chunk string) error {
	if err := ValidateSessionID(id); err != nil {
		return err
	}
	unlock := s.lock(id)
	defer unlock()

	dir := s.SessionDir(id)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, outputFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output log: %w", err)
	}
	if _, err := f.WriteString(chunk); err != nil {
		_ = f.Close()
		return fmt.Errorf("append output log: %w", err)
	}
	return f.Close()
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func answerFileName(model string) string {
	return unsafeFileChars.ReplaceAllString(model, "_") + ".md"
}

func (s *FSStore) WriteAnswer(ctx context.Context, id, model, text string) error {
	if err := ValidateSessionID(id); err != nil {
		return err
	}
	dir := filepath.Join(s.SessionDir(id), answersDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create answers dir: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, answerFileName(model)), []byte(text))
}

func (s *FSStore) ReadAnswer(ctx context.Context, id, model string) (string, error) {
	if err := ValidateSessionID(id); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.SessionDir(id), answersDir, answerFileName(model)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: no answer for %s in %s", ErrSessionNotFound, model, id)
		}
		return "", err
	}
	return string(data), nil
}

// readMeta returns the metadata as readers see it: a session that is not yet
// terminal but has a cancel request reads as cancelled.
func (s *FSStore) readMeta(id string) (*SessionMeta, error) {
	meta, err := s.readMetaFile(id)
	if err != nil || meta.Status.IsTerminal() {
		return meta, err
	}
	reason, at, ok, err := s.cancelRequest(id)
	if err != nil {
		s.logger.Warn("reading cancel request", slog.String("session", id), slog.String("error", err.Error()))
		return meta, nil
	}
	if ok {
		meta.applyStatus(StatusCancelled, reason, at)
	}
	return meta, nil
}

func (s *FSStore) readMetaFile(id string) (*SessionMeta, error) {
	var meta SessionMeta
	if err := readJSON(filepath.Join(s.SessionDir(id), metaFile), &meta); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return &meta, nil
}

func (s *FSStore) ReadMeta(ctx context.Context, id string) (*SessionMeta, error) {
	if err := ValidateSessionID(id); err != nil {
		return nil, err
	}
	return s.readMeta(id)
}

func (s *FSStore) ReadRequest(ctx context.Context, id string) (*SessionRequest, error) {
	if err := ValidateSessionID(id); err != nil {
		return nil, err
	}
	var req SessionRequest
	if err := readJSON(filepath.Join(s.SessionDir(id), requestFile), &req); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return &req, nil
}

func (s *FSStore) ReadOutput(ctx context.Context, id string) (string, error) {
	if err := ValidateSessionID(id); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.SessionDir(id), outputFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return "", err
	}
	return string(data), nil
}

func (s *FSStore) RequestCancel(ctx context.Context, id, reason string) (bool, error) {
	if err := ValidateSessionID(id); err != nil {
		return false, err
	}
	dir := s.SessionDir(id)
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return false, err
	}
	f, err := os.OpenFile(filepath.Join(dir, cancelFile), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("write cancel request: %w", err)
	}
	if _, err := f.WriteString(reason); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write cancel request: %w", err)
	}
	return true, f.Close()
}

func (s *FSStore) CancelRequested(ctx context.Context, id string) (string, bool, error) {
	if err := ValidateSessionID(id); err != nil {
		return "", false, err
	}
	reason, _, ok, err := s.cancelRequest(id)
	return reason, ok, err
}

func (s *FSStore) cancelRequest(id string) (string, time.Time, bool, error) {
	path := filepath.Join(s.SessionDir(id), cancelFile)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, false, err
	}
	// the marker may still be empty while RequestCancel writes it
	reason := strings.TrimSpace(string(data))
	if reason == "" {
		reason = DefaultCancelReason
	}
	return reason, info.ModTime(), true, nil
}

// sessionIDs lists session ids, in index order when the index agrees with the
// directories. A stale index, left by a process running without it, is
// rebuilt and the directories are used.
func (s *FSStore) sessionIDs(ctx context.Context) ([]string, error) {
	onDisk, err := s.dirIDs()
	if err != nil || s.index == nil {
		return onDisk, err
	}
	ids, err := s.index.IDs(ctx)
	if err != nil {
		s.logger.Warn("session index unavailable, scanning directory", slog.String("error", err.Error()))
		return onDisk, nil
	}
	if sameIDs(ids, onDisk) {
		return ids, nil
	}
	s.logger.Info("session index out of date, rebuilding",
		slog.Int("indexed", len(ids)),
		slog.Int("on_disk", len(onDisk)))
	if err := s.RebuildIndex(ctx); err != nil {
		s.logger.Warn("rebuilding session index", slog.String("error", err.Error()))
	}
	return onDisk, nil
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, id := range a {
		seen[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}

func (s *FSStore) dirIDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && ValidateSessionID(e.Name()) == nil {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (s *FSStore) ListSessions(ctx context.Context) ([]SessionMeta, error) {
	ids, err := s.sessionIDs(ctx)
	if err != nil {
		return nil, err
	}
	return s.readMetas(ctx, ids)
}

func (s *FSStore) readMetas(ctx context.Context, ids []string) ([]SessionMeta, error) {
	metas := make([]*SessionMeta, len(ids))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(readParallel)
	for i, id := range ids {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			meta, err := s.readMeta(id)
			if err != nil {
				s.logger.Warn("skipping unreadable session",
					slog.String("session", id),
					slog.String("error", err.Error()))
				return nil
			}
			metas[i] = meta
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]SessionMeta, 0, len(metas))
	for _, m := range metas {
		if m != nil {
			out = append(out, *m)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// DeleteSessions removes sessions created before the filter window. Sessions
// still pending or running are kept unless IncludeAll is set.
func (s *FSStore) DeleteSessions(ctx context.Context, filter Filter) (int, error) {
	metas, err := s.ListSessions(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	removed := 0
	for _, m := range metas {
		if !filter.IncludeAll {
			if filter.matches(m, now) || !m.Status.IsTerminal() {
				continue
			}
		}
		if err := os.RemoveAll(s.SessionDir(m.ID)); err != nil {
			return removed, fmt.Errorf("remove session %s: %w", m.ID, err)
		}
		s.indexDelete(ctx, m.ID)
		removed++
	}
	return removed, nil
}

// RebuildIndex repopulates the sqlite index from the session directories.
func (s *FSStore) RebuildIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	ids, err := s.dirIDs()
	if err != nil {
		return err
	}
	metas, err := s.readMetas(ctx, ids)
	if err != nil {
		return err
	}
	return s.index.Rebuild(ctx, metas)
}

func (s *FSStore) indexUpsert(ctx context.Context, meta *SessionMeta) {
	if s.index == nil {
		return
	}
	if err := s.index.Upsert(ctx, meta); err != nil {
		s.logger.Warn("session index update failed",
			slog.String("session", meta.ID),
			slog.String("error", err.Error()))
	}
}

func (s *FSStore) indexDelete(ctx context.Context, id string) {
	if s.index == nil {
		return
	}
	if err := s.index.Delete(ctx, id); err != nil {
		s.logger.Warn("session index delete failed",
			slog.String("session", id),
			slog.String("error", err.Error()))
	}
}
