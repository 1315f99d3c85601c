// Package txn applies an ordered queue of file-mutation steps atomically.
//
// Steps execute strictly in insertion order, since a later step may depend on
// filesystem state left by an earlier one. Before mutating, the manager
// snapshots whatever is needed to reverse the step. In abort mode (the
// default) the first fatal failure reverses all previously applied steps in
// reverse order; in continue-on-error mode applied steps stay committed and
// the overall result still reports failure.
package txn

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/raido/internal/apperr"
)

// StepKind identifies a mutation type.
type StepKind string

const (
	StepCreate StepKind = "create"
	StepUpdate StepKind = "update"
	StepDelete StepKind = "delete"
	StepMove   StepKind = "move"
)

// StepState is the per-step state machine: Pending → Applied → (Committed |
// RolledBack).
type StepState string

const (
	StatePending    StepState = "pending"
	StateApplied    StepState = "applied"
	StateCommitted  StepState = "committed"
	StateRolledBack StepState = "rolled-back"
	StateFailed     StepState = "failed"
)

// step is one queued mutation, owned exclusively by a single Execute run.
type step struct {
	kind    StepKind
	path    string // create/update/delete target; move source
	dest    string // move destination
	content []byte

	state StepState
	snap  snapshot
}

// snapshot holds what is needed to reverse an applied step.
type snapshot struct {
	existed bool
	content []byte
	perm    os.FileMode
}

// StepResult reports the outcome of a single step.
type StepResult struct {
	Kind     StepKind
	Path     string
	Dest     string
	State    StepState
	Attempts int
	Err      error
}

// Result is the outcome of an Execute run.
type Result struct {
	Success bool
	Steps   []StepResult
}

// Options configures failure handling for a Manager.
type Options struct {
	// ContinueOnError keeps applying remaining steps after a fatal step
	// failure; already-applied steps are committed rather than reversed.
	ContinueOnError bool
	// MaxRetries bounds retry attempts for transient step failures.
	MaxRetries int
	// RetryBackoff is the base delay between retries; each attempt waits
	// attempt*RetryBackoff.
	RetryBackoff time.Duration
	// Backup writes an on-disk sibling copy (path+BackupSuffix) of any file
	// about to be overwritten, deleted, or moved. Distinct from the in-memory
	// rollback snapshot: backups survive a committed transaction.
	Backup       bool
	BackupSuffix string
}

// DefaultBackupSuffix is appended to backup sibling files.
const DefaultBackupSuffix = ".backup"

// Manager queues and executes file-mutation steps. It is single-threaded per
// transaction and provides no cross-transaction locking; callers must
// serialize invocations touching overlapping paths.
type Manager struct {
	root   string
	opts   Options
	logger *slog.Logger
	steps  []*step
	byPath map[string]bool
}

// NewManager returns a Manager whose step paths are resolved against root.
func NewManager(root string, opts Options, logger *slog.Logger) *Manager {
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = DefaultBackupSuffix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		root:   root,
		opts:   opts,
		logger: logger,
		byPath: make(map[string]bool),
	}
}

// reserve enforces the one-step-per-mutated-path invariant.
func (m *Manager) reserve(paths ...string) error {
	for _, p := range paths {
		if m.byPath[p] {
			return fmt.Errorf("txn: path already has a queued step: %s: %w", p, apperr.ErrConflict)
		}
	}
	for _, p := range paths {
		m.byPath[p] = true
	}
	return nil
}

// Create queues creation of a new file. Creating an existing path is fatal
// at execution time.
func (m *Manager) Create(path string, content []byte) error {
	if err := m.reserve(path); err != nil {
		return err
	}
	m.steps = append(m.steps, &step{kind: StepCreate, path: path, content: content, state: StatePending})
	return nil
}

// Update queues replacement of an existing file's content.
func (m *Manager) Update(path string, content []byte) error {
	if err := m.reserve(path); err != nil {
		return err
	}
	m.steps = append(m.steps, &step{kind: StepUpdate, path: path, content: content, state: StatePending})
	return nil
}

// Delete queues removal of a file. Deleting a nonexistent path is a no-op
// success.
func (m *Manager) Delete(path string) error {
	if err := m.reserve(path); err != nil {
		return err
	}
	m.steps = append(m.steps, &step{kind: StepDelete, path: path, state: StatePending})
	return nil
}

// Move queues a rename. Moving a nonexistent source is fatal at execution
// time.
func (m *Manager) Move(from, to string) error {
	if err := m.reserve(from, to); err != nil {
		return err
	}
	m.steps = append(m.steps, &step{kind: StepMove, path: from, dest: to, state: StatePending})
	return nil
}

// Len reports the number of queued steps.
func (m *Manager) Len() int { return len(m.steps) }

// fatalError marks a step failure that no retry can fix.
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(err error) error { return &fatalError{err: err} }

func isFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// Execute runs all queued steps. Under normal termination the filesystem
// ends in exactly one of two states: every step applied, or (abort mode)
// every touched path byte-identical to its pre-transaction state.
func (m *Manager) Execute() *Result {
	res := &Result{Success: true}
	var applied []*step
	failed := false

	for _, s := range m.steps {
		if failed && !m.opts.ContinueOnError {
			res.Steps = append(res.Steps, StepResult{Kind: s.kind, Path: s.path, Dest: s.dest, State: StatePending})
			continue
		}
		attempts, err := m.applyWithRetry(s)
		sr := StepResult{Kind: s.kind, Path: s.path, Dest: s.dest, Attempts: attempts, Err: err}
		if err != nil {
			s.state = StateFailed
			sr.State = StateFailed
			res.Steps = append(res.Steps, sr)
			res.Success = false
			failed = true
			m.logger.Warn("txn: step failed",
				slog.String("kind", string(s.kind)),
				slog.String("path", s.path),
				slog.String("error", err.Error()))
			continue
		}
		s.state = StateApplied
		sr.State = StateApplied
		res.Steps = append(res.Steps, sr)
		applied = append(applied, s)
	}

	if failed && !m.opts.ContinueOnError {
		m.rollback(applied)
		for i := range res.Steps {
			if res.Steps[i].State == StateApplied {
				res.Steps[i].State = StateRolledBack
			}
		}
		return res
	}

	for _, s := range applied {
		s.state = StateCommitted
	}
	for i := range res.Steps {
		if res.Steps[i].State == StateApplied {
			res.Steps[i].State = StateCommitted
		}
	}
	return res
}

// applyWithRetry applies one step, retrying transient failures with backoff.
func (m *Manager) applyWithRetry(s *step) (int, error) {
	attempts := 0
	for {
		attempts++
		err := m.apply(s)
		if err == nil {
			return attempts, nil
		}
		if isFatal(err) || attempts > m.opts.MaxRetries {
			return attempts, err
		}
		time.Sleep(time.Duration(attempts) * m.opts.RetryBackoff)
	}
}

func (m *Manager) abs(p string) string {
	return filepath.Join(m.root, filepath.FromSlash(p))
}

func (m *Manager) apply(s *step) error {
	switch s.kind {
	case StepCreate:
		return m.applyCreate(s)
	case StepUpdate:
		return m.applyUpdate(s)
	case StepDelete:
		return m.applyDelete(s)
	case StepMove:
		return m.applyMove(s)
	default:
		return fatal(fmt.Errorf("txn: unknown step kind %q", s.kind))
	}
}

func (m *Manager) applyCreate(s *step) error {
	abs := m.abs(s.path)
	if _, err := os.Lstat(abs); err == nil {
		return fatal(fmt.Errorf("txn: create %s: %w", s.path, apperr.ErrAlreadyExists))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("txn: stat %s: %w", s.path, err)
	}
	s.snap = snapshot{existed: false}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("txn: mkdir for %s: %w", s.path, err)
	}
	if err := os.WriteFile(abs, s.content, 0o644); err != nil {
		return fmt.Errorf("txn: create %s: %w", s.path, err)
	}
	return nil
}

func (m *Manager) applyUpdate(s *step) error {
	abs := m.abs(s.path)
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return fatal(fmt.Errorf("txn: update %s: %w", s.path, apperr.ErrNotFound))
	}
	if err != nil {
		return fmt.Errorf("txn: stat %s: %w", s.path, err)
	}
	if info.IsDir() {
		return fatal(fmt.Errorf("txn: update %s: target is a directory", s.path))
	}
	prior, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("txn: read %s: %w", s.path, err)
	}
	s.snap = snapshot{existed: true, content: prior, perm: info.Mode().Perm()}
	if err := m.writeBackup(abs, prior, info.Mode().Perm()); err != nil {
		return err
	}
	if err := os.WriteFile(abs, s.content, info.Mode().Perm()); err != nil {
		return fmt.Errorf("txn: update %s: %w", s.path, err)
	}
	return nil
}

func (m *Manager) applyDelete(s *step) error {
	abs := m.abs(s.path)
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		s.snap = snapshot{existed: false}
		return nil // deleting a missing path is a no-op
	}
	if err != nil {
		return fmt.Errorf("txn: stat %s: %w", s.path, err)
	}
	if info.IsDir() {
		return fatal(fmt.Errorf("txn: delete %s: target is a directory", s.path))
	}
	prior, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("txn: read %s: %w", s.path, err)
	}
	s.snap = snapshot{existed: true, content: prior, perm: info.Mode().Perm()}
	if err := m.writeBackup(abs, prior, info.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("txn: delete %s: %w", s.path, err)
	}
	return nil
}

func (m *Manager) applyMove(s *step) error {
	absFrom := m.abs(s.path)
	absTo := m.abs(s.dest)
	if _, err := os.Stat(absFrom); errors.Is(err, fs.ErrNotExist) {
		return fatal(fmt.Errorf("txn: move %s: source %w", s.path, apperr.ErrNotFound))
	} else if err != nil {
		return fmt.Errorf("txn: stat %s: %w", s.path, err)
	}
	if _, err := os.Lstat(absTo); err == nil {
		return fatal(fmt.Errorf("txn: move to %s: %w", s.dest, apperr.ErrAlreadyExists))
	}
	s.snap = snapshot{existed: true}
	if err := os.MkdirAll(filepath.Dir(absTo), 0o755); err != nil {
		return fmt.Errorf("txn: mkdir for %s: %w", s.dest, err)
	}
	if err := os.Rename(absFrom, absTo); err != nil {
		return fmt.Errorf("txn: move %s → %s: %w", s.path, s.dest, err)
	}
	return nil
}

// writeBackup copies prior content to a sibling file when backups are
// requested. Backup files are user-recoverable history and are not removed
// on rollback.
func (m *Manager) writeBackup(abs string, content []byte, perm os.FileMode) error {
	if !m.opts.Backup {
		return nil
	}
	if err := os.WriteFile(abs+m.opts.BackupSuffix, content, perm); err != nil {
		return fmt.Errorf("txn: write backup for %s: %w", abs, err)
	}
	return nil
}

// rollback reverses applied steps in reverse order. Reversal is best-effort
// per step but logged loudly: a reversal failure means the all-or-nothing
// guarantee could not be honored.
func (m *Manager) rollback(applied []*step) {
	for i := len(applied) - 1; i >= 0; i-- {
		s := applied[i]
		if err := m.reverse(s); err != nil {
			m.logger.Error("txn: rollback step failed",
				slog.String("kind", string(s.kind)),
				slog.String("path", s.path),
				slog.String("error", err.Error()))
			continue
		}
		s.state = StateRolledBack
	}
}

func (m *Manager) reverse(s *step) error {
	switch s.kind {
	case StepCreate:
		return os.Remove(m.abs(s.path))
	case StepUpdate:
		return os.WriteFile(m.abs(s.path), s.snap.content, s.snap.perm)
	case StepDelete:
		if !s.snap.existed {
			return nil
		}
		return os.WriteFile(m.abs(s.path), s.snap.content, s.snap.perm)
	case StepMove:
		return os.Rename(m.abs(s.dest), m.abs(s.path))
	}
	return nil
}
