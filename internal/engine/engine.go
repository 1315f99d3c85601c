// Package engine orchestrates the refactoring operations: move, split, join,
// merge, and link checking. Each operation computes a full change set, then
// delegates persistence to a transaction so the filesystem mutates
// all-or-nothing; in dry-run mode the change set is returned without any
// mutation.
package engine

import (
	"log/slog"
	"time"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/refactor"
	"github.com/starford/raido/internal/txn"
	"github.com/starford/raido/internal/vault"
)

// Event is a synchronous progress notification emitted at defined points of
// an operation. Events replace ad hoc logging side effects: callers decide
// what to do with them.
type Event struct {
	Time    time.Time
	Kind    string
	Path    string
	Message string
}

// Event kinds.
const (
	EventOperationStart = "operation-start"
	EventFileQueued     = "file-queued"
	EventTxnExecuted    = "txn-executed"
	EventOperationDone  = "operation-done"
)

// EventFunc receives operation events. It is invoked synchronously and must
// not block for long.
type EventFunc func(Event)

// Engine performs link-aware document refactoring over a vault. It is
// single-threaded per operation and provides no cross-invocation locking;
// callers must serialize operations touching overlapping documents.
type Engine struct {
	store    vault.Provider
	rewriter refactor.Rewriter
	logger   *slog.Logger
	events   EventFunc

	retries      int
	retryBackoff time.Duration
	backupSuffix string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEvents sets the event callback.
func WithEvents(fn EventFunc) Option {
	return func(e *Engine) {
		e.events = fn
	}
}

// WithRewriter overrides the link rewriter implementation.
func WithRewriter(r refactor.Rewriter) Option {
	return func(e *Engine) {
		e.rewriter = r
	}
}

// WithRetries configures transient-failure retries for transactions.
func WithRetries(n int, backoff time.Duration) Option {
	return func(e *Engine) {
		e.retries = n
		e.retryBackoff = backoff
	}
}

// WithBackupSuffix overrides the backup sibling suffix.
func WithBackupSuffix(suffix string) Option {
	return func(e *Engine) {
		e.backupSuffix = suffix
	}
}

// New creates an Engine over the given vault.
func New(store vault.Provider, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		rewriter:     refactor.New(),
		logger:       slog.Default(),
		retries:      2,
		retryBackoff: 50 * time.Millisecond,
		backupSuffix: txn.DefaultBackupSuffix,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) emit(kind, path, msg string) {
	if e.events == nil {
		return
	}
	e.events(Event{Time: time.Now(), Kind: kind, Path: path, Message: msg})
}

// newTxn builds a transaction manager with the engine's retry policy.
func (e *Engine) newTxn(backup, continueOnError bool) *txn.Manager {
	return txn.NewManager(e.store.Root(), txn.Options{
		ContinueOnError: continueOnError,
		MaxRetries:      e.retries,
		RetryBackoff:    e.retryBackoff,
		Backup:          backup,
		BackupSuffix:    e.backupSuffix,
	}, e.logger)
}

// runTxn executes the transaction and folds step failures into the result.
func (e *Engine) runTxn(m *txn.Manager, res *models.OperationResult) {
	tr := m.Execute()
	for _, sr := range tr.Steps {
		if sr.Err != nil {
			res.AddError(sr.Err.Error())
		}
		if sr.State == txn.StateRolledBack {
			res.AddWarning("rolled back: " + string(sr.Kind) + " " + sr.Path)
		}
	}
	if !tr.Success {
		res.Success = false
	}
	e.emit(EventTxnExecuted, "", "transaction finished")
}
