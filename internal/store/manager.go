package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/looplab/fsm"
	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/barventory/barventory/internal/schema"
)

// Connection lifecycle states.
const (
	StateClosed     = "closed"
	StateOpening    = "opening"
	StateUpgrading  = "upgrading"
	StateBlocked    = "blocked"
	StateOpen       = "open"
	StateTerminated = "terminated"
)

// Lifecycle events.
const (
	eventOpen      = "open"
	eventUpgrade   = "upgrade"
	eventOpened    = "opened"
	eventBlock     = "block"
	eventUnblock   = "unblock"
	eventReset     = "reset"
	eventTerminate = "terminate"
)

const (
	defaultBusyRetry   = 500 * time.Millisecond
	defaultBusyTimeout = 5 * time.Second
)

// Manager owns the single database connection and drives its lifecycle.
// One Manager per process; multiple processes coordinate only through the
// engine's own locking, surfaced here as blocked/blocking events.
//
// The zero value is not usable; construct with New.
type Manager struct {
	path        string
	log         *zap.SugaredLogger
	notifier    Notifier
	busyRetry   time.Duration
	busyTimeout time.Duration

	mu      sync.Mutex
	machine *fsm.FSM
	db      *sql.DB
	changed chan struct{} // closed and replaced on every state change
	cause   error         // why the terminal state was reached

	blockingOnce sync.Once // upgrade-blocking is reported at most once
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Default is a nop logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = log }
}

// WithNotifier sets the lifecycle event sink. Default logs events.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithBusyRetry sets the delay between open attempts while another
// connection holds the database. Default 500ms.
func WithBusyRetry(d time.Duration) Option {
	return func(m *Manager) { m.busyRetry = d }
}

// WithBusyTimeout sets how long the engine waits on a lock before an
// operation fails with SQLITE_BUSY. Default 5s.
func WithBusyTimeout(d time.Duration) Option {
	return func(m *Manager) { m.busyTimeout = d }
}

// New constructs a Manager for the database at path. It fails synchronously
// when the host has no SQLite driver; this is a construction-time fatal and
// is never retried. The database itself is opened lazily on first use.
func New(path string, opts ...Option) (*Manager, error) {
	if !slices.Contains(sql.Drivers(), "sqlite3") {
		return nil, &Error{
			Code:    ErrCodeUnsupported,
			Message: "host environment provides no sqlite3 driver",
		}
	}

	m := &Manager{
		path:        path,
		log:         zap.NewNop().Sugar(),
		busyRetry:   defaultBusyRetry,
		busyTimeout: defaultBusyTimeout,
		changed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = logNotifier{log: m.log}
	}

	m.machine = fsm.NewFSM(
		StateClosed,
		fsm.Events{
			{Name: eventOpen, Src: []string{StateClosed}, Dst: StateOpening},
			{Name: eventUpgrade, Src: []string{StateOpening}, Dst: StateUpgrading},
			{Name: eventOpened, Src: []string{StateOpening, StateUpgrading}, Dst: StateOpen},
			{Name: eventBlock, Src: []string{StateOpening, StateUpgrading}, Dst: StateBlocked},
			{Name: eventUnblock, Src: []string{StateBlocked}, Dst: StateOpening},
			{Name: eventReset, Src: []string{StateOpening, StateUpgrading, StateBlocked}, Dst: StateClosed},
			{Name: eventTerminate, Src: []string{
				StateClosed, StateOpening, StateUpgrading, StateBlocked, StateOpen,
			}, Dst: StateTerminated},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.log.Debugw("lifecycle transition", "from", e.Src, "to", e.Dst)
			},
		},
	)

	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Current()
}

// Close releases the connection. The manager is unusable afterwards: all
// later operations fail with CONNECTION_UNAVAILABLE. Closing is how a caller
// unblocks another context's upgrade.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.machine.Current() == StateTerminated {
		return nil
	}
	m.cause = errors.New("manager closed")
	m.event(eventTerminate)

	if m.db == nil {
		return nil
	}
	db := m.db
	m.db = nil
	return db.Close()
}

// event fires a lifecycle transition and wakes all waiters.
// Callers must hold mu.
func (m *Manager) event(name string) {
	if err := m.machine.Event(context.Background(), name); err != nil {
		m.log.Errorw("invalid lifecycle transition", "event", name, "state", m.machine.Current(), "error", err)
		return
	}
	close(m.changed)
	m.changed = make(chan struct{})
}

// conn waits for the open state and returns the database handle. The first
// caller drives the closed → opening → (upgrading →) open sequence; others
// wait on state changes. Reaching the terminal state fails all waiters
// instead of hanging.
func (m *Manager) conn(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	for {
		switch m.machine.Current() {
		case StateOpen:
			db := m.db
			m.mu.Unlock()
			return db, nil

		case StateTerminated:
			err := errUnavailable(m.cause)
			m.mu.Unlock()
			return nil, err

		case StateClosed:
			m.event(eventOpen)
			m.mu.Unlock()
			if err := m.open(ctx); err != nil {
				return nil, err
			}
			m.mu.Lock()

		default:
			// Another goroutine is opening or upgrading; wait for the
			// next transition.
			ch := m.changed
			m.mu.Unlock()
			select {
			case <-ch:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			m.mu.Lock()
		}
	}
}

// open drives the open/upgrade sequence. Lock contention with another
// connection is lifecycle-transient, not fatal: every busy failure in the
// sequence parks the manager in the blocked state, reports it, and retries
// until the lock clears or the context is cancelled. Called without mu held,
// in the opening state.
func (m *Manager) open(ctx context.Context) error {
	for {
		err := m.tryOpen(ctx)
		if err == nil {
			return nil
		}
		if !isBusyErr(err) {
			return m.failOpen(ctx, err)
		}
		if err := m.awaitUnblocked(ctx, err); err != nil {
			return m.failOpen(ctx, err)
		}
	}
}

// tryOpen performs one open/upgrade attempt against the database.
func (m *Manager) tryOpen(ctx context.Context) error {
	db, err := m.openDB(ctx)
	if err != nil {
		return err
	}

	onDisk, err := userVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("read schema version: %w", err)
	}

	switch {
	case onDisk > schema.Version:
		// Another context already upgraded past this build. Holding this
		// connection open would block it again; refuse to open at all.
		_ = db.Close()
		m.notifyBlocking(onDisk)
		return &Error{
			Code:    ErrCodeVersionMismatch,
			Message: fmt.Sprintf("on-disk schema version %d is newer than supported version %d", onDisk, schema.Version),
		}

	case onDisk < schema.Version:
		m.mu.Lock()
		m.event(eventUpgrade)
		m.mu.Unlock()
		if err := runPendingMigrations(ctx, db, onDisk); err != nil {
			_ = db.Close()
			return fmt.Errorf("upgrade schema: %w", err)
		}
		m.log.Infow("schema upgraded", "from", onDisk, "to", schema.Version)
	}

	m.mu.Lock()
	if m.machine.Current() == StateTerminated {
		// Closed while this attempt was in flight.
		cause := m.cause
		m.mu.Unlock()
		_ = db.Close()
		return errUnavailable(cause)
	}
	m.db = db
	m.event(eventOpened)
	m.mu.Unlock()
	m.log.Infow("store open", "path", m.path, "schema_version", schema.Version)
	return nil
}

// awaitUnblocked parks the manager in the blocked state, reports the
// contention, and waits one retry interval. The design does not time this
// out on its own; only context cancellation ends the wait.
func (m *Manager) awaitUnblocked(ctx context.Context, cause error) error {
	m.mu.Lock()
	m.event(eventBlock)
	m.mu.Unlock()
	m.notifier.Notify(Event{
		Kind:     EventUpgradeBlocked,
		Severity: SeverityWarning,
		Message:  "database locked by another open connection; close other contexts to proceed",
		Err:      cause,
	})

	select {
	case <-time.After(m.busyRetry):
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	m.event(eventUnblock)
	m.mu.Unlock()
	return nil
}

// openDB opens the connection and applies the required pragmas.
func (m *Manager) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", m.path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// Single writer avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// busy_timeout must come first: every later pragma competes with other
	// connections for locks and would otherwise fail with a zero timeout.
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", m.busyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return db, nil
}

// failOpen records a failed open attempt. Cancellation resets to closed so a
// later call may retry; anything else is terminal for this manager.
func (m *Manager) failOpen(ctx context.Context, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.machine.Current() == StateTerminated {
		return errUnavailable(m.cause)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		m.event(eventReset)
		return err
	}

	m.cause = err
	m.event(eventTerminate)
	return errUnavailable(err)
}

// observe inspects an operation error for unrecoverable driver failures.
// Those latch the terminal state; everything else passes through unchanged.
func (m *Manager) observe(err error) error {
	if err == nil || !isFatalDriverErr(err) {
		return err
	}

	m.mu.Lock()
	if m.machine.Current() != StateTerminated {
		m.cause = err
		m.event(eventTerminate)
		db := m.db
		m.db = nil
		m.mu.Unlock()
		if db != nil {
			_ = db.Close()
		}
		m.notifier.Notify(Event{
			Kind:     EventConnectionTerminated,
			Severity: SeverityError,
			Message:  "database connection lost",
			Err:      err,
		})
	} else {
		m.mu.Unlock()
	}

	return errUnavailable(err)
}

// notifyBlocking reports, at most once, that this connection's schema is
// behind what another context has written to disk.
func (m *Manager) notifyBlocking(onDisk int) {
	m.blockingOnce.Do(func() {
		m.notifier.Notify(Event{
			Kind:     EventUpgradeBlocking,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("another context upgraded the schema to version %d; this connection supports %d", onDisk, schema.Version),
		})
	})
}

// checkVersionDrift detects the blocking case on a live connection: the
// on-disk version moved ahead while we stayed open. Reported, not resolved;
// the running connection keeps working against the engine's guarantees.
func (m *Manager) checkVersionDrift(ctx context.Context, db *sql.DB) {
	onDisk, err := userVersion(ctx, db)
	if err != nil {
		return
	}
	if onDisk > schema.Version {
		m.notifyBlocking(onDisk)
	}
}

// SchemaVersion opens the connection if necessary and returns the on-disk
// schema version. After a successful open this equals the registry version.
func (m *Manager) SchemaVersion(ctx context.Context) (int, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return 0, err
	}
	v, err := userVersion(ctx, db)
	if err != nil {
		return 0, m.observe(err)
	}
	return v, nil
}

// userVersion reads the on-disk schema version.
func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("pragma user_version: %w", err)
	}
	return v, nil
}

// isFatalDriverErr reports whether err means the connection is gone for
// good: storage eviction, corruption, or the file no longer being a
// database. Lock contention and constraint errors are not fatal.
func isFatalDriverErr(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code {
	case sqlite3.ErrIoErr, sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
		return true
	}
	return false
}

// isBusyErr reports whether err is lock contention with another connection.
func isBusyErr(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
}
