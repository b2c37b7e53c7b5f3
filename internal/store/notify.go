package store

import "go.uber.org/zap"

// EventKind identifies a lifecycle condition reported to the notifier.
type EventKind string

const (
	// EventUpgradeBlocked: this connection's open or schema upgrade is
	// prevented by another open connection holding the database. Transient;
	// the attempt keeps retrying until its context is cancelled.
	EventUpgradeBlocked EventKind = "upgrade-blocked"

	// EventUpgradeBlocking: this connection is the stale one. The on-disk
	// schema version is ahead of its registry, so another context had to
	// upgrade past it. Closing this connection is the caller's decision.
	EventUpgradeBlocking EventKind = "upgrade-blocking"

	// EventConnectionTerminated: the underlying connection was lost for
	// good. All further operations on this manager fail.
	EventConnectionTerminated EventKind = "connection-terminated"

	// EventSaveFailed: a reconciliation transaction aborted; no partial
	// writes were applied.
	EventSaveFailed EventKind = "save-failed"
)

// Severity grades an event for the consuming UI layer.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one discrete lifecycle notification.
type Event struct {
	Kind     EventKind
	Severity Severity
	Message  string
	Err      error
}

// Notifier receives lifecycle events. Calls are one-way and fire-and-forget:
// the store does not wait for acknowledgment, and a notifier must not call
// back into the store.
type Notifier interface {
	Notify(e Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(e Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// logNotifier is the default notifier: it writes events to the manager's
// logger and nothing else.
type logNotifier struct {
	log *zap.SugaredLogger
}

func (n logNotifier) Notify(e Event) {
	switch e.Severity {
	case SeverityError:
		n.log.Errorw(e.Message, "event", string(e.Kind), "error", e.Err)
	default:
		n.log.Warnw(e.Message, "event", string(e.Kind), "error", e.Err)
	}
}
