// Package store is the embedded object store: a small set of declared
// collections persisted in one SQLite database, with a managed connection
// lifecycle, generic typed CRUD, and an atomic multi-collection
// reconciliation path.
//
// Each collection is one table of (key, JSON document) rows. The on-disk
// schema version lives in PRAGMA user_version and is advanced by the
// migration interpreter in migrate.go, which executes the step descriptors
// declared in the schema registry.
//
// # Connection lifecycle
//
//	closed → opening → upgrading → open
//	            ↕          ↕
//	        blocked (transient, reported)
//	any → terminated (absorbing)
//
// Every operation first waits for the open state. Reaching terminated fails
// all pending and future operations with CONNECTION_UNAVAILABLE; recovery is
// a new Manager.
//
// # Database configuration
//
//   - busy_timeout (default 5s): wait on locks before reporting blocked
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - foreign_keys=ON
//
// Lifecycle conditions (upgrade blocked/blocking, termination, failed saves)
// are reported through a one-way Notifier; the store never waits for
// acknowledgment and never closes a connection on the caller's behalf.
package store
