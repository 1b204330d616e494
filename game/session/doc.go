// Package session provides session management for Trapped.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation and ID validation
//   - Journal-based persistence to JSON files, zstd files or SQLite
//   - Expiry of idle sessions from memory
//
// Core Types:
//
// Manager keeps live sessions in memory, keyed case-insensitively, and
// writes through to an optional SessionPersistence. A persisted session is
// its level plus the engine journal; loading replays the journal on a fresh
// engine, which rebuilds the world and its undo history exactly.
//
// Session Identifiers:
//
// Sessions use short hex IDs when none is given. Custom IDs are limited to
// letters, digits, '-' and '_' so they are always safe as file names.
//
// Usage:
//
//	store, err := session.NewFilePersistence("sessions", levels, true)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store)
//
//	sess, err := manager.Create("", "default", level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
package session
