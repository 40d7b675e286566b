// Package store persists Message Center state: the message thread, the
// outbound payload queue, the contact identity and session flags.
//
// Two implementations share the [Store] contract:
//
//   - [SQLite]: durable, backed by modernc.org/sqlite (pure Go, no cgo).
//     Messages and their payloads are written in one transaction so a queued
//     user message is never lost or orphaned.
//   - [Memory]: in-process, for tests and hosts that persist elsewhere.
//
// Both serialize writers and hand out copies from reads, so snapshots can be
// passed to a UI without holding a lock.
//
//	st, err := store.OpenSQLite(ctx, filepath.Join(dataDir, "messagecenter.db"))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
package store
