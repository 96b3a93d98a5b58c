// Package journal persists connection events to PostgreSQL.
//
// The Journal is a connection.Observer: the dispatcher hands it every event,
// it queues a row without blocking and a background loop writes rows in
// batches, on size or on a timer. The table is append-only.
package journal
