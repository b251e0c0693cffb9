// Package history keeps a SQLite ledger of render requests.
//
// Each finished request, successful or not, becomes one row: counts, total
// duration, output size, and for failures the error class and detail. Video
// bytes are never stored. The database runs in WAL mode with busy retries so
// the CLI can read while the server writes.
package history
