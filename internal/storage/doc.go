// Package storage defines the persistence interface for session resume.
//
// The host writes a full snapshot after each committed event so a crashed or
// restarted process can reload the session and keep hosting. Implementations
// live in subpackages; the SQLite-backed one is the default.
package storage
