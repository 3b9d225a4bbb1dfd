// Package repositories provides the low-level sequence-generation helper the
// sync-run store builds on.
//
// The domain repositories themselves (catalog rows, sync runs) live in
// github.com/desertthunder/audiosync/internal/catalog, since their queries
// are specific to the sync & download orchestrator's schema; this package
// keeps only the per-table primitive, [NextSequence], which the catalog
// package calls when it starts a sync run.
package repositories
