// Package models defines the data model for the sync & download
// orchestrator: the DTOs exchanged with the playlist-source and
// video-catalog collaborators, and the persistent catalog/sync-run rows the
// catalog store reads and writes.
//
//   - [Track]: a fetched playlist/artist/album entry, not yet matched.
//   - [Candidate]: a video-catalog search result proposed for a [Track].
//   - [CatalogTrack]: the durable catalog row tracking a track's lifecycle
//     from pending through downloaded or missing.
//   - [SyncRun]: an audit record of one sync cycle invocation.
//
// Persistent entities implement [Model] for ID, timestamps, and validation;
// [Repository] defines the generic CRUD shape the catalog store's
// type-specific methods follow without being forced through it directly.
package models
