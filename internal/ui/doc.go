// Package ui implements an interactive terminal interface using bubbletea's
// Elm architecture: a live monitor over the sync & download orchestrator's
// HTTP control surface.
//
// The monitor polls /status and /queue on an interval, rendering catalog
// counters, the current download's progress, a scrollable view of pending
// tracks, and the recent-events log. It can also drive the control surface:
// 's' triggers a manual sync, 'p' toggles pause/resume.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View
// pattern, receiving messages via the Msg union type. A ticking tea.Cmd
// drives the poll loop so the view stays live without a goroutine the model
// itself has to manage.
package ui
