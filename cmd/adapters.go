package main

import (
	"time"

	"github.com/desertthunder/audiosync/internal/matcher"
	"github.com/desertthunder/audiosync/internal/orchestrator"
	"github.com/desertthunder/audiosync/internal/server"
)

// syncerAdapter satisfies [server.Syncer] over an *orchestrator.Orchestrator,
// translating orchestrator.Event into server.Event so the control surface
// package never has to import orchestrator.
type syncerAdapter struct {
	o *orchestrator.Orchestrator
}

func (a syncerAdapter) TriggerNow() error          { return a.o.TriggerNow() }
func (a syncerAdapter) RunOnce(reason string) bool { return a.o.RunOnce(reason) }
func (a syncerAdapter) NextRun() time.Time         { return a.o.NextRun() }

func (a syncerAdapter) Recent() []server.Event {
	events := a.o.Recent()
	out := make([]server.Event, len(events))
	for i, e := range events {
		out[i] = server.Event{TimestampUTC: e.TimestampUTC, Message: e.Message}
	}
	return out
}

func matchModeFor(strict bool) matcher.Mode {
	if strict {
		return matcher.ModeStrict
	}
	return matcher.ModeFuzzy
}
