// Package queue implements the Queue Model (§4.D): the in-memory triple
// queue (pending/current/completed) the download worker drains, plus the
// persisted snapshot document used to restore it across restarts.
//
// Grounded on original_source/youspotter/queue.py (DedupQueue, identity_key)
// for the dedup-by-identity discipline and
// original_source/youspotter/status.py (_state, queue_move_to_current,
// queue_complete, cleanup_startup_state) for the live-queue shape and the
// startup-recovery algorithm.
package queue

import (
	"sync"
	"time"
)

// Item is the minimal shape every queue entry carries: enough to identify
// and display a track without pulling in the full catalog row.
type Item struct {
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Album    string `json:"album"`
	Duration int    `json:"duration"`
}

// CurrentItem is a pending item promoted to "downloading now", carrying the
// worker's progress percentage.
type CurrentItem struct {
	Item
	Progress int `json:"progress"`
}

// CompletedItem is a terminal record of one download attempt.
type CompletedItem struct {
	Item
	Status        string `json:"status"` // "downloaded" | "missing"
	TimestampUTC  string `json:"timestamp_utc"`
}

// Document is the persisted snapshot of the three sections, restored on
// process start.
type Document struct {
	Pending   []Item          `json:"pending"`
	Current   []CurrentItem   `json:"current"`
	Completed []CompletedItem `json:"completed"`
}

// SnapshotStore is the injected persistence interface per spec §9: "the
// status document [as] an injected persistence interface {load() → doc?,
// save(doc)}". A nil *Document from Load means no snapshot exists yet.
type SnapshotStore interface {
	Load() (*Document, error)
	Save(doc *Document) error
}

// IdentityFunc computes the canonical identity key for an Item, so the
// queue package stays free of a hard dependency on the matcher package
// (mirrors internal/catalog.Store.UpsertTracks's identityOf parameter).
type IdentityFunc func(Item) string

// Queue is the live queue: the single mutex-guarded source of truth the
// download worker and the HTTP status endpoint both read.
//
// Every operation is O(n) in queue size at worst and holds the lock for the
// minimal span needed to mutate and copy out, per §5's shared-resource
// discipline.
type Queue struct {
	mu         sync.Mutex
	pending    []Item
	current    []CurrentItem
	completed  []CompletedItem
	identityOf IdentityFunc

	maxCompleted int
}

// defaultMaxCompleted bounds the completed section so a long-running daemon
// doesn't grow its snapshot without limit; it has no bearing on the
// catalog, which is the durable record.
const defaultMaxCompleted = 500

// New creates an empty live queue.
func New(identityOf IdentityFunc) *Queue {
	return &Queue{identityOf: identityOf, maxCompleted: defaultMaxCompleted}
}

// SetPending replaces the pending section wholesale, as reconcileCatalog
// does after rebuilding it from selectForQueue. Items already present in
// current are excluded, preserving the disjointness invariant.
func (q *Queue) SetPending(items []Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	inCurrent := make(map[string]bool, len(q.current))
	for _, c := range q.current {
		inCurrent[q.identityOf(c.Item)] = true
	}

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !inCurrent[q.identityOf(it)] {
			out = append(out, it)
		}
	}
	q.pending = out
}

// MoveToCurrent removes item from pending by identity and inserts it into
// current with progress=0. Reports false if the item was not found in
// pending (it may have been claimed by a concurrent caller already).
func (q *Queue) MoveToCurrent(item Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := q.identityOf(item)
	idx := -1
	for i, p := range q.pending {
		if q.identityOf(p) == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
	q.current = append(q.current, CurrentItem{Item: item, Progress: 0})
	return true
}

// Prepend inserts an item at the head of pending. Used to return a
// cancelled download to pending without a backoff penalty (§4.F, §9's
// pinned head-not-tail decision).
func (q *Queue) Prepend(item Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append([]Item{item}, q.pending...)
}

// UpdateProgress sets the progress percentage of a current item. Must not
// block: it is called from the extractor's progress callback, potentially
// from a hot loop, so it only ever takes the queue's own mutex.
func (q *Queue) UpdateProgress(item Item, pct int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	key := q.identityOf(item)
	for i := range q.current {
		if q.identityOf(q.current[i].Item) == key {
			q.current[i].Progress = pct
			return
		}
	}
}

// Complete removes item from current by identity and prepends a completed
// record with the terminal status and a UTC ISO-8601 timestamp.
func (q *Queue) Complete(item Item, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := q.identityOf(item)
	for i, c := range q.current {
		if q.identityOf(c.Item) == key {
			q.current = append(q.current[:i], q.current[i+1:]...)
			break
		}
	}

	status := "missing"
	if ok {
		status = "downloaded"
	}
	rec := CompletedItem{
		Item:         item,
		Status:       status,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}
	q.completed = append([]CompletedItem{rec}, q.completed...)
	if len(q.completed) > q.maxCompleted {
		q.completed = q.completed[:q.maxCompleted]
	}
}

// Pending returns a copy of the pending section.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.pending))
	copy(out, q.pending)
	return out
}

// Current returns a copy of the current section.
func (q *Queue) Current() []CurrentItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]CurrentItem, len(q.current))
	copy(out, q.current)
	return out
}

// Completed returns a copy of the completed section.
func (q *Queue) Completed() []CompletedItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]CompletedItem, len(q.completed))
	copy(out, q.completed)
	return out
}

// Len reports {pending, current, completed} section lengths in one lock
// span, for callers (e.g. the worker's "is anything current?" check) that
// need a consistent view across sections.
type Lengths struct{ Pending, Current, Completed int }

func (q *Queue) Len() Lengths {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Lengths{Pending: len(q.pending), Current: len(q.current), Completed: len(q.completed)}
}

// Snapshot copies the three sections into a persistable [Document].
func (q *Queue) Snapshot() *Document {
	q.mu.Lock()
	defer q.mu.Unlock()
	doc := &Document{
		Pending:   make([]Item, len(q.pending)),
		Current:   make([]CurrentItem, len(q.current)),
		Completed: make([]CompletedItem, len(q.completed)),
	}
	copy(doc.Pending, q.pending)
	copy(doc.Current, q.current)
	copy(doc.Completed, q.completed)
	return doc
}

// RestoreStats summarises what a restart recovered, for a log line.
type RestoreStats struct {
	RequeuedFromCurrent int
	Downloaded          int
	Missing             int
}

// Restore loads a snapshot document into the live queue, performing the
// §4.D startup-recovery algorithm: any items found in current are treated
// as unfinished (the process died mid-download) and moved back to the
// front of pending; current is cleared; downloaded/missing counters are
// recomputed from completed. A nil doc leaves the queue empty.
func (q *Queue) Restore(doc *Document) RestoreStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats RestoreStats
	if doc == nil {
		return stats
	}

	requeued := make([]Item, 0, len(doc.Current))
	for _, c := range doc.Current {
		requeued = append(requeued, c.Item)
	}
	stats.RequeuedFromCurrent = len(requeued)

	q.pending = append(append([]Item{}, requeued...), doc.Pending...)
	q.current = nil
	q.completed = append([]CompletedItem{}, doc.Completed...)

	for _, c := range q.completed {
		switch c.Status {
		case "downloaded":
			stats.Downloaded++
		case "missing":
			stats.Missing++
		}
	}
	return stats
}
