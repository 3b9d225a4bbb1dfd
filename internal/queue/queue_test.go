package queue

import "testing"

func identityOf(i Item) string {
	return i.Artist + "|" + i.Title
}

func TestMoveToCurrentAndComplete(t *testing.T) {
	q := New(identityOf)
	item := Item{Artist: "Boards of Canada", Title: "Roygbiv", Duration: 230}
	q.SetPending([]Item{item})

	if ok := q.MoveToCurrent(item); !ok {
		t.Fatal("expected MoveToCurrent to find the item in pending")
	}
	if l := q.Len(); l.Pending != 0 || l.Current != 1 {
		t.Fatalf("unexpected lengths after move: %+v", l)
	}

	q.UpdateProgress(item, 42)
	cur := q.Current()
	if len(cur) != 1 || cur[0].Progress != 42 {
		t.Fatalf("expected progress 42, got %+v", cur)
	}

	q.Complete(item, true)
	if l := q.Len(); l.Current != 0 || l.Completed != 1 {
		t.Fatalf("unexpected lengths after complete: %+v", l)
	}
	done := q.Completed()
	if done[0].Status != "downloaded" {
		t.Errorf("expected status downloaded, got %q", done[0].Status)
	}
}

func TestMoveToCurrent_NotFound(t *testing.T) {
	q := New(identityOf)
	if q.MoveToCurrent(Item{Artist: "x", Title: "y"}) {
		t.Error("expected MoveToCurrent on an empty queue to fail")
	}
}

func TestSetPending_ExcludesCurrent(t *testing.T) {
	q := New(identityOf)
	a := Item{Artist: "A", Title: "1"}
	b := Item{Artist: "B", Title: "2"}
	q.SetPending([]Item{a})
	q.MoveToCurrent(a)

	q.SetPending([]Item{a, b})
	pending := q.Pending()
	if len(pending) != 1 || pending[0] != b {
		t.Errorf("expected only b in pending, got %+v", pending)
	}
}

func TestPrepend(t *testing.T) {
	q := New(identityOf)
	a := Item{Artist: "A", Title: "1"}
	b := Item{Artist: "B", Title: "2"}
	q.SetPending([]Item{a})
	q.Prepend(b)

	pending := q.Pending()
	if len(pending) != 2 || pending[0] != b {
		t.Fatalf("expected b at head, got %+v", pending)
	}
}

func TestRestore_RequeuesCurrentAndCountsCompleted(t *testing.T) {
	q := New(identityOf)
	doc := &Document{
		Pending: []Item{{Artist: "P", Title: "1"}},
		Current: []CurrentItem{
			{Item: Item{Artist: "C", Title: "1"}, Progress: 50},
		},
		Completed: []CompletedItem{
			{Item: Item{Artist: "D", Title: "1"}, Status: "downloaded"},
			{Item: Item{Artist: "D", Title: "2"}, Status: "missing"},
		},
	}

	stats := q.Restore(doc)
	if stats.RequeuedFromCurrent != 1 {
		t.Errorf("expected 1 requeued from current, got %d", stats.RequeuedFromCurrent)
	}
	if stats.Downloaded != 1 || stats.Missing != 1 {
		t.Errorf("expected 1 downloaded and 1 missing, got %+v", stats)
	}

	l := q.Len()
	if l.Current != 0 {
		t.Errorf("expected current to be cleared, got %d", l.Current)
	}
	if l.Pending != 2 {
		t.Errorf("expected pending to contain requeued + original pending, got %d", l.Pending)
	}

	pending := q.Pending()
	if pending[0].Artist != "C" {
		t.Errorf("expected requeued current item at head of pending, got %+v", pending)
	}
}

func TestRestore_NilDocument(t *testing.T) {
	q := New(identityOf)
	stats := q.Restore(nil)
	if stats != (RestoreStats{}) {
		t.Errorf("expected zero stats for nil document, got %+v", stats)
	}
}

func TestSnapshot_RoundTrips(t *testing.T) {
	q := New(identityOf)
	item := Item{Artist: "A", Title: "1", Duration: 100}
	q.SetPending([]Item{item})
	q.MoveToCurrent(item)
	q.UpdateProgress(item, 10)

	doc := q.Snapshot()
	if len(doc.Current) != 1 || doc.Current[0].Progress != 10 {
		t.Fatalf("unexpected snapshot: %+v", doc)
	}

	q2 := New(identityOf)
	stats := q2.Restore(doc)
	if stats.RequeuedFromCurrent != 1 {
		t.Errorf("expected the in-flight item to be requeued on restore, got %+v", stats)
	}
}
