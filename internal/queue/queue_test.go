package queue

import "testing"

func TestEnqueuePreservesInsertionOrder(t *testing.T) {
	q := New[string]()

	idA, _ := q.Enqueue("a")
	idB, _ := q.Enqueue("b")
	idC, _ := q.Enqueue("c")

	records := q.EntryList(-1)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	wantIDs := []int64{idA, idB, idC}
	for i, r := range records {
		if r.ID != wantIDs[i] {
			t.Errorf("record %d: expected id %d, got %d", i, wantIDs[i], r.ID)
		}
	}
	if records[1].Entry != "b" {
		t.Errorf("expected second entry to be b, got %s", records[1].Entry)
	}
}

func TestEntryListRespectsMaxEntries(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}
	records := q.EntryList(2)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestRemoveDeletesEntryAndUndoRestoresAtEnd(t *testing.T) {
	q := New[string]()
	idA, _ := q.Enqueue("a")
	idB, _ := q.Enqueue("b")

	undo := RemoveOp[string]{ID: idA}.Apply(q)
	if q.ContainsKey(idA) {
		t.Fatalf("expected id %d to be removed", idA)
	}
	if q.Size() != 1 {
		t.Fatalf("expected size 1 after remove, got %d", q.Size())
	}

	undo(q)
	if !q.ContainsKey(idA) {
		t.Fatalf("expected undo to restore id %d", idA)
	}
	records := q.EntryList(-1)
	if records[len(records)-1].ID != idA {
		t.Errorf("expected undo-restored entry to land at the end, got order %v", recordIDs(records))
	}
	_ = idB
}

func TestRemoveOfMissingKeyIsNoOpAndUndoIsNoOp(t *testing.T) {
	q := New[string]()
	undo := RemoveOp[string]{ID: 12345}.Apply(q)
	undo(q) // must not panic or insert anything
	if q.Size() != 0 {
		t.Errorf("expected size 0, got %d", q.Size())
	}
}

func TestClearEmptiesQueueAndUndoRestoresEverything(t *testing.T) {
	q := New[string]()
	q.Enqueue("a")
	q.Enqueue("b")

	undo := ClearOp[string]{}.Apply(q)
	if !q.IsEmpty() {
		t.Fatalf("expected empty queue after clear")
	}

	undo(q)
	if q.Size() != 2 {
		t.Fatalf("expected 2 entries restored, got %d", q.Size())
	}
}

func TestEnqueueOpOverwriteUndoRestoresPreviousValue(t *testing.T) {
	q := New[string]()
	id, _ := q.Enqueue("original")

	undo := EnqueueOp[string]{ID: id, Value: "overwritten"}.Apply(q)
	v, _ := q.Get(id)
	if v != "overwritten" {
		t.Fatalf("expected overwritten value, got %s", v)
	}

	undo(q)
	v, _ = q.Get(id)
	if v != "original" {
		t.Errorf("expected undo to restore original value, got %s", v)
	}
	if q.Size() != 1 {
		t.Errorf("expected undo not to duplicate the entry, got size %d", q.Size())
	}
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	q := New[int]()
	seen := make(map[int64]bool)
	for i := 0; i < 200; i++ {
		id, _ := q.Enqueue(i)
		if seen[id] {
			t.Fatalf("duplicate id generated: %d", id)
		}
		seen[id] = true
	}
}

func recordIDs(records []Record[string]) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
