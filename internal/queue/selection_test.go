package queue

import (
	"errors"
	"testing"
	"time"
)

func TestSelectEntryToProcessSkipsExecuting(t *testing.T) {
	q := New("t", "r1", nil)
	busy := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	busy.mu.Lock()
	busy.currentlyExec = true
	busy.mu.Unlock()
	q.Insert(busy)

	free := NewLogEntry(GetPart, "all_1_1_0", nil, time.Now())
	q.Insert(free)

	entry, guard, ok := q.SelectEntryToProcess(nil, nil)
	if !ok {
		t.Fatal("expected an eligible entry")
	}
	defer guard.Release()
	if entry != free {
		t.Fatalf("expected the free entry to be selected, got %s", entry.NewPartName)
	}
}

func TestSelectEntryToProcessReservesFuturePartsAndRotatesToTail(t *testing.T) {
	q := New("t", "r1", nil)
	first := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	second := NewLogEntry(GetPart, "all_1_1_0", nil, time.Now())
	q.Insert(first)
	q.Insert(second)

	entry, guard, ok := q.SelectEntryToProcess(nil, nil)
	if !ok || entry != first {
		t.Fatalf("expected to select the first entry, got ok=%v entry=%v", ok, entry)
	}

	if _, reserved := q.futureParts["all_0_0_0"]; !reserved {
		t.Fatal("expected new_part_name to be reserved in future_parts")
	}
	if q.entries[len(q.entries)-1] != first {
		t.Fatal("expected selected entry to be rotated to the tail")
	}
	if !entry.IsCurrentlyExecuting() {
		t.Fatal("expected entry to be marked currently executing")
	}

	guard.Release()

	if _, reserved := q.futureParts["all_0_0_0"]; reserved {
		t.Fatal("expected future_parts reservation cleared after release")
	}
	if entry.IsCurrentlyExecuting() {
		t.Fatal("expected currently_executing cleared after release")
	}
}

func TestSelectEntryToProcessReturnsFalseWhenNothingEligible(t *testing.T) {
	q := New("t", "r1", nil)
	_, _, ok := q.SelectEntryToProcess(nil, nil)
	if ok {
		t.Fatal("expected no eligible entry in an empty queue")
	}
}

func TestSetActualPartNameReservesWiderPart(t *testing.T) {
	q := New("t", "r1", nil)
	e := NewLogEntry(MergeParts, "all_0_1_1", []string{"all_0_0_0", "all_1_1_0"}, time.Now())
	q.Insert(e)

	_, guard, ok := q.SelectEntryToProcess(nil, nil)
	if !ok {
		t.Fatal("expected to select the merge entry")
	}
	defer guard.Release()

	q.SetActualPartName(guard, "all_0_1_2")
	if _, ok := q.futureParts["all_0_1_2"]; !ok {
		t.Fatal("expected actual part name to be reserved too")
	}
}

func TestProcessEntrySuccessFoldsIntoVirtualPartsAndRemoves(t *testing.T) {
	q := New("t", "r1", nil)
	e := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	q.Insert(e)

	_, guard, ok := q.SelectEntryToProcess(nil, nil)
	if !ok {
		t.Fatal("expected to select the entry")
	}

	q.ProcessEntry(e, func(*LogEntry) error { return nil })
	guard.Release()

	if len(q.entries) != 0 {
		t.Fatalf("expected entry removed from queue, have %d", len(q.entries))
	}
	if !q.virtualParts.Contains(mustParse(t, "all_0_0_0")) {
		t.Fatal("expected produced part folded into virtual_parts")
	}
}

func TestProcessEntryFailureLeavesEntryQueued(t *testing.T) {
	q := New("t", "r1", nil)
	e := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	q.Insert(e)

	_, guard, ok := q.SelectEntryToProcess(nil, nil)
	if !ok {
		t.Fatal("expected to select the entry")
	}
	defer guard.Release()

	wantErr := errors.New("fetch failed")
	q.ProcessEntry(e, func(*LogEntry) error { return wantErr })

	if len(q.entries) != 1 {
		t.Fatalf("expected entry to remain queued, have %d", len(q.entries))
	}
	if e.Exception() != wantErr {
		t.Fatalf("expected stashed exception %v, got %v", wantErr, e.Exception())
	}
}
