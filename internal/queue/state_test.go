package queue

import (
	"testing"
	"time"
)

func TestQueueInsertDropRangeGoesToFront(t *testing.T) {
	q := New("t", "r1", nil)

	get := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	q.Insert(get)

	drop := NewLogEntry(DropRange, "20180101_0_100_999998", nil, time.Now())
	q.Insert(drop)

	if q.entries[0] != drop {
		t.Fatalf("expected DROP_RANGE entry at front, got %v", q.entries[0].Type)
	}
	if q.entries[1] != get {
		t.Fatalf("expected GET_PART entry second, got %v", q.entries[1].Type)
	}
}

func TestQueueInsertTightensMinUnprocessedInsertTime(t *testing.T) {
	q := New("t", "r1", nil)
	later := time.Now()
	earlier := later.Add(-time.Hour)

	e1 := NewLogEntry(GetPart, "all_0_0_0", nil, later)
	changed := q.Insert(e1)
	if !changed {
		t.Fatal("first insert should change the hint")
	}

	e2 := NewLogEntry(GetPart, "all_1_1_0", nil, earlier)
	changed = q.Insert(e2)
	if !changed {
		t.Fatal("earlier insert should tighten the hint")
	}

	min, _ := q.GetInsertTimes()
	if !min.Equal(earlier) {
		t.Fatalf("min_unprocessed_insert_time = %v, want %v", min, earlier)
	}
}

func TestQueueRemoveRestoresMinUnprocessedInsertTime(t *testing.T) {
	q := New("t", "r1", nil)
	t1 := time.Now().Add(-2 * time.Hour)
	t2 := time.Now().Add(-time.Hour)

	e1 := NewLogEntry(GetPart, "all_0_0_0", nil, t1)
	e2 := NewLogEntry(GetPart, "all_1_1_0", nil, t2)
	q.Insert(e1)
	q.Insert(e2)

	q.Remove(e1)

	min, _ := q.GetInsertTimes()
	if !min.Equal(t2) {
		t.Fatalf("min_unprocessed_insert_time after removing the unique minimum = %v, want %v", min, t2)
	}
}

func TestQueueRemoveByPartName(t *testing.T) {
	q := New("t", "r1", nil)
	e := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	q.Insert(e)

	if !q.RemoveByPartName("all_0_0_0") {
		t.Fatal("expected RemoveByPartName to find the entry")
	}
	if len(q.entries) != 0 {
		t.Fatalf("expected queue to be empty, has %d entries", len(q.entries))
	}
	if q.RemoveByPartName("all_0_0_0") {
		t.Fatal("second removal should find nothing")
	}
}

func TestQueueRemovePartProducingOpsInRange(t *testing.T) {
	q := New("t", "r1", nil)
	inner := NewLogEntry(GetPart, "all_2_4_0", nil, time.Now())
	outer := NewLogEntry(GetPart, "all_20_24_0", nil, time.Now())
	q.Insert(inner)
	q.Insert(outer)

	if err := q.RemovePartProducingOpsInRange("all_0_10_5"); err != nil {
		t.Fatalf("RemovePartProducingOpsInRange: %v", err)
	}

	if len(q.entries) != 1 || q.entries[0] != outer {
		t.Fatalf("expected only the out-of-range entry to survive, got %+v", q.entries)
	}
}

func TestQueueRemovePartProducingOpsInRangeWaitsForExecuting(t *testing.T) {
	q := New("t", "r1", nil)
	inner := NewLogEntry(GetPart, "all_2_4_0", nil, time.Now())
	q.Insert(inner)

	inner.mu.Lock()
	inner.currentlyExec = true
	inner.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- q.RemovePartProducingOpsInRange("all_0_10_5") }()

	select {
	case <-done:
		t.Fatal("should not return before the executing entry finishes")
	case <-time.After(20 * time.Millisecond):
	}

	inner.mu.Lock()
	inner.currentlyExec = false
	inner.cond.Broadcast()
	inner.mu.Unlock()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RemovePartProducingOpsInRange: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RemovePartProducingOpsInRange did not return")
	}
}

func TestQueueMoveSiblingPartsForMergeToEndOfQueue(t *testing.T) {
	q := New("t", "r1", nil)
	src1 := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	src2 := NewLogEntry(GetPart, "all_1_1_0", nil, time.Now())
	merge := NewLogEntry(MergeParts, "all_0_1_1", []string{"all_0_0_0", "all_1_1_0"}, time.Now())
	other := NewLogEntry(GetPart, "all_2_2_0", nil, time.Now())

	q.Insert(src1)
	q.Insert(src2)
	q.Insert(merge)
	q.Insert(other)

	sources := q.MoveSiblingPartsForMergeToEndOfQueue("all_0_0_0")
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %+v", sources)
	}

	idxSrc1, idxMerge := -1, -1
	for i, e := range q.entries {
		if e == src1 {
			idxSrc1 = i
		}
		if e == merge {
			idxMerge = i
		}
	}
	if idxSrc1 < idxMerge {
		t.Fatalf("expected src1 to be moved after merge entry: src1=%d merge=%d", idxSrc1, idxMerge)
	}
}

func TestQueueRemoveClearsInprogressQuorumPart(t *testing.T) {
	q := New("t", "r1", nil)
	e := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	q.Insert(e)
	q.inprogressQuorumPart = "all_0_0_0"

	q.Remove(e)

	if q.inprogressQuorumPart != "" {
		t.Fatalf("expected inprogress_quorum_part cleared, got %q", q.inprogressQuorumPart)
	}
}

type fakeNodeRemover struct {
	removed []string
}

func (f *fakeNodeRemover) TryRemove(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

func TestQueueRemoveCallsNodeRemoverBestEffort(t *testing.T) {
	remover := &fakeNodeRemover{}
	q := New("t", "r1", remover)
	e := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	e.ZnodeName = "queue-0000000001"
	q.Insert(e)

	q.Remove(e)

	if len(remover.removed) != 1 || remover.removed[0] != "queue/queue-0000000001" {
		t.Fatalf("unexpected znode removals: %+v", remover.removed)
	}
}
