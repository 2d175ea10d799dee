package queue

import (
	"testing"
	"time"
)

func TestGetStatusCountsByCategory(t *testing.T) {
	q := New("t", "r1", nil)
	now := time.Now()

	q.Insert(NewLogEntry(GetPart, "all_0_0_0", nil, now.Add(-2*time.Hour)))
	q.Insert(NewLogEntry(MergeParts, "all_1_2_1", []string{"all_1_1_0", "all_2_2_0"}, now.Add(-time.Hour)))
	q.Insert(NewLogEntry(MutatePart, "all_3_3_0_1", nil, now))

	st := q.GetStatus()
	if st.QueueSize != 3 {
		t.Fatalf("QueueSize = %d, want 3", st.QueueSize)
	}
	if st.InsertsInQueue != 1 || st.MergesInQueue != 1 || st.PartMutationsInQueue != 1 {
		t.Fatalf("unexpected category counts: %+v", st)
	}
	if st.OldestPartToGet != "all_0_0_0" {
		t.Fatalf("OldestPartToGet = %q, want all_0_0_0", st.OldestPartToGet)
	}
}

func TestGetEntriesSnapshotsQueueOrder(t *testing.T) {
	q := New("t", "r1", nil)
	e1 := NewLogEntry(GetPart, "all_0_0_0", nil, time.Now())
	e2 := NewLogEntry(GetPart, "all_1_1_0", nil, time.Now())
	q.Insert(e1)
	q.Insert(e2)

	snaps := q.GetEntries()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].NewPartName != "all_0_0_0" || snaps[1].NewPartName != "all_1_1_0" {
		t.Fatalf("unexpected order: %+v", snaps)
	}
}

func TestGetInsertTimes(t *testing.T) {
	q := New("t", "r1", nil)
	createTime := time.Now().Add(-time.Hour)
	q.Insert(NewLogEntry(GetPart, "all_0_0_0", nil, createTime))

	min, max := q.GetInsertTimes()
	if !min.Equal(createTime) {
		t.Fatalf("min = %v, want %v", min, createTime)
	}
	if !max.IsZero() {
		t.Fatalf("max_processed_insert_time should still be zero, got %v", max)
	}
}

func TestCountMergesAndPartMutations(t *testing.T) {
	q := New("t", "r1", nil)
	q.Insert(NewLogEntry(GetPart, "all_0_0_0", nil, time.Now()))
	q.Insert(NewLogEntry(MergeParts, "all_1_2_1", []string{"all_1_1_0", "all_2_2_0"}, time.Now()))
	q.Insert(NewLogEntry(MutatePart, "all_3_3_0_1", nil, time.Now()))

	if got := q.CountMergesAndPartMutations(); got != 2 {
		t.Fatalf("CountMergesAndPartMutations() = %d, want 2", got)
	}
}
