package queue

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMutationTrackerFetchesNewMutations(t *testing.T) {
	client := newFakeCoordinationClient()
	q := New("t", "r1", nil)
	tracker := NewMutationTracker(client, q, "/tables/t")

	body, _ := json.Marshal(wireMutationEntry{
		BlockNumbers: map[string]int64{"all": 5},
		Commands:     []MutationCommand{{Kind: "DELETE", Text: "x=1"}},
	})
	client.put("/tables/t/mutations/mutation-0000000001", body)

	didWork, err := tracker.UpdateMutations(context.Background(), nil)
	if err != nil {
		t.Fatalf("UpdateMutations: %v", err)
	}
	if !didWork {
		t.Fatal("expected didWork=true for a new mutation")
	}

	version := q.GetCurrentMutationVersion(mustParse(t, "all_6_8_0"))
	if version != 5 {
		t.Fatalf("expected mutation version 5, got %d", version)
	}
}

func TestMutationTrackerIsIdempotent(t *testing.T) {
	client := newFakeCoordinationClient()
	q := New("t", "r1", nil)
	tracker := NewMutationTracker(client, q, "/tables/t")

	body, _ := json.Marshal(wireMutationEntry{BlockNumbers: map[string]int64{"all": 5}})
	client.put("/tables/t/mutations/mutation-0000000001", body)

	if _, err := tracker.UpdateMutations(context.Background(), nil); err != nil {
		t.Fatalf("first UpdateMutations: %v", err)
	}
	didWork, err := tracker.UpdateMutations(context.Background(), nil)
	if err != nil {
		t.Fatalf("second UpdateMutations: %v", err)
	}
	if didWork {
		t.Fatal("second pass over the same mutation set should be a no-op")
	}
}

func TestMutationTrackerErasesObsoleteEntries(t *testing.T) {
	client := newFakeCoordinationClient()
	q := New("t", "r1", nil)
	tracker := NewMutationTracker(client, q, "/tables/t")

	body1, _ := json.Marshal(wireMutationEntry{BlockNumbers: map[string]int64{"all": 5}})
	client.put("/tables/t/mutations/mutation-0000000001", body1)
	if _, err := tracker.UpdateMutations(context.Background(), nil); err != nil {
		t.Fatalf("UpdateMutations: %v", err)
	}

	client.TryRemove("/tables/t/mutations/mutation-0000000001")
	body2, _ := json.Marshal(wireMutationEntry{BlockNumbers: map[string]int64{"all": 9}})
	client.put("/tables/t/mutations/mutation-0000000002", body2)

	if _, err := tracker.UpdateMutations(context.Background(), nil); err != nil {
		t.Fatalf("UpdateMutations: %v", err)
	}

	version := q.GetCurrentMutationVersion(mustParse(t, "all_10_12_0"))
	if version != 9 {
		t.Fatalf("expected only the surviving mutation's version 9, got %d", version)
	}
}
