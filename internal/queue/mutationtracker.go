package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// NoMutationVersion is returned by GetCurrentMutationVersion when the
// partition has no mutation at or below the requested version. Zero is a
// valid mutation block number, so -1 is used as the sentinel (spec
// §4.2).
const NoMutationVersion = int64(-1)

// wireMutationEntry is the JSON body stored under Z/mutations/<znode>.
type wireMutationEntry struct {
	BlockNumbers map[string]int64 `json:"block_numbers"`
	Commands     []MutationCommand `json:"commands"`
}

// MutationTracker drives §4.2's updateMutations protocol for one
// (table, replica) pair: listing /mutations, fetching new entries,
// erasing obsolete ones, and folding the survivors into the queue's
// per-partition index.
type MutationTracker struct {
	client Client
	queue  *Queue
	zPath  string

	mu sync.Mutex // mutation_mutex: serializes refreshes

	knownMax string // highest mutation znode name already folded in

	log *logrus.Entry
}

// NewMutationTracker builds a tracker for one replica's table.
func NewMutationTracker(client Client, q *Queue, zPath string) *MutationTracker {
	return &MutationTracker{
		client: client,
		queue:  q,
		zPath:  zPath,
		log:    logrus.WithFields(logrus.Fields{"pkg": "mutationtracker", "table": zPath}),
	}
}

// UpdateMutations lists /mutations, erases locally-held entries that no
// longer appear on the server, fetches and folds in anything new, and
// returns whether any change occurred (spec §4.2). watch, if non-nil, is
// armed against /mutations.
func (t *MutationTracker) UpdateMutations(ctx context.Context, watch chan<- struct{}) (didWork bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	children, err := t.client.GetChildren(ctx, t.zPath+"/mutations", watch)
	if err != nil {
		return false, fmt.Errorf("queue: listing mutations: %w", err)
	}
	if len(children) == 0 {
		if t.knownMax != "" {
			t.queue.EraseObsoleteMutations(string([]byte{0xff}))
			t.knownMax = ""
			didWork = true
		}
		return didWork, nil
	}
	sort.Strings(children)
	minName, maxName := children[0], children[len(children)-1]

	t.queue.EraseObsoleteMutations(minName)

	for _, name := range children {
		if name <= t.knownMax {
			continue
		}
		data, _, err := t.client.Get(ctx, t.zPath+"/mutations/"+name)
		if err != nil {
			return didWork, fmt.Errorf("queue: fetching mutation %s: %w", name, err)
		}
		var w wireMutationEntry
		if err := json.Unmarshal(data, &w); err != nil {
			return didWork, fmt.Errorf("queue: decoding mutation %s: %w", name, err)
		}
		t.queue.applyMutation(&MutationEntry{ZnodeName: name, BlockNumbers: w.BlockNumbers, Commands: w.Commands})
		didWork = true
	}
	t.knownMax = maxName

	return didWork, nil
}

// applyMutation folds a freshly-pulled mutation entry into the
// per-partition index GetMutationCommands and GetCurrentMutationVersion
// scan (spec §4.2). It is idempotent: re-applying an already-known
// mutation (same ZnodeName) is a no-op.
func (q *Queue) applyMutation(entry *MutationEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, existing := range q.mutations {
		if existing.ZnodeName == entry.ZnodeName {
			return
		}
	}
	q.mutations = append(q.mutations, entry)

	for partition, blockNumber := range entry.BlockNumbers {
		if q.mutationsByPartition[partition] == nil {
			q.mutationsByPartition[partition] = make(map[int64]*MutationEntry)
		}
		q.mutationsByPartition[partition][blockNumber] = entry

		keys := q.mutationPartitionKeys[partition]
		i := sort.Search(len(keys), func(i int) bool { return keys[i] >= blockNumber })
		if i < len(keys) && keys[i] == blockNumber {
			continue
		}
		keys = append(keys, 0)
		copy(keys[i+1:], keys[i:])
		keys[i] = blockNumber
		q.mutationPartitionKeys[partition] = keys
	}
}

// EraseObsoleteMutations drops every locally-held mutation whose znode
// name sorts below minLiveName (spec §4.2: "obsolete entries... erased;
// their per-partition index entries are removed").
func (q *Queue) EraseObsoleteMutations(minLiveName string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.mutations[:0:0]
	removed := make(map[*MutationEntry]bool)
	for _, m := range q.mutations {
		if m.ZnodeName < minLiveName {
			removed[m] = true
			continue
		}
		kept = append(kept, m)
	}
	q.mutations = kept
	if len(removed) == 0 {
		return
	}

	for partition, byVersion := range q.mutationsByPartition {
		keys := q.mutationPartitionKeys[partition]
		survivors := keys[:0:0]
		for _, k := range keys {
			if removed[byVersion[k]] {
				delete(byVersion, k)
				continue
			}
			survivors = append(survivors, k)
		}
		q.mutationPartitionKeys[partition] = survivors
	}
}

// GetCurrentMutationVersion returns the largest mutation block number
// queued for part's partition at or below part's own data version, or
// NoMutationVersion when none exists (spec §4.2).
func (q *Queue) GetCurrentMutationVersion(part PartInfo) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.currentMutationVersionLocked(part.PartitionID, part.DataVersion())
}

func (q *Queue) currentMutationVersionLocked(partitionID string, dataVersion int64) int64 {
	keys := q.mutationPartitionKeys[partitionID]
	if len(keys) == 0 {
		return NoMutationVersion
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i] > dataVersion })
	if i == 0 {
		return NoMutationVersion
	}
	return keys[i-1]
}
