package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Queue is the in-memory, mutex-protected state of one replica's
// replication queue (spec §3). A Queue is created once per (table,
// replica) pair; there is no global state (spec §9).
type Queue struct {
	// mu guards every field below. No operation may hold mu across a
	// coordination-service round-trip (spec §5).
	mu sync.Mutex

	// entries is the ordered sequence of pending operations. DROP_RANGE
	// entries are pushed to the front; everything else to the back. It is
	// a plain slice rather than a container/list.List because the two
	// splice operations this package needs (move-to-tail,
	// remove-by-identity) are both simplest as index-based slice surgery,
	// and the queue rarely holds more than a few hundred entries.
	entries []*LogEntry

	insertsByTime []*LogEntry // GET_PART entries, ordered by (CreateTime, ZnodeName)

	virtualParts     *PartSet
	nextVirtualParts *PartSet

	currentInserts map[string]*sortedInt64Set // partition -> live block-number locks
	futureParts    map[string]struct{}        // part names reserved by in-flight execution

	mutations             []*MutationEntry
	mutationsByPartition   map[string]map[int64]*MutationEntry // partition -> block_number -> entry
	mutationPartitionKeys  map[string][]int64                  // partition -> sorted block numbers (mirrors the map above)

	lastQuorumPart      string
	inprogressQuorumPart string

	minUnprocessedInsertTime time.Time
	maxProcessedInsertTime   time.Time
	lastQueueUpdate          time.Time

	zk NodeRemover

	log *logrus.Entry
}

// New creates an empty queue for one (table, replica) pair. zk is used for
// the best-effort znode deletions remove() performs; it may be nil in
// tests that don't care about coordination-service side effects.
func New(table, replica string, zk NodeRemover) *Queue {
	return &Queue{
		virtualParts:          NewPartSet(),
		nextVirtualParts:      NewPartSet(),
		currentInserts:        make(map[string]*sortedInt64Set),
		futureParts:           make(map[string]struct{}),
		mutationsByPartition:  make(map[string]map[int64]*MutationEntry),
		mutationPartitionKeys: make(map[string][]int64),
		zk:                    zk,
		log: logrus.WithFields(logrus.Fields{
			"pkg":     "queue",
			"table":   table,
			"replica": replica,
		}),
	}
}

// Insert adds entry to the queue (spec §4.3's insert()). It returns
// whether min_unprocessed_insert_time changed, so callers can flush the
// new hint to the coordination service outside the lock (spec §5).
func (q *Queue) Insert(entry *LogEntry) (hintChanged bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	info, err := ParsePartInfo(entry.NewPartName)
	if err == nil {
		q.nextVirtualParts.Add(info)
	}

	if entry.Type == DropRange {
		q.entries = append([]*LogEntry{entry}, q.entries...)
	} else {
		q.entries = append(q.entries, entry)
	}

	if entry.Type == GetPart {
		q.insertIntoInsertsByTime(entry)
		if q.minUnprocessedInsertTime.IsZero() || entry.CreateTime.Before(q.minUnprocessedInsertTime) {
			q.minUnprocessedInsertTime = entry.CreateTime
			hintChanged = true
		}
	}
	return hintChanged
}

func (q *Queue) insertIntoInsertsByTime(entry *LogEntry) {
	i := sort.Search(len(q.insertsByTime), func(i int) bool {
		other := q.insertsByTime[i]
		if !other.CreateTime.Equal(entry.CreateTime) {
			return other.CreateTime.After(entry.CreateTime)
		}
		return other.ZnodeName >= entry.ZnodeName
	})
	q.insertsByTime = append(q.insertsByTime, nil)
	copy(q.insertsByTime[i+1:], q.insertsByTime[i:])
	q.insertsByTime[i] = entry
}

// Remove deletes entry from the queue by identity (spec §4.3's
// remove(entry)). The coordination-service node is removed best-effort
// outside the lock, matching §5's "no round-trip under queue_mutex".
func (q *Queue) Remove(entry *LogEntry) {
	q.removeZNodeBestEffort(entry.ZnodeName)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeByIdentityLocked(entry)
}

// removeByIdentityLocked implements the tail-first scan spec §4.3 calls
// for: "scan queue from the tail... because executable entries are
// rotated to the end and the most likely match lives there".
func (q *Queue) removeByIdentityLocked(entry *LogEntry) bool {
	idx := -1
	for i := len(q.entries) - 1; i >= 0; i-- {
		if q.entries[i] == entry {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)

	if entry.NewPartName == q.inprogressQuorumPart {
		// Superseded without ever completing quorum: don't leave the
		// bookkeeping dangling (original_source's removeFailedQuorumPart).
		q.inprogressQuorumPart = ""
	}

	if entry.Type == GetPart {
		q.removeFromInsertsByTimeLocked(entry)
	}
	return true
}

func (q *Queue) removeFromInsertsByTimeLocked(entry *LogEntry) {
	for i, e := range q.insertsByTime {
		if e == entry {
			q.insertsByTime = append(q.insertsByTime[:i], q.insertsByTime[i+1:]...)
			break
		}
	}
	if len(q.insertsByTime) == 0 {
		q.minUnprocessedInsertTime = time.Time{}
	} else {
		q.minUnprocessedInsertTime = q.insertsByTime[0].CreateTime
	}
	if entry.CreateTime.After(q.maxProcessedInsertTime) {
		q.maxProcessedInsertTime = entry.CreateTime
	}
}

// RemoveByPartName finds the first queue entry whose NewPartName matches
// and removes it (spec §4.3's remove(part_name)).
func (q *Queue) RemoveByPartName(partName string) bool {
	q.mu.Lock()
	var found *LogEntry
	for _, e := range q.entries {
		if e.NewPartName == partName {
			found = e
			break
		}
	}
	if found == nil {
		q.mu.Unlock()
		return false
	}
	q.removeByIdentityLocked(found)
	q.mu.Unlock()

	q.removeZNodeBestEffort(found.ZnodeName)
	return true
}

// RemovePartProducingOpsInRange removes every GET_PART/MERGE_PARTS/
// MUTATE_PART entry whose NewPartName is contained by partName and that is
// not currently executing, then waits for the currently-executing matches
// to finish; those are not removed here (spec §4.3).
func (q *Queue) RemovePartProducingOpsInRange(partName string) error {
	target, err := ParsePartInfo(partName)
	if err != nil {
		return err
	}

	q.mu.Lock()
	var toWait []*LogEntry
	var toRemoveNow []*LogEntry
	for _, e := range q.entries {
		if e.Type != GetPart && e.Type != MergeParts && e.Type != MutatePart {
			continue
		}
		info, err := ParsePartInfo(e.NewPartName)
		if err != nil || !target.Contains(info) {
			continue
		}
		if e.IsCurrentlyExecuting() {
			toWait = append(toWait, e)
			continue
		}
		toRemoveNow = append(toRemoveNow, e)
	}
	for _, e := range toRemoveNow {
		q.removeByIdentityLocked(e)
	}
	q.mu.Unlock()

	for _, e := range toRemoveNow {
		q.removeZNodeBestEffort(e.ZnodeName)
	}

	// Wait outside the lock. ProcessEntry removes a match from the queue
	// when its execution succeeds; a failed one stays queued.
	for _, e := range toWait {
		e.WaitForExecutionToFinish()
	}
	return nil
}

// MoveSiblingPartsForMergeToEndOfQueue locates the MERGE_PARTS/MUTATE_PART
// entry whose PartsToMerge contains partName, moves every earlier queued
// producer of one of its sources to the tail, and returns those source
// names (spec §4.3).
func (q *Queue) MoveSiblingPartsForMergeToEndOfQueue(partName string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var mergeIdx = -1
	var sources []string
	for i, e := range q.entries {
		if e.Type != MergeParts && e.Type != MutatePart {
			continue
		}
		for _, p := range e.PartsToMerge {
			if p == partName {
				mergeIdx = i
				sources = e.PartsToMerge
				break
			}
		}
		if mergeIdx >= 0 {
			break
		}
	}
	if mergeIdx < 0 {
		return nil
	}

	sourceSet := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		sourceSet[s] = struct{}{}
	}

	var moved []*LogEntry
	var rest []*LogEntry
	for i, e := range q.entries {
		if i >= mergeIdx {
			rest = append(rest, e)
			continue
		}
		_, isSource := sourceSet[e.NewPartName]
		isProducer := e.Type == GetPart || e.Type == MergeParts || e.Type == MutatePart
		if isSource && isProducer {
			moved = append(moved, e)
		} else {
			rest = append(rest, e)
		}
	}
	q.entries = append(rest, moved...)

	return sources
}

func (q *Queue) removeZNodeBestEffort(znodeName string) {
	if q.zk == nil || znodeName == "" {
		return
	}
	if err := q.zk.TryRemove(queuePath(znodeName)); err != nil {
		q.log.WithError(err).WithField("znode", znodeName).Warn("best-effort queue node removal failed")
	}
}

func queuePath(znodeName string) string { return "queue/" + znodeName }
