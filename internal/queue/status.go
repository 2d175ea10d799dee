package queue

import "time"

// EntrySnapshot is a read-only view of one queued entry's state, safe to
// hand to callers outside the queue lock (spec §6: "getEntries()
// snapshots the queue").
type EntrySnapshot struct {
	ZnodeName         string
	Type              EntryType
	NewPartName       string
	PartsToMerge      []string
	CreateTime        time.Time
	CurrentlyExecuting bool
	NumTries          int
	LastAttemptTime   time.Time
	NumPostponed      int
	LastPostponeTime  time.Time
	PostponeReason    string
	ActualNewPartName string
	Exception         error
}

// Status is the full observable surface spec §6 names, extended with the
// original implementation's complete field set (SPEC_FULL.md §4):
// per-category counts and oldest timestamps, not just the four §6 names.
type Status struct {
	QueueSize int
	InsertsInQueue int
	MergesInQueue int
	PartMutationsInQueue int

	FutureParts int

	QueueOldestTime         time.Time
	InsertsOldestTime       time.Time
	MergesOldestTime        time.Time
	PartMutationsOldestTime time.Time

	OldestPartToGet     string
	OldestPartToMergeTo string
	OldestPartToMutateTo string

	LastQueueUpdate time.Time
}

// GetStatus snapshots the counts and oldest-timestamps §6 and the
// supplemented field set require.
func (q *Queue) GetStatus() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	var st Status
	st.QueueSize = len(q.entries)
	st.FutureParts = len(q.futureParts)
	st.LastQueueUpdate = q.lastQueueUpdate

	for _, e := range q.entries {
		switch e.Type {
		case GetPart, AttachPart:
			st.InsertsInQueue++
			if st.InsertsOldestTime.IsZero() || e.CreateTime.Before(st.InsertsOldestTime) {
				st.InsertsOldestTime = e.CreateTime
				st.OldestPartToGet = e.NewPartName
			}
		case MergeParts:
			st.MergesInQueue++
			if st.MergesOldestTime.IsZero() || e.CreateTime.Before(st.MergesOldestTime) {
				st.MergesOldestTime = e.CreateTime
				st.OldestPartToMergeTo = e.NewPartName
			}
		case MutatePart:
			st.PartMutationsInQueue++
			if st.PartMutationsOldestTime.IsZero() || e.CreateTime.Before(st.PartMutationsOldestTime) {
				st.PartMutationsOldestTime = e.CreateTime
				st.OldestPartToMutateTo = e.NewPartName
			}
		}
		if st.QueueOldestTime.IsZero() || e.CreateTime.Before(st.QueueOldestTime) {
			st.QueueOldestTime = e.CreateTime
		}
	}

	return st
}

// GetEntries snapshots every queued entry in queue order (spec §6).
func (q *Queue) GetEntries() []EntrySnapshot {
	q.mu.Lock()
	entries := make([]*LogEntry, len(q.entries))
	copy(entries, q.entries)
	q.mu.Unlock()

	out := make([]EntrySnapshot, len(entries))
	for i, e := range entries {
		s := e.snapshot()
		out[i] = EntrySnapshot{
			ZnodeName:          e.ZnodeName,
			Type:               e.Type,
			NewPartName:        e.NewPartName,
			PartsToMerge:       e.PartsToMerge,
			CreateTime:         e.CreateTime,
			CurrentlyExecuting: s.currentlyExec,
			NumTries:           s.numTries,
			LastAttemptTime:    s.lastAttemptTime,
			NumPostponed:       s.numPostponed,
			LastPostponeTime:   s.lastPostponeTime,
			PostponeReason:     s.postponeReason,
			ActualNewPartName:  s.actualNewPartName,
			Exception:          s.exception,
		}
	}
	return out
}

// GetInsertTimes returns the two time hints §6 names.
func (q *Queue) GetInsertTimes() (minUnprocessed, maxProcessed time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.minUnprocessedInsertTime, q.maxProcessedInsertTime
}

// CountMergesAndPartMutations counts queued MERGE_PARTS plus MUTATE_PART
// entries (spec §6).
func (q *Queue) CountMergesAndPartMutations() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, e := range q.entries {
		if e.Type == MergeParts || e.Type == MutatePart {
			n++
		}
	}
	return n
}
