package queue

import "time"

// ExecutionGuard reserves the resources an in-flight entry needs
// (future_parts membership, the entry's currently-executing flag) for
// the duration of execution and releases them exactly once, however
// execution ends (spec §4.5, §9 "guard pattern"). Go has no destructors,
// so callers must defer g.Release() immediately after a successful
// SelectEntryToProcess.
type ExecutionGuard struct {
	q        *Queue
	entry    *LogEntry
	reserved []string
	released bool
}

// Release undoes the guard's reservations and wakes any goroutine
// blocked in WaitForExecutionToFinish. Safe to call more than once;
// missing reservations are logged as logic bugs but do not abort (spec
// §4.5).
func (g *ExecutionGuard) Release() {
	if g.released {
		return
	}
	g.released = true

	g.entry.mu.Lock()
	g.entry.currentlyExec = false
	g.entry.cond.Broadcast()
	actual := g.entry.actualNewPartName
	g.entry.mu.Unlock()

	g.q.mu.Lock()
	for _, name := range g.reserved {
		if _, ok := g.q.futureParts[name]; !ok {
			g.q.log.WithField("part", name).Warn("future_parts reservation missing at guard release")
			continue
		}
		delete(g.q.futureParts, name)
	}
	if actual != "" && actual != g.entry.NewPartName {
		delete(g.q.futureParts, actual)
	}
	g.q.mu.Unlock()
}

// SelectEntryToProcess scans the queue front-to-back, skipping entries
// that are already executing, and returns the first entry that passes
// ShouldExecuteLogEntry under a freshly-constructed execution guard
// (spec §4.5). The chosen entry is rotated to the tail of the queue
// before being returned ("rebalance to tail", spec §9 Open Question,
// retained deliberately). Entries that fail eligibility have
// num_postponed bumped in place. Returns ok=false if nothing is eligible
// right now.
func (q *Queue) SelectEntryToProcess(storage Storage, merger Merger) (entry *LogEntry, guard *ExecutionGuard, ok bool) {
	q.mu.Lock()
	candidates := make([]*LogEntry, 0, len(q.entries))
	for _, e := range q.entries {
		if !e.IsCurrentlyExecuting() {
			candidates = append(candidates, e)
		}
	}
	q.mu.Unlock()

	for _, e := range candidates {
		c := q.ShouldExecuteLogEntry(e, storage, merger)
		if c != nil {
			e.mu.Lock()
			e.numPostponed++
			e.lastPostponeTime = time.Now()
			e.postponeReason = c.Reason
			e.mu.Unlock()
			continue
		}

		q.mu.Lock()
		q.rotateToTailLocked(e)
		q.mu.Unlock()

		return e, q.beginExecution(e), true
	}

	return nil, nil, false
}

func (q *Queue) rotateToTailLocked(entry *LogEntry) {
	for i, e := range q.entries {
		if e == entry {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.entries = append(q.entries, entry)
			return
		}
	}
}

// beginExecution stamps entry's runtime metadata and reserves its
// new_part_name in future_parts. A name already present is a logic bug:
// SelectEntryToProcess's caller is expected to have verified
// IsNotCoveredByFuturePartsImpl via ShouldExecuteLogEntry just above.
func (q *Queue) beginExecution(entry *LogEntry) *ExecutionGuard {
	entry.mu.Lock()
	entry.currentlyExec = true
	entry.numTries++
	entry.lastAttemptTime = time.Now()
	entry.mu.Unlock()

	q.mu.Lock()
	if _, dup := q.futureParts[entry.NewPartName]; dup {
		q.mu.Unlock()
		panic(newLogicError("beginExecution", "part %s is already reserved in future_parts", entry.NewPartName))
	}
	q.futureParts[entry.NewPartName] = struct{}{}
	q.mu.Unlock()

	return &ExecutionGuard{q: q, entry: entry, reserved: []string{entry.NewPartName}}
}

// SetActualPartName records the part name execution actually produced,
// which for MERGE_PARTS/MUTATE_PART may cover a wider range than
// new_part_name — e.g. when a fetched replacement part supersedes a
// local merge result (spec §4.5). If it differs it is also reserved in
// future_parts for the remainder of the guard's lifetime.
func (q *Queue) SetActualPartName(g *ExecutionGuard, actual string) {
	g.entry.mu.Lock()
	g.entry.actualNewPartName = actual
	g.entry.mu.Unlock()

	if actual == g.entry.NewPartName {
		return
	}
	q.mu.Lock()
	q.futureParts[actual] = struct{}{}
	q.mu.Unlock()
}

// ProcessEntry invokes fn against entry; a nil error folds the
// produced part (actual_new_part_name if set, else new_part_name) into
// virtual_parts and removes the entry from the queue via §4.3's remove.
// A non-nil error is stashed on the entry for status
// reporting, leaving it queued for a later attempt — the guard's release
// still clears future_parts regardless (spec §4.5).
func (q *Queue) ProcessEntry(entry *LogEntry, fn func(*LogEntry) error) {
	err := fn(entry)

	entry.mu.Lock()
	entry.exception = err
	produced := entry.actualNewPartName
	if produced == "" {
		produced = entry.NewPartName
	}
	entry.mu.Unlock()

	if err != nil {
		return
	}

	if info, perr := ParsePartInfo(produced); perr == nil {
		q.mu.Lock()
		q.virtualParts.Add(info)
		q.mu.Unlock()
	}

	q.Remove(entry)
}
