package queue

import "fmt"

// Conflict describes why ShouldExecuteLogEntry postponed an entry (spec
// §4.4). Reason is logged verbatim as the entry's postpone reason; it is
// not meant to be machine-parsed.
type Conflict struct {
	Reason string
}

func conflict(format string, args ...any) *Conflict {
	return &Conflict{Reason: fmt.Sprintf(format, args...)}
}

// defaultMaxBytesToMerge is used when the merger collaborator is nil
// (unit tests exercising the queue in isolation).
const defaultMaxBytesToMerge = uint64(1) << 40

// ShouldExecuteLogEntry decides whether entry is eligible to run right
// now (spec §4.4). A non-nil Conflict means the caller must postpone:
// bump num_postponed, record the reason, and leave the entry in the
// queue untouched. Callers must hold no lock; ShouldExecuteLogEntry
// takes the queue mutex itself.
func (q *Queue) ShouldExecuteLogEntry(entry *LogEntry, storage Storage, merger Merger) *Conflict {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch entry.Type {
	case GetPart, MergeParts, MutatePart, AttachPart:
		if !q.isNotCoveredByFuturePartsLocked(entry.NewPartName) {
			return conflict("part %s is already being produced, or superseded by a broader in-flight operation", entry.NewPartName)
		}
	}

	switch entry.Type {
	case MergeParts, MutatePart:
		if merger != nil && merger.IsMergesCancelled() {
			return conflict("merges and mutations are cancelled")
		}
		var totalBytes uint64
		for _, src := range entry.PartsToMerge {
			if _, ok := q.futureParts[src]; ok {
				return conflict("source part %s for %s is not ready yet", src, entry.NewPartName)
			}
			if storage != nil {
				if stat, ok := storage.GetPartIfExists(src, Committed); ok {
					totalBytes += stat.BytesOnDisk
				}
			}
		}
		maxAllowed := defaultMaxBytesToMerge
		if merger != nil {
			if budget := merger.MaxBytesToMergeAtMaxSpace(); budget > 0 {
				maxAllowed = budget
			}
		}
		var currentCap uint64
		if merger != nil {
			currentCap = merger.MaxPartsSizeForMerge()
		}
		// A zero current cap means the pool is fully idle: any merge,
		// including explicit OPTIMIZE, is allowed regardless of size.
		if currentCap != 0 && currentCap < maxAllowed && totalBytes > currentCap {
			return conflict("merge of %d bytes exceeds current budget %d", totalBytes, currentCap)
		}

	case ClearColumn:
		if conflicts := q.GetConflictsForClearColumnCommand(entry); len(conflicts) > 0 {
			return conflict("%d conflicting entries currently executing", len(conflicts))
		}
	}

	return nil
}

// GetConflictsForClearColumnCommand returns every other currently-
// executing entry that conflicts with entry (spec §4.4): a producer
// whose new_part_name is contained by entry's target partition range, or
// another CLEAR_COLUMN on the same partition.
func (q *Queue) GetConflictsForClearColumnCommand(entry *LogEntry) []*LogEntry {
	var out []*LogEntry
	for _, other := range q.entries {
		if other == entry || !other.IsCurrentlyExecuting() {
			continue
		}
		switch other.Type {
		case GetPart, MergeParts, MutatePart, AttachPart:
			info, err := ParsePartInfo(entry.NewPartName)
			otherInfo, otherErr := ParsePartInfo(other.NewPartName)
			if err == nil && otherErr == nil && info.Contains(otherInfo) {
				out = append(out, other)
			}
		case ClearColumn:
			if other.ClearColumnOf == entry.ClearColumnOf {
				out = append(out, other)
			}
		}
	}
	return out
}

// IsNotCoveredByFuturePartsImpl reports whether newPartName is free of
// any future-parts reservation that already covers it: it is neither a
// member of future_parts itself, nor contained by any member (spec
// §4.4).
func (q *Queue) IsNotCoveredByFuturePartsImpl(newPartName string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isNotCoveredByFuturePartsLocked(newPartName)
}

func (q *Queue) isNotCoveredByFuturePartsLocked(newPartName string) bool {
	if _, ok := q.futureParts[newPartName]; ok {
		return false
	}
	info, err := ParsePartInfo(newPartName)
	if err != nil {
		return true
	}
	for name := range q.futureParts {
		other, err := ParsePartInfo(name)
		if err != nil {
			continue
		}
		if other.Contains(info) {
			return false
		}
	}
	return true
}

// DisableMergesAndFetchesInRange asserts the preconditions a CLEAR_COLUMN
// execution relies on before it runs: no other entry currently conflicts
// with it, and its own target range is already reserved in future_parts
// (spec §4.4: "a logic bug otherwise").
func (q *Queue) DisableMergesAndFetchesInRange(entry *LogEntry) {
	if conflicts := q.GetConflictsForClearColumnCommand(entry); len(conflicts) > 0 {
		panic(newLogicError("DisableMergesAndFetchesInRange", "entry %s has %d unexpected conflicts", entry.ZnodeName, len(conflicts)))
	}
	q.mu.Lock()
	_, reserved := q.futureParts[entry.NewPartName]
	q.mu.Unlock()
	if !reserved {
		panic(newLogicError("DisableMergesAndFetchesInRange", "entry %s's range was not reserved in future_parts", entry.ZnodeName))
	}
}
