package queue

import (
	"sync"
	"time"
)

// EntryType is the kind of operation a LogEntry describes (spec §3).
type EntryType uint8

const (
	GetPart EntryType = iota
	MergeParts
	MutatePart
	DropRange
	ClearColumn
	AttachPart
)

func (t EntryType) String() string {
	switch t {
	case GetPart:
		return "GET_PART"
	case MergeParts:
		return "MERGE_PARTS"
	case MutatePart:
		return "MUTATE_PART"
	case DropRange:
		return "DROP_RANGE"
	case ClearColumn:
		return "CLEAR_COLUMN"
	case AttachPart:
		return "ATTACH_PART"
	default:
		return "UNKNOWN"
	}
}

// LogEntry is one queued replicated operation (spec §3). The fields set at
// construction (ZnodeName onward through CreateTime) are immutable once the
// entry is stamped; everything from mu onward is runtime metadata guarded
// by the entry's own mu, not by the owning Queue's mutex.
type LogEntry struct {
	ZnodeName     string // assigned when persisted under R/queue/
	Type          EntryType
	NewPartName   string
	PartsToMerge  []string // source parts for MERGE_PARTS / MUTATE_PART
	CreateTime    time.Time
	ClearColumnOf string // partition ID, for CLEAR_COLUMN conflict checks

	// mu guards everything below. It is a plain sync.Mutex rather than
	// sync.Cond's embedded locker because waiters in
	// removePartProducingOpsInRange borrow this entry's condition
	// specifically, not the whole queue's lock.
	mu                sync.Mutex
	cond              *sync.Cond
	currentlyExec     bool
	numTries          int
	lastAttemptTime   time.Time
	numPostponed      int
	lastPostponeTime  time.Time
	postponeReason    string
	actualNewPartName string
	exception         error
}

// NewLogEntry constructs an entry with its condition variable wired up.
// znodeName is empty until the puller stamps it after a successful
// multi-write (spec §4.1 step 5).
func NewLogEntry(entryType EntryType, newPartName string, partsToMerge []string, createTime time.Time) *LogEntry {
	e := &LogEntry{
		Type:         entryType,
		NewPartName:  newPartName,
		PartsToMerge: partsToMerge,
		CreateTime:   createTime,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// IsCurrentlyExecuting reports the runtime flag under the entry's own lock.
func (e *LogEntry) IsCurrentlyExecuting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentlyExec
}

// Exception returns the stashed execution error, if any (spec §4.5
// processEntry / §7 "Execution failures").
func (e *LogEntry) Exception() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exception
}

// WaitForExecutionToFinish blocks until currentlyExec is false, used by
// removePartProducingOpsInRange (spec §4.3). Callers must not hold the
// queue mutex while calling this — it's released internally while the
// entry's own lock is held, independent of any outer lock.
func (e *LogEntry) WaitForExecutionToFinish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.currentlyExec {
		e.cond.Wait()
	}
}

// snapshot captures the mutable runtime metadata for status reporting.
type entrySnapshot struct {
	currentlyExec     bool
	numTries          int
	lastAttemptTime   time.Time
	numPostponed      int
	lastPostponeTime  time.Time
	postponeReason    string
	actualNewPartName string
	exception         error
}

func (e *LogEntry) snapshot() entrySnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return entrySnapshot{
		currentlyExec:     e.currentlyExec,
		numTries:          e.numTries,
		lastAttemptTime:   e.lastAttemptTime,
		numPostponed:      e.numPostponed,
		lastPostponeTime:  e.lastPostponeTime,
		postponeReason:    e.postponeReason,
		actualNewPartName: e.actualNewPartName,
		exception:         e.exception,
	}
}
