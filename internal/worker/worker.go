// Package worker drives a single replica's execution loop: pull the
// replicated log, refresh mutations, propose merges, and execute whatever
// entry the queue's eligibility engine currently admits.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/relistan/go-director"
	"github.com/sirupsen/logrus"

	"github.com/harshithgowdakt/mtqueue/internal/compression"
	"github.com/harshithgowdakt/mtqueue/internal/merger"
	"github.com/harshithgowdakt/mtqueue/internal/metrics"
	"github.com/harshithgowdakt/mtqueue/internal/queue"
	"github.com/harshithgowdakt/mtqueue/internal/storagecollab"
)

// Worker owns the three collaborating loops spec §9 describes as separate
// concerns (log puller, mutation tracker, entry executor) and runs them on
// one ticker, the way the teacher's background merger ran a single
// interval-driven pass over every table.
type Worker struct {
	queue    *queue.Queue
	table    *storagecollab.MergeTreeTable
	puller   *queue.LogPuller
	tracker  *queue.MutationTracker
	storage  queue.Storage
	merger   queue.Merger
	selector *merger.ExternalMergeSelector
	executor *merger.MergeExecutor

	looper  director.Looper
	log     *logrus.Entry
	backoff *backoff.Backoff
}

// New wires a Worker for one table/replica. merger may be nil, in which
// case the oracle and selector fall back to their unbounded defaults.
func New(q *queue.Queue, table *storagecollab.MergeTreeTable, puller *queue.LogPuller, tracker *queue.MutationTracker, m queue.Merger, log *logrus.Entry, interval time.Duration) *Worker {
	return &Worker{
		queue:    q,
		table:    table,
		puller:   puller,
		tracker:  tracker,
		storage:  table,
		merger:   m,
		selector: merger.NewExternalMergeSelector(),
		executor: merger.NewMergeExecutor(&table.Schema, &compression.LZ4Codec{}),
		looper:   director.NewTimedLooper(director.FOREVER, interval, make(chan error, 1)),
		log:      log.WithField("component", "worker"),
		backoff:  &backoff.Backoff{Min: 100 * time.Millisecond, Max: interval, Factor: 2},
	}
}

// Run blocks until ctx is cancelled, ticking the loop on the configured
// interval. A background goroutine translates ctx cancellation into
// looper.Quit() the way streamdal-plumber's monitor package watches its own
// shutdown context alongside a director.Looper.
func (w *Worker) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.looper.Quit()
	}()
	return w.looper.Loop(func() error {
		w.tick(ctx)
		return nil
	})
}

// Tick runs one iteration of the loop body directly, without waiting on
// the configured interval. Run calls this internally; tests call it to
// drive the loop deterministically.
func (w *Worker) Tick(ctx context.Context) {
	w.tick(ctx)
}

func (w *Worker) tick(ctx context.Context) {
	pullStart := time.Now()
	if _, err := w.puller.PullLogsToQueue(ctx, nil); err != nil {
		delay := w.backoff.Duration()
		w.log.WithError(errors.Wrap(err, "pulling logs")).
			WithField("retry_in", delay).Warn("puller pass failed, backing off")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	} else {
		w.backoff.Reset()
	}
	metrics.ObservePullLatency(time.Since(pullStart))

	if _, err := w.tracker.UpdateMutations(ctx, nil); err != nil {
		w.log.WithError(errors.Wrap(err, "updating mutations")).Warn("mutation tracker pass failed")
	}
	w.proposeMerge()
	w.runOneEntry()
	metrics.Observe(w.queue.GetStatus())
}

// proposeMerge asks the external merge selector for a candidate and, if it
// finds one the oracle currently admits, inserts it into the log. In a real
// deployment this entry would be written to the coordination service first
// so every replica sees it; here it's inserted directly since this replica
// is acting as its own leader election winner for merge proposals.
func (w *Worker) proposeMerge() {
	entry, ok := w.selector.SelectMergeCandidate(w.queue, w.table.GetActiveParts(), w.merger)
	if !ok {
		return
	}
	w.queue.Insert(entry)
	w.log.WithField("part", entry.NewPartName).Info("proposed merge")
}

// runOneEntry selects and executes at most one eligible entry per tick,
// dispatching on its type. GET_PART (replica-to-replica fetch) and
// ATTACH_PART/CLEAR_COLUMN (storage-engine operations with no network or
// ALTER-execution surface here) are logged and left for a future tick
// rather than faked, since this repository does not implement replica
// transport or an ALTER executor (spec §1 Non-goals).
func (w *Worker) runOneEntry() {
	entry, guard, ok := w.queue.SelectEntryToProcess(w.storage, w.merger)
	if !ok {
		return
	}
	defer guard.Release()

	attemptID := uuid.NewString()
	elog := w.log.WithField("entry", entry.NewPartName).WithField("type", entry.Type.String()).
		WithField("attempt", attemptID)

	switch entry.Type {
	case queue.MergeParts:
		w.queue.ProcessEntry(entry, w.executeMerge)
	case queue.MutatePart:
		w.queue.ProcessEntry(entry, w.executeMutate)
	case queue.DropRange:
		w.queue.ProcessEntry(entry, w.executeDropRange)
	case queue.GetPart, queue.AttachPart, queue.ClearColumn:
		elog.Debug("no local executor for this entry type yet, leaving queued")
	default:
		elog.Warn("unrecognized entry type")
	}
}

func (w *Worker) executeMerge(entry *queue.LogEntry) error {
	sources := w.table.GetActiveParts()
	byName := make(map[string]*storagecollab.Part, len(sources))
	for _, p := range sources {
		byName[p.DirName()] = p
	}

	parts := make([]*storagecollab.Part, 0, len(entry.PartsToMerge))
	for _, name := range entry.PartsToMerge {
		p, ok := byName[name]
		if !ok {
			return errors.Errorf("source part %s no longer present on disk", name)
		}
		parts = append(parts, p)
	}

	newInfo, err := queue.ParsePartInfo(entry.NewPartName)
	if err != nil {
		return errors.Wrap(err, "parsing merge target part name")
	}

	merged, err := w.executor.Merge(w.table.DataDir, parts, newInfo)
	if err != nil {
		return errors.Wrap(err, "executing merge")
	}

	w.table.ReplaceParts(parts, merged)
	return nil
}

func (w *Worker) executeMutate(entry *queue.LogEntry) error {
	part, err := queue.ParsePartInfo(entry.NewPartName)
	if err != nil {
		return errors.Wrap(err, "parsing mutation target part name")
	}
	desiredVersion, ok := w.queue.CanMutatePart(part)
	if !ok {
		return errors.Errorf("part %s is no longer eligible for mutation", part.Name())
	}
	commands := w.queue.GetMutationCommands(part, desiredVersion)
	w.log.WithField("part", part.Name()).WithField("commands", len(commands)).
		Debug("mutation commands resolved; in-place ALTER execution is out of scope")
	return nil
}

func (w *Worker) executeDropRange(entry *queue.LogEntry) error {
	dropped, err := queue.ParsePartInfo(entry.NewPartName)
	if err != nil {
		return errors.Wrap(err, "parsing drop range")
	}
	var toDrop []*storagecollab.Part
	for _, p := range w.table.GetActiveParts() {
		if dropped.Contains(p.Info) {
			toDrop = append(toDrop, p)
		}
	}
	w.table.ReplaceParts(toDrop, nil)
	return nil
}
