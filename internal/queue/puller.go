package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	logPrefix        = "log-"
	queuePrefix      = "queue-"
	blockPrefix      = "block-"
	abandonableLock  = "abandonable_lock-"
	logBatchSize     = 100
	seqWidth         = 10
)

// wireLogEntry is the JSON body stored under Z/log/log-<seq> and read
// back verbatim into R/queue/queue-<seq> (spec §6). The coordination
// service only needs to round-trip this; it never interprets it.
type wireLogEntry struct {
	Type          string    `json:"type"`
	NewPartName   string    `json:"new_part_name"`
	PartsToMerge  []string  `json:"parts_to_merge,omitempty"`
	CreateTime    time.Time `json:"create_time"`
	ClearColumnOf string    `json:"clear_column_of,omitempty"`
}

func entryTypeFromWire(s string) (EntryType, error) {
	switch s {
	case "GET_PART":
		return GetPart, nil
	case "MERGE_PARTS":
		return MergeParts, nil
	case "MUTATE_PART":
		return MutatePart, nil
	case "DROP_RANGE":
		return DropRange, nil
	case "CLEAR_COLUMN":
		return ClearColumn, nil
	case "ATTACH_PART":
		return AttachPart, nil
	default:
		return 0, fmt.Errorf("queue: unknown log entry type %q", s)
	}
}

// LogPuller drives §4.1's pullLogsToQueue protocol against a single
// (table, replica) pair's paths in the coordination service.
type LogPuller struct {
	client Client
	queue  *Queue
	tracker *MutationTracker

	zPath string // /tables/<table>
	rPath string // /tables/<table>/replicas/<replica>

	mu sync.Mutex // puller_mutex: serializes pulls

	log *logrus.Entry
}

// NewLogPuller builds a puller for one replica. tracker is refreshed
// before log entries are copied, per §4.1 step 2's ordering guarantee.
func NewLogPuller(client Client, q *Queue, tracker *MutationTracker, zPath, rPath string) *LogPuller {
	return &LogPuller{
		client:  client,
		queue:   q,
		tracker: tracker,
		zPath:   zPath,
		rPath:   rPath,
		log:     logrus.WithFields(logrus.Fields{"pkg": "puller", "replica": rPath}),
	}
}

// PullLogsToQueue runs one full pull cycle (spec §4.1). watch, if
// non-nil, is armed against /log so the caller's background loop wakes
// up on the next log write.
func (p *LogPuller) PullLogsToQueue(ctx context.Context, watch chan<- struct{}) (didWork bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pointer, err := p.readOrSeedLogPointer(ctx)
	if err != nil {
		return false, fmt.Errorf("queue: reading log pointer: %w", err)
	}

	children, err := p.client.GetChildren(ctx, p.zPath+"/log", watch)
	if err != nil {
		return false, fmt.Errorf("queue: listing log children: %w", err)
	}

	if _, err := p.tracker.UpdateMutations(ctx, nil); err != nil {
		p.log.WithError(err).Warn("mutation refresh failed; continuing with stale mutation view")
	}

	sort.Strings(children)
	threshold := logPrefix + padSeq(pointer)
	var pending []string
	for _, c := range children {
		if c >= threshold {
			pending = append(pending, c)
		}
	}

	var lastIndex = pointer - 1
	for len(pending) > 0 {
		batch := pending
		if len(batch) > logBatchSize {
			batch = pending[:logBatchSize]
		}
		pending = pending[len(batch):]

		bodies, err := p.fetchBodies(ctx, batch)
		if err != nil {
			return didWork, fmt.Errorf("queue: fetching log entry bodies: %w", err)
		}

		idx, err := p.commitBatch(ctx, batch, bodies)
		if err != nil {
			return didWork, fmt.Errorf("queue: committing log batch: %w", err)
		}
		lastIndex = idx
		didWork = true
	}

	if err := p.refreshInsertsAndQuorum(ctx, children, lastIndex); err != nil {
		return didWork, fmt.Errorf("queue: refreshing inserts/quorum: %w", err)
	}

	return didWork, nil
}

func (p *LogPuller) readOrSeedLogPointer(ctx context.Context) (int64, error) {
	data, _, ok, err := p.client.TryGet(ctx, p.rPath+"/log_pointer")
	if err != nil {
		return 0, err
	}
	if ok {
		return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	}

	children, err := p.client.GetChildren(ctx, p.zPath+"/log", nil)
	if err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return 0, nil
	}
	sort.Strings(children)
	return parseSeq(children[0], logPrefix)
}

func (p *LogPuller) fetchBodies(ctx context.Context, names []string) (map[string][]byte, error) {
	results := make(map[string][]byte, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	errs := make(chan error, len(names))

	for _, name := range names {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, _, err := p.client.Get(ctx, p.zPath+"/log/"+name)
			if err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				return
			}
			mu.Lock()
			results[name] = data
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		return nil, e
	}
	return results, nil
}

// commitBatch submits the persistent-sequential creates plus the
// log_pointer (and, if it decreased, min_unprocessed_insert_time) advance
// as a single multi-write, then stamps and inserts each entry under the
// queue mutex (spec §4.1 steps 4-5).
func (p *LogPuller) commitBatch(ctx context.Context, names []string, bodies map[string][]byte) (lastIndex int64, err error) {
	type parsed struct {
		name  string
		index int64
		wire  wireLogEntry
	}
	parsedEntries := make([]parsed, 0, len(names))
	for _, name := range names {
		idx, err := parseSeq(name, logPrefix)
		if err != nil {
			return 0, fmt.Errorf("unknown log node %q: %w", name, err)
		}
		var w wireLogEntry
		if err := json.Unmarshal(bodies[name], &w); err != nil {
			return 0, fmt.Errorf("decoding %s: %w", name, err)
		}
		parsedEntries = append(parsedEntries, parsed{name: name, index: idx, wire: w})
		if idx > lastIndex {
			lastIndex = idx
		}
	}

	ops := make([]Op, 0, len(parsedEntries)+2)
	for _, pe := range parsedEntries {
		ops = append(ops, Op{Kind: OpCreate, Path: p.rPath + "/queue/" + queuePrefix, Data: bodies[pe.name], Sequence: true})
	}
	ops = append(ops, Op{Kind: OpSet, Path: p.rPath + "/log_pointer", Data: []byte(padSeq(lastIndex + 1))})

	var newMinHint time.Time
	var hintDecreased bool
	for _, pe := range parsedEntries {
		if pe.wire.Type == "GET_PART" {
			if newMinHint.IsZero() || pe.wire.CreateTime.Before(newMinHint) {
				newMinHint = pe.wire.CreateTime
			}
		}
	}
	if !newMinHint.IsZero() {
		if cur, _, ok, _ := p.client.TryGet(ctx, p.rPath+"/min_unprocessed_insert_time"); ok {
			if curUnix, err := strconv.ParseInt(strings.TrimSpace(string(cur)), 10, 64); err == nil {
				if newMinHint.Unix() < curUnix {
					hintDecreased = true
				}
			}
		} else {
			hintDecreased = true
		}
	}
	if hintDecreased {
		ops = append(ops, Op{Kind: OpSet, Path: p.rPath + "/min_unprocessed_insert_time", Data: []byte(strconv.FormatInt(newMinHint.Unix(), 10))})
	}

	results, err := p.client.Multi(ctx, ops)
	if err != nil {
		return 0, err
	}

	for i, pe := range parsedEntries {
		znodeName, err := lastPathComponent(results[i].Path)
		if err != nil {
			fatalHook("stamping log entry %s failed after commit: %v", pe.name, err)
			return 0, err
		}
		entry := NewLogEntry(mustEntryType(pe.wire.Type), pe.wire.NewPartName, pe.wire.PartsToMerge, pe.wire.CreateTime)
		entry.ZnodeName = znodeName
		entry.ClearColumnOf = pe.wire.ClearColumnOf
		p.queue.Insert(entry)
	}

	p.queue.mu.Lock()
	p.queue.lastQueueUpdate = time.Now()
	p.queue.mu.Unlock()

	return lastIndex, nil
}

// refreshInsertsAndQuorum performs §4.1 step 6: refresh current_inserts
// from /temp abandonable locks, refresh quorum fields, fold any
// not-yet-copied log children's new_part_name into next_virtual_parts,
// then publish virtual_parts <- next_virtual_parts.
func (p *LogPuller) refreshInsertsAndQuorum(ctx context.Context, logChildren []string, lastCopiedIndex int64) error {
	tempChildren, err := p.client.GetChildren(ctx, p.zPath+"/temp", nil)
	if err != nil {
		p.log.WithError(err).Warn("listing /temp failed; current_inserts view may be stale")
		tempChildren = nil
	}

	current := make(map[string]*sortedInt64Set)
	for _, lockName := range tempChildren {
		if !strings.HasPrefix(lockName, abandonableLock) {
			continue
		}
		data, _, ok, err := p.client.TryGet(ctx, p.zPath+"/temp/"+lockName)
		if err != nil || !ok {
			continue
		}
		partition, block, ok := parseBlockReference(string(data))
		if !ok {
			continue
		}
		if current[partition] == nil {
			current[partition] = &sortedInt64Set{}
		}
		current[partition].Add(block)
	}

	var lastQuorum, inprogressQuorum string
	if data, _, ok, _ := p.client.TryGet(ctx, p.zPath+"/quorum/last_part"); ok {
		lastQuorum = strings.TrimSpace(string(data))
	}
	if data, _, ok, _ := p.client.TryGet(ctx, p.zPath+"/quorum/status"); ok {
		inprogressQuorum = strings.TrimSpace(string(data))
	}

	next := NewPartSet()
	for _, name := range logChildren {
		idx, err := parseSeq(name, logPrefix)
		if err != nil || idx <= lastCopiedIndex {
			continue
		}
		data, _, err := p.client.Get(ctx, p.zPath+"/log/"+name)
		if err != nil {
			continue
		}
		var w wireLogEntry
		if json.Unmarshal(data, &w) != nil {
			continue
		}
		if info, err := ParsePartInfo(w.NewPartName); err == nil {
			next.Add(info)
		}
	}

	p.queue.mu.Lock()
	p.queue.currentInserts = current
	p.queue.lastQuorumPart = lastQuorum
	p.queue.inprogressQuorumPart = inprogressQuorum
	for _, part := range next.All() {
		p.queue.nextVirtualParts.Add(part)
	}
	// Publish: virtual_parts becomes a frozen snapshot of
	// next_virtual_parts. next_virtual_parts itself keeps accumulating
	// (insert() adds to it directly) so it always holds virtual_parts plus
	// anything inserted since the last publish.
	p.queue.virtualParts = p.queue.nextVirtualParts.Clone()
	p.queue.mu.Unlock()

	return nil
}

func padSeq(n int64) string {
	return fmt.Sprintf("%0*d", seqWidth, n)
}

func parseSeq(name, prefix string) (int64, error) {
	if !strings.HasPrefix(name, prefix) {
		return 0, fmt.Errorf("name %q missing prefix %q", name, prefix)
	}
	return strconv.ParseInt(name[len(prefix):], 10, 64)
}

func lastPathComponent(path string) (string, error) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 || i == len(path)-1 {
		return "", fmt.Errorf("malformed create response path %q", path)
	}
	return path[i+1:], nil
}

func mustEntryType(s string) EntryType {
	t, err := entryTypeFromWire(s)
	if err != nil {
		panic(newLogicError("mustEntryType", "%v", err))
	}
	return t
}

// parseBlockReference extracts (partition, block_number) from an
// abandonable lock's body, which holds the block_numbers znode path it
// reserves: ".../block_numbers/<partition>/block-<n>".
func parseBlockReference(body string) (partition string, block int64, ok bool) {
	parts := strings.Split(strings.TrimSpace(body), "/")
	if len(parts) < 2 {
		return "", 0, false
	}
	last := parts[len(parts)-1]
	if !strings.HasPrefix(last, blockPrefix) {
		return "", 0, false
	}
	n, err := strconv.ParseInt(last[len(blockPrefix):], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return parts[len(parts)-2], n, true
}
