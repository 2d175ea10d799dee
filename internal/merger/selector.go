package merger

import (
	"sort"
	"time"

	"github.com/harshithgowdakt/mtqueue/internal/queue"
	"github.com/harshithgowdakt/mtqueue/internal/storagecollab"
)

// ExternalMergeSelector proposes adjacent-part merge candidates and asks the
// replication queue's admissibility oracle whether each one may actually be
// queued, the way spec.md's "external merge selector" works: the selector
// proposes, the queue disposes. It never writes a part itself; it only ever
// produces a LogEntry the puller's caller inserts into the log.
type ExternalMergeSelector struct {
	MaxPartsToMerge int // default 10
	MinPartsToMerge int // default 3
}

// NewExternalMergeSelector creates a merge selector with defaults.
func NewExternalMergeSelector() *ExternalMergeSelector {
	return &ExternalMergeSelector{
		MaxPartsToMerge: 10,
		MinPartsToMerge: 3,
	}
}

// SelectMergeCandidate looks across all active parts for the best adjacent
// range to merge, consulting q.CanMergeParts on each adjacent pair in the
// range and merger's size budget before settling on one. Returns false if nothing is
// both worth merging and currently mergeable.
func (s *ExternalMergeSelector) SelectMergeCandidate(q *queue.Queue, parts []*storagecollab.Part, merger queue.Merger) (*queue.LogEntry, bool) {
	if merger != nil && merger.IsMergesCancelled() {
		return nil, false
	}

	byPartition := make(map[string][]*storagecollab.Part)
	for _, p := range parts {
		if p.State == storagecollab.PartActive {
			byPartition[p.Info.PartitionID] = append(byPartition[p.Info.PartitionID], p)
		}
	}
	for _, partList := range byPartition {
		sort.Slice(partList, func(i, j int) bool { return partList[i].Info.MinBlock < partList[j].Info.MinBlock })
	}

	budget := s.sizeBudget(merger)

	var best []*storagecollab.Part
	var bestScore float64
	for _, partList := range byPartition {
		if len(partList) < s.MinPartsToMerge {
			continue
		}
		maxLen := s.MaxPartsToMerge
		if maxLen > len(partList) {
			maxLen = len(partList)
		}
		for rangeLen := s.MinPartsToMerge; rangeLen <= maxLen; rangeLen++ {
			for start := 0; start+rangeLen <= len(partList); start++ {
				candidate := partList[start : start+rangeLen]
				if !s.withinBudget(candidate, budget) {
					continue
				}
				admissible := true
				for k := 1; k < len(candidate) && admissible; k++ {
					admissible, _ = q.CanMergeParts(candidate[k-1].Info, candidate[k].Info)
				}
				if !admissible {
					continue
				}
				score := scoreMergeRange(candidate)
				if score > bestScore {
					bestScore = score
					best = candidate
				}
			}
		}
	}
	if best == nil {
		return nil, false
	}

	infos := make([]queue.PartInfo, len(best))
	names := make([]string, len(best))
	for i, p := range best {
		infos[i] = p.Info
		names[i] = p.Info.Name()
	}
	newInfo := NewMergedPartInfo(infos)
	entry := queue.NewLogEntry(queue.MergeParts, newInfo.Name(), names, time.Now())
	return entry, true
}

// sizeBudget is the pool's current size cap, merger.MaxPartsSizeForMerge(),
// or 0 (no limit) when merger is nil or reports 0. No separately configured
// ceiling is consulted.
func (s *ExternalMergeSelector) sizeBudget(merger queue.Merger) uint64 {
	if merger == nil {
		return 0
	}
	cap := merger.MaxPartsSizeForMerge()
	if cap == 0 {
		return 0
	}
	return cap
}

func (s *ExternalMergeSelector) withinBudget(parts []*storagecollab.Part, budget uint64) bool {
	if budget == 0 {
		return true
	}
	var total uint64
	for _, p := range parts {
		total += p.SizeBytes
	}
	return total <= budget
}

// scoreMergeRange scores a merge candidate. Higher is better.
// Prefers merging many small parts over few large parts.
func scoreMergeRange(parts []*storagecollab.Part) float64 {
	if len(parts) == 0 {
		return 0
	}

	var totalSize uint64
	var maxSize uint64
	for _, p := range parts {
		size := p.SizeBytes
		if size == 0 {
			size = p.NumRows // fallback if SizeBytes not set
		}
		totalSize += size
		if size > maxSize {
			maxSize = size
		}
	}
	if maxSize == 0 {
		maxSize = 1
	}

	ratio := float64(totalSize) / float64(maxSize)
	return ratio * float64(len(parts))
}
