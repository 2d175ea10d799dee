package queue

import "sort"

// CanMergeParts reports whether left and right may be merged right now
// (spec §4.6). Called by an external merge selector before it proposes a
// MERGE_PARTS log entry; it never mutates queue state.
func (q *Queue) CanMergeParts(left, right PartInfo) (bool, string) {
	if left.Name() == right.Name() || left.PartitionID != right.PartitionID {
		return false, "not a same-partition pair"
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range [2]PartInfo{left, right} {
		containing, ok := q.virtualParts.GetContainingPart(p)
		if !ok || !containing.Equals(p) {
			return false, "a broader merge already covers " + p.Name()
		}
		if p.Name() == q.lastQuorumPart || p.Name() == q.inprogressQuorumPart {
			return false, "part " + p.Name() + " is a quorum part"
		}
	}

	lo, hi := left, right
	if lo.MinBlock > hi.MinBlock {
		lo, hi = hi, lo
	}
	if lo.MaxBlock+1 < hi.MinBlock {
		gapLo, gapHi := lo.MaxBlock+1, hi.MinBlock-1
		if live := q.currentInserts[left.PartitionID]; live != nil && live.AnyInRange(gapLo-1, gapHi+1) {
			return false, "a concurrent insert would land in the gap"
		}
		gap := synthGapInfo(left.PartitionID, gapLo, gapHi)
		if covered := q.nextVirtualParts.GetPartsCoveredBy(gap); len(covered) > 0 {
			return false, "parts not yet materialized fall inside the gap"
		}
	}

	leftVersion := q.currentMutationVersionLocked(left.PartitionID, left.DataVersion())
	rightVersion := q.currentMutationVersionLocked(right.PartitionID, right.DataVersion())
	if leftVersion != rightVersion {
		return false, "mixed mutation versions cannot be combined"
	}

	return true, ""
}

// CanMutatePart reports whether part is eligible for a new MUTATE_PART
// entry and, if so, the latest mutation version it should target (spec
// §4.6): the partition must have mutations, the part itself must be
// present and current in virtual_parts, and the partition's latest
// mutation version must exceed the part's own.
func (q *Queue) CanMutatePart(part PartInfo) (desiredVersion int64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	keys := q.mutationPartitionKeys[part.PartitionID]
	if len(keys) == 0 {
		return 0, false
	}

	containing, found := q.virtualParts.GetContainingPart(part)
	if !found || !containing.Equals(part) {
		return 0, false
	}

	latest := keys[len(keys)-1]
	if latest <= part.DataVersion() {
		return 0, false
	}
	return latest, true
}

// GetMutationCommands returns the ordered commands that apply to part up
// to and including desiredVersion (spec §4.6): every mutation in the
// part's partition with block number strictly greater than the part's
// own data_version and at most desiredVersion. Both "no mutations queued
// for this partition" and "desiredVersion absent from the index" are
// programming errors — canMutatePart must always be called first.
func (q *Queue) GetMutationCommands(part PartInfo, desiredVersion int64) []MutationCommand {
	q.mu.Lock()
	defer q.mu.Unlock()

	keys := q.mutationPartitionKeys[part.PartitionID]
	byVersion := q.mutationsByPartition[part.PartitionID]
	if len(keys) == 0 {
		panic(newLogicError("GetMutationCommands", "no mutations queued for partition %s", part.PartitionID))
	}

	found := false
	for _, k := range keys {
		if k == desiredVersion {
			found = true
			break
		}
	}
	if !found {
		panic(newLogicError("GetMutationCommands", "desired version %d not present in partition %s", desiredVersion, part.PartitionID))
	}

	from := part.DataVersion()
	i := sort.Search(len(keys), func(i int) bool { return keys[i] > from })
	var out []MutationCommand
	for ; i < len(keys) && keys[i] <= desiredVersion; i++ {
		if entry := byVersion[keys[i]]; entry != nil {
			out = append(out, entry.Commands...)
		}
	}
	return out
}
