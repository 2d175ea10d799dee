package queue

import "sort"

// PartSet is a per-partition ordered index of PartInfos (spec §3). It
// answers two questions cheaply: "is there already a stored part covering
// this range" and "which stored parts does this range cover". Callers hold
// whatever lock protects the PartSet they're using (virtual_parts,
// next_virtual_parts, or a merger's view of on-disk parts) — PartSet itself
// is not safe for concurrent use.
type PartSet struct {
	// byPartition holds each partition's parts sorted by (MinBlock, MaxBlock)
	// so getContainingPart/getPartsCoveredBy can scan in range order instead
	// of over the whole set.
	byPartition map[string][]PartInfo
}

// NewPartSet returns an empty PartSet.
func NewPartSet() *PartSet {
	return &PartSet{byPartition: make(map[string][]PartInfo)}
}

// Add inserts name, replacing any parts strictly contained by it (spec
// §3: "add(name): inserts, replacing any parts strictly contained by the
// new one").
func (ps *PartSet) Add(name PartInfo) {
	parts := ps.byPartition[name.PartitionID]
	kept := parts[:0]
	for _, p := range parts {
		if name.Contains(p) && !p.Equals(name) {
			continue // strictly contained by the new part: drop it
		}
		kept = append(kept, p)
	}
	kept = append(kept, name)
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].MinBlock != kept[j].MinBlock {
			return kept[i].MinBlock < kept[j].MinBlock
		}
		return kept[i].MaxBlock < kept[j].MaxBlock
	})
	ps.byPartition[name.PartitionID] = kept
}

// GetContainingPart returns the smallest stored part whose range contains
// info, or false if none does (spec §3).
func (ps *PartSet) GetContainingPart(info PartInfo) (PartInfo, bool) {
	var best PartInfo
	found := false
	for _, p := range ps.byPartition[info.PartitionID] {
		if p.Contains(info) {
			if !found || (p.MaxBlock-p.MinBlock) < (best.MaxBlock-best.MinBlock) {
				best = p
				found = true
			}
		}
	}
	return best, found
}

// GetPartsCoveredBy returns every stored part strictly contained in info's
// range (spec §3).
func (ps *PartSet) GetPartsCoveredBy(info PartInfo) []PartInfo {
	var out []PartInfo
	for _, p := range ps.byPartition[info.PartitionID] {
		if info.Contains(p) && !p.Equals(info) {
			out = append(out, p)
		}
	}
	return out
}

// Remove drops name from the set if present.
func (ps *PartSet) Remove(name PartInfo) {
	parts := ps.byPartition[name.PartitionID]
	for i, p := range parts {
		if p.Equals(name) {
			ps.byPartition[name.PartitionID] = append(parts[:i:i], parts[i+1:]...)
			return
		}
	}
}

// Contains reports whether name is present in the set.
func (ps *PartSet) Contains(name PartInfo) bool {
	for _, p := range ps.byPartition[name.PartitionID] {
		if p.Equals(name) {
			return true
		}
	}
	return false
}

// All returns every part currently in the set, across all partitions.
func (ps *PartSet) All() []PartInfo {
	var out []PartInfo
	for _, parts := range ps.byPartition {
		out = append(out, parts...)
	}
	return out
}

// Clone returns an independent copy: mutating the result never affects
// ps. Used when publishing next_virtual_parts as the new virtual_parts
// snapshot (spec §4.1 step 6) while next_virtual_parts keeps accumulating
// ahead of it.
func (ps *PartSet) Clone() *PartSet {
	out := NewPartSet()
	for partition, parts := range ps.byPartition {
		cp := make([]PartInfo, len(parts))
		copy(cp, parts)
		out.byPartition[partition] = cp
	}
	return out
}
