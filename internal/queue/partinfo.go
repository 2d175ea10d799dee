package queue

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxLevelSentinel is the level used for synthetic PartInfos built to probe
// for gaps between two parts (see canMergeParts). The source this queue is
// modeled on assumes no legitimately produced part ever reaches this level;
// ParsePartInfo asserts that assumption on every name it parses from
// coordination-service data.
const MaxLevelSentinel = 999_999_999

// PartInfo identifies a part by its replicated-name components, following
// ClickHouse's naming convention: partition_minBlock_maxBlock_level[_mutation].
// Two parts with the same partition, min/max block and level are the same
// logical part; PartInfo carries no data, only identity.
type PartInfo struct {
	PartitionID string
	MinBlock    int64
	MaxBlock    int64
	Level       int32
	// Version is the mutation version baked into the part name, or nil when
	// the part predates per-part mutation versioning. getCurrentMutationVersion
	// falls back to MinBlock when Version is unset.
	Version *int64
}

// Name renders the part name exactly as it would appear as a log entry's
// new_part_name or a directory name on disk.
func (pi PartInfo) Name() string {
	if pi.Version != nil {
		return fmt.Sprintf("%s_%d_%d_%d_%d", pi.PartitionID, pi.MinBlock, pi.MaxBlock, pi.Level, *pi.Version)
	}
	return fmt.Sprintf("%s_%d_%d_%d", pi.PartitionID, pi.MinBlock, pi.MaxBlock, pi.Level)
}

func (pi PartInfo) String() string { return pi.Name() }

// DataVersion returns the version to use for mutation-version lookups: the
// part's own Version field if the name carries one, else MinBlock (spec
// §4.2: "data_version = part_info.version ?: part_info.min_block").
func (pi PartInfo) DataVersion() int64 {
	if pi.Version != nil {
		return *pi.Version
	}
	return pi.MinBlock
}

// Contains reports whether pi's block range fully covers other's range
// within the same partition (spec §3: "Part A contains part B iff same
// partition and A's block range covers B's range").
func (pi PartInfo) Contains(other PartInfo) bool {
	return pi.PartitionID == other.PartitionID &&
		pi.MinBlock <= other.MinBlock &&
		pi.MaxBlock >= other.MaxBlock
}

// Equals reports whether all identity fields match (spec §3: "A equals B
// when all fields match").
func (pi PartInfo) Equals(other PartInfo) bool {
	return pi.PartitionID == other.PartitionID &&
		pi.MinBlock == other.MinBlock &&
		pi.MaxBlock == other.MaxBlock &&
		pi.Level == other.Level
}

// ParsePartInfo parses a part name of the form partition_min_max_level
// (optionally _version) into a PartInfo. Partition IDs may themselves
// contain underscores, so the last three or four numeric components are
// taken from the tail.
func ParsePartInfo(name string) (PartInfo, error) {
	fields := strings.Split(name, "_")
	if len(fields) < 4 {
		return PartInfo{}, fmt.Errorf("queue: invalid part name %q: need at least 4 underscore-separated fields", name)
	}

	// Try the 5-field form (with version) first; fall back to 4-field.
	if len(fields) >= 5 {
		if pi, err := parseTail(fields, true); err == nil {
			if err := assertLevel(pi.Level); err != nil {
				return PartInfo{}, err
			}
			return pi, nil
		}
	}
	pi, err := parseTail(fields, false)
	if err != nil {
		return PartInfo{}, fmt.Errorf("queue: invalid part name %q: %w", name, err)
	}
	if err := assertLevel(pi.Level); err != nil {
		return PartInfo{}, err
	}
	return pi, nil
}

func parseTail(fields []string, withVersion bool) (PartInfo, error) {
	n := len(fields)
	tailLen := 3
	if withVersion {
		tailLen = 4
	}
	if n < tailLen+1 {
		return PartInfo{}, fmt.Errorf("not enough fields")
	}
	tail := fields[n-tailLen:]
	partition := strings.Join(fields[:n-tailLen], "_")

	minBlock, err := strconv.ParseInt(tail[0], 10, 64)
	if err != nil {
		return PartInfo{}, fmt.Errorf("min_block: %w", err)
	}
	maxBlock, err := strconv.ParseInt(tail[1], 10, 64)
	if err != nil {
		return PartInfo{}, fmt.Errorf("max_block: %w", err)
	}
	level, err := strconv.ParseInt(tail[2], 10, 32)
	if err != nil {
		return PartInfo{}, fmt.Errorf("level: %w", err)
	}
	if minBlock > maxBlock {
		return PartInfo{}, fmt.Errorf("min_block %d > max_block %d", minBlock, maxBlock)
	}

	pi := PartInfo{
		PartitionID: partition,
		MinBlock:    minBlock,
		MaxBlock:    maxBlock,
		Level:       int32(level),
	}
	if withVersion {
		version, err := strconv.ParseInt(tail[3], 10, 64)
		if err != nil {
			return PartInfo{}, fmt.Errorf("version: %w", err)
		}
		pi.Version = &version
	}
	return pi, nil
}

func assertLevel(level int32) error {
	if int64(level) >= MaxLevelSentinel {
		panic(newLogicError("ParsePartInfo", "level %d reached the gap-probe sentinel %d; a real part must never do this", level, MaxLevelSentinel))
	}
	return nil
}

// synthGapInfo builds the synthetic PartInfo spanning the open interval
// (left.MaxBlock, right.MinBlock) used by canMergeParts to probe for parts
// that would fall between two merge candidates. Its Level is the sentinel
// precisely because it must never match (Contains/Equals against) a real
// stored part.
func synthGapInfo(partition string, minBlock, maxBlock int64) PartInfo {
	return PartInfo{
		PartitionID: partition,
		MinBlock:    minBlock,
		MaxBlock:    maxBlock,
		Level:       MaxLevelSentinel,
	}
}
