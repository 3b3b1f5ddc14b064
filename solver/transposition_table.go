package solver

import (
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/board"
)

// Bound says how a stored score relates to the true score of a position.
type Bound uint8

const (
	// BoundUpper means the true score is at most the stored score.
	BoundUpper Bound = iota + 1
	// BoundLower means the true score is at least the stored score.
	BoundLower
	// BoundExact means the stored score is the true score.
	BoundExact
)

func (b Bound) String() string {
	switch b {
	case BoundUpper:
		return "upper"
	case BoundLower:
		return "lower"
	case BoundExact:
		return "exact"
	}
	return "none"
}

// 4-byte partial key + 1-byte value
const entrySize = 5

const (
	// MinTableSize is the smallest capacity for which the slot index and
	// the 32-bit partial key still identify a key (keys use 49 bits).
	MinTableSize = 1<<17 + 1
	// MaxTableSize caps tables sized from system memory.
	MaxTableSize = 1 << 30
	// DefaultTableSize is a prime close to 8M entries, about 40 MB.
	DefaultTableSize = 1<<23 + 9
)

// Scores span this many values; each bound kind gets its own range of
// byte values, and 0 marks an empty slot.
const scoreSpan = board.MaxScore - board.MinScore + 1

// TranspositionTable caches bounded scores of positions by key.
//
// Slots are addressed by key modulo a prime capacity. Each slot keeps only
// the low 32 bits of its key; since the capacity is larger than 2^17, the
// slot index and these 32 bits together determine the 49-bit key, so a
// lookup never returns the entry of another position. A store always
// overwrites the slot.
//
// The table is not safe for concurrent use. Use one table per solve in
// flight.
type TranspositionTable struct {
	keys   []uint32
	values []uint8

	lookups    uint64
	hits       uint64
	stores     uint64
	collisions uint64
}

// TableStats are the counters of a TranspositionTable.
type TableStats struct {
	Capacity   int
	Lookups    uint64
	Hits       uint64
	Stores     uint64
	Collisions uint64
}

// GlobalTranspositionTable is a singleton instance. Tables take up a good
// amount of memory, so solvers that run one after the other share this one
// instead of allocating their own.
var GlobalTranspositionTable = &TranspositionTable{}

// NewTranspositionTable returns a table with at least the given capacity.
// The capacity is rounded up to a prime no smaller than MinTableSize.
func NewTranspositionTable(capacity int) *TranspositionTable {
	t := &TranspositionTable{}
	t.Resize(capacity)
	return t
}

// Resize reallocates the table for a new capacity, dropping every entry.
func (t *TranspositionTable) Resize(capacity int) {
	if capacity < MinTableSize {
		capacity = MinTableSize
	}
	capacity = nextPrime(capacity)
	reset := false
	if len(t.keys) == capacity {
		reset = true
		clear(t.keys)
		clear(t.values)
	} else {
		t.keys = make([]uint32, capacity)
		t.values = make([]uint8, capacity)
	}
	log.Debug().Int("num-elems", capacity).
		Int("estimated-total-memory-bytes", capacity*entrySize).
		Bool("reset", reset).
		Msg("transposition-table-size")
	t.resetCounters()
}

// Reset empties the table and zeroes the counters, keeping its capacity.
func (t *TranspositionTable) Reset() {
	clear(t.keys)
	clear(t.values)
	t.resetCounters()
}

func (t *TranspositionTable) resetCounters() {
	t.lookups = 0
	t.hits = 0
	t.stores = 0
	t.collisions = 0
}

// Capacity returns the number of slots, 0 for a table never sized.
func (t *TranspositionTable) Capacity() int {
	return len(t.keys)
}

// Get returns the score and bound stored for key.
func (t *TranspositionTable) Get(key uint64) (int, Bound, bool) {
	t.lookups++
	idx := key % uint64(len(t.keys))
	v := t.values[idx]
	if v == 0 {
		return 0, 0, false
	}
	if t.keys[idx] != uint32(key) {
		// another position lives in this slot
		t.collisions++
		return 0, 0, false
	}
	t.hits++
	score, bound := decodeValue(v)
	return score, bound, true
}

// Put stores a score and its bound for key, replacing whatever was in the
// slot.
func (t *TranspositionTable) Put(key uint64, score int, bound Bound) {
	if score < board.MinScore || score > board.MaxScore {
		panic("transposition table score out of range")
	}
	idx := key % uint64(len(t.keys))
	t.keys[idx] = uint32(key)
	t.values[idx] = encodeValue(score, bound)
	t.stores++
}

func (t *TranspositionTable) Stats() TableStats {
	return TableStats{
		Capacity:   len(t.keys),
		Lookups:    t.lookups,
		Hits:       t.hits,
		Stores:     t.stores,
		Collisions: t.collisions,
	}
}

func encodeValue(score int, bound Bound) uint8 {
	return uint8(int(bound-1)*scoreSpan + score - board.MinScore + 1)
}

func decodeValue(v uint8) (int, Bound) {
	i := int(v) - 1
	return i%scoreSpan + board.MinScore, Bound(i/scoreSpan + 1)
}

// SizeForMemory returns the largest prime capacity whose table fits in the
// given fraction of system memory, clamped to [MinTableSize, MaxTableSize].
func SizeForMemory(fraction float64) int {
	totalMem := memory.TotalMemory()
	desired := int(fraction * float64(totalMem) / entrySize)
	capacity := min(max(desired, MinTableSize), MaxTableSize)
	capacity = prevPrime(capacity)
	if capacity < MinTableSize {
		capacity = nextPrime(MinTableSize)
	}
	log.Debug().Uint64("total-system-memory-bytes", totalMem).
		Float64("fraction", fraction).
		Int("num-elems", capacity).
		Msg("transposition-table-size-for-memory")
	return capacity
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

func nextPrime(n int) int {
	for !isPrime(n) {
		n++
	}
	return n
}

func prevPrime(n int) int {
	for n > 2 && !isPrime(n) {
		n--
	}
	return n
}
