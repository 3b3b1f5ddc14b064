package solver

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/connect4/board"
)

func TestTableCapacityIsPrime(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(0)
	is.True(tt.Capacity() >= MinTableSize)
	is.True(isPrime(tt.Capacity()))

	tt.Resize(1 << 20)
	is.True(tt.Capacity() >= 1<<20)
	is.True(isPrime(tt.Capacity()))

	is.Equal(nextPrime(131072), 131101)
	is.Equal(prevPrime(131100), 131071)
}

func TestTTableEntry(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(MinTableSize)
	key := uint64(0x1_2345_6789)

	_, _, ok := tt.Get(key)
	is.True(!ok)

	tt.Put(key, -7, BoundLower)
	score, bound, ok := tt.Get(key)
	is.True(ok)
	is.Equal(score, -7)
	is.Equal(bound, BoundLower)

	tt.Put(key, 3, BoundExact)
	score, bound, ok = tt.Get(key)
	is.True(ok)
	is.Equal(score, 3)
	is.Equal(bound, BoundExact)

	// a key sharing the slot is not mistaken for the stored one
	other := key + uint64(tt.Capacity())
	_, _, ok = tt.Get(other)
	is.True(!ok)
	st := tt.Stats()
	is.Equal(st.Collisions, uint64(1))
	is.Equal(st.Lookups, uint64(4))
	is.Equal(st.Hits, uint64(2))
	is.Equal(st.Stores, uint64(2))

	// stores always replace
	tt.Put(other, 18, BoundUpper)
	_, _, ok = tt.Get(key)
	is.True(!ok)
	score, bound, ok = tt.Get(other)
	is.True(ok)
	is.Equal(score, 18)
	is.Equal(bound, BoundUpper)

	tt.Reset()
	_, _, ok = tt.Get(other)
	is.True(!ok)
	is.Equal(tt.Stats().Stores, uint64(0))
}

func TestValueEncoding(t *testing.T) {
	is := is.New(t)
	is.Equal(encodeValue(board.MinScore, BoundUpper), uint8(1))
	is.Equal(encodeValue(board.MaxScore, BoundUpper), uint8(37))
	is.Equal(encodeValue(0, BoundLower), uint8(56))
	is.Equal(encodeValue(board.MaxScore, BoundExact), uint8(111))
	for _, bound := range []Bound{BoundUpper, BoundLower, BoundExact} {
		for score := board.MinScore; score <= board.MaxScore; score++ {
			v := encodeValue(score, bound)
			is.True(v != 0)
			s, b := decodeValue(v)
			is.Equal(s, score)
			is.Equal(b, bound)
		}
	}
}

func TestPutOutOfRangePanics(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(MinTableSize)
	defer func() {
		is.True(recover() != nil)
	}()
	tt.Put(1, board.MaxScore+1, BoundExact)
}

func TestSizeForMemory(t *testing.T) {
	is := is.New(t)
	c := SizeForMemory(0)
	is.True(c >= MinTableSize)
	is.True(isPrime(c))

	c = SizeForMemory(0.01)
	is.True(c >= MinTableSize)
	is.True(c <= MaxTableSize)
	is.True(isPrime(c))
}
