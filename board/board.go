// Package board implements a bit-packed Connect Four position.
//
// The 7x6 grid is stored in the bits of a uint64, one column at a time,
// with an extra guard bit on top of every column:
//
//	  6 13 20 27 34 41 48
//	 ---------------------
//	| 5 12 19 26 33 40 47 |
//	| 4 11 18 25 32 39 46 |
//	| 3 10 17 24 31 38 45 |
//	| 2  9 16 23 30 37 44 |
//	| 1  8 15 22 29 36 43 |
//	| 0  7 14 21 28 35 42 |
//	 ---------------------
//
// A Board keeps two of these masks: every occupied cell, and the cells of the
// player whose turn it is.
package board

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

const (
	// Width is the number of columns.
	Width = 7
	// Height is the number of rows.
	Height = 6
	// NumCells is the number of playable cells.
	NumCells = Width * Height

	// MinScore is the lowest score of any position: losing to the
	// opponent's fourth stone.
	MinScore = -(NumCells)/2 + 3
	// MaxScore is the highest score of any position: winning with our
	// fourth stone.
	MaxScore = (NumCells+1)/2 - 3
)

const bottomMask uint64 = 1 | 1<<7 | 1<<14 | 1<<21 | 1<<28 | 1<<35 | 1<<42
const fullMask uint64 = bottomMask * (1<<Height - 1)

var (
	ErrInvalidMove   = errors.New("invalid move")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrGameOver      = fmt.Errorf("%w: the game is already over", ErrInvalidMove)
)

// Player identifies one of the two sides. PlayerOne always moves first.
type Player int

const (
	PlayerOne Player = iota
	PlayerTwo
)

func (p Player) String() string {
	if p == PlayerOne {
		return "player 1"
	}
	return "player 2"
}

// Other returns the opposing player.
func (p Player) Other() Player {
	return 1 - p
}

// Board is a Connect Four position. The zero value is an empty board.
type Board struct {
	// cells of the player to move
	current uint64
	// all occupied cells
	mask uint64

	heights [Width]int8
	history [NumCells]int8
	// number of entries in history. Boards decoded from a book code have
	// stones but no history.
	nhistory int
}

// New returns an empty board.
func New() *Board {
	return &Board{}
}

// FromMoves builds a board from a sequence of 0-indexed columns. A sequence
// containing an illegal column, or continuing after one side has already
// connected four, is rejected.
func FromMoves(moves []int) (*Board, error) {
	b := New()
	for i, col := range moves {
		if b.HasWinner() {
			return nil, fmt.Errorf("%w (move %d)", ErrGameOver, i+1)
		}
		if err := b.Play(col); err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
	}
	return b, nil
}

// ParseMoves builds a board from a string of 1-indexed column digits, such
// as "4453". This is the notation used by the standard solver test files.
// Whitespace is ignored.
func ParseMoves(s string) (*Board, error) {
	moves := make([]int, 0, len(s))
	for i, c := range s {
		switch {
		case c == ' ' || c == '\t':
			continue
		case c >= '1' && c <= '0'+Width:
			moves = append(moves, int(c-'1'))
		default:
			return nil, fmt.Errorf("%w: could not parse %q at position %d", ErrInvalidMove, c, i)
		}
	}
	return FromMoves(moves)
}

// FromKey rebuilds a board from the value returned by Key. Within each
// column the key holds current + mask, so a column of height h spans
// [2^h - 1, 2^(h+1) - 2] and the height can be read back from its top bit.
// Keys whose stone counts cannot come from alternating moves are rejected.
// The rebuilt board has no history.
func FromKey(key uint64) (*Board, error) {
	b := New()
	for col := 0; col < Width; col++ {
		v := (key >> (col * (Height + 1))) & (1<<(Height+1) - 1)
		h := bits.Len64(v+1) - 1
		if h > Height {
			return nil, fmt.Errorf("key %#x overfills column %d", key, col)
		}
		colMask := uint64(1)<<h - 1
		b.mask |= colMask << (col * (Height + 1))
		b.current |= (v - colMask) << (col * (Height + 1))
		b.heights[col] = int8(h)
	}
	if key>>(Width*(Height+1)) != 0 || b.Key() != key {
		return nil, fmt.Errorf("%#x is not a position key", key)
	}
	// the player to move has placed the smaller half of the stones
	if bits.OnesCount64(b.current) != b.Moves()/2 {
		return nil, fmt.Errorf("key %#x has an impossible stone balance", key)
	}
	return b, nil
}

// ColumnMask returns the playable cells of a column.
func ColumnMask(col int) uint64 {
	return (1<<Height - 1) << (col * (Height + 1))
}

func topMask(col int) uint64 {
	return 1 << (Height - 1 + col*(Height+1))
}

func bottomMaskCol(col int) uint64 {
	return 1 << (col * (Height + 1))
}

// Column returns the column of a single-column move bitmap, or -1.
func Column(move uint64) int {
	for col := 0; col < Width; col++ {
		if move&ColumnMask(col) != 0 {
			return col
		}
	}
	return -1
}

// Copy returns an independent copy of the board.
func (b *Board) Copy() *Board {
	c := *b
	return &c
}

// Moves returns the number of stones on the board.
func (b *Board) Moves() int {
	return bits.OnesCount64(b.mask)
}

// CanPlay returns whether col is on the board and not full.
func (b *Board) CanPlay(col int) bool {
	if col < 0 || col >= Width {
		return false
	}
	return b.mask&topMask(col) == 0
}

// Play drops a stone for the player to move into col.
func (b *Board) Play(col int) error {
	if !b.CanPlay(col) {
		if col < 0 || col >= Width {
			return fmt.Errorf("%w: column %d is out of range", ErrInvalidMove, col)
		}
		return fmt.Errorf("%w: column %d is full", ErrInvalidMove, col)
	}
	move := (b.mask + bottomMaskCol(col)) & ColumnMask(col)
	// the opponent becomes the player to move
	b.current ^= b.mask
	b.mask |= move
	b.heights[col]++
	b.history[b.nhistory] = int8(col)
	b.nhistory++
	return nil
}

// Undo takes back the last move played with Play.
func (b *Board) Undo() error {
	if b.nhistory == 0 {
		return ErrNothingToUndo
	}
	b.nhistory--
	col := int(b.history[b.nhistory])
	b.heights[col]--
	b.mask ^= 1 << (col*(Height+1) + int(b.heights[col]))
	b.current ^= b.mask
	return nil
}

// LastMove returns the column of the last move, or -1.
func (b *Board) LastMove() int {
	if b.nhistory == 0 {
		return -1
	}
	return int(b.history[b.nhistory-1])
}

// IsWinningMove returns whether playing col connects four for the player
// to move.
func (b *Board) IsWinningMove(col int) bool {
	if !b.CanPlay(col) {
		return false
	}
	pos := b.current | ((b.mask + bottomMaskCol(col)) & ColumnMask(col))
	return alignment(pos)
}

// CanWinNext returns whether the player to move has any winning move.
func (b *Board) CanWinNext() bool {
	return winningPositions(b.current, b.mask)&b.PossibleMoves() != 0
}

// HasWinner returns whether the player who moved last has four in a row.
func (b *Board) HasWinner() bool {
	return alignment(b.current ^ b.mask)
}

// IsDraw returns whether the board is full without a winner.
func (b *Board) IsDraw() bool {
	return b.mask == fullMask && !b.HasWinner()
}

// PossibleMoves returns a bitmap with the lowest free cell of every
// column that is not full.
func (b *Board) PossibleMoves() uint64 {
	return (b.mask + bottomMask) & fullMask
}

// PossibleNonLosingMoves returns the bitmap of moves that do not hand the
// opponent an immediate win. It is zero when every move loses, which
// happens when the opponent has two threats that need blocking at once.
// It should only be called when the player to move cannot win immediately.
func (b *Board) PossibleNonLosingMoves() uint64 {
	possible := b.PossibleMoves()
	opponentWin := winningPositions(b.current^b.mask, b.mask)
	forced := possible & opponentWin
	if forced != 0 {
		if forced&(forced-1) != 0 {
			return 0
		}
		possible = forced
	}
	// never play directly below an opponent threat
	return possible &^ (opponentWin >> 1)
}

// MoveScore counts the open cells that would complete four for the player
// to move once move (a single-cell bitmap) is played.
func (b *Board) MoveScore(move uint64) int {
	return bits.OnesCount64(winningPositions(b.current|move, b.mask))
}

// Key returns current + mask, which identifies the position uniquely.
func (b *Board) Key() uint64 {
	return b.current + b.mask
}

// MirroredKey returns the key of the board reflected left to right.
func (b *Board) MirroredKey() uint64 {
	return mirrorBits(b.Key())
}

// CanonicalKey returns the smaller of Key and MirroredKey, so that a
// position and its reflection share a key.
func (b *Board) CanonicalKey() uint64 {
	k := b.Key()
	if m := mirrorBits(k); m < k {
		return m
	}
	return k
}

// Mirror returns a copy of the board reflected left to right.
func (b *Board) Mirror() *Board {
	m := &Board{
		current:  mirrorBits(b.current),
		mask:     mirrorBits(b.mask),
		nhistory: b.nhistory,
	}
	for col := 0; col < Width; col++ {
		m.heights[Width-1-col] = b.heights[col]
	}
	for i := 0; i < b.nhistory; i++ {
		m.history[i] = Width - 1 - b.history[i]
	}
	return m
}

// Heights returns the number of stones in every column.
func (b *Board) Heights() [Width]int {
	var h [Width]int
	for i := range h {
		h[i] = int(b.heights[i])
	}
	return h
}

// History returns the 0-indexed columns played so far. Boards decoded from
// a book code have no history.
func (b *Board) History() []int {
	h := make([]int, b.nhistory)
	for i := range h {
		h[i] = int(b.history[i])
	}
	return h
}

// MoveString returns the history in 1-indexed column notation.
func (b *Board) MoveString() string {
	var sb strings.Builder
	for i := 0; i < b.nhistory; i++ {
		sb.WriteByte(byte('1' + b.history[i]))
	}
	return sb.String()
}

// ToMove returns the player whose turn it is.
func (b *Board) ToMove() Player {
	return Player(b.Moves() % 2)
}

// Masks returns the raw bitmaps: the player to move's cells and all
// occupied cells.
func (b *Board) Masks() (current, mask uint64) {
	return b.current, b.mask
}

// alignment returns whether pos contains four in a row in any direction.
func alignment(pos uint64) bool {
	// horizontal
	m := pos & (pos >> (Height + 1))
	if m&(m>>(2*(Height+1))) != 0 {
		return true
	}
	// diagonal /
	m = pos & (pos >> (Height + 2))
	if m&(m>>(2*(Height+2))) != 0 {
		return true
	}
	// diagonal \
	m = pos & (pos >> Height)
	if m&(m>>(2*Height)) != 0 {
		return true
	}
	// vertical
	m = pos & (pos >> 1)
	return m&(m>>2) != 0
}

// winningPositions returns the empty cells that would complete four for
// the stones in pos.
func winningPositions(pos, mask uint64) uint64 {
	// vertical: the cell on top of three stacked stones
	r := (pos << 1) & (pos << 2) & (pos << 3)

	for _, shift := range [3]uint{Height + 1, Height, Height + 2} {
		p := (pos << shift) & (pos << (2 * shift))
		r |= p & (pos << (3 * shift))
		r |= p & (pos >> shift)
		p = (pos >> shift) & (pos >> (2 * shift))
		r |= p & (pos >> (3 * shift))
		r |= p & (pos << shift)
	}
	return r & (fullMask ^ mask)
}

func mirrorBits(x uint64) uint64 {
	var m uint64
	const colBits = 1<<(Height+1) - 1
	for col := 0; col < Width; col++ {
		m |= ((x >> (col * (Height + 1))) & colBits) << ((Width - 1 - col) * (Height + 1))
	}
	return m
}
