package board

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"
)

// drawnGame fills the board without either side connecting four:
//
//	O O X X O O X
//	X X O O X X O
//	O O X X O O X
//	X X O O X X O
//	O O X X O O X
//	X X O O X X O
var drawnGame = []int{
	0, 2, 2, 0, 0, 2, 2, 0, 0, 2, 2, 0,
	1, 3, 3, 1, 1, 3, 3, 1, 1, 3, 3, 1,
	4, 6, 6, 4, 4, 6, 6, 4, 4, 6, 6, 4,
	5, 5, 5, 5, 5, 5,
}

func mustBoard(t *testing.T, moves []int) *Board {
	t.Helper()
	b, err := FromMoves(moves)
	if err != nil {
		t.Fatalf("could not build board from %v: %v", moves, err)
	}
	return b
}

func TestEmptyBoard(t *testing.T) {
	is := is.New(t)
	b := New()
	is.Equal(b.Moves(), 0)
	is.Equal(b.ToMove(), PlayerOne)
	is.Equal(b.Status(), Playing)
	is.Equal(b.Key(), uint64(0))
	is.Equal(b.PossibleMoves(), bottomMask)
	for col := 0; col < Width; col++ {
		is.True(b.CanPlay(col))
		is.True(!b.IsWinningMove(col))
	}
	is.Equal(b.LastMove(), -1)
}

func TestPlayUndoRoundTrip(t *testing.T) {
	is := is.New(t)
	sequences := [][]int{
		{},
		{3},
		{3, 3, 3, 2, 4},
		{0, 0, 0, 0, 0},
		drawnGame[:30],
		drawnGame[:41],
	}
	for _, seq := range sequences {
		b := mustBoard(t, seq)
		for col := 0; col < Width; col++ {
			if !b.CanPlay(col) {
				continue
			}
			current, mask := b.Masks()
			key := b.Key()
			heights := b.Heights()

			is.NoErr(b.Play(col))
			is.Equal(b.LastMove(), col)
			is.Equal(b.Moves(), len(seq)+1)
			is.True(b.Key() != key)

			is.NoErr(b.Undo())
			c2, m2 := b.Masks()
			is.Equal(c2, current)
			is.Equal(m2, mask)
			is.Equal(b.Key(), key)
			is.Equal(b.Heights(), heights)
		}
		is.Equal(b.History(), append([]int{}, seq...))
	}
}

func TestUndoEmptyBoard(t *testing.T) {
	is := is.New(t)
	b := New()
	is.True(errors.Is(b.Undo(), ErrNothingToUndo))
}

func TestInvalidMovesDoNotChangeState(t *testing.T) {
	is := is.New(t)
	b := mustBoard(t, []int{2, 2, 2, 2, 2, 2})
	current, mask := b.Masks()

	for _, col := range []int{-1, 7, 100, 2} {
		err := b.Play(col)
		is.True(errors.Is(err, ErrInvalidMove))
		c2, m2 := b.Masks()
		is.Equal(c2, current)
		is.Equal(m2, mask)
		is.True(!b.IsWinningMove(col))
	}
	is.Equal(b.Moves(), 6)
}

func TestWinDetection(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		name    string
		moves   []int
		winning int
		notWin  int
	}
	cases := []testdata{
		{"horizontal", []int{0, 0, 1, 1, 2, 2}, 3, 4},
		{"vertical", []int{3, 0, 3, 0, 3, 0}, 3, 1},
		{"diagonal /", []int{0, 1, 1, 2, 3, 2, 2, 3, 6, 3}, 3, 4},
		{"diagonal \\", []int{6, 5, 5, 4, 3, 4, 4, 3, 0, 3}, 3, 2},
	}
	for _, c := range cases {
		b := mustBoard(t, c.moves)
		is.True(!b.HasWinner())
		is.True(b.CanWinNext())
		is.True(!b.IsWinningMove(c.notWin))
		is.True(b.IsWinningMove(c.winning)) // c.name
		mover := b.ToMove()

		is.NoErr(b.Play(c.winning))
		is.True(b.HasWinner())
		if mover == PlayerOne {
			is.Equal(b.Status(), PlayerOneWon)
		} else {
			is.Equal(b.Status(), PlayerTwoWon)
		}
		is.True(!b.IsDraw())
	}
}

func TestStackedCenterWin(t *testing.T) {
	is := is.New(t)
	// Alternating stones in one column never connect.
	b := mustBoard(t, []int{3, 3, 3, 3})
	is.True(!b.HasWinner())
	is.Equal(b.Heights()[3], 4)

	// The same player stacking four in the center wins on the fourth stone.
	b = mustBoard(t, []int{3, 0, 3, 0, 3, 0})
	is.True(b.IsWinningMove(3))
	is.NoErr(b.Play(3))
	is.True(b.HasWinner())
	is.Equal(b.Status(), PlayerOneWon)

	_, err := FromMoves([]int{3, 0, 3, 0, 3, 0, 3, 0})
	is.True(errors.Is(err, ErrGameOver))
	is.True(errors.Is(err, ErrInvalidMove))
}

func TestDrawnBoard(t *testing.T) {
	is := is.New(t)
	b := mustBoard(t, drawnGame)
	is.Equal(b.Moves(), NumCells)
	is.True(b.IsDraw())
	is.True(!b.HasWinner())
	is.Equal(b.Status(), Drawn)
	is.Equal(b.PossibleMoves(), uint64(0))
	for col := 0; col < Width; col++ {
		is.True(!b.CanPlay(col))
	}

	b = mustBoard(t, drawnGame[:41])
	is.True(!b.IsDraw())
	is.True(!b.IsWinningMove(5))
}

func TestNonLosingMoves(t *testing.T) {
	is := is.New(t)

	// Player 2 holds three in a row open at both ends.
	b := mustBoard(t, []int{6, 1, 6, 2, 5, 3})
	is.True(!b.CanWinNext())
	is.Equal(b.PossibleNonLosingMoves(), uint64(0))

	// One end is blocked, so the other end must be played.
	b = mustBoard(t, []int{0, 1, 6, 2, 6, 3})
	is.True(!b.CanWinNext())
	is.Equal(b.PossibleNonLosingMoves(), bottomMaskCol(4))

	// Player 2 threatens the second row of columns 0 and 4; playing under
	// those cells loses at once.
	b = mustBoard(t, []int{1, 2, 3, 1, 6, 2, 6, 3})
	nl := b.PossibleNonLosingMoves()
	is.Equal(nl&ColumnMask(0), uint64(0))
	is.Equal(nl&ColumnMask(4), uint64(0))
	for _, col := range []int{1, 2, 3, 5, 6} {
		is.True(nl&ColumnMask(col) != 0)
	}
}

func TestMoveScore(t *testing.T) {
	is := is.New(t)
	b, err := ParseMoves("4455")
	is.NoErr(err)
	possible := b.PossibleMoves()
	scores := make([]int, Width)
	for col := 0; col < Width; col++ {
		scores[col] = b.MoveScore(possible & ColumnMask(col))
	}
	is.Equal(scores, []int{0, 1, 2, 0, 0, 2, 1})
}

func TestKeysAndMirror(t *testing.T) {
	is := is.New(t)
	b, err := ParseMoves("1122345")
	is.NoErr(err)
	m := b.Mirror()

	is.Equal(m.Key(), b.MirroredKey())
	is.Equal(m.MirroredKey(), b.Key())
	is.Equal(m.CanonicalKey(), b.CanonicalKey())
	is.True(b.Key() != m.Key())
	is.Equal(m.MoveString(), "7766543")
	is.Equal(m.Heights(), [Width]int{0, 0, 1, 1, 1, 2, 2})

	// the mirror of a board replayed from mirrored moves is the same board
	replayed, err := ParseMoves(m.MoveString())
	is.NoErr(err)
	is.Equal(replayed.Key(), m.Key())

	// a symmetric position is its own mirror
	sym := mustBoard(t, []int{2, 3, 4, 3})
	is.Equal(sym.Key(), sym.MirroredKey())
}

func TestKeyIsUnique(t *testing.T) {
	is := is.New(t)
	// same stones, different owners
	a := mustBoard(t, []int{0, 1})
	b := mustBoard(t, []int{1, 0})
	is.True(a.Key() != b.Key())

	// transpositions share a key
	c := mustBoard(t, []int{0, 1, 2, 3})
	d := mustBoard(t, []int{2, 3, 0, 1})
	is.Equal(c.Key(), d.Key())
}

func TestFromKey(t *testing.T) {
	is := is.New(t)
	for _, seq := range [][]int{{}, {3}, {3, 3, 2, 4}, drawnGame[:17], drawnGame} {
		b := mustBoard(t, seq)
		decoded, err := FromKey(b.Key())
		is.NoErr(err)
		is.Equal(decoded.Key(), b.Key())
		is.Equal(decoded.Heights(), b.Heights())
		is.Equal(decoded.ToMove(), b.ToMove())
		c1, m1 := decoded.Masks()
		c2, m2 := b.Masks()
		is.Equal(c1, c2)
		is.Equal(m1, m2)
	}
	// a full column with the guard bit set
	_, err := FromKey(0x7f)
	is.True(err != nil)
	_, err = FromKey(1 << 60)
	is.True(err != nil)

	// one stone, owned by the player to move
	_, err = FromKey(0b10)
	is.True(err != nil)
	// two stones in column 0, both owned by the player to move
	_, err = FromKey(0b110)
	is.True(err != nil)
	// the same stones with the balance right decode fine
	b, err := FromKey(0b1)
	is.NoErr(err)
	is.Equal(b.Moves(), 1)
	b, err = FromKey(0b100)
	is.NoErr(err)
	is.Equal(b.Moves(), 2)
	is.Equal(b.Cell(0, 0), PlayerOneStone)
	is.Equal(b.Cell(0, 1), PlayerTwoStone)
}

func TestHuffmanCode(t *testing.T) {
	is := is.New(t)
	b, err := ParseMoves("22244444")
	is.NoErr(err)
	is.Equal(b.huffmanCode(false), uint32(0b010111000111011101100000))
	is.Equal(b.huffmanCode(true), uint32(0b000111011101100101110000))
	is.Equal(b.HuffmanCode(), uint32(0b000111011101100101110000))
	is.Equal(b.HuffmanCode(), b.Mirror().HuffmanCode())
}

func TestHuffmanRoundTrip(t *testing.T) {
	is := is.New(t)
	for _, seq := range [][]int{drawnGame[:12], drawnGame[12:24], drawnGame[24:36]} {
		b := mustBoard(t, seq)
		is.Equal(b.Moves(), MaxHuffmanStones)
		decoded, err := FromHuffmanCode(b.HuffmanCode(), MaxHuffmanStones)
		is.NoErr(err)
		is.Equal(decoded.CanonicalKey(), b.CanonicalKey())
		is.Equal(decoded.Moves(), MaxHuffmanStones)
		is.Equal(len(decoded.History()), 0)

		raw, err := FromHuffmanCode(b.huffmanCode(false), MaxHuffmanStones)
		is.NoErr(err)
		is.Equal(raw.Key(), b.Key())
	}
}

func TestHuffmanDecodeErrors(t *testing.T) {
	is := is.New(t)
	_, err := FromHuffmanCode(0xFFFFFFFF, MaxHuffmanStones)
	is.True(err != nil)
	// an empty board encoded as 12 stones
	_, err = FromHuffmanCode(0, MaxHuffmanStones)
	is.True(err != nil)
	_, err = FromHuffmanCode(0, 13)
	is.True(err != nil)

	b, err := FromHuffmanCode(0, 0)
	is.NoErr(err)
	is.Equal(b.Moves(), 0)
}

func TestParseMoves(t *testing.T) {
	is := is.New(t)
	b, err := ParseMoves("44 55")
	is.NoErr(err)
	is.Equal(b.MoveString(), "4455")
	is.Equal(b.History(), []int{3, 3, 4, 4})

	for _, bad := range []string{"8", "0", "4a", "1111111"} {
		_, err := ParseMoves(bad)
		is.True(errors.Is(err, ErrInvalidMove))
	}
}

func TestCellsAndDisplay(t *testing.T) {
	is := is.New(t)
	b := mustBoard(t, []int{3, 3, 0})
	is.Equal(b.Cell(3, 0), PlayerOneStone)
	is.Equal(b.Cell(3, 1), PlayerTwoStone)
	is.Equal(b.Cell(0, 0), PlayerOneStone)
	is.Equal(b.Cell(0, 1), Empty)
	is.Equal(b.Cell(9, 9), Empty)
	is.Equal(b.ToMove(), PlayerTwo)
	is.Equal(Column(b.PossibleMoves()&ColumnMask(5)), 5)
	is.Equal(Column(0), -1)

	txt := b.ToDisplayText()
	is.True(strings.Contains(txt, "|X . . X . . .|"))
	is.True(strings.Contains(txt, "|. . . O . . .|"))
	is.True(strings.Contains(txt, "player 2 to move (O)"))
}

func TestRandom(t *testing.T) {
	is := is.New(t)
	for _, stones := range []int{0, 1, 12, 30, 41} {
		b := Random(stones)
		is.Equal(b.Moves(), stones)
		is.True(!b.HasWinner())
		is.Equal(len(b.History()), stones)
	}
}
