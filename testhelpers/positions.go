// Package testhelpers holds positions and configuration shared by the tests
// of several packages.
package testhelpers

import (
	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/config"
)

var DefaultConfig = config.DefaultConfig()

// DrawnGame fills the whole grid without either side connecting four.
var DrawnGame = []int{
	0, 2, 2, 0, 0, 2, 2, 0, 0, 2, 2, 0,
	1, 3, 3, 1, 1, 3, 3, 1, 1, 3, 3, 1,
	4, 6, 6, 4, 4, 6, 6, 4, 4, 6, 6, 4,
	5, 5, 5, 5, 5, 5,
}

// Known positions, in 1-indexed column notation, with their scores for the
// player to move and a best column (0-indexed), or -1 when the best column
// is not checked.
var KnownPositions = []struct {
	Moves   string
	Score   int
	BestCol int
}{
	{"112233", 18, 3},
	{"4455", 18, 2},
	{"4433", 18, 4},
	{"727364", -18, -1},
	{"133113311331244224422442577557755775", 0, 5},
	// middle game; several columns may share the best score
	{"411124674146", 5, -1},
	{"471624455723", 6, -1},
	{"261477217226", -2, -1},
	{"12134724515216", 2, -1},
	{"23133755156631", -5, -1},
	{"7214321576615446", 3, -1},
	{"6562517511122517", -2, -1},
	{"6441562763313314", 2, -1},
	{"63135446143553511721", 5, -1},
	{"52747255252273341774474355", -3, -1},
	{"2252576253462244111563365343671351441", -1, -1},
	{"65214673556155731566316327373221417", -1, -1},
}

// MustParse builds a board from 1-indexed column digits, panicking on error.
func MustParse(moves string) *board.Board {
	b, err := board.ParseMoves(moves)
	if err != nil {
		panic(err)
	}
	return b
}

// RandomBoards returns n independent random games in progress.
func RandomBoards(n, stones int) []*board.Board {
	boards := make([]*board.Board, n)
	for i := range boards {
		boards[i] = board.Random(stones)
	}
	return boards
}
