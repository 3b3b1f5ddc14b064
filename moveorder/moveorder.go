// Package moveorder decides the order in which the solver tries the
// children of a node. Good orders find cutoffs early.
package moveorder

import "github.com/domino14/connect4/board"

// StaticOrder lists the columns from the center outward. Central columns
// take part in more alignments, so they are usually better moves.
var StaticOrder = [board.Width]int{3, 2, 4, 1, 5, 0, 6}

type entry struct {
	move  uint64
	score int
}

// Sorter is a fixed-size insertion sorter for at most board.Width moves.
// Next returns moves by decreasing score. Among equal scores, the move
// added last comes out first. The zero value is ready to use.
type Sorter struct {
	entries [board.Width]entry
	size    int
}

// Add inserts a move bitmap with its score.
func (s *Sorter) Add(move uint64, score int) {
	pos := s.size
	s.size++
	for ; pos > 0 && s.entries[pos-1].score > score; pos-- {
		s.entries[pos] = s.entries[pos-1]
	}
	s.entries[pos] = entry{move: move, score: score}
}

// Next pops the best remaining move, or returns 0 when the sorter is empty.
func (s *Sorter) Next() uint64 {
	if s.size == 0 {
		return 0
	}
	s.size--
	return s.entries[s.size].move
}

func (s *Sorter) Reset() {
	s.size = 0
}

func (s *Sorter) Len() int {
	return s.size
}

// Order fills s with the moves of candidates, a bitmap holding at most one
// cell per column. With dynamic ordering, moves that create more open
// alignments come first and the static order breaks ties. Without it the
// static order alone is used.
func Order(s *Sorter, b *board.Board, candidates uint64, dynamic bool) {
	s.Reset()
	// added in reverse, so the most central of equally scored moves pops first
	for i := board.Width - 1; i >= 0; i-- {
		move := candidates & board.ColumnMask(StaticOrder[i])
		if move == 0 {
			continue
		}
		score := 0
		if dynamic {
			score = b.MoveScore(move)
		}
		s.Add(move, score)
	}
}

// Columns returns the columns of candidates in the order Order produces.
func Columns(b *board.Board, candidates uint64, dynamic bool) []int {
	var s Sorter
	Order(&s, b, candidates, dynamic)
	cols := make([]int, 0, s.Len())
	for move := s.Next(); move != 0; move = s.Next() {
		cols = append(cols, board.Column(move))
	}
	return cols
}
