package solver

import (
	"context"
	"fmt"
	"strings"

	"github.com/domino14/connect4/board"
)

// PVLine is a principal variation: a line of best play for both sides.
type PVLine struct {
	// 0-indexed columns
	Moves []int
	// score of the first position of the line
	Score int
}

func (pvLine PVLine) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PV; val %d\n", pvLine.Score)
	for i, col := range pvLine.Moves {
		fmt.Fprintf(&sb, "%d: %d\n", i+1, col+1)
	}
	return sb.String()
}

// NLBString is String without line breaks.
func (pvLine PVLine) NLBString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PV; val %d; ", pvLine.Score)
	for i, col := range pvLine.Moves {
		fmt.Fprintf(&sb, "%d: %d; ", i+1, col+1)
	}
	return sb.String()
}

// PrincipalVariation follows best moves from b until the game ends or
// maxMoves have been played. b is left as it was passed in. If a search
// is interrupted, the line found so far is returned with the error.
func (s *Solver) PrincipalVariation(ctx context.Context, b *board.Board, maxMoves int) (PVLine, error) {
	var pv PVLine
	played := 0
	defer func() {
		for ; played > 0; played-- {
			if err := b.Undo(); err != nil {
				panic(err)
			}
		}
	}()
	for len(pv.Moves) < maxMoves && !b.HasWinner() && b.PossibleMoves() != 0 {
		col, score, err := s.BestMove(ctx, b)
		if err != nil {
			return pv, err
		}
		if len(pv.Moves) == 0 {
			pv.Score = score
		}
		if err := b.Play(col); err != nil {
			panic(err)
		}
		played++
		pv.Moves = append(pv.Moves, col)
	}
	return pv, nil
}
