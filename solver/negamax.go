package solver

import (
	"context"
	"fmt"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/moveorder"
)

// the context is checked every 4096 nodes
const ctxCheckMask = 1<<12 - 1

// winScore is the score of the player to move winning with their next
// stone, n being the number of stones on the board.
func winScore(n int) int {
	return (board.NumCells + 1 - n) / 2
}

// lossScore is the score of the player to move when the opponent wins
// with their next stone.
func lossScore(n int) int {
	return -(board.NumCells - n) / 2
}

// clampScore brings a bound into the range of real scores. Near the root,
// windows and the bounds returned for them can reach past that range;
// since every true score lies inside it, a clamped bound is still valid.
func clampScore(score int) int {
	return min(max(score, board.MinScore), board.MaxScore)
}

// negamax returns the score of b for the player to move within the window
// (alpha, beta). A result at or below alpha is an upper bound of the true
// score, a result at or above beta a lower bound, and anything between is
// exact. The board is played and unplayed in place.
func (s *Solver) negamax(ctx context.Context, b *board.Board, alpha, beta int) (int, error) {
	nodes := s.nodes.Add(1)
	if nodes&ctxCheckMask == 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	if s.nodeBudget > 0 && nodes > s.nodeBudget {
		return 0, errNodeBudget
	}

	n := b.Moves()
	if b.CanWinNext() {
		return winScore(n), nil
	}
	next := b.PossibleNonLosingMoves()
	if next == 0 {
		return lossScore(n), nil
	}
	// we cannot lose with our next stone, and the opponent cannot win
	// with the last one
	if n >= board.NumCells-2 {
		return 0, nil
	}
	if n == book.Ply && s.openingBookOptim {
		if score, ok := s.book.Lookup(b); ok {
			return score, nil
		}
	}

	// the opponent cannot win with their next stone
	if lo := -(board.NumCells - 2 - n) / 2; alpha < lo {
		alpha = lo
		if alpha >= beta {
			return alpha, nil
		}
	}
	// we cannot win with our next stone
	if hi := (board.NumCells - 1 - n) / 2; beta > hi {
		beta = hi
		if alpha >= beta {
			return beta, nil
		}
	}

	// a position and its mirror image share their score
	key := b.CanonicalKey()
	if s.transpositionTableOptim {
		if score, bound, ok := s.ttable.Get(key); ok {
			switch bound {
			case BoundExact:
				return score, nil
			case BoundLower:
				if score > alpha {
					alpha = score
					if alpha >= beta {
						return alpha, nil
					}
				}
			case BoundUpper:
				if score < beta {
					beta = score
					if alpha >= beta {
						return beta, nil
					}
				}
			}
		}
	}

	var sorter moveorder.Sorter
	moveorder.Order(&sorter, b, next, n < s.dynamicOrderMaxPly)

	if s.logStream != nil {
		fmt.Fprintf(s.logStream, "%s- window: [%d, %d]\n", s.indent(n), alpha, beta)
	}
	alphaOrig := alpha
	best := board.MinScore - 1
	for move := sorter.Next(); move != 0; move = sorter.Next() {
		col := board.Column(move)
		if err := b.Play(col); err != nil {
			panic(fmt.Sprintf("could not play generated move %d: %v", col, err))
		}
		value, err := s.negamax(ctx, b, -beta, -alpha)
		if uerr := b.Undo(); uerr != nil {
			panic(uerr)
		}
		if err != nil {
			return 0, err
		}
		score := -value
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "%s  col: %d\n%s  value: %d\n", s.indent(n), col+1, s.indent(n), score)
		}
		if score >= beta {
			if s.transpositionTableOptim {
				s.ttable.Put(key, clampScore(score), BoundLower)
			}
			return score, nil
		}
		if score > best {
			best = score
		}
		if score > alpha {
			alpha = score
		}
	}

	if s.transpositionTableOptim {
		if best <= alphaOrig {
			s.ttable.Put(key, clampScore(best), BoundUpper)
		} else {
			s.ttable.Put(key, best, BoundExact)
		}
	}
	return best, nil
}
