// Package solver finds the exact game-theoretic score and a best move of
// any Connect Four position.
//
// A score is positive when the player to move can force a win, negative
// when the opponent can, and 0 for a draw. Its magnitude rewards quick
// wins: a player winning with their k-th stone scores 22 - k, so the
// range is [board.MinScore, board.MaxScore]. Equivalently, with n stones
// on the board before the winning move, the winner scores (43 - n) / 2.
package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/moveorder"
)

var (
	// ErrTimeLimitExceeded is returned, wrapped in a *BudgetExceededError,
	// when a solve runs out of nodes or time before proving a score.
	ErrTimeLimitExceeded = errors.New("time limit exceeded")

	errNodeBudget = errors.New("node budget exhausted")
)

// BudgetExceededError reports an interrupted solve. The true score lies
// within [Lower, Upper], the bounds proven before the search stopped.
type BudgetExceededError struct {
	Lower int
	Upper int
	Nodes uint64
	cause error
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%v after %d nodes (%v): score is in [%d, %d]",
		ErrTimeLimitExceeded, e.Nodes, e.cause, e.Lower, e.Upper)
}

func (e *BudgetExceededError) Unwrap() error {
	return ErrTimeLimitExceeded
}

// ColumnScore is the outcome of playing one column.
type ColumnScore struct {
	Column   int
	Playable bool
	// Score of the position after the move, for the player who made it.
	Score int
}

// Solver searches positions. It is not safe for concurrent use; run one
// Solver per goroutine, each with its own transposition table.
type Solver struct {
	ttable *TranspositionTable
	book   *book.Book

	transpositionTableOptim bool
	openingBookOptim        bool
	dynamicOrderMaxPly      int

	nodeBudget uint64
	timeLimit  time.Duration
	nodes      atomic.Uint64

	rootPly   int
	logStream io.Writer
}

// Init sets up the solver with the default options. A nil table means the
// GlobalTranspositionTable, which gets the default capacity if it was
// never sized. A nil book disables book lookups.
func (s *Solver) Init(tt *TranspositionTable, bk *book.Book) {
	if tt == nil {
		tt = GlobalTranspositionTable
	}
	if tt.Capacity() == 0 {
		tt.Resize(DefaultTableSize)
	}
	s.ttable = tt
	s.book = bk
	s.transpositionTableOptim = true
	s.openingBookOptim = true
	s.dynamicOrderMaxPly = board.NumCells
	s.nodeBudget = 0
	s.timeLimit = 0
}

// NewSolver returns a solver initialized with Init.
func NewSolver(tt *TranspositionTable, bk *book.Book) *Solver {
	s := &Solver{}
	s.Init(tt, bk)
	return s
}

// ApplyConfig sets the search limits and move ordering from cfg, and
// resizes the table when cfg asks for a specific size.
func (s *Solver) ApplyConfig(cfg *config.Config) {
	s.dynamicOrderMaxPly = cfg.GetInt(config.ConfigDynamicOrderMaxPly)
	s.nodeBudget = cfg.GetUint64(config.ConfigNodeBudget)
	s.timeLimit = cfg.GetDuration(config.ConfigTimeLimit)

	size := cfg.GetInt(config.ConfigTTableSize)
	if frac := cfg.GetFloat64(config.ConfigTTableMemFraction); frac > 0 {
		size = SizeForMemory(frac)
	}
	if size > 0 && nextPrime(max(size, MinTableSize)) != s.ttable.Capacity() {
		s.ttable.Resize(size)
	}
}

func (s *Solver) SetTranspositionTableOptim(tt bool) {
	s.transpositionTableOptim = tt
}

func (s *Solver) SetOpeningBookOptim(b bool) {
	s.openingBookOptim = b
}

// SetDynamicOrderMaxPly turns off threat-count move ordering for nodes
// with at least ply stones. 0 means static ordering everywhere.
func (s *Solver) SetDynamicOrderMaxPly(ply int) {
	s.dynamicOrderMaxPly = ply
}

// SetNodeBudget limits the nodes visited by one call; 0 means no limit.
func (s *Solver) SetNodeBudget(n uint64) {
	s.nodeBudget = n
}

// SetTimeLimit limits the duration of one call; 0 means no limit.
func (s *Solver) SetTimeLimit(d time.Duration) {
	s.timeLimit = d
}

// SetLogStream makes the search write a trace of every node it expands to
// w. This is extremely verbose; use it on positions close to the end.
func (s *Solver) SetLogStream(w io.Writer) {
	s.logStream = w
}

func (s *Solver) SetTranspositionTable(tt *TranspositionTable) {
	s.ttable = tt
}

func (s *Solver) TranspositionTable() *TranspositionTable {
	return s.ttable
}

func (s *Solver) SetOpeningBook(bk *book.Book) {
	s.book = bk
}

func (s *Solver) OpeningBook() *book.Book {
	return s.book
}

// Nodes returns the number of nodes searched by the last call.
func (s *Solver) Nodes() uint64 {
	return s.nodes.Load()
}

func (s *Solver) indent(n int) string {
	return strings.Repeat("  ", max(n-s.rootPly, 0))
}

// run wraps a search: it applies the time limit, resets the node count,
// logs the nodes per second while the search runs, and logs a summary
// when it returns.
func (s *Solver) run(ctx context.Context, b *board.Board, name string, search func(ctx context.Context) error) error {
	if s.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeLimit)
		defer cancel()
	}
	s.nodes.Store(0)
	s.rootPly = b.Moves()
	statsBefore := s.ttable.Stats()
	tstart := time.Now()

	g := &errgroup.Group{}
	done := make(chan struct{})
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		g.Go(func() error {
			ticker := time.NewTicker(1 * time.Second)
			defer ticker.Stop()
			var lastNodes uint64
			for {
				select {
				case <-done:
					return nil
				case <-ticker.C:
					nodes := s.nodes.Load()
					log.Debug().Uint64("nps", nodes-lastNodes).Msg("nodes-per-second")
					lastNodes = nodes
				}
			}
		})
	}
	err := search(ctx)
	close(done)
	g.Wait()

	stats := s.ttable.Stats()
	log.Debug().
		Str("op", name).
		Str("moves", b.MoveString()).
		Uint64("nodes", s.nodes.Load()).
		Uint64("ttable-stores", stats.Stores-statsBefore.Stores).
		Uint64("ttable-lookups", stats.Lookups-statsBefore.Lookups).
		Uint64("ttable-hits", stats.Hits-statsBefore.Hits).
		Uint64("ttable-collisions", stats.Collisions-statsBefore.Collisions).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
		Err(err).
		Msg("solve-returning")
	return err
}

// interrupted turns an error that stopped the search into the error
// returned to the caller.
func (s *Solver) interrupted(err error, lower, upper int) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("solve canceled: %w", err)
	}
	return &BudgetExceededError{
		Lower: lower,
		Upper: upper,
		Nodes: s.nodes.Load(),
		cause: err,
	}
}

// Solve returns the exact score of b for the player to move. b is left
// as it was passed in.
func (s *Solver) Solve(ctx context.Context, b *board.Board) (int, error) {
	var score int
	err := s.run(ctx, b, "solve", func(ctx context.Context) error {
		var err error
		score, err = s.solve(ctx, b)
		return err
	})
	return score, err
}

func (s *Solver) solve(ctx context.Context, b *board.Board) (int, error) {
	n := b.Moves()
	if b.HasWinner() {
		// the opponent connected four with the last stone
		return -(board.NumCells + 2 - n) / 2, nil
	}
	if n == board.NumCells {
		return 0, nil
	}
	if b.CanWinNext() {
		return winScore(n), nil
	}
	if s.openingBookOptim {
		if score, ok := s.book.Lookup(b); ok {
			return score, nil
		}
	}

	lower, upper := lossScore(n), winScore(n)
	// narrow the window with null-window searches until it closes
	for lower < upper {
		mid := lower + (upper-lower)/2
		// lean towards 0 first, where most scores are
		if mid <= 0 && lower/2 < mid {
			mid = lower / 2
		} else if mid >= 0 && upper/2 > mid {
			mid = upper / 2
		}
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "- probe: %d\n  window: [%d, %d]\n", mid, lower, upper)
		}
		r, err := s.negamax(ctx, b, mid, mid+1)
		if err != nil {
			return 0, s.interrupted(err, max(lower, board.MinScore), min(upper, board.MaxScore))
		}
		if r <= mid {
			upper = r
		} else {
			lower = r
		}
	}
	return lower, nil
}

// BestMove returns a column that reaches the exact score of b, along with
// that score. Among equally good columns it prefers the one the search
// orders first: an immediate win, then the most promising and most central
// column. It fails with board.ErrGameOver when the game is over.
func (s *Solver) BestMove(ctx context.Context, b *board.Board) (int, int, error) {
	if b.HasWinner() || b.PossibleMoves() == 0 {
		return -1, 0, board.ErrGameOver
	}
	col, score := -1, 0
	err := s.run(ctx, b, "best-move", func(ctx context.Context) error {
		var err error
		score, err = s.solve(ctx, b)
		if err != nil {
			return err
		}
		col, err = s.bestColumn(ctx, b, score)
		return err
	})
	if err != nil {
		return -1, 0, err
	}
	return col, score, nil
}

func (s *Solver) bestColumn(ctx context.Context, b *board.Board, score int) (int, error) {
	for _, col := range moveorder.StaticOrder {
		if b.IsWinningMove(col) {
			return col, nil
		}
	}
	cols := moveorder.Columns(b, b.PossibleMoves(), b.Moves() < s.dynamicOrderMaxPly)
	for _, col := range cols {
		if err := b.Play(col); err != nil {
			panic(err)
		}
		// one null-window search tells whether this child reaches score
		value, err := s.negamax(ctx, b, -score, -score+1)
		if uerr := b.Undo(); uerr != nil {
			panic(uerr)
		}
		if err != nil {
			return -1, s.interrupted(err, score, score)
		}
		if -value >= score {
			return col, nil
		}
	}
	panic(fmt.Sprintf("no column of %q reaches its score %d", b.MoveString(), score))
}

// Analyze scores every column of b: the exact score of the resulting
// position for the player making the move. Full columns are returned with
// Playable set to false.
func (s *Solver) Analyze(ctx context.Context, b *board.Board) ([]ColumnScore, error) {
	if b.HasWinner() || b.PossibleMoves() == 0 {
		return nil, board.ErrGameOver
	}
	scores := make([]ColumnScore, board.Width)
	err := s.run(ctx, b, "analyze", func(ctx context.Context) error {
		n := b.Moves()
		for col := 0; col < board.Width; col++ {
			scores[col].Column = col
			if !b.CanPlay(col) {
				continue
			}
			scores[col].Playable = true
			if b.IsWinningMove(col) {
				scores[col].Score = winScore(n)
				continue
			}
			if err := b.Play(col); err != nil {
				panic(err)
			}
			v, err := s.solve(ctx, b)
			if uerr := b.Undo(); uerr != nil {
				panic(uerr)
			}
			if err != nil {
				var be *BudgetExceededError
				if errors.As(err, &be) {
					// bounds of the child, seen from this side
					be.Lower, be.Upper = -be.Upper, -be.Lower
				}
				return fmt.Errorf("column %d: %w", col+1, err)
			}
			scores[col].Score = -v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// WinDistance converts a score of b into the number of stones the winner
// still has to place, the winning stone included. For a draw it is the
// number of empty cells.
func WinDistance(b *board.Board, score int) int {
	n := b.Moves()
	// a win with the k-th stone scores 22 - k
	switch {
	case score > 0:
		// the player to move has placed n/2 stones
		return (board.NumCells/2 + 1 - score) - n/2
	case score < 0:
		// the opponent has placed (n+1)/2 stones
		return (board.NumCells/2 + 1 + score) - (n+1)/2
	}
	return board.NumCells - n
}

// Minimax scores b by exhaustive search without any pruning. It is only
// practical close to the end of a game and serves as a reference.
func Minimax(b *board.Board) int {
	n := b.Moves()
	if b.HasWinner() {
		return -(board.NumCells + 2 - n) / 2
	}
	if n == board.NumCells {
		return 0
	}
	best := board.MinScore - 1
	for col := 0; col < board.Width; col++ {
		if !b.CanPlay(col) {
			continue
		}
		if err := b.Play(col); err != nil {
			panic(err)
		}
		v := -Minimax(b)
		if err := b.Undo(); err != nil {
			panic(err)
		}
		best = max(best, v)
	}
	return best
}
