package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/solver"
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) currentBoard() *board.Board {
	sc.Lock()
	defer sc.Unlock()
	return sc.board
}

func (sc *ShellController) setBoard(b *board.Board) {
	sc.Lock()
	defer sc.Unlock()
	sc.board = b
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	if sc.solving() {
		return nil, errSolving
	}
	sc.setBoard(board.New())
	return msg(sc.currentBoard().ToDisplayText()), nil
}

// parseColumns reads 1-indexed columns, either as separate arguments or
// run together as in 4453.
func parseColumns(args []string) ([]int, error) {
	var cols []int
	for _, arg := range args {
		for _, c := range arg {
			if c < '1' || c > '0'+board.Width {
				return nil, fmt.Errorf("%w: %q is not a column between 1 and %d",
					board.ErrInvalidMove, c, board.Width)
			}
			cols = append(cols, int(c-'1'))
		}
	}
	return cols, nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if sc.solving() {
		return nil, errSolving
	}
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: play <columns>")
	}
	cols, err := parseColumns(cmd.args)
	if err != nil {
		return nil, err
	}
	// nothing is played unless the whole sequence is legal
	b := sc.currentBoard().Copy()
	for i, col := range cols {
		if b.HasWinner() {
			return nil, fmt.Errorf("%w (move %d)", board.ErrGameOver, i+1)
		}
		if err := b.Play(col); err != nil {
			return nil, err
		}
	}
	sc.setBoard(b)
	return msg(b.ToDisplayText()), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if sc.solving() {
		return nil, errSolving
	}
	n := 1
	if len(cmd.args) > 0 {
		var err error
		n, err = strconv.Atoi(cmd.args[0])
		if err != nil {
			return nil, err
		}
	}
	b := sc.currentBoard().Copy()
	for i := 0; i < n; i++ {
		if err := b.Undo(); err != nil {
			return nil, err
		}
	}
	sc.setBoard(b)
	return msg(b.ToDisplayText()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	b := sc.currentBoard()
	var sb strings.Builder
	sb.WriteString(b.ToDisplayText())
	fmt.Fprintf(&sb, "moves: %s\n", b.MoveString())
	fmt.Fprintf(&sb, "key: %#x (canonical %#x)", b.Key(), b.CanonicalKey())
	return msg(sb.String()), nil
}

// describeScore explains a score of b in words.
func describeScore(b *board.Board, score int) string {
	dist := solver.WinDistance(b, score)
	mover := b.ToMove()
	switch {
	case score > 0:
		return fmt.Sprintf("score %d: %v wins, placing %d more stone(s)", score, mover, dist)
	case score < 0:
		return fmt.Sprintf("score %d: %v loses, %v needs %d more stone(s)", score, mover, mover.Other(), dist)
	}
	return fmt.Sprintf("score 0: draw with perfect play, %d cell(s) left to fill", dist)
}

// search runs fn on a copy of the current board. In the interactive shell
// it runs in the background and prints its result when done.
func (sc *ShellController) search(name string, fn func(ctx context.Context, b *board.Board) (string, error)) (*Response, error) {
	ctx, done, err := sc.solveContext()
	if err != nil {
		return nil, err
	}
	b := sc.currentBoard().Copy()
	if !sc.async {
		defer done()
		out, err := fn(ctx, b)
		if err != nil {
			return nil, err
		}
		return msg(out), nil
	}
	go func() {
		defer done()
		out, err := fn(ctx, b)
		if err != nil {
			sc.showError(err)
			return
		}
		sc.showMessage(out)
		log.Debug().Str("cmd", name).Msg("search-thread-exiting")
	}()
	return msg(name + " started; type stop to interrupt"), nil
}

func budgetText(err error) error {
	var be *solver.BudgetExceededError
	if errors.As(err, &be) {
		return fmt.Errorf("%w; the score is between %d and %d", solver.ErrTimeLimitExceeded, be.Lower, be.Upper)
	}
	return err
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	return sc.search("solve", func(ctx context.Context, b *board.Board) (string, error) {
		score, err := sc.solver.Solve(ctx, b)
		if err != nil {
			return "", budgetText(err)
		}
		return fmt.Sprintf("%s (%d nodes)", describeScore(b, score), sc.solver.Nodes()), nil
	})
}

func (sc *ShellController) best(cmd *shellcmd) (*Response, error) {
	return sc.search("best", func(ctx context.Context, b *board.Board) (string, error) {
		col, score, err := sc.solver.BestMove(ctx, b)
		if err != nil {
			return "", budgetText(err)
		}
		return fmt.Sprintf("best column: %d\n%s", col+1, describeScore(b, score)), nil
	})
}

func (sc *ShellController) analyze(cmd *shellcmd) (*Response, error) {
	return sc.search("analyze", func(ctx context.Context, b *board.Board) (string, error) {
		scores, err := sc.solver.Analyze(ctx, b)
		if err != nil {
			return "", budgetText(err)
		}
		return analysisTable(scores), nil
	})
}

func analysisTable(scores []solver.ColumnScore) string {
	playable := lo.Filter(scores, func(c solver.ColumnScore, _ int) bool { return c.Playable })
	top := lo.MaxBy(playable, func(a, b solver.ColumnScore) bool { return a.Score > b.Score })
	var header, row, marks strings.Builder
	for _, c := range scores {
		fmt.Fprintf(&header, "%4d", c.Column+1)
		if !c.Playable {
			row.WriteString("   -")
			marks.WriteString("    ")
			continue
		}
		fmt.Fprintf(&row, "%4d", c.Score)
		if c.Score == top.Score {
			marks.WriteString("   ^")
		} else {
			marks.WriteString("    ")
		}
	}
	return strings.Join([]string{header.String(), row.String(), strings.TrimRight(marks.String(), " ")}, "\n")
}

// autoplay lets the solver play both sides from the current position
// until the game ends.
func (sc *ShellController) autoplay(cmd *shellcmd) (*Response, error) {
	maxMoves, err := cmd.options.IntDefault("moves", board.NumCells)
	if err != nil {
		return nil, err
	}
	return sc.search("autoplay", func(ctx context.Context, b *board.Board) (string, error) {
		pv, err := sc.solver.PrincipalVariation(ctx, b, maxMoves)
		// moves found before an interruption are kept
		for _, col := range pv.Moves {
			if perr := b.Play(col); perr != nil {
				return "", perr
			}
		}
		sc.setBoard(b)
		played := lo.Map(pv.Moves, func(col int, _ int) string { return strconv.Itoa(col + 1) })
		if err != nil {
			return "", fmt.Errorf("after %s: %w", strings.Join(played, " "), budgetText(err))
		}
		log.Debug().Str("pv", pv.NLBString()).Msg("autoplay-done")
		return fmt.Sprintf("played: %s%s", strings.Join(played, " "), b.ToDisplayText()), nil
	})
}

func (sc *ShellController) bookCmd(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		if sc.book == nil {
			return msg("no opening book loaded"), nil
		}
		return msg(fmt.Sprintf("opening book: %d positions, digest %016x, lookups %s",
			sc.book.Len(), sc.book.Digest(), onOff(sc.options.openingBook))), nil
	}
	switch cmd.args[0] {
	case "load":
		if sc.solving() {
			return nil, errSolving
		}
		if len(cmd.args) != 2 {
			return nil, errors.New("usage: book load <path>")
		}
		bk, err := book.Load(cmd.args[1])
		if err != nil {
			return nil, err
		}
		sc.book = bk
		sc.solver.SetOpeningBook(bk)
		return msg(fmt.Sprintf("loaded %d positions from %s", bk.Len(), cmd.args[1])), nil
	case "lookup":
		b := sc.currentBoard()
		if b.Moves() != book.Ply {
			return nil, fmt.Errorf("the book only holds positions with %d stones", book.Ply)
		}
		score, ok := sc.book.Lookup(b)
		if !ok {
			return msg("position not in book"), nil
		}
		return msg(describeScore(b, score)), nil
	}
	return nil, errors.New("usage: book [load <path> | lookup]")
}

func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return msg(sc.options.ToDisplayText()), nil
	}
	if sc.solving() {
		return nil, errSolving
	}
	opt := cmd.args[0]
	if len(cmd.args) == 1 {
		_, val := sc.options.Show(opt)
		return msg(val), nil
	}
	ret, err := sc.Set(opt, cmd.args[1:])
	if err != nil {
		return nil, err
	}
	return msg("set " + opt + " to " + ret), nil
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return usage("standard")
	}
	return usageTopic(cmd.args[0])
}
