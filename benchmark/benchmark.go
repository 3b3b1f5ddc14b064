// Package benchmark solves batches of labelled positions and reports how
// much work the solver needed for them.
package benchmark

import (
	"bufio"
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/solver"
)

var (
	SolvedCounter *expvar.Int
	IsRunning     *expvar.Int
)

var ErrAlreadyRunning = errors.New("a benchmark is already running, please wait till complete")

// running guards Run; IsRunning only mirrors it for expvar readers.
var running atomic.Bool

func init() {
	SolvedCounter = expvar.NewInt("benchSolved")
	IsRunning = expvar.NewInt("benchRunning")
}

// TestCase is one position to solve. Positions generated at random have
// no known score and are not Labelled.
type TestCase struct {
	Moves    string
	Score    int
	Labelled bool
	// line in the test file, for error messages
	Line int
}

// Result is the outcome of solving one TestCase.
type Result struct {
	Case     TestCase
	Score    int
	Nodes    uint64
	Duration time.Duration
	// TimedOut is set when the node budget or time limit ran out. Score is
	// then meaningless and Lower, Upper hold the proven bounds.
	TimedOut bool
	Lower    int
	Upper    int
}

// Correct returns whether a labelled case was solved to its label.
func (r Result) Correct() bool {
	return !r.TimedOut && (!r.Case.Labelled || r.Score == r.Case.Score)
}

// ReadTestFile parses the standard test file layout: one position per
// line, as 1-indexed column digits followed by its score. Blank lines and
// lines starting with # are skipped.
func ReadTestFile(r io.Reader) ([]TestCase, error) {
	var cases []TestCase
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected <moves> <score>, got %q", lineno, line)
		}
		score, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad score: %w", lineno, err)
		}
		if score < board.MinScore || score > board.MaxScore {
			return nil, fmt.Errorf("line %d: score %d out of range", lineno, score)
		}
		if _, err := board.ParseMoves(fields[0]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		cases = append(cases, TestCase{Moves: fields[0], Score: score, Labelled: true, Line: lineno})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

// ReadTestFilePath opens and parses a test file.
func ReadTestFilePath(path string) ([]TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTestFile(f)
}

// RandomCases returns n unlabelled games in progress with the given
// number of stones.
func RandomCases(n, stones int) []TestCase {
	cases := make([]TestCase, n)
	for i := range cases {
		cases[i] = TestCase{Moves: board.Random(stones).MoveString()}
	}
	return cases
}

// Runner solves cases in parallel. Each worker owns a Solver and a
// transposition table, so the engine itself stays single-threaded.
type Runner struct {
	Workers   int
	TableSize int
	Book      *book.Book

	NodeBudget         uint64
	TimeLimit          time.Duration
	DynamicOrderMaxPly int
}

// NewRunner builds a runner from the solver settings in cfg. A memory
// fraction for the table is split between the workers.
func NewRunner(cfg *config.Config, bk *book.Book, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	size := cfg.GetInt(config.ConfigTTableSize)
	if frac := cfg.GetFloat64(config.ConfigTTableMemFraction); frac > 0 {
		size = solver.SizeForMemory(frac / float64(workers))
	}
	if size <= 0 {
		size = solver.DefaultTableSize
	}
	return &Runner{
		Workers:            workers,
		TableSize:          size,
		Book:               bk,
		NodeBudget:         cfg.GetUint64(config.ConfigNodeBudget),
		TimeLimit:          cfg.GetDuration(config.ConfigTimeLimit),
		DynamicOrderMaxPly: cfg.GetInt(config.ConfigDynamicOrderMaxPly),
	}
}

func (r *Runner) newSolver() *solver.Solver {
	s := solver.NewSolver(solver.NewTranspositionTable(r.TableSize), r.Book)
	s.SetNodeBudget(r.NodeBudget)
	s.SetTimeLimit(r.TimeLimit)
	s.SetDynamicOrderMaxPly(r.DynamicOrderMaxPly)
	return s
}

// Run solves every case and returns the results in input order. A case
// running out of budget is recorded as timed out; any other failure, or
// ctx being canceled, stops the run.
func (r *Runner) Run(ctx context.Context, cases []TestCase) ([]Result, error) {
	if !running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	IsRunning.Set(1)
	defer func() {
		IsRunning.Set(0)
		running.Store(false)
	}()
	SolvedCounter.Set(0)

	workers := max(r.Workers, 1)
	log.Debug().Int("cases", len(cases)).Int("workers", workers).Msg("starting-benchmark")

	results := make([]Result, len(cases))
	jobs := make(chan int, workers)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range cases {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			s := r.newSolver()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := solveCase(ctx, s, cases[i])
				if err != nil {
					return err
				}
				results[i] = res
				SolvedCounter.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func solveCase(ctx context.Context, s *solver.Solver, tc TestCase) (Result, error) {
	b, err := board.ParseMoves(tc.Moves)
	if err != nil {
		return Result{}, fmt.Errorf("position %q: %w", tc.Moves, err)
	}
	// every position starts from an empty table so timings are comparable
	s.TranspositionTable().Reset()
	start := time.Now()
	score, err := s.Solve(ctx, b)
	res := Result{Case: tc, Score: score, Nodes: s.Nodes(), Duration: time.Since(start)}

	var budget *solver.BudgetExceededError
	switch {
	case err == nil:
	case errors.As(err, &budget):
		res.TimedOut = true
		res.Lower, res.Upper = budget.Lower, budget.Upper
	default:
		return Result{}, fmt.Errorf("position %q: %w", tc.Moves, err)
	}

	if !res.Correct() {
		log.Warn().Str("moves", tc.Moves).Int("expected", tc.Score).Int("score", score).
			Bool("timed-out", res.TimedOut).Msg("benchmark-mismatch")
	}
	return res, nil
}
