package benchmark

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/domino14/connect4/solver"
	"github.com/domino14/connect4/testhelpers"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func newTestRunner(workers int) *Runner {
	r := NewRunner(testhelpers.DefaultConfig, nil, workers)
	r.TableSize = solver.MinTableSize
	return r
}

func TestReadTestFile(t *testing.T) {
	is := is.New(t)
	cases, err := ReadTestFilePath("testdata/known.txt")
	is.NoErr(err)
	is.Equal(len(cases), 20)
	is.Equal(cases[0], TestCase{Moves: "112233", Score: 18, Labelled: true, Line: 2})
	is.Equal(cases[3].Line, 6)
	is.Equal(cases[3].Score, -18)
	is.Equal(cases[6], TestCase{Moves: "411124674146", Score: 5, Labelled: true, Line: 11})
	is.Equal(cases[19].Score, -1)
}

func TestReadTestFileErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		msg   string
	}{
		{"missing score", "4455\n", "expected <moves> <score>"},
		{"bad score", "4455 x\n", "bad score"},
		{"score out of range", "4455 19\n", "out of range"},
		{"bad column", "4485 0\n", "line 1"},
		{"full column", "1111111 0\n", "column 0 is full"},
		{"after win", "\n11223344 0\n", "line 2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadTestFile(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestRunKnownPositions(t *testing.T) {
	is := is.New(t)
	cases, err := ReadTestFilePath("testdata/known.txt")
	is.NoErr(err)

	results, err := newTestRunner(2).Run(context.Background(), cases)
	is.NoErr(err)
	is.Equal(len(results), len(cases))
	for i, r := range results {
		// results come back in input order
		is.Equal(r.Case, cases[i])
		is.True(r.Correct())
		is.Equal(r.Score, cases[i].Score)
	}
	is.Equal(SolvedCounter.Value(), int64(len(cases)))
	is.Equal(IsRunning.Value(), int64(0))

	rep := NewReport(results)
	is.True(rep.OK())
	is.Equal(rep.Positions, len(cases))
	is.Equal(rep.Labelled, len(cases))
	is.Equal(rep.Correct, len(cases))
	is.Equal(rep.TimedOut, 0)
	is.Equal(rep.Nodes.Count, len(cases))
	is.True(strings.Contains(rep.String(), "20/20 labelled correct"))
}

func TestRunRandomPositions(t *testing.T) {
	is := is.New(t)
	cases := RandomCases(8, 30)
	for _, c := range cases {
		is.Equal(len(c.Moves), 30)
		is.True(!c.Labelled)
	}
	results, err := newTestRunner(3).Run(context.Background(), cases)
	is.NoErr(err)
	rep := NewReport(results)
	is.True(rep.OK())
	is.Equal(rep.Labelled, 0)
	is.Equal(rep.Correct, 0)
	is.Equal(rep.Nodes.Count, 8)
}

func TestRunBudget(t *testing.T) {
	is := is.New(t)
	r := newTestRunner(1)
	r.NodeBudget = 5000
	cases := []TestCase{
		{Moves: "133113311331", Score: 0, Labelled: true, Line: 1},
		{Moves: "4455", Score: 18, Labelled: true, Line: 2},
	}
	results, err := r.Run(context.Background(), cases)
	is.NoErr(err)
	is.True(results[0].TimedOut)
	is.True(results[0].Lower <= results[0].Upper)
	is.True(!results[0].Correct())
	is.True(results[1].Correct())

	rep := NewReport(results)
	is.True(!rep.OK())
	is.Equal(rep.TimedOut, 1)
	is.Equal(rep.Correct, 1)
	// only the solved position is summarized
	is.Equal(rep.Nodes.Count, 1)
	is.Equal(rep.Failures, []Failure{{Moves: "133113311331", Line: 1, Expected: 0, Score: results[0].Score, TimedOut: true}})
}

func TestRunCanceled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestRunner(2).Run(ctx, RandomCases(4, 10))
	is.True(err != nil)
	is.Equal(IsRunning.Value(), int64(0))
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	is := is.New(t)
	cases := []TestCase{{Moves: "4455", Score: 18, Labelled: true, Line: 1}}

	// pretend another run holds the guard
	is.True(running.CompareAndSwap(false, true))
	_, err := newTestRunner(1).Run(context.Background(), cases)
	is.True(errors.Is(err, ErrAlreadyRunning))
	running.Store(false)

	// concurrent runs: exactly the ones that got the guard succeed, and
	// the guard is released afterwards
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = newTestRunner(1).Run(context.Background(), cases)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		is.True(err == nil || errors.Is(err, ErrAlreadyRunning))
	}
	is.True(!running.Load())
	is.Equal(IsRunning.Value(), int64(0))

	_, err = newTestRunner(1).Run(context.Background(), cases)
	is.NoErr(err)
}

func TestReportOutput(t *testing.T) {
	is := is.New(t)
	cases, err := ReadTestFilePath("testdata/known.txt")
	is.NoErr(err)
	results, err := newTestRunner(2).Run(context.Background(), cases)
	is.NoErr(err)

	var buf bytes.Buffer
	is.NoErr(NewReport(results).WriteYAML(&buf))
	var decoded map[string]any
	is.NoErr(yaml.Unmarshal(buf.Bytes(), &decoded))
	is.Equal(decoded["positions"], 20)
	is.Equal(decoded["correct"], 20)
	_, hasFailures := decoded["failures"]
	is.True(!hasFailures)

	buf.Reset()
	is.NoErr(WriteHistogram(&buf, results, 5, 40))
	is.True(strings.HasPrefix(buf.String(), "log10(nodes)\n"))
	is.True(strings.Count(buf.String(), "\n") >= 2)
}
