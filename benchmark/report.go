package benchmark

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/domino14/connect4/stats"
)

const confidenceLevel = 95

// Failure is a case that was not solved to its label.
type Failure struct {
	Moves    string `yaml:"moves"`
	Line     int    `yaml:"line,omitempty"`
	Expected int    `yaml:"expected"`
	Score    int    `yaml:"score"`
	TimedOut bool   `yaml:"timed_out,omitempty"`
}

// Report aggregates the results of a run.
type Report struct {
	Positions  int   `yaml:"positions"`
	Labelled   int   `yaml:"labelled"`
	Correct    int   `yaml:"correct"`
	TimedOut   int   `yaml:"timed_out"`
	TotalNodes int64 `yaml:"total_nodes"`
	// summed over positions, so it exceeds the wall time with several workers
	TotalTime      time.Duration `yaml:"total_time"`
	NodesPerSecond float64       `yaml:"nodes_per_second"`

	Nodes        stats.Summary `yaml:"nodes"`
	Microseconds stats.Summary `yaml:"microseconds"`
	Failures     []Failure     `yaml:"failures,omitempty"`
}

// NewReport summarizes results.
func NewReport(results []Result) *Report {
	rep := &Report{
		Positions: len(results),
		Labelled:  lo.CountBy(results, func(r Result) bool { return r.Case.Labelled }),
		Correct:   lo.CountBy(results, func(r Result) bool { return r.Case.Labelled && r.Correct() }),
		TimedOut:  lo.CountBy(results, func(r Result) bool { return r.TimedOut }),
		TotalNodes: lo.SumBy(results, func(r Result) int64 {
			return int64(r.Nodes)
		}),
		TotalTime: lo.SumBy(results, func(r Result) time.Duration { return r.Duration }),
	}
	if rep.TotalTime > 0 {
		rep.NodesPerSecond = float64(rep.TotalNodes) / rep.TotalTime.Seconds()
	}

	// timed-out positions would drag the summaries down to the budget
	solved := lo.Filter(results, func(r Result, _ int) bool { return !r.TimedOut })
	rep.Nodes = stats.Summarize(nodeCounts(solved), confidenceLevel)
	rep.Microseconds = stats.Summarize(lo.Map(solved, func(r Result, _ int) float64 {
		return float64(r.Duration.Microseconds())
	}), confidenceLevel)

	rep.Failures = lo.FilterMap(results, func(r Result, _ int) (Failure, bool) {
		return Failure{
			Moves:    r.Case.Moves,
			Line:     r.Case.Line,
			Expected: r.Case.Score,
			Score:    r.Score,
			TimedOut: r.TimedOut,
		}, !r.Correct()
	})
	return rep
}

func nodeCounts(results []Result) []float64 {
	return lo.Map(results, func(r Result, _ int) float64 { return float64(r.Nodes) })
}

// OK returns whether every position was solved, to its label if it had one.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// WriteYAML writes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func (r *Report) String() string {
	return fmt.Sprintf("%d positions, %d/%d labelled correct, %d timed out, %d nodes, %.0f nodes/s, mean %.1f us (±%.1f)",
		r.Positions, r.Correct, r.Labelled, r.TimedOut, r.TotalNodes, r.NodesPerSecond,
		r.Microseconds.Mean, r.Microseconds.CIHalfWidth)
}

// WriteHistogram draws the distribution of log10 node counts of the
// solved positions.
func WriteHistogram(w io.Writer, results []Result, bins, width int) error {
	counts := lo.FilterMap(results, func(r Result, _ int) (float64, bool) {
		return math.Log10(float64(max(r.Nodes, 1))), !r.TimedOut
	})
	if len(counts) == 0 {
		return nil
	}
	fmt.Fprintln(w, "log10(nodes)")
	h := histogram.Hist(bins, counts)
	return histogram.Fprint(w, h, histogram.Linear(width))
}
