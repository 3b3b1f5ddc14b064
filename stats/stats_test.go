package stats

import (
	"testing"

	"github.com/matryer/is"
)

func TestRunningStat(t *testing.T) {
	is := is.New(t)
	type tc struct {
		scores []int
		mean   float64
		stdev  float64
		min    float64
		max    float64
	}
	cases := []tc{
		{[]int{10, 12, 23, 23, 16, 23, 21, 16}, 18, 5.2372293656638, 10, 23},
		{[]int{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}, 47.2, 36.937785531891, 10, 124},
		{[]int{1}, 1, 0, 1, 1},
		{[]int{}, 0, 0, 0, 0},
		{[]int{1, 1}, 1, 0, 1, 1},
	}
	for _, c := range cases {
		s := &Statistic{}
		for _, score := range c.scores {
			s.Push(float64(score))
		}
		is.True(FuzzyEqual(s.Mean(), c.mean))
		is.True(FuzzyEqual(s.Stdev(), c.stdev))
		is.Equal(s.Min(), c.min)
		is.Equal(s.Max(), c.max)
		is.Equal(s.Iterations(), len(c.scores))
	}
}

func TestZVal(t *testing.T) {
	is := is.New(t)
	is.True(FuzzyEqual(ZVal(95), 1.959963984540054))
	is.True(FuzzyEqual(ZVal(99), 2.5758293035489004))
}

func TestSummarize(t *testing.T) {
	is := is.New(t)
	values := []float64{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}
	sum := Summarize(values, 95)
	is.Equal(sum.Count, 10)
	is.True(FuzzyEqual(sum.Mean, 47.2))
	is.True(FuzzyEqual(sum.Stdev, 36.937785531891))
	is.Equal(sum.Min, 10.0)
	is.Equal(sum.Max, 124.0)
	is.Equal(sum.Median, 33.0)
	is.Equal(sum.P90, 87.0)
	is.True(FuzzyEqual(sum.CIHalfWidth, 1.959963984540054*36.937785531891/3.1622776601683795))
	// the input is left alone
	is.Equal(values[0], 14.0)

	is.Equal(Summarize(nil, 95), Summary{})
	one := Summarize([]float64{3}, 95)
	is.Equal(one.Stdev, 0.0)
	is.Equal(one.Median, 3.0)
}
