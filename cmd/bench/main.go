// Command bench solves the positions of a test file, or random positions,
// and reports node counts and timings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/domino14/connect4/benchmark"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/config"
)

const (
	flagFile    = "file"
	flagWorkers = "workers"
	flagReport  = "report"
	flagRandom  = "random"
	flagStones  = "stones"
	flagHist    = "histogram"
)

func benchFlags(fs *pflag.FlagSet) {
	fs.String(flagFile, "", "test file with lines of <moves> <score>")
	fs.Int(flagWorkers, 0, "positions solved in parallel; 0 for one per CPU")
	fs.String(flagReport, "", "write a YAML report to this file")
	fs.Int(flagRandom, 0, "solve this many random positions instead of a test file")
	fs.Int(flagStones, 30, "stones in each random position")
	fs.Bool(flagHist, true, "print a histogram of node counts")
}

func main() {
	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:], benchFlags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("bench-failed")
	}
}

func run(cfg *config.Config) error {
	var cases []benchmark.TestCase
	if n := cfg.GetInt(flagRandom); n > 0 {
		cases = benchmark.RandomCases(n, cfg.GetInt(flagStones))
	} else {
		path := cfg.GetString(flagFile)
		if path == "" {
			return fmt.Errorf("pass --%s or --%s", flagFile, flagRandom)
		}
		var err error
		cases, err = benchmark.ReadTestFilePath(path)
		if err != nil {
			return err
		}
	}

	bk, err := book.Get(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := benchmark.NewRunner(cfg, bk, cfg.GetInt(flagWorkers))
	log.Info().Int("positions", len(cases)).Int("workers", runner.Workers).
		Int("ttable-size", runner.TableSize).Msg("benchmark-starting")
	start := time.Now()
	results, err := runner.Run(ctx, cases)
	if err != nil {
		return err
	}
	rep := benchmark.NewReport(results)
	log.Info().Float64("wall-time-sec", time.Since(start).Seconds()).Msg("benchmark-done")
	fmt.Println(rep.String())

	if cfg.GetBool(flagHist) {
		if err := benchmark.WriteHistogram(os.Stdout, results, 12, 50); err != nil {
			return err
		}
	}
	if path := cfg.GetString(flagReport); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := rep.WriteYAML(f); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("wrote-report")
	}
	if !rep.OK() {
		return fmt.Errorf("%d position(s) failed", len(rep.Failures))
	}
	return nil
}
