package main

import (
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/shell"
)

var GitVersion string

//go:embed connect4.txt
var connect4banner string

func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	log.Logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// profile starts a CPU profile if one was asked for, and returns a
// function that stops it and writes the heap profile.
func profile(cfg *config.Config) (func(), error) {
	var cpu *os.File
	if path := cfg.GetString(config.ConfigCPUProfile); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("creating cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("starting cpu profile: %w", err)
		}
		cpu = f
	}
	return func() {
		if cpu != nil {
			pprof.StopCPUProfile()
			cpu.Close()
		}
		path := cfg.GetString(config.ConfigMemProfile)
		if path == "" {
			return
		}
		f, err := os.Create(path)
		if err != nil {
			log.Err(err).Msg("mem-profile")
			return
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Err(err).Msg("mem-profile")
		}
	}, nil
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// data paths may be given relative to the executable
	cfg.AdjustRelativePaths(exPath)
	setupLogging(cfg.GetBool(config.ConfigDebug))
	log.Debug().Str("exec-path", exPath).Str("book-path", cfg.GetString(config.ConfigBookPath)).Msg("loaded-config")

	stopProfile, err := profile(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("profile")
	}

	sig := make(chan os.Signal, 1)
	sc := shell.NewShellController(cfg, exPath, GitVersion)

	if line := strings.TrimSpace(strings.Join(cfg.Args(), " ")); line != "" {
		// one-shot: run the command line and leave
		sc.Execute(sig, line)
	} else {
		fmt.Println(connect4banner)
		if GitVersion != "" {
			fmt.Println(GitVersion)
		}
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		go sc.Loop(sig)
		<-sig
	}

	stopProfile()
	sc.Cleanup()
}
