package shell

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/solver"
)

// ShellOptions are the solver settings that can be changed with set.
type ShellOptions struct {
	transpositionTable bool
	openingBook        bool
	dynamicOrderMaxPly int
	nodeBudget         uint64
	timeLimit          time.Duration
	logFile            string
}

var optionNames = []string{"ttable", "book", "dynamic-ply", "node-budget", "time-limit", "log"}

func NewShellOptions(cfg *config.Config) *ShellOptions {
	return &ShellOptions{
		transpositionTable: true,
		openingBook:        true,
		dynamicOrderMaxPly: cfg.GetInt(config.ConfigDynamicOrderMaxPly),
		nodeBudget:         cfg.GetUint64(config.ConfigNodeBudget),
		timeLimit:          cfg.GetDuration(config.ConfigTimeLimit),
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("%q is not on or off", s)
}

// Show returns the name and current value of an option.
func (opts *ShellOptions) Show(key string) (bool, string) {
	switch key {
	case "ttable":
		return true, onOff(opts.transpositionTable)
	case "book":
		return true, onOff(opts.openingBook)
	case "dynamic-ply":
		return true, strconv.Itoa(opts.dynamicOrderMaxPly)
	case "node-budget":
		return true, strconv.FormatUint(opts.nodeBudget, 10)
	case "time-limit":
		return true, opts.timeLimit.String()
	case "log":
		if opts.logFile == "" {
			return true, "off"
		}
		return true, opts.logFile
	}
	return false, "No such option: " + key
}

func (opts *ShellOptions) ToDisplayText() string {
	var sb strings.Builder
	for _, name := range optionNames {
		_, val := opts.Show(name)
		fmt.Fprintf(&sb, "%-12s %s\n", name+":", val)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Set changes an option and returns its new value as text.
func (sc *ShellController) Set(key string, values []string) (string, error) {
	if len(values) != 1 {
		return "", errors.New("usage: set <option> <value>")
	}
	val := values[0]
	opts := sc.options
	switch key {
	case "ttable":
		b, err := parseOnOff(val)
		if err != nil {
			return "", err
		}
		opts.transpositionTable = b
	case "book":
		b, err := parseOnOff(val)
		if err != nil {
			return "", err
		}
		opts.openingBook = b
	case "dynamic-ply":
		n, err := strconv.Atoi(val)
		if err != nil {
			return "", err
		}
		if n < 0 {
			return "", errors.New("dynamic-ply cannot be negative")
		}
		opts.dynamicOrderMaxPly = n
	case "node-budget":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return "", err
		}
		opts.nodeBudget = n
	case "time-limit":
		d, err := time.ParseDuration(val)
		if err != nil {
			return "", err
		}
		if d < 0 {
			return "", errors.New("time-limit cannot be negative")
		}
		opts.timeLimit = d
	case "log":
		if err := sc.setLogFile(val); err != nil {
			return "", err
		}
	default:
		return "", errors.New("option " + key + " not recognized")
	}
	opts.apply(sc.solver)
	_, ret := opts.Show(key)
	return ret, nil
}

func (sc *ShellController) setLogFile(path string) error {
	if sc.logFile != nil {
		if err := sc.logFile.Close(); err != nil {
			return err
		}
		sc.logFile = nil
	}
	if off, err := parseOnOff(path); err == nil && !off {
		sc.options.logFile = ""
		sc.solver.SetLogStream(nil)
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	sc.logFile = f
	sc.options.logFile = path
	sc.solver.SetLogStream(f)
	return nil
}

func (opts *ShellOptions) apply(s *solver.Solver) {
	s.SetTranspositionTableOptim(opts.transpositionTable)
	s.SetOpeningBookOptim(opts.openingBook)
	s.SetDynamicOrderMaxPly(opts.dynamicOrderMaxPly)
	s.SetNodeBudget(opts.nodeBudget)
	s.SetTimeLimit(opts.timeLimit)
}
