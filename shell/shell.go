// Package shell implements the interactive Connect Four analysis shell.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/solver"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errSolving           = errors.New("the solver is busy, please wait or stop it first")
	errQuit              = errors.New("quit requested")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

type ShellController struct {
	l   *readline.Instance
	out io.Writer

	config     *config.Config
	execPath   string
	gitVersion string

	board  *board.Board
	solver *solver.Solver
	book   *book.Book

	options *ShellOptions
	logFile *os.File
	// searches run in the background while the interactive loop is up
	async bool

	sync.Mutex
	solveCancel context.CancelFunc
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController returns a controller reading lines from the
// terminal.
func NewShellController(cfg *config.Config, execPath, gitVersion string) *ShellController {
	sc := newController(cfg, execPath, gitVersion, os.Stderr)
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mconnect4>\033[0m ",
		HistoryFile:     "/tmp/connect4-readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc
}

func newController(cfg *config.Config, execPath, gitVersion string, out io.Writer) *ShellController {
	sc := &ShellController{
		out:        out,
		config:     cfg,
		execPath:   execPath,
		gitVersion: gitVersion,
		board:      board.New(),
		options:    NewShellOptions(cfg),
	}
	bk, err := book.Get(cfg)
	if err != nil {
		log.Err(err).Msg("opening-book-unavailable")
	}
	sc.book = bk
	sc.solver = solver.NewSolver(nil, bk)
	sc.solver.ApplyConfig(cfg)
	sc.options.apply(sc.solver)
	return sc
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// extractFields splits a line into a command, its positional arguments
// and its -name value options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], "-") && len(fields[i]) > 1 && !isNumber(fields[i]) {
			if i == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			opt := fields[i][1:]
			options[opt] = append(options[opt], fields[i+1])
			i++
			continue
		}
		args = append(args, fields[i])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

// isNumber lets negative numbers through as arguments.
func isNumber(s string) bool {
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (sc *ShellController) solving() bool {
	sc.Lock()
	defer sc.Unlock()
	return sc.solveCancel != nil
}

// solveContext returns the context for a search started from the shell.
// It is canceled by stop or by Ctrl-C.
func (sc *ShellController) solveContext() (context.Context, func(), error) {
	sc.Lock()
	defer sc.Unlock()
	if sc.solveCancel != nil {
		return nil, nil, errSolving
	}
	ctx, cancel := context.WithCancel(context.Background())
	sc.solveCancel = cancel
	return ctx, func() {
		sc.Lock()
		defer sc.Unlock()
		cancel()
		sc.solveCancel = nil
	}, nil
}

func (sc *ShellController) stopSolving() bool {
	sc.Lock()
	defer sc.Unlock()
	if sc.solveCancel == nil {
		return false
	}
	sc.solveCancel()
	return true
}

func (sc *ShellController) standardModeSwitch(line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "bye", "quit":
		return nil, errQuit
	case "help":
		return sc.help(cmd)
	case "new":
		return sc.newGame(cmd)
	case "play", "p":
		return sc.play(cmd)
	case "undo", "u":
		return sc.undo(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "solve":
		return sc.solve(cmd)
	case "best":
		return sc.best(cmd)
	case "analyze":
		return sc.analyze(cmd)
	case "autoplay":
		return sc.autoplay(cmd)
	case "book":
		return sc.bookCmd(cmd)
	case "set":
		return sc.set(cmd)
	case "stop":
		if !sc.stopSolving() {
			return nil, errors.New("nothing to stop")
		}
		return msg("stopping the solver"), nil
	case "script":
		return sc.script(cmd)
	default:
		log.Debug().Msgf("you said: %v", line)
		return nil, fmt.Errorf("unknown command %q; type help for a list", cmd.cmd)
	}
}

// Execute runs one command line and prints its output.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	if line == "" {
		return
	}
	resp, err := sc.standardModeSwitch(line)
	if errors.Is(err, errQuit) {
		sig <- syscall.SIGINT
		return
	}
	if err != nil {
		sc.showError(err)
		return
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()
	sc.async = true

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if sc.stopSolving() {
				continue
			}
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "exit" || line == "bye" || line == "quit" {
			sig <- syscall.SIGINT
			break
		}
		sc.Execute(sig, line)
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// Cleanup stops any search and closes the trace file.
func (sc *ShellController) Cleanup() {
	sc.stopSolving()
	if sc.logFile != nil {
		if err := sc.logFile.Close(); err != nil {
			log.Err(err).Msg("closing-log-file")
		}
	}
	log.Info().Msg("shell-cleaned-up")
}
