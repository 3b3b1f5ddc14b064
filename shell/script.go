package shell

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"

	"github.com/domino14/connect4/board"
)

func getShell(L *lua.LState) *ShellController {
	shell := L.GetGlobal("connect4_shell")
	ud, ok := shell.(*lua.LUserData)
	if !ok {
		panic("luserdata not right type")
	}
	sc, ok := ud.Value.(*ShellController)
	if !ok {
		panic("shellcontroller not right type")
	}
	return sc
}

// pushError follows the Lua convention of returning nil and a message.
func pushError(L *lua.LState, op string, err error) int {
	log.Err(err).Msg("error-executing-" + op)
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

// runCommand calls a shell command and returns its text output.
func runCommand(L *lua.LState, op string, fn func(*shellcmd) (*Response, error), args ...string) int {
	r, err := fn(&shellcmd{cmd: op, args: args, options: CmdOptions{}})
	if err != nil {
		return pushError(L, op, err)
	}
	L.Push(lua.LString(r.message))
	return 1
}

func New(L *lua.LState) int {
	sc := getShell(L)
	return runCommand(L, "new", sc.newGame)
}

func Play(L *lua.LState) int {
	sc := getShell(L)
	return runCommand(L, "play", sc.play, L.CheckString(1))
}

func Undo(L *lua.LState) int {
	sc := getShell(L)
	return runCommand(L, "undo", sc.undo)
}

func Set(L *lua.LState) int {
	sc := getShell(L)
	return runCommand(L, "set", sc.set, L.CheckString(1), L.CheckString(2))
}

func Moves(L *lua.LState) int {
	L.Push(lua.LString(getShell(L).currentBoard().MoveString()))
	return 1
}

// scriptSearch runs a search synchronously on a copy of the board.
func scriptSearch(sc *ShellController, fn func(ctx context.Context, b *board.Board) error) error {
	ctx, done, err := sc.solveContext()
	if err != nil {
		return err
	}
	defer done()
	return fn(ctx, sc.currentBoard().Copy())
}

func Solve(L *lua.LState) int {
	sc := getShell(L)
	var score int
	err := scriptSearch(sc, func(ctx context.Context, b *board.Board) error {
		var err error
		score, err = sc.solver.Solve(ctx, b)
		return err
	})
	if err != nil {
		return pushError(L, "solve", budgetText(err))
	}
	L.Push(lua.LNumber(score))
	return 1
}

func Best(L *lua.LState) int {
	sc := getShell(L)
	var col, score int
	err := scriptSearch(sc, func(ctx context.Context, b *board.Board) error {
		var err error
		col, score, err = sc.solver.BestMove(ctx, b)
		return err
	})
	if err != nil {
		return pushError(L, "best", budgetText(err))
	}
	L.Push(lua.LNumber(col + 1))
	L.Push(lua.LNumber(score))
	return 2
}

// Analyze returns a table indexed by 1-based column. Full columns are
// left out.
func Analyze(L *lua.LState) int {
	sc := getShell(L)
	tbl := L.NewTable()
	err := scriptSearch(sc, func(ctx context.Context, b *board.Board) error {
		scores, err := sc.solver.Analyze(ctx, b)
		if err != nil {
			return err
		}
		for _, c := range scores {
			if c.Playable {
				tbl.RawSetInt(c.Column+1, lua.LNumber(c.Score))
			}
		}
		return nil
	})
	if err != nil {
		return pushError(L, "analyze", budgetText(err))
	}
	L.Push(tbl)
	return 1
}

func (sc *ShellController) script(cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return nil, errors.New("need arguments for script")
	}
	filepath := cmd.args[0]

	L := lua.NewState()
	defer L.Close()
	luajson.Preload(L)

	lsc := L.NewUserData()
	lsc.Value = sc

	L.SetGlobal("connect4_shell", lsc)
	L.SetGlobal("connect4_new", L.NewFunction(New))
	L.SetGlobal("connect4_play", L.NewFunction(Play))
	L.SetGlobal("connect4_undo", L.NewFunction(Undo))
	L.SetGlobal("connect4_moves", L.NewFunction(Moves))
	L.SetGlobal("connect4_set", L.NewFunction(Set))
	L.SetGlobal("connect4_solve", L.NewFunction(Solve))
	L.SetGlobal("connect4_best", L.NewFunction(Best))
	L.SetGlobal("connect4_analyze", L.NewFunction(Analyze))

	if err := L.DoFile(filepath); err != nil {
		log.Err(err).Msg("there was a error")
		return nil, err
	}
	return msg("ran " + filepath), nil
}
