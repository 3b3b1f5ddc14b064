package board

import (
	"fmt"
	"strings"
)

// Cell is the content of one square of the grid.
type Cell int

const (
	Empty Cell = iota
	PlayerOneStone
	PlayerTwoStone
)

// Status is the state of the game on a board.
type Status int

const (
	Playing Status = iota
	PlayerOneWon
	PlayerTwoWon
	Drawn
)

func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case PlayerOneWon:
		return "player 1 won"
	case PlayerTwoWon:
		return "player 2 won"
	case Drawn:
		return "drawn"
	}
	return "unknown"
}

// Cell returns the content of the square at col, row (row 0 is the bottom).
func (b *Board) Cell(col, row int) Cell {
	if col < 0 || col >= Width || row < 0 || row >= Height {
		return Empty
	}
	cell := uint64(1) << (col*(Height+1) + row)
	if b.mask&cell == 0 {
		return Empty
	}
	owner := b.ToMove()
	if b.current&cell == 0 {
		owner = owner.Other()
	}
	if owner == PlayerOne {
		return PlayerOneStone
	}
	return PlayerTwoStone
}

// Status reports whether the game is still going, won or drawn.
func (b *Board) Status() Status {
	if b.HasWinner() {
		// the winner is whoever just moved
		if b.ToMove() == PlayerOne {
			return PlayerTwoWon
		}
		return PlayerOneWon
	}
	if b.mask == fullMask {
		return Drawn
	}
	return Playing
}

func (c Cell) String() string {
	switch c {
	case PlayerOneStone:
		return "X"
	case PlayerTwoStone:
		return "O"
	}
	return "."
}

// ToDisplayText renders the board for a terminal.
func (b *Board) ToDisplayText() string {
	var str strings.Builder
	str.WriteString(" ")
	for col := 0; col < Width; col++ {
		fmt.Fprintf(&str, "%d ", col+1)
	}
	str.WriteString("\n")
	for row := Height - 1; row >= 0; row-- {
		str.WriteString("|")
		for col := 0; col < Width; col++ {
			str.WriteString(b.Cell(col, row).String())
			if col < Width-1 {
				str.WriteString(" ")
			}
		}
		str.WriteString("|\n")
	}
	str.WriteString(" " + strings.Repeat("-", Width*2-1) + "\n")
	switch st := b.Status(); st {
	case Playing:
		stone := PlayerOneStone
		if b.ToMove() == PlayerTwo {
			stone = PlayerTwoStone
		}
		fmt.Fprintf(&str, "%v to move (%v), %d stones played\n", b.ToMove(), stone, b.Moves())
	default:
		fmt.Fprintf(&str, "game over: %v\n", st)
	}
	return "\n" + str.String()
}

func (b *Board) String() string {
	return b.ToDisplayText()
}
