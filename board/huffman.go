package board

import (
	"fmt"
	"math/bits"
)

// MaxHuffmanStones is the largest number of stones whose Huffman code is
// guaranteed to fit in 32 bits.
const MaxHuffmanStones = 12

// HuffmanCode returns the opening book code of the position, taking the
// smaller of the codes of the board and its mirror image.
//
// Columns are walked left to right, bottom to top. A stone of the player to
// move appends 10, an opponent stone appends 11 and a 0 closes the column.
// The code is finally shifted left by one. With 12 stones this uses exactly
// 7 + 24 + 1 = 32 bits.
func (b *Board) HuffmanCode() uint32 {
	c, m := b.huffmanCode(false), b.huffmanCode(true)
	if m < c {
		return m
	}
	return c
}

func (b *Board) huffmanCode(mirror bool) uint32 {
	var code uint32
	for i := 0; i < Width; i++ {
		col := i
		if mirror {
			col = Width - 1 - i
		}
		for row := 0; row <= Height; row++ {
			cell := uint64(1) << (col*(Height+1) + row)
			if b.mask&cell == 0 {
				code <<= 1
				break
			}
			if b.current&cell != 0 {
				code = code<<2 | 0b10
			} else {
				code = code<<2 | 0b11
			}
		}
	}
	return code << 1
}

// FromHuffmanCode decodes a book code holding the given number of stones.
// The decoded board has no move history.
func FromHuffmanCode(code uint32, stones int) (*Board, error) {
	nbits := Width + 2*stones + 1
	if stones < 0 || nbits > 32 {
		return nil, fmt.Errorf("cannot decode %d stones from a 32-bit code", stones)
	}
	if nbits < 32 && code>>nbits != 0 {
		return nil, fmt.Errorf("code %#x has more than %d bits", code, nbits)
	}
	pos := nbits - 1
	read := func() (uint32, bool) {
		if pos < 0 {
			return 0, false
		}
		bit := (code >> pos) & 1
		pos--
		return bit, true
	}

	b := New()
	for col := 0; col < Width; col++ {
		for row := 0; ; row++ {
			bit, ok := read()
			if !ok {
				return nil, fmt.Errorf("code %#x ended in column %d", code, col)
			}
			if bit == 0 {
				break
			}
			if row == Height {
				return nil, fmt.Errorf("code %#x overfills column %d", code, col)
			}
			owner, ok := read()
			if !ok {
				return nil, fmt.Errorf("code %#x ended in column %d", code, col)
			}
			cell := uint64(1) << (col*(Height+1) + row)
			b.mask |= cell
			if owner == 0 {
				b.current |= cell
			}
			b.heights[col]++
		}
	}
	if pos != 0 || code&1 != 0 {
		return nil, fmt.Errorf("code %#x does not end after %d stones", code, stones)
	}
	if b.Moves() != stones {
		return nil, fmt.Errorf("code %#x holds %d stones, expected %d", code, b.Moves(), stones)
	}
	// the player to move has placed the smaller half of the stones
	if bits.OnesCount64(b.current) != stones/2 {
		return nil, fmt.Errorf("code %#x has an impossible stone balance", code)
	}
	return b, nil
}
