package board

import "lukechampine.com/frand"

// Random plays random moves from the empty board until it holds the given
// number of stones, never completing four. The result is a game in
// progress, or a draw when stones is NumCells. It starts over whenever
// every legal move would end the game early.
func Random(stones int) *Board {
	if stones < 0 || stones > NumCells {
		panic("stone count out of range")
	}
	candidates := make([]int, 0, Width)
	for {
		b := New()
		for b.Moves() < stones {
			candidates = candidates[:0]
			for col := 0; col < Width; col++ {
				if b.CanPlay(col) && !b.IsWinningMove(col) {
					candidates = append(candidates, col)
				}
			}
			if len(candidates) == 0 {
				break
			}
			if err := b.Play(candidates[frand.Intn(len(candidates))]); err != nil {
				panic(err)
			}
		}
		if b.Moves() == stones {
			return b
		}
	}
}
