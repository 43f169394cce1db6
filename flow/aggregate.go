// ttc-estimator - estimate time to collision from camera frames
//  Copyright (C) 2020, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package flow

// BlockSize is the edge length of the square tiles gradients are
// averaged over.
const BlockSize = 4

// NewBlockGrid returns a grid sized for gradients of rows x cols pixels.
func NewBlockGrid(rows, cols int) *BlockGrid {
	br := (rows + BlockSize - 1) / BlockSize
	bc := (cols + BlockSize - 1) / BlockSize
	return &BlockGrid{
		Rows: br,
		Cols: bc,
		Ex:   make([]float32, br*bc),
		Ey:   make([]float32, br*bc),
		Et:   make([]float32, br*bc),
	}
}

// BlockGrid is the downsampled gradient field. Each cell is the mean of
// the current and previous gradients over one block of pixels.
type BlockGrid struct {
	Rows int
	Cols int
	Ex   []float32
	Ey   []float32
	Et   []float32

	// AvgEt is the mean of Et over all cells and MaxEt the largest
	// absolute Et.
	AvgEt float32
	MaxEt float32
}

// Index returns the offset of cell (a, b) in Ex, Ey and Et.
func (bg *BlockGrid) Index(a, b int) int {
	return a*bg.Cols + b
}

// Aggregate averages g over BlockSize x BlockSize tiles starting at the
// top left corner. Tiles on the bottom and right edges are truncated
// when the frame size isn't a multiple of BlockSize and are averaged
// over the cells they actually contain.
func (bg *BlockGrid) Aggregate(g *GradientField) error {
	wantRows := (g.rows + BlockSize - 1) / BlockSize
	wantCols := (g.cols + BlockSize - 1) / BlockSize
	if wantRows != bg.Rows || wantCols != bg.Cols {
		return &ShapeError{WantRows: bg.Rows, WantCols: bg.Cols, GotRows: wantRows, GotCols: wantCols}
	}

	rows, cols := g.rows, g.cols
	var avgEt, maxEt float32
	a := 0
	for i := 0; i < rows; i += BlockSize {
		iEnd := min(i+BlockSize, rows)
		b := 0
		for j := 0; j < cols; j += BlockSize {
			jEnd := min(j+BlockSize, cols)

			var xSum, ySum, tSum float32
			for y := i; y < iEnd; y++ {
				for x := j; x < jEnd; x++ {
					k := y*cols + x
					xSum += g.Ex[k] + g.PrevEx[k]
					ySum += g.Ey[k] + g.PrevEy[k]
					tSum += g.Et[k] + g.PrevEt[k]
				}
			}
			n := float32(2 * (iEnd - i) * (jEnd - j))
			tAvg := tSum / n

			c := bg.Index(a, b)
			bg.Ex[c] = xSum / n
			bg.Ey[c] = ySum / n
			bg.Et[c] = tAvg

			avgEt += tAvg
			maxEt = max(abs32(tAvg), maxEt)
			b++
		}
		a++
	}

	bg.AvgEt = avgEt / float32(bg.Rows*bg.Cols)
	bg.MaxEt = maxEt
	return nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
