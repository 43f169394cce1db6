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

func NewGradientField(rows, cols int) *GradientField {
	n := rows * cols
	return &GradientField{
		rows:   rows,
		cols:   cols,
		Ex:     make([]float32, n),
		Ey:     make([]float32, n),
		Et:     make([]float32, n),
		PrevEx: make([]float32, n),
		PrevEy: make([]float32, n),
		PrevEt: make([]float32, n),
	}
}

// GradientField holds the brightness derivatives of the current frame
// along with those computed on the previous call to Compute. All slices
// are row-major, rows*cols long.
//
// Ex is the difference to the next row and is zero on the last row. Ey
// is the difference to the next column and is zero on the last column.
// Et is the difference to the previous frame.
type GradientField struct {
	rows int
	cols int

	Ex []float32
	Ey []float32
	Et []float32

	PrevEx []float32
	PrevEy []float32
	PrevEt []float32
}

// Compute keeps the existing gradients as the previous gradients and
// recomputes Ex, Ey and Et from the frames in fb.
func (g *GradientField) Compute(fb *FrameBuffer) error {
	cur, prev := fb.Current(), fb.Previous()
	if cur.Rows != g.rows || cur.Cols != g.cols {
		return &ShapeError{WantRows: g.rows, WantCols: g.cols, GotRows: cur.Rows, GotCols: cur.Cols}
	}

	g.Ex, g.PrevEx = g.PrevEx, g.Ex
	g.Ey, g.PrevEy = g.PrevEy, g.Ey
	g.Et, g.PrevEt = g.PrevEt, g.Et

	rows, cols := g.rows, g.cols
	e := cur.Pix
	for i := 0; i < rows; i++ {
		row := i * cols
		for j := 0; j < cols; j++ {
			k := row + j
			if i == rows-1 {
				g.Ex[k] = 0
			} else {
				g.Ex[k] = e[k] - e[k+cols]
			}
			if j == cols-1 {
				g.Ey[k] = 0
			} else {
				g.Ey[k] = e[k] - e[k+1]
			}
			g.Et[k] = e[k] - prev.Pix[k]
		}
	}
	return nil
}

func (g *GradientField) Rows() int {
	return g.rows
}

func (g *GradientField) Cols() int {
	return g.cols
}
