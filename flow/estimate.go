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

// Sums are the accumulated products of the block gradients over the
// cells that pass the temporal threshold. x and y are the block row and
// column indices, and G = x*Ex + y*Ey.
type Sums struct {
	Cells int

	G    float32
	GG   float32
	ExEy float32
	GEx  float32
	GEy  float32
	GEt  float32
	ExEx float32
	EyEy float32
	EyEt float32
	ExEt float32
	GGXY float32
	GXEt float32
	GYEt float32
	GGX  float32
	GGY  float32
	GGXX float32
	GGYY float32
}

// Accumulate sums the products over every cell whose |Ey| is strictly
// greater than |AvgEt|.
//
// Note that the raw block indices are used as the position of a cell,
// not pixel coordinates.
func Accumulate(bg *BlockGrid) Sums {
	var s Sums
	threshold := abs32(bg.AvgEt)
	for a := 0; a < bg.Rows; a++ {
		x := float32(a)
		for b := 0; b < bg.Cols; b++ {
			c := bg.Index(a, b)
			ex, ey, et := bg.Ex[c], bg.Ey[c], bg.Et[c]
			if !(abs32(ey) > threshold) {
				continue
			}
			y := float32(b)
			g := x*ex + y*ey

			s.Cells++
			s.G += g
			s.GG += g * g
			s.ExEy += ex * ey
			s.GEx += g * ex
			s.GEy += g * ey
			s.GEt += g * et
			s.ExEx += ex * ex
			s.EyEy += ey * ey
			s.EyEt += ey * et
			s.ExEt += ex * et
			s.GGXY += g * g * x * y
			s.GXEt += g * x * et
			s.GYEt += g * y * et
			s.GGX += g * g * x
			s.GGY += g * g * y
			s.GGXX += g * g * x * x
			s.GGYY += g * g * y * y
		}
	}
	return s
}

// Solve computes the three time to collision estimates and the focus of
// expansion. Zero denominators are not guarded: they give infinities or
// NaNs in the result.
func (s *Sums) Solve() Estimate {
	var est Estimate
	est.Cells = s.Cells

	// Method 1: constant flow scaling only.
	est.TTC1 = -s.GG / s.GEt

	// Method 2: translation plus scaling, which also gives the FOE.
	c2 := s.c2()
	est.TTC2 = 1 / c2
	b2 := s.b2(c2)
	a2 := s.a2(b2, c2)
	est.FOE = Point{X: -a2 / c2, Y: -b2 / c2}

	// Method 3: position dependent scaling. The squared position terms
	// have a wide range so this is done in double precision.
	est.TTC3 = 1 / s.c3()

	return est
}

func (s *Sums) exEyDet() float32 {
	return s.ExEx*s.EyEy - s.ExEy*s.ExEy
}

func (s *Sums) c2() float32 {
	det := s.exEyDet()
	cross := s.GEy*s.ExEy - s.EyEy*s.GEx
	n1 := (-s.GEt*s.ExEy + s.EyEt*s.GEx) * det
	n2 := (-s.EyEt*s.ExEx + s.ExEt*s.ExEy) * cross
	d1 := (s.GG*s.ExEy - s.GEy*s.GEx) * det
	d2 := (s.GEy*s.ExEx - s.GEx*s.ExEy) * cross
	return (n1 - n2) / (d1 - d2)
}

func (s *Sums) b2(c2 float32) float32 {
	n := -s.EyEt*s.ExEx + s.ExEt*s.ExEy - c2*(s.GEy*s.ExEx-s.GEx*s.ExEy)
	return n / s.exEyDet()
}

func (s *Sums) a2(b2, c2 float32) float32 {
	return (-s.ExEt - b2*s.ExEy - c2*s.GEx) / s.ExEx
}

func (s *Sums) c3() float64 {
	gg := float64(s.GG)
	ggxy := float64(s.GGXY)
	ggx := float64(s.GGX)
	ggy := float64(s.GGY)
	ggxx := float64(s.GGXX)
	ggyy := float64(s.GGYY)
	get := float64(s.GEt)
	gxet := float64(s.GXEt)
	gyet := float64(s.GYEt)

	det := ggyy*ggxx - ggxy*ggxy
	num1 := (-get*ggxy + gyet*ggx) * det
	num2 := (-gyet*ggxx + gxet*ggxy) * (ggy*ggxy - ggyy*ggxx)
	den1 := (gg*ggxy - ggy*ggx) * det
	den2 := (ggy*ggxx - ggx*ggxy) * (ggy*ggxy - ggyy*ggx)
	return (num1 - num2) / (den1 - den2)
}

// Solve runs the motion estimator over a block grid. It has no state and
// gives identical results for identical grids.
func Solve(bg *BlockGrid) Estimate {
	s := Accumulate(bg)
	est := s.Solve()
	est.AvgEt = bg.AvgEt
	est.MaxEt = bg.MaxEt
	return est
}
