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

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// CrossCheck compares the closed form method 2 solution with the
// alternative closed forms for b2 and a2 and with a direct solve of
// the normal equations
//
//	a*ExEx + b*ExEy + c*GEx = -ExEt
//	a*ExEy + b*EyEy + c*GEy = -EyEt
//	a*GEx  + b*GEy  + c*GG  = -GEt
//
// All values are in double precision.
type CrossCheck struct {
	A2, B2, C2 float64

	// Alternative closed forms.
	B2Alt  float64
	A2Alt1 float64
	A2Alt2 float64

	// Direct solution of the normal equations.
	Solved [3]float64
}

// NewCrossCheck evaluates the alternative method 2 solutions for s. An
// error is returned if the normal equations are singular.
func NewCrossCheck(s *Sums) (*CrossCheck, error) {
	c2 := float64(s.c2())
	b2 := float64(s.b2(float32(c2)))
	cc := &CrossCheck{
		C2: c2,
		B2: b2,
		A2: float64(s.a2(float32(b2), float32(c2))),
	}

	exex, exey, eyey := float64(s.ExEx), float64(s.ExEy), float64(s.EyEy)
	gex, gey, gg := float64(s.GEx), float64(s.GEy), float64(s.GG)
	exet, eyet, get := float64(s.ExEt), float64(s.EyEt), float64(s.GEt)

	cc.B2Alt = (-get*exey + eyet*gex - c2*(gg*exey-gey*gex)) / (gey*exey - eyey*gex)
	cc.A2Alt1 = (-eyet - b2*eyey - c2*gey) / exey
	cc.A2Alt2 = (-get - b2*gey - c2*gg) / gex

	a := mat.NewDense(3, 3, []float64{
		exex, exey, gex,
		exey, eyey, gey,
		gex, gey, gg,
	})
	rhs := mat.NewVecDense(3, []float64{-exet, -eyet, -get})
	var x mat.VecDense
	if err := x.SolveVec(a, rhs); err != nil {
		return cc, fmt.Errorf("normal equations: %w", err)
	}
	for i := range cc.Solved {
		cc.Solved[i] = x.AtVec(i)
	}
	return cc, nil
}

// MaxRelError returns the largest relative difference between the
// closed form (a2, b2, c2) and the alternatives.
func (cc *CrossCheck) MaxRelError() float64 {
	worst := 0.0
	for _, p := range [][2]float64{
		{cc.B2, cc.B2Alt},
		{cc.A2, cc.A2Alt1},
		{cc.A2, cc.A2Alt2},
		{cc.A2, cc.Solved[0]},
		{cc.B2, cc.Solved[1]},
		{cc.C2, cc.Solved[2]},
	} {
		worst = math.Max(worst, relError(p[0], p[1]))
	}
	return worst
}

func relError(want, got float64) float64 {
	if want == got {
		return 0
	}
	scale := math.Max(math.Abs(want), math.Abs(got))
	return math.Abs(want-got) / scale
}

func (cc *CrossCheck) String() string {
	return fmt.Sprintf("a2=%g/%g/%g/%g b2=%g/%g/%g c2=%g/%g",
		cc.A2, cc.A2Alt1, cc.A2Alt2, cc.Solved[0],
		cc.B2, cc.B2Alt, cc.Solved[1],
		cc.C2, cc.Solved[2])
}
