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

import "math"

// TestFrameMaker generates textured frames and feeds them to an
// Estimator, recording the estimates.
type TestFrameMaker struct {
	estimator *Estimator
	rows      int
	cols      int
	scale     float64
	shiftRow  float64
	shiftCol  float64
	Estimates []Estimate
}

func MakeTestFrameMaker(estimator *Estimator) *TestFrameMaker {
	return &TestFrameMaker{
		estimator: estimator,
		rows:      estimator.Rows(),
		cols:      estimator.Cols(),
		scale:     1,
	}
}

// AddStillFrames plays frames identical to the last one.
func (tfm *TestFrameMaker) AddStillFrames(frames int) *TestFrameMaker {
	for i := 0; i < frames; i++ {
		tfm.PlayFrame(tfm.MakeFrame())
	}
	return tfm
}

// AddShiftingFrames moves the texture by (dRow, dCol) pixels per frame.
func (tfm *TestFrameMaker) AddShiftingFrames(frames int, dRow, dCol float64) *TestFrameMaker {
	for i := 0; i < frames; i++ {
		tfm.shiftRow += dRow
		tfm.shiftCol += dCol
		tfm.PlayFrame(tfm.MakeFrame())
	}
	return tfm
}

// AddZoomingFrames magnifies the texture about the top left pixel by
// factor per frame.
func (tfm *TestFrameMaker) AddZoomingFrames(frames int, factor float64) *TestFrameMaker {
	for i := 0; i < frames; i++ {
		tfm.scale *= factor
		tfm.PlayFrame(tfm.MakeFrame())
	}
	return tfm
}

func (tfm *TestFrameMaker) PlayFrame(frame *Frame) {
	est, err := tfm.estimator.ProcessFrame(frame)
	if err != nil {
		panic(err)
	}
	tfm.Estimates = append(tfm.Estimates, est)
}

// Last returns the most recent estimate.
func (tfm *TestFrameMaker) Last() Estimate {
	return tfm.Estimates[len(tfm.Estimates)-1]
}

// MakeFrame renders the texture at the current shift and scale.
func (tfm *TestFrameMaker) MakeFrame() *Frame {
	frame := NewFrame(tfm.rows, tfm.cols)
	for i := 0; i < tfm.rows; i++ {
		for j := 0; j < tfm.cols; j++ {
			r := float64(i)/tfm.scale - tfm.shiftRow
			c := float64(j)/tfm.scale - tfm.shiftCol
			frame.Set(i, j, float32(Texture(r, c)))
		}
	}
	return frame
}

// Texture is a smooth brightness pattern in [0.2, 0.8].
func Texture(r, c float64) float64 {
	return 0.5 + 0.2*math.Sin(0.15*r+0.1*c) + 0.1*math.Cos(0.05*r-0.12*c)
}
