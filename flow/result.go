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
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Point is a position in the image plane.
type Point struct {
	X float32
	Y float32
}

// Estimate is the result of processing one frame. Any of the float
// fields may be infinite or NaN when the frame doesn't constrain the
// motion (eg. no change between frames).
type Estimate struct {
	Frame int

	TTC1 float32
	TTC2 float32
	TTC3 float64
	FOE  Point

	AvgEt float32
	MaxEt float32
	Cells int
}

// Finite reports whether all three TTC values and the FOE are finite.
func (e *Estimate) Finite() bool {
	return isFinite(float64(e.TTC1)) &&
		isFinite(float64(e.TTC2)) &&
		isFinite(e.TTC3) &&
		isFinite(float64(e.FOE.X)) &&
		isFinite(float64(e.FOE.Y))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ResultSink receives an estimate for every processed frame.
type ResultSink interface {
	Publish(est *Estimate) error
}

// JSON can't represent NaN or infinities so they are written as the
// strings "NaN", "+Inf" and "-Inf".
type jsonEstimate struct {
	Frame int          `json:"frame"`
	TTC1  jsonFloat    `json:"ttc1"`
	TTC2  jsonFloat    `json:"ttc2"`
	TTC3  jsonFloat    `json:"ttc3"`
	FOE   [2]jsonFloat `json:"foe"`
	AvgEt jsonFloat    `json:"avg-et"`
	MaxEt jsonFloat    `json:"max-et"`
	Cells int          `json:"cells"`
}

func (e Estimate) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonEstimate{
		Frame: e.Frame,
		TTC1:  jsonFloat{float64(e.TTC1), 32},
		TTC2:  jsonFloat{float64(e.TTC2), 32},
		TTC3:  jsonFloat{e.TTC3, 64},
		FOE:   [2]jsonFloat{{float64(e.FOE.X), 32}, {float64(e.FOE.Y), 32}},
		AvgEt: jsonFloat{float64(e.AvgEt), 32},
		MaxEt: jsonFloat{float64(e.MaxEt), 32},
		Cells: e.Cells,
	})
}

func (e *Estimate) UnmarshalJSON(data []byte) error {
	var j jsonEstimate
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*e = Estimate{
		Frame: j.Frame,
		TTC1:  float32(j.TTC1.v),
		TTC2:  float32(j.TTC2.v),
		TTC3:  j.TTC3.v,
		FOE:   Point{X: float32(j.FOE[0].v), Y: float32(j.FOE[1].v)},
		AvgEt: float32(j.AvgEt.v),
		MaxEt: float32(j.MaxEt.v),
		Cells: j.Cells,
	}
	return nil
}

type jsonFloat struct {
	v       float64
	bitSize int
}

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	switch {
	case math.IsNaN(f.v):
		return []byte(`"NaN"`), nil
	case math.IsInf(f.v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f.v, -1):
		return []byte(`"-Inf"`), nil
	}
	bitSize := f.bitSize
	if bitSize == 0 {
		bitSize = 64
	}
	return strconv.AppendFloat(nil, f.v, 'g', -1, bitSize), nil
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "NaN":
			f.v = math.NaN()
		case "+Inf", "Inf":
			f.v = math.Inf(1)
		case "-Inf":
			f.v = math.Inf(-1)
		default:
			return fmt.Errorf("invalid number %q", s)
		}
		return nil
	}
	return json.Unmarshal(data, &f.v)
}
