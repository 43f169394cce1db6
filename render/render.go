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

// Package render lays out the on-screen TTC display: one bar per
// method, a focus of expansion marker and text readouts.
package render

import (
	"fmt"
	"math"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
)

const (
	sideBorder = 200
	barsAcross = 25

	barScale     = 10
	barMaxHeight = 600
	barMargin    = 2

	foeMarkerSize = 30
)

// Rect is a rectangle in canvas pixels, with y increasing downwards.
type Rect struct {
	Left   float32 `json:"left"`
	Top    float32 `json:"top"`
	Right  float32 `json:"right"`
	Bottom float32 `json:"bottom"`
}

// Layout maps estimates from a rows x cols frame on to a canvas.
type Layout struct {
	CanvasWidth  int
	CanvasHeight int
	Rows         int
	Cols         int
}

// ImageWidth is the width of the camera image on the canvas.
func (l Layout) ImageWidth() int {
	return l.CanvasWidth - sideBorder
}

func (l Layout) Margin() int {
	return (l.CanvasWidth - l.ImageWidth()) / 2
}

func (l Layout) BarWidth() float32 {
	return float32(l.ImageWidth()) / barsAcross
}

// BarHeights returns the unscaled heights of the three TTC bars.
func BarHeights(est *flow.Estimate) [3]float32 {
	return [3]float32{
		abs32(est.TTC1),
		abs32(est.TTC2 / 10),
		abs32(float32(est.TTC3) * 1000),
	}
}

// Bar returns the rectangle for bar i (0, 1 or 2, left to right) with
// the given height. Bars stand on the bottom of the canvas and are
// capped at 600 pixels. A NaN height draws an empty bar.
func (l Layout) Bar(i int, height float32) Rect {
	k := 3 - i
	barWidth := l.BarWidth()
	left := float32(int(float32(l.ImageWidth()-k*l.Margin()) - float32(k)*barWidth))

	h := float32(0)
	if !math.IsNaN(float64(height)) {
		h = min(barMaxHeight, abs32(height)*barScale)
	}
	bottom := float32(l.CanvasHeight)
	return Rect{
		Left:   left,
		Top:    bottom - h - barMargin,
		Right:  left + barWidth,
		Bottom: bottom,
	}
}

// FOE returns the marker for a focus of expansion, and false if the
// point isn't drawn. Only finite points with both coordinates positive
// are drawn.
func (l Layout) FOE(p flow.Point) (Rect, bool) {
	if !(p.X > 0 && p.Y > 0) || math.IsInf(float64(p.X), 0) || math.IsInf(float64(p.Y), 0) {
		return Rect{}, false
	}
	bottom := p.Y / float32(l.Cols) * float32(l.CanvasHeight)
	left := p.X / float32(l.Rows) * float32(l.ImageWidth())
	return Rect{
		Left:   left,
		Top:    bottom - foeMarkerSize,
		Right:  left + foeMarkerSize,
		Bottom: bottom,
	}, true
}

// TextLines returns the readouts shown at the top of the display.
func TextLines(est *flow.Estimate) []string {
	return []string{
		fmt.Sprintf("TTC1: %v", est.TTC1),
		fmt.Sprintf("TTC2: %v", est.TTC2),
		fmt.Sprintf("TTC3: %v", est.TTC3),
		fmt.Sprintf("FOE: (%v, %v)", est.FOE.X, est.FOE.Y),
	}
}

// Overlay is everything drawn for one estimate.
type Overlay struct {
	Bars  [3]Rect  `json:"bars"`
	FOE   *Rect    `json:"foe,omitempty"`
	Lines []string `json:"lines"`
}

func (l Layout) Overlay(est *flow.Estimate) *Overlay {
	o := &Overlay{Lines: TextLines(est)}
	for i, h := range BarHeights(est) {
		o.Bars[i] = l.Bar(i, h)
	}
	if r, ok := l.FOE(est.FOE); ok {
		o.FOE = &r
	}
	return o
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
