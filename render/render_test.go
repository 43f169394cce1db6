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

package render

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
)

func testLayout() Layout {
	return Layout{
		CanvasWidth:  1280,
		CanvasHeight: 720,
		Rows:         flow.DefaultRows,
		Cols:         flow.DefaultCols,
	}
}

func TestLayoutDimensions(t *testing.T) {
	l := testLayout()
	assert.Equal(t, 1080, l.ImageWidth())
	assert.Equal(t, 100, l.Margin())
	assert.InDelta(t, 43.2, l.BarWidth(), 1e-4)
}

func TestBarHeights(t *testing.T) {
	est := &flow.Estimate{TTC1: -12.5, TTC2: 40, TTC3: -0.002}
	h := BarHeights(est)
	assert.Equal(t, float32(12.5), h[0])
	assert.Equal(t, float32(4), h[1])
	assert.InDelta(t, 2, h[2], 1e-6)
}

func TestBarHeightScalesTTC3InSinglePrecision(t *testing.T) {
	h := BarHeights(&flow.Estimate{TTC3: 0.123456789})
	assert.Equal(t, float32(123.456795), h[2])
	assert.NotEqual(t, float32(123.456789), h[2])
}

func TestBars(t *testing.T) {
	l := testLayout()

	r := l.Bar(0, 12.5)
	assert.Equal(t, float32(650), r.Left)
	assert.InDelta(t, 693.2, r.Right, 1e-3)
	assert.Equal(t, float32(720), r.Bottom)
	assert.Equal(t, float32(720-125-2), r.Top)

	assert.Equal(t, float32(793), l.Bar(1, 1).Left)
	assert.Equal(t, float32(936), l.Bar(2, 1).Left)

	// Capped at 600 pixels.
	assert.Equal(t, float32(118), l.Bar(0, 100).Top)
	assert.Equal(t, float32(118), l.Bar(0, float32(math.Inf(1))).Top)

	// Negative heights are drawn by magnitude.
	assert.Equal(t, l.Bar(1, 3), l.Bar(1, -3))

	// Only the margin is drawn for NaN.
	assert.Equal(t, float32(718), l.Bar(2, float32(math.NaN())).Top)
}

func TestFOE(t *testing.T) {
	l := testLayout()

	r, ok := l.FOE(flow.Point{X: 240, Y: 320})
	require.True(t, ok)
	assert.Equal(t, Rect{Left: 540, Top: 330, Right: 570, Bottom: 360}, r)

	for _, p := range []flow.Point{
		{X: 0, Y: 10},
		{X: 10, Y: -1},
		{X: float32(math.NaN()), Y: 10},
		{X: float32(math.Inf(1)), Y: 10},
	} {
		_, ok := l.FOE(p)
		assert.False(t, ok, "%v", p)
	}
}

func TestTextLines(t *testing.T) {
	est := &flow.Estimate{
		TTC1: 12.5,
		TTC2: float32(math.Inf(-1)),
		TTC3: math.NaN(),
		FOE:  flow.Point{X: 1.5, Y: -2},
	}
	assert.Equal(t, []string{
		"TTC1: 12.5",
		"TTC2: -Inf",
		"TTC3: NaN",
		"FOE: (1.5, -2)",
	}, TextLines(est))
}

func TestOverlayJSON(t *testing.T) {
	l := testLayout()
	est := &flow.Estimate{TTC1: 1, TTC2: 10, TTC3: 0.001, FOE: flow.Point{X: -1, Y: 5}}

	o := l.Overlay(est)
	assert.Nil(t, o.FOE)
	assert.Equal(t, o.Bars[0].Top, o.Bars[1].Top)

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"foe"`)
}
