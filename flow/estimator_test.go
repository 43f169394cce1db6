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
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSink struct {
	estimates []Estimate
	err       error
}

func (ts *testSink) Publish(est *Estimate) error {
	ts.estimates = append(ts.estimates, *est)
	return ts.err
}

// parseFloats reads little endian float32 pixels.
func parseFloats(raw []byte, f *Frame) error {
	if len(raw) != len(f.Pix)*4 {
		return errors.New("bad frame length")
	}
	for i := range f.Pix {
		f.Pix[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return nil
}

func encodeFloats(f *Frame) []byte {
	raw := make([]byte, len(f.Pix)*4)
	for i, v := range f.Pix {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return raw
}

func EstimatorTestConfig() *EstimatorConfig {
	conf := DefaultEstimatorConfig()
	conf.Rows = 16
	conf.Cols = 24
	return &conf
}

func TestEstimatorPublishesEveryFrame(t *testing.T) {
	sink := new(testSink)
	e := NewEstimator(parseFloats, EstimatorTestConfig(), sink)
	tfm := MakeTestFrameMaker(e)

	_, ok := e.Latest()
	assert.False(t, ok)

	tfm.AddStillFrames(1).AddShiftingFrames(3, 0.2, 0.1)

	require.Len(t, sink.estimates, 4)
	for i, est := range sink.estimates {
		assert.Equal(t, i+1, est.Frame)
	}
	latest, ok := e.Latest()
	assert.True(t, ok)
	assert.Equal(t, 4, latest.Frame)
	assert.Equal(t, 4, e.Stats().Frames)
}

func TestEstimatorProcessRaw(t *testing.T) {
	conf := EstimatorTestConfig()
	e := NewEstimator(parseFloats, conf, nil)
	tfm := MakeTestFrameMaker(e)

	frame := tfm.MakeFrame()
	est, err := e.Process(encodeFloats(frame))
	require.NoError(t, err)
	assert.Equal(t, 1, est.Frame)

	// Same result as handing over the decoded frame.
	other := NewEstimator(parseFloats, conf, nil)
	want, err := other.ProcessFrame(frame)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, est, cmpopts.EquateNaNs()))
}

func TestEstimatorRejectsBadFrames(t *testing.T) {
	e := NewEstimator(parseFloats, EstimatorTestConfig(), nil)

	_, err := e.Process([]byte{1, 2, 3})
	assert.EqualError(t, err, "bad frame length")

	_, err = e.ProcessFrame(NewFrame(16, 25))
	var shapeErr *ShapeError
	assert.True(t, errors.As(err, &shapeErr))

	_, err = e.ProcessFrame(&Frame{Rows: 16, Cols: 24, Pix: make([]float32, 10)})
	assert.True(t, errors.As(err, &shapeErr))

	assert.Equal(t, Stats{Rejected: 3}, e.Stats())
	_, ok := e.Latest()
	assert.False(t, ok)
}

func TestEstimatorSinkErrorIsNotFatal(t *testing.T) {
	sink := &testSink{err: errors.New("sink down")}
	e := NewEstimator(parseFloats, EstimatorTestConfig(), sink)

	f := NewFrame(16, 24)
	f.Fill(0.5)
	for i := 0; i < 3; i++ {
		_, err := e.ProcessFrame(f)
		require.NoError(t, err)
	}

	assert.Len(t, sink.estimates, 3)
	stats := e.Stats()
	assert.Equal(t, 3, stats.Frames)
	assert.Equal(t, 3, stats.SinkErrors)
	assert.Equal(t, 3, stats.NonFinite)
}

func TestEstimatorCrossCheck(t *testing.T) {
	conf := EstimatorTestConfig()
	conf.CrossCheck = true
	e := NewEstimator(parseFloats, conf, nil)

	// Cross-checking only logs; the estimates are unchanged.
	MakeTestFrameMaker(e).AddStillFrames(1).AddShiftingFrames(2, 0.2, -0.1)

	plain := NewEstimator(parseFloats, EstimatorTestConfig(), nil)
	tfm := MakeTestFrameMaker(plain).AddStillFrames(1).AddShiftingFrames(2, 0.2, -0.1)

	latest, _ := e.Latest()
	assert.Empty(t, cmp.Diff(tfm.Last(), latest, cmpopts.EquateNaNs()))
}

func TestEstimatorConfigValidate(t *testing.T) {
	conf := DefaultEstimatorConfig()
	assert.NoError(t, conf.Validate())

	conf.Rows = 0
	assert.EqualError(t, conf.Validate(), "rows and cols should be positive")

	conf = DefaultEstimatorConfig()
	conf.CrossCheckTolerance = 0
	assert.EqualError(t, conf.Validate(), "cross-check-tolerance should be positive")
}
