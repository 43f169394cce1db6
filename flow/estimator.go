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
	"log"
	"sync"
	"time"

	"github.com/TheCacophonyProject/ttc-estimator/loglimiter"
)

const minLogInterval = time.Minute

// FrameParser decodes a raw camera frame into a brightness frame.
type FrameParser func([]byte, *Frame) error

func NewEstimator(parseFrame FrameParser, conf *EstimatorConfig, sink ResultSink) *Estimator {
	return &Estimator{
		parseFrame: parseFrame,
		conf:       *conf,
		input:      NewFrame(conf.Rows, conf.Cols),
		frames:     NewFrameBuffer(conf.Rows, conf.Cols),
		gradients:  NewGradientField(conf.Rows, conf.Cols),
		grid:       NewBlockGrid(conf.Rows, conf.Cols),
		sink:       sink,
		log:        loglimiter.New(minLogInterval),
	}
}

// Estimator runs the full per-frame pipeline: it keeps the last two
// frames, derives the gradients, aggregates them into blocks and
// solves for the time to collision. Process and ProcessFrame must be
// called from a single goroutine; Latest and Stats may be called from
// anywhere.
type Estimator struct {
	parseFrame FrameParser
	conf       EstimatorConfig
	input      *Frame
	frames     *FrameBuffer
	gradients  *GradientField
	grid       *BlockGrid
	sink       ResultSink
	log        *loglimiter.LogLimiter

	mu     sync.Mutex
	latest Estimate
	stats  Stats
}

// Stats counts what has happened to the frames given to an Estimator.
type Stats struct {
	Frames     int
	Rejected   int
	NonFinite  int
	SinkErrors int
}

// Process decodes rawFrame and runs it through the pipeline.
func (e *Estimator) Process(rawFrame []byte) (Estimate, error) {
	if err := e.parseFrame(rawFrame, e.input); err != nil {
		e.reject(err)
		return Estimate{}, err
	}
	return e.ProcessFrame(e.input)
}

// ProcessFrame runs an already decoded frame through the pipeline.
func (e *Estimator) ProcessFrame(frame *Frame) (Estimate, error) {
	if err := e.frames.Update(frame); err != nil {
		e.reject(err)
		return Estimate{}, err
	}
	if err := e.gradients.Compute(e.frames); err != nil {
		return Estimate{}, err
	}
	if err := e.grid.Aggregate(e.gradients); err != nil {
		return Estimate{}, err
	}

	sums := Accumulate(e.grid)
	est := sums.Solve()
	est.Frame = e.frames.Updates()
	est.AvgEt = e.grid.AvgEt
	est.MaxEt = e.grid.MaxEt

	if e.conf.CrossCheck {
		e.crossCheck(&sums, est.Frame)
	}
	if e.conf.Verbose {
		log.Printf("frame %d: ttc1=%g ttc2=%g ttc3=%g foe=(%g, %g) cells=%d avg-et=%g max-et=%g",
			est.Frame, est.TTC1, est.TTC2, est.TTC3, est.FOE.X, est.FOE.Y, est.Cells, est.AvgEt, est.MaxEt)
	}

	finite := est.Finite()
	if !finite {
		e.log.Printf("non-finite estimate (%d cells above threshold)", est.Cells)
	}

	var sinkErr error
	if e.sink != nil {
		sinkErr = e.sink.Publish(&est)
		if sinkErr != nil {
			e.log.Printf("failed to publish estimate: %v", sinkErr)
		}
	}

	e.mu.Lock()
	e.latest = est
	e.stats.Frames++
	if !finite {
		e.stats.NonFinite++
	}
	if sinkErr != nil {
		e.stats.SinkErrors++
	}
	e.mu.Unlock()

	return est, nil
}

func (e *Estimator) crossCheck(sums *Sums, frame int) {
	cc, err := NewCrossCheck(sums)
	if err != nil {
		e.log.Printf("cross-check skipped: %v", err)
		return
	}
	if rel := cc.MaxRelError(); rel > e.conf.CrossCheckTolerance {
		e.log.Printf("frame %d: method 2 solutions disagree by %.3g: %s", frame, rel, cc)
	}
}

func (e *Estimator) reject(err error) {
	e.log.Printf("frame rejected: %v", err)
	e.mu.Lock()
	e.stats.Rejected++
	e.mu.Unlock()
}

// Latest returns the most recent estimate and false if no frame has
// been processed yet.
func (e *Estimator) Latest() (Estimate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest, e.stats.Frames > 0
}

func (e *Estimator) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Estimator) Rows() int {
	return e.conf.Rows
}

func (e *Estimator) Cols() int {
	return e.conf.Cols
}
