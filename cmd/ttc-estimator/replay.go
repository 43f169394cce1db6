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

package main

import (
	"io"
	"log"

	"github.com/maruel/interrupt"

	"github.com/TheCacophonyProject/ttc-estimator/capture"
	"github.com/TheCacophonyProject/ttc-estimator/flow"
)

// replayResults summarises a replayed capture.
type replayResults struct {
	stats    flow.Stats
	closest  flow.Estimate
	hasClose bool
}

// replay runs every frame of a capture file through the estimator at
// full speed. Alerts are evaluated but don't drive a pin or queue
// events.
func replay(filename string, conf *Config) error {
	r, closer, err := capture.OpenFile(filename)
	if err != nil {
		return err
	}
	defer closer.Close()

	h := r.Header()
	log.Printf("replaying %s: %s frames at %d fps captured %s (session %s)",
		filename, h.Size, h.FPS, h.Timestamp.Format("2006-01-02 15:04:05"), h.Session)

	sess, err := newSession(conf, h.Size, "", nil, nil)
	if err != nil {
		return err
	}
	results, err := replayFrames(r, sess.estimator)
	if cerr := sess.close(); cerr != nil {
		log.Printf("failed to close session: %v", cerr)
	}
	if err != nil {
		return err
	}

	log.Printf("frames: %d, rejected: %d, non-finite: %d",
		results.stats.Frames, results.stats.Rejected, results.stats.NonFinite)
	if results.hasClose {
		log.Printf("closest: frame %d, ttc1=%g ttc2=%g ttc3=%g",
			results.closest.Frame, results.closest.TTC1, results.closest.TTC2, results.closest.TTC3)
	}
	return nil
}

// replayFrames feeds frames from r to estimator until the end of the
// file or Ctrl-C. The estimate with the smallest finite |ttc1| is kept.
func replayFrames(r *capture.Reader, estimator *flow.Estimator) (*replayResults, error) {
	results := new(replayResults)
	var buf []byte
	for !interrupt.IsSet() {
		frame, _, err := r.ReadFrame(buf)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		buf = frame

		est, err := estimator.Process(frame)
		if err != nil {
			continue
		}
		if est.Finite() && (!results.hasClose || abs(est.TTC1) < abs(results.closest.TTC1)) {
			results.closest = est
			results.hasClose = true
		}
	}
	results.stats = estimator.Stats()
	return results, nil
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
