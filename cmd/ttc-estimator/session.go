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
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/TheCacophonyProject/ttc-estimator/alert"
	"github.com/TheCacophonyProject/ttc-estimator/flow"
	"github.com/TheCacophonyProject/ttc-estimator/render"
	"github.com/TheCacophonyProject/ttc-estimator/stream"
	"github.com/TheCacophonyProject/ttc-estimator/ttcplot"
	"github.com/TheCacophonyProject/ttc-estimator/yuv"
)

// Width of the text column to the right of the image on the stream page.
const textColumnWidth = 200

// session is the estimator and result sinks for one stream of frames,
// either a camera connection or a replayed capture.
type session struct {
	id        uuid.UUID
	start     time.Time
	size      flow.Size
	estimator *flow.Estimator
	stream    *stream.Server
	plot      *ttcplot.Plotter
	alerter   *alert.Alerter
}

// newSession builds the pipeline for frames of the given size. pin and
// events may be nil.
func newSession(conf *Config, size flow.Size, pixelFormat string, pin alert.Pin, events alert.EventQueuer) (*session, error) {
	parser, err := yuv.Parser(pixelFormat)
	if err != nil {
		return nil, err
	}

	s := &session{
		id:    uuid.New(),
		start: time.Now(),
		size:  size,
	}

	var sinks multiSink
	if conf.Stream.Address != "" {
		layout := render.Layout{
			CanvasWidth:  size.Cols + textColumnWidth,
			CanvasHeight: size.Rows,
			Rows:         size.Rows,
			Cols:         size.Cols,
		}
		s.stream = stream.NewServer(&conf.Stream, s.id.String(), layout)
		s.stream.SetVerbose(conf.Estimator.Verbose)
		sinks = append(sinks, s.stream)
	}
	if conf.Plot.OutputDir != "" {
		s.plot = ttcplot.New(&conf.Plot)
		sinks = append(sinks, s.plot)
	}
	if conf.Alert.Enabled() {
		win, err := alert.NewWindow(&conf.Alert, conf.Location.Latitude, conf.Location.Longitude)
		if err != nil {
			return nil, err
		}
		s.alerter = alert.New(&conf.Alert, pin, events, win)
		sinks = append(sinks, s.alerter)
	}

	estConf := conf.Estimator
	estConf.Rows = size.Rows
	estConf.Cols = size.Cols
	s.estimator = flow.NewEstimator(parser, &estConf, sinks)

	if s.stream != nil {
		go func() {
			if err := s.stream.ListenAndServe(); err != nil {
				log.Printf("stream server failed: %v", err)
			}
		}()
	}
	log.Printf("session %s: %s frames", s.id, size)
	return s, nil
}

// name is used for files written for the session.
func (s *session) name() string {
	return s.start.Format("2006_01_02T15_04_05") + "-ttc"
}

// close stops the stream server and saves the chart.
func (s *session) close() error {
	var errs []error
	if s.stream != nil {
		errs = append(errs, s.stream.Close())
	}
	if s.plot != nil && s.plot.Len() >= 2 {
		filename, err := s.plot.Save(s.name())
		if err == nil {
			log.Printf("saved chart to %s", filename)
		}
		errs = append(errs, err)
	}
	if s.alerter != nil {
		alerts, throttled := s.alerter.Alerts()
		log.Printf("session %s: %d alerts (%d throttled)", s.id, alerts, throttled)
	}
	stats := s.estimator.Stats()
	log.Printf("session %s: %d frames, %d rejected, %d non-finite, %d sink errors",
		s.id, stats.Frames, stats.Rejected, stats.NonFinite, stats.SinkErrors)
	return errors.Join(errs...)
}

// multiSink gives each estimate to every sink, even if an earlier one
// fails.
type multiSink []flow.ResultSink

func (m multiSink) Publish(est *flow.Estimate) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(est); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
