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
	"encoding/json"
	"errors"
	"sync"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
)

const (
	dbusName = "org.cacophony.ttcestimator"
	dbusPath = "/org/cacophony/ttcestimator"
)

var errNoCamera = errors.New("no camera connected")

// service exposes the estimator for the current camera connection.
type service struct {
	mu        sync.Mutex
	session   string
	estimator *flow.Estimator
	handoff   *flow.Handoff
}

// sessionStats is returned by GetStats.
type sessionStats struct {
	Session    string `json:"session"`
	Frames     int    `json:"frames"`
	Rejected   int    `json:"rejected"`
	NonFinite  int    `json:"non-finite"`
	SinkErrors int    `json:"sink-errors"`
	Dropped    int    `json:"dropped"`
}

func startService() (*service, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, errors.New("name already taken")
	}

	s := new(service)
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return s, nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// setSession points the service at the estimator for a new camera
// connection. A nil estimator means the camera has gone.
func (s *service) setSession(session string, e *flow.Estimator, h *flow.Handoff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.estimator = e
	s.handoff = h
}

func (s *service) current() (string, *flow.Estimator, *flow.Handoff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.estimator, s.handoff
}

// GetEstimate returns the most recent estimate as JSON.
func (s *service) GetEstimate() (string, *dbus.Error) {
	_, e, _ := s.current()
	if e == nil {
		return "", makeDbusError("GetEstimate", errNoCamera)
	}
	est, ok := e.Latest()
	if !ok {
		return "", makeDbusError("GetEstimate", errors.New("no frames processed yet"))
	}
	buf, err := json.Marshal(est)
	if err != nil {
		return "", makeDbusError("GetEstimate", err)
	}
	return string(buf), nil
}

// GetStats returns the frame counts for the current connection as JSON.
func (s *service) GetStats() (string, *dbus.Error) {
	session, e, h := s.current()
	if e == nil {
		return "", makeDbusError("GetStats", errNoCamera)
	}
	buf, err := json.Marshal(newSessionStats(session, e, h))
	if err != nil {
		return "", makeDbusError("GetStats", err)
	}
	return string(buf), nil
}

func newSessionStats(session string, e *flow.Estimator, h *flow.Handoff) sessionStats {
	stats := e.Stats()
	ss := sessionStats{
		Session:    session,
		Frames:     stats.Frames,
		Rejected:   stats.Rejected,
		NonFinite:  stats.NonFinite,
		SinkErrors: stats.SinkErrors,
	}
	if h != nil {
		ss.Dropped = h.Dropped()
	}
	return ss
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + "." + name,
		Body: []interface{}{err.Error()},
	}
}
