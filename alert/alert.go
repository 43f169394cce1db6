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

// Package alert raises an alarm when an estimated collision is close:
// it drives a GPIO pin and queues events with the Cacophony event
// service.
package alert

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/TheCacophonyProject/window"
	"github.com/godbus/dbus"
	"github.com/juju/ratelimit"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
)

// Pin is the part of a GPIO pin used for alerts.
type Pin interface {
	Out(l gpio.Level) error
}

// EventQueuer queues an event for upload.
type EventQueuer interface {
	Queue(details map[string]interface{}, ts time.Time) error
}

// ActiveWindow says whether alerts are currently wanted.
type ActiveWindow interface {
	Active() bool
}

type alwaysActive struct{}

func (alwaysActive) Active() bool { return true }

// NewWindow returns the time window alerts are raised in. The location
// is used for windows relative to sunrise or sunset.
func NewWindow(conf *Config, latitude, longitude float64) (ActiveWindow, error) {
	if conf.WindowStart == "" {
		return alwaysActive{}, nil
	}
	w, err := window.New(conf.WindowStart, conf.WindowEnd, latitude, longitude)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// OpenPin looks up a GPIO pin by name and sets it low.
func OpenPin(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("GPIO pin %s not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to set alert pin low: %v", err)
	}
	return pin, nil
}

func New(conf *Config, pin Pin, events EventQueuer, win ActiveWindow) *Alerter {
	return NewWithClock(conf, pin, events, win, new(realClock))
}

func NewWithClock(conf *Config, pin Pin, events EventQueuer, win ActiveWindow, clock ratelimit.Clock) *Alerter {
	return &Alerter{
		conf:   *conf,
		pin:    pin,
		events: events,
		window: win,
		bucket: ratelimit.NewBucketWithRateAndClock(conf.refillRate(), conf.Burst, clock),
		clock:  clock,
	}
}

// Alerter is a flow.ResultSink which raises an alert while estimates
// show a collision within the configured time.
type Alerter struct {
	conf   Config
	pin    Pin
	events EventQueuer
	window ActiveWindow
	bucket *ratelimit.Bucket
	clock  ratelimit.Clock

	active    bool
	alerts    int
	throttled int
}

// Publish implements flow.ResultSink.
func (a *Alerter) Publish(est *flow.Estimate) error {
	near := a.window.Active() && a.isClose(est)
	if near == a.active {
		return nil
	}
	a.active = near

	if a.pin != nil {
		level := gpio.Low
		if near {
			level = gpio.High
		}
		if err := a.pin.Out(level); err != nil {
			return fmt.Errorf("failed to set alert pin: %w", err)
		}
	}
	if !near {
		return nil
	}

	a.alerts++
	log.Printf("collision alert: ttc1=%g frames (%d cells)", est.TTC1, est.Cells)
	if a.bucket.TakeAvailable(1) == 0 {
		a.throttled++
		log.Print("alert event throttled")
		return nil
	}
	if a.events == nil {
		return nil
	}
	details := map[string]interface{}{
		"description": map[string]interface{}{
			"type": "ttc-alert",
			"details": map[string]interface{}{
				"frame": est.Frame,
				"ttc1":  est.TTC1,
				"cells": est.Cells,
			},
		},
	}
	return a.events.Queue(details, a.clock.Now())
}

func (a *Alerter) isClose(est *flow.Estimate) bool {
	if est.Cells < a.conf.MinCells {
		return false
	}
	ttc := math.Abs(float64(est.TTC1))
	return !math.IsNaN(ttc) && ttc <= a.conf.TTCThresh
}

// Active reports whether an alert is currently raised.
func (a *Alerter) Active() bool {
	return a.active
}

// Alerts returns how many alerts have been raised, and how many of
// those had their event throttled.
func (a *Alerter) Alerts() (alerts, throttled int) {
	return a.alerts, a.throttled
}

// DBusEvents queues events with the Cacophony event reporter over
// the system bus.
type DBusEvents struct{}

func (DBusEvents) Queue(details map[string]interface{}, ts time.Time) error {
	detailsJSON, err := json.Marshal(&details)
	if err != nil {
		return fmt.Errorf("could not queue alert event: %w", err)
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("could not queue alert event: %w", err)
	}
	obj := conn.Object("org.cacophony.Events", "/org/cacophony/Events")
	call := obj.Call("org.cacophony.Events.Queue", 0, detailsJSON, ts.UnixNano())
	if call.Err != nil {
		return fmt.Errorf("could not queue alert event: %w", call.Err)
	}
	return nil
}

// realClock implements ratelimit.Clock in terms of standard time functions.
type realClock struct{}

// Now implements Clock.Now by calling time.Now.
func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.Sleep by calling time.Sleep.
func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
