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

package alert

import (
	"errors"
	"time"
)

type Config struct {
	// Pin is the GPIO pin driven high while a collision is close.
	// Alerts only raise events if empty.
	Pin string `yaml:"pin"`
	// TTCThresh is the time to collision, in frames, below which an
	// alert is raised.
	TTCThresh float64 `yaml:"ttc-thresh"`
	// MinCells is the fewest cells an estimate must be based on.
	MinCells int `yaml:"min-cells"`
	// Alerts are only raised between WindowStart and WindowEnd. Both
	// empty means always.
	WindowStart string `yaml:"window-start"`
	WindowEnd   string `yaml:"window-end"`
	// DeviceWindow takes WindowStart and WindowEnd from the device's
	// recording window.
	DeviceWindow bool `yaml:"device-window"`
	// Events are limited to EventsPerHour, with up to Burst at once.
	EventsPerHour float64 `yaml:"events-per-hour"`
	Burst         int64   `yaml:"burst"`
}

func DefaultConfig() Config {
	return Config{
		TTCThresh:     0,
		MinCells:      50,
		EventsPerHour: 6,
		Burst:         3,
	}
}

// Enabled reports whether alerts have been configured.
func (conf *Config) Enabled() bool {
	return conf.TTCThresh > 0
}

func (conf *Config) Validate() error {
	if conf.TTCThresh < 0 {
		return errors.New("ttc-thresh can't be negative")
	}
	if conf.MinCells < 0 {
		return errors.New("min-cells can't be negative")
	}
	if conf.EventsPerHour <= 0 {
		return errors.New("events-per-hour should be positive")
	}
	if conf.Burst < 1 {
		return errors.New("burst should be at least 1")
	}
	if (conf.WindowStart == "") != (conf.WindowEnd == "") {
		return errors.New("window-start and window-end should be set together")
	}
	return nil
}

// refillRate returns the event rate in tokens per second.
func (conf *Config) refillRate() float64 {
	return conf.EventsPerHour / time.Hour.Seconds()
}
