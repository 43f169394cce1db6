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

// Package location reads where the device is, and its recording window,
// from the shared Cacophony device config.
package location

import (
	"errors"

	config "github.com/TheCacophonyProject/go-config"
)

const (
	maxLatitude  = 90
	maxLongitude = 180
)

// Unmarshaler reads a section of the device config. *config.Config
// implements it.
type Unmarshaler interface {
	Unmarshal(key string, raw interface{}) error
}

// Config is the device location and the device's recording window,
// which alerts can share.
type Config struct {
	Latitude    float64
	Longitude   float64
	WindowStart string
	WindowEnd   string
}

func DefaultConfigDir() string {
	return config.DefaultConfigDir
}

func DefaultConfig() Config {
	loc := config.DefaultWindowLocation()
	windows := config.DefaultWindows()
	return Config{
		Latitude:    float64(loc.Latitude),
		Longitude:   float64(loc.Longitude),
		WindowStart: windows.StartRecording,
		WindowEnd:   windows.StopRecording,
	}
}

// ReadDir reads the device config in configDir.
func ReadDir(configDir string) (*Config, error) {
	configRW, err := config.New(configDir)
	if err != nil {
		return nil, err
	}
	return Read(configRW)
}

// Read takes the location and windows sections from the device config.
// Sections that aren't set keep their defaults.
func Read(conf Unmarshaler) (*Config, error) {
	loc := config.DefaultWindowLocation()
	if err := conf.Unmarshal(config.LocationKey, &loc); err != nil {
		return nil, err
	}
	windows := config.DefaultWindows()
	if err := conf.Unmarshal(config.WindowsKey, &windows); err != nil {
		return nil, err
	}

	c := &Config{
		Latitude:    float64(loc.Latitude),
		Longitude:   float64(loc.Longitude),
		WindowStart: windows.StartRecording,
		WindowEnd:   windows.StopRecording,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (conf *Config) Validate() error {
	if conf.Latitude < -maxLatitude || conf.Latitude > maxLatitude {
		return errors.New("latitude outside of normal range")
	}
	if conf.Longitude < -maxLongitude || conf.Longitude > maxLongitude {
		return errors.New("longitude outside of normal range")
	}
	return nil
}
