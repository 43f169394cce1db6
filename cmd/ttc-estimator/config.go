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
	"io/ioutil"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/ttc-estimator/alert"
	"github.com/TheCacophonyProject/ttc-estimator/flow"
	"github.com/TheCacophonyProject/ttc-estimator/location"
	"github.com/TheCacophonyProject/ttc-estimator/stream"
	"github.com/TheCacophonyProject/ttc-estimator/ttcplot"
)

type Config struct {
	FrameInput   string               `yaml:"frame-input"`
	CaptureDir   string               `yaml:"capture-dir"`
	MinDiskSpace uint64               `yaml:"min-disk-space"`
	Estimator    flow.EstimatorConfig `yaml:"estimator"`
	Stream       stream.Config        `yaml:"stream"`
	Plot         ttcplot.Config       `yaml:"plot"`
	Alert        alert.Config         `yaml:"alert"`
	Location     location.Config      `yaml:"-"`
}

var defaultConfig = Config{
	FrameInput:   "/var/run/ttc-frames",
	MinDiskSpace: 200,
	Estimator:    flow.DefaultEstimatorConfig(),
	Stream:       stream.DefaultConfig(),
	Plot:         ttcplot.DefaultConfig(),
	Alert:        alert.DefaultConfig(),
	Location:     location.DefaultConfig(),
}

func (conf *Config) Validate() error {
	if conf.FrameInput == "" {
		return errors.New("frame-input should be set")
	}
	if err := conf.Estimator.Validate(); err != nil {
		return err
	}
	if err := conf.Stream.Validate(); err != nil {
		return err
	}
	if err := conf.Plot.Validate(); err != nil {
		return err
	}
	if err := conf.Alert.Validate(); err != nil {
		return err
	}
	if err := conf.Location.Validate(); err != nil {
		return err
	}
	return nil
}

// ParseConfigFiles reads the configuration file and the device config
// in configDir. A missing configuration file gives the defaults.
func ParseConfigFiles(filename, configDir string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	device, err := location.ReadDir(configDir)
	if err != nil {
		return nil, err
	}
	return ParseConfig(buf, device)
}

// ParseConfig parses buf over the defaults. device may be nil, in which
// case the default location is used.
func ParseConfig(buf []byte, device *location.Config) (*Config, error) {
	conf := defaultConfig
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, err
	}
	if device != nil {
		conf.Location = *device
	}
	if conf.Alert.DeviceWindow {
		if conf.Alert.WindowStart != "" || conf.Alert.WindowEnd != "" {
			return nil, errors.New("alert device-window can't be set with window-start or window-end")
		}
		conf.Alert.WindowStart = conf.Location.WindowStart
		conf.Alert.WindowEnd = conf.Location.WindowEnd
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}
