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

package ttcplot

import "errors"

type Config struct {
	// OutputDir is where charts are written. Charts are off if empty.
	OutputDir  string `yaml:"output-dir"`
	MaxSamples int    `yaml:"max-samples"`
}

func DefaultConfig() Config {
	return Config{
		OutputDir:  "",
		MaxSamples: 30 * 60,
	}
}

func (conf *Config) Validate() error {
	if conf.MaxSamples < 2 {
		return errors.New("max-samples should be at least 2")
	}
	return nil
}
