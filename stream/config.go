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

package stream

import "errors"

type Config struct {
	// Address to serve on, eg. ":8080". Streaming is off if empty.
	Address string `yaml:"address"`
	// History is how many estimates a slow client may fall behind
	// before estimates are skipped.
	History int `yaml:"history"`
}

func DefaultConfig() Config {
	return Config{
		Address: "",
		History: 90,
	}
}

func (conf *Config) Validate() error {
	if conf.History < 1 {
		return errors.New("history should be at least 1")
	}
	return nil
}
