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

import "errors"

type EstimatorConfig struct {
	Rows                int     `yaml:"rows"`
	Cols                int     `yaml:"cols"`
	CrossCheck          bool    `yaml:"cross-check"`
	CrossCheckTolerance float64 `yaml:"cross-check-tolerance"`
	Verbose             bool    `yaml:"verbose"`
}

func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Rows:                DefaultRows,
		Cols:                DefaultCols,
		CrossCheck:          false,
		CrossCheckTolerance: 1e-3,
	}
}

func (conf *EstimatorConfig) Validate() error {
	if conf.Rows < 1 || conf.Cols < 1 {
		return errors.New("rows and cols should be positive")
	}
	if conf.CrossCheckTolerance <= 0 {
		return errors.New("cross-check-tolerance should be positive")
	}
	return nil
}
