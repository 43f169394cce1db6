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

package location

import (
	"errors"
	"reflect"
	"testing"

	config "github.com/TheCacophonyProject/go-config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDeviceConfig holds device config sections as field name to value
// maps, set onto the section structs the way the config file would be.
type testDeviceConfig map[string]map[string]interface{}

func (c testDeviceConfig) Unmarshal(key string, raw interface{}) error {
	section := reflect.ValueOf(raw).Elem()
	for name, value := range c[key] {
		field := section.FieldByName(name)
		if !field.IsValid() {
			return errors.New("no field " + name)
		}
		field.Set(reflect.ValueOf(value).Convert(field.Type()))
	}
	return nil
}

type failingDeviceConfig struct{}

func (failingDeviceConfig) Unmarshal(string, interface{}) error {
	return errors.New("config locked")
}

func TestReadDefaults(t *testing.T) {
	conf, err := Read(testDeviceConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *conf)
	assert.NoError(t, conf.Validate())
}

func TestRead(t *testing.T) {
	conf, err := Read(testDeviceConfig{
		config.LocationKey: {
			"Latitude":  -36.86667,
			"Longitude": 174.76667,
		},
		config.WindowsKey: {
			"StartRecording": "-1h",
			"StopRecording":  "06:30",
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, -36.86667, conf.Latitude, 1e-4)
	assert.InDelta(t, 174.76667, conf.Longitude, 1e-4)
	assert.Equal(t, "-1h", conf.WindowStart)
	assert.Equal(t, "06:30", conf.WindowEnd)
}

func TestReadOutOfRange(t *testing.T) {
	_, err := Read(testDeviceConfig{
		config.LocationKey: {"Latitude": 91},
	})
	assert.EqualError(t, err, "latitude outside of normal range")

	_, err = Read(testDeviceConfig{
		config.LocationKey: {"Longitude": -181},
	})
	assert.EqualError(t, err, "longitude outside of normal range")
}

func TestReadError(t *testing.T) {
	_, err := Read(failingDeviceConfig{})
	assert.EqualError(t, err, "config locked")
}
