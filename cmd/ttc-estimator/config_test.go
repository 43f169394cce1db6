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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/ttc-estimator/alert"
	"github.com/TheCacophonyProject/ttc-estimator/flow"
	"github.com/TheCacophonyProject/ttc-estimator/location"
	"github.com/TheCacophonyProject/ttc-estimator/stream"
	"github.com/TheCacophonyProject/ttc-estimator/ttcplot"
)

func TestAllDefaults(t *testing.T) {
	conf, err := ParseConfig([]byte(""), nil)
	require.NoError(t, err)
	require.NoError(t, conf.Validate())

	assert.Equal(t, Config{
		FrameInput:   "/var/run/ttc-frames",
		CaptureDir:   "",
		MinDiskSpace: 200,
		Estimator: flow.EstimatorConfig{
			Rows:                480,
			Cols:                640,
			CrossCheck:          false,
			CrossCheckTolerance: 1e-3,
			Verbose:             false,
		},
		Stream: stream.Config{
			Address: "",
			History: 90,
		},
		Plot: ttcplot.Config{
			OutputDir:  "",
			MaxSamples: 1800,
		},
		Alert: alert.Config{
			TTCThresh:     0,
			MinCells:      50,
			EventsPerHour: 6,
			Burst:         3,
		},
		Location: location.DefaultConfig(),
	}, *conf)
}

func TestAllSet(t *testing.T) {
	config := []byte(`
frame-input: "/var/run/foo"
capture-dir: "/var/spool/ttc"
min-disk-space: 500
estimator:
    rows: 240
    cols: 320
    cross-check: true
    cross-check-tolerance: 0.01
    verbose: true
stream:
    address: ":8080"
    history: 10
plot:
    output-dir: "/var/lib/ttc"
    max-samples: 600
alert:
    pin: "GPIO17"
    ttc-thresh: 30
    min-cells: 20
    window-start: "21:00"
    window-end: "06:00"
    events-per-hour: 2
    burst: 1
`)

	conf, err := ParseConfig(config, &location.Config{
		Latitude:    -36.86667,
		Longitude:   174.76667,
		WindowStart: "-1h",
		WindowEnd:   "+1h",
	})
	require.NoError(t, err)

	assert.Equal(t, Config{
		FrameInput:   "/var/run/foo",
		CaptureDir:   "/var/spool/ttc",
		MinDiskSpace: 500,
		Estimator: flow.EstimatorConfig{
			Rows:                240,
			Cols:                320,
			CrossCheck:          true,
			CrossCheckTolerance: 0.01,
			Verbose:             true,
		},
		Stream: stream.Config{
			Address: ":8080",
			History: 10,
		},
		Plot: ttcplot.Config{
			OutputDir:  "/var/lib/ttc",
			MaxSamples: 600,
		},
		Alert: alert.Config{
			Pin:           "GPIO17",
			TTCThresh:     30,
			MinCells:      20,
			WindowStart:   "21:00",
			WindowEnd:     "06:00",
			EventsPerHour: 2,
			Burst:         1,
		},
		Location: location.Config{
			Latitude:    -36.86667,
			Longitude:   174.76667,
			WindowStart: "-1h",
			WindowEnd:   "+1h",
		},
	}, *conf)
}

func TestPartialSection(t *testing.T) {
	conf, err := ParseConfig([]byte(`
estimator:
    cross-check: true
alert:
    ttc-thresh: 15
`), nil)
	require.NoError(t, err)

	assert.True(t, conf.Estimator.CrossCheck)
	assert.Equal(t, 480, conf.Estimator.Rows)
	assert.Equal(t, 1e-3, conf.Estimator.CrossCheckTolerance)
	assert.Equal(t, 15.0, conf.Alert.TTCThresh)
	assert.Equal(t, 50, conf.Alert.MinCells)
	assert.True(t, conf.Alert.Enabled())
}

func TestInvalidConfig(t *testing.T) {
	for _, config := range []string{
		`frame-input: ""`,
		"estimator:\n    rows: 0",
		"estimator:\n    cross-check-tolerance: -1",
		"stream:\n    history: 0",
		"plot:\n    max-samples: 1",
		"alert:\n    ttc-thresh: -1",
		"alert:\n    window-start: \"21:00\"",
		"alert:\n    burst: 0",
	} {
		_, err := ParseConfig([]byte(config), nil)
		assert.Error(t, err, config)
	}
}

func TestBadYAML(t *testing.T) {
	_, err := ParseConfig([]byte("estimator: [1, 2"), nil)
	assert.Error(t, err)
}

func TestInvalidLocation(t *testing.T) {
	_, err := ParseConfig(nil, &location.Config{Latitude: 100})
	assert.Error(t, err)
}

func TestAlertDeviceWindow(t *testing.T) {
	conf, err := ParseConfig([]byte(`
alert:
    ttc-thresh: 20
    device-window: true
`), &location.Config{
		Latitude:    -43.5,
		Longitude:   172.6,
		WindowStart: "-30m",
		WindowEnd:   "+30m",
	})
	require.NoError(t, err)
	assert.True(t, conf.Alert.DeviceWindow)
	assert.Equal(t, "-30m", conf.Alert.WindowStart)
	assert.Equal(t, "+30m", conf.Alert.WindowEnd)
}

func TestAlertDeviceWindowWithOwnWindow(t *testing.T) {
	_, err := ParseConfig([]byte(`
alert:
    device-window: true
    window-start: "21:00"
    window-end: "06:00"
`), nil)
	assert.EqualError(t, err, "alert device-window can't be set with window-start or window-end")
}

func TestParseConfigFilesUnreadable(t *testing.T) {
	dir := t.TempDir()
	_, err := ParseConfigFiles(dir, dir)
	assert.Error(t, err)
}
