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
	"math"
	"testing"
	"time"

	"github.com/juju/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
)

type testPin struct {
	levels []gpio.Level
	err    error
}

func (p *testPin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return p.err
}

type testEvent struct {
	details map[string]interface{}
	ts      time.Time
}

type testEvents struct {
	queued []testEvent
}

func (e *testEvents) Queue(details map[string]interface{}, ts time.Time) error {
	e.queued = append(e.queued, testEvent{details, ts})
	return nil
}

type testWindow struct {
	active bool
}

func (w *testWindow) Active() bool { return w.active }

var _ ratelimit.Clock = new(realClock)
var _ ratelimit.Clock = new(testClock)

// testClock implements a fake ratelimit.Clock for testing.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
}

func AlertTestConfig() *Config {
	conf := DefaultConfig()
	conf.TTCThresh = 30
	conf.MinCells = 10
	conf.EventsPerHour = 2
	conf.Burst = 1
	return &conf
}

type alertTester struct {
	pin    *testPin
	events *testEvents
	window *testWindow
	clock  *testClock
	alert  *Alerter
}

func newAlertTester(conf *Config) *alertTester {
	at := &alertTester{
		pin:    new(testPin),
		events: new(testEvents),
		window: &testWindow{active: true},
		clock:  &testClock{now: time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	at.alert = NewWithClock(conf, at.pin, at.events, at.window, at.clock)
	return at
}

func near(frame int) *flow.Estimate {
	return &flow.Estimate{Frame: frame, TTC1: -12, Cells: 40}
}

func far(frame int) *flow.Estimate {
	return &flow.Estimate{Frame: frame, TTC1: 300, Cells: 40}
}

func TestAlertRaisedAndCleared(t *testing.T) {
	at := newAlertTester(AlertTestConfig())

	require.NoError(t, at.alert.Publish(far(1)))
	assert.Empty(t, at.pin.levels)

	require.NoError(t, at.alert.Publish(near(2)))
	require.NoError(t, at.alert.Publish(near(3)))
	assert.True(t, at.alert.Active())
	assert.Equal(t, []gpio.Level{gpio.High}, at.pin.levels)

	require.NoError(t, at.alert.Publish(far(4)))
	assert.False(t, at.alert.Active())
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low}, at.pin.levels)

	require.Len(t, at.events.queued, 1)
	ev := at.events.queued[0]
	assert.Equal(t, at.clock.now, ev.ts)
	desc := ev.details["description"].(map[string]interface{})
	assert.Equal(t, "ttc-alert", desc["type"])
	assert.Equal(t, 2, desc["details"].(map[string]interface{})["frame"])
}

func TestAlertNeedsEnoughCells(t *testing.T) {
	at := newAlertTester(AlertTestConfig())

	est := near(1)
	est.Cells = 9
	require.NoError(t, at.alert.Publish(est))
	assert.False(t, at.alert.Active())

	est.Cells = 10
	require.NoError(t, at.alert.Publish(est))
	assert.True(t, at.alert.Active())
}

func TestAlertIgnoresNonFinite(t *testing.T) {
	at := newAlertTester(AlertTestConfig())

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		est := near(1)
		est.TTC1 = float32(v)
		require.NoError(t, at.alert.Publish(est))
		assert.False(t, at.alert.Active())
	}
}

func TestAlertOutsideWindow(t *testing.T) {
	at := newAlertTester(AlertTestConfig())
	at.window.active = false

	require.NoError(t, at.alert.Publish(near(1)))
	assert.False(t, at.alert.Active())
	assert.Empty(t, at.events.queued)

	at.window.active = true
	require.NoError(t, at.alert.Publish(near(2)))
	assert.True(t, at.alert.Active())
}

func TestAlertEventsRateLimited(t *testing.T) {
	at := newAlertTester(AlertTestConfig())

	raise := func(frame int) {
		require.NoError(t, at.alert.Publish(near(frame)))
		require.NoError(t, at.alert.Publish(far(frame+1)))
	}

	raise(1)
	raise(3)
	raise(5)
	alerts, throttled := at.alert.Alerts()
	assert.Equal(t, 3, alerts)
	assert.Equal(t, 2, throttled)
	assert.Len(t, at.events.queued, 1)

	// Two events an hour refills one token every 30 minutes.
	at.clock.Sleep(30 * time.Minute)
	raise(7)
	raise(9)
	assert.Len(t, at.events.queued, 2)
	assert.Equal(t, []int{1, 7}, at.queuedFrames())
}

func (at *alertTester) queuedFrames() []int {
	var frames []int
	for _, ev := range at.events.queued {
		desc := ev.details["description"].(map[string]interface{})
		frames = append(frames, desc["details"].(map[string]interface{})["frame"].(int))
	}
	return frames
}

func TestAlertPinError(t *testing.T) {
	at := newAlertTester(AlertTestConfig())
	at.pin.err = errors.New("pin broken")

	assert.Error(t, at.alert.Publish(near(1)))
}

func TestAlertWithoutPinOrEvents(t *testing.T) {
	a := New(AlertTestConfig(), nil, nil, alwaysActive{})
	assert.NoError(t, a.Publish(near(1)))
	assert.True(t, a.Active())
}

func TestNewWindowDefaultsToAlways(t *testing.T) {
	w, err := NewWindow(AlertTestConfig(), 0, 0)
	require.NoError(t, err)
	assert.True(t, w.Active())
}

func TestNewWindow(t *testing.T) {
	conf := AlertTestConfig()
	conf.WindowStart = "00:00"
	conf.WindowEnd = "23:59"
	w, err := NewWindow(conf, -43.5, 172.6)
	require.NoError(t, err)
	assert.NotNil(t, w)
}

func TestConfigValidate(t *testing.T) {
	conf := DefaultConfig()
	assert.NoError(t, conf.Validate())
	assert.False(t, conf.Enabled())

	conf = *AlertTestConfig()
	assert.True(t, conf.Enabled())

	conf.WindowStart = "20:00"
	assert.EqualError(t, conf.Validate(), "window-start and window-end should be set together")

	conf = DefaultConfig()
	conf.Burst = 0
	assert.Error(t, conf.Validate())

	conf = DefaultConfig()
	conf.EventsPerHour = 0
	assert.Error(t, conf.Validate())
}
