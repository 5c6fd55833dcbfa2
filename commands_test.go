package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbridge/fgfs"
)

type lineSender struct {
	lines []string
}

func (s *lineSender) Send(text string) error {
	s.lines = append(s.lines, text)
	return nil
}

func TestDispatchCommand(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Command{Command: "nav-freq", Value: 110350, Index: 1},
			"set /instrumentation/nav[1]/frequencies/selected-mhz 110.35"},
		{Command{Command: "nav-obs", Value: 283.6},
			"set /instrumentation/nav/radials/selected-deg 284"},
		{Command{Command: "adf-freq", Value: 415000},
			"set /instrumentation/adf/frequencies/selected-khz 415.00"},
		{Command{Command: "ap-heading", Value: 270},
			"set /autopilot/settings/heading-bug-deg 270"},
		{Command{Command: "ap-vs", Value: -800},
			"set /autopilot/settings/vertical-speed-fpm -800"},
		{Command{Command: "ap-altitude", Value: 12000},
			"set /autopilot/settings/target-altitude-ft 12000"},
		{Command{Command: "ap-airspeed", Value: 250},
			"set /autopilot/settings/target-speed-kt 250"},
		{Command{Command: "ap-mach", Value: 0.78},
			"set /autopilot/settings/target-mach 0.780"},
		{Command{Command: "altimeter", Value: 1013.25},
			"set /instrumentation/altimeter/setting-inhg 29.92"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Command, func(t *testing.T) {
			out := &lineSender{}
			c := fgfs.NewCommander(fgfs.DefaultCommandConfig(), out, nil)
			require.NoError(t, dispatchCommand(c, tt.cmd))
			assert.Equal(t, []string{tt.want}, out.lines)
		})
	}
}

func TestDispatchCommandErrors(t *testing.T) {
	out := &lineSender{}
	c := fgfs.NewCommander(fgfs.DefaultCommandConfig(), out, nil)

	assert.ErrorIs(t, dispatchCommand(c, Command{Command: "flaps", Value: 2}), errUnknownCommand)
	assert.ErrorIs(t, dispatchCommand(c, Command{Command: "nav-freq", Value: 110000, Index: 5}), fgfs.ErrReceiverRange)
	assert.Empty(t, out.lines)
}

func TestExecCommandNeedsFlightGear(t *testing.T) {
	fds := &FlightDataService{}
	assert.ErrorIs(t, fds.ExecCommand(Command{Command: "ap-heading", Value: 90}), errNoCommander)

	fds.connector = &MockSimConnector{name: adapterXPlane}
	assert.ErrorIs(t, fds.ExecCommand(Command{Command: "ap-heading", Value: 90}), errNoCommander)

	// adapter built but not connected yet
	fds.connector = NewFGFSAdapter(fgfs.DefaultConfig(), nil)
	assert.ErrorIs(t, fds.ExecCommand(Command{Command: "ap-heading", Value: 90}), errNoCommander)
}
