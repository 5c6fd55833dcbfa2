package main

import (
	"errors"
	"fmt"
	"math"

	"simbridge/fgfs"
)

var (
	errNoCommander    = errors.New("connected simulator does not accept commands")
	errUnknownCommand = errors.New("unknown command")
)

// Command is a cockpit input sent by a monitor client, for example
// {"type":"command","command":"ap-heading","value":270}.
type Command struct {
	Type    string  `json:"type"`
	Command string  `json:"command"`
	Value   float64 `json:"value"`
	// Index selects the receiver (0-based) for nav and adf commands.
	Index int `json:"index,omitempty"`
}

// ExecCommand forwards cmd to the live FlightGear property connection.
func (f *FlightDataService) ExecCommand(cmd Command) error {
	fg, ok := f.Connector().(*FGFSAdapter)
	if !ok {
		return errNoCommander
	}
	c := fg.Commander()
	if c == nil {
		return errNoCommander
	}
	return dispatchCommand(c, cmd)
}

func dispatchCommand(c *fgfs.Commander, cmd Command) error {
	v := cmd.Value
	switch cmd.Command {
	case "nav-freq":
		return c.SetNavFrequency(int(math.Round(v)), cmd.Index)
	case "nav-obs":
		return c.SetNavOBS(int(math.Round(v)), cmd.Index)
	case "adf-freq":
		return c.SetADFFrequency(int(math.Round(v)), cmd.Index)
	case "ap-heading":
		return c.SetAPHeading(v)
	case "ap-vs":
		return c.SetAPVerticalSpeed(int(math.Round(v)))
	case "ap-altitude":
		return c.SetAPAltitude(int(math.Round(v)))
	case "ap-airspeed":
		return c.SetAPAirspeed(int(math.Round(v)))
	case "ap-mach":
		return c.SetAPMach(v)
	case "altimeter":
		return c.SetAltimeterHPa(v)
	default:
		return fmt.Errorf("%w %q", errUnknownCommand, cmd.Command)
	}
}
