package fgfs

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"simbridge/flightstatus"
)

var (
	ErrReceiverRange = errors.New("fgfs: receiver index out of configured range")
	ErrNotConfigured = errors.New("fgfs: property not configured")
)

const inHgPerHPa = 0.029529983071445

// Sender delivers one command line to the simulator.
type Sender interface {
	Send(text string) error
}

// State is the flight status the commander consults before writing.
type State interface {
	Valid() bool
	Snapshot() flightstatus.Snapshot
}

// Commander turns cockpit inputs into property server commands. Commands
// are still sent while the flight status is invalid; a warning is logged.
type Commander struct {
	cfg   CommandConfig
	out   Sender
	state State
}

func NewCommander(cfg CommandConfig, out Sender, state State) *Commander {
	if cfg.Separator == "" {
		cfg.Separator = " "
	}
	return &Commander{cfg: cfg, out: out, state: state}
}

// FormatCommand renders "<word><sep><prop><sep><value>" with value printed
// to a fixed number of decimals.
func FormatCommand(word, sep, prop string, value float64, decimals int) string {
	var b strings.Builder
	b.WriteString(word)
	b.WriteString(sep)
	b.WriteString(prop)
	b.WriteString(sep)
	b.WriteString(strconv.FormatFloat(value, 'f', decimals, 64))
	return b.String()
}

// SetNavFrequency tunes NAV receiver nav (0-based) to freqKHz.
func (c *Commander) SetNavFrequency(freqKHz int, nav int) error {
	name := fmt.Sprintf("NAV%d freq", nav+1)
	if nav < 0 || nav >= c.cfg.NavCount {
		return c.reject(name, ErrReceiverRange)
	}
	var prop string
	if nav < len(c.cfg.Nav) {
		prop = c.cfg.Nav[nav].Freq
	}
	return c.send(name, prop, float64(freqKHz)/1000, 2)
}

// SetADFFrequency tunes ADF receiver adf (0-based) to freq in Hz; the
// property takes kHz.
func (c *Commander) SetADFFrequency(freq int, adf int) error {
	name := fmt.Sprintf("ADF%d freq", adf+1)
	if adf < 0 || adf >= c.cfg.ADFCount {
		return c.reject(name, ErrReceiverRange)
	}
	var prop string
	if adf < len(c.cfg.ADF) {
		prop = c.cfg.ADF[adf]
	}
	return c.send(name, prop, float64(freq)/1000, 2)
}

func (c *Commander) SetNavOBS(radial int, nav int) error {
	name := fmt.Sprintf("NAV%d obs", nav+1)
	if nav < 0 || nav >= c.cfg.NavCount {
		return c.reject(name, ErrReceiverRange)
	}
	var prop string
	if nav < len(c.cfg.Nav) {
		prop = c.cfg.Nav[nav].OBS
	}
	return c.send(name, prop, float64(radial), 0)
}

// SetAPHeading moves the heading bug. Changes of half a degree or less
// against the current bug are dropped.
func (c *Commander) SetAPHeading(heading float64) error {
	if c.state != nil && math.Abs(c.state.Snapshot().Autopilot.Heading-heading) <= 0.5 {
		return nil
	}
	return c.send("AP heading", c.cfg.APHeading, heading, 0)
}

func (c *Commander) SetAPVerticalSpeed(fpm int) error {
	return c.send("AP vs", c.cfg.APVS, float64(fpm), 0)
}

func (c *Commander) SetAPAltitude(ft int) error {
	return c.send("AP altitude", c.cfg.APAltitude, float64(ft), 0)
}

func (c *Commander) SetAPAirspeed(kts int) error {
	return c.send("AP airspeed", c.cfg.APIAS, float64(kts), 0)
}

func (c *Commander) SetAPMach(mach float64) error {
	return c.send("AP mach", c.cfg.APMach, mach, 3)
}

// SetAltimeterHPa sets the altimeter; the property takes inches of mercury.
func (c *Commander) SetAltimeterHPa(hpa float64) error {
	return c.send("altimeter", c.cfg.Altimeter, hpa*inHgPerHPa, 2)
}

func (c *Commander) send(name, prop string, value float64, decimals int) error {
	if prop == "" {
		return c.reject(name, ErrNotConfigured)
	}
	if c.state != nil && !c.state.Valid() {
		slog.Warn("flight status invalid, sending anyway", "command", name)
	}
	line := FormatCommand(c.cfg.Word, c.cfg.Separator, prop, value, decimals)
	if err := c.out.Send(line); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	return nil
}

func (c *Commander) reject(name string, err error) error {
	slog.Warn("command not sent", "command", name, "error", err)
	return fmt.Errorf("%s: %w", name, err)
}
