// Package fgfs connects to a running FlightGear instance: generic protocol
// records flow in over UDP or a tailed file, and property commands flow out
// over the telnet property server.
package fgfs

import (
	"errors"
	"fmt"
	"time"
)

const (
	TransportUDP  = "udp"
	TransportFile = "file"
)

// NavProps are the properties written for one NAV receiver.
type NavProps struct {
	Freq string `yaml:"freq"`
	OBS  string `yaml:"obs"`
}

// CommandConfig describes how outbound property commands are spelled.
type CommandConfig struct {
	Word      string `yaml:"word"`
	Separator string `yaml:"separator"`

	APHeading  string `yaml:"ap_heading"`
	APVS       string `yaml:"ap_vs"`
	APAltitude string `yaml:"ap_altitude"`
	APIAS      string `yaml:"ap_ias"`
	APMach     string `yaml:"ap_mach"`
	Altimeter  string `yaml:"altimeter_inhg"`

	NavCount int        `yaml:"nav_count"`
	Nav      []NavProps `yaml:"nav"`
	ADFCount int        `yaml:"adf_count"`
	ADF      []string   `yaml:"adf"`
}

type Config struct {
	Host       string `yaml:"host"`
	ReadPort   int    `yaml:"read_port"`
	TelnetPort int    `yaml:"telnet_port"`

	// Transport selects how records arrive: "udp" or "file".
	Transport string        `yaml:"transport"`
	TailPath  string        `yaml:"tail_path"`
	TailPoll  time.Duration `yaml:"tail_poll"`

	ProtocolDir string `yaml:"protocol_dir"`
	Protocol    string `yaml:"protocol"`

	// Timeout is how long the feed may stay silent before the flight
	// status is marked invalid.
	Timeout       time.Duration `yaml:"timeout"`
	TelnetTimeout time.Duration `yaml:"telnet_timeout"`
	TelnetRetry   time.Duration `yaml:"telnet_retry"`

	// MinVersion is a semver constraint checked against the version the
	// property server reports. Empty disables the check.
	MinVersion string `yaml:"min_version"`

	Commands CommandConfig `yaml:"commands"`
}

func DefaultCommandConfig() CommandConfig {
	return CommandConfig{
		Word:       "set",
		Separator:  " ",
		APHeading:  "/autopilot/settings/heading-bug-deg",
		APVS:       "/autopilot/settings/vertical-speed-fpm",
		APAltitude: "/autopilot/settings/target-altitude-ft",
		APIAS:      "/autopilot/settings/target-speed-kt",
		APMach:     "/autopilot/settings/target-mach",
		Altimeter:  "/instrumentation/altimeter/setting-inhg",
		NavCount:   2,
		Nav: []NavProps{
			{Freq: "/instrumentation/nav/frequencies/selected-mhz", OBS: "/instrumentation/nav/radials/selected-deg"},
			{Freq: "/instrumentation/nav[1]/frequencies/selected-mhz", OBS: "/instrumentation/nav[1]/radials/selected-deg"},
		},
		ADFCount: 1,
		ADF:      []string{"/instrumentation/adf/frequencies/selected-khz"},
	}
}

func DefaultConfig() Config {
	return Config{
		Host:          "localhost",
		ReadPort:      12000,
		TelnetPort:    5401,
		Transport:     TransportUDP,
		TailPoll:      time.Second,
		ProtocolDir:   "/usr/share/games/FlightGear/Protocol",
		Protocol:      "vasfmc",
		Timeout:       time.Second,
		TelnetTimeout: 2 * time.Second,
		TelnetRetry:   5 * time.Second,
		MinVersion:    ">= 2018.1.0",
		Commands:      DefaultCommandConfig(),
	}
}

func (c Config) Validate() error {
	var errs []error
	switch c.Transport {
	case TransportUDP:
		if c.ReadPort <= 0 || c.ReadPort > 65535 {
			errs = append(errs, fmt.Errorf("read_port %d out of range", c.ReadPort))
		}
	case TransportFile:
		if c.TailPath == "" {
			errs = append(errs, errors.New("tail_path is required for the file transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if c.TelnetPort < 0 || c.TelnetPort > 65535 {
		errs = append(errs, fmt.Errorf("telnet_port %d out of range", c.TelnetPort))
	}
	if c.TelnetPort > 0 && c.TelnetRetry <= 0 {
		errs = append(errs, errors.New("telnet_retry must be positive"))
	}
	if c.Protocol == "" {
		errs = append(errs, errors.New("protocol is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Commands.Word == "" {
		errs = append(errs, errors.New("commands.word is required"))
	}
	if c.MinVersion != "" {
		if _, err := parseConstraint(c.MinVersion); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid flightgear config: %w", err)
	}
	return nil
}
