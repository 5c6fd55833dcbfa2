package fgfs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionProperty holds the simulator version on the property server.
const VersionProperty = "/sim/version/flightgear"

var (
	ErrNotVersionReply    = errors.New("fgfs: not a version reply")
	ErrUnsupportedVersion = errors.New("fgfs: unsupported flightgear version")
)

// ParseVersionReply extracts the version from a property server reply such
// as "/sim/version/flightgear = '2020.3.19' (string)".
func ParseVersionReply(line string) (*semver.Version, error) {
	prop, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok || strings.TrimSpace(prop) != VersionProperty {
		return nil, ErrNotVersionReply
	}
	value = strings.TrimSpace(value)
	if i := strings.LastIndex(value, "("); i > 0 {
		value = strings.TrimSpace(value[:i])
	}
	value = strings.Trim(value, `'"`)

	v, err := semver.NewVersion(value)
	if err != nil {
		return nil, fmt.Errorf("parse flightgear version %q: %w", value, err)
	}
	return v, nil
}

// CheckVersion reports ErrUnsupportedVersion when v does not satisfy
// constraint. An empty constraint accepts everything.
func CheckVersion(v *semver.Version, constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := parseConstraint(constraint)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %q", ErrUnsupportedVersion, v, constraint)
	}
	return nil
}

func parseConstraint(s string) (*semver.Constraints, error) {
	c, err := semver.NewConstraint(s)
	if err != nil {
		return nil, fmt.Errorf("parse version constraint %q: %w", s, err)
	}
	return c, nil
}
