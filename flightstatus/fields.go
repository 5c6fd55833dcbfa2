package flightstatus

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"simbridge/generic"
)

// setter stores one decoded value. i is the element index for array
// labels and -1 for scalars.
type setter func(st *Status, i int, v generic.Value) error

type field struct {
	label string
	size  int
	set   setter
}

const fsTimeLayout = "2006-01-02T15:04:05"

// fields is the label table the protocol chunks resolve against. Labels
// with a size are fixed arrays: index 0/1 are NAV1/NAV2 and 2/3 ADF1/ADF2
// for the navaid groups of four.
var fields = []field{
	{label: "ias", set: numeric(func(s *Snapshot, f float64) { s.IAS = f })},
	{label: "tas", set: numeric(func(s *Snapshot, f float64) { s.TAS = f })},
	{label: "barber_pole", set: numeric(func(s *Snapshot, f float64) { s.BarberPole = f })},
	{label: "alt", set: numeric(func(s *Snapshot, f float64) { s.AltitudeFt = f })},
	{label: "ground_alt", set: numeric(func(s *Snapshot, f float64) { s.GroundAltFt = f })},
	{label: "vs", set: numeric(func(s *Snapshot, f float64) { s.VerticalSpeedFpm = f })},
	{label: "lat", set: numeric(func(s *Snapshot, f float64) { s.Lat = f })},
	{label: "lon", set: numeric(func(s *Snapshot, f float64) { s.Lon = f })},
	{label: "pitch", set: numeric(func(s *Snapshot, f float64) { s.Pitch = f })},
	{label: "bank", set: numeric(func(s *Snapshot, f float64) { s.Bank = f })},
	{label: "true_heading", set: numeric(func(s *Snapshot, f float64) { s.TrueHeading = f })},
	{label: "magvar", set: numeric(func(s *Snapshot, f float64) { s.MagVar = f })},
	{label: "wind_speed_kts", set: numeric(func(s *Snapshot, f float64) { s.WindSpeedKts = f })},
	{label: "wind_dir_deg_true", set: numeric(func(s *Snapshot, f float64) { s.WindDirDegTrue = f })},
	{label: "view_dir_deg", set: numeric(func(s *Snapshot, f float64) { s.ViewDirDeg = f })},
	{label: "paused", set: flag(func(s *Snapshot, b bool) { s.Paused = b })},
	{label: "fs_utc_dtg", set: setUTC},
	{label: "slipskid", set: numeric(func(s *Snapshot, f float64) { s.SlipSkid = f })},
	{label: "tat", set: numeric(func(s *Snapshot, f float64) { s.TATDegC = f })},
	{label: "sat", set: numeric(func(s *Snapshot, f float64) { s.SATDegC = f })},
	{label: "oat-degc", set: numeric(func(s *Snapshot, f float64) { s.OATDegC = f })},
	{label: "dewpoint-degc", set: numeric(func(s *Snapshot, f float64) { s.DewPointDegC = f })},
	{label: "qnh-hpa", set: numeric(func(s *Snapshot, f float64) { s.QNHhPa = f })},
	{label: "delta", set: numeric(func(s *Snapshot, f float64) { s.Delta = f })},
	{label: "theta", set: numeric(func(s *Snapshot, f float64) { s.Theta = f })},
	{label: "onground", set: flag(func(s *Snapshot, b bool) { s.OnGround = b })},
	{label: "ap_available", set: flag(func(s *Snapshot, b bool) { s.Autopilot.Available = b })},
	// FlightGear reports the passive-mode switch, so the flag is inverted.
	{label: "ap_disabled", set: flag(func(s *Snapshot, b bool) { s.Autopilot.Enabled = !b })},
	{label: "ap_hdg_lock", set: flag(func(s *Snapshot, b bool) { s.Autopilot.HdgLock = b })},
	{label: "ap_hdg", set: numeric(func(s *Snapshot, f float64) { s.Autopilot.Heading = f })},
	{label: "ap_alt_lock", set: flag(func(s *Snapshot, b bool) { s.Autopilot.AltLock = b })},
	{label: "ap_alt", set: numeric(func(s *Snapshot, f float64) { s.Autopilot.Altitude = f })},
	{label: "ap_vs_lock", set: flag(func(s *Snapshot, b bool) { s.Autopilot.VSLock = b })},
	{label: "ap_vs", set: numeric(func(s *Snapshot, f float64) { s.Autopilot.VS = f })},
	{label: "ap_ias", set: numeric(func(s *Snapshot, f float64) { s.Autopilot.IAS = f })},
	{label: "ap_mach", set: numeric(func(s *Snapshot, f float64) { s.Autopilot.Mach = f })},
	{label: "fd_available", set: flag(func(s *Snapshot, b bool) { s.Autopilot.FDAvailable = b })},
	{label: "fd_pitch", set: numeric(func(s *Snapshot, f float64) { s.Autopilot.FDPitch = f })},
	{label: "fd_bank", set: numeric(func(s *Snapshot, f float64) { s.Autopilot.FDBank = f })},
	{label: "navaid_freq-mul1000", size: 4, set: numericAt(func(s *Snapshot, i int, f float64) {
		if i < 2 {
			s.Nav[i].FreqKHz = int(math.Round(f))
		} else {
			s.ADF[i-2].FreqKHz = int(math.Round(f))
		}
	})},
	{label: "navaid_radial-deg", size: 2, set: numericAt(func(s *Snapshot, i int, f float64) {
		s.Nav[i].OBS = int(math.Round(f))
	})},
	{label: "navaid_dme_valid", size: 2, set: func(st *Status, i int, v generic.Value) error {
		b, err := truthy(v)
		if err != nil {
			return err
		}
		st.dme[i].recvValid(b, &st.work.Nav[i].DME)
		return nil
	}},
	{label: "navaid_hasloc", size: 2, set: flagAt(func(s *Snapshot, i int, b bool) { s.Nav[i].HasLoc = b })},
	{label: "navaid_hasgs", size: 2, set: flagAt(func(s *Snapshot, i int, b bool) { s.Nav[i].HasGS = b })},
	{label: "navaid_inrange", set: flag(func(s *Snapshot, b bool) { s.NavInRange = b })},
	{label: "navaid_id", size: 4, set: textAt(func(s *Snapshot, i int, t string) {
		if i < 2 {
			s.Nav[i].ID = t
		} else {
			s.ADF[i-2].ID = t
		}
	})},
	{label: "navaid_heading-deg", size: 4, set: numericAt(func(s *Snapshot, i int, f float64) {
		if i < 2 {
			s.Nav[i].BearingDeg = f - s.TrueHeading
		} else {
			s.ADF[i-2].BearingDeg = f
		}
	})},
	{label: "navaid_hneedle_defl", size: 2, set: numericAt(func(s *Snapshot, i int, f float64) {
		s.Nav[i].LocNeedle = f * 127.0 / 10.0
	})},
	{label: "navaid_fromflag", size: 2, set: func(st *Status, i int, v generic.Value) error {
		b, err := truthy(v)
		if err != nil {
			return err
		}
		st.vor[i].recvFrom(b, &st.work.Nav[i].ToFrom)
		return nil
	}},
	{label: "navaid_toflag", size: 2, set: func(st *Status, i int, v generic.Value) error {
		b, err := truthy(v)
		if err != nil {
			return err
		}
		st.vor[i].recvTo(b, &st.work.Nav[i].ToFrom)
		return nil
	}},
	// full scale deflection is 0.4 degrees either side of the glideslope
	{label: "navaid_gsneedle_defl", size: 2, set: numericAt(func(s *Snapshot, i int, f float64) {
		n := int(math.Round(f * -1 * 127.0 / (2 * 0.40)))
		s.Nav[i].GSNeedle = max(-127, min(127, n))
	})},
	{label: "extfmcvoltage", set: flag(func(s *Snapshot, b bool) { s.BatteryOn = b })},
	{label: "avionics_switch", set: flag(func(s *Snapshot, b bool) { s.AvionicsOn = b })},
	{label: "n1", size: 4, set: numericAt(func(s *Snapshot, i int, f float64) { s.Engines[i].N1 = f })},
	// piston rpm scaled onto the N1 gauge
	{label: "rpm", size: 4, set: numericAt(func(s *Snapshot, i int, f float64) { s.Engines[i].N1 = f * 0.05714 })},
	{label: "egt-degc", size: 4, set: numericAt(func(s *Snapshot, i int, f float64) { s.Engines[i].EGTDegC = f })},
	{label: "n2", size: 4, set: numericAt(func(s *Snapshot, i int, f float64) { s.Engines[i].N2 = f })},
	{label: "ff-kgph", size: 4, set: numericAt(func(s *Snapshot, i int, f float64) { s.Engines[i].FuelFlowKgph = f })},
	{label: "antiice", size: 4, set: flagAt(func(s *Snapshot, i int, b bool) { s.Engines[i].AntiIce = b })},
	{label: "lights_landing", set: flag(func(s *Snapshot, b bool) { s.Lights.Landing = b })},
	{label: "lights_strobe", set: flag(func(s *Snapshot, b bool) { s.Lights.Strobe = b })},
	{label: "lights_beacon", set: flag(func(s *Snapshot, b bool) { s.Lights.Beacon = b })},
	{label: "gear_nose", set: numeric(func(s *Snapshot, f float64) { s.GearPercent = f })},
	{label: "ground_speed-kts", set: numeric(func(s *Snapshot, f float64) { s.GroundSpeedKts = f })},
	{label: "zero_fuel_weight-kg", set: numeric(func(s *Snapshot, f float64) { s.ZeroFuelWeightKg = f })},
	{label: "total_weight-kg", set: numeric(func(s *Snapshot, f float64) { s.TotalWeightKg = f })},
	{label: "flaps-deg", set: numeric(func(s *Snapshot, f float64) { s.FlapsDeg = f })},
	{label: "flaps-incpernotch", set: numeric(func(s *Snapshot, f float64) { s.FlapsIncPerNotch = f })},
	{label: "flaps-inc", set: numeric(func(s *Snapshot, f float64) { s.FlapsRaw = f })},
	{label: "power_set", size: 4, set: numericAt(func(s *Snapshot, i int, f float64) { s.Engines[i].ThrottlePercent = f })},
	{label: "lights_taxi", set: flag(func(s *Snapshot, b bool) { s.Lights.Taxi = b })},
	{label: "lights_nav", set: flag(func(s *Snapshot, b bool) { s.Lights.Navigation = b })},
	{label: "spoiler_lever_percent", set: numeric(func(s *Snapshot, f float64) { s.SpoilerLeverPercent = f })},
	{label: "spoiler_percent", set: numeric(func(s *Snapshot, f float64) { s.SpoilerPercent = f })},
	{label: "navaid_dme_range-nm", size: 2, set: func(st *Status, i int, v generic.Value) error {
		f, err := number(v)
		if err != nil {
			return err
		}
		st.dme[i].recvDist(f, &st.work.Nav[i].DME)
		return nil
	}},
	{label: "aircraft_type", set: text(func(s *Snapshot, t string) { s.AircraftType = t })},
}

var labelIndex = func() map[string]int {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.label] = i
	}
	return idx
}()

// Labels lists every label the model accepts, in table order.
func Labels() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.label
	}
	return out
}

func setUTC(st *Status, _ int, v generic.Value) error {
	ts, err := time.ParseInLocation(fsTimeLayout, strings.TrimSpace(textOf(v)), time.UTC)
	if err != nil {
		return fmt.Errorf("parse sim time: %w", err)
	}
	st.work.SimTimeUTC = ts
	return nil
}

func numeric(set func(*Snapshot, float64)) setter {
	return func(st *Status, _ int, v generic.Value) error {
		f, err := number(v)
		if err != nil {
			return err
		}
		set(&st.work, f)
		return nil
	}
}

func numericAt(set func(*Snapshot, int, float64)) setter {
	return func(st *Status, i int, v generic.Value) error {
		f, err := number(v)
		if err != nil {
			return err
		}
		set(&st.work, i, f)
		return nil
	}
}

func flag(set func(*Snapshot, bool)) setter {
	return func(st *Status, _ int, v generic.Value) error {
		b, err := truthy(v)
		if err != nil {
			return err
		}
		set(&st.work, b)
		return nil
	}
}

func flagAt(set func(*Snapshot, int, bool)) setter {
	return func(st *Status, i int, v generic.Value) error {
		b, err := truthy(v)
		if err != nil {
			return err
		}
		set(&st.work, i, b)
		return nil
	}
}

func text(set func(*Snapshot, string)) setter {
	return func(st *Status, _ int, v generic.Value) error {
		set(&st.work, textOf(v))
		return nil
	}
}

func textAt(set func(*Snapshot, int, string)) setter {
	return func(st *Status, i int, v generic.Value) error {
		set(&st.work, i, textOf(v))
		return nil
	}
}

func number(v generic.Value) (float64, error) {
	if v.Type != generic.String {
		return v.Float(), nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", v.Str)
	}
	return f, nil
}

// truthy treats any non-zero number as true.
func truthy(v generic.Value) (bool, error) {
	switch v.Type {
	case generic.Bool:
		return v.Bool, nil
	case generic.String:
		parsed, err := generic.ParseValue([]byte(v.Str), generic.Bool)
		if err != nil {
			return false, err
		}
		return parsed.Bool, nil
	default:
		return v.Float() != 0, nil
	}
}

func textOf(v generic.Value) string {
	switch v.Type {
	case generic.String:
		return v.Str
	case generic.Int:
		return strconv.FormatInt(v.Int, 10)
	case generic.Real:
		return strconv.FormatFloat(v.Real, 'f', -1, 64)
	default:
		return strconv.FormatBool(v.Bool)
	}
}
