package flightstatus

import "time"

// ToFrom is the combined VOR to/from indication.
type ToFrom int

const (
	ToFromNone ToFrom = iota
	ToFromTo
	ToFromFrom
)

func (tf ToFrom) String() string {
	switch tf {
	case ToFromTo:
		return "TO"
	case ToFromFrom:
		return "FROM"
	default:
		return "OFF"
	}
}

type NavReceiver struct {
	FreqKHz    int     `json:"freqKHz" msgpack:"freq_khz"`
	OBS        int     `json:"obs" msgpack:"obs"`
	ID         string  `json:"id" msgpack:"id"`
	BearingDeg float64 `json:"bearingDeg" msgpack:"bearing_deg"`
	LocNeedle  float64 `json:"locNeedle" msgpack:"loc_needle"`
	GSNeedle   int     `json:"gsNeedle" msgpack:"gs_needle"`
	HasLoc     bool    `json:"hasLoc" msgpack:"has_loc"`
	HasGS      bool    `json:"hasGS" msgpack:"has_gs"`
	ToFrom     ToFrom  `json:"toFrom" msgpack:"to_from"`
	// DME is the formatted distance, empty when no DME is received.
	DME string `json:"dme" msgpack:"dme"`
}

type ADFReceiver struct {
	FreqKHz    int     `json:"freqKHz" msgpack:"freq_khz"`
	ID         string  `json:"id" msgpack:"id"`
	BearingDeg float64 `json:"bearingDeg" msgpack:"bearing_deg"`
}

type Engine struct {
	N1              float64 `json:"n1" msgpack:"n1"`
	N2              float64 `json:"n2" msgpack:"n2"`
	EGTDegC         float64 `json:"egtDegC" msgpack:"egt_degc"`
	FuelFlowKgph    float64 `json:"fuelFlowKgph" msgpack:"ff_kgph"`
	ThrottlePercent float64 `json:"throttlePercent" msgpack:"throttle_pct"`
	AntiIce         bool    `json:"antiIce" msgpack:"anti_ice"`
}

type Autopilot struct {
	Available bool    `json:"available" msgpack:"available"`
	Enabled   bool    `json:"enabled" msgpack:"enabled"`
	HdgLock   bool    `json:"hdgLock" msgpack:"hdg_lock"`
	Heading   float64 `json:"heading" msgpack:"heading"`
	AltLock   bool    `json:"altLock" msgpack:"alt_lock"`
	Altitude  float64 `json:"altitude" msgpack:"altitude"`
	VSLock    bool    `json:"vsLock" msgpack:"vs_lock"`
	VS        float64 `json:"vs" msgpack:"vs"`
	IAS       float64 `json:"ias" msgpack:"ias"`
	Mach      float64 `json:"mach" msgpack:"mach"`

	FDAvailable bool    `json:"fdAvailable" msgpack:"fd_available"`
	FDPitch     float64 `json:"fdPitch" msgpack:"fd_pitch"`
	FDBank      float64 `json:"fdBank" msgpack:"fd_bank"`
}

type Lights struct {
	Landing    bool `json:"landing" msgpack:"landing"`
	Strobe     bool `json:"strobe" msgpack:"strobe"`
	Beacon     bool `json:"beacon" msgpack:"beacon"`
	Taxi       bool `json:"taxi" msgpack:"taxi"`
	Navigation bool `json:"navigation" msgpack:"navigation"`
}

// Snapshot is a copy of the aircraft state as last received.
type Snapshot struct {
	Valid     bool      `json:"valid" msgpack:"valid"`
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updated_at"`

	SimTimeUTC time.Time `json:"simTimeUTC" msgpack:"sim_time_utc"`

	IAS              float64 `json:"ias" msgpack:"ias"`
	TAS              float64 `json:"tas" msgpack:"tas"`
	BarberPole       float64 `json:"barberPole" msgpack:"barber_pole"`
	AltitudeFt       float64 `json:"altitudeFt" msgpack:"alt_ft"`
	GroundAltFt      float64 `json:"groundAltFt" msgpack:"ground_alt_ft"`
	VerticalSpeedFpm float64 `json:"verticalSpeedFpm" msgpack:"vs_fpm"`
	Lat              float64 `json:"lat" msgpack:"lat"`
	Lon              float64 `json:"lon" msgpack:"lon"`
	Pitch            float64 `json:"pitch" msgpack:"pitch"`
	Bank             float64 `json:"bank" msgpack:"bank"`
	TrueHeading      float64 `json:"trueHeading" msgpack:"true_heading"`
	MagVar           float64 `json:"magVar" msgpack:"magvar"`
	WindSpeedKts     float64 `json:"windSpeedKts" msgpack:"wind_speed_kts"`
	WindDirDegTrue   float64 `json:"windDirDegTrue" msgpack:"wind_dir_deg_true"`
	ViewDirDeg       float64 `json:"viewDirDeg" msgpack:"view_dir_deg"`
	Paused           bool    `json:"paused" msgpack:"paused"`
	SlipSkid         float64 `json:"slipSkid" msgpack:"slipskid"`
	TATDegC          float64 `json:"tatDegC" msgpack:"tat"`
	SATDegC          float64 `json:"satDegC" msgpack:"sat"`
	OATDegC          float64 `json:"oatDegC" msgpack:"oat"`
	DewPointDegC     float64 `json:"dewPointDegC" msgpack:"dewpoint"`
	QNHhPa           float64 `json:"qnhHPa" msgpack:"qnh_hpa"`
	Delta            float64 `json:"delta" msgpack:"delta"`
	Theta            float64 `json:"theta" msgpack:"theta"`
	OnGround         bool    `json:"onGround" msgpack:"on_ground"`
	GroundSpeedKts   float64 `json:"groundSpeedKts" msgpack:"gs_kts"`

	Autopilot Autopilot `json:"autopilot" msgpack:"autopilot"`

	Nav        [2]NavReceiver `json:"nav" msgpack:"nav"`
	ADF        [2]ADFReceiver `json:"adf" msgpack:"adf"`
	NavInRange bool           `json:"navInRange" msgpack:"nav_in_range"`

	BatteryOn  bool `json:"batteryOn" msgpack:"battery_on"`
	AvionicsOn bool `json:"avionicsOn" msgpack:"avionics_on"`

	Engines [4]Engine `json:"engines" msgpack:"engines"`
	Lights  Lights    `json:"lights" msgpack:"lights"`

	GearPercent         float64 `json:"gearPercent" msgpack:"gear_pct"`
	ZeroFuelWeightKg    float64 `json:"zeroFuelWeightKg" msgpack:"zfw_kg"`
	TotalWeightKg       float64 `json:"totalWeightKg" msgpack:"total_weight_kg"`
	FlapsDeg            float64 `json:"flapsDeg" msgpack:"flaps_deg"`
	FlapsIncPerNotch    float64 `json:"flapsIncPerNotch" msgpack:"flaps_inc_per_notch"`
	FlapsRaw            float64 `json:"flapsRaw" msgpack:"flaps_raw"`
	SpoilerLeverPercent float64 `json:"spoilerLeverPercent" msgpack:"spoiler_lever_pct"`
	SpoilerPercent      float64 `json:"spoilerPercent" msgpack:"spoiler_pct"`
	AircraftType        string  `json:"aircraftType" msgpack:"aircraft_type"`
}

// FuelOnBoardKg derives fuel from the two weight labels.
func (s Snapshot) FuelOnBoardKg() float64 {
	if s.TotalWeightKg <= s.ZeroFuelWeightKg {
		return 0
	}
	return s.TotalWeightKg - s.ZeroFuelWeightKg
}
