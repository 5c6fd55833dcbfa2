//go:build windows

package main

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	sim "github.com/lian/msfs2020-go/simconnect"

	"simbridge/flightstatus"
)

const poundsToKg = 0.45359237

type SimConnectAdapter struct {
	mu      sync.RWMutex
	sc      *sim.SimConnect
	status  *flightstatus.Status
	stopCh  chan struct{}
	stopped chan struct{}
}

type simReport struct {
	sim.RecvSimobjectDataByType

	Latitude    float64 `name:"PLANE LATITUDE" unit:"degrees"`
	Longitude   float64 `name:"PLANE LONGITUDE" unit:"degrees"`
	Altitude    float64 `name:"INDICATED ALTITUDE" unit:"feet"`
	GroundAlt   float64 `name:"GROUND ALTITUDE" unit:"feet"`
	Pitch       float64 `name:"PLANE PITCH DEGREES" unit:"degrees"`
	Roll        float64 `name:"PLANE BANK DEGREES" unit:"degrees"`
	HeadingTrue float64 `name:"PLANE HEADING DEGREES TRUE" unit:"degrees"`
	MagVar      float64 `name:"MAGVAR" unit:"degrees"`
	VS          float64 `name:"VERTICAL SPEED" unit:"feet per second"`
	IAS         float64 `name:"AIRSPEED INDICATED" unit:"knots"`
	TAS         float64 `name:"AIRSPEED TRUE" unit:"knots"`
	GS          float64 `name:"GROUND VELOCITY" unit:"knots"`
	OnGround    float64 `name:"SIM ON GROUND" unit:"Bool"`
	WindSpeed   float64 `name:"AMBIENT WIND VELOCITY" unit:"knots"`
	WindDir     float64 `name:"AMBIENT WIND DIRECTION" unit:"degrees"`
	OAT         float64 `name:"AMBIENT TEMPERATURE" unit:"celsius"`
	TAT         float64 `name:"TOTAL AIR TEMPERATURE" unit:"celsius"`

	Eng1N1 float64 `name:"TURB ENG N1:1" unit:"Percent"`
	Eng1N2 float64 `name:"TURB ENG N2:1" unit:"Percent"`
	Eng2N1 float64 `name:"TURB ENG N1:2" unit:"Percent"`
	Eng2N2 float64 `name:"TURB ENG N2:2" unit:"Percent"`
	Eng3N1 float64 `name:"TURB ENG N1:3" unit:"Percent"`
	Eng3N2 float64 `name:"TURB ENG N2:3" unit:"Percent"`
	Eng4N1 float64 `name:"TURB ENG N1:4" unit:"Percent"`
	Eng4N2 float64 `name:"TURB ENG N2:4" unit:"Percent"`

	Nav1    float64 `name:"NAV ACTIVE FREQUENCY:1" unit:"kHz"`
	Nav2    float64 `name:"NAV ACTIVE FREQUENCY:2" unit:"kHz"`
	Nav1OBS float64 `name:"NAV OBS:1" unit:"degrees"`
	Nav2OBS float64 `name:"NAV OBS:2" unit:"degrees"`
	ADF1    float64 `name:"ADF ACTIVE FREQUENCY:1" unit:"kHz"`

	APMaster   float64 `name:"AUTOPILOT MASTER" unit:"Bool"`
	APHeading  float64 `name:"AUTOPILOT HEADING LOCK DIR" unit:"degrees"`
	APAltitude float64 `name:"AUTOPILOT ALTITUDE LOCK VAR" unit:"feet"`
	APVS       float64 `name:"AUTOPILOT VERTICAL HOLD VAR" unit:"feet/minute"`
	APSpeed    float64 `name:"AUTOPILOT AIRSPEED HOLD VAR" unit:"knots"`
	APMach     float64 `name:"AUTOPILOT MACH HOLD VAR" unit:"number"`

	KohlsmanMb float64 `name:"KOHLSMAN SETTING MB" unit:"millibars"`

	LightBeacon  float64 `name:"LIGHT BEACON" unit:"Bool"`
	LightStrobe  float64 `name:"LIGHT STROBE" unit:"Bool"`
	LightLanding float64 `name:"LIGHT LANDING" unit:"Bool"`
	LightTaxi    float64 `name:"LIGHT TAXI" unit:"Bool"`
	LightNav     float64 `name:"LIGHT NAV" unit:"Bool"`

	Flaps    float64 `name:"FLAPS HANDLE PERCENT" unit:"Percent Over 100"`
	Spoilers float64 `name:"SPOILERS HANDLE POSITION" unit:"Percent Over 100"`
	Gear     float64 `name:"GEAR HANDLE POSITION" unit:"Bool"`

	TotalWeight float64 `name:"TOTAL WEIGHT" unit:"pounds"`
	FuelWeight  float64 `name:"FUEL TOTAL QUANTITY WEIGHT" unit:"pounds"`

	// TITLE must be last, the 256-byte array misaligns later float64s
	AircraftTitle [256]byte `name:"TITLE" unit:""`
}

func NewSimConnectAdapter() SimConnector {
	return &SimConnectAdapter{status: flightstatus.New()}
}

func (s *SimConnectAdapter) Name() string {
	return adapterSimConnect
}

func (s *SimConnectAdapter) Connect() error {
	s.stopCh = make(chan struct{})
	s.stopped = make(chan struct{})
	errCh := make(chan error, 1)

	go s.run(errCh)

	return <-errCh
}

func (s *SimConnectAdapter) Disconnect() error {
	s.mu.RLock()
	sc := s.sc
	s.mu.RUnlock()

	if sc != nil {
		close(s.stopCh)
		<-s.stopped
	}
	return nil
}

// run performs all SimConnect calls on one locked OS thread.
func (s *SimConnectAdapter) run(errCh chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.stopped)

	sc, err := sim.New("simbridge")
	if err != nil {
		errCh <- fmt.Errorf("simconnect open: %w", err)
		return
	}

	report := &simReport{}
	if err := sc.RegisterDataDefinition(report); err != nil {
		sc.Close()
		errCh <- fmt.Errorf("register data definition: %w", err)
		return
	}

	s.mu.Lock()
	s.sc = sc
	s.mu.Unlock()

	slog.Info("SimConnect connected")
	errCh <- nil

	defineID := sc.GetDefineID(report)

	requestTicker := time.NewTicker(time.Second)
	defer requestTicker.Stop()

	sc.RequestDataOnSimObjectType(0, defineID, 0, sim.SIMOBJECT_TYPE_USER)

	defer func() {
		sc.Close()
		s.mu.Lock()
		s.sc = nil
		s.mu.Unlock()
		s.status.SetValid(false)
	}()

	for {
		select {
		case <-s.stopCh:
			return
		case <-requestTicker.C:
			sc.RequestDataOnSimObjectType(0, defineID, 0, sim.SIMOBJECT_TYPE_USER)
		default:
			ppData, r1, _ := sc.GetNextDispatch()
			if r1 < 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}

			recvInfo := *(*sim.Recv)(ppData)

			switch recvInfo.ID {
			case sim.RECV_ID_SIMOBJECT_DATA_BYTYPE:
				r := (*simReport)(ppData)
				s.status.Update(func(snap *flightstatus.Snapshot) { r.apply(snap) })
				s.status.SetValid(true)
			case sim.RECV_ID_EXCEPTION:
				slog.Warn("SimConnect exception received")
			}
		}
	}
}

func (r *simReport) apply(s *flightstatus.Snapshot) {
	s.Lat = r.Latitude
	s.Lon = r.Longitude
	s.AltitudeFt = r.Altitude
	s.GroundAltFt = r.GroundAlt
	s.Pitch = r.Pitch
	s.Bank = r.Roll
	s.TrueHeading = r.HeadingTrue
	s.MagVar = r.MagVar
	s.VerticalSpeedFpm = r.VS * 60
	s.IAS = r.IAS
	s.TAS = r.TAS
	s.GroundSpeedKts = r.GS
	s.OnGround = r.OnGround != 0
	s.WindSpeedKts = r.WindSpeed
	s.WindDirDegTrue = r.WindDir
	s.OATDegC = r.OAT
	s.SATDegC = r.OAT
	s.TATDegC = r.TAT

	n1 := [4]float64{r.Eng1N1, r.Eng2N1, r.Eng3N1, r.Eng4N1}
	n2 := [4]float64{r.Eng1N2, r.Eng2N2, r.Eng3N2, r.Eng4N2}
	for i := range s.Engines {
		s.Engines[i].N1 = n1[i]
		s.Engines[i].N2 = n2[i]
	}

	s.Nav[0].FreqKHz = int(r.Nav1)
	s.Nav[1].FreqKHz = int(r.Nav2)
	s.Nav[0].OBS = int(r.Nav1OBS)
	s.Nav[1].OBS = int(r.Nav2OBS)
	s.ADF[0].FreqKHz = int(r.ADF1)

	s.Autopilot.Available = true
	s.Autopilot.Enabled = r.APMaster != 0
	s.Autopilot.Heading = r.APHeading
	s.Autopilot.Altitude = r.APAltitude
	s.Autopilot.VS = r.APVS
	s.Autopilot.IAS = r.APSpeed
	s.Autopilot.Mach = r.APMach

	s.QNHhPa = r.KohlsmanMb

	s.Lights.Beacon = r.LightBeacon != 0
	s.Lights.Strobe = r.LightStrobe != 0
	s.Lights.Landing = r.LightLanding != 0
	s.Lights.Taxi = r.LightTaxi != 0
	s.Lights.Navigation = r.LightNav != 0

	s.FlapsRaw = r.Flaps * 100
	s.SpoilerLeverPercent = r.Spoilers * 100
	if r.Gear != 0 {
		s.GearPercent = 100
	} else {
		s.GearPercent = 0
	}

	s.TotalWeightKg = r.TotalWeight * poundsToKg
	s.ZeroFuelWeightKg = (r.TotalWeight - r.FuelWeight) * poundsToKg
	s.AircraftType = trimNullBytes(r.AircraftTitle[:])
}

// trimNullBytes returns a string from a null-padded byte slice.
func trimNullBytes(b []byte) string {
	for i, v := range b {
		if v == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (s *SimConnectAdapter) GetFlightData() (*flightstatus.Snapshot, error) {
	if !s.status.Valid() {
		return nil, fmt.Errorf("waiting for sim data")
	}
	snap := s.status.Snapshot()
	return &snap, nil
}

func (s *SimConnectAdapter) LastReceived() time.Time {
	return s.status.LastUpdate()
}
