package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"simbridge/flightstatus"
)

const (
	metersToFeet = 3.28084
	mpsToKnots   = 1.94384
	rrefRateHz   = 5
)

type XPlaneAdapter struct {
	host string
	port int

	status *flightstatus.Status

	mu      sync.Mutex
	conn    *net.UDPConn
	stop    chan struct{}
	stopped chan struct{}
}

// RREF dataref paths, subscribed under their index.
var xplaneDatarefs = []struct {
	path  string
	apply func(s *flightstatus.Snapshot, v float64)
}{
	{"sim/flightmodel/position/elevation", func(s *flightstatus.Snapshot, v float64) { s.AltitudeFt = v * metersToFeet }},
	{"sim/flightmodel/position/psi", func(s *flightstatus.Snapshot, v float64) { s.TrueHeading = v }},
	{"sim/flightmodel/position/theta", func(s *flightstatus.Snapshot, v float64) { s.Pitch = v }},
	{"sim/flightmodel/position/phi", func(s *flightstatus.Snapshot, v float64) { s.Bank = v }},
	{"sim/flightmodel/position/indicated_airspeed", func(s *flightstatus.Snapshot, v float64) { s.IAS = v }},
	{"sim/flightmodel/position/groundspeed", func(s *flightstatus.Snapshot, v float64) { s.GroundSpeedKts = v * mpsToKnots }},
	{"sim/flightmodel/position/vh_ind_fpm", func(s *flightstatus.Snapshot, v float64) { s.VerticalSpeedFpm = v }},
	{"sim/flightmodel/position/latitude", func(s *flightstatus.Snapshot, v float64) { s.Lat = v }},
	{"sim/flightmodel/position/longitude", func(s *flightstatus.Snapshot, v float64) { s.Lon = v }},
	{"sim/flightmodel/position/true_airspeed", func(s *flightstatus.Snapshot, v float64) { s.TAS = v * mpsToKnots }},
	{"sim/flightmodel/failures/onground_any", func(s *flightstatus.Snapshot, v float64) { s.OnGround = v != 0 }},
	{"sim/cockpit/autopilot/heading_mag", func(s *flightstatus.Snapshot, v float64) { s.Autopilot.Heading = v }},
	{"sim/cockpit/autopilot/altitude", func(s *flightstatus.Snapshot, v float64) { s.Autopilot.Altitude = v }},
	{"sim/cockpit/autopilot/vertical_velocity", func(s *flightstatus.Snapshot, v float64) { s.Autopilot.VS = v }},
	{"sim/cockpit2/radios/actuators/nav1_frequency_hz", func(s *flightstatus.Snapshot, v float64) { s.Nav[0].FreqKHz = int(v) * 10 }},
	{"sim/cockpit2/radios/actuators/nav2_frequency_hz", func(s *flightstatus.Snapshot, v float64) { s.Nav[1].FreqKHz = int(v) * 10 }},
	{"sim/weather/barometer_sealevel_inhg", func(s *flightstatus.Snapshot, v float64) { s.QNHhPa = v * 33.8639 }},
}

func NewXPlaneAdapter(host string, port int) *XPlaneAdapter {
	return &XPlaneAdapter{
		host:   host,
		port:   port,
		status: flightstatus.New(),
	}
}

func (x *XPlaneAdapter) Name() string {
	return adapterXPlane
}

func (x *XPlaneAdapter) Connect() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.conn != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(x.host, strconv.Itoa(x.port)))
	if err != nil {
		return fmt.Errorf("resolve addr: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dial udp: %w", err)
	}

	for i, dref := range xplaneDatarefs {
		if err := subscribeRREF(conn, i, rrefRateHz, dref.path); err != nil {
			conn.Close()
			return fmt.Errorf("subscribe %s: %w", dref.path, err)
		}
	}

	x.conn = conn
	x.stop = make(chan struct{})
	x.stopped = make(chan struct{})
	go x.listenLoop(conn, x.stop, x.stopped)

	slog.Info("X-Plane UDP connected", "addr", addr.String())
	return nil
}

func (x *XPlaneAdapter) Disconnect() error {
	x.mu.Lock()
	conn, stop, stopped := x.conn, x.stop, x.stopped
	x.conn = nil
	x.stop = nil
	x.stopped = nil
	x.mu.Unlock()

	if conn == nil {
		return nil
	}
	close(stop)
	<-stopped

	// frequency 0 unsubscribes
	for i, dref := range xplaneDatarefs {
		subscribeRREF(conn, i, 0, dref.path)
	}
	x.status.SetValid(false)
	return conn.Close()
}

func (x *XPlaneAdapter) GetFlightData() (*flightstatus.Snapshot, error) {
	x.mu.Lock()
	connected := x.conn != nil
	x.mu.Unlock()

	if !connected {
		return nil, fmt.Errorf("not connected")
	}
	if !x.status.Valid() {
		return nil, fmt.Errorf("waiting for sim data")
	}
	snap := x.status.Snapshot()
	return &snap, nil
}

func (x *XPlaneAdapter) LastReceived() time.Time {
	return x.status.LastUpdate()
}

func subscribeRREF(conn *net.UDPConn, index, freq int, dataref string) error {
	// "RREF\0" + freq(4) + index(4) + dataref(400, null-padded)
	buf := make([]byte, 413)
	copy(buf[0:4], "RREF")
	binary.LittleEndian.PutUint32(buf[5:9], uint32(freq))
	binary.LittleEndian.PutUint32(buf[9:13], uint32(index))
	copy(buf[13:], dataref)

	_, err := conn.Write(buf)
	return err
}

func (x *XPlaneAdapter) listenLoop(conn *net.UDPConn, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	buf := make([]byte, 4096)

	for {
		select {
		case <-stop:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := conn.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			// ICMP port unreachable until X-Plane is up
			time.Sleep(100 * time.Millisecond)
			continue
		}
		x.applyRREF(buf[:n])
	}
}

// applyRREF decodes an RREF reply: header(5) + entries of (index:4 + value:4).
func (x *XPlaneAdapter) applyRREF(p []byte) bool {
	if len(p) < 5 || string(p[0:4]) != "RREF" {
		return false
	}
	x.status.Update(func(s *flightstatus.Snapshot) {
		for off := 5; off+8 <= len(p); off += 8 {
			idx := int(binary.LittleEndian.Uint32(p[off : off+4]))
			val := math.Float32frombits(binary.LittleEndian.Uint32(p[off+4 : off+8]))
			if idx >= 0 && idx < len(xplaneDatarefs) {
				xplaneDatarefs[idx].apply(s, float64(val))
			}
		}
	})
	x.status.SetValid(true)
	return true
}
