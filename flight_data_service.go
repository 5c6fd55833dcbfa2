package main

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"simbridge/fgio"
	"simbridge/flightstatus"
)

const streamInterval = time.Second

var errNoSimulator = errors.New("no simulator connected")

type RecordingInfo struct {
	Recording bool    `json:"recording"`
	SessionID string  `json:"sessionId"`
	Duration  float64 `json:"duration"`
	DataCount int     `json:"dataCount"`
}

// FlightDataService owns the simulator connection: it streams snapshots to
// the monitor, records them while a recording is active, and reconnects a
// connector that went quiet.
type FlightDataService struct {
	db       *sql.DB
	hub      *Hub
	settings Settings
	metrics  *fgio.Metrics

	// newConnector builds an adapter by name; nil means buildConnector.
	newConnector func(name string) (SimConnector, error)

	mu                sync.Mutex
	connector         SimConnector
	adapterName       string
	simActive         bool
	seenData          bool
	streaming         bool
	streamStopCh      chan struct{}
	streamDone        chan struct{}
	reconnectAttempts int
	lastReconnectAt   time.Time

	recording bool
	sessionID string
	startTime time.Time
	dataCount int
}

func NewFlightDataService(db *sql.DB, hub *Hub, settings Settings, metrics *fgio.Metrics) *FlightDataService {
	return &FlightDataService{
		db:       db,
		hub:      hub,
		settings: settings,
		metrics:  metrics,
	}
}

func (f *FlightDataService) buildConnector(name string) (SimConnector, error) {
	if f.newConnector != nil {
		return f.newConnector(name)
	}
	switch name {
	case adapterFlightGear:
		return NewFGFSAdapter(f.settings.FlightGear, f.metrics), nil
	case adapterXPlane:
		return NewXPlaneAdapter(f.settings.XPlane.Host, f.settings.XPlane.Port), nil
	case adapterSimConnect:
		c := NewSimConnectAdapter()
		if c == nil {
			return nil, fmt.Errorf("SimConnect not available on this platform")
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
}

func adaptersFor(simType string) ([]string, error) {
	switch simType {
	case "flightgear":
		return []string{adapterFlightGear}, nil
	case "xplane":
		return []string{adapterXPlane}, nil
	case "simconnect":
		return []string{adapterSimConnect}, nil
	case "auto", "":
		return []string{adapterSimConnect, adapterFlightGear}, nil
	default:
		return nil, fmt.Errorf("unknown sim type %q", simType)
	}
}

// ConnectSim connects the adapter for simType and starts streaming. "auto"
// prefers SimConnect where it exists and falls back to FlightGear.
func (f *FlightDataService) ConnectSim(simType string) error {
	names, err := adaptersFor(simType)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.connector != nil {
		f.connector.Disconnect()
		f.connector = nil
	}
	f.seenData = false

	var errs []error
	for _, name := range names {
		connector, err := f.buildConnector(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := connector.Connect(); err != nil {
			errs = append(errs, fmt.Errorf("connect to %s: %w", connector.Name(), err))
			continue
		}

		f.connector = connector
		f.adapterName = name
		f.simActive = false
		f.seenData = false
		f.reconnectAttempts = 0
		f.lastReconnectAt = time.Time{}
		if !f.streaming {
			f.streaming = true
			f.streamStopCh = make(chan struct{})
			f.streamDone = make(chan struct{})
			go f.runStream(f.streamStopCh, f.streamDone)
		}
		slog.Info("connected to simulator", "adapter", name)
		return nil
	}
	return errors.Join(errs...)
}

func (f *FlightDataService) DisconnectSim() {
	f.mu.Lock()
	stop, done := f.streamStopCh, f.streamDone
	streaming := f.streaming
	f.streaming = false
	f.streamStopCh = nil
	f.streamDone = nil
	f.mu.Unlock()

	if streaming {
		close(stop)
		if done != nil {
			<-done
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connector != nil {
		f.connector.Disconnect()
		f.connector = nil
	}
	f.simActive = false
}

// IsConnected reports whether the simulator is delivering data.
func (f *FlightDataService) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.simActive
}

func (f *FlightDataService) AdapterName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adapterName
}

// ConnectedAdapter is the adapter name while data is flowing, otherwise "".
func (f *FlightDataService) ConnectedAdapter() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.simActive || f.connector == nil {
		return ""
	}
	return f.connector.Name()
}

// Connector returns the current connector, or nil.
func (f *FlightDataService) Connector() SimConnector {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connector
}

func (f *FlightDataService) GetFlightDataNow() (*flightstatus.Snapshot, error) {
	f.mu.Lock()
	connector := f.connector
	f.mu.Unlock()

	if connector == nil {
		return nil, errNoSimulator
	}
	return connector.GetFlightData()
}

func (f *FlightDataService) StartRecording() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.connector == nil {
		return errNoSimulator
	}
	if f.recording {
		return fmt.Errorf("already recording")
	}

	f.recording = true
	f.sessionID = uuid.NewString()
	f.startTime = time.Now()
	f.dataCount = 0
	slog.Info("recording started", "session", f.sessionID)

	on := true
	f.hub.Publish(Event{Type: "recording-state", Recording: &on})
	return nil
}

func (f *FlightDataService) StopRecording() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.recording {
		return
	}
	f.recording = false
	slog.Info("recording stopped", "session", f.sessionID, "rows", f.dataCount)

	off := false
	f.hub.Publish(Event{Type: "recording-state", Recording: &off})
}

func (f *FlightDataService) IsRecording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}

func (f *FlightDataService) GetRecordingInfo() RecordingInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	info := RecordingInfo{
		Recording: f.recording,
		SessionID: f.sessionID,
		DataCount: f.dataCount,
	}
	if f.recording {
		info.Duration = time.Since(f.startTime).Seconds()
	}
	return info
}

// ExportCSV writes every recorded row to filePath and then purges them.
func (f *FlightDataService) ExportCSV(filePath string) error {
	rows, err := f.db.Query(`SELECT session_id, adapter, timestamp, latitude, longitude, altitude, heading, pitch, roll, airspeed, ground_speed, vertical_speed, on_ground FROM flight_data ORDER BY id`)
	if err != nil {
		return fmt.Errorf("query data: %w", err)
	}
	defer rows.Close()

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Write([]string{"session_id", "adapter", "timestamp", "latitude", "longitude", "altitude", "heading", "pitch", "roll", "airspeed", "ground_speed", "vertical_speed", "on_ground"})

	for rows.Next() {
		var session, adapter, ts string
		var lat, lon, alt, hdg, pitch, roll, aspd, gspd, vspd float64
		var onGround bool
		if err := rows.Scan(&session, &adapter, &ts, &lat, &lon, &alt, &hdg, &pitch, &roll, &aspd, &gspd, &vspd, &onGround); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		w.Write([]string{
			session,
			adapter,
			ts,
			strconv.FormatFloat(lat, 'f', 6, 64),
			strconv.FormatFloat(lon, 'f', 6, 64),
			strconv.FormatFloat(alt, 'f', 2, 64),
			strconv.FormatFloat(hdg, 'f', 2, 64),
			strconv.FormatFloat(pitch, 'f', 2, 64),
			strconv.FormatFloat(roll, 'f', 2, 64),
			strconv.FormatFloat(aspd, 'f', 2, 64),
			strconv.FormatFloat(gspd, 'f', 2, 64),
			strconv.FormatFloat(vspd, 'f', 2, 64),
			strconv.FormatBool(onGround),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	rows.Close()

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	// Purge DB after export
	if _, err := f.db.Exec(`DELETE FROM flight_data`); err != nil {
		return fmt.Errorf("purge db: %w", err)
	}

	f.mu.Lock()
	f.dataCount = 0
	f.mu.Unlock()

	return nil
}

// RecordedSnapshots decodes the full snapshots stored for a session.
func (f *FlightDataService) RecordedSnapshots(sessionID string) ([]flightstatus.Snapshot, error) {
	rows, err := f.db.Query(`SELECT snapshot FROM flight_data WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []flightstatus.Snapshot
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var s flightstatus.Snapshot
		if err := msgpack.Unmarshal(blob, &s); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// runStream ticks until stop is closed and then closes done, if set.
func (f *FlightDataService) runStream(stop <-chan struct{}, done chan struct{}) {
	if done != nil {
		defer close(done)
	}

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			f.streamTick(now)
		}
	}
}

func (f *FlightDataService) streamTick(now time.Time) {
	f.mu.Lock()
	connector := f.connector
	active := f.simActive
	name := f.adapterName
	seen := f.seenData
	f.mu.Unlock()

	if connector == nil {
		// a failed reconnect leaves no connector; keep retrying on backoff
		if seen {
			f.maybeReconnect(now)
		}
		return
	}

	// a connector keeps serving its last snapshot after the sim goes quiet
	if last := connector.LastReceived(); isStale(true, last, now) {
		if active {
			slog.Warn("simulator data stale", "adapter", name, "last_received", last)
			f.setActive(false)
		}
		f.maybeReconnect(now)
		return
	}

	data, err := connector.GetFlightData()
	if err != nil {
		slog.Debug("no flight data", "adapter", name, "error", err)
		if active {
			f.setActive(false)
		}
		// a sim that never answered is still starting up
		if seen {
			f.maybeReconnect(now)
		}
		return
	}

	if !active {
		f.setActive(true)
	}

	f.hub.Publish(Event{Type: "flight-data", Adapter: name, Snapshot: data})

	if f.IsRecording() {
		if err := f.record(name, data); err != nil {
			slog.Error("failed to insert flight data", "error", err)
		}
	}
}

func (f *FlightDataService) setActive(active bool) {
	f.mu.Lock()
	changed := f.simActive != active
	f.simActive = active
	if active {
		f.seenData = true
		f.reconnectAttempts = 0
		f.lastReconnectAt = time.Time{}
	}
	name := f.adapterName
	f.mu.Unlock()

	if changed {
		slog.Info("simulator state", "adapter", name, "active", active)
		f.hub.Publish(Event{Type: "sim-state", Adapter: name})
	}
}

// maybeReconnect starts the backoff clock on the first call and reconnects
// once the current backoff has elapsed.
func (f *FlightDataService) maybeReconnect(now time.Time) {
	f.mu.Lock()
	if f.lastReconnectAt.IsZero() {
		f.lastReconnectAt = now
		f.mu.Unlock()
		return
	}
	backoff := reconnectBackoff(f.reconnectAttempts)
	if now.Sub(f.lastReconnectAt) < backoff {
		f.mu.Unlock()
		return
	}
	f.reconnectAttempts++
	f.lastReconnectAt = now
	attempt := f.reconnectAttempts
	f.mu.Unlock()

	slog.Info("reconnecting simulator", "adapter", f.AdapterName(), "attempt", attempt, "backoff", backoff)
	if err := f.reconnectSim(); err != nil {
		slog.Warn("reconnect failed", "error", err)
	}
}

func (f *FlightDataService) reconnectSim() error {
	f.mu.Lock()
	name := f.adapterName
	old := f.connector
	f.mu.Unlock()

	connector, err := f.buildConnector(name)
	if err != nil {
		return err
	}
	if old != nil {
		old.Disconnect()
	}
	if err := connector.Connect(); err != nil {
		f.mu.Lock()
		if f.connector == old {
			f.connector = nil
		}
		f.mu.Unlock()
		return fmt.Errorf("reconnect %s: %w", name, err)
	}

	f.mu.Lock()
	f.connector = connector
	f.mu.Unlock()
	return nil
}

func (f *FlightDataService) record(adapter string, data *flightstatus.Snapshot) error {
	blob, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	f.mu.Lock()
	session := f.sessionID
	f.mu.Unlock()

	_, err = f.db.Exec(
		`INSERT INTO flight_data (session_id, adapter, latitude, longitude, altitude, heading, pitch, roll, airspeed, ground_speed, vertical_speed, on_ground, snapshot) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session, adapter, data.Lat, data.Lon, data.AltitudeFt, data.TrueHeading, data.Pitch, data.Bank,
		data.IAS, data.GroundSpeedKts, data.VerticalSpeedFpm, data.OnGround, blob,
	)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.dataCount++
	f.mu.Unlock()
	return nil
}
