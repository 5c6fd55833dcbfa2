package fgfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"simbridge/fgio"
	"simbridge/flightstatus"
	"simbridge/generic"
)

type runner interface {
	Run(ctx context.Context) error
}

// Access is one FlightGear connection: the reading transport feeding the
// flight status, the liveness detector behind its validity, and the telnet
// channel carrying commands back.
type Access struct {
	cfg     Config
	status  *flightstatus.Status
	schema  *generic.Schema
	metrics *fgio.Metrics
	sink    *fgio.Sink
	live    *fgio.Liveness
	reader  runner
	telnet  *fgio.Telnet
	cmd     *Commander

	mu         sync.Mutex
	version    *semver.Version
	versionErr error
	cancel     context.CancelFunc
}

// New loads the protocol file into status and prepares the transports.
// Nothing is opened until Run.
func New(cfg Config, status *flightstatus.Status, metrics *fgio.Metrics) (*Access, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	path := generic.ProtocolPath(cfg.ProtocolDir, cfg.Protocol)
	schema, err := generic.LoadFile(path, status)
	if err != nil {
		return nil, fmt.Errorf("load protocol %s: %w", path, err)
	}

	a := &Access{
		cfg:     cfg,
		status:  status,
		schema:  schema,
		metrics: metrics,
	}
	a.live = fgio.NewLiveness(cfg.Timeout, a.setValid)
	a.sink = &fgio.Sink{
		Name:     "fgfs-" + cfg.Transport,
		Stream:   generic.NewStream(schema, status),
		Liveness: a.live,
		Metrics:  metrics,
	}

	switch cfg.Transport {
	case TransportFile:
		a.reader = fgio.NewFileTail(cfg.TailPath, a.sink, cfg.TailPoll, true)
	default:
		a.reader = fgio.NewUDPReader(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.ReadPort)), a.sink)
	}
	if cfg.TelnetPort > 0 {
		addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.TelnetPort))
		a.telnet = fgio.NewTelnet(addr, cfg.TelnetTimeout, a.onLine, a.onTelnetState)
	}
	a.cmd = NewCommander(cfg.Commands, a, status)
	return a, nil
}

func (a *Access) Status() *flightstatus.Status { return a.status }
func (a *Access) Schema() *generic.Schema      { return a.schema }
func (a *Access) Commander() *Commander        { return a.cmd }

// Valid reports whether records arrived within the configured timeout.
func (a *Access) Valid() bool { return a.live.Valid() }

// Version returns the simulator version once the property server reported
// it, and the result of the version check.
func (a *Access) Version() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.version == nil {
		return "", a.versionErr
	}
	return a.version.Original(), a.versionErr
}

// Send writes a raw line to the property server. It fails when there is
// no telnet channel or the simulator version was rejected.
func (a *Access) Send(text string) error {
	if a.telnet == nil {
		return fgio.ErrNotConnected
	}
	a.mu.Lock()
	verr := a.versionErr
	a.mu.Unlock()
	if errors.Is(verr, ErrUnsupportedVersion) {
		return verr
	}
	return a.telnet.Send(text)
}

// Run serves the connection until ctx is done or Close is called.
func (a *Access) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	a.live.Start()
	defer a.live.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.reader.Run(gctx); err != nil {
			return fmt.Errorf("flightgear %s reader: %w", a.cfg.Transport, err)
		}
		return nil
	})
	if a.telnet != nil {
		g.Go(func() error {
			return a.telnet.Run(gctx, a.cfg.TelnetRetry)
		})
	}
	slog.Info("flightgear access started",
		"transport", a.cfg.Transport,
		"protocol", a.cfg.Protocol,
		"chunks", a.schema.Size(),
		"telnet", a.telnet != nil)

	err := g.Wait()
	a.status.SetValid(false)
	a.metrics.SetValid(a.sink.Name, false)
	slog.Info("flightgear access stopped", "error", err)
	return err
}

func (a *Access) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (a *Access) setValid(valid bool) {
	a.status.SetValid(valid)
	a.metrics.SetValid(a.sink.Name, valid)
	if valid {
		slog.Info("flightgear data valid", "transport", a.sink.Name)
	} else {
		slog.Warn("flightgear data timed out", "transport", a.sink.Name, "timeout", a.cfg.Timeout)
	}
}

func (a *Access) onTelnetState(connected bool) {
	if !connected {
		return
	}
	if err := a.telnet.Send("get " + VersionProperty); err != nil {
		slog.Warn("query flightgear version failed", "error", err)
	}
}

func (a *Access) onLine(line []byte) {
	v, err := ParseVersionReply(string(line))
	if errors.Is(err, ErrNotVersionReply) {
		slog.Debug("telnet reply", "line", string(line))
		return
	}
	if err != nil {
		slog.Warn("bad flightgear version reply", "error", err)
		return
	}

	verr := CheckVersion(v, a.cfg.MinVersion)
	a.mu.Lock()
	a.version = v
	a.versionErr = verr
	a.mu.Unlock()

	if verr != nil {
		slog.Error("flightgear version rejected, commands disabled", "version", v.Original(), "error", verr)
		return
	}
	slog.Info("flightgear version", "version", v.Original())
}
