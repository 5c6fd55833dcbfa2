package fgfs

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbridge/fgio"
	"simbridge/flightstatus"
)

const accessProtocol = `<?xml version="1.0"?>
<PropertyList>
 <generic>
  <output>
   <line_separator>newline</line_separator>
   <var_separator>tab</var_separator>
   <chunk><name>alt</name><node>/position/altitude-ft</node><type>float</type></chunk>
   <chunk><name>ap_hdg</name><node>/autopilot/settings/heading-bug-deg</node><type>float</type></chunk>
  </output>
 </generic>
</PropertyList>`

// propServer answers version queries like FlightGear's property server and
// records every other line.
type propServer struct {
	ln      net.Listener
	version string

	mu    sync.Mutex
	lines []string
}

func newPropServer(t *testing.T, version string) *propServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &propServer{ln: ln, version: version}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *propServer) port() int { return s.ln.Addr().(*net.TCPAddr).Port }

func (s *propServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			sc := bufio.NewScanner(conn)
			for sc.Scan() {
				line := strings.TrimSpace(sc.Text())
				if line == "get "+VersionProperty {
					conn.Write([]byte(VersionProperty + " = '" + s.version + "' (string)\r\n/> \r\n"))
					continue
				}
				s.mu.Lock()
				s.lines = append(s.lines, line)
				s.mu.Unlock()
			}
		}()
	}
}

func (s *propServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func testConfig(t *testing.T, telnetPort int) Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.xml"), []byte(accessProtocol), 0o644))
	tail := filepath.Join(dir, "fg.out")
	require.NoError(t, os.WriteFile(tail, nil, 0o644))

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.ProtocolDir = dir
	cfg.Protocol = "test"
	cfg.Transport = TransportFile
	cfg.TailPath = tail
	cfg.TailPoll = 20 * time.Millisecond
	cfg.Timeout = 200 * time.Millisecond
	cfg.TelnetPort = telnetPort
	cfg.TelnetTimeout = time.Second
	cfg.TelnetRetry = 50 * time.Millisecond
	return cfg
}

func appendRecords(path, data string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func TestAccessFeedsStatusAndCommands(t *testing.T) {
	srv := newPropServer(t, "2020.3.19")
	cfg := testConfig(t, srv.port())

	st := flightstatus.New()
	a, err := New(cfg, st, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Schema().Size())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		v, err := a.Version()
		return v == "2020.3.19" && err == nil
	}, 2*time.Second, 10*time.Millisecond)

	// the tail may still be opening, so keep writing until a record lands
	require.Eventually(t, func() bool {
		if err := appendRecords(cfg.TailPath, "12000\t270\n"); err != nil {
			return false
		}
		return st.Valid()
	}, 2*time.Second, 50*time.Millisecond)
	assert.Equal(t, 12000.0, st.Snapshot().AltitudeFt)
	assert.True(t, a.Valid())

	require.NoError(t, a.Commander().SetAPHeading(270.2), "inside the deadband, nothing sent")
	require.NoError(t, a.Commander().SetAPHeading(300))
	require.Eventually(t, func() bool {
		return len(srv.received()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "set /autopilot/settings/heading-bug-deg 300", srv.received()[0])

	// feed goes silent
	require.Eventually(t, func() bool { return !st.Valid() }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("access did not stop")
	}
}

func TestAccessRejectsOldVersion(t *testing.T) {
	srv := newPropServer(t, "2016.4.4")
	cfg := testConfig(t, srv.port())

	a, err := New(cfg, flightstatus.New(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	require.Eventually(t, func() bool {
		_, err := a.Version()
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)

	err = a.Commander().SetAPAltitude(10000)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
	assert.Empty(t, srv.received())
}

func TestAccessWithoutTelnet(t *testing.T) {
	cfg := testConfig(t, 0)
	a, err := New(cfg, flightstatus.New(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, a.Send("set /a 1"), fgio.ErrNotConnected)
}

func TestAccessLoadFailures(t *testing.T) {
	cfg := testConfig(t, 0)
	cfg.Protocol = "missing"
	_, err := New(cfg, flightstatus.New(), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg = testConfig(t, 0)
	cfg.Transport = "carrier-pigeon"
	_, err = New(cfg, flightstatus.New(), nil)
	assert.Error(t, err)
}

func TestAccessUDPAddress(t *testing.T) {
	cfg := testConfig(t, 0)
	cfg.Transport = TransportUDP
	cfg.ReadPort = 12000
	a, err := New(cfg, flightstatus.New(), nil)
	require.NoError(t, err)
	r, ok := a.reader.(*fgio.UDPReader)
	require.True(t, ok)
	assert.Nil(t, r.Addr(), "not bound before Run")
	assert.Equal(t, "fgfs-udp", a.sink.Name)
}
