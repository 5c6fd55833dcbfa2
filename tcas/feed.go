package tcas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"simbridge/fgio"
	"simbridge/generic"
)

type Config struct {
	Enabled bool `yaml:"enabled"`
	// Transport is "udp" or "file".
	Transport   string        `yaml:"transport"`
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	TailPath    string        `yaml:"tail_path"`
	TailPoll    time.Duration `yaml:"tail_poll"`
	ProtocolDir string        `yaml:"protocol_dir"`
	Protocol    string        `yaml:"protocol"`
	// Timeout is how long the feed may stay silent before it is reported
	// as down.
	Timeout      time.Duration `yaml:"timeout"`
	EntryTimeout time.Duration `yaml:"entry_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Transport:    "udp",
		Host:         "localhost",
		Port:         13000,
		TailPoll:     time.Second,
		ProtocolDir:  "/usr/share/games/FlightGear/Protocol",
		Protocol:     "vasradar",
		Timeout:      10 * time.Second,
		EntryTimeout: DefaultEntryTimeout,
	}
}

type runner interface {
	Run(ctx context.Context) error
}

// Feed reads traffic records into a contact list and expires stale
// contacts.
type Feed struct {
	cfg      Config
	contacts *Contacts
	sink     *fgio.Sink
	live     *fgio.Liveness
	reader   runner
}

func NewFeed(cfg Config, metrics *fgio.Metrics) (*Feed, error) {
	if cfg.Protocol == "" {
		return nil, errors.New("tcas: protocol is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	contacts := NewContacts(cfg.EntryTimeout)

	path := generic.ProtocolPath(cfg.ProtocolDir, cfg.Protocol)
	schema, err := generic.LoadFile(path, contacts)
	if err != nil {
		return nil, fmt.Errorf("load tcas protocol %s: %w", path, err)
	}

	f := &Feed{cfg: cfg, contacts: contacts}
	name := "tcas-" + cfg.Transport
	f.live = fgio.NewLiveness(cfg.Timeout, func(valid bool) {
		metrics.SetValid(name, valid)
		slog.Info("tcas feed", "valid", valid)
	})
	f.sink = &fgio.Sink{
		Name:     name,
		Stream:   generic.NewStream(schema, contacts),
		Liveness: f.live,
		Metrics:  metrics,
	}

	switch cfg.Transport {
	case "udp":
		f.reader = fgio.NewUDPReader(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), f.sink)
	case "file":
		if cfg.TailPath == "" {
			return nil, errors.New("tcas: tail_path is required for the file transport")
		}
		f.reader = fgio.NewFileTail(cfg.TailPath, f.sink, cfg.TailPoll, false)
	default:
		return nil, fmt.Errorf("tcas: unknown transport %q", cfg.Transport)
	}
	return f, nil
}

func (f *Feed) Contacts() *Contacts { return f.contacts }

func (f *Feed) Run(ctx context.Context) error {
	f.live.Start()
	defer f.live.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return f.reader.Run(gctx) })
	g.Go(func() error { return f.contacts.Run(gctx) })
	return g.Wait()
}
