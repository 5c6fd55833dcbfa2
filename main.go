package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"simbridge/fgio"
	"simbridge/gauge"
	"simbridge/tcas"
)

const (
	contactsInterval = time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "settings file (default: user config dir)")
	stop := flag.Bool("stop", false, "ask the running instance to shut down")
	record := flag.Bool("record", false, "start recording as soon as the simulator is connected")
	export := flag.String("export", "", "write recorded flight data to this CSV file, purge it and exit")
	flag.Parse()

	if *stop {
		if err := requestStop(singleInstanceAddr); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	var settingsService *SettingsService
	if *configPath != "" {
		settingsService = newSettingsServiceAt(*configPath)
	} else {
		settingsService = NewSettingsService()
	}
	settings := settingsService.GetSettings()

	logCloser := setupLogging(settings.Log)
	defer logCloser.Close()
	slog.Info("settings loaded", "path", settingsService.Path(), "sim", settings.SimType)

	if err := run(settings, *record, *export); err != nil {
		slog.Error("simbridge failed", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(settings Settings, record bool, export string) error {
	db, err := initDB(settings.Recorder.DBPath)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if export != "" {
		fds := NewFlightDataService(db, nil, settings, nil)
		if err := fds.ExportCSV(export); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		slog.Info("flight data exported", "path", export)
		return nil
	}

	instance, err := NewSingleInstance(singleInstanceAddr)
	if err != nil {
		return err
	}
	defer instance.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	instance.SetOnStop(func() {
		slog.Info("stop requested")
		cancel()
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := fgio.NewMetrics(reg)

	if err := gauge.Start(bridge(settings, db, reg, metrics, record)); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	err = gauge.WaitUntilInitialized(initCtx)
	initCancel()
	if err != nil {
		slog.Warn("bridge not initialized", "error", err)
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-gauge.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	return gauge.Stop(stopCtx)
}

// bridge is the worker body: the simulator connection, the monitor and,
// when enabled, the TCAS feed.
func bridge(settings Settings, db *sql.DB, reg *prometheus.Registry, metrics *fgio.Metrics, record bool) gauge.Func {
	return func(ctx context.Context, ready func()) error {
		hub := NewHub()
		fds := NewFlightDataService(db, hub, settings, metrics)
		if err := fds.ConnectSim(settings.SimType); err != nil {
			return fmt.Errorf("connect sim: %w", err)
		}
		defer fds.DisconnectSim()

		if record {
			if err := fds.StartRecording(); err != nil {
				return fmt.Errorf("start recording: %w", err)
			}
			defer fds.StopRecording()
		}

		var feed *tcas.Feed
		if settings.TCAS.Enabled {
			var err error
			feed, err = tcas.NewFeed(settings.TCAS, metrics)
			if err != nil {
				return fmt.Errorf("tcas feed: %w", err)
			}
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
		if monitor := newMonitor(settings.Monitor, hub, reg, fds); monitor != nil {
			g.Go(func() error { return monitor.Run(ctx) })
		} else {
			slog.Info("monitor disabled")
		}
		if feed != nil {
			g.Go(func() error { return feed.Run(ctx) })
			g.Go(func() error { return publishContacts(ctx, hub, feed.Contacts()) })
		}

		ready()
		return g.Wait()
	}
}

// newMonitor returns nil when no listen address is configured.
func newMonitor(cfg MonitorSettings, hub *Hub, reg *prometheus.Registry, fds *FlightDataService) *Monitor {
	if cfg.Addr == "" {
		return nil
	}
	m := NewMonitor(cfg.Addr, hub, reg, fds.IsConnected)
	m.HandleCommands(fds.ExecCommand)
	return m
}

func publishContacts(ctx context.Context, hub *Hub, contacts *tcas.Contacts) error {
	ticker := time.NewTicker(contactsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			hub.Publish(Event{Type: "tcas", Contacts: contacts.List()})
		}
	}
}
