// Package app assembles the daemon from its parts: logging, bus, journal,
// metrics, compiler, dispatcher, watcher, and the periodic rescan job.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"cued/internal/bus"
	"cued/internal/config"
	"cued/internal/dispatch"
	"cued/internal/metrics"
	"cued/internal/runtime/supervisor"
	"cued/internal/schedule"
	"cued/internal/storage"
	"cued/internal/watcher"
	"cued/pkg/logx"
)

const shutdownGrace = 10 * time.Second

type App struct {
	cfg    *config.Config
	logSvc *logx.Service
	log    logx.Logger
}

func New(cfg *config.Config) *App {
	svc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: strings.TrimSpace(cfg.Logging.File) != "",
			Path:    cfg.Logging.File,
		},
		Bus: logx.BusConfig{
			Enabled:    cfg.Logging.Bus.Enabled,
			Subject:    cfg.LogSubject(),
			MinLevel:   cfg.Logging.Bus.MinLevel,
			RatePerSec: cfg.Logging.Bus.RatePerSec,
		},
	})
	return &App{cfg: cfg, logSvc: svc, log: log}
}

func (a *App) Logger() logx.Logger { return a.log }

// Run wires everything together and blocks until ctx is cancelled or a
// component fails fatally. ready is called once all components are up;
// pass nil if no readiness signal is needed.
func (a *App) Run(ctx context.Context, ready func()) error {
	defer a.logSvc.Close()
	cfg := a.cfg

	// Validate the rescan expression before anything heavier starts.
	var rescanSched cron.Schedule
	if spec := strings.TrimSpace(cfg.Watch.Rescan); spec != "" {
		s, err := cron.ParseStandard(spec)
		if err != nil {
			return fmt.Errorf("watch.rescan: %w", err)
		}
		rescanSched = s
	}

	pub, err := bus.NewNATSPublisher(bus.Config{
		URL:            cfg.BusURL(),
		Name:           cfg.ClientName(),
		ConnectTimeout: cfg.ConnectTimeout(),
	})
	if err != nil {
		return fmt.Errorf("bus: %w", err)
	}
	defer pub.Close()
	if cfg.Logging.Bus.Enabled {
		a.logSvc.SetBusPublisher(pub.LogSink())
	}
	a.log.Info("bus connected", logx.String("url", cfg.BusURL()))

	journal, err := storage.Open(storage.Config{
		Driver:      cfg.Journal.Driver,
		Path:        cfg.Journal.Path,
		BusyTimeout: cfg.BusyTimeout(),
	}, a.log.With(logx.String("component", "journal")))
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if journal != nil {
		defer journal.Close()
	}

	met := metrics.New()
	comp := schedule.NewCompiler(cfg.DelimiterByte(), a.log.With(logx.String("component", "compiler")))
	actor := dispatch.New(dispatch.Config{
		Dir:           cfg.SourceDir,
		SubjectPrefix: cfg.Bus.SubjectPrefix,
	}, comp, pub, journal, met, a.log.With(logx.String("component", "dispatch")))

	sup := supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	sup.Go("dispatch", actor.Run)

	// The watcher self-heals broken fsnotify state internally; its Run only
	// returns on context cancellation.
	w := watcher.New(watcher.Config{
		Dir:      cfg.SourceDir,
		Debounce: cfg.Debounce(),
	}, actor, a.log.With(logx.String("component", "watcher")))
	sup.Go("watcher", w.Run)

	if cfg.Metrics.Enabled {
		addr := cfg.MetricsAddr()
		mlog := a.log.With(logx.String("component", "metrics"))
		sup.GoRestart("metrics", func(ctx context.Context) error {
			return metrics.Serve(ctx, addr, met, mlog)
		})
	}

	var cr *cron.Cron
	if rescanSched != nil {
		cr = cron.New()
		cr.Schedule(rescanSched, cron.FuncJob(actor.NotifyRescan))
		cr.Start()
		a.log.Info("periodic rescan enabled", logx.String("spec", cfg.Watch.Rescan))
	}

	if ready != nil {
		ready()
	}

	<-sup.Context().Done()
	if cr != nil {
		<-cr.Stop().Done()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return sup.Stop(stopCtx)
}
