package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fox-energy/powermon/internal/app"
	"github.com/fox-energy/powermon/internal/config"
	"github.com/fox-energy/powermon/internal/history"
	"github.com/fox-energy/powermon/internal/logging"
	"github.com/fox-energy/powermon/internal/meter"
	"github.com/fox-energy/powermon/internal/netmon"
	"github.com/fox-energy/powermon/internal/panel"
	"github.com/fox-energy/powermon/internal/render"
	"github.com/fox-energy/powermon/internal/sched"
	"github.com/fox-energy/powermon/internal/sysinfo"
	"github.com/fox-energy/powermon/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init(false, false)
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(cfg.Debug, cfg.Verbose)
	log.Info().Str("url", cfg.MeterURL).Int("poll_s", cfg.PollInterval).Msg("starting powermon")

	pnl, err := panel.Open(panel.Options{
		SPIPort:  cfg.SPIPort,
		ResetPin: cfg.ResetPin,
		DCPin:    cfg.DCPin,
		CSPin:    cfg.CSPin,
		BLPin:    cfg.BLPin,
		Width:    cfg.Width,
		Height:   cfg.Height,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open display")
	}
	defer pnl.Close()

	faces, err := render.LoadFaces(cfg.FontPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.FontPath).Msg("failed to load fonts")
	}

	th := render.Thresholds{}
	copy(th.Power[:], cfg.PowerThresholds)
	copy(th.Temp[:], cfg.TempThresholds)

	mgr := render.NewManager(pnl, faces, render.Options{
		Thresholds:   th,
		PowerDelta:   cfg.PowerDelta,
		CurrentDelta: cfg.CurrentDelta,
	})
	mgr.PlayStartupAnimation(nil, nil)
	mgr.InitScreen()

	link := netmon.New(netmon.Options{
		Interface:   cfg.Interface,
		ProbeHost:   cfg.ProbeHost,
		BackoffBase: time.Duration(cfg.BackoffBaseMs) * time.Millisecond,
		BackoffMax:  time.Duration(cfg.BackoffMaxMs) * time.Millisecond,
		MaxAttempts: cfg.MaxReconnects,
	})

	client := meter.NewClient(cfg.MeterURL, time.Duration(cfg.HTTPTimeout)*time.Second)
	hist := history.NewLog(cfg.HistoryFile, cfg.HistoryMaxPoints)

	orch := app.New(app.Options{
		Meter:            client,
		Link:             link,
		Display:          mgr,
		ReadTemp:         sysinfo.ReadTempC,
		Recorder:         hist,
		FetchTimeout:     time.Duration(cfg.HTTPTimeout) * time.Second,
		FailureThreshold: cfg.FailureThreshold,
	})

	if cfg.WebListen != "" {
		srv := web.NewServer(mgr, orch, hist)
		go func() {
			if err := srv.Listen(cfg.WebListen); err != nil {
				log.Error().Err(err).Str("addr", cfg.WebListen).Msg("web server stopped")
			}
		}()
		defer srv.Shutdown()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := sched.New(nil, cfg.IdleDelay())
	s.Add("status", cfg.StatusPeriod(), orch.TickStatus)
	s.Add("metrics", cfg.PollPeriod(), orch.TickMetrics)
	s.Add("history-save", time.Minute, func(time.Time) {
		if err := hist.Save(); err != nil {
			log.Debug().Err(err).Msg("history save failed")
		}
	})
	// The link monitor exhausting its budget is not terminal for the
	// daemon: keep re-arming so an operator fixing the network brings the
	// screen back without a power cycle.
	s.Add("link-rearm", 5*time.Minute, func(time.Time) {
		if link.State() == netmon.StateFailed {
			link.ResetBudget()
		}
	})

	s.Run(ctx)

	log.Info().Msg("shutting down")
	if err := hist.Save(); err != nil {
		log.Warn().Err(err).Msg("final history save failed")
	}
}
