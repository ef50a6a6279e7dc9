package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkondo/battlewatch/capture"
	"github.com/mkondo/battlewatch/codec"
	"github.com/mkondo/battlewatch/config"
	"github.com/mkondo/battlewatch/debug"
	"github.com/mkondo/battlewatch/domain/monitor"
	"github.com/mkondo/battlewatch/notify"
	"github.com/mkondo/battlewatch/obs"
)

func main() {
	cfgPath := flag.String("config", "battlewatch.yaml", "path to config file")
	debugFlag := flag.Bool("debug", false, "verbose per-cycle score logging")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// Fall back to defaults but surface the problem.
		logger := NewLogger(true)
		logger.Error("config load failed, using defaults", "path", *cfgPath, "error", err)
	}
	if *debugFlag {
		cfg.Debug = true
	}
	logger := NewLogger(cfg.Debug)

	if err := cfg.EnsureDirs(); err != nil {
		logger.Error("prepare working directories", "error", err)
		os.Exit(1)
	}

	client, err := obs.Dial(cfg.OBS.Host, cfg.OBS.Port, cfg.OBS.Password, logger)
	if err != nil {
		logger.Error("obs connection failed", "host", cfg.OBS.Host, "port", cfg.OBS.Port, "error", err)
		os.Exit(1)
	}
	defer client.Close()

	fileCodec := codec.File{}

	var shots monitor.ScreenshotTaker = client
	if cfg.ScreenshotSource == "display" {
		shots = &capture.Display{Codec: fileCodec}
	}

	battle := monitor.NewBattleMonitor(cfg, shots, fileCodec, logger.With("monitor", "battle"))
	battleSession, err := battle.Start()
	if err != nil {
		logger.Error("start battle monitor", "error", err)
		os.Exit(1)
	}

	events := notify.NewEventNotifier(cfg.WebhookURL, logger)
	recording := monitor.NewRecordingMonitor(cfg, shots, fileCodec, client, events, logger.With("monitor", "recording"))
	recordingSession, err := recording.Start()
	if err != nil {
		logger.Error("start recording monitor", "error", err)
		battleSession.Stop()
		os.Exit(1)
	}

	results := monitor.NewResultsMonitor(cfg, shots, fileCodec, client, logger.With("monitor", "results"))
	resultsSession, err := results.Start()
	if err != nil {
		logger.Error("start results monitor", "error", err)
		battleSession.Stop()
		recordingSession.Stop()
		os.Exit(1)
	}

	watcher := notify.NewWatcher(cfg.ArchiveDir(), cfg.WebhookURL, logger)
	watcher.Start()

	if cfg.Debug {
		debug.StartMemLogger(5*time.Second, logger)
		debug.StartGoroutineLogger(5*time.Second, logger)
	}

	logger.Info("battlewatch running", "base_dir", cfg.BaseDir, "source", cfg.OBS.Source)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	battleSession.Stop()
	recordingSession.Stop()
	resultsSession.Stop()
	watcher.Stop()
	events.Close()
}
