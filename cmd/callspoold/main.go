// Callspoold is the phone alert relay daemon for an Asterisk/FreePBX host.
// It accepts alert requests over HTTP, synthesizes the announcement with
// the local TTS toolchain, and schedules the outbound call by publishing a
// call file into the engine's outgoing spool.
//
// Usage:
//
//	callspoold [flags]
//	callspoold --config /etc/callspool/callspool.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/axluca/callspool/docs"
	"github.com/axluca/callspool/internal/config"
	"github.com/axluca/callspool/internal/httpapi"
	"github.com/axluca/callspool/internal/observability"
	"github.com/axluca/callspool/internal/ops"
	"github.com/axluca/callspool/internal/relay"
	"github.com/axluca/callspool/internal/spool"
	"github.com/axluca/callspool/internal/sweep"
	"github.com/axluca/callspool/internal/tts"
	"github.com/axluca/callspool/internal/tts/flite"
)

// version is set at build time via ldflags.
var version = "dev"

// @title       callspool relay API
// @version     1.0
// @description Telephony alert relay for Asterisk/FreePBX hosts.
func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. /etc/callspool/callspool.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("callspoold %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("callspoold starting", "version", version)

	// Refuse to run open: without the shared token anyone who can reach
	// the port could place calls.
	if cfg.Auth.Token == "" {
		slog.Error("auth.token not set — set CALLSPOOL_AUTH_TOKEN or add it to the config file")
		os.Exit(1)
	}

	// Preflight the directories. The audio dir is ours to create; the
	// pickup dir belongs to the engine, and a missing one points at a
	// broken install rather than something to paper over.
	if err := os.MkdirAll(cfg.TTS.AudioDir, 0o755); err != nil {
		slog.Error("cannot create audio dir", "dir", cfg.TTS.AudioDir, "error", err)
		os.Exit(1)
	}
	if _, err := os.Stat(cfg.Asterisk.PickupDir); err != nil {
		slog.Warn("pickup dir not accessible — is the engine installed?",
			"dir", cfg.Asterisk.PickupDir, "error", err)
	}
	if cfg.Asterisk.Trunk == "" {
		slog.Warn("asterisk.trunk not set — outbound calls will not route")
	}

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the synthesis backend.
	var provider tts.Provider
	switch cfg.TTS.Mode {
	case "flite":
		provider, err = flite.New(cfg.TTS)
		if err != nil {
			slog.Error("failed to build synthesis commands", "error", err)
			os.Exit(1)
		}
		slog.Info("using exec synthesis",
			"synthesize", cfg.TTS.SynthesizeCommand,
			"resample", cfg.TTS.ResampleCommand)
	case "mock":
		provider = tts.NewMockProvider()
		slog.Info("using mock synthesis — announcements will be silent")
	default:
		slog.Error("unknown tts mode", "mode", cfg.TTS.Mode)
		os.Exit(1)
	}

	metrics := observability.NewMetrics("callspool")

	// Wire the call placement chain: synthesis, publication, retention.
	pipeline := tts.NewPipeline(provider, cfg.TTS.AudioDir, cfg.Spool.Owner, metrics)
	writer := spool.NewWriter(cfg.Asterisk.PickupDir, cfg.Spool.Owner, metrics)
	sweeper := sweep.New(cfg.TTS.AudioDir, tts.AssetPrefix,
		time.Duration(cfg.TTS.MaxSoundAgeSecs)*time.Second)

	originator := relay.New(pipeline, writer, sweeper, relay.Dialplan{
		Technology: cfg.Asterisk.Technology,
		Trunk:      cfg.Asterisk.Trunk,
		CallerID:   cfg.Asterisk.CallerID,
		MaxRetries: cfg.Asterisk.MaxRetries,
		RetryTime:  cfg.Asterisk.RetryTimeSecs,
		WaitTime:   cfg.Asterisk.WaitTimeSecs,
	}, metrics)

	api := httpapi.New(cfg.Server.Port, cfg.Auth.Token, originator)
	opsServer := ops.New(cfg.Ops.Port)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := opsServer.ListenAndServe(ctx); err != nil {
			slog.Error("ops server failed", "error", err)
		}
	}()

	var grpcHealth *ops.GRPCHealth
	if cfg.Ops.GRPCPort > 0 {
		grpcHealth = ops.NewGRPCHealth(cfg.Ops.GRPCPort)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := grpcHealth.ListenAndServe(ctx); err != nil {
				slog.Error("grpc health failed", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := api.ListenAndServe(ctx); err != nil {
			slog.Error("relay api failed", "error", err)
		}
	}()

	// Mark as ready once the listeners are up.
	opsServer.SetReady(true)
	if grpcHealth != nil {
		grpcHealth.SetServing(true)
	}
	slog.Info("callspoold ready",
		"port", cfg.Server.Port,
		"ops_port", cfg.Ops.Port,
		"pickup_dir", cfg.Asterisk.PickupDir,
		"audio_dir", cfg.TTS.AudioDir)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	if err := api.Close(); err != nil {
		slog.Error("relay api close error", "error", err)
	}

	wg.Wait()
	slog.Info("callspoold stopped")
}
