package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/keytrace/keytrace/internal/audio"
	"github.com/keytrace/keytrace/internal/cache"
	"github.com/keytrace/keytrace/internal/config"
	"github.com/keytrace/keytrace/internal/fetch"
	"github.com/keytrace/keytrace/internal/httpapi"
	"github.com/keytrace/keytrace/internal/pipeline"
	"github.com/keytrace/keytrace/internal/transcribe"
	"github.com/keytrace/keytrace/pkg/log"
)

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatal("failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.Log.Level))

	store, err := cache.New(cfg.Cache.Dir)
	if err != nil {
		log.Fatal("failed to initialize artifact cache: %v", err)
	}

	janitor := cache.NewJanitor(store, time.Duration(cfg.Cache.RetentionDays)*24*time.Hour)
	if err := janitor.Start(cfg.Cache.CleanupCron); err != nil {
		log.Fatal("failed to start cache janitor: %v", err)
	}

	fetchCfg := fetch.DefaultConfig(store.Dir())
	fetchCfg.BinPath = cfg.Fetch.BinPath
	fetchCfg.AudioFormat = cfg.Fetch.AudioFormat
	fetchCfg.AudioQuality = cfg.Fetch.AudioQuality
	fetchCfg.FormatSelector = cfg.Fetch.FormatSelector
	fetcher := fetch.New(fetchCfg)

	decoder := audio.NewDecoder(cfg.Engine.SampleRate)

	engineCmd, engineArgs := cfg.Engine.CommandLine()
	engine := transcribe.New(transcribe.Config{
		Command:    engineCmd,
		Args:       engineArgs,
		Device:     cfg.Engine.Device,
		SampleRate: cfg.Engine.SampleRate,
	}, store)

	orchestrator := pipeline.New(fetcher, decoder, engine, store)
	server := httpapi.NewServer(orchestrator, store.Dir())

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s, cache at %s, device %s",
			cfg.Server.Addr, store.Dir(), cfg.Engine.Device)
		errCh <- server.ListenAndServe(cfg.Server.Addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal("server error: %v", err)
	case sig := <-stop:
		log.Info("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown: %v", err)
	}
	janitor.Stop()
}
