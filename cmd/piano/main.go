package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/piotrcurious/Bluedisplay-piano/internal/api"
	"github.com/piotrcurious/Bluedisplay-piano/internal/config"
	"github.com/piotrcurious/Bluedisplay-piano/internal/dac"
	"github.com/piotrcurious/Bluedisplay-piano/internal/display"
	"github.com/piotrcurious/Bluedisplay-piano/internal/instrument"
	"github.com/piotrcurious/Bluedisplay-piano/internal/keymap"
	"github.com/piotrcurious/Bluedisplay-piano/internal/midiin"
	"github.com/piotrcurious/Bluedisplay-piano/internal/tone"
)

func main() {
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	if cfg.LogDebug {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("piano starting",
		zap.String("api", cfg.APIAddr),
		zap.Int("sampleRate", cfg.SampleRate),
		zap.String("dac", cfg.DACBackend),
		zap.String("pacing", cfg.TonePacing),
		zap.String("display", cfg.DisplayPort),
		zap.Bool("midi", cfg.MIDIEnabled),
		zap.Bool("apiKey", cfg.APIKey != ""),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := keymap.Default.Validate(); err != nil {
		logger.Fatal("invalid note table", zap.Error(err))
	}
	inst := instrument.New(keymap.Default, logger.Named("instrument"))

	capture := dac.NewCapture(cfg.CaptureSec, cfg.SampleRate)
	out, pacer, closeOut, err := openOutput(cfg, capture)
	if err != nil {
		logger.Fatal("failed to open DAC output", zap.Error(err))
	}
	defer closeOut()

	gen := tone.NewGenerator(cfg.SampleRate, inst, out, pacer, logger.Named("tone"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		gen.Run(ctx)
	}()

	client := display.NewClient(
		display.SerialDialer{Device: cfg.DisplayPort, Baud: cfg.DisplayBaud},
		inst,
		keymap.Default.Names(),
		display.Config{
			ConnectTimeout: cfg.DisplayConnectTimeout,
			RetryDelay:     cfg.DisplayRetryDelay,
		},
		logger.Named("display"),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		client.Run(ctx)
	}()

	if cfg.MIDIEnabled {
		watcher, err := midiin.Open(inst, keymap.Default, cfg.MIDIPreferred, logger.Named("midi"))
		if err != nil {
			logger.Error("midi input unavailable", zap.Error(err))
		} else {
			defer watcher.Close()
			wg.Add(1)
			go func() {
				defer wg.Done()
				watcher.Run(ctx, cfg.MIDIRescan)
			}()
		}
	}

	srv := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      api.New(inst, capture, gen.Stats(), cfg.APIKey, logger.Named("api")).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}
	go func() {
		logger.Info("internal API listening", zap.String("addr", cfg.APIAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("internal API failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
