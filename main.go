package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/john/chatbridge/internal/bridge"
	"github.com/john/chatbridge/internal/config"
	"github.com/john/chatbridge/internal/discord"
	"github.com/john/chatbridge/internal/health"
	"github.com/john/chatbridge/internal/kick"
	"github.com/john/chatbridge/internal/message"
	"github.com/john/chatbridge/internal/recorder"
	"github.com/john/chatbridge/internal/twitch"
	"github.com/john/chatbridge/internal/uploader"
)

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}

func main() {
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	logger.Info("chatbridge starting", "links", len(cfg.Bridge.Links))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// connectors -> bridge -> recorder -> uploader
	inbound := make(chan message.Message, cfg.Recorder.BufferSize)
	archive := make(chan message.Message, cfg.Recorder.BufferSize)
	fileChan := make(chan string, 100)

	translator := discord.NewTranslator(logger, cfg.Discord.StickerRenderProxy)
	discordConn, err := discord.New(cfg.Discord.Token, cfg.DiscordChannelIDs(), translator, logger)
	if err != nil {
		logger.Error("failed to create discord connector", "error", err)
		os.Exit(1)
	}

	twitchChannels := cfg.TwitchChannels()
	logger.Info("joining twitch channels", "channels", twitchChannels)
	twitchConn := twitch.New(cfg.Twitch.Username, cfg.Twitch.OAuth, twitchChannels, logger)

	var kickConn *kick.Connector
	if cfg.Kick.Enabled && len(cfg.Kick.Channels) > 0 {
		logger.Info("archiving kick channels", "count", len(cfg.Kick.Channels))
		kickConn = kick.New(cfg.Kick.Channels, logger)
	}

	links := lo.Map(cfg.Bridge.Links, func(l config.Link, _ int) bridge.Link {
		return bridge.Link{DiscordChannelID: l.DiscordChannelID, TwitchChannel: l.TwitchChannel}
	})
	br := bridge.New(links, discordConn, twitchConn, logger)

	rec := recorder.New(
		cfg.Recorder.OutputDir,
		cfg.Recorder.BufferSize,
		cfg.Recorder.RotateMinutes,
		cfg.Recorder.RotateMegabytes,
		logger,
	)

	var up *uploader.Uploader
	if cfg.S3.Enabled() {
		up, err = uploader.New(ctx, uploader.Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			RoleARN:         cfg.S3.RoleARN,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Endpoint:        cfg.S3.Endpoint,
			DeleteAfter:     cfg.Uploader.DeleteAfterUpload,
			MaxRetries:      cfg.Uploader.MaxRetries,
		}, logger)
		if err != nil {
			logger.Error("failed to create uploader", "error", err)
			os.Exit(1)
		}
		if err := up.ScanAndUploadExisting(ctx, cfg.Recorder.OutputDir); err != nil {
			logger.Warn("failed to scan for existing files", "error", err)
		}
	} else {
		logger.Info("s3 bucket not configured, archives stay on local disk")
		fileChan = nil
	}

	healthServer := health.New(cfg.Health.Addr, br.Stats, logger)

	var wg sync.WaitGroup
	run := func(name string, start func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := start(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("component stopped with error", "component", name, "error", err)
			}
		}()
	}

	run("discord", func() error { return discordConn.Start(ctx, inbound) })
	run("twitch", func() error { return twitchConn.Start(ctx, inbound) })
	if kickConn != nil {
		run("kick", func() error { return kickConn.Start(ctx, inbound) })
	}
	run("bridge", func() error { return br.Start(ctx, inbound, archive) })
	run("recorder", func() error { return rec.Start(ctx, archive, fileChan) })
	if up != nil {
		run("uploader", func() error { return up.Start(ctx, fileChan) })
	}
	run("health", healthServer.Start)

	logger.Info("all components started")

	go func() {
		<-sigChan
		logger.Info("shutdown signal received, initiating graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutting down health server", "error", err)
		}

		cancel()

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			logger.Info("all components stopped gracefully")
		case <-shutdownCtx.Done():
			logger.Warn("shutdown timeout exceeded, forcing exit")
		}

		os.Exit(0)
	}()

	wg.Wait()
	logger.Info("chatbridge stopped")
}
