package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/virallabs/viralbot/pkg/analyzer"
	"github.com/virallabs/viralbot/pkg/bot"
	"github.com/virallabs/viralbot/pkg/config"
	"github.com/virallabs/viralbot/pkg/extractor"
	"github.com/virallabs/viralbot/pkg/logger"
	"github.com/virallabs/viralbot/pkg/storage"
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".viralbot", "config.json")
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config file")
	check := flag.Bool("check", false, "validate configuration and environment, then exit")
	discover := flag.Bool("discover", false, "log chat ids of incoming updates instead of processing videos")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.FileEnabled {
		if err := logger.EnableFileLogging(cfg.Storage.LogsDir); err != nil {
			logger.WarnCF("main", "File logging unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	frames := extractor.New()

	if *check {
		os.Exit(runChecks(cfg, frames))
	}

	if err := cfg.Validate(); err != nil {
		logger.FatalCF("main", "Invalid configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	store, err := storage.NewStore(
		cfg.Storage.VideosDir,
		cfg.Storage.ImagesDir,
		cfg.Storage.MaxVideoSizeMB,
		cfg.Storage.VideoFormats,
	)
	if err != nil {
		logger.FatalCF("main", "Failed to initialize storage", map[string]interface{}{
			"error": err.Error(),
		})
	}

	insights := analyzer.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens)

	b, err := bot.New(cfg.Telegram, store, frames, insights)
	if err != nil {
		logger.FatalCF("main", "Failed to create bot", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *discover {
		if err := b.DiscoverChats(ctx); err != nil {
			logger.FatalCF("main", "Chat discovery failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	janitor := storage.NewJanitor(
		store,
		cfg.Storage.CleanupSchedule,
		time.Duration(cfg.Storage.RetentionHours)*time.Hour,
	)
	go janitor.Run(ctx)

	logger.InfoC("main", "Starting viralbot...")
	if err := b.Start(ctx); err != nil {
		logger.FatalCF("main", "Failed to start bot", map[string]interface{}{
			"error": err.Error(),
		})
	}

	<-ctx.Done()
	logger.InfoC("main", "Shutdown signal received, stopping")
}

// runChecks verifies the deployment the way a fresh install would trip over
// it: required settings, the decoder binary, and writable data directories.
func runChecks(cfg *config.Config, frames *extractor.Extractor) int {
	failed := 0

	report := func(name string, err error) {
		if err != nil {
			failed++
			fmt.Printf("FAIL  %s: %v\n", name, err)
			return
		}
		fmt.Printf("ok    %s\n", name)
	}

	report("configuration", cfg.Validate())
	report("ffmpeg binary", frames.Check())

	_, err := storage.NewStore(
		cfg.Storage.VideosDir,
		cfg.Storage.ImagesDir,
		cfg.Storage.MaxVideoSizeMB,
		cfg.Storage.VideoFormats,
	)
	report("storage directories", err)

	if failed > 0 {
		fmt.Printf("\n%d check(s) failed\n", failed)
		return 1
	}
	fmt.Println("\nall checks passed")
	return 0
}
