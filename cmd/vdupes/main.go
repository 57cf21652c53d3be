package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gwlsn/vdupes/internal/config"
	"github.com/gwlsn/vdupes/internal/logger"
	"github.com/gwlsn/vdupes/internal/orchestrator"
	"github.com/gwlsn/vdupes/internal/settings"
	"github.com/gwlsn/vdupes/internal/store"
	"github.com/gwlsn/vdupes/internal/thumbnail"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to config file")
	ffmpegPath := flag.String("ffmpeg", "ffmpeg", "Path to ffmpeg binary")
	ffprobePath := flag.String("ffprobe", "ffprobe", "Path to ffprobe binary")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	dirFlag := flag.String("dir", "", "Directory to scan (repeatable via comma-separated list)")
	recursive := flag.Bool("recursive", true, "Scan directories recursively")
	method := flag.String("method", "slow", "Sampling method: fast or slow")
	flag.Parse()

	logger.Init(*logLevel)

	cfg := config.Load(*configPath)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("database opened", "path", cfg.DBPath)

	sett, err := st.LoadSettings()
	if err != nil {
		logger.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	if *dirFlag != "" {
		sett.Directories = nil
		for _, dir := range strings.Split(*dirFlag, ",") {
			if dir == "" {
				continue
			}
			sett.Directories = append(sett.Directories, settings.Directory{Path: dir, Recursive: *recursive})
		}
	}
	if *method == "fast" {
		sett.Method = settings.Fast
	} else {
		sett.Method = settings.Slow
	}
	sett.Compile()

	if err := st.SaveSettings(sett); err != nil {
		logger.Warn("failed to persist settings", "error", err)
	}

	thumbs := thumbnail.New(*ffmpegPath, os.TempDir())
	orch := orchestrator.New(st, *ffmpegPath, *ffprobePath, thumbs)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nCancelling, finishing current file...")
		cancel()
	}()

	events, unsubscribe := orch.Subscribe()
	defer unsubscribe()
	go printEvents(events)

	fmt.Println("Scanning for duplicate videos...")
	if err := orch.Run(ctx, sett); err != nil {
		logger.Error("detection run failed", "error", err)
		os.Exit(1)
	}

	groups, err := st.LoadDuplicateGroups()
	if err != nil {
		logger.Error("failed to load duplicate groups", "error", err)
		os.Exit(1)
	}

	report, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		logger.Error("failed to marshal report", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(report))
}

func printEvents(events <-chan orchestrator.Event) {
	for e := range events {
		switch e.Kind {
		case orchestrator.EventScanProgress:
			fmt.Printf("  scanned: %d files found\n", e.Found)
		case orchestrator.EventMetadataProgress:
			fmt.Printf("  metadata: %d/%d\n", e.Done, e.Total)
		case orchestrator.EventHashProgress:
			fmt.Printf("  hashing: %d/%d\n", e.Done, e.Total)
		case orchestrator.EventDuplicatesUpdated:
			fmt.Printf("  duplicate groups: %d\n", len(e.Groups))
		case orchestrator.EventError:
			fmt.Printf("  error: %v\n", e.Err)
		}
	}
}
