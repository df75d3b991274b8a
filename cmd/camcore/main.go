// Package main is the entry point for the toolpath planning core.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/config"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/gcode"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/ipc"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/plan"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/pool"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/safety"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to configuration JSON file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("camcore %s (commit=%s, built=%s)\n", version, commit, date)
		os.Exit(0)
	}

	// Resolve config path: --config flag > CAMCORE_CONFIG env > auto-discover.
	path := *configPath
	if path == "" {
		path = os.Getenv("CAMCORE_CONFIG")
	}
	if path == "" {
		path = discoverConfig()
	}

	var cfg *config.Config
	if path == "" {
		log.Println("no config.json found, running with defaults")
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			fatal(fmt.Sprintf("load config: %v", err))
		}
		cfg = loaded
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Wire the planning pipeline.
	limits := cfg.SafetyLimits()
	handler := &ipc.Handler{
		Guard:     safety.NewGuard(limits),
		Planner:   plan.New(cfg.Planner, cfg.Machine, limits),
		Simulator: gcode.NewSimulator(cfg.Machine),
		Pool:      pool.New(cfg.WorkerCount),
		DB:        db,
		RunRepo:   &store.RunRepo{},
		IssueRepo: &store.IssueRepo{},
	}

	srv := ipc.NewServer(handler, cfg.ListenAddr)

	// Graceful shutdown on interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("camcore %s listening on %s", version, ipc.FormatListenURL(cfg.ListenAddr))

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		fatal(fmt.Sprintf("server error: %v", err))
	}
}

// discoverConfig looks for config.json next to the executable, then in the cwd.
func discoverConfig() string {
	// Next to executable.
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "config.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	// Current working directory.
	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}
	return ""
}

// fatal prints an error and, on Windows, waits for a keypress so the user can
// read the message when the exe is launched by double-click.
func fatal(msg string) {
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", msg)
	if runtime.GOOS == "windows" {
		fmt.Fprintln(os.Stderr, "\nPress Enter to exit...")
		bufio.NewReader(os.Stdin).ReadBytes('\n')
	}
	os.Exit(1)
}
