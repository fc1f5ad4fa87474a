// Command takarum-bundle assembles a macOS .app bundle from an executable,
// a square SVG icon and an app name.
//
// Usage:
//
//	takarum-bundle [flags] <executable_path> <source_icon_path> <app_name_lower> <target_dir>
//
// Exit codes: 0 on success, 1 on a validation failure, 2 on any runtime
// failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"takarum/internal/buildhistory"
	"takarum/internal/bundle"
	"takarum/internal/config"
	"takarum/internal/logtee"
	"takarum/internal/progress"
	"takarum/internal/progresshub"
	"takarum/internal/systask"
	"takarum/internal/watch"
)

const (
	exitOK         = 0
	exitValidation = 1
	exitRuntime    = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultPath(), "config file path")
	watchIcon := flag.Bool("watch", false, "stay running and rebuild when the source icon changes")
	serveHub := flag.Bool("hub", false, "serve progress frames over a localhost WebSocket")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() != 4 {
		fmt.Fprintln(os.Stderr, "usage: takarum-bundle [flags] <executable_path> <source_icon_path> <app_name_lower> <target_dir>")
		return exitRuntime
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	diagnostics := logtee.NewRing(128)
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(logtee.NewHandler(base, slog.LevelWarn, diagnostics)))

	task, err := systask.Activate("takarum-bundle")
	if err != nil {
		fmt.Fprintln(os.Stderr, "takarum-bundle:", err)
		return exitRuntime
	}
	defer systask.Finalize(task)

	cfg, err := config.EnsureFile(*configPath)
	if err != nil {
		slog.Warn("[MAIN] config load failed, using defaults", "path", *configPath, "error", err)
	}

	var history *buildhistory.Store
	if history, err = buildhistory.Open(cfg.HistoryPath(*configPath)); err != nil {
		slog.Warn("[MAIN] build history unavailable", "error", err)
		history = nil
	} else {
		defer history.Close()
	}

	stream := progress.NewStream()
	proxy := progress.Proxy(progress.NewStreamProxy(stream))

	if *serveHub {
		hub := progresshub.NewHub(progresshub.Options{Addr: cfg.HubListenAddr})
		if err := hub.Start(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, "takarum-bundle:", err)
			return exitRuntime
		}
		defer hub.Stop()
		fmt.Fprintln(os.Stderr, "progress frames at", hub.URL())

		runID := uuid.NewString()
		streamProxy := proxy
		hubProxy := hub.Proxy(runID)
		proxy = progress.ProxyFunc(func(m progress.Message) error {
			progress.Emit(hubProxy, m)
			return streamProxy.Send(m)
		})
	}

	req := bundle.Request{
		ExecutablePath: flag.Arg(0),
		SourceIconPath: flag.Arg(1),
		AppNameLower:   flag.Arg(2),
		TargetDir:      flag.Arg(3),
	}
	assembler := bundle.NewAssembler(proxy, bundle.Options{
		IdentifierPrefix: cfg.IdentifierPrefix,
		Version:          cfg.BundleVersion,
		IconSizes:        cfg.IconSizes,
		PacingMillis:     cfg.PacingMillis,
		History:          history,
	})

	assembler.Commit(req)
	code := runOnce(assembler, stream, diagnostics)
	if !*watchIcon {
		return code
	}

	watcher, err := watch.New(req.SourceIconPath, time.Duration(cfg.WatchDebounceMillis)*time.Millisecond, func() {
		assembler.Commit(req)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "takarum-bundle:", err)
		return exitRuntime
	}
	defer watcher.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	fmt.Fprintln(os.Stderr, "watching", req.SourceIconPath, "for changes; interrupt to stop")

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-interrupt:
			return exitOK
		case <-ticker.C:
			if handle := assembler.Rebuild(); handle != nil {
				drainUntilDone(stream, handle.Done())
			}
		}
	}
}

// runOnce drives one scheduling pass and drains the progress stream,
// translating the terminal message into an exit code.
func runOnce(assembler *bundle.Assembler, stream *progress.Stream, diagnostics *logtee.Ring) int {
	handle := assembler.Rebuild()
	if handle == nil {
		// Validation failed; its message is already in the stream.
		printMessages(stream)
		return exitValidation
	}
	drainUntilDone(stream, handle.Done())

	if assembler.State() != bundle.Succeeded {
		for _, e := range diagnostics.Entries() {
			fmt.Fprintf(os.Stderr, "%s %s %s\n", e.Time.Format(time.TimeOnly), e.Level, e.Message)
		}
		return exitRuntime
	}
	return exitOK
}

// drainUntilDone prints progress messages as they arrive until the build
// handle closes and the stream is empty.
func drainUntilDone(stream *progress.Stream, done <-chan struct{}) {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	finished := false
	for {
		printMessages(stream)
		if finished {
			return
		}
		select {
		case <-done:
			finished = true
		case <-ticker.C:
		}
	}
}

func printMessages(stream *progress.Stream) {
	for {
		m, ok := stream.Next()
		if !ok {
			return
		}
		if text := m.Render(); text != "" {
			fmt.Println(text)
		}
	}
}
