// Package bundle assembles macOS application bundles: it validates build
// requests, lays out the .app directory tree, writes the property list,
// copies executables and produces the icon container, reporting progress
// through a message proxy.
package bundle

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"takarum/internal/buildhistory"
	"takarum/internal/progress"
	"takarum/internal/workerutil"
)

// State is the assembler's lifecycle position.
type State int

const (
	Idle State = iota
	Validating
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Validating:
		return "validating"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Request is one bundle build order. AppNameLower is the lowercase app name;
// the bundle directory uses its capitalised form.
type Request struct {
	ExecutablePath   string
	ExtraExecutables []string
	SourceIconPath   string
	AppNameLower     string
	TargetDir        string
}

// filled reports whether every required field is present.
func (r Request) filled() bool {
	return r.ExecutablePath != "" && r.SourceIconPath != "" &&
		r.AppNameLower != "" && r.TargetDir != ""
}

// Options tunes an Assembler. The zero value is usable: no pacing, no
// history, default identifier prefix and version.
type Options struct {
	// IdentifierPrefix forms the bundle identifier "<prefix>.<name>".
	IdentifierPrefix string
	// Version is written as CFBundleShortVersionString.
	Version string
	// IconSizes overrides the default raster dimensions.
	IconSizes []uint
	// PacingMillis is the sleep between progress emissions.
	PacingMillis int
	// History, when non-nil, records every build's start and outcome.
	History *buildhistory.Store
}

// sleepFn is a test seam so pacing does not slow the test suite.
var sleepFn = time.Sleep

// Assembler owns the build state machine
// Idle → Validating → Running → (Succeeded|Failed) → Idle, the pending
// payload slot and the in-flight task handle. One build runs at a time.
//
// Lock ordering: mu guards state, pending and handle. The build task never
// takes mu while emitting; it updates state through setState.
type Assembler struct {
	proxy progress.Proxy
	opts  Options

	mu      sync.Mutex
	state   State
	pending *Request
	handle  *workerutil.Handle
}

// NewAssembler returns an idle assembler reporting through proxy. A nil
// proxy is allowed; progress is then dropped.
func NewAssembler(proxy progress.Proxy, opts Options) *Assembler {
	if opts.IdentifierPrefix == "" {
		opts.IdentifierPrefix = "com.takarum.apps"
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	return &Assembler{proxy: proxy, opts: opts}
}

// State returns the current lifecycle position.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Commit stores req as the pending payload, replacing any unspawned one.
// The build starts on the next Rebuild pass.
func (a *Assembler) Commit(req Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = &req
	slog.Debug("[BUNDLE] payload committed", "app", req.AppNameLower, "target", req.TargetDir)
}

// Rebuild is the synchronous scheduling pass. It clears a finished task
// handle and, when a payload is pending and no task is in flight, validates
// the payload and spawns the build. The returned handle is non-nil exactly
// when a build was spawned.
//
// Validation failures emit their message before Rebuild returns and leave
// the assembler idle; no task is spawned.
func (a *Assembler) Rebuild() *workerutil.Handle {
	a.mu.Lock()

	if a.handle != nil && a.handle.Finished() {
		a.handle = nil
		a.state = Idle
	}
	if a.pending == nil {
		a.mu.Unlock()
		return nil
	}
	if a.handle != nil {
		slog.Debug("[BUNDLE] build already in flight, retaining payload")
		a.mu.Unlock()
		return nil
	}

	req := *a.pending
	a.pending = nil
	a.state = Validating
	a.mu.Unlock()

	if msg := validate(req); msg != nil {
		progress.Emit(a.proxy, msg)
		a.setState(Idle)
		slog.Info("[BUNDLE] validation failed", "app", req.AppNameLower, "kind", msg.Kind())
		return nil
	}

	buildID := uuid.NewString()
	a.setState(Running)
	handle := workerutil.Spawn("bundle-build-"+buildID, func() {
		a.runBuild(buildID, req)
	})

	a.mu.Lock()
	a.handle = handle
	a.mu.Unlock()
	slog.Info("[BUNDLE] build spawned", "build_id", buildID, "app", req.AppNameLower)
	return handle
}

func (a *Assembler) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// validate checks req's fields in order and returns the first failure's
// message, or nil when the request is buildable.
func validate(req Request) progress.Message {
	if !req.filled() {
		return progress.NotAllFieldsAreFilled{}
	}
	if fi, err := os.Stat(req.ExecutablePath); err != nil || fi.IsDir() {
		return progress.ExecutablePathDoesNotPointToAFile{}
	}
	if fi, err := os.Stat(req.SourceIconPath); err != nil || fi.IsDir() {
		return progress.SourceIconPathDoesNotPointToAFile{}
	}
	if fi, err := os.Stat(req.TargetDir); err != nil || !fi.IsDir() {
		return progress.TargetDirectoryPathIsNotADirectory{}
	}
	return nil
}
