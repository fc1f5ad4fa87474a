package bundle

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"takarum/internal/buildhistory"
	"takarum/internal/progress"
	"takarum/internal/workerutil"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="128" height="128" viewBox="0 0 128 128">
  <path d="M0 0h128v128H0z" fill="#3478f6"/>
</svg>`

// fixture creates an executable, a square source SVG and a target directory,
// returning a filled request.
func fixture(t *testing.T) Request {
	t.Helper()
	dir := t.TempDir()
	exe := filepath.Join(dir, "hello")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\necho hello\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	svg := filepath.Join(dir, "hello.svg")
	if err := os.WriteFile(svg, []byte(testSVG), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "out")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}
	return Request{
		ExecutablePath: exe,
		SourceIconPath: svg,
		AppNameLower:   "hello",
		TargetDir:      target,
	}
}

func waitBuild(t *testing.T, h *workerutil.Handle) {
	t.Helper()
	if h == nil {
		t.Fatal("expected a spawned build")
	}
	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("build did not finish in time")
	}
}

func drainKinds(stream *progress.Stream) []string {
	var kinds []string
	for {
		m, ok := stream.Next()
		if !ok {
			return kinds
		}
		kinds = append(kinds, m.Kind())
	}
}

func TestHappyPathProducesBundle(t *testing.T) {
	req := fixture(t)
	stream := progress.NewStream()
	a := NewAssembler(progress.NewStreamProxy(stream), Options{})

	a.Commit(req)
	handle := a.Rebuild()
	waitBuild(t, handle)

	if got := a.State(); got != Succeeded {
		t.Errorf("state = %v, want succeeded", got)
	}
	// The next scheduling pass clears the finished handle.
	if h := a.Rebuild(); h != nil {
		t.Error("no payload pending, Rebuild must not spawn")
	}
	if got := a.State(); got != Idle {
		t.Errorf("state after clear = %v, want idle", got)
	}

	contents := filepath.Join(req.TargetDir, "Hello.app", "Contents")
	for _, rel := range []string{
		"Info.plist",
		filepath.Join("MacOS", "hello"),
		filepath.Join("Resources", "hello.icns"),
	} {
		if _, err := os.Stat(filepath.Join(contents, rel)); err != nil {
			t.Errorf("missing bundle file %s: %v", rel, err)
		}
	}

	// The container must hold exactly the six default rasters.
	data, err := os.ReadFile(filepath.Join(contents, "Resources", "hello.icns"))
	if err != nil {
		t.Fatal(err)
	}
	entryCount := 0
	for off := 8; off < len(data); {
		size := int(binary.BigEndian.Uint32(data[off+4 : off+8]))
		entryCount++
		off += size
	}
	if entryCount != 6 {
		t.Errorf("icns holds %d entries, want 6", entryCount)
	}

	want := []string{
		"began-producing-bundle",
		"wrote-executable",
		"icon:began-producing-icons",
		"icon:encoding-png",
		"icon:encoding-png",
		"icon:encoding-png",
		"icon:encoding-png",
		"icon:encoding-png",
		"icon:encoding-png",
		"icon:wrote-icons-file",
		"icon:finished-producing-icons",
		"finished-producing-bundle",
	}
	kinds := drainKinds(stream)
	if len(kinds) != len(want) {
		t.Fatalf("got %d messages %v, want %d", len(kinds), kinds, len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestValidationFailuresEmitSynchronouslyAndStayIdle(t *testing.T) {
	cases := []struct {
		name     string
		mut      func(*Request)
		wantKind string
	}{
		{"empty field", func(r *Request) { r.AppNameLower = "" }, "not-all-fields-are-filled"},
		{"missing executable", func(r *Request) { r.ExecutablePath = r.ExecutablePath + ".nope" }, "executable-path-not-a-file"},
		{"icon is a directory", func(r *Request) { r.SourceIconPath = filepath.Dir(r.SourceIconPath) }, "source-icon-path-not-a-file"},
		{"target is a file", func(r *Request) { r.TargetDir = r.ExecutablePath }, "target-directory-not-a-directory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := fixture(t)
			tc.mut(&req)
			stream := progress.NewStream()
			a := NewAssembler(progress.NewStreamProxy(stream), Options{})

			a.Commit(req)
			if h := a.Rebuild(); h != nil {
				t.Fatal("validation failure must not spawn a task")
			}
			kinds := drainKinds(stream)
			if len(kinds) != 1 || kinds[0] != tc.wantKind {
				t.Errorf("messages = %v, want [%s]", kinds, tc.wantKind)
			}
			if a.State() != Idle {
				t.Errorf("state = %v, want idle", a.State())
			}
		})
	}
}

func TestSingleFlightRetainsSecondPayload(t *testing.T) {
	release := make(chan struct{})
	origSleep := sleepFn
	sleepFn = func(time.Duration) { <-release }
	defer func() { sleepFn = origSleep }()

	req := fixture(t)
	stream := progress.NewStream()
	a := NewAssembler(progress.NewStreamProxy(stream), Options{PacingMillis: 1})

	a.Commit(req)
	first := a.Rebuild()
	if first == nil {
		t.Fatal("first build should spawn")
	}

	// A second payload while the first is blocked must be retained, not
	// spawned.
	a.Commit(req)
	if h := a.Rebuild(); h != nil {
		t.Error("second build spawned while the first is in flight")
	}

	close(release)
	waitBuild(t, first)

	// Once the first finishes, the retained payload spawns.
	second := a.Rebuild()
	waitBuild(t, second)
}

func TestBuildFailureEmitsOtherError(t *testing.T) {
	req := fixture(t)
	if err := os.WriteFile(req.SourceIconPath, []byte("<svg><path"), 0o644); err != nil {
		t.Fatal(err)
	}
	stream := progress.NewStream()
	a := NewAssembler(progress.NewStreamProxy(stream), Options{})

	a.Commit(req)
	waitBuild(t, a.Rebuild())

	if a.State() != Failed {
		t.Errorf("state = %v, want failed", a.State())
	}
	kinds := drainKinds(stream)
	if len(kinds) == 0 || kinds[len(kinds)-1] != "other-error" {
		t.Errorf("messages = %v, want other-error last", kinds)
	}
}

func TestExtraExecutables(t *testing.T) {
	req := fixture(t)
	helper := filepath.Join(filepath.Dir(req.ExecutablePath), "helper")
	if err := os.WriteFile(helper, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	req.ExtraExecutables = []string{helper}

	stream := progress.NewStream()
	a := NewAssembler(progress.NewStreamProxy(stream), Options{})
	a.Commit(req)
	waitBuild(t, a.Rebuild())

	var wrote []progress.WroteExecutable
	for {
		m, ok := stream.Next()
		if !ok {
			break
		}
		if w, isWrote := m.(progress.WroteExecutable); isWrote {
			wrote = append(wrote, w)
		}
	}
	if len(wrote) != 2 {
		t.Fatalf("got %d wrote-executable messages, want 2", len(wrote))
	}
	if !wrote[0].Main || wrote[1].Main {
		t.Errorf("only the first executable is main: %+v", wrote)
	}
	if _, err := os.Stat(filepath.Join(req.TargetDir, "Hello.app", "Contents", "MacOS", "helper")); err != nil {
		t.Errorf("helper missing from bundle: %v", err)
	}
}

func TestBuildRecordsHistory(t *testing.T) {
	store, err := buildhistory.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	req := fixture(t)
	a := NewAssembler(nil, Options{History: store})
	a.Commit(req)
	waitBuild(t, a.Rebuild())

	recent, err := store.Recent(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 {
		t.Fatalf("history holds %d records, want 1", len(recent))
	}
	if recent[0].Outcome != buildhistory.OutcomeSucceeded {
		t.Errorf("outcome = %q", recent[0].Outcome)
	}
	if recent[0].App != "hello" {
		t.Errorf("app = %q", recent[0].App)
	}
}

func TestCapitalizeFirst(t *testing.T) {
	cases := map[string]string{
		"hello":  "Hello",
		"":       "",
		"Hello":  "Hello",
		"émile":  "Émile",
		"x":      "X",
		"my app": "My app",
	}
	for in, want := range cases {
		if got := capitalizeFirst(in); got != want {
			t.Errorf("capitalizeFirst(%q) = %q, want %q", in, got, want)
		}
	}
}
