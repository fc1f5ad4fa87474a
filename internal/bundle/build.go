package bundle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode"
	"unicode/utf8"

	"takarum/internal/buildhistory"
	"takarum/internal/icon"
	"takarum/internal/plist"
	"takarum/internal/progress"
	"takarum/internal/timedate"
)

// runBuild performs the build steps on the background executor. Failures
// surface as an OtherError message; the task never retries and never
// panics past its recovery wrapper.
func (a *Assembler) runBuild(buildID string, req Request) {
	a.recordStart(buildID, req)

	if err := a.produce(req); err != nil {
		progress.Emit(a.proxy, progress.OtherError{Detail: err.Error()})
		a.setState(Failed)
		a.recordFinish(buildID, buildhistory.OutcomeFailed, err.Error())
		slog.Error("[BUNDLE] build failed", "build_id", buildID, "error", err)
		return
	}

	a.setState(Succeeded)
	a.recordFinish(buildID, buildhistory.OutcomeSucceeded, "")
	slog.Info("[BUNDLE] build succeeded", "build_id", buildID, "app", req.AppNameLower)
}

func (a *Assembler) produce(req Request) error {
	appName := capitalizeFirst(req.AppNameLower)
	bundleRoot := filepath.Join(req.TargetDir, appName+".app", "Contents")

	progress.Emit(a.proxy, progress.BeganProducingBundle{App: req.AppNameLower, TargetDir: req.TargetDir})
	a.pace()

	if err := os.MkdirAll(bundleRoot, 0o755); err != nil {
		return fmt.Errorf("create bundle root: %w", err)
	}

	info := plist.ForBundle(plist.BundleInfo{
		AppName:      appName,
		Executable:   filepath.Base(req.ExecutablePath),
		Identifier:   a.opts.IdentifierPrefix + "." + req.AppNameLower,
		ShortVersion: a.opts.Version,
		IconFile:     req.AppNameLower + ".icns",
	})
	// A bundle without its Info.plist still carries the executable and
	// icons, so a plist write failure degrades the build rather than
	// aborting it.
	if err := plist.Write(filepath.Join(bundleRoot, "Info.plist"), info); err != nil {
		slog.Warn("[BUNDLE] property list write failed, continuing", "error", err)
	}

	macOSDir := filepath.Join(bundleRoot, "MacOS")
	if err := os.MkdirAll(macOSDir, 0o755); err != nil {
		return fmt.Errorf("create MacOS dir: %w", err)
	}
	executables := append([]string{req.ExecutablePath}, req.ExtraExecutables...)
	for i, src := range executables {
		dest := filepath.Join(macOSDir, filepath.Base(src))
		if err := copyFile(src, dest); err != nil {
			return fmt.Errorf("copy executable: %w", err)
		}
		progress.Emit(a.proxy, progress.WroteExecutable{Path: dest, Main: i == 0})
		a.pace()
	}

	resourcesDir := filepath.Join(bundleRoot, "Resources")
	if err := os.MkdirAll(resourcesDir, 0o755); err != nil {
		return fmt.Errorf("create Resources dir: %w", err)
	}
	producer := &icon.Producer{
		Dims:  a.opts.IconSizes,
		Proxy: progress.NewIconProxy(a.proxy),
	}
	icnsPath := filepath.Join(resourcesDir, req.AppNameLower+".icns")
	if err := producer.Produce(req.SourceIconPath, icnsPath, icon.ICNS); err != nil {
		return fmt.Errorf("produce icons: %w", err)
	}
	a.pace()

	progress.Emit(a.proxy, progress.FinishedProducingBundle{App: req.AppNameLower, TargetDir: req.TargetDir})
	return nil
}

// pace sleeps between progress emissions so the UI's drain loop shows the
// steps rather than one burst. Disabled at zero.
func (a *Assembler) pace() {
	if a.opts.PacingMillis > 0 {
		sleepFn(time.Duration(a.opts.PacingMillis) * time.Millisecond)
	}
}

func (a *Assembler) recordStart(buildID string, req Request) {
	if a.opts.History == nil {
		return
	}
	err := a.opts.History.RecordStart(context.Background(), buildID, req.AppNameLower, req.TargetDir, timedate.Now())
	if err != nil {
		slog.Warn("[BUNDLE] history start record failed", "build_id", buildID, "error", err)
	}
}

func (a *Assembler) recordFinish(buildID string, outcome buildhistory.Outcome, detail string) {
	if a.opts.History == nil {
		return
	}
	err := a.opts.History.RecordFinish(context.Background(), buildID, timedate.Now(), outcome, detail)
	if err != nil {
		slog.Warn("[BUNDLE] history finish record failed", "build_id", buildID, "error", err)
	}
}

// copyFile copies src to dest byte-for-byte, carrying the source's
// permission bits over on a best-effort basis.
func copyFile(src, dest string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	mode := os.FileMode(0o755)
	if fi, err := srcFile.Stat(); err == nil {
		mode = fi.Mode().Perm()
	}

	destFile, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destFile, srcFile); err != nil {
		destFile.Close()
		return err
	}
	if err := destFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dest, mode); err != nil {
		slog.Warn("[BUNDLE] could not preserve permissions", "path", dest, "error", err)
	}
	return nil
}

// capitalizeFirst upper-cases the first rune: "hello" becomes "Hello".
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
