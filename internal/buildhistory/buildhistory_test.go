package buildhistory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"takarum/internal/timedate"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustTime(t *testing.T, year, ordinal, hour, minute, second, nano uint) timedate.TimeAndDate {
	t.Helper()
	td, err := timedate.NewWithNanos(year, ordinal, hour, minute, second, nano)
	if err != nil {
		t.Fatalf("NewWithNanos: %v", err)
	}
	return td
}

func TestRecordStartAndFinish(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	started := mustTime(t, 2026, 236, 14, 30, 12, 500_000_000)
	finished := mustTime(t, 2026, 236, 14, 30, 19, 0)

	if err := s.RecordStart(ctx, "b-1", "hello", "/tmp/out", started); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	if err := s.RecordFinish(ctx, "b-1", finished, OutcomeSucceeded, ""); err != nil {
		t.Fatalf("RecordFinish: %v", err)
	}

	recent, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("got %d records, want 1", len(recent))
	}
	r := recent[0]
	if r.ID != "b-1" || r.App != "hello" || r.TargetDir != "/tmp/out" {
		t.Errorf("record = %+v", r)
	}
	if !r.Started.Equal(started) {
		t.Errorf("started round-trip mismatch: %v vs %v", r.Started, started)
	}
	if !r.Finished.Equal(finished) {
		t.Errorf("finished round-trip mismatch: %v vs %v", r.Finished, finished)
	}
	if r.Outcome != OutcomeSucceeded {
		t.Errorf("outcome = %q", r.Outcome)
	}
}

func TestRecordFinishUnknownBuild(t *testing.T) {
	s := openStore(t)
	err := s.RecordFinish(context.Background(), "nope", timedate.Now(), OutcomeFailed, "x")
	if err == nil || !strings.Contains(err.Error(), "no such build") {
		t.Fatalf("err = %v, want no-such-build", err)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	early := mustTime(t, 2026, 100, 9, 0, 0, 0)
	late := mustTime(t, 2026, 200, 9, 0, 0, 0)
	if err := s.RecordStart(ctx, "b-early", "alpha", "/tmp/a", early); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordStart(ctx, "b-late", "beta", "/tmp/b", late); err != nil {
		t.Fatal(err)
	}

	recent, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].ID != "b-late" {
		t.Errorf("Recent(1) = %+v, want the later build", recent)
	}
}

func TestFailedBuildKeepsDetail(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.RecordStart(ctx, "b-f", "hello", "/tmp/out", timedate.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordFinish(ctx, "b-f", timedate.Now(), OutcomeFailed, "copy failed"); err != nil {
		t.Fatal(err)
	}
	recent, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if recent[0].Outcome != OutcomeFailed || recent[0].Detail != "copy failed" {
		t.Errorf("record = %+v", recent[0])
	}
}
