package logtee

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"
)

func newLogger(ring *Ring, min slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewHandler(base, min, ring)), &buf
}

func TestCapturesAtOrAboveThreshold(t *testing.T) {
	ring := NewRing(8)
	logger, buf := newLogger(ring, slog.LevelWarn)

	logger.Debug("below")
	logger.Info("also below")
	logger.Warn("captured warn")
	logger.Error("captured error")

	entries := ring.Entries()
	if len(entries) != 2 {
		t.Fatalf("captured %d entries, want 2", len(entries))
	}
	if entries[0].Message != "captured warn" || entries[0].Level != slog.LevelWarn {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Message != "captured error" {
		t.Errorf("entry 1 = %+v", entries[1])
	}

	// Every record still reaches the base handler.
	for _, want := range []string{"below", "also below", "captured warn", "captured error"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("base output missing %q", want)
		}
	}
}

func TestRingEvictsOldest(t *testing.T) {
	ring := NewRing(3)
	logger, _ := newLogger(ring, slog.LevelInfo)

	for i := 0; i < 5; i++ {
		logger.Info(fmt.Sprintf("msg-%d", i))
	}

	entries := ring.Entries()
	if len(entries) != 3 {
		t.Fatalf("ring holds %d entries, want 3", len(entries))
	}
	for i, want := range []string{"msg-2", "msg-3", "msg-4"} {
		if entries[i].Message != want {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Message, want)
		}
	}
}

func TestWithGroupAccumulatesDotted(t *testing.T) {
	ring := NewRing(4)
	logger, _ := newLogger(ring, slog.LevelInfo)

	logger.WithGroup("bundle").WithGroup("icons").Info("grouped")

	entries := ring.Entries()
	if len(entries) != 1 {
		t.Fatalf("captured %d entries, want 1", len(entries))
	}
	if entries[0].Group != "bundle.icons" {
		t.Errorf("group = %q, want bundle.icons", entries[0].Group)
	}
}

func TestNilRingOnlyDelegates(t *testing.T) {
	logger, buf := newLogger(nil, slog.LevelInfo)
	logger.Error("no ring")
	if !bytes.Contains(buf.Bytes(), []byte("no ring")) {
		t.Error("base output missing the record")
	}
}
