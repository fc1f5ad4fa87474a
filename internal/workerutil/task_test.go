package workerutil

import (
	"testing"
	"time"
)

func waitFinished(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task to finish")
	}
}

func TestSpawnRunsAndFinishes(t *testing.T) {
	ran := make(chan struct{})
	h := Spawn("test-run", func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task body never ran")
	}
	waitFinished(t, h)
	if !h.Finished() {
		t.Error("Finished() should report true after Done closes")
	}
	if h.Panicked() {
		t.Error("task did not panic")
	}
}

func TestSpawnRecoversPanic(t *testing.T) {
	h := Spawn("test-panic", func() { panic("boom") })
	waitFinished(t, h)
	if !h.Panicked() {
		t.Error("handle should report the panic")
	}
	if !h.Finished() {
		t.Error("a panicked task still counts as finished")
	}
}

func TestFinishedIsFalseWhileRunning(t *testing.T) {
	release := make(chan struct{})
	h := Spawn("test-blocked", func() { <-release })
	if h.Finished() {
		t.Error("task is still blocked and must not report finished")
	}
	close(release)
	waitFinished(t, h)
}
