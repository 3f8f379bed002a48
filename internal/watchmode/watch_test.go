package watchmode

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherRunsImmediatelyThenOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "module.json")

	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := New([]string{dir}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	events := make(chan Event, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx, func(ev Event) { events <- ev })
	}()

	select {
	case <-events:
	case <-time.After(time.Second):
		t.Fatal("did not receive initial run event")
	}

	if err := os.WriteFile(path, []byte(`{"changed":true}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Op&OpWrite == 0 && ev.Op&OpCreate == 0 {
			t.Errorf("Op = %v, want Write or Create", ev.Op)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive write event")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewRejectsMissingPath(t *testing.T) {
	if _, err := New([]string{"/path/does/not/exist-havenchk"}, 0); err == nil {
		t.Fatal("New: want error for missing path")
	}
}
