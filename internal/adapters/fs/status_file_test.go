package fs

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
)

func TestStatusFileRepository_LoadMissing(t *testing.T) {
	repo := NewStatusFileRepository(t.TempDir())

	status, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if status.BatchesDelivered != 0 || status.AgentID != "" {
		t.Errorf("Load() = %+v, want zero status", status)
	}
}

func TestStatusFileRepository_SaveLoad(t *testing.T) {
	dir := t.TempDir() + "/nested"
	repo := NewStatusFileRepository(dir)
	ctx := context.Background()

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	want := domain.Status{AgentID: "agent-1", URL: "https://li:9543/api/v1/events/ingest/agent-1"}
	want.RecordDelivery("b1", 3, at)
	want.RecordFailure("b2", 2, errors.New("server returned 500"), at)

	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.EventsDelivered != 3 || got.EventsDropped != 2 || got.BatchesFailed != 1 {
		t.Errorf("counters = %+v", got)
	}
	if got.LastError != "server returned 500" || !got.LastErrorAt.Equal(at) {
		t.Errorf("last error = %q at %v", got.LastError, got.LastErrorAt)
	}

	info, err := os.Stat(repo.Path())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the status file", len(entries))
	}
}

func TestStatusFileRepository_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	repo := NewStatusFileRepository(dir)
	if err := os.WriteFile(repo.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Load(context.Background()); err == nil {
		t.Error("Load() error = nil, want error")
	}
}
