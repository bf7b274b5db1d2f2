package designstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cadforge/pipeline/design"
)

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	record := design.DesignRecord{
		ID:        "d1",
		Prompt:    "a mounting bracket",
		Status:    design.StatusDraft,
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, found, err := store.Load(ctx, "d1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !found {
		t.Fatal("Load() found = false, want true")
	}
	if got.ID != record.ID || got.Prompt != record.Prompt {
		t.Errorf("Load() = %+v, want matching %+v", got, record)
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	record, found, err := store.Load(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil (missing records never error)", err)
	}
	if found {
		t.Error("Load() found = true for missing record, want false")
	}
	if record.ID != "" {
		t.Errorf("Load() record = %+v, want zero value", record)
	}
}

func TestFileStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("write corrupt fixture: %v", err)
	}

	_, found, err := store.Load(context.Background(), "bad")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil (corrupt records never error)", err)
	}
	if found {
		t.Error("Load() found = true for corrupt record, want false")
	}
}

func TestFileStore_SaveOverwritesSameID(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	first := design.DesignRecord{ID: "d1", Prompt: "v1", UpdatedAt: time.Now().UTC()}
	second := design.DesignRecord{ID: "d1", Prompt: "v2", UpdatedAt: time.Now().UTC().Add(time.Second)}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save(first) error = %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save(second) error = %v", err)
	}

	got, _, err := store.Load(ctx, "d1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Prompt != "v2" {
		t.Errorf("Load().Prompt = %q, want %q (last write wins)", got.Prompt, "v2")
	}
}

func TestFileStore_List_OrderedByUpdatedAtDescending(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()
	base := time.Now().UTC()

	records := []design.DesignRecord{
		{ID: "oldest", UpdatedAt: base},
		{ID: "newest", UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "middle", UpdatedAt: base.Add(1 * time.Hour)},
	}
	for _, r := range records {
		if err := store.Save(ctx, r); err != nil {
			t.Fatalf("Save(%s) error = %v", r.ID, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(list))
	}
	wantOrder := []string{"newest", "middle", "oldest"}
	for i, want := range wantOrder {
		if list[i].ID != want {
			t.Errorf("List()[%d].ID = %q, want %q", i, list[i].ID, want)
		}
	}
}

func TestFileStore_List_SkipsCorruptFilesAndNonJSON(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, design.DesignRecord{ID: "good", UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write non-json fixture: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != "good" {
		t.Errorf("List() = %+v, want exactly [good]", list)
	}
}
