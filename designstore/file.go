package designstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cadforge/pipeline/design"
)

// FileStore persists one JSON file per design under Dir, named "{id}.json",
// grounded on the original Python CompetitiveDesignStore's file-per-id layout
// (_examples/original_source/.../models/competitive.py). Save is atomic per
// record: write to a temp file in the same directory, fsync, then rename
// (§4.2 "write-to-temp, fsync, rename; or equivalent store-native
// atomicity"). Concurrent saves of the same id are serialized by a per-store
// mutex (§4.2 "the last write wins").
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir, creating dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes record atomically, overwriting any prior version with the
// same ID.
func (s *FileStore) Save(ctx context.Context, record design.DesignRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, record.ID+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path(record.ID))
}

// Load reads a record by id. It returns (zero, false, nil) on missing or
// corrupt input, never an error (§4.2).
func (s *FileStore) Load(ctx context.Context, id string) (design.DesignRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return design.DesignRecord{}, false, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return design.DesignRecord{}, false, nil
	}
	var record design.DesignRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return design.DesignRecord{}, false, nil
	}
	return record, true, nil
}

// List returns every stored record ordered by UpdatedAt descending.
func (s *FileStore) List(ctx context.Context) ([]design.DesignRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	records := make([]design.DesignRecord, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var record design.DesignRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}
