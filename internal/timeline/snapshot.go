package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot is the full persisted state: last-writer-wins, written whole on
// every mutation. Events stay as tagged raw records so variants survive the
// round trip. Followup tasks are deliberately absent; losing them on
// restart is acceptable.
type Snapshot struct {
	Profiles        map[string]*PatientProfile   `json:"profiles"`
	Sessions        []*AgentSession              `json:"sessions"`
	Events          map[string][]json.RawMessage `json:"events"`
	Annotations     map[string][]*Annotation     `json:"annotations"`
	SavedViews      map[string][]*SavedView      `json:"saved_views"`
	ActiveProfileID string                       `json:"active_profile_id"`
}

type Persister interface {
	// Load returns (nil, nil) when no snapshot exists yet.
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// FilePersister keeps the snapshot as one JSON document on disk.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (f *FilePersister) Load() (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", f.path, err)
	}
	return &snap, nil
}

func (f *FilePersister) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	// Write-then-rename so a failed write never truncates the previous
	// snapshot.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
