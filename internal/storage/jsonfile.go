package storage

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/models"
)

// schema enumerates the supported on-disk document shapes.
type schema int

const (
	// schemaCurrentV2 is the two-section document: {"global": ..., "materias": ...}.
	schemaCurrentV2 schema = iota
	// schemaLegacyV1 is the flat {userID: ms} document written before subject
	// totals existed; it is read as the global table only.
	schemaLegacyV1
)

// FileStore keeps both totals tables in a single JSON document and replaces
// it wholesale on every save.
type FileStore struct {
	path string
	log  zerolog.Logger
}

func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{path: path, log: log.With().Str("component", "filestore").Logger()}
}

func (f *FileStore) Load() (models.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.log.Info().Str("path", f.path).Msg("no totals file yet, starting empty")
			return models.NewSnapshot(), nil
		}
		return models.Snapshot{}, fmt.Errorf("read %s: %w", f.path, err)
	}

	snapshot, detected, err := decodeSnapshot(data)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("parse %s: %w", f.path, err)
	}
	if detected == schemaLegacyV1 {
		f.log.Warn().Str("path", f.path).Msg("legacy flat totals file detected, subject totals start empty")
	}
	return snapshot, nil
}

// decodeSnapshot detects which document shape the raw bytes carry. The
// enumeration is closed: a future format bumps the list here rather than
// adding another ad hoc shape probe.
func decodeSnapshot(raw []byte) (models.Snapshot, schema, error) {
	var current models.Snapshot
	if err := json.Unmarshal(raw, &current); err == nil && (current.Global != nil || current.Subjects != nil) {
		if current.Global == nil {
			current.Global = make(map[string]int64)
		}
		if current.Subjects == nil {
			current.Subjects = make(map[string]map[string]int64)
		}
		return current, schemaCurrentV2, nil
	}

	var flat map[string]int64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return models.Snapshot{}, 0, err
	}
	snapshot := models.NewSnapshot()
	if flat != nil {
		snapshot.Global = flat
	}
	return snapshot, schemaLegacyV1, nil
}

// Save writes the snapshot through a temp file so a crash mid-write leaves
// either the old document or the new one, never a torn half.
func (f *FileStore) Save(snapshot models.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal totals: %w", err)
	}

	tmp := f.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err = file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	return os.Rename(tmp, f.path)
}

func (f *FileStore) Close() error { return nil }
