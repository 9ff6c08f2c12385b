// Package storage persists the study totals tables. The tracker owns the
// tables in memory; a Store is only touched at startup (Load) and after each
// session close (Save).
package storage

import "github.com/tompeelrick-wq/Discord-bot-estudo/internal/models"

type Store interface {
	// Load reads the persisted totals. A missing backing file or empty
	// database yields an empty snapshot, not an error.
	Load() (models.Snapshot, error)
	// Save overwrites the persisted totals with the given snapshot.
	Save(snapshot models.Snapshot) error
	Close() error
}
