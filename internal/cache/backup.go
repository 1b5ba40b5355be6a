// ABOUTME: YAML backup and restore for the local trip cache
// ABOUTME: Versioned, tool-tagged snapshot of every trip record

package cache

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bradwbu/Trekr/internal/models"
)

// BackupVersion is the current backup format version.
const BackupVersion = "1.0"

// Backup is the YAML snapshot format for the local cache.
type Backup struct {
	Version    string         `yaml:"version"`
	ExportedAt time.Time      `yaml:"exported_at"`
	Tool       string         `yaml:"tool"`
	Trips      []*models.Trip `yaml:"trips"`
}

// ExportBackup serializes every readable trip to YAML.
func ExportBackup(s *Store) ([]byte, error) {
	trips, err := s.All()
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}

	backup := Backup{
		Version:    BackupVersion,
		ExportedAt: time.Now().UTC(),
		Tool:       "trekr",
		Trips:      trips,
	}
	return yaml.Marshal(backup)
}

// ImportBackup restores trips from a YAML snapshot. Existing records with
// the same id are overwritten; this is a restore, not a merge.
func ImportBackup(s *Store, data []byte) (int, error) {
	var backup Backup
	if err := yaml.Unmarshal(data, &backup); err != nil {
		return 0, fmt.Errorf("parse yaml: %w", err)
	}
	if backup.Version != BackupVersion {
		return 0, fmt.Errorf("unsupported backup version: %s (expected %s)", backup.Version, BackupVersion)
	}
	if backup.Tool != "trekr" {
		return 0, fmt.Errorf("wrong tool: %s (expected trekr)", backup.Tool)
	}

	for _, trip := range backup.Trips {
		if err := s.Put(trip); err != nil {
			return 0, fmt.Errorf("restore trip %s: %w", trip.ID, err)
		}
	}
	return len(backup.Trips), nil
}
