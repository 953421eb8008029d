package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"InvestCore/internal/domain/models"
)

// artifactStore snapshots published bundles as JSON so a restarted process
// serves immediately instead of waiting for the first retrain.
type artifactStore struct {
	dir string
}

func (s *artifactStore) path(instrument string) string {
	return filepath.Join(s.dir, instrument+"_bundle.json")
}

func (s *artifactStore) save(b *models.ModelBundle) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}

	// write-then-rename keeps the snapshot readable at every instant
	tmp := s.path(b.Instrument) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path(b.Instrument)); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// load returns (nil, nil) when no snapshot exists.
func (s *artifactStore) load(instrument string) (*models.ModelBundle, error) {
	data, err := os.ReadFile(s.path(instrument))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var b models.ModelBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &b, nil
}
