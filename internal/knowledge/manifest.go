package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// manifestFile sits next to the collection data in the persistence
// directory.
const manifestFile = "manifest.json"

// Manifest records what the index was built from. The embedder model is
// the important field: vectors are only comparable to queries embedded
// with the same model, and nothing in the vector data itself records it.
type Manifest struct {
	EmbedderModel string    `json:"embedder_model"`
	Documents     int       `json:"documents"`
	Chunks        int       `json:"chunks"`
	BuiltAt       time.Time `json:"built_at"`
}

// Save writes the manifest, stamping BuiltAt.
func (m *Manifest) Save(persistDir string) error {
	m.BuiltAt = time.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	path := filepath.Join(persistDir, manifestFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest from persistDir. Returns (nil, nil)
// when no manifest exists, which is the case for indexes built before
// manifests were recorded.
func LoadManifest(persistDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(persistDir, manifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
