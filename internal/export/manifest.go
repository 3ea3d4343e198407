package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestName is the completion marker of an export directory. It is
// written after every data file, so its presence means the export
// finished and its checksums are trustworthy.
const ManifestName = "manifest.json"

// Manifest describes one finished export run.
type Manifest struct {
	RunID        string          `json:"run_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Source       string          `json:"source"`
	Table        string          `json:"table"`
	Telescope    string          `json:"telescope"`
	Formats      []string        `json:"formats"`
	AveragedPols bool            `json:"averaged_pols"`
	SigmaRescale map[int]float64 `json:"sigma_rescale,omitempty"`
	Antennas     []AntennaEntry  `json:"antennas"`
	Files        []FileEntry     `json:"files"`
}

// AntennaEntry is the ANTENNA subtable as carried in the manifest.
type AntennaEntry struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Station   string     `json:"station"`
	DiameterM float64    `json:"diameter_m"`
	PositionM [3]float64 `json:"position_m"`
}

// FileEntry records one exported data file.
type FileEntry struct {
	Name       string `json:"name"`
	Format     string `json:"format"`
	DataDescID int    `json:"data_desc_id"`
	SpwID      int    `json:"spw_id"`
	Rows       int    `json:"rows"`
	Channels   int    `json:"channels"`
	Pols       int    `json:"pols"`
	HasModel   bool   `json:"has_model,omitempty"`
	Bytes      int64  `json:"bytes"`
	SHA256     string `json:"sha256"`
}

// File returns the entry for a name, or nil.
func (m *Manifest) File(name string) *FileEntry {
	for i := range m.Files {
		if m.Files[i].Name == name {
			return &m.Files[i]
		}
	}
	return nil
}

// WriteManifest serializes m into dir. Call only after every file in
// m.Files exists on disk.
func WriteManifest(dir string, m *Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal manifest: %w", err)
	}
	b = append(b, '\n')
	if err := os.WriteFile(filepath.Join(dir, ManifestName), b, 0o644); err != nil {
		return fmt.Errorf("export: write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads dir/manifest.json.
func LoadManifest(dir string) (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("export: read manifest: %w", err)
	}
	m := &Manifest{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("export: parse manifest: %w", err)
	}
	if m.RunID == "" {
		return nil, fmt.Errorf("export: manifest in %s has no run_id", dir)
	}
	return m, nil
}
