package points

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// ManifestName is the per-partition index file written next to the block
// files. Block files themselves carry no header; counts live here and in
// memory only.
const ManifestName = "blocks.yaml"

// Manifest records the outcome of one ingest run so later runs against the
// same source can skip re-partitioning.
type Manifest struct {
	Source      string     `yaml:"source"`
	VertexCount uint64     `yaml:"vertex_count"`
	BBMin       [3]float32 `yaml:"bb_min"`
	BBMax       [3]float32 `yaml:"bb_max"`
	Counts      []int      `yaml:"counts,flow"`
}

// Blocks reconstructs the full block layout described by the manifest.
func (m Manifest) Blocks(dir string) []Block {
	mn := mgl32.Vec3{m.BBMin[0], m.BBMin[1], m.BBMin[2]}
	mx := mgl32.Vec3{m.BBMax[0], m.BBMax[1], m.BBMax[2]}
	return BuildBlocks(mn, mx, m.Counts, dir)
}

// Matches reports whether the manifest describes a partition of source.
func (m Manifest) Matches(source string) bool {
	return m.Source == source && len(m.Counts) == NumBlocks
}

// WriteManifest stores m as dir/blocks.yaml.
func WriteManifest(dir string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads dir/blocks.yaml. A missing or malformed file reports
// ok=false; the caller falls back to a fresh ingest.
func LoadManifest(dir string) (Manifest, bool) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return Manifest{}, false
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, false
	}
	return m, true
}
