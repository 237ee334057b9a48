package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest is a YAML description of a book. Relative file paths are
// resolved against the directory of the manifest.
type Manifest struct {
	Title        string   `yaml:"title"`
	Authors      []string `yaml:"authors"`
	Language     string   `yaml:"lang"`
	Identifier   string   `yaml:"identifier"`
	Descriptions []string `yaml:"descriptions"`
	Subjects     []string `yaml:"subjects"`
	Date         string   `yaml:"date"`
	Publisher    string   `yaml:"publisher"`
	License      string   `yaml:"license"`
	TOCName      string   `yaml:"toc_name"`

	Version   string `yaml:"epub_version"`
	Direction string `yaml:"direction"`
	InlineTOC *bool  `yaml:"inline_toc"`

	Stylesheet string            `yaml:"stylesheet"`
	Cover      string            `yaml:"cover"`
	Chapters   []ManifestChapter `yaml:"chapters"`
	Resources  []string          `yaml:"resources"`
}

// ManifestChapter is one entry of the reading order.
type ManifestChapter struct {
	File   string `yaml:"file"`
	Title  string `yaml:"title"`
	Level  int    `yaml:"level"`
	Type   string `yaml:"type"`
	Linear *bool  `yaml:"linear"`
}

var ErrManifestNoChapters = errors.New("manifest lists no chapters")

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes a manifest and resolves its paths against baseDir.
func ParseManifest(data []byte, baseDir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Chapters) == 0 {
		return nil, ErrManifestNoChapters
	}
	for i := range m.Chapters {
		if m.Chapters[i].File == "" {
			return nil, fmt.Errorf("chapter %d has no file", i+1)
		}
		m.Chapters[i].File = resolve(baseDir, m.Chapters[i].File)
	}
	for i := range m.Resources {
		m.Resources[i] = resolve(baseDir, m.Resources[i])
	}
	if m.Stylesheet != "" {
		m.Stylesheet = resolve(baseDir, m.Stylesheet)
	}
	if m.Cover != "" {
		m.Cover = resolve(baseDir, m.Cover)
	}
	return &m, nil
}

func resolve(baseDir, p string) string {
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
