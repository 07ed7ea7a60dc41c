package config

import (
	"fmt"
	"os"

	"github.com/adreel/composer/internal/models"
	"gopkg.in/yaml.v3"
)

// MusicCatalog is the built-in background track catalog, loaded once at
// startup from a YAML file shipped alongside the binary.
type MusicCatalog struct {
	presets []models.MusicPreset
	bySlug  map[string]models.MusicPreset
}

type musicCatalogFile struct {
	Presets []models.MusicPreset `yaml:"presets"`
}

// LoadMusicCatalog reads and validates the preset track catalog.
func LoadMusicCatalog(path string) (*MusicCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read music catalog: %w", err)
	}
	return ParseMusicCatalog(data)
}

// ParseMusicCatalog parses YAML catalog contents. Every preset needs a slug
// and a URL; duplicate slugs are rejected.
func ParseMusicCatalog(data []byte) (*MusicCatalog, error) {
	var file musicCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse music catalog: %w", err)
	}

	bySlug := make(map[string]models.MusicPreset, len(file.Presets))
	for _, p := range file.Presets {
		if p.Slug == "" || p.URL == "" {
			return nil, fmt.Errorf("music preset %q is missing slug or url", p.Name)
		}
		if _, dup := bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("duplicate music preset slug %q", p.Slug)
		}
		bySlug[p.Slug] = p
	}

	return &MusicCatalog{presets: file.Presets, bySlug: bySlug}, nil
}

// Presets returns all catalog entries in file order.
func (c *MusicCatalog) Presets() []models.MusicPreset {
	return c.presets
}

// Lookup finds a preset by slug.
func (c *MusicCatalog) Lookup(slug string) (models.MusicPreset, bool) {
	p, ok := c.bySlug[slug]
	return p, ok
}
