package autorag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ingestible = map[string]bool{".md": true, ".html": true, ".ipynb": true}

// Entry is one manifest document that exists under the content root.
type Entry struct {
	SourcePath   string
	ManifestPath string
	Release      interface{}
	Title        interface{}
}

type manifest struct {
	Content []struct {
		Path    string      `json:"path"`
		Release interface{} `json:"release"`
		Title   interface{} `json:"title"`
	} `json:"content"`
}

// LoadManifest returns the markdown, HTML and notebook entries of a manifest
// whose files exist under contentRoot, in manifest order.
func LoadManifest(manifestPath, contentRoot string) ([]Entry, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	var entries []Entry
	for _, c := range m.Content {
		if c.Path == "" {
			continue
		}
		if !ingestible[strings.ToLower(filepath.Ext(c.Path))] {
			continue
		}
		source := filepath.Join(contentRoot, c.Path)
		if _, err := os.Stat(source); err != nil {
			continue
		}
		entries = append(entries, Entry{
			SourcePath:   source,
			ManifestPath: c.Path,
			Release:      c.Release,
			Title:        c.Title,
		})
	}
	return entries, nil
}
