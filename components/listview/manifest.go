package listview

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// TableManifestDocument models a YAML manifest describing list view tables.
type TableManifestDocument struct {
	Version string            `json:"version" yaml:"version"`
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Tables  []TableDefinition `json:"tables" yaml:"tables"`
	Source  string            `json:"-" yaml:"-"`
}

// LoadManifestFile reads a manifest from disk and registers its tables.
func (r *Registry) LoadManifestFile(path string) (*TableManifestDocument, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifestDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifestDocument registers tables from a decoded manifest.
func (r *Registry) LoadManifestDocument(doc *TableManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("listview: manifest document is nil")
	}
	for _, table := range doc.Tables {
		if err := r.RegisterTable(table); err != nil {
			return fmt.Errorf("listview: register table %s from %s: %w", table.Name, doc.Source, err)
		}
	}
	return nil
}

// ReadManifest loads a manifest file from disk without registering it.
func ReadManifest(path string) (*TableManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("listview: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("listview: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*TableManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc TableManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("listview: manifest is empty")
		}
		return nil, fmt.Errorf("listview: parse manifest: %w", err)
	}
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// EncodeManifest writes a manifest as YAML.
func EncodeManifest(w io.Writer, doc *TableManifestDocument) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("listview: write manifest: %w", err)
	}
	return encoder.Close()
}

// Validate ensures the manifest satisfies required fields.
func (doc *TableManifestDocument) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("listview: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Tables))
	for idx, table := range doc.Tables {
		if table.Name == "" {
			return fmt.Errorf("listview: manifest table at index %d is missing name", idx)
		}
		if _, exists := seen[table.Name]; exists {
			return fmt.Errorf("listview: manifest duplicates table %s", table.Name)
		}
		seen[table.Name] = struct{}{}
		if err := table.Validate(); err != nil {
			return err
		}
	}
	return nil
}
