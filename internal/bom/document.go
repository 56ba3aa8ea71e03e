package bom

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"archiplane/internal/apperr"
)

// Document is a fully-loaded BOM: its own changes plus every change
// contributed transitively by `includes`, in inclusion order.
type Document struct {
	Version     string
	Description string
	IDFiles     []string
	Changes     []Change
}

// rawDocument mirrors the on-disk BOM JSON shape before changes are
// individually decoded.
type rawDocument struct {
	Version     string            `json:"version" validate:"required"`
	Description string            `json:"description"`
	Includes    []string          `json:"includes"`
	IDFiles     []string          `json:"idFiles"`
	Changes     []json.RawMessage `json:"changes"`
}

// LoadFile reads and fully resolves the BOM at path, expanding `includes`
// depth-first and detecting cycles (spec.md allows includes but does not
// specify cycle handling; archiplane treats a cycle as a UsageError rather
// than hanging, per SPEC_FULL.md §12.2).
func LoadFile(path string) (*Document, error) {
	return load(path, map[string]bool{})
}

func load(path string, visiting map[string]bool) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if visiting[abs] {
		return nil, apperr.NewUsage(fmt.Sprintf("include cycle detected at %s", abs))
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", abs, err)
	}
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", abs, err)
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("%s: missing version", abs)
	}

	doc := &Document{Version: raw.Version, Description: raw.Description, IDFiles: append([]string(nil), raw.IDFiles...)}

	dir := filepath.Dir(abs)
	for _, inc := range raw.Includes {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, inc)
		}
		child, err := load(incPath, visiting)
		if err != nil {
			return nil, err
		}
		doc.IDFiles = append(doc.IDFiles, child.IDFiles...)
		doc.Changes = append(doc.Changes, child.Changes...)
	}

	for _, rc := range raw.Changes {
		c, err := DecodeChange(len(doc.Changes), rc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", abs, err)
		}
		doc.Changes = append(doc.Changes, c)
	}

	return doc, nil
}

// LoadIDFile reads a flat tempId→realId JSON map, the format produced as
// `<bom>.ids.json` alongside a successful apply.
func LoadIDFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading idFile %s: %w", path, err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing idFile %s: %w", path, err)
	}
	return m, nil
}

// ParseDocument decodes a BOM document already in memory (e.g. the body of
// a /model/apply request), without include expansion — HTTP submissions do
// not reference on-disk includes.
func ParseDocument(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing BOM: %w", err)
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("BOM missing version")
	}
	if len(raw.Includes) > 0 {
		return nil, fmt.Errorf("includes are only supported when loading a BOM from a file")
	}
	doc := &Document{Version: raw.Version, Description: raw.Description, IDFiles: raw.IDFiles}
	for _, rc := range raw.Changes {
		c, err := DecodeChange(len(doc.Changes), rc)
		if err != nil {
			return nil, err
		}
		doc.Changes = append(doc.Changes, c)
	}
	return doc, nil
}
