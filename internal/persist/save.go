// Package persist implements the Save half of Save / Export / Router
// (C9): serializing the whole model to a caller-specified path, or the
// path it was last saved to. Grounded on bom.Document's JSON shape
// (internal/bom) for how archiplane already represents the graph on the
// wire — the save file is the same kind of document, just a full dump
// instead of a change list.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"archiplane/internal/model"
)

// Document is the on-disk representation of a saved model: every
// element, relationship, folder, and view, plus their visuals.
type Document struct {
	Version       int                    `json:"version"`
	Elements      []*model.Element       `json:"elements"`
	Relationships []*model.Relationship  `json:"relationships"`
	Folders       []*model.Folder        `json:"folders"`
	Views         []savedView            `json:"views"`
}

type savedView struct {
	ID          model.ViewID                              `json:"id"`
	Name        string                                    `json:"name"`
	Viewpoint   string                                    `json:"viewpoint"`
	FolderID    model.FolderID                            `json:"folderId"`
	RouterStyle model.RouterStyle                         `json:"routerStyle"`
	Objects     map[model.VisualID]*model.VisualObject     `json:"objects"`
	Connections map[model.VisualID]*model.VisualConnection `json:"connections"`
	Notes       map[model.VisualID]*model.Note             `json:"notes"`
	Groups      map[model.VisualID]*model.Group            `json:"groups"`
}

const documentVersion = 1

// ToDocument renders m's whole graph into the on-disk Document shape.
func ToDocument(m *model.Model) *Document {
	doc := &Document{
		Version:       documentVersion,
		Elements:      m.AllElements(),
		Relationships: m.AllRelationships(),
		Folders:       m.ListFolders(),
	}
	for _, v := range m.ListViews() {
		doc.Views = append(doc.Views, savedView{
			ID: v.ID, Name: v.Name, Viewpoint: v.Viewpoint, FolderID: v.FolderID,
			RouterStyle: v.RouterStyle, Objects: v.Objects, Connections: v.Connections,
			Notes: v.Notes, Groups: v.Groups,
		})
	}
	return doc
}

// Save writes m's full state to path, creating any missing parent
// directories, and records path as the model's save path so a subsequent
// Save with an empty path reuses it (spec.md §4.9: "the previously saved
// path"). The write is atomic: the document is written to a sibling
// temp file and renamed into place, so a crash mid-write never leaves a
// corrupt save file at path.
func Save(m *model.Model, path string) error {
	if path == "" {
		path = m.SavePath()
	}
	if path == "" {
		return fmt.Errorf("no save path given and the model has never been saved before")
	}

	data, err := json.MarshalIndent(ToDocument(m), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create save directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".archiplane-save-*")
	if err != nil {
		return fmt.Errorf("create temp save file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp save file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp save file into place: %w", err)
	}

	m.SetSavePath(path)
	return nil
}

// Load reads a previously saved Document from path. It does not populate
// a model.Model; Restore does that.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read save file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse save file: %w", err)
	}
	return &doc, nil
}

// Restore replays a loaded Document's entities back into an empty model,
// in dependency order (folders before elements/relationships/views,
// since FolderID references must resolve), using the Insert* primitives
// undo replay already relies on.
func Restore(m *model.Model, doc *Document) {
	for _, f := range doc.Folders {
		m.InsertFolder(f)
	}
	for _, e := range doc.Elements {
		m.InsertElement(e)
	}
	for _, r := range doc.Relationships {
		m.InsertRelationship(r)
	}
	for _, sv := range doc.Views {
		v := &model.View{
			ID: sv.ID, Name: sv.Name, Viewpoint: sv.Viewpoint, FolderID: sv.FolderID,
			RouterStyle: sv.RouterStyle, Objects: sv.Objects, Connections: sv.Connections,
			Notes: sv.Notes, Groups: sv.Groups,
		}
		m.InsertView(v)
	}
}
