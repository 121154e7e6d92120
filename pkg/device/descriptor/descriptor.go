// Package descriptor reads and writes the per-entity descriptor files the
// device's document store keeps next to each document: `<id>.metadata` and
// `<id>.content`. The JSON field names mirror the on-disk schema exactly and
// must not change.
package descriptor

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Entity types used in the `type` field.
const (
	TypeCollection = "CollectionType"
	TypeDocument   = "DocumentType"
)

// ParentTrash is the sentinel parent value meaning the entity sits in the
// device's trash.
const ParentTrash = "trash"

// Metadata is the `.metadata` descriptor. The device rewrites these files
// when the user moves or deletes a document, so every load must tolerate
// external changes.
type Metadata struct {
	Deleted          bool   `json:"deleted"`
	LastModified     string `json:"lastModified"`
	LastOpenedPage   uint64 `json:"lastOpenedPage"`
	MetadataModified bool   `json:"metadatamodified"`
	Modified         bool   `json:"modified"`
	Parent           string `json:"parent"`
	Pinned           bool   `json:"pinned"`
	Synced           bool   `json:"synced"`
	Type             string `json:"type"`
	Version          uint64 `json:"version"`
	VisibleName      string `json:"visibleName"`
}

// NewFolderMetadata returns folder metadata with name under parent. The root
// of the device tree is the empty parent.
func NewFolderMetadata(name, parent string) Metadata {
	return newMetadata(TypeCollection, name, parent)
}

// NewDocumentMetadata returns document metadata with name under parent.
func NewDocumentMetadata(name, parent string) Metadata {
	return newMetadata(TypeDocument, name, parent)
}

func newMetadata(dtype, name, parent string) Metadata {
	millis := time.Now().UnixMilli()

	return Metadata{
		LastModified: strconv.FormatInt(millis, 10),
		Parent:       parent,
		Type:         dtype,
		Version:      1,
		VisibleName:  name,
	}
}

// LoadMetadata reads a `.metadata` descriptor from path.
func LoadMetadata(path string) (Metadata, error) {
	var m Metadata

	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("reading metadata: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing metadata %s: %w", path, err)
	}
	return m, nil
}

// Write writes the descriptor to path, replacing whatever is there.
func (m Metadata) Write(path string) error {
	return writeJSON(path, m)
}

// WriteNew writes the descriptor to path only if no file exists there yet.
// The returned error satisfies os.IsExist when the file is already present.
func (m Metadata) WriteNew(path string) error {
	return writeJSONNew(path, m)
}

// Content is the `.content` descriptor describing how the device renders the
// payload file.
type Content struct {
	ExtraMetadata json.RawMessage `json:"extraMetadata"`
	FileType      string          `json:"fileType"`
	FontName      string          `json:"fontName"`
	LineHeight    int64           `json:"lineHeight"`
	Margins       uint64          `json:"margins"`
	Orientation   string          `json:"orientation"`
	PageCount     uint64          `json:"pageCount"`
	TextAlignment string          `json:"textAlignment"`
	TextScale     uint64          `json:"textScale"`
	Transform     json.RawMessage `json:"transform"`
}

// identityTransform is the 3x3 identity matrix the device expects on new
// documents.
var identityTransform = json.RawMessage(`{"m11":1,"m12":0,"m13":0,"m21":0,"m22":1,"m23":0,"m31":0,"m32":0,"m33":1}`)

// NewContent returns a content descriptor for a payload of the given file
// type ("epub", "pdf" or "html").
func NewContent(fileType string) Content {
	return Content{
		ExtraMetadata: json.RawMessage(`{}`),
		FileType:      fileType,
		LineHeight:    -1,
		Margins:       100,
		Orientation:   "portrait",
		PageCount:     1,
		TextAlignment: "left",
		TextScale:     1,
		Transform:     identityTransform,
	}
}

// Write writes the descriptor to path, replacing whatever is there.
func (c Content) Write(path string) error {
	return writeJSON(path, c)
}

// WriteNew writes the descriptor to path only if no file exists there yet.
func (c Content) WriteNew(path string) error {
	return writeJSONNew(path, c)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling descriptor: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing descriptor: %w", err)
	}
	return nil
}

func writeJSONNew(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling descriptor: %w", err)
	}

	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()

	if _, err := fh.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing descriptor: %w", err)
	}
	return nil
}
