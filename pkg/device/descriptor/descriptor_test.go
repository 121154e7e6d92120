package descriptor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.metadata")

	m := NewDocumentMetadata("Some Article", "parent-folder-id")
	if err := m.Write(path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata() error = %v", err)
	}

	if got.VisibleName != "Some Article" {
		t.Errorf("VisibleName = %q, want %q", got.VisibleName, "Some Article")
	}
	if got.Parent != "parent-folder-id" {
		t.Errorf("Parent = %q, want %q", got.Parent, "parent-folder-id")
	}
	if got.Type != TypeDocument {
		t.Errorf("Type = %q, want %q", got.Type, TypeDocument)
	}
	if got.Deleted {
		t.Error("new metadata must not be marked deleted")
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
}

func TestMetadataFieldNames(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewFolderMetadata("Pocket", ""))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	// The device is picky about the exact field names.
	for _, key := range []string{
		"deleted", "lastModified", "lastOpenedPage", "metadatamodified",
		"modified", "parent", "pinned", "synced", "type", "version", "visibleName",
	} {
		if _, ok := raw[key]; !ok {
			t.Errorf("marshaled metadata missing field %q", key)
		}
	}
	if len(raw) != 11 {
		t.Errorf("marshaled metadata has %d fields, want 11", len(raw))
	}
	if raw["type"] != TypeCollection {
		t.Errorf("type = %v, want %q", raw["type"], TypeCollection)
	}
}

func TestMetadataLastModifiedIsEpochMillisString(t *testing.T) {
	t.Parallel()

	m := NewDocumentMetadata("x", "p")
	millis, err := strconv.ParseInt(m.LastModified, 10, 64)
	if err != nil {
		t.Fatalf("LastModified %q is not an integer string: %v", m.LastModified, err)
	}

	now := time.Now().UnixMilli()
	if millis > now || millis < now-int64(time.Minute/time.Millisecond) {
		t.Errorf("LastModified %d is not close to now (%d)", millis, now)
	}
}

func TestContentFieldNames(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewContent("epub"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, key := range []string{
		"extraMetadata", "fileType", "fontName", "lineHeight", "margins",
		"orientation", "pageCount", "textAlignment", "textScale", "transform",
	} {
		if _, ok := raw[key]; !ok {
			t.Errorf("marshaled content missing field %q", key)
		}
	}
	if raw["fileType"] != "epub" {
		t.Errorf("fileType = %v, want epub", raw["fileType"])
	}
	if raw["margins"] != float64(100) {
		t.Errorf("margins = %v, want 100", raw["margins"])
	}

	transform, ok := raw["transform"].(map[string]any)
	if !ok {
		t.Fatalf("transform is %T, want object", raw["transform"])
	}
	if transform["m11"] != float64(1) || transform["m12"] != float64(0) {
		t.Error("transform is not the identity matrix")
	}
}

func TestWriteNewDoesNotClobber(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "folder.metadata")

	first := NewFolderMetadata("Pocket", "")
	if err := first.WriteNew(path); err != nil {
		t.Fatalf("first WriteNew() error = %v", err)
	}

	second := NewFolderMetadata("Other", "")
	err := second.WriteNew(path)
	if err == nil {
		t.Fatal("second WriteNew() error = nil, want already-exists error")
	}
	if !os.IsExist(err) {
		t.Fatalf("second WriteNew() error = %v, want os.IsExist", err)
	}

	got, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata() error = %v", err)
	}
	if got.VisibleName != "Pocket" {
		t.Errorf("VisibleName = %q, original file was clobbered", got.VisibleName)
	}
}

func TestLoadMetadataMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadMetadata(filepath.Join(t.TempDir(), "nope.metadata"))
	if err == nil {
		t.Fatal("LoadMetadata() error = nil, want error for missing file")
	}
}
