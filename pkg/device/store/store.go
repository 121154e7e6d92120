// Package store tracks which remote reading-list items exist on the device
// and in what state. The store's memory is reconciled against the actual
// descriptor files on disk at load time, because the user moves and deletes
// documents between runs.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"repocket/pkg/device/descriptor"
	"repocket/pkg/repocket/ident"
	"repocket/pkg/repocket/logging"
)

// Store owns four disjoint sets of item identifiers. An identifier lives in
// at most one set at a time and advances new -> current -> read -> archived.
//
// Only `current` and `archived` survive a restart; `new` and `read` are
// rebuilt every run. The store is written by a single cycle at a time; it is
// not safe for concurrent mutation.
type Store struct {
	root string // device document-store directory
	path string // snapshot file

	folderName  string
	archiveName string

	folder  ident.ID
	archive ident.ID

	current  map[ident.ID]uint64
	archived map[ident.ID]uint64
	newItems map[ident.ID]uint64
	read     map[ident.ID]uint64

	tsLastQuery uint64

	log *logging.Logger
}

// snapshot is the persisted form. `new`/`read` are process-local and never
// written.
type snapshot struct {
	Folder        ident.ID            `json:"folder"`
	Archive       ident.ID            `json:"archive"`
	CurrentItems  map[ident.ID]uint64 `json:"current_items"`
	ArchivedItems map[ident.ID]uint64 `json:"archived_items"`
	TsLastQuery   uint64              `json:"ts_last_query"`
}

// Options configure a store.
type Options struct {
	// Root is the device document-store directory.
	Root string
	// StatePath is the snapshot file.
	StatePath string
	// FolderName and ArchiveFolderName are the visible names used when the
	// backing folders have to be created.
	FolderName        string
	ArchiveFolderName string
}

// Load reads the persisted snapshot, or constructs a fresh store when none
// exists. A fresh store creates the reading folder and its archive sub-folder
// on the device; "already exists" is tolerated, anything else is fatal.
// A loaded store is reconciled against the on-disk descriptors before use.
func Load(opts Options) (*Store, error) {
	s := &Store{
		root:        opts.Root,
		path:        opts.StatePath,
		folderName:  opts.FolderName,
		archiveName: opts.ArchiveFolderName,
		current:     make(map[ident.ID]uint64),
		archived:    make(map[ident.ID]uint64),
		newItems:    make(map[ident.ID]uint64),
		read:        make(map[ident.ID]uint64),
		log:         logging.Get("store"),
	}

	data, err := os.ReadFile(opts.StatePath)
	switch {
	case os.IsNotExist(err):
		s.folder = ident.New()
		s.archive = ident.New()
		if err := s.EnsureFolders(); err != nil {
			return nil, fmt.Errorf("creating device folders: %w", err)
		}
		s.log.Info("no snapshot found, starting fresh", "folder", s.folder)
		return s, nil

	case err != nil:
		return nil, fmt.Errorf("reading snapshot %s: %w", opts.StatePath, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", opts.StatePath, err)
	}
	if snap.Folder.IsZero() {
		return nil, fmt.Errorf("snapshot %s has no folder identifier", opts.StatePath)
	}

	s.folder = snap.Folder
	s.archive = snap.Archive
	s.tsLastQuery = snap.TsLastQuery
	if snap.CurrentItems != nil {
		s.current = snap.CurrentItems
	}
	if snap.ArchivedItems != nil {
		s.archived = snap.ArchivedItems
	}

	// Snapshots written before the archive folder existed have no archive id.
	if s.archive.IsZero() {
		s.archive = ident.New()
		if err := s.EnsureFolders(); err != nil {
			return nil, fmt.Errorf("creating archive folder: %w", err)
		}
	}

	s.Reconcile()

	return s, nil
}

// EnsureFolders creates the reading folder and archive sub-folder descriptors
// on the device. Folders that already exist are left alone.
func (s *Store) EnsureFolders() error {
	if err := s.ensureFolder(s.folder, s.folderName, ""); err != nil {
		return err
	}
	return s.ensureFolder(s.archive, s.archiveName, s.folder.String())
}

func (s *Store) ensureFolder(id ident.ID, name, parent string) error {
	// Folders carry an empty content descriptor.
	if err := writeFileNew(s.ContentPath(id), []byte("{}\n")); err != nil && !os.IsExist(err) {
		return fmt.Errorf("creating folder content %s: %w", name, err)
	}

	meta := descriptor.NewFolderMetadata(name, parent)
	if err := meta.WriteNew(s.MetadataPath(id)); err != nil {
		if os.IsExist(err) {
			s.log.Debug("folder descriptor already exists", "name", name, "id", id)
			return nil
		}
		return fmt.Errorf("creating folder metadata %s: %w", name, err)
	}
	return nil
}

// Reconcile re-derives the in-memory sets from the descriptors on disk.
//
// An item whose descriptor now points at the archive folder was read by the
// user and moves to the read set, awaiting the remote archive call. An item
// moved anywhere else (including the trash) stays untouched in current: the
// user deliberately broke synchronization for it and we leave it alone.
// Afterwards the previous run's new items join the current set.
//
// Running Reconcile twice without filesystem changes in between is a no-op
// the second time.
func (s *Store) Reconcile() {
	for id, remoteID := range s.current {
		meta, err := descriptor.LoadMetadata(s.MetadataPath(id))
		if err != nil {
			s.log.Warn("skipping unreadable descriptor", "id", id, "error", err)
			continue
		}

		if meta.Parent != s.archive.String() {
			continue
		}

		delete(s.current, id)
		s.read[id] = remoteID
		s.log.Info("item moved to archive folder, marking read", "id", id, "remote_id", remoteID)
	}

	for id, remoteID := range s.newItems {
		delete(s.newItems, id)
		s.current[id] = remoteID
		s.log.Debug("promoting new item to current", "id", id)
	}
}

// RecordNew registers a just-synthesized document. It joins the current set
// on the next reconciliation.
func (s *Store) RecordNew(id ident.ID, remoteID uint64) {
	s.newItems[id] = remoteID
}

// AddDocument writes the payload and its two descriptor files into the
// reading folder and records the item as new.
func (s *Store) AddDocument(id ident.ID, remoteID uint64, title, fileType string, payload []byte) error {
	if err := os.WriteFile(s.PayloadPath(id, fileType), payload, 0o644); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}

	if err := descriptor.NewContent(fileType).Write(s.ContentPath(id)); err != nil {
		return fmt.Errorf("writing content descriptor: %w", err)
	}

	meta := descriptor.NewDocumentMetadata(title, s.folder.String())
	if err := meta.Write(s.MetadataPath(id)); err != nil {
		return fmt.Errorf("writing metadata descriptor: %w", err)
	}

	s.RecordNew(id, remoteID)
	return nil
}

// ReadyForRemoteArchive returns the remote ids of every item in the read set,
// sorted. It does not mutate the store; call ClearRead once the remote
// archive call has succeeded.
func (s *Store) ReadyForRemoteArchive() []uint64 {
	ids := make([]uint64, 0, len(s.read))
	for _, remoteID := range s.read {
		ids = append(ids, remoteID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ClearRead moves every read item into the trash on the device and into the
// archived set in memory. Only call this after the remote archive call has
// been confirmed; if that call fails the read set must stay as-is so the next
// cycle retries.
func (s *Store) ClearRead() {
	for id, remoteID := range s.read {
		meta, err := descriptor.LoadMetadata(s.MetadataPath(id))
		if err != nil {
			s.log.Warn("cannot load descriptor for read item, leaving for retry", "id", id, "error", err)
			continue
		}

		meta.Parent = descriptor.ParentTrash
		if err := meta.Write(s.MetadataPath(id)); err != nil {
			s.log.Warn("cannot move read item to trash, leaving for retry", "id", id, "error", err)
			continue
		}

		delete(s.read, id)
		s.archived[id] = remoteID
		s.log.Info("archived item", "id", id, "remote_id", remoteID)
	}
}

// Watermark returns the remote-query cursor.
func (s *Store) Watermark() uint64 {
	return s.tsLastQuery
}

// SetWatermark advances the remote-query cursor. Call only after a successful
// remote fetch and parse.
func (s *Store) SetWatermark(ts uint64) {
	s.tsLastQuery = ts
}

// Persist writes the snapshot. The write goes through a temp file and rename
// so a crash leaves the last good snapshot in place.
func (s *Store) Persist() error {
	snap := snapshot{
		Folder:        s.folder,
		Archive:       s.archive,
		CurrentItems:  s.current,
		ArchivedItems: s.archived,
		TsLastQuery:   s.tsLastQuery,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// FolderID returns the reading folder's identifier.
func (s *Store) FolderID() ident.ID { return s.folder }

// ArchiveID returns the archive sub-folder's identifier.
func (s *Store) ArchiveID() ident.ID { return s.archive }

// MetadataPath returns the `.metadata` descriptor path for id.
func (s *Store) MetadataPath(id ident.ID) string {
	return filepath.Join(s.root, id.String()+".metadata")
}

// ContentPath returns the `.content` descriptor path for id.
func (s *Store) ContentPath(id ident.ID) string {
	return filepath.Join(s.root, id.String()+".content")
}

// PayloadPath returns the document payload path for id.
func (s *Store) PayloadPath(id ident.ID, fileType string) string {
	return filepath.Join(s.root, id.String()+"."+fileType)
}

// CurrentItems returns a copy of the current set.
func (s *Store) CurrentItems() map[ident.ID]uint64 { return copyMap(s.current) }

// ArchivedItems returns a copy of the archived set.
func (s *Store) ArchivedItems() map[ident.ID]uint64 { return copyMap(s.archived) }

// NewItems returns a copy of this run's new set.
func (s *Store) NewItems() map[ident.ID]uint64 { return copyMap(s.newItems) }

// ReadItems returns a copy of the read set.
func (s *Store) ReadItems() map[ident.ID]uint64 { return copyMap(s.read) }

func writeFileNew(path string, data []byte) error {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()

	_, err = fh.Write(data)
	return err
}

func copyMap(m map[ident.ID]uint64) map[ident.ID]uint64 {
	out := make(map[ident.ID]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
