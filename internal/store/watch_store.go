package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"electrumsmart/internal/domain"
	"electrumsmart/internal/electrum"
)

// WatchFilename is the watch-list file inside the home directory.
const WatchFilename = "watch.json"

var (
	ErrExists   = errors.New("store: label already watched")
	ErrNotFound = errors.New("store: label not watched")
	ErrNoLabel  = errors.New("store: empty label")
)

// watchFile is the on-disk layout. Version leaves room for migrations.
type watchFile struct {
	Version int                 `json:"version"`
	Entries []domain.WatchEntry `json:"entries"`
}

const watchFileVersion = 1

// WatchFileStore persists the watch-list to dir/watch.json.
type WatchFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewWatchFileStore returns a WatchFileStore rooted at dir.
func NewWatchFileStore(dir string) *WatchFileStore {
	return &WatchFileStore{dir: dir}
}

// Path returns the watch-list file path.
func (s *WatchFileStore) Path() string { return filepath.Join(s.dir, WatchFilename) }

func (s *WatchFileStore) load() (map[domain.Label]domain.WatchEntry, error) {
	var f watchFile
	if err := readJSON(s.Path(), &f); err != nil {
		return nil, err
	}
	if f.Version > watchFileVersion {
		return nil, fmt.Errorf("store: %s has version %d, newer than %d", WatchFilename, f.Version, watchFileVersion)
	}
	m := make(map[domain.Label]domain.WatchEntry, len(f.Entries))
	for _, e := range f.Entries {
		m[e.Label] = e
	}
	return m, nil
}

func (s *WatchFileStore) save(m map[domain.Label]domain.WatchEntry) error {
	return writeJSON(s.Path(), watchFile{Version: watchFileVersion, Entries: sorted(m)}, 0o600)
}

func sorted(m map[domain.Label]domain.WatchEntry) []domain.WatchEntry {
	out := make([]domain.WatchEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// AddEntry stores a new entry. The label must not be in use.
func (s *WatchFileStore) AddEntry(entry domain.WatchEntry) error {
	if entry.Label == "" {
		return ErrNoLabel
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[entry.Label]; ok {
		return fmt.Errorf("%w: %s", ErrExists, entry.Label)
	}
	m[entry.Label] = entry
	return s.save(m)
}

// RemoveEntry deletes the entry with label.
func (s *WatchFileStore) RemoveEntry(label domain.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[label]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	delete(m, label)
	return s.save(m)
}

// GetEntry retrieves the entry with label.
func (s *WatchFileStore) GetEntry(label domain.Label) (domain.WatchEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return domain.WatchEntry{}, false, err
	}
	e, ok := m[label]
	return e, ok, nil
}

// ListEntries returns every entry sorted by label.
func (s *WatchFileStore) ListEntries() ([]domain.WatchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	return sorted(m), nil
}

// UpdateStatus records status for every entry watching sh. Only entries
// whose status changed are rewritten and returned.
func (s *WatchFileStore) UpdateStatus(
	sh electrum.ScriptHash,
	status *string,
	at time.Time,
) ([]domain.StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	var changes []domain.StatusChange
	for label, e := range m {
		if e.ScriptHash != sh || equalStatus(e.Status, status) {
			continue
		}
		prev := e.Status
		e.Status = cloneStatus(status)
		e.UpdatedAt = at.UTC()
		m[label] = e
		changes = append(changes, domain.StatusChange{Entry: e, Previous: prev})
	}
	if len(changes) == 0 {
		return nil, nil
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Entry.Label < changes[j].Entry.Label })
	if err := s.save(m); err != nil {
		return nil, err
	}
	return changes, nil
}

func equalStatus(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneStatus(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Compile-time assertion that WatchFileStore implements domain.WatchStore.
var _ domain.WatchStore = (*WatchFileStore)(nil)
