// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists per-store upload state: for each store, a map from
// absolute local path to the file's content hash, modification time and
// remote state. Each store lives in its own JSON file so work on one store
// never touches another's.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AppName names the per-user configuration directory.
const AppName = "gemini-file-search-tool"

// StoreCache maps absolute file paths to their cached state.
type StoreCache map[string]FileState

// Store reads and writes per-store cache files under one directory.
// Updates to the same store are serialized; each one is a load, merge and
// atomic rewrite of the whole file.
type Store struct {
	dir string
	log *zap.Logger
	now func() time.Time

	mu         sync.Mutex
	locks      map[string]*sync.Mutex
	afterWrite func(storeID string)
}

// NewStore returns a Store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		dir:   dir,
		log:   log,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// DefaultDir returns $XDG_CONFIG_HOME/gemini-file-search-tool/cache, falling
// back to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, "cache"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName, "cache"), nil
}

// OnWrite registers fn to run after every successful rewrite of a store's
// cache file. fn runs while the store's lock is held and must not call back
// into s. Register it before the Store is shared.
func (s *Store) OnWrite(fn func(storeID string)) {
	s.afterWrite = fn
}

// Dir returns the directory holding the cache files.
func (s *Store) Dir() string { return s.dir }

// Key normalizes a file path to the absolute form used as a cache key.
func Key(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func (s *Store) lock(storeID string) func() {
	s.mu.Lock()
	l, ok := s.locks[storeID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[storeID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Store) unitPath(storeID string) string {
	return filepath.Join(s.dir, UnitName(storeID))
}

// Load returns the cache for storeID. A missing or unreadable file yields
// an empty cache; corruption is logged, never returned.
func (s *Store) Load(storeID string) StoreCache {
	unlock := s.lock(storeID)
	defer unlock()
	return s.read(storeID)
}

func (s *Store) read(storeID string) StoreCache {
	path := s.unitPath(storeID)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("cache unreadable, treating as empty", zap.String("store", storeID), zap.Error(err))
		}
		return StoreCache{}
	}

	var entries map[string]entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn("cache corrupt, treating as empty",
			zap.String("store", storeID), zap.String("file", path), zap.Error(err))
		return StoreCache{}
	}

	c := make(StoreCache, len(entries))
	for p, e := range entries {
		c[p] = fromEntry(p, e)
	}
	return c
}

// Save replaces the persisted cache for storeID with c.
func (s *Store) Save(storeID string, c StoreCache) error {
	unlock := s.lock(storeID)
	defer unlock()
	return s.write(storeID, c)
}

// write serializes c to a temp file in the cache directory and renames it
// over the unit, so readers see either the old or the new snapshot.
func (s *Store) write(storeID string, c StoreCache) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	entries := make(map[string]entry, len(c))
	for p, st := range c {
		entries[p] = toEntry(st)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache for %s: %w", storeID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("writing cache for %s: %w", storeID, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cache for %s: %w", storeID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing cache for %s: %w", storeID, err)
	}
	if err := os.Rename(tmpName, s.unitPath(storeID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing cache for %s: %w", storeID, err)
	}
	if s.afterWrite != nil {
		s.afterWrite(storeID)
	}
	return nil
}

// Get returns the cached state of path in storeID.
func (s *Store) Get(storeID, path string) (FileState, bool) {
	st, ok := s.Load(storeID)[Key(path)]
	return st, ok
}

func (s *Store) apply(c StoreCache, path string, updates []Update) FileState {
	key := Key(path)
	st, ok := c[key]
	if !ok {
		st = FileState{Path: key}
	}
	for _, u := range updates {
		u(&st)
	}
	st.LastUpdated = s.now().UTC()
	c[key] = st
	return st
}

// Update merges updates into the state of path and persists the store.
// Setting a remote id drops any pending operation and vice versa; the
// hash and modification time are set independently. The entry's
// LastUpdated is always refreshed.
func (s *Store) Update(storeID, path string, updates ...Update) (FileState, error) {
	unlock := s.lock(storeID)
	defer unlock()

	c := s.read(storeID)
	st := s.apply(c, path, updates)
	if err := s.write(storeID, c); err != nil {
		return FileState{}, err
	}
	return st, nil
}

// UpdateMany applies a batch of per-path updates in one load and one write.
func (s *Store) UpdateMany(storeID string, batch map[string][]Update) error {
	if len(batch) == 0 {
		return nil
	}
	unlock := s.lock(storeID)
	defer unlock()

	c := s.read(storeID)
	for path, updates := range batch {
		s.apply(c, path, updates)
	}
	return s.write(storeID, c)
}

// Remove deletes the entries for paths and reports how many existed. The
// file is rewritten only when something was removed.
func (s *Store) Remove(storeID string, paths ...string) (int, error) {
	unlock := s.lock(storeID)
	defer unlock()

	c := s.read(storeID)
	removed := 0
	for _, p := range paths {
		key := Key(p)
		if _, ok := c[key]; ok {
			delete(c, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.write(storeID, c)
}

// Clear deletes the cache file for storeID. Clearing a store with no cache
// is not an error.
func (s *Store) Clear(storeID string) error {
	unlock := s.lock(storeID)
	defer unlock()

	if err := os.Remove(s.unitPath(storeID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing cache for %s: %w", storeID, err)
	}
	return nil
}

// Pending returns the entries that carry an operation, including ones whose
// operation finished without a document.
func (s *Store) Pending(storeID string) StoreCache {
	out := StoreCache{}
	for p, st := range s.Load(storeID) {
		if _, ok := st.PendingOperation(); ok {
			out[p] = st
		}
	}
	return out
}

// Stores lists the store ids that have a cache file, sorted.
func (s *Store) Stores() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if id, ok := StoreIDFromUnit(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
