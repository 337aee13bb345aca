package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Collections persisted per identity. Each (collection, identity) pair is one
// JSON document; there is no cross-collection transaction guarantee.
const (
	CollectionHistory   = "history"
	CollectionNotes     = "notes"
	CollectionReminders = "reminders"
	CollectionTimetable = "timetable"
	CollectionSettings  = "settings"
	CollectionTimer     = "timer"
)

// GuestIdentity is the namespace used before a user signs in.
const GuestIdentity = "guest"

// Store is a file-backed JSON document store, one document per
// (collection, identity) pair. Loads tolerate missing and corrupt documents
// by leaving the caller's default value in place; writes are atomic.
type Store struct {
	dir string
	log *slog.Logger
	mu  sync.Mutex
}

func New(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Load reads the document for (collection, identity) into out. A missing or
// unparseable document is not an error: out keeps whatever default the caller
// initialized it with, and corruption is only logged.
func (s *Store) Load(collection, identity string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(collection, identity)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s/%s: %w", collection, identity, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.log.Warn("corrupt document replaced with defaults",
			"collection", collection, "identity", identity, "err", err)
		return nil
	}
	return nil
}

// Save writes the document for (collection, identity) atomically.
func (s *Store) Save(collection, identity string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(collection, identity)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, identity, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, identity, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit %s/%s: %w", collection, identity, err)
	}
	return nil
}

// Identities lists every identity that has a document in the collection.
func (s *Store) Identities(collection string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func (s *Store) path(collection, identity string) (string, error) {
	identity = sanitize(identity)
	if identity == "" {
		identity = GuestIdentity
	}
	dir := filepath.Join(s.dir, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create collection dir: %w", err)
	}
	return filepath.Join(dir, identity+".json"), nil
}

// sanitize keeps identity names safe as file names. Identity ids come from
// the external provider and are opaque; anything unexpected is stripped.
func sanitize(identity string) string {
	var b strings.Builder
	for _, r := range identity {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
