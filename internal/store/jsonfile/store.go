// Package jsonfile provides a room store backed by one JSON document per room.
// Readers and writers in separate processes coordinate through flock on a
// sidecar lock file; subscribers follow the document with fsnotify and a
// polling fallback.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
)

const (
	defaultMaxMessages  = 1000
	defaultPollInterval = 2 * time.Second
	defaultDebounce     = 50 * time.Millisecond
)

// RoomFile is the root JSON structure stored on disk. Messages are kept as
// raw JSON so records written by other tools survive untouched.
type RoomFile struct {
	Name      string            `json:"name"`
	Messages  []json.RawMessage `json:"messages"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store implements chat.Transport and chat.Importer for a single room.
type Store struct {
	dir          string
	room         string
	maxMessages  int
	pollInterval time.Duration
	debounce     time.Duration
	log          zerolog.Logger
	mu           sync.RWMutex
}

// New creates a store for room inside dir. The room document is
// <dir>/<room>.json.
func New(dir, room string) *Store {
	return &Store{
		dir:          dir,
		room:         room,
		maxMessages:  defaultMaxMessages,
		pollInterval: defaultPollInterval,
		debounce:     defaultDebounce,
		log:          zerolog.Nop(),
	}
}

// WithMaxMessages sets the maximum number of records retained by Import.
func (s *Store) WithMaxMessages(max int) *Store {
	s.maxMessages = max
	return s
}

// WithPollInterval sets how often subscribers stat the document in case a
// file system event was missed.
func (s *Store) WithPollInterval(d time.Duration) *Store {
	if d > 0 {
		s.pollInterval = d
	}
	return s
}

// WithLogger sets the logger used by subscriptions.
func (s *Store) WithLogger(l zerolog.Logger) *Store {
	s.log = l
	return s
}

// Path returns the room document path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.room+".json")
}

func (s *Store) lockPath() string {
	return s.Path() + ".lock"
}

// Load returns every record of the room in file order. A missing document is
// an empty room.
func (s *Store) Load(ctx context.Context) ([]chat.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var file RoomFile
	err := s.withSharedLock(func() error {
		var err error
		file, err = s.loadFile()
		return err
	})
	if err != nil {
		return nil, err
	}

	return chat.DecodeRawMessages(file.Messages), nil
}

// Import upserts records by id, keeping the maxMessages records with the
// latest createdAt. Records are written verbatim.
func (s *Store) Import(ctx context.Context, records []json.RawMessage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withExclusiveLock(func() error {
		file, err := s.loadFile()
		if err != nil {
			return err
		}

		index := make(map[string]int, len(file.Messages))
		for i, rec := range file.Messages {
			index[chat.RecordKey(rec)] = i
		}

		for _, rec := range records {
			key := chat.RecordKey(rec)
			if i, ok := index[key]; ok {
				file.Messages[i] = rec
				continue
			}
			index[key] = len(file.Messages)
			file.Messages = append(file.Messages, rec)
		}

		file.Messages = retain(file.Messages, s.maxMessages)

		file.Name = s.room
		file.UpdatedAt = time.Now()
		return s.saveFile(file)
	})
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

// retain keeps the limit records with the latest creation time and leaves
// their file order alone. Records without a usable creation time go first;
// among equal times the later position in the file wins.
func retain(messages []json.RawMessage, limit int) []json.RawMessage {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}

	type entry struct {
		pos int
		at  time.Time
		ok  bool
	}

	entries := make([]entry, len(messages))
	for i, data := range messages {
		e := entry{pos: i}
		if rec := chat.DecodeRawMessage(data); rec.CreatedAt != nil && !rec.CreatedAt.IsZero() {
			e.at, e.ok = rec.CreatedAt.Time, true
		}
		entries[i] = e
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.ok && !b.ok:
			return 1
		case !a.ok && b.ok:
			return -1
		}
		return a.at.Compare(b.at)
	})

	keep := make([]bool, len(messages))
	for _, e := range entries[len(entries)-limit:] {
		keep[e.pos] = true
	}

	kept := make([]json.RawMessage, 0, limit)
	for i, data := range messages {
		if keep[i] {
			kept = append(kept, data)
		}
	}
	return kept
}

// loadFile reads the room document from disk.
// Returns an empty RoomFile if the file doesn't exist.
func (s *Store) loadFile() (RoomFile, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return RoomFile{Name: s.room}, nil
		}
		return RoomFile{}, fmt.Errorf("read room file: %w", err)
	}

	if len(data) == 0 {
		return RoomFile{Name: s.room}, nil
	}

	var file RoomFile
	if err := json.Unmarshal(data, &file); err != nil {
		return RoomFile{}, fmt.Errorf("parse room file: %w", err)
	}

	return file, nil
}

// saveFile writes the room document to disk atomically.
func (s *Store) saveFile(file RoomFile) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create rooms directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}

	path := s.Path()
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
