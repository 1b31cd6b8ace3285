package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/prodige/prodige/internal/utils"
	log "github.com/sirupsen/logrus"
)

const eventsFileName = "events.json"

// FileStore keeps the full event set in memory and mirrors it to a single
// pretty-printed JSON array on disk. Every mutation rewrites the whole file
// before returning. A process-wide mutex serializes the read-modify-write
// cycle, so concurrent creates cannot lose updates. Sharing the file between
// multiple processes is not supported.
type FileStore struct {
	path  string
	clock utils.Clock

	mu     sync.Mutex
	events []Event
}

// NewFileStore loads dir/events.json into memory. A missing file is created
// empty. A file that fails to parse is preserved under a timestamped backup
// name and the store starts from an empty collection instead of failing.
func NewFileStore(dir string, clock utils.Clock) (*FileStore, error) {
	s := &FileStore{
		path:  filepath.Join(dir, eventsFileName),
		clock: clock,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.events = []Event{}
		return s.persist()
	}
	if err != nil {
		return fmt.Errorf("could not read %s: %w", s.path, err)
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		backup := fmt.Sprintf("%s.corrupt.%s", s.path, s.clock.Now().UTC().Format("20060102T150405"))
		log.Warnf("events file %s is corrupt (%v), moving it to %s and starting empty", s.path, err, backup)
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return fmt.Errorf("could not quarantine corrupt events file: %w", renameErr)
		}
		s.events = []Event{}
		return s.persist()
	}

	s.events = events
	return nil
}

// persist rewrites the whole collection. Callers must hold s.mu (or be the
// constructor, before the store is shared).
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.events, "", "  ")
	if err != nil {
		return fmt.Errorf("could not serialize events: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write events file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("could not replace events file: %w", err)
	}
	return nil
}

func (s *FileStore) Create(ctx context.Context, e Event) (Event, error) {
	prepared, err := prepareCreate(e, s.clock.Now())
	if err != nil {
		return Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, prepared)
	if err := s.persist(); err != nil {
		s.events = s.events[:len(s.events)-1]
		return Event{}, err
	}
	return prepared, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.events {
		if e.ID == id {
			return e, nil
		}
	}
	return Event{}, ErrNotFound
}

func (s *FileStore) Find(ctx context.Context, filter Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if filter.matches(e) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	return result, nil
}

func (s *FileStore) Update(ctx context.Context, id string, patch Patch) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, e := range s.events {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Event{}, ErrNotFound
	}

	merged, err := prepareUpdate(s.events[idx], patch, s.clock.Now())
	if err != nil {
		return Event{}, err
	}

	previous := s.events[idx]
	s.events[idx] = merged
	if err := s.persist(); err != nil {
		s.events[idx] = previous
		return Event{}, err
	}
	return merged, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.events {
		if e.ID == id {
			removed := s.events[i]
			s.events = append(s.events[:i], s.events[i+1:]...)
			if err := s.persist(); err != nil {
				s.events = append(s.events, removed)
				return err
			}
			return nil
		}
	}
	return ErrNotFound
}

var _ Store = (*FileStore)(nil)
