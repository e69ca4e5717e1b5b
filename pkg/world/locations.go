package world

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// LocationPoint is a named, annotated block position the agent wants to find
// again: a chest, a furnace, a base.
type LocationPoint struct {
	Name     string
	Info     string
	Position game.BlockPosition
}

// MarshalJSON writes the on-disk triple form [name, info, {x,y,z}].
func (p LocationPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Name, p.Info, p.Position})
}

// UnmarshalJSON reads the on-disk triple form.
func (p *LocationPoint) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("location entry must have 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &p.Name); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &p.Info); err != nil {
		return err
	}
	return json.Unmarshal(parts[2], &p.Position)
}

// LocationStore keeps the named locations, persisted to a JSON file after
// every mutation. An empty path keeps the store memory-only.
type LocationStore struct {
	mu     sync.Mutex
	path   string
	points []LocationPoint
}

// NewLocationStore loads the store from path. A missing or unreadable file
// starts empty.
func NewLocationStore(path string) *LocationStore {
	s := &LocationStore{path: path}
	if path == "" {
		return s
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read locations file, starting empty", "path", path, "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.points); err != nil {
		slog.Warn("Failed to parse locations file, starting empty", "path", path, "error", err)
		s.points = nil
	}
	return s
}

// Add stores a location. A duplicate name is de-conflicted by suffixing -1,
// -2, and so on; the stored name is returned.
func (s *LocationStore) Add(name, info string, pos game.BlockPosition) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	final := name
	for i := 1; s.indexOf(final) >= 0; i++ {
		final = fmt.Sprintf("%s-%d", name, i)
	}
	s.points = append(s.points, LocationPoint{Name: final, Info: info, Position: pos})
	if err := s.save(); err != nil {
		return final, err
	}
	return final, nil
}

// Get looks a location up by name.
func (s *LocationStore) Get(name string) (LocationPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(name); i >= 0 {
		return s.points[i], true
	}
	return LocationPoint{}, false
}

// Remove deletes a location by name.
func (s *LocationStore) Remove(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(name)
	if i < 0 {
		return false, nil
	}
	s.points = append(s.points[:i], s.points[i+1:]...)
	return true, s.save()
}

// List returns a copy of every stored location in insertion order.
func (s *LocationStore) List() []LocationPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LocationPoint, len(s.points))
	copy(out, s.points)
	return out
}

// indexOf requires the caller to hold the lock.
func (s *LocationStore) indexOf(name string) int {
	for i, p := range s.points {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// save writes the pretty-printed JSON file via a temp file and rename so a
// crash mid-write cannot truncate the previous contents.
func (s *LocationStore) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.points, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode locations: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write locations: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace locations file: %w", err)
	}
	return nil
}
