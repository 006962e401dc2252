// Package board holds the canonical drawing state for every active
// room. The store is the single writer of room state: all mutation
// goes through Apply, CreateIfAbsent and Evict, and readers only ever
// see copies.
package board

import (
	"log"
	"sync"

	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/models"
)

// Store maps room ids to their latest full drawing snapshot. Rooms are
// independent: the store-level lock only guards the room map itself,
// each room serializes its own writes.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

type room struct {
	mu       sync.Mutex
	elements models.Elements
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*room)}
}

// CreateIfAbsent initializes an empty room state on first join. It is
// a no-op for rooms that already exist.
func (s *Store) CreateIfAbsent(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		s.rooms[roomID] = &room{elements: models.Elements{}}
		log.Printf("Created room state: roomId=%s", roomID)
	}
}

// Snapshot returns a copy of the room's current elements in render
// order. An unknown room is not an error: it reads as an empty board
// and ok reports false.
func (s *Store) Snapshot(roomID string) (models.Elements, bool) {
	s.mu.RLock()
	r, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok {
		return models.Elements{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(models.Elements, len(r.elements))
	copy(out, r.elements)
	return out, true
}

// Apply replaces the room's entire element collection with elements,
// creating the room if needed. This is whole-state replacement: the
// later of two concurrent updates wins outright and no merging is
// attempted. The replacement is atomic, so a concurrent Snapshot sees
// either the old collection or the new one, never an interleaving.
func (s *Store) Apply(roomID string, elements models.Elements) {
	s.mu.Lock()
	r, ok := s.rooms[roomID]
	if !ok {
		r = &room{}
		s.rooms[roomID] = r
	}
	s.mu.Unlock()

	next := make(models.Elements, len(elements))
	copy(next, elements)

	r.mu.Lock()
	r.elements = next
	r.mu.Unlock()
}

// Evict drops a room's state immediately.
func (s *Store) Evict(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; ok {
		delete(s.rooms, roomID)
		log.Printf("Evicted room state: roomId=%s", roomID)
	}
}

// Len reports the number of active rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
