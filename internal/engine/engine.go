// Package engine is the protocol state machine between inbound update
// frames and outbound broadcasts: validate, replace the room's state,
// relay to everyone else in the room.
package engine

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/board"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/models"
)

// Broadcaster is the slice of the connection registry the engine
// needs. The engine holds no connection references of its own; fan-out
// and membership stay with the registry.
type Broadcaster interface {
	Broadcast(roomID string, payload []byte, excludeID string)
	Count(roomID string) int
}

// Engine applies update frames to the board store and relays the
// result. Per-room processing is serialized so updates reach the store
// and the wire in arrival order; different rooms never contend.
type Engine struct {
	store *board.Store
	peers Broadcaster
	grace time.Duration

	mu    sync.Mutex
	order map[string]*sync.Mutex
}

func New(store *board.Store, peers Broadcaster, grace time.Duration) *Engine {
	return &Engine{
		store: store,
		peers: peers,
		grace: grace,
		order: make(map[string]*sync.Mutex),
	}
}

// HandleUpdate processes one inbound update: the sender's complete
// view of the drawing replaces the room state (last write wins, no
// merging), then the same elements are relayed to every other member
// of the room. Malformed updates are rejected before any state change.
func (e *Engine) HandleUpdate(roomID, senderID string, elements models.Elements) error {
	if elements == nil {
		return fmt.Errorf("update without elements")
	}
	if err := elements.Validate(); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}

	payload, err := json.Marshal(models.Message{
		Type:     models.MessageUpdate,
		Elements: elements,
		From:     senderID,
	})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	// The room's order lock spans apply and broadcast so relayed
	// updates leave in the same order they were applied.
	lock := e.lockRoom(roomID)
	defer lock.Unlock()

	e.store.Apply(roomID, elements)
	e.peers.Broadcast(roomID, payload, senderID)
	return nil
}

// Admit brings a new connection into a room: join registers it with
// the registry, then the current snapshot (empty for a fresh room,
// never an error) is handed to deliver. Both run under the room's
// order lock, so no relay can reach the connection ahead of its
// snapshot — the first frame a joiner sees is always the board as it
// stood when it was registered.
func (e *Engine) Admit(roomID string, join func(), deliver func(payload []byte) bool) error {
	e.store.CreateIfAbsent(roomID)

	lock := e.lockRoom(roomID)
	defer lock.Unlock()

	join()

	elements, _ := e.store.Snapshot(roomID)
	payload, err := json.Marshal(models.Message{
		Type:     models.MessageSnapshot,
		Elements: elements,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	deliver(payload)
	return nil
}

// ConnectionClosed is called after a connection has left its room.
// When the room has no members left, its state is scheduled for
// eviction once the grace period passes without a rejoin.
func (e *Engine) ConnectionClosed(roomID string, remaining int) {
	if remaining > 0 {
		return
	}
	log.Printf("Room idle, eviction in %s: roomId=%s", e.grace, roomID)
	time.AfterFunc(e.grace, func() { e.evictIfIdle(roomID) })
}

// evictIfIdle drops a room whose grace period ended with no members.
// The membership check, the eviction and the retirement of the room's
// order lock all happen under that lock, so an in-flight update can
// neither land on a half-evicted room nor keep serializing on a
// retired lock.
func (e *Engine) evictIfIdle(roomID string) {
	lock := e.lockRoom(roomID)
	defer lock.Unlock()

	if e.peers.Count(roomID) > 0 {
		return
	}
	e.store.Evict(roomID)
	e.dropRoomLock(roomID)
}

// lockRoom acquires the room's order mutex and returns it locked. If
// an eviction retired the mutex between lookup and acquisition, the
// acquisition is retried against the replacement.
func (e *Engine) lockRoom(roomID string) *sync.Mutex {
	for {
		lock := e.roomLock(roomID)
		lock.Lock()
		e.mu.Lock()
		current := e.order[roomID]
		e.mu.Unlock()
		if current == lock {
			return lock
		}
		lock.Unlock()
	}
}

func (e *Engine) roomLock(roomID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.order[roomID]
	if !ok {
		lock = &sync.Mutex{}
		e.order[roomID] = lock
	}
	return lock
}

func (e *Engine) dropRoomLock(roomID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.order, roomID)
}
