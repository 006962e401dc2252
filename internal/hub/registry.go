// Package hub tracks which live connections belong to which room and
// fans messages out to them. Membership is the hub's only concern; it
// never touches drawing state.
package hub

import (
	"log"
	"sync"
)

// Registry maintains per-room member sets. The registry-level lock
// only guards the room map; each room's member set has its own lock so
// unrelated rooms never contend.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*roomMembers
}

type roomMembers struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*roomMembers)}
}

// Join adds a connection to a room's member set. A connection belongs
// to at most one room: joining a new room first leaves the previous
// one.
func (r *Registry) Join(c *Client, roomID string) {
	c.memberMu.Lock()
	defer c.memberMu.Unlock()

	if c.roomID != "" && c.roomID != roomID {
		r.removeLocked(c)
	}

	r.mu.Lock()
	members, ok := r.rooms[roomID]
	if !ok {
		members = &roomMembers{clients: make(map[string]*Client)}
		r.rooms[roomID] = members
		log.Printf("Opened room: roomId=%s", roomID)
	}
	r.mu.Unlock()

	members.mu.Lock()
	members.clients[c.ID] = c
	members.mu.Unlock()

	c.roomID = roomID
}

// Leave removes a connection from whatever room it belongs to and
// reports how many members remain there. Leaving twice is a no-op.
func (r *Registry) Leave(c *Client) (remaining int, wasMember bool) {
	c.memberMu.Lock()
	defer c.memberMu.Unlock()

	if c.roomID == "" {
		return 0, false
	}
	roomID := c.roomID
	r.removeLocked(c)
	return r.Count(roomID), true
}

// removeLocked detaches c from its current room. Caller holds
// c.memberMu.
func (r *Registry) removeLocked(c *Client) {
	r.mu.Lock()
	members, ok := r.rooms[c.roomID]
	r.mu.Unlock()
	if !ok {
		c.roomID = ""
		return
	}

	members.mu.Lock()
	delete(members.clients, c.ID)
	empty := len(members.clients) == 0
	members.mu.Unlock()

	if empty {
		r.mu.Lock()
		// Re-check under the map lock: a concurrent Join may have
		// repopulated the room.
		members.mu.RLock()
		if len(members.clients) == 0 && r.rooms[c.roomID] == members {
			delete(r.rooms, c.roomID)
			log.Printf("Closed empty room: roomId=%s", c.roomID)
		}
		members.mu.RUnlock()
		r.mu.Unlock()
	}

	c.roomID = ""
}

// Count reports the number of live connections in a room.
func (r *Registry) Count(roomID string) int {
	r.mu.RLock()
	members, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	members.mu.RLock()
	defer members.mu.RUnlock()
	return len(members.clients)
}

// Broadcast delivers payload to every connection in the room except
// excludeID. Delivery is best-effort per connection: a member whose
// send buffer is full is dropped from the room without interrupting
// fan-out to the rest.
func (r *Registry) Broadcast(roomID string, payload []byte, excludeID string) {
	r.mu.RLock()
	members, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	var failed []*Client
	members.mu.RLock()
	for id, c := range members.clients {
		if id == excludeID {
			continue
		}
		if !c.Queue(payload) {
			failed = append(failed, c)
		}
	}
	members.mu.RUnlock()

	for _, c := range failed {
		log.Printf("Dropping connection %s: send buffer full", c.ID)
		r.Leave(c)
		c.Close()
	}
}
