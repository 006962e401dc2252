package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/engine"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/hub"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Admission consults the external room metadata service before a
// connection enters a room. It may resolve a share code to the real
// room id and may refuse a full room; an unknown room is admitted and
// created lazily.
type Admission interface {
	Admit(roomIdentifier string) (roomID string, err error)
}

// Presence mirrors membership changes into an external directory. Both
// Admission and Presence are optional collaborators; the realtime core
// works without them.
type Presence interface {
	Track(roomID, connID string)
	Untrack(roomID, connID string)
}

// BoardHandler is the transport gateway: it admits connections to
// rooms, wires them into the registry, pushes the join snapshot and
// dispatches inbound frames to the sync engine.
type BoardHandler struct {
	engine   *engine.Engine
	registry *hub.Registry
	admit    Admission
	presence Presence

	maxMessageBytes int64
	upgrader        websocket.Upgrader
}

func NewBoardHandler(eng *engine.Engine, reg *hub.Registry, admit Admission, presence Presence, maxMessageBytes int64) *BoardHandler {
	return &BoardHandler{
		engine:          eng,
		registry:        reg,
		admit:           admit,
		presence:        presence,
		maxMessageBytes: maxMessageBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking is handled by middleware
				return true
			},
		},
	}
}

// HandleBoard serves the board channel for one connection.
func (h *BoardHandler) HandleBoard(c *gin.Context) {
	roomIdentifier := c.Param("roomId")
	if roomIdentifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}
	displayName := c.Query("displayName")

	roomID := roomIdentifier
	if h.admit != nil {
		resolved, err := h.admit.Admit(roomIdentifier)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		roomID = resolved
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := hub.NewClient(conn, displayName)

	// Registration and the snapshot push run under the room's order
	// lock, so a late joiner always sees the current drawing before
	// any peer update.
	if err := h.engine.Admit(roomID, func() {
		h.registry.Join(client, roomID)
	}, client.Queue); err != nil {
		log.Printf("Failed to admit connection %s to room %s: %v", client.ID, roomID, err)
	}
	if h.presence != nil {
		h.presence.Track(roomID, client.ID)
	}

	log.Printf("Connection %s joined room %s (participant %q)", client.ID, roomID, displayName)

	go client.WritePump()
	go h.readLoop(client, roomID)
}

func (h *BoardHandler) readLoop(client *hub.Client, roomID string) {
	defer func() {
		// The registry may have dropped this client already (failed
		// delivery); Leave is idempotent and the engine's eviction
		// check tolerates being told about an occupied room.
		h.registry.Leave(client)
		client.Close()
		if h.presence != nil {
			h.presence.Untrack(roomID, client.ID)
		}
		remaining := h.registry.Count(roomID)
		h.engine.ConnectionClosed(roomID, remaining)
		log.Printf("Connection %s left room %s (%d remaining)", client.ID, roomID, remaining)
	}()

	client.ReadLoop(h.maxMessageBytes, func(data []byte) {
		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Lenient: drop the frame, keep the connection.
			log.Printf("Dropping malformed frame from %s: %v", client.ID, err)
			return
		}

		switch msg.Type {
		case models.MessageUpdate:
			if err := h.engine.HandleUpdate(roomID, client.ID, msg.Elements); err != nil {
				log.Printf("Dropping rejected update from %s: %v", client.ID, err)
			}
		default:
			log.Printf("Unknown message type from %s: %q", client.ID, msg.Type)
		}
	})
}
