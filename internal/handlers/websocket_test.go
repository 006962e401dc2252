package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/board"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/engine"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/hub"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// newTestServer wires the realtime core behind a gin router with no
// external collaborators (no admission service, no presence mirror).
func newTestServer(t *testing.T) (*httptest.Server, *board.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := board.NewStore()
	registry := hub.NewRegistry()
	eng := engine.New(store, registry, time.Minute)
	handler := NewBoardHandler(eng, registry, nil, nil, 1<<20)

	router := gin.New()
	router.GET("/ws/board/:roomId", handler.HandleBoard)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func dialRoom(t *testing.T, srv *httptest.Server, roomID, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/board/" + roomID + "?displayName=" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode frame %s: %v", data, err)
	}
	return msg
}

// expectSilence asserts that no frame arrives within the window. The
// read timeout poisons the connection, so this must be the last read
// on it.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("Expected no frame, got %s", data)
	}
}

// waitForElements blocks until the room holds want elements, so a test
// can order a peer's join after an in-flight update has been applied.
func waitForElements(t *testing.T, store *board.Store, roomID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if elements, _ := store.Snapshot(roomID); len(elements) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Room %s never reached %d elements", roomID, want)
}

func sendUpdate(t *testing.T, conn *websocket.Conn, elements models.Elements) {
	t.Helper()
	if err := conn.WriteJSON(models.Message{Type: models.MessageUpdate, Elements: elements}); err != nil {
		t.Fatalf("Failed to send update: %v", err)
	}
}

func TestBoardChannel(t *testing.T) {
	t.Run("full session", func(t *testing.T) {
		srv, store := newTestServer(t)

		// A joins an empty room and immediately receives the empty snapshot.
		a := dialRoom(t, srv, "r1", "alice")
		snap := readFrame(t, a)
		if snap.Type != models.MessageSnapshot {
			t.Fatalf("Expected snapshot first, got %q", snap.Type)
		}
		if len(snap.Elements) != 0 {
			t.Fatalf("Expected empty board, got %v", snap.Elements)
		}

		// A draws a line.
		sendUpdate(t, a, models.Elements{
			&models.Line{ID: "l1", Kind: models.KindLine, Points: []float64{0, 0, 10, 10}, Color: "red"},
		})

		// Wait for the update to land before B joins.
		waitForElements(t, store, "r1", 1)

		// B joins later and sees the line in its join snapshot, before
		// any peer update.
		b := dialRoom(t, srv, "r1", "bob")
		snap = readFrame(t, b)
		if snap.Type != models.MessageSnapshot {
			t.Fatalf("Expected snapshot first, got %q", snap.Type)
		}
		if len(snap.Elements) != 1 || snap.Elements[0].ElementID() != "l1" {
			t.Fatalf("Late joiner missed existing state: %v", snap.Elements)
		}

		// A adds a shape; B receives the relay, A hears nothing back.
		sendUpdate(t, a, models.Elements{
			&models.Line{ID: "l1", Kind: models.KindLine, Points: []float64{0, 0, 10, 10}, Color: "red"},
			&models.Shape{ID: "s1", Kind: models.KindShape, ShapeType: models.ShapeRectangle, X: 5, Y: 5, Width: 20, Height: 10},
		})

		update := readFrame(t, b)
		if update.Type != models.MessageUpdate {
			t.Fatalf("Expected update, got %q", update.Type)
		}
		if len(update.Elements) != 2 {
			t.Fatalf("Expected both elements, got %v", update.Elements)
		}
		if update.Elements[0].ElementID() != "l1" || update.Elements[1].ElementID() != "s1" {
			t.Errorf("Relay order wrong: %v", update.Elements)
		}
		if update.From == "" {
			t.Error("Relay missing sender id")
		}

		expectSilence(t, a)
	})

	t.Run("updates stay in their room", func(t *testing.T) {
		srv, _ := newTestServer(t)

		a := dialRoom(t, srv, "r1", "alice")
		readFrame(t, a) // snapshot
		other := dialRoom(t, srv, "r2", "carol")
		readFrame(t, other) // snapshot

		sendUpdate(t, a, models.Elements{
			&models.Text{ID: "t1", Kind: models.KindText, Content: "only r1", X: 0, Y: 0},
		})

		expectSilence(t, other)
	})

	t.Run("malformed frames are dropped, connection survives", func(t *testing.T) {
		srv, store := newTestServer(t)

		a := dialRoom(t, srv, "r1", "alice")
		readFrame(t, a)
		b := dialRoom(t, srv, "r1", "bob")
		readFrame(t, b)

		// Not even JSON.
		if err := a.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
			t.Fatal(err)
		}
		// Valid envelope, invalid element.
		if err := a.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"update","elements":[{"kind":"shape","id":"s1","shapeType":"triangle"}]}`)); err != nil {
			t.Fatal(err)
		}

		// The same connection can still send a good update, and the
		// first frame B sees is that update: nothing malformed was
		// relayed ahead of it.
		sendUpdate(t, a, models.Elements{
			&models.Text{ID: "t1", Kind: models.KindText, Content: "recovered", X: 0, Y: 0},
		})
		update := readFrame(t, b)
		if update.Type != models.MessageUpdate {
			t.Fatalf("Expected update, got %q", update.Type)
		}
		if len(update.Elements) != 1 || update.Elements[0].ElementID() != "t1" {
			t.Fatalf("Expected only the valid update, got %v", update.Elements)
		}

		snap, _ := store.Snapshot("r1")
		if len(snap) != 1 || snap[0].ElementID() != "t1" {
			t.Errorf("Malformed frames leaked into state: %v", snap)
		}
	})

	t.Run("disconnect leaves peers unharmed", func(t *testing.T) {
		srv, _ := newTestServer(t)

		a := dialRoom(t, srv, "r1", "alice")
		readFrame(t, a)
		b := dialRoom(t, srv, "r1", "bob")
		readFrame(t, b)

		b.Close()
		// Give the server a moment to process the close.
		time.Sleep(100 * time.Millisecond)

		// A's updates still work against the remaining membership.
		sendUpdate(t, a, models.Elements{
			&models.Text{ID: "t1", Kind: models.KindText, Content: "still here", X: 0, Y: 0},
		})
		expectSilence(t, a)
	})

	t.Run("joiners under live traffic get the snapshot first", func(t *testing.T) {
		srv, _ := newTestServer(t)

		painter := dialRoom(t, srv, "r1", "painter")
		readFrame(t, painter)

		// Keep updates flowing while peers join, so registration and
		// the snapshot push race against broadcasts.
		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			el := models.Elements{
				&models.Line{ID: "l1", Kind: models.KindLine, Points: []float64{0, 0, 1, 1}},
			}
			for {
				select {
				case <-stop:
					return
				default:
				}
				if err := painter.WriteJSON(models.Message{Type: models.MessageUpdate, Elements: el}); err != nil {
					return
				}
				time.Sleep(time.Millisecond)
			}
		}()

		for i := 0; i < 10; i++ {
			peer := dialRoom(t, srv, "r1", "peer")
			if first := readFrame(t, peer); first.Type != models.MessageSnapshot {
				t.Fatalf("First frame to a joiner was %q, want snapshot", first.Type)
			}
			peer.Close()
		}

		close(stop)
		<-done
	})
}
