package handlers

import (
	"bytes"
	"log"
	"net/http"

	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/board"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/export"
	"github.com/gin-gonic/gin"
)

// ExportRoomPDF renders the room's current snapshot as a PDF. An
// unknown or idle room exports an empty page rather than failing, the
// same way the realtime layer treats an unknown room as empty.
func ExportRoomPDF(store *board.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")

		elements, _ := store.Snapshot(roomID)

		var buf bytes.Buffer
		if err := export.PDF(&buf, elements); err != nil {
			log.Printf("Failed to export room %s: %v", roomID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export board"})
			return
		}

		c.Header("Content-Disposition", `attachment; filename="board-`+roomID+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}
