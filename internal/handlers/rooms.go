package handlers

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/models"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/redis"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	roomCodeLength = 6
	roomTTL        = 24 * time.Hour
	codeChars      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // Removed ambiguous chars
)

// CreateRoom creates a new board room (requires authentication)
func CreateRoom(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.MaxClients == 0 {
		req.MaxClients = 16
	}
	if req.Title == "" {
		req.Title = "Untitled board"
	}

	roomID := uuid.New().String()
	roomCode := generateRoomCode()

	room := models.RoomMetadata{
		ID:          roomID,
		Code:        roomCode,
		Title:       req.Title,
		CreatorID:   userID.(string),
		CreatedAt:   time.Now(),
		MaxClients:  req.MaxClients,
		ClientCount: 0,
	}

	redisClient := redis.GetClient()
	ctx := redis.GetContext()

	roomData, err := json.Marshal(room)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	if err := redisClient.Set(ctx, "room:"+roomID, roomData, roomTTL).Err(); err != nil {
		log.Printf("Failed to store room in Redis: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	// Store code-to-ID mapping for easy lookup
	if err := redisClient.Set(ctx, "code:"+roomCode, roomID, roomTTL).Err(); err != nil {
		log.Printf("Failed to store room code in Redis: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	log.Printf("Room created: %s (code: %s) by user %s", roomID, roomCode, userID)

	c.JSON(http.StatusCreated, models.CreateRoomResponse{
		RoomID: roomID,
		Code:   roomCode,
	})
}

// GetRoom gets room information by code or ID (public)
func GetRoom(c *gin.Context) {
	roomIdentifier := c.Param("roomId")

	room, err := lookupRoom(roomIdentifier)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	c.JSON(http.StatusOK, room)
}

// DeleteRoom deletes a room (requires authentication and creator)
func DeleteRoom(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	roomID := c.Param("roomId")

	redisClient := redis.GetClient()
	ctx := redis.GetContext()

	roomData, err := redisClient.Get(ctx, "room:"+roomID).Result()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	var room models.RoomMetadata
	if err := json.Unmarshal([]byte(roomData), &room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse room data"})
		return
	}

	if room.CreatorID != userID.(string) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the room creator can delete the room"})
		return
	}

	redisClient.Del(ctx, "room:"+roomID)
	redisClient.Del(ctx, "code:"+room.Code)
	redisClient.Del(ctx, "room:"+roomID+":peers")

	log.Printf("Room deleted: %s by user %s", roomID, userID)

	c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
}

// generateRoomCode generates a random room code
func generateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}

// lookupRoom resolves a room id or 6-char share code to its metadata
// and fills in the live member count.
func lookupRoom(roomIdentifier string) (*models.RoomMetadata, error) {
	redisClient := redis.GetClient()
	ctx := redis.GetContext()

	roomID := roomIdentifier
	if len(roomIdentifier) == roomCodeLength {
		id, err := redisClient.Get(ctx, "code:"+roomIdentifier).Result()
		if err != nil {
			return nil, fmt.Errorf("room not found")
		}
		roomID = id
	}

	roomData, err := redisClient.Get(ctx, "room:"+roomID).Result()
	if err != nil {
		return nil, fmt.Errorf("room not found")
	}

	var room models.RoomMetadata
	if err := json.Unmarshal([]byte(roomData), &room); err != nil {
		return nil, fmt.Errorf("failed to parse room data")
	}

	memberCount, _ := redisClient.SCard(ctx, "room:"+roomID+":peers").Result()
	room.ClientCount = int(memberCount)

	return &room, nil
}

// RedisAdmission resolves share codes and enforces room capacity
// against the metadata kept in Redis. A room the metadata service does
// not know about is still admitted: the realtime core creates rooms
// lazily and only the capacity rule can refuse a connection.
type RedisAdmission struct{}

func (RedisAdmission) Admit(roomIdentifier string) (string, error) {
	room, err := lookupRoom(roomIdentifier)
	if err != nil {
		return roomIdentifier, nil
	}
	if room.MaxClients > 0 && room.ClientCount >= room.MaxClients {
		return "", fmt.Errorf("room is full")
	}
	return room.ID, nil
}

// RedisPresence mirrors room membership into Redis so the room API can
// report live member counts.
type RedisPresence struct{}

func (RedisPresence) Track(roomID, connID string) {
	redisClient := redis.GetClient()
	ctx := redis.GetContext()
	redisClient.SAdd(ctx, "room:"+roomID+":peers", connID)
	redisClient.Expire(ctx, "room:"+roomID+":peers", roomTTL)
}

func (RedisPresence) Untrack(roomID, connID string) {
	redisClient := redis.GetClient()
	ctx := redis.GetContext()
	redisClient.SRem(ctx, "room:"+roomID+":peers", connID)
}
