package models

import "time"

// RoomMetadata stores information about a board room.
type RoomMetadata struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"` // Short, shareable room code (e.g., "ABCD123")
	Title       string    `json:"title"`
	CreatorID   string    `json:"creatorId"` // User ID from JWT who created the room
	CreatedAt   time.Time `json:"createdAt"`
	MaxClients  int       `json:"maxClients"`
	ClientCount int       `json:"clientCount"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Title      string `json:"title"`
	MaxClients int    `json:"maxClients" binding:"omitempty,min=2,max=64"`
}

// CreateRoomResponse is the response for creating a room
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}
