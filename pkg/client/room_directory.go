package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"roomtrack/pkg/model"
)

// RoomDirectoryClient reads room snapshots (capacity, eligibility) from the
// room directory service at admission time.
type RoomDirectoryClient struct {
	httpClient *HttpClient
}

func NewRoomDirectoryClient(baseURL string) *RoomDirectoryClient {
	return &RoomDirectoryClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// GetRoom returns (nil, nil) when the room does not exist.
func (c *RoomDirectoryClient) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/rooms/id/"+url.PathEscape(roomID))
	if err != nil {
		return nil, fmt.Errorf("room fetch failed: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("room directory returned status %d", resp.StatusCode)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("could not decode room wrapper: %w", err)
	}

	var room model.Room
	if err := json.Unmarshal(wrapper.Data, &room); err != nil {
		return nil, fmt.Errorf("could not decode room json: %w", err)
	}
	return &room, nil
}
