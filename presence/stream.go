package presence

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	stream "github.com/GetStream/stream-chat-go/v7"
)

// StreamClient mirrors identities into Stream Chat and issues its user
// tokens.
type StreamClient struct {
	chat *stream.Client
}

func NewStreamClient(apiKey, apiSecret, baseURL string, timeout time.Duration) (*StreamClient, error) {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	chat, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("create stream client: %w", err)
	}
	if baseURL != "" {
		chat.BaseURL = strings.TrimRight(baseURL, "/")
	}
	chat.SetClient(&http.Client{Timeout: timeout})
	return &StreamClient{chat: chat}, nil
}

// CreateToken returns a non-expiring user token, matching what the web
// client expects when it connects.
func (s *StreamClient) CreateToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("create token: empty user id")
	}
	token, err := s.chat.CreateToken(userID, time.Time{})
	if err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}
	return token, nil
}

// UpsertUser creates or updates the identity on the provider.
func (s *StreamClient) UpsertUser(ctx context.Context, id Identity) error {
	_, err := s.chat.UpsertUser(ctx, &stream.User{
		ID:    id.ID,
		Name:  id.Name,
		Image: id.Image,
	})
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", id.ID, err)
	}
	return nil
}
