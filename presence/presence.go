// Package presence mirrors user identities into the chat/video provider and
// issues the provider tokens clients use to connect to it.
package presence

import (
	"context"
	"errors"
)

// ErrDisabled is returned by the disabled client when a token is requested
// without provider credentials configured.
var ErrDisabled = errors.New("presence provider not configured")

// Identity is the minimal user record the provider keeps.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

type Client interface {
	UpsertUser(ctx context.Context, id Identity) error
	CreateToken(userID string) (string, error)
}

// Disabled is used when no provider keys are configured. Upserts succeed
// without doing anything.
type Disabled struct{}

func (Disabled) UpsertUser(context.Context, Identity) error { return nil }

func (Disabled) CreateToken(string) (string, error) { return "", ErrDisabled }
