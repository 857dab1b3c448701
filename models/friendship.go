package models

import "time"

// Friendship is a single edge record shared by both users.
type Friendship struct {
	PairKey   string    `json:"-"`
	UserA     string    `json:"userA"`
	UserB     string    `json:"userB"`
	CreatedAt time.Time `json:"createdAt"`
}

// Other returns the participant that is not userID.
func (f Friendship) Other(userID string) string {
	if f.UserA == userID {
		return f.UserB
	}
	return f.UserA
}
