package database

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"lingomate/models"
)

// MemoryStore is an in-process store with the same semantics as Store. It
// backs STORE=memory and the service and handler tests.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	emails      map[string]string
	requests    map[string]*models.FriendRequest
	pairs       map[string]string
	friendships map[string]models.Friendship
	blocked     map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*models.User),
		emails:      make(map[string]string),
		requests:    make(map[string]*models.FriendRequest),
		pairs:       make(map[string]string),
		friendships: make(map[string]models.Friendship),
		blocked:     make(map[string][]string),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[u.Email]; ok {
		return models.ErrEmailTaken
	}
	cp := cloneUser(u)
	cp.Friends = nil
	cp.BlockedUsers = nil
	m.users[u.ID] = cp
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return m.withRelations(u), nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	return m.withRelations(m.users[id]), nil
}

func (m *MemoryStore) GetUsersByIDs(_ context.Context, ids []string) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *MemoryStore) ListCandidates(_ context.Context, userID string) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocked := m.blocked[userID]
	out := []*models.User{}
	for id, u := range m.users {
		if id == userID || !u.HasCompletedProfile {
			continue
		}
		if _, friends := m.friendships[models.PairKey(userID, id)]; friends {
			continue
		}
		if slices.Contains(blocked, id) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateProfile(_ context.Context, id string, p models.ProfileUpdate, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.FullName = p.FullName
	u.Bio = p.Bio
	u.NativeLanguage = p.NativeLanguage
	u.LearningLanguages = slices.Clone(p.LearningLanguages)
	u.TimeZone = p.TimeZone
	u.Availability = slices.Clone(p.Availability)
	u.Location = p.Location
	if p.ProfilePic != "" {
		u.ProfilePic = p.ProfilePic
	}
	u.HasCompletedProfile = true
	u.UpdatedAt = when
	return nil
}

func (m *MemoryStore) SetProfilePic(_ context.Context, id, url string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.ProfilePic = url
	u.UpdatedAt = when
	return nil
}

func (m *MemoryStore) UpdateStreak(_ context.Context, id string, streak models.Streak) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		u.Streak = streak
	}
	return nil
}

func (m *MemoryStore) AddBlocked(_ context.Context, userID, blockedID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(m.blocked[userID], blockedID) {
		m.blocked[userID] = append(m.blocked[userID], blockedID)
	}
	return nil
}

func (m *MemoryStore) RemoveBlocked(_ context.Context, userID, blockedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocked[userID] = slices.DeleteFunc(m.blocked[userID], func(id string) bool { return id == blockedID })
	return nil
}

func (m *MemoryStore) CreateRequest(_ context.Context, r *models.FriendRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.PairKey(r.Sender, r.Recipient)
	if _, ok := m.pairs[key]; ok {
		return models.ErrRequestExists
	}
	cp := *r
	m.requests[r.ID] = &cp
	m.pairs[key] = r.ID
	return nil
}

func (m *MemoryStore) GetRequest(_ context.Context, id string) (*models.FriendRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) FindRequestBetween(_ context.Context, a, b string) (*models.FriendRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.pairs[models.PairKey(a, b)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *m.requests[id]
	return &cp, nil
}

func (m *MemoryStore) AcceptRequest(_ context.Context, r *models.FriendRequest, when time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.requests[r.ID]
	if !ok || cur.Status != models.RequestPending {
		return false, nil
	}
	cur.Status = models.RequestAccepted
	cur.UpdatedAt = when
	m.addFriendshipLocked(cur.Sender, cur.Recipient, when)
	return true, nil
}

func (m *MemoryStore) RejectRequest(_ context.Context, id string, when time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.requests[id]
	if !ok || cur.Status != models.RequestPending {
		return false, nil
	}
	cur.Status = models.RequestRejected
	cur.UpdatedAt = when
	return true, nil
}

func (m *MemoryStore) CancelRequest(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.requests[id]
	if !ok || cur.Status != models.RequestPending {
		return false, nil
	}
	delete(m.requests, id)
	delete(m.pairs, models.PairKey(cur.Sender, cur.Recipient))
	return true, nil
}

func (m *MemoryStore) ListIncoming(_ context.Context, userID string) ([]*models.FriendRequest, error) {
	return m.filterRequests(func(r *models.FriendRequest) bool {
		return r.Recipient == userID && r.Status == models.RequestPending
	}), nil
}

func (m *MemoryStore) ListOutgoing(_ context.Context, userID string, pendingOnly bool) ([]*models.FriendRequest, error) {
	return m.filterRequests(func(r *models.FriendRequest) bool {
		return r.Sender == userID && (!pendingOnly || r.Status == models.RequestPending)
	}), nil
}

func (m *MemoryStore) filterRequests(keep func(*models.FriendRequest) bool) []*models.FriendRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.FriendRequest{}
	for _, r := range m.requests {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemoryStore) AddFriendship(_ context.Context, a, b string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addFriendshipLocked(a, b, when)
	return nil
}

func (m *MemoryStore) addFriendshipLocked(a, b string, when time.Time) {
	key := models.PairKey(a, b)
	if _, ok := m.friendships[key]; ok {
		return
	}
	if a > b {
		a, b = b, a
	}
	m.friendships[key] = models.Friendship{PairKey: key, UserA: a, UserB: b, CreatedAt: when}
}

func (m *MemoryStore) RemoveFriendship(_ context.Context, a, b string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.PairKey(a, b)
	if _, ok := m.friendships[key]; !ok {
		return false, nil
	}
	delete(m.friendships, key)
	if id, ok := m.pairs[key]; ok {
		delete(m.requests, id)
		delete(m.pairs, key)
	}
	return true, nil
}

func (m *MemoryStore) ListFriendIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.friendIDsLocked(userID), nil
}

func (m *MemoryStore) AreFriends(_ context.Context, a, b string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.friendships[models.PairKey(a, b)]
	return ok, nil
}

func (m *MemoryStore) friendIDsLocked(userID string) []string {
	ids := []string{}
	for _, f := range m.friendships {
		if f.UserA == userID || f.UserB == userID {
			ids = append(ids, f.Other(userID))
		}
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryStore) withRelations(u *models.User) *models.User {
	cp := cloneUser(u)
	cp.Friends = m.friendIDsLocked(u.ID)
	cp.BlockedUsers = append([]string{}, m.blocked[u.ID]...)
	return cp
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.LearningLanguages = slices.Clone(u.LearningLanguages)
	cp.Availability = slices.Clone(u.Availability)
	cp.Friends = slices.Clone(u.Friends)
	cp.BlockedUsers = slices.Clone(u.BlockedUsers)
	return &cp
}
