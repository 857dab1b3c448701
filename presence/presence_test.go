package presence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamClient_CreateToken(t *testing.T) {
	c, err := NewStreamClient("key", "secret", "http://unused", 0)
	require.NoError(t, err)

	token, err := c.CreateToken("user-1")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["user_id"])

	_, err = c.CreateToken("")
	assert.Error(t, err)
}

func TestNewStreamClient_RequiresCredentials(t *testing.T) {
	_, err := NewStreamClient("", "secret", "", 0)
	assert.Error(t, err)
}

func TestStreamClient_UpsertUser(t *testing.T) {
	var (
		gotPath  string
		gotKey   string
		gotAuth  string
		gotUsers map[string]Identity
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("api_key")
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Users map[string]Identity `json:"users"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotUsers = body.Users
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"users": body.Users, "duration": "1ms"})
	}))
	defer srv.Close()

	c, err := NewStreamClient("key", "secret", srv.URL+"/", time.Second)
	require.NoError(t, err)
	err = c.UpsertUser(context.Background(), Identity{ID: "u1", Name: "Ana", Image: "pic"})
	require.NoError(t, err)

	assert.Equal(t, "/users", gotPath)
	assert.Equal(t, "key", gotKey)
	assert.NotEmpty(t, gotAuth)
	require.Contains(t, gotUsers, "u1")
	assert.Equal(t, "Ana", gotUsers["u1"].Name)
	assert.Equal(t, "pic", gotUsers["u1"].Image)
}

func TestStreamClient_UpsertUserError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":2,"message":"api key not valid","StatusCode":401}`))
	}))
	defer srv.Close()

	c, err := NewStreamClient("key", "secret", srv.URL, time.Second)
	require.NoError(t, err)
	err = c.UpsertUser(context.Background(), Identity{ID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert user u1")
}

func TestDisabled(t *testing.T) {
	assert.NoError(t, Disabled{}.UpsertUser(context.Background(), Identity{ID: "u1"}))
	_, err := Disabled{}.CreateToken("u1")
	assert.ErrorIs(t, err, ErrDisabled)
}

type recordingClient struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (r *recordingClient) UpsertUser(_ context.Context, id Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id.ID)
	return r.err
}

func (r *recordingClient) CreateToken(userID string) (string, error) { return "tok-" + userID, nil }

func TestSyncer_WaitsForInFlight(t *testing.T) {
	rec := &recordingClient{err: errors.New("provider down")}
	s := NewSyncer(rec, time.Second, nil)

	s.Sync(Identity{ID: "a"})
	s.Sync(Identity{ID: "b"})
	require.NoError(t, s.Wait(context.Background()))

	assert.ElementsMatch(t, []string{"a", "b"}, rec.ids)
	assert.Same(t, rec, s.Client())
}
