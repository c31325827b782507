// Package navstate persists each user's navigation state (active page and
// list filters) in Redis so the UI restores where the user left off.
package navstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"
)

// CurrentVersion is the schema version written on save. Load migrates older
// payloads forward; unknown or corrupt payloads reset to defaults.
const CurrentVersion = 2

const stateTTL = 30 * 24 * time.Hour

// State is the persisted navigation snapshot of one user.
type State struct {
	Version    int               `json:"version"`
	ActivePage string            `json:"active_page"`
	Filters    map[string]string `json:"filters"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DefaultState is what a user without stored state gets.
func DefaultState() State {
	return State{
		Version:    CurrentVersion,
		ActivePage: "dashboard",
		Filters:    map[string]string{},
	}
}

// Store reads and writes navigation state in Redis.
type Store struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewStore builds Store.
func NewStore(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger, now: time.Now}
}

func key(userID int64) string {
	return fmt.Sprintf("navstate:%d", userID)
}

// Load returns the user's navigation state, migrated to the current schema.
// A missing, corrupt or unrecognized payload yields the defaults rather than
// an error: losing navigation state must never break a request.
func (s *Store) Load(ctx context.Context, userID int64) (State, error) {
	raw, err := s.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return DefaultState(), nil
		}
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("navigation state corrupt, resetting", "user_id", userID, "error", err)
		return DefaultState(), nil
	}

	migrated, ok := migrate(state)
	if !ok {
		s.logger.Warn("navigation state version unknown, resetting", "user_id", userID, "version", state.Version)
		return DefaultState(), nil
	}
	return migrated, nil
}

// Save overwrites the user's navigation state at the current schema version.
func (s *Store) Save(ctx context.Context, userID int64, state State) error {
	state.Version = CurrentVersion
	state.UpdatedAt = s.now()
	if state.Filters == nil {
		state.Filters = map[string]string{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(userID), data, stateTTL).Err()
}

// Clear drops the stored state.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, key(userID)).Err()
}

// migrate walks the state forward one version at a time.
func migrate(state State) (State, bool) {
	switch state.Version {
	case 0, 1:
		// v1 stored filters per page under "page:filter" keys and had no
		// version field (decoded as 0). Keep only the active page's filters.
		prefix := state.ActivePage + ":"
		filters := map[string]string{}
		for k, v := range state.Filters {
			if len(k) > len(prefix) && k[:len(prefix)] == prefix {
				filters[k[len(prefix):]] = v
			}
		}
		state.Filters = filters
		state.Version = 2
		return migrate(state)
	case CurrentVersion:
		if state.Filters == nil {
			state.Filters = map[string]string{}
		}
		if state.ActivePage == "" {
			state.ActivePage = "dashboard"
		}
		return state, true
	default:
		return State{}, false
	}
}
