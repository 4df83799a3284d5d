package workflow

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// Sessions holds the active flow per chat user. The cache is bounded so an
// abandoned flow eventually falls out instead of leaking; evicting one is
// equivalent to the user walking away mid-conversation.
type Sessions struct {
	cache *lru.Cache
}

func NewSessions(size int) (*Sessions, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Sessions{cache: cache}, nil
}

// Active returns the user's in-progress flow, if any.
func (s *Sessions) Active(userID string) (Flow, bool) {
	v, ok := s.cache.Get(userID)
	if !ok {
		return nil, false
	}
	flow, ok := v.(Flow)
	return flow, ok
}

// Begin replaces any in-progress flow for the user.
func (s *Sessions) Begin(userID string, flow Flow) {
	s.cache.Add(userID, flow)
}

// End drops the user's flow.
func (s *Sessions) End(userID string) {
	s.cache.Remove(userID)
}
