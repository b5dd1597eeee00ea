package session

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type Mode string

const (
	ModeNone Mode = ""
	ModeText Mode = "text"
	ModeFile Mode = "file"
)

// Session is the per-user UI state. Only one input surface is active at a
// time.
type Session struct {
	Mode        Mode
	PendingText string
}

// ExpireFunc is called with the user ID of a session that expired from
// inactivity.
type ExpireFunc func(ctx context.Context, userID int64)

type Store struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[int64, Session]
}

func New(ttl time.Duration) *Store {
	return &Store{
		cache: ttlcache.New(
			ttlcache.WithTTL[int64, Session](ttl),
		),
	}
}

// OnExpire registers fn to be called for sessions that expired. Explicit
// resets do not trigger it.
func (s *Store) OnExpire(fn ExpireFunc) {
	s.cache.OnEviction(func(
		ctx context.Context,
		reason ttlcache.EvictionReason,
		item *ttlcache.Item[int64, Session],
	) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		fn(ctx, item.Key())
	})
}

// Start runs the expiration loop until Stop is called.
func (s *Store) Start() {
	s.cache.Start()
}

func (s *Store) Stop() {
	s.cache.Stop()
}

// Get returns the session of userID and refreshes its lifetime.
func (s *Store) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(userID)
}

// SetMode switches the active input surface and drops pending text.
func (s *Store) SetMode(userID int64, mode Mode) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := Session{Mode: mode}
	s.cache.Set(userID, sess, ttlcache.DefaultTTL)

	return sess
}

func (s *Store) SetPendingText(userID int64, text string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(userID)
	sess.PendingText = text
	s.cache.Set(userID, sess, ttlcache.DefaultTTL)

	return sess
}

func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Delete(userID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) getLocked(userID int64) Session {
	item := s.cache.Get(userID)
	if item == nil {
		return Session{}
	}
	return item.Value()
}
