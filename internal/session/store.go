// Package session keeps per-user chat history.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vinayak1844/Statathon-Project/internal/cache"
	"github.com/Vinayak1844/Statathon-Project/internal/filters"
	"github.com/Vinayak1844/Statathon-Project/internal/observability"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// DefaultID names the session used when a request carries no user id.
const DefaultID = "default"

const (
	defaultTTL      = 24 * time.Hour
	defaultMaxTurns = 50
)

// Turn is one chat exchange.
type Turn struct {
	ID      uuid.UUID   `json:"id"`
	Message string      `json:"message"`
	Filters filters.Set `json:"filters"`
	Count   int         `json:"count"`
	Error   string      `json:"error,omitempty"`
	At      time.Time   `json:"at"`
}

// Session is the history of one user id.
type Session struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists sessions. Sessions are isolated by id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Evict(ctx context.Context, id string) error
	// Append records a turn, creating the session if needed.
	Append(ctx context.Context, id string, turn Turn) (*Session, error)
}

// NormalizeID trims id and substitutes DefaultID for an empty one.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultID
	}
	return id
}

// Config tunes a CacheStore.
type Config struct {
	TTL      time.Duration
	MaxTurns int
}

// CacheStore keeps sessions as JSON in a cache.Client, so it works with both
// the in-process memory cache and Redis. Every write refreshes the TTL.
type CacheStore struct {
	client   cache.Client
	ttl      time.Duration
	maxTurns int
	logger   *observability.Logger
	now      func() time.Time

	// serializes read-modify-write in Append within this process
	mu sync.Mutex
}

// NewCacheStore creates a store over client.
func NewCacheStore(client cache.Client, cfg Config, logger *observability.Logger) *CacheStore {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CacheStore{
		client:   client,
		ttl:      cfg.TTL,
		maxTurns: cfg.MaxTurns,
		logger:   logger.WithOperation("session"),
		now:      time.Now,
	}
}

func key(id string) string {
	return cache.Key("session", id)
}

// Get loads a session.
func (s *CacheStore) Get(ctx context.Context, id string) (*Session, error) {
	id = NormalizeID(id)
	data, err := s.client.Get(ctx, key(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn().Err(err).Str("session_id", id).Msg("Dropping unreadable session")
		_ = s.client.Delete(ctx, key(id))
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Put saves sess, keeping only the newest MaxTurns turns.
func (s *CacheStore) Put(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("nil session")
	}
	sess.ID = NormalizeID(sess.ID)
	if extra := len(sess.Turns) - s.maxTurns; extra > 0 {
		sess.Turns = append([]Turn(nil), sess.Turns[extra:]...)
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = s.now().UTC()
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := s.client.Set(ctx, key(sess.ID), data, s.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// Evict removes a session. Evicting an unknown id is not an error.
func (s *CacheStore) Evict(ctx context.Context, id string) error {
	id = NormalizeID(id)
	if err := s.client.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("evict session %s: %w", id, err)
	}
	s.logger.Debug().Str("session_id", id).Msg("Session evicted")
	return nil
}

// Append adds turn to the session, assigning an id and timestamp when unset.
func (s *CacheStore) Append(ctx context.Context, id string, turn Turn) (*Session, error) {
	id = NormalizeID(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		sess = &Session{ID: id}
	} else if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.At.IsZero() {
		turn.At = now
	}
	sess.Turns = append(sess.Turns, turn)
	sess.UpdatedAt = now

	if err := s.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
