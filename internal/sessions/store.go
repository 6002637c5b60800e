// Package sessions provides the in-memory conversation store that gives the
// stateless HTTP layer durable-within-process multi-turn memory. Sessions
// expire TTL after their last access; a background reaper removes expired
// entries, but expiry is a property of the timestamps and list/get never
// surface an expired session even before the next sweep.
package sessions

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// ErrNotFound is returned when a session id does not resolve to a live entry.
var ErrNotFound = errors.New("session not found")

// sweepBatchSize bounds how many deletions happen under a single write lock
// during a reaper sweep, so sweeps never stall concurrent requests.
const sweepBatchSize = 256

// Session is one stored conversation. Values handed out by the store are
// clones; mutating them does not affect stored state.
type Session struct {
	ID             string
	Model          string
	SystemPrompt   string
	MaxTurns       int
	Messages       []openai.Message
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
}

// MessageCount returns the number of stored messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// Stats is a derived snapshot of store state. ExpiredSessions counts entries
// past their expiry that the reaper has not collected yet.
type Stats struct {
	ActiveSessions         int     `json:"active_sessions"`
	ExpiredSessions        int     `json:"expired_sessions"`
	TotalMessages          int     `json:"total_messages"`
	AverageMessageCount    float64 `json:"average_message_count"`
	CleanupIntervalMinutes float64 `json:"cleanup_interval_minutes"`
	DefaultTTLHours        float64 `json:"default_ttl_hours"`
}

// CreateRequest carries the optional fields of an explicit session create.
// An empty SessionID asks the store to generate one.
type CreateRequest struct {
	SessionID    string `json:"session_id,omitempty"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	MaxTurns     int    `json:"max_turns,omitempty"`
}

// UpdateRequest carries the patchable session fields. Nil pointers leave the
// current value untouched.
type UpdateRequest struct {
	SystemPrompt *string `json:"system_prompt,omitempty"`
	MaxTurns     *int    `json:"max_turns,omitempty"`
}

// Store is the in-memory session store. All methods are safe for concurrent
// use; returned sessions are clones.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl             time.Duration
	cleanupInterval time.Duration
	maxMessages     int

	nowFunc func() time.Time // For testing
}

// NewStore creates a store with the given TTL, cleanup interval and
// per-session message cap. Non-positive arguments fall back to the defaults
// (1h TTL, 5m cleanup, 1000 messages).
func NewStore(ttl, cleanupInterval time.Duration, maxMessages int) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	if maxMessages <= 0 {
		maxMessages = 1000
	}
	return &Store{
		sessions:        map[string]*Session{},
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		maxMessages:     maxMessages,
		nowFunc:         time.Now,
	}
}

// SetNowFunc sets a custom time function for testing.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = fn
}

func (s *Store) now() time.Time {
	return s.nowFunc()
}

// TTL returns the configured session time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// CleanupInterval returns the configured reaper sweep interval.
func (s *Store) CleanupInterval() time.Duration {
	return s.cleanupInterval
}

// GetOrCreate touches and returns the session when a live entry exists,
// otherwise creates an empty one with created_at = last_accessed_at = now.
func (s *Store) GetOrCreate(id string, now time.Time) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok && !expired(sess, now) {
		s.touchLocked(sess, now)
		return cloneSession(sess)
	}
	return cloneSession(s.createLocked(id, now))
}

// Get returns the session and touches it. Absent or expired entries yield
// ErrNotFound; Get never creates.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[id]
	if !ok || expired(sess, now) {
		return nil, ErrNotFound
	}
	s.touchLocked(sess, now)
	return cloneSession(sess), nil
}

// Append adds messages to the session in order, creating it first if absent
// or expired. An empty slice still touches (and may create) the session.
func (s *Store) Append(id string, msgs []openai.Message) (*Session, error) {
	if id == "" {
		return nil, errors.New("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[id]
	if !ok || expired(sess, now) {
		sess = s.createLocked(id, now)
	} else {
		s.touchLocked(sess, now)
	}

	for _, msg := range msgs {
		sess.Messages = append(sess.Messages, cloneMessage(msg))
	}
	// Trim oldest messages beyond the cap to bound per-session memory.
	if len(sess.Messages) > s.maxMessages {
		excess := len(sess.Messages) - s.maxMessages
		sess.Messages = sess.Messages[excess:]
	}
	return cloneSession(sess), nil
}

// Delete removes the session. Absent and already-expired entries report
// ErrNotFound; an expired entry is still removed from the map.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	if expired(sess, s.now()) {
		return ErrNotFound
	}
	return nil
}

// List returns clones of every non-expired session, ordered by creation time
// for stable output.
func (s *Store) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if expired(sess, now) {
			continue
		}
		out = append(out, cloneSession(sess))
	}
	sortSessions(out)
	return out
}

// Stats returns a derived snapshot of the store. It never mutates state, so
// repeated calls without intervening writes return identical values.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	stats := Stats{
		CleanupIntervalMinutes: s.cleanupInterval.Minutes(),
		DefaultTTLHours:        s.ttl.Hours(),
	}
	for _, sess := range s.sessions {
		if expired(sess, now) {
			stats.ExpiredSessions++
			continue
		}
		stats.ActiveSessions++
		stats.TotalMessages += len(sess.Messages)
	}
	if stats.ActiveSessions > 0 {
		stats.AverageMessageCount = float64(stats.TotalMessages) / float64(stats.ActiveSessions)
	}
	return stats
}

// Process is the completion-path helper. An empty session id means the call
// is stateless: the input passes through unchanged with an empty effective
// id. Otherwise the messages are appended to the session and the full
// post-append history is returned along with the id.
func (s *Store) Process(msgs []openai.Message, sessionID string) ([]openai.Message, string) {
	if sessionID == "" {
		return msgs, ""
	}
	sess, err := s.Append(sessionID, msgs)
	if err != nil {
		return msgs, ""
	}
	return sess.Messages, sessionID
}

// Create makes a new session from an explicit create request, generating an
// id when the request omits one. Creating over an existing id replaces it.
func (s *Store) Create(req CreateRequest) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.createLocked(req.SessionID, s.now())
	sess.Model = req.Model
	sess.SystemPrompt = req.SystemPrompt
	sess.MaxTurns = req.MaxTurns
	return cloneSession(sess)
}

// Update patches the mutable session fields and touches the session.
func (s *Store) Update(id string, patch UpdateRequest) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[id]
	if !ok || expired(sess, now) {
		return nil, ErrNotFound
	}
	if patch.SystemPrompt != nil {
		sess.SystemPrompt = *patch.SystemPrompt
	}
	if patch.MaxTurns != nil {
		sess.MaxTurns = *patch.MaxTurns
	}
	s.touchLocked(sess, now)
	return cloneSession(sess), nil
}

// Sweep removes every session whose expiry precedes now and returns the
// count removed. Ids are collected under a read lock, then deleted in
// batches under short write locks; entries touched in between survive.
func (s *Store) Sweep(now time.Time) int {
	s.mu.RLock()
	var ids []string
	for id, sess := range s.sessions {
		if expired(sess, now) {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for start := 0; start < len(ids); start += sweepBatchSize {
		end := min(start+sweepBatchSize, len(ids))
		s.mu.Lock()
		for _, id := range ids[start:end] {
			sess, ok := s.sessions[id]
			if !ok || !expired(sess, now) {
				continue
			}
			delete(s.sessions, id)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// createLocked inserts a fresh session under the caller-held write lock.
func (s *Store) createLocked(id string, now time.Time) *Session {
	if id == "" {
		id = NewSessionID()
	}
	sess := &Session{
		ID:             id,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(s.ttl),
	}
	s.sessions[id] = sess
	return sess
}

// touchLocked advances the access clock; expires_at tracks last access plus
// the configured TTL.
func (s *Store) touchLocked(sess *Session, now time.Time) {
	sess.LastAccessedAt = now
	sess.ExpiresAt = now.Add(s.ttl)
}

func expired(sess *Session, now time.Time) bool {
	return now.After(sess.ExpiresAt)
}

// NewSessionID generates a server-side session id of the form session_<hex>.
func NewSessionID() string {
	return "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func sortSessions(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}

func cloneSession(sess *Session) *Session {
	if sess == nil {
		return nil
	}
	clone := *sess
	if sess.Messages != nil {
		clone.Messages = make([]openai.Message, len(sess.Messages))
		for i, msg := range sess.Messages {
			clone.Messages[i] = cloneMessage(msg)
		}
	}
	return &clone
}

func cloneMessage(msg openai.Message) openai.Message {
	clone := msg
	if len(msg.ToolCalls) > 0 {
		clone.ToolCalls = append([]openai.ToolCall{}, msg.ToolCalls...)
	}
	return clone
}
