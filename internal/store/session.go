package store

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"seckill-client/internal/models"
	"seckill-client/internal/util"
)

const sessionKey = "session"

// SessionStore holds the single process-wide login session. It is restored
// from durable storage at construction so a restart does not force
// re-authentication; the token itself is revalidated by the backend on use.
type SessionStore struct {
	mu      sync.Mutex
	kv      KV
	session models.Session
	logger  *zap.Logger
}

// NewSessionStore loads any persisted session. A corrupt payload falls back
// to a logged-out session rather than failing.
func NewSessionStore(kv KV) *SessionStore {
	s := &SessionStore{kv: kv, logger: util.GetLogger()}

	raw, ok, err := kv.Get(sessionKey)
	if err != nil {
		s.logger.Warn("failed to load session, starting logged out", zap.Error(err))
		return s
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &s.session); err != nil {
			s.logger.Warn("corrupt session payload, starting logged out", zap.Error(err))
			s.session = models.Session{}
		}
	}
	return s
}

// SetSession records a successful login and persists it.
func (s *SessionStore) SetSession(user *models.User, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = models.Session{User: user, Token: token, LoggedIn: true}
	return s.persistLocked()
}

// Clear logs out and persists the empty session.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = models.Session{}
	return s.persistLocked()
}

// Current returns a copy of the session.
func (s *SessionStore) Current() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Token returns the current credential, empty when logged out.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Token
}

func (s *SessionStore) persistLocked() error {
	raw, err := json.Marshal(s.session)
	if err != nil {
		return err
	}
	return s.kv.Put(sessionKey, string(raw))
}
