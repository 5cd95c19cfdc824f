package storage

import (
	"cgmd/internal/models"
	"cgmd/internal/providers"
	"cgmd/internal/structures"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

const (
	keySession = "session"
	keySubject = "subject"
)

type SessionStoreInterface interface {
	LoadSession() *models.Session
	SaveSession(session *models.Session) error
	LoadSubject() *models.SubjectProfile
	SaveSubject(subject *models.SubjectProfile) error
	Clear() error
}

// SessionStore is a durable key-value document holding the upstream session
// and the subject resolved with it. Every write rewrites the whole file.
type SessionStore struct {
	files  *FileManager
	path   string
	logger providers.Logger
}

func NewSessionStore(conf *structures.Config, files *FileManager, logger providers.Logger) SessionStoreInterface {
	return &SessionStore{
		files:  files,
		path:   conf.Persistence.SessionFile,
		logger: logger,
	}
}

func (s *SessionStore) load() map[string]json.RawMessage {
	doc := make(map[string]json.RawMessage)
	_, err := s.files.LoadFromFile(s.path, &doc)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			s.logger.Warnf(providers.TypeApp, "Session store reset: %s", err)
		} else {
			s.logger.Errorf(providers.TypeApp, "Session store unreadable: %s", err)
		}
		return make(map[string]json.RawMessage)
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}
	return doc
}

func (s *SessionStore) get(key string, v any) bool {
	raw, ok := s.load()[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.logger.Warnf(providers.TypeApp, "Ignoring malformed %s record: %s", key, err)
		return false
	}
	return true
}

func (s *SessionStore) update(fn func(doc map[string]json.RawMessage) error) error {
	doc := s.load()
	if err := fn(doc); err != nil {
		return err
	}
	if err := s.files.SaveToFile(s.path, doc); err != nil {
		return fmt.Errorf("persisting session store: %w", err)
	}
	return nil
}

// LoadSession returns nil when no usable session is stored.
func (s *SessionStore) LoadSession() *models.Session {
	var session models.Session
	if !s.get(keySession, &session) || !session.Valid() {
		return nil
	}
	return &session
}

// SaveSession stores session and forgets the subject resolved under the
// previous one.
func (s *SessionStore) SaveSession(session *models.Session) error {
	return s.update(func(doc map[string]json.RawMessage) error {
		raw, err := json.Marshal(session)
		if err != nil {
			return err
		}
		doc[keySession] = raw
		delete(doc, keySubject)
		return nil
	})
}

func (s *SessionStore) LoadSubject() *models.SubjectProfile {
	var subject models.SubjectProfile
	if !s.get(keySubject, &subject) || subject.SubjectID == "" {
		return nil
	}
	return &subject
}

func (s *SessionStore) SaveSubject(subject *models.SubjectProfile) error {
	return s.update(func(doc map[string]json.RawMessage) error {
		raw, err := json.Marshal(subject)
		if err != nil {
			return err
		}
		doc[keySubject] = raw
		return nil
	})
}

// Clear removes the whole document, forcing a fresh login.
func (s *SessionStore) Clear() error {
	return s.files.Remove(s.path)
}
