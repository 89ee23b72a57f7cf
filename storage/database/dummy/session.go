package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muddyapp/muddy/core/session"
)

type sessionRepository struct {
	db    *sessionTable
	rates *submissionTable
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db.session, rates: db.submission}
}

func (repo *sessionRepository) CreateSession(_ context.Context, sess session.ClassSession) (session.ClassSession, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.table {
		if s.AccessToken == sess.AccessToken {
			return session.ClassSession{}, session.ErrTokenExists
		}
	}
	sess.ID = uuid.New().String()
	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *sessionRepository) GetSessionByID(_ context.Context, id string) (session.ClassSession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return *sess, nil
	}
	return session.ClassSession{}, session.ErrNotFound
}

func (repo *sessionRepository) GetSessionByToken(_ context.Context, token string) (session.ClassSession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sess := range repo.db.table {
		if sess.AccessToken == token {
			return *sess, nil
		}
	}
	return session.ClassSession{}, session.ErrNotFound
}

func (repo *sessionRepository) GetActiveSession(_ context.Context, courseID string, asOf time.Time) (session.ClassSession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var found *session.ClassSession
	for _, sess := range repo.db.table {
		if sess.CourseID != courseID || !sess.IsActive || sess.ExpiresAt.Before(asOf) {
			continue
		}
		if found == nil || sess.SessionDate.After(found.SessionDate) {
			found = sess
		}
	}
	if found == nil {
		return session.ClassSession{}, session.ErrNotFound
	}
	return *found, nil
}

func (repo *sessionRepository) QuerySessions(_ context.Context, courseID string) ([]session.ClassSession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := make([]session.ClassSession, 0)
	for _, sess := range repo.db.table {
		if sess.CourseID == courseID {
			sessions = append(sessions, *sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].SessionDate.After(sessions[j].SessionDate)
	})
	return sessions, nil
}

func (repo *sessionRepository) DeactivateExpired(_ context.Context, now time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	expired := make(map[string]bool)
	for _, sess := range repo.db.table {
		if sess.ExpiresAt.Before(now) {
			expired[sess.ID] = true
			sess.IsActive = false
		}
	}

	repo.rates.Lock()
	defer repo.rates.Unlock()
	for key := range repo.rates.rates {
		sessionID := strings.SplitN(key, "\x00", 2)[0]
		if expired[sessionID] {
			delete(repo.rates.rates, key)
		}
	}
	return nil
}
