package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/muddyapp/muddy/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound    = errors.New("session not found")
	ErrTokenExists = errors.New("a session with this token already exists")
)

// maxTokenAttempts bounds regeneration on token collision.
const maxTokenAttempts = 5

type (
	Repository interface {
		CreateSession(ctx context.Context, sess ClassSession) (ClassSession, error)
		GetSessionByID(ctx context.Context, id string) (ClassSession, error)
		GetSessionByToken(ctx context.Context, token string) (ClassSession, error)
		// GetActiveSession returns the most recent session for the course
		// where IsActive && ExpiresAt >= asOf, or ErrNotFound.
		GetActiveSession(ctx context.Context, courseID string, asOf time.Time) (ClassSession, error)
		// QuerySessions returns the course's session history, newest first.
		QuerySessions(ctx context.Context, courseID string) ([]ClassSession, error)
		// DeactivateExpired flips IsActive=false on every session whose
		// ExpiresAt has passed and prunes their rate-limit records.
		// Idempotent; safe to call concurrently.
		DeactivateExpired(ctx context.Context, now time.Time) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

// Create returns today's active session for the course, creating one when
// none exists. The second return value reports whether a new row was created.
func (svc *Service) Create(ctx context.Context, courseID string, notifyEmail string) (ClassSession, bool, error) {
	now := NowFunc().UTC()

	if existing, err := svc.repo.GetActiveSession(ctx, courseID, now); err == nil {
		return existing, false, nil
	} else if err != ErrNotFound {
		return ClassSession{}, false, err
	}

	day := now.Truncate(24 * time.Hour)
	sess := ClassSession{
		CourseID:    courseID,
		SessionDate: day,
		ExpiresAt:   endOfDay(day),
		IsActive:    true,
		CreatedAt:   now,
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := generateAccessToken()
		if err != nil {
			return ClassSession{}, false, err
		}
		sess.AccessToken = token

		created, err := svc.repo.CreateSession(ctx, sess)
		if err == ErrTokenExists {
			continue
		}
		if err != nil {
			return ClassSession{}, false, err
		}
		svc.notify(created, notifyEmail)
		return created, true, nil
	}
	return ClassSession{}, false, ErrTokenExists
}

func (svc *Service) GetByID(ctx context.Context, id string) (ClassSession, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *Service) GetActive(ctx context.Context, courseID string) (ClassSession, error) {
	return svc.repo.GetActiveSession(ctx, courseID, NowFunc().UTC())
}

func (svc *Service) Query(ctx context.Context, courseID string) ([]ClassSession, error) {
	return svc.repo.QuerySessions(ctx, courseID)
}

func (svc *Service) SweepExpired(ctx context.Context) error {
	return svc.repo.DeactivateExpired(ctx, NowFunc().UTC())
}

// ResolveToken sweeps expired sessions, then looks a session up by its public
// token. Inactive or expired sessions resolve to ErrNotFound; this is the gate
// every shared link passes through.
func (svc *Service) ResolveToken(ctx context.Context, token string) (ClassSession, error) {
	if err := svc.SweepExpired(ctx); err != nil {
		return ClassSession{}, err
	}

	sess, err := svc.repo.GetSessionByToken(ctx, core.CleanString(token))
	if err != nil {
		return ClassSession{}, err
	}
	if sess.Expired(NowFunc().UTC()) {
		return ClassSession{}, ErrNotFound
	}
	return sess, nil
}

// ShareURL is the student-facing link for a session token.
func (svc *Service) ShareURL(sess ClassSession) string {
	return fmt.Sprintf("%s/class/%s", svc.conf.FrontendBaseURL, sess.AccessToken)
}

func (svc *Service) notify(sess ClassSession, email string) {
	if email == "" || svc.mailSvc == nil {
		return
	}
	url := svc.ShareURL(sess)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: email}},
		Subject: "Today's class feedback link",
		TextContent: fmt.Sprintf(
			"Share this link with your class (expires %s):\n\n%s\n",
			sess.ExpiresAt.Format(time.RFC1123), url,
		),
	})
}

// endOfDay pins expiry to 23:59:59 of the session date, matching the
// "one feedback window per calendar day" rule.
func endOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC)
}
