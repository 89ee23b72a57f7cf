package submission

import (
	"context"
	"errors"
	"time"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/session"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("submission not found")

	errSessionMismatch = errors.New("session does not belong to this course")
	errSessionClosed   = errors.New("session is not accepting submissions")
)

type (
	Repository interface {
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (SubmissionWithCourse, error)
		// QuerySubmissions joins each submission with its course, newest
		// first unless overridden by `ordering`.
		QuerySubmissions(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]SubmissionWithCourse, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)

		// GetRateLimit returns nil (no error) when the pair has no record.
		GetRateLimit(ctx context.Context, sessionID, ipAddressHash string) (*RateLimitRecord, error)
		// UpsertRateLimit atomically increments the pair's count and stamps
		// `now`, creating the record on first use. Two near-simultaneous
		// submissions from the same pair must not lose an update.
		UpsertRateLimit(ctx context.Context, sessionID, ipAddressHash string, now time.Time) error

		SubmissionStats(ctx context.Context, recentSince time.Time) (Stats, error)
		ConfusionPatterns(ctx context.Context, since time.Time, limit int) ([]ConfusionPattern, error)
	}

	Service struct {
		repo    Repository
		sessSvc *session.Service
		hasher  *IdentityHasher
	}
)

func NewService(repo Repository, sessSvc *session.Service, hasher *IdentityHasher) *Service {
	return &Service{repo: repo, sessSvc: sessSvc, hasher: hasher}
}

// HashIdentity derives the caller's pseudo-identity from its network address.
func (svc *Service) HashIdentity(ipAddress string) string {
	return svc.hasher.Hash(ipAddress)
}

// Create admits and persists a new anonymous submission. All checks resolve
// before any mutation: session addressability, then admission, then the
// insert, then the rate-record upsert.
func (svc *Service) Create(ctx context.Context, ns NewSubmission, ipAddress string) (Submission, error) {
	now := NowFunc().UTC()
	hashedIP := svc.hasher.Hash(ipAddress)

	sess, err := svc.sessSvc.GetByID(ctx, ns.SessionID)
	if err != nil {
		if err == session.ErrNotFound {
			return Submission{}, core.NewValidationError(err,
				core.FieldError{Field: "session_id", Error: err.Error()})
		}
		return Submission{}, err
	}
	if sess.CourseID != ns.CourseID {
		return Submission{}, core.NewValidationError(errSessionMismatch,
			core.FieldError{Field: "session_id", Error: errSessionMismatch.Error()})
	}
	if sess.Expired(now) {
		return Submission{}, core.NewValidationError(errSessionClosed,
			core.FieldError{Field: "session_id", Error: errSessionClosed.Error()})
	}

	rec, err := svc.repo.GetRateLimit(ctx, ns.SessionID, hashedIP)
	if err != nil {
		return Submission{}, err
	}
	if err := checkAdmission(rec, now); err != nil {
		return Submission{}, err
	}

	sub := Submission{
		CourseID:        ns.CourseID,
		SessionID:       ns.SessionID,
		Topic:           ns.Topic,
		Confusion:       ns.Confusion,
		DifficultyLevel: ns.DifficultyLevel,
		IPAddressHash:   hashedIP,
		CreatedAt:       now,
	}
	sub, err = svc.repo.CreateSubmission(ctx, sub)
	if err != nil {
		return Submission{}, err
	}

	if err := svc.repo.UpsertRateLimit(ctx, ns.SessionID, hashedIP, now); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (SubmissionWithCourse, error) {
	return svc.repo.GetSubmission(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]SubmissionWithCourse, error) {
	filter.Clean()
	return svc.repo.QuerySubmissions(ctx, filter, ordering)
}

// Update applies a patch on behalf of the original submitter. Identity is
// re-derived from the caller's current network address; a mismatch reads as
// not-found so ownership cannot be probed. Edits are also refused once the
// submission's session has expired.
func (svc *Service) Update(ctx context.Context, id string, us UpdateSubmission, ipAddress string) (Submission, error) {
	orig, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if orig.IPAddressHash != svc.hasher.Hash(ipAddress) {
		return Submission{}, ErrNotFound
	}

	sess, err := svc.sessSvc.GetByID(ctx, orig.SessionID)
	if err != nil {
		if err == session.ErrNotFound {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	if sess.Expired(NowFunc().UTC()) {
		return Submission{}, ErrNotFound
	}

	if err := us.Validate(orig.Submission); err != nil {
		return Submission{}, err
	}

	sub := orig.Submission
	sub.Topic = us.Topic
	sub.Confusion = us.Confusion
	sub.DifficultyLevel = us.DifficultyLevel
	return svc.repo.UpdateSubmission(ctx, sub)
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	return svc.repo.SubmissionStats(ctx, NowFunc().UTC().AddDate(0, 0, -7))
}

func (svc *Service) Patterns(ctx context.Context, days int) ([]ConfusionPattern, error) {
	if days <= 0 {
		days = 7
	}
	return svc.repo.ConfusionPatterns(ctx, NowFunc().UTC().AddDate(0, 0, -days), 10)
}
