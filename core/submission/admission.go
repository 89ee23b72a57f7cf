package submission

import (
	"fmt"
	"time"
)

// Admission policy: a blunt anti-spam control for an unauthenticated surface.
// Scoped per session, so it naturally resets each day.
const (
	MaxPerSession      = 3
	SubmissionCooldown = 15 * time.Minute
)

// RateLimitRecord tracks submissions for one (session, hashed IP) pair.
// SubmissionCount only ever grows within a session's lifetime.
type RateLimitRecord struct {
	SessionID        string
	IPAddressHash    string
	SubmissionCount  int
	LastSubmissionAt time.Time
}

// AdmissionDeniedError rejects a submission with a human-readable reason.
type AdmissionDeniedError struct {
	Reason string
}

func (err AdmissionDeniedError) Error() string {
	return err.Reason
}

// checkAdmission decides whether a new submission is allowed given the pair's
// rate record (nil when the pair has not submitted yet). The count cap is
// checked before the cooldown: a 4th attempt is denied regardless of elapsed
// time.
func checkAdmission(rec *RateLimitRecord, now time.Time) error {
	if rec == nil {
		return nil
	}

	if rec.SubmissionCount >= MaxPerSession {
		return &AdmissionDeniedError{
			Reason: fmt.Sprintf("Maximum of %d submissions allowed per session", MaxPerSession),
		}
	}

	if elapsed := now.Sub(rec.LastSubmissionAt); elapsed < SubmissionCooldown {
		remaining := SubmissionCooldown - elapsed
		minutes := int((remaining + time.Minute - 1) / time.Minute) // ceil
		return &AdmissionDeniedError{
			Reason: fmt.Sprintf("Please wait %d more minutes before submitting again", minutes),
		}
	}

	return nil
}
