package session

import "time"

// ClassSession is a per-course, per-day, token-addressable feedback window.
// At most one session per course is active (IsActive && now < ExpiresAt)
// at any instant; Service.Create enforces this by returning the existing
// active session instead of inserting a second row.
type ClassSession struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	SessionDate time.Time `json:"session_date"` // day granularity, UTC
	AccessToken string    `json:"access_token"` // opaque, embedded in share URLs/QR codes
	ExpiresAt   time.Time `json:"expires_at"`   // end of SessionDate
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Expired reports whether the session is no longer addressable at `asOf`.
func (cs ClassSession) Expired(asOf time.Time) bool {
	return !cs.IsActive || cs.ExpiresAt.Before(asOf)
}
