package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/muddyapp/muddy/core/session"
)

type sessionRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	SessionDate time.Time `db:"session_date"`
	AccessToken string    `db:"access_token"`
	ExpiresAt   time.Time `db:"expires_at"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r sessionRow) toCore() session.ClassSession {
	return session.ClassSession{
		ID:          r.ID,
		CourseID:    r.CourseID,
		SessionDate: r.SessionDate.UTC(),
		AccessToken: r.AccessToken,
		ExpiresAt:   r.ExpiresAt.UTC(),
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

const sessionCols = `id, course_id, session_date, access_token, expires_at, is_active, created_at`

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to session.ErrNotFound
func (repo sessionRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return session.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo sessionRepository) CreateSession(ctx context.Context, sess session.ClassSession) (session.ClassSession, error) {
	sess.ID = uuid.New().String()
	query := `INSERT INTO class_sessions (` + sessionCols + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, query,
		sess.ID, sess.CourseID, sess.SessionDate, sess.AccessToken, sess.ExpiresAt, sess.IsActive, sess.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return session.ClassSession{}, session.ErrTokenExists
		}
		return session.ClassSession{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (repo sessionRepository) GetSessionByID(ctx context.Context, id string) (session.ClassSession, error) {
	var row sessionRow
	query := `SELECT ` + sessionCols + ` FROM class_sessions WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return session.ClassSession{}, repo.trapNoRowsErr(err, "getting session")
	}
	return row.toCore(), nil
}

func (repo sessionRepository) GetSessionByToken(ctx context.Context, token string) (session.ClassSession, error) {
	var row sessionRow
	query := `SELECT ` + sessionCols + ` FROM class_sessions WHERE access_token = $1`
	if err := repo.db.GetContext(ctx, &row, query, token); err != nil {
		return session.ClassSession{}, repo.trapNoRowsErr(err, "getting session by token")
	}
	return row.toCore(), nil
}

func (repo sessionRepository) GetActiveSession(ctx context.Context, courseID string, asOf time.Time) (session.ClassSession, error) {
	var row sessionRow
	query := `SELECT ` + sessionCols + ` FROM class_sessions
		WHERE course_id = $1 AND is_active AND expires_at >= $2
		ORDER BY session_date DESC LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, query, courseID, asOf); err != nil {
		return session.ClassSession{}, repo.trapNoRowsErr(err, "getting active session")
	}
	return row.toCore(), nil
}

func (repo sessionRepository) QuerySessions(ctx context.Context, courseID string) ([]session.ClassSession, error) {
	var rows []sessionRow
	query := `SELECT ` + sessionCols + ` FROM class_sessions WHERE course_id = $1 ORDER BY session_date DESC, created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.ClassSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toCore())
	}
	return sessions, nil
}

// DeactivateExpired flips expired sessions inactive and drops their rate-limit
// rows in the same transaction, so stale admission state never outlives the
// session it scoped. Concurrent sweeps are harmless: both statements are
// conditional on expiry.
func (repo sessionRepository) DeactivateExpired(ctx context.Context, now time.Time) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning sweep transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM submission_rate_limits
		WHERE session_id IN (SELECT id FROM class_sessions WHERE expires_at < $1)`, now)
	if err != nil {
		return errors.Wrap(err, "pruning stale rate limits")
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE class_sessions SET is_active = FALSE WHERE is_active AND expires_at < $1`, now)
	if err != nil {
		return errors.Wrap(err, "deactivating expired sessions")
	}

	return errors.Wrap(tx.Commit(), "committing sweep")
}
