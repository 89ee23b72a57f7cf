package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/course"
	"github.com/muddyapp/muddy/core/submission"
)

type submissionRow struct {
	ID              string    `db:"id"`
	CourseID        string    `db:"course_id"`
	SessionID       string    `db:"session_id"`
	Topic           string    `db:"topic"`
	Confusion       string    `db:"confusion"`
	DifficultyLevel string    `db:"difficulty_level"`
	IPAddressHash   string    `db:"ip_address_hash"`
	CreatedAt       time.Time `db:"created_at"`

	CourseName      string    `db:"course_name"`
	CourseCode      string    `db:"course_code"`
	CourseCreatedAt time.Time `db:"course_created_at"`
}

func (r submissionRow) toCore() submission.SubmissionWithCourse {
	return submission.SubmissionWithCourse{
		Submission: submission.Submission{
			ID:              r.ID,
			CourseID:        r.CourseID,
			SessionID:       r.SessionID,
			Topic:           r.Topic,
			Confusion:       r.Confusion,
			DifficultyLevel: r.DifficultyLevel,
			IPAddressHash:   r.IPAddressHash,
			CreatedAt:       r.CreatedAt.UTC(),
		},
		Course: course.Course{
			ID:        r.CourseID,
			Name:      r.CourseName,
			Code:      r.CourseCode,
			CreatedAt: r.CourseCreatedAt.UTC(),
		},
	}
}

const submissionJoinCols = `
	s.id, s.course_id, s.session_id, s.topic, s.confusion, s.difficulty_level, s.ip_address_hash, s.created_at,
	c.name AS course_name, c.code AS course_code, c.created_at AS course_created_at`

// submissionOrderFields whitelists caller-supplied ordering fields.
var submissionOrderFields = map[string]string{
	"created_at":       "s.created_at",
	"topic":            "s.topic",
	"difficulty_level": "s.difficulty_level",
}

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to submission.ErrNotFound
func (repo submissionRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return submission.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	sub.ID = uuid.New().String()
	query := `INSERT INTO submissions (id, course_id, session_id, topic, confusion, difficulty_level, ip_address_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, query,
		sub.ID, sub.CourseID, sub.SessionID, sub.Topic, sub.Confusion, sub.DifficultyLevel, sub.IPAddressHash, sub.CreatedAt)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id string) (submission.SubmissionWithCourse, error) {
	var row submissionRow
	query := `SELECT ` + submissionJoinCols + `
		FROM submissions s JOIN courses c ON c.id = s.course_id
		WHERE s.id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return submission.SubmissionWithCourse{}, repo.trapNoRowsErr(err, "getting submission")
	}
	return row.toCore(), nil
}

func (repo submissionRepository) QuerySubmissions(ctx context.Context, filter submission.QueryFilter, ordering []core.DBOrdering) ([]submission.SubmissionWithCourse, error) {
	query := `SELECT ` + submissionJoinCols + ` FROM submissions s JOIN courses c ON c.id = s.course_id`
	args := make([]interface{}, 0, 2)
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		query += fmt.Sprintf(" WHERE s.course_id = $%d", len(args))
	}

	orderBy := "s.created_at DESC"
	if len(ordering) > 0 {
		clauses := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			col, ok := submissionOrderFields[ord.Field]
			if !ok {
				continue
			}
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
		if len(clauses) > 0 {
			orderBy = clauses[0]
			for _, c := range clauses[1:] {
				orderBy += ", " + c
			}
		}
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY %s LIMIT $%d", orderBy, len(args))

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]submission.SubmissionWithCourse, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toCore())
	}
	return subs, nil
}

func (repo submissionRepository) UpdateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	query := `UPDATE submissions SET topic = $2, confusion = $3, difficulty_level = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, sub.ID, sub.Topic, sub.Confusion, sub.DifficultyLevel)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}
	return sub, nil
}

func (repo submissionRepository) GetRateLimit(ctx context.Context, sessionID, ipAddressHash string) (*submission.RateLimitRecord, error) {
	var rec struct {
		SubmissionCount  int       `db:"submission_count"`
		LastSubmissionAt time.Time `db:"last_submission_at"`
	}
	query := `SELECT submission_count, last_submission_at FROM submission_rate_limits
		WHERE session_id = $1 AND ip_address_hash = $2`
	if err := repo.db.GetContext(ctx, &rec, query, sessionID, ipAddressHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting rate limit")
	}
	return &submission.RateLimitRecord{
		SessionID:        sessionID,
		IPAddressHash:    ipAddressHash,
		SubmissionCount:  rec.SubmissionCount,
		LastSubmissionAt: rec.LastSubmissionAt.UTC(),
	}, nil
}

// UpsertRateLimit is a single atomic insert-or-increment: two simultaneous
// submissions from the same pair cannot both read count=0 and both write
// count=1.
func (repo submissionRepository) UpsertRateLimit(ctx context.Context, sessionID, ipAddressHash string, now time.Time) error {
	query := `INSERT INTO submission_rate_limits (session_id, ip_address_hash, submission_count, last_submission_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (session_id, ip_address_hash) DO UPDATE
		SET submission_count = submission_rate_limits.submission_count + 1, last_submission_at = EXCLUDED.last_submission_at`
	if _, err := repo.db.ExecContext(ctx, query, sessionID, ipAddressHash, now); err != nil {
		return errors.Wrap(err, "upserting rate limit")
	}
	return nil
}

func (repo submissionRepository) SubmissionStats(ctx context.Context, recentSince time.Time) (submission.Stats, error) {
	var stats struct {
		Total         int `db:"total"`
		ActiveCourses int `db:"active_courses"`
		Recent        int `db:"recent"`
	}
	query := `SELECT
		count(*) AS total,
		count(DISTINCT course_id) AS active_courses,
		count(*) FILTER (WHERE created_at >= $1) AS recent
		FROM submissions`
	if err := repo.db.GetContext(ctx, &stats, query, recentSince); err != nil {
		return submission.Stats{}, errors.Wrap(err, "getting submission stats")
	}
	return submission.Stats{
		TotalSubmissions:  stats.Total,
		ActiveCourses:     stats.ActiveCourses,
		RecentSubmissions: stats.Recent,
	}, nil
}

func (repo submissionRepository) ConfusionPatterns(ctx context.Context, since time.Time, limit int) ([]submission.ConfusionPattern, error) {
	var rows []struct {
		Topic           string `db:"topic"`
		CourseName      string `db:"course_name"`
		CourseCode      string `db:"course_code"`
		DifficultyLevel string `db:"difficulty_level"`
		Count           int    `db:"count"`
	}
	query := `SELECT s.topic, c.name AS course_name, c.code AS course_code, s.difficulty_level, count(*) AS count
		FROM submissions s JOIN courses c ON c.id = s.course_id
		WHERE s.created_at >= $1
		GROUP BY s.topic, c.name, c.code, s.difficulty_level
		ORDER BY count DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, errors.Wrap(err, "querying confusion patterns")
	}

	// fold per-difficulty groups into one pattern per (topic, course)
	patterns := make([]submission.ConfusionPattern, 0)
	index := make(map[string]int)
	for _, row := range rows {
		key := row.Topic + "\x00" + row.CourseCode
		i, ok := index[key]
		if !ok {
			i = len(patterns)
			index[key] = i
			patterns = append(patterns, submission.ConfusionPattern{
				Topic:  row.Topic,
				Course: fmt.Sprintf("%s (%s)", row.CourseName, row.CourseCode),
				DifficultyDistribution: map[string]int{
					submission.DifficultySlightly:   0,
					submission.DifficultyVery:       0,
					submission.DifficultyCompletely: 0,
				},
			})
		}
		patterns[i].Count += row.Count
		patterns[i].DifficultyDistribution[row.DifficultyLevel] = row.Count
	}

	sortPatternsByCount(patterns)
	if len(patterns) > limit {
		patterns = patterns[:limit]
	}
	return patterns, nil
}
