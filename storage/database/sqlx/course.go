package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/muddyapp/muddy/core/course"
)

type courseRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	CreatedAt time.Time `db:"created_at"`
}

func (r courseRow) toCore() course.Course {
	return course.Course{
		ID:        r.ID,
		Name:      r.Name,
		Code:      r.Code,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...course.Course) error {
	query := `SELECT EXISTS (SELECT 1 FROM courses WHERE lower(code) = lower($1) AND id != ALL($2))`
	ids := make([]string, 0, len(excludedCourses))
	for _, crs := range excludedCourses {
		ids = append(ids, crs.ID)
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, code, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking course code uniqueness")
	}
	if exists {
		return course.ErrCodeExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	query := `INSERT INTO courses (id, name, code, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, query, crs.ID, crs.Name, crs.Code, crs.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	query := `SELECT id, name, code, created_at FROM courses WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course")
	}
	return row.toCore(), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, code string) ([]course.Course, error) {
	var rows []courseRow
	query := `SELECT id, name, code, created_at FROM courses`
	args := make([]interface{}, 0, 1)
	if code != "" {
		query += ` WHERE lower(code) = lower($1)`
		args = append(args, code)
	}
	query += ` ORDER BY name`

	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCore())
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query := `UPDATE courses SET name = $2, code = $3 WHERE id = $1 RETURNING id, name, code, created_at`
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, query, crs.ID, crs.Name, crs.Code); err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, repo.trapNoRowsErr(err, "updating course")
	}
	return row.toCore(), nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}
