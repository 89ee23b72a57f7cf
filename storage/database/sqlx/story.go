package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/muddyapp/muddy/core/story"
)

type storyRow struct {
	ID           string      `db:"id"`
	Title        string      `db:"title"`
	Description  string      `db:"description"`
	SubmittedBy  string      `db:"submitted_by"`
	Impact       int         `db:"impact"`
	Confidence   int         `db:"confidence"`
	Ease         int         `db:"ease"`
	Status       string      `db:"status"`
	SessionToken string      `db:"session_token"`
	MergedIntoID null.String `db:"merged_into_id"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r storyRow) toCore() story.UserStory {
	return story.UserStory{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		SubmittedBy:  r.SubmittedBy,
		Impact:       r.Impact,
		Confidence:   r.Confidence,
		Ease:         r.Ease,
		Status:       r.Status,
		SessionToken: r.SessionToken,
		MergedIntoID: r.MergedIntoID.Ptr(),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type storyStatsRow struct {
	storyRow
	UpvoteCount int  `db:"upvote_count"`
	HasUpvoted  bool `db:"has_upvoted"`
}

func (r storyStatsRow) toCore() story.StoryWithStats {
	st := r.storyRow.toCore()
	return story.StoryWithStats{
		UserStory:   st,
		UpvoteCount: r.UpvoteCount,
		HasUpvoted:  r.HasUpvoted,
		ICEScore:    st.ICEScore(),
	}
}

const storyCols = `id, title, description, submitted_by, impact, confidence, ease, status, session_token, merged_into_id, created_at, updated_at`

const storyStatsQuery = `SELECT
	st.id, st.title, st.description, st.submitted_by, st.impact, st.confidence, st.ease,
	st.status, st.session_token, st.merged_into_id, st.created_at, st.updated_at,
	count(uv.id) AS upvote_count,
	bool_or(uv.session_token = $1) IS TRUE AS has_upvoted
	FROM user_stories st
	LEFT JOIN user_story_upvotes uv ON uv.user_story_id = st.id`

type storyRepository struct {
	db *sqlx.DB
}

var _ story.Repository = (*storyRepository)(nil) // interface compliance check

func NewStoryRepository(db *sqlx.DB) *storyRepository {
	return &storyRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to story.ErrNotFound
func (repo storyRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return story.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo storyRepository) CreateStory(ctx context.Context, st story.UserStory) (story.UserStory, error) {
	st.ID = uuid.New().String()
	query := `INSERT INTO user_stories (` + storyCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := repo.db.ExecContext(ctx, query,
		st.ID, st.Title, st.Description, st.SubmittedBy, st.Impact, st.Confidence, st.Ease,
		st.Status, st.SessionToken, null.StringFromPtr(st.MergedIntoID), st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return story.UserStory{}, errors.Wrap(err, "inserting user story")
	}
	return st, nil
}

func (repo storyRepository) GetStory(ctx context.Context, id string) (story.UserStory, error) {
	var row storyRow
	query := `SELECT ` + storyCols + ` FROM user_stories WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return story.UserStory{}, repo.trapNoRowsErr(err, "getting user story")
	}
	return row.toCore(), nil
}

func (repo storyRepository) GetStoryWithStats(ctx context.Context, id, callerToken string) (story.StoryWithStats, error) {
	var row storyStatsRow
	query := storyStatsQuery + ` WHERE st.id = $2 GROUP BY st.id`
	if err := repo.db.GetContext(ctx, &row, query, callerToken, id); err != nil {
		return story.StoryWithStats{}, repo.trapNoRowsErr(err, "getting user story stats")
	}
	return row.toCore(), nil
}

func (repo storyRepository) QueryStories(ctx context.Context, callerToken string) ([]story.StoryWithStats, error) {
	var rows []storyStatsRow
	query := storyStatsQuery + ` WHERE st.merged_into_id IS NULL GROUP BY st.id ORDER BY st.created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, callerToken); err != nil {
		return nil, errors.Wrap(err, "querying user stories")
	}
	stories := make([]story.StoryWithStats, 0, len(rows))
	for _, row := range rows {
		stories = append(stories, row.toCore())
	}
	return stories, nil
}

func (repo storyRepository) UpdateStory(ctx context.Context, st story.UserStory) (story.UserStory, error) {
	query := `UPDATE user_stories
		SET title = $2, description = $3, impact = $4, confidence = $5, ease = $6, status = $7, updated_at = $8
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		st.ID, st.Title, st.Description, st.Impact, st.Confidence, st.Ease, st.Status, st.UpdatedAt)
	if err != nil {
		return story.UserStory{}, errors.Wrap(err, "updating user story")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return story.UserStory{}, story.ErrNotFound
	}
	return st, nil
}

func (repo storyRepository) DeleteStory(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM user_stories WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user story")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return story.ErrNotFound
	}
	return nil
}

func (repo storyRepository) InsertUpvote(ctx context.Context, storyID, sessionToken string) error {
	query := `INSERT INTO user_story_upvotes (id, user_story_id, session_token)
		VALUES ($1, $2, $3) ON CONFLICT (user_story_id, session_token) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query, uuid.New().String(), storyID, sessionToken)
	if err != nil {
		return errors.Wrap(err, "inserting upvote")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return story.ErrAlreadyUpvoted
	}
	return nil
}

func (repo storyRepository) DeleteUpvote(ctx context.Context, storyID, sessionToken string) error {
	query := `DELETE FROM user_story_upvotes WHERE user_story_id = $1 AND session_token = $2`
	res, err := repo.db.ExecContext(ctx, query, storyID, sessionToken)
	if err != nil {
		return errors.Wrap(err, "deleting upvote")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return story.ErrUpvoteNotFound
	}
	return nil
}

// MergeStories runs the vote transfer and the merged_into_id write in one
// transaction: a crash mid-merge cannot leave votes half-transferred.
func (repo storyRepository) MergeStories(ctx context.Context, keepID, mergeID string, now time.Time) (story.UserStory, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return story.UserStory{}, errors.Wrap(err, "beginning merge transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// copy votes the surviving story does not already have
	var tokens []string
	err = tx.SelectContext(ctx, &tokens, `
		SELECT session_token FROM user_story_upvotes
		WHERE user_story_id = $1
		AND session_token NOT IN (SELECT session_token FROM user_story_upvotes WHERE user_story_id = $2)`,
		mergeID, keepID)
	if err != nil {
		return story.UserStory{}, errors.Wrap(err, "selecting votes to transfer")
	}
	for _, token := range tokens {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_story_upvotes (id, user_story_id, session_token)
			VALUES ($1, $2, $3) ON CONFLICT (user_story_id, session_token) DO NOTHING`,
			uuid.New().String(), keepID, token)
		if err != nil {
			return story.UserStory{}, errors.Wrap(err, "transferring vote")
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE user_stories SET merged_into_id = $2, updated_at = $3 WHERE id = $1 AND merged_into_id IS NULL`,
		mergeID, keepID, now)
	if err != nil {
		return story.UserStory{}, errors.Wrap(err, "marking story merged")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return story.UserStory{}, story.ErrNotFound
	}

	var row storyRow
	if err = tx.GetContext(ctx, &row, `SELECT `+storyCols+` FROM user_stories WHERE id = $1`, keepID); err != nil {
		return story.UserStory{}, repo.trapNoRowsErr(err, "getting surviving story")
	}

	if err = tx.Commit(); err != nil {
		return story.UserStory{}, errors.Wrap(err, "committing merge")
	}
	return row.toCore(), nil
}
