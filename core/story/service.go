package story

import (
	"context"
	"errors"
	"time"

	"github.com/muddyapp/muddy/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound       = errors.New("user story not found")
	ErrAlreadyUpvoted = errors.New("already upvoted")
	ErrUpvoteNotFound = errors.New("upvote not found")

	errStoryMerged     = errors.New("story has already been merged")
	errMergeIntoItself = errors.New("cannot merge a story into itself")
)

type (
	Repository interface {
		CreateStory(ctx context.Context, st UserStory) (UserStory, error)
		GetStory(ctx context.Context, id string) (UserStory, error)
		// GetStoryWithStats decorates the story with vote counts relative to
		// callerToken.
		GetStoryWithStats(ctx context.Context, id, callerToken string) (StoryWithStats, error)
		// QueryStories returns unmerged stories, newest first.
		QueryStories(ctx context.Context, callerToken string) ([]StoryWithStats, error)
		UpdateStory(ctx context.Context, st UserStory) (UserStory, error)
		DeleteStory(ctx context.Context, id string) error

		// InsertUpvote is insert-if-absent on (storyID, sessionToken); a
		// duplicate reads as ErrAlreadyUpvoted, backed by the ledger's
		// uniqueness constraint so concurrent double-votes collapse to one row.
		InsertUpvote(ctx context.Context, storyID, sessionToken string) error
		DeleteUpvote(ctx context.Context, storyID, sessionToken string) error

		// MergeStories transfers mergeID's votes to keepID (deduplicated by
		// session token) and marks mergeID merged, in a single transaction.
		MergeStories(ctx context.Context, keepID, mergeID string, now time.Time) (UserStory, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewStory, sessionToken string) (UserStory, error) {
	now := NowFunc().UTC()
	st := UserStory{
		Title:        ns.Title,
		Description:  ns.Description,
		SubmittedBy:  ns.SubmittedBy,
		Impact:       ns.Impact,
		Confidence:   ns.Confidence,
		Ease:         ns.Ease,
		Status:       StatusSubmitted,
		SessionToken: sessionToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateStory(ctx, st)
}

func (svc *Service) GetByID(ctx context.Context, id, callerToken string) (StoryWithStats, error) {
	return svc.repo.GetStoryWithStats(ctx, id, callerToken)
}

func (svc *Service) Query(ctx context.Context, callerToken string) ([]StoryWithStats, error) {
	return svc.repo.QueryStories(ctx, callerToken)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStory) (UserStory, error) {
	orig, err := svc.repo.GetStory(ctx, id)
	if err != nil {
		return UserStory{}, err
	}
	if err := us.Validate(orig); err != nil {
		return UserStory{}, err
	}

	st := orig
	st.Title = us.Title
	st.Description = us.Description
	st.Impact = us.Impact
	st.Confidence = us.Confidence
	st.Ease = us.Ease
	st.Status = us.Status
	st.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateStory(ctx, st)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStory(ctx, id)
}

// Upvote records at most one vote per (story, session token). Merged stories
// take no votes.
func (svc *Service) Upvote(ctx context.Context, storyID, sessionToken string) error {
	st, err := svc.repo.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	if st.IsMerged() {
		return core.NewValidationError(errStoryMerged)
	}
	return svc.repo.InsertUpvote(ctx, storyID, sessionToken)
}

func (svc *Service) RemoveUpvote(ctx context.Context, storyID, sessionToken string) error {
	if _, err := svc.repo.GetStory(ctx, storyID); err != nil {
		return err
	}
	return svc.repo.DeleteUpvote(ctx, storyID, sessionToken)
}

func (svc *Service) checkMergeable(ctx context.Context, keepID, mergeID string) error {
	if keepID == mergeID {
		return core.NewValidationError(errMergeIntoItself,
			core.FieldError{Field: "merge_id", Error: errMergeIntoItself.Error()})
	}

	keep, err := svc.repo.GetStory(ctx, keepID)
	if err != nil {
		return err
	}
	if keep.IsMerged() {
		return core.NewValidationError(errStoryMerged,
			core.FieldError{Field: "keep_id", Error: errStoryMerged.Error()})
	}

	merge, err := svc.repo.GetStory(ctx, mergeID)
	if err != nil {
		return err
	}
	if merge.IsMerged() {
		return core.NewValidationError(errStoryMerged,
			core.FieldError{Field: "merge_id", Error: errStoryMerged.Error()})
	}
	return nil
}

// Merge consolidates two proposals: the surviving story ends with the
// deduplicated union of both vote sets and the merged-away story becomes
// inert, pointing at the survivor. Validation runs through MergeRequest
// before any mutation.
func (svc *Service) Merge(ctx context.Context, mr MergeRequest) (UserStory, error) {
	return svc.repo.MergeStories(ctx, mr.KeepID, mr.MergeID, NowFunc().UTC())
}
