package story

import (
	"context"
	"time"

	"github.com/muddyapp/muddy/core"
)

// Workflow labels. Transitions are deliberately unguarded: status is a
// display/workflow marker, not a state machine.
const (
	StatusSubmitted  = "submitted"
	StatusInReview   = "in_review"
	StatusAccepted   = "accepted"
	StatusInProgress = "in_progress"
	StatusOnHold     = "on_hold"
	StatusDone       = "done"
)

var Statuses = []string{
	StatusSubmitted, StatusInReview, StatusAccepted, StatusInProgress, StatusOnHold, StatusDone,
}

// UserStory is a proposed feature scored on Impact, Confidence and Ease
// (1-10 each). A story with MergedIntoID set is permanently inert: it stays
// queryable for audit but is excluded from default listings, takes no votes
// and cannot be merged again.
type UserStory struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	SubmittedBy  string    `json:"submitted_by"`
	Impact       int       `json:"impact"`
	Confidence   int       `json:"confidence"`
	Ease         int       `json:"ease"`
	Status       string    `json:"status"`
	SessionToken string    `json:"-"` // creator's token; hidden so votes cannot be forged
	MergedIntoID *string   `json:"merged_into_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// ICEScore is always derived, never stored: there is no stored copy to drift
// from the displayed value.
func (s UserStory) ICEScore() int {
	return s.Impact + s.Confidence + s.Ease
}

func (s UserStory) IsMerged() bool {
	return s.MergedIntoID != nil
}

// StoryWithStats decorates a story with vote counts relative to a caller.
type StoryWithStats struct {
	UserStory
	UpvoteCount int  `json:"upvote_count"`
	HasUpvoted  bool `json:"has_upvoted"`
	ICEScore    int  `json:"ice_score"`
}

// NewStory contains information needed to create a new UserStory.
type NewStory struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	SubmittedBy string `json:"submitted_by"`
	Impact      int    `json:"impact" validate:"required,min=1,max=10"`
	Confidence  int    `json:"confidence" validate:"required,min=1,max=10"`
	Ease        int    `json:"ease" validate:"required,min=1,max=10"`
}

func (ns *NewStory) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	ns.Description = core.CleanString(ns.Description)
	ns.SubmittedBy = core.CleanString(ns.SubmittedBy)
	return core.Validate.Struct(ns)
}

// UpdateStory defines what information may be provided to modify an existing
// UserStory. Zero scores mean "unchanged".
type UpdateStory struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      int    `json:"impact" validate:"omitempty,min=1,max=10"`
	Confidence  int    `json:"confidence" validate:"omitempty,min=1,max=10"`
	Ease        int    `json:"ease" validate:"omitempty,min=1,max=10"`
	Status      string `json:"status" validate:"omitempty,oneof=submitted in_review accepted in_progress on_hold done"`
}

func (us *UpdateStory) Validate(orig UserStory) error {
	title := core.CleanString(us.Title)
	if title != "" {
		us.Title = title
	} else {
		us.Title = orig.Title
	}

	desc := core.CleanString(us.Description)
	if desc != "" {
		us.Description = desc
	} else {
		us.Description = orig.Description
	}

	if us.Impact == 0 {
		us.Impact = orig.Impact
	}
	if us.Confidence == 0 {
		us.Confidence = orig.Confidence
	}
	if us.Ease == 0 {
		us.Ease = orig.Ease
	}

	status := core.CleanString(us.Status, true /* lower */)
	if status != "" {
		us.Status = status
	} else {
		us.Status = orig.Status
	}

	return core.Validate.Struct(us)
}

// MergeRequest consolidates MergeID's votes into KeepID.
type MergeRequest struct {
	KeepID  string `json:"keep_id" validate:"required"`
	MergeID string `json:"merge_id" validate:"required"`
}

func (mr *MergeRequest) Validate(ctx context.Context, svc *Service) error {
	mr.KeepID = core.CleanString(mr.KeepID)
	mr.MergeID = core.CleanString(mr.MergeID)

	if err := core.Validate.Struct(mr); err != nil {
		return err
	}
	return svc.checkMergeable(ctx, mr.KeepID, mr.MergeID)
}
