package submission

import (
	"time"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/course"
)

// Difficulty levels
const (
	DifficultySlightly   = "slightly"
	DifficultyVery       = "very"
	DifficultyCompletely = "completely"
)

// Submission is one anonymous confusion report. There is no owning user
// entity: IPAddressHash is the only correlation key and is never exposed
// nor reversible without the server secret.
type Submission struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"course_id"`
	SessionID       string    `json:"session_id"`
	Topic           string    `json:"topic"`
	Confusion       string    `json:"confusion"`
	DifficultyLevel string    `json:"difficulty_level"`
	IPAddressHash   string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

type SubmissionWithCourse struct {
	Submission
	Course course.Course `json:"course"`
}

// NewSubmission contains information needed to create a new Submission.
type NewSubmission struct {
	CourseID        string `json:"course_id" validate:"required"`
	SessionID       string `json:"session_id" validate:"required"`
	Topic           string `json:"topic" validate:"required"`
	Confusion       string `json:"confusion" validate:"required"`
	DifficultyLevel string `json:"difficulty_level" validate:"required,oneof=slightly very completely"`
}

func (ns *NewSubmission) Validate() error {
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.SessionID = core.CleanString(ns.SessionID)
	ns.Topic = core.CleanString(ns.Topic)
	ns.Confusion = core.CleanString(ns.Confusion)
	ns.DifficultyLevel = core.CleanString(ns.DifficultyLevel, true /* lower */)
	return core.Validate.Struct(ns)
}

// UpdateSubmission defines the only fields the original submitter may patch.
// Course, session and identity hash are never mutable.
type UpdateSubmission struct {
	Topic           string `json:"topic"`
	Confusion       string `json:"confusion"`
	DifficultyLevel string `json:"difficulty_level" validate:"omitempty,oneof=slightly very completely"`
}

func (us *UpdateSubmission) Validate(orig Submission) error {
	topic := core.CleanString(us.Topic)
	if topic != "" {
		us.Topic = topic
	} else {
		us.Topic = orig.Topic
	}

	confusion := core.CleanString(us.Confusion)
	if confusion != "" {
		us.Confusion = confusion
	} else {
		us.Confusion = orig.Confusion
	}

	level := core.CleanString(us.DifficultyLevel, true /* lower */)
	if level != "" {
		us.DifficultyLevel = level
	} else {
		us.DifficultyLevel = orig.DifficultyLevel
	}

	return core.Validate.Struct(us)
}

type QueryFilter struct {
	CourseID string `query:"course_id"`
	Limit    int    `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.CourseID = core.CleanString(qf.CourseID)
	if qf.Limit <= 0 || qf.Limit > 500 {
		qf.Limit = 50
	}
}

type Stats struct {
	TotalSubmissions  int `json:"total_submissions"`
	ActiveCourses     int `json:"active_courses"`
	RecentSubmissions int `json:"recent_submissions"`
}

// ConfusionPattern aggregates reports by (topic, course) with a
// per-difficulty breakdown.
type ConfusionPattern struct {
	Topic                  string         `json:"topic"`
	Course                 string         `json:"course"` // "Name (CODE)"
	Count                  int            `json:"count"`
	DifficultyDistribution map[string]int `json:"difficulty_distribution"`
}
