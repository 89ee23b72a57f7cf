package dummydb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/course"
	"github.com/muddyapp/muddy/core/submission"
)

type submissionRepository struct {
	db      *submissionTable
	courses *courseTable
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db.submission, courses: db.course}
}

func (repo *submissionRepository) getCourse(id string) course.Course {
	repo.courses.RLock()
	defer repo.courses.RUnlock()
	if crs, ok := repo.courses.table[id]; ok {
		return *crs
	}
	return course.Course{ID: id}
}

func (repo *submissionRepository) CreateSubmission(_ context.Context, sub submission.Submission) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub.ID = uuid.New().String()
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) GetSubmission(_ context.Context, id string) (submission.SubmissionWithCourse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return submission.SubmissionWithCourse{}, submission.ErrNotFound
	}
	return submission.SubmissionWithCourse{Submission: *sub, Course: repo.getCourse(sub.CourseID)}, nil
}

func (repo *submissionRepository) QuerySubmissions(_ context.Context, filter submission.QueryFilter, _ []core.DBOrdering) ([]submission.SubmissionWithCourse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]submission.SubmissionWithCourse, 0)
	for _, sub := range repo.db.table {
		if filter.CourseID != "" && sub.CourseID != filter.CourseID {
			continue
		}
		subs = append(subs, submission.SubmissionWithCourse{Submission: *sub, Course: repo.getCourse(sub.CourseID)})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	if filter.Limit > 0 && len(subs) > filter.Limit {
		subs = subs[:filter.Limit]
	}
	return subs, nil
}

func (repo *submissionRepository) UpdateSubmission(_ context.Context, sub submission.Submission) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[sub.ID]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	orig.Topic = sub.Topic
	orig.Confusion = sub.Confusion
	orig.DifficultyLevel = sub.DifficultyLevel
	return *orig, nil
}

func (repo *submissionRepository) GetRateLimit(_ context.Context, sessionID, ipAddressHash string) (*submission.RateLimitRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.rates[pairKey(sessionID, ipAddressHash)]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (repo *submissionRepository) UpsertRateLimit(_ context.Context, sessionID, ipAddressHash string, now time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := pairKey(sessionID, ipAddressHash)
	if rec, ok := repo.db.rates[key]; ok {
		rec.SubmissionCount++
		rec.LastSubmissionAt = now
		return nil
	}
	repo.db.rates[key] = &submission.RateLimitRecord{
		SessionID:        sessionID,
		IPAddressHash:    ipAddressHash,
		SubmissionCount:  1,
		LastSubmissionAt: now,
	}
	return nil
}

func (repo *submissionRepository) SubmissionStats(_ context.Context, recentSince time.Time) (submission.Stats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var stats submission.Stats
	seen := make(map[string]bool)
	for _, sub := range repo.db.table {
		stats.TotalSubmissions++
		if !sub.CreatedAt.Before(recentSince) {
			stats.RecentSubmissions++
		}
		seen[sub.CourseID] = true
	}
	stats.ActiveCourses = len(seen)
	return stats, nil
}

func (repo *submissionRepository) ConfusionPatterns(_ context.Context, since time.Time, limit int) ([]submission.ConfusionPattern, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	patterns := make([]submission.ConfusionPattern, 0)
	index := make(map[string]int)
	for _, sub := range repo.db.table {
		if sub.CreatedAt.Before(since) {
			continue
		}
		crs := repo.getCourse(sub.CourseID)
		key := pairKey(sub.Topic, crs.Code)
		i, ok := index[key]
		if !ok {
			i = len(patterns)
			index[key] = i
			patterns = append(patterns, submission.ConfusionPattern{
				Topic:  sub.Topic,
				Course: fmt.Sprintf("%s (%s)", crs.Name, crs.Code),
				DifficultyDistribution: map[string]int{
					submission.DifficultySlightly:   0,
					submission.DifficultyVery:       0,
					submission.DifficultyCompletely: 0,
				},
			})
		}
		patterns[i].Count++
		patterns[i].DifficultyDistribution[sub.DifficultyLevel]++
	}

	sort.SliceStable(patterns, func(i, j int) bool { return patterns[i].Count > patterns[j].Count })
	if len(patterns) > limit {
		patterns = patterns[:limit]
	}
	return patterns, nil
}
