package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muddyapp/muddy/core/story"
)

type storyRepository struct {
	db *storyTable
}

var _ story.Repository = (*storyRepository)(nil) // interface compliance check

func NewStoryRepository(db *DB) *storyRepository {
	return &storyRepository{db: db.story}
}

func (repo *storyRepository) stats(st story.UserStory, callerToken string) story.StoryWithStats {
	var count int
	var hasUpvoted bool
	for key := range repo.db.upvotes {
		parts := strings.SplitN(key, "\x00", 2)
		if parts[0] != st.ID {
			continue
		}
		count++
		if parts[1] == callerToken {
			hasUpvoted = true
		}
	}
	return story.StoryWithStats{
		UserStory:   st,
		UpvoteCount: count,
		HasUpvoted:  hasUpvoted,
		ICEScore:    st.ICEScore(),
	}
}

func (repo *storyRepository) CreateStory(_ context.Context, st story.UserStory) (story.UserStory, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	st.ID = uuid.New().String()
	repo.db.table[st.ID] = &st
	return st, nil
}

func (repo *storyRepository) GetStory(_ context.Context, id string) (story.UserStory, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.table[id]; ok {
		return *st, nil
	}
	return story.UserStory{}, story.ErrNotFound
}

func (repo *storyRepository) GetStoryWithStats(_ context.Context, id, callerToken string) (story.StoryWithStats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	st, ok := repo.db.table[id]
	if !ok {
		return story.StoryWithStats{}, story.ErrNotFound
	}
	return repo.stats(*st, callerToken), nil
}

func (repo *storyRepository) QueryStories(_ context.Context, callerToken string) ([]story.StoryWithStats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stories := make([]story.StoryWithStats, 0)
	for _, st := range repo.db.table {
		if st.IsMerged() {
			continue
		}
		stories = append(stories, repo.stats(*st, callerToken))
	}
	sort.Slice(stories, func(i, j int) bool { return stories[i].CreatedAt.After(stories[j].CreatedAt) })
	return stories, nil
}

func (repo *storyRepository) UpdateStory(_ context.Context, st story.UserStory) (story.UserStory, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[st.ID]
	if !ok {
		return story.UserStory{}, story.ErrNotFound
	}
	orig.Title = st.Title
	orig.Description = st.Description
	orig.Impact = st.Impact
	orig.Confidence = st.Confidence
	orig.Ease = st.Ease
	orig.Status = st.Status
	orig.UpdatedAt = st.UpdatedAt
	return *orig, nil
}

func (repo *storyRepository) DeleteStory(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return story.ErrNotFound
	}
	delete(repo.db.table, id)
	for key := range repo.db.upvotes {
		if strings.HasPrefix(key, id+"\x00") {
			delete(repo.db.upvotes, key)
		}
	}
	return nil
}

func (repo *storyRepository) InsertUpvote(_ context.Context, storyID, sessionToken string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := pairKey(storyID, sessionToken)
	if repo.db.upvotes[key] {
		return story.ErrAlreadyUpvoted
	}
	repo.db.upvotes[key] = true
	return nil
}

func (repo *storyRepository) DeleteUpvote(_ context.Context, storyID, sessionToken string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := pairKey(storyID, sessionToken)
	if !repo.db.upvotes[key] {
		return story.ErrUpvoteNotFound
	}
	delete(repo.db.upvotes, key)
	return nil
}

func (repo *storyRepository) MergeStories(_ context.Context, keepID, mergeID string, now time.Time) (story.UserStory, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	keep, ok := repo.db.table[keepID]
	if !ok {
		return story.UserStory{}, story.ErrNotFound
	}
	merge, ok := repo.db.table[mergeID]
	if !ok {
		return story.UserStory{}, story.ErrNotFound
	}

	for key := range repo.db.upvotes {
		parts := strings.SplitN(key, "\x00", 2)
		if parts[0] != mergeID {
			continue
		}
		repo.db.upvotes[pairKey(keepID, parts[1])] = true
	}

	merge.MergedIntoID = &keep.ID
	merge.UpdatedAt = now
	return *keep, nil
}
