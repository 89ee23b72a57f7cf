package story_test

import (
	"context"
	"testing"
	"time"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/story"
	dummydb "github.com/muddyapp/muddy/storage/database/dummy"
)

func setup(t *testing.T) *story.Service {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	return story.NewService(dummydb.NewStoryRepository(db))
}

func createStory(t *testing.T, svc *story.Service, title string) story.UserStory {
	t.Helper()

	ns := story.NewStory{
		Title:       title,
		Description: "so that students see it was heard",
		Impact:      7,
		Confidence:  5,
		Ease:        3,
	}
	if err := ns.Validate(); err != nil {
		t.Fatalf("NewStory.Validate(): %v", err)
	}
	st, err := svc.Create(context.Background(), ns, "tok-creator")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	return st
}

func Test_storyService_Create(t *testing.T) {
	svc := setup(t)

	st := createStory(t, svc, "Show resolved topics")
	if st.Status != story.StatusSubmitted {
		t.Errorf("Status = %q; want %q", st.Status, story.StatusSubmitted)
	}
	if st.ICEScore() != 15 {
		t.Errorf("ICEScore() = %d; want 15", st.ICEScore())
	}
	if st.IsMerged() {
		t.Error("new story reads as merged")
	}

	got, err := svc.GetByID(context.Background(), st.ID, "tok-creator")
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if got.UpvoteCount != 0 || got.HasUpvoted {
		t.Errorf("fresh story has votes: %+v", got)
	}
	if got.ICEScore != 15 {
		t.Errorf("ICEScore = %d; want 15", got.ICEScore)
	}
}

func Test_storyService_Upvote(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	st := createStory(t, svc, "Show resolved topics")

	if err := svc.Upvote(ctx, st.ID, "tok-a"); err != nil {
		t.Fatalf("Upvote(): %v", err)
	}
	// one vote per token
	if err := svc.Upvote(ctx, st.ID, "tok-a"); err != story.ErrAlreadyUpvoted {
		t.Errorf("Upvote() again error = %v; want ErrAlreadyUpvoted", err)
	}
	if err := svc.Upvote(ctx, st.ID, "tok-b"); err != nil {
		t.Fatalf("Upvote() other token: %v", err)
	}

	got, err := svc.GetByID(ctx, st.ID, "tok-a")
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if got.UpvoteCount != 2 {
		t.Errorf("UpvoteCount = %d; want 2", got.UpvoteCount)
	}
	if !got.HasUpvoted {
		t.Error("HasUpvoted = false for a voter")
	}

	// a second removal errors
	if err := svc.RemoveUpvote(ctx, st.ID, "tok-a"); err != nil {
		t.Fatalf("RemoveUpvote(): %v", err)
	}
	if err := svc.RemoveUpvote(ctx, st.ID, "tok-a"); err != story.ErrUpvoteNotFound {
		t.Errorf("RemoveUpvote() again error = %v; want ErrUpvoteNotFound", err)
	}

	if err := svc.Upvote(ctx, "nope", "tok-a"); err != story.ErrNotFound {
		t.Errorf("Upvote() unknown story error = %v; want ErrNotFound", err)
	}
}

func Test_storyService_Merge(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	keep := createStory(t, svc, "Dark mode")
	merge := createStory(t, svc, "Night theme")

	// overlapping and distinct voters
	for _, tok := range []string{"tok-a", "tok-b"} {
		if err := svc.Upvote(ctx, keep.ID, tok); err != nil {
			t.Fatalf("Upvote(keep, %s): %v", tok, err)
		}
	}
	for _, tok := range []string{"tok-b", "tok-c"} {
		if err := svc.Upvote(ctx, merge.ID, tok); err != nil {
			t.Fatalf("Upvote(merge, %s): %v", tok, err)
		}
	}

	mr := story.MergeRequest{KeepID: keep.ID, MergeID: merge.ID}
	if err := mr.Validate(ctx, svc); err != nil {
		t.Fatalf("MergeRequest.Validate(): %v", err)
	}
	if _, err := svc.Merge(ctx, mr); err != nil {
		t.Fatalf("Merge(): %v", err)
	}

	// the survivor holds the union of both vote sets
	got, err := svc.GetByID(ctx, keep.ID, "tok-c")
	if err != nil {
		t.Fatalf("GetByID(keep): %v", err)
	}
	if got.UpvoteCount != 3 {
		t.Errorf("UpvoteCount = %d; want 3", got.UpvoteCount)
	}
	if !got.HasUpvoted {
		t.Error("transferred vote not attributed to its token")
	}

	// the merged-away story is inert and points at the survivor
	gone, err := svc.GetByID(ctx, merge.ID, "tok-a")
	if err != nil {
		t.Fatalf("GetByID(merge): %v", err)
	}
	if !gone.IsMerged() || *gone.MergedIntoID != keep.ID {
		t.Errorf("MergedIntoID = %v; want %s", gone.MergedIntoID, keep.ID)
	}
	if err := svc.Upvote(ctx, merge.ID, "tok-z"); err == nil {
		t.Error("Upvote() on a merged story succeeded")
	}

	// merged stories drop out of the default listing
	stories, err := svc.Query(ctx, "tok-a")
	if err != nil {
		t.Fatalf("Query(): %v", err)
	}
	for _, st := range stories {
		if st.ID == merge.ID {
			t.Error("merged story still listed")
		}
	}
}

func Test_storyService_Merge_validation(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	keep := createStory(t, svc, "Dark mode")
	merge := createStory(t, svc, "Night theme")
	third := createStory(t, svc, "Black theme")

	mr := story.MergeRequest{KeepID: keep.ID, MergeID: merge.ID}
	if err := mr.Validate(ctx, svc); err != nil {
		t.Fatalf("MergeRequest.Validate(): %v", err)
	}
	if _, err := svc.Merge(ctx, mr); err != nil {
		t.Fatalf("Merge(): %v", err)
	}

	wantValidationErr := func(t *testing.T, mr story.MergeRequest) {
		t.Helper()
		err := mr.Validate(ctx, svc)
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("Validate() error = %v; want *core.ValidationError", err)
		}
	}

	// a story merges at most once, in either role
	wantValidationErr(t, story.MergeRequest{KeepID: third.ID, MergeID: merge.ID})
	wantValidationErr(t, story.MergeRequest{KeepID: merge.ID, MergeID: third.ID})
	// and never into itself
	wantValidationErr(t, story.MergeRequest{KeepID: third.ID, MergeID: third.ID})

	if err := (&story.MergeRequest{KeepID: "nope", MergeID: third.ID}).Validate(ctx, svc); err != story.ErrNotFound {
		t.Errorf("Validate() unknown keep error = %v; want ErrNotFound", err)
	}
}

func Test_storyService_Update(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	before := time.Now().UTC()
	st := createStory(t, svc, "Dark mode")

	got, err := svc.Update(ctx, st.ID, story.UpdateStory{Status: story.StatusAccepted, Impact: 9})
	if err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if got.Status != story.StatusAccepted {
		t.Errorf("Status = %q; want %q", got.Status, story.StatusAccepted)
	}
	if got.Impact != 9 {
		t.Errorf("Impact = %d; want 9", got.Impact)
	}
	// zero scores mean "unchanged"
	if got.Confidence != st.Confidence || got.Ease != st.Ease {
		t.Error("Update() touched scores that were not patched")
	}
	if got.Title != st.Title {
		t.Errorf("Title = %q; want %q", got.Title, st.Title)
	}
	if got.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt = %v not refreshed", got.UpdatedAt)
	}

	if _, err = svc.Update(ctx, st.ID, story.UpdateStory{Status: "lol"}); err == nil {
		t.Error("Update() accepted an unknown status")
	}
}

func Test_storyService_Delete(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	st := createStory(t, svc, "Dark mode")
	if err := svc.Delete(ctx, st.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, err := svc.GetByID(ctx, st.ID, ""); err != story.ErrNotFound {
		t.Errorf("GetByID() after delete error = %v; want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, st.ID); err != story.ErrNotFound {
		t.Errorf("Delete() again error = %v; want ErrNotFound", err)
	}
}
