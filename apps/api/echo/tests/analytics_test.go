package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/muddyapp/muddy/core/submission"
)

func Test_analyticsApi(t *testing.T) {
	app := setup(t)
	crs := createCourse(t, "Operating Systems", "CS301")
	sess := createSession(t, crs.ID)

	// two reports on the same topic from distinct callers
	for _, tc := range []struct{ ip, level string }{
		{"41.243.11.21", submission.DifficultyVery},
		{"41.243.11.22", submission.DifficultySlightly},
	} {
		body := submissionBody(crs.ID, sess.ID)
		body["difficulty_level"] = tc.level
		req, rec := newSubmissionRequest(t, http.MethodPost, "/api/submissions", tc.ip, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed code = %v\nbody: %s", rec.Code, rec.Body.String())
		}
	}

	t.Run("stats", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/analytics/stats")
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, submission.Stats{
				TotalSubmissions:  2,
				ActiveCourses:     1,
				RecentSubmissions: 2,
			}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("confusion patterns", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/analytics/confusion-patterns?days=30")
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v\nbody: %s", rec.Code, rec.Body.String())
		}
		var patterns []submission.ConfusionPattern
		if err := json.Unmarshal(rec.Body.Bytes(), &patterns); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		if len(patterns) != 1 {
			t.Fatalf("len(patterns) = %d; want 1", len(patterns))
		}
		p := patterns[0]
		if p.Topic != "Recursion" || p.Course != "Operating Systems (CS301)" || p.Count != 2 {
			t.Errorf("pattern = %+v", p)
		}
		if p.DifficultyDistribution[submission.DifficultyVery] != 1 ||
			p.DifficultyDistribution[submission.DifficultySlightly] != 1 {
			t.Errorf("distribution = %+v", p.DifficultyDistribution)
		}
	})
}
