package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/muddyapp/muddy/core/course"
	"github.com/muddyapp/muddy/core/session"
)

func Test_courseApi_courseQuery(t *testing.T) {
	app := setup(t)

	os := createCourse(t, "Operating Systems", "CS301")
	algo := createCourse(t, "Algorithms", "CS201")

	tests := []httpTest{
		{name: "Get all", path: "/api/courses", wantCode: http.StatusOK, wantData: marchallList(t, algo, os)},
		{name: "Filter by code", path: "/api/courses?code=cs201", wantCode: http.StatusOK, wantData: marchallList(t, algo)},
		{name: "Filter by unknown code", path: "/api/courses?code=lol", wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "Retrieve", path: "/api/courses/" + os.ID, wantCode: http.StatusOK, wantData: marchallObj(t, os)},
		{
			name: "Retrieve unknown", path: "/api/courses/nope", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_courseCreate(t *testing.T) {
	app := setup(t)
	createCourse(t, "Operating Systems", "CS301")
	token := getStaffToken(t)

	tests := []httpTest{
		{
			name: "Auth required", body: marchallObj(t, course.NewCourse{Name: "X", Code: "Y"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Fields required", token: token, body: marchallObj(t, course.NewCourse{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required", "code": "this field is required"}),
		},
		{
			name: "Duplicate code", token: token, body: marchallObj(t, course.NewCourse{Name: "Other", Code: "cs301"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": "a course with this code already exists"}),
		},
		{name: "Created", token: token, body: marchallObj(t, course.NewCourse{Name: "Databases", Code: "CS305"}), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/courses", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v\nbody: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var crs course.Course
			decodeObj(t, rec, &crs)
			if crs.ID == "" || crs.Name != "Databases" || crs.Code != "CS305" {
				t.Errorf("created course = %+v", crs)
			}
		})
	}
}

func Test_courseApi_courseUpdateDestroy(t *testing.T) {
	app := setup(t)
	crs := createCourse(t, "Operating Systems", "CS301")
	token := getStaffToken(t)

	req, rec := newAuthRequest(http.MethodPut, "/api/courses/"+crs.ID, token,
		marchallObj(t, course.UpdateCourse{Name: "Operating Systems II"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update code = %v\nbody: %s", rec.Code, rec.Body.String())
	}
	var got course.Course
	decodeObj(t, rec, &got)
	if got.Name != "Operating Systems II" || got.Code != "CS301" {
		t.Errorf("updated course = %+v", got)
	}

	req, rec = newAuthRequest(http.MethodDelete, "/api/courses/"+crs.ID, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete code = %v", rec.Code)
	}

	req, rec = newRequest(http.MethodGet, "/api/courses/"+crs.ID)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("retrieve after delete code = %v; want 404", rec.Code)
	}
}

func Test_courseApi_sessionCreate(t *testing.T) {
	app := setup(t)
	crs := createCourse(t, "Operating Systems", "CS301")
	token := getStaffToken(t)

	type sessionResponse struct {
		Session  session.ClassSession `json:"session"`
		ShareURL string               `json:"share_url"`
	}

	// first call creates today's window
	req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/sessions", token,
		marchallObj(t, map[string]string{"notify_email": "prof@test.cd"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want 201\nbody: %s", rec.Code, rec.Body.String())
	}
	var res sessionResponse
	decodeObj(t, rec, &res)
	if res.Session.AccessToken == "" || !res.Session.IsActive {
		t.Errorf("session = %+v", res.Session)
	}
	if !strings.HasSuffix(res.ShareURL, "/class/"+res.Session.AccessToken) {
		t.Errorf("share_url = %s", res.ShareURL)
	}
	if got := len(mailSvc.Sent()); got != 1 {
		t.Errorf("len(sent emails) = %d; want 1", got)
	}

	// a second call the same day reuses it
	req, rec = newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/sessions", token, marchallObj(t, struct{}{}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var again sessionResponse
	decodeObj(t, rec, &again)
	if again.Session.ID != res.Session.ID {
		t.Errorf("session.ID = %s; want %s", again.Session.ID, res.Session.ID)
	}

	// invalid notify email
	req, rec = newAuthRequest(http.MethodPost, "/api/courses/"+crs.ID+"/sessions", token,
		marchallObj(t, map[string]string{"notify_email": "lol"}))
	app.ServeHTTP(rec, req)
	tt := httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"notify_email": "notify_email must be a valid email address"}),
	}
	checkCodeAndData(t, tt, rec)

	// unknown course
	req, rec = newAuthRequest(http.MethodPost, "/api/courses/nope/sessions", token, marchallObj(t, struct{}{}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %v; want 404", rec.Code)
	}
}

func Test_courseApi_sessionQuery(t *testing.T) {
	app := setup(t)
	crs := createCourse(t, "Operating Systems", "CS301")
	sess := createSession(t, crs.ID)
	token := getStaffToken(t)

	req, rec := newAuthRequest(http.MethodGet, "/api/courses/"+crs.ID+"/sessions", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v\nbody: %s", rec.Code, rec.Body.String())
	}
	var sessions []session.ClassSession
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != sess.ID {
		t.Errorf("sessions = %+v; want [%s]", sessions, sess.ID)
	}

	// history is staff-only
	req, rec = newRequest(http.MethodGet, "/api/courses/"+crs.ID+"/sessions")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthed code = %v; want 401", rec.Code)
	}
}
