package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	. "github.com/muddyapp/muddy/apps/api/echo"
	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/course"
	"github.com/muddyapp/muddy/core/session"
	"github.com/muddyapp/muddy/core/story"
	"github.com/muddyapp/muddy/core/submission"
	emailsvc "github.com/muddyapp/muddy/services/email"
	logsvc "github.com/muddyapp/muddy/services/logger"
	dummydb "github.com/muddyapp/muddy/storage/database/dummy"
)

const staffAccessKey = "staff-key-for-tests"

var (
	conf    *core.Config
	app     Server
	mailSvc *emailsvc.ConsoleServiceMock

	courseSvc     *course.Service
	sessionSvc    *session.Service
	submissionSvc *submission.Service
	storySvc      *story.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	t.Helper()

	keyHash, err := bcrypt.GenerateFromPassword([]byte(staffAccessKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword(): %v", err)
	}
	conf = &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Muddy",
		SecretKey:       "test-secret",
		StaffKeyHash:    string(keyHash),
		FrontendBaseURL: "http://localhost:3000",
		Server:          core.ServerConfig{JWTExpirationDelta: time.Hour},
	}

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	// set up services
	mailSvc = emailsvc.NewConsoleServiceMock()
	courseSvc = course.NewService(dummydb.NewCourseRepository(db))
	sessionSvc = session.NewService(dummydb.NewSessionRepository(db), mailSvc, conf)
	submissionSvc = submission.NewService(
		dummydb.NewSubmissionRepository(db),
		sessionSvc,
		submission.NewIdentityHasher(conf.SecretKey),
	)
	storySvc = story.NewService(dummydb.NewStoryRepository(db))

	// set up server
	app = NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Conf:           conf,
			Logger:         logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags)),
			DisableReqLogs: true,
			CourseSvc:      courseSvc,
			SessionSvc:     sessionSvc,
			SubmissionSvc:  submissionSvc,
			StorySvc:       storySvc,
		},
	)
	return app
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getStaffToken(t *testing.T) string {
	t.Helper()
	token, err := GenerateToken(conf, GetStaffClaims(conf))
	if err != nil {
		t.Fatalf("getStaffToken(): %v", err)
	}
	return token
}

func createCourse(t *testing.T, name, code string) course.Course {
	t.Helper()
	crs, err := courseSvc.Create(context.Background(), course.NewCourse{Name: name, Code: code})
	if err != nil {
		t.Fatalf("createCourse(): %v", err)
	}
	return crs
}

func createSession(t *testing.T, courseID string) session.ClassSession {
	t.Helper()
	sess, _, err := sessionSvc.Create(context.Background(), courseID, "")
	if err != nil {
		t.Fatalf("createSession(): %v", err)
	}
	return sess
}

func createStory(t *testing.T, title string) story.UserStory {
	t.Helper()
	st, err := storySvc.Create(context.Background(), story.NewStory{
		Title:       title,
		Description: "desc",
		Impact:      7,
		Confidence:  5,
		Ease:        3,
	}, "tok-creator")
	if err != nil {
		t.Fatalf("createStory(): %v", err)
	}
	return st
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func decodeObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), obj), "body: %s", rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
