package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/session"
	emailsvc "github.com/muddyapp/muddy/services/email"
	dummydb "github.com/muddyapp/muddy/storage/database/dummy"
)

var testConf = &core.Config{
	AppName:         "Muddy",
	FrontendBaseURL: "http://localhost:3000",
}

func setup(t *testing.T) (*session.Service, *emailsvc.ConsoleServiceMock) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	mailSvc := emailsvc.NewConsoleServiceMock()
	return session.NewService(dummydb.NewSessionRepository(db), mailSvc, testConf), mailSvc
}

func mockNow(t *testing.T, now time.Time) {
	t.Helper()
	session.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { session.NowFunc = time.Now })
}

func Test_sessionService_Create_idempotentPerDay(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	now := time.Date(2021, 3, 15, 10, 0, 0, 0, time.UTC)
	mockNow(t, now)

	sess, created, err := svc.Create(ctx, "crs1", "")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if !created {
		t.Error("Create() created = false; want true")
	}
	if sess.AccessToken == "" {
		t.Error("Create() returned an empty access token")
	}
	if !sess.IsActive {
		t.Error("Create() returned an inactive session")
	}
	wantExpiry := time.Date(2021, 3, 15, 23, 59, 59, 0, time.UTC)
	if !sess.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v; want %v", sess.ExpiresAt, wantExpiry)
	}

	// a second call the same day reuses the session
	again, created, err := svc.Create(ctx, "crs1", "")
	if err != nil {
		t.Fatalf("Create() again: %v", err)
	}
	if created {
		t.Error("Create() created = true; want false")
	}
	if again.ID != sess.ID || again.AccessToken != sess.AccessToken {
		t.Errorf("Create() returned a different session: %v != %v", again, sess)
	}

	// another course gets its own session
	other, created, err := svc.Create(ctx, "crs2", "")
	if err != nil {
		t.Fatalf("Create() other course: %v", err)
	}
	if !created {
		t.Error("Create() created = false; want true")
	}
	if other.AccessToken == sess.AccessToken {
		t.Error("two courses share an access token")
	}

	// the next day a fresh session is created
	mockNow(t, now.AddDate(0, 0, 1))
	next, created, err := svc.Create(ctx, "crs1", "")
	if err != nil {
		t.Fatalf("Create() next day: %v", err)
	}
	if !created {
		t.Error("Create() created = false; want true")
	}
	if next.ID == sess.ID {
		t.Error("Create() reused yesterday's session")
	}
}

func Test_sessionService_Create_notify(t *testing.T) {
	svc, mailSvc := setup(t)
	ctx := context.Background()

	sess, _, err := svc.Create(ctx, "crs1", "prof@test.cd")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	sent := mailSvc.Sent()
	if len(sent) != 1 {
		t.Fatalf("len(sent) = %d; want 1", len(sent))
	}
	msg := sent[0]
	if msg.To[0].Address != "prof@test.cd" {
		t.Errorf("To = %s; want prof@test.cd", msg.To[0].Address)
	}
	wantURL := "http://localhost:3000/class/" + sess.AccessToken
	if !strings.Contains(msg.TextContent, wantURL) {
		t.Errorf("share URL %q missing from body:\n%s", wantURL, msg.TextContent)
	}

	// reusing the active session does not renotify
	if _, _, err = svc.Create(ctx, "crs1", "prof@test.cd"); err != nil {
		t.Fatalf("Create() again: %v", err)
	}
	if got := len(mailSvc.Sent()); got != 1 {
		t.Errorf("len(sent) = %d; want 1", got)
	}
}

func Test_sessionService_ResolveToken(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	now := time.Date(2021, 3, 15, 10, 0, 0, 0, time.UTC)
	mockNow(t, now)

	sess, _, err := svc.Create(ctx, "crs1", "")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	got, err := svc.ResolveToken(ctx, sess.AccessToken)
	if err != nil {
		t.Fatalf("ResolveToken(): %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("ResolveToken() = %v; want %v", got.ID, sess.ID)
	}

	// whitespace around the token is tolerated
	if _, err = svc.ResolveToken(ctx, "  "+sess.AccessToken+" "); err != nil {
		t.Errorf("ResolveToken() with padding: %v", err)
	}

	if _, err = svc.ResolveToken(ctx, "n0-such-t0ken"); err != session.ErrNotFound {
		t.Errorf("ResolveToken() error = %v; want ErrNotFound", err)
	}

	// past expiry the token goes dark and the sweep deactivates the session
	mockNow(t, now.AddDate(0, 0, 1))
	if _, err = svc.ResolveToken(ctx, sess.AccessToken); err != session.ErrNotFound {
		t.Errorf("ResolveToken() after expiry error = %v; want ErrNotFound", err)
	}
	swept, err := svc.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if swept.IsActive {
		t.Error("expired session still active after sweep")
	}
}

func Test_sessionService_ShareURL(t *testing.T) {
	svc, _ := setup(t)

	url := svc.ShareURL(session.ClassSession{AccessToken: "abc123XYZ-_0"})
	if want := "http://localhost:3000/class/abc123XYZ-_0"; url != want {
		t.Errorf("ShareURL() = %s; want %s", url, want)
	}
}
