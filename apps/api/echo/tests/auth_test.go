package tests

import (
	"net/http"
	"testing"

	echoapi "github.com/muddyapp/muddy/apps/api/echo"
)

func Test_authApi_staffLogin(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name: "Access key required", method: http.MethodPost, path: "/api/auth/staff",
			body: marchallObj(t, echoapi.StaffLoginRequest{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"access_key": "this field is required"}),
		},
		{
			name: "Wrong key", method: http.MethodPost, path: "/api/auth/staff",
			body:     marchallObj(t, echoapi.StaffLoginRequest{AccessKey: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Right key", method: http.MethodPost, path: "/api/auth/staff",
			body:     marchallObj(t, echoapi.StaffLoginRequest{AccessKey: staffAccessKey}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v", rec.Code, tt.wantCode)
			}

			var res echoapi.StaffLoginResponse
			decodeObj(t, rec, &res)
			if res.Token == "" {
				t.Fatal("login returned an empty token")
			}

			// the token opens a staff-only endpoint
			req, rec = newAuthRequest(http.MethodPost, "/api/courses", res.Token,
				marchallObj(t, map[string]string{"name": "Operating Systems", "code": "CS301"}))
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusCreated {
				t.Errorf("staff endpoint code = %v; want %v\nbody: %s", rec.Code, http.StatusCreated, rec.Body.String())
			}
		})
	}
}

func Test_authApi_staffMiddleware(t *testing.T) {
	app := setup(t)

	// a signed token without the staff claim is rejected
	claims := echoapi.GetStaffClaims(conf)
	claims.IsStaff = false
	token, err := echoapi.GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/api/courses",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Staff required", method: http.MethodPost, path: "/api/courses", token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
