package handlers

import (
	"context"
	"net/http"
	"testing"

	"classtrack/core/user"
)

func Test_userApi_login(t *testing.T) {
	app, svcs := initApp(t)
	createTestUser(t, svcs.user, "hod", user.RoleHOD, "")
	createTestStudent(t, svcs.student, "CS-01", "Asha Verma", "CSE-1")
	if _, err := svcs.user.EnsureStudentLogin(context.Background(), "CS-01"); err != nil {
		t.Fatalf("EnsureStudentLogin() failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "empty body", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown user", body: marshallObj(t, LoginRequest{Username: "ghost", Password: "x"}),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: "invalid username or password"}),
		},
		{
			name: "wrong password", body: marshallObj(t, LoginRequest{Username: "hod", Password: "nope"}),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: "invalid username or password"}),
		},
		{
			name: "staff login", body: marshallObj(t, LoginRequest{Username: "hod", Password: "hod123"}),
			wantCode: http.StatusOK,
		},
		{
			name: "student login with roll number", body: marshallObj(t, LoginRequest{Username: "CS-01", Password: "student123"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.wantCode == http.StatusOK {
				var res LoginResponse
				decodeBody(t, rec, &res)
				if res.Token == "" {
					t.Error("expected a token")
				}
			}
		})
	}
}
