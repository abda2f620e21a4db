package handlers

import (
	"context"
	"net/http"
	"testing"

	"classtrack/core/student"
	"classtrack/core/user"
)

func Test_studentApi_create(t *testing.T) {
	app, svcs := initApp(t)

	hod := createTestUser(t, svcs.user, "hod", user.RoleHOD, "")
	faculty := createTestUser(t, svcs.user, "faculty1", user.RoleFaculty, "")
	studentUsr := createTestUser(t, svcs.user, "CS-99", user.RoleStudent, "CS-99")

	body := marshallObj(t, student.NewStudent{
		RollNo: "CS-01", Name: "Asha Verma", ClassName: "CSE-1", Department: "CSE",
	})

	tests := []httpTest{
		{name: "no token", body: body, wantCode: http.StatusBadRequest, wantData: marshallObj(t, errMissingToken)},
		{name: "student forbidden", body: body, token: getToken(t, studentUsr), wantCode: http.StatusForbidden},
		{name: "faculty forbidden", body: body, token: getToken(t, faculty), wantCode: http.StatusForbidden},
		{name: "hod creates", body: body, token: getToken(t, hod), wantCode: http.StatusCreated},
		{name: "duplicate roll number", body: body, token: getToken(t, hod), wantCode: http.StatusBadRequest},
		{
			name:     "malformed roll number",
			body:     marshallObj(t, student.NewStudent{RollNo: "CS 01!", Name: "X", ClassName: "CSE-1", Department: "CSE"}),
			token:    getToken(t, hod),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/students", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// registering a student provisions their login (username = roll number)
	usr, err := svcs.user.GetByRollNo(context.Background(), "CS-01")
	if err != nil {
		t.Fatalf("GetByRollNo() failed: %v", err)
	}
	if !usr.IsStudent() || !usr.CheckPassword(svcs.conf.DefaultStudentPassword) {
		t.Errorf("provisioned login = %+v", usr)
	}
}

func Test_studentApi_query(t *testing.T) {
	app, svcs := initApp(t)

	faculty := createTestUser(t, svcs.user, "faculty1", user.RoleFaculty, "")
	cs01 := createTestStudent(t, svcs.student, "CS-01", "Asha Verma", "CSE-1")
	cs02 := createTestStudent(t, svcs.student, "CS-02", "Vikram Rao", "CSE-1")
	ee01 := createTestStudent(t, svcs.student, "EE-01", "Meera Nair", "EEE-1")
	token := getToken(t, faculty)

	tests := []httpTest{
		{
			name: "all students", path: "/v1/students",
			wantCode: http.StatusOK, wantData: marshallObj(t, []student.Student{cs01, cs02, ee01}),
		},
		{
			name: "by class", path: "/v1/students?class=CSE-1",
			wantCode: http.StatusOK, wantData: marshallObj(t, []student.Student{cs01, cs02}),
		},
		{
			name: "search by name", path: "/v1/students?search=meera",
			wantCode: http.StatusOK, wantData: marshallObj(t, []student.Student{ee01}),
		},
		{
			name: "search no match", path: "/v1/students?search=zzz",
			wantCode: http.StatusOK, wantData: marshallObj(t, []student.Student{}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_retrieve(t *testing.T) {
	app, svcs := initApp(t)

	faculty := createTestUser(t, svcs.user, "faculty1", user.RoleFaculty, "")
	selfUsr := createTestUser(t, svcs.user, "CS-01", user.RoleStudent, "CS-01")
	otherUsr := createTestUser(t, svcs.user, "CS-02", user.RoleStudent, "CS-02")
	cs01 := createTestStudent(t, svcs.student, "CS-01", "Asha Verma", "CSE-1")
	createTestStudent(t, svcs.student, "CS-02", "Vikram Rao", "CSE-1")

	tests := []httpTest{
		{
			name: "staff reads anyone", token: getToken(t, faculty),
			wantCode: http.StatusOK, wantData: marshallObj(t, cs01),
		},
		{
			name: "student reads own record", token: getToken(t, selfUsr),
			wantCode: http.StatusOK, wantData: marshallObj(t, cs01),
		},
		{
			name: "student cannot read others", token: getToken(t, otherUsr),
			wantCode: http.StatusForbidden,
		},
		{
			name: "unknown student", token: getToken(t, faculty), path: "/v1/students/GHOST",
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path == "" {
				path = "/v1/students/CS-01"
			}
			req, rec := newAuthRequest(http.MethodGet, path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_updateAndDestroy(t *testing.T) {
	app, svcs := initApp(t)

	hod := createTestUser(t, svcs.user, "hod", user.RoleHOD, "")
	createTestStudent(t, svcs.student, "CS-01", "Asha Verma", "CSE-1")
	token := getToken(t, hod)

	// partial update keeps unspecified fields
	body := marshallObj(t, student.UpdateStudent{ClassName: "CSE-2"})
	req, rec := newAuthRequest(http.MethodPut, "/v1/students/CS-01", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update code = %v; body %s", rec.Code, rec.Body.String())
	}
	var std student.Student
	decodeBody(t, rec, &std)
	if std.Name != "Asha Verma" || std.ClassName != "CSE-2" {
		t.Errorf("update = %+v", std)
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/students/CS-01", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete code = %v; body %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/students/CS-01", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete code = %v, want 404", rec.Code)
	}
}
