package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"

	"classtrack/core"
	"classtrack/core/attendance"
	"classtrack/core/student"
	"classtrack/core/user"
	"classtrack/services/email"
	"classtrack/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})        {}
func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Warning(string, ...interface{})      {}
func (nopLogger) Error(string, error, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{})        {}

var _ core.Logger = (*nopLogger)(nil)

type testServices struct {
	student    *student.Service
	attendance *attendance.Service
	user       *user.Service
	conf       *core.Config
}

func initApp(t *testing.T) (*echo.Echo, testServices) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	conf := &core.Config{
		TestMode:               true,
		AppName:                "ClassTrack",
		SecretKey:              "secret",
		ReportRecipientName:    "Head of Department",
		ReportRecipientAddr:    "hod@localhost",
		FromEmailAddr:          "noreply@localhost",
		DefaultStudentPassword: "student123",
		Server:                 core.ServerConfig{JWTExpirationDelta: 10 * time.Minute},
	}

	svcs := testServices{
		student:    student.NewService(dummydb.NewStudentRepository(db)),
		attendance: attendance.NewService(dummydb.NewAttendanceRepository(db), nopLogger{}),
		user:       user.NewService(dummydb.NewUserRepository(db), conf),
		conf:       conf,
	}

	app := echo.New()
	app.Pre(middleware.RemoveTrailingSlash())
	app.HTTPErrorHandler = NewAppHTTPErrorHandler(nopLogger{}, func() {})

	v1 := app.Group("/v1")
	jwt := ConfigureAuth(conf.AppName, []byte(conf.SecretKey), conf.Server.JWTExpirationDelta)

	RegisterAuthAPI(v1, svcs.user)
	RegisterStudentAPI(v1, jwt, svcs.student, svcs.user)
	RegisterAttendanceAPI(v1, jwt, svcs.attendance, svcs.student, emailsvc.NewConsoleService(conf), conf)
	return app, svcs
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

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createTestUser(t *testing.T, svc *user.Service, username, role, rollNo string) user.User {
	t.Helper()
	usr, err := svc.Create(context.Background(), user.NewUser{
		Username: username,
		Password: username + "123",
		Role:     role,
		RollNo:   rollNo,
	})
	if err != nil {
		t.Fatalf("creating %s user failed: %v", role, err)
	}
	return usr
}

func createTestStudent(t *testing.T, svc *student.Service, rollNo, name, class string) student.Student {
	t.Helper()
	std, err := svc.Create(context.Background(), student.NewStudent{
		RollNo:     rollNo,
		Name:       name,
		ClassName:  class,
		Department: "CSE",
	})
	if err != nil {
		t.Fatalf("creating student %s failed: %v", rollNo, err)
	}
	return std
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
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
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response body failed: %v\nbody: %s", err, rec.Body.String())
	}
}
