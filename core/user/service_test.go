package user_test

import (
	"context"
	"testing"

	"classtrack/core"
	"classtrack/core/user"
	"classtrack/storage/database/dummy"
)

func setup(t *testing.T) *user.Service {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	conf := &core.Config{TestMode: true, DefaultStudentPassword: "student123"}
	return user.NewService(dummydb.NewUserRepository(db), conf)
}

func TestService_Create(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	nu := user.NewUser{Username: "hod", Password: "hod123", Role: user.RoleHOD}
	if err := nu.Validate(svc); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	usr, err := svc.Create(ctx, nu)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if usr.ID == 0 || !usr.IsHOD() {
		t.Errorf("Create() = %+v", usr)
	}

	// duplicate usernames are rejected at validation time
	if err := nu.Validate(svc); err == nil {
		t.Error("expected a validation error for a duplicate username")
	}

	// unknown roles never reach storage
	nu = user.NewUser{Username: "x", Password: "x", Role: "JANITOR"}
	if err := nu.Validate(svc); err == nil {
		t.Error("expected a validation error for an unknown role")
	}
}

func TestService_authentication(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	nu := user.NewUser{Username: "faculty1", Password: "faculty123", Role: user.RoleFaculty}
	if _, err := svc.Create(ctx, nu); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	usr, err := svc.GetByUsername(ctx, "Faculty1") // usernames are case-insensitive
	if err != nil {
		t.Fatalf("GetByUsername() failed: %v", err)
	}
	if !usr.CheckPassword("faculty123") {
		t.Error("CheckPassword() rejected the right credential")
	}
	if usr.CheckPassword("wrong") || usr.CheckPassword("") {
		t.Error("CheckPassword() accepted a wrong credential")
	}

	if _, err := svc.GetByUsername(ctx, "ghost"); err != user.ErrNotFound {
		t.Errorf("GetByUsername(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestService_ResetPassword(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, user.NewUser{Username: "hod", Password: "hod123", Role: user.RoleHOD}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := svc.ResetPassword(ctx, "hod", "s3cret"); err != nil {
		t.Fatalf("ResetPassword() failed: %v", err)
	}
	usr, _ := svc.GetByUsername(ctx, "hod")
	if !usr.CheckPassword("s3cret") {
		t.Error("password was not updated")
	}

	if err := svc.ResetPassword(ctx, "ghost", "x"); err != user.ErrNotFound {
		t.Errorf("ResetPassword(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestService_EnsureStudentLogin(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	created, err := svc.EnsureStudentLogin(ctx, "CS-01")
	if err != nil {
		t.Fatalf("EnsureStudentLogin() failed: %v", err)
	}
	if !created {
		t.Error("expected a login to be created")
	}

	usr, err := svc.GetByRollNo(ctx, "CS-01")
	if err != nil {
		t.Fatalf("GetByRollNo() failed: %v", err)
	}
	if !usr.IsStudent() || usr.Username != "CS-01" || !usr.CheckPassword("student123") {
		t.Errorf("provisioned login = %+v", usr)
	}

	// idempotent: a second call leaves the account alone
	if err := svc.ResetPassword(ctx, "cs-01", "changed"); err != nil {
		t.Fatalf("ResetPassword() failed: %v", err)
	}
	created, err = svc.EnsureStudentLogin(ctx, "CS-01")
	if err != nil {
		t.Fatalf("EnsureStudentLogin() failed: %v", err)
	}
	if created {
		t.Error("expected the existing login to be kept")
	}
	usr, _ = svc.GetByRollNo(ctx, "CS-01")
	if !usr.CheckPassword("changed") {
		t.Error("existing login was overwritten")
	}

	// a case-variant roll number resolves to the same login: provisioning it
	// must not mint a second account that lookups could race with
	created, err = svc.EnsureStudentLogin(ctx, "cs-01")
	if err != nil {
		t.Fatalf("EnsureStudentLogin() failed: %v", err)
	}
	if created {
		t.Error("expected the case-variant roll number to reuse the existing login")
	}
}
