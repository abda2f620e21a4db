package user

import (
	"context"
	"errors"

	"classtrack/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		GetUserByRollNo(ctx context.Context, rollNo string) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		SetUserPassword(ctx context.Context, username, password string) error
		// EnsureStudentLogin creates a student login (username = roll number)
		// if none exists yet; reports whether a row was created.
		EnsureStudentLogin(ctx context.Context, rollNo, password string) (bool, error)
	}

	Service struct {
		repo Repository
		conf *core.Config
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf}
}

func (svc *Service) checkUniqueness(username string) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), username); err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Username: nu.Username,
		Password: nu.Password,
		Role:     nu.Role,
		RollNo:   nu.RollNo,
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(username, true /* lower */))
}

func (svc *Service) GetByRollNo(ctx context.Context, rollNo string) (User, error) {
	return svc.repo.GetUserByRollNo(ctx, core.CleanString(rollNo))
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) ResetPassword(ctx context.Context, username, password string) error {
	return svc.repo.SetUserPassword(ctx, core.CleanString(username, true /* lower */), password)
}

// EnsureStudentLogin provisions a login for a student at the configured
// default credential. Safe to call repeatedly; an existing login is left alone.
func (svc *Service) EnsureStudentLogin(ctx context.Context, rollNo string) (bool, error) {
	return svc.repo.EnsureStudentLogin(ctx, core.CleanString(rollNo), svc.conf.DefaultStudentPassword)
}
