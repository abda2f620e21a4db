package user

import (
	"classtrack/core"
)

// Roles. Capability subsets are enforced by the callers (API middleware),
// not inside the engine services.
const (
	RoleHOD     = "HOD"
	RoleFaculty = "FACULTY"
	RoleStudent = "STUDENT"
)

var AllRoles = []string{RoleHOD, RoleFaculty, RoleStudent}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Role     string `json:"role"`
	RollNo   string `json:"roll_no,omitempty"` // set for student accounts only
}

// CheckPassword compares the stored credential with the provided one.
// Credentials are stored and compared in clear text; hardening them is a
// provisioning concern outside this system.
func (u *User) CheckPassword(pwd string) bool {
	return u.Password != "" && u.Password == pwd
}

func (u *User) IsHOD() bool     { return u.Role == RoleHOD }
func (u *User) IsFaculty() bool { return u.Role == RoleFaculty }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to create a login account.
type NewUser struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=HOD FACULTY STUDENT"`
	RollNo   string `json:"roll_no" validate:"omitempty,max=20,rollno"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.RollNo = core.CleanString(nu.RollNo)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Username)
}
