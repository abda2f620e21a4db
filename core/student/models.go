package student

import (
	"classtrack/core"
)

type Student struct {
	RollNo     string `json:"roll_no"`
	Name       string `json:"name"`
	ClassName  string `json:"class_name"`
	Department string `json:"department"`
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	RollNo     string `json:"roll_no" validate:"required,max=20,rollno"`
	Name       string `json:"name" validate:"required,max=100"`
	ClassName  string `json:"class_name" validate:"required,max=50"`
	Department string `json:"department" validate:"required,max=50"`
}

func (ns *NewStudent) Validate(svc *Service) error {
	ns.RollNo = core.CleanString(ns.RollNo)
	ns.Name = core.CleanString(ns.Name)
	ns.ClassName = core.CleanString(ns.ClassName)
	ns.Department = core.CleanString(ns.Department)

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ns.RollNo)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// The roll number is the identity and cannot change.
type UpdateStudent struct {
	Name       string `json:"name" validate:"omitempty,max=100"`
	ClassName  string `json:"class_name" validate:"omitempty,max=50"`
	Department string `json:"department" validate:"omitempty,max=50"`
}

func (us *UpdateStudent) Validate(orig Student) error {
	name := core.CleanString(us.Name)
	if name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}

	class := core.CleanString(us.ClassName)
	if class != "" {
		us.ClassName = class
	} else {
		us.ClassName = orig.ClassName
	}

	dept := core.CleanString(us.Department)
	if dept != "" {
		us.Department = dept
	} else {
		us.Department = orig.Department
	}

	return core.Validate.Struct(us)
}
