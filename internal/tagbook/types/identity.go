package types

// Role is the closed set of person kinds a UID can belong to.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Employee reports whether taps for this role follow the hour-split path.
func (r Role) Employee() bool {
	return r == RoleTeacher || r == RoleStaff || r == RoleAdmin
}

type Identity struct {
	UID         string `json:"uid" yaml:"uid" validate:"required,max=64"`
	PersonID    string `json:"person_id" yaml:"person_id" validate:"required,max=64"`
	Role        Role   `json:"role" yaml:"role" validate:"required,oneof=student teacher staff admin"`
	DisplayName string `json:"display_name" yaml:"display_name" validate:"max=128"`
}

type RegisterIdentityRequest struct {
	Identity
	// Force replaces an identity that already has taps against it.
	Force bool `json:"force,omitempty"`
}
