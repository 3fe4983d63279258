package models

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleInstitute UserRole = "institute"
	RoleStudent   UserRole = "student"
	RoleCompany   UserRole = "company"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstitute, RoleStudent, RoleCompany:
		return true
	}
	return false
}

// CanSelfRegister reports whether the role can be chosen at signup.
// Admin accounts are provisioned out of band and never self-register.
func (r UserRole) CanSelfRegister() bool {
	switch r {
	case RoleInstitute, RoleStudent, RoleCompany:
		return true
	}
	return false
}

// User is the directory view of an identity-provider account, used by the
// admin subtree for lookups. It mirrors provider state and is never written
// back by this service.
type User struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`

	AvatarURL *string `json:"avatar_url,omitempty"`

	EmailVerified bool `json:"email_verified"`
}
