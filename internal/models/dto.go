package models

// ===== AUTH REQUEST DTOs =====

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileSeed carries the fields merged into the new profile at signup.
// Role must be one of the self-registerable roles; admin cannot self-register.
type ProfileSeed struct {
	Role     UserRole       `json:"role" validate:"required,oneof=student institute company"`
	FullName string         `json:"full_name" validate:"required,min=1,max=100"`
	Payload  map[string]any `json:"payload,omitempty"`
}

type SignupRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	Profile  ProfileSeed `json:"profile" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName *string        `json:"full_name" validate:"omitempty,min=1,max=100"`
	Payload  map[string]any `json:"payload,omitempty"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}
