package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile is the application-level user record, keyed 1:1 by the identity
// provider's user ID. Role is fixed at creation; Payload carries the
// role-specific fields as a tagged variant (see TypedPayload).
type Profile struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	Role     UserRole `json:"role" gorm:"not null;size:20"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`

	// Role-specific fields, shape depends on Role.
	Payload datatypes.JSON `json:"payload,omitempty"`

	// Mirrored from the provider session at creation time.
	EmailVerified bool `json:"email_verified" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Profile) TableName() string {
	return "profiles"
}

// ===== ROLE-SPECIFIC PAYLOADS =====

type StudentPayload struct {
	InstituteID  string `json:"institute_id,omitempty"`
	Course       string `json:"course,omitempty"`
	Year         int    `json:"year,omitempty"`
	RollNumber   string `json:"roll_number,omitempty"`
	ResumeURL    string `json:"resume_url,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
}

type InstitutePayload struct {
	InstituteName string `json:"institute_name,omitempty"`
	Address       string `json:"address,omitempty"`
	Website       string `json:"website,omitempty"`
	ContactPhone  string `json:"contact_phone,omitempty"`
}

type CompanyPayload struct {
	CompanyName  string `json:"company_name,omitempty"`
	Industry     string `json:"industry,omitempty"`
	Website      string `json:"website,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
}

type AdminPayload struct {
	Designation string `json:"designation,omitempty"`
}

// TypedPayload decodes Payload into the variant matching Role. An unknown
// role is an error, never silently defaulted.
func (p *Profile) TypedPayload() (any, error) {
	var target any
	switch p.Role {
	case RoleStudent:
		target = &StudentPayload{}
	case RoleInstitute:
		target = &InstitutePayload{}
	case RoleCompany:
		target = &CompanyPayload{}
	case RoleAdmin:
		target = &AdminPayload{}
	default:
		return nil, fmt.Errorf("unknown profile role %q", p.Role)
	}

	if len(p.Payload) == 0 {
		return target, nil
	}
	if err := json.Unmarshal(p.Payload, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", p.Role, err)
	}
	return target, nil
}

// MergePayload overlays the given partial payload fields onto the stored
// payload. Only keys present in partial are touched.
func (p *Profile) MergePayload(partial map[string]any) error {
	merged := make(map[string]any)
	if len(p.Payload) > 0 {
		if err := json.Unmarshal(p.Payload, &merged); err != nil {
			return fmt.Errorf("failed to decode stored payload: %w", err)
		}
	}
	for k, v := range partial {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode merged payload: %w", err)
	}
	p.Payload = datatypes.JSON(raw)
	return nil
}
