package models

// Session is an authenticated identity as reported by the identity provider.
// It is owned exclusively by the auth service; everything else reads it.
type Session struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// AuthState is the point-in-time view of "who is logged in and what is their
// profile". Loading is true only while a resync against the provider is in
// flight; during that window Session and Profile may be stale.
type AuthState struct {
	Session *Session `json:"session,omitempty"`
	Profile *Profile `json:"profile,omitempty"`
	Loading bool     `json:"loading"`
	Error   string   `json:"error,omitempty"`
}

func (s AuthState) Authenticated() bool {
	return s.Session != nil
}
