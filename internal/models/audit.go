package models

import "time"

type AuthEventKind string

const (
	EventRegister       AuthEventKind = "register"
	EventLogin          AuthEventKind = "login"
	EventLogout         AuthEventKind = "logout"
	EventRefresh        AuthEventKind = "refresh"
	EventRefreshReuse   AuthEventKind = "refresh_reuse"
	EventPasswordChange AuthEventKind = "password_change"
	EventPasswordReset  AuthEventKind = "password_reset"
	EventEmailVerified  AuthEventKind = "email_verified"
	EventAccountUpdate  AuthEventKind = "account_update"
)

// AuthEvent is one row of the append-only auth audit trail.
type AuthEvent struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Kind      AuthEventKind `json:"kind"`
	IPAddress string        `json:"ip_address,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
