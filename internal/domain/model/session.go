package model

import "time"

const (
	SessionLogin  = "login"
	SessionLogout = "logout"
)

// SessionEvent announces a login or logout so other open clients of the same
// user can react without polling.
type SessionEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	At        time.Time `json:"at"`
}
