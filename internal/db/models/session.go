// Package models - session.go defines login sessions tracked per front-end.
package models

import "time"

// Session types
const (
	SessionTypeAdmin = "admin"
	SessionTypeMain  = "main"
	SessionTypeWeb   = "web"
)

// Session is a login session. It is created at login and mutated exactly once
// when it ends; LogoutTime and DurationSeconds stay nil while it is active.
type Session struct {
	SessionID       string     `db:"session_id" json:"session_id"`
	UserID          string     `db:"user_id" json:"user_id"`
	SessionType     string     `db:"session_type" json:"session_type"`
	IPAddress       string     `db:"ip_address" json:"ip_address"`
	UserAgent       string     `db:"user_agent" json:"user_agent"`
	DeviceType      string     `db:"device_type" json:"device_type"`
	Browser         string     `db:"browser" json:"browser"`
	OS              string     `db:"os" json:"os"`
	LoginTime       time.Time  `db:"login_time" json:"login_time"`
	LogoutTime      *time.Time `db:"logout_time" json:"logout_time"`
	DurationSeconds *int64     `db:"duration_seconds" json:"duration_seconds"`
	IsActive        bool       `db:"is_active" json:"is_active"`
}

// SessionWithUser is a session joined with its owner's display fields
type SessionWithUser struct {
	Session
	Username *string `db:"username" json:"username"`
	Email    *string `db:"email" json:"email"`
}

// SessionTotals holds the scalar session aggregates
type SessionTotals struct {
	Total              int64   `db:"total"`
	Active             int64   `db:"active"`
	AvgDurationSeconds float64 `db:"avg_duration"`
}

// GroupCount is one row of a GROUP BY count
type GroupCount struct {
	Key   string `db:"key" json:"key"`
	Count int64  `db:"count" json:"count"`
}
