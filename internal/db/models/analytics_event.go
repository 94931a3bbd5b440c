// Package models - analytics_event.go defines tracked user actions and the
// aggregate rows the analytics dashboard is built from.
package models

import "time"

// AnalyticsEvent is one tracked action. Events are written once and never
// updated. ActionData always carries a "_source" tag naming the front-end.
type AnalyticsEvent struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	SessionID   *string   `db:"session_id" json:"session_id"`
	PageVisited string    `db:"page_visited" json:"page_visited"`
	ActionType  string    `db:"action_type" json:"action_type"`
	ActionData  JSONMap   `db:"action_data" json:"action_data"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AnalyticsEventWithActor is an event joined with its user's display fields
type AnalyticsEventWithActor struct {
	AnalyticsEvent
	Username  *string `db:"username" json:"username"`
	Firstname *string `db:"firstname" json:"firstname"`
	Lastname  *string `db:"lastname" json:"lastname"`
}

// ActionTypeCount is the number of events per action type
type ActionTypeCount struct {
	ActionType string `db:"action_type" json:"action_type"`
	Count      int64  `db:"count" json:"count"`
}

// UserActivityCount is the number of events per user
type UserActivityCount struct {
	UserID     string  `db:"user_id" json:"user_id"`
	Username   *string `db:"username" json:"username"`
	EventCount int64   `db:"event_count" json:"event_count"`
}

// PageVisitCount is the number of events per page
type PageVisitCount struct {
	Page       string `db:"page_visited" json:"page_visited"`
	VisitCount int64  `db:"visit_count" json:"visit_count"`
}
