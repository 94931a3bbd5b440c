package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/servicehub/backoffice/internal/db/models"
)

var eventCols = []string{"id", "user_id", "session_id", "page_visited", "action_type", "action_data", "created_at"}

func newAnalyticsRepo(t *testing.T) (*AnalyticsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewAnalyticsRepository(db), mock
}

// ---------------------------------------------------------------------------
// CreateEvent / ListUserEvents
// ---------------------------------------------------------------------------

func TestCreateEvent_Success(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectExec("INSERT INTO analytics_events").
		WithArgs(sqlmock.AnyArg(), "user-1", "sess-1", "/admin/users", "view", []byte(`{"_source":"admin"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	e := &models.AnalyticsEvent{
		UserID:      "user-1",
		SessionID:   strPtr("sess-1"),
		PageVisited: "/admin/users",
		ActionType:  "view",
		ActionData:  models.JSONMap{"_source": "admin"},
	}
	if err := repo.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListUserEvents(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("FROM analytics_events WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT \\$2").
		WithArgs("user-1", 50).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("ev-1", "user-1", "sess-1", "/admin", "login", []byte(`{"_source":"admin"}`), time.Now()))

	events, err := repo.ListUserEvents(context.Background(), "user-1", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ActionData["_source"] != "admin" {
		t.Errorf("events = %+v", events)
	}
}

func TestListUserEvents_StringEncodedActionData(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("FROM analytics_events WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT \\$2").
		WithArgs("user-1", 50).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("ev-1", "user-1", "sess-1", "/", "view", []byte(`"{\"_source\":\"main\"}"`), time.Now()))

	events, err := repo.ListUserEvents(context.Background(), "user-1", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ActionData["_source"] != "main" {
		t.Errorf("events = %+v", events)
	}
}

// ---------------------------------------------------------------------------
// Dashboard aggregates
// ---------------------------------------------------------------------------

func TestCountByActionType(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT action_type, COUNT.*GROUP BY action_type").
		WillReturnRows(sqlmock.NewRows([]string{"action_type", "count"}).AddRow("login", int64(4)))

	counts, err := repo.CountByActionType(context.Background())
	if err != nil || len(counts) != 1 || counts[0].Count != 4 {
		t.Errorf("CountByActionType() = %+v, %v", counts, err)
	}
}

func TestTopUsers(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT e.user_id, u.username, COUNT.*LIMIT \\$1").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "event_count"}).
			AddRow("user-1", "alice", int64(12)).
			AddRow("user-2", nil, int64(3)))

	users, err := repo.TopUsers(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[1].Username != nil {
		t.Errorf("users = %+v", users)
	}
}

func TestTopPages_DBError(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT page_visited").WillReturnError(errDB)

	if _, err := repo.TopPages(context.Background(), 10); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestRecentEvents(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	cols := append(append([]string{}, eventCols...), "username", "firstname", "lastname")
	mock.ExpectQuery("FROM analytics_events e\\s+LEFT JOIN users u").
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("ev-1", "user-1", nil, "", "logout", []byte(`{}`), time.Now(), "alice", "Alice", "Doe"))

	events, err := repo.RecentEvents(context.Background(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || *events[0].Firstname != "Alice" || events[0].SessionID != nil {
		t.Errorf("events = %+v", events)
	}
}

func TestRecentEvents_StringEncodedActionData(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	cols := append(append([]string{}, eventCols...), "username", "firstname", "lastname")
	mock.ExpectQuery("FROM analytics_events e\\s+LEFT JOIN users u").
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("ev-1", "user-1", "sess-1", "/", "view", `"{\"_source\":\"main\"}"`, time.Now(), "alice", nil, nil))

	events, err := repo.RecentEvents(context.Background(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ActionData["_source"] != "main" {
		t.Errorf("events = %+v", events)
	}
}

func TestListActionData(t *testing.T) {
	repo, mock := newAnalyticsRepo(t)
	mock.ExpectQuery("SELECT action_data FROM analytics_events").
		WillReturnRows(sqlmock.NewRows([]string{"action_data"}).
			AddRow([]byte(`{"_source":"main"}`)).
			AddRow([]byte(`"{\"_source\":\"admin\"}"`)))

	payloads, err := repo.ListActionData(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payloads) != 2 || string(payloads[0]) != `{"_source":"main"}` {
		t.Errorf("payloads = %q", payloads)
	}
}
