package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicehub/backoffice/internal/besteffort"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/sessions"
	"github.com/servicehub/backoffice/internal/telemetry"
)

var errStore = errors.New("store unavailable")

type fakeStore struct {
	events    []*models.AnalyticsEvent
	payloads  [][]byte
	createErr error
	aggErr    error
	lastLimit int
}

func (f *fakeStore) CreateEvent(_ context.Context, e *models.AnalyticsEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = uuid.New().String()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeStore) ListUserEvents(_ context.Context, _ string, limit int) ([]*models.AnalyticsEvent, error) {
	f.lastLimit = limit
	return f.events, f.aggErr
}

func (f *fakeStore) CountByActionType(_ context.Context) ([]models.ActionTypeCount, error) {
	if f.aggErr != nil {
		return nil, f.aggErr
	}
	return []models.ActionTypeCount{{ActionType: "login", Count: 2}}, nil
}

func (f *fakeStore) TopUsers(_ context.Context, limit int) ([]models.UserActivityCount, error) {
	f.lastLimit = limit
	return nil, f.aggErr
}

func (f *fakeStore) TopPages(_ context.Context, _ int) ([]models.PageVisitCount, error) {
	return []models.PageVisitCount{{Page: "/admin/users", VisitCount: 3}}, nil
}

func (f *fakeStore) RecentEvents(_ context.Context, _ int) ([]*models.AnalyticsEventWithActor, error) {
	if f.aggErr != nil {
		return nil, f.aggErr
	}
	return []*models.AnalyticsEventWithActor{}, nil
}

func (f *fakeStore) ListActionData(_ context.Context) ([][]byte, error) {
	return f.payloads, nil
}

type fakeSessions struct {
	known     map[string]*models.Session
	lookupErr error
	createErr error
	created   []*models.Session
	metas     []sessions.RequestMeta
	lastLimit int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{known: map[string]*models.Session{}}
}

func (f *fakeSessions) GetSession(_ context.Context, id string) (*models.Session, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.known[id], nil
}

func (f *fakeSessions) CreateSession(_ context.Context, userID string, meta sessions.RequestMeta, sessionType string) (*models.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	s := &models.Session{SessionID: uuid.New().String(), UserID: userID, SessionType: sessionType, UserAgent: meta.UserAgent, IsActive: true}
	f.known[s.SessionID] = s
	f.created = append(f.created, s)
	f.metas = append(f.metas, meta)
	return s, nil
}

func (f *fakeSessions) GetAllSessions(_ context.Context, limit int) ([]*models.SessionWithUser, error) {
	f.lastLimit = limit
	return []*models.SessionWithUser{}, nil
}

func TestTrack_ExistingSession(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeSessions()
	existing := uuid.New().String()
	tracker.known[existing] = &models.Session{SessionID: existing, UserID: "u1"}
	rec := NewRecorder(store, tracker, "")

	out := rec.Track(context.Background(), TrackRequest{
		UserID:     "u1",
		SessionID:  existing,
		Page:       "/admin/users",
		ActionType: "view",
		ActionData: map[string]any{"tab": "all"},
	})

	assert.Equal(t, besteffort.StatusDone, out.Status)
	assert.Empty(t, tracker.created)
	require.Len(t, store.events, 1)
	ev := store.events[0]
	assert.Equal(t, existing, *ev.SessionID)
	assert.Equal(t, "/admin/users", ev.PageVisited)
	assert.Equal(t, "admin", ev.ActionData["_source"])
	assert.Equal(t, "all", ev.ActionData["tab"])
}

func TestTrack_MissingSessionSynthesizesOne(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeSessions()
	rec := NewRecorder(store, tracker, "admin")
	before := testutil.ToFloat64(telemetry.AnalyticsEventsTotal.WithLabelValues("main", "done"))

	out := rec.Track(context.Background(), TrackRequest{
		UserID:     "u1",
		SessionID:  uuid.New().String(),
		ActionType: "click",
		Source:     "main",
		Meta:       sessions.RequestMeta{IPAddress: "10.1.1.1", UserAgent: "curl/8.4.0"},
	})

	require.True(t, out.OK())
	require.Len(t, tracker.created, 1)
	require.Len(t, store.events, 1)

	synth := tracker.created[0]
	assert.Equal(t, synth.SessionID, *store.events[0].SessionID)
	assert.Equal(t, "main", synth.SessionType)
	assert.Equal(t, "curl/8.4.0 [source:main]", synth.UserAgent)
	assert.Equal(t, "10.1.1.1", tracker.metas[0].IPAddress)

	src, ok := sessions.SourceFromUserAgent(synth.UserAgent)
	assert.True(t, ok)
	assert.Equal(t, "main", src)
	assert.Equal(t, "main", store.events[0].ActionData["_source"])
	assert.Equal(t, before+1, testutil.ToFloat64(telemetry.AnalyticsEventsTotal.WithLabelValues("main", "done")))
}

func TestTrack_MalformedSessionIDSynthesizes(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeSessions()
	rec := NewRecorder(store, tracker, "")

	for _, id := range []string{"", "not-a-uuid"} {
		out := rec.Track(context.Background(), TrackRequest{UserID: "u1", SessionID: id, ActionType: "view"})
		assert.True(t, out.OK())
	}
	assert.Len(t, tracker.created, 2)
	assert.Len(t, store.events, 2)
}

func TestTrack_LookupErrorSynthesizes(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeSessions()
	tracker.lookupErr = errStore
	rec := NewRecorder(store, tracker, "")

	out := rec.Track(context.Background(), TrackRequest{UserID: "u1", SessionID: uuid.New().String(), ActionType: "view"})

	assert.True(t, out.OK())
	assert.Len(t, tracker.created, 1)
	assert.Len(t, store.events, 1)
}

func TestTrack_FailuresNeverEscape(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		sessErr   error
	}{
		{"event write fails", errStore, nil},
		{"session synthesis fails", nil, errStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{createErr: tt.createErr}
			tracker := newFakeSessions()
			tracker.createErr = tt.sessErr
			rec := NewRecorder(store, tracker, "")

			out := rec.Track(context.Background(), TrackRequest{UserID: "u1", ActionType: "view"})

			assert.Equal(t, besteffort.StatusFailed, out.Status)
			assert.ErrorIs(t, out.Err, errStore)
			assert.Empty(t, store.events)
		})
	}
}

func TestTrack_SkipsWithoutUser(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeSessions()
	rec := NewRecorder(store, tracker, "")

	out := rec.Track(context.Background(), TrackRequest{ActionType: "view"})

	assert.Equal(t, besteffort.StatusSkipped, out.Status)
	assert.Empty(t, tracker.created)
	assert.Empty(t, store.events)
}

func TestDashboard_EmptyStore(t *testing.T) {
	rec := NewRecorder(&fakeStore{}, newFakeSessions(), "")

	d := rec.Dashboard(context.Background())

	assert.Equal(t, map[string]int64{"admin": 0, "main": 0}, d.SourceBreakdown)
	assert.NotNil(t, d.TopUsers)
	assert.Empty(t, d.TopUsers)
	assert.NotNil(t, d.RecentEvents)
	assert.Empty(t, d.RecentEvents)
}

func TestDashboard_SourceBreakdown(t *testing.T) {
	store := &fakeStore{payloads: [][]byte{
		[]byte(`{"_source":"admin"}`),
		[]byte(`{"_source":"admin","x":1}`),
		[]byte(`"{\"_source\":\"main\"}"`),
		[]byte(`{"x":1}`),
		[]byte(`{broken`),
		[]byte(`{"_source":"partner"}`),
	}}
	rec := NewRecorder(store, newFakeSessions(), "")

	d := rec.Dashboard(context.Background())

	assert.Equal(t, map[string]int64{"admin": 2, "main": 1, "unknown": 2, "partner": 1}, d.SourceBreakdown)
	assert.Equal(t, []models.ActionTypeCount{{ActionType: "login", Count: 2}}, d.ActionTypes)
	assert.Len(t, d.TopPages, 1)
	assert.Equal(t, dashboardTopUsers, store.lastLimit)
}

func TestDashboard_AggregatesDegradeIndependently(t *testing.T) {
	store := &fakeStore{aggErr: errStore, payloads: [][]byte{[]byte(`{"_source":"main"}`)}}
	rec := NewRecorder(store, newFakeSessions(), "")

	d := rec.Dashboard(context.Background())

	assert.Empty(t, d.ActionTypes)
	assert.Empty(t, d.TopUsers)
	assert.Empty(t, d.RecentEvents)
	assert.Len(t, d.TopPages, 1)
	assert.Equal(t, int64(1), d.SourceBreakdown["main"])
}

func TestListLimits(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeSessions()
	rec := NewRecorder(store, tracker, "")
	ctx := context.Background()

	_, err := rec.GetUserAnalytics(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserEventsLimit, store.lastLimit)

	_, err = rec.GetAllSessions(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionsLimit, tracker.lastLimit)

	_, err = rec.GetAllSessions(ctx, 9999)
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, tracker.lastLimit)
}

func TestGetUserAnalytics_Error(t *testing.T) {
	rec := NewRecorder(&fakeStore{aggErr: errStore}, newFakeSessions(), "")

	_, err := rec.GetUserAnalytics(context.Background(), "u1", 10)
	assert.ErrorIs(t, err, errStore)
}
