package calendar

import (
	"context"
	"errors"
	"testing"

	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	entries  []db.OutboxEntry
	trips    map[int64]*models.TripView
	done     []int64
	failed   map[int64]string
	attached map[int64]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{trips: map[int64]*models.TripView{}, failed: map[int64]string{}, attached: map[int64]string{}}
}

func (f *fakeStore) Pending(_ context.Context, limit int) ([]db.OutboxEntry, error) {
	var out []db.OutboxEntry
	for _, e := range f.entries {
		if len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) Snapshot(_ context.Context, tripID int64) (*models.TripView, *models.User, error) {
	t, ok := f.trips[tripID]
	if !ok {
		return nil, nil, nil
	}
	return t, &models.User{ID: t.UserID, Surname: "Иванов", FirstName: "Иван"}, nil
}

func (f *fakeStore) AttachEvent(_ context.Context, tripID int64, eventID string) (bool, error) {
	t, ok := f.trips[tripID]
	if !ok || t.ExternalEventID != nil {
		return false, nil
	}
	t.ExternalEventID = &eventID
	f.attached[tripID] = eventID
	return true, nil
}

func (f *fakeStore) Done(_ context.Context, id int64) error { f.done = append(f.done, id); return nil }

func (f *fakeStore) Failed(_ context.Context, id int64, reason string) error {
	f.failed[id] = reason
	return nil
}

func (f *fakeStore) Backlog(context.Context) (int, error) { return len(f.entries) - len(f.done), nil }

type fakeClient struct {
	created []int64
	updated []string
	deleted []string
	failAll error
}

func (c *fakeClient) CreateEvent(_ context.Context, trip models.TripView, _ *models.User) (string, error) {
	if c.failAll != nil {
		return "", c.failAll
	}
	c.created = append(c.created, trip.ID)
	return "evt-new", nil
}

func (c *fakeClient) UpdateEvent(_ context.Context, eventID string, _ models.TripView, _ *models.User) error {
	if c.failAll != nil {
		return c.failAll
	}
	c.updated = append(c.updated, eventID)
	return nil
}

func (c *fakeClient) DeleteEvent(_ context.Context, eventID string) error {
	if c.failAll != nil {
		return c.failAll
	}
	c.deleted = append(c.deleted, eventID)
	return nil
}

func strptr(s string) *string { return &s }

func TestSyncerRunOnce(t *testing.T) {
	store := newFakeStore()
	store.trips[1] = &models.TripView{Trip: models.Trip{ID: 1, UserID: 5, Status: models.TripStarted}}
	store.trips[2] = &models.TripView{Trip: models.Trip{ID: 2, UserID: 5, Status: models.TripCompleted}}
	store.entries = []db.OutboxEntry{
		{ID: 10, TripID: 1, Action: db.OutboxCreate},
		{ID: 11, TripID: 1, Action: db.OutboxUpdate},
		{ID: 12, TripID: 2, Action: db.OutboxUpdate},                              // нет события, пропуск
		{ID: 13, TripID: 99, Action: db.OutboxCreate},                             // рейса уже нет
		{ID: 14, TripID: 98, Action: db.OutboxDelete, EventID: strptr("evt-old")}, // рейс удалён, событие осталось
	}
	client := &fakeClient{}

	s := NewSyncer(store, client, zap.NewNop())
	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, []int64{1}, client.created)
	assert.Equal(t, "evt-new", store.attached[1])
	assert.Equal(t, []string{"evt-new"}, client.updated)
	assert.Equal(t, []string{"evt-old"}, client.deleted)
	assert.Equal(t, []int64{10, 11, 12, 13, 14}, store.done)
	assert.Empty(t, store.failed)
}

func TestSyncerKeepsFailedEntries(t *testing.T) {
	store := newFakeStore()
	store.trips[1] = &models.TripView{Trip: models.Trip{ID: 1, Status: models.TripStarted}}
	store.entries = []db.OutboxEntry{{ID: 10, TripID: 1, Action: db.OutboxCreate}}
	client := &fakeClient{failAll: errors.New("calendar unavailable")}

	s := NewSyncer(store, client, zap.NewNop())
	require.NoError(t, s.RunOnce(context.Background()))

	assert.Empty(t, store.done)
	assert.Contains(t, store.failed[10], "calendar unavailable")
	assert.Nil(t, store.trips[1].ExternalEventID)
}

func TestSyncerDeletesOrphanEvent(t *testing.T) {
	store := newFakeStore()
	store.trips[1] = &models.TripView{Trip: models.Trip{ID: 1, Status: models.TripStarted}}
	store.entries = []db.OutboxEntry{{ID: 10, TripID: 1, Action: db.OutboxCreate}}
	client := &fakeClient{}

	// рейс удаляют, пока событие создаётся
	s := NewSyncer(&racingStore{fakeStore: store}, client, zap.NewNop())
	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, []string{"evt-new"}, client.deleted)
	assert.Equal(t, []int64{10}, store.done)
}

type racingStore struct{ *fakeStore }

func (r *racingStore) AttachEvent(context.Context, int64, string) (bool, error) { return false, nil }
