package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/metrics"
	"github.com/Spok95/expedition-bot/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OutboxStore — очередь заданий и снимки рейсов для синхронизатора.
type OutboxStore interface {
	Pending(ctx context.Context, limit int) ([]db.OutboxEntry, error)
	// Snapshot — текущее состояние рейса; nil, если рейса уже нет.
	Snapshot(ctx context.Context, tripID int64) (*models.TripView, *models.User, error)
	AttachEvent(ctx context.Context, tripID int64, eventID string) (bool, error)
	Done(ctx context.Context, id int64) error
	Failed(ctx context.Context, id int64, reason string) error
	Backlog(ctx context.Context) (int, error)
}

type Syncer struct {
	store       OutboxStore
	client      Client
	log         *zap.Logger
	batch       int
	callTimeout time.Duration
}

func NewSyncer(store OutboxStore, client Client, log *zap.Logger) *Syncer {
	return &Syncer{store: store, client: client, log: log.Named("calendar"), batch: 50, callTimeout: 20 * time.Second}
}

// RunOnce разбирает одну пачку заданий. Ошибки календаря копятся в очереди
// и не возвращаются; ошибка бывает, только если недоступна сама очередь.
func (s *Syncer) RunOnce(ctx context.Context) error {
	entries, err := s.store.Pending(ctx, s.batch)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		outcome, err := s.handle(ctx, e)
		if err != nil {
			metrics.ObserveCalendar(string(e.Action), "error")
			s.log.Warn("calendar sync failed",
				zap.Int64("entry_id", e.ID), zap.Int64("trip_id", e.TripID),
				zap.String("action", string(e.Action)), zap.Int("attempt", e.Attempts+1), zap.Error(err))
			if ferr := s.store.Failed(ctx, e.ID, err.Error()); ferr != nil {
				return ferr
			}
			continue
		}
		metrics.ObserveCalendar(string(e.Action), outcome)
		if err := s.store.Done(ctx, e.ID); err != nil {
			return err
		}
	}
	return s.ReportBacklog(ctx)
}

func (s *Syncer) ReportBacklog(ctx context.Context) error {
	n, err := s.store.Backlog(ctx)
	if err != nil {
		return err
	}
	metrics.OutboxBacklog.Set(float64(n))
	return nil
}

func (s *Syncer) handle(ctx context.Context, e db.OutboxEntry) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	switch e.Action {
	case db.OutboxDelete:
		if e.EventID == nil {
			return "skipped", nil
		}
		return "ok", s.client.DeleteEvent(ctx, *e.EventID)

	case db.OutboxCreate:
		trip, driver, err := s.store.Snapshot(ctx, e.TripID)
		if err != nil {
			return "", err
		}
		if trip == nil || trip.ExternalEventID != nil {
			return "skipped", nil
		}
		eventID, err := s.client.CreateEvent(ctx, *trip, driver)
		if err != nil {
			return "", err
		}
		attached, err := s.store.AttachEvent(ctx, e.TripID, eventID)
		if err != nil {
			return "", err
		}
		if !attached {
			// рейс удалили или ему уже дали событие, пока мы создавали своё
			if err := s.client.DeleteEvent(ctx, eventID); err != nil {
				s.log.Warn("orphan event left", zap.String("event_id", eventID), zap.Error(err))
			}
			return "orphaned", nil
		}
		s.log.Info("event created", zap.Int64("trip_id", e.TripID), zap.String("event_id", eventID))
		return "ok", nil

	case db.OutboxUpdate:
		trip, driver, err := s.store.Snapshot(ctx, e.TripID)
		if err != nil {
			return "", err
		}
		if trip == nil || trip.ExternalEventID == nil {
			return "skipped", nil
		}
		return "ok", s.client.UpdateEvent(ctx, *trip.ExternalEventID, *trip, driver)
	}
	return "", errors.New("unknown outbox action " + string(e.Action))
}

// PgStore — OutboxStore поверх calendar_outbox.
type PgStore struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

var _ OutboxStore = (*PgStore)(nil)

func NewPgStore(pool *pgxpool.Pool, maxAttempts int) *PgStore {
	return &PgStore{pool: pool, maxAttempts: maxAttempts}
}

func (p *PgStore) Pending(ctx context.Context, limit int) ([]db.OutboxEntry, error) {
	return db.PendingCalendar(ctx, p.pool, p.maxAttempts, limit)
}

func (p *PgStore) Snapshot(ctx context.Context, tripID int64) (*models.TripView, *models.User, error) {
	trip, err := db.GetTripView(ctx, p.pool, tripID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	driver, err := db.GetUser(ctx, p.pool, trip.UserID)
	if err != nil {
		return nil, nil, err
	}
	return trip, driver, nil
}

func (p *PgStore) AttachEvent(ctx context.Context, tripID int64, eventID string) (bool, error) {
	return db.SetTripEventID(ctx, p.pool, tripID, eventID)
}

func (p *PgStore) Done(ctx context.Context, id int64) error {
	return db.MarkCalendarDone(ctx, p.pool, id)
}

func (p *PgStore) Failed(ctx context.Context, id int64, reason string) error {
	return db.MarkCalendarFailed(ctx, p.pool, id, reason)
}

func (p *PgStore) Backlog(ctx context.Context) (int, error) {
	return db.CalendarBacklog(ctx, p.pool, p.maxAttempts)
}
