package trip

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"ridecore/internal/domain"
	"ridecore/internal/geoindex"
	"ridecore/internal/store/postgres"
)

var tripCols = []string{"id", "ride_id", "driver_id", "status", "start_at", "end_at", "paused_at", "total_paused_sec", "distance_km", "duration_sec", "fare"}

type fakeIndex struct {
	pos   domain.Point
	fresh bool
}

func (f *fakeIndex) Upsert(ctx context.Context, driverID string, p domain.Point, now time.Time) error {
	return nil
}
func (f *fakeIndex) Get(ctx context.Context, driverID string, now time.Time) (domain.Point, bool, error) {
	return f.pos, f.fresh, nil
}
func (f *fakeIndex) Radius(ctx context.Context, center domain.Point, radiusKm float64, limit int) ([]geoindex.Candidate, bool, error) {
	return nil, false, nil
}
func (f *fakeIndex) Evict(ctx context.Context, driverID string) error          { return nil }
func (f *fakeIndex) Sweep(ctx context.Context, now time.Time) (int, error)     { return 0, nil }

func TestClose_ComputesFareAndInsertsPendingPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	idx := &fakeIndex{pos: domain.Point{Lat: 12.9716, Lon: 77.5946}, fresh: true}
	var enqueued string
	start := time.Unix(1_700_000_000, 0)
	now := start.Add(10 * time.Minute)

	m := New(db, postgres.NewTripRepository(db), postgres.NewPaymentRepository(db), idx, func() time.Time { return now },
		func(paymentID string) { enqueued = paymentID })

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM trips").
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow("trip-1", "ride-1", "driver-1", string(domain.TripStatusOngoing), start, nil, nil, int64(0), 0.0, int64(0), 0.0))
	mock.ExpectExec("UPDATE trips").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	endLoc := domain.Point{Lat: 13.0100, Lon: 77.6400}
	tr, payment, err := m.Close(context.Background(), "trip-1", &endLoc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Status != domain.TripStatusCompleted {
		t.Errorf("expected trip completed, got %s", tr.Status)
	}
	if tr.DurationSec != 600 {
		t.Errorf("expected duration 600s, got %d", tr.DurationSec)
	}
	wantFare := fareBase + tr.DistanceKm*farePerKm + (float64(tr.DurationSec)/60.0)*farePerMinute
	if payment.Amount != wantFare {
		t.Errorf("expected fare %f, got %f", wantFare, payment.Amount)
	}
	if payment.Status != domain.PaymentStatusPending {
		t.Errorf("expected pending payment, got %s", payment.Status)
	}
	if enqueued != payment.ID {
		t.Errorf("expected settlement enqueued for %s, got %s", payment.ID, enqueued)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestClose_NotOngoingIsIllegalState(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	idx := &fakeIndex{}
	m := New(db, postgres.NewTripRepository(db), postgres.NewPaymentRepository(db), idx, nil, nil)

	start := time.Unix(1_700_000_000, 0)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM trips").
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow("trip-1", "ride-1", "driver-1", string(domain.TripStatusCompleted), start, start, nil, int64(0), 1.0, int64(60), 5.0))
	mock.ExpectRollback()

	_, _, err = m.Close(context.Background(), "trip-1", nil, time.Now())
	if err == nil {
		t.Fatal("expected illegal-state error closing an already-completed trip")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPauseResume_AccumulatesTotalPaused(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	m := New(db, postgres.NewTripRepository(db), postgres.NewPaymentRepository(db), &fakeIndex{}, nil, nil)

	start := time.Unix(1_700_000_000, 0)
	pauseAt := start.Add(5 * time.Minute)
	resumeAt := pauseAt.Add(2 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM trips").
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow("trip-1", "ride-1", "driver-1", string(domain.TripStatusOngoing), start, nil, nil, int64(0), 0.0, int64(0), 0.0))
	mock.ExpectExec("UPDATE trips").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if _, err := m.Pause(context.Background(), "trip-1", pauseAt); err != nil {
		t.Fatalf("unexpected pause error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM trips").
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow("trip-1", "ride-1", "driver-1", string(domain.TripStatusPaused), start, nil, pauseAt, int64(0), 0.0, int64(0), 0.0))
	mock.ExpectExec("UPDATE trips").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tr, err := m.Resume(context.Background(), "trip-1", resumeAt)
	if err != nil {
		t.Fatalf("unexpected resume error: %v", err)
	}
	if tr.TotalPaused != 2*time.Minute {
		t.Errorf("expected 2m accumulated pause, got %s", tr.TotalPaused)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
