package orchestrator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"ridecore/internal/assignment"
	"ridecore/internal/domain"
	"ridecore/internal/geoindex"
	"ridecore/internal/matcher"
	"ridecore/internal/store"
	"ridecore/internal/store/postgres"
	"ridecore/internal/trip"
)

type fakeIndex struct {
	candidates []geoindex.Candidate
	positions  map[string]domain.Point
	degraded   bool
}

func (f *fakeIndex) Upsert(ctx context.Context, driverID string, p domain.Point, now time.Time) error {
	return nil
}
func (f *fakeIndex) Get(ctx context.Context, driverID string, now time.Time) (domain.Point, bool, error) {
	p, ok := f.positions[driverID]
	return p, ok, nil
}
func (f *fakeIndex) Radius(ctx context.Context, center domain.Point, radiusKm float64, limit int) ([]geoindex.Candidate, bool, error) {
	return f.candidates, f.degraded, nil
}
func (f *fakeIndex) Evict(ctx context.Context, driverID string) error      { return nil }
func (f *fakeIndex) Sweep(ctx context.Context, now time.Time) (int, error) { return 0, nil }

func newTestOrchestrator(t *testing.T, idx *fakeIndex) (*Orchestrator, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}

	rides := postgres.NewRideRepository(db)
	assign := postgres.NewAssignmentRepository(db)
	tripMgr := trip.New(db, postgres.NewTripRepository(db), postgres.NewPaymentRepository(db), idx, nil, nil)
	assignMgr := assignment.New(db, assign, rides, tripMgr, time.Hour, func() time.Time { return time.Unix(1_700_000_000, 0) })
	m := matcher.New(idx, func() time.Time { return time.Unix(1_700_000_000, 0) })
	idem := postgres.NewIdempotencyRepository(db)

	o := New(db, rides, idem, m, assignMgr, 5.0, func() time.Time { return time.Unix(1_700_000_000, 0) })
	return o, mock, func() { db.Close() }
}

var validReq = CreateRideRequest{
	RiderID:     "rider-1",
	Pickup:      domain.Point{Lat: 12.9716, Lon: 77.5946},
	Destination: domain.Point{Lat: 12.98, Lon: 77.60},
}

func TestCreateRide_MatchesAndOffers(t *testing.T) {
	idx := &fakeIndex{
		candidates: []geoindex.Candidate{{DriverID: "driver-1", ApproxKm: 0.2}},
		positions:  map[string]domain.Point{"driver-1": {Lat: 12.9720, Lon: 77.5950}},
	}
	o, mock, closeDB := newTestOrchestrator(t, idx)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rides").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rides SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := o.CreateRide(context.Background(), validReq, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != domain.RideStatusAssigned {
		t.Errorf("expected Assigned, got %s", out.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateRide_NoDriverFound(t *testing.T) {
	idx := &fakeIndex{positions: map[string]domain.Point{}}
	o, mock, closeDB := newTestOrchestrator(t, idx)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rides").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec("UPDATE rides SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := o.CreateRide(context.Background(), validReq, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != domain.RideStatusNoDriver {
		t.Errorf("expected NoDriver, got %s", out.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateRide_InvalidCoordinatesRejected(t *testing.T) {
	idx := &fakeIndex{}
	o, _, closeDB := newTestOrchestrator(t, idx)
	defer closeDB()

	bad := validReq
	bad.Pickup.Lat = 200
	_, err := o.CreateRide(context.Background(), bad, "")
	if err == nil {
		t.Fatal("expected validation error for out-of-range latitude")
	}
}

func TestCreateRide_IdempotencyKeyReplaysFirstResponse(t *testing.T) {
	idx := &fakeIndex{positions: map[string]domain.Point{}}
	o, mock, closeDB := newTestOrchestrator(t, idx)
	defer closeDB()

	mock.ExpectExec("INSERT INTO idempotency_keys").WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rides").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("UPDATE rides SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("UPDATE idempotency_keys SET response").WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := o.CreateRide(context.Background(), validReq, "idem-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != domain.RideStatusNoDriver {
		t.Errorf("expected NoDriver, got %s", out.Status)
	}

	// A second call under the same key loses the claim and replays the
	// stored response without inserting another ride.
	stored, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mock.ExpectExec("INSERT INTO idempotency_keys").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT response FROM idempotency_keys").
		WillReturnRows(sqlmock.NewRows([]string{"response"}).AddRow(string(stored)))

	replay, err := o.CreateRide(context.Background(), validReq, "idem-1")
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if *replay != *out {
		t.Errorf("expected replayed response %+v, got %+v", *out, *replay)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

var _ store.IdempotencyStore = (*postgres.IdempotencyRepository)(nil)
