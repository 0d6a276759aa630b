package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ride-backend/internal/ride/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes that mean "the row lock did not arrive in time".
const (
	pgCodeLockNotAvailable = "55P03"
	pgCodeQueryCanceled    = "57014"
)

const rideColumns = `
	id, client_id, driver_profile_id, status, status_reason, scheduled_at,
	started_at, completed_at, canceled_at, cancellation_reason,
	pickup_address, pickup_lat, pickup_lng,
	dropoff_address, dropoff_lat, dropoff_lng,
	expected_fare, expected_fare_snapshot, driver_fare, actual_fare,
	distance_meters, duration_seconds, is_anomaly, anomaly_reason,
	ride_metadata, created_at, updated_at`

// transitionQuery applies one status change as a single atomic statement:
// prev locks the ride row and captures the current status, upd rewrites the
// ride only while that status is in the allowed-from set, and ins appends the
// audit row only when upd matched. Either both writes happen or neither does.
// Timestamps are stored timezone-stripped in UTC and enum parameters are cast
// explicitly.
const transitionQuery = `
WITH prev AS (
	SELECT status AS from_status
	FROM rides
	WHERE id = $1
	FOR UPDATE
),
upd AS (
	UPDATE rides r
	SET
		status = $2::text,
		status_reason = $3,
		started_at = CASE WHEN $2::text = 'started' AND r.started_at IS NULL
			THEN timezone('utc', now()) ELSE r.started_at END,
		completed_at = CASE WHEN $2::text = 'completed' AND r.completed_at IS NULL
			THEN timezone('utc', now()) ELSE r.completed_at END,
		canceled_at = CASE WHEN $2::text = 'canceled' AND r.canceled_at IS NULL
			THEN timezone('utc', now()) ELSE r.canceled_at END,
		cancellation_reason = CASE WHEN $2::text = 'canceled'
			THEN $3 ELSE r.cancellation_reason END,
		updated_at = timezone('utc', now())
	WHERE r.id = $1
	  AND (SELECT from_status FROM prev) = ANY($7::text[])
	RETURNING r.*
),
ins AS (
	INSERT INTO ride_status_history (
		ride_id, from_status, to_status, changed_by, actor_role, reason, meta, created_at
	)
	SELECT $1,
	       (SELECT from_status FROM prev),
	       $2::text,
	       $4,
	       $5::text,
	       $3,
	       CAST($6 AS JSONB),
	       timezone('utc', now())
	WHERE EXISTS (SELECT 1 FROM upd)
	RETURNING 1
)
SELECT ` + rideColumns + ` FROM upd`

// PostgresRideRepository implements domain.RideRepository on pgx.
type PostgresRideRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresRideRepository creates a Postgres-backed ride repository.
// lockTimeout bounds how long a transition waits on a contended ride row.
func NewPostgresRideRepository(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresRideRepository {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &PostgresRideRepository{db: db, lockTimeout: lockTimeout}
}

// Create persists a new ride together with its genesis history entry in one
// transaction.
func (r *PostgresRideRepository) Create(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO rides (
			id, client_id, status, status_reason, scheduled_at,
			pickup_address, pickup_lat, pickup_lng,
			dropoff_address, dropoff_lat, dropoff_lng,
			expected_fare, expected_fare_snapshot, ride_metadata,
			created_at, updated_at
		) VALUES (
			$1, $2, $3::text, NULL, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, CAST($12 AS JSONB), CAST($13 AS JSONB),
			timezone('utc', now()), timezone('utc', now())
		)
		RETURNING `+rideColumns,
		ride.ID,
		ride.ClientID,
		domain.StatusRequested.String(),
		ride.ScheduledAt,
		ride.PickupAddress, ride.PickupLat, ride.PickupLng,
		ride.DropoffAddress, ride.DropoffLat, ride.DropoffLng,
		ride.ExpectedFare,
		jsonOrEmpty(ride.ExpectedFareDetails),
		jsonOrEmpty(ride.Metadata),
	)
	created, err := scanRide(row)
	if err != nil {
		return nil, fmt.Errorf("insert ride: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ride_status_history (
			ride_id, from_status, to_status, changed_by, actor_role, reason, meta, created_at
		) VALUES ($1, NULL, $2::text, $3, $4::text, NULL, NULL, timezone('utc', now()))
	`,
		created.ID,
		domain.StatusRequested.String(),
		ride.ClientID,
		domain.RoleClient.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert genesis history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return created, nil
}

// Transition applies one conditional status change plus its audit entry as a
// single atomic unit. On a zero-row match the ride is probed within the same
// transaction to tell "absent" apart from "wrong status"; the probe is
// informational only, the conditional update already decided the outcome.
func (r *PostgresRideRepository) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Ride, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	allowedFrom := make([]string, len(req.AllowedFrom))
	for i, s := range req.AllowedFrom {
		allowedFrom[i] = s.String()
	}

	row := tx.QueryRow(ctx, transitionQuery,
		req.RideID,
		req.Target.String(),
		req.Reason,
		req.ActorID,
		req.ActorRole.String(),
		jsonOrEmpty(req.Meta),
		allowedFrom,
	)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyRejection(ctx, tx, req.RideID)
		}
		if isLockTimeout(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, fmt.Errorf("transition ride: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isLockTimeout(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ride, nil
}

// classifyRejection distinguishes a missing ride from one in the wrong status.
// It runs only after the conditional update matched nothing, while the
// transaction (and any row lock it took) is still open.
func (r *PostgresRideRepository) classifyRejection(ctx context.Context, tx pgx.Tx, rideID string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1)`, rideID).Scan(&exists); err != nil {
		return fmt.Errorf("probe ride existence: %w", err)
	}
	if !exists {
		return domain.ErrRideNotFound
	}
	return domain.ErrTransitionRejected
}

// FindByID retrieves a ride by its ID.
func (r *PostgresRideRepository) FindByID(ctx context.Context, rideID string) (*domain.Ride, error) {
	row := r.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, rideID)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRideNotFound
		}
		return nil, fmt.Errorf("query ride: %w", err)
	}
	return ride, nil
}

// History returns the full status path of a ride, genesis first.
func (r *PostgresRideRepository) History(ctx context.Context, rideID string) ([]*domain.StatusHistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ride_id, from_status, to_status, changed_by, actor_role, reason, meta, created_at
		FROM ride_status_history
		WHERE ride_id = $1
		ORDER BY created_at, id
	`, rideID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.StatusHistoryEntry
	for rows.Next() {
		var (
			e          domain.StatusHistoryEntry
			fromStatus *string
			meta       []byte
		)
		if err := rows.Scan(
			&e.ID, &e.RideID, &fromStatus, &e.ToStatus, &e.ChangedBy,
			&e.ActorRole, &e.Reason, &meta, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if fromStatus != nil {
			s := domain.Status(*fromStatus)
			e.FromStatus = &s
		}
		e.Meta = meta
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// UpdateTripDetails applies a partial non-status update. The column list is
// fixed and has no status member, so this path cannot move the lifecycle.
func (r *PostgresRideRepository) UpdateTripDetails(ctx context.Context, rideID string, upd domain.TripDetailsUpdate) (*domain.Ride, error) {
	if upd.IsEmpty() {
		return r.FindByID(ctx, rideID)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE rides SET
			driver_profile_id = COALESCE($2, driver_profile_id),
			scheduled_at = COALESCE($3, scheduled_at),
			driver_fare = COALESCE($4, driver_fare),
			actual_fare = COALESCE($5, actual_fare),
			distance_meters = COALESCE($6, distance_meters),
			duration_seconds = COALESCE($7, duration_seconds),
			is_anomaly = COALESCE($8, is_anomaly),
			anomaly_reason = COALESCE($9, anomaly_reason),
			ride_metadata = COALESCE(CAST($10 AS JSONB), ride_metadata),
			updated_at = timezone('utc', now())
		WHERE id = $1
		RETURNING `+rideColumns,
		rideID,
		upd.DriverProfileID,
		upd.ScheduledAt,
		upd.DriverFare,
		upd.ActualFare,
		upd.DistanceMeters,
		upd.DurationSeconds,
		upd.IsAnomaly,
		upd.AnomalyReason,
		nilOrJSON(upd.Metadata),
	)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRideNotFound
		}
		return nil, fmt.Errorf("update trip details: %w", err)
	}
	return ride, nil
}

func scanRide(row pgx.Row) (*domain.Ride, error) {
	var (
		ride         domain.Ride
		status       string
		fareSnapshot []byte
		metadata     []byte
	)
	err := row.Scan(
		&ride.ID, &ride.ClientID, &ride.DriverProfileID, &status, &ride.StatusReason, &ride.ScheduledAt,
		&ride.StartedAt, &ride.CompletedAt, &ride.CanceledAt, &ride.CancellationReason,
		&ride.PickupAddress, &ride.PickupLat, &ride.PickupLng,
		&ride.DropoffAddress, &ride.DropoffLat, &ride.DropoffLng,
		&ride.ExpectedFare, &fareSnapshot, &ride.DriverFare, &ride.ActualFare,
		&ride.DistanceMeters, &ride.DurationSeconds, &ride.IsAnomaly, &ride.AnomalyReason,
		&metadata, &ride.CreatedAt, &ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ride.Status = domain.Status(status)
	ride.ExpectedFareDetails = fareSnapshot
	ride.Metadata = metadata
	return &ride, nil
}

func jsonOrEmpty(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

func nilOrJSON(raw []byte) *[]byte {
	if len(raw) == 0 {
		return nil
	}
	return &raw
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCodeLockNotAvailable || pgErr.Code == pgCodeQueryCanceled
	}
	return false
}
