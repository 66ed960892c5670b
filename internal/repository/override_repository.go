package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"service-availability/internal/domain"
)

type DateOverrideRepository interface {
	GetByDate(ctx context.Context, doctorID uuid.UUID, date domain.Date) (*domain.DateOverride, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.DateOverride, error)
	ListByDateRange(ctx context.Context, doctorID uuid.UUID, from, to domain.Date) (map[domain.Date]domain.DateOverride, error)
	Upsert(ctx context.Context, override domain.DateOverride) error
	// UpsertGuarded applies the override only when the stored row still has
	// expectedVersion (zero meaning no row existed). It reports false when a
	// concurrent write won, leaving the row untouched.
	UpsertGuarded(ctx context.Context, override domain.DateOverride, expectedVersion int) (bool, error)
	Delete(ctx context.Context, doctorID uuid.UUID, date domain.Date) (bool, error)
}

type DateOverridePostgresRepository struct {
	execer Execer
}

func NewDateOverridePostgresRepository(execer Execer) *DateOverridePostgresRepository {
	return &DateOverridePostgresRepository{execer: execer}
}

const overrideColumns = `id, doctor_id, date, blackout, slots, slot_duration_minutes, version, created_at, updated_at`

func (r *DateOverridePostgresRepository) GetByDate(ctx context.Context, doctorID uuid.UUID, date domain.Date) (*domain.DateOverride, error) {
	const query = `
SELECT ` + overrideColumns + `
FROM availability.date_overrides
WHERE doctor_id = $1 AND date = $2
`

	rows, err := r.execer.QueryContext(ctx, query, doctorID, date.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	override, err := scanOverride(rows)
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *DateOverridePostgresRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.DateOverride, error) {
	const query = `
SELECT ` + overrideColumns + `
FROM availability.date_overrides
WHERE doctor_id = $1
ORDER BY date ASC
`

	rows, err := r.execer.QueryContext(ctx, query, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []domain.DateOverride
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return overrides, nil
}

func (r *DateOverridePostgresRepository) ListByDateRange(ctx context.Context, doctorID uuid.UUID, from, to domain.Date) (map[domain.Date]domain.DateOverride, error) {
	const query = `
SELECT ` + overrideColumns + `
FROM availability.date_overrides
WHERE doctor_id = $1 AND date BETWEEN $2 AND $3
ORDER BY date ASC
`

	rows, err := r.execer.QueryContext(ctx, query, doctorID, from.Time(), to.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make(map[domain.Date]domain.DateOverride)
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides[override.Date] = override
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return overrides, nil
}

func (r *DateOverridePostgresRepository) Upsert(ctx context.Context, override domain.DateOverride) error {
	slots, err := marshalSlots(override.Slots)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO availability.date_overrides (
	id,
	doctor_id,
	date,
	blackout,
	slots,
	slot_duration_minutes,
	version,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, 1, now(), now())
ON CONFLICT (doctor_id, date)
DO UPDATE SET
	blackout = EXCLUDED.blackout,
	slots = EXCLUDED.slots,
	slot_duration_minutes = EXCLUDED.slot_duration_minutes,
	version = date_overrides.version + 1,
	updated_at = now()
`

	_, err = r.execer.ExecContext(
		ctx,
		query,
		override.ID,
		override.DoctorID,
		override.Date.Time(),
		override.Blackout,
		slots,
		nullableInt(override.SlotDuration),
	)
	return err
}

func (r *DateOverridePostgresRepository) UpsertGuarded(ctx context.Context, override domain.DateOverride, expectedVersion int) (bool, error) {
	slots, err := marshalSlots(override.Slots)
	if err != nil {
		return false, err
	}

	// Two arms so every concurrent outcome surfaces as zero affected rows:
	// a positive expected version only ever updates (a row deleted in the
	// meantime is a lost race, not an insert), and expecting no row only
	// ever inserts.
	if expectedVersion > 0 {
		const query = `
UPDATE availability.date_overrides
SET
	blackout = $3,
	slots = $4,
	slot_duration_minutes = $5,
	version = version + 1,
	updated_at = now()
WHERE doctor_id = $1 AND date = $2 AND version = $6
`

		result, err := r.execer.ExecContext(
			ctx,
			query,
			override.DoctorID,
			override.Date.Time(),
			override.Blackout,
			slots,
			nullableInt(override.SlotDuration),
			expectedVersion,
		)
		if err != nil {
			return false, err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return false, err
		}
		return rows > 0, nil
	}

	const query = `
INSERT INTO availability.date_overrides (
	id,
	doctor_id,
	date,
	blackout,
	slots,
	slot_duration_minutes,
	version,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, 1, now(), now())
ON CONFLICT (doctor_id, date) DO NOTHING
`

	result, err := r.execer.ExecContext(
		ctx,
		query,
		override.ID,
		override.DoctorID,
		override.Date.Time(),
		override.Blackout,
		slots,
		nullableInt(override.SlotDuration),
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *DateOverridePostgresRepository) Delete(ctx context.Context, doctorID uuid.UUID, date domain.Date) (bool, error) {
	const query = `
DELETE FROM availability.date_overrides
WHERE doctor_id = $1 AND date = $2
`

	result, err := r.execer.ExecContext(ctx, query, doctorID, date.Time())
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func marshalSlots(slots []domain.SlotRange) ([]byte, error) {
	if slots == nil {
		slots = []domain.SlotRange{}
	}
	return json.Marshal(slots)
}

func nullableInt(value int) any {
	if value <= 0 {
		return nil
	}
	return value
}

func scanOverride(rows *sql.Rows) (domain.DateOverride, error) {
	var override domain.DateOverride
	var date sql.NullTime
	var slots []byte
	var duration sql.NullInt64
	if err := rows.Scan(
		&override.ID,
		&override.DoctorID,
		&date,
		&override.Blackout,
		&slots,
		&duration,
		&override.Version,
		&override.CreatedAt,
		&override.UpdatedAt,
	); err != nil {
		return domain.DateOverride{}, err
	}
	if date.Valid {
		override.Date = domain.DateOf(date.Time)
	}
	if err := json.Unmarshal(slots, &override.Slots); err != nil {
		return domain.DateOverride{}, err
	}
	if duration.Valid {
		override.SlotDuration = int(duration.Int64)
	}
	return override, nil
}
