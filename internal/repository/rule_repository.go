package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"service-availability/internal/domain"
)

type RecurringRuleRepository interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.RecurringRule, error)
	GetByID(ctx context.Context, doctorID, ruleID uuid.UUID) (domain.RecurringRule, error)
	Insert(ctx context.Context, rule domain.RecurringRule) error
	Delete(ctx context.Context, doctorID, ruleID uuid.UUID) (bool, error)
}

type RecurringRulePostgresRepository struct {
	execer Execer
}

func NewRecurringRulePostgresRepository(execer Execer) *RecurringRulePostgresRepository {
	return &RecurringRulePostgresRepository{execer: execer}
}

func (r *RecurringRulePostgresRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.RecurringRule, error) {
	const query = `
SELECT id, doctor_id, days_of_week, start_minute, end_minute, slot_duration_minutes,
       effective_from, effective_until, created_at, updated_at
FROM availability.recurring_rules
WHERE doctor_id = $1
ORDER BY created_at ASC, id ASC
`

	rows, err := r.execer.QueryContext(ctx, query, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rules, nil
}

func (r *RecurringRulePostgresRepository) GetByID(ctx context.Context, doctorID, ruleID uuid.UUID) (domain.RecurringRule, error) {
	const query = `
SELECT id, doctor_id, days_of_week, start_minute, end_minute, slot_duration_minutes,
       effective_from, effective_until, created_at, updated_at
FROM availability.recurring_rules
WHERE doctor_id = $1 AND id = $2
`

	rows, err := r.execer.QueryContext(ctx, query, doctorID, ruleID)
	if err != nil {
		return domain.RecurringRule{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.RecurringRule{}, err
		}
		return domain.RecurringRule{}, sql.ErrNoRows
	}
	return scanRule(rows)
}

func (r *RecurringRulePostgresRepository) Insert(ctx context.Context, rule domain.RecurringRule) error {
	days, err := json.Marshal(rule.DaysOfWeek)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO availability.recurring_rules (
	id,
	doctor_id,
	days_of_week,
	start_minute,
	end_minute,
	slot_duration_minutes,
	effective_from,
	effective_until,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
`

	var until any
	if rule.EffectiveUntil != nil {
		until = rule.EffectiveUntil.Time()
	}

	_, err = r.execer.ExecContext(
		ctx,
		query,
		rule.ID,
		rule.DoctorID,
		days,
		int(rule.StartTime),
		int(rule.EndTime),
		rule.SlotDuration,
		rule.EffectiveFrom.Time(),
		until,
	)
	return err
}

func (r *RecurringRulePostgresRepository) Delete(ctx context.Context, doctorID, ruleID uuid.UUID) (bool, error) {
	const query = `
DELETE FROM availability.recurring_rules
WHERE doctor_id = $1 AND id = $2
`

	result, err := r.execer.ExecContext(ctx, query, doctorID, ruleID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

type ruleScanner interface {
	Scan(dest ...any) error
}

func scanRule(row ruleScanner) (domain.RecurringRule, error) {
	var rule domain.RecurringRule
	var days []byte
	var startMinute, endMinute int
	var effectiveFrom sql.NullTime
	var effectiveUntil sql.NullTime
	if err := row.Scan(
		&rule.ID,
		&rule.DoctorID,
		&days,
		&startMinute,
		&endMinute,
		&rule.SlotDuration,
		&effectiveFrom,
		&effectiveUntil,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return domain.RecurringRule{}, err
	}
	if err := json.Unmarshal(days, &rule.DaysOfWeek); err != nil {
		return domain.RecurringRule{}, err
	}
	rule.StartTime = domain.TimeOfDay(startMinute)
	rule.EndTime = domain.TimeOfDay(endMinute)
	if effectiveFrom.Valid {
		rule.EffectiveFrom = domain.DateOf(effectiveFrom.Time)
	}
	if effectiveUntil.Valid {
		until := domain.DateOf(effectiveUntil.Time)
		rule.EffectiveUntil = &until
	}
	return rule, nil
}
