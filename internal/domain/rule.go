package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecurringRule is a weekly-repeating availability template for one doctor,
// bounded by an inclusive effective window. EffectiveUntil nil means
// open-ended. Multiple rules per doctor may coexist and may overlap on the
// same weekday; overlaps are merged at resolution time, never rejected here.
type RecurringRule struct {
	ID            uuid.UUID `json:"id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	DaysOfWeek    []int     `json:"days_of_week"` // weekday ordinals, 0 = Sunday
	StartTime     TimeOfDay `json:"start_time"`
	EndTime       TimeOfDay `json:"end_time"`
	SlotDuration  int       `json:"slot_duration_minutes"`
	EffectiveFrom Date      `json:"effective_from"`
	EffectiveUntil *Date    `json:"effective_until,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (r RecurringRule) Validate() error {
	if len(r.DaysOfWeek) == 0 {
		return NewValidationError("days_of_week", "at least one weekday is required")
	}
	for _, day := range r.DaysOfWeek {
		if day < 0 || day > 6 {
			return NewValidationError("days_of_week", "weekday ordinals must be in 0..6")
		}
	}
	if !r.StartTime.Valid() {
		return NewValidationError("start_time", "start_time must fall within a single day")
	}
	if !r.EndTime.Valid() {
		return NewValidationError("end_time", "end_time must fall within a single day")
	}
	if r.StartTime >= r.EndTime {
		return NewValidationError("start_time", "start_time must be before end_time")
	}
	if r.SlotDuration <= 0 {
		return NewValidationError("slot_duration_minutes", "slot duration must be positive")
	}
	if int(r.EndTime-r.StartTime)%r.SlotDuration != 0 {
		return NewValidationError("slot_duration_minutes", "window must be an exact multiple of the slot duration")
	}
	if r.EffectiveFrom.IsZero() {
		return NewValidationError("effective_from", "effective_from is required")
	}
	if r.EffectiveUntil != nil && r.EffectiveUntil.Before(r.EffectiveFrom) {
		return NewValidationError("effective_until", "effective_until must not precede effective_from")
	}
	return nil
}

// AppliesTo reports whether the rule contributes slots on the given date.
func (r RecurringRule) AppliesTo(date Date) bool {
	if date.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveUntil != nil && date.After(*r.EffectiveUntil) {
		return false
	}
	weekday := date.Weekday()
	for _, day := range r.DaysOfWeek {
		if day == weekday {
			return true
		}
	}
	return false
}
