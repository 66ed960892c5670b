package domain

import (
	"time"

	"github.com/google/uuid"
)

// SlotRange is one contiguous bookable window inside an override. Duration
// carries the slicing granularity the range was stored with; zero means the
// override-level default applies.
type SlotRange struct {
	Start    TimeOfDay `json:"start_time"`
	End      TimeOfDay `json:"end_time"`
	Duration int       `json:"slot_duration_minutes,omitempty"`
}

// DateOverride is a per-date exception replacing recurring output entirely,
// unique per (doctor, date). Blackout true means the date has no availability
// at all; the presence of the row is what distinguishes "no availability"
// from "no override recorded". Version is the optimistic-concurrency counter
// scoped to this (doctor, date).
type DateOverride struct {
	ID           uuid.UUID   `json:"id"`
	DoctorID     uuid.UUID   `json:"doctor_id"`
	Date         Date        `json:"date"`
	Blackout     bool        `json:"blackout"`
	Slots        []SlotRange `json:"slots,omitempty"`
	SlotDuration int         `json:"slot_duration_minutes,omitempty"`
	Version      int         `json:"version"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ValidateSlots checks the explicit slot list of a non-blackout override.
// Ranges must be well-formed, stay within one day, slice evenly at their
// effective duration and not overlap each other.
func ValidateSlots(slots []SlotRange, defaultDuration int) error {
	if len(slots) == 0 {
		return NewValidationError("slots", "at least one slot range is required")
	}
	for _, slot := range slots {
		if !slot.Start.Valid() || !slot.End.Valid() {
			return NewValidationError("slots", "slot times must fall within a single day")
		}
		if slot.Start >= slot.End {
			return NewValidationError("slots", "slot start must be before slot end")
		}
		duration := slot.Duration
		if duration == 0 {
			duration = defaultDuration
		}
		if duration <= 0 {
			return NewValidationError("slot_duration_minutes", "slot duration must be positive")
		}
		if int(slot.End-slot.Start)%duration != 0 {
			return NewValidationError("slots", "slot range must be an exact multiple of its duration")
		}
	}
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Start < slots[j].End && slots[j].Start < slots[i].End {
				return NewValidationError("slots", "slot ranges must not overlap")
			}
		}
	}
	return nil
}
