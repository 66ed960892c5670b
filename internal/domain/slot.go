package domain

import "github.com/google/uuid"

type SlotStatus string

const (
	SlotStatusFree   SlotStatus = "free"
	SlotStatusBooked SlotStatus = "booked"
)

// DayState tags how a date's availability was derived. Keeping the three
// outcomes as an explicit discriminant makes the override-over-recurring
// precedence a total function instead of an implicit fallthrough.
type DayState string

const (
	DayStateRecurring  DayState = "recurring"
	DayStateOverridden DayState = "overridden"
	DayStateBlackout   DayState = "blackout"
)

// ResolvedSlot is one concrete bookable unit computed on read. Index is its
// position in the day's resolved list; it is only meaningful against the
// resolution it came from.
type ResolvedSlot struct {
	Index     int        `json:"index"`
	StartTime TimeOfDay  `json:"start_time"`
	EndTime   TimeOfDay  `json:"end_time"`
	Status    SlotStatus `json:"status"`
}

// DaySchedule is the resolved availability of one doctor on one date. Token
// is the opaque availability id addressing this exact resolution; any
// mutation of the date's inputs invalidates it.
type DaySchedule struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Date     Date           `json:"date"`
	State    DayState       `json:"state"`
	Slots    []ResolvedSlot `json:"slots"`
	Token    string         `json:"availability_id"`
}

// SlotAt returns the slot whose half-open window [start, end) contains t.
func (d DaySchedule) SlotAt(t TimeOfDay) (ResolvedSlot, bool) {
	for _, slot := range d.Slots {
		if slot.StartTime <= t && t < slot.EndTime {
			return slot, true
		}
	}
	return ResolvedSlot{}, false
}
