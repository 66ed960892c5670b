package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"service-availability/internal/domain"
)

// SearchMatch pairs a doctor with the slot that covers the requested time.
type SearchMatch struct {
	DoctorID uuid.UUID           `json:"doctor_id"`
	Slot     domain.ResolvedSlot `json:"slot"`
}

// Search scans every candidate doctor (optionally pre-filtered by specialty
// through the directory) and keeps those whose resolved availability on the
// date contains a slot covering the requested time. One doctor's resolution
// failing is logged and skips that doctor only; the scan itself never aborts.
// Results order: earliest matching slot first, ties by doctor id ascending.
func (s *AvailabilityService) Search(ctx context.Context, date domain.Date, at domain.TimeOfDay, specialty string) ([]SearchMatch, error) {
	if date.IsZero() {
		return nil, wrapValidation("date", "date is required")
	}
	if !at.Valid() {
		return nil, wrapValidation("time", "time must fall within a single day")
	}

	candidates, err := s.directory.ListBySpecialty(ctx, specialty)
	if err != nil {
		return nil, fmt.Errorf("doctor directory: %w", err)
	}

	matches := make([]SearchMatch, 0)
	for _, doctorID := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		day, err := s.resolveDay(ctx, doctorID, date)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("doctor_id", doctorID.String()).
				Str("date", date.String()).
				Msg("search: skipping doctor, resolution failed")
			continue
		}

		if slot, ok := day.SlotAt(at); ok {
			matches = append(matches, SearchMatch{DoctorID: doctorID, Slot: slot})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Slot.StartTime != matches[j].Slot.StartTime {
			return matches[i].Slot.StartTime < matches[j].Slot.StartTime
		}
		return matches[i].DoctorID.String() < matches[j].DoctorID.String()
	})
	return matches, nil
}
