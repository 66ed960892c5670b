// Package schedule holds the pure resolution core: given a doctor's recurring
// rules and an optional per-date override, it computes the effective ordered
// slot list for a date. Nothing here touches storage, so every function is
// safe to call concurrently.
package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"service-availability/internal/domain"
)

// interval is one contiguous availability window awaiting slicing. Order
// preserves rule insertion order so merge tie-breaks stay deterministic.
type interval struct {
	start    domain.TimeOfDay
	end      domain.TimeOfDay
	duration int
	order    int
}

// ResolveDay computes the bookable slots for one doctor and date.
// Precedence: a blackout override silences the date entirely; an
// explicit-slots override replaces recurring output; otherwise every rule
// matching the weekday and effective window contributes, with overlapping or
// adjacent windows unioned before slicing.
func ResolveDay(doctorID uuid.UUID, date domain.Date, rules []domain.RecurringRule, override *domain.DateOverride) domain.DaySchedule {
	day := domain.DaySchedule{
		DoctorID: doctorID,
		Date:     date,
		Slots:    []domain.ResolvedSlot{},
		Token:    EncodeToken(doctorID, date, Fingerprint(rules, override)),
	}

	if override != nil {
		if override.Blackout {
			day.State = domain.DayStateBlackout
			return day
		}
		day.State = domain.DayStateOverridden
		day.Slots = sliceOverride(override, rules)
		return day
	}

	day.State = domain.DayStateRecurring
	day.Slots = sliceRecurring(date, rules)
	return day
}

func sliceOverride(override *domain.DateOverride, rules []domain.RecurringRule) []domain.ResolvedSlot {
	fallback := override.SlotDuration
	if fallback <= 0 {
		fallback = latestRuleDuration(rules)
	}

	slots := []domain.ResolvedSlot{}
	for _, r := range override.Slots {
		duration := r.Duration
		if duration <= 0 {
			duration = fallback
		}
		if duration <= 0 {
			// No granularity recorded anywhere: the range is one slot.
			duration = int(r.End - r.Start)
		}
		slots = appendSliced(slots, r.Start, r.End, duration)
	}
	return finalize(slots)
}

func sliceRecurring(date domain.Date, rules []domain.RecurringRule) []domain.ResolvedSlot {
	intervals := make([]interval, 0, len(rules))
	for i, rule := range sortByInsertion(rules) {
		if !rule.AppliesTo(date) {
			continue
		}
		intervals = append(intervals, interval{
			start:    rule.StartTime,
			end:      rule.EndTime,
			duration: rule.SlotDuration,
			order:    i,
		})
	}

	slots := []domain.ResolvedSlot{}
	for _, merged := range mergeIntervals(intervals) {
		slots = appendSliced(slots, merged.start, merged.end, merged.duration)
	}
	return finalize(slots)
}

// mergeIntervals unions overlapping or adjacent windows into superset ranges.
// A merged range keeps the slot duration of its earliest contributing
// interval (insertion order breaking start-time ties), so re-slicing stays
// deterministic.
func mergeIntervals(intervals []interval) []interval {
	if len(intervals) == 0 {
		return nil
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		if intervals[i].start != intervals[j].start {
			return intervals[i].start < intervals[j].start
		}
		return intervals[i].order < intervals[j].order
	})

	merged := []interval{intervals[0]}
	for _, next := range intervals[1:] {
		last := &merged[len(merged)-1]
		if next.start <= last.end {
			if next.end > last.end {
				last.end = next.end
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

func appendSliced(slots []domain.ResolvedSlot, start, end domain.TimeOfDay, duration int) []domain.ResolvedSlot {
	step := domain.TimeOfDay(duration)
	for cursor := start; cursor+step <= end; cursor += step {
		slots = append(slots, domain.ResolvedSlot{
			StartTime: cursor,
			EndTime:   cursor + step,
			Status:    domain.SlotStatusFree,
		})
	}
	return slots
}

// finalize orders slots ascending by start time, drops duplicate start times
// and assigns the positional indices callers address deletions by.
func finalize(slots []domain.ResolvedSlot) []domain.ResolvedSlot {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime < slots[j].StartTime
	})

	out := slots[:0]
	var prev domain.TimeOfDay = -1
	for _, slot := range slots {
		if slot.StartTime == prev {
			continue
		}
		prev = slot.StartTime
		slot.Index = len(out)
		out = append(out, slot)
	}
	return out
}

// latestRuleDuration returns the slot duration of the doctor's most recently
// defined rule, or zero when the doctor has none.
func latestRuleDuration(rules []domain.RecurringRule) int {
	duration := 0
	var latest time.Time
	for _, rule := range rules {
		if duration == 0 || rule.CreatedAt.After(latest) {
			latest = rule.CreatedAt
			duration = rule.SlotDuration
		}
	}
	return duration
}

func sortByInsertion(rules []domain.RecurringRule) []domain.RecurringRule {
	sorted := make([]domain.RecurringRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted
}
