package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"service-availability/internal/cache"
	"service-availability/internal/domain"
	"service-availability/internal/repository"
	"service-availability/internal/schedule"
)

const DefaultMaxRangeDays = 31

type AvailabilityService struct {
	txManager    repository.TxManager
	directory    DoctorDirectory
	days         *cache.DayCache
	logger       zerolog.Logger
	maxRangeDays int
	storeTimeout time.Duration
	clock        func() time.Time
}

func NewAvailabilityService(
	txManager repository.TxManager,
	directory DoctorDirectory,
	days *cache.DayCache,
	logger zerolog.Logger,
	maxRangeDays int,
	storeTimeout time.Duration,
) *AvailabilityService {
	if maxRangeDays <= 0 {
		maxRangeDays = DefaultMaxRangeDays
	}
	return &AvailabilityService{
		txManager:    txManager,
		directory:    directory,
		days:         days,
		logger:       logger,
		maxRangeDays: maxRangeDays,
		storeTimeout: storeTimeout,
		clock:        time.Now,
	}
}

// withTx bounds every store round trip; the core surfaces timeouts instead of
// hanging and leaves retries to the caller.
func (s *AvailabilityService) withTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	if s.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
	}
	err := s.txManager.WithTx(ctx, fn)
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func (s *AvailabilityService) ensureDoctor(ctx context.Context, doctorID uuid.UUID) error {
	exists, err := s.directory.Exists(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("doctor directory: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// -- Reads --

// GetDoctorAvailability returns the raw persisted definitions: every
// recurring rule and every date override the doctor has.
func (s *AvailabilityService) GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID) ([]domain.RecurringRule, []domain.DateOverride, error) {
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, nil, err
	}

	var rules []domain.RecurringRule
	var overrides []domain.DateOverride
	err := s.withTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		if rules, err = repos.Rules.ListByDoctor(ctx, doctorID); err != nil {
			return err
		}
		overrides, err = repos.Overrides.ListByDoctor(ctx, doctorID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rules, overrides, nil
}

// GetDay resolves one doctor's slots for one date.
func (s *AvailabilityService) GetDay(ctx context.Context, doctorID uuid.UUID, date domain.Date) (domain.DaySchedule, error) {
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return domain.DaySchedule{}, err
	}

	if day, ok := s.days.Get(doctorID, date); ok {
		return day, nil
	}

	// Capture the epoch before resolving: if a write invalidates the doctor
	// while this read is in flight, Store drops the now-stale resolution
	// instead of resurrecting pre-write state.
	epoch := s.days.Epoch(doctorID)
	day, err := s.resolveDay(ctx, doctorID, date)
	if err != nil {
		return domain.DaySchedule{}, err
	}
	s.days.Store(day, epoch)
	return day, nil
}

func (s *AvailabilityService) resolveDay(ctx context.Context, doctorID uuid.UUID, date domain.Date) (domain.DaySchedule, error) {
	var day domain.DaySchedule
	err := s.withTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		rules, err := repos.Rules.ListByDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		override, err := repos.Overrides.GetByDate(ctx, doctorID, date)
		if err != nil {
			return err
		}
		day = schedule.ResolveDay(doctorID, date, rules, override)
		return nil
	})
	return day, err
}

// Expand resolves every date in [from, to] against one batch-read snapshot.
// The window is capped so a single request cannot materialize unbounded work.
func (s *AvailabilityService) Expand(ctx context.Context, doctorID uuid.UUID, from, to domain.Date) ([]domain.DaySchedule, error) {
	if from.IsZero() || to.IsZero() {
		return nil, wrapValidation("from", "from and to dates are required")
	}
	if to.Before(from) {
		return nil, wrapValidation("to", "to must not precede from")
	}
	if span := from.DaysUntil(to) + 1; span > s.maxRangeDays {
		return nil, wrapValidation("to", fmt.Sprintf("range spans %d days, maximum is %d", span, s.maxRangeDays))
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	var days []domain.DaySchedule
	err := s.withTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		rules, err := repos.Rules.ListByDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		overrides, err := repos.Overrides.ListByDateRange(ctx, doctorID, from, to)
		if err != nil {
			return err
		}

		days = make([]domain.DaySchedule, 0, from.DaysUntil(to)+1)
		for date := from; !date.After(to); date = date.AddDays(1) {
			var override *domain.DateOverride
			if ov, ok := overrides[date]; ok {
				override = &ov
			}
			days = append(days, schedule.ResolveDay(doctorID, date, rules, override))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}

// -- Mutations --

func (s *AvailabilityService) CreateRecurringRule(ctx context.Context, doctorID uuid.UUID, rule domain.RecurringRule) (domain.RecurringRule, error) {
	rule.DoctorID = doctorID
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if err := rule.Validate(); err != nil {
		return domain.RecurringRule{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return domain.RecurringRule{}, err
	}

	var created domain.RecurringRule
	err := s.withTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		if err := repos.Rules.Insert(ctx, rule); err != nil {
			return err
		}
		var err error
		if created, err = repos.Rules.GetByID(ctx, doctorID, rule.ID); err != nil {
			return err
		}
		return repos.Outbox.Insert(ctx, domain.AvailabilityEvent{
			EventType: domain.EventRecurringRuleCreated,
			Payload: domain.RecurringRuleChangedPayload{
				DoctorID: doctorID.String(),
				RuleID:   rule.ID.String(),
			},
		})
	})
	if err != nil {
		return domain.RecurringRule{}, err
	}

	s.days.InvalidateDoctor(doctorID)
	return created, nil
}

func (s *AvailabilityService) DeleteRecurringRule(ctx context.Context, doctorID, ruleID uuid.UUID) error {
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return err
	}

	err := s.withTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		deleted, err := repos.Rules.Delete(ctx, doctorID, ruleID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return repos.Outbox.Insert(ctx, domain.AvailabilityEvent{
			EventType: domain.EventRecurringRuleDeleted,
			Payload: domain.RecurringRuleChangedPayload{
				DoctorID: doctorID.String(),
				RuleID:   ruleID.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.days.InvalidateDoctor(doctorID)
	return nil
}

// SetDateAvailability replaces the date's availability with an explicit slot
// list, shadowing every recurring rule for that date only.
func (s *AvailabilityService) SetDateAvailability(ctx context.Context, doctorID uuid.UUID, date domain.Date, slots []domain.SlotRange, slotDuration int) (domain.DaySchedule, error) {
	if date.IsZero() {
		return domain.DaySchedule{}, wrapValidation("date", "date is required")
	}
	if err := domain.ValidateSlots(slots, slotDuration); err != nil {
		return domain.DaySchedule{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return domain.DaySchedule{}, err
	}

	override := domain.DateOverride{
		ID:           uuid.New(),
		DoctorID:     doctorID,
		Date:         date,
		Slots:        slots,
		SlotDuration: slotDuration,
	}
	day, err := s.writeOverride(ctx, override, domain.EventDateOverridden)
	if err != nil {
		return domain.DaySchedule{}, err
	}
	return day, nil
}

// RemoveAvailabilityForDate blacks the date out entirely. Repeated calls are
// idempotent: the blackout is simply upserted again.
func (s *AvailabilityService) RemoveAvailabilityForDate(ctx context.Context, doctorID uuid.UUID, date domain.Date) (domain.DaySchedule, error) {
	if date.IsZero() {
		return domain.DaySchedule{}, wrapValidation("date", "date is required")
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return domain.DaySchedule{}, err
	}

	override := domain.DateOverride{
		ID:       uuid.New(),
		DoctorID: doctorID,
		Date:     date,
		Blackout: true,
	}
	day, err := s.writeOverride(ctx, override, domain.EventDateBlackedOut)
	if err != nil {
		return domain.DaySchedule{}, err
	}
	return day, nil
}

func (s *AvailabilityService) writeOverride(ctx context.Context, override domain.DateOverride, eventType string) (domain.DaySchedule, error) {
	var day domain.DaySchedule
	err := s.withTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		if err := repos.Overrides.Upsert(ctx, override); err != nil {
			return err
		}
		if err := repos.Outbox.Insert(ctx, domain.AvailabilityEvent{
			EventType: eventType,
			Payload: domain.DateChangedPayload{
				DoctorID: override.DoctorID.String(),
				Date:     override.Date.String(),
			},
		}); err != nil {
			return err
		}

		rules, err := repos.Rules.ListByDoctor(ctx, override.DoctorID)
		if err != nil {
			return err
		}
		stored, err := repos.Overrides.GetByDate(ctx, override.DoctorID, override.Date)
		if err != nil {
			return err
		}
		day = schedule.ResolveDay(override.DoctorID, override.Date, rules, stored)
		return nil
	})
	if err != nil {
		return domain.DaySchedule{}, err
	}

	s.days.InvalidateDay(override.DoctorID, override.Date)
	return day, nil
}

// DeleteOverride removes the date's exception so recurring rules apply again.
// This is the only transition out of the Overridden and Blackout states.
func (s *AvailabilityService) DeleteOverride(ctx context.Context, doctorID uuid.UUID, date domain.Date) error {
	if date.IsZero() {
		return wrapValidation("date", "date is required")
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return err
	}

	err := s.withTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		deleted, err := repos.Overrides.Delete(ctx, doctorID, date)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return repos.Outbox.Insert(ctx, domain.AvailabilityEvent{
			EventType: domain.EventOverrideDeleted,
			Payload: domain.DateChangedPayload{
				DoctorID: doctorID.String(),
				Date:     date.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.days.InvalidateDay(doctorID, date)
	return nil
}

// RemoveSlot deletes one resolved slot by position. The token must come from
// the resolution the caller read the index from: if anything about the date
// changed since, the fingerprint no longer matches and the call fails with
// ErrConflict instead of deleting the wrong slot. A slot that originated from
// recurring rules is removed by materializing an explicit override equal to
// the remaining slots, leaving the rules untouched for every other date.
func (s *AvailabilityService) RemoveSlot(ctx context.Context, token string, slotIndex int) (domain.DaySchedule, error) {
	doctorID, date, fingerprint, err := schedule.DecodeToken(token)
	if err != nil {
		return domain.DaySchedule{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if slotIndex < 0 {
		return domain.DaySchedule{}, wrapValidation("slot_index", "slot index must not be negative")
	}

	var day domain.DaySchedule
	var removed domain.ResolvedSlot
	err = s.withTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		rules, err := repos.Rules.ListByDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		override, err := repos.Overrides.GetByDate(ctx, doctorID, date)
		if err != nil {
			return err
		}
		if schedule.Fingerprint(rules, override) != fingerprint {
			return ErrConflict
		}

		resolved := schedule.ResolveDay(doctorID, date, rules, override)
		if slotIndex >= len(resolved.Slots) {
			return ErrNotFound
		}
		removed = resolved.Slots[slotIndex]

		remaining := make([]domain.SlotRange, 0, len(resolved.Slots)-1)
		for _, slot := range resolved.Slots {
			if slot.Index == slotIndex {
				continue
			}
			remaining = append(remaining, domain.SlotRange{
				Start:    slot.StartTime,
				End:      slot.EndTime,
				Duration: int(slot.EndTime - slot.StartTime),
			})
		}

		next := domain.DateOverride{
			ID:       uuid.New(),
			DoctorID: doctorID,
			Date:     date,
			Slots:    remaining,
		}
		expectedVersion := 0
		if override != nil {
			next.ID = override.ID
			next.SlotDuration = override.SlotDuration
			expectedVersion = override.Version
		}

		applied, err := repos.Overrides.UpsertGuarded(ctx, next, expectedVersion)
		if err != nil {
			return err
		}
		if !applied {
			return ErrConflict
		}

		if err := repos.Outbox.Insert(ctx, domain.AvailabilityEvent{
			EventType: domain.EventSlotRemoved,
			Payload: domain.SlotRemovedPayload{
				DoctorID:  doctorID.String(),
				Date:      date.String(),
				StartTime: removed.StartTime.String(),
				EndTime:   removed.EndTime.String(),
			},
		}); err != nil {
			return err
		}

		stored, err := repos.Overrides.GetByDate(ctx, doctorID, date)
		if err != nil {
			return err
		}
		day = schedule.ResolveDay(doctorID, date, rules, stored)
		return nil
	})
	if err != nil {
		return domain.DaySchedule{}, err
	}

	s.days.InvalidateDay(doctorID, date)
	return day, nil
}

func wrapValidation(field, message string) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, domain.NewValidationError(field, message))
}
