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
)

// memoryStore backs the in-memory repository fakes used across the service
// tests. A monotonic fake clock stamps writes so resolution ordering and
// fingerprints stay deterministic.
type memoryStore struct {
	rules     map[uuid.UUID][]domain.RecurringRule
	overrides map[string]domain.DateOverride
	events    []domain.AvailabilityEvent

	now time.Time

	// listRulesErr fails rule listing for specific doctors, simulating a
	// partial store failure.
	listRulesErr map[uuid.UUID]error

	// afterOverrideRead fires once after the next GetByDate, letting a test
	// interleave a write between a transaction's read and its guarded upsert.
	afterOverrideRead func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rules:        make(map[uuid.UUID][]domain.RecurringRule),
		overrides:    make(map[string]domain.DateOverride),
		listRulesErr: make(map[uuid.UUID]error),
		now:          time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memoryStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func overrideKey(doctorID uuid.UUID, date domain.Date) string {
	return doctorID.String() + "|" + date.String()
}

type memoryTxManager struct {
	store *memoryStore
	err   error

	// afterTx fires once after the next transaction commits, before control
	// returns to the caller. Stands in for a concurrent writer.
	afterTx func()
}

func (m *memoryTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	if m.err != nil {
		return m.err
	}
	err := fn(ctx, repository.TxRepositories{
		Rules:     &memoryRuleRepository{store: m.store},
		Overrides: &memoryOverrideRepository{store: m.store},
		Outbox:    &memoryOutboxRepository{store: m.store},
	})
	if hook := m.afterTx; hook != nil {
		m.afterTx = nil
		hook()
	}
	return err
}

type memoryRuleRepository struct {
	store *memoryStore
}

func (r *memoryRuleRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.RecurringRule, error) {
	if err := r.store.listRulesErr[doctorID]; err != nil {
		return nil, err
	}
	rules := make([]domain.RecurringRule, len(r.store.rules[doctorID]))
	copy(rules, r.store.rules[doctorID])
	return rules, nil
}

func (r *memoryRuleRepository) GetByID(ctx context.Context, doctorID, ruleID uuid.UUID) (domain.RecurringRule, error) {
	for _, rule := range r.store.rules[doctorID] {
		if rule.ID == ruleID {
			return rule, nil
		}
	}
	return domain.RecurringRule{}, fmt.Errorf("rule %s: %w", ruleID, errors.New("no rows"))
}

func (r *memoryRuleRepository) Insert(ctx context.Context, rule domain.RecurringRule) error {
	now := r.store.tick()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	r.store.rules[rule.DoctorID] = append(r.store.rules[rule.DoctorID], rule)
	return nil
}

func (r *memoryRuleRepository) Delete(ctx context.Context, doctorID, ruleID uuid.UUID) (bool, error) {
	rules := r.store.rules[doctorID]
	for i, rule := range rules {
		if rule.ID == ruleID {
			r.store.rules[doctorID] = append(rules[:i:i], rules[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memoryOverrideRepository struct {
	store *memoryStore
}

func (r *memoryOverrideRepository) GetByDate(ctx context.Context, doctorID uuid.UUID, date domain.Date) (*domain.DateOverride, error) {
	override, ok := r.store.overrides[overrideKey(doctorID, date)]
	if hook := r.store.afterOverrideRead; hook != nil {
		r.store.afterOverrideRead = nil
		hook()
	}
	if !ok {
		return nil, nil
	}
	return &override, nil
}

func (r *memoryOverrideRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.DateOverride, error) {
	var overrides []domain.DateOverride
	for _, override := range r.store.overrides {
		if override.DoctorID == doctorID {
			overrides = append(overrides, override)
		}
	}
	return overrides, nil
}

func (r *memoryOverrideRepository) ListByDateRange(ctx context.Context, doctorID uuid.UUID, from, to domain.Date) (map[domain.Date]domain.DateOverride, error) {
	out := make(map[domain.Date]domain.DateOverride)
	for _, override := range r.store.overrides {
		if override.DoctorID != doctorID {
			continue
		}
		if override.Date.Before(from) || override.Date.After(to) {
			continue
		}
		out[override.Date] = override
	}
	return out, nil
}

func (r *memoryOverrideRepository) Upsert(ctx context.Context, override domain.DateOverride) error {
	r.apply(override)
	return nil
}

func (r *memoryOverrideRepository) UpsertGuarded(ctx context.Context, override domain.DateOverride, expectedVersion int) (bool, error) {
	existing, ok := r.store.overrides[overrideKey(override.DoctorID, override.Date)]
	if expectedVersion > 0 {
		if !ok || existing.Version != expectedVersion {
			return false, nil
		}
	} else if ok {
		return false, nil
	}
	r.apply(override)
	return true, nil
}

func (r *memoryOverrideRepository) Delete(ctx context.Context, doctorID uuid.UUID, date domain.Date) (bool, error) {
	key := overrideKey(doctorID, date)
	if _, ok := r.store.overrides[key]; !ok {
		return false, nil
	}
	delete(r.store.overrides, key)
	return true, nil
}

func (r *memoryOverrideRepository) apply(override domain.DateOverride) {
	key := overrideKey(override.DoctorID, override.Date)
	now := r.store.tick()
	if existing, ok := r.store.overrides[key]; ok {
		override.ID = existing.ID
		override.CreatedAt = existing.CreatedAt
		override.Version = existing.Version + 1
	} else {
		override.CreatedAt = now
		override.Version = 1
	}
	override.UpdatedAt = now
	r.store.overrides[key] = override
}

type memoryOutboxRepository struct {
	store *memoryStore
}

func (r *memoryOutboxRepository) Insert(ctx context.Context, event domain.AvailabilityEvent) error {
	r.store.events = append(r.store.events, event)
	return nil
}

type fakeDirectory struct {
	doctors     map[uuid.UUID]bool
	bySpecialty map[string][]uuid.UUID
	err         error
}

func newFakeDirectory(doctorIDs ...uuid.UUID) *fakeDirectory {
	d := &fakeDirectory{
		doctors:     make(map[uuid.UUID]bool),
		bySpecialty: make(map[string][]uuid.UUID),
	}
	for _, id := range doctorIDs {
		d.doctors[id] = true
		d.bySpecialty[""] = append(d.bySpecialty[""], id)
	}
	return d
}

func (d *fakeDirectory) Exists(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.doctors[doctorID], nil
}

func (d *fakeDirectory) ListBySpecialty(ctx context.Context, specialty string) ([]uuid.UUID, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.bySpecialty[specialty], nil
}

type testEnv struct {
	service   *AvailabilityService
	store     *memoryStore
	directory *fakeDirectory
	tx        *memoryTxManager
}

func newTestEnv(doctorIDs ...uuid.UUID) *testEnv {
	store := newMemoryStore()
	directory := newFakeDirectory(doctorIDs...)
	days, err := cache.NewDayCache(32)
	if err != nil {
		panic(err)
	}
	tx := &memoryTxManager{store: store}
	svc := NewAvailabilityService(tx, directory, days, zerolog.Nop(), DefaultMaxRangeDays, 0)
	return &testEnv{service: svc, store: store, directory: directory, tx: tx}
}

func (e *testEnv) lastEvent() (domain.AvailabilityEvent, bool) {
	if len(e.store.events) == 0 {
		return domain.AvailabilityEvent{}, false
	}
	return e.store.events[len(e.store.events)-1], true
}
