package scheduling

import (
	"context"
	"fmt"
)

// Guard is an extra check run after Validate and before the conflict scan. It returns a
// Rejection to refuse the candidate, or any other error when it could not decide.
type Guard func(ctx context.Context, candidate Booking) error

// Scheduler runs the booking pipeline against a Store.
type Scheduler struct {
	store  Store
	policy Policy
	guards []Guard
}

func NewScheduler(store Store, policy Policy, guards ...Guard) *Scheduler {
	return &Scheduler{
		store:  store,
		policy: policy,
		guards: guards,
	}
}

// WithStore returns a scheduler sharing policy and guards but reading and writing store.
func (s *Scheduler) WithStore(store Store) *Scheduler {
	return &Scheduler{
		store:  store,
		policy: s.policy,
		guards: s.guards,
	}
}

func (s *Scheduler) Policy() Policy {
	return s.policy
}

// Check runs the pipeline without writing. It returns nil when candidate could be booked.
func (s *Scheduler) Check(ctx context.Context, candidate Booking, excludeID string) error {
	return s.check(ctx, s.store, candidate, excludeID)
}

// Book checks candidate and inserts it while holding the lock for its date or weekday.
func (s *Scheduler) Book(ctx context.Context, candidate Booking) (Booking, error) {
	var booked Booking

	err := s.store.Atomically(ctx, candidate.LockKey(), func(ctx context.Context, tx Store) error {
		if err := s.check(ctx, tx, candidate, ""); err != nil {
			return err
		}

		var err error
		booked, err = tx.Insert(ctx, candidate)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		return nil
	})

	return booked, err
}

// Reschedule merges patch into booking id and re-runs the pipeline, skipping the booking
// itself during the conflict scan. A non-zero expectedVersion must match the stored one.
func (s *Scheduler) Reschedule(ctx context.Context, id string, patch Patch, expectedVersion int) (Booking, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}

	candidate := patch.Apply(current)

	var updated Booking

	err = s.store.Atomically(ctx, candidate.LockKey(), func(ctx context.Context, tx Store) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		if expectedVersion != 0 && current.Version != expectedVersion {
			return ErrStaleVersion
		}

		candidate := patch.Apply(current)
		if err := s.check(ctx, tx, candidate, id); err != nil {
			return err
		}

		updated, err = tx.Update(ctx, id, candidate)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		return nil
	})

	return updated, err
}

// Cancel removes booking id permanently.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Scheduler) check(ctx context.Context, store Store, candidate Booking, excludeID string) error {
	if verr := Validate(candidate, s.policy); verr != nil {
		return verr
	}

	for _, guard := range s.guards {
		if err := guard(ctx, candidate); err != nil {
			return err
		}
	}

	existing, err := store.List(ctx, SlotFilter(candidate))
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	if conflict := FindConflict(candidate, existing, excludeID); conflict != nil {
		return conflict
	}

	return nil
}
