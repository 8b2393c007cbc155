package memory

import (
	"context"

	"hbnb/internal/domain"
)

// table adapts one of the Store maps to domain.Store[T].
type table[T domain.Entity] struct {
	s    *Store
	kind domain.Kind
	rows func() map[string]T
	// check validates references before a save; called with the lock held.
	check func(T) error
	// remove deletes the row and everything it owns; called with the lock held.
	remove func(id string)
	// view decorates a row on the way out; called with a read lock held.
	view func(T) T
}

func (t *table[T]) Get(_ context.Context, id string) (T, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	v, ok := t.rows()[id]
	if !ok {
		var zero T
		return zero, domain.NewNotFound(t.kind, id)
	}
	return t.out(v), nil
}

func (t *table[T]) All(_ context.Context) ([]T, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make([]T, 0, len(t.rows()))
	for _, v := range t.rows() {
		out = append(out, t.out(v))
	}
	domain.SortByCreation(out)
	return out, nil
}

func (t *table[T]) Save(_ context.Context, v T) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.check != nil {
		if err := t.check(v); err != nil {
			return err
		}
	}
	snap := t.s.snapshotLocked()
	t.rows()[v.Key()] = v
	return t.s.commitLocked(snap)
}

func (t *table[T]) Delete(_ context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.rows()[id]; !ok {
		return domain.NewNotFound(t.kind, id)
	}
	snap := t.s.snapshotLocked()
	t.remove(id)
	return t.s.commitLocked(snap)
}

func (t *table[T]) Count(_ context.Context) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return len(t.rows()), nil
}

func (t *table[T]) out(v T) T {
	if t.view != nil {
		return t.view(v)
	}
	return v
}

func sortedValues[T domain.Entity](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	domain.SortByCreation(out)
	return out
}

func (s *Store) wire() {
	s.stateT = &table[domain.State]{
		s: s, kind: domain.KindState,
		rows:   func() map[string]domain.State { return s.states },
		remove: s.deleteStateLocked,
	}
	s.cityT = &table[domain.City]{
		s: s, kind: domain.KindCity,
		rows: func() map[string]domain.City { return s.cities },
		check: func(c domain.City) error {
			if _, ok := s.states[c.StateID]; !ok {
				return domain.NewNotFound(domain.KindState, c.StateID)
			}
			return nil
		},
		remove: s.deleteCityLocked,
	}
	s.placeT = &table[domain.Place]{
		s: s, kind: domain.KindPlace,
		rows: func() map[string]domain.Place { return s.places },
		check: func(p domain.Place) error {
			if _, ok := s.cities[p.CityID]; !ok {
				return domain.NewNotFound(domain.KindCity, p.CityID)
			}
			if _, ok := s.users[p.UserID]; !ok {
				return domain.NewNotFound(domain.KindUser, p.UserID)
			}
			return nil
		},
		remove: s.deletePlaceLocked,
		view:   s.withAmenities,
	}
	s.userT = &table[domain.User]{
		s: s, kind: domain.KindUser,
		rows:   func() map[string]domain.User { return s.users },
		remove: s.deleteUserLocked,
	}
	s.reviewT = &table[domain.Review]{
		s: s, kind: domain.KindReview,
		rows: func() map[string]domain.Review { return s.reviews },
		check: func(r domain.Review) error {
			if _, ok := s.places[r.PlaceID]; !ok {
				return domain.NewNotFound(domain.KindPlace, r.PlaceID)
			}
			if _, ok := s.users[r.UserID]; !ok {
				return domain.NewNotFound(domain.KindUser, r.UserID)
			}
			return nil
		},
		remove: func(id string) { delete(s.reviews, id) },
	}
	s.amenityT = &table[domain.Amenity]{
		s: s, kind: domain.KindAmenity,
		rows:   func() map[string]domain.Amenity { return s.amenities },
		remove: s.deleteAmenityLocked,
	}
}
