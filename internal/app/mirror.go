package app

import (
	"context"
	"errors"
	"fmt"

	"hbnb/internal/domain"
)

// MirrorService copies objects from an upstream API into the local
// repository, keeping their ids and timestamps.
type MirrorService struct {
	up   domain.Upstream
	repo domain.Repository
	q    *QueryService
}

func NewMirrorService(up domain.Upstream, r domain.Repository, q *QueryService) *MirrorService {
	return &MirrorService{up: up, repo: r, q: q}
}

// MirrorDirectory copies users and amenities. It must run before
// MirrorState since places and reviews reference them.
func (s *MirrorService) MirrorDirectory(ctx context.Context) (int, error) {
	users, err := s.up.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	n := 0
	for _, u := range users {
		if err := s.repo.Users().Save(ctx, u); err != nil {
			return n, fmt.Errorf("save user %s: %w", u.ID, err)
		}
		n++
	}
	amenities, err := s.up.ListAmenities(ctx)
	if err != nil {
		return n, fmt.Errorf("list amenities: %w", err)
	}
	for _, a := range amenities {
		if err := s.repo.Amenities().Save(ctx, a); err != nil {
			return n, fmt.Errorf("save amenity %s: %w", a.ID, err)
		}
		n++
	}
	s.invalidate(ctx)
	return n, nil
}

// MirrorState copies one state with its cities, places, reviews and
// amenity links. Children that vanish upstream mid-copy are skipped.
func (s *MirrorService) MirrorState(ctx context.Context, st domain.State) (int, error) {
	// Parent first to satisfy FKs for cities.
	if err := s.repo.States().Save(ctx, st); err != nil {
		return 0, fmt.Errorf("save state %s: %w", st.ID, err)
	}
	n := 1
	defer s.invalidate(ctx)

	cities, err := s.up.ListCities(ctx, st.ID)
	if skipMissing(err) {
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("list cities of %s: %w", st.ID, err)
	}
	for _, c := range cities {
		if err := s.repo.Cities().Save(ctx, c); err != nil {
			return n, fmt.Errorf("save city %s: %w", c.ID, err)
		}
		n++

		places, err := s.up.ListPlaces(ctx, c.ID)
		if skipMissing(err) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("list places of %s: %w", c.ID, err)
		}
		for _, p := range places {
			m, err := s.mirrorPlace(ctx, p)
			n += m
			if err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func (s *MirrorService) mirrorPlace(ctx context.Context, p domain.Place) (int, error) {
	if err := s.repo.Places().Save(ctx, p); err != nil {
		// owner not mirrored (deleted upstream meanwhile)
		if domain.IsNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("save place %s: %w", p.ID, err)
	}
	n := 1

	reviews, err := s.up.ListReviews(ctx, p.ID)
	if err != nil && !skipMissing(err) {
		return n, fmt.Errorf("list reviews of %s: %w", p.ID, err)
	}
	for _, r := range reviews {
		if err := s.repo.Reviews().Save(ctx, r); err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return n, fmt.Errorf("save review %s: %w", r.ID, err)
		}
		n++
	}

	amenities, err := s.up.ListPlaceAmenities(ctx, p.ID)
	if err != nil && !skipMissing(err) {
		return n, fmt.Errorf("list amenities of %s: %w", p.ID, err)
	}
	for _, a := range amenities {
		err := s.repo.LinkAmenity(ctx, p.ID, a.ID)
		switch {
		case err == nil, errors.Is(err, domain.ErrAlreadyLinked), domain.IsNotFound(err):
		default:
			return n, fmt.Errorf("link amenity %s to %s: %w", a.ID, p.ID, err)
		}
	}
	return n, nil
}

func (s *MirrorService) invalidate(ctx context.Context) {
	if s.q != nil {
		s.q.Invalidate(ctx)
	}
}

func skipMissing(err error) bool { return err != nil && domain.IsNotFound(err) }
