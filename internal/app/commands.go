package app

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hbnb/internal/domain"
)

type CommandService struct {
	repo domain.Repository
	q    *QueryService
	now  func() time.Time
}

// NewCommandService invalidates q's cache after every successful write.
func NewCommandService(r domain.Repository, q *QueryService) *CommandService {
	return &CommandService{repo: r, q: q, now: time.Now}
}

// WithClock overrides the time source; used by tests.
func (s *CommandService) WithClock(now func() time.Time) *CommandService {
	s.now = now
	return s
}

func (s *CommandService) written(ctx context.Context, err error) error {
	if err == nil && s.q != nil {
		s.q.Invalidate(ctx)
	}
	return err
}

// ---- create ----

func (s *CommandService) CreateState(ctx context.Context, in domain.State) (domain.State, error) {
	in.Base = domain.NewBase(s.now())
	return in, s.written(ctx, s.repo.States().Save(ctx, in))
}

func (s *CommandService) CreateAmenity(ctx context.Context, in domain.Amenity) (domain.Amenity, error) {
	in.Base = domain.NewBase(s.now())
	return in, s.written(ctx, s.repo.Amenities().Save(ctx, in))
}

func (s *CommandService) CreateCity(ctx context.Context, stateID string, in domain.City) (domain.City, error) {
	if _, err := s.repo.States().Get(ctx, stateID); err != nil {
		return domain.City{}, err
	}
	in.Base = domain.NewBase(s.now())
	in.StateID = stateID
	return in, s.written(ctx, s.repo.Cities().Save(ctx, in))
}

// CreateUser stores a bcrypt hash of password.
func (s *CommandService) CreateUser(ctx context.Context, in domain.User, password string) (domain.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	in.Base = domain.NewBase(s.now())
	in.Password = hash
	return in, s.written(ctx, s.repo.Users().Save(ctx, in))
}

// CreatePlace requires both the city and in.UserID to exist.
func (s *CommandService) CreatePlace(ctx context.Context, cityID string, in domain.Place) (domain.Place, error) {
	if _, err := s.repo.Cities().Get(ctx, cityID); err != nil {
		return domain.Place{}, err
	}
	if _, err := s.repo.Users().Get(ctx, in.UserID); err != nil {
		return domain.Place{}, err
	}
	in.Base = domain.NewBase(s.now())
	in.CityID = cityID
	in.AmenityIDs = []string{}
	return in, s.written(ctx, s.repo.Places().Save(ctx, in))
}

// CreateReview requires both the place and in.UserID to exist.
func (s *CommandService) CreateReview(ctx context.Context, placeID string, in domain.Review) (domain.Review, error) {
	if _, err := s.repo.Places().Get(ctx, placeID); err != nil {
		return domain.Review{}, err
	}
	if _, err := s.repo.Users().Get(ctx, in.UserID); err != nil {
		return domain.Review{}, err
	}
	in.Base = domain.NewBase(s.now())
	in.PlaceID = placeID
	return in, s.written(ctx, s.repo.Reviews().Save(ctx, in))
}

// ---- update ----

func update[T domain.Entity](ctx context.Context, s *CommandService, store domain.Store[T], id string, apply func(*T) error) (T, error) {
	v, err := store.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := apply(&v); err != nil {
		var zero T
		return zero, err
	}
	return v, s.written(ctx, store.Save(ctx, v))
}

func (s *CommandService) UpdateState(ctx context.Context, id string, p domain.StatePatch) (domain.State, error) {
	return update(ctx, s, s.repo.States(), id, func(v *domain.State) error {
		p.Apply(v)
		v.Touch(s.now())
		return nil
	})
}

func (s *CommandService) UpdateCity(ctx context.Context, id string, p domain.CityPatch) (domain.City, error) {
	return update(ctx, s, s.repo.Cities(), id, func(v *domain.City) error {
		p.Apply(v)
		v.Touch(s.now())
		return nil
	})
}

func (s *CommandService) UpdateAmenity(ctx context.Context, id string, p domain.AmenityPatch) (domain.Amenity, error) {
	return update(ctx, s, s.repo.Amenities(), id, func(v *domain.Amenity) error {
		p.Apply(v)
		v.Touch(s.now())
		return nil
	})
}

func (s *CommandService) UpdateUser(ctx context.Context, id string, p domain.UserPatch) (domain.User, error) {
	return update(ctx, s, s.repo.Users(), id, func(v *domain.User) error {
		p.Apply(v)
		if p.Password != nil {
			hash, err := hashPassword(*p.Password)
			if err != nil {
				return err
			}
			v.Password = hash
		}
		v.Touch(s.now())
		return nil
	})
}

func (s *CommandService) UpdatePlace(ctx context.Context, id string, p domain.PlacePatch) (domain.Place, error) {
	return update(ctx, s, s.repo.Places(), id, func(v *domain.Place) error {
		p.Apply(v)
		v.Touch(s.now())
		return nil
	})
}

func (s *CommandService) UpdateReview(ctx context.Context, id string, p domain.ReviewPatch) (domain.Review, error) {
	return update(ctx, s, s.repo.Reviews(), id, func(v *domain.Review) error {
		p.Apply(v)
		v.Touch(s.now())
		return nil
	})
}

// ---- delete ----

// Delete removes one object of kind; the store cascades to owned objects.
func (s *CommandService) Delete(ctx context.Context, kind domain.Kind, id string) error {
	var err error
	switch kind {
	case domain.KindState:
		err = s.repo.States().Delete(ctx, id)
	case domain.KindCity:
		err = s.repo.Cities().Delete(ctx, id)
	case domain.KindPlace:
		err = s.repo.Places().Delete(ctx, id)
	case domain.KindUser:
		err = s.repo.Users().Delete(ctx, id)
	case domain.KindReview:
		err = s.repo.Reviews().Delete(ctx, id)
	case domain.KindAmenity:
		err = s.repo.Amenities().Delete(ctx, id)
	default:
		return fmt.Errorf("delete: unknown kind %q", kind)
	}
	return s.written(ctx, err)
}

// ---- place <-> amenity ----

// LinkAmenity reports created=false when the amenity was already linked.
func (s *CommandService) LinkAmenity(ctx context.Context, placeID, amenityID string) (domain.Amenity, bool, error) {
	if _, err := s.repo.Places().Get(ctx, placeID); err != nil {
		return domain.Amenity{}, false, err
	}
	a, err := s.repo.Amenities().Get(ctx, amenityID)
	if err != nil {
		return domain.Amenity{}, false, err
	}
	err = s.repo.LinkAmenity(ctx, placeID, amenityID)
	if errors.Is(err, domain.ErrAlreadyLinked) {
		return a, false, nil
	}
	if err != nil {
		return domain.Amenity{}, false, err
	}
	return a, true, s.written(ctx, nil)
}

// UnlinkAmenity fails with ErrNotFound when the place, the amenity, or the
// link itself is missing.
func (s *CommandService) UnlinkAmenity(ctx context.Context, placeID, amenityID string) error {
	if _, err := s.repo.Places().Get(ctx, placeID); err != nil {
		return err
	}
	if _, err := s.repo.Amenities().Get(ctx, amenityID); err != nil {
		return err
	}
	return s.written(ctx, s.repo.UnlinkAmenity(ctx, placeID, amenityID))
}

// bcrypt only reads 72 bytes, so passwords are reduced to a fixed-size
// SHA-256 digest first.
func prehash(pw string) []byte {
	sum := sha256.Sum256([]byte(pw))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(prehash(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func checkPassword(u domain.User, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), prehash(pw)) == nil
}
