package domain

import (
	"context"
	"sort"
	"time"
)

// Entity is anything a Store can key.
type Entity interface {
	State | City | Place | User | Review | Amenity
	Key() string
	Created() time.Time
}

// SortByCreation orders objects oldest first, ties broken by id.
func SortByCreation[T interface {
	Key() string
	Created() time.Time
}](vs []T) {
	sort.Slice(vs, func(i, j int) bool {
		ci, cj := vs[i].Created(), vs[j].Created()
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return vs[i].Key() < vs[j].Key()
	})
}

// Store is the per-kind persistence capability. Get and Delete return an
// error matching ErrNotFound for unknown ids.
type Store[T Entity] interface {
	Get(ctx context.Context, id string) (T, error)
	All(ctx context.Context) ([]T, error)
	Save(ctx context.Context, v T) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type Repository interface {
	States() Store[State]
	Cities() Store[City]
	Places() Store[Place]
	Users() Store[User]
	Reviews() Store[Review]
	Amenities() Store[Amenity]

	// Relations
	CitiesByState(ctx context.Context, stateID string) ([]City, error)
	PlacesByCity(ctx context.Context, cityID string) ([]Place, error)
	ReviewsByPlace(ctx context.Context, placeID string) ([]Review, error)
	LinkAmenity(ctx context.Context, placeID, amenityID string) error
	UnlinkAmenity(ctx context.Context, placeID, amenityID string) error

	Close() error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	// Incr atomically adds one to the integer at key (missing counts as 0)
	// and never expires it. Get reads the value back into an integer.
	Incr(ctx context.Context, key string) (int64, error)
}

// Upstream reads objects from another instance of this API.
type Upstream interface {
	ListStates(ctx context.Context) ([]State, error)
	ListCities(ctx context.Context, stateID string) ([]City, error)
	ListPlaces(ctx context.Context, cityID string) ([]Place, error)
	ListReviews(ctx context.Context, placeID string) ([]Review, error)
	ListPlaceAmenities(ctx context.Context, placeID string) ([]Amenity, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListAmenities(ctx context.Context) ([]Amenity, error)
}
