package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"hbnb/internal/domain"
)

// genKey holds the cache generation. It lives in the cache backend so every
// API instance, restarted or not, and the mirror tool agree on it.
const genKey = "hbnb:gen"

type QueryService struct {
	repo     domain.Repository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.Repository, c domain.Cache, ttl time.Duration) *QueryService {
	if c == nil {
		c = NopCache{}
	}
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

// Invalidate drops every cached read by bumping the shared generation.
func (s *QueryService) Invalidate(ctx context.Context) {
	if _, err := s.cache.Incr(ctx, genKey); err != nil {
		log.Warn().Err(err).Msg("cache invalidation failed")
	}
}

// key namespaces parts under the current generation. It returns "" when the
// generation cannot be read; callers then bypass the cache.
func (s *QueryService) key(ctx context.Context, parts ...any) string {
	var gen int64
	if _, err := s.cache.Get(ctx, genKey, &gen); err != nil {
		return ""
	}
	k := fmt.Sprintf("hbnb:%d", gen)
	for _, p := range parts {
		k += fmt.Sprintf(":%v", p)
	}
	return k
}

func cachedGet[T domain.Entity](ctx context.Context, s *QueryService, kind domain.Kind, store domain.Store[T], id string) (T, error) {
	key := s.key(ctx, kind, id)
	var v T
	if key != "" {
		if ok, _ := s.cache.Get(ctx, key, &v); ok {
			return v, nil
		}
	}
	v, err := store.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	if key != "" {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
	return v, nil
}

func (s *QueryService) GetState(ctx context.Context, id string) (domain.State, error) {
	return cachedGet(ctx, s, domain.KindState, s.repo.States(), id)
}

func (s *QueryService) GetCity(ctx context.Context, id string) (domain.City, error) {
	return cachedGet(ctx, s, domain.KindCity, s.repo.Cities(), id)
}

func (s *QueryService) GetPlace(ctx context.Context, id string) (domain.Place, error) {
	return cachedGet(ctx, s, domain.KindPlace, s.repo.Places(), id)
}

func (s *QueryService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return cachedGet(ctx, s, domain.KindUser, s.repo.Users(), id)
}

func (s *QueryService) GetReview(ctx context.Context, id string) (domain.Review, error) {
	return cachedGet(ctx, s, domain.KindReview, s.repo.Reviews(), id)
}

func (s *QueryService) GetAmenity(ctx context.Context, id string) (domain.Amenity, error) {
	return cachedGet(ctx, s, domain.KindAmenity, s.repo.Amenities(), id)
}

func (s *QueryService) ListStates(ctx context.Context) ([]domain.State, error) {
	return s.repo.States().All(ctx)
}

func (s *QueryService) ListAmenities(ctx context.Context) ([]domain.Amenity, error) {
	return s.repo.Amenities().All(ctx)
}

func (s *QueryService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.Users().All(ctx)
}

// ListCities returns the cities of a state; unknown states are ErrNotFound.
func (s *QueryService) ListCities(ctx context.Context, stateID string) ([]domain.City, error) {
	if _, err := s.repo.States().Get(ctx, stateID); err != nil {
		return nil, err
	}
	return s.repo.CitiesByState(ctx, stateID)
}

func (s *QueryService) ListPlaces(ctx context.Context, cityID string) ([]domain.Place, error) {
	if _, err := s.repo.Cities().Get(ctx, cityID); err != nil {
		return nil, err
	}
	return s.repo.PlacesByCity(ctx, cityID)
}

func (s *QueryService) ListReviews(ctx context.Context, placeID string) ([]domain.Review, error) {
	if _, err := s.repo.Places().Get(ctx, placeID); err != nil {
		return nil, err
	}
	return s.repo.ReviewsByPlace(ctx, placeID)
}

// ListPlaceAmenities resolves the amenity ids linked to a place. Ids whose
// amenity vanished meanwhile are skipped.
func (s *QueryService) ListPlaceAmenities(ctx context.Context, placeID string) ([]domain.Amenity, error) {
	p, err := s.repo.Places().Get(ctx, placeID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Amenity, 0, len(p.AmenityIDs))
	for _, id := range p.AmenityIDs {
		a, err := s.repo.Amenities().Get(ctx, id)
		if domain.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	domain.SortByCreation(out)
	return out, nil
}

func (s *QueryService) Stats(ctx context.Context) (domain.Stats, error) {
	key := s.key(ctx, "stats")
	var st domain.Stats
	if key != "" {
		if ok, _ := s.cache.Get(ctx, key, &st); ok {
			return st, nil
		}
	}
	counts := []struct {
		dst   *int
		count func(context.Context) (int, error)
	}{
		{&st.Amenities, s.repo.Amenities().Count},
		{&st.Cities, s.repo.Cities().Count},
		{&st.Places, s.repo.Places().Count},
		{&st.Reviews, s.repo.Reviews().Count},
		{&st.States, s.repo.States().Count},
		{&st.Users, s.repo.Users().Count},
	}
	for _, c := range counts {
		n, err := c.count(ctx)
		if err != nil {
			return domain.Stats{}, err
		}
		*c.dst = n
	}
	if key != "" {
		_ = s.cache.Set(ctx, key, st, int(s.cacheTTL.Seconds()))
	}
	return st, nil
}

// SearchPlaces resolves the ids in q against the repository, then filters
// the resulting snapshot. Unknown ids contribute nothing.
func (s *QueryService) SearchPlaces(ctx context.Context, q domain.PlaceSearch) ([]domain.Place, error) {
	snap, err := s.searchSnapshot(ctx, q)
	if err != nil {
		return nil, err
	}
	out := domain.SearchPlaces(q, snap)
	domain.SortByCreation(out)
	return out, nil
}

func (s *QueryService) searchSnapshot(ctx context.Context, q domain.PlaceSearch) (domain.SearchSnapshot, error) {
	snap := domain.SearchSnapshot{
		StateCities: map[string][]string{},
		CityPlaces:  map[string][]domain.Place{},
	}
	if q.IsEmpty() {
		all, err := s.repo.Places().All(ctx)
		snap.AllPlaces = all
		return snap, err
	}

	loadCity := func(cityID string) error {
		if _, ok := snap.CityPlaces[cityID]; ok {
			return nil
		}
		ps, err := s.repo.PlacesByCity(ctx, cityID)
		if err != nil {
			return err
		}
		if ps == nil {
			ps = []domain.Place{}
		}
		snap.CityPlaces[cityID] = ps
		return nil
	}

	for _, sid := range q.States {
		if _, ok := snap.StateCities[sid]; ok {
			continue
		}
		if _, err := s.repo.States().Get(ctx, sid); err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return snap, err
		}
		cities, err := s.repo.CitiesByState(ctx, sid)
		if err != nil {
			return snap, err
		}
		ids := make([]string, 0, len(cities))
		for _, c := range cities {
			ids = append(ids, c.ID)
			if err := loadCity(c.ID); err != nil {
				return snap, err
			}
		}
		snap.StateCities[sid] = ids
	}
	for _, cid := range q.Cities {
		if _, ok := snap.CityPlaces[cid]; ok {
			continue
		}
		if _, err := s.repo.Cities().Get(ctx, cid); err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return snap, err
		}
		if err := loadCity(cid); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// NopCache is used when no cache backend is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, string, any, int) error    { return nil }
func (NopCache) Del(context.Context, string) error              { return nil }
func (NopCache) Incr(context.Context, string) (int64, error)    { return 0, nil }
