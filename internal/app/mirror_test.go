package app_test

import (
	"context"
	"testing"
	"time"

	"hbnb/internal/app"
	"hbnb/internal/domain"
	"hbnb/internal/storage/memory"
)

type fakeUpstream struct {
	states    []domain.State
	cities    map[string][]domain.City
	places    map[string][]domain.Place
	reviews   map[string][]domain.Review
	links     map[string][]domain.Amenity
	users     []domain.User
	amenities []domain.Amenity
}

func (f *fakeUpstream) ListStates(ctx context.Context) ([]domain.State, error)      { return f.states, nil }
func (f *fakeUpstream) ListCities(ctx context.Context, id string) ([]domain.City, error) {
	cs, ok := f.cities[id]
	if !ok {
		return nil, domain.NewNotFound(domain.KindState, id)
	}
	return cs, nil
}
func (f *fakeUpstream) ListPlaces(ctx context.Context, id string) ([]domain.Place, error) {
	return f.places[id], nil
}
func (f *fakeUpstream) ListReviews(ctx context.Context, id string) ([]domain.Review, error) {
	return f.reviews[id], nil
}
func (f *fakeUpstream) ListPlaceAmenities(ctx context.Context, id string) ([]domain.Amenity, error) {
	return f.links[id], nil
}
func (f *fakeUpstream) ListUsers(ctx context.Context) ([]domain.User, error)        { return f.users, nil }
func (f *fakeUpstream) ListAmenities(ctx context.Context) ([]domain.Amenity, error) { return f.amenities, nil }

func TestMirror_CopiesTreeKeepingIDs(t *testing.T) {
	now := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	u := domain.User{Base: domain.NewBase(now), Email: "u@example.com"}
	a := domain.Amenity{Base: domain.NewBase(now), Name: "Wifi"}
	s := domain.State{Base: domain.NewBase(now), Name: "S"}
	gone := domain.State{Base: domain.NewBase(now), Name: "deleted upstream"}
	c := domain.City{Base: domain.NewBase(now), StateID: s.ID, Name: "C"}
	p := domain.Place{Base: domain.NewBase(now), CityID: c.ID, UserID: u.ID, Name: "P"}
	r := domain.Review{Base: domain.NewBase(now), PlaceID: p.ID, UserID: u.ID, Text: "ok"}

	up := &fakeUpstream{
		states:    []domain.State{s, gone},
		cities:    map[string][]domain.City{s.ID: {c}},
		places:    map[string][]domain.Place{c.ID: {p}},
		reviews:   map[string][]domain.Review{p.ID: {r}},
		links:     map[string][]domain.Amenity{p.ID: {a}},
		users:     []domain.User{u},
		amenities: []domain.Amenity{a},
	}
	repo := memory.New()
	m := app.NewMirrorService(up, repo, nil)
	ctx := context.Background()

	if n, err := m.MirrorDirectory(ctx); err != nil || n != 2 {
		t.Fatalf("directory: n=%d err=%v", n, err)
	}
	n, err := m.MirrorState(ctx, s)
	if err != nil || n != 4 {
		t.Fatalf("state: n=%d err=%v", n, err)
	}
	if n, err := m.MirrorState(ctx, gone); err != nil || n != 1 {
		t.Fatalf("state gone upstream: n=%d err=%v", n, err)
	}

	got, err := repo.Places().Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("place not mirrored: %v", err)
	}
	if !got.CreatedAt.Equal(now) || len(got.AmenityIDs) != 1 || got.AmenityIDs[0] != a.ID {
		t.Fatalf("unexpected mirrored place: %+v", got)
	}
	if rs, _ := repo.ReviewsByPlace(ctx, p.ID); len(rs) != 1 || rs[0].ID != r.ID {
		t.Fatalf("unexpected reviews: %+v", rs)
	}
}

func TestMirror_InvalidatesSharedCache(t *testing.T) {
	now := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	s := domain.State{Base: domain.NewBase(now), Name: "old"}
	repo := memory.New()
	ctx := context.Background()
	if err := repo.States().Save(ctx, s); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cache := &fakeCache{}
	api := app.NewQueryService(repo, cache, time.Minute)
	if got, _ := api.GetState(ctx, s.ID); got.Name != "old" {
		t.Fatalf("warm cache: %+v", got)
	}

	renamed := s
	renamed.Name = "new"
	m := app.NewMirrorService(&fakeUpstream{}, repo, app.NewQueryService(repo, cache, time.Minute))
	if _, err := m.MirrorState(ctx, renamed); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if got, _ := api.GetState(ctx, s.ID); got.Name != "new" {
		t.Fatalf("api served pre-mirror state: %+v", got)
	}
}
