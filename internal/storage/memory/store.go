// Package memory is the default storage engine: every object lives in maps
// guarded by one RWMutex. When opened with a path the whole store is
// rewritten to that JSON file after each mutation and reloaded on Open.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"hbnb/internal/domain"
)

type Store struct {
	mu   sync.RWMutex
	path string

	states    map[string]domain.State
	cities    map[string]domain.City
	places    map[string]domain.Place
	users     map[string]domain.User
	reviews   map[string]domain.Review
	amenities map[string]domain.Amenity
	links     map[string]map[string]struct{} // place id -> amenity ids

	stateT   *table[domain.State]
	cityT    *table[domain.City]
	placeT   *table[domain.Place]
	userT    *table[domain.User]
	reviewT  *table[domain.Review]
	amenityT *table[domain.Amenity]
}

// New returns an empty store that is never persisted.
func New() *Store {
	s := &Store{}
	s.reset()
	s.wire()
	return s
}

// Open returns a store persisted to path, loading it when the file exists.
func Open(path string) (*Store, error) {
	s := New()
	s.path = path
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reset() {
	s.states = map[string]domain.State{}
	s.cities = map[string]domain.City{}
	s.places = map[string]domain.Place{}
	s.users = map[string]domain.User{}
	s.reviews = map[string]domain.Review{}
	s.amenities = map[string]domain.Amenity{}
	s.links = map[string]map[string]struct{}{}
}

func (s *Store) States() domain.Store[domain.State]       { return s.stateT }
func (s *Store) Cities() domain.Store[domain.City]        { return s.cityT }
func (s *Store) Places() domain.Store[domain.Place]       { return s.placeT }
func (s *Store) Users() domain.Store[domain.User]         { return s.userT }
func (s *Store) Reviews() domain.Store[domain.Review]     { return s.reviewT }
func (s *Store) Amenities() domain.Store[domain.Amenity] { return s.amenityT }

func (s *Store) Close() error { return nil }

func (s *Store) CitiesByState(_ context.Context, stateID string) ([]domain.City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.City
	for _, c := range s.cities {
		if c.StateID == stateID {
			out = append(out, c)
		}
	}
	domain.SortByCreation(out)
	return out, nil
}

func (s *Store) PlacesByCity(_ context.Context, cityID string) ([]domain.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Place
	for _, p := range s.places {
		if p.CityID == cityID {
			out = append(out, s.withAmenities(p))
		}
	}
	domain.SortByCreation(out)
	return out, nil
}

func (s *Store) ReviewsByPlace(_ context.Context, placeID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.PlaceID == placeID {
			out = append(out, r)
		}
	}
	domain.SortByCreation(out)
	return out, nil
}

// LinkAmenity returns ErrAlreadyLinked when the pair exists.
func (s *Store) LinkAmenity(_ context.Context, placeID, amenityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[placeID]; !ok {
		return domain.NewNotFound(domain.KindPlace, placeID)
	}
	if _, ok := s.amenities[amenityID]; !ok {
		return domain.NewNotFound(domain.KindAmenity, amenityID)
	}
	set := s.links[placeID]
	if set == nil {
		set = map[string]struct{}{}
	}
	if _, ok := set[amenityID]; ok {
		return domain.ErrAlreadyLinked
	}
	snap := s.snapshotLocked()
	set[amenityID] = struct{}{}
	s.links[placeID] = set
	return s.commitLocked(snap)
}

func (s *Store) UnlinkAmenity(_ context.Context, placeID, amenityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[placeID][amenityID]; !ok {
		return domain.NewNotFound(domain.KindAmenity, amenityID)
	}
	snap := s.snapshotLocked()
	delete(s.links[placeID], amenityID)
	if len(s.links[placeID]) == 0 {
		delete(s.links, placeID)
	}
	return s.commitLocked(snap)
}

func (s *Store) withAmenities(p domain.Place) domain.Place {
	set := s.links[p.ID]
	p.AmenityIDs = make([]string, 0, len(set))
	for id := range set {
		p.AmenityIDs = append(p.AmenityIDs, id)
	}
	sort.Strings(p.AmenityIDs)
	return p
}

// ---- cascades (caller holds the write lock) ----

func (s *Store) deleteStateLocked(id string) {
	for cid, c := range s.cities {
		if c.StateID == id {
			s.deleteCityLocked(cid)
		}
	}
	delete(s.states, id)
}

func (s *Store) deleteCityLocked(id string) {
	for pid, p := range s.places {
		if p.CityID == id {
			s.deletePlaceLocked(pid)
		}
	}
	delete(s.cities, id)
}

func (s *Store) deletePlaceLocked(id string) {
	for rid, r := range s.reviews {
		if r.PlaceID == id {
			delete(s.reviews, rid)
		}
	}
	delete(s.links, id)
	delete(s.places, id)
}

func (s *Store) deleteUserLocked(id string) {
	for pid, p := range s.places {
		if p.UserID == id {
			s.deletePlaceLocked(pid)
		}
	}
	for rid, r := range s.reviews {
		if r.UserID == id {
			delete(s.reviews, rid)
		}
	}
	delete(s.users, id)
}

func (s *Store) deleteAmenityLocked(id string) {
	for pid, set := range s.links {
		delete(set, id)
		if len(set) == 0 {
			delete(s.links, pid)
		}
	}
	delete(s.amenities, id)
}

// ---- file persistence ----

// snapshot is a copy of every map, taken before a mutation of a persisted store.
type snapshot struct {
	taken     bool
	states    map[string]domain.State
	cities    map[string]domain.City
	places    map[string]domain.Place
	users     map[string]domain.User
	reviews   map[string]domain.Review
	amenities map[string]domain.Amenity
	links     map[string]map[string]struct{}
}

// snapshotLocked is free for a store without a file: nothing can fail to persist.
func (s *Store) snapshotLocked() snapshot {
	if s.path == "" {
		return snapshot{}
	}
	links := make(map[string]map[string]struct{}, len(s.links))
	for pid, set := range s.links {
		links[pid] = maps.Clone(set)
	}
	return snapshot{
		taken:     true,
		states:    maps.Clone(s.states),
		cities:    maps.Clone(s.cities),
		places:    maps.Clone(s.places),
		users:     maps.Clone(s.users),
		reviews:   maps.Clone(s.reviews),
		amenities: maps.Clone(s.amenities),
		links:     links,
	}
}

// commitLocked persists the store; on failure it restores snap so memory
// never holds a change the file does not.
func (s *Store) commitLocked(snap snapshot) error {
	err := s.persistLocked()
	if err != nil && snap.taken {
		s.states, s.cities, s.places = snap.states, snap.cities, snap.places
		s.users, s.reviews, s.amenities = snap.users, snap.reviews, snap.amenities
		s.links = snap.links
	}
	return err
}

// storedUser keeps the password hash, which domain.User hides from JSON.
type storedUser struct {
	domain.User
	Password string `json:"password"`
}

type fileData struct {
	States    []domain.State      `json:"states"`
	Cities    []domain.City       `json:"cities"`
	Places    []domain.Place      `json:"places"`
	Users     []storedUser        `json:"users"`
	Reviews   []domain.Review     `json:"reviews"`
	Amenities []domain.Amenity    `json:"amenities"`
	Links     map[string][]string `json:"place_amenities"`
}

func (s *Store) reload() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	var fd fileData
	if err := json.Unmarshal(b, &fd); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	for _, v := range fd.States {
		s.states[v.ID] = v
	}
	for _, v := range fd.Cities {
		s.cities[v.ID] = v
	}
	for _, v := range fd.Places {
		v.AmenityIDs = nil
		s.places[v.ID] = v
	}
	for _, v := range fd.Users {
		u := v.User
		u.Password = v.Password
		s.users[u.ID] = u
	}
	for _, v := range fd.Reviews {
		s.reviews[v.ID] = v
	}
	for _, v := range fd.Amenities {
		s.amenities[v.ID] = v
	}
	for pid, ids := range fd.Links {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		s.links[pid] = set
	}
	return nil
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	fd := fileData{
		States:    sortedValues(s.states),
		Cities:    sortedValues(s.cities),
		Places:    sortedValues(s.places),
		Reviews:   sortedValues(s.reviews),
		Amenities: sortedValues(s.amenities),
		Links:     make(map[string][]string, len(s.links)),
	}
	for _, u := range sortedValues(s.users) {
		fd.Users = append(fd.Users, storedUser{User: u, Password: u.Password})
	}
	for pid, set := range s.links {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fd.Links[pid] = ids
	}

	b, err := json.MarshalIndent(fd, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".hbnb-*.json")
	if err != nil {
		return fmt.Errorf("persist store: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("persist store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist store: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
