package domain

// PlaceSearch holds the three optional filters of a places search. An empty
// slice means "no filter on this dimension".
type PlaceSearch struct {
	States    []string `json:"states"`
	Cities    []string `json:"cities"`
	Amenities []string `json:"amenities"`
}

func (q PlaceSearch) IsEmpty() bool {
	return len(q.States) == 0 && len(q.Cities) == 0 && len(q.Amenities) == 0
}

// SearchSnapshot is the read-only view SearchPlaces works on. Only resolved
// ids appear as keys; anything missing was unknown to the store.
type SearchSnapshot struct {
	// AllPlaces is consulted only when every filter is empty.
	AllPlaces []Place
	// StateCities maps a resolved state id to the ids of its cities.
	StateCities map[string][]string
	// CityPlaces maps a resolved city id to the places it owns.
	CityPlaces map[string][]Place
}

// SearchPlaces returns the places matching q, deduplicated by id, in the
// order they were first reached.
//
// Amenities only narrow a location-selected set: with no state or city
// filter and a non-empty amenity filter the result is empty.
func SearchPlaces(q PlaceSearch, snap SearchSnapshot) []Place {
	if q.IsEmpty() {
		return dedupePlaces(snap.AllPlaces)
	}

	var cities []string
	seenCity := make(map[string]struct{})
	addCity := func(id string) {
		if _, ok := seenCity[id]; ok {
			return
		}
		seenCity[id] = struct{}{}
		cities = append(cities, id)
	}
	for _, sid := range q.States {
		for _, cid := range snap.StateCities[sid] {
			addCity(cid)
		}
	}
	for _, cid := range q.Cities {
		if _, ok := snap.CityPlaces[cid]; ok {
			addCity(cid)
		}
	}

	var candidates []Place
	for _, cid := range cities {
		candidates = append(candidates, snap.CityPlaces[cid]...)
	}
	candidates = dedupePlaces(candidates)

	if len(q.Amenities) == 0 {
		return candidates
	}
	out := candidates[:0]
	for _, p := range candidates {
		if p.HasAmenities(q.Amenities) {
			out = append(out, p)
		}
	}
	return out
}

func dedupePlaces(in []Place) []Place {
	out := make([]Place, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
