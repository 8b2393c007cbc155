package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind names an entity type; it doubles as the key used by stats and cache keys.
type Kind string

const (
	KindState   Kind = "State"
	KindCity    Kind = "City"
	KindPlace   Kind = "Place"
	KindUser    Kind = "User"
	KindReview  Kind = "Review"
	KindAmenity Kind = "Amenity"
)

// Kinds lists every entity kind in a stable order.
var Kinds = []Kind{KindAmenity, KindCity, KindPlace, KindReview, KindState, KindUser}

type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBase stamps a fresh uuid and creation time.
func NewBase(now time.Time) Base {
	now = now.UTC()
	return Base{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
}

func (b Base) Key() string { return b.ID }

func (b Base) Created() time.Time { return b.CreatedAt }

// Touch moves UpdatedAt forward.
func (b *Base) Touch(now time.Time) { b.UpdatedAt = now.UTC() }

type State struct {
	Base
	Name string `json:"name"`
}

type City struct {
	Base
	StateID string `json:"state_id"`
	Name    string `json:"name"`
}

type User struct {
	Base
	Email     string `json:"email"`
	Password  string `json:"-"` // bcrypt hash
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Place struct {
	Base
	CityID         string   `json:"city_id"`
	UserID         string   `json:"user_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	NumberRooms    int      `json:"number_rooms"`
	NumberBathroom int      `json:"number_bathrooms"`
	MaxGuest       int      `json:"max_guest"`
	PriceByNight   int      `json:"price_by_night"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AmenityIDs     []string `json:"amenity_ids"` // maintained by LinkAmenity/UnlinkAmenity
}

// HasAmenities reports whether the place carries every id in want.
func (p Place) HasAmenities(want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(p.AmenityIDs))
	for _, id := range p.AmenityIDs {
		have[id] = struct{}{}
	}
	for _, id := range want {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

type Review struct {
	Base
	PlaceID string `json:"place_id"`
	UserID  string `json:"user_id"`
	Text    string `json:"text"`
}

type Amenity struct {
	Base
	Name string `json:"name"`
}

// Stats holds object counts keyed the way the /stats route reports them.
type Stats struct {
	Amenities int `json:"amenities"`
	Cities    int `json:"cities"`
	Places    int `json:"places"`
	Reviews   int `json:"reviews"`
	States    int `json:"states"`
	Users     int `json:"users"`
}
