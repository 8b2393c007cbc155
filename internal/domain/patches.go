package domain

// Patches carry exactly the fields an update may change. Decoding a request
// body into one drops every other key, so ids, owners and timestamps can
// never be overwritten.

type StatePatch struct {
	Name *string `json:"name"`
}

func (p StatePatch) Apply(s *State) {
	if p.Name != nil {
		s.Name = *p.Name
	}
}

type CityPatch struct {
	Name *string `json:"name"`
}

func (p CityPatch) Apply(c *City) {
	if p.Name != nil {
		c.Name = *p.Name
	}
}

type AmenityPatch struct {
	Name *string `json:"name"`
}

func (p AmenityPatch) Apply(a *Amenity) {
	if p.Name != nil {
		a.Name = *p.Name
	}
}

// UserPatch never touches Email. Password is the plaintext; callers hash it.
type UserPatch struct {
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
}

type PlacePatch struct {
	Name           *string  `json:"name"`
	Description    *string  `json:"description"`
	NumberRooms    *int     `json:"number_rooms"`
	NumberBathroom *int     `json:"number_bathrooms"`
	MaxGuest       *int     `json:"max_guest"`
	PriceByNight   *int     `json:"price_by_night"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
}

func (p PlacePatch) Apply(pl *Place) {
	if p.Name != nil {
		pl.Name = *p.Name
	}
	if p.Description != nil {
		pl.Description = *p.Description
	}
	if p.NumberRooms != nil {
		pl.NumberRooms = *p.NumberRooms
	}
	if p.NumberBathroom != nil {
		pl.NumberBathroom = *p.NumberBathroom
	}
	if p.MaxGuest != nil {
		pl.MaxGuest = *p.MaxGuest
	}
	if p.PriceByNight != nil {
		pl.PriceByNight = *p.PriceByNight
	}
	if p.Latitude != nil {
		pl.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		pl.Longitude = *p.Longitude
	}
}

type ReviewPatch struct {
	Text *string `json:"text"`
}

func (p ReviewPatch) Apply(r *Review) {
	if p.Text != nil {
		r.Text = *p.Text
	}
}
