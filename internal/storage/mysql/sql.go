package mysql

// -----------------------------------------------------------------------------
// STATES / CITIES / AMENITIES
// -----------------------------------------------------------------------------

const stateCols = "id, created_at, updated_at, name"

const upsertStateSQL = `
INSERT INTO states (id, created_at, updated_at, name)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  updated_at = VALUES(updated_at),
  name       = VALUES(name)
`

const cityCols = "id, created_at, updated_at, state_id, name"

const upsertCitySQL = `
INSERT INTO cities (id, created_at, updated_at, state_id, name)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  updated_at = VALUES(updated_at),
  name       = VALUES(name)
`

const citiesByStateSQL = `SELECT ` + cityCols + ` FROM cities WHERE state_id = ? ORDER BY created_at, id`

const amenityCols = "id, created_at, updated_at, name"

const upsertAmenitySQL = `
INSERT INTO amenities (id, created_at, updated_at, name)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  updated_at = VALUES(updated_at),
  name       = VALUES(name)
`

// -----------------------------------------------------------------------------
// USERS
// -----------------------------------------------------------------------------

const userCols = "id, created_at, updated_at, email, password, first_name, last_name"

const upsertUserSQL = `
INSERT INTO users (id, created_at, updated_at, email, password, first_name, last_name)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  updated_at = VALUES(updated_at),
  password   = VALUES(password),
  first_name = VALUES(first_name),
  last_name  = VALUES(last_name)
`

// -----------------------------------------------------------------------------
// PLACES / REVIEWS
// -----------------------------------------------------------------------------

const placeCols = "id, created_at, updated_at, city_id, user_id, name, description, " +
	"number_rooms, number_bathrooms, max_guest, price_by_night, latitude, longitude"

// city_id and user_id are fixed at creation.
const upsertPlaceSQL = `
INSERT INTO places
  (id, created_at, updated_at, city_id, user_id, name, description,
   number_rooms, number_bathrooms, max_guest, price_by_night, latitude, longitude)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  updated_at       = VALUES(updated_at),
  name             = VALUES(name),
  description      = VALUES(description),
  number_rooms     = VALUES(number_rooms),
  number_bathrooms = VALUES(number_bathrooms),
  max_guest        = VALUES(max_guest),
  price_by_night   = VALUES(price_by_night),
  latitude         = VALUES(latitude),
  longitude        = VALUES(longitude)
`

const placesByCitySQL = `SELECT ` + placeCols + ` FROM places WHERE city_id = ? ORDER BY created_at, id`

// Note: `text` is reserved; keep it quoted everywhere.
const reviewCols = "id, created_at, updated_at, place_id, user_id, `text`"

const upsertReviewSQL = "INSERT INTO reviews (id, created_at, updated_at, place_id, user_id, `text`)\n" +
	"VALUES (?, ?, ?, ?, ?, ?)\n" +
	"ON DUPLICATE KEY UPDATE\n" +
	"  updated_at = VALUES(updated_at),\n" +
	"  `text`     = VALUES(`text`)\n"

const reviewsByPlaceSQL = `SELECT ` + reviewCols + ` FROM reviews WHERE place_id = ? ORDER BY created_at, id`

// -----------------------------------------------------------------------------
// PLACE <-> AMENITY
// -----------------------------------------------------------------------------

const linkAmenitySQL = `INSERT INTO place_amenity (place_id, amenity_id) VALUES (?, ?)`

const unlinkAmenitySQL = `DELETE FROM place_amenity WHERE place_id = ? AND amenity_id = ?`

// amenityLinksPrefix is completed with an IN list by the repo.
const amenityLinksPrefix = `SELECT place_id, amenity_id FROM place_amenity WHERE place_id IN (`
