package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	drv "github.com/go-sql-driver/mysql"

	"hbnb/internal/domain"
)

// MySQL error numbers the repo translates.
const (
	errDupEntry    = 1062
	errDataTooLong = 1406
	errNoReference = 1452
)

type rowScanner interface{ Scan(dest ...any) error }

// table implements domain.Store[T] over one SQL table.
type table[T domain.Entity] struct {
	r         *Repo
	kind      domain.Kind
	name      string
	cols      string
	upsertSQL string
	scan      func(rowScanner) (T, error)
	args      func(T) []any
}

func (t *table[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	row := t.r.db.QueryRowContext(ctx, "SELECT "+t.cols+" FROM "+t.name+" WHERE id = ?", id)
	v, err := t.scan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return zero, domain.NewNotFound(t.kind, id)
		}
		return zero, err
	}
	out, err := decorate(ctx, t.r, []T{v})
	if err != nil {
		return zero, err
	}
	return out[0], nil
}

func (t *table[T]) All(ctx context.Context) ([]T, error) {
	return queryAll(ctx, t.r, t.scan, "SELECT "+t.cols+" FROM "+t.name+" ORDER BY created_at, id")
}

func (t *table[T]) Save(ctx context.Context, v T) error {
	_, err := t.r.db.ExecContext(ctx, t.upsertSQL, t.args(v)...)
	return translate(err)
}

func (t *table[T]) Delete(ctx context.Context, id string) error {
	res, err := t.r.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFound(t.kind, id)
	}
	return nil
}

func (t *table[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := t.r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name).Scan(&n)
	return n, err
}

func queryAll[T domain.Entity](ctx context.Context, r *Repo, scan func(rowScanner) (T, error), q string, args ...any) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return decorate(ctx, r, out)
}

// translate maps driver errors onto domain errors.
func translate(err error) error {
	var merr *drv.MySQLError
	if errors.As(err, &merr) {
		switch merr.Number {
		case errNoReference:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, merr.Message)
		case errDupEntry:
			return fmt.Errorf("%w: %s", domain.ErrAlreadyLinked, merr.Message)
		case errDataTooLong:
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, merr.Message)
		}
	}
	return err
}

// ---- repo ----

type Repo struct {
	db *sql.DB

	states    *table[domain.State]
	cities    *table[domain.City]
	places    *table[domain.Place]
	users     *table[domain.User]
	reviews   *table[domain.Review]
	amenities *table[domain.Amenity]
}

func New(db *sql.DB) *Repo {
	r := &Repo{db: db}
	r.states = &table[domain.State]{
		r: r, kind: domain.KindState, name: "states", cols: stateCols, upsertSQL: upsertStateSQL,
		scan: scanState,
		args: func(s domain.State) []any { return []any{s.ID, s.CreatedAt, s.UpdatedAt, s.Name} },
	}
	r.cities = &table[domain.City]{
		r: r, kind: domain.KindCity, name: "cities", cols: cityCols, upsertSQL: upsertCitySQL,
		scan: scanCity,
		args: func(c domain.City) []any { return []any{c.ID, c.CreatedAt, c.UpdatedAt, c.StateID, c.Name} },
	}
	r.places = &table[domain.Place]{
		r: r, kind: domain.KindPlace, name: "places", cols: placeCols, upsertSQL: upsertPlaceSQL,
		scan: scanPlace,
		args: func(p domain.Place) []any {
			return []any{
				p.ID, p.CreatedAt, p.UpdatedAt, p.CityID, p.UserID, p.Name, p.Description,
				p.NumberRooms, p.NumberBathroom, p.MaxGuest, p.PriceByNight, p.Latitude, p.Longitude,
			}
		},
	}
	r.users = &table[domain.User]{
		r: r, kind: domain.KindUser, name: "users", cols: userCols, upsertSQL: upsertUserSQL,
		scan: scanUser,
		args: func(u domain.User) []any {
			return []any{u.ID, u.CreatedAt, u.UpdatedAt, u.Email, u.Password, u.FirstName, u.LastName}
		},
	}
	r.reviews = &table[domain.Review]{
		r: r, kind: domain.KindReview, name: "reviews", cols: reviewCols, upsertSQL: upsertReviewSQL,
		scan: scanReview,
		args: func(rv domain.Review) []any {
			return []any{rv.ID, rv.CreatedAt, rv.UpdatedAt, rv.PlaceID, rv.UserID, rv.Text}
		},
	}
	r.amenities = &table[domain.Amenity]{
		r: r, kind: domain.KindAmenity, name: "amenities", cols: amenityCols, upsertSQL: upsertAmenitySQL,
		scan: scanAmenity,
		args: func(a domain.Amenity) []any { return []any{a.ID, a.CreatedAt, a.UpdatedAt, a.Name} },
	}
	return r
}

func (r *Repo) States() domain.Store[domain.State]       { return r.states }
func (r *Repo) Cities() domain.Store[domain.City]        { return r.cities }
func (r *Repo) Places() domain.Store[domain.Place]       { return r.places }
func (r *Repo) Users() domain.Store[domain.User]         { return r.users }
func (r *Repo) Reviews() domain.Store[domain.Review]     { return r.reviews }
func (r *Repo) Amenities() domain.Store[domain.Amenity] { return r.amenities }

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) CitiesByState(ctx context.Context, stateID string) ([]domain.City, error) {
	return queryAll(ctx, r, scanCity, citiesByStateSQL, stateID)
}

func (r *Repo) PlacesByCity(ctx context.Context, cityID string) ([]domain.Place, error) {
	return queryAll(ctx, r, scanPlace, placesByCitySQL, cityID)
}

func (r *Repo) ReviewsByPlace(ctx context.Context, placeID string) ([]domain.Review, error) {
	return queryAll(ctx, r, scanReview, reviewsByPlaceSQL, placeID)
}

func (r *Repo) LinkAmenity(ctx context.Context, placeID, amenityID string) error {
	_, err := r.db.ExecContext(ctx, linkAmenitySQL, placeID, amenityID)
	return translate(err)
}

func (r *Repo) UnlinkAmenity(ctx context.Context, placeID, amenityID string) error {
	res, err := r.db.ExecContext(ctx, unlinkAmenitySQL, placeID, amenityID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFound(domain.KindAmenity, amenityID)
	}
	return nil
}

// decorate attaches amenity ids when vs are places; other kinds pass through.
func decorate[T domain.Entity](ctx context.Context, r *Repo, vs []T) ([]T, error) {
	ps, ok := any(vs).([]domain.Place)
	if !ok || len(ps) == 0 {
		return vs, nil
	}
	if err := r.attachAmenities(ctx, ps); err != nil {
		return nil, err
	}
	return vs, nil
}

func (r *Repo) attachAmenities(ctx context.Context, ps []domain.Place) error {
	marks := make([]string, len(ps))
	args := make([]any, len(ps))
	idx := make(map[string]int, len(ps))
	for i, p := range ps {
		marks[i] = "?"
		args[i] = p.ID
		idx[p.ID] = i
		ps[i].AmenityIDs = []string{}
	}
	rows, err := r.db.QueryContext(ctx, amenityLinksPrefix+strings.Join(marks, ",")+")", args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var pid, aid string
		if err := rows.Scan(&pid, &aid); err != nil {
			return err
		}
		if i, ok := idx[pid]; ok {
			ps[i].AmenityIDs = append(ps[i].AmenityIDs, aid)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range ps {
		sort.Strings(ps[i].AmenityIDs)
	}
	return nil
}

// ---- scanners ----

func scanState(s rowScanner) (domain.State, error) {
	var v domain.State
	err := s.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt, &v.Name)
	return v, err
}

func scanCity(s rowScanner) (domain.City, error) {
	var v domain.City
	err := s.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt, &v.StateID, &v.Name)
	return v, err
}

func scanAmenity(s rowScanner) (domain.Amenity, error) {
	var v domain.Amenity
	err := s.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt, &v.Name)
	return v, err
}

func scanUser(s rowScanner) (domain.User, error) {
	var v domain.User
	err := s.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt, &v.Email, &v.Password, &v.FirstName, &v.LastName)
	return v, err
}

func scanPlace(s rowScanner) (domain.Place, error) {
	var v domain.Place
	err := s.Scan(
		&v.ID, &v.CreatedAt, &v.UpdatedAt,
		&v.CityID, &v.UserID,
		&v.Name, &v.Description,
		&v.NumberRooms, &v.NumberBathroom, &v.MaxGuest, &v.PriceByNight,
		&v.Latitude, &v.Longitude,
	)
	return v, err
}

func scanReview(s rowScanner) (domain.Review, error) {
	var v domain.Review
	err := s.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt, &v.PlaceID, &v.UserID, &v.Text)
	return v, err
}
