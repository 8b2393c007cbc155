// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hbnb/internal/adapters/observability"
	"hbnb/internal/app"
	"hbnb/internal/domain"
)

const maxBody = 1 << 20

var errNotJSON = errors.New("body is not a JSON object")

type Handlers struct {
	Q *app.QueryService
	C *app.CommandService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Get("/stats", h.stats)

		r.Get("/states", listAll(h.Q.ListStates))
		r.Post("/states", h.createState)
		r.Get("/states/{id}", getOne(h.Q.GetState))
		r.Put("/states/{id}", updateOne(h.C.UpdateState))
		r.Delete("/states/{id}", h.delete(domain.KindState))

		r.Get("/states/{id}/cities", listOf(h.Q.ListCities))
		r.Post("/states/{id}/cities", h.createCity)
		r.Get("/cities/{id}", getOne(h.Q.GetCity))
		r.Put("/cities/{id}", updateOne(h.C.UpdateCity))
		r.Delete("/cities/{id}", h.delete(domain.KindCity))

		r.Get("/amenities", listAll(h.Q.ListAmenities))
		r.Post("/amenities", h.createAmenity)
		r.Get("/amenities/{id}", getOne(h.Q.GetAmenity))
		r.Put("/amenities/{id}", updateOne(h.C.UpdateAmenity))
		r.Delete("/amenities/{id}", h.delete(domain.KindAmenity))

		r.Get("/users", listAll(h.Q.ListUsers))
		r.Post("/users", h.createUser)
		r.Get("/users/{id}", getOne(h.Q.GetUser))
		r.Put("/users/{id}", updateOne(h.C.UpdateUser))
		r.Delete("/users/{id}", h.delete(domain.KindUser))

		r.Get("/cities/{id}/places", listOf(h.Q.ListPlaces))
		r.Post("/cities/{id}/places", h.createPlace)
		r.Get("/places/{id}", getOne(h.Q.GetPlace))
		r.Put("/places/{id}", updateOne(h.C.UpdatePlace))
		r.Delete("/places/{id}", h.delete(domain.KindPlace))

		r.Get("/places/{id}/reviews", listOf(h.Q.ListReviews))
		r.Post("/places/{id}/reviews", h.createReview)
		r.Get("/reviews/{id}", getOne(h.Q.GetReview))
		r.Put("/reviews/{id}", updateOne(h.C.UpdateReview))
		r.Delete("/reviews/{id}", h.delete(domain.KindReview))

		r.Get("/places/{id}/amenities", listOf(h.Q.ListPlaceAmenities))
		r.Post("/places/{id}/amenities/{amenity_id}", h.linkAmenity)
		r.Delete("/places/{id}/amenities/{amenity_id}", h.unlinkAmenity)

		r.Post("/places_search", h.searchPlaces)
	})
}

// ---- request bodies ----

type nameReq struct {
	Name *string `json:"name" validate:"required"`
}

type userReq struct {
	Email     *string `json:"email" validate:"required"`
	Password  *string `json:"password" validate:"required"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
}

type placeReq struct {
	UserID         *string `json:"user_id" validate:"required"`
	Name           *string `json:"name" validate:"required"`
	Description    string  `json:"description"`
	NumberRooms    int     `json:"number_rooms"`
	NumberBathroom int     `json:"number_bathrooms"`
	MaxGuest       int     `json:"max_guest"`
	PriceByNight   int     `json:"price_by_night"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

type reviewReq struct {
	UserID *string `json:"user_id" validate:"required"`
	Text   *string `json:"text" validate:"required"`
}

// decodeObject accepts only a JSON object. An empty object is rejected
// unless allowEmpty is set.
func decodeObject(r *http.Request, dst any, allowEmpty bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return errNotJSON
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return errNotJSON
	}
	if len(raw) == 0 && !allowEmpty {
		return errNotJSON
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errNotJSON
	}
	return nil
}

// decodeCreate decodes and checks required fields.
func decodeCreate(r *http.Request, dst any) error {
	if err := decodeObject(r, dst, false); err != nil {
		return err
	}
	return checkRequired(dst)
}

// ---- responses ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// fail maps an error to its problem response.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var missing *domain.MissingFieldError
	switch {
	case errors.Is(err, errNotJSON):
		writeProblem(w, http.StatusBadRequest, "Bad Request", "Not a JSON")
	case errors.As(err, &missing):
		writeProblem(w, http.StatusBadRequest, "Bad Request", missing.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Bad Request", "Invalid input")
	case domain.IsNotFound(err):
		writeProblem(w, http.StatusNotFound, "Not Found", "Not found")
	default:
		route := routeOf(r)
		observability.ObserveStorageError(route)
		log.Error().Err(err).Str("route", route).Str("method", r.Method).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes a GET response with a weak ETag, or 304 when the
// client already has this version.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("route", routeOf(r)).Msg("failed to write body")
	}
}

// ---- generic route handlers ----

func getOne[T any](get func(ctx context.Context, id string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeCached(w, r, v)
	}
}

func listAll[T any](list func(ctx context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := list(r.Context())
		if err != nil {
			fail(w, r, err)
			return
		}
		if out == nil {
			out = []T{}
		}
		writeCached(w, r, out)
	}
}

// listOf lists the children of the object named by {id}.
func listOf[T any](list func(ctx context.Context, parentID string) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := list(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, r, err)
			return
		}
		if out == nil {
			out = []T{}
		}
		writeCached(w, r, out)
	}
}

func updateOne[P, T any](update func(ctx context.Context, id string, p P) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p P
		if err := decodeObject(r, &p, false); err != nil {
			fail(w, r, err)
			return
		}
		v, err := update(r.Context(), chi.URLParam(r, "id"), p)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *Handlers) delete(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.C.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

// ---- index ----

func (h *Handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Q.Stats(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCached(w, r, st)
}

// ---- create ----

func (h *Handlers) createState(w http.ResponseWriter, r *http.Request) {
	var req nameReq
	if err := decodeCreate(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	v, err := h.C.CreateState(r.Context(), domain.State{Name: *req.Name})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) createCity(w http.ResponseWriter, r *http.Request) {
	var req nameReq
	if err := decodeCreate(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	v, err := h.C.CreateCity(r.Context(), chi.URLParam(r, "id"), domain.City{Name: *req.Name})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) createAmenity(w http.ResponseWriter, r *http.Request) {
	var req nameReq
	if err := decodeCreate(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	v, err := h.C.CreateAmenity(r.Context(), domain.Amenity{Name: *req.Name})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req userReq
	if err := decodeCreate(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	in := domain.User{Email: *req.Email, FirstName: req.FirstName, LastName: req.LastName}
	v, err := h.C.CreateUser(r.Context(), in, *req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) createPlace(w http.ResponseWriter, r *http.Request) {
	var req placeReq
	if err := decodeCreate(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	in := domain.Place{
		UserID:         *req.UserID,
		Name:           *req.Name,
		Description:    req.Description,
		NumberRooms:    req.NumberRooms,
		NumberBathroom: req.NumberBathroom,
		MaxGuest:       req.MaxGuest,
		PriceByNight:   req.PriceByNight,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	}
	v, err := h.C.CreatePlace(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var req reviewReq
	if err := decodeCreate(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	v, err := h.C.CreateReview(r.Context(), chi.URLParam(r, "id"), domain.Review{UserID: *req.UserID, Text: *req.Text})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// ---- place amenities ----

func (h *Handlers) linkAmenity(w http.ResponseWriter, r *http.Request) {
	a, created, err := h.C.LinkAmenity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "amenity_id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, a)
}

func (h *Handlers) unlinkAmenity(w http.ResponseWriter, r *http.Request) {
	if err := h.C.UnlinkAmenity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "amenity_id")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// ---- search ----

// searchPlaces treats {} as "no filters"; unknown ids are ignored.
func (h *Handlers) searchPlaces(w http.ResponseWriter, r *http.Request) {
	var q domain.PlaceSearch
	if err := decodeObject(r, &q, true); err != nil {
		fail(w, r, err)
		return
	}
	out, err := h.Q.SearchPlaces(r.Context(), q)
	if err != nil {
		fail(w, r, err)
		return
	}
	if out == nil {
		out = []domain.Place{}
	}
	observability.ObserveSearch(len(out))
	writeJSON(w, http.StatusOK, out)
}
