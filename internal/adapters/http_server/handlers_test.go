package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpserver "hbnb/internal/adapters/http_server"
	"hbnb/internal/app"
	"hbnb/internal/domain"
	"hbnb/internal/storage/memory"
)

type api struct {
	t *testing.T
	h http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	repo := memory.New()
	q := app.NewQueryService(repo, nil, time.Minute)
	c := app.NewCommandService(repo, q)
	srv := httpserver.New(httpserver.Options{RequestTimeout: 5 * time.Second})
	srv.MountHandlers(&httpserver.Handlers{Q: q, C: c})
	return &api{t: t, h: srv.Mux()}
}

func (a *api) do(method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	return rr
}

// create posts body and decodes the created object's id.
func (a *api) create(path, body string) string {
	a.t.Helper()
	rr := a.do(http.MethodPost, path, body)
	if rr.Code != http.StatusCreated {
		a.t.Fatalf("POST %s: status %d body %s", path, rr.Code, rr.Body.String())
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil || out.ID == "" {
		a.t.Fatalf("POST %s: bad body %s", path, rr.Body.String())
	}
	return out.ID
}

func problemDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type=%q body=%s", ct, rr.Body.String())
	}
	var p struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	return p.Detail
}

func placeIDs(t *testing.T, rr *httptest.ResponseRecorder) []string {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	var ps []domain.Place
	if err := json.Unmarshal(rr.Body.Bytes(), &ps); err != nil {
		t.Fatalf("decode places: %v", err)
	}
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestStatusAndHealth(t *testing.T) {
	a := newAPI(t)
	rr := a.do(http.MethodGet, "/api/v1/status", "")
	if rr.Code != 200 || strings.TrimSpace(rr.Body.String()) != `{"status":"OK"}` {
		t.Fatalf("status: %d %s", rr.Code, rr.Body.String())
	}
	if rr := a.do(http.MethodGet, "/healthz", ""); rr.Code != 200 {
		t.Fatalf("healthz: %d", rr.Code)
	}
}

func TestStates_CRUDAndETag(t *testing.T) {
	a := newAPI(t)
	id := a.create("/api/v1/states", `{"name":"California"}`)

	rr := a.do(http.MethodGet, "/api/v1/states/"+id, "")
	if rr.Code != 200 {
		t.Fatalf("get: %d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak etag, got %q", etag)
	}
	if rr := a.do(http.MethodGet, "/api/v1/states/"+id, "", "If-None-Match", etag); rr.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr.Code)
	}

	rr = a.do(http.MethodPut, "/api/v1/states/"+id, `{"name":"Nevada","id":"hijack","created_at":"2000-01-01T00:00:00Z"}`)
	if rr.Code != 200 {
		t.Fatalf("put: %d %s", rr.Code, rr.Body.String())
	}
	var st domain.State
	_ = json.Unmarshal(rr.Body.Bytes(), &st)
	if st.ID != id || st.Name != "Nevada" || st.CreatedAt.Year() == 2000 {
		t.Fatalf("update not whitelisted: %+v", st)
	}
	if rr := a.do(http.MethodGet, "/api/v1/states/"+id, "", "If-None-Match", etag); rr.Code != 200 {
		t.Fatalf("etag should change after update, got %d", rr.Code)
	}

	rr = a.do(http.MethodDelete, "/api/v1/states/"+id, "")
	if rr.Code != 200 || strings.TrimSpace(rr.Body.String()) != "{}" {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}
	rr = a.do(http.MethodGet, "/api/v1/states/"+id, "")
	if rr.Code != 404 || problemDetail(t, rr) != "Not found" {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestCreate_BodyErrors(t *testing.T) {
	a := newAPI(t)
	cases := []struct {
		body   string
		detail string
	}{
		{"", "Not a JSON"},
		{"not json", "Not a JSON"},
		{"null", "Not a JSON"},
		{"[]", "Not a JSON"},
		{"{}", "Not a JSON"},
		{`{"name":5}`, "Not a JSON"},
		{`{"title":"x"}`, "Missing name"},
	}
	for _, tc := range cases {
		rr := a.do(http.MethodPost, "/api/v1/states", tc.body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", tc.body, rr.Code)
		}
		if got := problemDetail(t, rr); got != tc.detail {
			t.Fatalf("%q: detail %q, want %q", tc.body, got, tc.detail)
		}
	}

	rr := a.do(http.MethodPost, "/api/v1/users", `{"email":"a@b.c"}`)
	if got := problemDetail(t, rr); got != "Missing password" {
		t.Fatalf("users: detail %q", got)
	}
	if rr := a.do(http.MethodPut, "/api/v1/states/nope", `{"name":"x"}`); rr.Code != 404 {
		t.Fatalf("put unknown: %d", rr.Code)
	}
}

func TestUsers_PasswordNeverReturned(t *testing.T) {
	a := newAPI(t)
	id := a.create("/api/v1/users", `{"email":"ana@example.com","password":"secret","first_name":"Ana"}`)
	for _, path := range []string{"/api/v1/users/" + id, "/api/v1/users"} {
		rr := a.do(http.MethodGet, path, "")
		if strings.Contains(rr.Body.String(), "password") || strings.Contains(rr.Body.String(), "secret") {
			t.Fatalf("%s leaked password: %s", path, rr.Body.String())
		}
	}
	rr := a.do(http.MethodPut, "/api/v1/users/"+id, `{"email":"other@example.com","last_name":"Lee"}`)
	var u domain.User
	_ = json.Unmarshal(rr.Body.Bytes(), &u)
	if u.Email != "ana@example.com" || u.LastName != "Lee" {
		t.Fatalf("email must not change: %+v", u)
	}
}

func TestUsers_LongPasswordAccepted(t *testing.T) {
	a := newAPI(t)
	pw := strings.Repeat("p", 100)
	rr := a.do(http.MethodPost, "/api/v1/users", `{"email":"long@example.com","password":"`+pw+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	var u domain.User
	_ = json.Unmarshal(rr.Body.Bytes(), &u)
	rr = a.do(http.MethodPut, "/api/v1/users/"+u.ID, `{"password":"`+pw+pw+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}
}

func TestPlaces_LinksAndSearch(t *testing.T) {
	a := newAPI(t)
	ca := a.create("/api/v1/states", `{"name":"California"}`)
	ar := a.create("/api/v1/states", `{"name":"Arizona"}`)
	sf := a.create("/api/v1/states/"+ca+"/cities", `{"name":"San Francisco"}`)
	px := a.create("/api/v1/states/"+ar+"/cities", `{"name":"Phoenix"}`)
	uid := a.create("/api/v1/users", `{"email":"ana@example.com","password":"pw"}`)
	wifi := a.create("/api/v1/amenities", `{"name":"Wifi"}`)

	rr := a.do(http.MethodPost, "/api/v1/cities/"+sf+"/places", `{"name":"Loft"}`)
	if got := problemDetail(t, rr); got != "Missing user_id" {
		t.Fatalf("detail %q", got)
	}
	rr = a.do(http.MethodPost, "/api/v1/cities/"+sf+"/places", `{"user_id":"ghost","name":"Loft"}`)
	if rr.Code != 404 {
		t.Fatalf("unknown user: %d", rr.Code)
	}
	rr = a.do(http.MethodPost, "/api/v1/cities/nope/places", `{"user_id":"`+uid+`","name":"Loft"}`)
	if rr.Code != 404 {
		t.Fatalf("unknown city: %d", rr.Code)
	}

	loft := a.create("/api/v1/cities/"+sf+"/places", `{"user_id":"`+uid+`","name":"Loft","number_rooms":2,"latitude":37.7}`)
	casa := a.create("/api/v1/cities/"+px+"/places", `{"user_id":"`+uid+`","name":"Casa"}`)

	if rr := a.do(http.MethodPost, "/api/v1/places/"+loft+"/amenities/"+wifi, ""); rr.Code != http.StatusCreated {
		t.Fatalf("link: %d", rr.Code)
	}
	if rr := a.do(http.MethodPost, "/api/v1/places/"+loft+"/amenities/"+wifi, ""); rr.Code != http.StatusOK {
		t.Fatalf("relink: %d", rr.Code)
	}
	rr = a.do(http.MethodGet, "/api/v1/places/"+loft, "")
	var p domain.Place
	_ = json.Unmarshal(rr.Body.Bytes(), &p)
	if len(p.AmenityIDs) != 1 || p.AmenityIDs[0] != wifi || p.NumberRooms != 2 {
		t.Fatalf("place: %+v", p)
	}

	if ids := placeIDs(t, a.do(http.MethodPost, "/api/v1/places_search", `{}`)); len(ids) != 2 {
		t.Fatalf("empty search: %v", ids)
	}
	ids := placeIDs(t, a.do(http.MethodPost, "/api/v1/places_search", `{"states":["`+ca+`","`+ar+`"],"amenities":["`+wifi+`"]}`))
	if len(ids) != 1 || ids[0] != loft {
		t.Fatalf("states+amenities: %v", ids)
	}
	ids = placeIDs(t, a.do(http.MethodPost, "/api/v1/places_search", `{"states":["`+ca+`"],"cities":["`+sf+`","`+px+`","unknown"]}`))
	if len(ids) != 2 || ids[0] != loft || ids[1] != casa {
		t.Fatalf("overlap should be deduped and ordered by creation: %v", ids)
	}
	if ids := placeIDs(t, a.do(http.MethodPost, "/api/v1/places_search", `{"amenities":["`+wifi+`"]}`)); len(ids) != 0 {
		t.Fatalf("amenity-only search: %v", ids)
	}
	if rr := a.do(http.MethodPost, "/api/v1/places_search", "null"); rr.Code != 400 {
		t.Fatalf("null search body: %d", rr.Code)
	}

	if rr := a.do(http.MethodDelete, "/api/v1/places/"+loft+"/amenities/"+wifi, ""); rr.Code != 200 {
		t.Fatalf("unlink: %d", rr.Code)
	}
	if rr := a.do(http.MethodDelete, "/api/v1/places/"+loft+"/amenities/"+wifi, ""); rr.Code != 404 {
		t.Fatalf("unlink twice: %d", rr.Code)
	}
}

func TestReviews_AndCascade(t *testing.T) {
	a := newAPI(t)
	st := a.create("/api/v1/states", `{"name":"California"}`)
	city := a.create("/api/v1/states/"+st+"/cities", `{"name":"San Francisco"}`)
	uid := a.create("/api/v1/users", `{"email":"ana@example.com","password":"pw"}`)
	pl := a.create("/api/v1/cities/"+city+"/places", `{"user_id":"`+uid+`","name":"Loft"}`)

	rr := a.do(http.MethodPost, "/api/v1/places/"+pl+"/reviews", `{"user_id":"`+uid+`"}`)
	if got := problemDetail(t, rr); got != "Missing text" {
		t.Fatalf("detail %q", got)
	}
	rv := a.create("/api/v1/places/"+pl+"/reviews", `{"user_id":"`+uid+`","text":"great"}`)

	rr = a.do(http.MethodGet, "/api/v1/places/"+pl+"/reviews", "")
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), rv) {
		t.Fatalf("list reviews: %d %s", rr.Code, rr.Body.String())
	}

	rr = a.do(http.MethodGet, "/api/v1/stats", "")
	var stats domain.Stats
	_ = json.Unmarshal(rr.Body.Bytes(), &stats)
	if stats.States != 1 || stats.Places != 1 || stats.Reviews != 1 || stats.Users != 1 {
		t.Fatalf("stats: %+v", stats)
	}

	if rr := a.do(http.MethodDelete, "/api/v1/states/"+st, ""); rr.Code != 200 {
		t.Fatalf("delete state: %d", rr.Code)
	}
	for _, path := range []string{"/api/v1/cities/" + city, "/api/v1/places/" + pl, "/api/v1/reviews/" + rv} {
		if rr := a.do(http.MethodGet, path, ""); rr.Code != 404 {
			t.Fatalf("%s should be gone, got %d", path, rr.Code)
		}
	}
	rr = a.do(http.MethodGet, "/api/v1/states", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty list should be [], got %s", rr.Body.String())
	}
	if rr := a.do(http.MethodGet, "/api/v1/states/"+st+"/cities", ""); rr.Code != 404 {
		t.Fatalf("cities of deleted state: %d", rr.Code)
	}
}
