// internal/adapters/upstream/client.go
package upstream

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hbnb/internal/adapters/observability"
	"hbnb/internal/domain"
)

// Client reads objects from another instance of this API (or any API
// speaking the same /api/v1 routes).
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

// New takes the API root, e.g. http://host:5000/api/v1.
func New(base string, rps int) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base url %q", base)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	// ErrNotFound matches domain.ErrNotFound.
	ErrNotFound = fmt.Errorf("upstream: %w", domain.ErrNotFound)
)

// ---- Public API ----

func (c *Client) ListStates(ctx context.Context) ([]domain.State, error) {
	var out []domain.State
	return out, c.get(ctx, "/states", "states", &out)
}

func (c *Client) ListCities(ctx context.Context, stateID string) ([]domain.City, error) {
	var out []domain.City
	return out, c.get(ctx, "/states/"+url.PathEscape(stateID)+"/cities", "cities", &out)
}

func (c *Client) ListPlaces(ctx context.Context, cityID string) ([]domain.Place, error) {
	var out []domain.Place
	return out, c.get(ctx, "/cities/"+url.PathEscape(cityID)+"/places", "places", &out)
}

func (c *Client) ListReviews(ctx context.Context, placeID string) ([]domain.Review, error) {
	var out []domain.Review
	return out, c.get(ctx, "/places/"+url.PathEscape(placeID)+"/reviews", "reviews", &out)
}

func (c *Client) ListPlaceAmenities(ctx context.Context, placeID string) ([]domain.Amenity, error) {
	var out []domain.Amenity
	return out, c.get(ctx, "/places/"+url.PathEscape(placeID)+"/amenities", "place_amenities", &out)
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	return out, c.get(ctx, "/users", "users", &out)
}

func (c *Client) ListAmenities(ctx context.Context) ([]domain.Amenity, error) {
	var out []domain.Amenity
	return out, c.get(ctx, "/amenities", "amenities", &out)
}

// ---- Internals ----

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, path, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "hbnb-mirror/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveUpstream(endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	if lastErr == nil {
		lastErr = errors.New("upstream: retries exhausted")
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
