package app_test

import (
	"context"
	"strings"
	"testing"

	"hbnb/internal/app"
	"hbnb/internal/domain"
)

func TestCreateUser_HashesPassword(t *testing.T) {
	w := newWorld(t, nil)
	u, err := w.repo.Users().Get(context.Background(), w.user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Password == "secret" || !app.CheckPassword(u, "secret") {
		t.Fatalf("password not hashed properly: %q", u.Password)
	}
}

func TestCreateUser_LongPasswordUsesEveryByte(t *testing.T) {
	w := newWorld(t, nil)
	pw := strings.Repeat("x", 80) + "a"
	u, err := w.cmd.CreateUser(context.Background(), domain.User{Email: "long@example.com"}, pw)
	if err != nil {
		t.Fatalf("create user with long password: %v", err)
	}
	if !app.CheckPassword(u, pw) {
		t.Fatalf("long password does not match its own hash")
	}
	if app.CheckPassword(u, strings.Repeat("x", 80)+"b") {
		t.Fatalf("passwords differing after byte 72 must not match")
	}
}

func TestCreatePlace_RequiresExistingUserAndCity(t *testing.T) {
	w := newWorld(t, nil)
	ctx := context.Background()
	s := w.state(t, "S")
	c := w.city(t, s.ID, "C")

	if _, err := w.cmd.CreatePlace(ctx, c.ID, domain.Place{UserID: "ghost", Name: "P"}); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
	if _, err := w.cmd.CreatePlace(ctx, "ghost", domain.Place{UserID: w.user.ID, Name: "P"}); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown city, got %v", err)
	}
}

func TestUpdatePlace_TouchesOnlyWhitelistedFields(t *testing.T) {
	w := newWorld(t, nil)
	ctx := context.Background()
	s := w.state(t, "S")
	c := w.city(t, s.ID, "C")
	p := w.place(t, c.ID, "P")

	price := 120
	got, err := w.cmd.UpdatePlace(ctx, p.ID, domain.PlacePatch{PriceByNight: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.PriceByNight != 120 || got.Name != "P" || got.CityID != c.ID || got.UserID != w.user.ID {
		t.Fatalf("unexpected place: %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("updated_at not moved: %v <= %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestUpdateUser_RehashesPassword(t *testing.T) {
	w := newWorld(t, nil)
	pw := "new-secret"
	u, err := w.cmd.UpdateUser(context.Background(), w.user.ID, domain.UserPatch{Password: &pw})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !app.CheckPassword(u, pw) || app.CheckPassword(u, "secret") {
		t.Fatalf("password not replaced")
	}
}

func TestLinkAndUnlinkAmenity(t *testing.T) {
	w := newWorld(t, nil)
	ctx := context.Background()
	s := w.state(t, "S")
	c := w.city(t, s.ID, "C")
	p := w.place(t, c.ID, "P")
	a := w.amenity(t, "Wifi")

	if _, created, err := w.cmd.LinkAmenity(ctx, p.ID, a.ID); err != nil || !created {
		t.Fatalf("first link: created=%v err=%v", created, err)
	}
	if _, created, err := w.cmd.LinkAmenity(ctx, p.ID, a.ID); err != nil || created {
		t.Fatalf("second link: created=%v err=%v", created, err)
	}
	if err := w.cmd.UnlinkAmenity(ctx, p.ID, a.ID); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if err := w.cmd.UnlinkAmenity(ctx, p.ID, a.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected not found on unlinked pair, got %v", err)
	}
	if _, _, err := w.cmd.LinkAmenity(ctx, p.ID, "ghost"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown amenity, got %v", err)
	}
}

func TestCreateReview_RequiresPlace(t *testing.T) {
	w := newWorld(t, nil)
	_, err := w.cmd.CreateReview(context.Background(), "ghost", domain.Review{UserID: w.user.ID, Text: "x"})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete_UnknownIsNotFound(t *testing.T) {
	w := newWorld(t, nil)
	for _, k := range domain.Kinds {
		if err := w.cmd.Delete(context.Background(), k, "ghost"); !domain.IsNotFound(err) {
			t.Fatalf("%s: expected not found, got %v", k, err)
		}
	}
}
