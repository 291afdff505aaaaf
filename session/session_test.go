package session

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
)

func signToken(t *testing.T, claims models.TokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestLoginLogoutEvents(t *testing.T) {
	s := New()
	var events []Event
	s.OnChange(func(ev Event) { events = append(events, ev) })

	token := signToken(t, models.TokenClaims{UserID: "u1", Username: "ayse"})
	user, err := s.Login(token)
	assert.Equal(t, err, nil)
	assert.Equal(t, user.UserID, "u1")
	assert.Equal(t, s.Token(), token)
	assert.Equal(t, s.Authenticated(), true)

	cur, ok := s.Current()
	assert.Equal(t, ok, true)
	assert.Equal(t, cur.Username, "ayse")

	// Aynı kullanıcı: sadece token yenilenir.
	_, err = s.Login(signToken(t, models.TokenClaims{UserID: "u1", Username: "ayse", ProfilePictureURL: "p.png"}))
	assert.Equal(t, err, nil)
	assert.Equal(t, len(events), 1)

	s.Logout()
	s.Logout()
	assert.Equal(t, len(events), 2)
	assert.Equal(t, events[0].Kind, LoggedIn)
	assert.Equal(t, events[1].Kind, LoggedOut)
	assert.Equal(t, events[1].User.UserID, "u1")
	assert.Equal(t, s.Token(), "")

	_, ok = s.Current()
	assert.Equal(t, ok, false)
}

func TestLoginSwitchUser(t *testing.T) {
	s := New()
	var kinds []EventKind
	s.OnChange(func(ev Event) { kinds = append(kinds, ev.Kind) })

	_, _ = s.Login(signToken(t, models.TokenClaims{UserID: "u1", Username: "ayse"}))
	_, _ = s.Login(signToken(t, models.TokenClaims{UserID: "u2", Username: "mehmet"}))

	assert.Equal(t, kinds, []EventKind{LoggedIn, LoggedOut, LoggedIn})
}

func TestParseTokenAlternateClaims(t *testing.T) {
	claims := models.TokenClaims{UserIDAlt: "u9"}
	claims.Subject = "zeynep"

	user, err := ParseToken(signToken(t, claims), time.Now())
	assert.Equal(t, err, nil)
	assert.Equal(t, user.UserID, "u9")
	assert.Equal(t, user.Username, "zeynep")
}

func TestParseTokenRejects(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	expired := models.TokenClaims{UserID: "u1", Username: "ayse"}
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	_, err := ParseToken(signToken(t, expired), now)
	assert.Equal(t, errors.Is(err, pkg.ErrUnauthorized), true)

	_, err = ParseToken("not-a-jwt", now)
	assert.Equal(t, errors.Is(err, pkg.ErrUnauthorized), true)

	_, err = ParseToken(signToken(t, models.TokenClaims{Username: "nobody"}), now)
	assert.Equal(t, errors.Is(err, pkg.ErrUnauthorized), true)

	s := New()
	_, err = s.Login("")
	assert.Equal(t, errors.Is(err, pkg.ErrUnauthorized), true)
	assert.Equal(t, s.Authenticated(), false)
}
