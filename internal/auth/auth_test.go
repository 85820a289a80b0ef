package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/xtrobe/internal/shared"
)

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("SignedOut", func(t *testing.T) {
		p := NewStaticProvider("")
		_, err := p.CurrentUser(ctx)
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})

	t.Run("SignInAndOut", func(t *testing.T) {
		p := NewStaticProvider("")

		var seen []string
		unsubscribe := p.Subscribe(func(id string) { seen = append(seen, id) })

		p.SignIn("ada")
		id, err := p.CurrentUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ada", id)

		p.SignIn("ada")
		p.SignOut()
		unsubscribe()
		p.SignIn("grace")

		assert.Equal(t, []string{"ada", ""}, seen)
	})
}

func TestTokenProvider(t *testing.T) {
	t.Run("RequiresSecret", func(t *testing.T) {
		_, err := NewTokenProvider("", "xtrobe", time.Hour)
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		p, err := NewTokenProvider("secret", "xtrobe", time.Hour)
		require.NoError(t, err)

		token, err := p.Issue("user-1", 0)
		require.NoError(t, err)

		id, err := p.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", id)
	})

	t.Run("Expired", func(t *testing.T) {
		p, err := NewTokenProvider("secret", "xtrobe", time.Hour)
		require.NoError(t, err)
		p.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

		token, err := p.Issue("user-1", time.Minute)
		require.NoError(t, err)

		p.now = time.Now
		_, err = p.Verify(token)
		assert.ErrorIs(t, err, shared.ErrTokenExpired)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		issuer, _ := NewTokenProvider("one", "xtrobe", time.Hour)
		verifier, _ := NewTokenProvider("two", "xtrobe", time.Hour)

		token, err := issuer.Issue("user-1", 0)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, shared.ErrInvalidToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		issuer, _ := NewTokenProvider("secret", "someone-else", time.Hour)
		verifier, _ := NewTokenProvider("secret", "xtrobe", time.Hour)

		token, err := issuer.Issue("user-1", 0)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.ErrorIs(t, err, shared.ErrInvalidToken)
	})

	t.Run("RejectsOtherAlgorithms", func(t *testing.T) {
		p, _ := NewTokenProvider("secret", "xtrobe", time.Hour)

		claims := jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "xtrobe",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = p.Verify(token)
		assert.ErrorIs(t, err, shared.ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		p, _ := NewTokenProvider("secret", "", time.Hour)
		_, err := p.Verify("not-a-token")
		assert.ErrorIs(t, err, shared.ErrInvalidToken)
	})

	t.Run("CurrentUser", func(t *testing.T) {
		p, _ := NewTokenProvider("secret", "", time.Hour)

		_, err := p.CurrentUser(context.Background())
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)

		id, err := p.CurrentUser(WithUser(context.Background(), "user-9"))
		require.NoError(t, err)
		assert.Equal(t, "user-9", id)
	})

	t.Run("MissingUser", func(t *testing.T) {
		p, _ := NewTokenProvider("secret", "", time.Hour)
		_, err := p.Issue("", 0)
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})
}
