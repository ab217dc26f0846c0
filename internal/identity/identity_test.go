package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuthenticator_RoundTrip(t *testing.T) {
	a := NewJWTAuthenticator("secret", "banpick")
	token, err := a.Issue("user-1", time.Minute)
	require.NoError(t, err)

	id, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}

func TestJWTAuthenticator_Rejects(t *testing.T) {
	a := NewJWTAuthenticator("secret", "banpick")
	other := NewJWTAuthenticator("other-secret", "banpick")
	wrongIssuer := NewJWTAuthenticator("secret", "someone-else")

	forged, err := other.Issue("user-1", time.Minute)
	require.NoError(t, err)
	foreign, err := wrongIssuer.Issue("user-1", time.Minute)
	require.NoError(t, err)
	expired, err := a.Issue("user-1", -time.Minute)
	require.NoError(t, err)
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"bad key":      forged,
		"wrong issuer": foreign,
		"expired":      expired,
		"no userId":    noUser,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), token)
			require.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestJWTAuthenticator_RejectsNoneAlg(t *testing.T) {
	a := NewJWTAuthenticator("secret", "")
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestStaticDirectory(t *testing.T) {
	d := StaticDirectory{"u1": "Amiya"}
	name, err := d.DisplayName(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Amiya", name)

	name, err = d.DisplayName(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", name)
}
