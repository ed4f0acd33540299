package jwtfactory

import (
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tokenAuth := jwtauth.New("HS256", []byte("secret"), nil)
	factory := New(tokenAuth, time.Hour)

	tokenString, err := factory.Generate("7c9e6679-7425-40de-944b-e07fc1f90ae7", "freelancer")
	require.NoError(t, err)

	token, err := jwtauth.VerifyToken(tokenAuth, tokenString)
	require.NoError(t, err)
	claims := token.PrivateClaims()
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", claims[UserIDClaimName])
	assert.Equal(t, "freelancer", claims[RoleClaimName])
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.Expiration(), time.Minute)
}
