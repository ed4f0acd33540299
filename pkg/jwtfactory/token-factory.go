package jwtfactory

import (
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
)

const (
	UserIDClaimName = "user_id"
	RoleClaimName   = "role"
)

type TokenFactory struct {
	tokenAuth           *jwtauth.JWTAuth
	tokenExpirationTime time.Duration
	now                 func() time.Time
}

func New(tokenAuth *jwtauth.JWTAuth, tokenExpirationTime time.Duration) *TokenFactory {
	return &TokenFactory{
		tokenAuth:           tokenAuth,
		tokenExpirationTime: tokenExpirationTime,
		now:                 time.Now,
	}
}

// Generate issues a token carrying the actor identity and role claims the
// API expects.
func (tf *TokenFactory) Generate(userID, role string) (string, error) {
	timeNow := tf.now()
	claims := map[string]any{
		UserIDClaimName: userID,
		RoleClaimName:   role,
		"exp":           timeNow.Add(tf.tokenExpirationTime).Unix(),
		"iat":           timeNow.Unix(),
	}
	_, tokenString, err := tf.tokenAuth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}
	return tokenString, nil
}
