// Package identity adapts the external identity collaborator: it turns a
// credential into a participant id and resolves display names.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUnknownParticipant = errors.New("unknown participant")

	ErrAlreadyAuthenticated = errors.New("connection already authenticated")
)

type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (participantID string, err error)
}

type Directory interface {
	DisplayName(ctx context.Context, participantID string) (string, error)
}

// Claims carries the participant id under "userId", the claim the account
// service signs.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type JWTAuthenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrInvalidCredential
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: missing userId", ErrInvalidCredential)
	}
	return claims.UserID, nil
}

// Issue signs a token for participantID. Used by tests and local tooling;
// production tokens come from the account service.
func (a *JWTAuthenticator) Issue(participantID string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		UserID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// StaticDirectory resolves names from a fixed map and falls back to the id.
type StaticDirectory map[string]string

func (d StaticDirectory) DisplayName(_ context.Context, participantID string) (string, error) {
	if name, ok := d[participantID]; ok && name != "" {
		return name, nil
	}
	return participantID, nil
}
