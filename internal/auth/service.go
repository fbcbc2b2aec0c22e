// Package auth issues and verifies the short-lived tokens that let a client
// subscribe to one account's position stream.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Service struct {
	issuer string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(issuer string, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{issuer: issuer, secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token whose subject is the account address.
func (s *Service) Issue(address string) (string, time.Time, error) {
	if address == "" {
		return "", time.Time{}, errors.New("empty subject")
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   address,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse returns the address a valid token was issued for.
func (s *Service) Parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Issuer != s.issuer {
		return "", errors.Join(ErrInvalidToken, errors.New("invalid issuer"))
	}
	if claims.Subject == "" {
		return "", errors.Join(ErrInvalidToken, errors.New("invalid subject"))
	}
	return claims.Subject, nil
}
