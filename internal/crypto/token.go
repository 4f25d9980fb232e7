// Package crypto inspects bearer tokens issued by the billing API.
//
// Tokens are never verified here: the client holds no signing key. Only the
// payload is decoded so the session can tell whether it has expired.
package crypto

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ycf/billing-portal/internal/errs"
)

var parser = jwt.NewParser()

// claims decodes the payload segment without checking the signature.
func claims(token string) (jwt.MapClaims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedToken, err)
	}
	return mc, nil
}

// ExpiresAt returns the exp claim. ok is false when the token carries none.
func ExpiresAt(token string) (exp time.Time, ok bool, err error) {
	mc, err := claims(token)
	if err != nil {
		return time.Time{}, false, err
	}
	nd, err := mc.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", errs.ErrMalformedToken, err)
	}
	if nd == nil {
		return time.Time{}, false, nil
	}
	return nd.Time, true, nil
}

// IsExpired reports whether token is empty or its exp lies before now.
// A token that cannot be decoded yields an error wrapping errs.ErrMalformedToken.
func IsExpired(token string) (bool, error) {
	return IsExpiredAt(token, time.Now())
}

// IsExpiredAt is IsExpired against an explicit clock.
// Comparison is in whole seconds; a token without exp never expires.
func IsExpiredAt(token string, now time.Time) (bool, error) {
	if token == "" {
		return true, nil
	}
	exp, ok, err := ExpiresAt(token)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return exp.Unix() < now.Unix(), nil
}
