package session

import (
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Tokens issues and verifies HS256 session tokens. The subject carries the
// session id.
type Tokens struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

func (t Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t Tokens) ttl() time.Duration {
	if t.TTL <= 0 {
		return 30 * time.Minute
	}
	return t.TTL
}

// Issue signs a token for sessionID and returns it with its expiry.
func (t Tokens) Issue(sessionID string) (string, time.Time, error) {
	if len(t.Secret) == 0 {
		return "", time.Time{}, errors.New("session: token secret not configured")
	}
	now := t.now()
	exp := now.Add(t.ttl())
	b := jwt.NewBuilder().
		Subject(sessionID).
		IssuedAt(now).
		Expiration(exp)
	if t.Issuer != "" {
		b = b.Issuer(t.Issuer)
	}
	tok, err := b.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), exp.UTC(), nil
}

// Parse verifies raw and returns the session id it was issued for.
func (t Tokens) Parse(raw string) (string, error) {
	if len(t.Secret) == 0 {
		return "", invalidTokenError(errors.New("token secret not configured"))
	}
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, t.Secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(t.now)),
	}
	if t.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.Issuer))
	}
	tok, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return "", invalidTokenError(err)
	}
	if tok.Subject() == "" {
		return "", invalidTokenError(errors.New("missing subject"))
	}
	return tok.Subject(), nil
}
