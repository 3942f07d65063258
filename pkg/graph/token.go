package graph

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// longLivedThreshold is how far in the future a token must expire to be
// considered long-lived.
const longLivedThreshold = 2 * time.Hour

// now is swapped out in tests.
var now = time.Now

// AccessToken is an opaque bearer credential with an optional expiry.
// A zero ExpiresAt means the token carries no expiry information.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// NewAccessToken creates an access token. Pass the zero time for tokens
// without expiry.
func NewAccessToken(value string, expiresAt time.Time) AccessToken {
	return AccessToken{Value: value, ExpiresAt: expiresAt}
}

func (t AccessToken) String() string {
	return t.Value
}

// IsAppAccessToken reports whether the token has the "<id>|<secret>" shape.
func (t AccessToken) IsAppAccessToken() bool {
	return len(strings.Split(t.Value, "|")) == 2
}

// IsLongLived reports whether the token expires more than two hours from
// now. Tokens without expiry are long-lived only when they are app tokens.
func (t AccessToken) IsLongLived() bool {
	if !t.ExpiresAt.IsZero() {
		return t.ExpiresAt.After(now().Add(longLivedThreshold))
	}
	return t.IsAppAccessToken()
}

// IsExpired reports whether the expiry is set and already in the past.
func (t AccessToken) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return t.ExpiresAt.Before(now())
}

// AppSecretProof returns the hex encoded HMAC-SHA256 of the token keyed by
// the app secret.
func (t AccessToken) AppSecretProof(secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(t.Value))
	return hex.EncodeToString(mac.Sum(nil))
}

// App identifies a Graph application.
type App struct {
	ID     string
	Secret string
}

// AccessToken derives the app access token "{id}|{secret}".
func (a App) AccessToken() AccessToken {
	return AccessToken{Value: a.ID + "|" + a.Secret}
}

// SecretProof computes the appsecret_proof for the given token value.
func (a App) SecretProof(token string) string {
	return AccessToken{Value: token}.AppSecretProof(a.Secret)
}
