package graph

import "time"

// TokenMetadata is the "data" object returned by /debug_token.
type TokenMetadata struct {
	AppID               string         `mapstructure:"app_id"`
	Type                string         `mapstructure:"type"`
	Application         string         `mapstructure:"application"`
	ExpiresAt           int64          `mapstructure:"expires_at"`
	DataAccessExpiresAt int64          `mapstructure:"data_access_expires_at"`
	IssuedAt            int64          `mapstructure:"issued_at"`
	IsValid             bool           `mapstructure:"is_valid"`
	Scopes              []string       `mapstructure:"scopes"`
	UserID              string         `mapstructure:"user_id"`
	Metadata            map[string]any `mapstructure:"metadata"`
}

// Expiry converts ExpiresAt to a time. Zero means the token never expires.
func (m TokenMetadata) Expiry() time.Time {
	return unixOrZero(m.ExpiresAt)
}

// IssuedTime converts IssuedAt to a time.
func (m TokenMetadata) IssuedTime() time.Time {
	return unixOrZero(m.IssuedAt)
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// tokenResponse is the body of /oauth/access_token. "expires" is an
// absolute unix time on token exchange; "expires_in" is relative seconds
// when trading a code.
type tokenResponse struct {
	AccessToken string `mapstructure:"access_token"`
	TokenType   string `mapstructure:"token_type"`
	Expires     int64  `mapstructure:"expires"`
	ExpiresIn   int64  `mapstructure:"expires_in"`
}

func (t tokenResponse) expiresAt() time.Time {
	switch {
	case t.Expires > 0:
		return time.Unix(t.Expires, 0).UTC()
	case t.ExpiresIn > 0:
		return now().Add(time.Duration(t.ExpiresIn) * time.Second)
	default:
		return time.Time{}
	}
}
