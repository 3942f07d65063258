package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func TestAppSecretProof(t *testing.T) {
	token := NewAccessToken("foo_token", time.Time{})

	assert.Equal(t,
		"796ba0d8a6b339e476a7b166a9e8ac0a395f7de736dc37de5f2f4397f5854eb8",
		token.AppSecretProof("shhhhh!is.my.secret"))

	app := App{ID: "123", Secret: "shhhhh!is.my.secret"}
	assert.Equal(t, token.AppSecretProof(app.Secret), app.SecretProof("foo_token"))
}

func TestIsAppAccessToken(t *testing.T) {
	assert.True(t, NewAccessToken("123|secret", time.Time{}).IsAppAccessToken())
	assert.False(t, NewAccessToken("user_token", time.Time{}).IsAppAccessToken())
	assert.False(t, NewAccessToken("a|b|c", time.Time{}).IsAppAccessToken())

	app := App{ID: "123", Secret: "foo_secret"}
	assert.Equal(t, "123|foo_secret", app.AccessToken().String())
	assert.True(t, app.AccessToken().IsAppAccessToken())
}

func TestIsLongLived(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	freezeTime(t, base)

	tests := []struct {
		name  string
		token AccessToken
		want  bool
	}{
		{"expires in three hours", NewAccessToken("t", base.Add(3*time.Hour)), true},
		{"expires in one hour", NewAccessToken("t", base.Add(time.Hour)), false},
		{"expires at exactly two hours", NewAccessToken("t", base.Add(2*time.Hour)), false},
		{"app token without expiry", NewAccessToken("1|s", time.Time{}), true},
		{"user token without expiry", NewAccessToken("t", time.Time{}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.IsLongLived())
		})
	}
}

func TestIsExpired(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	freezeTime(t, base)

	assert.True(t, NewAccessToken("t", base.Add(-time.Minute)).IsExpired())
	assert.False(t, NewAccessToken("t", base.Add(time.Minute)).IsExpired())
	assert.False(t, NewAccessToken("t", time.Time{}).IsExpired())
}
