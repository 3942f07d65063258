package services

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/natserract/fbgraph/pkg/graph"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndBuildRequests(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/photos/cat.png", []byte("png"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/requests.json", []byte(`[
		{"name":"me","endpoint":"/me","params":{"fields":"id,name"}},
		{"method":"POST","endpoint":"/me/photos","params":{"source":"@/photos/cat.png","caption":"cat"}},
		{"endpoint":"/me/friends","access_token":"other","params":{"limit":10}}
	]`), 0o644))

	specs, err := LoadRequestSpecs(fs, "/requests.json")
	require.NoError(t, err)
	require.Len(t, specs, 3)

	reqs, err := BuildRequests(fs, specs, "v3.0")
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	assert.Equal(t, "me", reqs[0].Name)
	assert.Equal(t, "/v3.0/me", reqs[0].Request.URL())

	assert.Equal(t, "1", reqs[1].Name)
	assert.True(t, reqs[1].Request.ContainsFiles())
	assert.Equal(t, map[string]string{"caption": "cat"}, reqs[1].Request.PostParams())

	assert.Equal(t, "2", reqs[2].Name)
	assert.Equal(t, "other", reqs[2].Request.AccessToken())
	assert.Equal(t, "10", reqs[2].Request.Params()["limit"])
}

func TestLoadRequestSpecsKeepsNumbers(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/requests.json", []byte(
		`[{"endpoint":"/me/feed","params":{"since":1500000000,"id":12345678901234567890,"ratio":0.5}}]`), 0o644))

	specs, err := LoadRequestSpecs(fs, "/requests.json")
	require.NoError(t, err)

	reqs, err := BuildRequests(fs, specs, "")
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	params := reqs[0].Request.Params()
	assert.Equal(t, "1500000000", params["since"])
	assert.Equal(t, "12345678901234567890", params["id"])
	assert.Equal(t, "0.5", params["ratio"])
}

func TestLoadRequestSpecsErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := LoadRequestSpecs(fs, "/missing.json")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.json", []byte(`{"not":"a list"}`), 0o644))
	_, err = LoadRequestSpecs(fs, "/bad.json")
	assert.ErrorContains(t, err, "failed to parse")
}

func TestBuildRequestsReportsEveryProblem(t *testing.T) {
	fs := afero.NewMemMapFs()
	specs := []RequestSpec{
		{Name: "ok", Endpoint: "/me"},
		{Name: "missing", Endpoint: "/me/photos", Params: map[string]any{"source": "@/nope.png"}},
		{Name: "conflict", Endpoint: "/me?access_token=a", AccessToken: "b"},
	}

	reqs, err := BuildRequests(fs, specs, "")
	assert.Nil(t, reqs)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, merr.Errors[0], graph.ErrFileNotFound)
	assert.ErrorIs(t, merr.Errors[1], graph.ErrAccessTokenConflict)
}
