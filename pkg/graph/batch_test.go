package graph

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBatch(t *testing.T, batch *BatchRequest) []map[string]any {
	t.Helper()
	raw, err := batch.ToJSON()
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	return items
}

func TestBatchRoundTrip(t *testing.T) {
	batch := NewBatchRequest("batch_tok", "")
	reqs := []*Request{
		mustRequest(t, RequestOptions{Endpoint: "/me", Params: map[string]any{"fields": "id"}}),
		mustRequest(t, RequestOptions{Method: "POST", Endpoint: "/me/feed", Params: map[string]any{"message": "a&b"}}),
		mustRequest(t, RequestOptions{Method: "DELETE", Endpoint: "/123"}),
	}
	require.NoError(t, batch.AddMany(reqs))
	require.NoError(t, batch.ValidateCount())
	require.NoError(t, batch.Prepare())

	post := batch.PostParams()
	assert.Equal(t, "true", post["include_headers"])

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(post["batch"]), &items))
	require.Len(t, items, 3)

	assert.Equal(t, "GET", items[0]["method"])
	assert.Equal(t, "/v2.12/me?access_token=batch_tok&fields=id", items[0]["relative_url"])
	assert.Equal(t, "0", items[0]["name"])
	assert.NotContains(t, items[0], "body")
	assert.NotContains(t, items[0], "access_token")

	assert.Equal(t, "POST", items[1]["method"])
	assert.Equal(t, "/v2.12/me/feed", items[1]["relative_url"])
	assert.Equal(t, "message=a%26b", items[1]["body"])
	assert.Equal(t, "1", items[1]["name"])

	assert.Equal(t, "DELETE", items[2]["method"])
	assert.Equal(t, "/v2.12/123?access_token=batch_tok", items[2]["relative_url"])

	// The batch itself only sends the token in the query.
	assert.Equal(t, map[string]string{"access_token": "batch_tok"}, batch.Params())
	assert.Equal(t, "/v2.12/", batch.URL())
}

func TestBatchJSONKeepsAmpersands(t *testing.T) {
	batch := NewBatchRequest("tok", "")
	require.NoError(t, batch.Add(mustRequest(t, RequestOptions{Endpoint: "/me", Params: map[string]any{"a": "1"}}), ""))

	raw, err := batch.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, raw, `"relative_url":"/v2.12/me?a=1&access_token=tok"`)
	assert.Contains(t, raw, `"headers":{}`)
	assert.NotContains(t, raw, `"name"`)
	assert.False(t, strings.HasSuffix(raw, "\n"))
}

func TestBatchPerItemAccessToken(t *testing.T) {
	batch := NewBatchRequest("batch_tok", "")
	require.NoError(t, batch.Add(mustRequest(t, RequestOptions{Endpoint: "/me", AccessToken: "batch_tok"}), "same"))
	require.NoError(t, batch.Add(mustRequest(t, RequestOptions{Endpoint: "/me", AccessToken: "other_tok"}), "other"))

	items := decodeBatch(t, batch)
	assert.NotContains(t, items[0], "access_token")
	assert.Equal(t, "other_tok", items[1]["access_token"])
}

func TestBatchMissingAccessToken(t *testing.T) {
	batch := NewBatchRequest("", "")
	err := batch.Add(mustRequest(t, RequestOptions{Endpoint: "/me"}), "")

	assert.ErrorIs(t, err, ErrMissingAccessToken)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Zero(t, batch.Len())
}

func TestBatchInheritsAccessToken(t *testing.T) {
	batch := NewBatchRequest("batch_tok", "")
	req := mustRequest(t, RequestOptions{Endpoint: "/me"})
	require.NoError(t, batch.Add(req, ""))

	assert.Equal(t, "batch_tok", req.AccessToken())
}

func TestBatchNilItem(t *testing.T) {
	batch := NewBatchRequest("tok", "")
	err := batch.AddMany([]*Request{nil})

	assert.ErrorIs(t, err, ErrInvalidBatchItem)
	assert.ErrorContains(t, err, "batch item 0")
}

func TestBatchValidateCount(t *testing.T) {
	batch := NewBatchRequest("tok", "")
	err := batch.ValidateCount()
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.ErrorIs(t, err, ErrConfiguration)

	for i := 0; i < MaxBatchSize; i++ {
		require.NoError(t, batch.Add(mustRequest(t, RequestOptions{Endpoint: "/" + strconv.Itoa(i)}), ""))
	}
	assert.NoError(t, batch.ValidateCount())

	require.NoError(t, batch.Add(mustRequest(t, RequestOptions{Endpoint: "/last"}), ""))
	err = batch.ValidateCount()
	assert.ErrorIs(t, err, ErrBatchTooLarge)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestBatchAddNamedOrder(t *testing.T) {
	batch := NewBatchRequest("tok", "")
	require.NoError(t, batch.AddNamed(map[string]*Request{
		"b": mustRequest(t, RequestOptions{Endpoint: "/b"}),
		"a": mustRequest(t, RequestOptions{Endpoint: "/a"}),
		"c": mustRequest(t, RequestOptions{Endpoint: "/c"}),
	}))

	var names []string
	for _, e := range batch.All() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Len(t, batch.Entries(), 3)
}

func TestBatchAttachedFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	photo := memFile(t, fs, "/photo.png", "png")
	video := memFile(t, fs, "/video.mp4", "mp4")

	batch := NewBatchRequest("tok", "")
	require.NoError(t, batch.Add(mustRequest(t, RequestOptions{
		Method:   "POST",
		Endpoint: "/me/photos",
		Params:   map[string]any{"message": "hi", "source": photo, "thumb": video},
	}), "upload"))
	require.NoError(t, batch.Add(mustRequest(t, RequestOptions{Endpoint: "/me"}), "plain"))

	items := decodeBatch(t, batch)
	tokens := strings.Split(items[0]["attached_files"].(string), ",")
	require.Len(t, tokens, 2)
	assert.NotContains(t, items[1], "attached_files")
	assert.Equal(t, "message=hi", items[0]["body"])

	assert.True(t, batch.ContainsFiles())
	pooled := batch.Files()
	require.Len(t, pooled, 2)
	for _, token := range tokens {
		assert.True(t, strings.HasPrefix(token, "file_"))
		assert.Contains(t, pooled, token)
	}
	assert.Same(t, photo, pooled[tokens[0]])
	assert.Same(t, video, pooled[tokens[1]])
}
