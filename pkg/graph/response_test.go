package graph

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseSuccess(t *testing.T) {
	req := mustRequest(t, RequestOptions{Endpoint: "/me", AccessToken: "tok"})
	headers := http.Header{}
	headers.Set("ETag", `"abc"`)
	headers.Set("X-FB-Trace-ID", "trace")
	headers.Set("Facebook-API-Version", "v2.12")

	resp := NewResponse(req, []byte(`{"id":"123","name":"Foo"}`), 200, headers)

	assert.False(t, resp.IsError())
	assert.Nil(t, resp.Err())
	assert.NoError(t, resp.RaiseException())
	assert.Equal(t, map[string]any{"id": "123", "name": "Foo"}, resp.DecodedBody())
	assert.Equal(t, `"abc"`, resp.ETag())
	assert.Equal(t, "trace", resp.FBTraceID())
	assert.Equal(t, "v2.12", resp.GraphVersionHeader())

	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, resp.Decode(&me))
	assert.Equal(t, "Foo", me.Name)
}

func TestResponseOAuthError(t *testing.T) {
	resp := NewResponse(nil, []byte(`{"error":{"code":190,"type":"OAuthException","message":"x"}}`), 400, nil)

	assert.True(t, resp.IsError())
	respErr := resp.Err()
	require.NotNil(t, respErr)
	assert.Equal(t, KindAuthentication, respErr.Kind)
	assert.Equal(t, 190, respErr.Code)
	assert.Equal(t, "x", respErr.Message)
	assert.Same(t, resp, respErr.Response)

	err := resp.RaiseException()
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.NotErrorIs(t, err, ErrServer)
}

func TestResponseMalformedBody(t *testing.T) {
	resp := NewResponse(nil, []byte(`{"error":`), 500, nil)

	assert.False(t, resp.IsError())
	assert.Empty(t, resp.DecodedBody())
	assert.NoError(t, resp.RaiseException())
	assert.Error(t, resp.Decode(&map[string]any{}))
	assert.Empty(t, resp.ETag())
}

func TestResponseBareBoolean(t *testing.T) {
	resp := NewResponse(nil, []byte(`true`), 200, nil)
	assert.Equal(t, map[string]any{"success": true}, resp.DecodedBody())
}

func TestResponseArrayBody(t *testing.T) {
	resp := NewResponse(nil, []byte(`[1,2]`), 200, nil)
	assert.Empty(t, resp.DecodedBody())
	assert.False(t, resp.IsError())
}

func TestNextPageRequest(t *testing.T) {
	req := mustRequest(t, RequestOptions{
		Endpoint:    "/me/feed",
		AccessToken: "tok",
		Params:      map[string]any{"limit": 25},
		Headers:     map[string]string{"X-One": "1"},
	})
	body := `{"data":[],"paging":{
		"next":"https://graph.facebook.com/v2.12/1234/feed?access_token=tok&limit=25&until=1389",
		"previous":"https://graph.facebook.com/1234/feed?since=1400"}}`
	resp := NewResponse(req, []byte(body), 200, nil)

	next, err := resp.NextPageRequest()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "/1234/feed?limit=25&until=1389", next.Endpoint())
	assert.Equal(t, "tok", next.AccessToken())
	assert.Equal(t, map[string]string{"X-One": "1"}, next.Headers())
	assert.Equal(t, "/v2.12/1234/feed?limit=25&until=1389", next.URL())

	prev, err := resp.PreviousPageRequest()
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "/1234/feed?since=1400", prev.Endpoint())
	assert.Equal(t, "25", prev.Params()["limit"])
}

func TestNextPageRequestLastPage(t *testing.T) {
	req := mustRequest(t, RequestOptions{Endpoint: "/me/feed", AccessToken: "tok"})
	resp := NewResponse(req, []byte(`{"data":[]}`), 200, nil)

	next, err := resp.NextPageRequest()
	assert.NoError(t, err)
	assert.Nil(t, next)
}

func TestPaginationRequiresGet(t *testing.T) {
	req := mustRequest(t, RequestOptions{Method: "POST", Endpoint: "/me/feed", AccessToken: "tok"})
	resp := NewResponse(req, []byte(`{"paging":{"next":"https://graph.facebook.com/x"}}`), 200, nil)

	_, err := resp.NextPageRequest()
	assert.ErrorIs(t, err, ErrPaginationMethod)
	assert.ErrorIs(t, err, ErrConfiguration)
}
