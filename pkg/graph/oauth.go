package graph

import (
	"context"
	"fmt"
	"maps"
	"net/http"

	"go.uber.org/zap"
)

// OAuth2Client exchanges and inspects access tokens on behalf of an app.
type OAuth2Client struct {
	app          App
	client       RequestSender
	graphVersion string
	logger       *zap.Logger
}

// NewOAuth2Client creates a new OAuth2 client with default production logger
func NewOAuth2Client(app App, client RequestSender, graphVersion string) *OAuth2Client {
	logger, _ := zap.NewProduction()
	return NewOAuth2ClientWithLogger(app, client, graphVersion, logger)
}

// NewOAuth2ClientWithLogger creates a new OAuth2 client with a custom logger
func NewOAuth2ClientWithLogger(app App, client RequestSender, graphVersion string, logger *zap.Logger) *OAuth2Client {
	if graphVersion == "" {
		graphVersion = DefaultGraphVersion
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuth2Client{
		app:          app,
		client:       client,
		graphVersion: graphVersion,
		logger:       logger,
	}
}

// DebugToken returns the metadata Graph holds about token.
func (o *OAuth2Client) DebugToken(ctx context.Context, token string) (*TokenMetadata, error) {
	req, err := NewRequest(RequestOptions{
		Method:       http.MethodGet,
		Endpoint:     "/debug_token",
		AccessToken:  o.app.AccessToken().String(),
		Params:       map[string]any{"input_token": token},
		GraphVersion: o.graphVersion,
	})
	if err != nil {
		return nil, err
	}

	resp, err := o.client.SendRequest(ctx, req)
	if err != nil {
		o.logger.Error("Debug token request failed", zap.Error(err))
		return nil, fmt.Errorf("debug token request failed: %w", err)
	}

	var meta TokenMetadata
	if err := decodeWeak(resp.DecodedBody()["data"], &meta); err != nil {
		return nil, fmt.Errorf("failed to parse token metadata: %w", err)
	}

	o.logger.Info("Fetched token metadata",
		zap.String("app_id", meta.AppID),
		zap.Bool("is_valid", meta.IsValid))

	return &meta, nil
}

// AccessTokenFromCode trades an authorization code for an access token.
func (o *OAuth2Client) AccessTokenFromCode(ctx context.Context, code, redirectURI string) (AccessToken, error) {
	return o.requestAccessToken(ctx, map[string]any{
		"code":         code,
		"redirect_uri": redirectURI,
	})
}

// LongLivedAccessToken exchanges a short-lived token for a long-lived one.
func (o *OAuth2Client) LongLivedAccessToken(ctx context.Context, token string) (AccessToken, error) {
	return o.requestAccessToken(ctx, map[string]any{
		"grant_type":        "fb_exchange_token",
		"fb_exchange_token": token,
	})
}

// CodeFromLongLivedAccessToken obtains a code that a client can redeem for
// its own copy of the long-lived token.
func (o *OAuth2Client) CodeFromLongLivedAccessToken(ctx context.Context, token, redirectURI string) (string, error) {
	resp, err := o.sendWithClientParams(ctx, "/oauth/client_code", map[string]any{
		"redirect_uri": redirectURI,
	}, token)
	if err != nil {
		return "", err
	}

	code, _ := resp.DecodedBody()["code"].(string)
	if code == "" {
		return "", ErrCodeNotReturned
	}
	return code, nil
}

func (o *OAuth2Client) requestAccessToken(ctx context.Context, params map[string]any) (AccessToken, error) {
	resp, err := o.sendWithClientParams(ctx, "/oauth/access_token", params, "")
	if err != nil {
		return AccessToken{}, err
	}

	var tr tokenResponse
	if err := decodeWeak(resp.DecodedBody(), &tr); err != nil {
		return AccessToken{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return AccessToken{}, ErrTokenNotReturned
	}

	token := NewAccessToken(tr.AccessToken, tr.expiresAt())
	o.logger.Info("Obtained access token",
		zap.Bool("long_lived", token.IsLongLived()),
		zap.Time("expires_at", token.ExpiresAt))

	return token, nil
}

// sendWithClientParams sends a GET carrying the app credentials. An empty
// token means the app token.
func (o *OAuth2Client) sendWithClientParams(ctx context.Context, endpoint string, params map[string]any, token string) (*Response, error) {
	all := maps.Clone(params)
	all["client_id"] = o.app.ID
	all["client_secret"] = o.app.Secret

	if token == "" {
		token = o.app.AccessToken().String()
	}

	req, err := NewRequest(RequestOptions{
		Method:       http.MethodGet,
		Endpoint:     endpoint,
		AccessToken:  token,
		Params:       all,
		GraphVersion: o.graphVersion,
	})
	if err != nil {
		return nil, err
	}

	resp, err := o.client.SendRequest(ctx, req)
	if err != nil {
		o.logger.Error("OAuth request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("oauth request to %s failed: %w", endpoint, err)
	}
	return resp, nil
}
