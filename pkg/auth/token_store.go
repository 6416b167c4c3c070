package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"streamscout/internal/metrics"
	errs "streamscout/pkg/errors"
	"streamscout/pkg/logger"
)

// TokenURL is Twitch's OAuth token endpoint.
const TokenURL = "https://id.twitch.tv/oauth2/token"

// DefaultSafetyMargin is how long before its real expiry a token is treated
// as expired.
const DefaultSafetyMargin = 60 * time.Second

// TokenInfo is the outcome of a client-credentials exchange.
type TokenInfo struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenStore owns the app access token. A cached token is only handed out
// while now+margin is before its expiry; otherwise a fresh exchange runs.
// Exchanges are serialized so concurrent callers never refresh twice.
type TokenStore struct {
	cfg        clientcredentials.Config
	httpClient *http.Client
	clock      clockwork.Clock
	margin     time.Duration
	logger     logger.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

// TokenStoreOption customizes a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithClock drives expiry checks from clock.
func WithClock(clock clockwork.Clock) TokenStoreOption {
	return func(s *TokenStore) { s.clock = clock }
}

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(c *http.Client) TokenStoreOption {
	return func(s *TokenStore) { s.httpClient = c }
}

// WithSafetyMargin overrides DefaultSafetyMargin.
func WithSafetyMargin(d time.Duration) TokenStoreOption {
	return func(s *TokenStore) { s.margin = d }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) TokenStoreOption {
	return func(s *TokenStore) { s.logger = l }
}

// NewTokenStore creates a store that exchanges clientID and clientSecret at
// tokenURL. No request is made until the first EnsureValid or Authenticate.
func NewTokenStore(clientID, clientSecret, tokenURL string, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		clock:      clockwork.NewRealClock(),
		margin:     DefaultSafetyMargin,
		logger:     logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureValid returns a token that stays valid for at least the safety
// margin, authenticating first when the cached one is missing or too old.
func (s *TokenStore) EnsureValid(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.clock.Now().Add(s.margin).Before(s.expires) {
		return s.token, nil
	}

	info, err := s.exchange(ctx)
	if err != nil {
		return "", err
	}
	if time.Duration(info.ExpiresIn)*time.Second <= s.margin {
		return "", errs.NewAuthFailure("token lifetime is shorter than the safety margin", 0, nil)
	}
	return info.AccessToken, nil
}

// Authenticate always performs an exchange and replaces the cached token.
func (s *TokenStore) Authenticate(ctx context.Context) (*TokenInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchange(ctx)
}

// Invalidate drops the cached token so the next EnsureValid re-authenticates.
func (s *TokenStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
}

// Expiry reports when the cached token expires, zero if there is none.
func (s *TokenStore) Expiry() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expires
}

// exchange runs the client-credentials grant. Callers hold s.mu.
func (s *TokenStore) exchange(ctx context.Context) (*TokenInfo, error) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		return nil, errs.NewAuthFailure("client id and secret are required", 0, nil)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.cfg.Token(ctx)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		s.logger.WithError(err).Warn("Token exchange failed")
		return nil, classifyExchangeError(ctx, err)
	}

	lifetime := tokenLifetime(tok, s.clock)
	s.token = tok.AccessToken
	s.expires = s.clock.Now().Add(lifetime)

	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	s.logger.DebugWithFields("Obtained app access token", map[string]interface{}{
		"expires_in": int64(lifetime.Seconds()),
	})

	return &TokenInfo{
		AccessToken: tok.AccessToken,
		ExpiresIn:   int64(lifetime.Seconds()),
		TokenType:   tok.TokenType,
	}, nil
}

func classifyExchangeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		code := 0
		if re.Response != nil {
			code = re.Response.StatusCode
		}
		return errs.NewAuthFailure("token exchange rejected", code, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return errs.NewTransportFailure(err)
	}
	return errs.NewAuthFailure("token exchange failed", 0, err)
}

// tokenLifetime prefers the server's expires_in over the absolute expiry the
// oauth2 package derives from it.
func tokenLifetime(tok *oauth2.Token, clock clockwork.Clock) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}
	if v, ok := tok.Extra("expires_in").(float64); ok && v > 0 {
		return time.Duration(v) * time.Second
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Sub(clock.Now())
	}
	return 0
}
