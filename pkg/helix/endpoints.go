package helix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"streamscout/pkg/auth"
	errs "streamscout/pkg/errors"
)

const (
	StreamsPath          = "/streams"
	SearchChannelsPath   = "/search/channels"
	UsersPath            = "/users"
	ChannelsPath         = "/channels"
	GamesPath            = "/games"
	SearchCategoriesPath = "/search/categories"

	// MaxIDsPerLookup bounds id lists for /users and /channels.
	MaxIDsPerLookup = 100
)

// ErrGameNotFound is returned by FindGame when no category matches.
var ErrGameNotFound = errors.New("game not found")

// StreamsQuery filters /streams.
type StreamsQuery struct {
	GameID   string
	Language string
	First    int
}

// Streams walks live broadcasts, most viewed first.
func (c *Client) Streams(q StreamsQuery) *Pager[Stream] {
	v := url.Values{}
	if q.GameID != "" {
		v.Set("game_id", q.GameID)
	}
	if q.Language != "" {
		v.Set("language", q.Language)
	}
	return NewPager[Stream](c, StreamsPath, v, pageSize(q.First))
}

// SearchChannelsQuery filters /search/channels.
type SearchChannelsQuery struct {
	Query    string
	LiveOnly bool
	First    int
}

// SearchChannels walks channels matching a free-text query.
func (c *Client) SearchChannels(q SearchChannelsQuery) *Pager[Channel] {
	v := url.Values{}
	v.Set("query", q.Query)
	v.Set("live_only", strconv.FormatBool(q.LiveOnly))
	return NewPager[Channel](c, SearchChannelsPath, v, pageSize(q.First))
}

// Users looks up user records by id. Unknown ids are simply absent from the
// result.
func (c *Client) Users(ctx context.Context, ids []string) ([]User, error) {
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return fetch[User](ctx, c, UsersPath, url.Values{"id": ids})
}

// Channels looks up channel information by broadcaster id.
func (c *Client) Channels(ctx context.Context, ids []string) ([]ChannelInfo, error) {
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return fetch[ChannelInfo](ctx, c, ChannelsPath, url.Values{"broadcaster_id": ids})
}

// Games looks up categories by exact name.
func (c *Client) Games(ctx context.Context, name string) ([]Game, error) {
	return fetch[Game](ctx, c, GamesPath, url.Values{"name": {name}})
}

// FindGame resolves a category name. The first match wins.
func (c *Client) FindGame(ctx context.Context, name string) (*Game, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.NewValidationError("game name is empty", nil)
	}

	games, err := c.Games(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, name)
	}
	return &games[0], nil
}

// SearchCategories returns up to first categories matching query.
func (c *Client) SearchCategories(ctx context.Context, query string, first int) ([]Game, error) {
	page, err := NewPager[Game](c, SearchCategoriesPath, url.Values{"query": {query}}, pageSize(first)).Next(ctx)
	if errors.Is(err, Done) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

// ProbeAuth performs a fresh token exchange and reports its outcome.
func (c *Client) ProbeAuth(ctx context.Context) (*auth.TokenInfo, error) {
	return c.tokens.Authenticate(ctx)
}

func fetch[T any](ctx context.Context, exec Executor, path string, q url.Values) ([]T, error) {
	body, err := exec.Execute(ctx, http.MethodGet, path, q)
	if err != nil {
		return nil, err
	}

	var resp Response[T]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errs.NewAPIError(http.StatusOK, fmt.Sprintf("malformed %s response: %v", path, err))
	}
	return resp.Data, nil
}

func checkIDs(ids []string) error {
	if len(ids) > MaxIDsPerLookup {
		return errs.NewValidationError(fmt.Sprintf("at most %d ids per lookup, got %d", MaxIDsPerLookup, len(ids)), nil)
	}
	return nil
}

func pageSize(n int) int {
	if n <= 0 {
		return MaxPageSize
	}
	return n
}
