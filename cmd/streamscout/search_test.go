package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamscout/pkg/config"
	errs "streamscout/pkg/errors"
	"streamscout/pkg/helix"
	"streamscout/pkg/models"
	"streamscout/pkg/scraper"
)

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"auth", errs.NewAuthFailure("rejected", 403, nil), exitAuth},
		{"wrapped auth", fmt.Errorf("probe: %w", errs.NewAuthFailure("rejected", 401, nil)), exitAuth},
		{"validation", errs.NewValidationError("bad limit", nil), exitValidation},
		{"game not found", fmt.Errorf("%w: %q", helix.ErrGameNotFound, "Nope"), exitFailure},
		{"api", errs.NewAPIError(500, "boom"), exitFailure},
		{"interrupted", context.Canceled, exitInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestSearchCriteriaDefaultsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Search.Language = "en"
	cfg.Search.Limit = 25

	c, err := searchOptions{game: "Just Chatting", minViewers: 10}.criteria(cfg, changedSet("game", "min-viewers"))
	require.NoError(t, err)

	assert.Equal(t, "Just Chatting", c.GameName())
	assert.Equal(t, "en", c.Language())
	assert.Equal(t, 25, c.Limit())
	assert.Equal(t, 10, c.MinViewers())
	assert.True(t, c.IncludeOffline())
	_, hasMax := c.MaxViewers()
	assert.False(t, hasMax)
}

func TestSearchCriteriaFlagsOverride(t *testing.T) {
	cfg := config.DefaultConfig()

	opts := searchOptions{maxViewers: 500, language: "", liveOnly: true, limit: 7}
	c, err := opts.criteria(cfg, changedSet("max-viewers", "language", "live-only", "limit"))
	require.NoError(t, err)

	m, ok := c.MaxViewers()
	assert.True(t, ok)
	assert.Equal(t, 500, m)
	assert.Empty(t, c.Language(), "an explicit empty language means any")
	assert.False(t, c.IncludeOffline())
	assert.Equal(t, 7, c.Limit())
}

func TestSearchCriteriaInvalidIsValidationError(t *testing.T) {
	cfg := config.DefaultConfig()

	_, err := searchOptions{minViewers: 100, maxViewers: 100}.criteria(cfg, changedSet("max-viewers"))
	require.Error(t, err)
	assert.Equal(t, exitValidation, exitCode(err))
}

func TestExportPath(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "streamers.csv", exportPath(cfg, false))

	cfg.Output.Format = "json"
	assert.Equal(t, "streamers.json", exportPath(cfg, false))

	cfg.Output.File = "out/results.csv"
	assert.Equal(t, "out/results.csv", exportPath(cfg, true), "explicit paths are kept")
}

func TestDescribeCriteria(t *testing.T) {
	upper := 500
	c, err := models.NewSearchCriteria(models.CriteriaParams{
		GameName:   "Just Chatting",
		Language:   "de",
		MinViewers: 50,
		MaxViewers: &upper,
		Limit:      100,
	})
	require.NoError(t, err)
	assert.Equal(t, "Just Chatting • de • 50-500 viewers • live only • limit 100", describeCriteria(c))

	c, err = models.NewSearchCriteria(models.CriteriaParams{MinViewers: 5, IncludeOffline: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "all games • any language • 5+ viewers • limit 10", describeCriteria(c))
}

func TestSummarize(t *testing.T) {
	start := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	res := &scraper.Result{
		Creators: []*models.Creator{
			{ID: "1", IsLive: true, Emails: []string{"biz@example.org"}},
			{ID: "2", IsLive: true, SocialLinks: models.SocialLinks{Twitter: "https://twitter.com/two"}},
			{ID: "3"},
		},
		Progress:   models.CollectionProgress{Errors: 1},
		StartedAt:  start,
		FinishedAt: start.Add(42 * time.Second),
	}

	sum := summarize(res)
	assert.Equal(t, runSummary{
		Total:      3,
		Live:       2,
		Offline:    1,
		WithEmail:  1,
		WithSocial: 1,
		Errors:     1,
		Duration:   42 * time.Second,
	}, sum)

	var buf bytes.Buffer
	renderSummary(&buf, sum)
	out := buf.String()
	assert.Contains(t, out, "With email")
	assert.Contains(t, out, "42s")
}
