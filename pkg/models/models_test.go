package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "streamscout/pkg/errors"
)

func intPtr(n int) *int { return &n }

func TestNewSearchCriteria(t *testing.T) {
	tests := []struct {
		name    string
		params  CriteriaParams
		wantErr string
	}{
		{name: "defaults", params: DefaultCriteriaParams()},
		{name: "bounds", params: CriteriaParams{MinViewers: 50, MaxViewers: intPtr(500), Limit: 10}},
		{name: "limit at ceiling", params: CriteriaParams{Limit: MaxLimit}},
		{name: "equal bounds rejected", params: CriteriaParams{MinViewers: 100, MaxViewers: intPtr(100), Limit: 10}, wantErr: "max_viewers must be greater than min_viewers"},
		{name: "inverted bounds", params: CriteriaParams{MinViewers: 100, MaxViewers: intPtr(10), Limit: 10}, wantErr: "max_viewers must be greater than min_viewers"},
		{name: "negative min", params: CriteriaParams{MinViewers: -1, Limit: 10}, wantErr: "min_viewers cannot be negative"},
		{name: "zero limit", params: CriteriaParams{Limit: 0}, wantErr: "limit must be between 1 and 10000"},
		{name: "limit too high", params: CriteriaParams{Limit: MaxLimit + 1}, wantErr: "limit must be between 1 and 10000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewSearchCriteria(tt.params)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.True(t, c.Valid())
				return
			}
			require.Error(t, err)
			assert.Equal(t, errs.ErrorTypeValidation, errs.TypeOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, c.Valid())
		})
	}
}

func TestSearchCriteriaIsImmutable(t *testing.T) {
	maxV := 500
	p := CriteriaParams{MinViewers: 50, MaxViewers: &maxV, Language: " DE ", Limit: 10}
	c, err := NewSearchCriteria(p)
	require.NoError(t, err)

	maxV = 1
	p.MinViewers = 9999

	got, ok := c.MaxViewers()
	assert.True(t, ok)
	assert.Equal(t, 500, got)
	assert.Equal(t, 50, c.MinViewers())
	assert.Equal(t, "de", c.Language())

	params := c.Params()
	*params.MaxViewers = 7
	got, _ = c.MaxViewers()
	assert.Equal(t, 500, got)
}

func TestInViewerRange(t *testing.T) {
	c, err := NewSearchCriteria(CriteriaParams{MinViewers: 50, MaxViewers: intPtr(500), Limit: 1})
	require.NoError(t, err)

	assert.False(t, c.InViewerRange(49))
	assert.True(t, c.InViewerRange(50))
	assert.True(t, c.InViewerRange(500))
	assert.False(t, c.InViewerRange(501))

	open, err := NewSearchCriteria(CriteriaParams{MinViewers: 10, Limit: 1})
	require.NoError(t, err)
	assert.True(t, open.InViewerRange(1_000_000))
}

func TestMatchesLanguage(t *testing.T) {
	de, err := NewSearchCriteria(CriteriaParams{Language: "de", Limit: 1})
	require.NoError(t, err)
	assert.True(t, de.MatchesLanguage("de"))
	assert.False(t, de.MatchesLanguage("DE"), "language codes compare exactly")
	assert.False(t, de.MatchesLanguage("en"))
	assert.False(t, de.MatchesLanguage(""))

	anyLang, err := NewSearchCriteria(CriteriaParams{Limit: 1})
	require.NoError(t, err)
	assert.True(t, anyLang.MatchesLanguage("ja"))
}

func TestWithGame(t *testing.T) {
	c, err := NewSearchCriteria(CriteriaParams{GameName: "minecraft", Limit: 5})
	require.NoError(t, err)

	resolved := c.WithGame("27471", "Minecraft")
	assert.Equal(t, "27471", resolved.GameID())
	assert.Equal(t, "Minecraft", resolved.GameName())
	assert.Equal(t, "", c.GameID())
	assert.Equal(t, 5, resolved.Limit())
}

func TestCriteriaParamsJSON(t *testing.T) {
	c, err := NewSearchCriteria(CriteriaParams{MinViewers: 5, MaxViewers: intPtr(10), Language: "en", Limit: 3})
	require.NoError(t, err)

	data, err := json.Marshal(c.Params())
	require.NoError(t, err)
	assert.JSONEq(t, `{"min_viewers":5,"max_viewers":10,"language":"en","include_offline":false,"limit":3}`, string(data))
}

func TestNewExportConfig(t *testing.T) {
	cfg, err := NewExportConfig("JSON", "out.json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, cfg.Format)

	_, err = NewExportConfig("xlsx", "")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "output path is required")
}

func TestSocialLinksEmpty(t *testing.T) {
	assert.True(t, SocialLinks{}.Empty())
	assert.False(t, SocialLinks{Discord: "https://discord.gg/abc"}.Empty())
	assert.False(t, SocialLinks{Other: []string{"https://linktr.ee/x"}}.Empty())
}

func TestCreatorViewers(t *testing.T) {
	c := &Creator{}
	assert.Equal(t, 0, c.Viewers())
	c.ViewerCount = intPtr(42)
	assert.Equal(t, 42, c.Viewers())
}
