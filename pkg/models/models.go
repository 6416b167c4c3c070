package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	errs "streamscout/pkg/errors"
)

// MaxLimit is the largest result limit a search may request.
const MaxLimit = 10000

// SocialLinks holds profile links extracted from a channel biography
type SocialLinks struct {
	Twitter   string   `json:"twitter,omitempty"`
	Instagram string   `json:"instagram,omitempty"`
	YouTube   string   `json:"youtube,omitempty"`
	Discord   string   `json:"discord,omitempty"`
	TikTok    string   `json:"tiktok,omitempty"`
	Other     []string `json:"other"`
}

// Empty reports whether no link was found
func (s SocialLinks) Empty() bool {
	return s.Twitter == "" && s.Instagram == "" && s.YouTube == "" &&
		s.Discord == "" && s.TikTok == "" && len(s.Other) == 0
}

// Creator is one discovered channel. ID is the platform identity and the
// deduplication key across collection phases.
type Creator struct {
	ID              string      `json:"twitch_id"`
	Login           string      `json:"username"`
	DisplayName     string      `json:"display_name"`
	Description     string      `json:"description,omitempty"`
	BroadcasterType string      `json:"broadcaster_type,omitempty"`
	FollowerCount   int         `json:"follower_count,omitempty"`
	IsLive          bool        `json:"is_live"`
	ViewerCount     *int        `json:"viewer_count"`
	GameName        string      `json:"game_name,omitempty"`
	Language        string      `json:"language,omitempty"`
	Emails          []string    `json:"emails"`
	SocialLinks     SocialLinks `json:"social_links"`
	LastUpdated     time.Time   `json:"last_updated"`
}

// Viewers returns the viewer count or zero when unknown
func (c *Creator) Viewers() int {
	if c.ViewerCount == nil {
		return 0
	}
	return *c.ViewerCount
}

// CriteriaParams is the raw input for NewSearchCriteria
type CriteriaParams struct {
	MinViewers     int    `json:"min_viewers"`
	MaxViewers     *int   `json:"max_viewers"`
	GameName       string `json:"game_name,omitempty"`
	GameID         string `json:"game_id,omitempty"`
	Language       string `json:"language"`
	IncludeOffline bool   `json:"include_offline"`
	Limit          int    `json:"limit"`
}

// DefaultCriteriaParams mirrors the CLI defaults
func DefaultCriteriaParams() CriteriaParams {
	return CriteriaParams{
		Language:       "de",
		IncludeOffline: true,
		Limit:          100,
	}
}

// SearchCriteria is a validated, immutable set of search parameters. The zero
// value is not valid; build one with NewSearchCriteria.
type SearchCriteria struct {
	p      CriteriaParams
	hasMax bool
	max    int
	valid  bool
}

// NewSearchCriteria validates p. Equal viewer bounds are rejected: a maximum
// must be strictly greater than the minimum.
func NewSearchCriteria(p CriteriaParams) (SearchCriteria, error) {
	var problems []error

	if p.MinViewers < 0 {
		problems = append(problems, errors.New("min_viewers cannot be negative"))
	}
	if p.MaxViewers != nil && *p.MaxViewers <= p.MinViewers {
		problems = append(problems, errors.New("max_viewers must be greater than min_viewers"))
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		problems = append(problems, fmt.Errorf("limit must be between 1 and %d", MaxLimit))
	}

	if len(problems) > 0 {
		return SearchCriteria{}, errs.NewValidationError("invalid search criteria", errors.Join(problems...))
	}

	c := SearchCriteria{p: p, valid: true}
	c.p.GameName = strings.TrimSpace(p.GameName)
	c.p.GameID = strings.TrimSpace(p.GameID)
	c.p.Language = strings.ToLower(strings.TrimSpace(p.Language))
	if p.MaxViewers != nil {
		c.hasMax = true
		c.max = *p.MaxViewers
		c.p.MaxViewers = nil
	}
	return c, nil
}

// Valid reports whether c came from NewSearchCriteria
func (c SearchCriteria) Valid() bool { return c.valid }

// MinViewers is the lower viewer bound for live streams
func (c SearchCriteria) MinViewers() int { return c.p.MinViewers }

// MaxViewers returns the upper viewer bound and whether one is set
func (c SearchCriteria) MaxViewers() (int, bool) { return c.max, c.hasMax }

// GameName is the category name, empty for all games
func (c SearchCriteria) GameName() string { return c.p.GameName }

// GameID is the category id, empty until resolved or when not given
func (c SearchCriteria) GameID() string { return c.p.GameID }

// Language is the broadcast language filter, empty for any
func (c SearchCriteria) Language() string { return c.p.Language }

// IncludeOffline reports whether the offline channel sweep runs
func (c SearchCriteria) IncludeOffline() bool { return c.p.IncludeOffline }

// Limit is the maximum number of creators a run returns
func (c SearchCriteria) Limit() int { return c.p.Limit }

// InViewerRange applies the viewer bounds
func (c SearchCriteria) InViewerRange(viewers int) bool {
	if viewers < c.p.MinViewers {
		return false
	}
	if c.hasMax && viewers > c.max {
		return false
	}
	return true
}

// MatchesLanguage reports whether lang satisfies the language filter. Helix
// reports lowercase ISO 639-1 codes, so the comparison is exact. An empty
// filter matches everything.
func (c SearchCriteria) MatchesLanguage(lang string) bool {
	return c.p.Language == "" || c.p.Language == lang
}

// WithGame returns a copy with the resolved game id and canonical name.
func (c SearchCriteria) WithGame(id, name string) SearchCriteria {
	c.p.GameID = id
	c.p.GameName = name
	return c
}

// Params returns a copy of the parameters, suitable for serialisation.
func (c SearchCriteria) Params() CriteriaParams {
	p := c.p
	if c.hasMax {
		m := c.max
		p.MaxViewers = &m
	}
	return p
}

// Phase is a stage of a collection run
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseLiveSweep    Phase = "live_sweep"
	PhaseOfflineSweep Phase = "offline_sweep"
	PhaseEnrichment   Phase = "enrichment"
	PhaseComplete     Phase = "complete"
)

// CollectionProgress is a snapshot of a run's counters
type CollectionProgress struct {
	Phase         Phase `json:"current_phase"`
	TotalExpected int   `json:"total_expected"`
	LiveFound     int   `json:"live_found"`
	OfflineFound  int   `json:"offline_found"`
	Processed     int   `json:"processed"`
	Errors        int   `json:"errors"`
}

// Export formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ExportConfig says where and how results are written
type ExportConfig struct {
	Format string
	Path   string
}

// NewExportConfig validates the format and path
func NewExportConfig(format, path string) (ExportConfig, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	var problems []error
	if format != FormatCSV && format != FormatJSON {
		problems = append(problems, fmt.Errorf("format must be %q or %q, got %q", FormatCSV, FormatJSON, format))
	}
	if strings.TrimSpace(path) == "" {
		problems = append(problems, errors.New("output path is required"))
	}
	if len(problems) > 0 {
		return ExportConfig{}, errs.NewValidationError("invalid export config", errors.Join(problems...))
	}

	return ExportConfig{Format: format, Path: path}, nil
}
