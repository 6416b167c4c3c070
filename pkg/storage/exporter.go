package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	errs "streamscout/pkg/errors"
	"streamscout/pkg/logger"
	"streamscout/pkg/models"
)

// utf8BOM lets spreadsheet tools detect the CSV encoding.
const utf8BOM = "\uFEFF"

// CSVColumns is the CSV header, in order.
var CSVColumns = []string{
	"username",
	"display_name",
	"twitch_id",
	"is_live",
	"viewer_count",
	"game_name",
	"language",
	"broadcaster_type",
	"email",
	"twitter",
	"instagram",
	"youtube",
	"discord",
	"tiktok",
}

// Exporter writes creators in the configured format
type Exporter struct {
	clock  clockwork.Clock
	logger logger.Logger
}

// ExporterOption customizes an Exporter
type ExporterOption func(*Exporter)

// WithClock stamps generated_at from clock
func WithClock(clock clockwork.Clock) ExporterOption {
	return func(e *Exporter) { e.clock = clock }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = l }
}

// NewExporter creates a new exporter
func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{
		clock:  clockwork.NewRealClock(),
		logger: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes creators to cfg.Path. criteria is recorded in the JSON
// metadata and may be nil.
func (e *Exporter) Export(cfg models.ExportConfig, creators []*models.Creator, criteria *models.SearchCriteria) error {
	var write func(io.Writer) error
	switch cfg.Format {
	case models.FormatCSV:
		write = func(w io.Writer) error { return WriteCSV(w, creators) }
	case models.FormatJSON:
		doc := e.document(creators, criteria)
		write = func(w io.Writer) error { return WriteJSON(w, doc) }
	default:
		return errs.NewValidationError(fmt.Sprintf("unsupported export format %q", cfg.Format), nil)
	}

	if err := writeAtomic(cfg.Path, write); err != nil {
		return err
	}

	e.logger.InfoWithFields("Results exported", map[string]interface{}{
		"format":  cfg.Format,
		"path":    cfg.Path,
		"records": len(creators),
	})
	return nil
}

// WriteCSV writes the header and one row per creator
func WriteCSV(w io.Writer, creators []*models.Creator) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write byte order mark: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range creators {
		if err := cw.Write(csvRow(c)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(c *models.Creator) []string {
	viewers := ""
	if c.ViewerCount != nil {
		viewers = strconv.Itoa(*c.ViewerCount)
	}
	email := ""
	if len(c.Emails) > 0 {
		email = c.Emails[0]
	}

	return []string{
		c.Login,
		c.DisplayName,
		c.ID,
		strconv.FormatBool(c.IsLive),
		viewers,
		c.GameName,
		c.Language,
		c.BroadcasterType,
		email,
		c.SocialLinks.Twitter,
		c.SocialLinks.Instagram,
		c.SocialLinks.YouTube,
		c.SocialLinks.Discord,
		c.SocialLinks.TikTok,
	}
}

// Document is the JSON export envelope
type Document struct {
	Metadata  Metadata `json:"metadata"`
	Streamers []Record `json:"streamers"`
}

// Record is one exported creator. Optional fields are written as null
// rather than dropped so every record has the same keys.
type Record struct {
	TwitchID        string      `json:"twitch_id"`
	Username        string      `json:"username"`
	DisplayName     string      `json:"display_name"`
	IsLive          bool        `json:"is_live"`
	ViewerCount     *int        `json:"viewer_count"`
	GameName        *string     `json:"game_name"`
	Language        *string     `json:"language"`
	BroadcasterType *string     `json:"broadcaster_type"`
	Emails          []string    `json:"emails"`
	SocialLinks     RecordLinks `json:"social_links"`
	LastUpdated     time.Time   `json:"last_updated"`
}

// RecordLinks holds one profile URL per network, null when none was found
type RecordLinks struct {
	Twitter   *string `json:"twitter"`
	Instagram *string `json:"instagram"`
	YouTube   *string `json:"youtube"`
	Discord   *string `json:"discord"`
	TikTok    *string `json:"tiktok"`
}

// NewRecord converts c to its export shape
func NewRecord(c *models.Creator) Record {
	emails := c.Emails
	if emails == nil {
		emails = []string{}
	}
	return Record{
		TwitchID:        c.ID,
		Username:        c.Login,
		DisplayName:     c.DisplayName,
		IsLive:          c.IsLive,
		ViewerCount:     c.ViewerCount,
		GameName:        nullable(c.GameName),
		Language:        nullable(c.Language),
		BroadcasterType: nullable(c.BroadcasterType),
		Emails:          emails,
		SocialLinks: RecordLinks{
			Twitter:   nullable(c.SocialLinks.Twitter),
			Instagram: nullable(c.SocialLinks.Instagram),
			YouTube:   nullable(c.SocialLinks.YouTube),
			Discord:   nullable(c.SocialLinks.Discord),
			TikTok:    nullable(c.SocialLinks.TikTok),
		},
		LastUpdated: c.LastUpdated,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Metadata describes a JSON export
type Metadata struct {
	GeneratedAt    time.Time     `json:"generated_at"`
	TotalResults   int           `json:"total_results"`
	SearchCriteria *CriteriaInfo `json:"search_criteria,omitempty"`
}

// CriteriaInfo is the search that produced an export
type CriteriaInfo struct {
	Game           string `json:"game"`
	GameID         string `json:"game_id"`
	MinViewers     int    `json:"min_viewers"`
	MaxViewers     *int   `json:"max_viewers"`
	Language       string `json:"language"`
	IncludeOffline bool   `json:"include_offline"`
	Limit          int    `json:"limit"`
}

func (e *Exporter) document(creators []*models.Creator, criteria *models.SearchCriteria) Document {
	records := make([]Record, 0, len(creators))
	for _, c := range creators {
		records = append(records, NewRecord(c))
	}
	doc := Document{
		Metadata: Metadata{
			GeneratedAt:  e.clock.Now().UTC(),
			TotalResults: len(records),
		},
		Streamers: records,
	}

	if criteria != nil {
		p := criteria.Params()
		doc.Metadata.SearchCriteria = &CriteriaInfo{
			Game:           p.GameName,
			GameID:         p.GameID,
			MinViewers:     p.MinViewers,
			MaxViewers:     p.MaxViewers,
			Language:       p.Language,
			IncludeOffline: p.IncludeOffline,
			Limit:          p.Limit,
		}
	}
	return doc
}

// WriteJSON writes doc indented, without HTML escaping
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// writeAtomic writes through a temporary file in the target directory and
// renames it over path once everything is on disk.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set export permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
