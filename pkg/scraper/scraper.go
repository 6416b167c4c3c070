package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"streamscout/internal/batch"
	"streamscout/internal/metrics"
	errs "streamscout/pkg/errors"
	"streamscout/pkg/extract"
	"streamscout/pkg/helix"
	"streamscout/pkg/logger"
	"streamscout/pkg/models"
)

// OfflineFallbackQuery is the channel search term used when the criteria
// name no game.
const OfflineFallbackQuery = "streamer"

// Scraper collects creators matching a SearchCriteria. A Scraper may be
// reused for several runs but must not run two collections at once.
type Scraper struct {
	api        HelixAPI
	workers    int
	pool       *batch.Pool
	pageSize   int
	clock      clockwork.Clock
	logger     logger.Logger
	onProgress ProgressFunc
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithPageSize sets the `first` parameter for both sweeps.
func WithPageSize(n int) Option {
	return func(s *Scraper) { s.pageSize = n }
}

// WithEnrichWorkers bounds concurrent profile lookups. All lookups still
// share the client's rate gate and token store.
func WithEnrichWorkers(n int) Option {
	return func(s *Scraper) { s.workers = n }
}

// WithClock sets the clock used for LastUpdated stamps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scraper) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithProgress registers a progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scraper) { s.onProgress = fn }
}

// New creates a Scraper over api.
func New(api HelixAPI, opts ...Option) *Scraper {
	s := &Scraper{
		api:      api,
		workers:  1,
		pageSize: helix.MaxPageSize,
		clock:    clockwork.NewRealClock(),
		logger:   logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = batch.NewPool(s.workers, s.logger)
	s.pageSize = min(max(s.pageSize, 1), helix.MaxPageSize)
	return s
}

// Result is what a run accumulated.
type Result struct {
	RunID      string
	Criteria   models.SearchCriteria
	Creators   []*models.Creator
	Progress   models.CollectionProgress
	StartedAt  time.Time
	FinishedAt time.Time
}

// run is the mutable state of one collection.
type run struct {
	s        *Scraper
	criteria models.SearchCriteria
	log      logger.Logger

	byID     map[string]*models.Creator
	order    []*models.Creator
	progress models.CollectionProgress
}

// Collect runs every phase and returns the accumulated creators in the order
// they were first seen.
//
// Auth and validation failures return a nil Result. When ctx ends the run
// stops where it is and returns the partial Result together with ctx's error.
func (s *Scraper) Collect(ctx context.Context, criteria models.SearchCriteria) (*Result, error) {
	if !criteria.Valid() {
		return nil, errs.NewValidationError("search criteria must be built with NewSearchCriteria", nil)
	}

	runID := uuid.NewString()
	r := &run{
		s:        s,
		criteria: criteria,
		log:      s.logger.WithField("run_id", runID),
		byID:     make(map[string]*models.Creator),
	}
	res := &Result{RunID: runID, Criteria: criteria, StartedAt: s.clock.Now()}

	r.progress.TotalExpected = criteria.Limit()
	r.setPhase(models.PhaseIdle)

	resolved, err := s.resolveGame(ctx, criteria)
	if err != nil {
		if isCancellation(err) {
			return r.fill(res), err
		}
		return nil, err
	}
	r.criteria = resolved
	res.Criteria = resolved

	for _, phase := range []func(context.Context) error{r.liveSweep, r.offlineSweep, r.enrich} {
		if err := phase(ctx); err != nil {
			if isCancellation(err) {
				r.log.WithField("phase", r.progress.Phase).Warn("Collection cancelled, returning partial results")
				return r.fill(res), err
			}
			return nil, err
		}
	}

	r.setPhase(models.PhaseComplete)
	r.log.InfoWithFields("Collection finished", map[string]interface{}{
		"creators":      len(r.order),
		"live_found":    r.progress.LiveFound,
		"offline_found": r.progress.OfflineFound,
		"errors":        r.progress.Errors,
	})
	return r.fill(res), nil
}

// resolveGame fills in the game id for a name-only criteria. The first match
// is authoritative.
func (s *Scraper) resolveGame(ctx context.Context, c models.SearchCriteria) (models.SearchCriteria, error) {
	if c.GameName() == "" || c.GameID() != "" {
		return c, nil
	}

	game, err := s.api.FindGame(ctx, c.GameName())
	if err != nil {
		return c, fmt.Errorf("resolve game %q: %w", c.GameName(), err)
	}
	s.logger.DebugWithFields("Resolved game", map[string]interface{}{
		"name": game.Name,
		"id":   game.ID,
	})
	return c.WithGame(game.ID, game.Name), nil
}

func (r *run) liveSweep(ctx context.Context) error {
	r.setPhase(models.PhaseLiveSweep)
	limit := r.criteria.Limit()

	pager := r.s.api.Streams(helix.StreamsQuery{
		GameID:   r.criteria.GameID(),
		Language: r.criteria.Language(),
		First:    min(r.s.pageSize, limit),
	})

	for len(r.order) < limit {
		page, err := pager.Next(ctx)
		if errors.Is(err, helix.Done) {
			break
		}
		if err != nil {
			return r.phaseFailed(err)
		}

		for _, st := range page.Data {
			if !r.criteria.InViewerRange(st.ViewerCount) {
				continue
			}
			if !r.add(r.fromStream(st)) {
				continue
			}
			r.progress.LiveFound++
			if len(r.order) >= limit {
				break
			}
		}
		r.emit()
	}
	return nil
}

func (r *run) offlineSweep(ctx context.Context) error {
	limit := r.criteria.Limit()
	if !r.criteria.IncludeOffline() || len(r.order) >= limit {
		return nil
	}
	r.setPhase(models.PhaseOfflineSweep)

	query := r.criteria.GameName()
	if query == "" {
		query = r.criteria.GameID()
	}
	if query == "" {
		query = OfflineFallbackQuery
	}

	pager := r.s.api.SearchChannels(helix.SearchChannelsQuery{
		Query:    query,
		LiveOnly: false,
		First:    min(r.s.pageSize, limit-len(r.order)),
	})

	for len(r.order) < limit {
		page, err := pager.Next(ctx)
		if errors.Is(err, helix.Done) {
			break
		}
		if err != nil {
			return r.phaseFailed(err)
		}

		for _, ch := range page.Data {
			if ch.IsLive || !r.criteria.MatchesLanguage(ch.BroadcasterLanguage) {
				continue
			}
			if !r.add(r.fromChannel(ch)) {
				continue
			}
			r.progress.OfflineFound++
			if len(r.order) >= limit {
				break
			}
		}
		r.emit()
	}
	return nil
}

func (r *run) enrich(ctx context.Context) error {
	r.setPhase(models.PhaseEnrichment)
	r.progress.TotalExpected = len(r.order)
	if len(r.order) == 0 {
		return nil
	}

	ids := make([]string, len(r.order))
	for i, c := range r.order {
		ids[i] = c.ID
	}

	chunks := batch.Chunk(ids, helix.MaxIDsPerLookup)
	results := batch.Run(ctx, r.s.pool, chunks, func(ctx context.Context, ids []string) ([]helix.User, error) {
		return r.s.api.Users(ctx, ids)
	})

	for _, res := range results {
		start := res.Index * helix.MaxIDsPerLookup
		creators := r.order[start : start+res.Size]

		if res.Err != nil {
			if err := r.phaseFailed(res.Err); err != nil {
				return err
			}
			r.progress.Processed += res.Size
			r.emit()
			continue
		}

		users := make(map[string]helix.User, len(res.Value))
		for _, u := range res.Value {
			users[u.ID] = u
		}
		for _, c := range creators {
			if u, ok := users[c.ID]; ok {
				applyProfile(c, u)
			}
			r.progress.Processed++
		}
		r.emit()
	}
	return nil
}

// applyProfile copies profile fields and the contacts found in the biography.
func applyProfile(c *models.Creator, u helix.User) {
	c.Description = u.Description
	c.BroadcasterType = u.BroadcasterType

	contacts := extract.Extract(u.Description)
	c.Emails = contacts.Emails
	c.SocialLinks = contacts.Links
}

func (r *run) fromStream(st helix.Stream) *models.Creator {
	viewers := st.ViewerCount
	return &models.Creator{
		ID:          st.UserID,
		Login:       st.UserLogin,
		DisplayName: st.UserName,
		IsLive:      true,
		ViewerCount: &viewers,
		GameName:    st.GameName,
		Language:    st.Language,
		Emails:      []string{},
		SocialLinks: models.SocialLinks{Other: []string{}},
		LastUpdated: r.s.clock.Now().UTC(),
	}
}

func (r *run) fromChannel(ch helix.Channel) *models.Creator {
	return &models.Creator{
		ID:          ch.ID,
		Login:       ch.BroadcasterLogin,
		DisplayName: ch.DisplayName,
		GameName:    ch.GameName,
		Language:    ch.BroadcasterLanguage,
		Emails:      []string{},
		SocialLinks: models.SocialLinks{Other: []string{}},
		LastUpdated: r.s.clock.Now().UTC(),
	}
}

// add records c unless its identity is already present.
func (r *run) add(c *models.Creator) bool {
	if c.ID == "" {
		return false
	}
	if _, dup := r.byID[c.ID]; dup {
		return false
	}
	r.byID[c.ID] = c
	r.order = append(r.order, c)
	metrics.CollectionCreatorsTotal.WithLabelValues(string(r.progress.Phase)).Inc()
	return true
}

// phaseFailed decides whether err ends the run. Recoverable failures are
// counted and swallowed so the caller moves on to the next phase.
func (r *run) phaseFailed(err error) error {
	if isCancellation(err) || errs.IsFatal(err) {
		return err
	}

	r.progress.Errors++
	metrics.CollectionPhaseErrorsTotal.WithLabelValues(string(r.progress.Phase)).Inc()
	r.log.WithError(err).WithField("phase", r.progress.Phase).Warn("Phase truncated")
	r.emit()
	return nil
}

func (r *run) setPhase(p models.Phase) {
	r.progress.Phase = p
	logger.LogPhase(r.log, string(p), map[string]interface{}{
		"collected": len(r.order),
		"errors":    r.progress.Errors,
	})
	r.emit()
}

func (r *run) emit() {
	if r.s.onProgress != nil {
		r.s.onProgress(r.progress)
	}
}

func (r *run) fill(res *Result) *Result {
	res.Creators = r.order
	res.Progress = r.progress
	res.FinishedAt = r.s.clock.Now()
	if res.Creators == nil {
		res.Creators = []*models.Creator{}
	}
	return res
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
