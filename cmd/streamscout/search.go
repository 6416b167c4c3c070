package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"streamscout/pkg/config"
	errs "streamscout/pkg/errors"
	"streamscout/pkg/logger"
	"streamscout/pkg/models"
	"streamscout/pkg/scraper"
	"streamscout/pkg/storage"
	"streamscout/pkg/ui"
	"streamscout/pkg/ui/tui"
)

// searchOptions holds the search command flags
type searchOptions struct {
	game           string
	gameID         string
	minViewers     int
	maxViewers     int
	language       string
	includeOffline bool
	liveOnly       bool
	limit          int
	output         string
	format         string
	seed           int64
	workers        int
	metricsAddr    string
	useTUI         bool
	notify         bool
}

var searchOpts searchOptions

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find creators and export their contact details",
	Long: `Search live streams and channels for creators matching a game, a broadcast
language and a viewer range, then fetch their profiles and extract emails and
social links from the biographies.

Live streams are collected first. When offline channels are included and the
limit has not been reached, a channel search fills the remainder. Press Ctrl-C
to stop early; creators found so far are still exported.`,
	Example: `  # German Just Chatting streamers with 50 to 500 viewers
  streamscout search -g "Just Chatting" -m 50 -M 500

  # Live channels only, any language, as JSON
  streamscout search -g Minecraft -l "" --live-only -f json -o minecraft.json

  # Reproducible backoff and a metrics endpoint
  streamscout search -g Valorant --seed 42 --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	f := searchCmd.Flags()
	f.StringVarP(&searchOpts.game, "game", "g", "", "game or category name")
	f.StringVar(&searchOpts.gameID, "game-id", "", "game id (skips name resolution)")
	f.IntVarP(&searchOpts.minViewers, "min-viewers", "m", 0, "minimum viewer count for live streams")
	f.IntVarP(&searchOpts.maxViewers, "max-viewers", "M", 0, "maximum viewer count for live streams")
	f.StringVarP(&searchOpts.language, "language", "l", "", "broadcast language, empty for any (default from config, \"de\")")
	f.BoolVar(&searchOpts.includeOffline, "include-offline", true, "also search offline channels")
	f.BoolVar(&searchOpts.liveOnly, "live-only", false, "only collect live streams")
	f.IntVarP(&searchOpts.limit, "limit", "n", 0, "maximum number of creators (default from config, 100)")
	f.StringVarP(&searchOpts.output, "output", "o", "", "output file (default streamers.<format>)")
	f.StringVarP(&searchOpts.format, "format", "f", "", "output format: csv or json")
	f.Int64Var(&searchOpts.seed, "seed", 0, "seed for backoff jitter, 0 for random")
	f.IntVar(&searchOpts.workers, "workers", 0, "concurrent profile lookups (default from config, 1)")
	f.StringVar(&searchOpts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	f.BoolVar(&searchOpts.useTUI, "tui", false, "show an interactive dashboard")
	f.BoolVar(&searchOpts.notify, "notify", false, "send a desktop notification when the search ends")

	searchCmd.MarkFlagsMutuallyExclusive("include-offline", "live-only")
}

func (o searchOptions) configFlags() map[string]interface{} {
	flags := credentialFlags()
	if o.output != "" {
		flags["output"] = o.output
	}
	if o.format != "" {
		flags["format"] = o.format
	}
	if o.seed != 0 {
		flags["seed"] = o.seed
	}
	if o.workers > 0 {
		flags["workers"] = o.workers
	}
	if o.metricsAddr != "" {
		flags["metrics-addr"] = o.metricsAddr
	}
	return flags
}

// criteria merges config defaults with the flags that were set
func (o searchOptions) criteria(cfg *config.Config, changed func(string) bool) (models.SearchCriteria, error) {
	p := models.DefaultCriteriaParams()
	p.Language = cfg.Search.Language
	p.IncludeOffline = cfg.Search.IncludeOffline
	p.Limit = cfg.Search.Limit

	p.GameName = o.game
	p.GameID = o.gameID
	p.MinViewers = o.minViewers
	if changed("max-viewers") {
		m := o.maxViewers
		p.MaxViewers = &m
	}
	if changed("language") {
		p.Language = o.language
	}
	if changed("include-offline") {
		p.IncludeOffline = o.includeOffline
	}
	if o.liveOnly {
		p.IncludeOffline = false
	}
	if changed("limit") {
		p.Limit = o.limit
	}

	return models.NewSearchCriteria(p)
}

// exportPath keeps the file extension in line with the format unless the
// path was chosen explicitly.
func exportPath(cfg *config.Config, explicit bool) string {
	path := cfg.Output.File
	if explicit || path == "" {
		return path
	}
	ext := "." + strings.ToLower(cfg.Output.Format)
	if strings.EqualFold(filepath.Ext(path), ext) {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func runSearch(cmd *cobra.Command, args []string) error {
	opts := searchOpts
	changed := cmd.Flags().Changed

	cfg, err := loadConfig(opts.configFlags(), true)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	criteria, err := opts.criteria(cfg, changed)
	if err != nil {
		return err
	}
	exportCfg, err := models.NewExportConfig(cfg.Output.Format, exportPath(cfg, changed("output")))
	if err != nil {
		return err
	}
	if err := resolveCredentials(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Metrics.ListenAddr != "" {
		shutdown := serveMetrics(cfg.Metrics.ListenAddr, log)
		defer shutdown()
	}

	var reporter ui.Reporter
	if opts.useTUI {
		dash := tui.NewTUI(tui.NewModel(describeCriteria(criteria), criteria.Limit(), nil, cancel))
		dash.Start()
		reporter = dash
	} else {
		ui.PrintInfo("Search", describeCriteria(criteria))
		reporter = ui.NewProgressDisplay(cmd.OutOrStdout(), criteria.Limit(), verbose)
	}

	client := newHelixClient(cfg)
	defer client.Close()

	s := scraper.New(client,
		scraper.WithPageSize(cfg.Search.PageSize),
		scraper.WithEnrichWorkers(cfg.Search.EnrichWorkers),
		scraper.WithLogger(log),
		scraper.WithProgress(reporter.Progress),
	)

	res, runErr := s.Collect(ctx, criteria)
	reporter.Finish(runErr)
	if res == nil {
		return runErr
	}
	if len(res.Creators) == 0 {
		ui.PrintWarning("No creators found matching criteria")
		if opts.notify {
			ui.NewNotifier().RunFinished(res.Progress, "", runErr)
		}
		return runErr
	}

	exporter := storage.NewExporter(storage.WithLogger(log))
	if err := exporter.Export(exportCfg, res.Creators, &res.Criteria); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout())
	renderSummary(cmd.OutOrStdout(), summarize(res))
	ui.PrintSuccess(fmt.Sprintf("Saved %d creators to %s", len(res.Creators), exportCfg.Path))

	if opts.notify {
		ui.NewNotifier().RunFinished(res.Progress, exportCfg.Path, runErr)
	}

	if runErr != nil {
		ui.PrintWarning("Search interrupted, results are partial")
	}
	return runErr
}

// describeCriteria renders criteria as a one-line title
func describeCriteria(c models.SearchCriteria) string {
	var parts []string
	switch {
	case c.GameName() != "":
		parts = append(parts, c.GameName())
	case c.GameID() != "":
		parts = append(parts, "game "+c.GameID())
	default:
		parts = append(parts, "all games")
	}

	if c.Language() != "" {
		parts = append(parts, c.Language())
	} else {
		parts = append(parts, "any language")
	}

	if m, ok := c.MaxViewers(); ok {
		parts = append(parts, fmt.Sprintf("%d-%d viewers", c.MinViewers(), m))
	} else if c.MinViewers() > 0 {
		parts = append(parts, fmt.Sprintf("%d+ viewers", c.MinViewers()))
	}

	if !c.IncludeOffline() {
		parts = append(parts, "live only")
	}
	parts = append(parts, fmt.Sprintf("limit %d", c.Limit()))

	return strings.Join(parts, " • ")
}

// runSummary is what the closing table shows
type runSummary struct {
	Total      int
	Live       int
	Offline    int
	WithEmail  int
	WithSocial int
	Errors     int
	Duration   time.Duration
}

func summarize(res *scraper.Result) runSummary {
	sum := runSummary{
		Total:    len(res.Creators),
		Errors:   res.Progress.Errors,
		Duration: res.FinishedAt.Sub(res.StartedAt),
	}
	for _, c := range res.Creators {
		if c.IsLive {
			sum.Live++
		} else {
			sum.Offline++
		}
		if len(c.Emails) > 0 {
			sum.WithEmail++
		}
		if !c.SocialLinks.Empty() {
			sum.WithSocial++
		}
	}
	return sum
}

func renderSummary(w io.Writer, sum runSummary) {
	t := newTable(w)
	t.SetTitle("Summary")
	t.AppendRows([]table.Row{
		{"Creators", sum.Total},
		{"Live", sum.Live},
		{"Offline", sum.Offline},
		{"With email", sum.WithEmail},
		{"With social links", sum.WithSocial},
		{"Failed requests", sum.Errors},
		{"Duration", sum.Duration.Round(time.Second)},
	})
	t.Render()
}

// serveMetrics exposes the default Prometheus registry on addr. The returned
// func stops the listener.
func serveMetrics(addr string, log logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("addr", addr).Error("Metrics listener failed")
		}
	}()
	log.WithField("addr", addr).Info("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// isInterrupted reports a run stopped by the user
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) && !errs.IsFatal(err)
}
