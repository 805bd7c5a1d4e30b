package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pfrederiksen/vietnam-holidays/internal/config"
	"github.com/pfrederiksen/vietnam-holidays/internal/feed"
	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
	"github.com/pfrederiksen/vietnam-holidays/internal/logger"
	"github.com/pfrederiksen/vietnam-holidays/internal/scheduler"
	"github.com/pfrederiksen/vietnam-holidays/internal/scraper"
	"github.com/pfrederiksen/vietnam-holidays/internal/server"
	"github.com/pfrederiksen/vietnam-holidays/internal/site"
	"github.com/pfrederiksen/vietnam-holidays/internal/storage"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

const (
	scheduledRefreshTimeout = 5 * time.Minute
	shutdownTimeout         = 10 * time.Second
	indexFile               = "index.html"
)

// options is the state shared by the commands of one root command
type options struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
	now func() time.Time
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{now: time.Now})
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vietnam-holidays",
		Short: "Publish Vietnam public holidays as an iCal feed",
		Long: `Scrapes the Chinese-language Vietnam holiday listings on holidays-calendar.net
and publishes them as an all-day iCalendar subscription feed.

Use "generate" for a static site build or "serve" for a self-refreshing feed server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default ./"+config.DefaultConfigFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: json or text")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newServeCmd(opts),
		newListCmd(opts),
		newParseCmd(opts),
	)

	return cmd
}

// setup loads the config, applies flag overrides and installs the logger
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	format := logger.Format(strings.ToLower(cfg.Log.Format))
	logger.SetDefault(logger.NewWithFormat(logger.ParseLevel(cfg.Log.Level), cmd.ErrOrStderr(), format))

	o.cfg = cfg
	return nil
}

func (o *options) location() *time.Location {
	// Validated by config.Load
	loc, err := o.cfg.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}

func (o *options) newScraper() *scraper.Scraper {
	return scraper.New(
		scraper.WithUserAgent(o.cfg.Scraper.UserAgent),
		scraper.WithAcceptLanguage(o.cfg.Scraper.AcceptLanguage),
		scraper.WithTimeout(o.cfg.Scraper.Timeout),
	)
}

func (o *options) newRefresher(opts ...feed.Option) *feed.Refresher {
	opts = append([]feed.Option{feed.WithLocation(o.location())}, opts...)
	r := feed.NewRefresher(o.newScraper(), o.cfg.Sources, o.cfg.Calendar, &feed.Cache{}, opts...)
	r.Now = o.now
	return r
}

func newGenerateCmd(opts *options) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the feed, landing page and snapshot to a directory",
		Long: `Fetches every source page once and writes the iCal feed, index.html and
holidays.json to the output directory. Exits with status 1 when no holiday
could be read from any page; existing files are then left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runGenerate(cmd, outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory (default from config)")

	return cmd
}

func (o *options) runGenerate(cmd *cobra.Command, outputDir string) error {
	if outputDir == "" {
		outputDir = o.cfg.Output.Dir
	}

	store, err := storage.New(outputDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	snap, err := o.newRefresher(feed.WithStorage(store)).Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("generating feed: %w", err)
	}

	if err := store.WriteFile(o.cfg.Output.FeedFile, snap.ICS); err != nil {
		return fmt.Errorf("writing feed: %w", err)
	}

	page := site.NewPage(o.cfg.Calendar, o.cfg.Output.FeedFile)
	page.Count = len(snap.Records)
	page.Years = snap.Years
	page.UpdatedAt = snap.UpdatedAt

	html, err := site.Render(page)
	if err != nil {
		return err
	}
	if err := store.WriteFile(indexFile, html); err != nil {
		return fmt.Errorf("writing landing page: %w", err)
	}

	logger.Info("Static feed written", logger.Fields{
		"dir":     store.Dir(),
		"feed":    o.cfg.Output.FeedFile,
		"records": len(snap.Records),
	})
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d holidays (%s) in %s\n", len(snap.Records), joinYears(snap.Years), store.Dir())

	return nil
}

func newServeCmd(opts *options) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the feed over HTTP and refresh it on a schedule",
		Long: `Starts the HTTP feed server. The feed is built once at startup and then on
the configured cron schedule, evaluated in the calendar timezone. A refresh
that finds nothing keeps serving the previous feed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				opts.cfg.Server.Port = port
				if err := opts.cfg.Validate(); err != nil {
					return err
				}
			}
			return opts.runServe(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Listen port (overrides config and PORT)")

	return cmd
}

func (o *options) runServe(ctx context.Context) error {
	var feedOpts []feed.Option
	if o.cfg.Server.DataDir != "" {
		store, err := storage.New(o.cfg.Server.DataDir)
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}
		feedOpts = append(feedOpts, feed.WithStorage(store))
	}
	refresher := o.newRefresher(feedOpts...)

	if _, err := refresher.Warm(); err != nil {
		logger.Warn("Could not restore saved feed", logger.Fields{"dir": o.cfg.Server.DataDir}, err)
	}

	srvCfg := server.DefaultConfig()
	srvCfg.FeedPath = o.cfg.Server.FeedPath
	srvCfg.Meta = o.cfg.Calendar
	srv := server.New(srvCfg, refresher)

	sched, err := scheduler.New(o.cfg.Server.Schedule, o.location(), scheduledRefreshTimeout, refresher.Run)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(":" + strconv.Itoa(o.cfg.Server.Port))
	}()

	// First build right away; the feed answers 503 until it lands
	go refresher.Run(ctx)
	sched.Start()

	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr != nil {
			serveErr = fmt.Errorf("HTTP server: %w", serveErr)
		}
	case <-ctx.Done():
		logger.Info("Shutting down", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler did not stop cleanly", nil, err)
	}
	if serveErr != nil {
		return serveErr
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}

func newListCmd(opts *options) *cobra.Command {
	var (
		format  string
		sortBy  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch the source pages and print the holidays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runList(cmd, format, sortBy, verbose)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&sortBy, "sort", string(SortBySource), "Sort order: source, date or name")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show date text, note and source of each holiday")

	return cmd
}

func (o *options) runList(cmd *cobra.Command, format, sortBy string, verbose bool) error {
	outFormat, err := parseFormat(format)
	if err != nil {
		return err
	}
	order, err := ParseSortOrder(sortBy)
	if err != nil {
		return err
	}

	now := o.now()
	result := holiday.NewBuilder(o.newScraper(), now.In(o.location()).Year()).Build(cmd.Context(), o.cfg.Sources)
	sortRecords(result.Records, order)

	out := &OutputResult{
		CheckedAt:   now.UTC(),
		Pages:       result.Pages,
		Records:     result.Records,
		RecordCount: len(result.Records),
	}
	if err := WriteOutput(cmd.OutOrStdout(), out, outFormat, verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return result.Err()
}

// ParseResult is the JSON output of the parse command.
type ParseResult struct {
	Text    string           `json:"text"`
	Year    int              `json:"year"`
	IsRange bool             `json:"is_range"`
	Start   string           `json:"start"`
	End     string           `json:"end"` // exclusive
	Days    int              `json:"days"`
	Parsed  holiday.DayRange `json:"parsed"`
}

func newParseCmd(opts *options) *cobra.Command {
	var (
		year   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "parse <date-text>",
		Short: "Resolve one date text, e.g. \"2月14日–2月22日\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runParse(cmd, args[0], year, format)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Year to resolve in (default current year in the calendar timezone)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}

func (o *options) runParse(cmd *cobra.Command, text string, year int, format string) error {
	outFormat, err := parseFormat(format)
	if err != nil {
		return err
	}
	if year <= 0 {
		year = o.now().In(o.location()).Year()
	}

	dr, ok := holiday.ParseDayRange(text)
	if !ok {
		return fmt.Errorf("no date found in %q", text)
	}
	span := dr.Span(year)

	res := ParseResult{
		Text:    text,
		Year:    year,
		IsRange: dr.IsRange,
		Start:   span.Start.Format("2006-01-02"),
		End:     span.End.Format("2006-01-02"),
		Days:    holiday.Record{Start: span.Start, End: span.End}.Days(),
		Parsed:  dr,
	}

	w := cmd.OutOrStdout()
	if outFormat == FormatJSON {
		return writeJSON(w, res)
	}

	fmt.Fprintf(w, "start: %s\n", res.Start)
	fmt.Fprintf(w, "end:   %s (exclusive)\n", res.End)
	fmt.Fprintf(w, "days:  %d\n", res.Days)
	if !span.End.After(span.Start) {
		fmt.Fprintln(w, "warning: range ends before it starts")
	}
	return nil
}

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(s))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, holiday.ErrNoRecords) {
			fmt.Fprintln(os.Stderr, "No holidays could be read from any source page.")
		}
		os.Exit(ExitError)
	}
}
