package crawler

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"fanfoudl/internal/downloader"
	"fanfoudl/pkg/config"
	"fanfoudl/pkg/cookie"
	"fanfoudl/pkg/fanfou"
	"fanfoudl/pkg/logger"
	"fanfoudl/pkg/ratelimit"
	"fanfoudl/pkg/retry"
	"fanfoudl/pkg/runlog"
	"fanfoudl/pkg/storage"
)

// Params describes one crawl
type Params struct {
	AlbumURL string
	// Cookie is the raw Cookie header copied from a signed-in browser
	Cookie string
	// From and To are inclusive 1-based page numbers. From below 1 is treated as 1.
	From int
	To   int
}

// Notifier is told when a run finishes
type Notifier interface {
	SendSuccess(title, message string)
	SendError(title, message string)
}

// Crawler walks an album page range and downloads every photo on it
type Crawler struct {
	cfg        *config.Config
	logger     logger.Logger
	console    io.Writer
	pacer      ratelimit.Pacer
	notifier   Notifier
	clientOpts []fanfou.ClientOption

	// OnTransition, when set, observes every state change
	OnTransition func(from, to State)
}

// Option configures a Crawler
type Option func(*Crawler)

// WithLogger sets the diagnostic logger
func WithLogger(l logger.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// WithConsole sets the console sink of the run log
func WithConsole(w io.Writer) Option {
	return func(c *Crawler) { c.console = w }
}

// WithPacer replaces the jitter pacer
func WithPacer(p ratelimit.Pacer) Option {
	return func(c *Crawler) { c.pacer = p }
}

// WithNotifier enables completion notifications
func WithNotifier(n Notifier) Option {
	return func(c *Crawler) { c.notifier = n }
}

// WithClientOption passes an option through to the site client
func WithClientOption(opt fanfou.ClientOption) Option {
	return func(c *Crawler) { c.clientOpts = append(c.clientOpts, opt) }
}

// New creates a Crawler from configuration
func New(cfg *config.Config, opts ...Option) *Crawler {
	c := &Crawler{
		cfg:     cfg,
		logger:  logger.GetLogger(),
		console: os.Stdout,
		pacer:   ratelimit.NewJitter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run holds the mutable state of a single Run call
type run struct {
	*Crawler
	state   State
	summary *Summary
	log     *runlog.Log
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.summary.State = to
	r.logger.DebugWithFields("State transition", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
	if r.OnTransition != nil {
		r.OnTransition(from, to)
	}
}

func (r *run) emitf(format string, args ...interface{}) {
	if err := r.log.Emitf(format, args...); err != nil {
		r.logger.WithError(err).Error("Failed to write run log entry")
	}
}

// Run validates the album URL, resolves the album, then fetches pages
// max(From,1)..To in order. An empty range finishes without touching the
// network. A page fetch failure or cancellation aborts the run; photos
// already saved and log lines already written are kept. The Summary is nil
// only when the run failed before the album was resolved.
func (c *Crawler) Run(ctx context.Context, p Params) (*Summary, error) {
	r := &run{Crawler: c, state: Idle, summary: &Summary{State: Idle, Started: time.Now()}}

	if err := fanfou.ValidateAlbumURL(c.cfg.Site.AlbumPrefix, p.AlbumURL); err != nil {
		return nil, err
	}

	cookies, issues := cookie.Parse(p.Cookie)
	for _, issue := range issues {
		c.logger.WithFields(map[string]interface{}{
			"segment": issue.Segment,
			"reason":  issue.Reason,
		}).Warn("Ignoring malformed cookie segment")
	}

	first := p.From
	if first < 1 {
		first = 1
	}
	if p.To < first {
		r.transition(Done)
		r.summary.Finished = time.Now()
		if c.console != nil {
			fmt.Fprintf(c.console, "No pages in range %d..%d; 0 pages processed\n", first, p.To)
		}
		c.logger.WithFields(map[string]interface{}{"from": p.From, "to": p.To}).Info("Empty page range, nothing to crawl")
		return r.summary, nil
	}

	opts := append([]fanfou.ClientOption{fanfou.WithRetry(retry.FromSettings(c.cfg.Retry, c.logger))}, c.clientOpts...)
	client, err := fanfou.NewClient(c.cfg.Site, cookies, c.logger, opts...)
	if err != nil {
		return nil, err
	}

	resolver := fanfou.NewResolver(client, c.cfg.Site.AlbumPrefix, c.cfg.Site.OwnerMarkerClass, c.logger)
	album, err := resolver.Resolve(ctx, p.AlbumURL)
	if err != nil {
		c.logger.WithError(err).WithField("url", p.AlbumURL).Error("Could not resolve album")
		c.notify(false, "Album not resolved", err.Error())
		return nil, err
	}
	r.summary.Album = album

	store, err := storage.NewManager(c.cfg.Output.BaseDirectory)
	if err != nil {
		return nil, err
	}

	log, err := runlog.Open(c.cfg.Output.LogDirectory, album.Owner, c.console)
	if err != nil {
		return nil, err
	}
	defer log.Close()
	r.log = log
	r.summary.LogPath = log.Path()
	r.summary.PhotoDir = store.Dir(album.Owner)

	if err := log.Begin(); err != nil {
		c.logger.WithError(err).Error("Failed to write run log entry")
	}
	defer func() {
		if err := log.End(); err != nil {
			c.logger.WithError(err).Error("Failed to write run log entry")
		}
	}()

	exec := downloader.NewExecutor(client, store, c.pacer, c.cfg.Crawl.DownloadPause, log, c.logger)
	err = r.crawl(ctx, client, exec, album, first, p.To)
	r.summary.Finished = time.Now()
	if n, countErr := store.Count(album.Owner); countErr == nil {
		r.summary.Stored = n
	} else {
		c.logger.WithError(countErr).Warn("Could not count stored photos")
	}

	if err != nil {
		c.notify(false, "Crawl aborted", fmt.Sprintf("%s: %v", album.Owner, err))
		return r.summary, err
	}
	c.notify(true, "Crawl finished", fmt.Sprintf("%s: %s", album.Owner, r.summary.Tally))
	return r.summary, nil
}

func (r *run) crawl(ctx context.Context, fetcher fanfou.Fetcher, exec *downloader.Executor, album fanfou.Album, first, to int) error {
	r.emitf("Album %s (%s), pages %d..%d", album.Owner, album.URL, first, to)

	for page := first; page <= to; page++ {
		r.transition(FetchingPage)
		doc, err := fetcher.Fetch(ctx, album.PageURL(page))
		if err != nil {
			return r.abort(page, err)
		}

		refs := fanfou.ExtractPhotos(doc, r.cfg.Site.PhotoClass)
		r.transition(Downloading)
		for _, ref := range refs {
			result, err := exec.Download(ctx, ref, album.Owner)
			r.summary.Tally.Record(result)
			if err != nil {
				return r.abort(page, err)
			}
		}

		r.summary.Tally.Pages++
		r.summary.LastPage = page
		r.emitf("Downloaded page %d (%d photos)", page, len(refs))

		r.transition(Cooling)
		if err := r.pacer.Cool(ctx, r.cfg.Crawl.PagePause); err != nil {
			return r.abort(page, err)
		}
	}

	r.transition(Done)
	r.emitf("Finished: %s", r.summary.Tally)
	return nil
}

func (r *run) abort(page int, err error) error {
	r.transition(Aborted)
	r.emitf("Aborted at page %d: %v (%s)", page, err, r.summary.Tally)
	r.logger.WithError(err).WithField("page", page).Error("Crawl aborted")
	return fmt.Errorf("page %d: %w", page, err)
}

func (c *Crawler) notify(success bool, title, message string) {
	if c.notifier == nil {
		return
	}
	if success {
		c.notifier.SendSuccess(title, message)
	} else {
		c.notifier.SendError(title, message)
	}
}
