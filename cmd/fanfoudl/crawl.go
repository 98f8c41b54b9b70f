package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fanfoudl/pkg/auth"
	"fanfoudl/pkg/config"
	"fanfoudl/pkg/crawler"
	"fanfoudl/pkg/logger"
	"fanfoudl/pkg/ui"
)

var (
	// Crawl command flags
	fromPage      int
	toPage        int
	rawCookie     string
	accountName   string
	outputDir     string
	logDir        string
	pagePause     time.Duration
	downloadPause time.Duration
	fetchTimeout  time.Duration
	maxAttempts   int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [album-url]",
	Short: "Download the photos on a range of album pages",
	Long: `Download every photo on pages --from..--to of an album.

The album URL must start with the configured album prefix
(https://fanfou.com/album/ by default). Anything not given on the command
line is asked for interactively. The cookie is taken, in order, from
--cookie, the stored account named by --account, FANFOUDL_COOKIE, the most
recently saved account, and finally a hidden prompt.

A page that cannot be fetched aborts the crawl with exit status 1; photos
already saved are kept and skipped on the next run.`,
	Example: `  # Fully interactive
  fanfoudl crawl

  # Pages 1 to 5 using a saved session
  fanfoudl crawl https://fanfou.com/album/alice --from 1 --to 5 --account alice

  # Slower pacing into a separate directory
  fanfoudl crawl https://fanfou.com/album/alice --from 1 --to 20 --page-pause 10s -o ./photos`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().IntVar(&fromPage, "from", 0, "first page to download (1-based)")
	crawlCmd.Flags().IntVar(&toPage, "to", 0, "last page to download, inclusive")
	crawlCmd.Flags().StringVar(&rawCookie, "cookie", "", "raw Cookie header from a signed-in browser")
	crawlCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a cookie saved with 'fanfoudl auth save'")
	crawlCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for downloaded photos")
	crawlCmd.Flags().StringVar(&logDir, "log-dir", "", "directory for <owner>.log run logs")
	crawlCmd.Flags().DurationVar(&pagePause, "page-pause", 0, "upper bound of the random pause after each page")
	crawlCmd.Flags().DurationVar(&downloadPause, "download-pause", 0, "upper bound of the random pause after each photo")
	crawlCmd.Flags().DurationVar(&fetchTimeout, "timeout", 0, "timeout of a single request")
	crawlCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "attempts per request for transient failures")
}

func crawlFlags(cmd *cobra.Command) map[string]interface{} {
	flags := globalFlags(cmd)
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if logDir != "" {
		flags["log-dir"] = logDir
	}
	if cmd.Flags().Changed("page-pause") {
		flags["page-pause"] = pagePause
	}
	if cmd.Flags().Changed("download-pause") {
		flags["download-pause"] = downloadPause
	}
	if fetchTimeout > 0 {
		flags["timeout"] = fetchTimeout
	}
	if maxAttempts > 0 {
		flags["max-attempts"] = maxAttempts
	}
	return flags
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, crawlFlags(cmd))
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}

	p := newPrompter(os.Stdin, cmd.OutOrStdout())

	albumURL := ""
	if len(args) > 0 {
		albumURL = strings.TrimSpace(args[0])
	}
	if albumURL == "" {
		if albumURL, err = p.albumURL(cfg.Site.AlbumPrefix); err != nil {
			return err
		}
	}

	from, to := fromPage, toPage
	if !cmd.Flags().Changed("from") || !cmd.Flags().Changed("to") {
		if from, to, err = p.pageRange(); err != nil {
			return err
		}
	}

	cookieHeader, err := resolveCookie(p)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []crawler.Option{crawler.WithConsole(cmd.OutOrStdout())}
	if cfg.Notifications.Enabled {
		opts = append(opts, crawler.WithNotifier(ui.NewNotifier()))
	}

	logger.WithFields(map[string]interface{}{
		"album": albumURL,
		"from":  from,
		"to":    to,
	}).Info("Starting crawl")

	summary, err := crawler.New(cfg, opts...).Run(ctx, crawler.Params{
		AlbumURL: albumURL,
		Cookie:   cookieHeader,
		From:     from,
		To:       to,
	})
	if summary != nil {
		printSummary(summary)
	}
	return err
}

// resolveCookie picks the session from flags, stored accounts or a prompt
func resolveCookie(p *prompter) (string, error) {
	if rawCookie != "" {
		return rawCookie, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		logger.WithError(err).Warn("Credential store unavailable")
	}

	if accountName != "" {
		if manager == nil {
			return "", fmt.Errorf("cannot read account %q: %w", accountName, err)
		}
		account, err := manager.Retrieve(accountName)
		if err != nil {
			return "", fmt.Errorf("%w (see 'fanfoudl auth list')", err)
		}
		ui.PrintInfo("Using account", account.Name)
		return account.Cookie, nil
	}

	if manager != nil {
		if account, err := manager.RetrieveDefault(); err == nil {
			ui.PrintInfo("Using account", account.Name)
			return account.Cookie, nil
		}
	}

	return p.cookie()
}

func printSummary(s *crawler.Summary) {
	fmt.Fprintln(ui.Out)
	if s.Album.Owner != "" {
		ui.PrintInfo("Album", fmt.Sprintf("%s (%s)", s.Album.Owner, s.Album.URL))
	}
	ui.PrintInfo("Result", s.Tally.String())
	if s.PhotoDir != "" {
		ui.PrintInfo("Photos", fmt.Sprintf("%s (%d files)", s.PhotoDir, s.Stored))
	}
	if s.LogPath != "" {
		ui.PrintInfo("Run log", s.LogPath)
	}
	ui.PrintInfo("Elapsed", s.Duration().Round(time.Second).String())

	switch s.State {
	case crawler.Done:
		ui.PrintSuccess("Crawl finished")
	case crawler.Aborted:
		ui.PrintWarning(fmt.Sprintf("Crawl aborted after page %d; run again to continue", s.LastPage))
	}
}
