package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanfoudl/pkg/config"
	errs "fanfoudl/pkg/errors"
	"fanfoudl/pkg/logger"
	"fanfoudl/pkg/ratelimit"
)

// fakeSite serves an album owned by alice. Album pages require the session cookie.
type fakeSite struct {
	*httptest.Server

	mu     sync.Mutex
	hits   map[string]int
	pages  map[int][]string // page number -> img src values, relative to the server root
	status map[int]int      // page number -> forced status
	photos map[string]string
	marker bool
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	site := &fakeSite{
		hits:   make(map[string]int),
		pages:  make(map[int][]string),
		status: make(map[int]int),
		photos: make(map[string]string),
		marker: true,
	}
	site.Server = httptest.NewServer(http.HandlerFunc(site.serve))
	t.Cleanup(site.Close)
	return site
}

func (s *fakeSite) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	if strings.HasPrefix(r.URL.Path, "/photos/") {
		body, ok := s.photos[strings.TrimPrefix(r.URL.Path, "/photos/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
		return
	}

	if c, err := r.Cookie("u"); err != nil || c.Value != "alice" {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	var page int
	if _, err := fmt.Sscanf(r.URL.Path, "/album/alice/p.%d", &page); err == nil {
		if code, ok := s.status[page]; ok {
			w.WriteHeader(code)
			return
		}
		fmt.Fprint(w, "<html><body><ul>")
		for _, src := range s.pages[page] {
			fmt.Fprintf(w, `<li class="photo"><a href="#"><img src="%s"></a></li>`, src)
		}
		fmt.Fprint(w, "</ul></body></html>")
		return
	}

	if r.URL.Path == "/album/alice" {
		if s.marker {
			fmt.Fprint(w, `<ul><li class="current"><a href="/alice"><img src="/av.jpg" alt="alice"></a></li></ul>`)
		} else {
			fmt.Fprint(w, `<p>please sign in</p>`)
		}
		return
	}
	http.NotFound(w, r)
}

func (s *fakeSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *fakeSite) totalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.hits {
		n += c
	}
	return n
}

type harness struct {
	site        *fakeSite
	cfg         *config.Config
	pacer       *ratelimit.Recorder
	console     *bytes.Buffer
	transitions []State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	site := newFakeSite(t)
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Site.AlbumPrefix = site.URL + "/album/"
	cfg.Site.FetchTimeout = 5 * time.Second
	cfg.Retry.MaxAttempts = 1
	cfg.Output.BaseDirectory = filepath.Join(dir, "photos")
	cfg.Output.LogDirectory = filepath.Join(dir, "logs")

	return &harness{site: site, cfg: cfg, pacer: &ratelimit.Recorder{}, console: &bytes.Buffer{}}
}

func (h *harness) crawler(opts ...Option) *Crawler {
	base := []Option{WithPacer(h.pacer), WithConsole(h.console), WithLogger(logger.NewNop())}
	c := New(h.cfg, append(base, opts...)...)
	c.OnTransition = func(from, to State) { h.transitions = append(h.transitions, to) }
	return c
}

func (h *harness) params(from, to int) Params {
	return Params{AlbumURL: h.site.URL + "/album/alice", Cookie: "u=alice; sid=s3cr3t", From: from, To: to}
}

func (h *harness) photoPath(name string) string {
	return filepath.Join(h.cfg.Output.BaseDirectory, "alice", name)
}

func (h *harness) logContent(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.cfg.Output.LogDirectory, "alice.log"))
	require.NoError(t, err)
	return string(data)
}

func TestRunSinglePage(t *testing.T) {
	h := newHarness(t)
	h.site.pages[1] = []string{"/photos/a.jpg@200w", "/photos/b.jpg"}
	h.site.photos["a.jpg"] = "AAA"
	h.site.photos["b.jpg"] = "BBBB"

	summary, err := h.crawler().Run(context.Background(), h.params(1, 1))
	require.NoError(t, err)

	assert.Equal(t, Done, summary.State)
	assert.Equal(t, "alice", summary.Album.Owner)
	assert.Equal(t, h.site.URL+"/album/alice", summary.Album.URL)
	assert.Equal(t, Tally{Pages: 1, Photos: 2, Saved: 2, Bytes: 7}, summary.Tally)
	assert.Equal(t, 1, summary.LastPage)
	assert.Equal(t, filepath.Dir(h.photoPath("a.jpg")), summary.PhotoDir)
	assert.Equal(t, 2, summary.Stored)

	a, err := os.ReadFile(h.photoPath("a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "AAA", string(a))
	b, err := os.ReadFile(h.photoPath("b.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "BBBB", string(b))

	log := h.logContent(t)
	assert.Equal(t, 2, strings.Count(log, "Downloaded "+h.site.URL+"/photos/"))
	assert.Contains(t, log, "Downloaded page 1 (2 photos)")
	assert.Contains(t, log, "===== begin ")
	assert.Contains(t, log, "===== end ")
	assert.Contains(t, h.console.String(), "Downloaded page 1 (2 photos)")

	assert.Equal(t, []State{FetchingPage, Downloading, Cooling, Done}, h.transitions)
	assert.Equal(t, 2, h.pacer.Count(h.cfg.Crawl.DownloadPause))
	assert.Equal(t, 1, h.pacer.Count(h.cfg.Crawl.PagePause))
	assert.Zero(t, h.site.hitCount("/photos/a.jpg@200w"))
}

func TestRunEmptyRangeMakesNoRequests(t *testing.T) {
	ranges := [][2]int{{5, 2}, {0, 0}, {-3, 0}, {1, 0}}

	for _, rg := range ranges {
		t.Run(fmt.Sprintf("%d..%d", rg[0], rg[1]), func(t *testing.T) {
			h := newHarness(t)

			summary, err := h.crawler().Run(context.Background(), h.params(rg[0], rg[1]))
			require.NoError(t, err)

			assert.Equal(t, Done, summary.State)
			assert.Zero(t, summary.Tally.Pages)
			assert.Zero(t, h.site.totalHits())
			assert.Equal(t, []State{Done}, h.transitions)
			assert.Contains(t, h.console.String(), "0 pages processed")
		})
	}
}

func TestRunFromBelowOneStartsAtPageOne(t *testing.T) {
	h := newHarness(t)
	h.site.pages[1] = []string{}

	summary, err := h.crawler().Run(context.Background(), h.params(-4, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Tally.Pages)
	assert.Equal(t, 1, h.site.hitCount("/album/alice/p.1"))
	assert.Zero(t, h.site.hitCount("/album/alice/p.0"))
	assert.Contains(t, h.logContent(t), "Downloaded page 1 (0 photos)")
}

func TestRunAbortsOnPageFetchFailure(t *testing.T) {
	h := newHarness(t)
	h.site.pages[1] = []string{"/photos/a.jpg"}
	h.site.photos["a.jpg"] = "AAA"
	h.site.status[2] = http.StatusForbidden
	h.site.pages[3] = []string{"/photos/c.jpg"}
	h.site.photos["c.jpg"] = "CCC"

	summary, err := h.crawler().Run(context.Background(), h.params(1, 3))
	require.Error(t, err)

	assert.True(t, errs.IsKind(err, errs.KindFetch))
	assert.Equal(t, http.StatusForbidden, errs.StatusOf(err))

	require.NotNil(t, summary)
	assert.Equal(t, Aborted, summary.State)
	assert.Equal(t, 1, summary.LastPage)
	assert.Equal(t, 1, summary.Tally.Saved)

	assert.FileExists(t, h.photoPath("a.jpg"))
	assert.NoFileExists(t, h.photoPath("c.jpg"))
	assert.Zero(t, h.site.hitCount("/album/alice/p.3"))

	log := h.logContent(t)
	assert.Contains(t, log, "Downloaded page 1 (1 photos)")
	assert.Contains(t, log, "Aborted at page 2")
	assert.Contains(t, log, "===== end ")
	assert.Equal(t, Aborted, h.transitions[len(h.transitions)-1])
}

func TestRunPhotoFailureDoesNotStopPage(t *testing.T) {
	h := newHarness(t)
	h.site.pages[1] = []string{"/photos/missing.jpg", "/photos/b.jpg"}
	h.site.photos["b.jpg"] = "B"

	summary, err := h.crawler().Run(context.Background(), h.params(1, 1))
	require.NoError(t, err)

	assert.Equal(t, Done, summary.State)
	assert.Equal(t, 1, summary.Tally.Failed)
	assert.Equal(t, 1, summary.Tally.Saved)
	assert.NoFileExists(t, h.photoPath("missing.jpg"))
	assert.Contains(t, h.logContent(t), "Failed "+h.site.URL+"/photos/missing.jpg")
}

func TestRerunNeverOverwrites(t *testing.T) {
	h := newHarness(t)
	h.site.pages[1] = []string{"/photos/a.jpg"}
	h.site.photos["a.jpg"] = "FIRST"

	_, err := h.crawler().Run(context.Background(), h.params(1, 1))
	require.NoError(t, err)

	h.site.photos["a.jpg"] = "SECOND"
	summary, err := h.crawler().Run(context.Background(), h.params(1, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Tally.Existing)
	assert.Zero(t, summary.Tally.Saved)
	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 1, h.site.hitCount("/photos/a.jpg"))

	data, _ := os.ReadFile(h.photoPath("a.jpg"))
	assert.Equal(t, "FIRST", string(data))

	log := h.logContent(t)
	assert.Equal(t, 2, strings.Count(log, "===== begin "))
	assert.Contains(t, log, "Already exists "+h.site.URL+"/photos/a.jpg")
}

func TestRunResolutionFailure(t *testing.T) {
	h := newHarness(t)
	h.site.marker = false

	summary, err := h.crawler().Run(context.Background(), h.params(1, 2))

	assert.Nil(t, summary)
	assert.True(t, errs.IsKind(err, errs.KindResolution), "got %v", err)
	assert.Zero(t, h.site.hitCount("/album/alice/p.1"))
	assert.NoFileExists(t, filepath.Join(h.cfg.Output.LogDirectory, "alice.log"))
}

func TestRunExpiredSession(t *testing.T) {
	h := newHarness(t)

	p := h.params(1, 1)
	p.Cookie = "u=mallory"
	_, err := h.crawler().Run(context.Background(), p)

	assert.Equal(t, http.StatusForbidden, errs.StatusOf(err))
}

func TestRunRejectsForeignURL(t *testing.T) {
	h := newHarness(t)

	p := h.params(1, 1)
	p.AlbumURL = "https://example.com/album/alice"
	_, err := h.crawler().Run(context.Background(), p)

	assert.True(t, errs.IsKind(err, errs.KindValidation))
	assert.Zero(t, h.site.totalHits())
}

// cancellingPacer cancels the run the first time a page cool-down starts
type cancellingPacer struct {
	pagePause time.Duration
	cancel    context.CancelFunc
}

func (p *cancellingPacer) Cool(ctx context.Context, max time.Duration) error {
	if max == p.pagePause {
		p.cancel()
	}
	return ctx.Err()
}

func TestRunCancelledWhileCooling(t *testing.T) {
	h := newHarness(t)
	h.site.pages[1] = []string{}
	h.site.pages[2] = []string{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := h.crawler(WithPacer(&cancellingPacer{pagePause: h.cfg.Crawl.PagePause, cancel: cancel}))
	summary, err := c.Run(ctx, h.params(1, 2))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Aborted, summary.State)
	assert.Zero(t, h.site.hitCount("/album/alice/p.2"))
	assert.Contains(t, h.logContent(t), "Aborted at page 1")
}

type recordingNotifier struct {
	successes, errors []string
}

func (n *recordingNotifier) SendSuccess(title, message string) {
	n.successes = append(n.successes, title+": "+message)
}

func (n *recordingNotifier) SendError(title, message string) {
	n.errors = append(n.errors, title+": "+message)
}

func TestRunNotifies(t *testing.T) {
	h := newHarness(t)
	h.site.pages[1] = []string{}
	h.site.status[2] = http.StatusBadGateway

	n := &recordingNotifier{}
	_, err := h.crawler(WithNotifier(n)).Run(context.Background(), h.params(1, 2))
	require.Error(t, err)

	assert.Empty(t, n.successes)
	require.Len(t, n.errors, 1)
	assert.Contains(t, n.errors[0], "Crawl aborted")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fetching_page", FetchingPage.String())
	assert.True(t, Aborted.Terminal())
	assert.False(t, Cooling.Terminal())
}
