package fanfou

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "fanfoudl/pkg/errors"
	"fanfoudl/pkg/logger"
)

// staticFetcher serves canned HTML keyed by URL
type staticFetcher struct {
	pages map[string]string
	calls []string
}

func (f *staticFetcher) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	f.calls = append(f.calls, pageURL)
	body, ok := f.pages[pageURL]
	if !ok {
		return nil, errs.Fetch(pageURL, 404, nil)
	}
	return NewDocument(strings.NewReader(body), pageURL)
}

const landingPage = `<html><body>
<ul id="navigation">
  <li class="current"><a href="/alice"><img src="/avatar.jpg" alt="Alice" /></a></li>
</ul>
</body></html>`

func TestValidateAlbumURL(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		wantErr   bool
	}{
		{"album root", "https://fanfou.com/album/alice", false},
		{"album page", "https://fanfou.com/album/alice/p.2", false},
		{"prefix only", "https://fanfou.com/album/", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"other site", "https://example.com/album/alice", true},
		{"http scheme", "http://fanfou.com/album/alice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAlbumURL(DefaultAlbumPrefix, tt.candidate)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.IsKind(err, errs.KindValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	fetcher := &staticFetcher{pages: map[string]string{
		"https://fanfou.com/album/alice/p.3": landingPage,
	}}
	r := NewResolver(fetcher, DefaultAlbumPrefix, "current", logger.NewNop())

	album, err := r.Resolve(context.Background(), "https://fanfou.com/album/alice/p.3")
	require.NoError(t, err)

	assert.Equal(t, "Alice", album.Owner)
	assert.Equal(t, "alice", album.ID)
	assert.Equal(t, "https://fanfou.com/album/alice", album.URL)
	assert.Equal(t, "https://fanfou.com/album/alice/p.2", album.PageURL(2))
}

func TestResolveHrefForms(t *testing.T) {
	for _, href := range []string{"/alice", "alice", "https://fanfou.com/alice", "/alice/"} {
		t.Run(href, func(t *testing.T) {
			page := `<div class="current"><a href="` + href + `"><img alt="Alice"></a></div>`
			fetcher := &staticFetcher{pages: map[string]string{"u": page}}
			album, err := NewResolver(fetcher, DefaultAlbumPrefix, "current", logger.NewNop()).Resolve(context.Background(), "u")
			require.NoError(t, err)
			assert.Equal(t, "alice", album.ID)
		})
	}
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"no marker", `<div class="other"><a href="/alice"><img alt="Alice"></a></div>`},
		{"no image", `<div class="current"><a href="/alice">Alice</a></div>`},
		{"empty alt", `<div class="current"><a href="/alice"><img alt=""></a></div>`},
		{"no link", `<div class="current"><img alt="Alice"></div>`},
		{"empty href", `<div class="current"><a href="/"><img alt="Alice"></a></div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &staticFetcher{pages: map[string]string{"u": tt.page}}
			_, err := NewResolver(fetcher, DefaultAlbumPrefix, "current", logger.NewNop()).Resolve(context.Background(), "u")
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindResolution), "got %v", err)
		})
	}
}

func TestResolvePropagatesFetchError(t *testing.T) {
	fetcher := &staticFetcher{pages: map[string]string{}}
	_, err := NewResolver(fetcher, DefaultAlbumPrefix, "current", nil).Resolve(context.Background(), "missing")
	assert.True(t, errs.IsKind(err, errs.KindFetch))
	assert.Equal(t, 404, errs.StatusOf(err))
}

func TestExtractPhotos(t *testing.T) {
	page := `<html><body>
<ul class="photos">
  <li class="photo"><a href="/photo/1"><img src="https://photo.fanfou.com/n0/a.jpg@200w_200h_1l.jpg"></a></li>
  <li class="photo"><a href="/photo/2"><img src=""></a></li>
  <li class="photo"><a href="/photo/3">no image</a></li>
  <li class="photo"><img src="https://photo.fanfou.com/n0/b.jpg"></li>
  <li class="photo"><img src="/static/c.png@100w"></li>
</ul>
</body></html>`

	doc, err := NewDocument(strings.NewReader(page), "https://fanfou.com/album/alice/p.1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://photo.fanfou.com/n0/a.jpg",
		"https://photo.fanfou.com/n0/b.jpg",
		"https://fanfou.com/static/c.png",
	}, ExtractPhotos(doc, "photo"))
}

func TestExtractPhotosMarkerOnImage(t *testing.T) {
	page := `<html><body>
<img class="photo" src="/p/a.jpg@100w">
<div class="photo"><img src="/p/b.jpg"></div>
</body></html>`

	doc, err := NewDocument(strings.NewReader(page), "https://fanfou.com/album/alice/p.1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://fanfou.com/p/a.jpg",
		"https://fanfou.com/p/b.jpg",
	}, ExtractPhotos(doc, "photo"))
}

func TestExtractPhotosEmptyPage(t *testing.T) {
	doc, err := NewDocument(strings.NewReader("<html></html>"), "https://fanfou.com/album/alice/p.9")
	require.NoError(t, err)
	assert.Empty(t, ExtractPhotos(doc, "photo"))
}

func TestStripThumbnail(t *testing.T) {
	tests := map[string]string{
		"https://x/a.jpg@200w_200h_1l.jpg": "https://x/a.jpg",
		"https://x/b.jpg":                  "https://x/b.jpg",
		"a@b@c":                            "a",
		"":                                 "",
	}
	for in, want := range tests {
		got := StripThumbnail(in)
		assert.Equal(t, want, got)
		assert.Equal(t, got, StripThumbnail(got), "must be idempotent")
	}
}
