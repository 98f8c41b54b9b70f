package fanfou

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	errs "fanfoudl/pkg/errors"
	"fanfoudl/pkg/logger"
)

// DefaultAlbumPrefix is the public album root of the site
const DefaultAlbumPrefix = "https://fanfou.com/album/"

// Album identifies whose album is being crawled
type Album struct {
	// Owner is the display name shown on the album page
	Owner string
	// ID is the account identifier used in album URLs
	ID string
	// URL is the canonical album root, prefix + ID
	URL string
}

// PageURL returns the URL of a 1-based album page
func (a Album) PageURL(page int) string {
	return a.URL + "/p." + strconv.Itoa(page)
}

// ValidateAlbumURL accepts candidate only if it is non-empty and starts with prefix
func ValidateAlbumURL(prefix, candidate string) error {
	if strings.TrimSpace(candidate) == "" {
		return errs.Validation("album URL is empty")
	}
	if !strings.HasPrefix(candidate, prefix) {
		return errs.Validation("album URL %q must start with %s", candidate, prefix)
	}
	return nil
}

// Resolver determines an album's owner and canonical URL from its landing page
type Resolver struct {
	fetcher     Fetcher
	prefix      string
	markerClass string
	logger      logger.Logger
}

// NewResolver creates a Resolver. markerClass names the element that wraps the
// signed-in user's avatar and profile link.
func NewResolver(fetcher Fetcher, prefix, markerClass string, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{fetcher: fetcher, prefix: prefix, markerClass: markerClass, logger: log}
}

// Resolve fetches candidateURL and reads the album identity from the marker element
func (r *Resolver) Resolve(ctx context.Context, candidateURL string) (Album, error) {
	doc, err := r.fetcher.Fetch(ctx, candidateURL)
	if err != nil {
		return Album{}, err
	}

	markers := doc.SelectByClass(r.markerClass)
	if len(markers) == 0 {
		return Album{}, errs.Resolution("no element with class %q on %s", r.markerClass, candidateURL)
	}
	marker := markers[0]

	img, ok := marker.Find("img")
	if !ok {
		return Album{}, errs.Resolution("marker element has no avatar image")
	}
	owner := strings.TrimSpace(img.Attr("alt"))
	if owner == "" {
		return Album{}, errs.Resolution("avatar image has no alt text")
	}

	link, ok := marker.Find("a")
	if !ok {
		return Album{}, errs.Resolution("marker element has no profile link")
	}
	id := lastPathSegment(link.Attr("href"))
	if id == "" {
		return Album{}, errs.Resolution("profile link %q has no account id", link.Attr("href"))
	}

	album := Album{Owner: owner, ID: id, URL: r.prefix + id}
	r.logger.InfoWithFields("Resolved album", map[string]interface{}{
		"owner": album.Owner,
		"id":    album.ID,
		"url":   album.URL,
	})
	return album, nil
}

// lastPathSegment returns the final non-empty path element of href
func lastPathSegment(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	path := href
	if u, err := url.Parse(href); err == nil {
		path = u.Path
	}

	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			if unescaped, err := url.PathUnescape(s); err == nil {
				return unescaped
			}
			return s
		}
	}
	return ""
}

// ExtractPhotos returns original-size photo URLs for every element with
// photoClass, in markup order. Empty sources are skipped and relative
// sources are resolved against the page URL.
func ExtractPhotos(doc *Document, photoClass string) []string {
	var refs []string
	for _, el := range doc.SelectByClass(photoClass) {
		img, ok := el.Find("img")
		if !ok {
			continue
		}
		src := strings.TrimSpace(img.Attr("src"))
		if src == "" {
			continue
		}
		refs = append(refs, doc.Resolve(StripThumbnail(src)))
	}
	return refs
}

// StripThumbnail removes the thumbnail suffix the site appends after '@'
func StripThumbnail(ref string) string {
	if i := strings.IndexByte(ref, '@'); i >= 0 {
		return ref[:i]
	}
	return ref
}
