// Package crawler drives an album crawl page by page.
//
// A run moves through Idle, then FetchingPage, Downloading and Cooling once
// per page, and ends in Done or Aborted:
//
//	Idle -> FetchingPage -> Downloading -> Cooling -> FetchingPage ... -> Done
//	                  \-> Aborted (page fetch failed or context cancelled)
//
// Per-photo failures are counted and logged but never stop the page. A page
// that cannot be fetched stops the whole run, since it usually means the
// session expired and every later page would fail the same way.
//
//	c := crawler.New(cfg)
//	summary, err := c.Run(ctx, crawler.Params{
//	    AlbumURL: "https://fanfou.com/album/alice",
//	    Cookie:   raw,
//	    From:     1,
//	    To:       5,
//	})
package crawler
