// Package ratelimit paces the crawler with randomized pauses.
//
// The album site throttles clients that fetch at a steady cadence, so every
// network step is followed by a pause drawn uniformly from [0, ceiling).
// Two independent ceilings are used: a short one after each photo and a
// longer one after each page.
//
//	pacer := ratelimit.NewJitter()
//	if err := pacer.Cool(ctx, cfg.Crawl.PagePause); err != nil {
//	    return err // context cancelled while cooling
//	}
//
// Tests inject a recording sleep function and a fixed random source with
// WithSleep and WithRand.
package ratelimit
