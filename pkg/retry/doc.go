// Package retry provides exponential backoff and retry logic for transient
// fetch failures.
//
// Only errors that the error taxonomy marks as retryable are attempted again:
// transport failures, 429 and 5xx responses. A 403 or 404 surfaces on the
// first attempt, as does a cancelled context.
//
//	cfg := retry.FromSettings(appCfg.Retry, log)
//	doc, err := retry.DoWithResult(ctx, func(ctx context.Context) (*fanfou.Document, error) {
//		return client.fetchOnce(ctx, url)
//	}, cfg)
//
// The error returned after the final attempt is the operation's own error, so
// callers can still use errors.KindOf and errors.StatusOf on it.
package retry
