package downloader

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	errs "fanfoudl/pkg/errors"
	"fanfoudl/pkg/fanfou"
	"fanfoudl/pkg/logger"
	"fanfoudl/pkg/ratelimit"
	"fanfoudl/pkg/storage"
)

// Outcome is the result class of one photo download
type Outcome int

const (
	Saved Outcome = iota
	AlreadyExists
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case AlreadyExists:
		return "already_exists"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes what happened to one photo reference
type Result struct {
	URL      string
	Filename string
	Path     string
	Outcome  Outcome
	// Err is set when Outcome is Failed
	Err      error
	Size     int64
	Duration time.Duration
}

// Emitter receives the user-facing line for every outcome
type Emitter interface {
	Emitf(format string, args ...interface{}) error
}

// Executor downloads photo references one at a time into owner directories
type Executor struct {
	opener fanfou.Opener
	store  *storage.Manager
	pacer  ratelimit.Pacer
	pause  time.Duration
	emit   Emitter
	logger logger.Logger
}

// NewExecutor wires an Executor. pause is the ceiling handed to pacer after every reference.
func NewExecutor(opener fanfou.Opener, store *storage.Manager, pacer ratelimit.Pacer, pause time.Duration, emit Emitter, log logger.Logger) *Executor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Executor{
		opener: opener,
		store:  store,
		pacer:  pacer,
		pause:  pause,
		emit:   emit,
		logger: log,
	}
}

// FilenameFor returns the final path segment of ref, ignoring any query.
// Malformed references and references without a filename are rejected.
func FilenameFor(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", errs.Wrap(errs.KindMalformedReference, "parse "+ref, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errs.New(errs.KindMalformedReference, fmt.Sprintf("%q is not an absolute URL", ref))
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", errs.New(errs.KindMalformedReference, fmt.Sprintf("%q has no filename", ref))
	}
	return name, nil
}

// Download fetches ref into owner's directory. Every outcome is emitted with
// the originating URL, and the pacer runs afterwards whatever the outcome.
// The returned error is non-nil only when ctx was cancelled while pacing.
func (e *Executor) Download(ctx context.Context, ref, owner string) (Result, error) {
	result := e.fetch(ctx, ref, owner)
	e.report(result)

	if e.pacer == nil {
		return result, ctx.Err()
	}
	return result, e.pacer.Cool(ctx, e.pause)
}

func (e *Executor) fetch(ctx context.Context, ref, owner string) Result {
	start := time.Now()
	result := Result{URL: ref}

	fail := func(err error) Result {
		result.Outcome = Failed
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	name, err := FilenameFor(ref)
	if err != nil {
		return fail(err)
	}
	result.Filename = name
	result.Path = e.store.Path(owner, name)

	pending, err := e.store.Create(owner, name)
	if errs.IsKind(err, errs.KindAlreadyExists) {
		result.Outcome = AlreadyExists
		result.Duration = time.Since(start)
		return result
	}
	if err != nil {
		return fail(err)
	}

	body, err := e.opener.Open(ctx, ref)
	if err != nil {
		pending.Abandon()
		return fail(err)
	}
	defer body.Close()

	n, err := pending.Fill(body)
	if err != nil {
		return fail(err)
	}

	result.Outcome = Saved
	result.Size = n
	result.Duration = time.Since(start)
	return result
}

func (e *Executor) report(r Result) {
	fields := map[string]interface{}{
		"url":      r.URL,
		"outcome":  r.Outcome.String(),
		"duration": r.Duration,
	}

	var err error
	switch r.Outcome {
	case Saved:
		fields["size"] = r.Size
		e.logger.DebugWithFields("Photo saved", fields)
		err = e.emitf("Downloaded %s -> %s", r.URL, r.Path)
	case AlreadyExists:
		e.logger.DebugWithFields("Photo already on disk", fields)
		err = e.emitf("Already exists %s -> %s", r.URL, r.Path)
	default:
		e.logger.WithError(r.Err).WarnWithFields("Photo download failed", fields)
		err = e.emitf("Failed %s: %v", r.URL, r.Err)
	}

	if err != nil {
		e.logger.WithError(err).Error("Failed to write run log entry")
	}
}

func (e *Executor) emitf(format string, args ...interface{}) error {
	if e.emit == nil {
		return nil
	}
	return e.emit.Emitf(format, args...)
}
