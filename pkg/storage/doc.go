// Package storage places downloaded photos on disk.
//
// Photos for an album owner live in {base}/{owner}/{filename}. A file that
// already exists is never rewritten: Create opens the target with O_EXCL,
// so the existence check and the creation are one step even if downloads
// ever run in parallel.
//
//	pending, err := manager.Create("alice", "a.jpg")
//	if errors.IsKind(err, errors.KindAlreadyExists) {
//	    // nothing to do
//	}
//	n, err := pending.Fill(body) // removes the partial file on failure
//
// Owner names come from page markup, so they are passed through SanitizeName
// before being used as a directory.
package storage
