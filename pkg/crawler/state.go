package crawler

import (
	"fmt"
	"time"

	"fanfoudl/internal/downloader"
	"fanfoudl/pkg/fanfou"
)

// State is a phase of the pagination state machine
type State int

const (
	Idle State = iota
	FetchingPage
	Downloading
	Cooling
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingPage:
		return "fetching_page"
	case Downloading:
		return "downloading"
	case Cooling:
		return "cooling"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions can happen
func (s State) Terminal() bool {
	return s == Done || s == Aborted
}

// Tally counts what a single run did. It is created per run and returned in the Summary.
type Tally struct {
	Pages    int
	Photos   int
	Saved    int
	Existing int
	Failed   int
	Bytes    int64
}

// Record adds one download result
func (t *Tally) Record(r downloader.Result) {
	t.Photos++
	switch r.Outcome {
	case downloader.Saved:
		t.Saved++
		t.Bytes += r.Size
	case downloader.AlreadyExists:
		t.Existing++
	default:
		t.Failed++
	}
}

func (t Tally) String() string {
	return fmt.Sprintf("%d pages, %d photos: %d saved, %d already present, %d failed",
		t.Pages, t.Photos, t.Saved, t.Existing, t.Failed)
}

// Summary is what Run hands back
type Summary struct {
	Album    fanfou.Album
	State    State
	Tally    Tally
	LogPath  string
	PhotoDir string
	// Stored counts the files in PhotoDir after the run, earlier runs included
	Stored   int
	Started  time.Time
	Finished time.Time
	// LastPage is the last page whose photos were all attempted, 0 if none
	LastPage int
}

// Duration returns how long the run took
func (s *Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}
