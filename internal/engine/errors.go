package engine

import (
	"errors"
	"fmt"
)

// ErrNoTranscript signals that none of the requested languages have a native
// transcript. Expected condition, distinct from transport failures.
var ErrNoTranscript = errors.New("no native transcript available")

// ResolutionError means the source reference could not be turned into a video
// list. Fatal to the whole run: no videos means no downstream work.
type ResolutionError struct {
	Ref string // the reference that failed (channel URL, playlist URL, search query)
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
