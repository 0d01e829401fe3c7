// Package chunk splits document text into overlapping fixed-size windows,
// the unit of retrieval for the vector index.
package chunk

import (
	"fmt"
	"iter"
	"strings"
)

// PageSeparator marks page boundaries in extracted document text.
// Text extractors insert one form feed between consecutive pages.
const PageSeparator = '\f'

// Window is one contiguous substring of a document.
type Window struct {
	Index int
	// Start is the window's rune offset in the document text.
	Start int
	// Page is the 1-based page the window starts on, 0 when the source text
	// carries no page markers.
	Page int
	Text string
}

// ID returns the stable chunk identifier used as the partition key.
// Windows with page information carry a trailing page token so citations
// can be recovered from the id alone.
func (w Window) ID() string {
	if w.Page > 0 {
		return fmt.Sprintf("chunk_%d_p%d", w.Index, w.Page)
	}
	return fmt.Sprintf("chunk_%d", w.Index)
}

// Split returns a lazy, restartable sequence of windows over text.
// Windows are size runes long, consecutive windows share overlap runes, and
// the final window may be shorter. Boundaries count runes, not bytes, so a
// window never ends inside a multi-byte character. A trailing window that
// would lie entirely inside the previous window's overlap is not emitted.
// Empty text yields an empty sequence.
func Split(text string, size, overlap int) (iter.Seq[Window], error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}

	step := size - overlap
	paged := strings.ContainsRune(text, PageSeparator)

	return func(yield func(Window) bool) {
		runes := []rune(text)
		n := len(runes)
		if n == 0 {
			return
		}
		page := 0
		prevStart := 0
		for start, idx := 0, 0; ; start, idx = start+step, idx+1 {
			end := start + size
			if end > n {
				end = n
			}
			if paged {
				if idx == 0 {
					page = 1
				}
				for _, r := range runes[prevStart:start] {
					if r == PageSeparator {
						page++
					}
				}
				prevStart = start
			}
			w := Window{Index: idx, Start: start, Page: page, Text: string(runes[start:end])}
			if !yield(w) {
				return
			}
			if end == n {
				return
			}
		}
	}, nil
}

// Collect materializes Split into a slice.
func Collect(text string, size, overlap int) ([]Window, error) {
	seq, err := Split(text, size, overlap)
	if err != nil {
		return nil, err
	}
	var windows []Window
	for w := range seq {
		windows = append(windows, w)
	}
	return windows, nil
}

// Count returns the number of windows Split emits for a text of n runes
// without materializing them: ceil(max(n-overlap, 0) / (size-overlap)),
// with a minimum of one window for non-empty text.
func Count(n, size, overlap int) int {
	if n <= 0 {
		return 0
	}
	step := size - overlap
	rest := n - overlap
	if rest <= 0 {
		return 1
	}
	return (rest + step - 1) / step
}
