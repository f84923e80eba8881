// Package chunk splits documents into fixed-size overlapping text units
// sized for embedding. Splitting is a pure transform: the same input
// always yields the same chunk sequence.
package chunk

// Default chunk geometry. 1000 characters gives enough local context for
// grounded answers without drowning the embedding in noise; the 200
// character overlap preserves continuity across chunk boundaries.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Splitter splits text into overlapping chunks of at most Size runes.
type Splitter struct {
	Size    int
	Overlap int
}

// New returns a Splitter with the default geometry.
func New() Splitter {
	return Splitter{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Split slices text into chunks. Invariants:
//   - every chunk is at most Size runes long
//   - adjacent chunks share exactly Overlap runes
//   - concatenating the chunks with the overlap removed reconstructs text
//
// Text at most Size runes long yields exactly one chunk; empty text
// yields none (empty input to an embedder is undefined behavior and must
// never reach it).
func (s Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	size := s.Size
	if size <= 0 {
		size = DefaultSize
	}
	overlap := s.Overlap
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for start := 0; ; start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			return chunks
		}
	}
}
