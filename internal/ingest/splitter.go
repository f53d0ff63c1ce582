// Package ingest loads source material into indexable documents:
// directory trees of text and HTML files, government QA datasets in
// CSV and research-project records in JSONL. Loaded text is chunked
// with a recursive splitter before it reaches the document store.
package ingest

import (
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"
)

// defaultSeparators orders the boundaries the splitter prefers, from
// paragraph down to nothing (hard rune cut). The ideographic full stop
// matters for Chinese text that rarely contains ASCII spaces.
var defaultSeparators = []string{"\n\n", "\n", "。", " ", ""}

// Splitter cuts text into chunks of at most chunkSize runes, with
// adjacent chunks sharing up to overlap runes of trailing context.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter returns a splitter with the given rune budget per chunk.
// overlap is clamped below chunkSize.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split chunks a single text. Whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	return s.split(strings.TrimSpace(text), s.separators)
}

// SplitAll chunks many texts in parallel, one worker per CPU, and
// returns the chunk lists in input order.
func (s *Splitter) SplitAll(texts []string) [][]string {
	results := make([][]string, len(texts))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < runtime.NumCPU(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.Split(texts[i])
			}
		}()
	}
	for i := range texts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (s *Splitter) split(text string, separators []string) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}

	sep := ""
	rest := separators
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return s.hardCut(text)
	}

	var chunks []string
	var pending []string
	for _, piece := range strings.SplitAfter(text, sep) {
		if utf8.RuneCountInString(piece) > s.chunkSize {
			// Piece alone busts the budget, recurse with finer separators.
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
			chunks = append(chunks, s.split(piece, rest)...)
			continue
		}
		pending = append(pending, piece)
	}
	return append(chunks, s.merge(pending)...)
}

// merge packs consecutive pieces into chunks up to chunkSize runes,
// carrying trailing pieces forward as overlap.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	emit := func() {
		chunk := strings.TrimSpace(strings.Join(current, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if currentLen+pieceLen > s.chunkSize && currentLen > 0 {
			emit()
			for currentLen > s.overlap ||
				(currentLen > 0 && currentLen+pieceLen > s.chunkSize) {
				currentLen -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		currentLen += pieceLen
	}
	emit()
	return chunks
}

// hardCut slices text every chunkSize runes with overlap stride, used
// when no separator remains.
func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	stride := s.chunkSize - s.overlap

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := min(start+s.chunkSize, len(runes))
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
