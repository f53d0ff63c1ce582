package chatmodel

import (
	"context"
	"fmt"
)

// DefaultStopPhrases are the generation stop markers used when the caller
// supplies none. They catch the model opening a fresh [INST] turn or
// drifting into a "Question:" continuation artifact.
func DefaultStopPhrases() []string {
	return []string{"[INST]", "\nQuestion:", "[INST: ]"}
}

// StopSet is a compiled collection of stop patterns, each a token-id
// sequence in the model's vocabulary. It is built fresh per generation
// call and immutable afterwards.
//
// Matching happens at the token-id level rather than on decoded text so
// that a stop phrase is recognized in exactly the representation the
// model emits at; string round-trips through the tokenizer are not
// guaranteed to be identical.
type StopSet struct {
	patterns [][]int32
}

// CompileStopSet tokenizes each phrase into a stop pattern. Empty phrases
// (and phrases that tokenize to nothing) are skipped.
func CompileStopSet(ctx context.Context, tok Tokenizer, phrases []string) (StopSet, error) {
	set := StopSet{patterns: make([][]int32, 0, len(phrases))}
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		ids, err := tok.Tokenize(ctx, phrase)
		if err != nil {
			return StopSet{}, fmt.Errorf("tokenizing stop phrase %q: %w", phrase, err)
		}
		if len(ids) == 0 {
			continue
		}
		set.patterns = append(set.patterns, ids)
	}
	return set, nil
}

// Match reports whether the tail of the emitted token sequence exactly
// equals any configured pattern. The check is a fresh sliding comparison
// each call; no partial-match state is carried between calls.
func (s StopSet) Match(emitted []int32) bool {
	for _, pattern := range s.patterns {
		if hasSuffix(emitted, pattern) {
			return true
		}
	}
	return false
}

func hasSuffix(ids, pattern []int32) bool {
	if len(pattern) == 0 || len(ids) < len(pattern) {
		return false
	}
	tail := ids[len(ids)-len(pattern):]
	for i, id := range pattern {
		if tail[i] != id {
			return false
		}
	}
	return true
}
