package chatmodel

import "context"

// fitResult is the outcome of one budgeting pass.
type fitResult struct {
	// Prompt is the rendered prompt for the surviving turns.
	Prompt string
	// Tokens is the prompt's measured token count.
	Tokens int
	// Dropped counts the history turns trimmed from the front.
	Dropped int
	// Oversized is set when even the minimal rendering (persona plus the
	// newest turn) still reaches the limit. The prompt is returned as-is;
	// the caller decides how loudly to report it.
	Oversized bool
}

// fitToWindow returns the longest suffix of history whose rendering,
// prefixed by the persona turns, measures strictly below limit tokens.
//
// The loop re-renders and re-tokenizes the whole remaining sequence on
// every iteration; quadratic in the number of turns, which is fine for
// the tens of turns a context window can hold. Persona turns are never
// dropped, and neither is the newest history turn: rather than truncate
// inside a turn's text, an over-limit minimal rendering is returned with
// Oversized set.
func fitToWindow(ctx context.Context, tok Tokenizer, persona, history []Turn, limit int) (fitResult, error) {
	dropped := 0
	for {
		turns := make([]Turn, 0, len(persona)+len(history))
		turns = append(turns, persona...)
		turns = append(turns, history...)

		prompt := renderPrompt(turns)
		ids, err := tok.Tokenize(ctx, prompt)
		if err != nil {
			return fitResult{}, err
		}

		if len(ids) < limit {
			return fitResult{Prompt: prompt, Tokens: len(ids), Dropped: dropped}, nil
		}
		if len(history) <= 1 {
			return fitResult{Prompt: prompt, Tokens: len(ids), Dropped: dropped, Oversized: true}, nil
		}

		// Drop the oldest remaining history turn and re-measure. Slicing
		// shares the underlying turns; nothing is copied or mutated.
		history = history[1:]
		dropped++
	}
}
