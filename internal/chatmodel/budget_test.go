package chatmodel

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitToWindow(t *testing.T) {
	t.Parallel()

	persona := []Turn{{System: "sys", User: "hi", Assistant: "ok"}}

	t.Run("no trimming when already under the limit", func(t *testing.T) {
		t.Parallel()
		tok := &fakeTokenizer{}
		history := []Turn{{User: "2+2?", Assistant: "4"}, {User: "3+3?"}}

		fit, err := fitToWindow(context.Background(), tok, persona, history, 1000)
		require.NoError(t, err)
		assert.Zero(t, fit.Dropped)
		assert.False(t, fit.Oversized)
		assert.Less(t, fit.Tokens, 1000)
		assert.Equal(t, renderPrompt(append(append([]Turn{}, persona...), history...)), fit.Prompt)
	})

	t.Run("drops oldest turns until the prompt fits", func(t *testing.T) {
		t.Parallel()
		tok := &fakeTokenizer{}

		// Ten turns of ~120 tokens each; a limit of 400 forces most of
		// the history out while the newest turn survives.
		history := make([]Turn, 10)
		for i := range history {
			history[i] = Turn{
				User:      strings.Repeat("q", 60),
				Assistant: strings.Repeat("a", 60),
			}
		}
		history[9] = Turn{User: "newest question"}

		fit, err := fitToWindow(context.Background(), tok, persona, history, 400)
		require.NoError(t, err)
		assert.False(t, fit.Oversized)
		assert.Positive(t, fit.Dropped)
		assert.Less(t, fit.Tokens, 400)
		assert.Contains(t, fit.Prompt, "newest question")
	})

	t.Run("each re-render measures the whole remaining sequence", func(t *testing.T) {
		t.Parallel()
		tok := &fakeTokenizer{}
		history := []Turn{
			{User: strings.Repeat("x", 300), Assistant: strings.Repeat("y", 300)},
			{User: "tail"},
		}

		_, err := fitToWindow(context.Background(), tok, persona, history, 200)
		require.NoError(t, err)
		// One measurement for the full sequence, one after the drop.
		assert.Equal(t, 2, tok.calls)
	})

	t.Run("newest turn is never dropped", func(t *testing.T) {
		t.Parallel()
		tok := &fakeTokenizer{}
		history := []Turn{{User: strings.Repeat("long", 200)}}

		fit, err := fitToWindow(context.Background(), tok, persona, history, 50)
		require.NoError(t, err)
		assert.True(t, fit.Oversized)
		assert.Zero(t, fit.Dropped)
		assert.Contains(t, fit.Prompt, "long")
		assert.GreaterOrEqual(t, fit.Tokens, 50)
	})

	t.Run("persona alone over the limit reports oversized", func(t *testing.T) {
		t.Parallel()
		tok := &fakeTokenizer{}
		big := []Turn{{System: strings.Repeat("s", 500), User: "u", Assistant: "a"}}

		fit, err := fitToWindow(context.Background(), tok, big, nil, 100)
		require.NoError(t, err)
		assert.True(t, fit.Oversized)
	})

	t.Run("tokenizer failure propagates", func(t *testing.T) {
		t.Parallel()
		_, err := fitToWindow(context.Background(), &fakeTokenizer{err: errBoom}, persona, nil, 100)
		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
	})
}
