package chatmodel

import (
	"context"
	"errors"
)

var errBoom = errors.New("boom")

// fakeTokenizer maps every rune to its code point, so token counts equal
// rune counts. Deterministic and order-sensitive, which is all the
// budgeter and stop matcher care about.
type fakeTokenizer struct {
	err   error
	calls int
}

func (f *fakeTokenizer) Tokenize(_ context.Context, text string) ([]int32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]int32, 0, len(text))
	for _, r := range text {
		ids = append(ids, int32(r))
	}
	return ids, nil
}

// fakeCompleter records the prompt it was given and feeds its scripted
// token stream through the stop hook, mirroring a real backend's
// per-token check.
type fakeCompleter struct {
	emit     []int32
	text     string
	err      error
	released int

	gotPrompt  string
	stoppedAt  int // tokens emitted before the hook fired; len(emit) if never
	releaseErr error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, stop func([]int32) bool) (string, error) {
	f.gotPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	f.stoppedAt = len(f.emit)
	for i := range f.emit {
		if stop(f.emit[:i+1]) {
			f.stoppedAt = i + 1
			break
		}
	}
	return f.text, nil
}

func (f *fakeCompleter) Release(context.Context) error {
	f.released++
	return f.releaseErr
}
