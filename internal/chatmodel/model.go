package chatmodel

import (
	"context"
	"log/slog"
)

// Tokenizer converts text into the model's token-id vocabulary. It is
// used for prompt measurement and stop-pattern compilation.
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]int32, error)
}

// Completer runs the underlying autoregressive generation procedure.
// Implementations must invoke stop after every emitted token with the
// full emitted token-id sequence so far, and halt generation the first
// time it returns true. Generation otherwise runs to the backend's own
// length ceiling, which is a normal terminal state.
type Completer interface {
	Complete(ctx context.Context, prompt string, stop func(emitted []int32) bool) (string, error)

	// Release frees generation-scoped backend state (KV cache). The
	// orchestrator calls it on every exit path of a generation.
	Release(ctx context.Context) error
}

// Params is the immutable configuration of a Model.
type Params struct {
	// InputTokenLimit is the prompt token budget; compiled prompts must
	// measure strictly below it.
	InputTokenLimit int

	// PrependPersona controls whether Persona is placed ahead of the
	// caller's history.
	PrependPersona bool

	// Persona is the fixed preamble history. Nil selects DefaultPersona.
	Persona []Message

	// StopPhrases is the default stop list used when a Generate call
	// supplies none. Nil selects DefaultStopPhrases.
	StopPhrases []string
}

// Model compiles chat histories into prompts and drives the completer.
// It is stateless between calls apart from its immutable configuration;
// one generation runs start to finish before the next begins.
type Model struct {
	tok     Tokenizer
	comp    Completer
	params  Params
	persona []Turn
	logger  *slog.Logger
}

// New builds a Model. The persona preamble is paired once here; a
// malformed persona is a construction error, not a per-call one.
func New(tok Tokenizer, comp Completer, params Params, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if params.Persona == nil {
		params.Persona = DefaultPersona()
	}
	if params.StopPhrases == nil {
		params.StopPhrases = DefaultStopPhrases()
	}

	persona, err := PairTurns(params.Persona)
	if err != nil {
		return nil, err
	}

	return &Model{
		tok:     tok,
		comp:    comp,
		params:  params,
		persona: persona,
		logger:  logger,
	}, nil
}

// Generate compiles messages into a prompt, trims it into the token
// budget, and returns the first generated continuation.
//
// stop overrides the configured stop phrases for this call; pass nil to
// use the defaults. A malformed history is returned as an error (the
// caller broke the ordering contract). Any fault past that point —
// tokenizer, budgeting, or the generation backend itself — is logged and
// degraded to an empty answer: a QA surface prefers a visibly empty
// response over a crashed process. Backend state is released on every
// path.
func (m *Model) Generate(ctx context.Context, messages []Message, stop []string) (string, error) {
	history, err := PairTurns(messages)
	if err != nil {
		return "", err
	}

	defer func() {
		if err := m.comp.Release(ctx); err != nil {
			m.logger.Warn("releasing generation backend state", "error", err)
		}
	}()

	result := m.generate(ctx, history, stop)
	if result.err != nil {
		m.logger.Error("generation failed", "error", result.err)
		return "", nil
	}
	return result.text, nil
}

// generation carries either generated text or a structured failure.
type generation struct {
	text string
	err  error
}

func (m *Model) generate(ctx context.Context, history []Turn, stop []string) generation {
	phrases := stop
	if phrases == nil {
		phrases = m.params.StopPhrases
	}
	stopSet, err := CompileStopSet(ctx, m.tok, phrases)
	if err != nil {
		return generation{err: err}
	}

	persona := m.persona
	if !m.params.PrependPersona {
		persona = nil
	}

	fit, err := fitToWindow(ctx, m.tok, persona, history, m.params.InputTokenLimit)
	if err != nil {
		return generation{err: err}
	}
	if fit.Oversized {
		m.logger.Warn("minimal prompt still exceeds token limit, proceeding oversized",
			"tokens", fit.Tokens,
			"limit", m.params.InputTokenLimit,
			"dropped_turns", fit.Dropped)
	} else if fit.Dropped > 0 {
		m.logger.Debug("trimmed history to fit context window",
			"dropped_turns", fit.Dropped,
			"tokens", fit.Tokens)
	}

	m.logger.Debug("final prompt compiled", "tokens", fit.Tokens, "chars", len(fit.Prompt))

	text, err := m.comp.Complete(ctx, fit.Prompt, stopSet.Match)
	if err != nil {
		return generation{err: err}
	}

	m.logger.Debug("generation finished", "output_chars", len(text))
	return generation{text: text}
}

// IsTooLong reports whether the history's untrimmed compiled prompt
// (persona included when enabled) reaches the token limit. Upstream
// callers use the probe to decide how many retrieved passages to fold in
// before committing to a Generate call.
func (m *Model) IsTooLong(ctx context.Context, messages []Message) (bool, error) {
	history, err := PairTurns(messages)
	if err != nil {
		return false, err
	}

	turns := history
	if m.params.PrependPersona {
		turns = make([]Turn, 0, len(m.persona)+len(history))
		turns = append(turns, m.persona...)
		turns = append(turns, history...)
	}

	ids, err := m.tok.Tokenize(ctx, renderPrompt(turns))
	if err != nil {
		return false, err
	}
	return len(ids) >= m.params.InputTokenLimit, nil
}
