package rag

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/twnlp/dbqa/internal/chatmodel"
	"github.com/twnlp/dbqa/internal/docstore"
)

// Searcher is the slice of the document store the pipeline reads.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...docstore.SearchOption) ([]docstore.Result, error)
}

// Generator runs a chat history through the model. A nil stop list
// selects the model's default stop phrases. IsTooLong probes whether a
// history's untrimmed prompt would reach the model's token budget.
type Generator interface {
	Generate(ctx context.Context, history []chatmodel.Message, stop []string) (string, error)
	IsTooLong(ctx context.Context, history []chatmodel.Message) (bool, error)
}

// Pipeline answers a question from the document store.
type Pipeline struct {
	store  Searcher
	model  Generator
	topK   int
	tracer trace.Tracer
	logger *slog.Logger
}

func New(store Searcher, model Generator, topK int, logger *slog.Logger) *Pipeline {
	if topK <= 0 {
		topK = 4
	}
	return &Pipeline{
		store:  store,
		model:  model,
		topK:   topK,
		tracer: otel.Tracer("dbqa/rag"),
		logger: logger,
	}
}

// Answer retrieves the passages nearest question, folds them into the
// answer prompt and generates. A question that retrieves nothing still
// goes to the model, with an empty context block.
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "rag.answer",
		trace.WithAttributes(attribute.Int("rag.top_k", p.topK)))
	defer span.End()

	passages, err := p.retrieve(ctx, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return "", err
	}
	passages, err = p.shedOverflow(ctx, passages, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "budget probe failed")
		return "", err
	}
	span.SetAttributes(attribute.Int("rag.passages", len(passages)))

	prompt := BuildAnswerPrompt(passages, question)

	answer, err := p.generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", err
	}
	return answer, nil
}

func (p *Pipeline) retrieve(ctx context.Context, question string) ([]string, error) {
	ctx, span := p.tracer.Start(ctx, "rag.retrieve")
	defer span.End()

	results, err := p.store.Search(ctx, question, docstore.WithTopK(p.topK))
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Content
		p.logger.Debug("retrieved passage",
			"rank", i, "similarity", r.Similarity, "id", r.ID)
	}
	return passages, nil
}

// shedOverflow drops the lowest-ranked passages until the folded prompt
// fits the model's token budget. The question itself is never dropped;
// with no passages left the model's own trimming takes over.
func (p *Pipeline) shedOverflow(ctx context.Context, passages []string, question string) ([]string, error) {
	for len(passages) > 0 {
		probe := []chatmodel.Message{chatmodel.User(BuildAnswerPrompt(passages, question))}
		tooLong, err := p.model.IsTooLong(ctx, probe)
		if err != nil {
			return nil, fmt.Errorf("probing prompt length: %w", err)
		}
		if !tooLong {
			break
		}
		p.logger.Debug("dropping passage to fit context window",
			"remaining", len(passages)-1)
		passages = passages[:len(passages)-1]
	}
	return passages, nil
}

func (p *Pipeline) generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "rag.generate")
	defer span.End()

	answer, err := p.model.Generate(ctx, []chatmodel.Message{chatmodel.User(prompt)}, nil)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return answer, nil
}
