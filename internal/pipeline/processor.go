package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
	"github.com/joseph-ayodele/contract-extractor/internal/normalize"
	"github.com/joseph-ayodele/contract-extractor/internal/router"
	"github.com/joseph-ayodele/contract-extractor/internal/taxonomy"
)

// DefaultFallbackThreshold is the populated share below which a whole-document call is added.
const DefaultFallbackThreshold = 0.3

// Result is a merged record, not yet committed.
type Result struct {
	Record       entity.ExtractedRecord
	Misses       []normalize.Miss
	RoutingGaps  []string
	FullDocument bool
}

// Processor coordinates routing, group extraction and merge for one document.
type Processor struct {
	Logger    *slog.Logger
	Router    *router.Router
	Extractor *extract.Orchestrator

	fallbackThreshold float64
}

type Option func(*Processor)

// WithFallbackThreshold sets the populated share that triggers the whole-document call. 0 disables it.
func WithFallbackThreshold(t float64) Option {
	return func(p *Processor) {
		if t >= 0 {
			p.fallbackThreshold = t
		}
	}
}

func NewProcessor(r *router.Router, o *extract.Orchestrator, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{Logger: logger, Router: r, Extractor: o, fallbackThreshold: DefaultFallbackThreshold}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process returns the normalised record for doc. Service failures come back as
// *llm.ServiceError and invalid input as *DocumentError; nothing is retried here.
func (p *Processor) Process(ctx context.Context, doc entity.ContractDocument) (Result, error) {
	start := time.Now()
	if err := Validate(doc); err != nil {
		p.Logger.Warn("processor.invalid_document", "url", doc.URL, "err", err)
		return Result{}, err
	}

	routed := p.Router.Route(doc)
	var gaps []string
	for _, gs := range routed {
		if gs.Fallback {
			gaps = append(gaps, gs.Group.Name)
		}
	}

	answers, err := p.Extractor.Extract(ctx, doc.Metadata, routed)
	if err != nil {
		p.Logger.Error("processor.extract.failed", "url", doc.URL, "err", err)
		return Result{}, err
	}
	rec, misses := normalize.Merge(answers, doc.Metadata, doc.URL)

	res := Result{RoutingGaps: gaps}
	if share := populatedShare(rec); p.fallbackThreshold > 0 && share < p.fallbackThreshold {
		p.Logger.Info("processor.full_document_fallback", "url", doc.URL, "populated_share", share)
		ga, err := p.Extractor.ExtractFullDocument(ctx, doc)
		switch {
		case ctx.Err() != nil:
			return Result{}, ctx.Err()
		case err != nil:
			// the grouped record stands on its own
			p.Logger.Warn("processor.full_document_failed", "url", doc.URL, "err", err)
		default:
			rec, misses = normalize.Merge(append(answers, ga), doc.Metadata, doc.URL)
			res.FullDocument = true
		}
	}

	normalize.LogMisses(p.Logger, doc.URL, misses)
	res.Record = rec
	res.Misses = misses
	p.Logger.Info("processor.extract.ok",
		"url", doc.URL,
		"populated", rec.Populated(),
		"routing_gaps", len(gaps),
		"misses", len(misses),
		"full_document", res.FullDocument,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func populatedShare(rec entity.ExtractedRecord) float64 {
	fields := taxonomy.ServiceFields()
	if len(fields) == 0 {
		return 1
	}
	n := 0
	for _, f := range fields {
		if rec.Get(f) != "" {
			n++
		}
	}
	return float64(n) / float64(len(fields))
}
