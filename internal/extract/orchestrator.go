// Package extract issues one text-service call per field group over that group's routed sections.
package extract

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/llm"
	"github.com/joseph-ayodele/contract-extractor/internal/router"
	"github.com/joseph-ayodele/contract-extractor/internal/taxonomy"
)

// DefaultMaxChars bounds the text sent with a single group call.
const DefaultMaxChars = 60000

// GroupAnswer is the raw result of one group call.
type GroupAnswer struct {
	Group    string
	Answer   llm.RawAnswer
	Fallback bool // routed over the full document
}

// Answers preserves field group declaration order, which is merge precedence.
type Answers []GroupAnswer

type Orchestrator struct {
	svc              llm.TextService
	logger           *slog.Logger
	maxChars         int
	groupConcurrency int
}

type Option func(*Orchestrator)

func WithMaxChars(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxChars = n
		}
	}
}

// WithGroupConcurrency issues up to n group calls for one document at once.
func WithGroupConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.groupConcurrency = n
		}
	}
}

func NewOrchestrator(svc llm.TextService, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		svc:              svc,
		logger:           logger,
		maxChars:         DefaultMaxChars,
		groupConcurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Extract makes exactly one call per routed group. The first failure cancels the
// remaining calls and is returned as a *llm.ServiceError naming the group; nothing is retried here.
func (o *Orchestrator) Extract(ctx context.Context, meta entity.Metadata, routed router.RoutedSections) (Answers, error) {
	out := make(Answers, len(routed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.groupConcurrency)
	for i, gs := range routed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return llm.WithGroup(err, gs.Group.Name)
			}
			ans, err := o.call(gctx, meta, gs.Group, gs.Sections)
			if err != nil {
				return err
			}
			out[i] = GroupAnswer{Group: gs.Group.Name, Answer: ans, Fallback: gs.Fallback}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractFullDocument asks for every service field over the whole document in one call.
func (o *Orchestrator) ExtractFullDocument(ctx context.Context, doc entity.ContractDocument) (GroupAnswer, error) {
	group := taxonomy.FullDocumentGroup()
	ans, err := o.call(ctx, doc.Metadata, group, doc.Sections)
	if err != nil {
		return GroupAnswer{}, err
	}
	return GroupAnswer{Group: group.Name, Answer: ans, Fallback: true}, nil
}

func (o *Orchestrator) call(ctx context.Context, meta entity.Metadata, group taxonomy.FieldGroup, sections []entity.Section) (llm.RawAnswer, error) {
	start := time.Now()
	rendered := RenderSections(meta, sections, o.maxChars)
	if rendered.Dropped > 0 || rendered.Truncated {
		o.logger.Info("extract.text_capped",
			"group", group.Name,
			"kept", rendered.Kept,
			"dropped", rendered.Dropped,
			"truncated", rendered.Truncated,
			"max_chars", o.maxChars,
		)
	}

	req := llm.FieldRequest{
		Group:  group.Name,
		Text:   rendered.Text,
		Fields: make([]llm.FieldSpec, len(group.Fields)),
	}
	for i, f := range group.Fields {
		req.Fields[i] = llm.FieldSpec{Name: f, Definition: taxonomy.Definition(f)}
	}

	ans, _, err := o.svc.ExtractFields(ctx, req)
	if err != nil {
		o.logger.Warn("extract.group.failed",
			"group", group.Name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, llm.WithGroup(err, group.Name)
	}

	// Enforce one value per requested field regardless of what the service returned.
	complete := make(llm.RawAnswer, len(group.Fields))
	for _, f := range group.Fields {
		complete[f] = ans[f]
	}
	o.logger.Debug("extract.group.ok",
		"group", group.Name,
		"populated", complete.Populated(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return complete, nil
}
