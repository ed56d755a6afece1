package server

import (
	"log/slog"

	"github.com/joseph-ayodele/contract-extractor/internal/batch"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
	"github.com/joseph-ayodele/contract-extractor/internal/llm"
	"github.com/joseph-ayodele/contract-extractor/internal/llm/provider"
	"github.com/joseph-ayodele/contract-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/router"
	"github.com/joseph-ayodele/contract-extractor/internal/taxonomy"
)

var fieldGroups = taxonomy.Groups

// NewProcessor builds router, orchestrator and processor over svc. A nil svc is
// replaced by the configured provider.
func NewProcessor(cfg *common.Config, svc llm.TextService, logger *slog.Logger) (*pipeline.Processor, error) {
	groups := fieldGroups()
	if err := taxonomy.Validate(groups); err != nil {
		return nil, common.NewAppError(common.CodeConfig, "invalid field taxonomy", err)
	}
	if svc == nil {
		var err error
		if svc, err = provider.New(cfg.LLM, logger); err != nil {
			return nil, err
		}
	}
	r, err := router.New(groups, logger)
	if err != nil {
		return nil, err
	}
	o := extract.NewOrchestrator(svc, logger,
		extract.WithMaxChars(cfg.Extract.MaxChars),
		extract.WithGroupConcurrency(cfg.Extract.GroupConcurrency),
	)
	return pipeline.NewProcessor(r, o, logger, pipeline.WithFallbackThreshold(cfg.Extract.FallbackThreshold)), nil
}

// NewRunner wires a batch runner that commits into store and ledger.
func NewRunner(cfg *common.Config, proc batch.Extractor, store *repo.RecordStore, ledger repo.Ledger, logger *slog.Logger) *batch.Runner {
	committer := pipeline.NewCommitter(store, ledger, logger)
	return batch.NewRunner(proc, committer, ledger, logger,
		batch.WithConcurrency(cfg.Batch.Concurrency),
		batch.WithDocumentTimeout(cfg.Batch.DocumentTimeout),
		batch.WithRetryPolicy(batch.PolicyFromConfig(cfg.Batch)),
	)
}
