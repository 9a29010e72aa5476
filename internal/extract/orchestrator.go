package extract

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nithinv16/dukaaon-extractor/internal/entity"
	"github.com/nithinv16/dukaaon-extractor/internal/feedback"
	"github.com/nithinv16/dukaaon-extractor/internal/llm"
	"github.com/nithinv16/dukaaon-extractor/internal/taxonomy"
)

// State names for the fallback chain. Heuristic states are deterministic;
// model-invoking states are not, which is a documented limitation.
type State string

const (
	StateStructuredTableParse State = "STRUCTURED_TABLE_PARSE"
	StateModelTableFallback   State = "MODEL_TABLE_FALLBACK"
	StateVisionFallback       State = "VISION_FALLBACK"
	StateEnhance              State = "ENHANCE"
	StateTerminalSuccess      State = "TERMINAL_SUCCESS"
	StateTerminalFailure      State = "TERMINAL_FAILURE"
)

// Config holds orchestrator knobs. Batch enrichment runs in bounded
// concurrent groups with a pause between groups so external services are
// never hammered.
type Config struct {
	GroupSize       int
	GroupDelay      time.Duration
	FewShotExamples int
	AutoCreate      bool
}

// Orchestrator composes the fallback chain into one pipeline run per image.
// All collaborators are injected at construction, validated once at startup.
type Orchestrator struct {
	logger   *slog.Logger
	cfg      Config
	ocr      TableExtractor
	inv      llm.Invoker
	stages   []Stage
	matcher  *taxonomy.Matcher
	taxonomy taxonomy.Store
	feedback *feedback.Store
	limiter  *rate.Limiter
}

// NewOrchestrator wires the fallback chain. ocr and feedback may be nil: a
// missing OCR collaborator skips straight to the model fallbacks, and a
// missing feedback store simply yields no few-shot examples.
func NewOrchestrator(
	logger *slog.Logger,
	cfg Config,
	ocr TableExtractor,
	inv llm.Invoker,
	tools llm.ToolExecutor,
	store taxonomy.Store,
	fb *feedback.Store,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GroupSize <= 0 {
		cfg.GroupSize = 4
	}
	if cfg.GroupDelay <= 0 {
		cfg.GroupDelay = 500 * time.Millisecond
	}
	if cfg.FewShotExamples <= 0 {
		cfg.FewShotExamples = 3
	}

	return &Orchestrator{
		logger: logger,
		cfg:    cfg,
		ocr:    ocr,
		inv:    inv,
		stages: []Stage{
			&structuredStage{logger: logger},
			&modelTableStage{inv: inv, logger: logger},
			&visionStage{inv: inv, tools: tools, logger: logger},
		},
		matcher:  taxonomy.NewMatcher(store, cfg.AutoCreate, logger),
		taxonomy: store,
		feedback: fb,
		limiter:  rate.NewLimiter(rate.Every(cfg.GroupDelay), 1),
	}
}

// ExtractFromImage runs one full pipeline pass: OCR, the fallback chain, and
// the enhancement merge. The returned result is terminal; a run that yields
// nothing reports failure in the result rather than as an error.
func (o *Orchestrator) ExtractFromImage(ctx context.Context, image []byte, mimeType, sellerID string) entity.ExtractionResult {
	start := time.Now()
	in := StageInput{Image: image, MimeType: mimeType}

	if o.ocr != nil {
		tables, err := o.ocr.ExtractTables(ctx, image, mimeType)
		if err != nil {
			o.logger.Warn("extract.ocr.failed", "error", err)
		}
		in.Tables = tables
	}

	var products []entity.ExtractedProduct
	for _, stage := range o.stages {
		state := stateFor(stage.Name())
		o.logger.Info("extract.stage.start", "state", string(state), "tables", len(in.Tables))

		stageProducts, err := stage.Extract(ctx, in)
		if err != nil {
			// A failed strategy is not a failed run; switching stages is the
			// de facto retry for parse errors.
			o.logger.Warn("extract.stage.failed", "state", string(state), "error", err)
			continue
		}
		if len(stageProducts) > 0 {
			o.logger.Info("extract.stage.ok",
				"state", string(state),
				"products", len(stageProducts),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			products = stageProducts
			break
		}
		o.logger.Info("extract.stage.empty", "state", string(state))
	}

	if len(products) == 0 {
		o.logger.Error("extract.terminal_failure", "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractionResult{
			Success: false,
			Error:   "no products could be extracted",
		}
	}

	o.logger.Info("extract.stage.start", "state", string(StateEnhance), "products", len(products))
	if err := o.enhance(ctx, products, sellerID); err != nil {
		// Enhancement is best-effort: candidates survive without it.
		o.logger.Warn("extract.enhance.failed", "error", err)
	}

	result := entity.ExtractionResult{
		Success:  true,
		Products: products,
	}
	for _, p := range products {
		result.Confidence += p.Confidence
		result.Metadata.TotalAmount += p.NetAmount
	}
	result.Confidence /= float64(len(products))
	result.Metadata.TotalItems = len(products)

	o.logger.Info("extract.terminal_success",
		"products", len(products),
		"confidence", result.Confidence,
		"total_amount", result.Metadata.TotalAmount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result
}

func stateFor(stageName string) State {
	switch stageName {
	case "structured_table_parse":
		return StateStructuredTableParse
	case "model_table_fallback":
		return StateModelTableFallback
	case "vision_fallback":
		return StateVisionFallback
	default:
		return State(stageName)
	}
}
