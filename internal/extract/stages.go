package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nithinv16/dukaaon-extractor/constants"
	"github.com/nithinv16/dukaaon-extractor/internal/common"
	"github.com/nithinv16/dukaaon-extractor/internal/entity"
	"github.com/nithinv16/dukaaon-extractor/internal/llm"
	"github.com/nithinv16/dukaaon-extractor/internal/llm/openai"
	"github.com/nithinv16/dukaaon-extractor/internal/table"
)

// modelProduct is the wire shape model stages ask for.
type modelProduct struct {
	Name       string  `json:"name"`
	Brand      string  `json:"brand,omitempty"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit,omitempty"`
	NetAmount  float64 `json:"net_amount,omitempty"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// structuredStage runs the heuristic column identifier and row extractor over
// every OCR table. Deterministic; no model involved.
type structuredStage struct {
	logger *slog.Logger
}

func (s *structuredStage) Name() string { return "structured_table_parse" }

func (s *structuredStage) Extract(_ context.Context, in StageInput) ([]entity.ExtractedProduct, error) {
	var products []entity.ExtractedProduct
	for i, t := range in.Tables {
		tableProducts, mapping := table.ExtractProducts(t)
		s.logger.Debug("extract.structured.table",
			"table", i,
			"rows", len(t.Rows),
			"products", len(tableProducts),
			"mapping_confidence", mapping.Confidence,
		)
		products = append(products, tableProducts...)
	}
	return products, nil
}

// modelTableStage sends the raw table cells to the fast tier for a model-only
// reconstruction. Everything it returns needs review by contract.
type modelTableStage struct {
	inv    llm.Invoker
	logger *slog.Logger
}

func (s *modelTableStage) Name() string { return "model_table_fallback" }

func (s *modelTableStage) Extract(ctx context.Context, in StageInput) ([]entity.ExtractedProduct, error) {
	rendered := renderTables(in.Tables)
	if rendered == "" {
		return nil, common.ParseError("no table cells to reconstruct")
	}

	system, user := llm.BuildTableExtractionPrompt(rendered)
	req := llm.InvokeRequest{
		Tier: llm.TierFast,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
			llm.SchemaMessage(llm.BuildProductListSchema()),
		},
		MaxTokens: 2000,
	}

	items, err := requestProductArray(ctx, s.inv, req, s.logger)
	if err != nil {
		return nil, err
	}

	products := make([]entity.ExtractedProduct, 0, len(items))
	for _, item := range items {
		p := fromModelProduct(item)
		p.Confidence = constants.ModelTableConfidence
		p.NeedsReview = true
		products = append(products, p)
	}
	return products, nil
}

// visionStage sends the original image straight to the vision tier with a
// self-contained prompt; no OCR table needed. The web-search tool is offered
// for unfamiliar brands.
type visionStage struct {
	inv    llm.Invoker
	tools  llm.ToolExecutor
	logger *slog.Logger
}

func (s *visionStage) Name() string { return "vision_fallback" }

func (s *visionStage) Extract(ctx context.Context, in StageInput) ([]entity.ExtractedProduct, error) {
	if len(in.Image) == 0 {
		return nil, common.ParseError("no image bytes for vision extraction")
	}

	system, user := llm.BuildVisionExtractionPrompt()
	req := llm.InvokeRequest{
		Tier: llm.TierVision,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user, ImageURL: openai.ImageDataURL(in.Image, in.MimeType)},
			llm.SchemaMessage(llm.BuildProductListSchema()),
		},
		MaxTokens: 3000,
		Tools:     []llm.Tool{llm.WebSearchTool()},
	}

	resp, err := llm.InvokeWithTools(ctx, s.inv, req, s.tools, s.logger)
	if err != nil {
		return nil, err
	}
	items, err := decodeProductArray(resp.Content)
	if err != nil {
		return nil, err
	}

	products := make([]entity.ExtractedProduct, 0, len(items))
	for _, item := range items {
		p := fromModelProduct(item)
		if item.Confidence > 0 {
			p.Confidence = item.Confidence
		} else {
			p.Confidence = constants.ReviewConfidenceThreshold
		}
		p.NeedsReview = p.Confidence < constants.ReviewConfidenceThreshold || p.NetAmount <= 0
		products = append(products, p)
	}
	return products, nil
}

// requestProductArray invokes the model, parses its output and validates it
// against the product list schema. One corrective re-prompt is allowed on a
// schema violation before giving up with a parse error.
func requestProductArray(ctx context.Context, inv llm.Invoker, req llm.InvokeRequest, logger *slog.Logger) ([]modelProduct, error) {
	resp, err := inv.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	items, err := decodeProductArray(resp.Content)
	if err == nil {
		return items, nil
	}
	logger.Warn("extract.model.schema_violation", "error", err)

	req.Messages = append(req.Messages,
		llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
		llm.Message{Role: llm.RoleUser, Content: "Your previous answer did not match the JSON Schema: " + err.Error() +
			". Return ONLY the corrected JSON array."},
	)
	resp, err = inv.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeProductArray(resp.Content)
}

func decodeProductArray(content string) ([]modelProduct, error) {
	raw, ok := llm.ParseModelJSON(content)
	if !ok {
		return nil, common.ParseError("no JSON value in model response")
	}
	if err := llm.ValidateJSONAgainstSchema(llm.BuildProductListSchema(), raw); err != nil {
		return nil, common.ValidationError(err.Error())
	}
	var items []modelProduct
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, common.ParseError(fmt.Sprintf("unmarshal products: %v", err))
	}
	return items, nil
}

func fromModelProduct(item modelProduct) entity.ExtractedProduct {
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	unitPrice := 0.0
	if quantity > 0 {
		unitPrice = item.NetAmount / quantity
	}
	return entity.ExtractedProduct{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(item.Name),
		Brand:     strings.TrimSpace(item.Brand),
		Quantity:  quantity,
		Unit:      constants.NormalizeUnitWithName(item.Unit, item.Name),
		NetAmount: item.NetAmount,
		UnitPrice: unitPrice,
		Category:  strings.TrimSpace(item.Category),
	}
}

// renderTables flattens OCR tables into pipe-separated rows for the
// reconstruction prompt.
func renderTables(tables []table.StructuredTable) string {
	var b strings.Builder
	for _, t := range tables {
		if len(t.Headers) > 0 {
			b.WriteString(strings.Join(t.Headers, " | "))
			b.WriteString("\n")
		}
		for _, row := range t.Rows {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
