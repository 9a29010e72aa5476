package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nithinv16/dukaaon-extractor/constants"
	"github.com/nithinv16/dukaaon-extractor/internal/common"
	"github.com/nithinv16/dukaaon-extractor/internal/entity"
	"github.com/nithinv16/dukaaon-extractor/internal/feedback"
	"github.com/nithinv16/dukaaon-extractor/internal/llm"
	"github.com/nithinv16/dukaaon-extractor/internal/table"
	"github.com/nithinv16/dukaaon-extractor/internal/taxonomy"
)

// enhancement is one per-product correction coming back from the model.
type enhancement struct {
	Name         string `json:"name"`
	Brand        string `json:"brand,omitempty"`
	Category     string `json:"category,omitempty"`
	Subcategory  string `json:"subcategory,omitempty"`
	Unit         string `json:"unit,omitempty"`
	VariantName  string `json:"variant_name,omitempty"`
	VariantValue string `json:"variant_value,omitempty"`
}

// enhance runs the ENHANCE stage: one model pass correcting brand, category
// and unit across the candidate list, merged back onto the originals, then
// taxonomy resolution for every product in bounded concurrent groups.
func (o *Orchestrator) enhance(ctx context.Context, products []entity.ExtractedProduct, sellerID string) error {
	categories, err := o.taxonomy.ListCategories(ctx)
	if err != nil {
		return common.WrapError(err, "list categories")
	}
	categoryNames := make([]string, len(categories))
	for i, c := range categories {
		categoryNames[i] = c.Name
	}
	subcategories := o.listSubcategories(ctx, categories)

	fewShot := o.fewShotBlock(ctx, products, sellerID)

	enhancements, err := o.requestEnhancements(ctx, products, categoryNames, subcategories, fewShot)
	if err != nil {
		return err
	}
	mergeEnhancements(products, enhancements)

	return o.resolveTaxonomy(ctx, products)
}

// listSubcategories loads each category's subcategory list; a per-category
// failure just leaves that category without subcategory hints.
func (o *Orchestrator) listSubcategories(ctx context.Context, categories []taxonomy.Category) map[string][]string {
	out := make(map[string][]string, len(categories))
	for _, c := range categories {
		subs, err := o.taxonomy.ListSubcategories(ctx, c.ID)
		if err != nil {
			o.logger.Warn("extract.enhance.list_subcategories_failed", "category", c.Name, "error", err)
			continue
		}
		names := make([]string, len(subs))
		for i, s := range subs {
			names[i] = s.Name
		}
		out[c.Name] = names
	}
	return out
}

// fewShotBlock retrieves past corrections similar to the current candidates
// and renders them for the enhancement prompt. Deduplicated across products
// and bounded by the renderer.
func (o *Orchestrator) fewShotBlock(ctx context.Context, products []entity.ExtractedProduct, sellerID string) string {
	if o.feedback == nil {
		return ""
	}

	seen := make(map[string]bool)
	var examples []entity.FewShotExample
	for _, p := range products {
		found, err := o.feedback.Examples(ctx, p.Name, sellerID, o.cfg.FewShotExamples)
		if err != nil {
			o.logger.Warn("extract.enhance.fewshot_failed", "name", p.Name, "error", err)
			continue
		}
		for _, ex := range found {
			key := ex.Record.ID.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			examples = append(examples, ex)
		}
		if len(examples) >= o.cfg.FewShotExamples*2 {
			break
		}
	}
	return feedback.RenderPromptBlock(examples)
}

func (o *Orchestrator) requestEnhancements(
	ctx context.Context,
	products []entity.ExtractedProduct,
	categories []string,
	subcategories map[string][]string,
	fewShot string,
) ([]enhancement, error) {
	payload := make([]map[string]any, len(products))
	for i, p := range products {
		payload[i] = map[string]any{
			"name":     p.Name,
			"brand":    p.Brand,
			"quantity": p.Quantity,
			"unit":     string(p.Unit),
			"category": p.Category,
		}
	}
	productsJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	system, user := llm.BuildEnhancementPrompt(string(productsJSON), categories, subcategories, fewShot)
	req := llm.InvokeRequest{
		Tier: llm.TierFast,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
			llm.SchemaMessage(llm.BuildEnhancementListSchema()),
		},
		MaxTokens: 2000,
	}

	resp, err := o.inv.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	enhancements, err := decodeEnhancements(resp.Content)
	if err == nil {
		return enhancements, nil
	}
	o.logger.Warn("extract.enhance.schema_violation", "error", err)

	req.Messages = append(req.Messages,
		llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
		llm.Message{Role: llm.RoleUser, Content: "Your previous answer did not match the JSON Schema: " + err.Error() +
			". Return ONLY the corrected JSON array."},
	)
	resp, err = o.inv.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeEnhancements(resp.Content)
}

func decodeEnhancements(content string) ([]enhancement, error) {
	raw, ok := llm.ParseModelJSON(content)
	if !ok {
		return nil, common.ParseError("no JSON value in enhancement response")
	}
	if err := llm.ValidateJSONAgainstSchema(llm.BuildEnhancementListSchema(), raw); err != nil {
		return nil, common.ValidationError(err.Error())
	}
	var out []enhancement
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, common.ParseError(fmt.Sprintf("unmarshal enhancements: %v", err))
	}
	return out, nil
}

// mergeEnhancements merges model corrections onto the originals, keyed by
// normalized product name. Index position is the fallback only when no name
// matches; concurrent completion order makes position alone unreliable.
func mergeEnhancements(products []entity.ExtractedProduct, enhancements []enhancement) {
	byName := make(map[string]int, len(products))
	for i, p := range products {
		byName[mergeKey(p.Name)] = i
	}

	for i, e := range enhancements {
		idx, ok := byName[mergeKey(e.Name)]
		if !ok {
			if i >= len(products) {
				continue
			}
			idx = i
		}
		applyEnhancement(&products[idx], e)
	}
}

func applyEnhancement(p *entity.ExtractedProduct, e enhancement) {
	if name := strings.TrimSpace(e.Name); name != "" {
		p.Name = name
	}
	if e.Brand != "" {
		p.Brand = strings.TrimSpace(e.Brand)
	}
	if e.Category != "" {
		p.Category = strings.TrimSpace(e.Category)
	}
	if e.Subcategory != "" {
		p.Subcategory = strings.TrimSpace(e.Subcategory)
	}
	if e.Unit != "" {
		p.Unit = constants.NormalizeUnitWithName(e.Unit, p.Name)
	}
	if e.VariantName != "" {
		p.VariantName = e.VariantName
		p.VariantValue = e.VariantValue
	}
}

func mergeKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(table.CleanProductName(name)), " "))
}

// resolveTaxonomy resolves category, subcategory and brand for every product
// through the matcher, in bounded concurrent groups with a pause between
// groups. A single item's failure lands in its Error field and never aborts
// the batch.
func (o *Orchestrator) resolveTaxonomy(ctx context.Context, products []entity.ExtractedProduct) error {
	brands, err := o.taxonomy.ListBrands(ctx)
	if err != nil {
		o.logger.Warn("extract.enhance.list_brands_failed", "error", err)
	}

	for group := 0; group < len(products); group += o.cfg.GroupSize {
		if group > 0 {
			if err := o.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		end := group + o.cfg.GroupSize
		if end > len(products) {
			end = len(products)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := group; i < end; i++ {
			p := &products[i]
			g.Go(func() error {
				if err := o.resolveProduct(gctx, p, brands); err != nil {
					p.Error = err.Error()
					p.NeedsReview = true
					o.logger.Warn("extract.enhance.item_failed", "name", p.Name, "error", err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) resolveProduct(ctx context.Context, p *entity.ExtractedProduct, brands []string) error {
	if p.Category != "" {
		match, err := o.matcher.ResolveCategory(ctx, p.Category)
		if err != nil {
			return err
		}
		if match.Name != "" {
			p.Category = match.Name
			p.CategoryIsNew = match.IsNew
		}

		if p.Subcategory != "" && match.ID != 0 {
			sub, err := o.matcher.ResolveSubcategory(ctx, p.Subcategory, match.ID)
			if err != nil {
				return err
			}
			if sub.Name != "" {
				p.Subcategory = sub.Name
				p.SubcategoryIsNew = sub.IsNew
			}
		}
	}

	if p.Brand != "" {
		p.Brand = taxonomy.ResolveBrand(p.Brand, brands).Name
	}
	return nil
}
