package feedback

import (
	"fmt"
	"strings"

	"github.com/nithinv16/dukaaon-extractor/internal/entity"
)

const maxPromptBlockChars = 1500

// RenderPromptBlock turns few-shot examples into the bounded text block
// injected into enhancement prompts.
func RenderPromptBlock(examples []entity.FewShotExample) string {
	if len(examples) == 0 {
		return ""
	}

	var b strings.Builder
	for i, ex := range examples {
		line := fmt.Sprintf("- %q was corrected to %q", ex.Record.ExtractedName, ex.Record.CorrectedName)
		if ex.Record.CorrectedCategory != "" && ex.Record.CorrectedCategory != ex.Record.ExtractedCategory {
			line += fmt.Sprintf(" (category: %s)", ex.Record.CorrectedCategory)
		}
		if ex.Record.CorrectedBrand != "" && ex.Record.CorrectedBrand != ex.Record.ExtractedBrand {
			line += fmt.Sprintf(" (brand: %s)", ex.Record.CorrectedBrand)
		}
		if ex.Record.CorrectedUnit != "" && ex.Record.CorrectedUnit != ex.Record.ExtractedUnit {
			line += fmt.Sprintf(" (unit: %s)", ex.Record.CorrectedUnit)
		}
		line += ". " + ex.Pattern + "\n"

		if b.Len()+len(line) > maxPromptBlockChars && i > 0 {
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}
