package extract

import (
	"context"

	"github.com/nithinv16/dukaaon-extractor/internal/entity"
	"github.com/nithinv16/dukaaon-extractor/internal/table"
)

// TableExtractor is the structured-table OCR collaborator: image bytes in,
// zero or more detected tables out.
type TableExtractor interface {
	ExtractTables(ctx context.Context, image []byte, mimeType string) ([]table.StructuredTable, error)
}

// StageInput carries everything a fallback stage may need. Heuristic stages
// read Tables; model stages read the raw cells or the image itself.
type StageInput struct {
	Image    []byte
	MimeType string
	Tables   []table.StructuredTable
}

// Stage is one pluggable extraction strategy in the fallback chain. The
// orchestrator tries stages in order until one yields at least one product;
// variations in the chain are configuration, not separate pipelines.
type Stage interface {
	Name() string
	Extract(ctx context.Context, in StageInput) ([]entity.ExtractedProduct, error)
}
