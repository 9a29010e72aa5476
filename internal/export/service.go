package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nithinv16/dukaaon-extractor/internal/entity"
)

// Service produces XLSX bytes for bulk catalog entry of confirmed products.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportProductsXLSX returns an XLSX workbook (as bytes) listing the
// extracted products in the column order the catalog importer expects.
func (s *Service) ExportProductsXLSX(products []entity.ExtractedProduct) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Products"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defaultIndex, _ := f.GetSheetIndex("Sheet1"); defaultIndex != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Product Name",
		"Brand",
		"Quantity",
		"Unit",
		"Net Amount",
		"Unit Price",
		"Category",
		"Subcategory",
		"Confidence",
		"Needs Review",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for rowIdx, p := range products {
		values := []any{
			p.Name,
			p.Brand,
			p.Quantity,
			string(p.Unit),
			p.NetAmount,
			p.UnitPrice,
			p.Category,
			p.Subcategory,
			p.Confidence,
			p.NeedsReview,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.products.ok",
		"products", len(products),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
