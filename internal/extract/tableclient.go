package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nithinv16/dukaaon-extractor/internal/common"
	"github.com/nithinv16/dukaaon-extractor/internal/llm"
	"github.com/nithinv16/dukaaon-extractor/internal/table"
)

// HTTPTableExtractor calls the hosted structured-table extraction service.
type HTTPTableExtractor struct {
	endpoint string
	apiKey   string
	http     *http.Client
	retrier  *llm.Retrier
	logger   *slog.Logger
}

func NewHTTPTableExtractor(cfg common.OCRConfig, logger *slog.Logger) (*HTTPTableExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		return nil, common.ConfigurationError("TABLE_EXTRACT_URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPTableExtractor{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		retrier:  llm.NewRetrier(logger),
		logger:   logger,
	}, nil
}

func (c *HTTPTableExtractor) ExtractTables(ctx context.Context, image []byte, mimeType string) ([]table.StructuredTable, error) {
	start := time.Now()
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	var tables []table.StructuredTable
	err := c.retrier.Do(ctx, "ocr.extract_tables", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", mimeType)
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return common.TransientError("table extraction request failed", err)
		}
		defer func(body io.ReadCloser) {
			if err := body.Close(); err != nil {
				c.logger.Warn("ocr response body close error", "error", err)
			}
		}(resp.Body)

		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode/100 != 2 {
			err := fmt.Errorf("table extraction status %d: %s", resp.StatusCode, string(raw))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return common.TransientError("table extraction unavailable", err)
			}
			return err
		}

		var body struct {
			Tables []table.StructuredTable `json:"tables"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("decode table extraction response: %w", err)
		}
		tables = body.Tables
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("ocr.extract_tables.ok",
		"tables", len(tables),
		"image_bytes", len(image),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return tables, nil
}
