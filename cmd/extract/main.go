package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/nithinv16/dukaaon-extractor/internal/common"
	"github.com/nithinv16/dukaaon-extractor/internal/export"
	"github.com/nithinv16/dukaaon-extractor/internal/extract"
	"github.com/nithinv16/dukaaon-extractor/internal/feedback"
	"github.com/nithinv16/dukaaon-extractor/internal/llm"
	"github.com/nithinv16/dukaaon-extractor/internal/llm/openai"
	"github.com/nithinv16/dukaaon-extractor/internal/taxonomy"
)

// One-shot extraction: image path in, JSON products (and optionally an XLSX
// workbook) out. Useful for debugging prompts and for bulk imports.
func main() {
	imagePath := flag.String("image", "", "path to the receipt/invoice image (required)")
	sellerID := flag.String("seller", "", "seller scope for feedback examples")
	xlsxPath := flag.String("xlsx", "", "also write the products as an XLSX workbook")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: extract -image <path> [-seller <id>] [-xlsx <path>]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	image, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read image: %v\n", err)
		os.Exit(1)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(*imagePath))

	ctx := context.Background()

	pool, err := taxonomy.OpenPool(ctx, taxonomy.PoolConfig{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	feedbackStore, err := feedback.Open(cfg.Feedback.DBPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedback store: %v\n", err)
		os.Exit(1)
	}
	defer feedbackStore.Close()

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		FastModel:   cfg.LLM.FastModel,
		VisionModel: cfg.LLM.VisionModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	var ocr extract.TableExtractor
	if cfg.OCR.Endpoint != "" {
		if ocr, err = extract.NewHTTPTableExtractor(cfg.OCR, logger); err != nil {
			fmt.Fprintf(os.Stderr, "table extraction client: %v\n", err)
			os.Exit(1)
		}
	}

	orchestrator := extract.NewOrchestrator(logger, extract.Config{
		GroupSize:  cfg.Extraction.GroupSize,
		GroupDelay: cfg.Extraction.GroupDelay,
		AutoCreate: false,
	}, ocr, client, llm.NewWebSearch(cfg.Search.APIKey, cfg.Search.Endpoint, logger),
		taxonomy.NewStore(pool, logger), feedbackStore)

	result := orchestrator.ExtractFromImage(ctx, image, mimeType, *sellerID)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}

	if *xlsxPath != "" && result.Success {
		workbook, err := export.NewService(logger).ExportProductsXLSX(result.Products)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export xlsx: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, workbook, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write xlsx: %v\n", err)
			os.Exit(1)
		}
	}

	if !result.Success {
		os.Exit(1)
	}
}
