package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nithinv16/dukaaon-extractor/internal/async"
	"github.com/nithinv16/dukaaon-extractor/internal/common"
	"github.com/nithinv16/dukaaon-extractor/internal/export"
	"github.com/nithinv16/dukaaon-extractor/internal/extract"
	"github.com/nithinv16/dukaaon-extractor/internal/feedback"
	"github.com/nithinv16/dukaaon-extractor/internal/llm"
	"github.com/nithinv16/dukaaon-extractor/internal/llm/openai"
	"github.com/nithinv16/dukaaon-extractor/internal/server"
	"github.com/nithinv16/dukaaon-extractor/internal/taxonomy"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := taxonomy.OpenPool(ctx, taxonomy.PoolConfig{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	feedbackStore, err := feedback.Open(cfg.Feedback.DBPath, logger)
	if err != nil {
		logger.Error("feedback store open failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := feedbackStore.Close(); err != nil {
			logger.Warn("feedback store close failed", "error", err)
		}
	}()

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		FastModel:   cfg.LLM.FastModel,
		VisionModel: cfg.LLM.VisionModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	search := llm.NewWebSearch(cfg.Search.APIKey, cfg.Search.Endpoint, logger)

	var ocr extract.TableExtractor
	if cfg.OCR.Endpoint != "" {
		ocrClient, err := extract.NewHTTPTableExtractor(cfg.OCR, logger)
		if err != nil {
			logger.Error("table extraction client failed", "error", err)
			os.Exit(1)
		}
		ocr = ocrClient
	} else {
		logger.Warn("TABLE_EXTRACT_URL not set; relying on model fallbacks only")
	}

	orchestrator := extract.NewOrchestrator(logger, extract.Config{
		GroupSize:  cfg.Extraction.GroupSize,
		GroupDelay: cfg.Extraction.GroupDelay,
		AutoCreate: true,
	}, ocr, client, search, taxonomy.NewStore(pool, logger), feedbackStore)

	// The queue handler publishes into the HTTP server's result map; srv is
	// assigned below, before any worker can receive a job.
	var srv *server.Server
	queue := async.NewExtractionQueue(func(ctx context.Context, job async.Job) error {
		result := orchestrator.ExtractFromImage(ctx, job.Image, job.MimeType, job.SellerID)
		if !result.Success {
			logger.Warn("upload produced no products", "upload_id", job.UploadID, "error", result.Error)
		}
		srv.RecordResult(job.UploadID, result)
		return nil
	}, logger,
		async.WithWorkers(cfg.Extraction.Workers),
		async.WithQueueSize(cfg.Extraction.QueueSize),
		async.WithJobTimeout(cfg.Extraction.JobTimeout),
	)
	srv = server.New(logger, orchestrator, queue, feedbackStore, export.NewService(logger))

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Routes(),
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("extractord serving", "grpc_addr", cfg.Server.GRPCAddr, "http_addr", cfg.Server.HTTPAddr)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
