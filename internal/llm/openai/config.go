package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nithinv16/dukaaon-extractor/internal/llm"
)

// Config for the OpenAI-compatible client. One client serves both tiers by
// mapping llm.TierFast and llm.TierVision to different models.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	FastModel   string        // simple parsing prompts
	VisionModel string        // tool-capable tier with image input
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg     Config
	http    *http.Client
	retrier *llm.Retrier
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.FastModel == "" {
		cfg.FastModel = "gpt-4o-mini"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		retrier: llm.NewRetrier(logger),
		logger:  logger,
	}
}
