package embedding

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/fypmatch/internal/config"
	"github.com/hyperjump/fypmatch/pkg/utils"
)

// ONNXConfig configures the local ONNX embedder.
type ONNXConfig struct {
	ModelPath  string
	ModelID    string
	Dimensions int
	MaxTokens  int
	Pooling    string
	Tokenizer  Tokenizer
}

// NewFromConfig builds the configured provider and wraps it with the LRU cache.
// There is no fallback between providers: a provider that cannot start is an error.
func NewFromConfig(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	logger = utils.LoggerOrNop(logger)

	var base Embedder
	switch cfg.Provider {
	case config.ProviderMock:
		base = NewMockEmbedder(cfg.Dimensions)
	case config.ProviderOpenAI:
		e, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    os.Getenv("OPENAI_BASE_URL"),
			Model:      cfg.OpenAIModel,
			Dimensions: cfg.Dimensions,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		}, WithOpenAILogger(logger))
		if err != nil {
			return nil, err
		}
		base = e
	case config.ProviderONNX:
		var tok Tokenizer = &SimpleTokenizer{}
		if cfg.TokenizerPath != "" {
			hf, err := NewHFTokenizer(cfg.TokenizerPath)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
			}
			tok = hf
		} else {
			logger.Warn("no tokenizer_path configured, using hash tokenizer; embeddings will not match the pretrained vocabulary")
		}
		e, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			ModelID:    cfg.ModelID,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			Pooling:    cfg.Pooling,
			Tokenizer:  tok,
		})
		if err != nil {
			return nil, err
		}
		base = e
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	cached, err := NewCachedEmbedder(base, cfg.CacheSize)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	logger.Info("embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.String("model_id", cached.ModelID()),
		zap.Int("dimensions", cached.Dimensions()))
	return cached, nil
}
