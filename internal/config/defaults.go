package config

import "time"

// Embedding providers.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// ONNX pooling modes.
const (
	PoolingMean = "mean"
	PoolingNone = "none"
)

// Rubric and gate defaults. The rubric's maximum is 80 points and a proposal
// passes at 60; both stay overridable from the review section of the config.
const (
	DefaultDuplicateThreshold = 0.8
	DefaultPassThreshold      = 60
	DefaultModelID            = "all-MiniLM-L6-v2"
)

// DefaultRubric returns the rubric point values and minimum section lengths.
func DefaultRubric() RubricConfig {
	return RubricConfig{
		HardwareSoftwarePoints:   20,
		EmergingTechPoints:       10,
		ProblemStatementPoints:   10,
		ObjectivesPoints:         10,
		DesignPoints:             10,
		LiteratureReviewPoints:   10,
		SocialImpactPoints:       10,
		ProblemStatementMinWords: 20,
		ObjectivesMinWords:       20,
		DesignMinWords:           20,
		LiteratureReviewMinWords: 30,
	}
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5001
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/fypmatch/data/proposals.db"
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = "/usr/local/var/fypmatch/data/vectorized_proposals.json"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	if cfg.Embedding.ModelID == "" {
		cfg.Embedding.ModelID = DefaultModelID
	}
	if cfg.Embedding.Provider == ProviderONNX && cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/fypmatch/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = PoolingMean
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OpenAIModel == "" {
		cfg.Embedding.OpenAIModel = "text-embedding-3-small"
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.RetryDelay == 0 {
		cfg.Embedding.RetryDelay = 2 * time.Second
	}
	if cfg.Review.DuplicateThreshold == 0 {
		cfg.Review.DuplicateThreshold = DefaultDuplicateThreshold
	}
	if cfg.Review.PassThreshold == 0 {
		cfg.Review.PassThreshold = DefaultPassThreshold
	}
	applyRubricDefaults(&cfg.Review.Rubric)
	if cfg.Suggest.DefaultK == 0 {
		cfg.Suggest.DefaultK = 3
	}
	if cfg.Suggest.MaxK == 0 {
		cfg.Suggest.MaxK = 50
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".docx", ".txt", ".md"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

func applyRubricDefaults(r *RubricConfig) {
	d := DefaultRubric()
	fill := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&r.HardwareSoftwarePoints, d.HardwareSoftwarePoints)
	fill(&r.EmergingTechPoints, d.EmergingTechPoints)
	fill(&r.ProblemStatementPoints, d.ProblemStatementPoints)
	fill(&r.ObjectivesPoints, d.ObjectivesPoints)
	fill(&r.DesignPoints, d.DesignPoints)
	fill(&r.LiteratureReviewPoints, d.LiteratureReviewPoints)
	fill(&r.SocialImpactPoints, d.SocialImpactPoints)
	fill(&r.ProblemStatementMinWords, d.ProblemStatementMinWords)
	fill(&r.ObjectivesMinWords, d.ObjectivesMinWords)
	fill(&r.DesignMinWords, d.DesignMinWords)
	fill(&r.LiteratureReviewMinWords, d.LiteratureReviewMinWords)
}
