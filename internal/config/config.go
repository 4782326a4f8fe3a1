package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the complete Clearcast configuration. It is built once at
// startup and passed into each stage constructor; nothing mutates it after
// construction.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Worker      WorkerConfig      `yaml:"worker" mapstructure:"worker"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	NLI         NLIConfig         `yaml:"nli" mapstructure:"nli"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Extract     ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Retrieve    RetrieveConfig    `yaml:"retrieve" mapstructure:"retrieve"`
	Judge       JudgeConfig       `yaml:"judge" mapstructure:"judge"`
	Answer      AnswerConfig      `yaml:"answer" mapstructure:"answer"`
	Credibility CredibilityConfig `yaml:"credibility" mapstructure:"credibility"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Prompt      PromptStyle       `yaml:"prompt" mapstructure:"prompt"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
}

// WorkerConfig configures the check-processing pool
type WorkerConfig struct {
	Count     int `yaml:"count" mapstructure:"count"`
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
}

// HTTPConfig configures outbound HTTP used by ingestion
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LLMConfig configures the generation collaborator
type LLMConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"` // Empty for api.openai.com; set for local gateways
	Model       string        `yaml:"model" mapstructure:"model"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
}

// NLIConfig configures the model-serving collaborator for entailment scoring
type NLIConfig struct {
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	BatchSize     int           `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// SearchConfig configures the evidence source adapters
type SearchConfig struct {
	WebAPIKey        string        `yaml:"web_api_key" mapstructure:"web_api_key"`
	WebBaseURL       string        `yaml:"web_base_url" mapstructure:"web_base_url"`
	FactCheckAPIKey  string        `yaml:"fact_check_api_key" mapstructure:"fact_check_api_key"`
	FactCheckBaseURL string        `yaml:"fact_check_base_url" mapstructure:"fact_check_base_url"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxResults       int           `yaml:"max_results" mapstructure:"max_results"`
	RatePerSecond    float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst            int           `yaml:"burst" mapstructure:"burst"`
	CacheTTL         time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ExtractConfig configures claim extraction
type ExtractConfig struct {
	MaxClaims int `yaml:"max_claims" mapstructure:"max_claims"`
}

// RetrieveConfig configures evidence retrieval and ranking
type RetrieveConfig struct {
	MaxQueriesPerClaim  int           `yaml:"max_queries_per_claim" mapstructure:"max_queries_per_claim"`
	MaxEvidencePerClaim int           `yaml:"max_evidence_per_claim" mapstructure:"max_evidence_per_claim"`
	DomainCap           int           `yaml:"domain_cap" mapstructure:"domain_cap"`
	ClaimTimeout        time.Duration `yaml:"claim_timeout" mapstructure:"claim_timeout"`
	SimilarityThreshold float64       `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	CredibilityWeight   float64       `yaml:"credibility_weight" mapstructure:"credibility_weight"`
	RelevanceWeight     float64       `yaml:"relevance_weight" mapstructure:"relevance_weight"`
	TemporalWeight      float64       `yaml:"temporal_weight" mapstructure:"temporal_weight"`
	TemporalHalfLife    time.Duration `yaml:"temporal_half_life" mapstructure:"temporal_half_life"`
}

// JudgeConfig carries the verdict-policy knobs. The exact dominance and
// mass constants are calibration targets, so they live here rather than in
// code.
type JudgeConfig struct {
	DominanceRatio  float64 `yaml:"dominance_ratio" mapstructure:"dominance_ratio"`
	MinWeightedMass float64 `yaml:"min_weighted_mass" mapstructure:"min_weighted_mass"`
	StaleAfterDays  int     `yaml:"stale_after_days" mapstructure:"stale_after_days"`
	HighCredibility float64 `yaml:"high_credibility" mapstructure:"high_credibility"`
}

// AnswerConfig configures the query answerer
type AnswerConfig struct {
	ConfidenceThreshold  int     `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	RelatednessThreshold float64 `yaml:"relatedness_threshold" mapstructure:"relatedness_threshold"`
}

// CredibilityConfig extends the built-in reputation tables
type CredibilityConfig struct {
	DomainScores     map[string]float64 `yaml:"domain_scores" mapstructure:"domain_scores"`
	FactCheckers     []string           `yaml:"fact_checkers" mapstructure:"fact_checkers"`
	ParentCompanies  map[string]string  `yaml:"parent_companies" mapstructure:"parent_companies"`
	DefaultScore     float64            `yaml:"default_score" mapstructure:"default_score"`
	FactCheckerFloor float64            `yaml:"fact_checker_floor" mapstructure:"fact_checker_floor"`
}

// StoreConfig configures check retention
type StoreConfig struct {
	RetentionTTL  time.Duration `yaml:"retention_ttl" mapstructure:"retention_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// PromptStyle holds the cross-stage prompt conventions: persona, date
// injection, confidence scale, and verdict vocabulary. Immutable; every
// stage receives the same instance.
type PromptStyle struct {
	Persona         string `yaml:"persona" mapstructure:"persona"`
	DateLayout      string `yaml:"date_layout" mapstructure:"date_layout"`
	ConfidenceScale string `yaml:"confidence_scale" mapstructure:"confidence_scale"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8420",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			HeartbeatInterval: 15 * time.Second,
		},
		Worker: WorkerConfig{
			Count:     4,
			QueueSize: 64,
		},
		HTTP: HTTPConfig{
			Timeout:      20 * time.Second,
			UserAgent:    "Clearcast/0.3 (+https://github.com/clearcast/clearcast)",
			MaxBodyBytes: 2 << 20, // 2 MiB
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Timeout:     45 * time.Second,
			MaxTokens:   1500,
			Temperature: 0.2,
		},
		NLI: NLIConfig{
			BaseURL:       "http://localhost:8501",
			Timeout:       30 * time.Second,
			BatchSize:     16,
			MaxConcurrent: 4,
		},
		Search: SearchConfig{
			WebBaseURL:       "https://api.search.brave.com/res/v1/web/search",
			FactCheckBaseURL: "https://factchecktools.googleapis.com/v1alpha1/claims:search",
			Timeout:          15 * time.Second,
			MaxResults:       10,
			RatePerSecond:    2,
			Burst:            4,
			CacheTTL:         15 * time.Minute,
		},
		Extract: ExtractConfig{
			MaxClaims: 8,
		},
		Retrieve: RetrieveConfig{
			MaxQueriesPerClaim:  3,
			MaxEvidencePerClaim: 10,
			DomainCap:           2,
			ClaimTimeout:        45 * time.Second,
			SimilarityThreshold: 0.8,
			CredibilityWeight:   0.4,
			RelevanceWeight:     0.4,
			TemporalWeight:      0.2,
			TemporalHalfLife:    90 * 24 * time.Hour,
		},
		Judge: JudgeConfig{
			DominanceRatio:  0.65,
			MinWeightedMass: 0.5,
			StaleAfterDays:  365,
			HighCredibility: 0.7,
		},
		Answer: AnswerConfig{
			ConfidenceThreshold:  40,
			RelatednessThreshold: 0.2,
		},
		Credibility: CredibilityConfig{
			DefaultScore:     0.4,
			FactCheckerFloor: 0.95,
		},
		Store: StoreConfig{
			RetentionTTL:  24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Prompt: PromptStyle{
			Persona:         "You are a careful fact-verification analyst. You reason only from the material you are given and never invent sources.",
			DateLayout:      "January 2, 2006",
			ConfidenceScale: "Confidence is an integer from 0 (no confidence) to 100 (complete confidence).",
		},
	}
}

// Load builds the effective configuration: defaults overlaid with whatever
// viper has resolved from the config file, CLEARCAST_* environment
// variables, and flags.
func Load() (Config, error) {
	cfg := Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	// API keys are usually provided through the environment rather than
	// the config file.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = viper.GetString("openai_api_key")
	}
	if cfg.Search.FactCheckAPIKey == "" {
		cfg.Search.FactCheckAPIKey = viper.GetString("google_fact_check_api_key")
	}
	if cfg.Search.WebAPIKey == "" {
		cfg.Search.WebAPIKey = viper.GetString("web_search_api_key")
	}
	return cfg, nil
}
