package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration for the docugen service.
type Config struct {
	Environment   string              `toml:"environment"` // "development" or "production"
	Server        ServerConfig        `toml:"server"`
	Queue         QueueConfig         `toml:"queue"`
	Storage       StorageConfig       `toml:"storage"`
	Logging       LoggingConfig       `toml:"logging"`
	Pipeline      PipelineConfig      `toml:"pipeline"`
	Scanner       ScannerConfig       `toml:"scanner"`
	Analyzer      AnalyzerConfig      `toml:"analyzer"`
	Gemini        GeminiConfig        `toml:"gemini"`
	Claude        ClaudeConfig        `toml:"claude"`
	LLM           LLMConfig           `toml:"llm"`
	Github        GithubConfig        `toml:"github"`
	ArtifactStore ArtifactStoreConfig `toml:"artifact_store"`
	Workers       WorkersConfig       `toml:"workers"`
	Reaper        ReaperConfig        `toml:"reaper"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`      // e.g., "1s"
	Concurrency       int    `toml:"concurrency"`        // not read by the worker runtime; slot count is workers.count
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g., "5m"
	MaxReceive        int    `toml:"max_receive"`        // N_max before dead-letter
	QueueName         string `toml:"queue_name"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
}

type SQLiteConfig struct {
	Path string `toml:"path"` // database file path
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05.000"
}

// PipelineConfig holds per-job and per-stage deadlines (spec.md §5).
type PipelineConfig struct {
	SoftDeadline   string `toml:"soft_deadline"`   // e.g., "55m" - grace period before hard cutoff
	HardDeadline   string `toml:"hard_deadline"`   // e.g., "60m" - absolute cutoff
	FetchTimeout   string `toml:"fetch_timeout"`
	ScanTimeout    string `toml:"scan_timeout"`
	AnalyzeTimeout string `toml:"analyze_timeout"`
	GenerateTimeout string `toml:"generate_timeout"`
	PublishTimeout string `toml:"publish_timeout"`
	WorkspaceRoot  string `toml:"workspace_root"` // base dir for per-job scratch space
	PublishDir     string `toml:"publish_dir"`    // durable local copy, survives workspace cleanup
}

// ScannerConfig bounds the S2 Scan stage (spec.md §4.5 S2).
type ScannerConfig struct {
	MaxDepth        int      `toml:"max_depth"`        // D_max
	MaxFiles        int      `toml:"max_files"`        // F_max
	IgnoredNames    []string `toml:"ignored_names"`
	WriteManifest   bool     `toml:"write_manifest"`
}

// AnalyzerConfig bounds the S3 Analyze stage.
type AnalyzerConfig struct {
	MaxFiles int `toml:"max_files"` // A_max
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider selects which backend the generator tool calls.
type LLMProvider string

const (
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig contains the retry policy and provider selection shared by the
// generator tool (spec.md §4.5 S4, §4.6).
type LLMConfig struct {
	DefaultProvider    LLMProvider `toml:"default_provider"`
	MaxRetries         int         `toml:"max_retries"`          // R_model
	RetryBaseDelay     string      `toml:"retry_base_delay"`     // e.g. "500ms"
	RetryMaxDelay      string      `toml:"retry_max_delay"`      // e.g. "10s"
	ReadmeCharBudget   int         `toml:"readme_char_budget"`   // N_readme
	OutputTokenBudget  int         `toml:"output_token_budget"`  // T_out
}

type GithubConfig struct {
	DefaultCredential string `toml:"default_credential"` // token used when caller supplies none
	RequestTimeout    string `toml:"request_timeout"`
}

// ArtifactStoreConfig selects and configures the Artifact Store Gateway
// (spec.md §4.7). When Enabled is false the BadgerGateway is used.
type ArtifactStoreConfig struct {
	Enabled  bool   `toml:"enabled"`
	Bucket   string `toml:"bucket"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"` // override for S3-compatible stores (MinIO/R2)
	BaseURL  string `toml:"base_url"` // public base URL used to build the returned artifact URL
	Badger   BadgerGatewayConfig `toml:"badger"`
}

type BadgerGatewayConfig struct {
	Path string `toml:"path"`
}

type WorkersConfig struct {
	Count int `toml:"count"` // W in spec.md §5
}

// ReaperConfig drives the periodic sweep for jobs stuck pending past their
// enqueue timeout (expansion, grounded in robfig/cron). Crash-recovery
// redelivery is handled separately by the Worker Runtime.
type ReaperConfig struct {
	Schedule        string `toml:"schedule"`         // cron expression
	EnqueueTimeout  string `toml:"enqueue_timeout"`  // time a job may sit "pending" before reaping
}

// NewDefaultConfig creates a configuration with production-safe defaults.
// Only user-facing settings are expected to be overridden in docugen.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8420,
			Host: "0.0.0.0",
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			Concurrency:       4,
			VisibilityTimeout: "5m",
			MaxReceive:        5,
			QueueName:         "docugen_jobs",
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{Path: "./data/docugen.db"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Pipeline: PipelineConfig{
			SoftDeadline:    "55m",
			HardDeadline:    "60m",
			FetchTimeout:    "2m",
			ScanTimeout:     "1m",
			AnalyzeTimeout:  "3m",
			GenerateTimeout: "5m",
			PublishTimeout:  "1m",
			WorkspaceRoot:   "./workspace",
			PublishDir:      "./data/published",
		},
		Scanner: ScannerConfig{
			MaxDepth: 10, // D_max
			MaxFiles: 1000, // F_max
			IgnoredNames: []string{
				".git", "node_modules", "vendor", "dist", "build", ".venv",
				"venv", "__pycache__", ".tox", "target", ".next", ".terraform",
				".idea", ".vscode",
			},
			WriteManifest: true,
		},
		Analyzer: AnalyzerConfig{MaxFiles: 20}, // A_max
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "5m",
			Temperature: 0.3,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.3,
		},
		LLM: LLMConfig{
			DefaultProvider:   LLMProviderClaude,
			MaxRetries:        2, // R_model
			RetryBaseDelay:    "500ms",
			RetryMaxDelay:     "10s",
			ReadmeCharBudget:  3000, // N_readme
			OutputTokenBudget: 8000, // T_out
		},
		Github: GithubConfig{
			RequestTimeout: "30s",
		},
		ArtifactStore: ArtifactStoreConfig{
			Enabled: false,
			Badger:  BadgerGatewayConfig{Path: "./data/artifacts"},
		},
		Workers: WorkersConfig{Count: 2}, // W in spec.md §4.4
		Reaper: ReaperConfig{
			Schedule:       "@every 1m",
			EnqueueTimeout: "5m",
		},
	}
}

// LoadFromFile loads and merges a single TOML file over defaults.
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles merges defaults, then each TOML file in order (later files
// win), then environment overrides. CLI flags apply afterwards via
// ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DOCUGEN_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("DOCUGEN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DOCUGEN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if pollInterval := os.Getenv("DOCUGEN_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("DOCUGEN_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if visibilityTimeout := os.Getenv("DOCUGEN_QUEUE_VISIBILITY_TIMEOUT"); visibilityTimeout != "" {
		config.Queue.VisibilityTimeout = visibilityTimeout
	}
	if maxReceive := os.Getenv("DOCUGEN_QUEUE_MAX_RECEIVE"); maxReceive != "" {
		if mr, err := strconv.Atoi(maxReceive); err == nil {
			config.Queue.MaxReceive = mr
		}
	}
	if queueName := os.Getenv("DOCUGEN_QUEUE_NAME"); queueName != "" {
		config.Queue.QueueName = queueName
	}

	if sqlitePath := os.Getenv("DOCUGEN_STORAGE_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}

	if level := os.Getenv("DOCUGEN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("DOCUGEN_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("DOCUGEN_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if softDeadline := os.Getenv("DOCUGEN_PIPELINE_SOFT_DEADLINE"); softDeadline != "" {
		config.Pipeline.SoftDeadline = softDeadline
	}
	if hardDeadline := os.Getenv("DOCUGEN_PIPELINE_HARD_DEADLINE"); hardDeadline != "" {
		config.Pipeline.HardDeadline = hardDeadline
	}
	if workspaceRoot := os.Getenv("DOCUGEN_PIPELINE_WORKSPACE_ROOT"); workspaceRoot != "" {
		config.Pipeline.WorkspaceRoot = workspaceRoot
	}

	if maxDepth := os.Getenv("DOCUGEN_SCANNER_MAX_DEPTH"); maxDepth != "" {
		if md, err := strconv.Atoi(maxDepth); err == nil {
			config.Scanner.MaxDepth = md
		}
	}
	if maxFiles := os.Getenv("DOCUGEN_SCANNER_MAX_FILES"); maxFiles != "" {
		if mf, err := strconv.Atoi(maxFiles); err == nil {
			config.Scanner.MaxFiles = mf
		}
	}

	if maxFiles := os.Getenv("DOCUGEN_ANALYZER_MAX_FILES"); maxFiles != "" {
		if mf, err := strconv.Atoi(maxFiles); err == nil {
			config.Analyzer.MaxFiles = mf
		}
	}

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("DOCUGEN_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("DOCUGEN_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("DOCUGEN_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("DOCUGEN_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("DOCUGEN_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}

	if provider := os.Getenv("DOCUGEN_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if maxRetries := os.Getenv("DOCUGEN_LLM_MAX_RETRIES"); maxRetries != "" {
		if mr, err := strconv.Atoi(maxRetries); err == nil {
			config.LLM.MaxRetries = mr
		}
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		config.Github.DefaultCredential = token
	}
	if token := os.Getenv("DOCUGEN_GITHUB_TOKEN"); token != "" {
		config.Github.DefaultCredential = token
	}

	if enabled := os.Getenv("DOCUGEN_ARTIFACT_STORE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.ArtifactStore.Enabled = e
		}
	}
	if bucket := os.Getenv("DOCUGEN_ARTIFACT_STORE_BUCKET"); bucket != "" {
		config.ArtifactStore.Bucket = bucket
	}
	if region := os.Getenv("DOCUGEN_ARTIFACT_STORE_REGION"); region != "" {
		config.ArtifactStore.Region = region
	}
	if baseURL := os.Getenv("DOCUGEN_ARTIFACT_STORE_BASE_URL"); baseURL != "" {
		config.ArtifactStore.BaseURL = baseURL
	}

	if count := os.Getenv("DOCUGEN_WORKERS_COUNT"); count != "" {
		if c, err := strconv.Atoi(count); err == nil {
			config.Workers.Count = c
		}
	}

	if schedule := os.Getenv("DOCUGEN_REAPER_SCHEDULE"); schedule != "" {
		config.Reaper.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides, which take
// priority over config files and environment variables.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ParseDurationOr parses s and falls back to def on error or empty input.
func ParseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
