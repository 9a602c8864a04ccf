package cfg

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/intel-comb.db" description:"SQLite database path (use :memory: for an ephemeral store)"`
	PolicyFile string `long:"policy-file" env:"POLICY_FILE" default:"./policy.yml" description:"YAML file with alert policy (thresholds, cooldowns, tiers)"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of items evaluated concurrently within a sweep"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Sweep interval in seconds"`
	BatchSize         int    `long:"batch-size" env:"BATCH_SIZE" default:"200" description:"Maximum number of pending items evaluated per sweep"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// LLM extraction
	LLMProvider          string `long:"llm-provider" env:"LLM_PROVIDER" default:"anthropic" choice:"anthropic" choice:"openai" choice:"ollama" description:"LLM provider used for observation extraction"`
	LLMModel             string `long:"llm-model" env:"LLM_MODEL" description:"Model name (provider default when empty)"`
	LLMAPIKey            string `long:"llm-api-key" env:"LLM_API_KEY" description:"LLM provider API key"`
	LLMAPIURL            string `long:"llm-api-url" env:"LLM_API_URL" description:"Override the provider endpoint"`
	LLMTimeout           int    `long:"llm-timeout" env:"LLM_TIMEOUT" default:"60" description:"LLM request timeout in seconds"`
	LLMRequestsPerMinute int    `long:"llm-rpm" env:"LLM_REQUESTS_PER_MINUTE" default:"60" description:"LLM request rate limit"`
	LLMMaxRetries        int    `long:"llm-max-retries" env:"LLM_MAX_RETRIES" default:"2" description:"Retries for failed LLM requests"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// EnvFiles are read before parsing. Variables already set in the process win.
var EnvFiles = []string{".env"}

func Load() (*Cfg, error) {
	loadEnvFiles(EnvFiles)
	return LoadArgs(nil)
}

func loadEnvFiles(files []string) {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			slog.Warn("Failed to load env file", "file", file, "error", err)
		}
	}
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:               raw.DBPath,
		PolicyFile:           raw.PolicyFile,
		Port:                 raw.Port,
		WorkerCount:          raw.WorkerCount,
		SchedulerInterval:    raw.SchedulerInterval,
		BatchSize:            raw.BatchSize,
		APIAccessKey:         raw.APIAccessKey,
		LLMProvider:          raw.LLMProvider,
		LLMModel:             raw.LLMModel,
		LLMAPIKey:            raw.LLMAPIKey,
		LLMAPIURL:            raw.LLMAPIURL,
		LLMTimeout:           raw.LLMTimeout,
		LLMRequestsPerMinute: raw.LLMRequestsPerMinute,
		LLMMaxRetries:        raw.LLMMaxRetries,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	positive := map[string]int{
		"worker count":       cfg.WorkerCount,
		"scheduler interval": cfg.SchedulerInterval,
		"batch size":         cfg.BatchSize,
		"llm timeout":        cfg.LLMTimeout,
		"llm rpm":            cfg.LLMRequestsPerMinute,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	if cfg.LLMMaxRetries < 0 {
		return fmt.Errorf("llm max retries must be non-negative, got %d", cfg.LLMMaxRetries)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
