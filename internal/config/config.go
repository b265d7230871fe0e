// Package config provides configuration management for PatchPilot.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for a PatchPilot run.
type Config struct {
	// Model selects the provider and model, litellm style:
	// "vertex_ai/claude-3-7-sonnet@20250219", "bedrock/<model-id>",
	// "azure/<deployment>", "gemini/<model>", "anthropic/<model>".
	Model string

	// DataDir is the directory for persistent data (SQLite DB, etc.).
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// ResultsDir receives per-run artifacts (prompts, responses, fixes).
	ResultsDir string

	// Extensions limits the project scan to these file suffixes.
	Extensions []string

	// Temperature and MaxTokens are the default completion parameters.
	// The repair stage overrides temperature on its own.
	Temperature float64
	MaxTokens   int

	// TopFiles caps how many suspect files move past file localization.
	// Default: 3.
	TopFiles int

	// ContextWindow pads extracted code sections with surrounding lines.
	// Default: 0.
	ContextWindow int

	// MaxSamples is the number of repair samples drawn per run. Default: 1.
	MaxSamples int

	// PruneFolders enables the irrelevant-folders pass between file and
	// element localization. Default: off.
	PruneFolders bool

	// Addr is the address the HTTP server listens on in serve mode.
	Addr string

	// AWSRegion applies to bedrock/ models. The rest of the AWS
	// credentials come from the standard environment chain.
	AWSRegion string

	// Azure OpenAI settings for azure/ models, usually supplied through a
	// project-local .env file.
	AzureEndpoint   string
	AzureAPIKey     string
	AzureAPIVersion string

	// VertexKeyPath is the service-account JSON key file for vertex_ai/
	// models. The GCP project ID is read from the key file.
	VertexKeyPath string

	// VertexLocation is the Vertex AI region.
	VertexLocation string

	// GeminiAPIKey authenticates gemini/ models.
	GeminiAPIKey string

	// AnthropicAPIKey authenticates anthropic/ models (direct API, no
	// cloud intermediary).
	AnthropicAPIKey string

	// Debug enables full prompt/response logging.
	Debug bool
}

// Load creates a Config from the environment. Values are resolved in
// order: environment variable > project-local .env > config file > default.
func Load() (*Config, error) {
	// A .env next to the working directory first (it never overrides real
	// env vars), then ~/.patchpilot/config.env the same way.
	_ = godotenv.Load()
	loadConfigFile()

	dataDir := envOr("PATCHPILOT_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		Model:           envOr("PATCHPILOT_MODEL", "vertex_ai/claude-3-7-sonnet@20250219"),
		DataDir:         dataDir,
		DatabasePath:    filepath.Join(dataDir, "patchpilot.db"),
		ResultsDir:      envOr("PATCHPILOT_RESULTS_DIR", "results"),
		Extensions:      splitExtensions(envOr("PATCHPILOT_EXTENSIONS", ".go,.py")),
		Temperature:     envOrFloat("PATCHPILOT_TEMPERATURE", 0.1),
		MaxTokens:       envOrInt("PATCHPILOT_MAX_TOKENS", 4096),
		TopFiles:        envOrInt("PATCHPILOT_TOP_FILES", 3),
		ContextWindow:   envOrInt("PATCHPILOT_CONTEXT_WINDOW", 0),
		MaxSamples:      envOrInt("PATCHPILOT_MAX_SAMPLES", 1),
		PruneFolders:    os.Getenv("PATCHPILOT_PRUNE_FOLDERS") == "1",
		Addr:            envOr("PATCHPILOT_ADDR", ":7090"),
		AWSRegion:       envOr("AWS_REGION", "us-west-2"),
		AzureEndpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureAPIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
		AzureAPIVersion: os.Getenv("AZURE_OPENAI_API_VERSION"),
		VertexKeyPath:   envOr("PATCHPILOT_VERTEX_KEY", "security-key.json"),
		VertexLocation:  envOr("PATCHPILOT_VERTEX_LOCATION", "us-east5"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Debug:           os.Getenv("PATCHPILOT_DEBUG") == "1",
	}

	return cfg, nil
}

// loadConfigFile reads ~/.patchpilot/config.env and sets any values that are
// not already present in the environment. This ensures env vars always win.
func loadConfigFile() {
	path := filepath.Join(defaultDataDir(), "config.env")
	f, err := os.Open(path)
	if err != nil {
		return // file doesn't exist or can't be read, that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		// Only set if not already in the environment.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// Validate checks that the selected model's provider has what it needs.
func (c *Config) Validate() error {
	provider, _, ok := strings.Cut(c.Model, "/")
	if !ok {
		return fmt.Errorf("model %q must look like provider/model", c.Model)
	}
	switch provider {
	case "bedrock":
		// Credentials come from the standard AWS environment chain.
		return nil
	case "azure":
		if c.AzureEndpoint == "" || c.AzureAPIKey == "" || c.AzureAPIVersion == "" {
			return fmt.Errorf("azure/ models require AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and AZURE_OPENAI_API_VERSION (a .env file works)")
		}
		return nil
	case "vertex_ai":
		if _, err := os.Stat(c.VertexKeyPath); err != nil {
			return fmt.Errorf("vertex_ai/ models require a service-account key at %s: %w", c.VertexKeyPath, err)
		}
		return nil
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("gemini/ models require GEMINI_API_KEY")
		}
		return nil
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic/ models require ANTHROPIC_API_KEY")
		}
		return nil
	default:
		return fmt.Errorf("unknown provider %q (supported: bedrock, azure, vertex_ai, gemini, anthropic)", provider)
	}
}

func envOrFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitExtensions(s string) []string {
	var exts []string
	for _, e := range strings.Split(s, ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return exts
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".patchpilot"
	}
	return filepath.Join(home, ".patchpilot")
}
