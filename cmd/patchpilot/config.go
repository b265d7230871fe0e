package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// configKey describes a single configuration value.
type configKey struct {
	Key      string
	Desc     string
	Required bool
	Secret   bool
	Prefix   string // expected prefix for validation (e.g. "AIza"), empty = no check
}

// allConfigKeys lists every configurable value in display order.
var allConfigKeys = []configKey{
	{"PATCHPILOT_MODEL", "Model as provider/name (bedrock, azure, vertex_ai, gemini, anthropic)", true, false, ""},
	{"AWS_REGION", "AWS region for bedrock/ models", false, false, ""},
	{"AZURE_OPENAI_ENDPOINT", "Azure OpenAI endpoint URL", false, false, "https://"},
	{"AZURE_OPENAI_API_KEY", "Azure OpenAI API key", false, true, ""},
	{"AZURE_OPENAI_API_VERSION", "Azure OpenAI API version (e.g. 2024-12-01-preview)", false, false, ""},
	{"PATCHPILOT_VERTEX_KEY", "Path to a Vertex AI service-account key JSON", false, false, ""},
	{"PATCHPILOT_VERTEX_LOCATION", "Vertex AI location (e.g. us-east5)", false, false, ""},
	{"GEMINI_API_KEY", "Gemini API key", false, true, "AIza"},
	{"ANTHROPIC_API_KEY", "Anthropic API key", false, true, "sk-ant-"},
	{"PATCHPILOT_EXTENSIONS", "File extensions to scan (comma separated)", false, false, ""},
	{"PATCHPILOT_ADDR", "HTTP server listen address (serve mode)", false, false, ""},
}

var validProviders = map[string]bool{
	"bedrock": true, "azure": true, "vertex_ai": true, "gemini": true, "anthropic": true,
}

// providerKeys maps a provider to the credential keys its models need.
var providerKeys = map[string][]string{
	"bedrock":   {"AWS_REGION"},
	"azure":     {"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_API_VERSION"},
	"vertex_ai": {"PATCHPILOT_VERTEX_KEY", "PATCHPILOT_VERTEX_LOCATION"},
	"gemini":    {"GEMINI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
}

// ---------------------------------------------------------------------------
// Cobra commands
// ---------------------------------------------------------------------------

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage PatchPilot configuration",
	Long: `Manage PatchPilot configuration (model choice, provider credentials).

Configuration is stored in ~/.patchpilot/config.env and can be overridden
by environment variables.

  patchpilot config setup              Interactive setup wizard
  patchpilot config set KEY VALUE      Set a single config value
  patchpilot config show               Show current configuration
  patchpilot config path               Print config file path`,
}

var (
	setupNonInteractive bool
	setupModel          string
)

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Long: `Guided setup that walks you through configuring PatchPilot step by step.
It picks a model, then asks only for that provider's credentials.

Non-interactive mode for CI/scripting:
  patchpilot config setup --non-interactive --model=gemini/gemini-2.0-flash`,
	RunE: runConfigSetup,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a config value",
	Long: `Set a single configuration value. Example:
  patchpilot config set GEMINI_API_KEY AIzaxxxxxxxxxxxx`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display all configured values. Secrets are masked.",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(configFilePath())
		return nil
	},
}

func init() {
	configSetupCmd.Flags().BoolVar(&setupNonInteractive, "non-interactive", false, "Run without prompts (requires --model)")
	configSetupCmd.Flags().StringVar(&setupModel, "model", "", "Model as provider/name (non-interactive mode)")

	configCmd.AddCommand(configSetupCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// ---------------------------------------------------------------------------
// Config file helpers
// ---------------------------------------------------------------------------

// configFilePath returns ~/.patchpilot/config.env.
func configFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".patchpilot", "config.env")
	}
	return filepath.Join(home, ".patchpilot", "config.env")
}

// loadConfigFileValues reads key=value pairs from the config file.
func loadConfigFileValues() (map[string]string, error) {
	values := make(map[string]string)
	path := configFilePath()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			values[parts[0]] = parts[1]
		}
	}
	return values, scanner.Err()
}

// saveConfigFile writes key=value pairs to the config file.
func saveConfigFile(values map[string]string) error {
	path := configFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# PatchPilot configuration")
	fmt.Fprintln(f, "# Managed by: patchpilot config")
	fmt.Fprintln(f, "# Environment variables override these values.")
	fmt.Fprintln(f)

	// Write in a stable order: known keys first, then any extras.
	written := make(map[string]bool)
	for _, ck := range allConfigKeys {
		if v, ok := values[ck.Key]; ok && v != "" {
			fmt.Fprintf(f, "%s=%s\n", ck.Key, v)
			written[ck.Key] = true
		}
	}

	// Write any remaining keys not in the known list.
	var extras []string
	for k := range values {
		if !written[k] && values[k] != "" {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		fmt.Fprintf(f, "%s=%s\n", k, values[k])
	}

	return nil
}

// effectiveValue returns the current value for a key, preferring env vars over config file.
func effectiveValue(key string, fileValues map[string]string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fileValues[key]
}

// maskSecret masks a secret string, showing only the first 4 and last 4 characters.
func maskSecret(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// ---------------------------------------------------------------------------
// Interactive helpers
// ---------------------------------------------------------------------------

// wizard holds shared state for the interactive setup.
type wizard struct {
	reader     *bufio.Reader
	fileValues map[string]string
	changed    int // number of values the user entered or changed
}

// newWizard creates a wizard with existing config values loaded.
func newWizard(fileValues map[string]string) *wizard {
	return &wizard{
		reader:     bufio.NewReader(os.Stdin),
		fileValues: fileValues,
	}
}

// askYesNo asks a yes/no question and returns true for yes.
// defaultYes controls what happens when the user presses Enter.
func (w *wizard) askYesNo(prompt string, defaultYes bool) (bool, error) {
	hint := "[Y/n]"
	if !defaultYes {
		hint = "[y/N]"
	}
	fmt.Printf("  %s %s ", prompt, hint)
	input, err := w.reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return defaultYes, nil
	}
	return input == "y" || input == "yes", nil
}

// askValue prompts for a single config value with validation.
// Returns true if a new value was accepted.
func (w *wizard) askValue(ck configKey) (bool, error) {
	current := effectiveValue(ck.Key, w.fileValues)

	// Status indicator.
	status := "\033[31m✗ not set\033[0m"
	if current != "" {
		if ck.Secret {
			status = fmt.Sprintf("\033[32m✓ set\033[0m (%s)", maskSecret(current))
		} else {
			status = fmt.Sprintf("\033[32m✓ set\033[0m (%s)", current)
		}
	}

	fmt.Printf("  %s  %s\n", ck.Key, status)

	for {
		fmt.Print("  Paste value (Enter to keep): ")
		input, err := w.reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		input = strings.TrimSpace(input)

		// Enter = keep current.
		if input == "" {
			return false, nil
		}

		// Validate prefix if defined.
		if ck.Prefix != "" && !strings.HasPrefix(input, ck.Prefix) {
			fmt.Printf("  \033[33m!\033[0m  That doesn't look right, expected prefix \"%s\". Try again or press Enter to skip.\n", ck.Prefix)
			continue
		}

		// Validate model format for the model key.
		if ck.Key == "PATCHPILOT_MODEL" && !isValidModelFormat(input) {
			fmt.Print("  \033[33m!\033[0m  Expected format: provider/model (e.g. gemini/gemini-2.0-flash). Try again or press Enter to skip.\n")
			continue
		}

		w.fileValues[ck.Key] = input
		w.changed++
		fmt.Printf("  \033[32m✓ saved\033[0m\n")
		return true, nil
	}
}

// isValidModelFormat reports whether s looks like provider/model with a
// known provider.
func isValidModelFormat(s string) bool {
	provider, model, ok := strings.Cut(s, "/")
	if !ok || model == "" {
		return false
	}
	return validProviders[provider]
}

// ---------------------------------------------------------------------------
// Setup wizard (guided, multi-step)
// ---------------------------------------------------------------------------

func runConfigSetup(cmd *cobra.Command, args []string) error {
	fileValues, err := loadConfigFileValues()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	if setupNonInteractive {
		return runNonInteractiveSetup(fileValues)
	}

	w := newWizard(fileValues)

	fmt.Println()
	fmt.Println("  \033[1mPatchPilot Setup\033[0m")
	fmt.Println("  ────────────────")
	fmt.Println("  This wizard will walk you through configuring PatchPilot.")
	fmt.Println("  Press Enter at any prompt to keep the current value.")
	fmt.Println()

	// ── Step 1: Model ────────────────────────────────────────────────────
	fmt.Println("  \033[1mStep 1 of 3 — Model (required)\033[0m")
	fmt.Println("  PatchPilot talks to a hosted LLM. Pick a model as provider/name.")
	fmt.Println("  Providers: bedrock, azure, vertex_ai, gemini, anthropic")
	fmt.Println("  Examples:  gemini/gemini-2.0-flash")
	fmt.Println("             vertex_ai/claude-3-7-sonnet@20250219")
	fmt.Println()

	modelKey := findKey("PATCHPILOT_MODEL")
	if _, err := w.askValue(modelKey); err != nil {
		return err
	}
	model := effectiveValue("PATCHPILOT_MODEL", w.fileValues)
	if model == "" {
		model = "vertex_ai/claude-3-7-sonnet@20250219"
		fmt.Printf("  Using default: %s\n", model)
	}
	provider, _, _ := strings.Cut(model, "/")
	fmt.Println()

	// ── Step 2: Provider credentials ─────────────────────────────────────
	fmt.Printf("  \033[1mStep 2 of 3 — %s credentials\033[0m\n", provider)
	switch provider {
	case "bedrock":
		fmt.Println("  Bedrock uses the standard AWS credential chain (env, profile, IAM role).")
		fmt.Println("  Only the region is configured here.")
	case "azure":
		fmt.Println("  Azure OpenAI needs an endpoint, an API key and an API version.")
	case "vertex_ai":
		fmt.Println("  Vertex AI needs a service-account key file and a location.")
		fmt.Println("  The GCP project ID is read from the key file.")
	case "gemini":
		fmt.Println("  Gemini needs an API key from https://aistudio.google.com/apikey")
	case "anthropic":
		fmt.Println("  The Anthropic API needs a key from https://console.anthropic.com")
	}
	fmt.Println()

	for _, keyName := range providerKeys[provider] {
		if _, err := w.askValue(findKey(keyName)); err != nil {
			return err
		}
		fmt.Println()
	}

	// ── Step 3: Scan and server settings ─────────────────────────────────
	fmt.Println("  \033[1mStep 3 of 3 — Scan and server settings (optional)\033[0m")
	fmt.Println("  Defaults: extensions .go,.py and listen address :7090")
	fmt.Println()

	doExtras, err := w.askYesNo("Adjust scan/server settings?", false)
	if err != nil {
		return err
	}
	if doExtras {
		fmt.Println()
		if _, err := w.askValue(findKey("PATCHPILOT_EXTENSIONS")); err != nil {
			return err
		}
		fmt.Println()
		if _, err := w.askValue(findKey("PATCHPILOT_ADDR")); err != nil {
			return err
		}
	} else {
		fmt.Println("  Skipped. You can change these later with: patchpilot config set")
	}
	fmt.Println()

	// ── Save ─────────────────────────────────────────────────────────────
	if err := saveConfigFile(w.fileValues); err != nil {
		return err
	}

	// ── Summary ──────────────────────────────────────────────────────────
	fmt.Println("  \033[1mConfiguration Summary\033[0m")
	fmt.Println("  ────────────────────")
	fmt.Printf("  %-14s %s\n", "Model", model)
	printSummaryLine("Bedrock", provider == "bedrock")
	printSummaryLine("Azure", effectiveValue("AZURE_OPENAI_API_KEY", w.fileValues) != "")
	printSummaryLine("Vertex AI", effectiveValue("PATCHPILOT_VERTEX_KEY", w.fileValues) != "")
	printSummaryLine("Gemini", effectiveValue("GEMINI_API_KEY", w.fileValues) != "")
	printSummaryLine("Anthropic", effectiveValue("ANTHROPIC_API_KEY", w.fileValues) != "")
	fmt.Println()
	fmt.Printf("  Saved to %s\n", configFilePath())
	fmt.Println()

	fmt.Println("  \033[1mNext Steps\033[0m")
	fmt.Println("  ──────────")
	fmt.Println("  1. Try the demo:     patchpilot run")
	fmt.Println("  2. Fix your own bug: patchpilot run --bug-description \"...\" --project-dir ./app")
	fmt.Println("  3. Or run as an API: patchpilot serve")
	fmt.Println()

	return nil
}

// runNonInteractiveSetup handles --non-interactive mode.
func runNonInteractiveSetup(fileValues map[string]string) error {
	if setupModel == "" {
		return fmt.Errorf("--model is required in non-interactive mode")
	}
	if !isValidModelFormat(setupModel) {
		return fmt.Errorf("invalid model %q; expected provider/name with provider one of: bedrock, azure, vertex_ai, gemini, anthropic", setupModel)
	}

	fileValues["PATCHPILOT_MODEL"] = setupModel

	if err := saveConfigFile(fileValues); err != nil {
		return err
	}

	fmt.Printf("Config written to %s\n", configFilePath())
	fmt.Println("Set provider credentials via environment variables or: patchpilot config set KEY VALUE")
	return nil
}

// findKey looks up a configKey by name.
func findKey(name string) configKey {
	for _, ck := range allConfigKeys {
		if ck.Key == name {
			return ck
		}
	}
	return configKey{Key: name}
}

// printSummaryLine prints a check or cross for a config section.
func printSummaryLine(label string, ok bool) {
	if ok {
		fmt.Printf("  \033[32m✓\033[0m %-12s configured\n", label)
	} else {
		fmt.Printf("  \033[90m-\033[0m %-12s not configured\n", label)
	}
}

// ---------------------------------------------------------------------------
// config set / config show
// ---------------------------------------------------------------------------

// runConfigSet sets a single key=value in the config file.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	fileValues, err := loadConfigFileValues()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	fileValues[key] = value

	if err := saveConfigFile(fileValues); err != nil {
		return err
	}

	// Check if it's a known secret key.
	isSecret := false
	for _, ck := range allConfigKeys {
		if ck.Key == key && ck.Secret {
			isSecret = true
			break
		}
	}

	if isSecret {
		fmt.Printf("Set %s = %s\n", key, maskSecret(value))
	} else {
		fmt.Printf("Set %s = %s\n", key, value)
	}
	return nil
}

// runConfigShow displays the current effective configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	fileValues, err := loadConfigFileValues()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	fmt.Printf("Config file: %s\n\n", configFilePath())

	for _, ck := range allConfigKeys {
		value := effectiveValue(ck.Key, fileValues)
		source := ""
		if os.Getenv(ck.Key) != "" {
			source = " (from env)"
		} else if fileValues[ck.Key] != "" {
			source = " (from config file)"
		}

		display := "(not set)"
		if value != "" {
			if ck.Secret {
				display = maskSecret(value)
			} else {
				display = value
			}
		}

		reqTag := ""
		if ck.Required {
			reqTag = " *"
		}

		fmt.Printf("  %-28s %s%s\n", ck.Key+reqTag, display, source)
	}

	fmt.Println("\n  * = required")
	return nil
}
