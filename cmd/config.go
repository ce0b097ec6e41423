package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tm"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage tm configuration.

Running bare 'tm config' is the same as 'tm config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# tm configuration
# See: tm config show (for effective values and sources)

# State/data directory (default: ~/.config/tm)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/tm/tm.db)
# db_path: {{ .DBPath }}

server:
  # HTTP API port for 'tm serve' (default: 8080)
  port: {{ .ServerPort }}

batch:
  # Pause before the task list reloads after a batch operation
  reload_delay: "{{ .ReloadDelay }}"

sweep:
  # Cron schedule of the overdue sweep run by 'tm serve'
  schedule: "{{ .SweepSchedule }}"

weather:
  # Simulated latency of the weather lookup
  delay: "{{ .WeatherDelay }}"

# OpenTelemetry export over OTLP gRPC
telemetry:
  enabled: {{ .TelemetryEnabled }}
  endpoint: "{{ .TelemetryEndpoint }}"
  service_name: "{{ .TelemetryService }}"
  environment: "{{ .TelemetryEnv }}"

# Anthropic model used by 'tm task import' (api key: ANTHROPIC_API_KEY or TM_ANTHROPIC_API_KEY)
anthropic:
  model: "{{ .AnthropicModel }}"
`

type configTemplateData struct {
	StateDir          string
	DBPath            string
	ServerPort        int
	ReloadDelay       string
	SweepSchedule     string
	WeatherDelay      string
	TelemetryEnabled  bool
	TelemetryEndpoint string
	TelemetryService  string
	TelemetryEnv      string
	AnthropicModel    string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:          viper.GetString("state_dir"),
		DBPath:            viper.GetString("db_path"),
		ServerPort:        viper.GetInt("server.port"),
		ReloadDelay:       viper.GetDuration("batch.reload_delay").String(),
		SweepSchedule:     viper.GetString("sweep.schedule"),
		WeatherDelay:      viper.GetDuration("weather.delay").String(),
		TelemetryEnabled:  viper.GetBool("telemetry.enabled"),
		TelemetryEndpoint: viper.GetString("telemetry.endpoint"),
		TelemetryService:  viper.GetString("telemetry.service_name"),
		TelemetryEnv:      viper.GetString("telemetry.environment"),
		AnthropicModel:    viper.GetString("anthropic.model"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "TM_STATE_DIR"},
	{Key: "db_path", EnvVar: "TM_DB_PATH"},
	{Key: "server.port", EnvVar: "TM_SERVER_PORT"},
	{Key: "batch.reload_delay", EnvVar: "TM_BATCH_RELOAD_DELAY"},
	{Key: "sweep.schedule", EnvVar: "TM_SWEEP_SCHEDULE"},
	{Key: "weather.delay", EnvVar: "TM_WEATHER_DELAY"},
	{Key: "telemetry.enabled", EnvVar: "TM_TELEMETRY_ENABLED"},
	{Key: "telemetry.endpoint", EnvVar: "TM_TELEMETRY_ENDPOINT"},
	{Key: "telemetry.service_name", EnvVar: "TM_TELEMETRY_SERVICE_NAME"},
	{Key: "telemetry.environment", EnvVar: "TM_TELEMETRY_ENVIRONMENT"},
	{Key: "anthropic.api_key", EnvVar: "TM_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "TM_ANTHROPIC_MODEL"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		if k.Secret && val != "" && val != nil {
			val = "********"
		}
		fmt.Fprintf(ui.Out, "  %-24s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'tm config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
